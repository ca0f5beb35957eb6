package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// ReportsHandler serves admin reports.
type ReportsHandler struct {
	sla *service.SLAService
}

// NewReportsHandler constructs handler.
func NewReportsHandler(sla *service.SLAService) *ReportsHandler {
	return &ReportsHandler{sla: sla}
}

// SLA GET /reports/sla.
func (h *ReportsHandler) SLA(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	report, err := h.sla.Report(c.UserContext(), user)
	if err != nil {
		return err
	}
	tickets := make([]dto.TicketResponse, 0, len(report.Tickets))
	for i := range report.Tickets {
		resp := ticketResponse(&report.Tickets[i], report.GeneratedAt)
		resp.SLABreached = true
		tickets = append(tickets, resp)
	}
	return c.JSON(dto.SLAReportResponse{
		BreachedTickets: tickets,
		Count:           len(tickets),
		GeneratedAt:     report.GeneratedAt,
	})
}
