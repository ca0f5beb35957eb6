package handlers

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// TicketsHandler exposes the ticket lifecycle endpoints for every role.
type TicketsHandler struct {
	service *service.TicketService
	now     func() time.Time
}

// NewTicketsHandler constructs handler. now drives the sla_breached flag.
func NewTicketsHandler(ticketService *service.TicketService, now func() time.Time) *TicketsHandler {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &TicketsHandler{service: ticketService, now: now}
}

// CreateTicket POST /tickets. A repeated Idempotency-Key returns the original ticket with 200.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	ticket, created, err := h.service.Create(c.UserContext(), user, service.TicketCreateInput{
		Title:          req.Title,
		Description:    req.Description,
		Category:       req.Category,
		Priority:       req.Priority,
		IdempotencyKey: c.Get("Idempotency-Key"),
	})
	if err != nil {
		return err
	}
	status := http.StatusCreated
	if !created {
		status = http.StatusOK
	}
	return c.Status(status).JSON(fiber.Map{"data": ticketResponse(ticket, h.now())})
}

// ListTickets GET /tickets?search=&page=.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	page, err := h.service.List(c.UserContext(), user, service.TicketListInput{
		Search: c.Query("search"),
		Page:   parseInt(c.Query("page"), 1),
	})
	if err != nil {
		return err
	}

	resp := dto.TicketListResponse{
		Results: ticketResponses(page.Tickets, h.now()),
		Count:   page.Total,
	}
	if page.HasNext() {
		next := page.Page + 1
		resp.Next = &next
	}
	if page.HasPrevious() {
		prev := page.Page - 1
		resp.Previous = &prev
	}
	return c.JSON(resp)
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	ticket, err := h.service.Get(c.UserContext(), user, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket, h.now())})
}

// UpdateTicket PATCH /tickets/:id.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.UpdateTicketRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	ticket, err := h.service.Update(c.UserContext(), user, c.Params("id"), service.TicketPatch{
		Version:    req.Version,
		Status:     req.Status,
		AssignedTo: req.AssignedTo,
		Comment:    req.Comment,
		ReplyTo:    req.ReplyTo,
		Contact:    req.Contact,
		Github:     req.Github,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket, h.now())})
}

// DeleteTimelineEntry DELETE /tickets/:id/timeline.
func (h *TicketsHandler) DeleteTimelineEntry(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.DeleteTimelineEntryRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	ticket, err := h.service.DeleteTimelineEntry(c.UserContext(), user, c.Params("id"), req.CommentIndex)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message": "Comment deleted successfully",
		"data":    ticketResponse(ticket, h.now()),
	})
}

// Escalate POST /tickets/:id/transfer.
func (h *TicketsHandler) Escalate(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.EscalateRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	ticket, err := h.service.Escalate(c.UserContext(), user, c.Params("id"), req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message": "Ticket transferred to admin",
		"data":    ticketResponse(ticket, h.now()),
	})
}

// AdminTransfer POST /tickets/:id/admin-transfer.
func (h *TicketsHandler) AdminTransfer(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.AdminTransferRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	ticket, err := h.service.AdminTransfer(c.UserContext(), user, c.Params("id"), req.TargetUID, req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message": "Ticket transferred",
		"data":    ticketResponse(ticket, h.now()),
	})
}

// SubmitFeedback POST /tickets/:id/feedback.
func (h *TicketsHandler) SubmitFeedback(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.FeedbackRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	ticket, err := h.service.SubmitFeedback(c.UserContext(), user, c.Params("id"), service.FeedbackInput{
		Rating:   req.Rating,
		Feedback: req.Feedback,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message": "Feedback submitted successfully",
		"data":    ticketResponse(ticket, h.now()),
	})
}
