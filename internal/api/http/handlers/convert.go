package handlers

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

func currentUser(c *fiber.Ctx) (*domain.User, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return nil, apperrors.NewUnauthorized("Authentication required")
	}
	return principal.User, nil
}

func parseBody(c *fiber.Ctx, out any) error {
	if len(c.Body()) == 0 {
		return nil
	}
	if err := c.BodyParser(out); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return nil
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func ticketResponse(ticket *domain.Ticket, now time.Time) dto.TicketResponse {
	timeline := make([]dto.TimelineEntryResponse, 0, len(ticket.Timeline))
	for i, e := range ticket.Timeline {
		timeline = append(timeline, dto.TimelineEntryResponse{
			Index:     i,
			Action:    e.Action,
			Timestamp: e.Timestamp,
			User:      e.User,
			Username:  e.Username,
			Comment:   e.Comment,
			ReplyTo:   e.ReplyTo,
		})
	}
	transfers := make([]dto.TransferResponse, 0, len(ticket.TransferHistory))
	for _, t := range ticket.TransferHistory {
		transfers = append(transfers, dto.TransferResponse{
			From:      t.From,
			To:        t.To,
			FromRole:  t.FromRole,
			ToRole:    t.ToRole,
			By:        t.By,
			Reason:    t.Reason,
			Timestamp: t.Timestamp,
		})
	}
	return dto.TicketResponse{
		ID:                  ticket.ID,
		TicketID:            ticket.TicketID,
		Title:               ticket.Title,
		Description:         ticket.Description,
		Category:            ticket.Category,
		Priority:            ticket.Priority,
		Status:              ticket.Status,
		CreatedBy:           ticket.CreatedBy,
		AssignedTo:          optional(ticket.AssignedTo),
		CreatedAt:           ticket.CreatedAt,
		UpdatedAt:           ticket.UpdatedAt,
		ResolvedAt:          ticket.ResolvedAt,
		ClosedAt:            ticket.ClosedAt,
		CompletedAt:         ticket.CompletedAt,
		ResolvedBy:          optional(ticket.ResolvedBy),
		SLADeadline:         ticket.SLADeadline,
		SLABreached:         ticket.Status == domain.TicketStatusBreached || (ticket.Status.CountsTowardWorkload() && domain.IsBreached(ticket, now)),
		Version:             ticket.Version,
		ReopenCount:         ticket.ReopenCount,
		Timeline:            timeline,
		TransferHistory:     transfers,
		Contact:             ticket.Contact,
		Github:              ticket.Github,
		Feedback:            ticket.Feedback,
		Rating:              ticket.Rating,
		FeedbackSubmittedAt: ticket.FeedbackSubmittedAt,
	}
}

func ticketResponses(tickets []domain.Ticket, now time.Time) []dto.TicketResponse {
	out := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		out = append(out, ticketResponse(&tickets[i], now))
	}
	return out
}

func userResponse(user *domain.User) dto.UserResponse {
	return dto.UserResponse{
		UID:           user.ID,
		Email:         user.Email,
		Name:          user.Name,
		Role:          user.Role,
		CustomUID:     user.CustomID,
		Username:      user.Username,
		Verified:      user.Verified,
		VerifiedAt:    user.VerifiedAt,
		AccountStatus: user.AccountStatus,
		ActiveTickets: user.ActiveTickets,
		TotalResolved: user.TotalResolved,
		CreatedAt:     user.CreatedAt,
	}
}
