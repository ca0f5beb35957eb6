package service

import (
	"context"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// slaWatchedStatuses are scanned for deadline breaches; Breached tickets are
// always reported.
var slaWatchedStatuses = []domain.TicketStatus{
	domain.TicketStatusOpen,
	domain.TicketStatusInProgress,
	domain.TicketStatusEscalated,
}

// SLAService reports deadline breaches without mutating tickets.
type SLAService struct {
	tickets repository.TicketRepository
	clock   Clock
}

// SLAReport lists breached tickets as of GeneratedAt.
type SLAReport struct {
	Tickets     []domain.Ticket
	GeneratedAt time.Time
}

// NewSLAService creates the service.
func NewSLAService(tickets repository.TicketRepository, clock Clock) *SLAService {
	return &SLAService{tickets: tickets, clock: clock}
}

// Report returns every watched ticket past its deadline plus the ones already
// marked Breached. Admin only.
func (s *SLAService) Report(ctx context.Context, actor *domain.User) (*SLAReport, error) {
	if err := requireVerified(actor); err != nil {
		return nil, err
	}
	if !auth.Allowed(actor.Role, auth.ActionSLAReport, auth.RelationAny) {
		return nil, apperrors.NewForbidden("Admin only")
	}

	statuses := append([]domain.TicketStatus{domain.TicketStatusBreached}, slaWatchedStatuses...)
	candidates, err := s.tickets.ListByStatus(ctx, statuses)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	now := s.clock.now()
	report := &SLAReport{Tickets: []domain.Ticket{}, GeneratedAt: now}
	for _, t := range candidates {
		if t.Status == domain.TicketStatusBreached || domain.IsBreached(&t, now) {
			report.Tickets = append(report.Tickets, t)
		}
	}
	return report, nil
}
