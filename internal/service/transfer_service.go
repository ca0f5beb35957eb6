package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

const (
	defaultEscalationReason = "Escalation required"
	defaultTransferReason   = "Admin reassignment"
)

// Escalate hands a ticket from its assigned agent to the least-loaded verified admin.
func (s *TicketService) Escalate(ctx context.Context, actor *domain.User, id, reason string) (*domain.Ticket, error) {
	if err := requireVerified(actor); err != nil {
		return nil, err
	}
	if actor.Role != domain.RoleAgent {
		return nil, apperrors.NewForbidden("Only agents can transfer tickets")
	}
	ticket, err := s.load(ctx, actor, id, auth.ActionEscalate)
	if err != nil {
		return nil, err
	}

	admin, err := s.assignment.LeastLoaded(ctx, domain.RoleAdmin)
	if err != nil {
		return nil, apperrors.NewStoreError(apperrors.CodeTransferError, err)
	}
	if admin == nil {
		return nil, apperrors.NewNoAdmin()
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = defaultEscalationReason
	}

	now := s.clock.now()
	record := domain.TransferRecord{
		From:      ticket.AssignedTo,
		To:        admin.ID,
		FromRole:  domain.RoleAgent,
		ToRole:    domain.RoleAdmin,
		By:        actor.ID,
		Reason:    reason,
		Timestamp: now,
	}
	next := ticket.Clone()
	next.AssignedTo = admin.ID
	next.MoveTo(domain.TicketStatusEscalated)
	next.TransferHistory = append(next.TransferHistory, record)
	next.Timeline.Append(domain.TimelineEntry{
		Action:    domain.ActionTransferred,
		Timestamp: now,
		User:      actor.ID,
		Username:  actor.DisplayName(),
		Comment:   "Transferred to admin: " + reason,
	})

	if err := s.commit(ctx, ticket, next, now, apperrors.CodeTransferError); err != nil {
		return nil, err
	}
	s.publishChanges(ctx, actor, ticket, next, transferredEvent(actor, next, record))
	return next, nil
}

// AdminTransfer moves a ticket to any existing user, whatever their role.
func (s *TicketService) AdminTransfer(ctx context.Context, actor *domain.User, id, targetID, reason string) (*domain.Ticket, error) {
	if err := requireVerified(actor); err != nil {
		return nil, err
	}
	if !auth.Allowed(actor.Role, auth.ActionAdminTransfer, auth.RelationAny) {
		return nil, apperrors.NewForbidden("Admin only")
	}
	targetID = strings.TrimSpace(targetID)
	if targetID == "" {
		return nil, apperrors.NewMissingTarget()
	}
	ticket, err := s.load(ctx, actor, id, auth.ActionAdminTransfer)
	if err != nil {
		return nil, err
	}
	target, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		return nil, userNotFoundAs(err, apperrors.NewTargetNotFound)
	}

	var fromRole domain.Role
	if ticket.AssignedTo != "" {
		previous, err := s.users.GetByID(ctx, ticket.AssignedTo)
		switch {
		case err == nil:
			fromRole = previous.Role
		case !errors.Is(err, repository.ErrNotFound):
			return nil, apperrors.NewStoreError(apperrors.CodeTransferError, err)
		}
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = defaultTransferReason
	}

	now := s.clock.now()
	record := domain.TransferRecord{
		From:      ticket.AssignedTo,
		To:        target.ID,
		FromRole:  fromRole,
		ToRole:    target.Role,
		By:        actor.ID,
		Reason:    reason,
		Timestamp: now,
	}
	next := ticket.Clone()
	next.AssignedTo = target.ID
	next.MoveTo(domain.TicketStatusInProgress)
	next.TransferHistory = append(next.TransferHistory, record)
	next.Timeline.Append(domain.TimelineEntry{
		Action:    domain.ActionAdminTransfer,
		Timestamp: now,
		User:      actor.ID,
		Username:  actor.DisplayName(),
		Comment:   fmt.Sprintf("Transferred to %s (%s): %s", target.DisplayName(), target.Role, reason),
	})

	if err := s.commit(ctx, ticket, next, now, apperrors.CodeTransferError); err != nil {
		return nil, err
	}
	s.publishChanges(ctx, actor, ticket, next, transferredEvent(actor, next, record))
	return next, nil
}

func transferredEvent(actor *domain.User, ticket *domain.Ticket, record domain.TransferRecord) events.Event {
	return events.Event{
		Type:     events.EventTicketTransferred,
		TicketID: ticket.ID,
		Actor:    actorOf(actor),
		Payload:  events.TicketTransferredPayload{Transfer: record, Status: ticket.Status},
	}
}
