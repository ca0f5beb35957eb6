package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

const defaultCategory = "General"

// TicketService coordinates ticket workflows: creation with auto-assignment,
// the status state machine, the timeline ledger and transfers. Every write
// goes through commit.
type TicketService struct {
	tickets    repository.TicketRepository
	users      repository.UserRepository
	ids        *IdentifierService
	assignment *AssignmentService
	events     eventSink
	logger     *zap.Logger
	clock      Clock
}

// TicketDependencies bundles repositories for ticket service.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	UserRepo    repository.UserRepository
	Identifiers *IdentifierService
	Assignment  *AssignmentService
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
	Clock       Clock
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title          string
	Description    string
	Category       string
	Priority       domain.TicketPriority
	IdempotencyKey string
}

// TicketListInput describes listing parameters. Page is 1-based.
type TicketListInput struct {
	Search string
	Page   int
}

// TicketPage is one page of a role-scoped listing.
type TicketPage struct {
	Tickets  []domain.Ticket
	Total    int
	Page     int
	PageSize int
}

// HasNext reports whether another page follows.
func (p *TicketPage) HasNext() bool { return p.Page*p.PageSize < p.Total }

// HasPrevious reports whether a page precedes this one.
func (p *TicketPage) HasPrevious() bool { return p.Page > 1 }

// TicketPatch carries the optional fields of a ticket update. Nil means
// "not supplied".
type TicketPatch struct {
	Version    *int
	Status     *domain.TicketStatus
	AssignedTo *string
	Comment    *string
	ReplyTo    *int
	Contact    *string
	Github     *string
}

// FeedbackInput is the creator's rating of a finished ticket.
type FeedbackInput struct {
	Rating   *int
	Feedback string
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		users:      deps.UserRepo,
		ids:        deps.Identifiers,
		assignment: deps.Assignment,
		events:     eventSink{dispatcher: deps.Dispatcher, logger: logger},
		logger:     logger,
		clock:      deps.Clock,
	}
}

// Create files a ticket for actor and auto-assigns it. When the idempotency key
// matches an earlier ticket of the same caller, that ticket is returned and
// created is false.
func (s *TicketService) Create(ctx context.Context, actor *domain.User, input TicketCreateInput) (*domain.Ticket, bool, error) {
	if err := requireVerified(actor); err != nil {
		return nil, false, err
	}

	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	if title == "" {
		return nil, false, apperrors.NewFieldRequired("title", "Title and description required")
	}
	if description == "" {
		return nil, false, apperrors.NewFieldRequired("description", "Title and description required")
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.TicketPriorityMedium
	}
	if !priority.Valid() {
		return nil, false, apperrors.NewValidationError("Invalid priority", map[string]any{
			"field":   "priority",
			"allowed": []domain.TicketPriority{domain.TicketPriorityLow, domain.TicketPriorityMedium, domain.TicketPriorityHigh, domain.TicketPriorityCritical},
		})
	}
	category := strings.TrimSpace(input.Category)
	if category == "" {
		category = defaultCategory
	}
	key := strings.TrimSpace(input.IdempotencyKey)

	if key != "" {
		existing, err := s.replay(ctx, actor, key)
		if err != nil || existing != nil {
			return existing, false, err
		}
	}

	ticketID, err := s.ids.NextTicketID(ctx)
	if err != nil {
		return nil, false, apperrors.NewStoreError(apperrors.CodeCreateError, err)
	}

	now := s.clock.now()
	ticket := &domain.Ticket{
		TicketID:        ticketID,
		Title:           title,
		Description:     description,
		Category:        category,
		Priority:        priority,
		Status:          domain.TicketStatusOpen,
		CreatedBy:       actor.ID,
		CreatedAt:       now,
		UpdatedAt:       now,
		SLADeadline:     domain.SLADeadline(priority, now),
		Version:         1,
		Timeline:        domain.Timeline{},
		TransferHistory: []domain.TransferRecord{},
		IdempotencyKey:  key,
	}
	ticket.Timeline.Append(domain.TimelineEntry{
		Action:    domain.ActionCreated,
		Timestamp: now,
		User:      actor.ID,
		Username:  actor.DisplayName(),
	})

	assignee, err := s.assignment.Assign(ctx, priority)
	if err != nil {
		return nil, false, apperrors.NewStoreError(apperrors.CodeCreateError, err)
	}
	if assignee != nil {
		ticket.AssignedTo = assignee.ID
		ticket.Timeline.Append(domain.TimelineEntry{
			Action:    domain.ActionAutoAssigned,
			Timestamp: now,
			User:      assignee.ID,
			Username:  assignee.DisplayName(),
			Comment:   "Automatically assigned to " + assignee.DisplayName(),
		})
	}

	if err := s.tickets.Create(ctx, ticket, workloadDeltas(nil, ticket)); err != nil {
		if errors.Is(err, repository.ErrDuplicate) && key != "" {
			existing, replayErr := s.replay(ctx, actor, key)
			if replayErr != nil || existing != nil {
				return existing, false, replayErr
			}
		}
		return nil, false, apperrors.NewStoreError(apperrors.CodeCreateError, err)
	}

	s.events.publish(ctx, events.Event{
		Type:      events.EventTicketCreated,
		TicketID:  ticket.ID,
		Actor:     actorOf(actor),
		Timestamp: now,
		Payload: events.TicketCreatedPayload{
			TicketNumber: ticket.TicketID,
			Priority:     ticket.Priority,
			Category:     ticket.Category,
			Title:        ticket.Title,
			AssignedTo:   ticket.AssignedTo,
			SLADeadline:  ticket.SLADeadline,
		},
	})
	if assignee != nil {
		s.events.publish(ctx, events.Event{
			Type:      events.EventTicketAssigned,
			TicketID:  ticket.ID,
			Actor:     actorOf(actor),
			Timestamp: now,
			Payload:   events.TicketAssignedPayload{To: assignee.ID, Auto: true},
		})
	}
	return ticket, true, nil
}

// replay returns the ticket previously created under key, nil when there is none.
func (s *TicketService) replay(ctx context.Context, actor *domain.User, key string) (*domain.Ticket, error) {
	existing, err := s.tickets.GetByIdempotencyKey(ctx, key)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewStoreError(apperrors.CodeCreateError, err)
	}
	if existing.CreatedBy != actor.ID {
		return nil, apperrors.NewConflict("Idempotency key already used", map[string]any{"idempotency_key": key})
	}
	return existing, nil
}

// List returns the page of tickets visible to actor: users see what they
// created, agents what is assigned to them, admins everything.
func (s *TicketService) List(ctx context.Context, actor *domain.User, input TicketListInput) (*TicketPage, error) {
	if err := requireVerified(actor); err != nil {
		return nil, err
	}
	page := max(input.Page, 1)
	filter := repository.TicketFilter{
		SearchTerm: strings.TrimSpace(input.Search),
		Limit:      repository.DefaultPageSize,
		Offset:     (page - 1) * repository.DefaultPageSize,
	}
	switch actor.Role {
	case domain.RoleUser:
		filter.CreatedBy = actor.ID
	case domain.RoleAgent:
		filter.AssignedTo = actor.ID
	case domain.RoleAdmin:
	default:
		return nil, apperrors.NewForbidden("Access denied")
	}

	tickets, total, err := s.tickets.List(ctx, filter)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &TicketPage{Tickets: tickets, Total: total, Page: page, PageSize: repository.DefaultPageSize}, nil
}

// Get returns a ticket the actor may view.
func (s *TicketService) Get(ctx context.Context, actor *domain.User, id string) (*domain.Ticket, error) {
	return s.load(ctx, actor, id, auth.ActionViewTicket)
}

// Update applies a patch through the status state machine. Checks run in
// order: verification, existence, visibility, version, field rules.
func (s *TicketService) Update(ctx context.Context, actor *domain.User, id string, patch TicketPatch) (*domain.Ticket, error) {
	ticket, err := s.load(ctx, actor, id, auth.ActionUpdateTicket)
	if err != nil {
		return nil, err
	}
	if patch.Version != nil && *patch.Version != ticket.Version {
		return nil, versionMismatch(ticket.Version)
	}

	now := s.clock.now()
	rel := auth.TicketRelation(actor.ID, ticket)
	next := ticket.Clone()

	if patch.Status != nil {
		if err := s.applyStatus(actor, ticket, next, *patch.Status, now); err != nil {
			return nil, err
		}
	}

	if patch.AssignedTo != nil {
		if err := s.applyReassignment(ctx, actor, rel, next, *patch.AssignedTo, now); err != nil {
			return nil, err
		}
	}

	if patch.Contact != nil {
		next.Contact = patch.Contact
	}
	if patch.Github != nil {
		next.Github = patch.Github
	}

	var commented *events.Event
	switch {
	case patch.Comment != nil:
		if !auth.Allowed(actor.Role, auth.ActionComment, rel) {
			return nil, apperrors.NewForbidden("Access denied")
		}
		body := strings.TrimSpace(*patch.Comment)
		if body == "" {
			return nil, apperrors.NewFieldRequired("comment", "Comment cannot be empty")
		}
		if patch.ReplyTo != nil && !next.Timeline.Has(*patch.ReplyTo) {
			return nil, apperrors.NewInvalidIndex("reply_to does not reference an existing timeline entry")
		}
		idx := next.Timeline.Append(domain.TimelineEntry{
			Action:    domain.ActionCommented,
			Timestamp: now,
			User:      actor.ID,
			Username:  actor.DisplayName(),
			Comment:   body,
			ReplyTo:   patch.ReplyTo,
		})
		commented = &events.Event{
			Type:     events.EventTicketCommented,
			TicketID: ticket.ID,
			Actor:    actorOf(actor),
			Payload:  events.TicketCommentedPayload{EntryIndex: idx, ReplyTo: patch.ReplyTo, BodyPreview: stringPreview(body, 140)},
		}
	case patch.ReplyTo != nil:
		return nil, apperrors.NewFieldRequired("comment", "reply_to requires a comment")
	}

	if err := s.commit(ctx, ticket, next, now, apperrors.CodeUpdateError); err != nil {
		return nil, err
	}
	if commented != nil {
		s.publishChanges(ctx, actor, ticket, next, *commented)
	} else {
		s.publishChanges(ctx, actor, ticket, next)
	}
	return next, nil
}

// applyStatus validates requested against the actor's role and the current
// status, then mutates next.
func (s *TicketService) applyStatus(actor *domain.User, current, next *domain.Ticket, requested domain.TicketStatus, now time.Time) error {
	if !requested.Valid() {
		return apperrors.NewInvalidStatus(fmt.Sprintf("Unknown status %q", requested))
	}
	old := current.Status
	rel := auth.TicketRelation(actor.ID, current)
	action := auth.StatusAction(requested)

	if !auth.Allowed(actor.Role, action, rel) {
		if old == domain.TicketStatusClosed && requested == domain.TicketStatusOpen &&
			auth.Allowed(actor.Role, auth.ActionReopenTicket, rel) {
			return reopen(actor, current, next, now)
		}
		return statusDenied(actor.Role, action, rel)
	}

	if requested == old {
		return nil
	}
	next.MoveTo(requested)
	if requested == domain.TicketStatusResolved {
		next.ResolvedAt = &now
		next.CompletedAt = &now
		next.ResolvedBy = actor.ID
	}
	if requested == domain.TicketStatusClosed {
		next.ClosedAt = &now
		if !current.Completed() {
			next.CompletedAt = &now
			next.ResolvedBy = actor.ID
		}
	}
	next.Timeline.Append(domain.TimelineEntry{
		Action:    domain.ActionStatusChanged,
		Timestamp: now,
		User:      actor.ID,
		Username:  actor.DisplayName(),
		Comment:   fmt.Sprintf("Status changed from %s to %s", old, requested),
	})
	return nil
}

// reopen is the creator's one-time way back from Closed.
func reopen(actor *domain.User, current, next *domain.Ticket, now time.Time) error {
	if current.ReopenCount >= 1 {
		return apperrors.NewForbidden("Ticket can only be reopened once")
	}
	next.MoveTo(domain.TicketStatusOpen)
	next.ReopenCount = current.ReopenCount + 1
	next.Timeline.Append(domain.TimelineEntry{
		Action:    domain.ActionReopened,
		Timestamp: now,
		User:      actor.ID,
		Username:  actor.DisplayName(),
		Comment:   "Ticket reopened by user",
	})
	return nil
}

func statusDenied(role domain.Role, action auth.Action, rel auth.Relation) error {
	switch {
	case action == auth.ActionCloseTicket:
		return apperrors.NewForbidden("Only admin can close tickets")
	case auth.Allowed(role, auth.ActionSetWorkStatus, rel):
		return apperrors.NewForbidden("Agents can only set Open, In Progress or Resolved")
	case auth.Allowed(role, auth.ActionReopenTicket, rel):
		return apperrors.NewForbidden("Users can only reopen closed tickets")
	}
	return apperrors.NewForbidden("Access denied")
}

func (s *TicketService) applyReassignment(ctx context.Context, actor *domain.User, rel auth.Relation, next *domain.Ticket, targetID string, now time.Time) error {
	if !auth.Allowed(actor.Role, auth.ActionReassign, rel) {
		return apperrors.NewForbidden("Only admin can reassign tickets")
	}
	targetID = strings.TrimSpace(targetID)
	if targetID == "" {
		return apperrors.NewMissingTarget()
	}
	target, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		return userNotFoundAs(err, apperrors.NewTargetNotFound)
	}
	if target.ID == next.AssignedTo {
		return nil
	}

	from := "unassigned"
	if next.AssignedTo != "" {
		from = s.displayName(ctx, next.AssignedTo)
	}
	next.AssignedTo = target.ID
	next.Timeline.Append(domain.TimelineEntry{
		Action:    domain.ActionReassigned,
		Timestamp: now,
		User:      actor.ID,
		Username:  actor.DisplayName(),
		Comment:   fmt.Sprintf("Ticket reassigned from %s to %s", from, target.DisplayName()),
	})
	return nil
}

// DeleteTimelineEntry removes a comment or reply at index.
func (s *TicketService) DeleteTimelineEntry(ctx context.Context, actor *domain.User, id string, index *int) (*domain.Ticket, error) {
	if index == nil {
		return nil, apperrors.NewMissingIndex()
	}
	ticket, err := s.load(ctx, actor, id, auth.ActionDeleteEntry)
	if err != nil {
		return nil, err
	}

	next := ticket.Clone()
	if err := next.Timeline.Delete(*index, actor.ID, actor.Role); err != nil {
		switch {
		case errors.Is(err, domain.ErrTimelineIndex):
			return nil, apperrors.NewInvalidIndex("Invalid comment index")
		case errors.Is(err, domain.ErrTimelineNotAuthor):
			return nil, apperrors.NewForbidden("Only creator, admin, or agent can delete comments")
		case errors.Is(err, domain.ErrTimelineNotDeletable):
			return nil, apperrors.NewForbidden("Cannot delete system actions")
		}
		return nil, apperrors.NewInternalError(err)
	}

	now := s.clock.now()
	if err := s.commit(ctx, ticket, next, now, apperrors.CodeUpdateError); err != nil {
		return nil, err
	}
	s.publishChanges(ctx, actor, ticket, next)
	return next, nil
}

// SubmitFeedback records the creator's one-time rating of a resolved or closed ticket.
func (s *TicketService) SubmitFeedback(ctx context.Context, actor *domain.User, id string, input FeedbackInput) (*domain.Ticket, error) {
	if input.Rating == nil || *input.Rating < 1 || *input.Rating > 5 {
		return nil, apperrors.NewInvalidRating()
	}
	ticket, err := s.load(ctx, actor, id, auth.ActionFeedback)
	if err != nil {
		return nil, err
	}
	if auth.TicketRelation(actor.ID, ticket)&auth.RelationCreator == 0 {
		return nil, apperrors.NewForbidden("Only ticket creator can submit feedback")
	}
	if !ticket.Completed() {
		return nil, apperrors.NewInvalidStatus("Ticket must be resolved or closed")
	}
	if ticket.FeedbackSubmittedAt != nil {
		return nil, apperrors.NewForbidden("Feedback already submitted")
	}

	now := s.clock.now()
	next := ticket.Clone()
	rating := *input.Rating
	text := strings.TrimSpace(input.Feedback)
	next.Rating = &rating
	next.Feedback = &text
	next.FeedbackSubmittedAt = &now

	if err := s.commit(ctx, ticket, next, now, apperrors.CodeUpdateError); err != nil {
		return nil, err
	}
	s.publishChanges(ctx, actor, ticket, next)
	return next, nil
}

// load fetches a ticket and checks that actor may perform action on it.
func (s *TicketService) load(ctx context.Context, actor *domain.User, id string, action auth.Action) (*domain.Ticket, error) {
	if err := requireVerified(actor); err != nil {
		return nil, err
	}
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": id})
		}
		return nil, apperrors.NewInternalError(err)
	}
	if !auth.Allowed(actor.Role, action, auth.TicketRelation(actor.ID, ticket)) {
		if actor.Role == domain.RoleAgent {
			return nil, apperrors.NewForbidden("You can only access tickets assigned to you")
		}
		return nil, apperrors.NewForbidden("Access denied")
	}
	return ticket, nil
}

// commit finalizes next as the successor of before: it bumps the version,
// stamps updatedAt, applies the SLA breach post-condition and writes the
// ticket together with the workload deltas, guarded by before's version.
func (s *TicketService) commit(ctx context.Context, before, next *domain.Ticket, now time.Time, failureCode string) error {
	next.Version = before.Version + 1
	next.UpdatedAt = now
	if domain.IsBreached(next, now) {
		next.Status = domain.TicketStatusBreached
	}

	err := s.tickets.Update(ctx, next, before.Version, workloadDeltas(before, next))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrVersionConflict):
		return versionMismatch(before.Version)
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": before.ID})
	default:
		s.logger.Error("ticket commit failed", zap.String("ticket_id", before.ID), zap.Error(err))
		return apperrors.NewStoreError(failureCode, err)
	}
}

// workloadDeltas derives counter adjustments from the assignee and status
// before and after a write. before is nil for creation.
func workloadDeltas(before, after *domain.Ticket) []repository.WorkloadDelta {
	var deltas []repository.WorkloadDelta
	if before != nil && before.OccupiesAssignee() {
		deltas = append(deltas, repository.WorkloadDelta{UserID: before.AssignedTo, Active: -1})
	}
	if after.OccupiesAssignee() {
		deltas = append(deltas, repository.WorkloadDelta{UserID: after.AssignedTo, Active: 1})
	}
	firstCompletion := (before == nil || !before.Completed()) && after.Completed()
	if firstCompletion && after.ResolvedBy != "" {
		deltas = append(deltas, repository.WorkloadDelta{UserID: after.ResolvedBy, Resolved: 1})
	}
	return deltas
}

func versionMismatch(current int) error {
	return apperrors.NewConflict("Version mismatch", map[string]any{"current_version": current})
}

func (s *TicketService) displayName(ctx context.Context, userID string) string {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return userID
	}
	return u.DisplayName()
}

func (s *TicketService) publishChanges(ctx context.Context, actor *domain.User, before, after *domain.Ticket, extra ...events.Event) {
	if before.Status != after.Status {
		s.events.publish(ctx, events.Event{
			Type:      events.EventTicketStatusChanged,
			TicketID:  after.ID,
			Actor:     actorOf(actor),
			Timestamp: after.UpdatedAt,
			Payload:   events.TicketStatusChangedPayload{OldStatus: before.Status, NewStatus: after.Status},
		})
	}
	if before.AssignedTo != after.AssignedTo && after.AssignedTo != "" {
		s.events.publish(ctx, events.Event{
			Type:      events.EventTicketAssigned,
			TicketID:  after.ID,
			Actor:     actorOf(actor),
			Timestamp: after.UpdatedAt,
			Payload:   events.TicketAssignedPayload{From: before.AssignedTo, To: after.AssignedTo},
		})
	}
	for _, e := range extra {
		e.Timestamp = after.UpdatedAt
		s.events.publish(ctx, e)
	}
}
