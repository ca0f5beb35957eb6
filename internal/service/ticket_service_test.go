package service

import (
	"context"
	"testing"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s, got nil error", code)
	}
	if got := apperrors.ToDomainError(err).Code; got != code {
		t.Fatalf("expected %s, got %s (%v)", code, got, err)
	}
}

func mustCreate(t *testing.T, f *fixture, creator string, priority domain.TicketPriority) *domain.Ticket {
	t.Helper()
	ticket, created, err := f.tickets.Create(context.Background(), f.user(creator), TicketCreateInput{
		Title:       "Printer on fire",
		Description: "Third floor printer is smoking",
		Priority:    priority,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !created {
		t.Fatalf("expected a new ticket")
	}
	return ticket
}

func mustUpdate(t *testing.T, f *fixture, actor, id string, patch TicketPatch) *domain.Ticket {
	t.Helper()
	ticket, err := f.tickets.Update(context.Background(), f.user(actor), id, patch)
	if err != nil {
		t.Fatalf("update by %s: %v", actor, err)
	}
	return ticket
}

func TestCreateAssignsLeastLoadedAgent(t *testing.T) {
	f := newFixture()
	f.seed("u1", domain.RoleUser, true, 0)
	f.seed("busy", domain.RoleAgent, true, 2)
	f.seed("idle", domain.RoleAgent, true, 0)

	ticket := mustCreate(t, f, "u1", domain.TicketPriorityCritical)

	if ticket.AssignedTo != "idle" {
		t.Fatalf("expected idle agent, got %q", ticket.AssignedTo)
	}
	if ticket.Status != domain.TicketStatusOpen || ticket.Version != 1 {
		t.Fatalf("unexpected status/version %s/%d", ticket.Status, ticket.Version)
	}
	if want := testNow.Add(4 * time.Hour); !ticket.SLADeadline.Equal(want) {
		t.Fatalf("expected deadline %v, got %v", want, ticket.SLADeadline)
	}
	if ticket.TicketID != "T000000001" {
		t.Fatalf("unexpected ticket id %s", ticket.TicketID)
	}
	if len(ticket.Timeline) != 2 ||
		ticket.Timeline[0].Action != domain.ActionCreated ||
		ticket.Timeline[1].Action != domain.ActionAutoAssigned {
		t.Fatalf("unexpected timeline %+v", ticket.Timeline)
	}
	if got := f.user("idle").ActiveTickets; got != 1 {
		t.Fatalf("expected idle agent to hold 1 ticket, got %d", got)
	}
	if got := f.user("busy").ActiveTickets; got != 2 {
		t.Fatalf("busy agent counter changed: %d", got)
	}
	types := f.eventTypes()
	if len(types) != 2 || types[0] != events.EventTicketCreated || types[1] != events.EventTicketAssigned {
		t.Fatalf("unexpected events %v", types)
	}
}

func TestCreateWithoutAgentsStaysUnassigned(t *testing.T) {
	f := newFixture()
	f.seed("u1", domain.RoleUser, true, 0)
	f.seed("pending", domain.RoleAgent, false, 0)

	ticket := mustCreate(t, f, "u1", "")

	if ticket.AssignedTo != "" {
		t.Fatalf("expected unassigned ticket, got %q", ticket.AssignedTo)
	}
	if ticket.Priority != domain.TicketPriorityMedium || ticket.Category != defaultCategory {
		t.Fatalf("defaults not applied: %s/%s", ticket.Priority, ticket.Category)
	}
	if len(ticket.Timeline) != 1 {
		t.Fatalf("expected only the created entry, got %d", len(ticket.Timeline))
	}
}

func TestCreateValidation(t *testing.T) {
	f := newFixture()
	f.seed("u1", domain.RoleUser, true, 0)
	f.seed("pending", domain.RoleAgent, false, 0)

	cases := []struct {
		name  string
		actor string
		input TicketCreateInput
		code  string
	}{
		{"missing title", "u1", TicketCreateInput{Description: "d"}, apperrors.CodeFieldRequired},
		{"blank description", "u1", TicketCreateInput{Title: "t", Description: "   "}, apperrors.CodeFieldRequired},
		{"bad priority", "u1", TicketCreateInput{Title: "t", Description: "d", Priority: "Urgent"}, apperrors.CodeValidationFailed},
		{"unverified agent", "pending", TicketCreateInput{Title: "t", Description: "d"}, apperrors.CodeVerificationRequired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := f.tickets.Create(context.Background(), f.user(tc.actor), tc.input)
			assertCode(t, err, tc.code)
		})
	}
}

func TestCreateIdempotencyKey(t *testing.T) {
	f := newFixture()
	f.seed("u1", domain.RoleUser, true, 0)
	f.seed("u2", domain.RoleUser, true, 0)
	f.seed("ag", domain.RoleAgent, true, 0)
	ctx := context.Background()
	input := TicketCreateInput{Title: "VPN", Description: "VPN drops", IdempotencyKey: "req-1"}

	first, created, err := f.tickets.Create(ctx, f.user("u1"), input)
	if err != nil || !created {
		t.Fatalf("first create: created=%v err=%v", created, err)
	}
	again, created, err := f.tickets.Create(ctx, f.user("u1"), input)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if created || again.ID != first.ID {
		t.Fatalf("expected replay of %s, got %s (created=%v)", first.ID, again.ID, created)
	}
	if got := f.user("ag").ActiveTickets; got != 1 {
		t.Fatalf("replay must not touch counters, got %d", got)
	}

	_, _, err = f.tickets.Create(ctx, f.user("u2"), input)
	assertCode(t, err, apperrors.CodeConflict)
}

func TestUpdateRejectsStaleVersion(t *testing.T) {
	f := newFixture()
	f.seed("u1", domain.RoleUser, true, 0)
	f.seed("ag", domain.RoleAgent, true, 0)
	ticket := mustCreate(t, f, "u1", domain.TicketPriorityLow)

	mustUpdate(t, f, "ag", ticket.ID, TicketPatch{Version: ptr(1), Status: ptr(domain.TicketStatusInProgress)})

	_, err := f.tickets.Update(context.Background(), f.user("ag"), ticket.ID, TicketPatch{
		Version: ptr(1),
		Comment: ptr("late"),
	})
	assertCode(t, err, apperrors.CodeConflict)
	if got := apperrors.ToDomainError(err).Details["current_version"]; got != 2 {
		t.Fatalf("expected current_version 2, got %v", got)
	}
}

func TestStatusTransitionsByRole(t *testing.T) {
	f := newFixture()
	f.seed("u1", domain.RoleUser, true, 0)
	f.seed("ag", domain.RoleAgent, true, 0)
	ticket := mustCreate(t, f, "u1", domain.TicketPriorityLow)

	cases := []struct {
		name   string
		actor  string
		status domain.TicketStatus
		code   string
	}{
		{"agent cannot close", "ag", domain.TicketStatusClosed, apperrors.CodeForbidden},
		{"agent cannot escalate by patch", "ag", domain.TicketStatusEscalated, apperrors.CodeForbidden},
		{"unknown status", "ag", "Pending", apperrors.CodeInvalidStatus},
		{"user cannot close", "u1", domain.TicketStatusClosed, apperrors.CodeForbidden},
		{"user cannot resolve", "u1", domain.TicketStatusResolved, apperrors.CodeForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.tickets.Update(context.Background(), f.user(tc.actor), ticket.ID, TicketPatch{Status: ptr(tc.status)})
			assertCode(t, err, tc.code)
		})
	}
}

func TestSameStatusIsNoop(t *testing.T) {
	f := newFixture()
	f.seed("u1", domain.RoleUser, true, 0)
	f.seed("ag", domain.RoleAgent, true, 0)
	ticket := mustCreate(t, f, "u1", domain.TicketPriorityLow)

	updated := mustUpdate(t, f, "ag", ticket.ID, TicketPatch{Status: ptr(domain.TicketStatusOpen)})
	if len(updated.Timeline) != len(ticket.Timeline) {
		t.Fatalf("same-status request must not log, got %d entries", len(updated.Timeline))
	}
}

func TestResolveThenCloseCreditsResolverOnce(t *testing.T) {
	f := newFixture()
	f.seed("u1", domain.RoleUser, true, 0)
	f.seed("ag", domain.RoleAgent, true, 0)
	f.seed("ad", domain.RoleAdmin, true, 0)
	ticket := mustCreate(t, f, "u1", domain.TicketPriorityLow)

	resolved := mustUpdate(t, f, "ag", ticket.ID, TicketPatch{Status: ptr(domain.TicketStatusResolved)})
	if resolved.ResolvedAt == nil || resolved.CompletedAt == nil || resolved.ResolvedBy != "ag" {
		t.Fatalf("resolution not stamped: %+v", resolved)
	}
	if last := resolved.Timeline[len(resolved.Timeline)-1]; last.Comment != "Status changed from Open to Resolved" {
		t.Fatalf("unexpected timeline comment %q", last.Comment)
	}
	agent := f.user("ag")
	if agent.ActiveTickets != 0 || agent.TotalResolved != 1 {
		t.Fatalf("agent counters %d/%d", agent.ActiveTickets, agent.TotalResolved)
	}

	f.now = f.now.Add(time.Hour)
	closed := mustUpdate(t, f, "ad", ticket.ID, TicketPatch{Status: ptr(domain.TicketStatusClosed)})
	if closed.ClosedAt == nil || !closed.CompletedAt.Equal(*resolved.CompletedAt) || closed.ResolvedBy != "ag" {
		t.Fatalf("close must keep the resolution: %+v", closed)
	}
	if got := f.user("ag").TotalResolved; got != 1 {
		t.Fatalf("resolver credited twice: %d", got)
	}
	if got := f.user("ad").TotalResolved; got != 0 {
		t.Fatalf("admin credited for closing a resolved ticket: %d", got)
	}
}

func TestAdminCloseOfUnresolvedTicket(t *testing.T) {
	f := newFixture()
	f.seed("u1", domain.RoleUser, true, 0)
	f.seed("ag", domain.RoleAgent, true, 0)
	f.seed("ad", domain.RoleAdmin, true, 0)
	ticket := mustCreate(t, f, "u1", domain.TicketPriorityLow)

	closed := mustUpdate(t, f, "ad", ticket.ID, TicketPatch{Status: ptr(domain.TicketStatusClosed)})
	if closed.ResolvedAt != nil {
		t.Fatalf("closing must not stamp resolvedAt")
	}
	if closed.CompletedAt == nil || closed.ResolvedBy != "ad" {
		t.Fatalf("expected completion by admin, got %+v", closed)
	}
	if got := f.user("ag").ActiveTickets; got != 0 {
		t.Fatalf("assignee should be released, got %d", got)
	}
	if got := f.user("ad").TotalResolved; got != 1 {
		t.Fatalf("expected admin credit, got %d", got)
	}
}

func TestUserReopensOnlyOnce(t *testing.T) {
	f := newFixture()
	f.seed("u1", domain.RoleUser, true, 0)
	f.seed("ag", domain.RoleAgent, true, 0)
	f.seed("ad", domain.RoleAdmin, true, 0)
	ticket := mustCreate(t, f, "u1", domain.TicketPriorityLow)

	mustUpdate(t, f, "ad", ticket.ID, TicketPatch{Status: ptr(domain.TicketStatusClosed)})
	reopened := mustUpdate(t, f, "u1", ticket.ID, TicketPatch{Status: ptr(domain.TicketStatusOpen)})
	if reopened.Status != domain.TicketStatusOpen || reopened.ReopenCount != 1 {
		t.Fatalf("unexpected reopen result %s/%d", reopened.Status, reopened.ReopenCount)
	}
	if last := reopened.Timeline[len(reopened.Timeline)-1]; last.Action != domain.ActionReopened {
		t.Fatalf("expected reopened entry, got %s", last.Action)
	}
	if got := f.user("ag").ActiveTickets; got != 1 {
		t.Fatalf("reopen should re-occupy the assignee, got %d", got)
	}

	mustUpdate(t, f, "ad", ticket.ID, TicketPatch{Status: ptr(domain.TicketStatusClosed)})
	_, err := f.tickets.Update(context.Background(), f.user("u1"), ticket.ID, TicketPatch{Status: ptr(domain.TicketStatusOpen)})
	assertCode(t, err, apperrors.CodeForbidden)
}

func TestCommitMarksBreach(t *testing.T) {
	f := newFixture()
	f.seed("u1", domain.RoleUser, true, 0)
	f.seed("ag", domain.RoleAgent, true, 0)
	ticket := mustCreate(t, f, "u1", domain.TicketPriorityCritical)

	f.now = testNow.Add(5 * time.Hour)
	updated := mustUpdate(t, f, "ag", ticket.ID, TicketPatch{Comment: ptr("looking into it")})
	if updated.Status != domain.TicketStatusBreached {
		t.Fatalf("expected Breached, got %s", updated.Status)
	}
	if got := f.user("ag").ActiveTickets; got != 1 {
		t.Fatalf("breached tickets still count, got %d", got)
	}
}

func TestLateResolutionReleasesAssignee(t *testing.T) {
	f := newFixture()
	f.seed("u1", domain.RoleUser, true, 0)
	f.seed("ag", domain.RoleAgent, true, 0)
	f.seed("ad", domain.RoleAdmin, true, 0)
	ticket := mustCreate(t, f, "u1", domain.TicketPriorityCritical)
	if got := f.user("ag").ActiveTickets; got != 1 {
		t.Fatalf("expected assignment to occupy agent, got %d", got)
	}

	f.now = testNow.Add(5 * time.Hour)
	resolved := mustUpdate(t, f, "ag", ticket.ID, TicketPatch{Status: ptr(domain.TicketStatusResolved)})
	if resolved.Status != domain.TicketStatusBreached || !resolved.Completed() {
		t.Fatalf("expected completed Breached ticket, got %s completed=%v", resolved.Status, resolved.Completed())
	}
	agent := f.user("ag")
	if agent.ActiveTickets != 0 || agent.TotalResolved != 1 {
		t.Fatalf("late resolve counters %d/%d, want 0/1", agent.ActiveTickets, agent.TotalResolved)
	}

	closed := mustUpdate(t, f, "ad", ticket.ID, TicketPatch{Status: ptr(domain.TicketStatusClosed)})
	if closed.ClosedAt == nil || closed.ResolvedBy != "ag" {
		t.Fatalf("late close must keep the resolution: %+v", closed)
	}
	agent = f.user("ag")
	if agent.ActiveTickets != 0 || agent.TotalResolved != 1 {
		t.Fatalf("late close counters %d/%d, want 0/1", agent.ActiveTickets, agent.TotalResolved)
	}
	if got := f.user("ad").TotalResolved; got != 0 {
		t.Fatalf("admin credited for closing a resolved ticket: %d", got)
	}

	rated, err := f.tickets.SubmitFeedback(context.Background(), f.user("u1"), ticket.ID, FeedbackInput{Rating: ptr(4)})
	if err != nil || rated.Rating == nil || *rated.Rating != 4 {
		t.Fatalf("feedback on late-resolved ticket: %v", err)
	}
}

func TestLateAdminCloseReleasesAssignee(t *testing.T) {
	f := newFixture()
	f.seed("u1", domain.RoleUser, true, 0)
	f.seed("ag", domain.RoleAgent, true, 0)
	f.seed("ad", domain.RoleAdmin, true, 0)
	ticket := mustCreate(t, f, "u1", domain.TicketPriorityCritical)

	f.now = testNow.Add(5 * time.Hour)
	closed := mustUpdate(t, f, "ad", ticket.ID, TicketPatch{Status: ptr(domain.TicketStatusClosed)})
	if closed.Status != domain.TicketStatusBreached || closed.ResolvedBy != "ad" {
		t.Fatalf("unexpected late close %s by %q", closed.Status, closed.ResolvedBy)
	}
	if got := f.user("ag").ActiveTickets; got != 0 {
		t.Fatalf("closed ticket still occupies agent: %d", got)
	}
}

func TestAdminReactivationReoccupiesAssignee(t *testing.T) {
	f := newFixture()
	f.seed("u1", domain.RoleUser, true, 0)
	f.seed("ag", domain.RoleAgent, true, 0)
	f.seed("ad", domain.RoleAdmin, true, 0)
	ticket := mustCreate(t, f, "u1", domain.TicketPriorityLow)

	mustUpdate(t, f, "ag", ticket.ID, TicketPatch{Status: ptr(domain.TicketStatusResolved)})
	reopened := mustUpdate(t, f, "ad", ticket.ID, TicketPatch{Status: ptr(domain.TicketStatusInProgress)})
	if reopened.Completed() {
		t.Fatalf("moving back to In Progress must clear completion")
	}
	if got := f.user("ag").ActiveTickets; got != 1 {
		t.Fatalf("expected agent to be occupied again, got %d", got)
	}

	mustUpdate(t, f, "ag", ticket.ID, TicketPatch{Status: ptr(domain.TicketStatusResolved)})
	agent := f.user("ag")
	if agent.ActiveTickets != 0 || agent.TotalResolved != 2 {
		t.Fatalf("second cycle counters %d/%d, want 0/2", agent.ActiveTickets, agent.TotalResolved)
	}
}

func TestStatusDenialMessages(t *testing.T) {
	f := newFixture()
	f.seed("u1", domain.RoleUser, true, 0)
	f.seed("ag", domain.RoleAgent, true, 0)
	ticket := mustCreate(t, f, "u1", domain.TicketPriorityLow)

	cases := []struct {
		actor  string
		status domain.TicketStatus
		want   string
	}{
		{"ag", domain.TicketStatusClosed, "Only admin can close tickets"},
		{"ag", domain.TicketStatusEscalated, "Agents can only set Open, In Progress or Resolved"},
		{"u1", domain.TicketStatusClosed, "Only admin can close tickets"},
		{"u1", domain.TicketStatusInProgress, "Users can only reopen closed tickets"},
	}
	for _, tc := range cases {
		t.Run(tc.actor+" "+string(tc.status), func(t *testing.T) {
			_, err := f.tickets.Update(context.Background(), f.user(tc.actor), ticket.ID, TicketPatch{Status: ptr(tc.status)})
			assertCode(t, err, apperrors.CodeForbidden)
			if got := apperrors.ToDomainError(err).Message; got != tc.want {
				t.Fatalf("message = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestVisibility(t *testing.T) {
	f := newFixture()
	f.seed("u1", domain.RoleUser, true, 0)
	f.seed("u2", domain.RoleUser, true, 0)
	f.seed("ag", domain.RoleAgent, true, 0)
	ticket := mustCreate(t, f, "u1", domain.TicketPriorityLow)
	f.seed("other", domain.RoleAgent, true, 0)

	ctx := context.Background()
	if _, err := f.tickets.Get(ctx, f.user("u2"), ticket.ID); err == nil {
		t.Fatalf("stranger must not see the ticket")
	}
	_, err := f.tickets.Get(ctx, f.user("other"), ticket.ID)
	assertCode(t, err, apperrors.CodeForbidden)
	_, err = f.tickets.Get(ctx, f.user("u1"), "missing")
	assertCode(t, err, apperrors.CodeNotFound)
}

func TestReassign(t *testing.T) {
	f := newFixture()
	f.seed("u1", domain.RoleUser, true, 0)
	f.seed("ag", domain.RoleAgent, true, 0)
	f.seed("ad", domain.RoleAdmin, true, 0)
	ticket := mustCreate(t, f, "u1", domain.TicketPriorityLow)
	f.seed("ag2", domain.RoleAgent, true, 0)
	ctx := context.Background()

	_, err := f.tickets.Update(ctx, f.user("ag"), ticket.ID, TicketPatch{AssignedTo: ptr("ag2")})
	assertCode(t, err, apperrors.CodeForbidden)
	_, err = f.tickets.Update(ctx, f.user("ad"), ticket.ID, TicketPatch{AssignedTo: ptr("ghost")})
	assertCode(t, err, apperrors.CodeTargetNotFound)

	updated := mustUpdate(t, f, "ad", ticket.ID, TicketPatch{AssignedTo: ptr("ag2")})
	if updated.AssignedTo != "ag2" {
		t.Fatalf("reassignment not applied")
	}
	if last := updated.Timeline[len(updated.Timeline)-1]; last.Comment != "Ticket reassigned from ag to ag2" {
		t.Fatalf("unexpected comment %q", last.Comment)
	}
	if f.user("ag").ActiveTickets != 0 || f.user("ag2").ActiveTickets != 1 {
		t.Fatalf("workload not moved: %d/%d", f.user("ag").ActiveTickets, f.user("ag2").ActiveTickets)
	}
}

func TestCommentValidation(t *testing.T) {
	f := newFixture()
	f.seed("u1", domain.RoleUser, true, 0)
	ticket := mustCreate(t, f, "u1", domain.TicketPriorityLow)

	cases := []struct {
		name  string
		patch TicketPatch
		code  string
	}{
		{"empty comment", TicketPatch{Comment: ptr("  ")}, apperrors.CodeFieldRequired},
		{"reply to missing entry", TicketPatch{Comment: ptr("hi"), ReplyTo: ptr(7)}, apperrors.CodeInvalidIndex},
		{"reply without comment", TicketPatch{ReplyTo: ptr(0)}, apperrors.CodeFieldRequired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.tickets.Update(context.Background(), f.user("u1"), ticket.ID, tc.patch)
			assertCode(t, err, tc.code)
		})
	}
}

func TestDeleteTimelineEntryRenumbersReplies(t *testing.T) {
	f := newFixture()
	f.seed("u1", domain.RoleUser, true, 0)
	f.seed("ag", domain.RoleAgent, true, 0)
	ticket := mustCreate(t, f, "u1", domain.TicketPriorityLow)
	ctx := context.Background()

	mustUpdate(t, f, "u1", ticket.ID, TicketPatch{Comment: ptr("first")})              // 2
	mustUpdate(t, f, "ag", ticket.ID, TicketPatch{Comment: ptr("re"), ReplyTo: ptr(2)}) // 3
	mustUpdate(t, f, "u1", ticket.ID, TicketPatch{Comment: ptr("re re"), ReplyTo: ptr(3)})

	_, err := f.tickets.DeleteTimelineEntry(ctx, f.user("u1"), ticket.ID, nil)
	assertCode(t, err, apperrors.CodeMissingIndex)
	_, err = f.tickets.DeleteTimelineEntry(ctx, f.user("u1"), ticket.ID, ptr(9))
	assertCode(t, err, apperrors.CodeInvalidIndex)
	_, err = f.tickets.DeleteTimelineEntry(ctx, f.user("ag"), ticket.ID, ptr(0))
	assertCode(t, err, apperrors.CodeForbidden)
	_, err = f.tickets.DeleteTimelineEntry(ctx, f.user("u1"), ticket.ID, ptr(3))
	assertCode(t, err, apperrors.CodeForbidden)

	updated, err := f.tickets.DeleteTimelineEntry(ctx, f.user("u1"), ticket.ID, ptr(2))
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(updated.Timeline) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(updated.Timeline))
	}
	if updated.Timeline[2].Comment != "re" || updated.Timeline[2].ReplyTo != nil {
		t.Fatalf("orphaned reply should lose its target: %+v", updated.Timeline[2])
	}
	if ref := updated.Timeline[3].ReplyTo; ref == nil || *ref != 2 {
		t.Fatalf("expected reply_to shifted to 2, got %v", ref)
	}
}

func TestSubmitFeedback(t *testing.T) {
	f := newFixture()
	f.seed("u1", domain.RoleUser, true, 0)
	f.seed("ag", domain.RoleAgent, true, 0)
	f.seed("ad", domain.RoleAdmin, true, 0)
	ticket := mustCreate(t, f, "u1", domain.TicketPriorityLow)
	ctx := context.Background()

	_, err := f.tickets.SubmitFeedback(ctx, f.user("u1"), ticket.ID, FeedbackInput{Rating: ptr(6)})
	assertCode(t, err, apperrors.CodeInvalidRating)
	_, err = f.tickets.SubmitFeedback(ctx, f.user("u1"), ticket.ID, FeedbackInput{Rating: ptr(5)})
	assertCode(t, err, apperrors.CodeInvalidStatus)

	mustUpdate(t, f, "ag", ticket.ID, TicketPatch{Status: ptr(domain.TicketStatusResolved)})

	_, err = f.tickets.SubmitFeedback(ctx, f.user("ad"), ticket.ID, FeedbackInput{Rating: ptr(5)})
	assertCode(t, err, apperrors.CodeForbidden)

	rated, err := f.tickets.SubmitFeedback(ctx, f.user("u1"), ticket.ID, FeedbackInput{Rating: ptr(4), Feedback: " quick fix "})
	if err != nil {
		t.Fatalf("feedback: %v", err)
	}
	if *rated.Rating != 4 || *rated.Feedback != "quick fix" || rated.FeedbackSubmittedAt == nil {
		t.Fatalf("feedback not recorded: %+v", rated)
	}
	_, err = f.tickets.SubmitFeedback(ctx, f.user("u1"), ticket.ID, FeedbackInput{Rating: ptr(1)})
	assertCode(t, err, apperrors.CodeForbidden)
}

func TestListScopesByRole(t *testing.T) {
	f := newFixture()
	f.seed("u1", domain.RoleUser, true, 0)
	f.seed("u2", domain.RoleUser, true, 0)
	f.seed("ag", domain.RoleAgent, true, 0)
	f.seed("ad", domain.RoleAdmin, true, 0)
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		mustCreate(t, f, "u1", domain.TicketPriorityLow)
	}
	f.seed("ag2", domain.RoleAgent, true, 0)
	_, _, err := f.tickets.Create(ctx, f.user("u2"), TicketCreateInput{Title: "Mailbox", Description: "quota"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	cases := []struct {
		actor string
		page  int
		total int
		size  int
		next  bool
	}{
		{"u1", 1, 12, 10, true},
		{"u1", 2, 12, 2, false},
		{"u2", 1, 1, 1, false},
		{"ag", 1, 12, 10, true},
		{"ag2", 1, 1, 1, false},
		{"ad", 1, 13, 10, true},
	}
	for _, tc := range cases {
		page, err := f.tickets.List(ctx, f.user(tc.actor), TicketListInput{Page: tc.page})
		if err != nil {
			t.Fatalf("%s: list: %v", tc.actor, err)
		}
		if page.Total != tc.total || len(page.Tickets) != tc.size || page.HasNext() != tc.next {
			t.Fatalf("%s page %d: total=%d size=%d next=%v", tc.actor, tc.page, page.Total, len(page.Tickets), page.HasNext())
		}
	}

	found, err := f.tickets.List(ctx, f.user("ad"), TicketListInput{Search: "MAILBOX"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if found.Total != 1 {
		t.Fatalf("expected one search hit, got %d", found.Total)
	}
}
