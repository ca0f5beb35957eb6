package auth

import (
	"testing"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

func TestAllowed(t *testing.T) {
	tests := []struct {
		name   string
		role   domain.Role
		action Action
		rel    Relation
		want   bool
	}{
		{"user views own ticket", domain.RoleUser, ActionViewTicket, RelationCreator, true},
		{"user views foreign ticket", domain.RoleUser, ActionViewTicket, 0, false},
		{"user cannot escalate", domain.RoleUser, ActionEscalate, RelationCreator, false},
		{"agent views assigned ticket", domain.RoleAgent, ActionViewTicket, RelationAssignee, true},
		{"agent views created but unassigned ticket", domain.RoleAgent, ActionViewTicket, RelationCreator, false},
		{"agent escalates assigned ticket", domain.RoleAgent, ActionEscalate, RelationAssignee, true},
		{"agent cannot leave feedback", domain.RoleAgent, ActionFeedback, RelationAssignee, false},
		{"agent cannot close", domain.RoleAgent, ActionCloseTicket, RelationAssignee, false},
		{"agent sets work status on assigned ticket", domain.RoleAgent, ActionSetWorkStatus, RelationAssignee, true},
		{"agent cannot set arbitrary status", domain.RoleAgent, ActionSetStatus, RelationAssignee, false},
		{"user reopens own ticket", domain.RoleUser, ActionReopenTicket, RelationCreator, true},
		{"user cannot reopen foreign ticket", domain.RoleUser, ActionReopenTicket, 0, false},
		{"user cannot set work status", domain.RoleUser, ActionSetWorkStatus, RelationCreator, false},
		{"admin closes", domain.RoleAdmin, ActionCloseTicket, 0, true},
		{"agent lists agents", domain.RoleAgent, ActionListAgents, 0, true},
		{"agent cannot manage users", domain.RoleAgent, ActionManageUsers, 0, false},
		{"admin does anything", domain.RoleAdmin, ActionAdminTransfer, 0, true},
		{"unknown role", domain.Role("guest"), ActionViewTicket, RelationCreator, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Allowed(tt.role, tt.action, tt.rel); got != tt.want {
				t.Fatalf("Allowed(%s, %s, %b) = %v, want %v", tt.role, tt.action, tt.rel, got, tt.want)
			}
		})
	}
}

func TestStatusAction(t *testing.T) {
	tests := []struct {
		status domain.TicketStatus
		want   Action
	}{
		{domain.TicketStatusClosed, ActionCloseTicket},
		{domain.TicketStatusOpen, ActionSetWorkStatus},
		{domain.TicketStatusInProgress, ActionSetWorkStatus},
		{domain.TicketStatusResolved, ActionSetWorkStatus},
		{domain.TicketStatusEscalated, ActionSetStatus},
		{domain.TicketStatusBreached, ActionSetStatus},
	}
	for _, tt := range tests {
		if got := StatusAction(tt.status); got != tt.want {
			t.Fatalf("StatusAction(%s) = %s, want %s", tt.status, got, tt.want)
		}
	}
}

func TestTicketRelation(t *testing.T) {
	ticket := &domain.Ticket{CreatedBy: "u1", AssignedTo: "a1"}
	if TicketRelation("u1", ticket) != RelationCreator {
		t.Fatalf("expected creator relation")
	}
	if TicketRelation("a1", ticket) != RelationAssignee {
		t.Fatalf("expected assignee relation")
	}
	if TicketRelation("x", ticket) != 0 {
		t.Fatalf("expected no relation")
	}
	if TicketRelation("", &domain.Ticket{CreatedBy: "u1"}) != 0 {
		t.Fatalf("empty assignee must not match empty caller")
	}
}
