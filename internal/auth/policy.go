package auth

import "github.com/spec-kit/helpdesk-service/internal/domain"

// Action is a capability checked against the policy table.
type Action string

const (
	ActionViewTicket    Action = "ticket.view"
	ActionUpdateTicket  Action = "ticket.update"
	ActionComment       Action = "ticket.comment"
	ActionDeleteEntry   Action = "ticket.timeline.delete"
	ActionFeedback      Action = "ticket.feedback"
	ActionEscalate      Action = "ticket.escalate"
	ActionReassign      Action = "ticket.reassign"
	ActionAdminTransfer Action = "ticket.admin_transfer"
	ActionCloseTicket   Action = "ticket.close"
	ActionSetWorkStatus Action = "ticket.status.work"
	ActionSetStatus     Action = "ticket.status.any"
	ActionReopenTicket  Action = "ticket.reopen"
	ActionSLAReport     Action = "report.sla"
	ActionListAgents    Action = "users.list_agents"
	ActionListUsers     Action = "users.list"
	ActionManageUsers   Action = "users.manage"
)

// Relation describes how the caller relates to the resource.
type Relation uint8

const (
	RelationCreator Relation = 1 << iota
	RelationAssignee
	// RelationAny needs no relation to the resource.
	RelationAny Relation = 0
)

// TicketRelation computes the caller's relation to a ticket.
func TicketRelation(userID string, ticket *domain.Ticket) Relation {
	var rel Relation
	if ticket == nil {
		return rel
	}
	if ticket.CreatedBy == userID {
		rel |= RelationCreator
	}
	if ticket.AssignedTo != "" && ticket.AssignedTo == userID {
		rel |= RelationAssignee
	}
	return rel
}

// StatusAction names the capability needed to move a ticket into status.
// Leaving Closed for Open without ActionSetWorkStatus falls back to
// ActionReopenTicket.
func StatusAction(status domain.TicketStatus) Action {
	switch status {
	case domain.TicketStatusClosed:
		return ActionCloseTicket
	case domain.TicketStatusOpen, domain.TicketStatusInProgress, domain.TicketStatusResolved:
		return ActionSetWorkStatus
	}
	return ActionSetStatus
}

type grant struct {
	role     domain.Role
	action   Action
	requires Relation
}

var policyTable = []grant{
	{domain.RoleUser, ActionViewTicket, RelationCreator},
	{domain.RoleUser, ActionUpdateTicket, RelationCreator},
	{domain.RoleUser, ActionComment, RelationCreator},
	{domain.RoleUser, ActionFeedback, RelationCreator},
	{domain.RoleUser, ActionDeleteEntry, RelationCreator},
	{domain.RoleUser, ActionReopenTicket, RelationCreator},

	{domain.RoleAgent, ActionViewTicket, RelationAssignee},
	{domain.RoleAgent, ActionUpdateTicket, RelationAssignee},
	{domain.RoleAgent, ActionSetWorkStatus, RelationAssignee},
	{domain.RoleAgent, ActionComment, RelationAssignee},
	{domain.RoleAgent, ActionEscalate, RelationAssignee},
	{domain.RoleAgent, ActionDeleteEntry, RelationAssignee},
	{domain.RoleAgent, ActionListAgents, RelationAny},
}

// Allowed reports whether role may perform action given rel. Admins hold
// every capability.
func Allowed(role domain.Role, action Action, rel Relation) bool {
	if role == domain.RoleAdmin {
		return true
	}
	for _, g := range policyTable {
		if g.role == role && g.action == action && rel&g.requires == g.requires {
			return true
		}
	}
	return false
}
