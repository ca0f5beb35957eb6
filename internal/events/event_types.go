package events

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketAssigned      EventType = "ticket_assigned"
	EventTicketCommented     EventType = "ticket_commented"
	EventTicketTransferred   EventType = "ticket_transferred"
)

// AllEventTypes lists every event the services emit.
var AllEventTypes = []EventType{
	EventTicketCreated,
	EventTicketStatusChanged,
	EventTicketAssigned,
	EventTicketCommented,
	EventTicketTransferred,
}

// Actor encapsulates actor metadata for an event.
type Actor struct {
	UserID string      `json:"user_id"`
	Role   domain.Role `json:"role"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	TicketNumber string                `json:"ticket_number"`
	Priority     domain.TicketPriority `json:"priority"`
	Category     string                `json:"category"`
	Title        string                `json:"title"`
	AssignedTo   string                `json:"assigned_to,omitempty"`
	SLADeadline  time.Time             `json:"sla_deadline"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	From string `json:"from,omitempty"`
	To   string `json:"to"`
	Auto bool   `json:"auto"`
}

// TicketCommentedPayload payload.
type TicketCommentedPayload struct {
	EntryIndex  int    `json:"entry_index"`
	ReplyTo     *int   `json:"reply_to,omitempty"`
	BodyPreview string `json:"body_preview"`
}

// TicketTransferredPayload payload.
type TicketTransferredPayload struct {
	Transfer domain.TransferRecord `json:"transfer"`
	Status   domain.TicketStatus   `json:"status"`
}
