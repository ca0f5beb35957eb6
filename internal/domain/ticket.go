package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "Open"
	TicketStatusInProgress TicketStatus = "In Progress"
	TicketStatusResolved   TicketStatus = "Resolved"
	TicketStatusClosed     TicketStatus = "Closed"
	TicketStatusEscalated  TicketStatus = "Escalated"
	TicketStatusBreached   TicketStatus = "Breached"
)

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusOpen, TicketStatusInProgress, TicketStatusResolved,
		TicketStatusClosed, TicketStatusEscalated, TicketStatusBreached:
		return true
	}
	return false
}

// CountsTowardWorkload reports whether this is a working status. Only
// uncompleted tickets in a working status occupy their assignee.
func (s TicketStatus) CountsTowardWorkload() bool {
	return s != TicketStatusResolved && s != TicketStatusClosed
}

// Completed reports whether the ticket was resolved or closed and has not
// been moved back to a working status since.
func (t *Ticket) Completed() bool {
	return t.CompletedAt != nil
}

// OccupiesAssignee reports whether the ticket holds a slot in its assignee's
// activeTickets counter. A completed ticket that the breach check later
// marks Breached stays released.
func (t *Ticket) OccupiesAssignee() bool {
	return t.AssignedTo != "" && t.Status.CountsTowardWorkload() && !t.Completed()
}

// MoveTo sets status. Entering a working status starts a new cycle, so
// completedAt is cleared and the next resolution is stamped again.
func (t *Ticket) MoveTo(status TicketStatus) {
	t.Status = status
	if status.CountsTowardWorkload() {
		t.CompletedAt = nil
	}
}

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow      TicketPriority = "Low"
	TicketPriorityMedium   TicketPriority = "Medium"
	TicketPriorityHigh     TicketPriority = "High"
	TicketPriorityCritical TicketPriority = "Critical"
)

var slaWindows = map[TicketPriority]time.Duration{
	TicketPriorityLow:      48 * time.Hour,
	TicketPriorityMedium:   24 * time.Hour,
	TicketPriorityHigh:     12 * time.Hour,
	TicketPriorityCritical: 4 * time.Hour,
}

// Valid reports whether p is a known priority.
func (p TicketPriority) Valid() bool {
	_, ok := slaWindows[p]
	return ok
}

// SLAWindow returns the resolution window granted to the priority.
func (p TicketPriority) SLAWindow() time.Duration {
	return slaWindows[p]
}

// SLADeadline computes the deadline for a ticket created at createdAt.
func SLADeadline(priority TicketPriority, createdAt time.Time) time.Time {
	return createdAt.Add(priority.SLAWindow())
}

// IsBreached reports whether now lies strictly after the ticket's SLA deadline.
func IsBreached(ticket *Ticket, now time.Time) bool {
	return now.After(ticket.SLADeadline)
}

// Ticket is the aggregate for support requests. Timeline and TransferHistory
// are embedded in the ticket document.
type Ticket struct {
	ID                  string
	TicketID            string
	Title               string
	Description         string
	Category            string
	Priority            TicketPriority
	Status              TicketStatus
	CreatedBy           string
	AssignedTo          string
	CreatedAt           time.Time
	UpdatedAt           time.Time
	ResolvedAt          *time.Time
	ClosedAt            *time.Time
	CompletedAt         *time.Time
	ResolvedBy          string
	SLADeadline         time.Time
	Version             int
	Timeline            Timeline
	TransferHistory     []TransferRecord
	ReopenCount         int
	IdempotencyKey      string
	Contact             *string
	Github              *string
	Feedback            *string
	Rating              *int
	FeedbackSubmittedAt *time.Time
}

// Clone returns a deep copy so callers can mutate without aliasing stored state.
func (t *Ticket) Clone() *Ticket {
	if t == nil {
		return nil
	}
	c := *t
	c.Timeline = t.Timeline.Clone()
	c.TransferHistory = append([]TransferRecord(nil), t.TransferHistory...)
	c.ResolvedAt = cloneTime(t.ResolvedAt)
	c.ClosedAt = cloneTime(t.ClosedAt)
	c.CompletedAt = cloneTime(t.CompletedAt)
	c.FeedbackSubmittedAt = cloneTime(t.FeedbackSubmittedAt)
	c.Contact = cloneString(t.Contact)
	c.Github = cloneString(t.Github)
	c.Feedback = cloneString(t.Feedback)
	if t.Rating != nil {
		r := *t.Rating
		c.Rating = &r
	}
	return &c
}

// TransferRecord is one ownership move. The transfer history is append-only.
type TransferRecord struct {
	From      string    `json:"from"`
	To        string    `json:"to"`
	FromRole  Role      `json:"from_role"`
	ToRole    Role      `json:"to_role"`
	By        string    `json:"by"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
