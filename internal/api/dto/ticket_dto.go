package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Category    string                `json:"category"`
	Priority    domain.TicketPriority `json:"priority"`
}

// UpdateTicketRequest is a partial update; omitted fields are left alone.
type UpdateTicketRequest struct {
	Version    *int                 `json:"version"`
	Status     *domain.TicketStatus `json:"status"`
	AssignedTo *string              `json:"assigned_to"`
	Comment    *string              `json:"comment"`
	ReplyTo    *int                 `json:"reply_to"`
	Contact    *string              `json:"contact"`
	Github     *string              `json:"github"`
}

// DeleteTimelineEntryRequest payload.
type DeleteTimelineEntryRequest struct {
	CommentIndex *int `json:"comment_index"`
}

// EscalateRequest payload for agent to admin transfers.
type EscalateRequest struct {
	Reason string `json:"reason"`
}

// AdminTransferRequest payload.
type AdminTransferRequest struct {
	TargetUID string `json:"target_uid"`
	Reason    string `json:"reason"`
}

// FeedbackRequest payload.
type FeedbackRequest struct {
	Rating   *int   `json:"rating"`
	Feedback string `json:"feedback"`
}

// TimelineEntryResponse is one timeline row; Index addresses it for replies and deletion.
type TimelineEntryResponse struct {
	Index     int                   `json:"index"`
	Action    domain.TimelineAction `json:"action"`
	Timestamp time.Time             `json:"timestamp"`
	User      string                `json:"user"`
	Username  string                `json:"username,omitempty"`
	Comment   string                `json:"comment,omitempty"`
	ReplyTo   *int                  `json:"reply_to,omitempty"`
}

// TransferResponse is one ownership move.
type TransferResponse struct {
	From      string      `json:"from"`
	To        string      `json:"to"`
	FromRole  domain.Role `json:"from_role"`
	ToRole    domain.Role `json:"to_role"`
	By        string      `json:"by"`
	Reason    string      `json:"reason"`
	Timestamp time.Time   `json:"timestamp"`
}

// TicketResponse provides full ticket info.
type TicketResponse struct {
	ID                  string                  `json:"id"`
	TicketID            string                  `json:"ticket_id"`
	Title               string                  `json:"title"`
	Description         string                  `json:"description"`
	Category            string                  `json:"category"`
	Priority            domain.TicketPriority   `json:"priority"`
	Status              domain.TicketStatus     `json:"status"`
	CreatedBy           string                  `json:"created_by"`
	AssignedTo          *string                 `json:"assigned_to"`
	CreatedAt           time.Time               `json:"created_at"`
	UpdatedAt           time.Time               `json:"updated_at"`
	ResolvedAt          *time.Time              `json:"resolved_at"`
	ClosedAt            *time.Time              `json:"closed_at"`
	CompletedAt         *time.Time              `json:"completed_at"`
	ResolvedBy          *string                 `json:"resolved_by"`
	SLADeadline         time.Time               `json:"sla_deadline"`
	SLABreached         bool                    `json:"sla_breached"`
	Version             int                     `json:"version"`
	ReopenCount         int                     `json:"reopen_count"`
	Timeline            []TimelineEntryResponse `json:"timeline"`
	TransferHistory     []TransferResponse      `json:"transfer_history"`
	Contact             *string                 `json:"contact,omitempty"`
	Github              *string                 `json:"github,omitempty"`
	Feedback            *string                 `json:"feedback,omitempty"`
	Rating              *int                    `json:"rating,omitempty"`
	FeedbackSubmittedAt *time.Time              `json:"feedback_submitted_at,omitempty"`
}

// TicketListResponse is one page of tickets. Next and Previous are page numbers.
type TicketListResponse struct {
	Results  []TicketResponse `json:"results"`
	Count    int              `json:"count"`
	Next     *int             `json:"next"`
	Previous *int             `json:"previous"`
}

// SLAReportResponse lists breached tickets.
type SLAReportResponse struct {
	BreachedTickets []TicketResponse `json:"breached_tickets"`
	Count           int              `json:"count"`
	GeneratedAt     time.Time        `json:"generated_at"`
}
