package domain

import (
	"errors"
	"time"
)

// TimelineAction names the event recorded by a timeline entry.
type TimelineAction string

const (
	ActionCreated       TimelineAction = "created"
	ActionAutoAssigned  TimelineAction = "auto_assigned"
	ActionStatusChanged TimelineAction = "status_changed"
	ActionReassigned    TimelineAction = "reassigned"
	ActionCommented     TimelineAction = "commented"
	ActionReopened      TimelineAction = "reopened"
	ActionTransferred   TimelineAction = "transferred"
	ActionAdminTransfer TimelineAction = "admin_transfer"
)

var (
	// ErrTimelineIndex is returned for an index outside the timeline.
	ErrTimelineIndex = errors.New("timeline index out of range")
	// ErrTimelineNotDeletable is returned when deleting a system action.
	ErrTimelineNotDeletable = errors.New("system actions cannot be deleted")
	// ErrTimelineNotAuthor is returned when the caller may not delete the entry.
	ErrTimelineNotAuthor = errors.New("only the author, an agent or an admin can delete comments")
)

// TimelineEntry is one event in a ticket's log. Its position in the
// timeline is the index used by ReplyTo and deletion.
type TimelineEntry struct {
	Action    TimelineAction `json:"action"`
	Timestamp time.Time      `json:"timestamp"`
	User      string         `json:"user"`
	Username  string         `json:"username,omitempty"`
	Comment   string         `json:"comment,omitempty"`
	ReplyTo   *int           `json:"reply_to,omitempty"`
}

// Deletable reports whether the entry is a comment or a reply.
func (e TimelineEntry) Deletable() bool {
	return e.Action == ActionCommented || e.ReplyTo != nil
}

// Timeline is the ordered, index-addressed event log of a ticket.
type Timeline []TimelineEntry

// Append adds entry at the end and returns its index.
func (t *Timeline) Append(entry TimelineEntry) int {
	*t = append(*t, entry)
	return len(*t) - 1
}

// Has reports whether i addresses an existing entry.
func (t Timeline) Has(i int) bool {
	return i >= 0 && i < len(t)
}

// Delete removes the entry at i on behalf of actorID/actorRole. References
// to later entries are shifted down by one; replies that pointed at the
// removed entry lose their ReplyTo.
func (t *Timeline) Delete(i int, actorID string, actorRole Role) error {
	entries := *t
	if !entries.Has(i) {
		return ErrTimelineIndex
	}
	entry := entries[i]
	if entry.User != actorID && !actorRole.IsStaff() {
		return ErrTimelineNotAuthor
	}
	if !entry.Deletable() {
		return ErrTimelineNotDeletable
	}

	out := make(Timeline, 0, len(entries)-1)
	out = append(out, entries[:i]...)
	out = append(out, entries[i+1:]...)
	for k := range out {
		ref := out[k].ReplyTo
		if ref == nil {
			continue
		}
		switch {
		case *ref == i:
			out[k].ReplyTo = nil
		case *ref > i:
			shifted := *ref - 1
			out[k].ReplyTo = &shifted
		}
	}
	*t = out
	return nil
}

// Clone returns a deep copy of the timeline.
func (t Timeline) Clone() Timeline {
	if t == nil {
		return nil
	}
	out := make(Timeline, len(t))
	copy(out, t)
	for k := range out {
		if out[k].ReplyTo != nil {
			v := *out[k].ReplyTo
			out[k].ReplyTo = &v
		}
	}
	return out
}
