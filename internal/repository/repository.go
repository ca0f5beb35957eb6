package repository

import (
	"errors"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrVersionConflict is returned when a conditional ticket write observes
	// a version other than the expected one.
	ErrVersionConflict = errors.New("version conflict")
	// ErrDuplicate is returned when a unique key is already taken.
	ErrDuplicate = errors.New("duplicate record")
)

// WorkloadDelta adjusts a user's workload counters atomically.
type WorkloadDelta struct {
	UserID   string
	Active   int
	Resolved int
}

// MergeDeltas folds deltas per user and drops no-op entries, keeping first-seen order.
func MergeDeltas(deltas []WorkloadDelta) []WorkloadDelta {
	index := make(map[string]int, len(deltas))
	merged := make([]WorkloadDelta, 0, len(deltas))
	for _, d := range deltas {
		if d.UserID == "" {
			continue
		}
		if i, ok := index[d.UserID]; ok {
			merged[i].Active += d.Active
			merged[i].Resolved += d.Resolved
			continue
		}
		index[d.UserID] = len(merged)
		merged = append(merged, d)
	}
	out := merged[:0]
	for _, d := range merged {
		if d.Active != 0 || d.Resolved != 0 {
			out = append(out, d)
		}
	}
	return out
}

// UserFilter narrows user listings.
type UserFilter struct {
	Role     *domain.Role
	Verified *bool
}

// TicketFilter captures listing parameters.
type TicketFilter struct {
	CreatedBy  string
	AssignedTo string
	Statuses   []domain.TicketStatus
	SearchTerm string
	Limit      int
	Offset     int
}

// DefaultPageSize is the number of tickets returned per page.
const DefaultPageSize = 10
