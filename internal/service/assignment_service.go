package service

import (
	"context"
	"sort"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

// AssignmentService picks owners for new and escalated tickets based on workload.
type AssignmentService struct {
	users repository.UserRepository
}

// NewAssignmentService creates the service.
func NewAssignmentService(users repository.UserRepository) *AssignmentService {
	return &AssignmentService{users: users}
}

// Assign returns the verified agent that should own a new ticket, or nil when
// no agent is available. Priority is accepted but does not change the choice.
func (s *AssignmentService) Assign(ctx context.Context, _ domain.TicketPriority) (*domain.User, error) {
	return s.LeastLoaded(ctx, domain.RoleAgent)
}

// LeastLoaded returns the verified, active user of role with the fewest
// active tickets. Ties go to the first candidate in store order.
func (s *AssignmentService) LeastLoaded(ctx context.Context, role domain.Role) (*domain.User, error) {
	verified := true
	candidates, err := s.users.List(ctx, repository.UserFilter{Role: &role, Verified: &verified})
	if err != nil {
		return nil, err
	}
	eligible := candidates[:0]
	for _, c := range candidates {
		if c.AccountStatus != domain.AccountStatusBlocked {
			eligible = append(eligible, c)
		}
	}
	switch len(eligible) {
	case 0:
		return nil, nil
	case 1:
		return &eligible[0], nil
	}
	sort.SliceStable(eligible, func(i, j int) bool {
		return eligible[i].ActiveTickets < eligible[j].ActiveTickets
	})
	return &eligible[0], nil
}
