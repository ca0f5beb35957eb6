// Package memory provides in-process repository implementations sharing one
// lock, so ticket commits and workload counters stay atomic together. It backs
// tests and the DSN-less development mode.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

// Store holds every collection.
type Store struct {
	mu       sync.RWMutex
	now      func() time.Time
	accounts map[string]domain.Account
	users    map[string]domain.User
	userSeq  []string
	tickets  map[string]*domain.Ticket
	counters map[string]int64
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		now:      time.Now,
		accounts: make(map[string]domain.Account),
		users:    make(map[string]domain.User),
		tickets:  make(map[string]*domain.Ticket),
		counters: make(map[string]int64),
	}
}

// Users returns the user repository view of the store.
func (s *Store) Users() repository.UserRepository { return (*userRepo)(s) }

// Tickets returns the ticket repository view of the store.
func (s *Store) Tickets() repository.TicketRepository { return (*ticketRepo)(s) }

// Accounts returns the account repository view of the store.
func (s *Store) Accounts() repository.AccountRepository { return (*accountRepo)(s) }

// Counters returns the counter repository view of the store.
func (s *Store) Counters() repository.CounterRepository { return (*counterRepo)(s) }

// SeedUser stores u as-is, counters included.
func (s *Store) SeedUser(u domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; !ok {
		s.userSeq = append(s.userSeq, u.ID)
	}
	s.users[u.ID] = u
}

type userRepo Store

func (r *userRepo) Create(_ context.Context, user *domain.User) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; ok {
		return repository.ErrDuplicate
	}
	for _, u := range s.users {
		if u.Username == user.Username {
			return repository.ErrDuplicate
		}
	}
	now := s.now()
	user.CreatedAt, user.UpdatedAt = now, now
	user.ActiveTickets, user.TotalResolved = 0, 0
	s.users[user.ID] = *user
	s.userSeq = append(s.userSeq, user.ID)
	return nil
}

func (r *userRepo) Update(_ context.Context, user *domain.User) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.users[user.ID]
	if !ok {
		return repository.ErrNotFound
	}
	stored.Name = user.Name
	stored.Role = user.Role
	stored.CustomID = user.CustomID
	stored.Username = user.Username
	stored.Verified = user.Verified
	stored.VerifiedAt = user.VerifiedAt
	stored.AccountStatus = user.AccountStatus
	stored.UpdatedAt = s.now()
	s.users[user.ID] = stored
	user.UpdatedAt = stored.UpdatedAt
	return nil
}

func (r *userRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r *userRepo) List(_ context.Context, filter repository.UserFilter) ([]domain.User, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.User
	for _, id := range s.userSeq {
		u, ok := s.users[id]
		if !ok {
			continue
		}
		if filter.Role != nil && u.Role != *filter.Role {
			continue
		}
		if filter.Verified != nil && u.Verified != *filter.Verified {
			continue
		}
		out = append(out, u)
	}
	return out, nil
}

func (r *userRepo) UsernameExists(_ context.Context, username string) (bool, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

type ticketRepo Store

func (r *ticketRepo) Create(_ context.Context, ticket *domain.Ticket, deltas []repository.WorkloadDelta) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if ticket.ID == "" {
		ticket.ID = uuid.NewString()
	}
	if _, ok := s.tickets[ticket.ID]; ok {
		return repository.ErrDuplicate
	}
	for _, t := range s.tickets {
		if t.TicketID == ticket.TicketID {
			return repository.ErrDuplicate
		}
		if ticket.IdempotencyKey != "" && t.IdempotencyKey == ticket.IdempotencyKey {
			return repository.ErrDuplicate
		}
	}
	s.tickets[ticket.ID] = ticket.Clone()
	s.applyWorkload(deltas)
	return nil
}

func (r *ticketRepo) Update(_ context.Context, ticket *domain.Ticket, expectedVersion int, deltas []repository.WorkloadDelta) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.tickets[ticket.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if stored.Version != expectedVersion {
		return repository.ErrVersionConflict
	}
	s.tickets[ticket.ID] = ticket.Clone()
	s.applyWorkload(deltas)
	return nil
}

// applyWorkload must be called with s.mu held.
func (s *Store) applyWorkload(deltas []repository.WorkloadDelta) {
	for _, d := range repository.MergeDeltas(deltas) {
		u, ok := s.users[d.UserID]
		if !ok {
			continue
		}
		u.ActiveTickets = max(u.ActiveTickets+d.Active, 0)
		u.TotalResolved = max(u.TotalResolved+d.Resolved, 0)
		u.UpdatedAt = s.now()
		s.users[d.UserID] = u
	}
}

func (r *ticketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tickets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return t.Clone(), nil
}

func (r *ticketRepo) GetByIdempotencyKey(_ context.Context, key string) (*domain.Ticket, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.tickets {
		if key != "" && t.IdempotencyKey == key {
			return t.Clone(), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *ticketRepo) List(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, int, error) {
	s := (*Store)(r)
	s.mu.RLock()
	matched := make([]*domain.Ticket, 0, len(s.tickets))
	for _, t := range s.tickets {
		if matchesFilter(t, filter) {
			matched = append(matched, t.Clone())
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].TicketID > matched[j].TicketID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	limit := filter.Limit
	if limit <= 0 {
		limit = repository.DefaultPageSize
	}
	offset := max(filter.Offset, 0)
	total := len(matched)
	if offset >= total {
		return nil, total, nil
	}
	end := min(offset+limit, total)
	out := make([]domain.Ticket, 0, end-offset)
	for _, t := range matched[offset:end] {
		out = append(out, *t)
	}
	return out, total, nil
}

func matchesFilter(t *domain.Ticket, filter repository.TicketFilter) bool {
	if filter.CreatedBy != "" && t.CreatedBy != filter.CreatedBy {
		return false
	}
	if filter.AssignedTo != "" && t.AssignedTo != filter.AssignedTo {
		return false
	}
	if len(filter.Statuses) > 0 {
		found := false
		for _, st := range filter.Statuses {
			if t.Status == st {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	term := strings.ToLower(strings.TrimSpace(filter.SearchTerm))
	if term == "" {
		return true
	}
	if strings.Contains(strings.ToLower(t.Title), term) || strings.Contains(strings.ToLower(t.Description), term) {
		return true
	}
	for _, e := range t.Timeline {
		if strings.Contains(strings.ToLower(e.Comment), term) {
			return true
		}
	}
	return false
}

func (r *ticketRepo) ListByStatus(_ context.Context, statuses []domain.TicketStatus) ([]domain.Ticket, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Ticket
	for _, t := range s.tickets {
		for _, st := range statuses {
			if t.Status == st {
				out = append(out, *t.Clone())
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SLADeadline.Before(out[j].SLADeadline) })
	return out, nil
}

func (r *ticketRepo) ListTicketIDs(_ context.Context) ([]string, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.tickets))
	for _, t := range s.tickets {
		ids = append(ids, t.TicketID)
	}
	return ids, nil
}

type accountRepo Store

func (r *accountRepo) Create(_ context.Context, account *domain.Account) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	email := strings.ToLower(account.Email)
	for _, a := range s.accounts {
		if a.Email == email {
			return repository.ErrDuplicate
		}
	}
	account.Email = email
	account.CreatedAt = s.now()
	s.accounts[account.ID] = *account
	return nil
}

func (r *accountRepo) GetByEmail(_ context.Context, email string) (*domain.Account, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()
	email = strings.ToLower(email)
	for _, a := range s.accounts {
		if a.Email == email {
			return &a, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *accountRepo) GetByID(_ context.Context, id string) (*domain.Account, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &a, nil
}

func (r *accountRepo) Delete(_ context.Context, id string) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.accounts, id)
	return nil
}

type counterRepo Store

func (r *counterRepo) NextAtLeast(_ context.Context, name string, floor int64) (int64, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	next := max(s.counters[name]+1, floor, 1)
	s.counters[name] = next
	return next, nil
}
