package service

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"unicode"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

const (
	ticketIDPrefix   = "T"
	ticketIDDigits   = 9
	ticketCounter    = "ticket"
	maxUsernameTries = 99
)

// IdentifierService generates display identifiers and usernames. Sequence
// numbers come from the counter store, floored at one above the highest
// suffix already present so legacy rows never collide.
type IdentifierService struct {
	users    repository.UserRepository
	tickets  repository.TicketRepository
	counters repository.CounterRepository
	randIntN func(n int) int
}

// IdentifierDependencies bundles repositories.
type IdentifierDependencies struct {
	UserRepo    repository.UserRepository
	TicketRepo  repository.TicketRepository
	CounterRepo repository.CounterRepository
}

// NewIdentifierService creates the service.
func NewIdentifierService(deps IdentifierDependencies) *IdentifierService {
	return &IdentifierService{
		users:    deps.UserRepo,
		tickets:  deps.TicketRepo,
		counters: deps.CounterRepo,
		randIntN: rand.Intn,
	}
}

// NextUserID returns the next customId for role, e.g. AG00004.
func (s *IdentifierService) NextUserID(ctx context.Context, role domain.Role) (string, error) {
	r := role
	users, err := s.users.List(ctx, repository.UserFilter{Role: &r})
	if err != nil {
		return "", err
	}
	ids := make([]string, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.CustomID)
	}
	floor := maxSuffix(ids, role.CustomIDPrefix()) + 1
	n, err := s.counters.NextAtLeast(ctx, "user:"+string(role), floor)
	if err != nil {
		return "", err
	}
	return role.FormatCustomID(n), nil
}

// NextTicketID returns the next human-readable ticket id, e.g. T000000042.
func (s *IdentifierService) NextTicketID(ctx context.Context) (string, error) {
	ids, err := s.tickets.ListTicketIDs(ctx)
	if err != nil {
		return "", err
	}
	floor := maxSuffix(ids, ticketIDPrefix) + 1
	n, err := s.counters.NextAtLeast(ctx, ticketCounter, floor)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%0*d", ticketIDPrefix, ticketIDDigits, n), nil
}

// NextUsername derives a unique username from name, falling back to the
// email local part. Collisions get a two digit suffix, then a random
// three digit one.
func (s *IdentifierService) NextUsername(ctx context.Context, name, email string) (string, error) {
	base := normalizeUsername(name)
	if base == "" {
		local, _, _ := strings.Cut(email, "@")
		base = normalizeUsername(local)
	}
	if base == "" {
		base = "user"
	}

	taken, err := s.users.UsernameExists(ctx, base)
	if err != nil {
		return "", err
	}
	if !taken {
		return base, nil
	}
	for i := 1; i <= maxUsernameTries; i++ {
		candidate := fmt.Sprintf("%s%02d", base, i)
		taken, err := s.users.UsernameExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}
	return fmt.Sprintf("%s%d", base, 100+s.randIntN(900)), nil
}

func normalizeUsername(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// maxSuffix returns the largest numeric suffix among ids carrying prefix.
// Malformed ids are skipped.
func maxSuffix(ids []string, prefix string) int64 {
	var highest int64
	for _, id := range ids {
		rest, ok := strings.CutPrefix(id, prefix)
		if !ok || rest == "" || strings.IndexFunc(rest, notDigit) >= 0 {
			continue
		}
		n, err := strconv.ParseInt(rest, 10, 64)
		if err != nil {
			continue
		}
		highest = max(highest, n)
	}
	return highest
}

func notDigit(r rune) bool { return r < '0' || r > '9' }
