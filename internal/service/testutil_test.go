package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository/memory"
)

var testNow = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

// fixture wires every service over one in-memory store and a movable clock.
type fixture struct {
	store      *memory.Store
	now        time.Time
	dispatcher events.Dispatcher
	published  []events.Event
	ids        *IdentifierService
	assign     *AssignmentService
	tickets    *TicketService
	sla        *SLAService
	identity   *auth.LocalIdentity
	auth       *AuthService
	users      *UserService
}

func newFixture() *fixture {
	f := &fixture{store: memory.NewStore(), now: testNow, dispatcher: events.NewInMemoryDispatcher()}
	for _, et := range events.AllEventTypes {
		f.dispatcher.Subscribe(et, func(_ context.Context, e events.Event) error {
			f.published = append(f.published, e)
			return nil
		})
	}
	clock := func() time.Time { return f.now }
	f.ids = NewIdentifierService(IdentifierDependencies{
		UserRepo:    f.store.Users(),
		TicketRepo:  f.store.Tickets(),
		CounterRepo: f.store.Counters(),
	})
	f.assign = NewAssignmentService(f.store.Users())
	f.tickets = NewTicketService(TicketDependencies{
		TicketRepo:  f.store.Tickets(),
		UserRepo:    f.store.Users(),
		Identifiers: f.ids,
		Assignment:  f.assign,
		Dispatcher:  f.dispatcher,
		Logger:      zap.NewNop(),
		Clock:       clock,
	})
	f.sla = NewSLAService(f.store.Tickets(), clock)
	f.identity = auth.NewLocalIdentity(f.store.Accounts(), auth.NewTokenManager("test-secret", 60), 4)
	f.auth = NewAuthService(AuthDependencies{
		Identity:    f.identity,
		UserRepo:    f.store.Users(),
		Identifiers: f.ids,
		Logger:      zap.NewNop(),
		Clock:       clock,
	})
	f.users = NewUserService(UserDependencies{
		Identity:    f.identity,
		UserRepo:    f.store.Users(),
		Identifiers: f.ids,
		Logger:      zap.NewNop(),
		Clock:       clock,
	})
	return f
}

func (f *fixture) seed(id string, role domain.Role, verified bool, active int) *domain.User {
	u := domain.User{
		ID:            id,
		Email:         id + "@example.com",
		Name:          id,
		Username:      id,
		Role:          role,
		Verified:      verified,
		AccountStatus: domain.AccountStatusActive,
		ActiveTickets: active,
	}
	f.store.SeedUser(u)
	return &u
}

func (f *fixture) user(id string) *domain.User {
	u, err := f.store.Users().GetByID(context.Background(), id)
	if err != nil {
		panic(err)
	}
	return u
}

func ptr[T any](v T) *T { return &v }

func (f *fixture) eventTypes() []events.EventType {
	out := make([]events.EventType, 0, len(f.published))
	for _, e := range f.published {
		out = append(out, e.Type)
	}
	return out
}
