package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// Clock returns the current time; tests inject a fixed one.
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now().UTC()
	}
	return c()
}

// eventSink publishes domain events after successful commits. Failures are
// logged and never fail the request.
type eventSink struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

func (e eventSink) publish(ctx context.Context, event events.Event) {
	if e.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if err := e.dispatcher.Publish(ctx, event); err != nil && e.logger != nil {
		e.logger.Warn("event handler failed",
			zap.String("event_type", string(event.Type)),
			zap.String("ticket_id", event.TicketID),
			zap.Error(err))
	}
}

func actorOf(user *domain.User) events.Actor {
	return events.Actor{UserID: user.ID, Role: user.Role}
}

func stringPreview(body string, max int) string {
	body = strings.TrimSpace(body)
	runes := []rune(body)
	if len(runes) <= max {
		return body
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

func requireVerified(actor *domain.User) error {
	if actor == nil {
		return apperrors.NewUnauthorized("Authentication required")
	}
	if !actor.CanActAsStaff() {
		return apperrors.NewVerificationRequired(string(actor.Role))
	}
	return nil
}

func userNotFoundAs(err error, notFound func() error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return notFound()
	}
	return apperrors.NewInternalError(err)
}
