package service

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/mq"
	"github.com/spec-kit/helpdesk-service/internal/observability"
)

// NotificationService handles emitting notifications for domain events.
type NotificationService struct {
	dispatcher events.Dispatcher
	publisher  mq.Publisher
	logger     *zap.Logger
	cfg        config.NotificationConfig
	metrics    *observability.Metrics
}

// NewNotificationService creates the service. A nil publisher disables broker forwarding.
func NewNotificationService(dispatcher events.Dispatcher, publisher mq.Publisher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	if publisher == nil {
		publisher = mq.NoopPublisher{}
	}
	return &NotificationService{
		dispatcher: dispatcher,
		publisher:  publisher,
		logger:     logger,
		cfg:        cfg,
	}
}

// WithMetrics counts handled events in m.
func (n *NotificationService) WithMetrics(m *observability.Metrics) *NotificationService {
	n.metrics = m
	return n
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	for _, eventType := range events.AllEventTypes {
		n.dispatcher.Subscribe(eventType, n.handle)
	}
}

func (n *NotificationService) handle(ctx context.Context, event events.Event) error {
	n.logger.Info(string(event.Type), zap.String("ticket_id", event.TicketID), zap.String("actor", event.Actor.UserID))
	n.metrics.RecordEvent(string(event.Type))

	switch event.Type {
	case events.EventTicketCreated, events.EventTicketCommented:
		n.sendEmailNotificationStub(event)
		n.sendWebhookNotificationStub(event)
	default:
		n.sendWebhookNotificationStub(event)
	}

	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if err := n.publisher.Publish(ctx, event.ID, string(event.Type), body); err != nil {
		n.logger.Warn("event publication failed",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
		return err
	}
	return nil
}

func (n *NotificationService) sendEmailNotificationStub(event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWebhookNotificationStub(event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)))
}
