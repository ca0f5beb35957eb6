// Package mq forwards domain events to a message broker.
package mq

import (
	"context"
	"errors"
	"strings"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/spec-kit/helpdesk-service/internal/config"
)

// Publisher sends an encoded message to the broker.
type Publisher interface {
	Publish(ctx context.Context, messageID, eventType string, body []byte) error
	Close() error
}

// RabbitMQPublisher wraps a RabbitMQ connection/channel pair bound to one queue.
type RabbitMQPublisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
}

// NewRabbitMQPublisher dials the broker and declares the event queue.
func NewRabbitMQPublisher(cfg config.AMQPConfig) (*RabbitMQPublisher, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("amqp url is required")
	}
	if strings.TrimSpace(cfg.Queue) == "" {
		return nil, errors.New("amqp queue is required")
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	if _, err := ch.QueueDeclare(cfg.Queue, cfg.QueueDurable, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	return &RabbitMQPublisher{conn: conn, channel: ch, queue: cfg.Queue}, nil
}

// Publish sends a persistent JSON message to the event queue.
func (r *RabbitMQPublisher) Publish(ctx context.Context, messageID, eventType string, body []byte) error {
	return r.channel.PublishWithContext(ctx, "", r.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    messageID,
		Type:         eventType,
		Headers:      amqp.Table{"event_type": eventType},
		Body:         body,
	})
}

// Close closes the underlying channel and connection.
func (r *RabbitMQPublisher) Close() error {
	if r.channel != nil {
		_ = r.channel.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}

// NoopPublisher drops every message. It stands in when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, string, string, []byte) error { return nil }

func (NoopPublisher) Close() error { return nil }
