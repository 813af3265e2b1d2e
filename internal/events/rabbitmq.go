package events

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/tbourn/go-recipes-backend/internal/config"
)

// RabbitMQ publishes events as persistent JSON messages on a durable queue
// through the default exchange.
type RabbitMQ struct {
	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
}

// NewPublisher returns Noop when events are disabled, otherwise a connected
// RabbitMQ publisher.
func NewPublisher(cfg config.EventsConfig) (Publisher, error) {
	if !cfg.Enabled {
		return Noop{}, nil
	}
	return NewRabbitMQ(cfg.URL, cfg.Queue)
}

// NewRabbitMQ dials url and declares queue.
func NewRabbitMQ(url, queue string) (*RabbitMQ, error) {
	if strings.TrimSpace(url) == "" {
		return nil, errors.New("rabbitmq url is required")
	}
	if strings.TrimSpace(queue) == "" {
		return nil, errors.New("rabbitmq queue is required")
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	return &RabbitMQ{conn: conn, channel: ch, queue: queue}, nil
}

// Publish marshals ev and sends it to the configured queue.
func (r *RabbitMQ) Publish(ctx context.Context, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.channel.PublishWithContext(ctx, "", r.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Type:         ev.Type,
		Timestamp:    ev.OccurredAt,
		Body:         body,
	})
}

// Close closes the underlying channel and connection.
func (r *RabbitMQ) Close() error {
	if r.channel != nil {
		_ = r.channel.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}
