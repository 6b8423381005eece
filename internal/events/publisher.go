// Package events publishes domain events for downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/tork-crm/tork-api/internal/config"
	"go.uber.org/zap"
)

// LeadIngested is emitted after a lead transaction commits
type LeadIngested struct {
	DealID        string    `json:"deal_id"`
	ContactID     string    `json:"contact_id"`
	ContactName   string    `json:"contact_name"`
	Phone         string    `json:"phone"`
	Email         string    `json:"email,omitempty"`
	InsuranceType string    `json:"insurance_type"`
	Stage         string    `json:"stage"`
	Resolution    string    `json:"resolution"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// Publisher emits lead events
type Publisher interface {
	PublishLeadIngested(ctx context.Context, event LeadIngested) error
	Close() error
}

// NewPublisher dials RabbitMQ when events are enabled and returns a no-op publisher otherwise
func NewPublisher(cfg *config.EventsConfig, logger *zap.Logger) (Publisher, error) {
	if !cfg.Enabled {
		return NoopPublisher{}, nil
	}
	return NewRabbitMQPublisher(cfg, logger)
}

// RabbitMQPublisher publishes persistent JSON messages to a topic exchange
type RabbitMQPublisher struct {
	conn       *amqp.Connection
	ch         *amqp.Channel
	exchange   string
	routingKey string
	logger     *zap.Logger

	mu sync.Mutex
}

func NewRabbitMQPublisher(cfg *config.EventsConfig, logger *zap.Logger) (*RabbitMQPublisher, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open RabbitMQ channel: %w", err)
	}

	if err := ch.ExchangeDeclare(cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", cfg.Exchange, err)
	}

	logger.Info("RabbitMQ publisher ready",
		zap.String("exchange", cfg.Exchange),
		zap.String("routing_key", cfg.RoutingKey),
	)

	return &RabbitMQPublisher{
		conn:       conn,
		ch:         ch,
		exchange:   cfg.Exchange,
		routingKey: cfg.RoutingKey,
		logger:     logger,
	}, nil
}

func (p *RabbitMQPublisher) PublishLeadIngested(ctx context.Context, event LeadIngested) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode lead event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.ch.PublishWithContext(ctx,
		p.exchange,
		p.routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    event.DealID,
			Timestamp:    event.OccurredAt,
			Type:         "lead.ingested",
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish lead event: %w", err)
	}
	return nil
}

func (p *RabbitMQPublisher) Close() error {
	if err := p.ch.Close(); err != nil {
		p.logger.Warn("failed to close RabbitMQ channel", zap.Error(err))
	}
	return p.conn.Close()
}

// NoopPublisher drops every event
type NoopPublisher struct{}

func (NoopPublisher) PublishLeadIngested(context.Context, LeadIngested) error { return nil }

func (NoopPublisher) Close() error { return nil }
