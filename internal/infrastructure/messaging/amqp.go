// Package messaging delivers outbox events to RabbitMQ.
package messaging

import (
	"context"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"growermarket/internal/infrastructure/storage/postgres"
	"growermarket/pkg/logger"
)

// Publisher publishes outbox messages to a topic exchange with the event
// type as routing key. It implements postgres.OutboxHandler.
type Publisher struct {
	url      string
	exchange string

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

var _ postgres.OutboxHandler = (*Publisher)(nil)

// NewPublisher dials the broker and declares the exchange.
func NewPublisher(url, exchange string) (*Publisher, error) {
	p := &Publisher{url: url, exchange: exchange}
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

// Handle implements postgres.OutboxHandler. Publishing uses publisher
// confirms so a message is only marked published once the broker has it.
func (p *Publisher) Handle(ctx context.Context, msg *postgres.OutboxMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch == nil || p.ch.IsClosed() {
		if err := p.connectLocked(); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	confirm, err := p.ch.PublishWithDeferredConfirmWithContext(ctx, p.exchange, msg.EventType, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    msg.ID.String(),
		Timestamp:    msg.CreatedAt,
		Type:         msg.EventType,
		Headers: amqp.Table{
			"aggregate_type": msg.AggregateType,
			"aggregate_id":   msg.AggregateID.String(),
		},
		Body: msg.Payload,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", msg.EventType, err)
	}

	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("wait confirm %s: %w", msg.EventType, err)
	}
	if !acked {
		return fmt.Errorf("broker nacked %s", msg.ID)
	}
	return nil
}

// Close closes the channel and connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

func (p *Publisher) connect() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connectLocked()
}

func (p *Publisher) connectLocked() error {
	if p.conn == nil || p.conn.IsClosed() {
		conn, err := amqp.Dial(p.url)
		if err != nil {
			return fmt.Errorf("dial amqp: %w", err)
		}
		p.conn = conn
	}

	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(p.exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return fmt.Errorf("declare exchange %s: %w", p.exchange, err)
	}
	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		return fmt.Errorf("enable confirms: %w", err)
	}
	p.ch = ch

	logger.Info(context.Background(), "amqp publisher connected", "exchange", p.exchange)
	return nil
}
