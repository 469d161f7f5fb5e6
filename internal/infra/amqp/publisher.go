package amqp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"quiz-assessment-service/internal/domain"
)

// Channel is the subset of *amqp.Channel the publisher uses.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Publisher forwards attempt events to a topic exchange, routed by event type.
type Publisher struct {
	conn     *amqp.Connection
	channel  Channel
	exchange string
	timeout  time.Duration
}

// Dial connects to the broker and declares the durable topic exchange.
func Dial(url, exchange string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	p := NewPublisher(ch, exchange)
	p.conn = conn
	return p, nil
}

func NewPublisher(ch Channel, exchange string) *Publisher {
	return &Publisher{channel: ch, exchange: exchange, timeout: 5 * time.Second}
}

// ObserveAttempt publishes the event as JSON with the event type as routing key.
func (p *Publisher) ObserveAttempt(ctx context.Context, event domain.AttemptEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	return p.channel.PublishWithContext(ctx, p.exchange, string(event.Type), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.Attempt.ID,
		Timestamp:    event.OccurredAt,
		Type:         string(event.Type),
		Body:         body,
	})
}

func (p *Publisher) Close() error {
	if c, ok := p.channel.(*amqp.Channel); ok {
		_ = c.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
