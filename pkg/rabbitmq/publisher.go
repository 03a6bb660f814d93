package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"session-gateway/config"
)

// Publisher emits session lifecycle events. Declaration of the exchange is
// done once on the first publish.
type Publisher struct {
	conn *amqp.Connection
	cfg  *config.RabbitMQ

	mu       sync.Mutex
	ch       *amqp.Channel
	declared bool
}

func NewPublisher(conn *amqp.Connection, cfg *config.RabbitMQ) *Publisher {
	return &Publisher{conn: conn, cfg: cfg}
}

func (p *Publisher) channel() (*amqp.Channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}

	ch, err := p.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	if !p.declared {
		if err := ch.ExchangeDeclare(p.cfg.ExchangeName, p.cfg.Kind, true, false, false, false, nil); err != nil {
			ch.Close()
			return nil, fmt.Errorf("failed to declare exchange: %w", err)
		}
		p.declared = true
	}
	p.ch = ch
	return ch, nil
}

// Publish sends body as a persistent JSON message.
func (p *Publisher) Publish(ctx context.Context, routingKey string, body interface{}) error {
	ch, err := p.channel()
	if err != nil {
		return err
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = ch.PublishWithContext(
		ctx,
		p.cfg.ExchangeName,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         payload,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}
