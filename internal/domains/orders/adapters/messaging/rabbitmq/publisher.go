package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Apurer/loyalty-checkout/internal/domains/orders/domain"
	"github.com/Apurer/loyalty-checkout/internal/domains/orders/ports"
)

const (
	DefaultExchange = "orders.events"
	exchangeType    = "topic"
)

var _ ports.EventPublisher = (*Publisher)(nil)

// Channel is the subset of *amqp.Channel the publisher needs.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Publisher sends order events to a topic exchange, routed by event name.
type Publisher struct {
	ch       Channel
	exchange string
}

func NewPublisher(ch Channel, exchange string) *Publisher {
	if exchange == "" {
		exchange = DefaultExchange
	}
	return &Publisher{ch: ch, exchange: exchange}
}

func (p *Publisher) Publish(ctx context.Context, event domain.Event) error {
	if event == nil {
		return fmt.Errorf("event is nil")
	}
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", event.EventName(), err)
	}
	return p.ch.PublishWithContext(ctx,
		p.exchange,
		event.EventName(),
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    event.OccurredAt(),
			Type:         event.EventName(),
			Body:         body,
		},
	)
}

// Dial connects, opens a channel and declares the durable topic exchange. The
// returned close func releases both.
func Dial(url, exchange string) (*Publisher, func() error, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}
	conn, err := amqp.DialConfig(url, amqp.Config{Heartbeat: 10 * time.Second})
	if err != nil {
		return nil, nil, fmt.Errorf("could not connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("could not open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, exchangeType, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, nil, fmt.Errorf("could not declare exchange %s: %w", exchange, err)
	}
	closeFn := func() error {
		chErr := ch.Close()
		if err := conn.Close(); err != nil {
			return err
		}
		return chErr
	}
	return NewPublisher(ch, exchange), closeFn, nil
}
