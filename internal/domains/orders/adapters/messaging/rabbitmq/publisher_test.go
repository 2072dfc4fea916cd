package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/require"

	"github.com/Apurer/loyalty-checkout/internal/domains/orders/domain"
)

type recordingChannel struct {
	exchange string
	key      string
	msg      amqp.Publishing
	err      error
}

func (c *recordingChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	c.exchange = exchange
	c.key = key
	c.msg = msg
	return c.err
}

func TestPublisher_RoutesByEventName(t *testing.T) {
	ch := &recordingChannel{}
	pub := NewPublisher(ch, "")
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	err := pub.Publish(context.Background(), domain.OrderCompleted{
		BaseEvent: domain.BaseEvent{Timestamp: at},
		OrderID:   "o-1",
	})
	require.NoError(t, err)
	require.Equal(t, DefaultExchange, ch.exchange)
	require.Equal(t, "orders.order.completed", ch.key)
	require.Equal(t, "application/json", ch.msg.ContentType)
	require.Equal(t, amqp.Persistent, ch.msg.DeliveryMode)
	require.Equal(t, at, ch.msg.Timestamp)

	var body map[string]any
	require.NoError(t, json.Unmarshal(ch.msg.Body, &body))
	require.Equal(t, "o-1", body["orderId"])
}

func TestPublisher_PropagatesChannelError(t *testing.T) {
	ch := &recordingChannel{err: errors.New("channel closed")}
	pub := NewPublisher(ch, "custom")

	err := pub.Publish(context.Background(), domain.OrderCancelled{OrderID: "o-1"})
	require.Error(t, err)
	require.Equal(t, "custom", ch.exchange)
}
