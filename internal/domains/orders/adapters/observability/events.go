package observability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/Apurer/loyalty-checkout/internal/domains/orders/domain"
	"github.com/Apurer/loyalty-checkout/internal/domains/orders/ports"
)

// EventPublisher counts lifecycle transitions as their events leave the
// service. OrderCompleted and OrderCancelled are only emitted by the caller
// whose transition took effect, so repeated completes or cancels are not
// counted twice.
type EventPublisher struct {
	inner    ports.EventPublisher
	metrics  serviceMetrics
	failures metric.Int64Counter
}

// NewEventPublisher wraps inner, which may be nil when events are dropped.
func NewEventPublisher(inner ports.EventPublisher, m metric.Meter) *EventPublisher {
	p := &EventPublisher{inner: inner, metrics: newServiceMetrics(m)}
	if m != nil {
		p.failures, _ = m.Int64Counter("orders.events.publish_failures", metric.WithDescription("Number of order events the publisher rejected"))
	}
	return p
}

func (p *EventPublisher) Publish(ctx context.Context, event domain.Event) error {
	switch event.(type) {
	case domain.OrderCompleted:
		p.metrics.recordCompleted(ctx)
	case domain.OrderCancelled:
		p.metrics.recordCancelled(ctx)
	}
	if p.inner == nil {
		return nil
	}
	err := p.inner.Publish(ctx, event)
	if err != nil && p.failures != nil {
		p.failures.Add(ctx, 1, metric.WithAttributes(attribute.String("event.name", event.EventName())))
	}
	return err
}

var _ ports.EventPublisher = (*EventPublisher)(nil)
