package memory

import (
	"context"
	"log/slog"
	"sync"

	"github.com/Apurer/loyalty-checkout/internal/domains/orders/domain"
	"github.com/Apurer/loyalty-checkout/internal/domains/orders/ports"
)

var _ ports.EventPublisher = (*EventLog)(nil)

const defaultEventCapacity = 1024

// EventLog is the publisher used when no broker is configured. It retains the
// most recent events only.
type EventLog struct {
	mu       sync.RWMutex
	events   []domain.Event
	capacity int
	logger   *slog.Logger
}

func NewEventLog() *EventLog {
	return &EventLog{capacity: defaultEventCapacity}
}

// WithLogger writes one log record per published event.
func (l *EventLog) WithLogger(logger *slog.Logger) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logger = logger
}

func (l *EventLog) Publish(ctx context.Context, event domain.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.logger != nil {
		l.logger.LogAttrs(ctx, slog.LevelInfo, "order event recorded",
			slog.String("event.name", event.EventName()),
			slog.Time("event.occurred_at", event.OccurredAt()))
	}
	l.events = append(l.events, event)
	if over := len(l.events) - l.capacity; over > 0 {
		l.events = append([]domain.Event(nil), l.events[over:]...)
	}
	return nil
}

// Events returns a snapshot in publish order.
func (l *EventLog) Events() []domain.Event {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]domain.Event(nil), l.events...)
}
