package application

import (
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Apurer/loyalty-checkout/internal/domains/orders/ports"
)

const (
	// DefaultStepTimeout bounds each remote call the saga makes.
	DefaultStepTimeout = 5 * time.Second
	// DefaultUnwindTimeout bounds a full compensation pass.
	DefaultUnwindTimeout = 15 * time.Second
)

type options struct {
	logger         *slog.Logger
	now            func() time.Time
	newID          func() string
	stepTimeout    time.Duration
	unwindTimeout  time.Duration
	reconciliation ports.ReconciliationLog
	publisher      ports.EventPublisher
}

// Option tunes the coordinator and query service.
type Option func(*options)

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithClock overrides the time source for deterministic testing.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func WithIDGenerator(newID func() string) Option {
	return func(o *options) {
		if newID != nil {
			o.newID = newID
		}
	}
}

func WithStepTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.stepTimeout = d
		}
	}
}

func WithUnwindTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.unwindTimeout = d
		}
	}
}

// WithReconciliationLog records states that need an operator.
func WithReconciliationLog(log ports.ReconciliationLog) Option {
	return func(o *options) {
		o.reconciliation = log
	}
}

// WithEventPublisher emits lifecycle events after each committed change.
func WithEventPublisher(p ports.EventPublisher) Option {
	return func(o *options) {
		o.publisher = p
	}
}

func buildOptions(opts []Option) options {
	o := options{
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:           func() time.Time { return time.Now().UTC() },
		newID:         uuid.NewString,
		stepTimeout:   DefaultStepTimeout,
		unwindTimeout: DefaultUnwindTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}
