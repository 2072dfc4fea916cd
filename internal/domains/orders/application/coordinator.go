package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Apurer/loyalty-checkout/internal/domains/orders/application/types"
	"github.com/Apurer/loyalty-checkout/internal/domains/orders/domain"
	"github.com/Apurer/loyalty-checkout/internal/domains/orders/ports"
)

// Saga step names, also used in reconciliation entries.
const (
	StepCreateHeader  = "create_order_header"
	StepInsertLines   = "insert_order_lines"
	StepReservePrefix = "reserve_stock:"
)

var errStepNotStarted = errors.New("step not started")

// Coordinator is the order placement saga: header, then lines, then one
// conditional stock decrement per line, unwinding everything on failure.
type Coordinator struct {
	validator *IntakeValidator
	orders    ports.OrderStore
	stock     ports.StockLedger
	opts      options
}

// NewCoordinator wires the saga with its storage collaborators.
func NewCoordinator(orders ports.OrderStore, stock ports.StockLedger, opts ...Option) *Coordinator {
	return &Coordinator{
		validator: NewIntakeValidator(),
		orders:    orders,
		stock:     stock,
		opts:      buildOptions(opts),
	}
}

// PlaceOrder validates the submission and persists it. On any error after
// validation, every committed step has been compensated before returning,
// unless the error is a *CompensationFailureError.
func (c *Coordinator) PlaceOrder(ctx context.Context, input types.PlaceOrderInput) (*types.PlaceOrderResult, error) {
	draft, err := c.validator.Validate(input)
	if err != nil {
		return nil, err
	}
	order, err := domain.NewPendingOrder(c.opts.newID(), draft.Buyer, draft.Lines, c.opts.now())
	if err != nil {
		return nil, &ValidationError{Field: "cartLines", Reason: "makes the order total too large"}
	}
	if input.ClaimedTotal != nil && *input.ClaimedTotal != order.TotalAmount {
		c.opts.logger.LogAttrs(ctx, slog.LevelWarn, "claimed total differs from line sum",
			slog.String("order.id", order.ID),
			slog.Int64("order.claimed_total", *input.ClaimedTotal),
			slog.Int64("order.total", order.TotalAmount))
	}
	saga := NewCompensationManager()

	err = c.runStep(ctx, func(stepCtx context.Context) error {
		return c.orders.CreateHeader(stepCtx, order.Header())
	})
	if err != nil {
		if isAmbiguous(err) {
			saga.Record(StepCreateHeader, c.deleteHeader(order.ID))
		}
		return nil, c.abort(ctx, saga, order.ID, &PersistenceError{Step: StepCreateHeader, Err: err})
	}
	saga.Record(StepCreateHeader, c.deleteHeader(order.ID))

	err = c.runStep(ctx, func(stepCtx context.Context) error {
		return c.orders.InsertLines(stepCtx, order.ID, order.Lines)
	})
	if err != nil {
		if isAmbiguous(err) {
			saga.Record(StepInsertLines, c.deleteLines(order.ID))
		}
		return nil, c.abort(ctx, saga, order.ID, &PersistenceError{Step: StepInsertLines, Err: err})
	}
	saga.Record(StepInsertLines, c.deleteLines(order.ID))

	for _, line := range order.Lines {
		step := StepReservePrefix + line.ProductID
		var reserved bool
		err := c.runStep(ctx, func(stepCtx context.Context) error {
			ok, err := c.stock.TryDecrement(stepCtx, line.ProductID, line.Quantity)
			reserved = ok
			return err
		})
		switch {
		case errors.Is(err, ports.ErrProductNotFound):
			return nil, c.abort(ctx, saga, order.ID, &InsufficientStockError{ProductID: line.ProductID})
		case err != nil:
			if isAmbiguous(err) {
				c.flagAmbiguousDecrement(ctx, order.ID, step, line, err)
			}
			return nil, c.abort(ctx, saga, order.ID, &PersistenceError{Step: step, Err: err})
		case !reserved:
			return nil, c.abort(ctx, saga, order.ID, &InsufficientStockError{ProductID: line.ProductID})
		}
		saga.Record(step, c.restoreStock(line.ProductID, line.Quantity))
	}

	saga.CommitAll()
	publish(ctx, c.opts, domain.OrderPlaced{
		BaseEvent:   domain.BaseEvent{Timestamp: c.opts.now()},
		OrderID:     order.ID,
		Buyer:       order.Buyer,
		TotalAmount: order.TotalAmount,
		Lines:       order.Lines,
	})
	return &types.PlaceOrderResult{OrderID: order.ID, TotalAmount: order.TotalAmount}, nil
}

// runStep bounds one remote call. A caller context that is already done
// fails the step without issuing the call.
func (c *Coordinator) runStep(ctx context.Context, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", errStepNotStarted, err)
	}
	stepCtx, cancel := context.WithTimeout(ctx, c.opts.stepTimeout)
	defer cancel()
	return fn(stepCtx)
}

// abort unwinds on a context detached from caller cancellation.
func (c *Coordinator) abort(ctx context.Context, saga *CompensationManager, orderID string, cause error) error {
	unwindCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.opts.unwindTimeout)
	defer cancel()

	err := saga.UnwindAll(unwindCtx)
	if err == nil {
		return cause
	}
	var cfe *CompensationFailureError
	if !errors.As(err, &cfe) {
		return err
	}
	cfe.OrderID = orderID
	cfe.Cause = cause
	c.opts.logger.LogAttrs(unwindCtx, slog.LevelError, "order compensation failed, manual reconciliation required",
		slog.String("order.id", orderID),
		slog.Any("saga.failed_steps", cfe.FailedSteps()),
		slog.String("error", cfe.Error()))
	recordReconciliation(unwindCtx, c.opts, ports.ReconciliationEntry{
		OrderID:     orderID,
		Reason:      ports.ReasonCompensationFailed,
		FailedSteps: cfe.FailedSteps(),
		Detail:      cfe.Error(),
	})
	return cfe
}

func (c *Coordinator) flagAmbiguousDecrement(ctx context.Context, orderID, step string, line domain.Line, err error) {
	detailCtx := context.WithoutCancel(ctx)
	c.opts.logger.LogAttrs(detailCtx, slog.LevelError, "stock decrement outcome unknown",
		slog.String("order.id", orderID),
		slog.String("product.id", line.ProductID),
		slog.Int64("line.quantity", line.Quantity),
		slog.String("error", err.Error()))
	recordReconciliation(detailCtx, c.opts, ports.ReconciliationEntry{
		OrderID:     orderID,
		Reason:      ports.ReasonAmbiguousDecrement,
		FailedSteps: []string{step},
		Detail:      fmt.Sprintf("product %s quantity %d may have been decremented: %v", line.ProductID, line.Quantity, err),
	})
}

func (c *Coordinator) deleteHeader(orderID string) Compensation {
	return c.bounded(func(ctx context.Context) error {
		err := c.orders.DeleteHeader(ctx, orderID)
		if errors.Is(err, ports.ErrNotFound) {
			return nil
		}
		return err
	})
}

func (c *Coordinator) deleteLines(orderID string) Compensation {
	return c.bounded(func(ctx context.Context) error {
		return c.orders.DeleteLines(ctx, orderID)
	})
}

func (c *Coordinator) restoreStock(productID string, qty int64) Compensation {
	return c.bounded(func(ctx context.Context) error {
		return c.stock.CompensateIncrement(ctx, productID, qty)
	})
}

func (c *Coordinator) bounded(fn Compensation) Compensation {
	return func(ctx context.Context) error {
		stepCtx, cancel := context.WithTimeout(ctx, c.opts.stepTimeout)
		defer cancel()
		return fn(stepCtx)
	}
}

// isAmbiguous reports a step that was issued but whose outcome is unknown.
func isAmbiguous(err error) bool {
	if errors.Is(err, errStepNotStarted) {
		return false
	}
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}

func recordReconciliation(ctx context.Context, o options, entry ports.ReconciliationEntry) {
	if o.reconciliation == nil {
		return
	}
	if entry.ID == "" {
		entry.ID = o.newID()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = o.now()
	}
	if err := o.reconciliation.Record(ctx, entry); err != nil {
		o.logger.LogAttrs(ctx, slog.LevelError, "failed to record reconciliation entry",
			slog.String("order.id", entry.OrderID),
			slog.String("reconciliation.reason", entry.Reason),
			slog.String("error", err.Error()))
	}
}

func publish(ctx context.Context, o options, event domain.Event) {
	if o.publisher == nil {
		return
	}
	if err := o.publisher.Publish(context.WithoutCancel(ctx), event); err != nil {
		o.logger.LogAttrs(ctx, slog.LevelWarn, "failed to publish order event",
			slog.String("event.name", event.EventName()),
			slog.String("error", err.Error()))
	}
}
