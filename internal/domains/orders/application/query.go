package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Apurer/loyalty-checkout/internal/domains/orders/application/types"
	"github.com/Apurer/loyalty-checkout/internal/domains/orders/domain"
	"github.com/Apurer/loyalty-checkout/internal/domains/orders/ports"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// QueryService serves the admin read side and the post-placement status
// transitions.
type QueryService struct {
	orders ports.OrderStore
	stock  ports.StockLedger
	opts   options
}

func NewQueryService(orders ports.OrderStore, stock ports.StockLedger, opts ...Option) *QueryService {
	return &QueryService{orders: orders, stock: stock, opts: buildOptions(opts)}
}

// GetOrder returns the order with its lines.
func (q *QueryService) GetOrder(ctx context.Context, id types.OrderIdentifier) (*domain.Order, error) {
	order, err := q.orders.GetByID(ctx, id.ID)
	if err != nil {
		return nil, mapStoreError(id.ID, err)
	}
	return order, nil
}

// ListOrders returns orders newest first, optionally filtered.
func (q *QueryService) ListOrders(ctx context.Context, input types.ListOrdersInput) ([]*domain.Order, error) {
	filter := ports.OrderFilter{
		Email:  strings.TrimSpace(input.Email),
		Limit:  input.Limit,
		Offset: input.Offset,
	}
	if raw := strings.TrimSpace(input.Status); raw != "" {
		status, err := domain.ParseStatus(raw)
		if err != nil {
			return nil, &ValidationError{Field: "status", Reason: "is not a known order status"}
		}
		filter.Status = status
	}
	if filter.Offset < 0 {
		return nil, &ValidationError{Field: "offset", Reason: "must not be negative"}
	}
	switch {
	case filter.Limit <= 0:
		filter.Limit = defaultListLimit
	case filter.Limit > maxListLimit:
		filter.Limit = maxListLimit
	}
	return q.orders.List(ctx, filter)
}

// MarkCompleted moves a pending order to completed. Completing an order that
// is already completed returns it unchanged.
func (q *QueryService) MarkCompleted(ctx context.Context, id types.OrderIdentifier) (*domain.Order, error) {
	order, changed, err := q.transition(ctx, id.ID, domain.StatusCompleted)
	if err != nil {
		return nil, err
	}
	if changed {
		publish(ctx, q.opts, domain.OrderCompleted{
			BaseEvent: domain.BaseEvent{Timestamp: q.opts.now()},
			OrderID:   order.ID,
		})
	}
	return order, nil
}

// CancelOrder moves a pending order to cancelled and returns its reserved
// stock. Only the caller that wins the transition restores stock, so
// repeated or concurrent cancels never over-increment.
func (q *QueryService) CancelOrder(ctx context.Context, id types.OrderIdentifier) (*domain.Order, error) {
	order, changed, err := q.transition(ctx, id.ID, domain.StatusCancelled)
	if err != nil || !changed {
		return order, err
	}

	restoreCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), q.opts.unwindTimeout)
	defer cancel()
	var failures []StepFailure
	for _, line := range order.Lines {
		if err := q.stock.CompensateIncrement(restoreCtx, line.ProductID, line.Quantity); err != nil {
			failures = append(failures, StepFailure{Step: StepReservePrefix + line.ProductID, Err: err})
		}
	}
	if len(failures) > 0 {
		cfe := &CompensationFailureError{OrderID: order.ID, Failures: failures}
		q.opts.logger.LogAttrs(restoreCtx, slog.LevelError, "stock restore failed for cancelled order, manual reconciliation required",
			slog.String("order.id", order.ID),
			slog.Any("saga.failed_steps", cfe.FailedSteps()),
			slog.String("error", cfe.Error()))
		recordReconciliation(restoreCtx, q.opts, ports.ReconciliationEntry{
			OrderID:     order.ID,
			Reason:      ports.ReasonStockRestoreFailed,
			FailedSteps: cfe.FailedSteps(),
			Detail:      cfe.Error(),
		})
		return nil, cfe
	}

	publish(ctx, q.opts, domain.OrderCancelled{
		BaseEvent: domain.BaseEvent{Timestamp: q.opts.now()},
		OrderID:   order.ID,
	})
	return order, nil
}

// StockLevel reports the available quantity of a product.
func (q *QueryService) StockLevel(ctx context.Context, productID string) (int64, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return 0, &ValidationError{Field: "productId", Reason: "is required"}
	}
	return q.stock.Available(ctx, productID)
}

// transition applies a conditional pending -> target update. changed is true
// only for the caller whose update took effect.
func (q *QueryService) transition(ctx context.Context, orderID string, target domain.Status) (*domain.Order, bool, error) {
	current, err := q.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, false, mapStoreError(orderID, err)
	}
	if current.Status == target {
		return current, false, nil
	}
	if !domain.CanTransition(current.Status, target) {
		return nil, false, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, target)
	}

	updated, err := q.orders.TransitionStatus(ctx, orderID, current.Status, target)
	if err != nil {
		return nil, false, mapStoreError(orderID, err)
	}
	reloaded, err := q.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, false, mapStoreError(orderID, err)
	}
	if !updated {
		// Lost the race; the winner decides the final state.
		if reloaded.Status == target {
			return reloaded, false, nil
		}
		return nil, false, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, reloaded.Status, target)
	}
	if reloaded.Status != target {
		return nil, false, errors.New("order status did not change after transition")
	}
	return reloaded, true, nil
}
