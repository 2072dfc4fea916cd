package ports

import (
	"context"
	"errors"
	"time"
)

var ErrReconciliationNotFound = errors.New("reconciliation entry not found")

// Reconciliation reasons.
const (
	ReasonCompensationFailed = "compensation_failed"
	ReasonAmbiguousDecrement = "ambiguous_stock_decrement"
	ReasonStockRestoreFailed = "stock_restore_failed"
)

// ReconciliationEntry flags storage state automated logic could not repair.
type ReconciliationEntry struct {
	ID          string     `json:"id"`
	OrderID     string     `json:"orderId"`
	Reason      string     `json:"reason"`
	FailedSteps []string   `json:"failedSteps"`
	Detail      string     `json:"detail"`
	CreatedAt   time.Time  `json:"createdAt"`
	ResolvedAt  *time.Time `json:"resolvedAt,omitempty"`
}

// ReconciliationLog keeps entries for operators until someone resolves them.
type ReconciliationLog interface {
	Record(ctx context.Context, entry ReconciliationEntry) error
	ListOpen(ctx context.Context) ([]ReconciliationEntry, error)
	Resolve(ctx context.Context, id string) error
}
