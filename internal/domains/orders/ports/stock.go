package ports

import (
	"context"
	"errors"
)

var ErrProductNotFound = errors.New("product not found")

// StockLedger owns the authoritative per-product available quantity.
type StockLedger interface {
	// TryDecrement subtracts qty in one indivisible operation only when at
	// least qty is available. It returns false, nil when stock is insufficient.
	TryDecrement(ctx context.Context, productID string, qty int64) (bool, error)
	// CompensateIncrement unconditionally adds qty back. It fails only when the
	// product record is gone (ErrProductNotFound) or storage is unreachable.
	CompensateIncrement(ctx context.Context, productID string, qty int64) error
	Available(ctx context.Context, productID string) (int64, error)
}
