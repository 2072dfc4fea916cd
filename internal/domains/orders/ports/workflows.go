package ports

import (
	"context"

	"github.com/Apurer/loyalty-checkout/internal/domains/orders/application/types"
)

// PlacementOrchestrator runs the placement saga, durably or inline.
type PlacementOrchestrator interface {
	PlaceOrder(ctx context.Context, input types.PlaceOrderInput) (*types.PlaceOrderResult, error)
}
