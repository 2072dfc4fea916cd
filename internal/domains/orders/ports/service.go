package ports

import (
	"context"

	"github.com/Apurer/loyalty-checkout/internal/domains/orders/application/types"
	"github.com/Apurer/loyalty-checkout/internal/domains/orders/domain"
)

// Service defines the order use cases exposed to adapters (inbound/driving port).
type Service interface {
	PlaceOrder(ctx context.Context, input types.PlaceOrderInput) (*types.PlaceOrderResult, error)
	GetOrder(ctx context.Context, input types.OrderIdentifier) (*domain.Order, error)
	ListOrders(ctx context.Context, input types.ListOrdersInput) ([]*domain.Order, error)
	CompleteOrder(ctx context.Context, input types.OrderIdentifier) (*domain.Order, error)
	CancelOrder(ctx context.Context, input types.OrderIdentifier) (*domain.Order, error)
	StockLevel(ctx context.Context, productID string) (int64, error)
}
