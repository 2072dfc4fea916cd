package application

import (
	"context"

	"github.com/Apurer/loyalty-checkout/internal/domains/orders/application/types"
	"github.com/Apurer/loyalty-checkout/internal/domains/orders/domain"
	"github.com/Apurer/loyalty-checkout/internal/domains/orders/ports"
)

// Service exposes the order use cases behind a single port.
type Service struct {
	coordinator *Coordinator
	queries     *QueryService
}

func NewService(orders ports.OrderStore, stock ports.StockLedger, opts ...Option) *Service {
	return &Service{
		coordinator: NewCoordinator(orders, stock, opts...),
		queries:     NewQueryService(orders, stock, opts...),
	}
}

func (s *Service) PlaceOrder(ctx context.Context, input types.PlaceOrderInput) (*types.PlaceOrderResult, error) {
	return s.coordinator.PlaceOrder(ctx, input)
}

func (s *Service) GetOrder(ctx context.Context, id types.OrderIdentifier) (*domain.Order, error) {
	return s.queries.GetOrder(ctx, id)
}

func (s *Service) ListOrders(ctx context.Context, input types.ListOrdersInput) ([]*domain.Order, error) {
	return s.queries.ListOrders(ctx, input)
}

func (s *Service) CompleteOrder(ctx context.Context, id types.OrderIdentifier) (*domain.Order, error) {
	return s.queries.MarkCompleted(ctx, id)
}

func (s *Service) CancelOrder(ctx context.Context, id types.OrderIdentifier) (*domain.Order, error) {
	return s.queries.CancelOrder(ctx, id)
}

func (s *Service) StockLevel(ctx context.Context, productID string) (int64, error) {
	return s.queries.StockLevel(ctx, productID)
}

var _ ports.Service = (*Service)(nil)
