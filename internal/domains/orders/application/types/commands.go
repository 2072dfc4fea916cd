package types

import "github.com/Apurer/loyalty-checkout/internal/domains/orders/domain"

// PlaceOrderInput is the cart collaborator's submission.
type PlaceOrderInput struct {
	Buyer        domain.BuyerInfo  `json:"buyer"`
	Lines        []domain.CartLine `json:"lines"`
	ClaimedTotal *int64            `json:"claimedTotal,omitempty"`
	// IdempotencyKey lets retried submissions resolve to the original placement.
	IdempotencyKey string `json:"idempotencyKey,omitempty"`
}

// PlaceOrderResult is returned once the saga has fully committed.
type PlaceOrderResult struct {
	OrderID     string `json:"orderId"`
	TotalAmount int64  `json:"totalAmount"`
}

// OrderIdentifier addresses a single order.
type OrderIdentifier struct {
	ID string
}

// ListOrdersInput carries optional admin listing filters.
type ListOrdersInput struct {
	Status string
	Email  string
	Limit  int
	Offset int
}
