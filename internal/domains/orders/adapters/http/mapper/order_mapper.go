package mapper

import (
	"time"

	"github.com/Apurer/loyalty-checkout/internal/domains/orders/application/types"
	"github.com/Apurer/loyalty-checkout/internal/domains/orders/domain"
)

// BuyerInfo is the contact block of a checkout submission.
type BuyerInfo struct {
	FullName    string `json:"fullName"`
	CompanyName string `json:"companyName"`
	Email       string `json:"email"`
	Phone       string `json:"phone,omitempty"`
}

// CartLine is one cart entry as the storefront sends it.
type CartLine struct {
	ProductID string `json:"productId"`
	Quantity  int64  `json:"quantity"`
	UnitPrice int64  `json:"unitPrice"`
}

// SubmitOrderRequest is the body of POST /v1/orders.
type SubmitOrderRequest struct {
	BuyerInfo    BuyerInfo  `json:"buyerInfo"`
	CartLines    []CartLine `json:"cartLines"`
	ClaimedTotal *int64     `json:"claimedTotal,omitempty"`
}

// SubmitOrderResponse carries either the placed order id or a stable error kind.
type SubmitOrderResponse struct {
	Success     bool   `json:"success"`
	OrderID     string `json:"orderId,omitempty"`
	TotalAmount *int64 `json:"totalAmount,omitempty"`
	ErrorKind   string `json:"errorKind,omitempty"`
	Message     string `json:"message,omitempty"`
}

type OrderLine struct {
	ProductID string `json:"productId"`
	Quantity  int64  `json:"quantity"`
	UnitPrice int64  `json:"unitPrice"`
	Subtotal  int64  `json:"subtotal"`
}

// Order is the admin view of an order with its buyer and lines.
type Order struct {
	ID          string      `json:"id"`
	BuyerInfo   BuyerInfo   `json:"buyerInfo"`
	TotalAmount int64       `json:"totalAmount"`
	Status      string      `json:"status"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
	Lines       []OrderLine `json:"lines"`
}

// StockLevel is the body of GET /v1/products/:productId/stock.
type StockLevel struct {
	ProductID      string `json:"productId"`
	AvailableStock int64  `json:"availableStock"`
}

// ToPlaceOrderInput converts a transport submission into the application command.
func ToPlaceOrderInput(req SubmitOrderRequest, idempotencyKey string) types.PlaceOrderInput {
	lines := make([]domain.CartLine, 0, len(req.CartLines))
	for _, l := range req.CartLines {
		lines = append(lines, domain.CartLine{ProductID: l.ProductID, Quantity: l.Quantity, UnitPrice: l.UnitPrice})
	}
	return types.PlaceOrderInput{
		Buyer: domain.BuyerInfo{
			FullName:    req.BuyerInfo.FullName,
			CompanyName: req.BuyerInfo.CompanyName,
			Email:       req.BuyerInfo.Email,
			Phone:       req.BuyerInfo.Phone,
		},
		Lines:          lines,
		ClaimedTotal:   req.ClaimedTotal,
		IdempotencyKey: idempotencyKey,
	}
}

// FromDomainOrder converts a domain order to the transport representation.
func FromDomainOrder(order *domain.Order) Order {
	if order == nil {
		return Order{}
	}
	lines := make([]OrderLine, 0, len(order.Lines))
	for _, l := range order.Lines {
		lines = append(lines, OrderLine{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			Subtotal:  l.Subtotal(),
		})
	}
	return Order{
		ID: order.ID,
		BuyerInfo: BuyerInfo{
			FullName:    order.Buyer.FullName,
			CompanyName: order.Buyer.CompanyName,
			Email:       order.Buyer.Email,
			Phone:       order.Buyer.Phone,
		},
		TotalAmount: order.TotalAmount,
		Status:      string(order.Status),
		CreatedAt:   order.CreatedAt,
		UpdatedAt:   order.UpdatedAt,
		Lines:       lines,
	}
}

// FromDomainOrders converts a listing.
func FromDomainOrders(orders []*domain.Order) []Order {
	out := make([]Order, 0, len(orders))
	for _, o := range orders {
		out = append(out, FromDomainOrder(o))
	}
	return out
}
