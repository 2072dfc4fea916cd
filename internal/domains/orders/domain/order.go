package domain

import (
	"errors"
	"math"
	"math/bits"
	"time"
)

// Status enumerates order progression.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

var (
	ErrInvalidStatus     = errors.New("order status is invalid")
	ErrInvalidTransition = errors.New("order status transition is not allowed")
	ErrAmountOutOfRange  = errors.New("order amount is out of range")
)

// BuyerInfo is the contact payload submitted with a cart.
type BuyerInfo struct {
	FullName    string `json:"fullName"`
	CompanyName string `json:"companyName"`
	Email       string `json:"email"`
	Phone       string `json:"phone,omitempty"`
}

// CartLine is a single cart entry as supplied by the storefront.
type CartLine struct {
	ProductID string `json:"productId"`
	Quantity  int64  `json:"quantity"`
	UnitPrice int64  `json:"unitPrice"`
}

// Line is an immutable order line owned by its order.
type Line struct {
	OrderID   string `json:"orderId"`
	ProductID string `json:"productId"`
	Quantity  int64  `json:"quantity"`
	UnitPrice int64  `json:"unitPrice"`
}

// Subtotal is quantity times unit price. Lines built by NewPendingOrder never
// overflow.
func (l Line) Subtotal() int64 {
	return l.Quantity * l.UnitPrice
}

// LineAmount multiplies quantity by unit price, failing instead of wrapping.
func LineAmount(quantity, unitPrice int64) (int64, error) {
	if quantity < 0 || unitPrice < 0 {
		return 0, ErrAmountOutOfRange
	}
	hi, lo := bits.Mul64(uint64(quantity), uint64(unitPrice))
	if hi != 0 || lo > math.MaxInt64 {
		return 0, ErrAmountOutOfRange
	}
	return int64(lo), nil
}

// AddAmount adds two non-negative amounts, failing instead of wrapping.
func AddAmount(a, b int64) (int64, error) {
	if a < 0 || b < 0 || a > math.MaxInt64-b {
		return 0, ErrAmountOutOfRange
	}
	return a + b, nil
}

// Order models the order header plus its lines.
type Order struct {
	ID          string    `json:"id"`
	Buyer       BuyerInfo `json:"buyer"`
	TotalAmount int64     `json:"totalAmount"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	Lines       []Line    `json:"lines,omitempty"`
}

// NewPendingOrder builds a pending order whose total is derived from its lines.
// It returns ErrAmountOutOfRange when a subtotal or the total does not fit in
// an int64.
func NewPendingOrder(id string, buyer BuyerInfo, cart []CartLine, now time.Time) (*Order, error) {
	lines := make([]Line, 0, len(cart))
	for _, c := range cart {
		lines = append(lines, Line{
			OrderID:   id,
			ProductID: c.ProductID,
			Quantity:  c.Quantity,
			UnitPrice: c.UnitPrice,
		})
	}
	total, err := Total(lines)
	if err != nil {
		return nil, err
	}
	return &Order{
		ID:          id,
		Buyer:       buyer,
		TotalAmount: total,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
		Lines:       lines,
	}, nil
}

// Total sums the line subtotals.
func Total(lines []Line) (int64, error) {
	var total int64
	for _, l := range lines {
		sub, err := LineAmount(l.Quantity, l.UnitPrice)
		if err != nil {
			return 0, err
		}
		if total, err = AddAmount(total, sub); err != nil {
			return 0, err
		}
	}
	return total, nil
}

// Header returns a copy of the order without its lines.
func (o *Order) Header() *Order {
	clone := *o
	clone.Lines = nil
	return &clone
}

// Clone returns a deep copy safe to hand to callers.
func (o *Order) Clone() *Order {
	clone := *o
	if o.Lines != nil {
		clone.Lines = append([]Line(nil), o.Lines...)
	}
	return &clone
}

// CanTransition reports whether moving from one status to another is allowed.
func CanTransition(from, to Status) bool {
	if from != StatusPending {
		return false
	}
	return to == StatusCompleted || to == StatusCancelled
}

// ParseStatus validates a raw status string.
func ParseStatus(raw string) (Status, error) {
	switch s := Status(raw); s {
	case StatusPending, StatusCompleted, StatusCancelled:
		return s, nil
	default:
		return "", ErrInvalidStatus
	}
}
