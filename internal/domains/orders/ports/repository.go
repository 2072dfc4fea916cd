package ports

import (
	"context"
	"errors"

	"github.com/Apurer/loyalty-checkout/internal/domains/orders/domain"
)

var ErrNotFound = errors.New("order not found")

// OrderFilter narrows admin listings. Zero values match everything.
type OrderFilter struct {
	Status domain.Status
	Email  string
	Limit  int
	Offset int
}

// OrderStore persists order headers and their lines. Header and lines are
// separate writes; the store offers no transaction spanning both.
type OrderStore interface {
	// CreateHeader inserts the order header only; order.Lines is ignored.
	CreateHeader(ctx context.Context, order *domain.Order) error
	// InsertLines stores every line for the order in a single batched call.
	InsertLines(ctx context.Context, orderID string, lines []domain.Line) error
	// DeleteHeader removes the header, returning ErrNotFound when absent.
	DeleteHeader(ctx context.Context, orderID string) error
	// DeleteLines removes all lines of the order; deleting nothing is not an error.
	DeleteLines(ctx context.Context, orderID string) error
	GetByID(ctx context.Context, orderID string) (*domain.Order, error)
	List(ctx context.Context, filter OrderFilter) ([]*domain.Order, error)
	// TransitionStatus moves the order from one status to another only when it
	// currently holds `from`. It reports whether this call changed the row.
	TransitionStatus(ctx context.Context, orderID string, from, to domain.Status) (bool, error)
}
