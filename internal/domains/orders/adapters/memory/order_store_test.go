package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Apurer/loyalty-checkout/internal/domains/orders/domain"
	"github.com/Apurer/loyalty-checkout/internal/domains/orders/ports"
)

func newOrder(t *testing.T, id, email string, at time.Time) *domain.Order {
	t.Helper()
	order, err := domain.NewPendingOrder(id, domain.BuyerInfo{
		FullName:    "Ada Lovelace",
		CompanyName: "Engines Ltd",
		Email:       email,
	}, []domain.CartLine{{ProductID: "A", Quantity: 2, UnitPrice: 10}}, at)
	require.NoError(t, err)
	return order
}

func TestOrderStore_HeaderAndLines(t *testing.T) {
	ctx := context.Background()
	store := NewOrderStore()
	order := newOrder(t, "o-1", "ada@example.com", time.Now())

	require.NoError(t, store.CreateHeader(ctx, order))
	require.ErrorIs(t, store.CreateHeader(ctx, order), ErrDuplicateOrder)
	require.NoError(t, store.InsertLines(ctx, order.ID, order.Lines))

	got, err := store.GetByID(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, int64(20), got.TotalAmount)
	require.Len(t, got.Lines, 1)
	require.Equal(t, "o-1", got.Lines[0].OrderID)
}

func TestOrderStore_InsertLinesRequiresHeader(t *testing.T) {
	store := NewOrderStore()
	err := store.InsertLines(context.Background(), "missing", []domain.Line{{ProductID: "A", Quantity: 1}})
	require.ErrorIs(t, err, ports.ErrNotFound)
}

func TestOrderStore_DeleteHeaderCascades(t *testing.T) {
	ctx := context.Background()
	store := NewOrderStore()
	order := newOrder(t, "o-1", "ada@example.com", time.Now())
	require.NoError(t, store.CreateHeader(ctx, order))
	require.NoError(t, store.InsertLines(ctx, order.ID, order.Lines))

	require.NoError(t, store.DeleteHeader(ctx, order.ID))
	require.ErrorIs(t, store.DeleteHeader(ctx, order.ID), ports.ErrNotFound)
	require.NoError(t, store.DeleteLines(ctx, order.ID))

	_, err := store.GetByID(ctx, order.ID)
	require.ErrorIs(t, err, ports.ErrNotFound)
}

func TestOrderStore_ListFiltersAndPages(t *testing.T) {
	ctx := context.Background()
	store := NewOrderStore()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, email := range []string{"a@example.com", "b@example.com", "a@example.com"} {
		order := newOrder(t, string(rune('x'+i)), email, base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, store.CreateHeader(ctx, order))
	}
	_, err := store.TransitionStatus(ctx, "x", domain.StatusPending, domain.StatusCompleted)
	require.NoError(t, err)

	all, err := store.List(ctx, ports.OrderFilter{})
	require.NoError(t, err)
	require.Equal(t, []string{"z", "y", "x"}, ids(all))

	byEmail, err := store.List(ctx, ports.OrderFilter{Email: "A@example.com"})
	require.NoError(t, err)
	require.Equal(t, []string{"z", "x"}, ids(byEmail))

	pending, err := store.List(ctx, ports.OrderFilter{Status: domain.StatusPending, Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Equal(t, []string{"y"}, ids(pending))
}

func TestOrderStore_TransitionIsConditional(t *testing.T) {
	ctx := context.Background()
	store := NewOrderStore()
	require.NoError(t, store.CreateHeader(ctx, newOrder(t, "o-1", "ada@example.com", time.Now())))

	changed, err := store.TransitionStatus(ctx, "o-1", domain.StatusPending, domain.StatusCompleted)
	require.NoError(t, err)
	require.True(t, changed)

	changed, err = store.TransitionStatus(ctx, "o-1", domain.StatusPending, domain.StatusCompleted)
	require.NoError(t, err)
	require.False(t, changed)

	_, err = store.TransitionStatus(ctx, "missing", domain.StatusPending, domain.StatusCompleted)
	require.ErrorIs(t, err, ports.ErrNotFound)
}

func ids(orders []*domain.Order) []string {
	out := make([]string, 0, len(orders))
	for _, o := range orders {
		out = append(out, o.ID)
	}
	return out
}
