package application

import (
	"context"
	"sync"

	"github.com/Apurer/loyalty-checkout/internal/domains/orders/adapters/memory"
	"github.com/Apurer/loyalty-checkout/internal/domains/orders/domain"
)

// faultyStore delegates to the memory store unless a hook is set.
type faultyStore struct {
	*memory.OrderStore

	mu           sync.Mutex
	createHook   func(ctx context.Context) error
	insertHook   func(ctx context.Context) error
	deleteHeader func(ctx context.Context) error
	createCalls  int
	deleteCalls  int
}

func newFaultyStore() *faultyStore {
	return &faultyStore{OrderStore: memory.NewOrderStore()}
}

func (s *faultyStore) CreateHeader(ctx context.Context, order *domain.Order) error {
	s.mu.Lock()
	s.createCalls++
	hook := s.createHook
	s.mu.Unlock()
	if hook != nil {
		if err := hook(ctx); err != nil {
			return err
		}
	}
	return s.OrderStore.CreateHeader(ctx, order)
}

func (s *faultyStore) InsertLines(ctx context.Context, orderID string, lines []domain.Line) error {
	if s.insertHook != nil {
		if err := s.insertHook(ctx); err != nil {
			return err
		}
	}
	return s.OrderStore.InsertLines(ctx, orderID, lines)
}

func (s *faultyStore) DeleteHeader(ctx context.Context, orderID string) error {
	s.mu.Lock()
	s.deleteCalls++
	s.mu.Unlock()
	if s.deleteHeader != nil {
		if err := s.deleteHeader(ctx); err != nil {
			return err
		}
	}
	return s.OrderStore.DeleteHeader(ctx, orderID)
}

// faultyLedger delegates to the memory ledger unless a per-product hook is set.
type faultyLedger struct {
	*memory.StockLedger

	mu             sync.Mutex
	decrementHooks map[string]func(ctx context.Context) (bool, error)
	incrementErrs  map[string]error
	decrementCalls int
	incrementCalls map[string]int
}

func newFaultyLedger(stock map[string]int64) *faultyLedger {
	l := &faultyLedger{
		StockLedger:    memory.NewStockLedger(),
		decrementHooks: map[string]func(context.Context) (bool, error){},
		incrementErrs:  map[string]error{},
		incrementCalls: map[string]int{},
	}
	for id, qty := range stock {
		l.Put(id, qty)
	}
	return l
}

func (l *faultyLedger) TryDecrement(ctx context.Context, productID string, qty int64) (bool, error) {
	l.mu.Lock()
	l.decrementCalls++
	hook := l.decrementHooks[productID]
	l.mu.Unlock()
	if hook != nil {
		return hook(ctx)
	}
	return l.StockLedger.TryDecrement(ctx, productID, qty)
}

func (l *faultyLedger) CompensateIncrement(ctx context.Context, productID string, qty int64) error {
	l.mu.Lock()
	l.incrementCalls[productID]++
	err := l.incrementErrs[productID]
	l.mu.Unlock()
	if err != nil {
		return err
	}
	return l.StockLedger.CompensateIncrement(ctx, productID, qty)
}

func (l *faultyLedger) level(productID string) int64 {
	n, err := l.Available(context.Background(), productID)
	if err != nil {
		return -1
	}
	return n
}
