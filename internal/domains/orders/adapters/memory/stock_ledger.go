package memory

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/Apurer/loyalty-checkout/internal/domains/orders/ports"
)

var _ ports.StockLedger = (*StockLedger)(nil)

// StockLedger keeps one atomic counter per product. The map lock only guards
// the set of products; quantity changes go through compare-and-swap.
type StockLedger struct {
	mu       sync.RWMutex
	counters map[string]*atomic.Int64
}

func NewStockLedger() *StockLedger {
	return &StockLedger{counters: map[string]*atomic.Int64{}}
}

// Put seeds or overwrites the available quantity of a product.
func (l *StockLedger) Put(productID string, available int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	counter, ok := l.counters[productID]
	if !ok {
		counter = &atomic.Int64{}
		l.counters[productID] = counter
	}
	counter.Store(available)
}

func (l *StockLedger) TryDecrement(ctx context.Context, productID string, qty int64) (bool, error) {
	counter, err := l.counter(productID)
	if err != nil {
		return false, err
	}
	for {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		current := counter.Load()
		if current < qty {
			return false, nil
		}
		if counter.CompareAndSwap(current, current-qty) {
			return true, nil
		}
	}
}

func (l *StockLedger) CompensateIncrement(_ context.Context, productID string, qty int64) error {
	counter, err := l.counter(productID)
	if err != nil {
		return err
	}
	counter.Add(qty)
	return nil
}

func (l *StockLedger) Available(_ context.Context, productID string) (int64, error) {
	counter, err := l.counter(productID)
	if err != nil {
		return 0, err
	}
	return counter.Load(), nil
}

func (l *StockLedger) counter(productID string) (*atomic.Int64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	counter, ok := l.counters[productID]
	if !ok {
		return nil, ports.ErrProductNotFound
	}
	return counter, nil
}
