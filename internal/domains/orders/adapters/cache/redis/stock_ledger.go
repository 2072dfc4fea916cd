package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	goredis "github.com/redis/go-redis/v9"

	"github.com/Apurer/loyalty-checkout/internal/domains/orders/ports"
)

var _ ports.StockLedger = (*StockLedger)(nil)

const DefaultKeyPrefix = "stock:"

// Both scripts run atomically on the server; no other command interleaves
// between the read and the write.
var (
	decrementScript = goredis.NewScript(`
local current = redis.call('GET', KEYS[1])
if not current then
  return -1
end
local qty = tonumber(ARGV[1])
if tonumber(current) < qty then
  return 0
end
redis.call('DECRBY', KEYS[1], qty)
return 1
`)

	incrementScript = goredis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return -1
end
return redis.call('INCRBY', KEYS[1], ARGV[1])
`)
)

// StockLedger keeps one integer key per product.
type StockLedger struct {
	client goredis.Cmdable
	prefix string
}

func NewStockLedger(client goredis.Cmdable, prefix string) *StockLedger {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &StockLedger{client: client, prefix: prefix}
}

func (l *StockLedger) TryDecrement(ctx context.Context, productID string, qty int64) (bool, error) {
	res, err := decrementScript.Run(ctx, l.client, []string{l.key(productID)}, qty).Int64()
	if err != nil {
		return false, fmt.Errorf("redis decrement %s: %w", productID, err)
	}
	switch res {
	case -1:
		return false, ports.ErrProductNotFound
	case 0:
		return false, nil
	default:
		return true, nil
	}
}

func (l *StockLedger) CompensateIncrement(ctx context.Context, productID string, qty int64) error {
	res, err := incrementScript.Run(ctx, l.client, []string{l.key(productID)}, qty).Int64()
	if err != nil {
		return fmt.Errorf("redis increment %s: %w", productID, err)
	}
	if res < 0 {
		return ports.ErrProductNotFound
	}
	return nil
}

func (l *StockLedger) Available(ctx context.Context, productID string) (int64, error) {
	raw, err := l.client.Get(ctx, l.key(productID)).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return 0, ports.ErrProductNotFound
		}
		return 0, err
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("stock for %s is not an integer: %w", productID, err)
	}
	return n, nil
}

// Put seeds or overwrites a product's stock.
func (l *StockLedger) Put(ctx context.Context, productID string, available int64) error {
	return l.client.Set(ctx, l.key(productID), available, 0).Err()
}

func (l *StockLedger) key(productID string) string {
	return l.prefix + productID
}
