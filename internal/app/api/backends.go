package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	ordersredis "github.com/Apurer/loyalty-checkout/internal/domains/orders/adapters/cache/redis"
	ordersmemory "github.com/Apurer/loyalty-checkout/internal/domains/orders/adapters/memory"
	"github.com/Apurer/loyalty-checkout/internal/domains/orders/adapters/messaging/rabbitmq"
	orderspostgres "github.com/Apurer/loyalty-checkout/internal/domains/orders/adapters/persistence/postgres"
	ordersapp "github.com/Apurer/loyalty-checkout/internal/domains/orders/application"
	"github.com/Apurer/loyalty-checkout/internal/domains/orders/ports"
	"github.com/Apurer/loyalty-checkout/internal/platform/migrations"
	platformpostgres "github.com/Apurer/loyalty-checkout/internal/platform/postgres"
	platformredis "github.com/Apurer/loyalty-checkout/internal/platform/redis"
)

// Backends holds the storage and messaging collaborators of the orders domain.
type Backends struct {
	Orders         ports.OrderStore
	Stock          ports.StockLedger
	Reconciliation ports.ReconciliationLog
	Events         ports.EventPublisher
	DB             *gorm.DB
}

// ServiceOptions returns the application options for these backends.
func (b *Backends) ServiceOptions(cfg Config, logger *slog.Logger) []ordersapp.Option {
	return []ordersapp.Option{
		ordersapp.WithLogger(logger),
		ordersapp.WithStepTimeout(cfg.StepTimeout),
		ordersapp.WithUnwindTimeout(cfg.UnwindTimeout),
		ordersapp.WithReconciliationLog(b.Reconciliation),
		ordersapp.WithEventPublisher(b.Events),
	}
}

// BuildBackends connects the configured stores. Orders fall back to memory
// when Postgres is unavailable; an explicitly selected stock backend must
// connect or the process fails to start.
func BuildBackends(ctx context.Context, cfg Config, logger *slog.Logger) (*Backends, func(), error) {
	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	b := &Backends{}
	db, closeDB := platformpostgres.ConnectOrFallback(ctx, cfg.PostgresDSN, logger)
	cleanups = append(cleanups, closeDB)
	if db != nil {
		if err := migrations.Run(db); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("migrate checkout schema: %w", err)
		}
		b.DB = db
		b.Orders = orderspostgres.NewOrderStore(db)
		b.Reconciliation = orderspostgres.NewReconciliationLog(db)
		logger.Info("order store configured with postgres")
	} else {
		b.Orders = ordersmemory.NewOrderStore()
		b.Reconciliation = ordersmemory.NewReconciliationLog()
	}

	switch cfg.StockBackend {
	case StockBackendPostgres:
		if db == nil {
			cleanup()
			return nil, nil, errors.New("stock backend postgres selected but postgres is unavailable")
		}
		b.Stock = orderspostgres.NewStockLedger(db)
	case StockBackendRedis:
		client, err := platformredis.Connect(ctx, cfg.RedisAddr)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("connect redis stock ledger: %w", err)
		}
		cleanups = append(cleanups, func() { _ = client.Close() })
		b.Stock = ordersredis.NewStockLedger(client, "")
	default:
		ledger := ordersmemory.NewStockLedger()
		for productID, available := range cfg.StockSeed {
			ledger.Put(productID, available)
		}
		b.Stock = ledger
	}
	if len(cfg.StockSeed) > 0 && cfg.StockBackend != StockBackendMemory {
		logger.Warn("STOCK_SEED ignored for persistent stock backend", slog.String("backend", cfg.StockBackend))
	}
	logger.Info("stock ledger configured", slog.String("backend", cfg.StockBackend), slog.Int("seeded_products", len(cfg.StockSeed)))

	eventLog := ordersmemory.NewEventLog()
	eventLog.WithLogger(logger)
	b.Events = eventLog
	if cfg.RabbitMQURL != "" {
		publisher, closePublisher, err := rabbitmq.Dial(cfg.RabbitMQURL, cfg.EventsExchange)
		if err != nil {
			logger.Warn("failed to connect to rabbitmq, recording order events in memory", slog.String("error", err.Error()))
		} else {
			cleanups = append(cleanups, func() { _ = closePublisher() })
			b.Events = publisher
			logger.Info("order events published to rabbitmq", slog.String("exchange", cfg.EventsExchange))
		}
	}
	return b, cleanup, nil
}

// InlinePlacementReason reports why orders must be placed in-process: a
// Temporal worker is a separate process, so it only sees the same orders
// and stock when both live in shared stores.
func (b *Backends) InlinePlacementReason(cfg Config) string {
	switch {
	case b.DB == nil:
		return "order store is in memory"
	case cfg.StockBackend == StockBackendMemory:
		return "stock ledger is in memory"
	default:
		return ""
	}
}
