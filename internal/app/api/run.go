package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	ordershttp "github.com/Apurer/loyalty-checkout/internal/domains/orders/adapters/http/handlers"
	ordersobs "github.com/Apurer/loyalty-checkout/internal/domains/orders/adapters/observability"
	ordersworkflows "github.com/Apurer/loyalty-checkout/internal/domains/orders/adapters/workflows"
	ordersapp "github.com/Apurer/loyalty-checkout/internal/domains/orders/application"
	ordersports "github.com/Apurer/loyalty-checkout/internal/domains/orders/ports"
	platformobservability "github.com/Apurer/loyalty-checkout/internal/platform/observability"
	platformtemporal "github.com/Apurer/loyalty-checkout/internal/platform/temporal"
)

const shutdownTimeout = 10 * time.Second

// Run boots the checkout HTTP API with observability, stores, and workflows
// wired, and serves until ctx is cancelled.
func Run(ctx context.Context) error {
	const serviceName = "checkout-api"
	cfg, err := LoadConfig()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	instruments, shutdown, err := platformobservability.Init(ctx, serviceName)
	if err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			instruments.Logger.Error("failed to shutdown observability", slog.String("error", err.Error()))
		}
	}()
	logger := instruments.Logger

	backends, cleanup, err := BuildBackends(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	meter := instruments.Meter("internal.orders.application")
	backends.Events = ordersobs.NewEventPublisher(backends.Events, meter)
	service := ordersobs.New(
		ordersapp.NewService(backends.Orders, backends.Stock, backends.ServiceOptions(cfg, logger)...),
		ordersobs.WithLogger(logger),
		ordersobs.WithTracer(instruments.Tracer("internal.orders.application")),
		ordersobs.WithMeter(meter),
	)

	var placement ordersports.PlacementOrchestrator = ordersworkflows.NewInlinePlacement(service)
	if cfg.TemporalDisabled {
		logger.Warn("Temporal disabled via TEMPORAL_DISABLED, placing orders inline")
	} else if reason := backends.InlinePlacementReason(cfg); reason != "" {
		logger.Warn("Temporal workers cannot share in-memory state, placing orders inline", slog.String("reason", reason))
	} else if temporalClient, err := platformtemporal.Dial(cfg.TemporalAddress, cfg.TemporalNamespace, logger, instruments.Tracer("temporal-client"), instruments.TemporalMetricsHandler()); err != nil {
		logger.Warn("Temporal workflows unavailable, placing orders inline", slog.String("error", err.Error()))
	} else {
		defer temporalClient.Close()
		placement = ordersworkflows.NewTemporalPlacement(temporalClient)
		logger.Info("Temporal workflows enabled", slog.String("namespace", cfg.TemporalNamespace))
	}

	router := ordershttp.NewRouter(ordershttp.NewOrdersAPI(service, placement), otelgin.Middleware(serviceName))
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("checkout API listening", slog.String("addr", server.Addr))
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		logger.Error("checkout API server exited", slog.String("addr", server.Addr), slog.String("error", err.Error()))
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	logger.Info("checkout API shutting down")
	return server.Shutdown(shutdownCtx)
}
