package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/Apurer/loyalty-checkout/internal/app/api"
	ordersobs "github.com/Apurer/loyalty-checkout/internal/domains/orders/adapters/observability"
	ordersapp "github.com/Apurer/loyalty-checkout/internal/domains/orders/application"
	platformobservability "github.com/Apurer/loyalty-checkout/internal/platform/observability"
	platformtemporal "github.com/Apurer/loyalty-checkout/internal/platform/temporal"
	orderactivities "github.com/Apurer/loyalty-checkout/internal/platform/temporal/activities/orders"
	orderworkflows "github.com/Apurer/loyalty-checkout/internal/platform/temporal/workflows/orders"
)

func main() {
	ctx := context.Background()
	const serviceName = "checkout-worker"
	cfg, err := api.LoadConfig()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	instruments, shutdown, err := platformobservability.Init(ctx, serviceName)
	if err != nil {
		log.Fatalf("failed to initialize observability: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			instruments.Logger.Error("failed to shutdown observability", slog.String("error", err.Error()))
		}
	}()
	logger := instruments.Logger

	backends, cleanup, err := api.BuildBackends(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to build order backends", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer cleanup()
	if reason := backends.InlinePlacementReason(cfg); reason != "" {
		logger.Error("worker needs shared order and stock stores", slog.String("reason", reason))
		os.Exit(1)
	}
	meter := instruments.Meter("internal.orders.application")
	backends.Events = ordersobs.NewEventPublisher(backends.Events, meter)
	orderService := ordersobs.New(
		ordersapp.NewService(backends.Orders, backends.Stock, backends.ServiceOptions(cfg, logger)...),
		ordersobs.WithLogger(logger),
		ordersobs.WithTracer(instruments.Tracer("internal.orders.application")),
		ordersobs.WithMeter(meter),
	)
	orderActivities := orderactivities.NewActivities(orderService)

	temporalClient, err := platformtemporal.Dial(cfg.TemporalAddress, cfg.TemporalNamespace, logger, instruments.Tracer("temporal-worker"), instruments.TemporalMetricsHandler())
	if err != nil {
		logger.Error("failed to create Temporal client", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer temporalClient.Close()

	w := worker.New(temporalClient, orderworkflows.OrderPlacementTaskQueue, worker.Options{})
	w.RegisterWorkflowWithOptions(orderworkflows.OrderPlacementWorkflow, workflow.RegisterOptions{Name: orderworkflows.OrderPlacementWorkflowName})
	w.RegisterActivityWithOptions(orderActivities.PlaceOrder, activity.RegisterOptions{Name: orderactivities.PlaceOrderActivityName})

	logger.Info("worker listening", slog.String("taskQueue", orderworkflows.OrderPlacementTaskQueue), slog.String("namespace", cfg.TemporalNamespace))
	if err := w.Run(worker.InterruptCh()); err != nil {
		logger.Error("Temporal worker exited with error", slog.String("error", err.Error()))
		return
	}
	logger.Info("Temporal worker stopped")
}
