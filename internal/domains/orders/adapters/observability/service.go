package observability

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/Apurer/loyalty-checkout/internal/domains/orders/application"
	"github.com/Apurer/loyalty-checkout/internal/domains/orders/application/types"
	"github.com/Apurer/loyalty-checkout/internal/domains/orders/domain"
	"github.com/Apurer/loyalty-checkout/internal/domains/orders/ports"
)

const tracerName = "github.com/Apurer/loyalty-checkout/internal/domains/orders/adapters/observability/service"

// Service decorates the orders service with tracing, logging, and metrics.
// Completed and cancelled transitions are counted by EventPublisher.
type Service struct {
	inner   ports.Service
	tracer  trace.Tracer
	logger  *slog.Logger
	metrics serviceMetrics
}

type Option func(*Service)

// WithLogger injects a slog logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithTracer injects a tracer implementation.
func WithTracer(tr trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tr
	}
}

// WithMeter injects the meter used to create service metrics instruments.
func WithMeter(m metric.Meter) Option {
	return func(s *Service) {
		s.metrics = newServiceMetrics(m)
	}
}

// New wraps the core orders service.
func New(inner ports.Service, opts ...Option) ports.Service {
	s := &Service{
		inner:   inner,
		tracer:  nooptrace.NewTracerProvider().Tracer(tracerName),
		logger:  defaultLogger(),
		metrics: newServiceMetrics(nil),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.tracer == nil {
		s.tracer = nooptrace.NewTracerProvider().Tracer(tracerName)
	}
	if s.logger == nil {
		s.logger = defaultLogger()
	}
	return s
}

func (s *Service) PlaceOrder(ctx context.Context, input types.PlaceOrderInput) (*types.PlaceOrderResult, error) {
	ctx, span := s.tracer.Start(ctx, "OrdersService.PlaceOrder",
		trace.WithAttributes(attribute.Int("order.line_count", len(input.Lines))))
	defer span.End()

	s.logInfo(ctx, "placing order", slog.Int("order.line_count", len(input.Lines)))
	result, err := s.inner.PlaceOrder(ctx, input)
	if err != nil {
		kind := application.KindOf(err)
		s.metrics.recordPlacementFailure(ctx, kind)
		span.SetAttributes(attribute.String("error.kind", string(kind)))
		return nil, s.handleError(ctx, span, err, "failed to place order", slog.String("error.kind", string(kind)))
	}
	span.SetAttributes(attribute.String("order.id", result.OrderID), attribute.Int64("order.total", result.TotalAmount))
	s.metrics.recordPlaced(ctx)
	s.logInfo(ctx, "order placed", slog.String("order.id", result.OrderID), slog.Int64("order.total", result.TotalAmount))
	return result, nil
}

func (s *Service) GetOrder(ctx context.Context, input types.OrderIdentifier) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrdersService.GetOrder", trace.WithAttributes(attribute.String("order.id", input.ID)))
	defer span.End()

	result, err := s.inner.GetOrder(ctx, input)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to load order", slog.String("order.id", input.ID))
	}
	return result, nil
}

func (s *Service) ListOrders(ctx context.Context, input types.ListOrdersInput) ([]*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrdersService.ListOrders", trace.WithAttributes(attribute.String("order.status", input.Status)))
	defer span.End()

	result, err := s.inner.ListOrders(ctx, input)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to list orders", slog.String("order.status", input.Status))
	}
	span.SetAttributes(attribute.Int("order.result.count", len(result)))
	return result, nil
}

func (s *Service) CompleteOrder(ctx context.Context, input types.OrderIdentifier) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrdersService.CompleteOrder", trace.WithAttributes(attribute.String("order.id", input.ID)))
	defer span.End()

	s.logInfo(ctx, "completing order", slog.String("order.id", input.ID))
	result, err := s.inner.CompleteOrder(ctx, input)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to complete order", slog.String("order.id", input.ID))
	}
	s.logInfo(ctx, "order completed", slog.String("order.id", result.ID))
	return result, nil
}

func (s *Service) CancelOrder(ctx context.Context, input types.OrderIdentifier) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrdersService.CancelOrder", trace.WithAttributes(attribute.String("order.id", input.ID)))
	defer span.End()

	s.logInfo(ctx, "cancelling order", slog.String("order.id", input.ID))
	result, err := s.inner.CancelOrder(ctx, input)
	if err != nil {
		// The order did move to cancelled; only its stock restore failed.
		var cfe *application.CompensationFailureError
		if errors.As(err, &cfe) {
			s.metrics.recordCancelled(ctx)
		}
		return nil, s.handleError(ctx, span, err, "failed to cancel order", slog.String("order.id", input.ID))
	}
	s.logInfo(ctx, "order cancelled", slog.String("order.id", result.ID))
	return result, nil
}

func (s *Service) StockLevel(ctx context.Context, productID string) (int64, error) {
	ctx, span := s.tracer.Start(ctx, "OrdersService.StockLevel", trace.WithAttributes(attribute.String("product.id", productID)))
	defer span.End()

	level, err := s.inner.StockLevel(ctx, productID)
	if err != nil {
		return 0, s.handleError(ctx, span, err, "failed to read stock", slog.String("product.id", productID))
	}
	span.SetAttributes(attribute.Int64("product.available_stock", level))
	return level, nil
}

func (s *Service) logInfo(ctx context.Context, msg string, attrs ...slog.Attr) {
	if s.logger == nil {
		return
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, msg, attrs...)
}

// handleError logs rejections of caller input at WARN and everything else at ERROR.
func (s *Service) handleError(ctx context.Context, span trace.Span, err error, msg string, attrs ...slog.Attr) error {
	if span != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	if s.logger == nil {
		return err
	}
	level := slog.LevelError
	switch application.KindOf(err) {
	case application.KindValidation, application.KindInsufficientStock, application.KindNotFound, application.KindInvalidTransition:
		level = slog.LevelWarn
	}
	attrs = append(attrs, slog.String("error", err.Error()))
	s.logger.LogAttrs(ctx, level, msg, attrs...)
	return err
}

type serviceMetrics struct {
	ordersPlaced      metric.Int64Counter
	placementFailures metric.Int64Counter
	ordersCompleted   metric.Int64Counter
	ordersCancelled   metric.Int64Counter
}

func newServiceMetrics(m metric.Meter) serviceMetrics {
	if m == nil {
		return serviceMetrics{}
	}
	ordersPlaced, _ := m.Int64Counter("orders.service.orders_placed", metric.WithDescription("Number of orders placed"))
	placementFailures, _ := m.Int64Counter("orders.service.placement_failures", metric.WithDescription("Number of failed order placements by error kind"))
	ordersCompleted, _ := m.Int64Counter("orders.service.orders_completed", metric.WithDescription("Number of orders marked completed"))
	ordersCancelled, _ := m.Int64Counter("orders.service.orders_cancelled", metric.WithDescription("Number of orders cancelled"))
	return serviceMetrics{
		ordersPlaced:      ordersPlaced,
		placementFailures: placementFailures,
		ordersCompleted:   ordersCompleted,
		ordersCancelled:   ordersCancelled,
	}
}

func (m serviceMetrics) recordPlaced(ctx context.Context) {
	if m.ordersPlaced != nil {
		m.ordersPlaced.Add(ctx, 1)
	}
}

func (m serviceMetrics) recordPlacementFailure(ctx context.Context, kind application.ErrorKind) {
	if m.placementFailures != nil {
		m.placementFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("error.kind", string(kind))))
	}
}

func (m serviceMetrics) recordCompleted(ctx context.Context) {
	if m.ordersCompleted != nil {
		m.ordersCompleted.Add(ctx, 1)
	}
}

func (m serviceMetrics) recordCancelled(ctx context.Context) {
	if m.ordersCancelled != nil {
		m.ordersCancelled.Add(ctx, 1)
	}
}

func defaultLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var _ ports.Service = (*Service)(nil)
