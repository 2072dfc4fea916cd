package observability

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/resource"
)

func TestLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelInfo, logLevel(""))
	assert.Equal(t, slog.LevelInfo, logLevel("chatty"))
	assert.Equal(t, slog.LevelDebug, logLevel("debug"))
	assert.Equal(t, slog.LevelWarn, logLevel(" WARN "))
	assert.Equal(t, slog.LevelError, logLevel("error"))
}

func TestInstrumentsFallBackWithoutProviders(t *testing.T) {
	var instruments *Instruments
	assert.NotNil(t, instruments.Tracer("test"))
	assert.NotNil(t, instruments.Meter("test"))
	assert.NotNil(t, instruments.TemporalMetricsHandler())
}

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := map[string]metricdata.Aggregation{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func TestTemporalMetricsHandler_UsesSecondBuckets(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	instruments := &Instruments{MeterProvider: newMeterProvider(resource.Empty(), reader)}

	handler := instruments.TemporalMetricsHandler()
	handler.Timer("temporal_activity_execution_latency").Record(2 * time.Second)
	handler.Counter("temporal_request").Inc(1)

	data := collectMetrics(t, reader)
	hist, ok := data["temporal_activity_execution_latency"].(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, latencyBuckets, hist.DataPoints[0].Bounds)
	assert.InDelta(t, 2.0, hist.DataPoints[0].Sum, 0.001)
	assert.Contains(t, data, "temporal_request")
}

func TestMetricViews_KeepOnlyErrorKindOnPlacementFailures(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	meter := newMeterProvider(resource.Empty(), reader).Meter("test")
	failures, err := meter.Int64Counter("orders.service.placement_failures")
	require.NoError(t, err)

	failures.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("error.kind", "insufficient_stock"),
		attribute.String("buyer.email", "ada@example.com"),
	))

	sum, ok := collectMetrics(t, reader)["orders.service.placement_failures"].(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	attrs := sum.DataPoints[0].Attributes
	assert.Equal(t, 1, attrs.Len())
	kind, ok := attrs.Value("error.kind")
	require.True(t, ok)
	assert.Equal(t, "insufficient_stock", kind.AsString())
}
