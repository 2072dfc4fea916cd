package temporal

import (
	"log/slog"

	"go.opentelemetry.io/otel/trace"
	"go.temporal.io/sdk/client"
	temporalotel "go.temporal.io/sdk/contrib/opentelemetry"
	workerlog "go.temporal.io/sdk/log"
)

// Dial connects to Temporal with slog logging and OpenTelemetry tracing.
// metrics may be nil, which leaves the SDK's no-op handler in place.
func Dial(address, namespace string, logger *slog.Logger, tracer trace.Tracer, metrics client.MetricsHandler) (client.Client, error) {
	if address == "" {
		address = client.DefaultHostPort
	}
	if namespace == "" {
		namespace = client.DefaultNamespace
	}
	tracingInterceptor, err := temporalotel.NewTracingInterceptor(temporalotel.TracerOptions{Tracer: tracer})
	if err != nil {
		return nil, err
	}
	options := client.Options{
		HostPort:       address,
		Namespace:      namespace,
		MetricsHandler: metrics,
	}
	if logger != nil {
		options.Logger = workerlog.NewStructuredLogger(logger)
	}
	options.Interceptors = append(options.Interceptors, tracingInterceptor)
	return client.Dial(options)
}
