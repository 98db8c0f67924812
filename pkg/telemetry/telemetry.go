// Package telemetry configures OpenTelemetry tracing for the install
// pipeline. Tracing is off unless enabled in config; the global no-op
// provider is used otherwise.
package telemetry

import (
	"context"
	"io"

	"github.com/arthur-debert/dopkg/pkg/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

// ServiceName identifies dopkg spans
const ServiceName = "dopkg"

// ShutdownFunc flushes and stops the tracer provider
type ShutdownFunc func(context.Context) error

// InitTracer installs a tracer provider that writes spans as JSON to w.
func InitTracer(ctx context.Context, w io.Writer, version string) ShutdownFunc {
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
	if err != nil {
		logger := logging.GetLogger("telemetry")
		logger.Warn().Err(err).Msg("telemetry exporter init failed")
		return func(context.Context) error { return nil }
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(ServiceName),
			semconv.ServiceVersion(version),
		)),
	)

	otel.SetTracerProvider(provider)

	return provider.Shutdown
}

// Tracer returns the pipeline tracer from the global provider
func Tracer() trace.Tracer {
	return otel.Tracer("github.com/arthur-debert/dopkg")
}
