// Package tracing wires an optional OpenTelemetry exporter, grounded on the
// teacher's OTLP-over-gRPC provider. Tracing is inert (no-op tracer provider)
// unless OTEL_EXPORTER_OTLP_ENDPOINT is set, so neither binary requires a
// collector to start in development.
package tracing

import (
	"context"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Shutdown stops the tracer provider flushing any buffered spans.
type Shutdown func(context.Context) error

// Init installs a tracer provider for serviceName if OTEL_EXPORTER_OTLP_ENDPOINT is
// configured; otherwise it leaves the global no-op provider in place and returns a
// no-op shutdown func.
func Init(ctx context.Context, serviceName string) (Shutdown, error) {
	endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithEndpoint(endpoint), otlptracegrpc.WithInsecure())
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(serviceName)))
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}
