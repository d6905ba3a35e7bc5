// Package telemetry installs the OpenTelemetry tracer provider that exports
// the Bedrock client's spans.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// ServiceName is reported as the service.name resource attribute.
const ServiceName = "bedrock-demo"

// Shutdown flushes and stops the tracer provider.
type Shutdown func(context.Context) error

// Setup exports spans over OTLP/HTTP to endpoint (host:port, no scheme). An
// empty endpoint leaves the global no-op provider in place.
func Setup(ctx context.Context, endpoint string, opts ...otlptracehttp.Option) (Shutdown, error) {
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}

	exp, err := otlptracehttp.New(ctx, append([]otlptracehttp.Option{otlptracehttp.WithEndpoint(endpoint)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}
	return Install(sdktrace.WithBatcher(exp)), nil
}

// Install registers a tracer provider built with the given span processor
// options as the global provider.
func Install(opts ...sdktrace.TracerProviderOption) Shutdown {
	res := resource.NewSchemaless(attribute.String("service.name", ServiceName))
	tp := sdktrace.NewTracerProvider(append([]sdktrace.TracerProviderOption{sdktrace.WithResource(res)}, opts...)...)
	otel.SetTracerProvider(tp)
	return tp.Shutdown
}
