// Package telemetry wires the strategist's zap logger and, when
// OTLP_ENDPOINT is set, an OTLP gRPC trace exporter, matching the teacher's
// own e2esuite.TestSuite.logger *zap.Logger field (e2esuite/suite.go) wired
// into the chain factories it drives.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// NewLogger builds the process-wide *zap.Logger: zap's stock development
// config (console-encoded, debug level) when devMode is true, its stock
// production config (JSON-encoded, info level) otherwise. The returned
// logger is threaded by value through every client constructor and the
// orchestrator — never stored as a package-level global.
func NewLogger(devMode bool) (*zap.Logger, error) {
	if devMode {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// Shutdown flushes and stops a tracer provider started by NewTracerProvider.
type Shutdown func(ctx context.Context) error

// noopShutdown is returned when tracing is disabled, so callers can defer
// Shutdown(ctx) unconditionally.
func noopShutdown(context.Context) error { return nil }

// NewTracerProvider dials otlpEndpoint and registers a global OTEL tracer
// provider for the strategist, or returns a no-op tracer when otlpEndpoint
// is empty, per spec.md's OTLP_ENDPOINT env var: "Disabled (no-op tracer)
// when the env var is empty." No code in the module creates spans with the
// returned tracer: phase runs and chain-client calls are not traced.
func NewTracerProvider(ctx context.Context, otlpEndpoint, serviceName string) (trace.Tracer, Shutdown, error) {
	if otlpEndpoint == "" {
		return otel.Tracer(serviceName), noopShutdown, nil
	}

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(otlpEndpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("telemetry: dial otlp endpoint %s: %w", otlpEndpoint, err)
	}

	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(serviceName)))
	if err != nil {
		return nil, nil, fmt.Errorf("telemetry: build resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(provider)

	return provider.Tracer(serviceName), provider.Shutdown, nil
}
