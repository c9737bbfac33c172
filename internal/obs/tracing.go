package obs

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// ServiceName identifies this binary's spans in whatever backend
// receives them.
const ServiceName = "toolexecd"

// TracerProvider wraps the process tracer provider so callers can shut
// it down cleanly on exit.
type TracerProvider struct {
	tp *sdktrace.TracerProvider
}

// NewTracerProvider always creates an sdk/trace.TracerProvider. When
// OTEL_EXPORTER_OTLP_ENDPOINT is set it wires an otlptracegrpc exporter
// (instrumented with otelgrpc's stats handler); otherwise spans are
// still created and sampled but never exported off-process, which is
// intentionally inert rather than a literal no-op provider, keeping one
// tracer-provider code path instead of two.
func NewTracerProvider(ctx context.Context) (*TracerProvider, error) {
	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceName(ServiceName),
	))
	if err != nil {
		return nil, fmt.Errorf("obs: build resource: %w", err)
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
	}

	if endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); endpoint != "" {
		conn, err := grpc.NewClient(endpoint,
			grpc.WithTransportCredentials(insecure.NewCredentials()),
			grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
		)
		if err != nil {
			return nil, fmt.Errorf("obs: dial otlp collector: %w", err)
		}
		exp, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
		if err != nil {
			return nil, fmt.Errorf("obs: create otlp exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exp))
	}

	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	return &TracerProvider{tp: tp}, nil
}

// Shutdown flushes and stops the tracer provider, bounded by a short
// deadline so process exit is never blocked indefinitely.
func (t *TracerProvider) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return t.tp.Shutdown(ctx)
}

// Tracer returns the named tracer from the global provider.
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}
