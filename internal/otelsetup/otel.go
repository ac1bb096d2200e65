// Package otelsetup wires an OpenTelemetry TracerProvider for the Engine,
// gated by TRACE_ENABLED (spec.md §6 ambient stack). Grounded on the
// teacher's internal/trace.SetupOTelFromEnv: same stdouttrace/otlpgrpc
// exporter choice, same env-gated no-op fallback.
package otelsetup

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// Runtime holds the initialized Tracer and its Shutdown hook.
type Runtime struct {
	Tracer   oteltrace.Tracer
	Shutdown func(context.Context) error
}

// SetupFromEnv initializes OpenTelemetry when TRACE_ENABLED is truthy;
// otherwise it returns a working no-op Tracer backed by otel's default
// global provider.
func SetupFromEnv(serviceName string, enabled bool) (Runtime, error) {
	noop := Runtime{
		Tracer:   otel.Tracer(serviceName),
		Shutdown: func(context.Context) error { return nil },
	}
	if !enabled {
		return noop, nil
	}

	ctx := context.Background()
	res, err := resource.New(ctx, resource.WithAttributes(attribute.String("service.name", serviceName)))
	if err != nil {
		return Runtime{}, fmt.Errorf("otelsetup: resource: %w", err)
	}

	var exp sdktrace.SpanExporter
	endpoint := strings.TrimSpace(os.Getenv("TRACE_ENDPOINT"))
	if endpoint != "" {
		exp, err = otlptracegrpc.New(ctx, otlptracegrpc.WithEndpoint(endpoint), otlptracegrpc.WithInsecure())
		if err != nil {
			return Runtime{}, fmt.Errorf("otelsetup: otlp exporter: %w", err)
		}
	} else {
		exp, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return Runtime{}, fmt.Errorf("otelsetup: stdout exporter: %w", err)
		}
	}

	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp), sdktrace.WithResource(res))
	otel.SetTracerProvider(tp)

	return Runtime{Tracer: tp.Tracer(serviceName), Shutdown: tp.Shutdown}, nil
}
