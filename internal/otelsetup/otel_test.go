package otelsetup

import (
	"context"
	"testing"
)

func TestSetupFromEnvDisabledReturnsWorkingNoopTracer(t *testing.T) {
	rt, err := SetupFromEnv("ai3-test", false)
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	if rt.Tracer == nil {
		t.Fatal("expected a non-nil no-op tracer")
	}
	_, span := rt.Tracer.Start(context.Background(), "test-span")
	span.End()

	if err := rt.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestSetupFromEnvEnabledUsesStdoutExporterByDefault(t *testing.T) {
	t.Setenv("TRACE_ENDPOINT", "")
	rt, err := SetupFromEnv("ai3-test", true)
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	if rt.Tracer == nil {
		t.Fatal("expected a non-nil tracer")
	}
	_, span := rt.Tracer.Start(context.Background(), "test-span")
	span.End()

	if err := rt.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}
