package metrics

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestPrometheusRecorderAndEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewPrometheusRecorder(reg)
	if err != nil {
		t.Fatalf("new prometheus recorder: %v", err)
	}

	rec.ObserveInvocation("claude-3-5-sonnet-latest", "success", 10*time.Millisecond)
	rec.ObserveRetry("claude-3-5-sonnet-latest")
	rec.ObserveCircuitOpen("claude-3-5-sonnet-latest")

	srv, err := StartPrometheusServer("127.0.0.1:0", reg)
	if err != nil {
		t.Fatalf("start metrics server: %v", err)
	}
	defer func() { _ = StopServer(context.Background(), srv) }()

	resp, err := http.Get("http://" + srv.Addr)
	if err != nil {
		t.Fatalf("GET metrics endpoint: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read metrics body: %v", err)
	}
	text := string(body)
	if !strings.Contains(text, "ai3_scheduler_invocations_total") {
		t.Fatalf("missing invocations metric: %s", text)
	}
	if !strings.Contains(text, "ai3_scheduler_circuit_breaks_total") {
		t.Fatalf("missing circuit metric: %s", text)
	}
}
