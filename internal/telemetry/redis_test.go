package telemetry

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedisBackend(t *testing.T) *RedisBackend {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRedisBackendFromClient(client, "test")
}

func TestRedisBackendRoundTrip(t *testing.T) {
	b := newTestRedisBackend(t)
	r := NewRecorder(b)
	ctx := context.Background()

	if err := r.Observe(ctx, Record{ModelID: "m1", Success: true, LatencyMs: 50, TokensIn: 10, TokensOut: 20}); err != nil {
		t.Fatalf("observe: %v", err)
	}
	if err := r.Observe(ctx, Record{ModelID: "m1", Success: false, LatencyMs: 150}); err != nil {
		t.Fatalf("observe: %v", err)
	}

	w, err := r.Window(ctx, "m1")
	if err != nil {
		t.Fatalf("window: %v", err)
	}
	if w.Attempts != 2 || w.Successes != 1 || w.Errors != 1 {
		t.Fatalf("unexpected counters: %+v", w)
	}
	if w.AvgLatencyMs != 100 {
		t.Fatalf("expected avg latency 100, got %v", w.AvgLatencyMs)
	}
}
