package telemetry

import (
	"context"
	"testing"
	"time"
)

func TestMemoryBackendLaplaceSmoothing(t *testing.T) {
	b := NewMemoryBackend()
	r := NewRecorder(b)
	ctx := context.Background()

	w, err := r.Window(ctx, "unseen-model")
	if err != nil {
		t.Fatalf("window: %v", err)
	}
	if w.HasSamples {
		t.Fatal("expected no samples for unseen model")
	}
	if got := w.SuccessRate(); got != 0.5 {
		t.Fatalf("expected 0.5 success rate with Laplace smoothing, got %v", got)
	}

	for i := 0; i < 3; i++ {
		if err := r.Observe(ctx, Record{ModelID: "m1", Success: true, LatencyMs: 100}); err != nil {
			t.Fatalf("observe: %v", err)
		}
	}
	if err := r.Observe(ctx, Record{ModelID: "m1", Success: false, LatencyMs: 200}); err != nil {
		t.Fatalf("observe: %v", err)
	}

	w, err = r.Window(ctx, "m1")
	if err != nil {
		t.Fatalf("window: %v", err)
	}
	if w.Attempts != 4 || w.Successes != 3 || w.Errors != 1 {
		t.Fatalf("unexpected counters: %+v", w)
	}
	if got, want := w.SuccessRate(), 4.0/6.0; got != want {
		t.Fatalf("success rate = %v, want %v", got, want)
	}
}

func TestMemoryBackendCountersAgeOutWithTheSampleWindow(t *testing.T) {
	b := NewMemoryBackend()
	r := NewRecorder(b)
	ctx := context.Background()

	old := time.Now().Add(-48 * time.Hour)
	if err := b.Append(ctx, Record{ModelID: "m1", Success: false, At: old}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := b.Append(ctx, Record{ModelID: "m1", Success: true, At: time.Now()}); err != nil {
		t.Fatalf("append: %v", err)
	}

	w, err := r.Window(ctx, "m1")
	if err != nil {
		t.Fatalf("window: %v", err)
	}
	// The 48h-old failure has aged out of the 24h window, so it no longer
	// drags down Attempts/Errors — a model that failed badly once, long
	// ago, is not permanently penalized.
	if w.Attempts != 1 || w.Successes != 1 || w.Errors != 0 {
		t.Fatalf("expected only the recent sample to count, got %+v", w)
	}
}
