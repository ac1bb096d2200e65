package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestExecuteSucceedsWithoutRetry(t *testing.T) {
	calls := 0
	err := Execute(context.Background(), Policy{MaxAttempts: 3, Base: time.Millisecond}, func(context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected exactly one call, got %d", calls)
	}
}

func TestExecuteRetriesUntilSuccess(t *testing.T) {
	calls := 0
	err := Execute(context.Background(), Policy{MaxAttempts: 3, Base: time.Millisecond}, func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestExecuteReturnsLastErrorAfterExhaustingAttempts(t *testing.T) {
	calls := 0
	wantErr := errors.New("permanent failure")
	err := Execute(context.Background(), Policy{MaxAttempts: 2, Base: time.Millisecond}, func(context.Context) error {
		calls++
		return wantErr
	})
	if err != wantErr {
		t.Fatalf("expected wantErr, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 attempts, got %d", calls)
	}
}

func TestExecuteHonorsRetryablePredicate(t *testing.T) {
	calls := 0
	wantErr := errors.New("non-retryable")
	err := Execute(context.Background(), Policy{
		MaxAttempts: 5,
		Base:        time.Millisecond,
		Retryable:   func(error) bool { return false },
	}, func(context.Context) error {
		calls++
		return wantErr
	})
	if err != wantErr {
		t.Fatalf("expected wantErr, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected retryable=false to stop after one attempt, got %d calls", calls)
	}
}

func TestExecuteStopsOnContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()

	err := Execute(ctx, Policy{MaxAttempts: 100, Base: 50 * time.Millisecond}, func(context.Context) error {
		calls++
		return errors.New("keep failing")
	})
	if err == nil {
		t.Fatal("expected an error once the context was cancelled")
	}
	if calls >= 100 {
		t.Fatalf("expected cancellation to cut the loop short, got %d calls", calls)
	}
}

func TestBackoffDurationExponentialGrows(t *testing.T) {
	d1 := BackoffDuration(BackoffExponential, 100*time.Millisecond, 1)
	d2 := BackoffDuration(BackoffExponential, 100*time.Millisecond, 2)
	d3 := BackoffDuration(BackoffExponential, 100*time.Millisecond, 3)

	if d1 != 100*time.Millisecond {
		t.Fatalf("unexpected first backoff: %v", d1)
	}
	if d2 <= d1 || d3 <= d2 {
		t.Fatalf("expected exponential growth, got %v -> %v -> %v", d1, d2, d3)
	}
}

func TestBackoffDurationLinear(t *testing.T) {
	d2 := BackoffDuration(BackoffLinear, 50*time.Millisecond, 2)
	if d2 != 100*time.Millisecond {
		t.Fatalf("expected linear backoff of 2x base, got %v", d2)
	}
}
