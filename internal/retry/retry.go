// Package retry implements the bounded backoff loop and per-model circuit
// breaker shared by Provider Adapters (§4.4) and the Router's pre-filter
// (§4.3), grounded on the teacher's internal/retry.
package retry

import (
	"context"
	"math/rand"
	"time"
)

// BackoffStrategy names a delay curve between attempts.
type BackoffStrategy string

const (
	BackoffLinear             BackoffStrategy = "linear"
	BackoffExponential        BackoffStrategy = "exponential"
	BackoffExponentialJitter  BackoffStrategy = "exponential_jitter"
)

// Policy configures Execute. Base defaults to 100ms; adapters (§4.4) set
// Base=250ms, Strategy=exponential, MaxAttempts=3.
type Policy struct {
	MaxAttempts int
	Base        time.Duration
	Strategy    BackoffStrategy
	// Retryable, if set, decides whether a given error should be retried
	// at all. A nil Retryable retries every error until attempts run out.
	Retryable func(error) bool
}

// Execute runs fn up to policy.MaxAttempts times, honoring ctx
// cancellation between attempts.
func Execute(ctx context.Context, policy Policy, fn func(context.Context) error) error {
	attempts := policy.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for i := 1; i <= attempts; i++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		if policy.Retryable != nil && !policy.Retryable(err) {
			return lastErr
		}
		if i == attempts {
			return lastErr
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(BackoffDuration(policy.Strategy, policy.Base, i)):
		}
	}
	return lastErr
}

// BackoffDuration computes the delay before the given attempt number
// (1-indexed) under strategy, with base defaulting to 100ms when zero.
func BackoffDuration(strategy BackoffStrategy, base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	switch strategy {
	case BackoffExponential:
		return base * time.Duration(1<<uint(attempt-1))
	case BackoffExponentialJitter:
		exp := base * time.Duration(1<<uint(attempt-1))
		jitter := time.Duration(rand.Int63n(int64(base)))
		return exp + jitter
	default:
		return base * time.Duration(attempt)
	}
}
