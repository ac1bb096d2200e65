package retry

import (
	"testing"
	"time"
)

func TestCircuitBreakerDisabledByDefault(t *testing.T) {
	cb := NewCircuitBreaker()
	policy := CircuitBreakerPolicy{}

	for i := 0; i < 10; i++ {
		cb.RecordFailure("model-a", policy, time.Now())
	}
	if !cb.Allow("model-a", policy, time.Now()) {
		t.Fatal("expected disabled breaker (zero FailureThreshold) to always allow")
	}
	if cb.IsOpen("model-a", time.Now()) {
		t.Fatal("expected disabled breaker to never report open")
	}
}

func TestCircuitBreakerOpensAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker()
	policy := CircuitBreakerPolicy{FailureThreshold: 3, ResetTimeout: time.Minute}
	now := time.Now()

	for i := 0; i < 3; i++ {
		cb.RecordFailure("model-a", policy, now)
	}

	if cb.Allow("model-a", policy, now) {
		t.Fatal("expected breaker to reject after threshold failures")
	}
	if !cb.IsOpen("model-a", now) {
		t.Fatal("expected IsOpen to report true while within reset timeout")
	}
}

func TestCircuitBreakerHalfOpensAfterResetTimeout(t *testing.T) {
	cb := NewCircuitBreaker()
	policy := CircuitBreakerPolicy{FailureThreshold: 1, ResetTimeout: time.Second}
	now := time.Now()

	cb.RecordFailure("model-a", policy, now)
	if cb.Allow("model-a", policy, now) {
		t.Fatal("expected breaker open immediately after threshold trip")
	}

	later := now.Add(2 * time.Second)
	if !cb.Allow("model-a", policy, later) {
		t.Fatal("expected breaker to half-open and allow a trial request after reset timeout")
	}
}

func TestCircuitBreakerRecordSuccessClearsFailures(t *testing.T) {
	cb := NewCircuitBreaker()
	policy := CircuitBreakerPolicy{FailureThreshold: 3, ResetTimeout: time.Minute}
	now := time.Now()

	cb.RecordFailure("model-a", policy, now)
	cb.RecordFailure("model-a", policy, now)
	cb.RecordSuccess("model-a")
	cb.RecordFailure("model-a", policy, now)

	if cb.IsOpen("model-a", now) {
		t.Fatal("expected success to reset the failure count, breaker should still be closed")
	}
}

func TestIsOpenDoesNotHalfOpen(t *testing.T) {
	cb := NewCircuitBreaker()
	policy := CircuitBreakerPolicy{FailureThreshold: 1, ResetTimeout: time.Second}
	now := time.Now()

	cb.RecordFailure("model-a", policy, now)
	later := now.Add(2 * time.Second)

	if !cb.IsOpen("model-a", now) {
		t.Fatal("expected breaker open right after trip")
	}
	if cb.IsOpen("model-a", later) {
		t.Fatal("expected IsOpen to report closed once reset timeout has elapsed")
	}
}
