package retry

import (
	"sync"
	"time"
)

// CircuitBreakerPolicy configures a CircuitBreaker's per-key behavior. A
// non-positive FailureThreshold disables the breaker entirely (Allow
// always returns true) — this is the Router's default (§4.3: additive
// robustness, off unless configured).
type CircuitBreakerPolicy struct {
	FailureThreshold int
	ResetTimeout     time.Duration
}

// CircuitBreaker maintains per-key (model id or provider id) breaker
// state, grounded on the teacher's internal/retry.CircuitBreaker.
type CircuitBreaker struct {
	mu     sync.Mutex
	states map[string]circuitState
}

type circuitState struct {
	consecutiveFailures int
	openUntil           time.Time
}

func NewCircuitBreaker() *CircuitBreaker {
	return &CircuitBreaker{states: make(map[string]circuitState)}
}

func (cb *CircuitBreaker) Allow(key string, policy CircuitBreakerPolicy, now time.Time) bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if policy.FailureThreshold <= 0 {
		return true
	}

	s := cb.states[key]
	if s.openUntil.IsZero() {
		return true
	}
	if now.Before(s.openUntil) {
		return false
	}

	// Half-open transition: allow a trial request and reset counters.
	s.openUntil = time.Time{}
	s.consecutiveFailures = 0
	cb.states[key] = s
	return true
}

func (cb *CircuitBreaker) RecordSuccess(key string) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	s := cb.states[key]
	s.consecutiveFailures = 0
	s.openUntil = time.Time{}
	cb.states[key] = s
}

func (cb *CircuitBreaker) RecordFailure(key string, policy CircuitBreakerPolicy, now time.Time) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if policy.FailureThreshold <= 0 {
		return
	}
	if policy.ResetTimeout <= 0 {
		policy.ResetTimeout = 60 * time.Second
	}

	s := cb.states[key]
	s.consecutiveFailures++
	if s.consecutiveFailures >= policy.FailureThreshold {
		s.openUntil = now.Add(policy.ResetTimeout)
		s.consecutiveFailures = 0
	}
	cb.states[key] = s
}

// IsOpen reports whether key is currently in the open (rejecting) state,
// without the half-open side effect Allow has. Used by the Router to
// filter candidates without consuming the trial slot.
func (cb *CircuitBreaker) IsOpen(key string, now time.Time) bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	s, ok := cb.states[key]
	if !ok || s.openUntil.IsZero() {
		return false
	}
	return now.Before(s.openUntil)
}
