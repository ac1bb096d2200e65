package metrics

import (
	"sync"
	"time"
)

// ModelStats is one model's accumulated counters in an InMemoryRecorder
// snapshot.
type ModelStats struct {
	Successes int64
	Errors    int64
	Retries   int64
}

// Snapshot is a point-in-time read of an InMemoryRecorder.
type Snapshot struct {
	TotalInvocations  int64
	ErrorInvocations  int64
	RetryAttempts     int64
	ByModel           map[string]ModelStats
}

// InMemoryRecorder is the always-on default Recorder (Prometheus is
// layered on top via MultiRecorder when METRICS_ENABLED=true), grounded
// on the atomic-counter style of Promptonauts-Pipe's observability
// package.
type InMemoryRecorder struct {
	mu      sync.Mutex
	byModel map[string]*ModelStats
}

func NewInMemoryRecorder() *InMemoryRecorder {
	return &InMemoryRecorder{byModel: make(map[string]*ModelStats)}
}

func (r *InMemoryRecorder) ObserveInvocation(modelID string, status string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.statsFor(modelID)
	if status == "success" {
		s.Successes++
	} else {
		s.Errors++
	}
}

func (r *InMemoryRecorder) ObserveRetry(modelID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statsFor(modelID).Retries++
}

func (r *InMemoryRecorder) ObserveCircuitOpen(string) {}

func (r *InMemoryRecorder) statsFor(modelID string) *ModelStats {
	s, ok := r.byModel[modelID]
	if !ok {
		s = &ModelStats{}
		r.byModel[modelID] = s
	}
	return s
}

// Snapshot returns a deep copy of the accumulated counters.
func (r *InMemoryRecorder) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := Snapshot{ByModel: make(map[string]ModelStats, len(r.byModel))}
	for modelID, s := range r.byModel {
		snap.TotalInvocations += s.Successes + s.Errors
		snap.ErrorInvocations += s.Errors
		snap.RetryAttempts += s.Retries
		snap.ByModel[modelID] = *s
	}
	return snap
}
