// Package telemetry implements the Telemetry Recorder (spec.md §4.8): a
// rolling 24h window of per-model execution outcomes that feeds the
// Router and the Capability Registry. Grounded on the teacher's
// internal/metrics for the Recorder-interface shape and on
// internal/coordinator/redis.go for the optional Redis-backed storage.
package telemetry

import (
	"context"
	"time"

	"github.com/your-org/ai3/pkg/types"
)

// Window is the rolling horizon samples age out of on read.
const Window = 24 * time.Hour

// Record is one execution outcome reported to the Recorder.
type Record struct {
	ModelID   string
	Success   bool
	LatencyMs float64
	TokensIn  int
	TokensOut int
	Cost      float64
	At        time.Time
}

// Backend is the storage strategy behind a Recorder: in-memory (default)
// or Redis-backed (AI3_TELEMETRY_BACKEND=redis).
type Backend interface {
	Append(ctx context.Context, r Record) error
	Window(ctx context.Context, modelID string, now time.Time) (types.TelemetryWindow, error)
}

// Recorder is the process-wide telemetry sink. Writes take a short
// exclusive lock (memory backend) or a Redis round trip; reads never
// block execution (spec.md §4.2).
type Recorder struct {
	backend Backend
}

func NewRecorder(b Backend) *Recorder {
	return &Recorder{backend: b}
}

// Observe reports one execution outcome. Telemetry updates for a binding
// happen-before any subsequent Router query for the same model (§5).
func (r *Recorder) Observe(ctx context.Context, rec Record) error {
	if rec.At.IsZero() {
		rec.At = time.Now()
	}
	return r.backend.Append(ctx, rec)
}

// Window returns the model's rolling-window aggregate: Attempts,
// Successes, Errors, the latency average and the token/cost totals are all computed
// over the same set of samples still inside Window as of now, so a model
// that failed badly once, long ago, is not penalized forever.
func (r *Recorder) Window(ctx context.Context, modelID string) (types.TelemetryWindow, error) {
	return r.backend.Window(ctx, modelID, time.Now())
}
