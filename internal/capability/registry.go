// Package capability implements the Capability Registry (spec.md §4.2): a
// static model-descriptor table merged with live Telemetry on every
// query, grounded on the teacher's internal/config.LoadManifest pattern
// and the pack's claude-workflow model_catalog.go role-tagged table.
package capability

import (
	"context"
	"sort"

	"github.com/your-org/ai3/internal/config"
	"github.com/your-org/ai3/internal/telemetry"
	"github.com/your-org/ai3/pkg/types"
)

// Registry never blocks execution: a model with zero telemetry samples
// gets a neutral prior (success=1.0, latency=median of known models)
// instead of Telemetry's own 0.5 Laplace default — spec.md §4.2's
// bring-up override.
type Registry struct {
	models    []types.ModelDescriptor
	overrides map[types.TaskKind]string
	telemetry *telemetry.Recorder
}

func New(catalog config.ModelCatalog, tel *telemetry.Recorder) *Registry {
	return &Registry{
		models:    catalog.Models,
		overrides: catalog.Overrides,
		telemetry: tel,
	}
}

// Candidate pairs a static ModelDescriptor with its live telemetry view.
type Candidate struct {
	Descriptor types.ModelDescriptor
	Window     types.TelemetryWindow
}

// Candidates returns every model descriptor joined with a live Telemetry
// read, without filtering by task requirements — the Router (§4.3) does
// the feature/context_window admission filtering and scoring.
func (reg *Registry) Candidates(ctx context.Context, _ types.Task) ([]Candidate, error) {
	out := make([]Candidate, 0, len(reg.models))
	medianLatency := reg.medianKnownLatency(ctx)

	for _, m := range reg.models {
		w, err := reg.telemetry.Window(ctx, m.ModelID)
		if err != nil {
			return nil, err
		}
		if !w.HasSamples {
			w.AvgLatencyMs = medianLatency
		}
		out = append(out, Candidate{Descriptor: m, Window: w})
	}
	return out, nil
}

// Descriptor looks up one model's static descriptor by id, for callers
// (the Scheduler) that need cost/context fields after routing already
// picked a candidate.
func (reg *Registry) Descriptor(modelID string) (types.ModelDescriptor, bool) {
	for _, m := range reg.models {
		if m.ModelID == modelID {
			return m, true
		}
	}
	return types.ModelDescriptor{}, false
}

// Override returns the pinned model id for a task kind, if any.
func (reg *Registry) Override(kind types.TaskKind) (string, bool) {
	m, ok := reg.overrides[kind]
	return m, ok
}

// Update forwards an execution outcome to Telemetry.
func (reg *Registry) Update(ctx context.Context, rec telemetry.Record) error {
	return reg.telemetry.Observe(ctx, rec)
}

func (reg *Registry) medianKnownLatency(ctx context.Context) float64 {
	var known []float64
	for _, m := range reg.models {
		w, err := reg.telemetry.Window(ctx, m.ModelID)
		if err == nil && w.HasSamples && w.AvgLatencyMs > 0 {
			known = append(known, w.AvgLatencyMs)
		}
	}
	if len(known) == 0 {
		return 0
	}
	sort.Float64s(known)
	mid := len(known) / 2
	if len(known)%2 == 1 {
		return known[mid]
	}
	return (known[mid-1] + known[mid]) / 2
}

// NeutralSuccessRate is the bring-up prior the Router substitutes for
// SuccessRate() when a candidate has zero telemetry samples.
const NeutralSuccessRate = 1.0
