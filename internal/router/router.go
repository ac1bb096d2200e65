// Package router implements the Router (spec.md §4.3): scored provider
// selection over the Capability Registry's candidates. Distinct from the
// Scheduler's execution engine (internal/scheduler), which the teacher
// called "router" — this package is new scoring logic, pre-filtered by a
// reused internal/retry.CircuitBreaker.
package router

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/your-org/ai3/internal/capability"
	"github.com/your-org/ai3/internal/retry"
	"github.com/your-org/ai3/pkg/types"
)

// Scored is one candidate binding with its computed score, in the order
// the Router returns them (lowest index = best).
type Scored struct {
	ModelID    string
	ProviderID string
	Score      float64
}

// Router scores candidates per spec.md §4.3. Disabled by default (no
// breaker ever opens) so it never silently changes §8 Testable
// Properties; callers that want pre-filtering call RecordOutcome after
// each attempt.
type Router struct {
	registry *capability.Registry
	breaker  *retry.CircuitBreaker
	policy   retry.CircuitBreakerPolicy
}

func New(registry *capability.Registry, policy retry.CircuitBreakerPolicy) *Router {
	return &Router{registry: registry, breaker: retry.NewCircuitBreaker(), policy: policy}
}

// RecordOutcome feeds the pre-filter breaker; it does not write to
// Telemetry (the Scheduler does that separately via capability.Registry).
func (r *Router) RecordOutcome(modelID string, success bool) {
	if success {
		r.breaker.RecordSuccess(modelID)
	} else {
		r.breaker.RecordFailure(modelID, r.policy, time.Now())
	}
}

// Route returns an ordered list of candidate bindings for task, best
// first. A routing override pins the top choice without removing other
// candidates (spec.md §4.3).
func (r *Router) Route(ctx context.Context, task types.Task) ([]Scored, error) {
	candidates, err := r.registry.Candidates(ctx, task)
	if err != nil {
		return nil, err
	}

	admissible := make([]capability.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if r.breaker.IsOpen(c.Descriptor.ModelID, time.Now()) {
			continue
		}
		if !coversFeatures(c.Descriptor, task.RequiredFeatures) {
			continue
		}
		if c.Descriptor.ContextWindow < task.MinContextTokens {
			continue
		}
		admissible = append(admissible, c)
	}
	if len(admissible) == 0 {
		return nil, &types.RouteError{TaskID: task.ID, Message: "no candidate covers required features/context window"}
	}

	maxCost := maxCostPer1kInput(admissible)
	maxLatency := maxAvgLatency(admissible)

	scored := make([]Scored, 0, len(admissible))
	for _, c := range admissible {
		s := score(task, c, maxCost, maxLatency)
		scored = append(scored, Scored{ModelID: c.Descriptor.ModelID, ProviderID: c.Descriptor.ProviderID, Score: s})
	}

	costByModel := make(map[string]float64, len(admissible))
	for _, c := range admissible {
		costByModel[c.Descriptor.ModelID] = c.Descriptor.CostPer1kInput
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		if costByModel[scored[i].ModelID] != costByModel[scored[j].ModelID] {
			return costByModel[scored[i].ModelID] < costByModel[scored[j].ModelID]
		}
		return scored[i].ModelID < scored[j].ModelID
	})

	if override, ok := r.registry.Override(task.Kind); ok {
		pinToFront(scored, override)
	}

	return scored, nil
}

func coversFeatures(m types.ModelDescriptor, required []types.Feature) bool {
	for _, f := range required {
		if !m.HasFeature(f) {
			return false
		}
	}
	return true
}

func maxCostPer1kInput(cs []capability.Candidate) float64 {
	max := 0.0
	for _, c := range cs {
		if c.Descriptor.CostPer1kInput > max {
			max = c.Descriptor.CostPer1kInput
		}
	}
	return max
}

func maxAvgLatency(cs []capability.Candidate) float64 {
	max := 0.0
	for _, c := range cs {
		if c.Window.AvgLatencyMs > max {
			max = c.Window.AvgLatencyMs
		}
	}
	return max
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// score implements the exact weighted formula of spec.md §4.3.
func score(task types.Task, c capability.Candidate, maxCost, maxLatency float64) float64 {
	skill, ok := c.Descriptor.Skills[task.Kind]
	if !ok {
		skill = 0.5
	}

	successRate := c.Window.SuccessRate()
	if !c.Window.HasSamples {
		successRate = capability.NeutralSuccessRate
	}
	latNorm := 0.0
	if maxLatency > 0 {
		latNorm = clamp01(c.Window.AvgLatencyMs / maxLatency)
	}
	perf := 0.7*successRate + 0.3*(1-latNorm)

	costEff := 1.0
	if maxCost > 0 {
		costEff = 1 - clamp01(c.Descriptor.CostPer1kInput/maxCost)
	}

	minCtx := task.MinContextTokens
	if minCtx < 1 {
		minCtx = 1
	}
	contextFit := math.Min(1, float64(c.Descriptor.ContextWindow)/float64(minCtx))

	featDenom := len(task.RequiredFeatures)
	if featDenom < 1 {
		featDenom = 1
	}
	featMatch := 0
	for _, f := range task.RequiredFeatures {
		if c.Descriptor.HasFeature(f) {
			featMatch++
		}
	}
	feat := float64(featMatch) / float64(featDenom)

	return 0.50*skill + 0.20*perf + 0.15*costEff + 0.10*contextFit + 0.05*feat
}

func pinToFront(scored []Scored, modelID string) {
	idx := -1
	for i, s := range scored {
		if s.ModelID == modelID {
			idx = i
			break
		}
	}
	if idx <= 0 {
		return
	}
	pinned := scored[idx]
	copy(scored[1:idx+1], scored[0:idx])
	scored[0] = pinned
}
