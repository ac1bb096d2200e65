// Package sdk is the public embedding surface over the Engine: a Go
// program that wants to run prompts through AI3 without shelling out to
// the ai3 CLI imports this package rather than internal/engine, which Go
// would refuse to let it import from outside this module anyway.
// Grounded on the teacher's pkg/sdk/sdk.go Runtime wrapper, generalized
// from an AgentFunc registry + ExecutionPlan surface to a Planner-driven
// prompt-in/Response-out surface.
package sdk

import (
	"context"

	"github.com/your-org/ai3/internal/config"
	"github.com/your-org/ai3/internal/engine"
	"github.com/your-org/ai3/internal/journal"
	"github.com/your-org/ai3/pkg/adapters"
	"github.com/your-org/ai3/pkg/types"
)

// Dependencies are the external collaborators a Runtime needs: a set of
// registered Provider adapters, the model catalog they serve, which
// provider backs the Planner/Verifier/Assembler LLM calls, and where
// finished runs get journaled.
type Dependencies struct {
	Providers  *adapters.Registry
	Catalog    config.ModelCatalog
	PlannerLLM adapters.Provider
	Journal    *journal.Journal
}

// Runtime provides public API access over the internal execution
// engine.
type Runtime struct {
	eng *engine.Engine
}

// NewRuntime wires a Runtime from cfg and deps, the same construction
// internal/engine.New does for cmd/ai3 — any embedder gets the same
// Planner/Router/Scheduler/Assembler wiring the CLI does.
func NewRuntime(cfg config.RunConfig, deps Dependencies) (*Runtime, error) {
	eng, err := engine.New(cfg, engine.Dependencies{
		Providers:  deps.Providers,
		Catalog:    deps.Catalog,
		PlannerLLM: deps.PlannerLLM,
		Journal:    deps.Journal,
	})
	if err != nil {
		return nil, err
	}
	return &Runtime{eng: eng}, nil
}

// Run executes prompt to completion and returns the assembled Response
// together with the full RunTrace.
func (r *Runtime) Run(ctx context.Context, prompt string) (types.Response, types.RunTrace, error) {
	return r.eng.Run(ctx, prompt)
}

// RunOutcome is RunStream's terminal result, delivered once after events
// stops producing.
type RunOutcome struct {
	Response types.Response
	Trace    types.RunTrace
	Err      error
}

// RunStream executes prompt, emitting Events on the returned channel as
// the Planner, Scheduler and Assembler produce them; outcome receives
// exactly one RunOutcome once the run reaches a terminal state.
func (r *Runtime) RunStream(ctx context.Context, prompt string) (<-chan types.Event, <-chan RunOutcome) {
	events, engineOutcome := r.eng.RunStream(ctx, prompt)
	outcome := make(chan RunOutcome, 1)
	go func() {
		o := <-engineOutcome
		outcome <- RunOutcome{Response: o.Response, Trace: o.Trace, Err: o.Err}
		close(outcome)
	}()
	return events, outcome
}

// Shutdown releases resources (OpenTelemetry exporters, etc.) the
// Runtime opened on construction.
func (r *Runtime) Shutdown(ctx context.Context) error {
	return r.eng.Shutdown(ctx)
}
