// Package engine wires Planner, Scheduler (Router+Adapters+Verifier),
// Assembler and Journal into the two entry points callers actually use:
// Run (aggregate) and RunStream (SSE-shaped event channel). Grounded on
// the teacher's internal/app.RunManifestReport for the overall
// manifest-load -> execute -> persist shape, generalized from a fixed
// manifest pipeline to a Planner-produced TaskGraph.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/your-org/ai3/internal/assembler"
	"github.com/your-org/ai3/internal/audit"
	"github.com/your-org/ai3/internal/capability"
	"github.com/your-org/ai3/internal/channel"
	"github.com/your-org/ai3/internal/config"
	"github.com/your-org/ai3/internal/journal"
	"github.com/your-org/ai3/internal/metrics"
	"github.com/your-org/ai3/internal/otelsetup"
	"github.com/your-org/ai3/internal/planner"
	"github.com/your-org/ai3/internal/retry"
	"github.com/your-org/ai3/internal/router"
	"github.com/your-org/ai3/internal/scheduler"
	"github.com/your-org/ai3/internal/state"
	"github.com/your-org/ai3/internal/telemetry"
	"github.com/your-org/ai3/internal/verifier"
	"github.com/your-org/ai3/pkg/adapters"
	"github.com/your-org/ai3/pkg/types"
)

// Engine is one fully wired instance: a Planner, Scheduler and Assembler
// sharing a Capability Registry and model catalog, plus Journal/audit
// sinks. Safe for concurrent Run/RunStream calls.
type Engine struct {
	cfg       config.RunConfig
	planner   *planner.Planner
	scheduler *scheduler.Scheduler
	assembler *assembler.Assembler
	journal   *journal.Journal
	audit     *audit.Logger
	otel      otelsetup.Runtime
	metrics   *metrics.InMemoryRecorder

	// PromRegistry is non-nil when cfg.MetricsEnabled; the cmd/ai3 serve
	// command passes it to metrics.StartPrometheusServer.
	PromRegistry *prometheus.Registry

	repairLimit int
}

// Dependencies are the already-constructed building blocks New wires
// together; callers assemble them from config.RunConfig (the cmd/ai3
// CLI does this; pkg/sdk forwards the ones its embedder supplies).
type Dependencies struct {
	Providers  *adapters.Registry
	Catalog    config.ModelCatalog
	PlannerLLM adapters.Provider
	Journal    *journal.Journal
}

// New builds an Engine from cfg and dependencies, wiring OTel tracing
// (TRACE_ENABLED), an in-memory metrics recorder always plus Prometheus
// when METRICS_ENABLED, and an audit logger when AI3_AUDIT_LOG_PATH is
// set.
func New(cfg config.RunConfig, deps Dependencies) (*Engine, error) {
	otelRuntime, err := otelsetup.SetupFromEnv("ai3-engine", cfg.TraceEnabled)
	if err != nil {
		return nil, fmt.Errorf("engine: otel setup: %w", err)
	}

	telBackend, err := newTelemetryBackend(cfg)
	if err != nil {
		return nil, err
	}
	rec := telemetry.NewRecorder(telBackend)
	registry := capability.New(deps.Catalog, rec)
	r := router.New(registry, retry.CircuitBreakerPolicy{})

	var checker verifier.CriterionChecker
	if cfg.VerifierModel != "" {
		checker = verifier.LLMRubricChecker{Provider: deps.PlannerLLM, Model: cfg.VerifierModel}
	}
	v := verifier.New(checker)

	sched := scheduler.New(r, registry, deps.Providers, v, scheduler.Options{
		GlobalMax:      cfg.MaxConcurrency,
		PerProviderMax: cfg.MaxConcurrencyPerProvider,
		AttemptTimeout: cfg.AttemptTimeout,
		Verify:         cfg.Verify,
		MaxTokens:      cfg.PlannerMaxTokens,
		Temperature:    cfg.PlannerTemperature,
	})
	sched.SetTracer(otelRuntime.Tracer)

	inMem := metrics.NewInMemoryRecorder()
	var promRegistry *prometheus.Registry
	sched.SetMetrics(inMem)
	if cfg.MetricsEnabled {
		promRegistry = prometheus.NewRegistry()
		if promRec, err := metrics.NewPrometheusRecorder(promRegistry); err == nil {
			sched.SetMetrics(metrics.NewMultiRecorder(inMem, promRec))
		}
	}

	p := planner.New(deps.PlannerLLM, cfg.PlannerModel, cfg.PlannerMaxTokens, cfg.PlannerTemperature)
	asm := assembler.New(deps.PlannerLLM, cfg.VerifierModel)

	repairLimit := cfg.RepairLimit
	if repairLimit < 0 {
		repairLimit = 0
	}

	return &Engine{
		cfg:          cfg,
		planner:      p,
		scheduler:    sched,
		assembler:    asm,
		journal:      deps.Journal,
		audit:        audit.NewLogger(cfg.AuditLogPath),
		otel:         otelRuntime,
		metrics:      inMem,
		PromRegistry: promRegistry,
		repairLimit:  repairLimit,
	}, nil
}

// newTelemetryBackend picks the Telemetry Recorder's storage strategy:
// in-memory by default, Redis when AI3_TELEMETRY_BACKEND=redis so that
// telemetry survives process restarts and is shared across replicas.
func newTelemetryBackend(cfg config.RunConfig) (telemetry.Backend, error) {
	if cfg.TelemetryBackend == "redis" {
		backend, err := telemetry.NewRedisBackend(cfg.RedisURL, "ai3")
		if err != nil {
			return nil, fmt.Errorf("engine: redis telemetry backend: %w", err)
		}
		return backend, nil
	}
	return telemetry.NewMemoryBackend(), nil
}

// Shutdown releases the OTel exporters. It does not close the Journal.
func (e *Engine) Shutdown(ctx context.Context) error {
	if e.otel.Shutdown != nil {
		_ = e.otel.Shutdown(ctx)
	}
	return nil
}

// Run plans, schedules and assembles prompt to completion, persisting a
// RunTrace and returning the final Response.
func (e *Engine) Run(ctx context.Context, prompt string) (types.Response, types.RunTrace, error) {
	events := channel.NewBufferedResultChannel[types.Event](e.cfg.EventBuffer)
	drained := make(chan struct{})
	go func() {
		for range events {
		}
		close(drained)
	}()

	resp, tr, err := e.run(ctx, prompt, events)
	<-drained
	return resp, tr, err
}

// RunStream behaves like Run but returns the live event channel for the
// caller to forward (e.g. as SSE); the caller must drain it to
// completion. The final Response/RunTrace arrive asynchronously via the
// returned channel's "final" event plus the done channel's result.
func (e *Engine) RunStream(ctx context.Context, prompt string) (<-chan types.Event, <-chan RunOutcome) {
	events := channel.NewBufferedResultChannel[types.Event](e.cfg.EventBuffer)
	outcome := make(chan RunOutcome, 1)

	go func() {
		resp, tr, err := e.run(ctx, prompt, events)
		outcome <- RunOutcome{Response: resp, Trace: tr, Err: err}
		close(outcome)
	}()

	return events, outcome
}

// RunOutcome is RunStream's terminal result, delivered once events has
// been fully drained.
type RunOutcome struct {
	Response types.Response
	Trace    types.RunTrace
	Err      error
}

func (e *Engine) run(ctx context.Context, prompt string, events chan types.Event) (types.Response, types.RunTrace, error) {
	runID := journal.NewRunID(time.Now())
	ctx = state.ToContext(ctx, state.Snapshot{RunID: runID})
	e.writeAudit("engine", "run.start", runID, "started", nil)

	g, err := e.planner.Plan(ctx, prompt)
	if err != nil {
		close(events)
		e.writeAudit("engine", "run.plan", runID, "failed", err)
		return types.Response{}, types.RunTrace{}, &types.RunError{Kind: types.RunErrorConfiguration, Message: "planning failed", Cause: err}
	}
	clampRepairBudgets(g, e.repairLimit)
	defer close(events)
	events <- types.Event{Kind: types.EventPlan, Payload: planPayload(g)}

	// Scheduler.Run closes the channel it is given, so it gets its own
	// channel, forwarded onto events, which stays open for final/stats.
	schedEvents := make(chan types.Event, cap(events))
	forwarded := make(chan struct{})
	go func() {
		for ev := range schedEvents {
			events <- ev
		}
		close(forwarded)
	}()
	result, err := e.scheduler.Run(ctx, g, schedEvents)
	<-forwarded
	if err != nil {
		e.writeAudit("engine", "run.schedule", runID, "failed", err)
		return types.Response{}, types.RunTrace{}, &types.RunError{Kind: types.RunErrorConfiguration, Message: "scheduling failed", Cause: err}
	}

	terminalIDs := g.TerminalIDs()
	terminals, missingIDs, allTerminalsDone := collectTerminals(g, result, terminalIDs)

	if result.Cancelled && !allTerminalsDone {
		e.writeAudit("engine", "run.cancel", runID, "cancelled", nil)
		kind := types.RunErrorCancelled
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			kind = types.RunErrorTimeout
		}
		return types.Response{}, types.RunTrace{}, &types.RunError{Kind: kind, Message: "run cancelled before all terminal tasks completed", PerTaskCause: failReasons(result)}
	}

	if len(terminals) == 0 {
		e.writeAudit("engine", "run.assemble", runID, "failed", nil)
		return types.Response{}, types.RunTrace{}, &types.RunError{Kind: types.RunErrorAllCandidatesFailed, Message: "no terminal task produced a verified artifact", PerTaskCause: failReasons(result)}
	}

	resp, err := e.assembler.Assemble(ctx, terminals)
	if err != nil {
		e.writeAudit("engine", "run.assemble", runID, "failed", err)
		return types.Response{}, types.RunTrace{}, &types.RunError{Kind: types.RunErrorConfiguration, Message: "assembly failed", Cause: err}
	}
	if len(missingIDs) > 0 {
		resp.Warnings = warningsForMissing(missingIDs, result)
	}
	finalPlan := *g
	finalPlan.Tasks = append([]types.Task(nil), g.Tasks...)

	tr := types.RunTrace{
		RunID:         runID,
		Prompt:        prompt,
		Plan:          finalPlan,
		Artifacts:     result.Artifacts,
		Verifications: result.Verdicts,
		FinalResponse: resp,
		Stats:         result.Stats,
		Timestamp:     time.Now(),
	}

	events <- types.Event{Kind: types.EventFinal, Payload: types.FinalPayload{Content: resp.Content, Confidence: resp.Confidence, RunID: runID}}
	events <- types.Event{Kind: types.EventStats, Payload: result.Stats}

	if e.journal != nil {
		if err := e.journal.Save(ctx, tr); err != nil {
			e.writeAudit("engine", "run.persist", runID, "failed", err)
		}
	}
	e.writeAudit("engine", "run.finish", runID, "ok", nil)

	return resp, tr, nil
}

func (e *Engine) writeAudit(actor, action, resource, status string, err error) {
	if e.audit == nil || !e.audit.Enabled() {
		return
	}
	_ = e.audit.Write(actor, action, resource, status, err)
}

// clampRepairBudgets caps every task's planner-assigned RepairBudget at
// limit (AI3_REPAIR_LIMIT); a limit of 0 disables repair entirely while
// still letting a task reach fallback.
func clampRepairBudgets(g *types.TaskGraph, limit int) {
	for i := range g.Tasks {
		if g.Tasks[i].RepairBudget > limit {
			g.Tasks[i].RepairBudget = limit
		}
	}
}

func planPayload(g *types.TaskGraph) types.PlanPayload {
	ids := make([]string, 0, len(g.Tasks))
	for _, t := range g.Tasks {
		ids = append(ids, t.ID)
	}
	return types.PlanPayload{TaskCount: len(g.Tasks), TaskIDs: ids}
}

func failReasons(result *scheduler.RunResult) map[string]string {
	out := make(map[string]string)
	for id, o := range result.Outcomes {
		if o.State == scheduler.StateFailed {
			out[id] = o.FailReason
		}
	}
	return out
}

// collectTerminals builds the Assembler's Terminal list from whichever
// terminal tasks reached done; missingIDs lists every terminal task id
// that did not, and allTerminalsDone reports whether missingIDs is empty.
func collectTerminals(g *types.TaskGraph, result *scheduler.RunResult, terminalIDs []string) ([]assembler.Terminal, []string, bool) {
	byID := g.ByID()
	levelOf := make(map[string]int)
	for level, ids := range result.Built.Levels {
		for _, id := range ids {
			levelOf[id] = level
		}
	}

	var out []assembler.Terminal
	var missing []string
	for _, id := range terminalIDs {
		outcome, ok := result.Outcomes[id]
		if !ok || outcome.State != scheduler.StateDone || outcome.Artifact == nil || outcome.Verdict == nil {
			missing = append(missing, id)
			continue
		}
		task := byID[id]
		if task == nil {
			continue
		}
		out = append(out, assembler.Terminal{
			Task:     *task,
			Artifact: *outcome.Artifact,
			Verdict:  *outcome.Verdict,
			Level:    levelOf[id],
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Level != out[j].Level {
			return out[i].Level < out[j].Level
		}
		return out[i].Task.ID < out[j].Task.ID
	})

	return out, missing, len(missing) == 0
}

// warningsForMissing renders one warning per terminal task that never
// reached a verified state, carried on Response.Warnings so a caller
// assembling from a partial terminal set can see what was dropped.
func warningsForMissing(ids []string, result *scheduler.RunResult) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		reason := "did not complete"
		if o, ok := result.Outcomes[id]; ok && o.FailReason != "" {
			reason = o.FailReason
		}
		out = append(out, fmt.Sprintf("task %s did not contribute to the response: %s", id, reason))
	}
	return out
}
