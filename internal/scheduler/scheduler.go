// Package scheduler implements the Scheduler (spec.md §4.6): the
// dependency-driven dispatch loop that walks a TaskGraph, binds each task
// to a Router-ranked model, enforces global/per-provider concurrency
// caps, and drives the repair/fallback state machine to a terminal
// done/failed outcome per task. Grounded on the teacher's
// internal/router.Engine (RunPlan / executeLevel / executeNode / Kahn
// levels, bounded worker semaphore, panic-safe per-node execution)
// generalized from fixed-level batches to a per-task dependency wait so
// that repair attempts can be interleaved without re-leveling the graph.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/your-org/ai3/internal/capability"
	"github.com/your-org/ai3/internal/graph"
	"github.com/your-org/ai3/internal/metrics"
	"github.com/your-org/ai3/internal/router"
	"github.com/your-org/ai3/internal/telemetry"
	"github.com/your-org/ai3/internal/verifier"
	"github.com/your-org/ai3/pkg/adapters"
	"github.com/your-org/ai3/pkg/types"
)

// Options configures one Scheduler.
type Options struct {
	GlobalMax      int
	PerProviderMax int
	AttemptTimeout time.Duration
	Verify         bool
	MaxTokens      int
	Temperature    float64
}

// Scheduler runs one TaskGraph to completion.
type Scheduler struct {
	router    *router.Router
	registry  *capability.Registry
	providers *adapters.Registry
	verifier  *verifier.Verifier
	opts      Options

	tracer  oteltrace.Tracer
	metrics metrics.Recorder
}

func New(r *router.Router, registry *capability.Registry, providers *adapters.Registry, v *verifier.Verifier, opts Options) *Scheduler {
	if opts.AttemptTimeout <= 0 {
		opts.AttemptTimeout = 120 * time.Second
	}
	return &Scheduler{router: r, registry: registry, providers: providers, verifier: v, opts: opts, metrics: metrics.NoopRecorder{}}
}

// SetTracer installs an OpenTelemetry tracer used to wrap each attempt in
// a span; leave unset (or pass nil) to skip span creation entirely.
func (s *Scheduler) SetTracer(t oteltrace.Tracer) { s.tracer = t }

// SetMetrics installs the ambient invocation/retry/circuit-breaker
// metrics sink; defaults to metrics.NoopRecorder.
func (s *Scheduler) SetMetrics(m metrics.Recorder) {
	if m != nil {
		s.metrics = m
	}
}

// TaskOutcome is one task's final recorded state after Run returns.
type TaskOutcome struct {
	TaskID     string
	State      State
	FailReason string
	Artifact   *types.Artifact
	Verdict    *types.Verdict
	Repaired   bool
}

// RunResult is everything the Engine needs to build a Response and a
// RunTrace after Run returns.
type RunResult struct {
	Built     *graph.Built
	Synthetic []types.Task
	Outcomes  map[string]TaskOutcome
	Artifacts []types.Artifact
	Verdicts  []types.Verdict
	Stats     types.RunStats
	Cancelled bool
}

// Run dispatches every task in g to completion, emitting events onto
// events as it goes, and closes events once every task has reached a
// terminal state (or ctx was cancelled and every in-flight attempt has
// unwound). Per-task failure is reported through RunResult.Outcomes; the
// caller (Engine) decides whether that adds up to a *types.RunError. Run
// itself returns an error only when g does not build into a valid graph
// (events is closed at once) or when a task hit a run-fatal
// authentication/configuration error.
func (s *Scheduler) Run(ctx context.Context, g *types.TaskGraph, events chan types.Event) (*RunResult, error) {
	built, err := graph.Build(g)
	if err != nil {
		close(events)
		return nil, err
	}

	start := time.Now()
	cnt := newCounters(s.opts.GlobalMax, s.opts.PerProviderMax)
	rc := newRunContext(g, built, cnt, events)

	runCtx, abort := context.WithCancel(ctx)
	rc.abortFn = abort
	defer abort()

	var wg sync.WaitGroup
	for _, t := range g.Tasks {
		wg.Add(1)
		go func(taskID string) {
			defer wg.Done()
			s.runTask(runCtx, rc, taskID)
		}(t.ID)
	}
	wg.Wait()
	close(events)

	if fatalErr := rc.fatal(); fatalErr != nil {
		return nil, fatalErr
	}

	outcomes := make(map[string]TaskOutcome, len(g.Tasks))
	snaps := rc.snapshotAll()
	tasksExecuted, tasksRepaired, tasksFailed := 0, 0, 0
	for id, snap := range snaps {
		outcomes[id] = TaskOutcome{
			TaskID:     id,
			State:      snap.state,
			FailReason: snap.reason,
			Artifact:   snap.artifact,
			Verdict:    snap.verdict,
			Repaired:   snap.repaired,
		}
		switch snap.state {
		case StateDone:
			tasksExecuted++
		case StateFailed:
			tasksFailed++
		}
		if snap.repaired {
			tasksRepaired++
		}
	}

	artifacts := rc.allArtifacts()
	var tokensIn, tokensOut int64
	var cost float64
	for _, a := range artifacts {
		tokensIn += int64(a.InputTokens)
		tokensOut += int64(a.OutputTokens)
		if desc, ok := s.registry.Descriptor(a.Binding.ModelID); ok {
			cost += desc.CostPer1kInput*float64(a.InputTokens)/1000 + desc.CostPer1kOutput*float64(a.OutputTokens)/1000
		}
	}

	return &RunResult{
		Built:     rc.finalBuilt(),
		Synthetic: rc.syntheticNodes(),
		Outcomes:  outcomes,
		Artifacts: artifacts,
		Verdicts:  rc.allVerdicts(),
		Stats: types.RunStats{
			WallTimeMs:    time.Since(start).Milliseconds(),
			TokensIn:      tokensIn,
			TokensOut:     tokensOut,
			Cost:          cost,
			TasksExecuted: tasksExecuted,
			TasksRepaired: tasksRepaired,
			TasksFailed:   tasksFailed,
		},
		Cancelled: ctx.Err() != nil,
	}, nil
}

// runTask waits for task's dependencies, routes it, and drives the
// attempt/verify/repair/fallback loop until it reaches done or failed.
func (s *Scheduler) runTask(ctx context.Context, rc *runContext, taskID string) {
	defer close(rc.finished[taskID])

	task := rc.tasks[taskID]

	for _, dep := range task.Inputs {
		select {
		case <-rc.finished[dep]:
		case <-ctx.Done():
			rc.markFailed(taskID, "Cancelled")
			return
		}
		if !rc.isSucceeded(dep) {
			rc.markFailed(taskID, fmt.Sprintf("upstream dependency failed: %s", dep))
			return
		}
	}

	select {
	case <-ctx.Done():
		rc.markFailed(taskID, "Cancelled")
		return
	default:
	}

	rc.setState(taskID, StateReady)

	candidates, err := s.router.Route(ctx, *task)
	if err != nil {
		rc.markFailed(taskID, err.Error())
		return
	}

	maxAttempts := len(candidates) + task.RepairBudget
	repairBudget := task.RepairBudget
	attempts := 0

	basePrompt, baseRefs := rc.buildPrompt(task)

	for candidateIdx := 0; candidateIdx < len(candidates); candidateIdx++ {
		cand := candidates[candidateIdx]
		provider, ok := s.providers.Get(cand.ProviderID)
		if !ok {
			continue
		}

		if err := rc.counters.acquire(ctx, cand.ProviderID); err != nil {
			rc.markFailed(taskID, "Cancelled")
			return
		}

		var lastArtifact types.Artifact
		var lastVerdict types.Verdict
		haveArtifact := false
		pendingRepairID := ""

		for {
			if attempts >= maxAttempts {
				rc.counters.release(cand.ProviderID)
				rc.markFailed(taskID, "max attempts exceeded")
				return
			}
			attemptIdx := attempts
			attempts++

			promptText, refs := basePrompt, baseRefs
			if haveArtifact {
				promptText = repairPromptFor(lastArtifact.Content, lastVerdict.FailureReasons)
			}

			binding := types.Binding{TaskID: taskID, ModelID: cand.ModelID, ProviderID: cand.ProviderID, AttemptIndex: attemptIdx}
			rc.setState(taskID, StateRunning)
			rc.emitDecision(taskID, cand.ModelID, candidateIdx)
			rc.emitTaskStart(taskID)

			artifact, provErr := s.executeBinding(ctx, provider, task, binding, promptText, refs)
			if provErr != nil {
				s.router.RecordOutcome(cand.ModelID, false)
				_ = s.registry.Update(ctx, telemetry.Record{ModelID: cand.ModelID, Success: false, LatencyMs: artifact.LatencyMs})
				rc.counters.release(cand.ProviderID)
				if provErr.IsPermanent() {
					// Only AuthFailed is run-fatal: bad credentials or a
					// disabled model won't work on any candidate, so there
					// is nothing fallback could fix.
					rc.setFatal(&types.RunError{
						Kind:    types.RunErrorConfiguration,
						Message: fmt.Sprintf("model %s: authentication/configuration error (%s)", cand.ModelID, provErr.Kind),
						Cause:   provErr,
					})
					rc.markFailed(taskID, provErr.Error())
					return
				}
				// Transient, RateLimited, Timeout, and plain Permanent
				// (e.g. a 4xx rejecting this request's shape) all skip
				// repair and fall through to the next ranked candidate —
				// another model or provider may still accept this task.
				break
			}

			rc.emitArtifact(taskID, artifact.Content)
			rc.setState(taskID, StateVerifying)

			verdict := s.verify(ctx, task, artifact)
			artifact.Status = types.ArtifactVerified
			if !verdict.Passed {
				artifact.Status = types.ArtifactRejected
			}
			rc.recordArtifact(taskID, artifact)
			rc.recordVerdict(taskID, verdict)
			rc.emitVerified(taskID, verdict)

			if pendingRepairID != "" {
				if verdict.Passed {
					rc.markNodeState(pendingRepairID, StateDone)
				} else {
					rc.markNodeState(pendingRepairID, StateFailed)
				}
				pendingRepairID = ""
			}

			// Telemetry is recorded against the verdict, not the mere
			// provider call: a model whose artifact the Verifier rejects
			// counts as a failure for routing purposes even though the
			// HTTP call itself succeeded.
			if verdict.Passed {
				s.router.RecordOutcome(cand.ModelID, true)
				_ = s.registry.Update(ctx, telemetry.Record{
					ModelID: cand.ModelID, Success: true, LatencyMs: artifact.LatencyMs,
					TokensIn: artifact.InputTokens, TokensOut: artifact.OutputTokens,
				})
				rc.counters.release(cand.ProviderID)
				rc.markDone(taskID)
				return
			}

			s.router.RecordOutcome(cand.ModelID, false)
			_ = s.registry.Update(ctx, telemetry.Record{
				ModelID: cand.ModelID, Success: false, LatencyMs: artifact.LatencyMs,
				TokensIn: artifact.InputTokens, TokensOut: artifact.OutputTokens,
			})

			if repairBudget <= 0 {
				rc.counters.release(cand.ProviderID)
				break
			}

			repairBudget--
			rc.markRepaired(taskID)
			rc.setState(taskID, StateRepairing)
			newNodeID := fmt.Sprintf("%s_repair%d", taskID, task.RepairBudget-repairBudget)
			node := repairNode(newNodeID, task, artifact, verdict.FailureReasons)
			rc.insertRepairNode(node)
			rc.addSyntheticNode(node)
			rc.emitRepaired(taskID, []string{newNodeID})
			pendingRepairID = newNodeID

			// The repair node participates in scheduling like any other
			// task: it gets its own Router.Route call, and if that picks a
			// different model the attempt moves to that model's
			// concurrency slot instead of silently reusing cand's.
			if nextCand, nextProvider, ok := s.routeRepair(ctx, node, cand); ok {
				if nextCand.ModelID != cand.ModelID || nextCand.ProviderID != cand.ProviderID {
					rc.counters.release(cand.ProviderID)
					if err := rc.counters.acquire(ctx, nextCand.ProviderID); err != nil {
						rc.markFailed(taskID, "Cancelled")
						return
					}
					cand, provider = nextCand, nextProvider
				}
			}

			lastArtifact, lastVerdict = artifact, verdict
			haveArtifact = true
		}
	}

	rc.markFailed(taskID, "all candidates exhausted")
}

func (s *Scheduler) executeBinding(ctx context.Context, provider adapters.Provider, task *types.Task, binding types.Binding, promptText string, refs []types.InputRef) (types.Artifact, *types.ProviderError) {
	if s.tracer != nil {
		var span oteltrace.Span
		ctx, span = s.tracer.Start(ctx, "scheduler.attempt",
			oteltrace.WithAttributes(
				attribute.String("task_id", binding.TaskID),
				attribute.String("model_id", binding.ModelID),
				attribute.Int("attempt_index", binding.AttemptIndex),
			),
		)
		defer span.End()
	}

	resp, latency, provErr := adapters.Execute(ctx, provider, binding.ModelID, adapters.GenerateRequest{
		Model:       binding.ModelID,
		Prompt:      promptText,
		MaxTokens:   s.opts.MaxTokens,
		Temperature: s.opts.Temperature,
	}, s.opts.AttemptTimeout)

	status := "success"
	if provErr != nil {
		status = "error"
	}
	s.metrics.ObserveInvocation(binding.ModelID, status, latency)
	if binding.AttemptIndex > 0 {
		s.metrics.ObserveRetry(binding.ModelID)
	}

	artifact := types.Artifact{
		ArtifactID:     uuid.NewString(),
		TaskID:         binding.TaskID,
		Binding:        binding,
		Content:        resp.Text,
		InputTokens:    resp.InputTokens,
		OutputTokens:   resp.OutputTokens,
		LatencyMs:      float64(latency.Milliseconds()),
		ProducedAt:     time.Now(),
		Status:         types.ArtifactProduced,
		ResolvedInputs: refs,
	}
	if provErr != nil {
		return artifact, provErr
	}
	return artifact, nil
}

// routeRepair re-routes a repair node through the Router, the same way a
// fresh task would be. Falls back to (fallback, nil, false) when the
// repair node has no admissible candidate of its own (e.g. its
// RequiredFeatures narrowed relative to the original task), leaving the
// caller on its current candidate and slot.
func (s *Scheduler) routeRepair(ctx context.Context, node types.Task, fallback router.Scored) (router.Scored, adapters.Provider, bool) {
	candidates, err := s.router.Route(ctx, node)
	if err != nil || len(candidates) == 0 {
		return fallback, nil, false
	}
	top := candidates[0]
	provider, ok := s.providers.Get(top.ProviderID)
	if !ok {
		return fallback, nil, false
	}
	return top, provider, true
}

func (s *Scheduler) verify(ctx context.Context, task *types.Task, artifact types.Artifact) types.Verdict {
	if !s.opts.Verify {
		return types.Verdict{ArtifactID: artifact.ArtifactID, Score: 1.0, Passed: true}
	}
	verdict, err := s.verifier.Verify(ctx, *task, artifact)
	if err != nil {
		return types.Verdict{ArtifactID: artifact.ArtifactID, Score: 0, Passed: false, FailureReasons: []string{"VerifierError"}}
	}
	return verdict
}

func repairPromptFor(priorContent string, reasons []string) string {
	return fmt.Sprintf(
		"Given the prior attempt %s, address the following issues: %s. Produce a corrected version.",
		priorContent, joinReasons(reasons),
	)
}

func joinReasons(reasons []string) string {
	if len(reasons) == 0 {
		return "unspecified verification failure"
	}
	out := reasons[0]
	for _, r := range reasons[1:] {
		out += "; " + r
	}
	return out
}

func repairNode(id string, task *types.Task, artifact types.Artifact, reasons []string) types.Task {
	return types.Task{
		ID:               id,
		Kind:             task.Kind,
		PromptText:       repairPromptFor(artifact.Content, reasons),
		Inputs:           []string{task.ID},
		SuccessCriteria:  task.SuccessCriteria,
		RequiredFeatures: task.RequiredFeatures,
		MinContextTokens: task.MinContextTokens,
		RepairBudget:     0,
	}
}
