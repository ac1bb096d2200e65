package scheduler

import (
	"context"
	"strings"
	"sync"

	"github.com/your-org/ai3/internal/graph"
	"github.com/your-org/ai3/pkg/types"
)

// runContext holds all state shared across a single Scheduler.Run
// invocation's task goroutines: per-task state, recorded artifacts and
// verdicts, completion signaling, and the event sink. One runContext per
// Run call; never reused across runs.
type runContext struct {
	mu sync.Mutex

	tasks map[string]*types.Task

	states      map[string]State
	failReasons map[string]string
	artifacts   map[string][]types.Artifact
	verdicts    map[string][]types.Verdict
	repaired    map[string]bool
	synthetic   []types.Task

	finished  map[string]chan struct{}
	succeeded map[string]bool

	counters *counters
	events   chan types.Event

	fatalErr error
	abortFn  context.CancelFunc

	graphMu   sync.Mutex
	liveGraph *types.TaskGraph
	built     *graph.Built
}

func newRunContext(g *types.TaskGraph, built *graph.Built, cnt *counters, events chan types.Event) *runContext {
	rc := &runContext{
		tasks:       g.ByID(),
		states:      make(map[string]State, len(g.Tasks)),
		failReasons: make(map[string]string),
		artifacts:   make(map[string][]types.Artifact),
		verdicts:    make(map[string][]types.Verdict),
		repaired:    make(map[string]bool),
		finished:    make(map[string]chan struct{}, len(g.Tasks)),
		succeeded:   make(map[string]bool, len(g.Tasks)),
		counters:    cnt,
		events:      events,
		liveGraph:   g,
		built:       built,
	}
	for _, t := range g.Tasks {
		rc.states[t.ID] = StatePending
		rc.finished[t.ID] = make(chan struct{})
	}
	return rc
}

// insertRepairNode folds a freshly constructed repair node into the live
// TaskGraph via graph.InsertRepairNode, so it gets a real level, a
// Children entry, and a place in rc.tasks — making it visible to
// dependency-wait logic and to the Built the Engine hands to the
// RunTrace, instead of existing only as cosmetic bookkeeping.
func (rc *runContext) insertRepairNode(node types.Task) *graph.Built {
	rc.graphMu.Lock()
	rc.built = graph.InsertRepairNode(rc.liveGraph, rc.built, node)
	built := rc.built
	rc.graphMu.Unlock()

	rc.mu.Lock()
	rc.tasks[node.ID] = &node
	rc.states[node.ID] = StatePending
	rc.finished[node.ID] = make(chan struct{})
	rc.mu.Unlock()
	return built
}

func (rc *runContext) setState(taskID string, s State) {
	rc.mu.Lock()
	rc.states[taskID] = s
	rc.mu.Unlock()
}

func (rc *runContext) state(taskID string) State {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.states[taskID]
}

func (rc *runContext) isSucceeded(taskID string) bool {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.succeeded[taskID]
}

func (rc *runContext) markDone(taskID string) {
	rc.mu.Lock()
	rc.states[taskID] = StateDone
	rc.succeeded[taskID] = true
	rc.mu.Unlock()
}

func (rc *runContext) markFailed(taskID, reason string) {
	rc.mu.Lock()
	rc.states[taskID] = StateFailed
	rc.succeeded[taskID] = false
	rc.failReasons[taskID] = reason
	rc.mu.Unlock()
	rc.emit(types.Event{Kind: types.EventTaskFailed, TaskID: taskID, Payload: types.TaskFailedPayload{TaskID: taskID, Reason: reason}})
}

func (rc *runContext) recordArtifact(taskID string, a types.Artifact) {
	rc.mu.Lock()
	rc.artifacts[taskID] = append(rc.artifacts[taskID], a)
	rc.mu.Unlock()
}

func (rc *runContext) recordVerdict(taskID string, v types.Verdict) {
	rc.mu.Lock()
	rc.verdicts[taskID] = append(rc.verdicts[taskID], v)
	rc.mu.Unlock()
}

// setFatal records the run-aborting error the first time it is called and
// cancels every in-flight and not-yet-started task via abortFn. Reserved
// for authentication/configuration failures (ProviderErrorAuthFailed):
// bad credentials or a disabled model won't work for any task in this
// run, so the whole run is void rather than just the task that hit it. A
// plain permanent provider error is NOT fatal this way — it falls back to
// the next candidate instead, since another model/provider may still
// accept the same task.
func (rc *runContext) setFatal(err error) {
	rc.mu.Lock()
	first := rc.fatalErr == nil
	if first {
		rc.fatalErr = err
	}
	abort := rc.abortFn
	rc.mu.Unlock()
	if first && abort != nil {
		abort()
	}
}

func (rc *runContext) fatal() error {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.fatalErr
}

// markNodeState sets a task's terminal state directly, used for repair
// nodes whose outcome is decided by the verdict of the attempt that
// consumes them rather than by markDone/markFailed's own bookkeeping.
func (rc *runContext) markNodeState(taskID string, s State) {
	rc.mu.Lock()
	rc.states[taskID] = s
	if s == StateDone {
		rc.succeeded[taskID] = true
	}
	rc.mu.Unlock()
}

func (rc *runContext) markRepaired(taskID string) {
	rc.mu.Lock()
	rc.repaired[taskID] = true
	rc.mu.Unlock()
}

func (rc *runContext) addSyntheticNode(node types.Task) {
	rc.mu.Lock()
	rc.synthetic = append(rc.synthetic, node)
	rc.mu.Unlock()
}

// latestArtifact returns the most recent recorded artifact for taskID, or
// nil if none was ever produced.
func (rc *runContext) latestArtifact(taskID string) *types.Artifact {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	list := rc.artifacts[taskID]
	if len(list) == 0 {
		return nil
	}
	a := list[len(list)-1]
	return &a
}

// buildPrompt concatenates the latest artifact content of every upstream
// input, in declared order, ahead of the task's own prompt text
// (spec.md §3: Task.Inputs are "concatenated as context").
func (rc *runContext) buildPrompt(task *types.Task) (string, []types.InputRef) {
	var sb strings.Builder
	var refs []types.InputRef
	for _, dep := range task.Inputs {
		art := rc.latestArtifact(dep)
		if art == nil {
			continue
		}
		sb.WriteString(art.Content)
		sb.WriteString("\n\n")
		refs = append(refs, types.InputRef{TaskID: dep, ArtifactID: art.ArtifactID})
	}
	sb.WriteString(task.PromptText)
	return sb.String(), refs
}

func (rc *runContext) emit(ev types.Event) {
	rc.events <- ev
}

func (rc *runContext) emitDecision(taskID, modelID string, rank int) {
	rc.emit(types.Event{Kind: types.EventDecision, TaskID: taskID, Payload: types.DecisionPayload{TaskID: taskID, ModelID: modelID, Rank: rank}})
}

func (rc *runContext) emitTaskStart(taskID string) {
	rc.emit(types.Event{Kind: types.EventTaskStart, TaskID: taskID, Payload: nil})
}

func (rc *runContext) emitArtifact(taskID, content string) {
	rc.emit(types.Event{Kind: types.EventTaskArtifact, TaskID: taskID, Payload: types.TaskArtifactPayload{TaskID: taskID, Fragment: content, Partial: false}})
}

func (rc *runContext) emitVerified(taskID string, v types.Verdict) {
	rc.emit(types.Event{Kind: types.EventTaskVerified, TaskID: taskID, Payload: types.TaskVerifiedPayload{TaskID: taskID, Score: v.Score, Passed: v.Passed}})
}

func (rc *runContext) emitRepaired(taskID string, newNodeIDs []string) {
	rc.emit(types.Event{Kind: types.EventTaskRepaired, TaskID: taskID, Payload: types.TaskRepairedPayload{TaskID: taskID, NewNodeIDs: newNodeIDs}})
}

// snapshot captures the final per-task outcome after all goroutines have
// exited, used by Scheduler.Run to build its RunResult.
type snapshot struct {
	state    State
	reason   string
	artifact *types.Artifact
	verdict  *types.Verdict
	repaired bool
}

func (rc *runContext) snapshotAll() map[string]snapshot {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	out := make(map[string]snapshot, len(rc.states))
	for id, st := range rc.states {
		s := snapshot{state: st, reason: rc.failReasons[id], repaired: rc.repaired[id]}
		if list := rc.artifacts[id]; len(list) > 0 {
			a := list[len(list)-1]
			s.artifact = &a
		}
		if list := rc.verdicts[id]; len(list) > 0 {
			v := list[len(list)-1]
			s.verdict = &v
		}
		out[id] = s
	}
	return out
}

// allArtifacts returns every recorded artifact across every task and
// attempt, in no particular order, used for RunStats token/cost totals
// and for RunTrace.Artifacts.
func (rc *runContext) allArtifacts() []types.Artifact {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	var out []types.Artifact
	for _, list := range rc.artifacts {
		out = append(out, list...)
	}
	return out
}

func (rc *runContext) allVerdicts() []types.Verdict {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	var out []types.Verdict
	for _, list := range rc.verdicts {
		out = append(out, list...)
	}
	return out
}

// finalBuilt returns the graph as leveled after every repair node
// inserted during the run, used for the RunResult/RunTrace the Engine
// builds once Run returns.
func (rc *runContext) finalBuilt() *graph.Built {
	rc.graphMu.Lock()
	defer rc.graphMu.Unlock()
	return rc.built
}

func (rc *runContext) syntheticNodes() []types.Task {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return append([]types.Task(nil), rc.synthetic...)
}
