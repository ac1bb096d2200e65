// Package graph validates a types.TaskGraph and computes its Kahn
// topological levels. Both the Planner (acyclicity/uniqueness checks) and
// the Scheduler (dispatch order, repair-node insertion) share this logic,
// grounded on the teacher's internal/router.buildGraph.
package graph

import (
	"fmt"
	"sort"

	"github.com/your-org/ai3/pkg/types"
)

// Built is a validated TaskGraph plus its precomputed topological levels.
type Built struct {
	ByID   map[string]*types.Task
	Levels [][]string
	// Children maps a task id to the ids of tasks that consume its output.
	Children map[string][]string
}

// Build validates acyclicity, id uniqueness, and referenced-input
// existence, then computes Kahn levels. Returns *types.PlanError on any
// structural violation so callers (the Planner) can surface it directly.
func Build(g *types.TaskGraph) (*Built, error) {
	if len(g.Tasks) == 0 {
		return nil, &types.PlanError{Kind: types.PlanErrorSchema, Message: "task graph has no tasks"}
	}

	byID := make(map[string]*types.Task, len(g.Tasks))
	inDegree := make(map[string]int, len(g.Tasks))
	children := make(map[string][]string, len(g.Tasks))

	for i := range g.Tasks {
		t := &g.Tasks[i]
		if t.ID == "" {
			return nil, &types.PlanError{Kind: types.PlanErrorSchema, Message: "task has empty id"}
		}
		if _, exists := byID[t.ID]; exists {
			return nil, &types.PlanError{Kind: types.PlanErrorSchema, Message: fmt.Sprintf("duplicate task id %q", t.ID)}
		}
		byID[t.ID] = t
		inDegree[t.ID] = len(t.Inputs)
	}

	for _, t := range g.Tasks {
		for _, dep := range t.Inputs {
			if _, ok := byID[dep]; !ok {
				return nil, &types.PlanError{Kind: types.PlanErrorSchema, Message: fmt.Sprintf("task %q depends on unknown input %q", t.ID, dep)}
			}
			if dep == t.ID {
				return nil, &types.PlanError{Kind: types.PlanErrorCycle, Message: fmt.Sprintf("task %q depends on itself", t.ID)}
			}
			children[dep] = append(children[dep], t.ID)
		}
	}

	queue := make([]string, 0)
	for _, t := range g.Tasks {
		if inDegree[t.ID] == 0 {
			queue = append(queue, t.ID)
		}
	}
	sort.Strings(queue)

	visited := 0
	var levels [][]string
	for len(queue) > 0 {
		level := append([]string(nil), queue...)
		levels = append(levels, level)
		visited += len(level)

		next := make([]string, 0)
		for _, curr := range level {
			for _, child := range children[curr] {
				inDegree[child]--
				if inDegree[child] == 0 {
					next = append(next, child)
				}
			}
		}
		sort.Strings(next)
		queue = next
	}

	if visited != len(g.Tasks) {
		return nil, &types.PlanError{Kind: types.PlanErrorCycle, Message: "task graph contains a cycle"}
	}

	return &Built{ByID: byID, Levels: levels, Children: children}, nil
}

// InsertRepairNode appends a repair node to g.Tasks and rebuilds the
// graph from scratch, returning the new Built; b is neither read nor
// modified. The node's level follows from its Inputs like any other task.
func InsertRepairNode(g *types.TaskGraph, b *Built, node types.Task) *Built {
	g.Tasks = append(g.Tasks, node)
	rebuilt, err := Build(g)
	if err != nil {
		// The caller (Scheduler) constructs repair nodes itself and is
		// expected to keep them well-formed; a failure here means the
		// directive itself was malformed, which is a programmer error.
		panic(fmt.Sprintf("insert repair node produced invalid graph: %v", err))
	}
	return rebuilt
}
