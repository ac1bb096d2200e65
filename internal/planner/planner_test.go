package planner

import (
	"context"
	"testing"

	"github.com/your-org/ai3/internal/stubprovider"
	"github.com/your-org/ai3/pkg/types"
)

const validPlanJSON = `{"tasks":[{"id":"t1","kind":"general","prompt":"say hi","repair_budget":0}]}`

func TestPlanReturnsGraphOnFirstValidAttempt(t *testing.T) {
	p := stubprovider.New("test")
	p.ScriptModel("planner-model", stubprovider.Response{Text: validPlanJSON})

	pl := New(p, "planner-model", 0, 0)
	g, err := pl.Plan(context.Background(), "say hi")
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if len(g.Tasks) != 1 || g.Tasks[0].ID != "t1" {
		t.Fatalf("unexpected graph: %+v", g)
	}
}

func TestPlanToleratesSurroundingProse(t *testing.T) {
	p := stubprovider.New("test")
	p.ScriptModel("planner-model", stubprovider.Response{
		Text: "Sure, here is the plan:\n" + validPlanJSON + "\nHope that helps!",
	})

	pl := New(p, "planner-model", 0, 0)
	g, err := pl.Plan(context.Background(), "say hi")
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if len(g.Tasks) != 1 {
		t.Fatalf("unexpected graph: %+v", g)
	}
}

func TestPlanRetriesOnceOnMalformedResponse(t *testing.T) {
	p := stubprovider.New("test")
	p.ScriptModel("planner-model",
		stubprovider.Response{Text: "not json at all and no braces"},
		stubprovider.Response{Text: validPlanJSON},
	)

	pl := New(p, "planner-model", 0, 0)
	g, err := pl.Plan(context.Background(), "say hi")
	if err != nil {
		t.Fatalf("expected second attempt to succeed, got: %v", err)
	}
	if len(g.Tasks) != 1 {
		t.Fatalf("unexpected graph: %+v", g)
	}
}

func TestPlanFailsAfterTwoMalformedAttempts(t *testing.T) {
	p := stubprovider.New("test")
	p.ScriptModel("planner-model",
		stubprovider.Response{Text: "{not valid json"},
		stubprovider.Response{Text: "{still not valid"},
	)

	pl := New(p, "planner-model", 0, 0)
	_, err := pl.Plan(context.Background(), "say hi")
	if err == nil {
		t.Fatal("expected plan error after two malformed attempts")
	}
	var planErr *types.PlanError
	if !asPlanError(err, &planErr) {
		t.Fatalf("expected *types.PlanError, got %T: %v", err, err)
	}
	if planErr.Kind != types.PlanErrorSchema {
		t.Fatalf("expected schema error kind, got %s", planErr.Kind)
	}
}

func TestPlanFailsOnCyclicGraph(t *testing.T) {
	p := stubprovider.New("test")
	cyclic := `{"tasks":[{"id":"t1","kind":"general","prompt":"a","inputs":["t2"]},` +
		`{"id":"t2","kind":"general","prompt":"b","inputs":["t1"]}]}`
	p.ScriptModel("planner-model", stubprovider.Response{Text: cyclic}, stubprovider.Response{Text: cyclic})

	pl := New(p, "planner-model", 0, 0)
	_, err := pl.Plan(context.Background(), "say hi")
	if err == nil {
		t.Fatal("expected plan error for cyclic graph")
	}
}

func asPlanError(err error, target **types.PlanError) bool {
	pe, ok := err.(*types.PlanError)
	if ok {
		*target = pe
	}
	return ok
}
