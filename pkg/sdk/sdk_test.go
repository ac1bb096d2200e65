package sdk

import (
	"context"
	"testing"

	"github.com/your-org/ai3/internal/config"
	"github.com/your-org/ai3/internal/stubprovider"
	"github.com/your-org/ai3/pkg/adapters"
	"github.com/your-org/ai3/pkg/types"
)

const singleTaskPlan = `{"tasks":[{"id":"t1","kind":"summarization","prompt":"summarize",` +
	`"criteria":[],"repair_budget":0,"terminal":true}]}`

func newTestRuntime(t *testing.T) (*Runtime, *stubprovider.Provider) {
	t.Helper()

	llm := stubprovider.New("planner-provider")
	llm.ScriptModel("planner-model", stubprovider.Response{Text: singleTaskPlan})
	llm.ScriptModel("worker-model", stubprovider.Response{Text: "a thorough summary of the document"})

	providers := adapters.NewRegistry()
	if err := providers.Register("planner-provider", llm); err != nil {
		t.Fatalf("register provider: %v", err)
	}

	catalog := config.ModelCatalog{
		Models: []types.ModelDescriptor{
			{ModelID: "worker-model", ProviderID: "planner-provider", Skills: map[types.TaskKind]float64{types.KindSummarization: 0.9}},
		},
	}

	cfg := config.RunConfig{
		PlannerModel:              "planner-model",
		PlannerMaxTokens:          512,
		MaxConcurrency:            2,
		MaxConcurrencyPerProvider: 2,
		EventBuffer:               16,
	}

	rt, err := NewRuntime(cfg, Dependencies{Providers: providers, Catalog: catalog, PlannerLLM: llm})
	if err != nil {
		t.Fatalf("new runtime: %v", err)
	}
	return rt, llm
}

func TestRuntimeRun(t *testing.T) {
	rt, _ := newTestRuntime(t)
	defer func() { _ = rt.Shutdown(context.Background()) }()

	resp, tr, err := rt.Run(context.Background(), "summarize this document")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if resp.Content == "" {
		t.Fatal("expected non-empty content")
	}
	if tr.RunID == "" {
		t.Fatal("expected a non-empty run id")
	}
}

func TestRuntimeRunStream(t *testing.T) {
	rt, _ := newTestRuntime(t)
	defer func() { _ = rt.Shutdown(context.Background()) }()

	events, outcome := rt.RunStream(context.Background(), "summarize this document")
	var kinds []types.EventKind
	for ev := range events {
		kinds = append(kinds, ev.Kind)
	}
	out := <-outcome
	if out.Err != nil {
		t.Fatalf("run stream outcome error: %v", out.Err)
	}
	if len(kinds) == 0 || kinds[0] != types.EventPlan {
		t.Fatalf("expected first event to be plan, got %v", kinds)
	}
}
