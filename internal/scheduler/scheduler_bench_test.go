package scheduler

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/your-org/ai3/internal/capability"
	"github.com/your-org/ai3/internal/config"
	"github.com/your-org/ai3/internal/retry"
	"github.com/your-org/ai3/internal/router"
	"github.com/your-org/ai3/internal/stubprovider"
	"github.com/your-org/ai3/internal/telemetry"
	"github.com/your-org/ai3/internal/verifier"
	"github.com/your-org/ai3/pkg/adapters"
	"github.com/your-org/ai3/pkg/types"
)

func benchmarkScheduler(workerPool int) (*Scheduler, *stubprovider.Provider) {
	catalog := config.ModelCatalog{Models: []types.ModelDescriptor{
		{ModelID: "bench-model", ProviderID: "bench-provider", ContextWindow: 8000,
			Skills: map[types.TaskKind]float64{types.KindGeneral: 0.9}},
	}}
	rec := telemetry.NewRecorder(telemetry.NewMemoryBackend())
	reg := capability.New(catalog, rec)
	r := router.New(reg, retry.CircuitBreakerPolicy{})

	provider := stubprovider.New("bench-provider")
	providers := adapters.NewRegistry()
	_ = providers.Register("bench-provider", provider)

	v := verifier.New(nil)
	return New(r, reg, providers, v, Options{
		GlobalMax:      workerPool,
		PerProviderMax: workerPool,
		AttemptTimeout: time.Second,
	}), provider
}

func sequentialGraph(n int) *types.TaskGraph {
	tasks := make([]types.Task, 0, n)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("t%04d", i+1)
		var inputs []string
		if i > 0 {
			inputs = []string{fmt.Sprintf("t%04d", i)}
		}
		tasks = append(tasks, types.Task{ID: id, Kind: types.KindGeneral, PromptText: "step", Inputs: inputs, Terminal: i == n-1})
	}
	return &types.TaskGraph{Tasks: tasks}
}

func parallelGraph(n int) *types.TaskGraph {
	tasks := make([]types.Task, 0, n)
	for i := 0; i < n; i++ {
		tasks = append(tasks, types.Task{ID: fmt.Sprintf("t%04d", i+1), Kind: types.KindGeneral, PromptText: "step", Terminal: true})
	}
	return &types.TaskGraph{Tasks: tasks}
}

func BenchmarkSchedulerRun_Sequential10(b *testing.B) {
	s, provider := benchmarkScheduler(8)
	provider.ScriptModel("bench-model", stubprovider.Response{Text: "a sufficiently long benchmark response body"})
	g := sequentialGraph(10)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		events := make(chan types.Event, 64)
		go func() {
			for range events {
			}
		}()
		if _, err := s.Run(context.Background(), g, events); err != nil {
			b.Fatalf("run: %v", err)
		}
	}
}

func BenchmarkSchedulerRun_Parallel100(b *testing.B) {
	s, provider := benchmarkScheduler(32)
	provider.ScriptModel("bench-model", stubprovider.Response{Text: "a sufficiently long benchmark response body"})
	g := parallelGraph(100)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		events := make(chan types.Event, 256)
		go func() {
			for range events {
			}
		}()
		if _, err := s.Run(context.Background(), g, events); err != nil {
			b.Fatalf("run: %v", err)
		}
	}
}
