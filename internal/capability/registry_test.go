package capability

import (
	"context"
	"testing"
	"time"

	"github.com/your-org/ai3/internal/config"
	"github.com/your-org/ai3/internal/telemetry"
	"github.com/your-org/ai3/pkg/types"
)

func testCatalog() config.ModelCatalog {
	return config.ModelCatalog{
		Models: []types.ModelDescriptor{
			{
				ModelID:           "model-a",
				ProviderID:        "provider-a",
				ContextWindow:     100000,
				CostPer1kInput:    1.0,
				SupportedFeatures: []types.Feature{types.FeatureStreaming},
				Skills:            map[types.TaskKind]float64{types.KindCoding: 0.9},
			},
			{
				ModelID:        "model-b",
				ProviderID:     "provider-b",
				ContextWindow:  50000,
				CostPer1kInput: 0.5,
				Skills:         map[types.TaskKind]float64{types.KindCoding: 0.6},
			},
		},
		Overrides: map[types.TaskKind]string{types.KindCoding: "model-b"},
	}
}

func TestCandidatesJoinsTelemetry(t *testing.T) {
	tel := telemetry.NewRecorder(telemetry.NewMemoryBackend())
	reg := New(testCatalog(), tel)

	if err := tel.Observe(context.Background(), telemetry.Record{
		ModelID: "model-a", Success: true, LatencyMs: 120, At: time.Now(),
	}); err != nil {
		t.Fatalf("observe: %v", err)
	}

	cands, err := reg.Candidates(context.Background(), types.Task{Kind: types.KindCoding})
	if err != nil {
		t.Fatalf("candidates: %v", err)
	}
	if len(cands) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(cands))
	}

	var sawSampled, sawNeutral bool
	for _, c := range cands {
		if c.Descriptor.ModelID == "model-a" {
			if !c.Window.HasSamples {
				t.Fatal("expected model-a to have samples")
			}
			sawSampled = true
		}
		if c.Descriptor.ModelID == "model-b" {
			if c.Window.HasSamples {
				t.Fatal("expected model-b to have no samples")
			}
			sawNeutral = true
		}
	}
	if !sawSampled || !sawNeutral {
		t.Fatal("expected to observe both a sampled and an unsampled candidate")
	}
}

func TestOverrideLookup(t *testing.T) {
	reg := New(testCatalog(), telemetry.NewRecorder(telemetry.NewMemoryBackend()))

	modelID, ok := reg.Override(types.KindCoding)
	if !ok || modelID != "model-b" {
		t.Fatalf("expected override model-b, got %q ok=%v", modelID, ok)
	}

	if _, ok := reg.Override(types.KindSummarization); ok {
		t.Fatal("expected no override for summarization")
	}
}

func TestDescriptorLookup(t *testing.T) {
	reg := New(testCatalog(), telemetry.NewRecorder(telemetry.NewMemoryBackend()))

	d, ok := reg.Descriptor("model-a")
	if !ok || d.ProviderID != "provider-a" {
		t.Fatalf("unexpected descriptor lookup result: %+v ok=%v", d, ok)
	}

	if _, ok := reg.Descriptor("ghost"); ok {
		t.Fatal("expected lookup miss for unknown model id")
	}
}

func TestUpdateForwardsToTelemetry(t *testing.T) {
	tel := telemetry.NewRecorder(telemetry.NewMemoryBackend())
	reg := New(testCatalog(), tel)

	if err := reg.Update(context.Background(), telemetry.Record{ModelID: "model-a", Success: true}); err != nil {
		t.Fatalf("update: %v", err)
	}

	w, err := tel.Window(context.Background(), "model-a")
	if err != nil {
		t.Fatalf("window: %v", err)
	}
	if w.Attempts != 1 {
		t.Fatalf("expected 1 attempt after update, got %d", w.Attempts)
	}
}
