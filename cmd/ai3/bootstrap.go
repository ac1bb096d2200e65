package main

import (
	"fmt"
	"os"

	"github.com/your-org/ai3/internal/config"
	"github.com/your-org/ai3/internal/engine"
	"github.com/your-org/ai3/internal/journal"
	"github.com/your-org/ai3/pkg/adapters"
	"github.com/your-org/ai3/pkg/adapters/anthropic"
	"github.com/your-org/ai3/pkg/adapters/gemini"
	"github.com/your-org/ai3/pkg/adapters/openai"
	"github.com/your-org/ai3/pkg/adapters/xai"
)

// buildProviders registers one adapter per *_API_KEY environment
// variable that is actually set, matching spec.md §6's "at least one
// required" contract. Each adapter is registered under the provider id
// the model catalog's provider_id column expects.
func buildProviders() (*adapters.Registry, error) {
	reg := adapters.NewRegistry()
	registered := 0

	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		if err := reg.Register("anthropic", anthropic.NewSDKClient(key)); err != nil {
			return nil, err
		}
		registered++
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		if err := reg.Register("openai", openai.NewClient(key, nil, "")); err != nil {
			return nil, err
		}
		registered++
	}
	if key := os.Getenv("XAI_API_KEY"); key != "" {
		if err := reg.Register("xai", xai.NewClient(key, nil, "")); err != nil {
			return nil, err
		}
		registered++
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		if err := reg.Register("gemini", gemini.NewClient(key, nil, "")); err != nil {
			return nil, err
		}
		registered++
	}

	if registered == 0 {
		return nil, fmt.Errorf("no provider API key set: configure at least one of ANTHROPIC_API_KEY, OPENAI_API_KEY, XAI_API_KEY, GEMINI_API_KEY")
	}
	return reg, nil
}

// buildEngine wires an Engine from cfg, the environment's provider keys,
// and the YAML model catalog at cfg.ModelsFile.
func buildEngine(cfg config.RunConfig) (*engine.Engine, func(), error) {
	providers, err := buildProviders()
	if err != nil {
		return nil, nil, err
	}

	catalog, err := config.LoadModelCatalog(cfg.ModelsFile)
	if err != nil {
		return nil, nil, fmt.Errorf("load model catalog: %w", err)
	}

	plannerProviderID, ok := plannerProviderFor(catalog, cfg.PlannerModel)
	if !ok {
		return nil, nil, fmt.Errorf("planner model %q is not registered in the model catalog", cfg.PlannerModel)
	}
	plannerLLM, err := providers.MustGet(plannerProviderID)
	if err != nil {
		return nil, nil, fmt.Errorf("no provider registered for planner model %q: %w", cfg.PlannerModel, err)
	}

	j, err := journal.Open(cfg.JournalDir, cfg.JournalDB)
	if err != nil {
		return nil, nil, fmt.Errorf("open journal: %w", err)
	}

	eng, err := engine.New(cfg, engine.Dependencies{
		Providers:  providers,
		Catalog:    catalog,
		PlannerLLM: plannerLLM,
		Journal:    j,
	})
	if err != nil {
		_ = j.Close()
		return nil, nil, err
	}

	cleanup := func() { _ = j.Close() }
	return eng, cleanup, nil
}

func plannerProviderFor(catalog config.ModelCatalog, plannerModel string) (string, bool) {
	for _, m := range catalog.Models {
		if m.ModelID == plannerModel {
			return m.ProviderID, true
		}
	}
	return "", false
}
