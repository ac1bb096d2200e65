// Package planner implements the Planner (spec.md §4.1): turns a prompt
// into a validated types.TaskGraph by calling one designated LLM,
// grounded on the teacher's internal/router retry shaping and on
// internal/graph for the shared cycle/uniqueness validation the
// Scheduler also uses.
package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/your-org/ai3/internal/graph"
	"github.com/your-org/ai3/pkg/adapters"
	"github.com/your-org/ai3/pkg/types"
)

const systemPrompt = `You are a planning engine. Decompose the user's request into a ` +
	`directed acyclic graph of subtasks. Respond with ONLY a JSON document of the shape:
{"tasks":[{"id":"t1","kind":"<task-kind>","prompt":"string","inputs":["t0"],` +
	`"criteria":["string"],"features":["streaming"],"min_context":0,"repair_budget":1,"terminal":false}]}
task-kind must be one of: coding, creative_writing, professional_writing, document_processing, ` +
	`automation, summarization, data_analysis, multimodal, integration, mathematical_reasoning, ` +
	`realtime_social, creative_insight, general. A single-task graph is a legal response for a simple ` +
	`request. Every "inputs" id must refer to another task in the same document. Do not include any ` +
	`prose outside the JSON document.`

// Planner calls one LLM to produce a TaskGraph, grounded on spec.md §4.1.
type Planner struct {
	provider    adapters.Provider
	model       string
	maxTokens   int
	temperature float64
}

// New builds a Planner against provider, bound to model. temperature
// defaults to 0.0 (spec.md §4.1: "configured low for determinism").
func New(provider adapters.Provider, model string, maxTokens int, temperature float64) *Planner {
	if maxTokens <= 0 {
		maxTokens = 2048
	}
	return &Planner{provider: provider, model: model, maxTokens: maxTokens, temperature: temperature}
}

// Plan calls the designated LLM at most twice: the second attempt's
// message appends the first attempt's violations as a corrective
// instruction (spec.md §4.1). Returns *types.PlanError on both failures.
func (p *Planner) Plan(ctx context.Context, prompt string) (*types.TaskGraph, error) {
	g, violations, err := p.attempt(ctx, prompt, nil)
	if err == nil {
		return g, nil
	}
	if violations == nil {
		// Not a schema/cycle failure (e.g. upstream LLM error) — no point
		// retrying with a corrective message.
		return nil, err
	}

	g, _, err2 := p.attempt(ctx, prompt, violations)
	if err2 != nil {
		return nil, err2
	}
	return g, nil
}

// attempt issues one LLM call and validates the result. violations, when
// non-nil, signals a retryable schema/cycle failure worth a corrective
// second attempt; it is always non-nil alongside a *types.PlanError
// unless the failure came from the provider call itself.
func (p *Planner) attempt(ctx context.Context, prompt string, priorViolations []string) (*types.TaskGraph, []string, error) {
	message := systemPrompt + "\n\nUser request: " + prompt
	if len(priorViolations) > 0 {
		message += "\n\nYour previous response violated the schema:\n- " + strings.Join(priorViolations, "\n- ") +
			"\nProduce a corrected JSON document that fixes every violation above."
	}

	resp, _, providerErr := adapters.Execute(ctx, p.provider, p.model, adapters.GenerateRequest{
		Model:       p.model,
		Prompt:      message,
		MaxTokens:   p.maxTokens,
		Temperature: p.temperature,
	}, 0)
	if providerErr != nil {
		return nil, nil, &types.PlanError{Kind: types.PlanErrorUpstreamLLM, Message: "planner model call failed", Cause: providerErr}
	}

	g, parseErr := parseTaskGraph(resp.Text)
	if parseErr != nil {
		return nil, []string{parseErr.Error()}, &types.PlanError{Kind: types.PlanErrorSchema, Message: "planner response is not a valid TaskGraph document", Cause: parseErr}
	}

	built, buildErr := graph.Build(g)
	if buildErr != nil {
		return nil, []string{buildErr.Error()}, buildErr
	}
	_ = built

	return g, nil, nil
}

func parseTaskGraph(text string) (*types.TaskGraph, error) {
	text = extractJSON(text)
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("planner response has no JSON document")
	}

	var g types.TaskGraph
	if err := json.Unmarshal([]byte(text), &g); err != nil {
		return nil, fmt.Errorf("unmarshal task graph: %w", err)
	}
	return &g, nil
}

// extractJSON strips any prose surrounding a single top-level JSON
// object, tolerating models that ignore the "no prose" instruction.
func extractJSON(text string) string {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end < 0 || end < start {
		return text
	}
	return text[start : end+1]
}
