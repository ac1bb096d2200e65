// Package assembler implements the Assembler (spec.md §4.7): merges
// terminal artifacts into a single Response using one of three
// strategies. New component relative to the teacher; the one LLM call
// `synthesize` needs shares the adapters.Provider contract the
// Planner/Verifier already use.
package assembler

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/your-org/ai3/pkg/adapters"
	"github.com/your-org/ai3/pkg/types"
)

// Terminal is one terminal task's artifact plus its verdict, and the
// topological level it was scheduled at (used to order `concatenate`
// output in post-order).
type Terminal struct {
	Task     types.Task
	Artifact types.Artifact
	Verdict  types.Verdict
	Level    int
}

// Strategy names one assembly method; carried on Response for
// observability.
type Strategy string

const (
	StrategyBestSingle Strategy = "best_single"
	StrategyConcatenate Strategy = "concatenate"
	StrategySynthesize  Strategy = "synthesize"
)

// Assembler merges terminal artifacts per spec.md §4.7.
type Assembler struct {
	provider       adapters.Provider
	synthesisModel string
}

func New(provider adapters.Provider, synthesisModel string) *Assembler {
	return &Assembler{provider: provider, synthesisModel: synthesisModel}
}

// Assemble selects a strategy from the terminal set and runs it: exactly
// one terminal uses best_single (trivially, since there is nothing else
// to pick), more than one with identical kind uses concatenate,
// otherwise synthesize.
func (a *Assembler) Assemble(ctx context.Context, terminals []Terminal) (types.Response, error) {
	if len(terminals) == 0 {
		return types.Response{}, fmt.Errorf("assembler: no terminal artifacts to assemble")
	}

	switch selectStrategy(terminals) {
	case StrategyBestSingle:
		return a.bestSingle(terminals), nil
	case StrategyConcatenate:
		return a.concatenate(terminals), nil
	default:
		return a.synthesize(ctx, terminals)
	}
}

func selectStrategy(terminals []Terminal) Strategy {
	if len(terminals) == 1 {
		return StrategyBestSingle
	}
	kind := terminals[0].Task.Kind
	sameKind := true
	for _, t := range terminals[1:] {
		if t.Task.Kind != kind {
			sameKind = false
			break
		}
	}
	if sameKind {
		return StrategyConcatenate
	}
	return StrategySynthesize
}

func (a *Assembler) bestSingle(terminals []Terminal) types.Response {
	best := terminals[0]
	for _, t := range terminals[1:] {
		if t.Verdict.Score > best.Verdict.Score {
			best = t
		}
	}
	return types.Response{
		Content:         best.Artifact.Content,
		Confidence:      meanScore(terminals),
		AssemblyMethod:  string(StrategyBestSingle),
		SourceArtifacts: []string{best.Artifact.ArtifactID},
	}
}

func (a *Assembler) concatenate(terminals []Terminal) types.Response {
	ordered := append([]Terminal(nil), terminals...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Level != ordered[j].Level {
			return ordered[i].Level < ordered[j].Level
		}
		return ordered[i].Task.ID < ordered[j].Task.ID
	})

	var sb strings.Builder
	ids := make([]string, 0, len(ordered))
	for i, t := range ordered {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(t.Artifact.Content)
		ids = append(ids, t.Artifact.ArtifactID)
	}

	return types.Response{
		Content:         sb.String(),
		Confidence:      meanScore(terminals),
		AssemblyMethod:  string(StrategyConcatenate),
		SourceArtifacts: ids,
	}
}

func (a *Assembler) synthesize(ctx context.Context, terminals []Terminal) (types.Response, error) {
	var sb strings.Builder
	sb.WriteString("Merge the following task outputs into a single coherent response:\n\n")
	ids := make([]string, 0, len(terminals))
	for _, t := range terminals {
		sb.WriteString(fmt.Sprintf("[%s - %s]\n%s\n\n", t.Task.ID, t.Task.Kind, t.Artifact.Content))
		ids = append(ids, t.Artifact.ArtifactID)
	}

	resp, _, providerErr := adapters.Execute(ctx, a.provider, a.synthesisModel, adapters.GenerateRequest{
		Model:  a.synthesisModel,
		Prompt: sb.String(),
	}, 0)
	if providerErr != nil {
		return types.Response{}, fmt.Errorf("assembler: synthesize call failed: %w", providerErr)
	}

	return types.Response{
		Content:         resp.Text,
		Confidence:      meanScore(terminals),
		AssemblyMethod:  string(StrategySynthesize),
		SourceArtifacts: ids,
	}, nil
}

func meanScore(terminals []Terminal) float64 {
	if len(terminals) == 0 {
		return 0
	}
	sum := 0.0
	for _, t := range terminals {
		sum += t.Verdict.Score
	}
	return sum / float64(len(terminals))
}
