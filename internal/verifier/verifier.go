// Package verifier implements the Verifier (spec.md §4.5): criterion
// checks, defect pattern checks, and confidence aggregation over a
// produced Artifact. New component relative to the teacher; grounded on
// the corpus's general pattern of deterministic heuristics plus an
// optional LLM-backed check sharing the same adapters.Provider contract
// the Planner uses.
package verifier

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/your-org/ai3/pkg/adapters"
	"github.com/your-org/ai3/pkg/types"
)

// DefectPenalty is subtracted from the score once per detected defect
// (spec.md §4.5).
const DefectPenalty = 0.25

// PassThreshold is the minimum score for a verdict to pass, absent any
// fatal defect.
const PassThreshold = 0.70

// minLengthByKind are task-kind-specific output length floors (spec.md
// §4.5(b)); kinds not listed use DefaultMinLength.
var minLengthByKind = map[types.TaskKind]int{
	types.KindCoding:                40,
	types.KindCreativeWriting:        80,
	types.KindProfessionalWriting:    60,
	types.KindDocumentProcessing:     20,
	types.KindSummarization:          10,
	types.KindDataAnalysis:           5,
	types.KindMathematicalReasoning:  1,
}

const DefaultMinLength = 20

var refusalPhrases = []string{
	"i cannot help with that",
	"i can't help with that",
	"i cannot assist with that",
	"i can't assist with that",
	"as an ai language model",
	"i'm not able to help with that",
	"i am not able to help with that",
}

var truncationMarkers = []string{
	"[truncated]",
	"...(truncated)",
	"(response cut off)",
}

// CriterionChecker renders one success-criterion string into a yes/no
// check against artifact content. Verifier supports either a
// deterministic heuristic (HeuristicChecker) or an LLM rubric call
// (LLMRubricChecker) — spec.md §4.5(a) requires both to be supported.
type CriterionChecker interface {
	Check(ctx context.Context, criterion, content string) (bool, error)
}

// Verifier judges artifacts against a task's success criteria.
type Verifier struct {
	checker CriterionChecker
}

func New(checker CriterionChecker) *Verifier {
	if checker == nil {
		checker = HeuristicChecker{}
	}
	return &Verifier{checker: checker}
}

// Verify implements spec.md §4.5's verify(task, artifact) -> Verdict.
func (v *Verifier) Verify(ctx context.Context, task types.Task, artifact types.Artifact) (types.Verdict, error) {
	var failureReasons []string
	passedCount := 0

	for _, criterion := range task.SuccessCriteria {
		ok, err := v.checker.Check(ctx, criterion, artifact.Content)
		if err != nil {
			return types.Verdict{}, &types.VerifyError{Message: "criterion check failed", Cause: err}
		}
		if ok {
			passedCount++
		} else {
			failureReasons = append(failureReasons, fmt.Sprintf("criterion not satisfied: %s", criterion))
		}
	}

	defectCount, fatal, defectReasons := detectDefects(task, artifact.Content)
	failureReasons = append(failureReasons, defectReasons...)

	criteriaFraction := 1.0
	if len(task.SuccessCriteria) > 0 {
		criteriaFraction = float64(passedCount) / float64(len(task.SuccessCriteria))
	}
	score := criteriaFraction - DefectPenalty*float64(defectCount)
	score = clamp01(score)

	passed := score >= PassThreshold && !fatal

	verdict := types.Verdict{
		ArtifactID:     artifact.ArtifactID,
		Score:          score,
		Passed:         passed,
		FailureReasons: failureReasons,
	}

	if !passed && task.RepairBudget > 0 {
		verdict.RepairDirective = buildRepairDirective(task, artifact, failureReasons)
	}

	return verdict, nil
}

func buildRepairDirective(task types.Task, artifact types.Artifact, reasons []string) *types.RepairDirective {
	node := types.Task{
		ID:               task.ID + "_repair",
		Kind:             task.Kind,
		PromptText:       repairPrompt(artifact.Content, reasons),
		Inputs:           []string{task.ID},
		SuccessCriteria:  task.SuccessCriteria,
		RequiredFeatures: task.RequiredFeatures,
		MinContextTokens: task.MinContextTokens,
		RepairBudget:     0,
	}
	return &types.RepairDirective{
		Node:             node,
		OriginalTaskID:   task.ID,
		RejectedArtifact: artifact.ArtifactID,
	}
}

func repairPrompt(priorArtifact string, reasons []string) string {
	return fmt.Sprintf(
		"Given the prior attempt %s, address the following issues: %s. Produce a corrected version.",
		priorArtifact, strings.Join(reasons, "; "),
	)
}

// detectDefects implements spec.md §4.5(b): empty output, refusal
// phrase, truncation markers, and output shorter than a task-kind floor.
// Empty output and refusal are fatal; the rest only penalize the score.
func detectDefects(task types.Task, content string) (count int, fatal bool, reasons []string) {
	trimmed := strings.TrimSpace(content)
	lower := strings.ToLower(trimmed)

	if trimmed == "" {
		return 1, true, []string{"defect: empty output"}
	}

	for _, phrase := range refusalPhrases {
		if strings.Contains(lower, phrase) {
			count++
			fatal = true
			reasons = append(reasons, "defect: refusal phrase detected")
			break
		}
	}

	for _, marker := range truncationMarkers {
		if strings.Contains(lower, marker) {
			count++
			reasons = append(reasons, "defect: truncation marker detected")
			break
		}
	}

	floor := minLengthByKind[task.Kind]
	if floor == 0 {
		floor = DefaultMinLength
	}
	if len(trimmed) < floor {
		count++
		reasons = append(reasons, fmt.Sprintf("defect: output shorter than floor (%d < %d chars)", len(trimmed), floor))
	}

	return count, fatal, reasons
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// HeuristicChecker is the deterministic default CriterionChecker. It
// extracts a literal token from patterns like "must contain the word
// FOO" / "must include \"bar\"" and checks case-insensitive containment;
// for criteria without an extractable literal it falls back to a
// keyword-overlap heuristic between the criterion and the content.
type HeuristicChecker struct{}

var literalPattern = regexp.MustCompile(`(?i)(?:contain|contains|include|includes|mention|mentions)\s+(?:the\s+(?:word|phrase)\s+)?"?([A-Za-z0-9_\-]+(?:\s+[A-Za-z0-9_\-]+){0,4})"?`)

func (HeuristicChecker) Check(_ context.Context, criterion, content string) (bool, error) {
	lowerContent := strings.ToLower(content)

	if m := literalPattern.FindStringSubmatch(criterion); m != nil {
		literal := strings.Trim(m[1], `"' `)
		return strings.Contains(lowerContent, strings.ToLower(literal)), nil
	}

	return keywordOverlap(criterion, content) >= 0.5, nil
}

var stopwords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "is": {}, "are": {}, "of": {}, "to": {}, "and": {},
	"in": {}, "for": {}, "with": {}, "must": {}, "should": {}, "that": {}, "this": {},
	"be": {}, "it": {}, "on": {}, "as": {}, "by": {},
}

func keywordOverlap(criterion, content string) float64 {
	keywords := significantWords(criterion)
	if len(keywords) == 0 {
		return 1.0
	}
	contentWords := make(map[string]struct{})
	for _, w := range significantWords(content) {
		contentWords[w] = struct{}{}
	}
	hits := 0
	for _, w := range keywords {
		if _, ok := contentWords[w]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(keywords))
}

func significantWords(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9')
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) <= 3 {
			continue
		}
		if _, stop := stopwords[f]; stop {
			continue
		}
		out = append(out, f)
	}
	return out
}

// LLMRubricChecker renders each criterion as a yes/no question to an
// adapters.Provider (spec.md §4.5(a)'s LLM-rubric alternative).
type LLMRubricChecker struct {
	Provider adapters.Provider
	Model    string
}

func (c LLMRubricChecker) Check(ctx context.Context, criterion, content string) (bool, error) {
	prompt := fmt.Sprintf(
		"Answer strictly YES or NO. Does the following text satisfy this criterion?\nCriterion: %s\nText:\n%s",
		criterion, content,
	)
	resp, _, err := adapters.Execute(ctx, c.Provider, c.Model, adapters.GenerateRequest{
		Model:     c.Model,
		Prompt:    prompt,
		MaxTokens: 8,
	}, 0)
	if err != nil {
		return false, err
	}
	answer := strings.ToLower(strings.TrimSpace(resp.Text))
	return strings.HasPrefix(answer, "yes") || strings.HasPrefix(answer, "true") || answer == "1" || mustParseBool(answer), nil
}

func mustParseBool(s string) bool {
	b, err := strconv.ParseBool(s)
	return err == nil && b
}
