package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/your-org/ai3/pkg/types"
)

func newTestJournal(t *testing.T) *Journal {
	t.Helper()
	dir := t.TempDir()
	j, err := Open(filepath.Join(dir, "runs"), filepath.Join(dir, "index.db"))
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	t.Cleanup(func() { j.Close() })
	return j
}

func sampleTrace(runID string, at time.Time) types.RunTrace {
	return types.RunTrace{
		RunID:  runID,
		Prompt: "summarize this document",
		Plan: types.TaskGraph{Tasks: []types.Task{
			{ID: "t1", Kind: types.KindSummarization},
		}},
		Artifacts: []types.Artifact{
			{ArtifactID: "a1", TaskID: "t1", Binding: types.Binding{TaskID: "t1", ModelID: "m1"}, Content: "summary"},
		},
		FinalResponse: types.Response{Content: "summary", Confidence: 0.9},
		Stats:         types.RunStats{TokensIn: 100, TokensOut: 20, Cost: 0.01},
		Timestamp:     at,
	}
}

func TestSaveAndGetTraceRoundTrip(t *testing.T) {
	j := newTestJournal(t)
	tr := sampleTrace("20260101_000000_abcdef", time.Now())

	if err := j.Save(context.Background(), tr); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := j.GetTrace(tr.RunID)
	if err != nil {
		t.Fatalf("get trace: %v", err)
	}
	if got.RunID != tr.RunID || got.Prompt != tr.Prompt {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if len(got.Artifacts) != 1 || got.Artifacts[0].ArtifactID != "a1" {
		t.Fatalf("expected 1 artifact preserved, got %+v", got.Artifacts)
	}
}

func TestSearchFiltersByKindModelAndDate(t *testing.T) {
	j := newTestJournal(t)
	day := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	tr := sampleTrace("20260115_120000_111111", day)
	if err := j.Save(context.Background(), tr); err != nil {
		t.Fatalf("save: %v", err)
	}

	ids, err := j.Search(context.Background(), SearchFilter{TaskKind: "summarization", ModelID: "m1", Date: "2026-01-15"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(ids) != 1 || ids[0] != tr.RunID {
		t.Fatalf("expected to find %q, got %v", tr.RunID, ids)
	}

	none, err := j.Search(context.Background(), SearchFilter{ModelID: "nonexistent"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("expected no matches, got %v", none)
	}
}

func TestStatsAggregatesMatchingRuns(t *testing.T) {
	j := newTestJournal(t)
	tr := sampleTrace("20260115_120000_222222", time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC))
	if err := j.Save(context.Background(), tr); err != nil {
		t.Fatalf("save: %v", err)
	}

	stats, err := j.Stats(context.Background(), SearchFilter{ModelID: "m1"})
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.RunCount != 1 {
		t.Fatalf("expected run count 1, got %d", stats.RunCount)
	}
	if stats.TotalTokens != 120 {
		t.Fatalf("expected total tokens 120, got %d", stats.TotalTokens)
	}
}

func TestNewRunIDIsSortableAndUnique(t *testing.T) {
	now := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	a := NewRunID(now)
	b := NewRunID(now)
	if a == b {
		t.Fatal("expected two calls to produce distinct run ids")
	}
	wantPrefix := "20260304_050607_"
	if a[:len(wantPrefix)] != wantPrefix {
		t.Fatalf("expected run id to start with %q, got %q", wantPrefix, a)
	}
}
