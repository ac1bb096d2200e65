package state

import (
	"context"
	"testing"
)

func TestToContextAndFromContextRoundTrip(t *testing.T) {
	ctx := ToContext(context.Background(), Snapshot{RunID: "run-1", TaskID: "t1"})

	got, ok := FromContext(ctx)
	if !ok {
		t.Fatal("expected a snapshot to be present")
	}
	if got.RunID != "run-1" || got.TaskID != "t1" {
		t.Fatalf("unexpected snapshot: %+v", got)
	}
}

func TestFromContextMissing(t *testing.T) {
	if _, ok := FromContext(context.Background()); ok {
		t.Fatal("expected no snapshot on a bare context")
	}
}
