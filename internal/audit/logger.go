// Package audit writes an append-only JSONL trail of what happened to
// each run — plan, schedule, verify, assemble, persist — distinct from
// the RunTrace the journal stores: the RunTrace is the artifacts and
// verdicts a run produced, the audit log is the operational timeline of
// the Engine's own stages succeeding or failing. Grounded on the
// teacher's internal/audit/logger.go JSONL-append shape, retargeted from
// generic actor/resource pairs to the Engine's runID/stage vocabulary.
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// RunEvent is one audit-log record: actor performed stage against runID
// and landed at status, with error set only on failure.
type RunEvent struct {
	Timestamp string `json:"ts"`
	Actor     string `json:"actor"`
	Stage     string `json:"stage"`
	RunID     string `json:"run_id"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
}

// Logger appends RunEvents to a single JSONL file.
type Logger struct {
	mu   sync.Mutex
	path string
}

func NewLogger(path string) *Logger {
	return &Logger{path: path}
}

// Enabled reports whether a Logger was configured with a path at all;
// a nil Logger or one with no AI3_AUDIT_LOG_PATH is a no-op.
func (l *Logger) Enabled() bool {
	return l != nil && l.path != ""
}

// Write appends one RunEvent recording actor's outcome for runID at
// stage. A nil err means status describes a success; Write never
// returns an error for a disabled Logger so callers can fire-and-forget.
func (l *Logger) Write(actor, stage, runID, status string, err error) error {
	if !l.Enabled() {
		return nil
	}

	ev := RunEvent{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Actor:     actor,
		Stage:     stage,
		RunID:     runID,
		Status:    status,
	}
	if err != nil {
		ev.Error = err.Error()
	}
	b, mErr := json.Marshal(ev)
	if mErr != nil {
		return fmt.Errorf("audit marshal: %w", mErr)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if mkErr := os.MkdirAll(filepath.Dir(l.path), 0o755); mkErr != nil {
		return fmt.Errorf("audit mkdir: %w", mkErr)
	}
	f, openErr := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if openErr != nil {
		return fmt.Errorf("audit open: %w", openErr)
	}
	defer func() { _ = f.Close() }()

	if _, wErr := f.Write(append(b, '\n')); wErr != nil {
		return fmt.Errorf("audit write: %w", wErr)
	}
	return nil
}
