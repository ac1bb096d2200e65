// Package journal persists RunTraces to disk and offers an offline
// (task_kind, model_id, date) index over them (spec.md §4.9, SPEC_FULL.md
// SUPPLEMENTED FEATURES). The JSON-per-run layout and
// SaveToFile/LoadFromFile shape are grounded on the teacher's
// internal/trace.{SaveToFile,LoadFromFile}; the secondary index is
// grounded on Promptonauts-Pipe's pkg/store/sqlite.go (same
// sql.Open("sqlite3", ...)+Migrate()+upsert idiom, repurposed from a
// resource store to a run index).
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/your-org/ai3/pkg/types"
)

// Journal persists RunTraces to dir as "<run_id>.json" and keeps a SQLite
// secondary index at dbPath for Search/Stats lookups.
type Journal struct {
	dir string
	db  *sql.DB
}

// NewRunID generates a sortable run id: YYYYMMDD_HHMMSS_<6 hex>, grounded
// on the teacher's manifest-run naming convention, using google/uuid for
// the random suffix instead of a counter.
func NewRunID(at time.Time) string {
	suffix := uuid.New().String()
	return fmt.Sprintf("%s_%s", at.UTC().Format("20060102_150405"), suffix[:6])
}

// Open ensures dir exists, opens (and migrates) the SQLite index at
// dbPath.
func Open(dir, dbPath string) (*Journal, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("journal: mkdir %q: %w", dir, err)
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("journal: mkdir %q: %w", filepath.Dir(dbPath), err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("journal: open sqlite %q: %w", dbPath, err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("journal: ping sqlite %q: %w", dbPath, err)
	}

	j := &Journal{dir: dir, db: db}
	if err := j.migrate(); err != nil {
		return nil, err
	}
	return j, nil
}

func (j *Journal) migrate() error {
	_, err := j.db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			prompt TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			wall_time_ms INTEGER NOT NULL,
			tokens_in INTEGER NOT NULL,
			tokens_out INTEGER NOT NULL,
			cost REAL NOT NULL,
			tasks_failed INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS run_tasks (
			run_id TEXT NOT NULL,
			task_id TEXT NOT NULL,
			task_kind TEXT NOT NULL,
			model_id TEXT NOT NULL,
			date TEXT NOT NULL,
			FOREIGN KEY (run_id) REFERENCES runs(run_id)
		);

		CREATE INDEX IF NOT EXISTS idx_run_tasks_kind_model_date ON run_tasks(task_kind, model_id, date);
		CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
	`)
	if err != nil {
		return fmt.Errorf("journal: migrate: %w", err)
	}
	return nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

func (j *Journal) path(runID string) string {
	return filepath.Join(j.dir, runID+".json")
}

// Save writes tr to "<dir>/<run_id>.json" and records its index entries.
func (j *Journal) Save(ctx context.Context, tr types.RunTrace) error {
	b, err := json.MarshalIndent(tr, "", "  ")
	if err != nil {
		return fmt.Errorf("journal: marshal run %q: %w", tr.RunID, err)
	}
	if err := os.WriteFile(j.path(tr.RunID), b, 0o644); err != nil {
		return fmt.Errorf("journal: write run %q: %w", tr.RunID, err)
	}
	return j.index(ctx, tr)
}

func (j *Journal) index(ctx context.Context, tr types.RunTrace) error {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("journal: begin index tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (run_id, prompt, created_at, wall_time_ms, tokens_in, tokens_out, cost, tasks_failed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			wall_time_ms = excluded.wall_time_ms,
			tokens_in = excluded.tokens_in,
			tokens_out = excluded.tokens_out,
			cost = excluded.cost,
			tasks_failed = excluded.tasks_failed
	`, tr.RunID, tr.Prompt, tr.Timestamp, tr.Stats.WallTimeMs, tr.Stats.TokensIn, tr.Stats.TokensOut, tr.Stats.Cost, tr.Stats.TasksFailed)
	if err != nil {
		return fmt.Errorf("journal: insert run %q: %w", tr.RunID, err)
	}

	kindByTask := make(map[string]types.TaskKind, len(tr.Plan.Tasks))
	for _, t := range tr.Plan.Tasks {
		kindByTask[t.ID] = t.Kind
	}
	date := tr.Timestamp.UTC().Format("2006-01-02")

	for _, a := range tr.Artifacts {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO run_tasks (run_id, task_id, task_kind, model_id, date) VALUES (?, ?, ?, ?, ?)
		`, tr.RunID, a.TaskID, string(kindByTask[a.TaskID]), a.Binding.ModelID, date)
		if err != nil {
			return fmt.Errorf("journal: insert run_task %q/%q: %w", tr.RunID, a.ArtifactID, err)
		}
	}

	return tx.Commit()
}

// GetTrace loads a persisted RunTrace by id without re-executing
// anything (spec.md §4.9 replay contract).
func (j *Journal) GetTrace(runID string) (types.RunTrace, error) {
	b, err := os.ReadFile(j.path(runID))
	if err != nil {
		return types.RunTrace{}, fmt.Errorf("journal: read run %q: %w", runID, err)
	}
	var tr types.RunTrace
	if err := json.Unmarshal(b, &tr); err != nil {
		return types.RunTrace{}, fmt.Errorf("journal: unmarshal run %q: %w", runID, err)
	}
	return tr, nil
}

// SearchFilter narrows Search results; zero-value fields are unfiltered.
type SearchFilter struct {
	TaskKind string
	ModelID  string
	Date     string // YYYY-MM-DD
}

// Search returns the distinct run ids matching filter, most recent first.
func (j *Journal) Search(ctx context.Context, filter SearchFilter) ([]string, error) {
	query := "SELECT DISTINCT run_tasks.run_id FROM run_tasks JOIN runs ON runs.run_id = run_tasks.run_id WHERE 1=1"
	var args []interface{}
	if filter.TaskKind != "" {
		query += " AND task_kind = ?"
		args = append(args, filter.TaskKind)
	}
	if filter.ModelID != "" {
		query += " AND model_id = ?"
		args = append(args, filter.ModelID)
	}
	if filter.Date != "" {
		query += " AND date = ?"
		args = append(args, filter.Date)
	}
	query += " ORDER BY runs.created_at DESC"

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("journal: search: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("journal: scan search row: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// Stats are aggregate counters over the indexed runs matching a filter.
type Stats struct {
	RunCount    int
	TotalCost   float64
	TotalTokens int64
	FailedRuns  int
}

// Stats aggregates over the distinct runs that have at least one
// run_tasks row matching filter.
func (j *Journal) Stats(ctx context.Context, filter SearchFilter) (Stats, error) {
	subquery := "SELECT DISTINCT run_id FROM run_tasks WHERE 1=1"
	var args []interface{}
	if filter.TaskKind != "" {
		subquery += " AND task_kind = ?"
		args = append(args, filter.TaskKind)
	}
	if filter.ModelID != "" {
		subquery += " AND model_id = ?"
		args = append(args, filter.ModelID)
	}
	if filter.Date != "" {
		subquery += " AND date = ?"
		args = append(args, filter.Date)
	}

	query := fmt.Sprintf(`
		SELECT COUNT(*), COALESCE(SUM(cost), 0), COALESCE(SUM(tokens_in + tokens_out), 0),
			COALESCE(SUM(CASE WHEN tasks_failed > 0 THEN 1 ELSE 0 END), 0)
		FROM runs WHERE run_id IN (%s)`, subquery)

	var s Stats
	row := j.db.QueryRowContext(ctx, query, args...)
	if err := row.Scan(&s.RunCount, &s.TotalCost, &s.TotalTokens, &s.FailedRuns); err != nil {
		return Stats{}, fmt.Errorf("journal: stats: %w", err)
	}
	return s, nil
}
