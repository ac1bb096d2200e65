package audit

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
)

// ExportJSONLToCSV converts the JSONL audit log at inputPath into a CSV
// at outputPath. When runID is non-empty, only RunEvents for that run
// are written — the common case for an operator debugging one run
// rather than dumping the whole operational history.
func ExportJSONLToCSV(inputPath, outputPath, runID string) error {
	in, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("open input audit log: %w", err)
	}
	defer in.Close()

	out, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create output csv: %w", err)
	}
	defer out.Close()

	w := csv.NewWriter(out)
	defer w.Flush()
	if err := w.Write([]string{"ts", "actor", "stage", "run_id", "status", "error"}); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	s := bufio.NewScanner(in)
	rows := 0
	for s.Scan() {
		line := s.Bytes()
		if len(line) == 0 {
			continue
		}
		var ev RunEvent
		if err := json.Unmarshal(line, &ev); err != nil {
			return fmt.Errorf("parse audit line: %w", err)
		}
		if runID != "" && ev.RunID != runID {
			continue
		}
		if err := w.Write([]string{ev.Timestamp, ev.Actor, ev.Stage, ev.RunID, ev.Status, ev.Error}); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
		rows++
	}
	if err := s.Err(); err != nil {
		return fmt.Errorf("scan audit log: %w", err)
	}
	if rows == 0 && runID != "" {
		return fmt.Errorf("no audit events found for run %q", runID)
	}
	return nil
}
