package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/your-org/ai3/internal/audit"
	"github.com/your-org/ai3/internal/config"
	"github.com/your-org/ai3/internal/journal"
)

var (
	flagJournalTaskKind string
	flagJournalModelID  string
	flagJournalDate     string

	flagAuditIn    string
	flagAuditOut   string
	flagAuditRunID string
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Search and summarize persisted run traces",
}

var journalSearchCmd = &cobra.Command{
	Use:   "search",
	Short: "List run ids whose tasks match --task-kind/--model-id/--date, most recent first",
	Run: func(cmd *cobra.Command, args []string) {
		j := openJournal()
		defer j.Close()

		ids, err := j.Search(context.Background(), journal.SearchFilter{
			TaskKind: flagJournalTaskKind,
			ModelID:  flagJournalModelID,
			Date:     flagJournalDate,
		})
		if err != nil {
			fatal(err)
		}
		if len(ids) == 0 {
			fmt.Fprintln(os.Stderr, "ai3: no runs matched")
			return
		}
		for _, id := range ids {
			fmt.Println(id)
		}
	},
}

var journalStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Aggregate run count, cost, tokens and failure count over --task-kind/--model-id/--date",
	Run: func(cmd *cobra.Command, args []string) {
		j := openJournal()
		defer j.Close()

		s, err := j.Stats(context.Background(), journal.SearchFilter{
			TaskKind: flagJournalTaskKind,
			ModelID:  flagJournalModelID,
			Date:     flagJournalDate,
		})
		if err != nil {
			fatal(err)
		}
		fmt.Printf("runs=%d failed_runs=%d total_tokens=%d total_cost=%.4f\n",
			s.RunCount, s.FailedRuns, s.TotalTokens, s.TotalCost)
	},
}

var journalExportAuditCmd = &cobra.Command{
	Use:   "export-audit",
	Short: "Export the JSONL audit log (optionally filtered to one run) as CSV",
	Run: func(cmd *cobra.Command, args []string) {
		in := flagAuditIn
		if in == "" {
			in = config.FromEnv().AuditLogPath
		}
		if in == "" {
			fatal(fmt.Errorf("no audit log path: set --in or AI3_AUDIT_LOG_PATH"))
		}
		if flagAuditOut == "" {
			fatal(fmt.Errorf("--out is required"))
		}
		if err := audit.ExportJSONLToCSV(in, flagAuditOut, flagAuditRunID); err != nil {
			fatal(err)
		}
		fmt.Fprintf(os.Stderr, "ai3: wrote %s\n", flagAuditOut)
	},
}

func openJournal() *journal.Journal {
	cfg := config.FromEnv()
	j, err := journal.Open(cfg.JournalDir, cfg.JournalDB)
	if err != nil {
		fatal(err)
	}
	return j
}

func init() {
	for _, c := range []*cobra.Command{journalSearchCmd, journalStatsCmd} {
		c.Flags().StringVar(&flagJournalTaskKind, "task-kind", "", "filter by task kind")
		c.Flags().StringVar(&flagJournalModelID, "model-id", "", "filter by model id")
		c.Flags().StringVar(&flagJournalDate, "date", "", "filter by date (YYYY-MM-DD)")
	}

	journalExportAuditCmd.Flags().StringVar(&flagAuditIn, "in", "", "input JSONL audit log (default: AI3_AUDIT_LOG_PATH)")
	journalExportAuditCmd.Flags().StringVar(&flagAuditOut, "out", "", "output CSV path")
	journalExportAuditCmd.Flags().StringVar(&flagAuditRunID, "run-id", "", "restrict export to one run id")

	journalCmd.AddCommand(journalSearchCmd, journalStatsCmd, journalExportAuditCmd)
	rootCmd.AddCommand(journalCmd)
}
