package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/your-org/ai3/internal/config"
	"github.com/your-org/ai3/internal/journal"
)

var flagRunID string

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Reload a persisted run trace and print its final response, without re-executing anything",
	Run: func(cmd *cobra.Command, args []string) {
		if flagRunID == "" {
			fatal(fmt.Errorf("--run-id is required"))
		}

		cfg := config.FromEnv()
		j, err := journal.Open(cfg.JournalDir, cfg.JournalDB)
		if err != nil {
			fatal(err)
		}
		defer j.Close()

		tr, err := j.GetTrace(flagRunID)
		if err != nil {
			fatal(err)
		}

		fmt.Println(tr.FinalResponse.Content)
		fmt.Fprintf(os.Stderr, "run_id=%s prompt=%q tasks=%d artifacts=%d tokens_in=%d tokens_out=%d cost=%.4f\n",
			tr.RunID, tr.Prompt, len(tr.Plan.Tasks), len(tr.Artifacts), tr.Stats.TokensIn, tr.Stats.TokensOut, tr.Stats.Cost)
	},
}

func init() {
	replayCmd.Flags().StringVar(&flagRunID, "run-id", "", "run id to reload from the journal")
}
