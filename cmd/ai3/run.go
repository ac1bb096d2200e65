package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/your-org/ai3/internal/config"
)

var (
	flagMaxConcurrency            int
	flagMaxConcurrencyPerProvider int
	flagPlannerModel              string
	flagNoVerify                  bool
	flagRepairLimit               int
	flagStream                    bool
)

func bindRunFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&flagMaxConcurrency, "max-concurrency", 0, "global concurrency cap (default: AI3_MAX_CONCURRENCY or 5)")
	cmd.Flags().IntVar(&flagMaxConcurrencyPerProvider, "max-concurrency-per-provider", 0, "per-provider concurrency cap (default: AI3_MAX_CONCURRENCY_PER_PROVIDER or 3)")
	cmd.Flags().StringVar(&flagPlannerModel, "planner-model", "", "model id the Planner calls (default: AI3_PLANNER_MODEL)")
	cmd.Flags().BoolVar(&flagNoVerify, "no-verify", false, "skip the Verifier; every artifact is treated as passed")
	cmd.Flags().IntVar(&flagRepairLimit, "repair-limit", -1, "repair attempts per task (default: AI3_REPAIR_LIMIT or 1)")
}

func configFromFlags() config.RunConfig {
	cfg := config.FromEnv()
	if flagMaxConcurrency > 0 {
		cfg.MaxConcurrency = flagMaxConcurrency
	}
	if flagMaxConcurrencyPerProvider > 0 {
		cfg.MaxConcurrencyPerProvider = flagMaxConcurrencyPerProvider
	}
	if flagPlannerModel != "" {
		cfg.PlannerModel = flagPlannerModel
	}
	if flagNoVerify {
		cfg.Verify = false
	}
	if flagRepairLimit >= 0 {
		cfg.RepairLimit = flagRepairLimit
	}
	return cfg
}

var runCmd = &cobra.Command{
	Use:   "run [prompt]",
	Short: "Run a prompt to completion and print the assembled response",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if flagStream {
			runStream(args[0])
			return
		}
		runOnce(args[0])
	},
}

func init() {
	bindRunFlags(runCmd)
	runCmd.Flags().BoolVar(&flagStream, "stream", false, "stream named events to stdout as they occur")
}

func rootContext() context.Context {
	ctx, _ := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	return ctx
}

func runOnce(prompt string) {
	cfg := configFromFlags()
	eng, cleanup, err := buildEngine(cfg)
	if err != nil {
		fatal(err)
	}
	defer cleanup()
	defer func() { _ = eng.Shutdown(context.Background()) }()

	resp, tr, err := eng.Run(rootContext(), strings.TrimSpace(prompt))
	if err != nil {
		fatal(err)
	}

	fmt.Println(resp.Content)
	fmt.Fprintf(os.Stderr, "run_id=%s tokens_in=%d tokens_out=%d cost=%.4f wall_time_ms=%d\n",
		tr.RunID, tr.Stats.TokensIn, tr.Stats.TokensOut, tr.Stats.Cost, tr.Stats.WallTimeMs)
}
