package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "ai3",
	Short: "Multi-model LLM orchestration engine",
	Long: `ai3 decomposes a prompt into a task graph, routes each task to the
best-fit model across providers, verifies and repairs rejected output,
falls back across providers on persistent failure, and assembles the
terminal artifacts into one response.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitCodeFor(err))
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(streamCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(versionCmd)
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "ai3:", err)
	os.Exit(exitCodeFor(err))
}
