package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/your-org/ai3/pkg/types"
)

var streamCmd = &cobra.Command{
	Use:   "stream [prompt]",
	Short: "Run a prompt, printing each named event to stdout as it occurs",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runStream(args[0])
	},
}

func init() {
	bindRunFlags(streamCmd)
}

// runStream drives one Engine.RunStream call to completion, printing
// "event: <kind> data: <json>" lines and exiting with the same code
// runOnce would for the same outcome.
func runStream(prompt string) {
	cfg := configFromFlags()
	eng, cleanup, err := buildEngine(cfg)
	if err != nil {
		fatal(err)
	}
	defer cleanup()
	defer func() { _ = eng.Shutdown(context.Background()) }()

	events, outcome := eng.RunStream(rootContext(), prompt)
	for ev := range events {
		printEvent(ev)
	}

	out := <-outcome
	if out.Err != nil {
		fatal(out.Err)
	}
}

func printEvent(ev types.Event) {
	b, err := json.Marshal(ev.Payload)
	if err != nil {
		return
	}
	fmt.Fprintf(os.Stdout, "event: %s data: %s\n", ev.Kind, b)
}
