package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/your-org/ai3/internal/app"
	"github.com/your-org/ai3/internal/metrics"
)

var flagServeAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the Engine over HTTP (POST /run, POST /stream/run)",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := configFromFlags()
		eng, cleanup, err := buildEngine(cfg)
		if err != nil {
			fatal(err)
		}
		defer cleanup()
		defer func() { _ = eng.Shutdown(context.Background()) }()

		ctx := rootContext()

		if eng.PromRegistry != nil {
			metricsSrv, err := metrics.StartPrometheusServer(os.Getenv("METRICS_ADDR"), eng.PromRegistry)
			if err != nil {
				fatal(err)
			}
			defer func() { _ = metrics.StopServer(context.Background(), metricsSrv) }()
		}

		addr := flagServeAddr
		if addr == "" {
			addr = os.Getenv("AI3_ADDR")
		}
		fmt.Fprintf(os.Stderr, "ai3: serving on %s\n", addrOrDefault(addr))
		if err := app.StartServer(ctx, addr, eng); err != nil {
			fatal(err)
		}
	},
}

func init() {
	bindRunFlags(serveCmd)
	serveCmd.Flags().StringVar(&flagServeAddr, "addr", "", "listen address (default: AI3_ADDR or :8080)")
}

func addrOrDefault(addr string) string {
	if addr == "" {
		return ":8080"
	}
	return addr
}
