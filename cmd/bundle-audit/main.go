// Command bundle-audit analyzes ./dist, runs Lighthouse against the local
// preview server when it is up and writes ./benchmark-report.json.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"storebench/internal/audit"
	"storebench/internal/logging"
)

func main() {
	log := logging.New("")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logging.NewContext(ctx, log)

	cfg := audit.DefaultConfig()
	perf := audit.NewLighthouseAuditor(audit.ExecRunner{Stream: os.Stderr}, audit.DefaultLighthouseOutput)
	if _, err := audit.New(cfg, perf, os.Stdout, log).Run(ctx); err != nil {
		log.Error("audit failed", "err", err)
		stop()
		os.Exit(1)
	}
}
