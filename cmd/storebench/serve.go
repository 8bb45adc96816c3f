package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"storebench/internal/bench"
	"storebench/internal/lab"
	"storebench/internal/metrics"
	"storebench/internal/output"
	"storebench/internal/ui"
)

var (
	serveAddr    string
	serveLoad    string
	serveLogFile string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the interactive benchmark UI",
	Long:  "serve starts the web UI with one page per backend, a results page, a JSON API and Prometheus metrics.",
	RunE: func(cmd *cobra.Command, args []string) error {
		backends, err := newBackends(appCfg, nil)
		if err != nil {
			return err
		}
		exporter := metrics.NewExporter()
		sinks := []any{exporter}
		if appCfg.Greptime.Endpoint != "" {
			gw, err := output.NewGreptimeDBWriter(appCfg.Greptime.Endpoint, appCfg.Greptime.Database,
				appCfg.Greptime.RunsTable, appCfg.Greptime.PhasesTable, logger)
			if err != nil {
				return err
			}
			sinks = append(sinks, gw)
		}
		if serveLogFile != "" {
			fw, err := output.NewFileWriter(serveLogFile, serveLogFile+".phases")
			if err != nil {
				return err
			}
			defer fw.Close()
			sinks = append(sinks, fw)
		}
		mw := output.NewMultiWriter(sinks...)

		runner, err := newRunner(appCfg)
		if err != nil {
			return err
		}
		l := lab.New(runner, backends, mw, logger)
		if serveLoad != "" {
			latest := output.NewLatestRecords()
			if err := output.ReplayLogFile(serveLoad, latest); err != nil {
				return err
			}
			recs := latest.Records()
			l.Load(recs...)
			for _, r := range recs {
				exporter.LoadRecord(r)
			}
			logger.Info("records loaded", "path", serveLoad, "records", len(recs))
		}

		srv := ui.NewServer(l, exporter.Handler(), logger)
		onErr := func(err error) { logger.Warn("phase write failed", "err", err) }
		phases := output.Observer(mw, onErr)
		runner.SetObserver(func(ev bench.PhaseEvent) {
			srv.Observe(ev)
			phases(ev)
		})

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		addr := serveAddr
		if addr == "" {
			addr = appCfg.Server.Addr
		}
		err = srv.Start(ctx, addr)
		logger.Info("ui stopped")
		return err
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address; defaults to config (:3000)")
	serveCmd.Flags().StringVar(&serveLoad, "load", "", "Seed the latest records from a run log (JSONL)")
	serveCmd.Flags().StringVar(&serveLogFile, "log-file", "", "Append records (JSONL) to this file and phases to <file>.phases")
}
