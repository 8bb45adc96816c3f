package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"storebench/internal/lab"
	"storebench/internal/output"
)

var (
	runVariant  string
	runBackends []string
	runJSON     bool
	runTUI      bool
	runLogFile  string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Benchmark both store backends and compare them",
	Long:  "run executes the benchmark phases against each backend in turn and prints the per-metric comparison.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if runVariant != "" {
			appCfg.Variant = runVariant
		}
		backends, err := newBackends(appCfg, runBackends)
		if err != nil {
			return err
		}
		runner, err := newRunner(appCfg)
		if err != nil {
			return err
		}

		w, err := newWriters(writerOptions{
			JSON:     runJSON,
			TUI:      runTUI,
			LogFile:  runLogFile,
			Runs:     len(backends),
			Bench:    runner.Config(),
			Greptime: appCfg.Greptime,
		})
		if err != nil {
			return err
		}
		defer w.cleanup()

		onErr := func(err error) { logger.Warn("phase write failed", "err", err) }
		runner.SetObserver(output.Observer(w, onErr))

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		l := lab.New(runner, backends, w, logger)
		if _, err := l.RunAll(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				logger.Info("benchmark interrupted")
				return nil
			}
			return err
		}
		if cmp, ok := l.Comparison(); ok {
			if err := w.WriteComparison(cmp); err != nil {
				return err
			}
		}
		if w.tui != nil {
			// Leave the results on screen until the user quits.
			select {
			case <-ctx.Done():
			case <-tuiDone(w.tui):
			}
		}
		return nil
	},
}

func tuiDone(t *output.TUIWriter) <-chan struct{} {
	ch := make(chan struct{})
	go func() {
		t.Wait()
		close(ch)
	}()
	return ch
}

func init() {
	runCmd.Flags().StringVar(&runVariant, "variant", "", "Preset to run (single-screen, full); defaults to config")
	runCmd.Flags().StringSliceVar(&runBackends, "backends", nil, "Backends to run in order (redux, alt)")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "Print JSON lines instead of colored output")
	runCmd.Flags().BoolVar(&runTUI, "tui", false, "Show a live terminal UI")
	runCmd.Flags().StringVar(&runLogFile, "log-file", "", "Append records (JSONL) to this file and phases to <file>.phases")
	runCmd.MarkFlagsMutuallyExclusive("json", "tui")
}
