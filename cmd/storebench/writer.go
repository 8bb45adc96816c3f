package main

import (
	"os"

	"golang.org/x/term"

	"storebench/internal/bench"
	"storebench/internal/config"
	"storebench/internal/output"
)

// stdoutIsTerminal reports whether colored output makes sense.
var stdoutIsTerminal = func() bool { return term.IsTerminal(int(os.Stdout.Fd())) }

type writerOptions struct {
	JSON     bool
	TUI      bool
	LogFile  string
	// Runs sizes the TUI progress bar.
	Runs     int
	Bench    bench.Config
	Greptime config.Greptime
}

// writers bundles the fan-out writer with the pieces the caller must manage.
type writers struct {
	*output.MultiWriter
	tui     *output.TUIWriter
	cleanup func()
}

// newWriters sets up stdout, file and GreptimeDB sinks based on flags and config.
func newWriters(opts writerOptions) (*writers, error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	var sinks []any
	var tui *output.TUIWriter
	switch {
	case opts.TUI:
		tui = output.NewTUIWriter(opts.Bench, opts.Runs)
		closers = append(closers, func() { tui.Close() })
		sinks = append(sinks, tui)
	case opts.JSON || !stdoutIsTerminal():
		sinks = append(sinks, output.NewJSONStdoutWriter())
	default:
		sinks = append(sinks, output.NewColorStdoutWriter(&opts.Bench))
	}

	if opts.Greptime.Endpoint != "" {
		gw, err := output.NewGreptimeDBWriter(opts.Greptime.Endpoint, opts.Greptime.Database,
			opts.Greptime.RunsTable, opts.Greptime.PhasesTable, logger)
		if err != nil {
			cleanup()
			return nil, err
		}
		sinks = append(sinks, gw)
	}

	if opts.LogFile != "" {
		fw, err := output.NewFileWriter(opts.LogFile, opts.LogFile+".phases")
		if err != nil {
			cleanup()
			return nil, err
		}
		closers = append(closers, func() { fw.Close() })
		sinks = append(sinks, fw)
	}

	return &writers{MultiWriter: output.NewMultiWriter(sinks...), tui: tui, cleanup: cleanup}, nil
}
