package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"storebench/internal/bench"
	"storebench/internal/compare"
	"storebench/internal/config"
	"storebench/internal/output"
)

var (
	compareInput string
	compareJSON  bool
	comparePush  bool
)

// errIncompleteLog is returned when a run log lacks one of the backends.
var errIncompleteLog = errors.New("run both benchmarks first: log needs a redux and an alt record")

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Compare the latest records of a run log",
	Long:  "compare replays a JSONL run log, keeps the newest record per backend and prints their comparison.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if compareInput == "" {
			return fmt.Errorf("input file required")
		}
		latest := output.NewLatestRecords()
		if err := output.ReplayLogFile(compareInput, latest); err != nil {
			return fmt.Errorf("replay %s: %w", compareInput, err)
		}
		result, err := compareLatest(latest)
		if err != nil {
			return err
		}

		bc, _ := bench.Preset(result.Redux.Variant)
		bc.Variant = result.Redux.Variant
		bc.Iterations = result.Redux.Iterations
		if comparePush {
			if err := pushRecords(latest.Records()); err != nil {
				return err
			}
		}
		w, err := newWriters(writerOptions{JSON: compareJSON, Bench: bc})
		if err != nil {
			return err
		}
		defer w.cleanup()
		return w.WriteComparison(result)
	},
}

func compareLatest(latest *output.LatestRecords) (compare.Result, error) {
	redux, ok := latest.ByBackend[bench.BackendRedux]
	if !ok {
		return compare.Result{}, errIncompleteLog
	}
	alt, ok := latest.ByBackend[bench.BackendAlt]
	if !ok {
		return compare.Result{}, errIncompleteLog
	}
	return compare.Compare(redux, alt), nil
}

// pushRecords writes recs to the configured GreptimeDB runs table.
func pushRecords(recs []bench.MetricsRecord) error {
	g := appCfg.Greptime
	if g.Endpoint == "" {
		return fmt.Errorf("--push needs %s or greptime.endpoint", config.EnvGreptimeEndpoint)
	}
	gw, err := output.NewGreptimeDBWriter(g.Endpoint, g.Database, g.RunsTable, "-", logger)
	if err != nil {
		return err
	}
	if err := output.WriteRecords(gw, recs); err != nil {
		return fmt.Errorf("push records: %w", err)
	}
	logger.Info("records pushed", "table", gw.RunsTable(), "records", len(recs))
	return nil
}

func init() {
	compareCmd.Flags().StringVar(&compareInput, "input", "", "Path to run log (JSONL)")
	compareCmd.Flags().BoolVar(&compareJSON, "json", false, "Print JSON lines instead of colored output")
	compareCmd.Flags().BoolVar(&comparePush, "push", false, "Also write the compared records to GreptimeDB")
	compareCmd.MarkFlagRequired("input")
}
