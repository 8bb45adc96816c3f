// Package output holds the sinks that receive benchmark records, phase
// events and comparisons: stdout (JSON or colored), JSONL files, a live TUI
// and GreptimeDB.
package output

import (
	"storebench/internal/bench"
	"storebench/internal/compare"
)

// RecordWriter receives completed benchmark records.
type RecordWriter interface {
	WriteRecord(bench.MetricsRecord) error
}

// PhaseWriter receives phase boundary events while a run progresses.
type PhaseWriter interface {
	WritePhase(bench.PhaseEvent) error
}

// ComparisonWriter receives the comparison once both records exist.
type ComparisonWriter interface {
	WriteComparison(compare.Result) error
}

// batchRecordWriter is implemented by sinks that prefer batched writes.
type batchRecordWriter interface {
	WriteRecords([]bench.MetricsRecord) error
}

// WriteRecords sends recs to w, batched when w supports it.
func WriteRecords(w RecordWriter, recs []bench.MetricsRecord) error {
	if bw, ok := w.(batchRecordWriter); ok {
		return bw.WriteRecords(recs)
	}
	for _, r := range recs {
		if err := w.WriteRecord(r); err != nil {
			return err
		}
	}
	return nil
}

// Observer adapts a PhaseWriter to a runner observer. Write errors are
// passed to onErr when it is non-nil.
func Observer(w PhaseWriter, onErr func(error)) bench.Observer {
	return func(e bench.PhaseEvent) {
		if err := w.WritePhase(e); err != nil && onErr != nil {
			onErr(err)
		}
	}
}
