package output

import (
	"storebench/internal/bench"
	"storebench/internal/compare"
)

// MultiWriter fans records, phases and comparisons out to multiple writers.
type MultiWriter struct {
	records     []RecordWriter
	phases      []PhaseWriter
	comparisons []ComparisonWriter
}

// NewMultiWriter creates a MultiWriter. Each writer is registered for every
// interface it implements.
func NewMultiWriter(writers ...any) *MultiWriter {
	mw := &MultiWriter{}
	for _, w := range writers {
		if rw, ok := w.(RecordWriter); ok {
			mw.records = append(mw.records, rw)
		}
		if pw, ok := w.(PhaseWriter); ok {
			mw.phases = append(mw.phases, pw)
		}
		if cw, ok := w.(ComparisonWriter); ok {
			mw.comparisons = append(mw.comparisons, cw)
		}
	}
	return mw
}

// WriteRecord sends a record to all record writers.
func (mw *MultiWriter) WriteRecord(r bench.MetricsRecord) error {
	for _, w := range mw.records {
		if err := w.WriteRecord(r); err != nil {
			return err
		}
	}
	return nil
}

// WriteRecords sends several records to all writers, batched where supported.
func (mw *MultiWriter) WriteRecords(rs []bench.MetricsRecord) error {
	for _, w := range mw.records {
		if err := WriteRecords(w, rs); err != nil {
			return err
		}
	}
	return nil
}

// WritePhase sends a phase event to all phase writers.
func (mw *MultiWriter) WritePhase(e bench.PhaseEvent) error {
	for _, w := range mw.phases {
		if err := w.WritePhase(e); err != nil {
			return err
		}
	}
	return nil
}

// WriteComparison sends a comparison to all comparison writers.
func (mw *MultiWriter) WriteComparison(c compare.Result) error {
	for _, w := range mw.comparisons {
		if err := w.WriteComparison(c); err != nil {
			return err
		}
	}
	return nil
}
