package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"storebench/internal/bench"
	"storebench/internal/compare"
)

// JSONStdoutWriter prints records, phases and comparisons as JSON lines.
type JSONStdoutWriter struct {
	out io.Writer
}

// NewJSONStdoutWriter creates a JSONStdoutWriter writing to os.Stdout.
func NewJSONStdoutWriter() *JSONStdoutWriter {
	return &JSONStdoutWriter{out: os.Stdout}
}

// NewJSONWriter creates a JSONStdoutWriter writing to w.
func NewJSONWriter(w io.Writer) *JSONStdoutWriter {
	return &JSONStdoutWriter{out: w}
}

type envelope struct {
	Kind string `json:"kind"`
	Data any    `json:"data"`
}

func (w *JSONStdoutWriter) emit(kind string, v any) error {
	data, err := json.Marshal(envelope{Kind: kind, Data: v})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w.out, string(data))
	return err
}

// WriteRecord outputs a record.
func (w *JSONStdoutWriter) WriteRecord(r bench.MetricsRecord) error { return w.emit("record", r) }

// WriteRecords outputs several records.
func (w *JSONStdoutWriter) WriteRecords(rs []bench.MetricsRecord) error {
	for _, r := range rs {
		if err := w.WriteRecord(r); err != nil {
			return err
		}
	}
	return nil
}

// WritePhase outputs a phase event.
func (w *JSONStdoutWriter) WritePhase(e bench.PhaseEvent) error { return w.emit("phase", e) }

// WriteComparison outputs a comparison.
func (w *JSONStdoutWriter) WriteComparison(c compare.Result) error {
	return w.emit("comparison", struct {
		compare.Result
		Overall compare.Winner `json:"overall"`
	}{c, c.Overall()})
}
