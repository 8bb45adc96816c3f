package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"storebench/internal/bench"
	"storebench/internal/compare"
)

func record(backend string, ts time.Time) bench.MetricsRecord {
	return bench.MetricsRecord{
		RunID:               "r-" + backend,
		Backend:             backend,
		Variant:             bench.VariantSingleScreen,
		RenderTimeMs:        3.5,
		UpdateTimeMs:        7.25,
		MemoryBytes:         2048,
		BundleSizeKB:        13.5,
		OperationsPerSecond: 1000,
		ThroughputOps:       30000,
		ThroughputWindowMs:  30000,
		Iterations:          1000,
		Timestamp:           ts,
	}
}

func TestJSONWriter(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewJSONWriter(buf)
	ts := time.Unix(0, 0).UTC()
	if err := w.WriteRecord(record(bench.BackendRedux, ts)); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := w.WritePhase(bench.PhaseEvent{Backend: bench.BackendAlt, Phase: bench.PhaseRender, Status: bench.PhaseStarted}); err != nil {
		t.Fatalf("phase: %v", err)
	}
	res := compare.Compare(record(bench.BackendRedux, ts), record(bench.BackendAlt, ts))
	if err := w.WriteComparison(res); err != nil {
		t.Fatalf("comparison: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines", len(lines))
	}
	var env struct {
		Kind string          `json:"kind"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal([]byte(lines[0]), &env); err != nil || env.Kind != "record" {
		t.Fatalf("first line %q: %v", lines[0], err)
	}
	if !strings.Contains(string(env.Data), `"operationsPerSecond":1000`) {
		t.Fatalf("record json missing field: %s", env.Data)
	}
	if !strings.Contains(lines[2], `"overall":"tie"`) {
		t.Fatalf("comparison line missing overall: %s", lines[2])
	}
}

func TestColorWriterComparison(t *testing.T) {
	buf := &bytes.Buffer{}
	cfg, _ := bench.Preset(bench.VariantFull)
	w := &ColorStdoutWriter{cfg: &cfg, out: buf}
	redux := record(bench.BackendRedux, time.Now())
	alt := redux
	alt.Backend = bench.BackendAlt
	alt.BundleSizeKB = 2.1
	if err := w.WriteRecord(redux); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := w.WriteComparison(compare.Compare(redux, alt)); err != nil {
		t.Fatalf("comparison: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Benchmark Configuration", "Render Time", "Bundle Size", "Operations/sec", "Nanostores", "Overall"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
	if strings.Count(out, "Benchmark Configuration") != 1 {
		t.Fatalf("overview printed more than once")
	}
}

func TestFileWriterAndReplay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "runs.jsonl")
	phases := filepath.Join(dir, "phases.jsonl")
	fw, err := NewFileWriter(path, phases)
	if err != nil {
		t.Fatalf("NewFileWriter: %v", err)
	}
	old := record(bench.BackendRedux, time.Unix(100, 0).UTC())
	newer := record(bench.BackendRedux, time.Unix(200, 0).UTC())
	newer.RunID = "newer"
	alt := record(bench.BackendAlt, time.Unix(150, 0).UTC())
	if err := fw.WriteRecords([]bench.MetricsRecord{newer, old, alt}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := fw.WritePhase(bench.PhaseEvent{Backend: bench.BackendRedux, Phase: bench.PhaseUpdate}); err != nil {
		t.Fatalf("phase: %v", err)
	}
	if err := fw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if info, err := os.Stat(phases); err != nil || info.Size() == 0 {
		t.Fatalf("phase file empty: %v", err)
	}

	latest := NewLatestRecords()
	if err := ReplayLogFile(path, latest); err != nil {
		t.Fatalf("replay: %v", err)
	}
	recs := latest.Records()
	if len(recs) != 2 {
		t.Fatalf("got %d latest records", len(recs))
	}
	if recs[0].Backend != bench.BackendRedux || recs[0].RunID != "newer" {
		t.Fatalf("unexpected latest redux %+v", recs[0])
	}
	if recs[1].Backend != bench.BackendAlt {
		t.Fatalf("unexpected order %+v", recs)
	}
}

func TestReplayMalformed(t *testing.T) {
	err := ReplayLog(strings.NewReader("{not json"), NewLatestRecords())
	if err == nil {
		t.Fatalf("expected decode error")
	}
}

type failingWriter struct{ n int }

func (f *failingWriter) WriteRecord(bench.MetricsRecord) error {
	f.n++
	return errors.New("boom")
}

type countingWriter struct{ records, phases, comparisons int }

func (c *countingWriter) WriteRecord(bench.MetricsRecord) error { c.records++; return nil }
func (c *countingWriter) WritePhase(bench.PhaseEvent) error { c.phases++; return nil }
func (c *countingWriter) WriteComparison(compare.Result) error { c.comparisons++; return nil }

func TestMultiWriterFanOut(t *testing.T) {
	a, b := &countingWriter{}, &countingWriter{}
	only := NewLatestRecords()
	mw := NewMultiWriter(a, b, only)
	_ = mw.WriteRecord(record(bench.BackendAlt, time.Now()))
	_ = mw.WriteRecords([]bench.MetricsRecord{record(bench.BackendRedux, time.Now())})
	_ = mw.WritePhase(bench.PhaseEvent{})
	_ = mw.WriteComparison(compare.Result{})
	if a.records != 2 || b.records != 2 || a.phases != 1 || b.comparisons != 1 {
		t.Fatalf("unexpected counts a=%+v b=%+v", a, b)
	}
	if len(only.Records()) != 2 {
		t.Fatalf("record-only writer missed records")
	}

	f := &failingWriter{}
	mw = NewMultiWriter(f, a)
	if err := mw.WriteRecord(bench.MetricsRecord{}); err == nil {
		t.Fatalf("expected error from failing writer")
	}
}

func TestObserverReportsErrors(t *testing.T) {
	var got error
	obs := Observer(phaseFunc(func(bench.PhaseEvent) error { return errors.New("x") }), func(err error) { got = err })
	obs(bench.PhaseEvent{})
	if got == nil {
		t.Fatalf("error not reported")
	}
}

type phaseFunc func(bench.PhaseEvent) error

func (f phaseFunc) WritePhase(e bench.PhaseEvent) error { return f(e) }

func TestFormatBytes(t *testing.T) {
	cases := map[uint64]string{
		512:     "512 B",
		2048:    "2.00 KB",
		1 << 20: "1.00 MB",
	}
	for in, want := range cases {
		if got := formatBytes(in); got != want {
			t.Errorf("formatBytes(%d) = %q, want %q", in, got, want)
		}
	}
}
