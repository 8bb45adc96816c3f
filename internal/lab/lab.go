// Package lab owns both store backends, serializes benchmark runs and keeps
// the latest record per backend.
package lab

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"storebench/internal/bench"
	"storebench/internal/compare"
)

var (
	// ErrBusy is returned when a run is requested while another is in flight.
	ErrBusy = errors.New("a benchmark is already running")
	// ErrUnknownBackend is returned for ids that name no backend.
	ErrUnknownBackend = errors.New("unknown backend")
)

// RecordWriter receives every completed record.
type RecordWriter interface {
	WriteRecord(bench.MetricsRecord) error
}

// Lab coordinates the runner with the two backends.
type Lab struct {
	runner   *bench.Runner
	backends []bench.Backend
	writer   RecordWriter
	log      *slog.Logger

	mu      sync.Mutex
	running string
	records map[string]bench.MetricsRecord
}

// New returns a Lab. writer may be nil.
func New(runner *bench.Runner, backends []bench.Backend, writer RecordWriter, log *slog.Logger) *Lab {
	if log == nil {
		log = slog.Default()
	}
	return &Lab{
		runner:   runner,
		backends: backends,
		writer:   writer,
		log:      log,
		records:  make(map[string]bench.MetricsRecord),
	}
}

// Backends returns the configured backends in order.
func (l *Lab) Backends() []bench.Backend {
	out := make([]bench.Backend, len(l.backends))
	copy(out, l.backends)
	return out
}

// Backend looks up a backend by id.
func (l *Lab) Backend(id string) (bench.Backend, bool) {
	for _, b := range l.backends {
		if b.ID == id {
			return b, true
		}
	}
	return bench.Backend{}, false
}

// Running reports the id of the backend currently being benchmarked.
func (l *Lab) Running() (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running, l.running != ""
}

// Run benchmarks one backend and stores the record, replacing any previous
// record for it.
func (l *Lab) Run(ctx context.Context, id string) (bench.MetricsRecord, error) {
	b, ok := l.Backend(id)
	if !ok {
		return bench.MetricsRecord{}, fmt.Errorf("%w: %q", ErrUnknownBackend, id)
	}
	l.mu.Lock()
	if l.running != "" {
		busy := l.running
		l.mu.Unlock()
		return bench.MetricsRecord{}, fmt.Errorf("%w: %s", ErrBusy, busy)
	}
	l.running = id
	l.mu.Unlock()

	rec, err := l.runner.Run(ctx, b)

	l.mu.Lock()
	l.running = ""
	if err == nil {
		l.records[id] = rec
	}
	l.mu.Unlock()
	if err != nil {
		return bench.MetricsRecord{}, fmt.Errorf("run %s: %w", id, err)
	}

	if l.writer != nil {
		if werr := l.writer.WriteRecord(rec); werr != nil {
			l.log.Error("record write failed", "backend", id, "err", werr)
		}
	}
	return rec, nil
}

// RunAll benchmarks every backend in order, stopping at the first error.
func (l *Lab) RunAll(ctx context.Context) ([]bench.MetricsRecord, error) {
	var out []bench.MetricsRecord
	for _, b := range l.backends {
		rec, err := l.Run(ctx, b.ID)
		if err != nil {
			return out, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// Record returns the latest record for a backend.
func (l *Lab) Record(id string) (bench.MetricsRecord, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	r, ok := l.records[id]
	return r, ok
}

// Records returns a copy of the latest records keyed by backend id.
func (l *Lab) Records() map[string]bench.MetricsRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]bench.MetricsRecord, len(l.records))
	for k, v := range l.records {
		out[k] = v
	}
	return out
}

// Load seeds the latest records, e.g. from a replayed run log.
func (l *Lab) Load(recs ...bench.MetricsRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, r := range recs {
		l.records[r.Backend] = r
	}
}

// Comparison compares the latest redux and alt records. It reports false
// until both exist.
func (l *Lab) Comparison() (compare.Result, bool) {
	redux, ok := l.Record(bench.BackendRedux)
	if !ok {
		return compare.Result{}, false
	}
	alt, ok := l.Record(bench.BackendAlt)
	if !ok {
		return compare.Result{}, false
	}
	return compare.Compare(redux, alt), true
}
