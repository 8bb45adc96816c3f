package lab

import (
	"context"
	"errors"
	"testing"
	"time"

	"storebench/internal/bench"
	"storebench/internal/store"
)

type captureWriter struct {
	recs []bench.MetricsRecord
	err  error
}

func (c *captureWriter) WriteRecord(r bench.MetricsRecord) error {
	c.recs = append(c.recs, r)
	return c.err
}

func newBackends() []bench.Backend {
	clock := func() time.Time { return time.Unix(1700000000, 0) }
	return []bench.Backend{
		{ID: bench.BackendRedux, Name: "Redux", BundleSizeKB: 13.5, Store: store.NewReducerStore("redux", store.NewIDSource(clock))},
		{ID: bench.BackendAlt, Name: "Nanostores", BundleSizeKB: 2.1, Store: store.NewAtomStore("alt", store.NewIDSource(clock))},
	}
}

func newRunner(t *testing.T, opts ...bench.Option) *bench.Runner {
	t.Helper()
	var tick time.Time
	base := []bench.Option{
		bench.WithClock(func() time.Time { tick = tick.Add(time.Millisecond); return tick }),
		bench.WithSleep(func(ctx context.Context, _ time.Duration) error { return ctx.Err() }),
		bench.WithYield(func() {}),
		bench.WithMemorySampler(bench.MemorySamplerFunc(func() (uint64, error) { return 1024, nil })),
	}
	r, err := bench.NewRunner(bench.Config{
		Variant:          "test",
		Iterations:       10,
		RenderOp:         bench.RenderIncrement,
		ThroughputWindow: 5 * time.Millisecond,
	}, append(base, opts...)...)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	return r
}

func TestRunStoresRecordAndComparison(t *testing.T) {
	w := &captureWriter{}
	l := New(newRunner(t), newBackends(), w, nil)
	if _, ok := l.Comparison(); ok {
		t.Fatalf("comparison available before any run")
	}
	if _, err := l.Run(context.Background(), bench.BackendRedux); err != nil {
		t.Fatalf("Run redux: %v", err)
	}
	if _, ok := l.Comparison(); ok {
		t.Fatalf("comparison available with one record")
	}
	if _, err := l.Run(context.Background(), bench.BackendAlt); err != nil {
		t.Fatalf("Run alt: %v", err)
	}
	res, ok := l.Comparison()
	if !ok || len(res.Metrics) != 5 {
		t.Fatalf("comparison = %+v, %v", res, ok)
	}
	if len(w.recs) != 2 {
		t.Fatalf("writer got %d records", len(w.recs))
	}
	if len(l.Records()) != 2 {
		t.Fatalf("records = %v", l.Records())
	}
}

func TestRunOverwritesPrevious(t *testing.T) {
	n := 0
	l := New(newRunner(t, bench.WithRunID(func() string { n++; return string(rune('a' + n)) })), newBackends(), nil, nil)
	first, _ := l.Run(context.Background(), bench.BackendAlt)
	second, _ := l.Run(context.Background(), bench.BackendAlt)
	got, _ := l.Record(bench.BackendAlt)
	if got.RunID != second.RunID || got.RunID == first.RunID {
		t.Fatalf("record not overwritten: %s vs %s", got.RunID, second.RunID)
	}
}

func TestUnknownBackend(t *testing.T) {
	l := New(newRunner(t), newBackends(), nil, nil)
	if _, err := l.Run(context.Background(), "mobx"); !errors.Is(err, ErrUnknownBackend) {
		t.Fatalf("err = %v", err)
	}
}

func TestConcurrentRunRejected(t *testing.T) {
	var l *Lab
	var busyErr error
	r := newRunner(t, bench.WithObserver(func(e bench.PhaseEvent) {
		if e.Phase == bench.PhaseRender && e.Status == bench.PhaseStarted && busyErr == nil {
			_, busyErr = l.Run(context.Background(), bench.BackendAlt)
			if id, ok := l.Running(); !ok || id != bench.BackendRedux {
				t.Errorf("running = %q, %v", id, ok)
			}
		}
	}))
	l = New(r, newBackends(), nil, nil)
	if _, err := l.Run(context.Background(), bench.BackendRedux); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !errors.Is(busyErr, ErrBusy) {
		t.Fatalf("nested run err = %v, want ErrBusy", busyErr)
	}
	if _, ok := l.Running(); ok {
		t.Fatalf("lab still marked running")
	}
}

func TestWriterErrorNotFatal(t *testing.T) {
	w := &captureWriter{err: errors.New("disk full")}
	l := New(newRunner(t), newBackends(), w, nil)
	if _, err := l.Run(context.Background(), bench.BackendRedux); err != nil {
		t.Fatalf("writer error surfaced: %v", err)
	}
}

func TestFailedRunKeepsPreviousRecord(t *testing.T) {
	l := New(newRunner(t), newBackends(), nil, nil)
	if _, err := l.Run(context.Background(), bench.BackendRedux); err != nil {
		t.Fatalf("Run: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := l.Run(ctx, bench.BackendRedux); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
	if _, ok := l.Record(bench.BackendRedux); !ok {
		t.Fatalf("previous record dropped after failed run")
	}
}

func TestLoadAndRunAll(t *testing.T) {
	l := New(newRunner(t), newBackends(), nil, nil)
	l.Load(bench.MetricsRecord{Backend: bench.BackendAlt, RunID: "old"})
	if r, ok := l.Record(bench.BackendAlt); !ok || r.RunID != "old" {
		t.Fatalf("load failed: %+v", r)
	}
	recs, err := l.RunAll(context.Background())
	if err != nil || len(recs) != 2 {
		t.Fatalf("RunAll = %d, %v", len(recs), err)
	}
}
