package bench

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/google/uuid"

	"storebench/internal/store"
)

// Observer receives phase events as a run progresses.
type Observer func(PhaseEvent)

// Runner drives the fixed benchmark phases against one backend at a time.
// A Runner holds no per-run state and may be reused sequentially.
type Runner struct {
	cfg      Config
	memory   MemorySampler
	now      func() time.Time
	sleep    func(context.Context, time.Duration) error
	yield    func()
	newID    func() string
	observer Observer
	log      *slog.Logger
}

// Option customizes a Runner.
type Option func(*Runner)

// WithClock overrides the time source used for every measurement.
func WithClock(now func() time.Time) Option { return func(r *Runner) { r.now = now } }

// WithSleep overrides the settle delay implementation.
func WithSleep(sleep func(context.Context, time.Duration) error) Option {
	return func(r *Runner) { r.sleep = sleep }
}

// WithYield overrides the cooperative yield performed after each update.
func WithYield(yield func()) Option { return func(r *Runner) { r.yield = yield } }

// WithMemorySampler sets the memory source for the memory phase.
func WithMemorySampler(m MemorySampler) Option { return func(r *Runner) { r.memory = m } }

// WithObserver registers a callback for phase events.
func WithObserver(o Observer) Option { return func(r *Runner) { r.observer = o } }

// WithRunID overrides run id generation.
func WithRunID(f func() string) Option { return func(r *Runner) { r.newID = f } }

// WithLogger sets the logger used for degraded measurements.
func WithLogger(l *slog.Logger) Option { return func(r *Runner) { r.log = l } }

// NewRunner validates cfg and returns a Runner with real clock, sleep,
// yield and an RSS memory sampler unless overridden.
func NewRunner(cfg Config, opts ...Option) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	r := &Runner{
		cfg:    cfg,
		memory: RSSSampler{},
		now:    time.Now,
		sleep:  sleepContext,
		yield:  runtime.Gosched,
		newID:  func() string { return uuid.NewString() },
		log:    slog.Default(),
	}
	for _, o := range opts {
		o(r)
	}
	return r, nil
}

// Config returns the run configuration.
func (r *Runner) Config() Config { return r.cfg }

// SetObserver replaces the phase observer. It must not be called while a
// run is in progress.
func (r *Runner) SetObserver(o Observer) { r.observer = o }

// Run executes every phase against b and returns the resulting record.
// Cancelling ctx aborts the run with the context error. The loading flag
// is cleared on every return path.
func (r *Runner) Run(ctx context.Context, b Backend) (MetricsRecord, error) {
	if b.Store == nil {
		return MetricsRecord{}, fmt.Errorf("backend %q has no store", b.ID)
	}
	s := b.Store
	rec := MetricsRecord{
		RunID:        r.newID(),
		Backend:      b.ID,
		Variant:      r.cfg.Variant,
		Iterations:   r.cfg.Iterations,
		BundleSizeKB: b.BundleSizeKB,
	}
	log := r.log.With("run_id", rec.RunID, "backend", b.ID)
	log.Debug("benchmark started", "variant", r.cfg.Variant, "iterations", r.cfg.Iterations)

	defer s.SetLoading(false)

	// settle
	r.emit(rec, PhaseSettle, PhaseStarted, s, 0, 0)
	s.ResetCounter()
	s.SetLoading(true)
	if err := r.sleep(ctx, r.cfg.SettleDelay); err != nil {
		return MetricsRecord{}, fmt.Errorf("settle: %w", err)
	}
	r.emit(rec, PhaseSettle, PhaseFinished, s, 0, 0)

	// render
	s.ResetCounter()
	r.emit(rec, PhaseRender, PhaseStarted, s, 0, 0)
	render := r.renderOp(s)
	start := r.now()
	for i := 0; i < r.cfg.Iterations; i++ {
		render()
	}
	d := r.now().Sub(start)
	rec.RenderTimeMs = millis(d)
	r.emit(rec, PhaseRender, PhaseFinished, s, int64(r.cfg.Iterations), d)
	if err := ctx.Err(); err != nil {
		return MetricsRecord{}, fmt.Errorf("render: %w", err)
	}

	// update
	s.ResetCounter()
	r.emit(rec, PhaseUpdate, PhaseStarted, s, 0, 0)
	start = r.now()
	for i := 0; i < r.cfg.Iterations; i++ {
		s.Increment()
		r.yield()
	}
	d = r.now().Sub(start)
	rec.UpdateTimeMs = millis(d)
	r.emit(rec, PhaseUpdate, PhaseFinished, s, int64(r.cfg.Iterations), d)
	if err := ctx.Err(); err != nil {
		return MetricsRecord{}, fmt.Errorf("update: %w", err)
	}

	// throughput
	s.ResetCounter()
	r.emit(rec, PhaseThroughput, PhaseStarted, s, 0, 0)
	ops, d, err := r.throughput(ctx, s)
	if err != nil {
		return MetricsRecord{}, fmt.Errorf("throughput: %w", err)
	}
	rec.ThroughputOps = ops
	rec.ThroughputWindowMs = millis(d)
	if d > 0 {
		rec.OperationsPerSecond = float64(ops) / d.Seconds()
	}
	r.emit(rec, PhaseThroughput, PhaseFinished, s, ops, d)

	// memory
	r.emit(rec, PhaseMemory, PhaseStarted, s, 0, 0)
	if r.memory != nil {
		mem, err := r.memory.SampleMemory()
		if err != nil {
			log.Warn("memory sample unavailable", "err", err)
		} else {
			rec.MemoryBytes = mem
		}
	}
	r.emit(rec, PhaseMemory, PhaseFinished, s, 0, 0)

	rec.Timestamp = r.now().UTC()
	log.Info("benchmark finished",
		"render_ms", rec.RenderTimeMs,
		"update_ms", rec.UpdateTimeMs,
		"ops_per_sec", rec.OperationsPerSecond,
		"memory_bytes", rec.MemoryBytes)
	return rec, nil
}

// throughput increments until the window closes. An increment is counted
// only if it started before the close was observed.
func (r *Runner) throughput(ctx context.Context, s store.Store) (int64, time.Duration, error) {
	start := r.now()
	deadline := start.Add(r.cfg.ThroughputWindow)
	var ops int64
	for {
		if err := ctx.Err(); err != nil {
			return 0, 0, err
		}
		now := r.now()
		if !now.Before(deadline) {
			return ops, now.Sub(start), nil
		}
		s.Increment()
		r.yield()
		ops++
	}
}

func (r *Runner) renderOp(s store.Store) func() {
	if r.cfg.RenderOp == RenderNoop {
		return func() { s.IncrementByAmount(0) }
	}
	return s.Increment
}

func (r *Runner) emit(rec MetricsRecord, p Phase, st PhaseStatus, s store.Store, ops int64, d time.Duration) {
	if r.observer == nil {
		return
	}
	r.observer(PhaseEvent{
		RunID:     rec.RunID,
		Backend:   rec.Backend,
		Phase:     p,
		Status:    st,
		Count:     s.Snapshot().Count,
		Ops:       ops,
		ElapsedMs: millis(d),
		Timestamp: r.now().UTC(),
	})
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
