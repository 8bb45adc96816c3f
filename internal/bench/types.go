// Benchmark records, phase events and run configuration
package bench

import (
	"fmt"
	"time"

	"storebench/internal/store"
)

// Backend identifiers used across records, comparisons and routes.
const (
	BackendRedux = "redux"
	BackendAlt   = "alt"
)

// Backend pairs a store with the metadata the runner reports for it.
type Backend struct {
	ID           string
	Name         string
	BundleSizeKB float64
	Store        store.Store
}

// MetricsRecord is the result of one completed run against one backend.
type MetricsRecord struct {
	RunID               string    `json:"runId"`
	Backend             string    `json:"backend"`
	Variant             string    `json:"variant"`
	RenderTimeMs        float64   `json:"renderTimeMs"`
	UpdateTimeMs        float64   `json:"updateTimeMs"`
	MemoryBytes         uint64    `json:"memoryBytes"`
	BundleSizeKB        float64   `json:"bundleSizeKB"`
	OperationsPerSecond float64   `json:"operationsPerSecond"`
	ThroughputOps       int64     `json:"throughputOps"`
	ThroughputWindowMs  float64   `json:"throughputWindowMs"`
	Iterations          int       `json:"iterations"`
	Timestamp           time.Time `json:"timestamp"`
}

// Phase names a step of a run.
type Phase string

// Phases in execution order.
const (
	PhaseSettle     Phase = "settle"
	PhaseRender     Phase = "render"
	PhaseUpdate     Phase = "update"
	PhaseThroughput Phase = "throughput"
	PhaseMemory     Phase = "memory"
)

// Phases lists every phase in the order a run executes them.
var Phases = []Phase{PhaseSettle, PhaseRender, PhaseUpdate, PhaseThroughput, PhaseMemory}

// PhaseStatus marks the boundary a PhaseEvent reports.
type PhaseStatus string

const (
	PhaseStarted  PhaseStatus = "start"
	PhaseFinished PhaseStatus = "done"
)

// PhaseEvent is emitted at the start and end of each phase. Count is the
// store counter observed at that boundary.
type PhaseEvent struct {
	RunID     string      `json:"runId"`
	Backend   string      `json:"backend"`
	Phase     Phase       `json:"phase"`
	Status    PhaseStatus `json:"status"`
	Count     int         `json:"count"`
	Ops       int64       `json:"ops,omitempty"`
	ElapsedMs float64     `json:"elapsedMs,omitempty"`
	Timestamp time.Time   `json:"ts"`
}

// RenderOp selects the operation timed by the render phase.
type RenderOp string

const (
	// RenderIncrement calls Increment on every iteration.
	RenderIncrement RenderOp = "increment"
	// RenderNoop calls IncrementByAmount(0), forcing an update cycle
	// without changing the count.
	RenderNoop RenderOp = "noop"
)

// Config parameterizes a run.
type Config struct {
	Variant          string
	Iterations       int
	RenderOp         RenderOp
	ThroughputWindow time.Duration
	SettleDelay      time.Duration
}

// Preset names.
const (
	VariantSingleScreen = "single-screen"
	VariantFull         = "full"
)

// DefaultSettleDelay lets pending notifications drain before timing.
const DefaultSettleDelay = 100 * time.Millisecond

var presets = map[string]Config{
	VariantSingleScreen: {
		Variant:          VariantSingleScreen,
		Iterations:       1000,
		RenderOp:         RenderIncrement,
		ThroughputWindow: 30 * time.Second,
		SettleDelay:      DefaultSettleDelay,
	},
	VariantFull: {
		Variant:          VariantFull,
		Iterations:       10000,
		RenderOp:         RenderNoop,
		ThroughputWindow: time.Second,
		SettleDelay:      DefaultSettleDelay,
	},
}

// Preset returns the named preset configuration.
func Preset(name string) (Config, bool) {
	c, ok := presets[name]
	return c, ok
}

// PresetNames returns the known preset names.
func PresetNames() []string {
	return []string{VariantSingleScreen, VariantFull}
}

// Validate reports configuration values the runner cannot use.
func (c Config) Validate() error {
	if c.Iterations <= 0 {
		return fmt.Errorf("iterations must be positive, got %d", c.Iterations)
	}
	if c.ThroughputWindow <= 0 {
		return fmt.Errorf("throughput window must be positive, got %s", c.ThroughputWindow)
	}
	if c.SettleDelay < 0 {
		return fmt.Errorf("settle delay must not be negative, got %s", c.SettleDelay)
	}
	switch c.RenderOp {
	case RenderIncrement, RenderNoop:
	default:
		return fmt.Errorf("unknown render op %q", c.RenderOp)
	}
	return nil
}
