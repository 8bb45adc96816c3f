// Package compare derives per-metric deltas and winners from two benchmark
// records. Everything here is pure.
package compare

import (
	"math"

	"storebench/internal/bench"
)

// Winner names the better side of a comparison.
type Winner string

const (
	WinnerRedux Winner = bench.BackendRedux
	WinnerAlt   Winner = bench.BackendAlt
	WinnerTie   Winner = "tie"
)

// Metric identifiers in display order.
const (
	MetricRender     = "renderTimeMs"
	MetricUpdate     = "updateTimeMs"
	MetricMemory     = "memoryBytes"
	MetricBundle     = "bundleSizeKB"
	MetricThroughput = "operationsPerSecond"
)

// MetricComparison holds both values of one metric and the derived result.
type MetricComparison struct {
	Metric        string  `json:"metric"`
	Label         string  `json:"label"`
	Unit          string  `json:"unit"`
	ReduxValue    float64 `json:"reduxValue"`
	AltValue      float64 `json:"altValue"`
	PercentDelta  float64 `json:"percentDelta"`
	Winner        Winner  `json:"winner"`
	LowerIsBetter bool    `json:"lowerIsBetter"`
}

// Result is the comparison of two records, one entry per metric.
type Result struct {
	Redux   bench.MetricsRecord `json:"redux"`
	Alt     bench.MetricsRecord `json:"alt"`
	Metrics []MetricComparison  `json:"metrics"`
}

type metricDef struct {
	id, label, unit string
	lowerIsBetter   bool
	value           func(bench.MetricsRecord) float64
}

var metricDefs = []metricDef{
	{MetricRender, "Render Time", "ms", true, func(r bench.MetricsRecord) float64 { return r.RenderTimeMs }},
	{MetricUpdate, "Update Time", "ms", true, func(r bench.MetricsRecord) float64 { return r.UpdateTimeMs }},
	{MetricMemory, "Memory Usage", "bytes", true, func(r bench.MetricsRecord) float64 { return float64(r.MemoryBytes) }},
	{MetricBundle, "Bundle Size", "KB", true, func(r bench.MetricsRecord) float64 { return r.BundleSizeKB }},
	{MetricThroughput, "Operations/sec", "ops/s", false, func(r bench.MetricsRecord) float64 { return r.OperationsPerSecond }},
}

// Compare builds the comparison of redux against alt. The inputs are
// copied, never modified.
func Compare(redux, alt bench.MetricsRecord) Result {
	res := Result{Redux: redux, Alt: alt, Metrics: make([]MetricComparison, 0, len(metricDefs))}
	for _, d := range metricDefs {
		rv, av := d.value(redux), d.value(alt)
		res.Metrics = append(res.Metrics, MetricComparison{
			Metric:        d.id,
			Label:         d.label,
			Unit:          d.unit,
			ReduxValue:    rv,
			AltValue:      av,
			PercentDelta:  PercentDelta(rv, av),
			Winner:        pickWinner(rv, av, d.lowerIsBetter),
			LowerIsBetter: d.lowerIsBetter,
		})
	}
	return res
}

// PercentDelta returns (alt - redux) / redux * 100. A zero baseline or a
// non-finite result yields 0.
func PercentDelta(redux, alt float64) float64 {
	if redux == 0 {
		return 0
	}
	d := (alt - redux) / redux * 100
	if math.IsNaN(d) || math.IsInf(d, 0) {
		return 0
	}
	return d
}

func pickWinner(redux, alt float64, lowerIsBetter bool) Winner {
	// a zero baseline cannot be compared meaningfully
	if redux == 0 || redux == alt || math.IsNaN(redux) || math.IsNaN(alt) {
		return WinnerTie
	}
	reduxBetter := redux > alt
	if lowerIsBetter {
		reduxBetter = redux < alt
	}
	if reduxBetter {
		return WinnerRedux
	}
	return WinnerAlt
}

// Metric returns the comparison for one metric id.
func (r Result) Metric(id string) (MetricComparison, bool) {
	for _, m := range r.Metrics {
		if m.Metric == id {
			return m, true
		}
	}
	return MetricComparison{}, false
}

// Wins counts winners per side. Ties are counted under WinnerTie.
func (r Result) Wins() map[Winner]int {
	w := map[Winner]int{WinnerRedux: 0, WinnerAlt: 0, WinnerTie: 0}
	for _, m := range r.Metrics {
		w[m.Winner]++
	}
	return w
}

// Overall reports the side with more metric wins, or a tie.
func (r Result) Overall() Winner {
	w := r.Wins()
	switch {
	case w[WinnerRedux] > w[WinnerAlt]:
		return WinnerRedux
	case w[WinnerAlt] > w[WinnerRedux]:
		return WinnerAlt
	default:
		return WinnerTie
	}
}

// Winners lists each metric's winner in display order.
func (r Result) Winners() []Winner {
	out := make([]Winner, len(r.Metrics))
	for i, m := range r.Metrics {
		out[i] = m.Winner
	}
	return out
}
