// Package metrics exposes benchmark results as Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"storebench/internal/bench"
)

const namespace = "storebench"

// Exporter keeps the latest record per backend as gauges and counts runs
// and phases. It owns its registry so several exporters can coexist.
type Exporter struct {
	reg *prometheus.Registry

	renderMs      *prometheus.GaugeVec
	updateMs      *prometheus.GaugeVec
	memoryBytes   *prometheus.GaugeVec
	bundleKB      *prometheus.GaugeVec
	opsPerSecond  *prometheus.GaugeVec
	runsTotal     *prometheus.CounterVec
	phaseDuration *prometheus.HistogramVec
}

// NewExporter registers the benchmark collectors plus the Go and process
// collectors on a fresh registry.
func NewExporter() *Exporter {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)
	gauge := func(name, help string) *prometheus.GaugeVec {
		return f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      name,
			Help:      help,
		}, []string{"backend", "variant"})
	}
	return &Exporter{
		reg:          reg,
		renderMs:     gauge("render_milliseconds", "Render phase duration of the latest run"),
		updateMs:     gauge("update_milliseconds", "Update phase duration of the latest run"),
		memoryBytes:  gauge("memory_bytes", "Memory sampled at the end of the latest run"),
		bundleKB:     gauge("bundle_kilobytes", "Configured bundle size of the backend"),
		opsPerSecond: gauge("operations_per_second", "Throughput of the latest run"),
		runsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "completed_total",
			Help:      "Completed benchmark runs",
		}, []string{"backend"}),
		phaseDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "phase",
			Name:      "duration_seconds",
			Help:      "Duration of finished benchmark phases",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30, 60},
		}, []string{"backend", "phase"}),
	}
}

// WriteRecord updates the gauges for r's backend and counts a completed run.
func (e *Exporter) WriteRecord(r bench.MetricsRecord) error {
	e.LoadRecord(r)
	e.runsTotal.WithLabelValues(r.Backend).Inc()
	return nil
}

// LoadRecord sets the gauges from a previously recorded run without
// counting it as completed.
func (e *Exporter) LoadRecord(r bench.MetricsRecord) {
	l := prometheus.Labels{"backend": r.Backend, "variant": r.Variant}
	e.renderMs.With(l).Set(r.RenderTimeMs)
	e.updateMs.With(l).Set(r.UpdateTimeMs)
	e.memoryBytes.With(l).Set(float64(r.MemoryBytes))
	e.bundleKB.With(l).Set(r.BundleSizeKB)
	e.opsPerSecond.With(l).Set(r.OperationsPerSecond)
}

// WritePhase observes the duration of finished phases.
func (e *Exporter) WritePhase(ev bench.PhaseEvent) error {
	if ev.Status != bench.PhaseFinished {
		return nil
	}
	e.phaseDuration.WithLabelValues(ev.Backend, string(ev.Phase)).Observe(ev.ElapsedMs / 1000)
	return nil
}

// Registry returns the underlying registry.
func (e *Exporter) Registry() *prometheus.Registry { return e.reg }

// Handler serves the registry in the Prometheus exposition format.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.reg, promhttp.HandlerOpts{Registry: e.reg})
}
