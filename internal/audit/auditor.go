package audit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/muesli/reflow/wordwrap"
)

// Config controls one auditor invocation.
type Config struct {
	Dir        string
	ReportPath string
	PreviewURL string
	// Lighthouse enables the performance audit.
	Lighthouse bool
	// Install allows installing the auditor tool when it is missing.
	Install    bool
	Bundle     BundleOptions
}

// DefaultConfig returns the settings of the no-argument script.
func DefaultConfig() Config {
	return Config{
		Dir:        "dist",
		ReportPath: DefaultReportPath,
		PreviewURL: DefaultPreviewURL,
		Lighthouse: true,
		Install:    true,
	}
}

// Auditor analyzes build output, optionally audits the preview page and
// writes the report.
type Auditor struct {
	cfg  Config
	perf PerformanceAuditor
	out  io.Writer
	log  *slog.Logger

	// Probe checks the preview server; Probe with http.DefaultClient when nil.
	Probe func(ctx context.Context, url string) error
	now   func() time.Time
}

// New returns an Auditor. perf may be nil to skip performance audits.
func New(cfg Config, perf PerformanceAuditor, out io.Writer, log *slog.Logger) *Auditor {
	if out == nil {
		out = io.Discard
	}
	if log == nil {
		log = slog.Default()
	}
	if cfg.ReportPath == "" {
		cfg.ReportPath = DefaultReportPath
	}
	if cfg.PreviewURL == "" {
		cfg.PreviewURL = DefaultPreviewURL
	}
	return &Auditor{cfg: cfg, perf: perf, out: out, log: log, now: time.Now}
}

// Config returns the auditor configuration.
func (a *Auditor) Config() Config { return a.cfg }

// Run performs the audit and writes the report. When the build directory
// is missing it prints an instruction, writes nothing and returns an error
// wrapping ErrBuildMissing. Auditor tool failures only drop the scores.
func (a *Auditor) Run(ctx context.Context) (*Report, error) {
	fmt.Fprintln(a.out, "Benchmark: Nanostores vs Redux")
	fmt.Fprintln(a.out)
	fmt.Fprintln(a.out, "Analyzing bundle size...")

	bundle, err := AnalyzeBundle(a.cfg.Dir, a.cfg.Bundle)
	switch {
	case errors.Is(err, ErrBuildMissing):
		fmt.Fprintln(a.out, `Build not found. Run "npm run build" first.`)
		return nil, err
	case err != nil:
		a.log.Error("bundle analysis failed", "dir", a.cfg.Dir, "err", err)
		fmt.Fprintf(a.out, "Bundle analysis failed: %v\n", err)
		bundle = nil
	default:
		a.printBundle(bundle)
	}

	scores := a.performance(ctx)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report := NewReport(a.now(), bundle, scores)
	if err := WriteReport(a.cfg.ReportPath, report); err != nil {
		return nil, fmt.Errorf("write report: %w", err)
	}
	a.printRecommendations(report.Recommendations)
	fmt.Fprintf(a.out, "\nReport saved to: %s\n", a.cfg.ReportPath)
	fmt.Fprintln(a.out, "Analysis complete!")
	return &report, nil
}

func (a *Auditor) printBundle(b *BundleAnalysis) {
	fmt.Fprintln(a.out, "\nFile sizes:")
	for _, f := range b.Files {
		fmt.Fprintf(a.out, "  %s: %.2f KB\n", f.Path, f.SizeKB)
	}
	fmt.Fprintf(a.out, "\nTotal size: %.2f KB\n", b.TotalSize)
	fmt.Fprintln(a.out, "\nChunks:")
	fmt.Fprintf(a.out, "  Vendor chunks: %d files\n", b.VendorChunks)
	fmt.Fprintf(a.out, "  App chunks: %d files\n", b.AppChunks)
}

func (a *Auditor) printInstructions() {
	fmt.Fprintln(a.out, "\nFor a complete performance analysis:")
	fmt.Fprintln(a.out, `1. Run "npm run build"`)
	fmt.Fprintln(a.out, `2. Run "npm run preview"`)
	fmt.Fprintln(a.out, `3. Run the audit again`)
}

// performance returns nil whenever scores could not be collected.
func (a *Auditor) performance(ctx context.Context) *Scores {
	if !a.cfg.Lighthouse || a.perf == nil {
		a.printInstructions()
		return nil
	}
	probe := a.Probe
	if probe == nil {
		probe = func(ctx context.Context, url string) error { return Probe(ctx, http.DefaultClient, url) }
	}
	if err := probe(ctx, a.cfg.PreviewURL); err != nil {
		a.log.Warn("preview server unreachable", "url", a.cfg.PreviewURL, "err", err)
		a.printInstructions()
		return nil
	}

	fmt.Fprintln(a.out, "\nRunning performance analysis...")
	if !a.perf.Available(ctx) {
		inst, ok := a.perf.(Installer)
		if !ok || !a.cfg.Install {
			a.log.Warn("performance audit skipped", "err", ErrToolUnavailable)
			fmt.Fprintln(a.out, "Lighthouse not found, skipping.")
			return nil
		}
		fmt.Fprintln(a.out, "Lighthouse not found. Installing...")
		if err := inst.Install(ctx); err != nil {
			a.log.Error("lighthouse install failed", "err", err)
			return nil
		}
		if !a.perf.Available(ctx) {
			a.log.Error("performance audit skipped", "err", ErrToolUnavailable)
			return nil
		}
	}

	fmt.Fprintln(a.out, "Running Lighthouse (this may take a few minutes)...")
	s, err := a.perf.Run(ctx, a.cfg.PreviewURL)
	if err != nil {
		a.log.Error("lighthouse failed", "err", err)
		fmt.Fprintf(a.out, "Lighthouse failed: %v\n", err)
		return nil
	}
	fmt.Fprintln(a.out, "\nLighthouse results:")
	fmt.Fprintf(a.out, "  Performance: %.1f%%\n", s.Performance)
	fmt.Fprintf(a.out, "  Accessibility: %.1f%%\n", s.Accessibility)
	fmt.Fprintf(a.out, "  Best Practices: %.1f%%\n", s.BestPractices)
	fmt.Fprintf(a.out, "  SEO: %.1f%%\n", s.SEO)
	return &s
}

func (a *Auditor) printRecommendations(r Recommendations) {
	section := func(name string, rec Recommendation) {
		fmt.Fprintf(a.out, "\n%s\n", name)
		for _, p := range rec.Pros {
			fmt.Fprintln(a.out, wordwrap.String("  + "+p, 72))
		}
		for _, c := range rec.Cons {
			fmt.Fprintln(a.out, wordwrap.String("  - "+c, 72))
		}
	}
	section("Redux", r.Redux)
	section("Nanostores", r.Alt)
}
