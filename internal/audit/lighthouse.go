package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
)

// ErrToolUnavailable reports that the performance auditor cannot be run.
var ErrToolUnavailable = errors.New("performance auditor unavailable")

// DefaultPreviewURL is where the local preview server listens.
const DefaultPreviewURL = "http://localhost:4173"

// DefaultLighthouseOutput is the raw report side artifact.
const DefaultLighthouseOutput = "lighthouse-report.json"

// Scores are the four summary category scores, scaled to 0-100.
type Scores struct {
	Performance   float64 `json:"performance"`
	Accessibility float64 `json:"accessibility"`
	BestPractices float64 `json:"bestPractices"`
	SEO           float64 `json:"seo"`
}

// PerformanceAuditor audits a running page.
type PerformanceAuditor interface {
	Available(ctx context.Context) bool
	Run(ctx context.Context, url string) (Scores, error)
}

// Installer is implemented by auditors that can install themselves.
type Installer interface {
	Install(ctx context.Context) error
}

// CommandRunner executes an external command.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec. Combined output is returned and
// also copied to Stream when set.
type ExecRunner struct {
	Stream io.Writer
}

func (r ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var buf bytes.Buffer
	var w io.Writer = &buf
	if r.Stream != nil {
		w = io.MultiWriter(&buf, r.Stream)
	}
	cmd.Stdout = w
	cmd.Stderr = w
	err := cmd.Run()
	return buf.Bytes(), err
}

// LighthouseAuditor shells out to the lighthouse CLI.
type LighthouseAuditor struct {
	Runner     CommandRunner
	Binary     string
	OutputPath string
	// ReadFile reads the raw report; os.ReadFile when nil.
	ReadFile func(string) ([]byte, error)
}

// NewLighthouseAuditor returns an auditor using the lighthouse binary on
// PATH and writing the raw report to outputPath.
func NewLighthouseAuditor(runner CommandRunner, outputPath string) *LighthouseAuditor {
	if outputPath == "" {
		outputPath = DefaultLighthouseOutput
	}
	return &LighthouseAuditor{Runner: runner, Binary: "lighthouse", OutputPath: outputPath}
}

// Available reports whether `lighthouse --version` succeeds.
func (l *LighthouseAuditor) Available(ctx context.Context) bool {
	_, err := l.Runner.Run(ctx, l.Binary, "--version")
	return err == nil
}

// Install installs lighthouse globally with npm.
func (l *LighthouseAuditor) Install(ctx context.Context) error {
	if out, err := l.Runner.Run(ctx, "npm", "install", "-g", "lighthouse"); err != nil {
		return fmt.Errorf("npm install lighthouse: %w: %s", err, bytes.TrimSpace(out))
	}
	return nil
}

// Run audits url and extracts the category scores from the raw report.
func (l *LighthouseAuditor) Run(ctx context.Context, url string) (Scores, error) {
	args := []string{url,
		"--output=json",
		"--output-path=" + l.OutputPath,
		"--chrome-flags=--headless",
	}
	if out, err := l.Runner.Run(ctx, l.Binary, args...); err != nil {
		return Scores{}, fmt.Errorf("lighthouse: %w: %s", err, bytes.TrimSpace(out))
	}
	read := l.ReadFile
	if read == nil {
		read = os.ReadFile
	}
	data, err := read(l.OutputPath)
	if err != nil {
		return Scores{}, fmt.Errorf("read lighthouse report: %w", err)
	}
	return ParseScores(data)
}

type category struct {
	Score *float64 `json:"score"`
}

type lighthouseJSON struct {
	Categories map[string]category `json:"categories"`
	LHR        *struct {
		Categories map[string]category `json:"categories"`
	} `json:"lhr"`
}

// ParseScores extracts the four category scores from a lighthouse JSON
// report. Both the bare result and the {"lhr": ...} wrapper are accepted.
// Scores are multiplied by 100; a missing or null score is 0.
func ParseScores(data []byte) (Scores, error) {
	var doc lighthouseJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return Scores{}, fmt.Errorf("parse lighthouse report: %w", err)
	}
	cats := doc.Categories
	if len(cats) == 0 && doc.LHR != nil {
		cats = doc.LHR.Categories
	}
	if len(cats) == 0 {
		return Scores{}, errors.New("lighthouse report has no categories")
	}
	score := func(id string) float64 {
		c, ok := cats[id]
		if !ok || c.Score == nil {
			return 0
		}
		return *c.Score * 100
	}
	return Scores{
		Performance:   score("performance"),
		Accessibility: score("accessibility"),
		BestPractices: score("best-practices"),
		SEO:           score("seo"),
	}, nil
}

// Probe checks that url answers an HTTP GET.
func Probe(ctx context.Context, client *http.Client, url string) error {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("preview server returned %s", resp.Status)
	}
	return nil
}
