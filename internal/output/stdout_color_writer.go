// ColorStdoutWriter prints human-friendly, colorized benchmark output.
package output

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"storebench/internal/bench"
	"storebench/internal/compare"
)

var (
	styleGray    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	styleRed     = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	styleGreen   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	styleYellow  = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	styleBlue    = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	styleMagenta = lipgloss.NewStyle().Foreground(lipgloss.Color("5"))
	styleCyan    = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	styleBold    = lipgloss.NewStyle().Bold(true)
	styleHeader  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	styleCell    = lipgloss.NewStyle().Padding(0, 1)
)

// backendStyle gives each backend a stable color.
func backendStyle(id string) lipgloss.Style {
	switch id {
	case bench.BackendRedux:
		return styleMagenta
	case bench.BackendAlt:
		return styleCyan
	default:
		return styleBlue
	}
}

func winnerStyle(w compare.Winner) lipgloss.Style {
	switch w {
	case compare.WinnerTie:
		return styleYellow
	default:
		return backendStyle(string(w))
	}
}

// ColorStdoutWriter prints records and phases as colored lines and the
// comparison as a bordered table.
type ColorStdoutWriter struct {
	cfg  *bench.Config
	out  io.Writer
	once sync.Once
}

// NewColorStdoutWriter creates a ColorStdoutWriter writing to os.Stdout.
func NewColorStdoutWriter(cfg *bench.Config) *ColorStdoutWriter {
	return &ColorStdoutWriter{cfg: cfg, out: os.Stdout}
}

func (w *ColorStdoutWriter) printOverview() {
	if w.cfg == nil {
		return
	}
	fmt.Fprintln(w.out, styleBold.Render("Benchmark Configuration:"))
	fmt.Fprintf(w.out, "  variant     %s\n", w.cfg.Variant)
	fmt.Fprintf(w.out, "  iterations  %d\n", w.cfg.Iterations)
	fmt.Fprintf(w.out, "  render op   %s\n", w.cfg.RenderOp)
	fmt.Fprintf(w.out, "  window      %s\n\n", w.cfg.ThroughputWindow)
}

func stamp(t time.Time) string {
	return styleGray.Render("[" + t.Format(time.RFC3339) + "]")
}

// WritePhase prints a phase boundary.
func (w *ColorStdoutWriter) WritePhase(e bench.PhaseEvent) error {
	w.once.Do(w.printOverview)
	status := styleYellow.Render("start")
	if e.Status == bench.PhaseFinished {
		status = styleGreen.Render("done ")
	}
	line := fmt.Sprintf("%s %s %s %s count=%d",
		stamp(e.Timestamp),
		backendStyle(e.Backend).Render(fmt.Sprintf("%-5s", e.Backend)),
		styleBlue.Render(fmt.Sprintf("%-10s", e.Phase)),
		status, e.Count)
	if e.Status == bench.PhaseFinished && e.ElapsedMs > 0 {
		line += fmt.Sprintf(" ops=%d elapsed=%.2fms", e.Ops, e.ElapsedMs)
	}
	_, err := fmt.Fprintln(w.out, line)
	return err
}

// WriteRecord prints a completed record.
func (w *ColorStdoutWriter) WriteRecord(r bench.MetricsRecord) error {
	w.once.Do(w.printOverview)
	_, err := fmt.Fprintf(w.out, "%s %s %s render=%s update=%s ops/s=%s mem=%s bundle=%s\n",
		stamp(r.Timestamp),
		backendStyle(r.Backend).Render(fmt.Sprintf("%-5s", r.Backend)),
		styleBold.Render("RESULT"),
		styleGreen.Render(fmt.Sprintf("%.2fms", r.RenderTimeMs)),
		styleGreen.Render(fmt.Sprintf("%.2fms", r.UpdateTimeMs)),
		styleCyan.Render(fmt.Sprintf("%.0f", r.OperationsPerSecond)),
		styleYellow.Render(formatBytes(r.MemoryBytes)),
		styleMagenta.Render(fmt.Sprintf("%.1fKB", r.BundleSizeKB)))
	return err
}

// WriteComparison prints the comparison table followed by the overall winner.
func (w *ColorStdoutWriter) WriteComparison(c compare.Result) error {
	w.once.Do(w.printOverview)
	fmt.Fprintln(w.out)
	fmt.Fprintln(w.out, RenderTable(c))
	overall := c.Overall()
	wins := c.Wins()
	_, err := fmt.Fprintf(w.out, "Overall: %s (redux %d, alt %d, tie %d)\n",
		winnerStyle(overall).Render(BackendLabel(overall)),
		wins[compare.WinnerRedux], wins[compare.WinnerAlt], wins[compare.WinnerTie])
	return err
}

// RenderTable renders a comparison as a lipgloss table.
func RenderTable(c compare.Result) string {
	rows := make([][]string, 0, len(c.Metrics))
	for _, m := range c.Metrics {
		rows = append(rows, []string{
			m.Label,
			FormatValue(m, m.ReduxValue),
			FormatValue(m, m.AltValue),
			FormatDelta(m.PercentDelta),
			BackendLabel(m.Winner),
		})
	}
	winners := c.Winners()
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(styleGray).
		Headers("Metric", "Redux", "Nanostores", "Delta", "Winner").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styleHeader
			}
			if col == 4 && row >= 0 && row < len(winners) {
				return winnerStyle(winners[row]).Padding(0, 1)
			}
			if col == 3 && row >= 0 && row < len(c.Metrics) && c.Metrics[row].PercentDelta != 0 {
				good := c.Metrics[row].Winner == compare.WinnerAlt
				if good {
					return styleGreen.Padding(0, 1)
				}
				return styleRed.Padding(0, 1)
			}
			return styleCell
		})
	return t.Render()
}
