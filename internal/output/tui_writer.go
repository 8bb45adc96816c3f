package output

import (
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"storebench/internal/bench"
	"storebench/internal/compare"
)

// teaProgram abstracts bubbletea.Program for testing.
type teaProgram interface {
	Send(tea.Msg)
}

type phaseMsg struct{ bench.PhaseEvent }

type recordMsg struct{ bench.MetricsRecord }

type comparisonMsg struct{ compare.Result }

// TUIWriter renders a live view of a benchmark session.
type TUIWriter struct {
	program    teaProgram
	done       chan struct{}
	sendSignal atomic.Bool
}

// NewTUIWriter starts a bubbletea program sized for the given number of
// backend runs. Quitting the UI interrupts the process so a running
// benchmark is cancelled.
func NewTUIWriter(cfg bench.Config, runs int) *TUIWriter {
	w := &TUIWriter{done: make(chan struct{})}
	w.sendSignal.Store(true)
	p := tea.NewProgram(newTUIModel(cfg, runs), tea.WithAltScreen())
	w.program = p
	go func() {
		_, _ = p.Run()
		close(w.done)
		if w.sendSignal.Load() {
			if proc, err := os.FindProcess(os.Getpid()); err == nil {
				_ = proc.Signal(os.Interrupt)
			}
		}
	}()
	return w
}

// WritePhase implements PhaseWriter.
func (w *TUIWriter) WritePhase(e bench.PhaseEvent) error {
	w.program.Send(phaseMsg{e})
	return nil
}

// WriteRecord implements RecordWriter.
func (w *TUIWriter) WriteRecord(r bench.MetricsRecord) error {
	w.program.Send(recordMsg{r})
	return nil
}

// WriteComparison implements ComparisonWriter.
func (w *TUIWriter) WriteComparison(c compare.Result) error {
	w.program.Send(comparisonMsg{c})
	return nil
}

// Wait blocks until the user closes the UI.
func (w *TUIWriter) Wait() {
	if w.done != nil {
		<-w.done
	}
}

// Close shuts down the TUI program and waits for cleanup.
func (w *TUIWriter) Close() error {
	w.sendSignal.Store(false)
	if w.program != nil {
		w.program.Send(tea.Quit())
	}
	w.Wait()
	return nil
}

type tuiModel struct {
	cfg        bench.Config
	table      table.Model
	progress   progress.Model
	vp         viewport.Model
	logs       []string
	records    map[string]bench.MetricsRecord
	comparison *compare.Result
	phasesDone int
	phasesAll  int
	current    string
	wrap       bool
	width      int
	height     int
}

func newTUIModel(cfg bench.Config, runs int) tuiModel {
	cols := []table.Column{
		{Title: "Backend", Width: 10},
		{Title: "Render", Width: 10},
		{Title: "Update", Width: 10},
		{Title: "Ops/sec", Width: 12},
		{Title: "Memory", Width: 10},
		{Title: "Bundle", Width: 8},
	}
	if runs < 1 {
		runs = 1
	}
	return tuiModel{
		cfg:       cfg,
		table:     table.New(table.WithColumns(cols), table.WithRows(nil), table.WithHeight(3)),
		progress:  progress.New(progress.WithDefaultGradient()),
		vp:        viewport.New(0, 0),
		records:   make(map[string]bench.MetricsRecord),
		phasesAll: runs * len(bench.Phases),
		wrap:      true,
	}
}

func (m tuiModel) Init() tea.Cmd { return nil }

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.vp.Width = msg.Width
		m.progress.Width = msg.Width - 4
		m.resize()
		m.refreshViewport()
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "w":
			m.wrap = !m.wrap
			m.refreshViewport()
		default:
			var cmd tea.Cmd
			m.vp, cmd = m.vp.Update(msg)
			return m, cmd
		}
	case phaseMsg:
		e := msg.PhaseEvent
		if e.Status == bench.PhaseFinished {
			m.phasesDone++
		}
		m.current = fmt.Sprintf("%s / %s", e.Backend, e.Phase)
		m.logs = append(m.logs, phaseLine(e))
		m.refreshViewport()
	case recordMsg:
		m.records[msg.Backend] = msg.MetricsRecord
		m.table.SetRows(m.recordRows())
		m.logs = append(m.logs, fmt.Sprintf("%s finished: %.0f ops/s", msg.Backend, msg.OperationsPerSecond))
		m.refreshViewport()
	case comparisonMsg:
		c := msg.Result
		m.comparison = &c
		m.current = "complete, press q to exit"
		m.resize()
	}
	return m, nil
}

func phaseLine(e bench.PhaseEvent) string {
	line := fmt.Sprintf("%s %-5s %-10s %-5s count=%d",
		e.Timestamp.Format("15:04:05.000"), e.Backend, e.Phase, e.Status, e.Count)
	if e.Status == bench.PhaseFinished && e.ElapsedMs > 0 {
		line += fmt.Sprintf(" ops=%d elapsed=%.2fms", e.Ops, e.ElapsedMs)
	}
	return line
}

func (m tuiModel) recordRows() []table.Row {
	var rows []table.Row
	for _, id := range []string{bench.BackendRedux, bench.BackendAlt} {
		r, ok := m.records[id]
		if !ok {
			continue
		}
		rows = append(rows, table.Row{
			id,
			fmt.Sprintf("%.2fms", r.RenderTimeMs),
			fmt.Sprintf("%.2fms", r.UpdateTimeMs),
			fmt.Sprintf("%.0f", r.OperationsPerSecond),
			formatBytes(r.MemoryBytes),
			fmt.Sprintf("%.1fKB", r.BundleSizeKB),
		})
	}
	return rows
}

func (m tuiModel) percent() float64 {
	if m.phasesAll == 0 {
		return 0
	}
	p := float64(m.phasesDone) / float64(m.phasesAll)
	if p > 1 {
		p = 1
	}
	return p
}

func (m tuiModel) renderHeader() string {
	title := styleBold.Render(fmt.Sprintf("storebench · %s · %d iterations · %s window",
		m.cfg.Variant, m.cfg.Iterations, m.cfg.ThroughputWindow))
	return lipgloss.JoinVertical(lipgloss.Left,
		title,
		m.progress.ViewAs(m.percent()),
		styleGray.Render(m.current),
	)
}

func (m tuiModel) renderResults() string {
	if m.comparison == nil {
		return m.table.View()
	}
	return RenderTable(*m.comparison)
}

func (m *tuiModel) resize() {
	used := lipgloss.Height(m.renderHeader()) + lipgloss.Height(m.renderResults()) + 3
	h := m.height - used
	if h < 0 {
		h = 0
	}
	m.vp.Height = h
	m.vp.GotoBottom()
}

func (m *tuiModel) refreshViewport() {
	lines := make([]string, 0, len(m.logs))
	for _, l := range m.logs {
		if m.wrap && m.vp.Width > 0 {
			lines = append(lines, wordwrap.String(l, m.vp.Width))
		} else {
			lines = append(lines, l)
		}
	}
	m.vp.SetContent(strings.Join(lines, "\n"))
	m.vp.GotoBottom()
}

func (m tuiModel) View() string {
	divider := strings.Repeat("─", m.vp.Width)
	return strings.Join([]string{
		m.renderHeader(),
		divider,
		m.renderResults(),
		divider,
		m.vp.View(),
		styleGray.Render("q quit · w wrap · ↑/↓ scroll"),
	}, "\n")
}
