package output

import (
	"fmt"

	"storebench/internal/compare"
)

func formatBytes(b uint64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := uint64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %cB", float64(b)/float64(div), "KMGTPE"[exp])
}

// FormatValue renders one metric value with its unit.
func FormatValue(m compare.MetricComparison, v float64) string {
	switch m.Metric {
	case compare.MetricMemory:
		if v < 0 {
			v = 0
		}
		return formatBytes(uint64(v))
	case compare.MetricBundle:
		return fmt.Sprintf("%.1f KB", v)
	case compare.MetricThroughput:
		return fmt.Sprintf("%.0f ops/s", v)
	default:
		return fmt.Sprintf("%.2f ms", v)
	}
}

// FormatDelta renders a signed percentage.
func FormatDelta(d float64) string {
	return fmt.Sprintf("%+.1f%%", d)
}

// BackendLabel names a winner for display.
func BackendLabel(w compare.Winner) string {
	switch w {
	case compare.WinnerRedux:
		return "Redux"
	case compare.WinnerAlt:
		return "Nanostores"
	default:
		return "Tie"
	}
}
