package viz

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/san-kum/kinsim/internal/sim"
)

var (
	Panel = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#444466")).
		Padding(1, 2)

	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#00ffff"))

	Subtle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#666688"))

	StatusOK = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00ff88"))

	StatusWarn = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ffaa00"))

	StatusFail = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ff4444"))

	MetricValue = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00ccff")).
			Bold(true)

	MetricLabel = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888899")).
			Width(20)

	KeyHint = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#666688")).
		Italic(true)

	SparkHigh = lipgloss.NewStyle().Foreground(lipgloss.Color("#00ff88"))
	SparkMid  = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffcc00"))
	SparkLow  = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff4444"))
)

// ProgressBar renders a bar percent full.
func ProgressBar(percent float64, width int) string {
	filled := int(percent * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}

	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	if percent > 0.8 {
		return SparkHigh.Render(bar)
	} else if percent > 0.4 {
		return SparkMid.Render(bar)
	}
	return SparkLow.Render(bar)
}

// SparklineChart renders residual norms on a log scale, one glyph per
// sample. Low values are good, so they are drawn green.
func SparklineChart(values []float64, width int) string {
	if len(values) == 0 || width <= 0 {
		return strings.Repeat("─", max(width, 0))
	}

	chars := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	logs := make([]float64, len(values))
	lo, hi := math.Inf(1), math.Inf(-1)
	for i, v := range values {
		logs[i] = math.Log10(math.Max(v, 1e-300))
		lo = math.Min(lo, logs[i])
		hi = math.Max(hi, logs[i])
	}
	rng := hi - lo
	if rng == 0 {
		rng = 1
	}

	step := len(values) / width
	if step < 1 {
		step = 1
	}

	var result strings.Builder
	for i := 0; i < width && i*step < len(values); i++ {
		norm := (logs[i*step] - lo) / rng
		idx := int(norm * float64(len(chars)-1))
		idx = min(max(idx, 0), len(chars)-1)

		c := string(chars[idx])
		switch {
		case norm > 0.7:
			result.WriteString(SparkLow.Render(c))
		case norm > 0.3:
			result.WriteString(SparkMid.Render(c))
		default:
			result.WriteString(SparkHigh.Render(c))
		}
	}
	return result.String()
}

func Separator(width int) string {
	mid := width / 2
	left := strings.Repeat("─", max(mid-3, 0))
	right := strings.Repeat("─", max(width-mid-3, 0))
	return Subtle.Render(left + " ◆ " + right)
}

// Summary is what RunSummary prints about a finished run.
type Summary struct {
	Name    string
	Solver  string
	History *sim.History
	Metrics []sim.Metric
	Elapsed time.Duration
	Err     error
	RunID   string
}

// RunSummary renders a panel with the outcome, per-step residuals and metric
// values of a run.
func RunSummary(s Summary) string {
	var b strings.Builder
	b.WriteString(Title.Render(strings.ToUpper(s.Name)))
	b.WriteString(Subtle.Render("  solver " + s.Solver))
	b.WriteString("\n\n")

	records := 0
	if s.History != nil {
		records = s.History.Len()
	}

	status := StatusOK.Render("CONVERGED")
	var stepErr *sim.StepError
	switch {
	case errors.As(s.Err, &stepErr):
		status = StatusFail.Render(fmt.Sprintf("FAILED AT STEP %d", stepErr.Step))
	case s.Err != nil:
		status = StatusFail.Render("FAILED")
	case s.History != nil && !s.History.Converged():
		status = StatusWarn.Render("UNCONVERGED STEPS")
	}
	b.WriteString(MetricLabel.Render("status") + status + "\n")
	b.WriteString(MetricLabel.Render("records") + MetricValue.Render(fmt.Sprintf("%d", records)) + "\n")
	b.WriteString(MetricLabel.Render("elapsed") + MetricValue.Render(s.Elapsed.Round(time.Microsecond).String()) + "\n")
	if s.RunID != "" {
		b.WriteString(MetricLabel.Render("saved as") + MetricValue.Render(s.RunID) + "\n")
	}

	if records > 0 {
		b.WriteString("\n" + MetricLabel.Render("residual") + SparklineChart(s.History.Norms(), 40) + "\n")
	}
	if len(s.Metrics) > 0 {
		b.WriteString("\n")
		for _, m := range s.Metrics {
			b.WriteString(MetricLabel.Render(m.Name()) + MetricValue.Render(fmt.Sprintf("%.6g", m.Value())) + "\n")
		}
	}
	if s.Err != nil {
		b.WriteString("\n" + StatusFail.Render(s.Err.Error()) + "\n")
	}
	return Panel.Render(strings.TrimRight(b.String(), "\n"))
}
