package components

import (
	"fmt"
	"math"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
)

const barWidth = 30

var (
	labelStyle  = lipgloss.NewStyle().Bold(true)
	failedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// Progress renders how many resources have been reconciled.
type Progress struct {
	bar   progress.Model
	total int
}

// NewProgress creates a progress component for the given total.
func NewProgress(total int) Progress {
	bar := progress.New(progress.WithDefaultGradient(), progress.WithWidth(barWidth))
	return Progress{bar: bar, total: total}
}

// View renders the bar with a completed/total label, followed by the
// failure count when there is one.
func (p Progress) View(completed, failed int) string {
	ratio := 0.0
	if p.total > 0 {
		ratio = math.Min(1.0, float64(completed)/float64(p.total))
	}
	parts := []string{labelStyle.Render(fmt.Sprintf("%d/%d", completed, p.total)), " ", p.bar.ViewAs(ratio)}
	if failed > 0 {
		parts = append(parts, " ", failedStyle.Render(fmt.Sprintf("%d failed", failed)))
	}
	return lipgloss.JoinHorizontal(lipgloss.Left, parts...)
}
