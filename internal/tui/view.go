package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/alexisbeaulieu97/gridctl/internal/model"
	"github.com/alexisbeaulieu97/gridctl/internal/tui/components"
)

// View renders the current state of the model.
func (m Model) View() string {
	var sections []string

	sections = append(sections, titleStyle.Render(fmt.Sprintf("gridctl • %s", m.title())))

	progress := components.NewProgress(m.total).View(m.completed, m.failed)
	sections = append(sections, sectionStyle.Render("Progress"), progress)

	entries := components.NewResourceList(m.order, m.results).Entries()
	if len(entries) > 0 {
		sections = append(sections, sectionStyle.Render("Resources"), m.renderEntries(entries))
	}

	summary := components.NewSummary(components.SummaryData{
		Total:     m.total,
		Completed: m.completed,
		Changed:   m.changed,
		Failed:    m.failed,
		DryRun:    m.dryRun,
		Finished:  m.finished,
		Cancelled: m.cancelled,
	}).View()
	if m.err != nil {
		summary = strings.TrimSpace(summary + "\n" + failureStyle.Render("Error: "+m.err.Error()))
	}
	if strings.TrimSpace(summary) != "" {
		sections = append(sections, sectionStyle.Render("Summary"), summaryStyle.Render(summary))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderEntries(entries []components.ResourceEntry) string {
	var lines []string
	for _, entry := range entries {
		res := entry.Result
		line := fmt.Sprintf(" %s %s", StatusIcon(res.Status), entry.ID)
		if strings.TrimSpace(res.Message) != "" {
			line = fmt.Sprintf("%s: %s", line, res.Message)
		}
		if res.Duration > 0 {
			line = fmt.Sprintf("%s (%s)", line, res.Duration.Truncate(10*time.Millisecond))
		}
		lines = append(lines, line)
		if m.showDiffs && strings.TrimSpace(res.Diff) != "" {
			lines = append(lines, diffStyle.Render(strings.TrimRight(res.Diff, "\n")))
		}
	}
	return strings.Join(lines, "\n")
}

func (m Model) title() string {
	if m.cfg != nil && strings.TrimSpace(m.cfg.Name) != "" {
		if m.dryRun {
			return m.cfg.Name + " (dry run)"
		}
		return m.cfg.Name
	}
	return "apply"
}

// StatusIcon returns the glyph representing a resource status.
func StatusIcon(status string) string {
	switch status {
	case model.StatusSuccess:
		return successStyle.Render("✓")
	case model.StatusUnchanged:
		return unchangedStyle.Render("=")
	case model.StatusRunning:
		return runningStyle.Render("⏳")
	case model.StatusFailed:
		return failureStyle.Render("✗")
	case model.StatusSkipped:
		return unchangedStyle.Render("⊘")
	case model.StatusWouldCreate:
		return plannedStyle.Render("+")
	case model.StatusWouldUpdate:
		return plannedStyle.Render("~")
	case model.StatusWouldDelete:
		return plannedStyle.Render("-")
	default:
		return pendingStyle.Render("…")
	}
}
