package components

import (
	"fmt"
	"strings"
)

// SummaryData aggregates counts for rendering summaries.
type SummaryData struct {
	Total     int
	Completed int
	Changed   int
	Failed    int
	DryRun    bool
	Finished  bool
	Cancelled bool
}

// Summary renders a textual execution summary.
type Summary struct {
	data SummaryData
}

// NewSummary creates a new Summary component.
func NewSummary(data SummaryData) Summary {
	return Summary{data: data}
}

// View renders the summary.
func (s Summary) View() string {
	var lines []string
	if s.data.Total > 0 {
		lines = append(lines, fmt.Sprintf("Resources: %d/%d completed", s.data.Completed, s.data.Total))
		verb := "changed"
		if s.data.DryRun {
			verb = "would change"
		}
		lines = append(lines, fmt.Sprintf("%d %s, %d failed", s.data.Changed, verb, s.data.Failed))
	}

	switch {
	case s.data.Cancelled:
		lines = append(lines, "Execution cancelled")
	case s.data.Finished && s.data.Failed > 0:
		lines = append(lines, "Execution finished with failures")
	case s.data.Finished && s.data.Total > 0 && s.data.Completed == s.data.Total:
		if s.data.DryRun {
			lines = append(lines, "Dry run finished; nothing was changed")
		} else {
			lines = append(lines, "Execution finished successfully")
		}
	case s.data.Finished && s.data.Total > 0:
		lines = append(lines, "Execution finished with pending resources")
	}

	return strings.Join(lines, "\n")
}
