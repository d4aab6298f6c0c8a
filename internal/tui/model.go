// Package tui renders apply progress with Bubble Tea. The same model prints
// a static report when the output is not a terminal.
package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/alexisbeaulieu97/gridctl/internal/config"
	"github.com/alexisbeaulieu97/gridctl/internal/engine"
	"github.com/alexisbeaulieu97/gridctl/internal/model"
)

// ResourceStartMsg indicates a resource is being reconciled.
type ResourceStartMsg struct {
	ID   string
	Time time.Time
}

// ResourceCompleteMsg reports that a resource has finished.
type ResourceCompleteMsg struct {
	Result model.ResourceResult
}

// DoneMsg is sent once execution returned.
type DoneMsg struct {
	Err error
}

type tickMsg struct{}

// Model contains the Bubble Tea state for an apply run.
type Model struct {
	cfg       *config.Config
	plan      *engine.ExecutionPlan
	results   map[string]model.ResourceResult
	order     []string
	total     int
	completed int
	changed   int
	failed    int
	dryRun    bool
	showDiffs bool
	finished  bool
	cancelled bool
	err       error
}

// Options tune what the model renders.
type Options struct {
	DryRun bool
	// ShowDiffs prints each resource's diff below its line.
	ShowDiffs bool
}

// NewModel constructs a model tracking every resource of the plan.
func NewModel(cfg *config.Config, plan *engine.ExecutionPlan, opts Options) Model {
	m := Model{
		cfg:       cfg,
		plan:      plan,
		results:   make(map[string]model.ResourceResult),
		dryRun:    opts.DryRun,
		showDiffs: opts.ShowDiffs,
	}

	for _, id := range plan.ResourceIDs() {
		m.ensureResource(id)
	}
	return m
}

// Init starts the Bubble Tea program.
func (m Model) Init() tea.Cmd {
	return tea.Tick(time.Millisecond, func(time.Time) tea.Msg { return tickMsg{} })
}

// Total returns the number of tracked resources.
func (m Model) Total() int {
	return m.total
}

// Completed returns the number of finished resources.
func (m Model) Completed() int {
	return m.completed
}

// IsFinished reports whether execution has completed.
func (m Model) IsFinished() bool {
	return m.finished
}

// Cancelled reports whether the user interrupted the run.
func (m Model) Cancelled() bool {
	return m.cancelled
}

func (m *Model) ensureResource(id string) {
	if id == "" {
		return
	}
	if _, exists := m.results[id]; !exists {
		m.results[id] = model.ResourceResult{ResourceID: id, Status: model.StatusPending}
		m.order = append(m.order, id)
		m.total++
	}
}

func (m *Model) markFinishedIfComplete() {
	if m.total > 0 && m.completed >= m.total {
		m.finished = true
	}
}

func isTerminal(status string) bool {
	return status != "" && status != model.StatusPending && status != model.StatusRunning
}
