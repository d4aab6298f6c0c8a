package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/alexisbeaulieu97/gridctl/internal/model"
)

// Update handles Bubble Tea messages and updates model state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		return m, nil
	case ResourceStartMsg:
		m.ensureResource(msg.ID)
		r := m.results[msg.ID]
		if !isTerminal(r.Status) {
			r.Status = model.StatusRunning
			m.results[msg.ID] = r
		}
		return m, nil
	case ResourceCompleteMsg:
		id := msg.Result.ResourceID
		if id == "" {
			return m, nil
		}
		m.ensureResource(id)
		if !isTerminal(m.results[id].Status) {
			m.completed++
			if msg.Result.Status == model.StatusFailed {
				m.failed++
			} else if msg.Result.Changed {
				m.changed++
			}
		}
		m.results[id] = msg.Result
		m.markFinishedIfComplete()
		return m, nil
	case DoneMsg:
		m.err = msg.Err
		m.finished = true
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.cancelled = true
			m.finished = true
			return m, tea.Quit
		}
	case tea.QuitMsg:
		m.finished = true
		return m, nil
	}

	return m, nil
}
