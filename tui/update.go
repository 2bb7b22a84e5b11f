package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

// Update implements tea.Model interface
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		}
	case ProgressMsg:
		m.Completed, m.Total = msg.Completed, msg.Total
		m = m.AddLog(fmt.Sprintf("%d of %d sources done", msg.Completed, msg.Total))
	case RunCompleteMsg:
		if msg.Err != nil {
			m.State = StateError
			m.Err = msg.Err
			return m, nil
		}
		m.State = StateComplete
		m.Result = msg.Result
		m.Completed = m.Total
		m = m.AddLog(fmt.Sprintf("Run %s finished", msg.Result.ID))
	}
	return m, nil
}
