package tui

import (
	"fmt"
	"strings"
)

// View implements tea.Model interface
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render(m.Title))
	b.WriteString("\n")

	b.WriteString(ProgressBar(m.Completed, m.Total, 30))
	b.WriteString(InfoStyle.Render(fmt.Sprintf(" %d/%d", m.Completed, m.Total)))
	b.WriteString("\n\n")

	b.WriteString(m.stateText())
	b.WriteString("\n\n")

	if len(m.Logs) > 0 {
		b.WriteString(InfoStyle.Render("Recent activity:"))
		b.WriteString("\n")
		for _, line := range m.Logs {
			b.WriteString(InfoStyle.Render("   " + line))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if m.State == StateComplete && m.Result != nil {
		b.WriteString(BoxStyle.Render(m.formatResult()))
		b.WriteString("\n\n")
	}

	if m.State == StateRunning {
		b.WriteString(InfoStyle.Render("Press 'q' or Ctrl+C to quit"))
	} else {
		b.WriteString(HighlightStyle.Render("Press 'q' or Ctrl+C to exit"))
	}
	return b.String()
}
