package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"trendbot/orchestrator"
)

// State represents the viewer state machine
type State string

const (
	StateRunning  State = "running"
	StateComplete State = "complete"
	StateError    State = "error"
)

// maxLogs bounds the activity list.
const maxLogs = 8

// Model shows the progress and outcome of one pipeline run.
type Model struct {
	Title     string
	State     State
	Completed int
	Total     int
	Result    *orchestrator.RunResult
	Err       error
	Logs      []string
}

func NewModel(title string, total int) Model {
	return Model{Title: title, State: StateRunning, Total: total}
}

// Init implements tea.Model interface
func (m Model) Init() tea.Cmd {
	return nil
}

// AddLog appends an activity line, keeping the most recent ones.
func (m Model) AddLog(line string) Model {
	m.Logs = append(m.Logs, line)
	if len(m.Logs) > maxLogs {
		m.Logs = m.Logs[len(m.Logs)-maxLogs:]
	}
	return m
}

// ProgressBar renders completed/total as a bar width cells wide.
func ProgressBar(completed, total, width int) string {
	filled := 0
	if total > 0 {
		filled = min(completed*width/total, width)
	}
	return barFilled.Render(strings.Repeat("█", filled)) + barEmpty.Render(strings.Repeat("░", width-filled))
}

func (m Model) stateText() string {
	switch m.State {
	case StateRunning:
		return StatusStyle.Render(fmt.Sprintf("Scraping sources... %d/%d", m.Completed, m.Total))
	case StateComplete:
		return HighlightStyle.Render("COMPLETE")
	case StateError:
		msg := "unknown error"
		if m.Err != nil {
			msg = m.Err.Error()
		}
		return ErrorStyle.Render("Error: " + msg)
	}
	return ""
}

func (m Model) formatResult() string {
	res := m.Result
	var b strings.Builder

	b.WriteString(HighlightStyle.Render(fmt.Sprintf("%d topics", len(res.Topics))))
	b.WriteString("\n\n")
	for _, t := range res.Topics {
		fmt.Fprintf(&b, "%3d  %s", t.TrendingScore, t.Title)
		if t.Category != "" {
			b.WriteString(InfoStyle.Render("  [" + t.Category + "]"))
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "\nUnchanged: %d | Duplicates skipped: %d\n", len(res.Unchanged), len(res.DuplicatesSkipped))
	if len(res.Failures) > 0 {
		b.WriteString(ErrorStyle.Render(fmt.Sprintf("Failed: %d", len(res.Failures))))
		b.WriteString("\n")
		for _, f := range res.Failures {
			b.WriteString(ErrorStyle.Render(fmt.Sprintf("  %s: %s", f.Locator, f.Error())))
			b.WriteString("\n")
		}
	}
	return b.String()
}
