package tui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"trendbot/orchestrator"
	"trendbot/types"
)

func TestProgressUpdates(t *testing.T) {
	var m tea.Model = NewModel("scout", 4)

	m, _ = m.Update(ProgressMsg{Completed: 1, Total: 4})
	m, _ = m.Update(ProgressMsg{Completed: 2, Total: 4})

	got := m.(Model)
	require.Equal(t, 2, got.Completed)
	require.Equal(t, StateRunning, got.State)
	require.Len(t, got.Logs, 2)
	require.Contains(t, got.View(), "2/4")
}

func TestRunComplete(t *testing.T) {
	var m tea.Model = NewModel("scout", 2)
	m, _ = m.Update(RunCompleteMsg{Result: &orchestrator.RunResult{
		ID: "run-9",
		Topics: []orchestrator.AcceptedTopic{
			{ExtractedTopic: types.ExtractedTopic{Title: "Chip export rules", Category: "business", TrendingScore: 81}},
		},
		Failures: []*types.Failure{{Locator: "https://bad.example/", Kind: types.NetworkFailure, Reason: "HTTP 503"}},
	}})

	got := m.(Model)
	require.Equal(t, StateComplete, got.State)
	require.Equal(t, 2, got.Completed)

	view := got.View()
	require.Contains(t, view, "Chip export rules")
	require.Contains(t, view, "https://bad.example/")
	require.Contains(t, view, "Press 'q' or Ctrl+C to exit")
}

func TestRunError(t *testing.T) {
	var m tea.Model = NewModel("scout", 1)
	m, _ = m.Update(RunCompleteMsg{Err: errors.New("registry unavailable")})
	require.Equal(t, StateError, m.(Model).State)
	require.Contains(t, m.View(), "registry unavailable")
}

func TestQuit(t *testing.T) {
	m := NewModel("scout", 1)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	require.IsType(t, tea.QuitMsg{}, cmd())
}

func TestAddLogKeepsRecent(t *testing.T) {
	m := NewModel("scout", 20)
	for i := 0; i < 20; i++ {
		m = m.AddLog(strings.Repeat("x", i))
	}
	require.Len(t, m.Logs, maxLogs)
	require.Equal(t, strings.Repeat("x", 19), m.Logs[maxLogs-1])
}

func TestProgressBar(t *testing.T) {
	require.Equal(t, 10, strings.Count(ProgressBar(5, 10, 10), "█")+strings.Count(ProgressBar(5, 10, 10), "░"))
	require.Equal(t, 0, strings.Count(ProgressBar(0, 0, 10), "█"))
	require.Equal(t, 10, strings.Count(ProgressBar(12, 10, 10), "█"))
}
