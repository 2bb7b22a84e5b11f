package tui

import "trendbot/orchestrator"

// ProgressMsg reports batch progress as (completed, total).
type ProgressMsg struct {
	Completed int
	Total     int
}

// RunCompleteMsg is sent once the run has finished.
type RunCompleteMsg struct {
	Result *orchestrator.RunResult
	Err    error
}
