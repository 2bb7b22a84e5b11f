package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// New returns a structured logger writing to stderr.
// Level is one of debug, info, warn, error; format is text, json or logfmt.
func New(level, format string) *slog.Logger {
	return slog.New(NewHandler(os.Stderr, level, format))
}

// NewHandler builds the charm logger used as the slog handler.
func NewHandler(w io.Writer, level, format string) *log.Logger {
	lvl, err := log.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		lvl = log.InfoLevel
	}

	formatter := log.TextFormatter
	switch strings.ToLower(format) {
	case "json":
		formatter = log.JSONFormatter
	case "logfmt":
		formatter = log.LogfmtFormatter
	}

	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Level:           lvl,
		Formatter:       formatter,
	})
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(log.New(io.Discard))
}

// OrDiscard substitutes Discard for a nil logger.
func OrDiscard(l *slog.Logger) *slog.Logger {
	if l == nil {
		return Discard()
	}
	return l
}
