// Package logging builds the structured loggers used by the CLI and the TUI.
package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/adrg/xdg"
	"github.com/charmbracelet/log"
)

// New returns a logger writing to w at the named level ("debug", "info",
// "warn", "error"). An empty level means info.
func New(w io.Writer, level string) (*log.Logger, error) {
	lvl := log.InfoLevel
	if level != "" {
		var err error
		lvl, err = log.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("log level %q: %w", level, err)
		}
	}
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
		Level:           lvl,
	}), nil
}

// Stderr returns the logger for one-shot CLI commands.
func Stderr(level string) (*log.Logger, error) {
	return New(os.Stderr, level)
}

// OpenFile returns a logger appending to today's file under the XDG state
// directory, for the TUI which owns the terminal. The caller closes the file.
func OpenFile(level string) (*log.Logger, io.Closer, error) {
	name := fmt.Sprintf("ailon/logs/ailon-%s.log", time.Now().Format(time.DateOnly))
	path, err := xdg.StateFile(name)
	if err != nil {
		return nil, nil, fmt.Errorf("resolving log path: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}
	logger, err := New(f, level)
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	logger.SetTimeFormat(time.RFC3339)
	return logger, f, nil
}

// Discard returns a logger that drops everything.
func Discard() *log.Logger {
	return log.New(io.Discard)
}
