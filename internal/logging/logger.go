package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/kingrea/modload/internal/config"
)

// Logger appends structured lines to .modload/logs/modload.log so load
// failures can be inspected after the command exits.
type Logger struct {
	file *os.File
	log  *log.Logger
}

// New creates (or reuses) the log file for the project directory.
func New(projectDir, level string) (*Logger, error) {
	logDir := filepath.Join(projectDir, config.Dir, "logs")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("logging: ensure log dir: %w", err)
	}
	path := filepath.Join(logDir, "modload.log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logging: open log file: %w", err)
	}
	lvl, err := ParseLevel(level)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &Logger{file: f, log: NewWriter(f, lvl)}, nil
}

// NewWriter returns a logger writing to w at the given level.
func NewWriter(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		Level:           level,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Prefix:          "modload",
	})
}

// ParseLevel maps a config level name to a log level. Empty means info.
func ParseLevel(level string) (log.Level, error) {
	trimmed := strings.TrimSpace(level)
	if trimmed == "" {
		return log.InfoLevel, nil
	}
	lvl, err := log.ParseLevel(strings.ToLower(trimmed))
	if err != nil {
		return log.InfoLevel, fmt.Errorf("logging: %w", err)
	}
	return lvl, nil
}

// Discard returns a logger that drops everything.
func Discard() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.FatalLevel})
}

// OrDiscard returns l, or Discard when l is nil.
func OrDiscard(l *log.Logger) *log.Logger {
	if l == nil {
		return Discard()
	}
	return l
}

// Log exposes the underlying structured logger.
func (l *Logger) Log() *log.Logger {
	if l == nil || l.log == nil {
		return Discard()
	}
	return l.log
}

// Close releases the file handle.
func (l *Logger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	return l.file.Close()
}

// Printf writes a single info line to the log file.
func (l *Logger) Printf(format string, args ...any) {
	if l == nil || l.log == nil {
		return
	}
	l.log.Info(strings.TrimRight(fmt.Sprintf(format, args...), "\n"))
}
