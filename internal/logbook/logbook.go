// Package logbook keeps the load journal: one plain-text line per loader
// event, appended to a file that outlives the process.
package logbook

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/kingrea/modload/internal/module"
)

// Level is the severity column of a journal line.
type Level string

const (
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// Logbook appends journal lines to one file. It is safe for concurrent use
// and implements module.Observer.
type Logbook struct {
	path string
	now  func() time.Time

	mu   sync.Mutex
	file *os.File
}

// Open creates the journal's directory and opens path for appending.
func Open(path string) (*Logbook, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("logbook: ensure dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logbook: open %s: %w", path, err)
	}
	return &Logbook{path: path, now: time.Now, file: f}, nil
}

// Path returns the file backing this logbook.
func (l *Logbook) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Close releases the append handle. Further writes are dropped.
func (l *Logbook) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// Note journals a free-form line.
func (l *Logbook) Note(level Level, format string, args ...any) {
	l.write(level, fmt.Sprintf(format, args...), time.Time{})
}

// Observe journals a loader event. Misses are warnings, failures errors.
func (l *Logbook) Observe(e module.Event) {
	level := LevelInfo
	switch e.Kind {
	case module.EventCandidateMiss:
		level = LevelWarn
	case module.EventFailed, module.EventExecutionFailed:
		level = LevelError
	}
	l.write(level, describe(e), e.Time)
}

func (l *Logbook) write(level Level, message string, at time.Time) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return
	}
	if at.IsZero() {
		at = l.now()
	}
	// one line per entry
	message = strings.ReplaceAll(strings.TrimSpace(message), "\n", " ")
	_, _ = fmt.Fprintf(l.file, "%s %-5s %s\n", at.UTC().Format(time.RFC3339), level, message)
}

func describe(e module.Event) string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.ID != "" {
		fmt.Fprintf(&b, " id=%s", e.ID)
	}
	if e.Location != "" {
		fmt.Fprintf(&b, " location=%s", e.Location)
	}
	if e.Data {
		b.WriteString(" data=true")
	}
	if e.Kind == module.EventGroupDrained {
		fmt.Fprintf(&b, " entries=%d", e.Count)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, " err=%q", e.Err.Error())
	}
	return b.String()
}

// Tail reads the journal at path and returns its last n lines along with the
// total line count. A missing journal is empty.
func Tail(path string, n int) ([]string, int, error) {
	if n <= 0 {
		return nil, 0, nil
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("logbook: open %s: %w", path, err)
	}
	defer f.Close()
	ring := make([]string, 0, n)
	total := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if len(ring) < n {
			ring = append(ring, scanner.Text())
		} else {
			ring[total%n] = scanner.Text()
		}
		total++
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("logbook: read %s: %w", path, err)
	}
	if total == 0 {
		return nil, 0, nil
	}
	if total <= n {
		return ring, total, nil
	}
	start := total % n
	return append(ring[start:], ring[:start]...), total, nil
}
