package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestNewWritesToProjectLog(t *testing.T) {
	projectDir := t.TempDir()
	l, err := New(projectDir, "debug")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	l.Log().Debug("candidate miss", "location", "a.go")
	l.Printf("loaded %s\n", "b.go")
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(projectDir, ".modload", "logs", "modload.log"))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	text := string(data)
	if !strings.Contains(text, "candidate miss") || !strings.Contains(text, "location=a.go") {
		t.Fatalf("debug line missing from log:\n%s", text)
	}
	if !strings.Contains(text, "loaded b.go") {
		t.Fatalf("printf line missing from log:\n%s", text)
	}
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	if _, err := New(t.TempDir(), "loud"); err == nil {
		t.Fatalf("expected unknown level to fail")
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, log.WarnLevel)
	l.Info("hidden")
	l.Warn("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestNilLoggerIsSafe(t *testing.T) {
	var l *Logger
	l.Printf("ignored")
	l.Log().Error("ignored")
	if err := l.Close(); err != nil {
		t.Fatalf("Close on nil: %v", err)
	}
	OrDiscard(nil).Info("ignored")
}
