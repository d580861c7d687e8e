package logbook

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/kingrea/modload/internal/module"
)

func openBook(t *testing.T) *Logbook {
	t.Helper()
	book, err := Open(filepath.Join(t.TempDir(), "logs", "journal.log"))
	if err != nil {
		t.Fatalf("open logbook: %v", err)
	}
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	book.now = func() time.Time { return at }
	t.Cleanup(func() { _ = book.Close() })
	return book
}

func TestTailReturnsRecentLinesAndTotal(t *testing.T) {
	book := openBook(t)
	for i := 0; i < 7; i++ {
		book.Note(LevelInfo, "entry-%d", i)
	}
	lines, total, err := Tail(book.Path(), 3)
	if err != nil {
		t.Fatalf("tail: %v", err)
	}
	if total != 7 {
		t.Fatalf("total lines = %d, want 7", total)
	}
	want := []string{
		"2024-03-01T12:00:00Z INFO  entry-4",
		"2024-03-01T12:00:00Z INFO  entry-5",
		"2024-03-01T12:00:00Z INFO  entry-6",
	}
	if diff := cmp.Diff(want, lines); diff != "" {
		t.Fatalf("tail mismatch (-want +got):\n%s", diff)
	}
}

func TestTailShorterThanLimit(t *testing.T) {
	book := openBook(t)
	book.Note(LevelWarn, "only\nline")
	lines, total, err := Tail(book.Path(), 10)
	if err != nil {
		t.Fatalf("tail: %v", err)
	}
	if diff := cmp.Diff([]string{"2024-03-01T12:00:00Z WARN  only line"}, lines); diff != "" || total != 1 {
		t.Fatalf("unexpected tail (total %d):\n%s", total, diff)
	}
}

func TestObserveJournalsEvents(t *testing.T) {
	book := openBook(t)
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	book.Observe(module.Event{Kind: module.EventCandidateMiss, ID: "lodash", Location: "lodash.go", Err: errors.New("module: lodash.go not found"), Time: at})
	book.Observe(module.Event{Kind: module.EventReady, ID: "lodash", Location: "packages/lodash/index.json", Data: true, Time: at})
	book.Observe(module.Event{Kind: module.EventExecutionFailed, ID: "b", Err: fmt.Errorf("boom"), Time: at})
	book.Observe(module.Event{Kind: module.EventGroupDrained, Count: 2, Time: at})

	lines, total, err := Tail(book.Path(), 10)
	if err != nil {
		t.Fatalf("tail: %v", err)
	}
	want := []string{
		`2024-03-01T12:00:00Z WARN  candidate-miss id=lodash location=lodash.go err="module: lodash.go not found"`,
		`2024-03-01T12:00:00Z INFO  ready id=lodash location=packages/lodash/index.json data=true`,
		`2024-03-01T12:00:00Z ERROR execution-failed id=b err="boom"`,
		`2024-03-01T12:00:00Z INFO  group-drained entries=2`,
	}
	if total != len(want) {
		t.Fatalf("total = %d, want %d", total, len(want))
	}
	if diff := cmp.Diff(want, lines); diff != "" {
		t.Fatalf("journal mismatch (-want +got):\n%s", diff)
	}
}

func TestWritesAfterCloseAreDropped(t *testing.T) {
	book := openBook(t)
	book.Note(LevelInfo, "kept")
	if err := book.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	book.Note(LevelInfo, "dropped")
	_, total, err := Tail(book.Path(), 5)
	if err != nil || total != 1 {
		t.Fatalf("expected one line after close, got %d (%v)", total, err)
	}
}

func TestTailMissingFile(t *testing.T) {
	lines, total, err := Tail(filepath.Join(t.TempDir(), "none.log"), 5)
	if err != nil || lines != nil || total != 0 {
		t.Fatalf("expected empty tail, got %v %d %v", lines, total, err)
	}
}
