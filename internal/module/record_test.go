package module

import (
	"context"
	"errors"
	"testing"
)

type nopUnit struct{}

func (nopUnit) Execute(context.Context, Env) error { return nil }

func TestRecordForwardTransitions(t *testing.T) {
	rec := newRecord("m", "m.go")
	if rec.State() != StatePending {
		t.Fatalf("new record state = %s", rec.State())
	}
	if err := rec.MarkReady(nil); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("pending -> ready must fail, got %v", err)
	}
	res := Resolution{Location: "m.go", Unit: nopUnit{}, Exports: map[string]any{}}
	if err := rec.MarkLoaded(res); err != nil {
		t.Fatalf("MarkLoaded: %v", err)
	}
	if err := rec.MarkLoaded(Resolution{Location: "other.go"}); err != nil {
		t.Fatalf("repeated MarkLoaded should be a no-op, got %v", err)
	}
	if rec.Location() != "m.go" {
		t.Fatalf("location changed on repeated MarkLoaded: %s", rec.Location())
	}
	if err := rec.MarkReady("value"); err != nil {
		t.Fatalf("MarkReady: %v", err)
	}
	if err := rec.MarkReady("again"); err != nil {
		t.Fatalf("repeated MarkReady should be a no-op, got %v", err)
	}
	if rec.Exports() != "value" {
		t.Fatalf("exports = %v", rec.Exports())
	}
	if err := rec.MarkFailed(errors.New("late")); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("ready -> failed must fail, got %v", err)
	}
}

func TestRecordFailureIsTerminal(t *testing.T) {
	rec := newRecord("m", "m.go")
	rec.AppendError(&NotFoundError{Location: "m.go"})
	terminal := &ResolutionError{ID: "m", Attempts: []string{"m.go"}}
	if err := rec.MarkFailed(terminal); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}
	if err := rec.MarkFailed(terminal); err != nil {
		t.Fatalf("repeated MarkFailed should be a no-op, got %v", err)
	}
	if err := rec.MarkLoaded(Resolution{Location: "m.go"}); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("failed -> loaded must fail, got %v", err)
	}
	errs := rec.Errors()
	if len(errs) != 2 {
		t.Fatalf("expected miss + terminal error, got %v", errs)
	}
	if !errors.Is(errs[0], ErrNotFound) || !errors.Is(errs[1], ErrResolutionExhausted) {
		t.Fatalf("unexpected error kinds: %v", errs)
	}
}

func TestSnapshotMarksDataModules(t *testing.T) {
	rec := newRecord("cfg.json", "cfg.json")
	if err := rec.MarkLoaded(Resolution{Location: "cfg.json", Exports: map[string]any{"a": 1}, Package: &PackageInfo{Name: "cfg"}}); err != nil {
		t.Fatalf("MarkLoaded: %v", err)
	}
	snap := rec.Snapshot()
	if !snap.Data || snap.State != StateLoaded || snap.Package == nil || snap.Package.Name != "cfg" {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

func TestErrorKinds(t *testing.T) {
	inner := errors.New("syntax")
	cases := []struct {
		err    error
		target error
	}{
		{&NotFoundError{Location: "x"}, ErrNotFound},
		{&ResolutionError{ID: "x", Last: &NotFoundError{Location: "x"}}, ErrResolutionExhausted},
		{&ResolutionError{ID: "x", Last: &NotFoundError{Location: "x"}}, ErrNotFound},
		{&CompileError{Location: "x", Err: inner}, inner},
		{&ExecutionError{ID: "x", Err: inner}, inner},
		{&CycleError{Chain: []string{"a", "a"}}, ErrCycle},
		{InvalidArgument("bad %s", "token"), ErrInvalidArgument},
	}
	for _, tc := range cases {
		if !errors.Is(tc.err, tc.target) {
			t.Fatalf("errors.Is(%v, %v) = false", tc.err, tc.target)
		}
	}
}
