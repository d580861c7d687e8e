package module

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound marks a single candidate location that did not exist.
	ErrNotFound = errors.New("module: not found")
	// ErrResolutionExhausted marks a record for which every candidate missed.
	ErrResolutionExhausted = errors.New("module: resolution exhausted")
	// ErrInvalidArgument marks malformed identifiers or group-token misuse.
	ErrInvalidArgument = errors.New("module: invalid argument")
	// ErrInvalidTransition marks a lifecycle mutation from the wrong state.
	ErrInvalidTransition = errors.New("module: invalid state transition")
	// ErrCycle marks a module that requires itself before becoming ready.
	ErrCycle = errors.New("module: require cycle")
	// ErrClosed is returned once the owning loader has shut down.
	ErrClosed = errors.New("module: loader closed")
)

// NotFoundError reports one candidate miss.
type NotFoundError struct {
	Location string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("module: %s not found", e.Location)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// DescriptorError reports a package descriptor that was found but unusable.
type DescriptorError struct {
	Location string
	Err      error
}

func (e *DescriptorError) Error() string {
	return fmt.Sprintf("module: descriptor %s: %v", e.Location, e.Err)
}

func (e *DescriptorError) Unwrap() error { return e.Err }

// ResolutionError is the terminal failure of a cascade.
type ResolutionError struct {
	ID       string
	Attempts []string
	Last     error
}

func (e *ResolutionError) Error() string {
	msg := fmt.Sprintf("module: cannot resolve %q (tried %s)", e.ID, strings.Join(e.Attempts, ", "))
	if e.Last != nil {
		msg += ": " + e.Last.Error()
	}
	return msg
}

func (e *ResolutionError) Is(target error) bool {
	return target == ErrResolutionExhausted
}

func (e *ResolutionError) Unwrap() error { return e.Last }

// CompileError reports source text the compiler rejected.
type CompileError struct {
	Location string
	Err      error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("module: compile %s: %v", e.Location, e.Err)
}

func (e *CompileError) Unwrap() error { return e.Err }

// ExecutionError reports a module body that failed while running.
type ExecutionError struct {
	ID       string
	Location string
	Err      error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("module: execute %s (%s): %v", e.ID, e.Location, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// CycleError lists the require chain that led back to a record still executing.
type CycleError struct {
	Chain []string
}

func (e *CycleError) Error() string {
	return "module: require cycle " + strings.Join(e.Chain, " -> ")
}

func (e *CycleError) Is(target error) bool {
	return target == ErrCycle
}

// TransitionError reports an invalid lifecycle mutation.
type TransitionError struct {
	Key  string
	From State
	To   State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("module: %s cannot move from %s to %s", e.Key, e.From, e.To)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// InvalidArgument wraps a description of argument misuse with ErrInvalidArgument.
func InvalidArgument(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}
