package loader

import (
	"github.com/kingrea/modload/internal/module"
	"github.com/kingrea/modload/internal/sequencer"
)

// Error kinds returned by the loader. They are the module package's values,
// re-exported so callers outside this module can match them.
var (
	ErrNotFound            = module.ErrNotFound
	ErrResolutionExhausted = module.ErrResolutionExhausted
	ErrInvalidArgument     = module.ErrInvalidArgument
	ErrInvalidTransition   = module.ErrInvalidTransition
	ErrCycle               = module.ErrCycle
	ErrClosed              = module.ErrClosed
)

type (
	NotFoundError   = module.NotFoundError
	ResolutionError = module.ResolutionError
	CompileError    = module.CompileError
	ExecutionError  = module.ExecutionError
	CycleError      = module.CycleError
)

// Re-exported record types.
type (
	State    = module.State
	Snapshot = module.Snapshot
	Event    = module.Event
	Observer = module.Observer
	Result   = sequencer.Result
)

const (
	StatePending = module.StatePending
	StateLoaded  = module.StateLoaded
	StateReady   = module.StateReady
	StateFailed  = module.StateFailed
)
