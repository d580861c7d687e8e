package module

import (
	"path"
	"sync"

	"github.com/kingrea/modload/internal/outcome"
)

// Record is the cached state machine for one normalized identifier.
type Record struct {
	id      string
	key     string
	pending *outcome.Future[*Record]

	mu       sync.RWMutex
	state    State
	location string
	exports  any
	unit     Unit
	pkg      *PackageInfo
	errs     []error

	exec sync.Mutex
}

func newRecord(id, key string) *Record {
	return &Record{
		id:      id,
		key:     key,
		state:   StatePending,
		pending: outcome.New[*Record](),
	}
}

// ID returns the identifier the record was first requested with.
func (r *Record) ID() string { return r.id }

// Key returns the normalized registry key.
func (r *Record) Key() string { return r.key }

// Pending is the outcome of the record's single resolution cascade.
func (r *Record) Pending() *outcome.Future[*Record] { return r.pending }

// State reports the current lifecycle state.
func (r *Record) State() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

// Location is the candidate that resolved, or "" before the record is loaded.
func (r *Record) Location() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.location
}

// Dirname is the directory of Location.
func (r *Record) Dirname() string {
	loc := r.Location()
	if loc == "" {
		return ""
	}
	return path.Dir(loc)
}

// Exports returns the exported value.
func (r *Record) Exports() any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.exports
}

// Unit returns the compiled unit, nil for data modules or before loading.
func (r *Record) Unit() Unit {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.unit
}

// Package returns descriptor metadata when the record resolved through one.
func (r *Record) Package() *PackageInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.pkg == nil {
		return nil
	}
	info := *r.pkg
	return &info
}

// Errors returns a copy of every failure recorded so far, oldest first.
func (r *Record) Errors() []error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]error, len(r.errs))
	copy(out, r.errs)
	return out
}

// AppendError records a failure without changing state.
func (r *Record) AppendError(err error) {
	if err == nil {
		return
	}
	r.mu.Lock()
	r.errs = append(r.errs, err)
	r.mu.Unlock()
}

// MarkLoaded stores the resolution and moves pending -> loaded.
func (r *Record) MarkLoaded(res Resolution) error {
	if err := res.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	switch r.state {
	case StateLoaded:
		return nil
	case StatePending:
	default:
		return &TransitionError{Key: r.key, From: r.state, To: StateLoaded}
	}
	r.location = res.Location
	r.unit = res.Unit
	r.exports = res.Exports
	if res.Package != nil {
		info := *res.Package
		r.pkg = &info
	}
	r.state = StateLoaded
	return nil
}

// MarkReady stores the final exported value and moves loaded -> ready.
func (r *Record) MarkReady(exports any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch r.state {
	case StateReady:
		return nil
	case StateLoaded:
	default:
		return &TransitionError{Key: r.key, From: r.state, To: StateReady}
	}
	r.exports = exports
	r.state = StateReady
	return nil
}

// MarkFailed records err as the terminal failure. Ready records never fail.
func (r *Record) MarkFailed(err error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch r.state {
	case StateFailed:
		return nil
	case StatePending, StateLoaded:
	default:
		return &TransitionError{Key: r.key, From: r.state, To: StateFailed}
	}
	if err != nil {
		r.errs = append(r.errs, err)
	}
	r.state = StateFailed
	return nil
}

// LockExecution serializes execution attempts for the record. The returned
// func releases the lock.
func (r *Record) LockExecution() func() {
	r.exec.Lock()
	return r.exec.Unlock
}

// Snapshot is a point-in-time copy suitable for reporting.
type Snapshot struct {
	ID       string       `json:"id"`
	Key      string       `json:"key"`
	State    State        `json:"state"`
	Location string       `json:"location,omitempty"`
	Data     bool         `json:"data,omitempty"`
	Package  *PackageInfo `json:"package,omitempty"`
	Errors   []string     `json:"errors,omitempty"`
}

// Snapshot captures the record's current state.
func (r *Record) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	snap := Snapshot{
		ID:       r.id,
		Key:      r.key,
		State:    r.state,
		Location: r.location,
		Data:     r.location != "" && r.unit == nil,
	}
	if r.pkg != nil {
		info := *r.pkg
		snap.Package = &info
	}
	for _, err := range r.errs {
		snap.Errors = append(snap.Errors, err.Error())
	}
	return snap
}
