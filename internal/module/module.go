package module

import (
	"context"
	"fmt"
	"strings"
)

// State enumerates the lifecycle of a module record.
type State string

const (
	StatePending State = "pending"
	StateLoaded  State = "loaded"
	StateReady   State = "ready"
	StateFailed  State = "failed"
)

// RequireFunc loads another module on behalf of an executing module body.
type RequireFunc func(id string) (any, error)

// Env is what a compiled unit receives when it runs.
type Env struct {
	// Exports is the exported value prepared before execution.
	Exports any
	// Require is bound to the loader that owns the executing record.
	Require RequireFunc
	// Module describes the executing record. Its "exports" entry is read back
	// after execution, so a unit may replace its exports wholesale.
	Module map[string]any
	// Filename is the resolved location, Dirname its directory.
	Filename string
	Dirname  string
}

// Unit is an executable module produced by a compiler.
type Unit interface {
	Execute(ctx context.Context, env Env) error
}

// PackageInfo is the descriptor metadata of the package a record resolved through.
type PackageInfo struct {
	Name    string
	Version string
	Main    string
}

// Resolution is what a successful cascade hands to MarkLoaded.
type Resolution struct {
	Location string
	// Unit is nil for data modules.
	Unit    Unit
	Exports any
	Package *PackageInfo
}

// Data reports whether the resolution produced a data-only module.
func (r Resolution) Data() bool {
	return r.Unit == nil
}

// Validate ensures a resolution is usable.
func (r Resolution) Validate() error {
	if strings.TrimSpace(r.Location) == "" {
		return fmt.Errorf("module: resolution location is required")
	}
	return nil
}
