package module

import (
	"fmt"
	"sync"

	"github.com/kingrea/modload/internal/modname"
)

// Registry maps normalized identifiers to their single record.
type Registry struct {
	names modname.Resolver

	mu      sync.Mutex
	records map[string]*Record
	order   []string
}

// NewRegistry returns an empty registry normalizing identifiers with names.
func NewRegistry(names modname.Resolver) *Registry {
	return &Registry{names: names, records: map[string]*Record{}}
}

// Key returns the normalized key for id.
func (r *Registry) Key(id string) string {
	return r.names.Key(id)
}

// GetOrCreate returns the record for id, creating a pending one if none
// exists. created reports whether this call made it. Lookup and insert happen
// under one lock, so concurrent callers always share a record.
func (r *Registry) GetOrCreate(id string) (rec *Record, created bool, err error) {
	if err := modname.Validate(id); err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	key := r.Key(id)
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.records[key]; ok {
		return existing, false, nil
	}
	rec = newRecord(id, key)
	r.records[key] = rec
	r.order = append(r.order, key)
	return rec, true, nil
}

// Lookup returns the record for id without creating one.
func (r *Registry) Lookup(id string) (*Record, bool) {
	if modname.Validate(id) != nil {
		return nil, false
	}
	key := r.Key(id)
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[key]
	return rec, ok
}

// Records returns every record in creation order.
func (r *Registry) Records() []*Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Record, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, r.records[key])
	}
	return out
}

// Len reports how many records exist.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

// Snapshots captures every record in creation order.
func (r *Registry) Snapshots() []Snapshot {
	records := r.Records()
	out := make([]Snapshot, 0, len(records))
	for _, rec := range records {
		out = append(out, rec.Snapshot())
	}
	return out
}
