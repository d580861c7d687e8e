package module

import (
	"errors"
	"sync"
	"testing"

	"github.com/kingrea/modload/internal/modname"
)

func newTestRegistry() *Registry {
	return NewRegistry(modname.NewResolver("", ""))
}

func TestGetOrCreateReturnsSameRecord(t *testing.T) {
	reg := newTestRegistry()
	first, created, err := reg.GetOrCreate("util")
	if err != nil || !created {
		t.Fatalf("first GetOrCreate: created=%v err=%v", created, err)
	}
	second, created, err := reg.GetOrCreate("./util.go")
	if err != nil {
		t.Fatalf("second GetOrCreate: %v", err)
	}
	if created {
		t.Fatalf("equivalent identifier must not create a second record")
	}
	if first != second {
		t.Fatalf("expected the same record instance")
	}
	if first.ID() != "util" || first.Key() != "util.go" {
		t.Fatalf("unexpected id/key: %s %s", first.ID(), first.Key())
	}
}

func TestGetOrCreateConcurrentCallersShareOneRecord(t *testing.T) {
	reg := newTestRegistry()
	const callers = 64
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		seen    = map[*Record]struct{}{}
		creates int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec, created, err := reg.GetOrCreate("shared/mod")
			if err != nil {
				t.Errorf("GetOrCreate: %v", err)
				return
			}
			mu.Lock()
			seen[rec] = struct{}{}
			if created {
				creates++
			}
			mu.Unlock()
		}()
	}
	wg.Wait()
	if len(seen) != 1 || creates != 1 {
		t.Fatalf("expected exactly one record and one creation, got %d records, %d creations", len(seen), creates)
	}
	if reg.Len() != 1 {
		t.Fatalf("Len = %d", reg.Len())
	}
}

func TestGetOrCreateRejectsInvalidIdentifiers(t *testing.T) {
	reg := newTestRegistry()
	if _, _, err := reg.GetOrCreate("../etc/passwd"); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	if _, ok := reg.Lookup("../etc/passwd"); ok {
		t.Fatalf("lookup of invalid id must miss")
	}
}

func TestRecordsKeepCreationOrder(t *testing.T) {
	reg := newTestRegistry()
	for _, id := range []string{"c", "a", "b", "a"} {
		if _, _, err := reg.GetOrCreate(id); err != nil {
			t.Fatalf("GetOrCreate(%s): %v", id, err)
		}
	}
	var keys []string
	for _, snap := range reg.Snapshots() {
		keys = append(keys, snap.Key)
	}
	if len(keys) != 3 || keys[0] != "c.go" || keys[1] != "a.go" || keys[2] != "b.go" {
		t.Fatalf("unexpected order: %v", keys)
	}
}
