// Package sequencer implements an ordered barrier: pending operations are
// attached to a group in request order and a drain walks them front to back,
// so results come out in attachment order whatever order the operations
// finish in.
package sequencer

import (
	"context"
	"fmt"
	"sync"

	"github.com/kingrea/modload/internal/module"
	"github.com/kingrea/modload/internal/outcome"
)

// Result is one entry of a drained group.
type Result struct {
	Value any
	Err   error
}

// Continuation runs once an entry's pending operation succeeds. Its return
// value becomes the entry's result.
type Continuation[T any] func(ctx context.Context, value T) (any, error)

type entry[T any] struct {
	pending *outcome.Future[T]
	cont    Continuation[T]
	out     *outcome.Future[any]
}

type group[T any] struct {
	entries  []*entry[T]
	draining bool
}

// Sequencer tracks the open groups keyed by token.
type Sequencer[K comparable, T any] struct {
	mu     sync.Mutex
	groups map[K]*group[T]
	wg     sync.WaitGroup
}

// New returns an empty sequencer.
func New[K comparable, T any]() *Sequencer[K, T] {
	return &Sequencer[K, T]{groups: make(map[K]*group[T])}
}

// Attach appends (pending, cont) to the group for token, creating the group
// on first use. The returned future completes with this entry's result once
// the group is drained and the walk reaches it.
func (s *Sequencer[K, T]) Attach(token K, pending *outcome.Future[T], cont Continuation[T]) (*outcome.Future[any], error) {
	if pending == nil {
		return nil, module.InvalidArgument("sequencer: pending outcome is required")
	}
	if cont == nil {
		cont = func(_ context.Context, v T) (any, error) { return v, nil }
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[token]
	if !ok {
		g = &group[T]{}
		s.groups[token] = g
	}
	if g.draining {
		return nil, module.InvalidArgument("sequencer: group %v is already draining", token)
	}
	e := &entry[T]{pending: pending, cont: cont, out: outcome.New[any]()}
	g.entries = append(g.entries, e)
	return e.out, nil
}

// Drain starts walking the group for token and returns the outcome of the
// ordered result list. The group is removed once the walk completes. Draining
// a group that was never attached to yields an empty list.
func (s *Sequencer[K, T]) Drain(ctx context.Context, token K) (*outcome.Future[[]Result], error) {
	s.mu.Lock()
	g, ok := s.groups[token]
	if !ok {
		g = &group[T]{}
		s.groups[token] = g
	}
	if g.draining {
		s.mu.Unlock()
		return nil, module.InvalidArgument("sequencer: group %v is already draining", token)
	}
	g.draining = true
	entries := g.entries
	s.mu.Unlock()

	done := outcome.New[[]Result]()
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		results := make([]Result, 0, len(entries))
		for _, e := range entries {
			results = append(results, e.run(ctx))
		}
		s.mu.Lock()
		delete(s.groups, token)
		s.mu.Unlock()
		done.Complete(results, nil)
	}()
	return done, nil
}

// Pending reports how many entries are attached to token's group.
func (s *Sequencer[K, T]) Pending(token K) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g, ok := s.groups[token]; ok {
		return len(g.entries)
	}
	return 0
}

// Active reports how many groups are open or draining.
func (s *Sequencer[K, T]) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.groups)
}

// Wait blocks until every started drain has finished or ctx is done.
func (s *Sequencer[K, T]) Wait(ctx context.Context) error {
	finished := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *entry[T]) run(ctx context.Context) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{Err: fmt.Errorf("sequencer: continuation panic: %v", r)}
		}
		e.out.Complete(res.Value, res.Err)
	}()
	v, err := e.pending.Await(ctx)
	if err != nil {
		return Result{Err: err}
	}
	value, err := e.cont(ctx, v)
	return Result{Value: value, Err: err}
}
