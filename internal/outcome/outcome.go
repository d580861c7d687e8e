// Package outcome provides a write-once deferred result shared by every
// component that hands back work which completes later.
package outcome

import (
	"context"
	"sync"
)

// Future holds a value or an error that becomes available exactly once.
type Future[T any] struct {
	once sync.Once
	done chan struct{}
	val  T
	err  error
}

// New returns an incomplete future.
func New[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Resolved returns a future already completed with v.
func Resolved[T any](v T) *Future[T] {
	f := New[T]()
	f.Complete(v, nil)
	return f
}

// Failed returns a future already completed with err.
func Failed[T any](err error) *Future[T] {
	f := New[T]()
	var zero T
	f.Complete(zero, err)
	return f
}

// Complete settles the future. Only the first call has any effect; it reports
// whether this call was the one that settled it.
func (f *Future[T]) Complete(v T, err error) bool {
	settled := false
	f.once.Do(func() {
		f.val = v
		f.err = err
		settled = true
		close(f.done)
	})
	return settled
}

// Done is closed once the future is settled.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the future settles or ctx ends.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Peek returns the settled result without blocking. ok is false while pending.
func (f *Future[T]) Peek() (v T, err error, ok bool) {
	select {
	case <-f.done:
		return f.val, f.err, true
	default:
		var zero T
		return zero, nil, false
	}
}

// Map derives a future that settles with fn applied to f's value. Errors pass
// through untouched and fn is not called for them.
func Map[T, U any](ctx context.Context, f *Future[T], fn func(T) (U, error)) *Future[U] {
	out := New[U]()
	go func() {
		v, err := f.Await(ctx)
		if err != nil {
			var zero U
			out.Complete(zero, err)
			return
		}
		out.Complete(fn(v))
	}()
	return out
}
