package sequencer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kingrea/modload/internal/module"
	"github.com/kingrea/modload/internal/outcome"
)

func identity(_ context.Context, v string) (any, error) { return v, nil }

func TestDrainPreservesAttachmentOrder(t *testing.T) {
	s := New[string, string]()
	a, b, c := outcome.New[string](), outcome.New[string](), outcome.New[string]()
	for _, f := range []*outcome.Future[string]{a, b, c} {
		_, err := s.Attach("g", f, identity)
		require.NoError(t, err)
	}
	done, err := s.Drain(context.Background(), "g")
	require.NoError(t, err)

	// complete out of order: C, A, B
	c.Complete("C", nil)
	time.Sleep(10 * time.Millisecond)
	a.Complete("A", nil)
	b.Complete("B", nil)

	results, err := done.Await(context.Background())
	require.NoError(t, err)
	require.Equal(t, []Result{{Value: "A"}, {Value: "B"}, {Value: "C"}}, results)
	require.Equal(t, 0, s.Active())
}

func TestContinuationsRunInOrder(t *testing.T) {
	s := New[int, string]()
	var mu sync.Mutex
	var order []string
	record := func(_ context.Context, v string) (any, error) {
		mu.Lock()
		order = append(order, v)
		mu.Unlock()
		return v, nil
	}
	futures := []*outcome.Future[string]{outcome.New[string](), outcome.New[string](), outcome.New[string]()}
	for _, f := range futures {
		_, err := s.Attach(1, f, record)
		require.NoError(t, err)
	}
	done, err := s.Drain(context.Background(), 1)
	require.NoError(t, err)
	futures[2].Complete("third", nil)
	futures[1].Complete("second", nil)
	futures[0].Complete("first", nil)

	_, err = done.Await(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"first", "second", "third"}, order)
}

func TestFailedEntryDoesNotStopTheWalk(t *testing.T) {
	s := New[string, string]()
	boom := errors.New("boom")
	success := outcome.Resolved("ok")
	failing := outcome.Failed[string](boom)
	contFails := outcome.Resolved("x")

	_, err := s.Attach("g", success, identity)
	require.NoError(t, err)
	ran := false
	outFailing, err := s.Attach("g", failing, func(context.Context, string) (any, error) {
		ran = true
		return nil, nil
	})
	require.NoError(t, err)
	_, err = s.Attach("g", contFails, func(context.Context, string) (any, error) {
		return nil, boom
	})
	require.NoError(t, err)
	_, err = s.Attach("g", outcome.Resolved("tail"), identity)
	require.NoError(t, err)

	done, err := s.Drain(context.Background(), "g")
	require.NoError(t, err)
	results, err := done.Await(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 4)
	require.Equal(t, "ok", results[0].Value)
	require.ErrorIs(t, results[1].Err, boom)
	require.ErrorIs(t, results[2].Err, boom)
	require.Equal(t, "tail", results[3].Value)
	require.False(t, ran, "continuation must not run for a failed pending outcome")

	_, err = outFailing.Await(context.Background())
	require.ErrorIs(t, err, boom)
}

func TestEntryFutureCompletesWithItsResult(t *testing.T) {
	s := New[string, string]()
	out, err := s.Attach("g", outcome.Resolved("v"), func(_ context.Context, v string) (any, error) {
		return v + "!", nil
	})
	require.NoError(t, err)
	_, ok := peek(out)
	require.False(t, ok, "entry must not resolve before the drain")

	_, err = s.Drain(context.Background(), "g")
	require.NoError(t, err)
	v, err := out.Await(context.Background())
	require.NoError(t, err)
	require.Equal(t, "v!", v)
}

func TestDrainMisuse(t *testing.T) {
	s := New[string, string]()
	gate := outcome.New[string]()
	_, err := s.Attach("g", gate, identity)
	require.NoError(t, err)
	done, err := s.Drain(context.Background(), "g")
	require.NoError(t, err)

	_, err = s.Drain(context.Background(), "g")
	require.ErrorIs(t, err, module.ErrInvalidArgument)
	_, err = s.Attach("g", outcome.Resolved("late"), identity)
	require.ErrorIs(t, err, module.ErrInvalidArgument)
	_, err = s.Attach("other", nil, identity)
	require.ErrorIs(t, err, module.ErrInvalidArgument)

	gate.Complete("done", nil)
	_, err = done.Await(context.Background())
	require.NoError(t, err)
	require.NoError(t, s.Wait(context.Background()))
}

func TestDrainEmptyGroup(t *testing.T) {
	s := New[string, string]()
	done, err := s.Drain(context.Background(), "empty")
	require.NoError(t, err)
	results, err := done.Await(context.Background())
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestDrainHonorsContext(t *testing.T) {
	s := New[string, string]()
	_, err := s.Attach("g", outcome.New[string](), identity)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done, err := s.Drain(ctx, "g")
	require.NoError(t, err)
	cancel()
	results, err := done.Await(context.Background())
	require.NoError(t, err)
	require.ErrorIs(t, results[0].Err, context.Canceled)
}

func TestContinuationPanicBecomesError(t *testing.T) {
	s := New[string, string]()
	_, err := s.Attach("g", outcome.Resolved("v"), func(context.Context, string) (any, error) {
		panic("bad continuation")
	})
	require.NoError(t, err)
	done, err := s.Drain(context.Background(), "g")
	require.NoError(t, err)
	results, err := done.Await(context.Background())
	require.NoError(t, err)
	require.ErrorContains(t, results[0].Err, "bad continuation")
}

func peek(f *outcome.Future[any]) (any, bool) {
	v, _, ok := f.Peek()
	return v, ok
}
