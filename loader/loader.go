package loader

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/kingrea/modload/internal/cascade"
	"github.com/kingrea/modload/internal/fetch"
	"github.com/kingrea/modload/internal/logging"
	"github.com/kingrea/modload/internal/modname"
	"github.com/kingrea/modload/internal/module"
	"github.com/kingrea/modload/internal/outcome"
	"github.com/kingrea/modload/internal/sequencer"
	"github.com/kingrea/modload/plugins"
)

// Options configures a Loader. Fetcher is required; everything else has a
// default.
type Options struct {
	Fetcher  fetch.Fetcher
	Compiler cascade.Compiler
	Data     cascade.DataParser

	PackageRoot      string
	DefaultExtension string
	Descriptor       string

	Logger    *log.Logger
	Observers []module.Observer
}

// Loader owns one registry and one sequencer. Instances are independent.
type Loader struct {
	names    modname.Resolver
	registry *module.Registry
	cascade  *cascade.Cascade
	seq      *sequencer.Sequencer[GroupToken, *module.Record]
	logger   *log.Logger
	observer module.Observers

	// base outlives individual calls; cascades run on it.
	base   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	tokens map[GroupToken]struct{}
	closed bool
}

// New builds a Loader from opts.
func New(opts Options) (*Loader, error) {
	if opts.Fetcher == nil {
		return nil, errors.New("loader: fetcher is required")
	}
	if opts.Compiler == nil {
		opts.Compiler = plugins.NewGoCompiler()
	}
	names := modname.NewResolver(opts.PackageRoot, opts.DefaultExtension)
	observer := module.Observers(append([]module.Observer(nil), opts.Observers...))
	logger := logging.OrDiscard(opts.Logger)
	c, err := cascade.New(cascade.Options{
		Names:      names,
		Fetcher:    fetch.Dedupe(opts.Fetcher),
		Compiler:   opts.Compiler,
		Data:       opts.Data,
		Descriptor: opts.Descriptor,
		Logger:     logger,
		Observer:   observer,
	})
	if err != nil {
		return nil, fmt.Errorf("loader: %w", err)
	}
	base, cancel := context.WithCancel(context.Background())
	return &Loader{
		names:    names,
		registry: module.NewRegistry(names),
		cascade:  c,
		seq:      sequencer.New[GroupToken, *module.Record](),
		logger:   logger,
		observer: observer,
		base:     base,
		cancel:   cancel,
		tokens:   make(map[GroupToken]struct{}),
	}, nil
}

// NewGroup issues a fresh single-use group token.
func (l *Loader) NewGroup() GroupToken {
	t := newGroupToken()
	l.mu.Lock()
	l.tokens[t] = struct{}{}
	l.mu.Unlock()
	return t
}

// Load is overloaded on the identifier kind:
//
//   - Load(ctx, token) drains the group and yields its []Result.
//   - Load(ctx, name, token) queues name in the group. The returned future
//     settles with the module's exports once the group is drained.
//   - Load(ctx, name) loads name on its own through a one-shot group and
//     yields the module's exports.
//
// Argument misuse is reported synchronously as ErrInvalidArgument.
func (l *Loader) Load(ctx context.Context, id Identifier, group ...GroupToken) (*outcome.Future[any], error) {
	if len(group) > 1 {
		return nil, module.InvalidArgument("loader: at most one group token, got %d", len(group))
	}
	switch v := id.(type) {
	case GroupToken:
		if len(group) != 0 {
			return nil, module.InvalidArgument("loader: a group token cannot be loaded into another group")
		}
		drained, err := l.Drain(ctx, v)
		if err != nil {
			return nil, err
		}
		return outcome.Map(ctx, drained, func(rs []Result) (any, error) { return rs, nil }), nil
	case Name:
		if len(group) == 1 {
			return l.attach(ctx, v, group[0])
		}
		return l.loadSolo(ctx, v)
	case nil:
		return nil, module.InvalidArgument("loader: identifier is nil")
	default:
		return nil, module.InvalidArgument("loader: unsupported identifier %T", id)
	}
}

// Require loads id on its own and waits for its exports.
func (l *Loader) Require(ctx context.Context, id string) (any, error) {
	f, err := l.Load(ctx, Name(id))
	if err != nil {
		return nil, err
	}
	return f.Await(ctx)
}

// Attach queues id in group without draining it.
func (l *Loader) Attach(ctx context.Context, id string, group GroupToken) (*outcome.Future[any], error) {
	return l.Load(ctx, Name(id), group)
}

// Drain walks the group in attachment order. The token is spent as soon as
// Drain is called.
func (l *Loader) Drain(ctx context.Context, group GroupToken) (*outcome.Future[[]Result], error) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil, ErrClosed
	}
	if err := l.checkToken(group); err != nil {
		l.mu.Unlock()
		return nil, err
	}
	delete(l.tokens, group)
	l.mu.Unlock()

	done, err := l.seq.Drain(ctx, group)
	if err != nil {
		return nil, err
	}
	return outcome.Map(context.Background(), done, func(rs []Result) ([]Result, error) {
		l.observer.Observe(module.Event{Kind: module.EventGroupDrained, Count: len(rs)})
		return rs, nil
	}), nil
}

// Key returns the registry key id normalizes to.
func (l *Loader) Key(id string) string {
	return l.registry.Key(id)
}

// Record returns a snapshot of the record id normalizes to.
func (l *Loader) Record(id string) (Snapshot, bool) {
	rec, ok := l.registry.Lookup(id)
	if !ok {
		return Snapshot{}, false
	}
	return rec.Snapshot(), true
}

// Records returns snapshots of every record in creation order.
func (l *Loader) Records() []Snapshot {
	return l.registry.Snapshots()
}

// Errors returns every error recorded against id, oldest first.
func (l *Loader) Errors(id string) []error {
	rec, ok := l.registry.Lookup(id)
	if !ok {
		return nil
	}
	return rec.Errors()
}

// Close rejects further loads and waits for running cascades and drains.
// When ctx ends first the remaining work is cancelled.
func (l *Loader) Close(ctx context.Context) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	l.mu.Unlock()
	defer l.cancel()

	finished := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
	case <-ctx.Done():
		return fmt.Errorf("loader: close: %w", ctx.Err())
	}
	if err := l.seq.Wait(ctx); err != nil {
		return fmt.Errorf("loader: close: %w", err)
	}
	return nil
}

func (l *Loader) loadSolo(ctx context.Context, name Name) (*outcome.Future[any], error) {
	token := l.NewGroup()
	if _, err := l.attach(ctx, name, token); err != nil {
		l.forget(token)
		return nil, err
	}
	drained, err := l.Drain(ctx, token)
	if err != nil {
		return nil, err
	}
	return outcome.Map(ctx, drained, func(rs []Result) (any, error) {
		if len(rs) != 1 {
			return nil, fmt.Errorf("loader: one-shot group yielded %d results", len(rs))
		}
		return rs[0].Value, rs[0].Err
	}), nil
}

func (l *Loader) attach(ctx context.Context, name Name, group GroupToken) (*outcome.Future[any], error) {
	// the token check and seq.Attach share l.mu so a concurrent Drain cannot
	// spend the token in between; wg.Add stays under it to not race Close
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil, ErrClosed
	}
	if err := l.checkToken(group); err != nil {
		l.mu.Unlock()
		return nil, err
	}
	rec, created, err := l.registry.GetOrCreate(string(name))
	if err != nil {
		l.mu.Unlock()
		return nil, err
	}
	if created {
		l.wg.Add(1)
	}
	var out *outcome.Future[any]
	chain := chainFrom(ctx)
	cyclic := rec.State() != module.StateReady && contains(chain, rec.Key())
	if !cyclic {
		out, err = l.seq.Attach(group, rec.Pending(), l.execute)
	}
	l.mu.Unlock()

	if created {
		l.observer.Observe(module.Event{Kind: module.EventCreated, ID: rec.ID(), Key: rec.Key()})
		go func() {
			defer l.wg.Done()
			_, _ = l.cascade.Resolve(l.base, rec)
		}()
	}
	if cyclic {
		return nil, &module.CycleError{Chain: append(chain, rec.Key())}
	}
	return out, err
}

// execute is the continuation of every attached entry. Ready records return
// their cached exports; loaded ones run under the record's execution lock,
// at most once successfully.
func (l *Loader) execute(ctx context.Context, rec *module.Record) (any, error) {
	if rec.State() == module.StateReady {
		return rec.Exports(), nil
	}
	unlock := rec.LockExecution()
	defer unlock()
	if rec.State() == module.StateReady {
		return rec.Exports(), nil
	}
	unit := rec.Unit()
	if unit == nil {
		return nil, &module.TransitionError{Key: rec.Key(), From: rec.State(), To: module.StateReady}
	}

	inner := withChain(ctx, rec.Key())
	// every attempt starts from an empty exports map, so keys written by a
	// failed attempt never reach the retry
	exports := map[string]any{}
	meta := map[string]any{
		"id":       rec.ID(),
		"key":      rec.Key(),
		"location": rec.Location(),
		"exports":  exports,
	}
	env := module.Env{
		Exports:  exports,
		Require:  func(id string) (any, error) { return l.Require(inner, id) },
		Module:   meta,
		Filename: rec.Location(),
		Dirname:  rec.Dirname(),
	}
	if err := unit.Execute(inner, env); err != nil {
		execErr := &module.ExecutionError{ID: rec.ID(), Location: rec.Location(), Err: err}
		rec.AppendError(execErr)
		l.observer.Observe(module.Event{Kind: module.EventExecutionFailed, ID: rec.ID(), Key: rec.Key(), Location: rec.Location(), Err: execErr})
		l.logger.Warn("module execution failed", "id", rec.ID(), "location", rec.Location(), "err", err)
		return nil, execErr
	}
	final := meta["exports"]
	if err := rec.MarkReady(final); err != nil {
		return nil, err
	}
	l.observer.Observe(module.Event{Kind: module.EventReady, ID: rec.ID(), Key: rec.Key(), Location: rec.Location()})
	l.logger.Debug("module ready", "id", rec.ID(), "location", rec.Location())
	return final, nil
}

// checkToken must be called with l.mu held.
func (l *Loader) checkToken(group GroupToken) error {
	if group.IsZero() {
		return module.InvalidArgument("loader: zero group token")
	}
	if _, ok := l.tokens[group]; !ok {
		return module.InvalidArgument("loader: %s was never issued or is already drained", group)
	}
	return nil
}

func (l *Loader) forget(group GroupToken) {
	l.mu.Lock()
	delete(l.tokens, group)
	l.mu.Unlock()
}

type chainKey struct{}

func chainFrom(ctx context.Context) []string {
	chain, _ := ctx.Value(chainKey{}).([]string)
	return chain
}

func withChain(ctx context.Context, key string) context.Context {
	prev := chainFrom(ctx)
	chain := make([]string, len(prev), len(prev)+1)
	copy(chain, prev)
	return context.WithValue(ctx, chainKey{}, append(chain, key))
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
