package cascade

import (
	"context"
	"errors"
	"fmt"
	"path"

	"github.com/charmbracelet/log"

	"github.com/kingrea/modload/internal/fetch"
	"github.com/kingrea/modload/internal/logging"
	"github.com/kingrea/modload/internal/modname"
	"github.com/kingrea/modload/internal/module"
	"github.com/kingrea/modload/plugins"
)

// Compiler turns module source into an executable unit.
type Compiler interface {
	Compile(source, location string) (module.Unit, error)
}

// DataParser recognizes data-only modules.
type DataParser interface {
	ParseData(text, location string) (any, bool)
}

// Options configures a Cascade. Fetcher and Compiler are required.
type Options struct {
	Names      modname.Resolver
	Fetcher    fetch.Fetcher
	Compiler   Compiler
	Data       DataParser
	Descriptor string
	Logger     *log.Logger
	Observer   module.Observer
}

// Cascade resolves records against the fetch and compile collaborators.
type Cascade struct {
	names      modname.Resolver
	fetcher    fetch.Fetcher
	compiler   Compiler
	data       DataParser
	descriptor string
	logger     *log.Logger
	observer   module.Observer
}

// New validates opts and applies defaults.
func New(opts Options) (*Cascade, error) {
	if opts.Fetcher == nil {
		return nil, errors.New("cascade: fetcher is required")
	}
	if opts.Compiler == nil {
		return nil, errors.New("cascade: compiler is required")
	}
	if opts.Names.PackageRoot == "" || opts.Names.DefaultExtension == "" {
		opts.Names = modname.NewResolver(opts.Names.PackageRoot, opts.Names.DefaultExtension)
	}
	if opts.Data == nil {
		opts.Data = plugins.DataParser{}
	}
	if opts.Descriptor == "" {
		opts.Descriptor = plugins.DefaultDescriptorName
	}
	if opts.Observer == nil {
		opts.Observer = module.Observers(nil)
	}
	return &Cascade{
		names:      opts.Names,
		fetcher:    opts.Fetcher,
		compiler:   opts.Compiler,
		data:       opts.Data,
		descriptor: opts.Descriptor,
		logger:     logging.OrDiscard(opts.Logger),
		observer:   opts.Observer,
	}, nil
}

// Resolve runs the cascade for rec and completes rec.Pending() with the
// outcome. It must run at most once per record; the registry's created flag
// is what guarantees that.
func (c *Cascade) Resolve(ctx context.Context, rec *module.Record) (*module.Record, error) {
	res, err := c.resolve(ctx, rec)
	if err != nil {
		_ = rec.MarkFailed(err)
		c.emit(module.Event{Kind: module.EventFailed, ID: rec.ID(), Key: rec.Key(), Err: err})
		c.logger.Warn("module failed", "id", rec.ID(), "err", err)
		rec.Pending().Complete(nil, err)
		return nil, err
	}
	if err := rec.MarkLoaded(res); err != nil {
		rec.Pending().Complete(nil, err)
		return nil, err
	}
	c.emit(module.Event{Kind: module.EventLoaded, ID: rec.ID(), Key: rec.Key(), Location: res.Location, Data: res.Data()})
	if res.Data() {
		if err := rec.MarkReady(res.Exports); err != nil {
			rec.Pending().Complete(nil, err)
			return nil, err
		}
		c.emit(module.Event{Kind: module.EventReady, ID: rec.ID(), Key: rec.Key(), Location: res.Location, Data: true})
	}
	c.logger.Debug("module loaded", "id", rec.ID(), "location", res.Location, "data", res.Data())
	rec.Pending().Complete(rec, nil)
	return rec, nil
}

// Candidates lists the locations the cascade would try for id, in order,
// without the descriptor main entry which depends on fetched content.
func (c *Cascade) Candidates(id string) []string {
	p := c.names.Parse(id)
	return dedupe([]string{c.direct(p), c.descriptorLocation(p), c.fallback(p)})
}

func (c *Cascade) resolve(ctx context.Context, rec *module.Record) (module.Resolution, error) {
	p := c.names.Parse(rec.ID())
	attempts := newAttempts()
	var last error

	miss := func(location string, err error) {
		last = err
		rec.AppendError(err)
		c.emit(module.Event{Kind: module.EventCandidateMiss, ID: rec.ID(), Key: rec.Key(), Location: location, Err: err})
		c.logger.Debug("candidate missed", "id", rec.ID(), "location", location, "err", err)
	}
	try := func(location string, pkg *module.PackageInfo) (module.Resolution, bool, error) {
		if !attempts.add(location) {
			return module.Resolution{}, false, nil
		}
		res, err := c.load(ctx, location, pkg)
		var compileErr *module.CompileError
		switch {
		case err == nil:
			return res, true, nil
		case errors.As(err, &compileErr):
			return module.Resolution{}, false, err
		}
		miss(location, err)
		return module.Resolution{}, false, nil
	}

	if res, ok, err := try(c.direct(p), nil); ok || err != nil {
		return res, err
	}
	if err := ctx.Err(); err != nil {
		return module.Resolution{}, fmt.Errorf("cascade: resolve %s: %w", rec.ID(), err)
	}

	descLoc := c.descriptorLocation(p)
	if attempts.add(descLoc) {
		desc, err := c.readDescriptor(ctx, descLoc)
		if err != nil {
			miss(descLoc, err)
		} else {
			mainLoc := c.mainEntry(p, desc)
			if res, ok, err := try(mainLoc, desc.Info(p.PackageName)); ok || err != nil {
				return res, err
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return module.Resolution{}, fmt.Errorf("cascade: resolve %s: %w", rec.ID(), err)
	}

	if res, ok, err := try(c.fallback(p), nil); ok || err != nil {
		return res, err
	}
	return module.Resolution{}, &module.ResolutionError{ID: rec.ID(), Attempts: attempts.list, Last: last}
}

// load fetches location and classifies the text. Fetch misses, transport
// errors and undecodable data files are candidate misses; only a compile
// error is returned as fatal.
func (c *Cascade) load(ctx context.Context, location string, pkg *module.PackageInfo) (module.Resolution, error) {
	text, found, err := c.fetcher.Fetch(ctx, location)
	if err != nil {
		return module.Resolution{}, fmt.Errorf("cascade: fetch %s: %w", location, err)
	}
	if !found {
		return module.Resolution{}, &module.NotFoundError{Location: location}
	}
	if value, ok := c.data.ParseData(text, location); ok {
		return module.Resolution{Location: location, Exports: value, Package: pkg}, nil
	}
	if modname.IsDataExtension(path.Ext(location)) {
		return module.Resolution{}, fmt.Errorf("cascade: %s is not a structured data document", location)
	}
	unit, err := c.compiler.Compile(text, location)
	if err != nil {
		var compileErr *module.CompileError
		if !errors.As(err, &compileErr) {
			err = &module.CompileError{Location: location, Err: err}
		}
		return module.Resolution{}, err
	}
	return module.Resolution{Location: location, Unit: unit, Exports: map[string]any{}, Package: pkg}, nil
}

func (c *Cascade) readDescriptor(ctx context.Context, location string) (plugins.Descriptor, error) {
	text, found, err := c.fetcher.Fetch(ctx, location)
	if err != nil {
		return plugins.Descriptor{}, fmt.Errorf("cascade: fetch %s: %w", location, err)
	}
	if !found {
		return plugins.Descriptor{}, &module.NotFoundError{Location: location}
	}
	desc, err := plugins.ParseDescriptor([]byte(text))
	if err != nil {
		return plugins.Descriptor{}, &module.DescriptorError{Location: location, Err: err}
	}
	return desc, nil
}

func (c *Cascade) direct(p modname.Parsed) string {
	return c.names.CorrectedName(p)
}

func (c *Cascade) descriptorLocation(p modname.Parsed) string {
	return path.Join(c.names.PackageRoot, p.PackageName, c.descriptor)
}

// mainEntry joins the descriptor's main with the requested sub path. A bare
// package loads main itself; a sub path is looked up next to main.
func (c *Cascade) mainEntry(p modname.Parsed, desc plugins.Descriptor) string {
	pkgDir := path.Join(c.names.PackageRoot, p.PackageName)
	sub := c.names.Subpath(p)
	if sub == "" {
		return c.names.CorrectPath(path.Join(pkgDir, desc.Main))
	}
	return c.names.CorrectPath(path.Join(pkgDir, path.Dir(desc.Main), sub))
}

func (c *Cascade) fallback(p modname.Parsed) string {
	return c.names.CorrectPath(path.Join(c.names.PackageRoot, p.IntraPath, p.Leaf))
}

func (c *Cascade) emit(e module.Event) {
	c.observer.Observe(e)
}

type attempts struct {
	seen map[string]struct{}
	list []string
}

func newAttempts() *attempts {
	return &attempts{seen: map[string]struct{}{}}
}

func (a *attempts) add(location string) bool {
	if _, ok := a.seen[location]; ok {
		return false
	}
	a.seen[location] = struct{}{}
	a.list = append(a.list, location)
	return true
}

func dedupe(locations []string) []string {
	a := newAttempts()
	for _, loc := range locations {
		a.add(loc)
	}
	return a.list
}
