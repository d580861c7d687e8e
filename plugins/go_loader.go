package plugins

import (
	"context"
	"fmt"
	"go/parser"
	"go/token"
	"reflect"
	"strings"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"github.com/kingrea/modload/internal/module"
)

// InitFuncName is the function every Go source module must declare:
//
//	func Init(exports map[string]any, require func(string) (any, error), module map[string]any, filename, dirname string) error
const InitFuncName = "Init"

const initArity = 5

// GoCompiler compiles Go source modules with the yaegi interpreter.
type GoCompiler struct {
	// Symbols are extra packages exposed to module source on top of the stdlib.
	Symbols interp.Exports
}

// NewGoCompiler returns a compiler exposing only the standard library.
func NewGoCompiler() *GoCompiler {
	return &GoCompiler{}
}

// Compile evaluates source and looks up its Init function. Package-level
// declarations are evaluated here; Init itself only runs on Execute.
func (c *GoCompiler) Compile(source, location string) (unit module.Unit, err error) {
	if len(strings.TrimSpace(source)) == 0 {
		return nil, &module.CompileError{Location: location, Err: fmt.Errorf("plugin: %s is empty", location)}
	}
	pkg, err := packageName(source, location)
	if err != nil {
		return nil, &module.CompileError{Location: location, Err: err}
	}
	defer func() {
		if r := recover(); r != nil {
			unit = nil
			err = &module.CompileError{Location: location, Err: fmt.Errorf("plugin: interpreter panic: %v", r)}
		}
	}()
	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("plugin: load stdlib symbols: %w", err)
	}
	if len(c.Symbols) > 0 {
		if err := i.Use(c.Symbols); err != nil {
			return nil, fmt.Errorf("plugin: load symbols: %w", err)
		}
	}
	if _, err := i.Eval(source); err != nil {
		return nil, &module.CompileError{Location: location, Err: fmt.Errorf("plugin: interpret %s: %w", location, err)}
	}
	fnValue, err := i.Eval(initSymbol(pkg))
	if err != nil {
		return nil, &module.CompileError{Location: location, Err: fmt.Errorf("plugin: %s must define %s(): %w", location, InitFuncName, err)}
	}
	if err := checkInitFunc(fnValue); err != nil {
		return nil, &module.CompileError{Location: location, Err: fmt.Errorf("plugin: %s: %w", location, err)}
	}
	return &goUnit{fn: fnValue, location: location}, nil
}

// packageName reads only the package clause of source.
func packageName(source, location string) (string, error) {
	f, err := parser.ParseFile(token.NewFileSet(), location, source, parser.PackageClauseOnly)
	if err != nil {
		return "", fmt.Errorf("plugin: package clause: %w", err)
	}
	return f.Name.Name, nil
}

// initSymbol is how Init is addressed once the source has been evaluated:
// bare in package main, qualified by package name otherwise.
func initSymbol(pkg string) string {
	if pkg == "main" {
		return InitFuncName
	}
	return pkg + "." + InitFuncName
}

func checkInitFunc(value reflect.Value) error {
	if !value.IsValid() {
		return fmt.Errorf("missing %s function", InitFuncName)
	}
	if value.Kind() != reflect.Func {
		return fmt.Errorf("%s is not a function", InitFuncName)
	}
	typ := value.Type()
	if typ.NumIn() != initArity || typ.NumOut() != 1 {
		return fmt.Errorf("%s must have signature func(map[string]any, func(string) (any, error), map[string]any, string, string) error", InitFuncName)
	}
	return nil
}

type goUnit struct {
	fn       reflect.Value
	location string
}

func (u *goUnit) Execute(ctx context.Context, env module.Env) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("plugin: %s panicked: %v", u.location, r)
		}
	}()
	exports, _ := env.Exports.(map[string]any)
	if exports == nil {
		exports = map[string]any{}
	}
	meta := env.Module
	if meta == nil {
		meta = map[string]any{"exports": exports}
	}
	requireFn := env.Require
	if requireFn == nil {
		requireFn = func(id string) (any, error) {
			return nil, fmt.Errorf("plugin: require(%q) is unavailable", id)
		}
	}
	require := func(id string) (any, error) { return requireFn(id) }
	results := u.fn.Call([]reflect.Value{
		reflect.ValueOf(exports),
		reflect.ValueOf(require),
		reflect.ValueOf(meta),
		reflect.ValueOf(env.Filename),
		reflect.ValueOf(env.Dirname),
	})
	if len(results) == 1 && !results[0].IsNil() {
		if e, ok := results[0].Interface().(error); ok && e != nil {
			return e
		}
		return fmt.Errorf("plugin: %s returned a non-error value", InitFuncName)
	}
	return nil
}
