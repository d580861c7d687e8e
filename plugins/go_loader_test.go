package plugins

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kingrea/modload/internal/module"
)

const greetSource = `package main

import "strings"

func Init(exports map[string]interface{}, require func(string) (interface{}, error), module map[string]interface{}, filename, dirname string) error {
	exports["greeting"] = strings.ToUpper("hello")
	exports["file"] = filename
	exports["dir"] = dirname
	return nil
}
`

const requireSource = `package main

func Init(exports map[string]interface{}, require func(string) (interface{}, error), module map[string]interface{}, filename, dirname string) error {
	dep, err := require("dep")
	if err != nil {
		return err
	}
	module["exports"] = dep
	return nil
}
`

const failingSource = `package main

import "errors"

func Init(exports map[string]interface{}, require func(string) (interface{}, error), module map[string]interface{}, filename, dirname string) error {
	return errors.New("boom")
}
`

func TestGoCompilerExecutesInit(t *testing.T) {
	unit, err := NewGoCompiler().Compile(greetSource, "lib/greet.go")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	exports := map[string]any{}
	env := module.Env{Exports: exports, Module: map[string]any{"exports": exports}, Filename: "lib/greet.go", Dirname: "lib"}
	if err := unit.Execute(context.Background(), env); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if exports["greeting"] != "HELLO" || exports["file"] != "lib/greet.go" || exports["dir"] != "lib" {
		t.Fatalf("unexpected exports: %#v", exports)
	}
}

func TestGoCompilerPassesRequire(t *testing.T) {
	unit, err := NewGoCompiler().Compile(requireSource, "uses-dep.go")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	meta := map[string]any{"exports": map[string]any{}}
	env := module.Env{
		Module: meta,
		Require: func(id string) (any, error) {
			if id != "dep" {
				return nil, errors.New("unexpected id " + id)
			}
			return "dep-value", nil
		},
	}
	if err := unit.Execute(context.Background(), env); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if meta["exports"] != "dep-value" {
		t.Fatalf("exports not replaced: %#v", meta["exports"])
	}
}

func TestGoCompilerReturnsInitError(t *testing.T) {
	unit, err := NewGoCompiler().Compile(failingSource, "fail.go")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	err = unit.Execute(context.Background(), module.Env{})
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestGoCompilerResolvesInitInNamedPackage(t *testing.T) {
	src := `package greet

import "strings"

func Init(exports map[string]any, require func(string) (any, error), module map[string]any, filename, dirname string) error {
	exports["hello"] = strings.ToUpper("hi")
	return nil
}
`
	unit, err := NewGoCompiler().Compile(src, "greet.go")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	exports := map[string]any{}
	if err := unit.Execute(context.Background(), module.Env{Exports: exports}); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if exports["hello"] != "HI" {
		t.Fatalf("unexpected exports %#v", exports)
	}
}

func TestGoCompilerNamedPackageWithoutInit(t *testing.T) {
	_, err := NewGoCompiler().Compile("package util\n\nfunc Helper() {}\n", "util.go")
	var compileErr *module.CompileError
	if !errors.As(err, &compileErr) {
		t.Fatalf("expected CompileError, got %v", err)
	}
}

func TestGoCompilerCompileErrors(t *testing.T) {
	cases := map[string]string{
		"empty":        "   ",
		"syntax":       "package main\n\nfunc Init( {",
		"missing init": "package main\n\nfunc Other() {}\n",
		"wrong arity":  "package main\n\nfunc Init() error { return nil }\n",
		"no package":   "func Init(exports map[string]any, require func(string) (any, error), module map[string]any, filename, dirname string) error { return nil }\n",
	}
	for name, src := range cases {
		_, err := NewGoCompiler().Compile(src, name+".go")
		var compileErr *module.CompileError
		if !errors.As(err, &compileErr) {
			t.Fatalf("%s: expected CompileError, got %v", name, err)
		}
		if compileErr.Location != name+".go" {
			t.Fatalf("%s: location = %q", name, compileErr.Location)
		}
	}
}
