package modname

import (
	"errors"
	"path"
	"strings"
)

const (
	// DefaultPackageRoot is the directory (relative to the fetch root) holding packages.
	DefaultPackageRoot = "packages"
	// DefaultExtension is appended to leaf names without a recognized extension.
	DefaultExtension = ".go"
)

var (
	sourceExtensions = []string{".go"}
	dataExtensions   = []string{".json", ".yaml", ".yml", ".toml"}
)

// Parsed is the decomposition of one identifier.
type Parsed struct {
	// Original is the identifier exactly as requested.
	Original string
	// Path is Original cleaned to a root-relative slash path.
	Path string
	// PackageName is the first path segment, or the leaf name when there is no path.
	PackageName string
	// IntraPath is everything before the leaf, minus a leading package-root segment.
	IntraPath string
	// Leaf is the final path segment.
	Leaf string
}

// Resolver carries the few settings that shape parsing and extension correction.
type Resolver struct {
	PackageRoot      string
	DefaultExtension string
}

// NewResolver returns a Resolver with defaults applied for empty fields.
func NewResolver(packageRoot, defaultExt string) Resolver {
	r := Resolver{
		PackageRoot:      strings.Trim(strings.TrimSpace(packageRoot), "/"),
		DefaultExtension: strings.TrimSpace(defaultExt),
	}
	if r.PackageRoot == "" {
		r.PackageRoot = DefaultPackageRoot
	}
	if r.DefaultExtension == "" {
		r.DefaultExtension = DefaultExtension
	}
	if !strings.HasPrefix(r.DefaultExtension, ".") {
		r.DefaultExtension = "." + r.DefaultExtension
	}
	return r
}

// Clean normalizes an identifier into a root-relative slash path.
func Clean(id string) string {
	trimmed := strings.TrimSpace(strings.ReplaceAll(id, "\\", "/"))
	if trimmed == "" {
		return ""
	}
	cleaned := path.Clean("/" + trimmed)
	return strings.TrimPrefix(cleaned, "/")
}

// Validate rejects identifiers that cannot name a module below the root.
func Validate(id string) error {
	if strings.TrimSpace(id) == "" {
		return errors.New("modname: identifier is empty")
	}
	if strings.ContainsRune(id, 0) {
		return errors.New("modname: identifier contains a NUL byte")
	}
	for _, seg := range strings.Split(strings.ReplaceAll(id, "\\", "/"), "/") {
		if seg == ".." {
			return errors.New("modname: identifier escapes the module root")
		}
	}
	if Clean(id) == "" {
		return errors.New("modname: identifier names the module root")
	}
	return nil
}

// Parse splits id on its last separator.
func (r Resolver) Parse(id string) Parsed {
	p := Parsed{Original: id, Path: Clean(id)}
	segments := strings.Split(p.Path, "/")
	p.Leaf = segments[len(segments)-1]
	dirs := segments[:len(segments)-1]
	if len(dirs) > 0 && dirs[0] == r.root() {
		dirs = dirs[1:]
	}
	p.IntraPath = strings.Join(dirs, "/")
	if len(dirs) > 0 {
		p.PackageName = dirs[0]
	} else {
		p.PackageName = strings.TrimSuffix(p.Leaf, recognized(path.Ext(p.Leaf)))
	}
	return p
}

// CorrectedName is the direct candidate location: the cleaned path with the
// default extension appended when the leaf has no recognized one.
func (r Resolver) CorrectedName(p Parsed) string {
	return r.CorrectPath(p.Path)
}

// CorrectPath applies extension correction to an arbitrary slash path.
func (r Resolver) CorrectPath(p string) string {
	if recognized(path.Ext(p)) != "" {
		return p
	}
	ext := r.DefaultExtension
	if ext == "" {
		ext = DefaultExtension
	}
	return p + ext
}

// Subpath is the part of the identifier below its package name, or "" for a bare package.
func (r Resolver) Subpath(p Parsed) string {
	rest := p.Path
	if root := r.root(); strings.HasPrefix(rest, root+"/") {
		rest = strings.TrimPrefix(rest, root+"/")
	}
	if strings.TrimSuffix(rest, recognized(path.Ext(rest))) == p.PackageName {
		return ""
	}
	return strings.TrimPrefix(rest, p.PackageName+"/")
}

// Key is the normalized registry key for id.
func (r Resolver) Key(id string) string {
	return r.CorrectedName(r.Parse(id))
}

// IsDataExtension reports whether ext names a data-only module format.
func IsDataExtension(ext string) bool {
	return contains(dataExtensions, strings.ToLower(ext))
}

// IsSourceExtension reports whether ext names a compiled source module.
func IsSourceExtension(ext string) bool {
	return contains(sourceExtensions, strings.ToLower(ext))
}

func (r Resolver) root() string {
	if r.PackageRoot == "" {
		return DefaultPackageRoot
	}
	return r.PackageRoot
}

func recognized(ext string) string {
	if IsDataExtension(ext) || IsSourceExtension(ext) {
		return ext
	}
	return ""
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
