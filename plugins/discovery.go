package plugins

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kingrea/modload/internal/modname"
)

// Discover lists the identifiers loadable from a directory root: every source
// or data file (source files without their default extension) plus every
// package directory under the package root that carries a descriptor.
// Missing directories are treated as "no modules".
func Discover(root string, names modname.Resolver, descriptorName string) ([]string, error) {
	trimmed := strings.TrimSpace(root)
	if trimmed == "" {
		return nil, nil
	}
	if descriptorName == "" {
		descriptorName = DefaultDescriptorName
	}
	if _, err := os.Stat(trimmed); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("plugin: stat %s: %w", trimmed, err)
	}
	seen := map[string]struct{}{}
	err := filepath.WalkDir(trimmed, func(p string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			if strings.HasPrefix(entry.Name(), ".") && p != trimmed {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(trimmed, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if entry.Name() == descriptorName {
			if pkg, ok := packageOf(rel, names.PackageRoot); ok {
				seen[pkg] = struct{}{}
			}
			return nil
		}
		ext := path.Ext(rel)
		switch {
		case ext == names.DefaultExtension:
			seen[strings.TrimSuffix(rel, ext)] = struct{}{}
		case modname.IsSourceExtension(ext) || modname.IsDataExtension(ext):
			seen[rel] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("plugin: walk %s: %w", trimmed, err)
	}
	if len(seen) == 0 {
		return nil, nil
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// packageOf maps "<root>/<pkg>/<descriptor>" to "<pkg>".
func packageOf(rel, packageRoot string) (string, bool) {
	parts := strings.Split(rel, "/")
	if len(parts) != 3 || parts[0] != packageRoot {
		return "", false
	}
	return parts[1], true
}
