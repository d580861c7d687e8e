package plugins

import (
	"fmt"
	"path"
	"strings"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"

	"github.com/kingrea/modload/internal/module"
)

// DefaultDescriptorName is the package descriptor file looked up under each package directory.
const DefaultDescriptorName = "package.yaml"

// Descriptor describes a package: which file is its main entry and, optionally,
// its name and version. JSON descriptors decode too since YAML is a superset.
type Descriptor struct {
	Name        string `json:"name,omitempty" yaml:"name,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Version     string `json:"version,omitempty" yaml:"version,omitempty"`
	Main        string `json:"main" yaml:"main"`
}

// Normalized returns a trimmed copy of the descriptor.
func (d Descriptor) Normalized() Descriptor {
	return Descriptor{
		Name:        strings.TrimSpace(d.Name),
		Description: strings.TrimSpace(d.Description),
		Version:     strings.TrimSpace(d.Version),
		Main:        strings.TrimPrefix(path.Clean("/"+strings.TrimSpace(d.Main)), "/"),
	}
}

// Validate ensures the descriptor declares a usable main entry and, when
// present, a semantic version.
func (d Descriptor) Validate() error {
	if strings.TrimSpace(d.Main) == "" {
		return fmt.Errorf("plugin: descriptor main is required")
	}
	for _, seg := range strings.Split(strings.TrimSpace(d.Main), "/") {
		if seg == ".." {
			return fmt.Errorf("plugin: descriptor main %q escapes the package", d.Main)
		}
	}
	if v := strings.TrimSpace(d.Version); v != "" {
		if _, err := semver.NewVersion(v); err != nil {
			return fmt.Errorf("plugin: descriptor version %q: %w", v, err)
		}
	}
	return nil
}

// Info converts the descriptor into record package metadata.
func (d Descriptor) Info(fallbackName string) *module.PackageInfo {
	name := d.Name
	if name == "" {
		name = fallbackName
	}
	info := &module.PackageInfo{Name: name, Main: d.Main}
	if d.Version != "" {
		if v, err := semver.NewVersion(d.Version); err == nil {
			info.Version = v.String()
		}
	}
	return info
}

// ParseDescriptor decodes and validates a package descriptor payload.
func ParseDescriptor(data []byte) (Descriptor, error) {
	if isEmpty(data) {
		return Descriptor{}, fmt.Errorf("plugin: descriptor payload is empty")
	}
	var d Descriptor
	if err := yaml.Unmarshal(data, &d); err != nil {
		return Descriptor{}, fmt.Errorf("plugin: decode descriptor: %w", err)
	}
	if err := d.Validate(); err != nil {
		return Descriptor{}, err
	}
	return d.Normalized(), nil
}
