// internal/config/config.go
//
// This package handles configuration and the .modload directory structure.
// A project that uses modload keeps its settings in .modload/config.yaml.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// Dir is the name of the directory we create in each project
	Dir = ".modload"

	SourceDir  = "dir"
	SourceHTTP = "http"

	defaultRoot        = "modules"
	defaultPackageRoot = "packages"
	defaultDescriptor  = "package.yaml"
	defaultExtension   = ".go"
	defaultLogLevel    = "info"
	defaultInspectHost = "127.0.0.1"
	defaultInspectPort = 7420
)

// Environment overrides applied after the config file is read.
const (
	EnvSource      = "MODLOAD_SOURCE"
	EnvRoot        = "MODLOAD_ROOT"
	EnvBaseURL     = "MODLOAD_BASE_URL"
	EnvLogLevel    = "MODLOAD_LOG_LEVEL"
	EnvInspectPort = "MODLOAD_INSPECT_PORT"
)

const defaultProjectConfigYAML = `# modload project configuration
version: 1

# Where module text is fetched from. Use source: dir with a root directory
# relative to the project, or source: http with a base_url.
source: dir
root: modules
# base_url: https://example.com/modules

# Package layout.
package_root: packages
descriptor: package.yaml
default_extension: .go

log:
  level: info

inspect:
  enabled: false
  host: 127.0.0.1
  port: 7420
`

// LogConfig controls the log file verbosity.
type LogConfig struct {
	Level string `yaml:"level"`
}

// InspectConfig controls the status HTTP server.
type InspectConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

// ProjectConfig models .modload/config.yaml.
type ProjectConfig struct {
	Version          int           `yaml:"version"`
	Source           string        `yaml:"source"`
	Root             string        `yaml:"root,omitempty"`
	BaseURL          string        `yaml:"base_url,omitempty"`
	PackageRoot      string        `yaml:"package_root"`
	Descriptor       string        `yaml:"descriptor"`
	DefaultExtension string        `yaml:"default_extension"`
	Log              LogConfig     `yaml:"log"`
	Inspect          InspectConfig `yaml:"inspect"`
}

// Config holds the runtime configuration for a project.
type Config struct {
	// ProjectDir is the directory modload was run from
	ProjectDir string

	// StateDir is ProjectDir/.modload
	StateDir string

	Project ProjectConfig
}

// InitDir creates the .modload directory structure in the given project directory.
//
// Structure created:
// .modload/
// ├── config.yaml
// └── logs/       <- modload.log and the load journal
func InitDir(projectDir string) error {
	stateDir := filepath.Join(projectDir, Dir)
	if err := os.MkdirAll(filepath.Join(stateDir, "logs"), 0755); err != nil {
		return err
	}
	return ensureProjectConfig(filepath.Join(stateDir, "config.yaml"))
}

// New creates a Config populated with project settings. A missing config
// file yields the defaults.
func New(projectDir string) (*Config, error) {
	abs, err := filepath.Abs(projectDir)
	if err != nil {
		return nil, fmt.Errorf("config: resolve project dir: %w", err)
	}
	cfg := &Config{
		ProjectDir: abs,
		StateDir:   filepath.Join(abs, Dir),
		Project:    defaultProjectConfig(abs),
	}
	if err := cfg.loadProjectConfig(); err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LogsDir returns the path to the logs directory
func (c *Config) LogsDir() string {
	return filepath.Join(c.StateDir, "logs")
}

// JournalPath returns the path of the load journal.
func (c *Config) JournalPath() string {
	return filepath.Join(c.LogsDir(), "journal.log")
}

// ProjectConfigPath returns the on-disk location for the project config file.
func (c *Config) ProjectConfigPath() string {
	return filepath.Join(c.StateDir, "config.yaml")
}

func (c *Config) loadProjectConfig() error {
	path := c.ProjectConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	var parsed ProjectConfig
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	parsed.applyDefaults()
	parsed.normalize(c.ProjectDir)
	if err := parsed.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	c.Project = parsed
	return nil
}

func (c *Config) applyEnv() error {
	pc := c.Project
	if v := strings.TrimSpace(os.Getenv(EnvSource)); v != "" {
		pc.Source = normalizeSource(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvRoot)); v != "" {
		pc.Root = resolvePath(c.ProjectDir, v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvBaseURL)); v != "" {
		pc.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		pc.Log.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvInspectPort)); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: %s: %w", EnvInspectPort, err)
		}
		pc.Inspect.Port = port
	}
	if err := pc.validate(); err != nil {
		return fmt.Errorf("config: environment: %w", err)
	}
	c.Project = pc
	return nil
}

func defaultProjectConfig(base string) ProjectConfig {
	var pc ProjectConfig
	pc.applyDefaults()
	pc.normalize(base)
	return pc
}

func (pc *ProjectConfig) applyDefaults() {
	if pc.Version == 0 {
		pc.Version = 1
	}
	if strings.TrimSpace(pc.Source) == "" {
		pc.Source = SourceDir
	}
	if normalizeSource(pc.Source) == SourceDir && strings.TrimSpace(pc.Root) == "" {
		pc.Root = defaultRoot
	}
	if strings.TrimSpace(pc.PackageRoot) == "" {
		pc.PackageRoot = defaultPackageRoot
	}
	if strings.TrimSpace(pc.Descriptor) == "" {
		pc.Descriptor = defaultDescriptor
	}
	if strings.TrimSpace(pc.DefaultExtension) == "" {
		pc.DefaultExtension = defaultExtension
	}
	if strings.TrimSpace(pc.Log.Level) == "" {
		pc.Log.Level = defaultLogLevel
	}
	if strings.TrimSpace(pc.Inspect.Host) == "" {
		pc.Inspect.Host = defaultInspectHost
	}
	if pc.Inspect.Port == 0 {
		pc.Inspect.Port = defaultInspectPort
	}
}

func (pc *ProjectConfig) normalize(base string) {
	pc.Source = normalizeSource(pc.Source)
	pc.Root = resolvePath(base, pc.Root)
	pc.BaseURL = strings.TrimSpace(pc.BaseURL)
	pc.PackageRoot = strings.Trim(strings.TrimSpace(pc.PackageRoot), "/")
	pc.Descriptor = strings.TrimSpace(pc.Descriptor)
	pc.DefaultExtension = strings.TrimSpace(pc.DefaultExtension)
	if !strings.HasPrefix(pc.DefaultExtension, ".") {
		pc.DefaultExtension = "." + pc.DefaultExtension
	}
	pc.Log.Level = strings.ToLower(strings.TrimSpace(pc.Log.Level))
	pc.Inspect.Host = strings.TrimSpace(pc.Inspect.Host)
}

func (pc *ProjectConfig) validate() error {
	if pc.Version < 1 {
		return fmt.Errorf("config version must be >= 1")
	}
	switch pc.Source {
	case SourceDir:
		if pc.Root == "" {
			return fmt.Errorf("root is required for dir sources")
		}
	case SourceHTTP:
		if pc.BaseURL == "" {
			return fmt.Errorf("base_url is required for http sources")
		}
	default:
		return fmt.Errorf("source must be 'dir' or 'http'")
	}
	if strings.Contains(pc.Descriptor, "/") {
		return fmt.Errorf("descriptor must be a file name, got %q", pc.Descriptor)
	}
	switch pc.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error")
	}
	if pc.Inspect.Port < 1 || pc.Inspect.Port > 65535 {
		return fmt.Errorf("inspect.port must be between 1 and 65535")
	}
	return nil
}

func ensureProjectConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, []byte(defaultProjectConfigYAML), 0o644)
}

func normalizeSource(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func resolvePath(base, candidate string) string {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		return ""
	}
	if filepath.IsAbs(trimmed) {
		return filepath.Clean(trimmed)
	}
	return filepath.Clean(filepath.Join(base, trimmed))
}
