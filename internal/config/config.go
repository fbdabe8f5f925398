// Package config provides reading and writing of spi configuration.
// Supports both global (~/.spi/config.yaml) and local (.spi/config.yaml).
// Reading: uses local if it exists, otherwise global.
// Writing: goes back to wherever the config was read from.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	// ErrNoConfigPath is returned when the config path cannot be determined.
	ErrNoConfigPath = errors.New("cannot determine config path")
	// ErrUnknownKey is returned when getting/setting an unknown config key.
	ErrUnknownKey = errors.New("unknown config key")
	// ErrInvalidValue is returned when a config value is invalid.
	ErrInvalidValue = errors.New("invalid config value")
)

// Scope represents the configuration scope (global or local).
type Scope int

const (
	// ScopeGlobal is user-wide config in ~/.spi/config.yaml (default)
	ScopeGlobal Scope = iota
	// ScopeLocal is project-specific config in .spi/config.yaml
	ScopeLocal
)

// DefaultCompiler is the adaptive compiler used when none is configured.
const DefaultCompiler = "plan"

// Order holds activation ordering options.
type Order struct {
	Strict *bool `yaml:"strict,omitempty"`
}

// Audit holds audit log options.
type Audit struct {
	Enabled *bool `yaml:"enabled,omitempty"`
}

// Config contains configuration for spi.
type Config struct {
	Compiler string   `yaml:"compiler,omitempty"`
	Order    Order    `yaml:"order,omitempty"`
	Sources  []string `yaml:"sources,omitempty"`
	Plugins  string   `yaml:"plugins,omitempty"`
	Audit    Audit    `yaml:"audit,omitempty"`

	// path is the file this config was loaded from (for Save)
	path  string
	scope Scope
}

// Validate checks that all configured values are usable.
func (c *Config) Validate() error {
	if strings.ContainsAny(c.Compiler, " \t,=") {
		return fmt.Errorf("%w: compiler must be a single extension name, got %q", ErrInvalidValue, c.Compiler)
	}
	for _, s := range c.Sources {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%w: sources must not contain empty paths", ErrInvalidValue)
		}
	}
	return nil
}

// CompilerName returns the adaptive compiler name (defaults to "plan").
func (c *Config) CompilerName() string {
	if c.Compiler == "" {
		return DefaultCompiler
	}
	return c.Compiler
}

// StrictOrder returns whether activation uses topological ordering
// (defaults to false).
func (c *Config) StrictOrder() bool {
	if c.Order.Strict == nil {
		return false
	}
	return *c.Order.Strict
}

// AuditEnabled returns whether the audit log is written (defaults to true).
func (c *Config) AuditEnabled() bool {
	if c.Audit.Enabled == nil {
		return true
	}
	return *c.Audit.Enabled
}

// LocalPath returns the path to the local (project) config file.
func LocalPath() string {
	return filepath.Join(".spi", "config.yaml")
}

// GlobalPath returns the path to the global (user) config file: ~/.spi/config.yaml
func GlobalPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".spi", "config.yaml")
}

// Load reads configuration: uses local if it exists, otherwise global.
func Load() (*Config, error) {
	if _, err := os.Stat(LocalPath()); err == nil {
		return LoadScope(ScopeLocal)
	}
	return LoadScope(ScopeGlobal)
}

// LoadScope reads configuration from a specific scope.
func LoadScope(scope Scope) (*Config, error) {
	return loadPath(pathForScope(scope), scope)
}

func loadPath(path string, scope Scope) (*Config, error) {
	if path == "" {
		return &Config{scope: scope}, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &Config{path: path, scope: scope}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("malformed config file %s: %w\n\nTo fix: edit the file to correct the YAML syntax, or delete it to use defaults", path, err)
	}
	cfg.path = path
	cfg.scope = scope

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return &cfg, nil
}

// Scope returns which scope this config was loaded from.
func (c *Config) Scope() Scope {
	return c.scope
}

// Path returns the file this config was loaded from, possibly not yet
// existing.
func (c *Config) Path() string {
	return c.path
}

// Save writes the configuration to its original location.
func (c *Config) Save() error {
	if c.path == "" {
		c.path = pathForScope(c.scope)
	}
	if c.path == "" {
		return ErrNoConfigPath
	}
	return c.saveToPath(c.path)
}

// saveToPath writes configuration to a specific filesystem path.
// Creates parent directories as needed with mode 0755.
func (c *Config) saveToPath(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// pathForScope returns the filesystem path for a given scope.
func pathForScope(scope Scope) string {
	switch scope {
	case ScopeLocal:
		return LocalPath()
	case ScopeGlobal:
		return GlobalPath()
	default:
		return ""
	}
}
