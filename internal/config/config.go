// Package config provides configuration loading and management for the generator.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/stacklok/spigen/internal/telemetry"
)

const (
	// SourceTypeComposer reads the root composer.json and the installed package list
	SourceTypeComposer = "composer"

	// SourceTypeManifest reads a YAML package manifest
	SourceTypeManifest = "manifest"
)

// EnvPrefix is the prefix of environment variables read by the CLI
const EnvPrefix = "SPIGEN"

const (
	// DefaultComposerFile is the root package manifest file name
	DefaultComposerFile = "composer.json"

	// DefaultNamespace is the namespace of the generated class
	DefaultNamespace = `Nevay\SPI`

	// DefaultClassName is the name of the generated class
	DefaultClassName = "GeneratedServiceProviderData"

	// DefaultStatusFileName is the name of the generation status file inside the vendor composer dir
	DefaultStatusFileName = "spigen-status.json"

	// DefaultWatchDebounce is the quiet period before a watch-triggered regeneration
	DefaultWatchDebounce = 500 * time.Millisecond
)

// Option defines the interface for configuration options
type Option func(*loaderConfig) error

// loaderConfig defines the configuration for loading a configuration
type loaderConfig struct {
	path       string
	projectDir string
}

// WithConfigPath loads configuration from a YAML file
func WithConfigPath(path string) Option {
	return func(cfg *loaderConfig) error {
		if path == "" {
			return fmt.Errorf("path is required")
		}

		// Resolve symlinks to prevent symlink attacks.
		// Note that this calls filepath.Clean internally.
		realPath, err := filepath.EvalSymlinks(path)
		if err != nil {
			return fmt.Errorf("failed to evaluate symlinks: %w", err)
		}

		cfg.path = realPath
		return nil
	}
}

// WithProjectDir overrides the project directory from the configuration file
func WithProjectDir(dir string) Option {
	return func(cfg *loaderConfig) error {
		if dir == "" {
			return fmt.Errorf("project directory cannot be empty")
		}
		cfg.projectDir = dir
		return nil
	}
}

// Config represents the root configuration structure
type Config struct {
	// ProjectDir is the directory containing the root package.
	// Relative paths elsewhere in the configuration are resolved against it.
	// Defaults to the current working directory.
	ProjectDir string `yaml:"projectDir,omitempty"`

	// Source configures where package records are read from
	Source SourceConfig `yaml:"source"`

	// Output configures the generated artifact
	Output OutputConfig `yaml:"output,omitempty"`

	// Filter restricts which dependency packages contribute declarations
	Filter *FilterConfig `yaml:"filter,omitempty"`

	// Environment tunes the availability checks
	Environment *EnvironmentConfig `yaml:"environment,omitempty"`

	// Watch configures the watch command
	Watch *WatchConfig `yaml:"watch,omitempty"`

	// Telemetry configures tracing and metrics export
	Telemetry *telemetry.Config `yaml:"telemetry,omitempty"`
}

// SourceConfig defines the package metadata source
type SourceConfig struct {
	// Type is the source type (composer or manifest). Defaults to composer.
	Type string `yaml:"type,omitempty"`

	// Type-specific configurations (at most one should be set)
	Composer *ComposerConfig `yaml:"composer,omitempty"`
	Manifest *ManifestConfig `yaml:"manifest,omitempty"`
}

// ComposerConfig defines composer source settings
type ComposerConfig struct {
	// File is the root composer.json path
	File string `yaml:"file,omitempty"`

	// VendorDir overrides the vendor directory declared in composer.json
	VendorDir string `yaml:"vendorDir,omitempty"`
}

// ManifestConfig defines YAML manifest source settings
type ManifestConfig struct {
	// Path is the path to the package manifest file
	Path string `yaml:"path"`
}

// OutputConfig defines the generated artifact settings
type OutputConfig struct {
	// Path is the artifact path. Defaults to <vendor-dir>/composer/GeneratedServiceProviderData.php
	Path string `yaml:"path,omitempty"`

	// Namespace is the namespace of the generated class
	Namespace string `yaml:"namespace,omitempty"`

	// ClassName is the name of the generated class
	ClassName string `yaml:"className,omitempty"`

	// StatusFile is where the generation status is persisted.
	// Defaults to <vendor-dir>/composer/spigen-status.json
	StatusFile string `yaml:"statusFile,omitempty"`
}

// FilterConfig defines which dependency packages are scanned for declarations
type FilterConfig struct {
	Packages *NameFilterConfig `yaml:"packages,omitempty"`
	Keywords *TagFilterConfig  `yaml:"keywords,omitempty"`
}

// NameFilterConfig defines name-based filtering
type NameFilterConfig struct {
	Include []string `yaml:"include,omitempty"`
	Exclude []string `yaml:"exclude,omitempty"`
}

// TagFilterConfig defines keyword-based filtering
type TagFilterConfig struct {
	Include []string `yaml:"include,omitempty"`
	Exclude []string `yaml:"exclude,omitempty"`
}

// EnvironmentConfig defines the facts used by the availability checks
type EnvironmentConfig struct {
	// Extensions maps loaded platform extensions to their versions
	Extensions map[string]string `yaml:"extensions,omitempty"`

	// AssumeExists lists glob patterns of identifiers that exist without a source file
	AssumeExists []string `yaml:"assumeExists,omitempty"`

	// Unavailable lists glob patterns of identifiers that are always unavailable
	Unavailable []string `yaml:"unavailable,omitempty"`
}

// WatchConfig defines watch mode settings
type WatchConfig struct {
	// Debounce is the quiet period before regenerating (e.g., "500ms", "2s")
	Debounce string `yaml:"debounce,omitempty"`
}

// LoadConfig loads and parses configuration.
// Without WithConfigPath the defaults are used, which read composer metadata
// from the project directory.
func LoadConfig(opts ...Option) (*Config, error) {
	loaderCfg := &loaderConfig{}
	for _, opt := range opts {
		if err := opt(loaderCfg); err != nil {
			return nil, err
		}
	}

	var config Config
	if loaderCfg.path != "" {
		// Read the entire file into memory
		data, err := os.ReadFile(loaderCfg.path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		// Parse YAML content
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	}

	if loaderCfg.projectDir != "" {
		config.ProjectDir = loaderCfg.projectDir
	}

	if err := config.applyDefaults(); err != nil {
		return nil, err
	}

	// Validate the config
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// applyDefaults fills in unset fields
func (c *Config) applyDefaults() error {
	if c.ProjectDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to determine working directory: %w", err)
		}
		c.ProjectDir = wd
	}

	if c.Source.Type == "" {
		switch {
		case c.Source.Manifest != nil:
			c.Source.Type = SourceTypeManifest
		default:
			c.Source.Type = SourceTypeComposer
		}
	}
	if c.Source.Type == SourceTypeComposer && c.Source.Composer == nil {
		c.Source.Composer = &ComposerConfig{}
	}
	if c.Source.Composer != nil && c.Source.Composer.File == "" {
		c.Source.Composer.File = DefaultComposerFile
	}

	if c.Output.Namespace == "" {
		c.Output.Namespace = DefaultNamespace
	}
	if c.Output.ClassName == "" {
		c.Output.ClassName = DefaultClassName
	}

	return nil
}

// Validate performs validation on the configuration
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config cannot be nil")
	}

	var errs []error

	switch c.Source.Type {
	case SourceTypeComposer:
		if c.Source.Manifest != nil {
			errs = append(errs, fmt.Errorf("source: manifest configuration is not allowed with type %s", c.Source.Type))
		}
	case SourceTypeManifest:
		if c.Source.Manifest == nil || c.Source.Manifest.Path == "" {
			errs = append(errs, fmt.Errorf("source: manifest.path is required"))
		}
		if c.Source.Composer != nil {
			errs = append(errs, fmt.Errorf("source: composer configuration is not allowed with type %s", c.Source.Type))
		}
	default:
		errs = append(errs, fmt.Errorf("source: unsupported type '%s'", c.Source.Type))
	}

	if c.Watch != nil && c.Watch.Debounce != "" {
		if _, err := time.ParseDuration(c.Watch.Debounce); err != nil {
			errs = append(errs, fmt.Errorf("watch: debounce must be a valid duration (e.g., '500ms', '2s'): %w", err))
		}
	}

	if err := c.Telemetry.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("telemetry: %w", err))
	}

	return errors.Join(errs...)
}

// ResolvePath resolves a configured path against the project directory
func (c *Config) ResolvePath(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.ProjectDir, path)
}

// GetWatchDebounce returns the watch debounce interval, using the default if not specified
func (c *Config) GetWatchDebounce() time.Duration {
	if c.Watch == nil || c.Watch.Debounce == "" {
		return DefaultWatchDebounce
	}
	d, err := time.ParseDuration(c.Watch.Debounce)
	if err != nil {
		return DefaultWatchDebounce
	}
	return d
}

// GetPackageFilter returns the include and exclude package patterns
func (c *Config) GetPackageFilter() (include, exclude []string) {
	if c.Filter == nil || c.Filter.Packages == nil {
		return nil, nil
	}
	return c.Filter.Packages.Include, c.Filter.Packages.Exclude
}

// GetEnvironment returns the environment configuration, never nil
func (c *Config) GetEnvironment() *EnvironmentConfig {
	if c.Environment == nil {
		return &EnvironmentConfig{}
	}
	return c.Environment
}
