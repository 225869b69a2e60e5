// Package config loads importmap.yaml.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"importmap/project"
	"importmap/rewriter"
)

// FileName is the config file looked up in the project root.
const FileName = "importmap.yaml"

var ErrInvalidConfig = errors.New("invalid config")

// Config is the on-disk configuration.
type Config struct {
	Target   rewriter.Target `yaml:"target"`
	Include  []string        `yaml:"include"`
	Exclude  []string        `yaml:"exclude"`
	SkipDirs []string        `yaml:"skipDirs"`
	// Jobs bounds concurrent transforms; 0 means one per CPU.
	Jobs int `yaml:"jobs"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Target:   rewriter.DefaultTarget(),
		Include:  []string{"src/**/*.{js,jsx,ts,tsx,mjs,vue}"},
		Exclude:  []string{"**/*.d.ts"},
		SkipDirs: []string{"node_modules", "dist"},
	}
}

// Load reads path and fills unset fields from Default.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// LoadOptional is Load, except a missing file yields Default.
func LoadOptional(path string) (Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

func Parse(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config file: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	def := Default()
	if c.Target.Package == "" {
		c.Target.Package = def.Target.Package
	}
	if c.Target.PathFragment == "" {
		c.Target.PathFragment = "node_modules/" + c.Target.Package + "/"
	}
	if c.Target.DistEntry == "" {
		c.Target.DistEntry = def.Target.DistEntry
	}
	if c.Target.StylesPath == "" {
		c.Target.StylesPath = def.Target.StylesPath
	}
	if len(c.Include) == 0 {
		c.Include = def.Include
	}
	if c.Exclude == nil {
		c.Exclude = def.Exclude
	}
	if c.SkipDirs == nil {
		c.SkipDirs = def.SkipDirs
	}
}

// Validate checks the target and every glob pattern.
func (c Config) Validate() error {
	if err := c.Target.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	for _, p := range append(append([]string{}, c.Include...), c.Exclude...) {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("%w: bad pattern %q", ErrInvalidConfig, p)
		}
	}
	if c.Jobs < 0 {
		return fmt.Errorf("%w: jobs must not be negative", ErrInvalidConfig)
	}
	return nil
}

// Filter returns the project filter described by c.
func (c Config) Filter() project.Filter {
	return project.Filter{
		Include:  c.Include,
		Exclude:  c.Exclude,
		SkipDirs: c.SkipDirs,
	}
}
