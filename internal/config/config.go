// Package config loads the runtime configuration (coludf.yaml) and kernel
// description files.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"
)

// Config represents the top-level coludf.yaml configuration.
type Config struct {
	Launch  LaunchConfig  `yaml:"launch"`
	Logging LoggingConfig `yaml:"logging"`
}

// LaunchConfig controls how kernels are run over columns.
type LaunchConfig struct {
	// Workers is the number of execution units running at once.
	// Zero means one per GOMAXPROCS.
	Workers int `yaml:"workers,omitempty"`

	// BlockSize is the number of rows a worker claims at a time.
	BlockSize int `yaml:"block_size,omitempty"`

	// ArenaSize is the block size of each unit's string allocator.
	ArenaSize int `yaml:"arena_size,omitempty"`
}

// LoggingConfig selects the logger.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level,omitempty"`

	// Format is json or console.
	Format string `yaml:"format,omitempty"`

	// Color is auto, always or never. Auto colors only terminals.
	Color string `yaml:"color,omitempty"`
}

// Default returns the configuration used when no file is found.
func Default() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

// LoadConfig reads and parses a coludf.yaml file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return ParseConfig(data, path)
}

// ParseConfig parses coludf.yaml content from bytes.
// The path argument is used only for error messages.
func ParseConfig(data []byte, path string) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.validate(path); err != nil {
		return nil, err
	}
	cfg.setDefaults()
	return &cfg, nil
}

// FindConfig searches for coludf.yaml starting from dir and walking up to
// parent directories. It returns "" and no error when there is none.
func FindConfig(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving directory: %w", err)
	}

	for {
		for _, name := range ConfigFileNames {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

// validate checks the configuration for semantic errors.
func (c *Config) validate(path string) error {
	if c.Launch.Workers < 0 {
		return fmt.Errorf("%s: launch.workers must not be negative", path)
	}
	if c.Launch.BlockSize < 0 {
		return fmt.Errorf("%s: launch.block_size must not be negative", path)
	}
	if c.Launch.ArenaSize < 0 {
		return fmt.Errorf("%s: launch.arena_size must not be negative", path)
	}
	if l := c.Logging.Level; l != "" && !slices.Contains([]string{"debug", "info", "warn", "error"}, l) {
		return fmt.Errorf("%s: logging.level %q is not one of debug, info, warn, error", path, l)
	}
	if f := c.Logging.Format; f != "" && f != "json" && f != "console" {
		return fmt.Errorf("%s: logging.format %q must be json or console", path, f)
	}
	if col := c.Logging.Color; col != "" && !slices.Contains([]string{"auto", "always", "never"}, col) {
		return fmt.Errorf("%s: logging.color %q must be auto, always or never", path, col)
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.Launch.BlockSize == 0 {
		c.Launch.BlockSize = DefaultBlockSize
	}
	if c.Launch.ArenaSize == 0 {
		c.Launch.ArenaSize = DefaultArenaSize
	}
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}
	if c.Logging.Color == "" {
		c.Logging.Color = DefaultColor
	}
}
