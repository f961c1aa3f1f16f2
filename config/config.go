package config

import (
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/spektr-org/inspekt/engine"
	"github.com/spektr-org/inspekt/helpers"
	"github.com/spektr-org/inspekt/schema"
)

// ============================================================================
// CONFIG — YAML settings for loaders, the engine and the CLI
// ============================================================================
// Keys absent from the file keep their defaults. Load always validates.
// ============================================================================

// ErrInvalidConfig is returned when a setting is out of range.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the on-disk configuration.
type Config struct {
	// Trend holds the rolling windows of the trend overlay
	Trend TrendConfig `yaml:"trend"`

	// Parallelism bounds concurrent per-step analysis (1 = sequential)
	Parallelism int `yaml:"parallelism"`

	// Columns maps source headers onto record roles
	Columns schema.Mapping `yaml:"columns"`

	// DateFormat is a Go time layout; empty tries the known layouts
	DateFormat string `yaml:"date_format,omitempty"`

	// StrictSpec rejects rows with inconsistent spec limits at load time
	StrictSpec bool `yaml:"strict_spec"`

	// LogLevel: "debug", "info", "warn", "error"
	LogLevel string `yaml:"log_level"`
}

// TrendConfig sets the short and long moving-average windows (in observations).
type TrendConfig struct {
	ShortWindow int `yaml:"short_window"`
	LongWindow  int `yaml:"long_window"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Trend: TrendConfig{
			ShortWindow: engine.DefaultShortWindow,
			LongWindow:  engine.DefaultLongWindow,
		},
		Parallelism: 1,
		Columns:     schema.DefaultMapping(),
		LogLevel:    "info",
	}
}

// Load reads a YAML file over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the engine cannot honour.
func (c *Config) Validate() error {
	if c.Trend.ShortWindow <= 0 || c.Trend.LongWindow <= 0 {
		return fmt.Errorf("%w: trend windows must be positive (got %d, %d)",
			ErrInvalidConfig, c.Trend.ShortWindow, c.Trend.LongWindow)
	}
	if c.Trend.ShortWindow > c.Trend.LongWindow {
		return fmt.Errorf("%w: short_window %d exceeds long_window %d",
			ErrInvalidConfig, c.Trend.ShortWindow, c.Trend.LongWindow)
	}
	if c.Parallelism < 0 {
		return fmt.Errorf("%w: parallelism %d is negative", ErrInvalidConfig, c.Parallelism)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	if err := c.Mapping().Validate(); err != nil {
		return fmt.Errorf("%w: columns: %v", ErrInvalidConfig, err)
	}
	return nil
}

// Level parses LogLevel.
func (c *Config) Level() (zapcore.Level, error) {
	if c.LogLevel == "" {
		return zapcore.InfoLevel, nil
	}
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return level, fmt.Errorf("%w: log_level %q", ErrInvalidConfig, c.LogLevel)
	}
	return level, nil
}

// Mapping returns the column mapping with the configured date layout.
func (c *Config) Mapping() schema.Mapping {
	m := c.Columns
	if c.DateFormat != "" {
		m.DateFormat = c.DateFormat
	}
	return m
}

// EngineOptions converts the settings to engine options.
func (c *Config) EngineOptions(logger *zap.Logger) []engine.Option {
	return []engine.Option{
		engine.WithLogger(logger),
		engine.WithTrendWindows(c.Trend.ShortWindow, c.Trend.LongWindow),
		engine.WithParallelism(c.Parallelism),
	}
}

// LoadOptions converts the settings to loader options.
func (c *Config) LoadOptions(logger *zap.Logger) []helpers.LoadOption {
	return []helpers.LoadOption{
		helpers.WithLogger(logger),
		helpers.WithStrictSpec(c.StrictSpec),
	}
}

// SaveDefault writes the default configuration to a file.
func SaveDefault(path string) error {
	data, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
