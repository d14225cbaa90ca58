// Package config handles pmxtool configuration loading and management.
package config

import (
	"fmt"
	"time"

	"github.com/qxdqhr/sa2kit-sub004/internal/logger"
	"github.com/qxdqhr/sa2kit-sub004/pkg/pmx"
)

// Mapping export formats.
const (
	FormatYAML = "yaml"
	FormatJSON = "json"
	FormatTOML = "toml"
)

// Config holds all pmxtool settings.
type Config struct {
	Logging  LoggingConfig  `yaml:"logging"`
	Editor   EditorConfig   `yaml:"editor"`
	Output   OutputConfig   `yaml:"output"`
	Textures TexturesConfig `yaml:"textures"`

	source string
}

// Source returns the file the config was loaded from, or "" for defaults.
func (c *Config) Source() string { return c.source }

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// EditorConfig holds binding editor settings.
type EditorConfig struct {
	HistoryLimit      int    `yaml:"history_limit"`
	DefaultSphereMode string `yaml:"default_sphere_mode"`
}

// OutputConfig controls how edited models and exports are written.
type OutputConfig struct {
	MappingFormat string `yaml:"mapping_format"`
	Overwrite     bool   `yaml:"overwrite"` // write edits back to the input file when -o is absent
}

// TexturesConfig controls texture file checks.
type TexturesConfig struct {
	Probe         bool          `yaml:"probe"` // decode image headers during check
	WatchDebounce time.Duration `yaml:"watch_debounce"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
		Editor: EditorConfig{
			HistoryLimit:      pmx.DefaultHistoryLimit,
			DefaultSphereMode: "multiply",
		},
		Output: OutputConfig{
			MappingFormat: FormatYAML,
			Overwrite:     false,
		},
		Textures: TexturesConfig{
			Probe:         true,
			WatchDebounce: 200 * time.Millisecond,
		},
	}
}

// SphereMode returns the configured default sphere blend mode.
func (c *Config) SphereMode() (pmx.SphereMode, error) {
	return pmx.ParseSphereMode(c.Editor.DefaultSphereMode)
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	if _, err := logger.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	if c.Editor.HistoryLimit <= 0 {
		return fmt.Errorf("editor.history_limit: must be positive, got %d", c.Editor.HistoryLimit)
	}
	if _, err := c.SphereMode(); err != nil {
		return fmt.Errorf("editor.default_sphere_mode: %w", err)
	}
	switch c.Output.MappingFormat {
	case FormatYAML, FormatJSON, FormatTOML:
	default:
		return fmt.Errorf("output.mapping_format: unknown format %q", c.Output.MappingFormat)
	}
	if c.Textures.WatchDebounce < 0 {
		return fmt.Errorf("textures.watch_debounce: negative duration %v", c.Textures.WatchDebounce)
	}
	return nil
}
