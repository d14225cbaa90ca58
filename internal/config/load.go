package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// FileName is the config file name searched in the working directory.
const FileName = "pmxtool.yaml"

// Load builds the configuration from defaults, then the first config file
// found, then flags. flags may be nil.
func Load(flags *Flags) (*Config, error) {
	cfg := Default()

	path := flags.ConfigPath()
	if path == "" {
		path = findConfigFile(SearchPaths())
	}
	if path != "" {
		if err := loadFromFile(cfg, path); err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", path, err)
		}
		cfg.source = path
	}

	flags.apply(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SearchPaths lists the config files Load tries, in order, when no -config
// flag is given.
func SearchPaths() []string {
	return []string{
		filepath.Join(".", FileName),
		UserConfigPath(),
	}
}

// UserConfigPath is the config file inside ConfigDir.
func UserConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

func findConfigFile(candidates []string) string {
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		} else if !errors.Is(err, fs.ErrNotExist) {
			// unreadable candidates are reported by loadFromFile
			return path
		}
	}
	return ""
}

// ConfigDir returns the OS-appropriate config directory.
func ConfigDir() string {
	switch runtime.GOOS {
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "PMXTool")
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "PMXTool")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "pmxtool")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "pmxtool")
	}
}

// loadFromFile merges a YAML file over the values already in cfg. Keys
// missing from the file keep their current value.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("decoding yaml: %w", err)
	}
	return nil
}
