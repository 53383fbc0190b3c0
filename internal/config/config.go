// Package config provides configuration management for shellrun.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Config holds the CLI defaults for shell operations. Everything here can be
// overridden per invocation with flags; the file only sets the baseline.
type Config struct {
	// Shell is the default shell selector. Empty means platform default,
	// resolved when the operation is triggered.
	Shell string `yaml:"shell"`

	// Env entries are merged over the inherited environment for every run.
	Env map[string]string `yaml:"env,omitempty"`

	// WorkingDir is the default working directory ("" = current).
	WorkingDir string `yaml:"working_dir"`

	// TmpDir overrides where command scripts are materialized.
	TmpDir string `yaml:"tmp_dir"`

	// StreamOutput mirrors captured lines to the logger in real time.
	StreamOutput bool `yaml:"stream_output"`

	// ReturnAll prints every captured line instead of only the last one.
	ReturnAll bool `yaml:"return_all"`

	// CombineStreams interleaves stderr into the printed result.
	CombineStreams bool `yaml:"combine_streams"`

	// OutputLineCap bounds the captured buffer (0 = unbounded).
	OutputLineCap int `yaml:"output_line_cap"`

	// GracePeriodMs is the interrupt-to-kill grace when a run is torn down.
	GracePeriodMs int `yaml:"grace_period_ms"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

// DefaultConfig returns the baseline configuration.
func DefaultConfig() *Config {
	return &Config{
		Shell:          "", // platform default at trigger time
		StreamOutput:   false,
		ReturnAll:      true,
		CombineStreams: false,
		OutputLineCap:  0,
		GracePeriodMs:  5000,
		LogLevel:       "info",
	}
}

// DefaultFile returns the default config file location:
// $XDG_CONFIG_HOME/shellrun/config.yaml (or the platform equivalent).
func DefaultFile() string {
	if runtime.GOOS == "windows" {
		appData := os.Getenv("APPDATA")
		if appData == "" {
			home, _ := os.UserHomeDir()
			appData = filepath.Join(home, "AppData", "Roaming")
		}
		return filepath.Join(appData, "shellrun", "config.yaml")
	}

	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, _ := os.UserHomeDir()
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "shellrun", "config.yaml")
}

// Load reads the config from the default location.
func Load() (*Config, error) {
	return LoadFromFile(DefaultFile())
}

// LoadFromFile reads the config from path, layering it over the defaults.
// A missing file is not an error; the defaults apply.
func LoadFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate rejects values the CLI cannot act on.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log_level %q", c.LogLevel)
	}
	if c.OutputLineCap < 0 {
		return fmt.Errorf("output_line_cap must be >= 0")
	}
	if c.GracePeriodMs < 0 {
		return fmt.Errorf("grace_period_ms must be >= 0")
	}
	return nil
}

// SlogLevel maps LogLevel to a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
