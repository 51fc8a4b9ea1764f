package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Color modes accepted by the color setting
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// maxBufferSize caps the line segmenter refill size
const maxBufferSize = 64 << 20

// HistoryConfig represents run history configuration
type HistoryConfig struct {
	// Enabled records a summary of every run in the history database
	Enabled bool `yaml:"enabled"`

	// DBPath is the path to the history database ("" = $YGREP_HOME/history.db)
	DBPath string `yaml:"db_path"`

	// KeepRuns is the number of most recent runs to keep (0 = keep all)
	KeepRuns int `yaml:"keep_runs"`
}

// Config represents ygrep configuration options
type Config struct {
	// FollowSymlinks follows symlinks found below each path argument
	FollowSymlinks bool `yaml:"follow_symlinks"`

	// IgnoreCase makes pattern matching case-insensitive
	IgnoreCase bool `yaml:"ignore_case"`

	// Color controls colored output: auto, always or never
	Color string `yaml:"color"`

	// LogLevel sets the diagnostic verbosity (trace, debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// BufferSize is the read chunk size in bytes (0 = built-in default)
	BufferSize int `yaml:"buffer_size"`

	// History contains run history configuration
	History HistoryConfig `yaml:"history"`
}

// DefaultConfig returns a Config with sensible default values
func DefaultConfig() *Config {
	return &Config{
		FollowSymlinks: true,
		IgnoreCase:     false,
		Color:          ColorAuto,
		LogLevel:       "warn",
		BufferSize:     0,
		History: HistoryConfig{
			Enabled:  false,
			DBPath:   "",
			KeepRuns: 500,
		},
	}
}

// LoadConfig loads configuration from the specified file path
// If the file doesn't exist, returns default configuration without error
// If the file exists but is malformed, returns an error
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var fileCfg Config
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Booleans and zero values are only applied when the key is present, so an
	// explicit "follow_symlinks: false" overrides the true default.
	var rawMap map[string]interface{}
	if err := yaml.Unmarshal(data, &rawMap); err != nil || rawMap == nil {
		return cfg, nil
	}

	if _, exists := rawMap["follow_symlinks"]; exists {
		cfg.FollowSymlinks = fileCfg.FollowSymlinks
	}
	if _, exists := rawMap["ignore_case"]; exists {
		cfg.IgnoreCase = fileCfg.IgnoreCase
	}
	if fileCfg.Color != "" {
		cfg.Color = fileCfg.Color
	}
	if fileCfg.LogLevel != "" {
		cfg.LogLevel = fileCfg.LogLevel
	}
	if _, exists := rawMap["buffer_size"]; exists {
		cfg.BufferSize = fileCfg.BufferSize
	}

	if historySection, exists := rawMap["history"]; exists && historySection != nil {
		historyMap, _ := historySection.(map[string]interface{})

		if _, exists := historyMap["enabled"]; exists {
			cfg.History.Enabled = fileCfg.History.Enabled
		}
		if _, exists := historyMap["db_path"]; exists {
			cfg.History.DBPath = fileCfg.History.DBPath
		}
		if _, exists := historyMap["keep_runs"]; exists {
			cfg.History.KeepRuns = fileCfg.History.KeepRuns
		}
	}

	return cfg, nil
}

// LoadConfigFromDir loads configuration from .ygrep/config.yaml in the specified directory
// If the directory or file doesn't exist, returns default configuration without error
func LoadConfigFromDir(dir string) (*Config, error) {
	return LoadConfig(filepath.Join(dir, ".ygrep", "config.yaml"))
}

// LoadDefaultConfig loads .ygrep/config.yaml from the working directory, falling
// back to config.yaml in the ygrep home directory.
func LoadDefaultConfig() (*Config, error) {
	local := filepath.Join(".ygrep", "config.yaml")
	if _, err := os.Stat(local); err == nil {
		return LoadConfig(local)
	}

	home, err := GetHome()
	if err != nil {
		return DefaultConfig(), nil
	}
	return LoadConfig(filepath.Join(home, "config.yaml"))
}

// MergeWithFlags merges CLI flags into the configuration
// Non-nil flag values override configuration values
func (c *Config) MergeWithFlags(followSymlinks *bool, ignoreCase *bool, color *string, logLevel *string, bufferSize *int) {
	if followSymlinks != nil {
		c.FollowSymlinks = *followSymlinks
	}
	if ignoreCase != nil {
		c.IgnoreCase = *ignoreCase
	}
	if color != nil {
		c.Color = *color
	}
	if logLevel != nil {
		c.LogLevel = *logLevel
	}
	if bufferSize != nil {
		c.BufferSize = *bufferSize
	}
}

// Validate validates the configuration values
// Returns an error if any values are invalid
func (c *Config) Validate() error {
	switch c.Color {
	case ColorAuto, ColorAlways, ColorNever:
	default:
		return fmt.Errorf("invalid color %q, must be one of: auto, always, never", c.Color)
	}

	validLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("invalid log_level %q, must be one of: trace, debug, info, warn, error", c.LogLevel)
	}

	if c.BufferSize < 0 || c.BufferSize > maxBufferSize {
		return fmt.Errorf("buffer_size must be between 0 and %d, got %d", maxBufferSize, c.BufferSize)
	}

	if c.History.KeepRuns < 0 {
		return fmt.Errorf("history.keep_runs must be >= 0, got %d", c.History.KeepRuns)
	}

	return nil
}

// HistoryDBPath returns the configured history database path, defaulting to
// history.db in the ygrep home directory.
func (c *Config) HistoryDBPath() (string, error) {
	if c.History.DBPath != "" {
		return c.History.DBPath, nil
	}
	home, err := GetHome()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "history.db"), nil
}
