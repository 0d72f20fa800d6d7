// Package config loads texmerge settings from YAML with environment
// overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/dshills/texmerge/internal/cleaner"
	"github.com/dshills/texmerge/internal/dedup"
	"github.com/dshills/texmerge/internal/discover"
	"github.com/dshills/texmerge/internal/expander"
	"github.com/dshills/texmerge/internal/masker"
	"github.com/dshills/texmerge/internal/pipeline"
	"github.com/dshills/texmerge/internal/source"
)

// Environment variables read by ApplyEnv
const (
	EnvDBPath   = "TEXMERGE_DB_PATH"
	EnvLogLevel = "TEXMERGE_LOG_LEVEL"
	EnvWorkers  = "TEXMERGE_WORKERS"
)

// DefaultDBPath is the run store location when none is configured.
const DefaultDBPath = "~/.texmerge/runs.db"

// Config holds all texmerge configuration.
type Config struct {
	Expander ExpanderConfig `yaml:"expander"`
	Cleaner  CleanerConfig  `yaml:"cleaner"`
	Merge    MergeConfig    `yaml:"merge"`
	Hints    HintsConfig    `yaml:"hints"`
	Source   SourceConfig   `yaml:"source"`
	Storage  StorageConfig  `yaml:"storage"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ExpanderConfig configures include expansion.
type ExpanderConfig struct {
	ProtectedEnvs []string `yaml:"protected_envs"`
	MaxDepth      int      `yaml:"max_depth"`
}

// CleanerConfig configures body cleaning.
type CleanerConfig struct {
	DropEnvs            []string `yaml:"drop_envs"`
	InlineCommands      []string `yaml:"inline_commands"`
	AppendixMarkers     []string `yaml:"appendix_markers"`
	BalancedSetupBlocks bool     `yaml:"balanced_setup_blocks"`
	Postprocess         bool     `yaml:"postprocess"`
}

// MergeConfig configures root selection and deduplication.
type MergeConfig struct {
	Threshold float64 `yaml:"threshold"`
	RootMode  string  `yaml:"root_mode"` // merge, single
	Workers   int     `yaml:"workers"`
}

// HintsConfig holds filename keywords for root scoring.
type HintsConfig struct {
	Positive  []string `yaml:"positive"`
	Negative  []string `yaml:"negative"`
	MainNames []string `yaml:"main_names"`
}

// SourceConfig controls which files are loaded.
type SourceConfig struct {
	Extensions  []string `yaml:"extensions"`
	MaxFileSize int64    `yaml:"max_file_size"`
}

// StorageConfig configures the run store.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	hints := discover.DefaultHints()
	return &Config{
		Expander: ExpanderConfig{
			ProtectedEnvs: append([]string(nil), masker.DefaultProtectedEnvs...),
			MaxDepth:      expander.DefaultMaxDepth,
		},
		Cleaner: CleanerConfig{
			DropEnvs:        append([]string(nil), cleaner.DefaultDropEnvs...),
			InlineCommands:  append([]string(nil), cleaner.DefaultInlineCommands...),
			AppendixMarkers: append([]string(nil), cleaner.DefaultAppendixMarkers...),
		},
		Merge: MergeConfig{
			Threshold: dedup.DefaultThreshold,
			RootMode:  pipeline.RootModeMerge,
			Workers:   runtime.NumCPU(),
		},
		Hints: HintsConfig{
			Positive:  hints.Positive,
			Negative:  hints.Negative,
			MainNames: hints.MainNames,
		},
		Source: SourceConfig{
			Extensions:  append([]string(nil), source.DefaultExtensions...),
			MaxFileSize: source.DefaultMaxFileSize,
		},
		Storage: StorageConfig{
			DatabasePath: DefaultDBPath,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file over the defaults and applies
// environment overrides. An empty or missing path yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// ApplyEnv applies environment variable overrides.
func (c *Config) ApplyEnv() error {
	if p := os.Getenv(EnvDBPath); p != "" {
		c.Storage.DatabasePath = p
	}
	if lvl := os.Getenv(EnvLogLevel); lvl != "" {
		c.Logging.Level = lvl
	}
	if w := os.Getenv(EnvWorkers); w != "" {
		n, err := strconv.Atoi(w)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvWorkers, w, err)
		}
		c.Merge.Workers = n
	}
	return nil
}

// ValidRootModes lists the supported root selection modes.
var ValidRootModes = []string{pipeline.RootModeMerge, pipeline.RootModeSingle}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Merge.Threshold < 0 || c.Merge.Threshold > 1 {
		return fmt.Errorf("merge.threshold must be between 0 and 1, got %v", c.Merge.Threshold)
	}
	if c.Expander.MaxDepth < 1 {
		return fmt.Errorf("expander.max_depth must be at least 1, got %d", c.Expander.MaxDepth)
	}
	if c.Merge.Workers < 0 {
		return fmt.Errorf("merge.workers must not be negative, got %d", c.Merge.Workers)
	}

	validMode := false
	for _, m := range ValidRootModes {
		if c.Merge.RootMode == m {
			validMode = true
			break
		}
	}
	if !validMode {
		return fmt.Errorf("invalid merge.root_mode: %s (valid: %v)", c.Merge.RootMode, ValidRootModes)
	}

	if _, err := c.LogLevel(); err != nil {
		return err
	}
	return nil
}

// LogLevel parses the configured log level.
func (c *Config) LogLevel() (zapcore.Level, error) {
	lvl, err := zapcore.ParseLevel(c.Logging.Level)
	if err != nil {
		return zapcore.InfoLevel, fmt.Errorf("invalid logging.level: %w", err)
	}
	return lvl, nil
}

// Pipeline returns the pipeline configuration.
func (c *Config) Pipeline() *pipeline.Config {
	return &pipeline.Config{
		ProtectedEnvs:       c.Expander.ProtectedEnvs,
		DropEnvs:            c.Cleaner.DropEnvs,
		InlineCommands:      c.Cleaner.InlineCommands,
		AppendixMarkers:     c.Cleaner.AppendixMarkers,
		MaxDepth:            c.Expander.MaxDepth,
		Threshold:           c.Merge.Threshold,
		Hints:               discover.Hints(c.Hints),
		RootMode:            c.Merge.RootMode,
		Workers:             c.Merge.Workers,
		Postprocess:         c.Cleaner.Postprocess,
		BalancedSetupBlocks: c.Cleaner.BalancedSetupBlocks,
	}
}

// SourceOptions returns the source loader options.
func (c *Config) SourceOptions() source.Options {
	return source.Options{
		Extensions:  c.Source.Extensions,
		MaxFileSize: c.Source.MaxFileSize,
	}
}

// DatabasePath returns the run store path with a leading ~ expanded.
func (c *Config) DatabasePath() (string, error) {
	p := c.Storage.DatabasePath
	if p == "" {
		p = DefaultDBPath
	}
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		p = filepath.Join(home, strings.TrimPrefix(p, "~"))
	}
	return p, nil
}

// Hash returns a stable digest of the settings that affect merge output,
// used to key cached runs.
func (c *Config) Hash() string {
	data, err := yaml.Marshal(struct {
		Expander ExpanderConfig `yaml:"expander"`
		Cleaner  CleanerConfig  `yaml:"cleaner"`
		Merge    MergeConfig    `yaml:"merge"`
		Hints    HintsConfig    `yaml:"hints"`
	}{c.Expander, c.Cleaner, MergeConfig{Threshold: c.Merge.Threshold, RootMode: c.Merge.RootMode}, c.Hints})
	if err != nil {
		return ""
	}
	return source.HashBytes(data)
}

// RunKey extends Hash with an explicit root, which also changes output.
func (c *Config) RunKey(root string) string {
	if root == "" {
		return c.Hash()
	}
	return source.HashBytes([]byte(c.Hash() + "\x00" + root))
}
