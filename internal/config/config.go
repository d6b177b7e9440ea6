// Package config defines the planwell configuration, loaded through viper
// from a config file, environment variables (prefix PLANWELL), and flags.
package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config represents the complete planwell configuration.
type Config struct {
	Scheduling SchedulingConfig `mapstructure:"scheduling"`
	Assignment AssignmentConfig `mapstructure:"assignment"`
	Tracking   TrackingConfig   `mapstructure:"tracking"`
	Compiler   CompilerConfig   `mapstructure:"compiler"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// SchedulingConfig controls plan normalization and CPM scheduling.
type SchedulingConfig struct {
	// MaxProjectDurationDays flags plans whose total duration exceeds it
	// with a validation warning (default: 90)
	MaxProjectDurationDays int `mapstructure:"max_project_duration_days"`
	// CheckpointEveryNPhases inserts a checkpoint after every Nth parallel
	// phase (default: 3)
	CheckpointEveryNPhases int `mapstructure:"checkpoint_every_n_phases"`
	// DisableInferredDependencies turns off the lexical cross-milestone
	// dependency inference heuristics (default: false)
	DisableInferredDependencies bool `mapstructure:"disable_inferred_dependencies"`
}

// AssignmentConfig controls the assignment engine.
type AssignmentConfig struct {
	// WorkloadImbalanceThreshold is the maximum tolerated queue-length
	// spread between the busiest and least-busy agent (default: 2)
	WorkloadImbalanceThreshold int `mapstructure:"workload_imbalance_threshold"`
}

// TrackingConfig controls the progress tracker.
type TrackingConfig struct {
	// OverdueWarningDays is the days-to-deadline threshold below which
	// tasks are classified at risk (default: 2)
	OverdueWarningDays int `mapstructure:"overdue_warning_days"`
}

// CompilerConfig controls the result compiler.
type CompilerConfig struct {
	// OutputBase is the directory materialized projects are written under
	// (default: "./output")
	OutputBase string `mapstructure:"output_base"`
	// DropDir is the directory the artifact watcher observes
	// (default: "./artifacts")
	DropDir string `mapstructure:"drop_dir"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	// Enabled controls whether logging is enabled (default: true)
	Enabled bool `mapstructure:"enabled"`
	// Level is the log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level"`
	// Dir is where log files are written; empty logs to stderr
	Dir string `mapstructure:"dir"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Scheduling: SchedulingConfig{
			MaxProjectDurationDays:      90,
			CheckpointEveryNPhases:      3,
			DisableInferredDependencies: false,
		},
		Assignment: AssignmentConfig{
			WorkloadImbalanceThreshold: 2,
		},
		Tracking: TrackingConfig{
			OverdueWarningDays: 2,
		},
		Compiler: CompilerConfig{
			OutputBase: "./output",
			DropDir:    "./artifacts",
		},
		Logging: LoggingConfig{
			Enabled: true,
			Level:   "info",
			Dir:     "",
		},
	}
}

// SetDefaults registers default values with viper.
func SetDefaults() {
	defaults := Default()

	// Scheduling defaults
	viper.SetDefault("scheduling.max_project_duration_days", defaults.Scheduling.MaxProjectDurationDays)
	viper.SetDefault("scheduling.checkpoint_every_n_phases", defaults.Scheduling.CheckpointEveryNPhases)
	viper.SetDefault("scheduling.disable_inferred_dependencies", defaults.Scheduling.DisableInferredDependencies)

	// Assignment defaults
	viper.SetDefault("assignment.workload_imbalance_threshold", defaults.Assignment.WorkloadImbalanceThreshold)

	// Tracking defaults
	viper.SetDefault("tracking.overdue_warning_days", defaults.Tracking.OverdueWarningDays)

	// Compiler defaults
	viper.SetDefault("compiler.output_base", defaults.Compiler.OutputBase)
	viper.SetDefault("compiler.drop_dir", defaults.Compiler.DropDir)

	// Logging defaults
	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.dir", defaults.Logging.Dir)
}

// Load reads the configuration from viper into a Config struct and
// validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration, falling back to defaults if
// loading fails.
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "planwell")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".planwell"
	}
	return filepath.Join(home, ".config", "planwell")
}

// ConfigFile returns the path to the config file.
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
