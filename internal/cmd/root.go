package cmd

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/harwoeck/planwell/internal/config"
	"github.com/harwoeck/planwell/internal/coordinator"
	"github.com/harwoeck/planwell/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "planwell",
	Short: "Project execution coordinator",
	Long: `Planwell turns milestone-based project plans into executable schedules:
it normalizes the task graph, runs critical-path scheduling, assigns work
to agent types, tracks execution progress, and compiles produced artifacts
into a valid project directory.`,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/planwell/config.yaml)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath("$HOME/.config/planwell")
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("PLANWELL")
	// Replace dots with underscores for nested keys in env vars
	// e.g., PLANWELL_SCHEDULING_CHECKPOINT_EVERY_N_PHASES
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}

// newLogger builds the structured logger from the loaded config.
func newLogger(cfg *config.Config) *logging.Logger {
	if !cfg.Logging.Enabled {
		return logging.NopLogger()
	}
	log, err := logging.NewLogger(cfg.Logging.Dir, cfg.Logging.Level)
	if err != nil {
		return logging.NopLogger()
	}
	return log
}

// newCoordinator builds a coordinator from the loaded config.
func newCoordinator(cfg *config.Config, log *logging.Logger) *coordinator.Coordinator {
	return coordinator.New(coordinator.Options{
		MaxProjectDurationDays:      cfg.Scheduling.MaxProjectDurationDays,
		CheckpointEveryNPhases:      cfg.Scheduling.CheckpointEveryNPhases,
		WorkloadImbalanceThreshold:  cfg.Assignment.WorkloadImbalanceThreshold,
		OverdueWarningDays:          cfg.Tracking.OverdueWarningDays,
		DisableInferredDependencies: cfg.Scheduling.DisableInferredDependencies,
	}, coordinator.WithLogger(log))
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
