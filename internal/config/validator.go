package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure.
type ValidationError struct {
	Field   string // The config field path (e.g., "scheduling.checkpoint_every_n_phases")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError.
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels.
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Validate checks the Config for invalid values and returns all validation
// errors found.
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	if c.Scheduling.MaxProjectDurationDays < 0 {
		errors = append(errors, ValidationError{
			Field:   "scheduling.max_project_duration_days",
			Value:   c.Scheduling.MaxProjectDurationDays,
			Message: "must be non-negative",
		})
	}

	if c.Scheduling.CheckpointEveryNPhases < 1 {
		errors = append(errors, ValidationError{
			Field:   "scheduling.checkpoint_every_n_phases",
			Value:   c.Scheduling.CheckpointEveryNPhases,
			Message: "must be at least 1",
		})
	}

	if c.Assignment.WorkloadImbalanceThreshold < 1 {
		errors = append(errors, ValidationError{
			Field:   "assignment.workload_imbalance_threshold",
			Value:   c.Assignment.WorkloadImbalanceThreshold,
			Message: "must be at least 1",
		})
	}

	if c.Tracking.OverdueWarningDays < 0 {
		errors = append(errors, ValidationError{
			Field:   "tracking.overdue_warning_days",
			Value:   c.Tracking.OverdueWarningDays,
			Message: "must be non-negative",
		})
	}

	if c.Compiler.OutputBase == "" {
		errors = append(errors, ValidationError{
			Field:   "compiler.output_base",
			Value:   c.Compiler.OutputBase,
			Message: "must not be empty",
		})
	}

	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), c.Logging.Level) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	return errors
}
