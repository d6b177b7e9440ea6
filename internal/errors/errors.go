// Package errors provides centralized error definitions and error handling
// utilities for the planwell codebase. It defines domain-specific errors,
// semantic error types, error constructors with context wrapping, and error
// classification helpers.
//
// # Error Types
//
// The package provides two categories of errors:
//
// Domain-specific errors represent errors from specific subsystems:
//   - PlanError: errors related to plan ingestion and validation
//   - SchedulerError: errors related to schedule construction
//   - TrackerError: errors related to progress tracking
//   - CompileError: errors related to artifact compilation
//
// Structured errors carry machine-readable detail:
//   - CircularDependencyError: the offending cycle path, verbatim
//   - IllegalTransitionError: the rejected from/to status pair
//   - ValidationFailedError: the full list of validation issues
//
// # Usage
//
// Creating errors:
//
//	err := errors.NewPlanError("ingestion failed", errors.ErrInvalidPlan)
//	err := errors.NewCircularDependency([]string{"a", "b", "c", "a"})
//
// Checking errors:
//
//	if errors.Is(err, errors.ErrInvalidPlan) { ... }
//
//	var cycleErr *errors.CircularDependencyError
//	if errors.As(err, &cycleErr) { ... cycleErr.Cycle ... }
//
//	if errors.IsRetryable(err) { ... }
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityDebug is for errors that are useful for debugging but not critical.
	SeverityDebug Severity = iota
	// SeverityInfo is for informational errors that don't indicate a problem.
	SeverityInfo
	// SeverityWarning is for errors that might indicate a problem but aren't critical.
	SeverityWarning
	// SeverityError is for errors that indicate a real problem.
	SeverityError
	// SeverityCritical is for errors that require immediate attention.
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Plan-related sentinel errors
var (
	// ErrInvalidPlan indicates the submitted plan failed ingestion.
	ErrInvalidPlan = New("invalid plan")
	// ErrPlanNotFound indicates a plan could not be found.
	ErrPlanNotFound = New("plan not found")
	// ErrDependencyCycle indicates a circular dependency between tasks.
	ErrDependencyCycle = New("dependency cycle detected")
	// ErrNonDAG indicates the scheduler was given a graph that is not acyclic.
	ErrNonDAG = New("task graph is not a DAG")
)

// Tracker-related sentinel errors
var (
	// ErrTaskNotFound indicates a task id does not resolve within the plan.
	ErrTaskNotFound = New("task not found")
	// ErrIllegalTransition indicates a rejected progress status transition.
	ErrIllegalTransition = New("illegal status transition")
	// ErrCheckpointNotFound indicates a checkpoint id does not exist.
	ErrCheckpointNotFound = New("checkpoint not found")
)

// Compiler-related sentinel errors
var (
	// ErrProjectNotFound indicates a project handle does not resolve.
	ErrProjectNotFound = New("project not found")
	// ErrArtifactNotFound indicates an artifact id does not resolve.
	ErrArtifactNotFound = New("artifact not found")
	// ErrValidationFailed indicates blocking validation issues were found.
	ErrValidationFailed = New("validation failed")
)

// General sentinel errors
var (
	// ErrCanceled indicates that an operation was canceled by the caller.
	ErrCanceled = New("operation canceled")
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
)

// -----------------------------------------------------------------------------
// Base Error Implementation
// -----------------------------------------------------------------------------

// CoordinatorError is the base interface for all planwell errors.
// It extends the standard error interface with classification methods.
type CoordinatorError interface {
	error

	// Unwrap returns the underlying error, if any.
	Unwrap() error

	// Severity returns the severity level of this error.
	Severity() Severity

	// IsRetryable returns true if the error is transient and the operation
	// may succeed on retry.
	IsRetryable() bool
}

// baseError provides common functionality for all error types.
type baseError struct {
	message   string
	cause     error
	severity  Severity
	retryable bool
}

// Error returns the error message.
func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// Is checks if this error matches the target.
func (e *baseError) Is(target error) bool {
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// Severity returns the error severity.
func (e *baseError) Severity() Severity {
	return e.severity
}

// IsRetryable returns whether the error is retryable.
func (e *baseError) IsRetryable() bool {
	return e.retryable
}

// -----------------------------------------------------------------------------
// Domain-Specific Errors
// -----------------------------------------------------------------------------

// PlanError represents an error from plan ingestion or validation.
type PlanError struct {
	baseError
	// PlanID identifies the plan, if known.
	PlanID string
}

// NewPlanError creates a new PlanError wrapping the given cause.
func NewPlanError(message string, cause error) *PlanError {
	return &PlanError{
		baseError: baseError{
			message:  message,
			cause:    cause,
			severity: SeverityError,
		},
	}
}

// WithPlan attaches a plan id to the error for context.
func (e *PlanError) WithPlan(planID string) *PlanError {
	e.PlanID = planID
	return e
}

// SchedulerError represents an error from schedule construction.
type SchedulerError struct {
	baseError
}

// NewSchedulerError creates a new SchedulerError wrapping the given cause.
func NewSchedulerError(message string, cause error) *SchedulerError {
	return &SchedulerError{
		baseError: baseError{
			message:  message,
			cause:    cause,
			severity: SeverityError,
		},
	}
}

// TrackerError represents an error from the progress tracker.
type TrackerError struct {
	baseError
	// TaskID identifies the task, if known.
	TaskID string
}

// NewTrackerError creates a new TrackerError wrapping the given cause.
func NewTrackerError(message string, cause error) *TrackerError {
	return &TrackerError{
		baseError: baseError{
			message:  message,
			cause:    cause,
			severity: SeverityError,
		},
	}
}

// WithTask attaches a task id to the error for context.
func (e *TrackerError) WithTask(taskID string) *TrackerError {
	e.TaskID = taskID
	return e
}

// CompileError represents an error from artifact compilation.
type CompileError struct {
	baseError
	// Path is the filesystem path involved, if any.
	Path string
}

// NewCompileError creates a new CompileError wrapping the given cause.
func NewCompileError(message string, cause error) *CompileError {
	return &CompileError{
		baseError: baseError{
			message:  message,
			cause:    cause,
			severity: SeverityError,
		},
	}
}

// NewIOError creates a CompileError for a filesystem failure at path.
// IO errors are considered transient and retryable.
func NewIOError(path string, cause error) *CompileError {
	return &CompileError{
		baseError: baseError{
			message:   fmt.Sprintf("io error at %s", path),
			cause:     cause,
			severity:  SeverityError,
			retryable: true,
		},
		Path: path,
	}
}

// WithPath attaches a filesystem path to the error for context.
func (e *CompileError) WithPath(path string) *CompileError {
	e.Path = path
	return e
}

// -----------------------------------------------------------------------------
// Structured Errors
// -----------------------------------------------------------------------------

// CircularDependencyError reports a dependency cycle. Cycle contains the
// task ids forming the cycle in traversal order, first id repeated last.
type CircularDependencyError struct {
	Cycle []string
}

// NewCircularDependency creates a CircularDependencyError for the given cycle path.
func NewCircularDependency(cycle []string) *CircularDependencyError {
	return &CircularDependencyError{Cycle: cycle}
}

// Error returns the error message including the cycle path.
func (e *CircularDependencyError) Error() string {
	return fmt.Sprintf("dependency cycle detected: %s", strings.Join(e.Cycle, " -> "))
}

// Is reports whether target is ErrDependencyCycle or ErrNonDAG.
func (e *CircularDependencyError) Is(target error) bool {
	return target == ErrDependencyCycle || target == ErrNonDAG
}

// IllegalTransitionError reports a rejected progress status transition.
type IllegalTransitionError struct {
	TaskID string
	From   string
	To     string
}

// NewIllegalTransition creates an IllegalTransitionError for the given pair.
func NewIllegalTransition(taskID, from, to string) *IllegalTransitionError {
	return &IllegalTransitionError{TaskID: taskID, From: from, To: to}
}

// Error returns the error message including the from/to pair.
func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("illegal status transition for task %s: %s -> %s", e.TaskID, e.From, e.To)
}

// Is reports whether target is ErrIllegalTransition.
func (e *IllegalTransitionError) Is(target error) bool {
	return target == ErrIllegalTransition
}

// ValidationFailedError carries the validation issues that blocked an operation.
type ValidationFailedError struct {
	Issues []string
}

// NewValidationFailed creates a ValidationFailedError from the given issues.
func NewValidationFailed(issues []string) *ValidationFailedError {
	return &ValidationFailedError{Issues: issues}
}

// Error returns the error message including the issue count.
func (e *ValidationFailedError) Error() string {
	return fmt.Sprintf("validation failed with %d issue(s): %s", len(e.Issues), strings.Join(e.Issues, "; "))
}

// Is reports whether target is ErrValidationFailed.
func (e *ValidationFailedError) Is(target error) bool {
	return target == ErrValidationFailed
}

// -----------------------------------------------------------------------------
// Classification Helpers
// -----------------------------------------------------------------------------

// IsRetryable returns true if the error is transient and the operation may
// succeed on retry. Only errors implementing CoordinatorError can be retryable.
func IsRetryable(err error) bool {
	var ce CoordinatorError
	if errors.As(err, &ce) {
		return ce.IsRetryable()
	}
	return false
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrPlanNotFound) ||
		errors.Is(err, ErrTaskNotFound) ||
		errors.Is(err, ErrCheckpointNotFound) ||
		errors.Is(err, ErrProjectNotFound) ||
		errors.Is(err, ErrArtifactNotFound)
}

// SeverityOf returns the severity of the error, defaulting to SeverityError
// for errors that don't implement CoordinatorError.
func SeverityOf(err error) Severity {
	var ce CoordinatorError
	if errors.As(err, &ce) {
		return ce.Severity()
	}
	return SeverityError
}
