// Package tracker maintains live task state for a scheduled plan.
//
// The Tracker is a long-lived state machine: it serializes all mutations to
// progress records behind a single write lock, while reads may run
// concurrently. On top of the raw records it computes rollups
// (task -> milestone -> phase -> project), detects bottlenecks, classifies
// at-risk tasks, measures timeline adherence, and verifies checkpoints.
package tracker

import (
	"fmt"
	"time"

	"github.com/harwoeck/planwell/internal/schedule"
)

// -----------------------------------------------------------------------------
// Status
// -----------------------------------------------------------------------------

// Status represents the lifecycle state of a task's progress record.
type Status string

const (
	// StatusPending indicates the task has not started.
	StatusPending Status = "pending"

	// StatusInProgress indicates the task is actively being worked.
	StatusInProgress Status = "in_progress"

	// StatusCompleted indicates the task finished successfully. Terminal,
	// except for an explicit reopen.
	StatusCompleted Status = "completed"

	// StatusBlocked indicates the task cannot proceed.
	StatusBlocked Status = "blocked"

	// StatusFailed indicates the task failed. Terminal.
	StatusFailed Status = "failed"

	// StatusCancelled indicates the task was cancelled. Terminal.
	StatusCancelled Status = "cancelled"
)

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// IsTerminal returns true if this status represents a final state.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// IsValid returns true if this is a recognized status value.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted,
		StatusBlocked, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// -----------------------------------------------------------------------------
// Progress Record
// -----------------------------------------------------------------------------

// Update is one append-only entry in a record's status history.
type Update struct {
	// Timestamp is when the update was applied. Timestamps within a record
	// are monotonically non-decreasing.
	Timestamp time.Time `json:"timestamp"`

	// Status is the status after the update.
	Status Status `json:"status"`

	// Completion is the completion percentage after the update.
	Completion float64 `json:"completion"`

	// Notes carries optional caller-supplied context.
	Notes string `json:"notes,omitempty"`
}

// ProgressRecord tracks the live state of one task. Records are created
// pending when the plan is accepted and mutated only by the Tracker.
type ProgressRecord struct {
	// TaskID identifies the task this record belongs to.
	TaskID string `json:"task_id"`

	// Status is the current lifecycle state.
	Status Status `json:"status"`

	// Completion is the completion percentage in [0,100].
	Completion float64 `json:"completion"`

	// StartedAt is set when the task first enters in_progress.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// CompletedAt is set when the task completes; cleared on reopen.
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// UpdatedAt is the timestamp of the latest update.
	UpdatedAt time.Time `json:"updated_at"`

	// Updates is the append-only history of status deltas.
	Updates []Update `json:"updates"`
}

// clone returns a deep copy safe to hand to callers.
func (r *ProgressRecord) clone() ProgressRecord {
	cp := *r
	if r.StartedAt != nil {
		t := *r.StartedAt
		cp.StartedAt = &t
	}
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		cp.CompletedAt = &t
	}
	cp.Updates = make([]Update, len(r.Updates))
	copy(cp.Updates, r.Updates)
	return cp
}

// contribution returns the record's share toward completion rollups:
// completed counts as 100, in_progress contributes its percentage,
// everything else contributes 0.
func (r *ProgressRecord) contribution() float64 {
	switch r.Status {
	case StatusCompleted:
		return 100
	case StatusInProgress:
		return r.Completion
	default:
		return 0
	}
}

// -----------------------------------------------------------------------------
// Rollups
// -----------------------------------------------------------------------------

// GroupProgress is the rolled-up state of a task group (milestone or phase).
type GroupProgress struct {
	// Name identifies the group (milestone name or phase label).
	Name string `json:"name"`

	// Status is the rolled-up lifecycle state.
	Status Status `json:"status"`

	// Completion is the mean completion percentage over member tasks.
	Completion float64 `json:"completion"`

	// Total and Completed count member tasks.
	Total     int `json:"total"`
	Completed int `json:"completed"`
}

// OverallStatus classifies the whole project.
type OverallStatus string

const (
	// OverallCompleted means every task completed.
	OverallCompleted OverallStatus = "completed"
	// OverallBlocked means at least one task is blocked.
	OverallBlocked OverallStatus = "blocked"
	// OverallIssues means at least one task failed (and none is blocked).
	OverallIssues OverallStatus = "issues"
	// OverallInProgress means at least one task is in progress.
	OverallInProgress OverallStatus = "in_progress"
	// OverallPending means nothing has started.
	OverallPending OverallStatus = "pending"
)

// CriticalPathProgress reports progress along the critical path.
type CriticalPathProgress struct {
	// Completed and Total count critical-path tasks.
	Completed int `json:"completed"`
	Total     int `json:"total"`

	// Completion is Completed/Total as a percentage.
	Completion float64 `json:"completion"`

	// OnTrack is true when critical-path completion keeps pace with the
	// overall completion percentage.
	OnTrack bool `json:"on_track"`
}

// ProjectProgress is the full project rollup.
type ProjectProgress struct {
	// Overall classifies the project.
	Overall OverallStatus `json:"overall"`

	// Completion is the mean completion percentage over all tasks.
	Completion float64 `json:"completion"`

	// Counts breaks tasks down by status.
	Counts map[Status]int `json:"counts"`

	// Milestones holds per-milestone rollups in milestone order.
	Milestones []GroupProgress `json:"milestones"`

	// CriticalPath reports critical-path progress.
	CriticalPath CriticalPathProgress `json:"critical_path"`
}

// -----------------------------------------------------------------------------
// Completion Event
// -----------------------------------------------------------------------------

// CompletionEvent is returned by CompleteTask and describes everything the
// completion caused.
type CompletionEvent struct {
	// TaskID is the completed task.
	TaskID string `json:"task_id"`

	// Milestone and MilestoneStatus report the task's milestone rollup
	// after the completion.
	Milestone       string `json:"milestone,omitempty"`
	MilestoneStatus Status `json:"milestone_status,omitempty"`

	// Phase is the index of the phase containing the task.
	Phase int `json:"phase"`

	// PhaseCompleted is true when every task in the phase is now completed.
	PhaseCompleted bool `json:"phase_completed"`

	// CheckpointTriggered names the checkpoint fired by this completion,
	// or "" when none fired.
	CheckpointTriggered string `json:"checkpoint_triggered,omitempty"`

	// UnblockedTasks lists tasks whose predecessors are now all completed.
	UnblockedTasks []string `json:"unblocked_tasks,omitempty"`
}

// -----------------------------------------------------------------------------
// Bottlenecks
// -----------------------------------------------------------------------------

// Impact classifies how badly a bottleneck hurts the plan.
type Impact string

const (
	// ImpactMedium is a localized slowdown.
	ImpactMedium Impact = "medium"
	// ImpactHigh blocks a meaningful amount of downstream work.
	ImpactHigh Impact = "high"
	// ImpactCritical threatens the project end date.
	ImpactCritical Impact = "critical"
)

// Rank returns a numeric rank for sorting: higher rank sorts first.
func (i Impact) Rank() int {
	switch i {
	case ImpactCritical:
		return 3
	case ImpactHigh:
		return 2
	default:
		return 1
	}
}

// Bottleneck reports one task holding up the plan.
type Bottleneck struct {
	// TaskID is the offending task.
	TaskID string `json:"task_id"`

	// Impact classifies the severity.
	Impact Impact `json:"impact"`

	// Reason explains why the task was flagged.
	Reason string `json:"reason"`

	// BlockedSuccessors counts transitive successors held up by this task.
	BlockedSuccessors int `json:"blocked_successors,omitempty"`
}

// -----------------------------------------------------------------------------
// Timeline Adherence
// -----------------------------------------------------------------------------

// AdherenceStatus classifies the project against its planned timeline.
type AdherenceStatus string

const (
	// AdherenceAhead means execution is past the expected phase.
	AdherenceAhead AdherenceStatus = "ahead"
	// AdherenceOnSchedule means execution matches the expected phase.
	AdherenceOnSchedule AdherenceStatus = "on_schedule"
	// AdherenceBehind means execution lags the expected phase.
	AdherenceBehind AdherenceStatus = "behind"
)

// PhaseVariance compares one phase's actual timing to its plan.
type PhaseVariance struct {
	// Phase is the phase index.
	Phase int `json:"phase"`

	// PlannedStartDay and PlannedEndDay are the scheduled window.
	PlannedStartDay int `json:"planned_start_day"`
	PlannedEndDay   int `json:"planned_end_day"`

	// ActualStartDay is the day (relative to the estimated start) the first
	// task began, or -1 when nothing started.
	ActualStartDay int `json:"actual_start_day"`

	// ActualEndDay is the day the last task completed, or -1 when the phase
	// is not yet fully completed.
	ActualEndDay int `json:"actual_end_day"`

	// StartVariance and EndVariance are actual minus planned, in days.
	// Positive values mean late.
	StartVariance int `json:"start_variance"`
	EndVariance   int `json:"end_variance"`
}

// Adherence reports timeline adherence for the whole project.
type Adherence struct {
	// DaysElapsed since the estimated start, clamped to >= 0.
	DaysElapsed int `json:"days_elapsed"`

	// ExpectedPhase is the phase the plan says should be running now.
	ExpectedPhase int `json:"expected_phase"`

	// ActualPhase is the first phase that is not fully completed.
	ActualPhase int `json:"actual_phase"`

	// Status classifies the project.
	Status AdherenceStatus `json:"status"`

	// VarianceDays is the worst signed end variance among phases that
	// should already be underway or done; negative when ahead of plan.
	VarianceDays int `json:"variance_days"`

	// Phases holds the per-phase comparison.
	Phases []PhaseVariance `json:"phases"`
}

// -----------------------------------------------------------------------------
// At-Risk Classification
// -----------------------------------------------------------------------------

// RiskLevel classifies how endangered a task is.
type RiskLevel string

const (
	RiskNone     RiskLevel = "none"
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// Rank returns a numeric rank for sorting: higher rank sorts first.
func (r RiskLevel) Rank() int {
	switch r {
	case RiskCritical:
		return 4
	case RiskHigh:
		return 3
	case RiskMedium:
		return 2
	case RiskLow:
		return 1
	default:
		return 0
	}
}

// AtRiskTask reports one endangered task and the factors that flagged it.
type AtRiskTask struct {
	// TaskID is the endangered task.
	TaskID string `json:"task_id"`

	// Risk is the accumulated risk level (max of contributing factors).
	Risk RiskLevel `json:"risk"`

	// IsCritical is true when the task is on the critical path.
	IsCritical bool `json:"is_critical"`

	// Factors lists the contributing risk factors.
	Factors []string `json:"factors"`
}

// -----------------------------------------------------------------------------
// Checkpoint Verification
// -----------------------------------------------------------------------------

// VerificationResult is the outcome of a checkpoint verification.
type VerificationResult string

const (
	// Verified means the phase and its milestone (if any) are completed.
	Verified VerificationResult = "verified"
	// PartiallyVerified means the phase completed but the milestone has not.
	PartiallyVerified VerificationResult = "partially_verified"
	// NotVerified means the phase has not completed.
	NotVerified VerificationResult = "not_verified"
)

// phaseLabel formats a phase index as a group name.
func phaseLabel(ph schedule.PhaseGroup) string {
	return fmt.Sprintf("phase-%d", ph.Index)
}
