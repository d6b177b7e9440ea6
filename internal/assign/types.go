// Package assign turns a schedule into per-agent work queues.
//
// The engine matches each task to the agent type with the highest skill
// requirement, rebalances workload so no agent carries more than a small
// surplus over the least-loaded one, orders each queue deterministically,
// and validates the resulting plan.
package assign

import (
	"github.com/harwoeck/planwell/internal/schedule"
)

// Instruction is one ordered work item in an agent's queue.
type Instruction struct {
	// TaskID identifies the task to execute.
	TaskID string `json:"task_id"`

	// Priority is the task's scheduling priority.
	Priority schedule.Priority `json:"priority"`

	// EarliestStart is the task's earliest start day.
	EarliestStart int `json:"earliest_start"`

	// PredecessorOwnership maps each predecessor task id to the agent type
	// that owns it, so the executing agent knows whom to wait on.
	PredecessorOwnership map[string]string `json:"predecessor_ownership,omitempty"`

	// IsCritical is true when the task is on the critical path.
	IsCritical bool `json:"is_critical"`
}

// PhaseEntry records one task's placement within a phase.
type PhaseEntry struct {
	TaskID     string            `json:"task_id"`
	Agent      string            `json:"agent"`
	Priority   schedule.Priority `json:"priority"`
	IsCritical bool              `json:"is_critical"`
}

// PhaseRecord records the agent placement of one parallel phase.
type PhaseRecord struct {
	PhaseID int          `json:"phase_id"`
	Entries []PhaseEntry `json:"entries"`
}

// IssueSeverity classifies a validation issue.
type IssueSeverity string

const (
	// IssueError blocks execution.
	IssueError IssueSeverity = "error"
	// IssueWarning is advisory; execution may proceed.
	IssueWarning IssueSeverity = "warning"
)

// Issue is a single validation finding.
type Issue struct {
	// Severity classifies the issue.
	Severity IssueSeverity `json:"severity"`

	// Message is a human-readable description.
	Message string `json:"message"`

	// TaskID identifies the related task, when applicable.
	TaskID string `json:"task_id,omitempty"`
}

// Validation is the result of plan validation. An invalid plan is still
// returned in full so operators can inspect the issues.
type Validation struct {
	IsValid bool    `json:"is_valid"`
	Issues  []Issue `json:"issues"`
}

// Result is the complete output of the assignment engine.
type Result struct {
	// Assignments maps agent type to its ordered instruction queue.
	Assignments map[string][]Instruction `json:"assignments"`

	// Owner maps task id to the agent type that owns it.
	Owner map[string]string `json:"owner"`

	// Phases records the per-phase agent placement.
	Phases []PhaseRecord `json:"phases"`

	// Validation carries the validation outcome.
	Validation Validation `json:"validation"`
}

// AgentFor returns the agent type owning the given task, or "".
func (r *Result) AgentFor(taskID string) string {
	return r.Owner[taskID]
}

// QueueLengths returns the number of instructions per agent type.
func (r *Result) QueueLengths() map[string]int {
	lengths := make(map[string]int, len(r.Assignments))
	for agent, queue := range r.Assignments {
		lengths[agent] = len(queue)
	}
	return lengths
}
