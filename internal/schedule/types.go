// Package schedule implements critical-path-method scheduling over the
// normalized task graph.
//
// Build runs the CPM forward and backward passes in a deterministic
// topological order, identifies the critical path, groups tasks into
// parallel phases by earliest start, assigns priorities, and derives the
// checkpoint and timeline structures consumed by the assignment engine and
// the progress tracker.
package schedule

import (
	"time"

	"github.com/harwoeck/planwell/internal/plan"
)

// -----------------------------------------------------------------------------
// Priority
// -----------------------------------------------------------------------------

// Priority represents the scheduling priority of a task.
type Priority string

const (
	// PriorityCritical marks tasks on the critical path.
	PriorityCritical Priority = "critical"

	// PriorityHigh marks direct predecessors of critical tasks and
	// high-effort tasks.
	PriorityHigh Priority = "high"

	// PriorityMedium is the default priority.
	PriorityMedium Priority = "medium"

	// PriorityLow marks tasks with more than three days of slack.
	PriorityLow Priority = "low"
)

// String returns the string representation of the priority.
func (p Priority) String() string {
	return string(p)
}

// Rank returns a numeric rank for sorting: higher rank sorts first.
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 3
	case PriorityHigh:
		return 2
	case PriorityMedium:
		return 1
	default:
		return 0
	}
}

// Transferable returns true if tasks of this priority may be moved between
// agents during workload balancing.
func (p Priority) Transferable() bool {
	return p == PriorityLow || p == PriorityMedium
}

// -----------------------------------------------------------------------------
// Task Node
// -----------------------------------------------------------------------------

// TaskNode is a task enriched with CPM timing. Owned by the Schedule;
// immutable once the schedule is built.
type TaskNode struct {
	// Task is the underlying normalized task.
	Task plan.Task `json:"task"`

	// EarliestStart is the earliest day this task can begin.
	EarliestStart int `json:"earliest_start"`

	// EarliestFinish = EarliestStart + duration.
	EarliestFinish int `json:"earliest_finish"`

	// LatestStart is the latest day this task can begin without delaying
	// the project.
	LatestStart int `json:"latest_start"`

	// LatestFinish is the latest day this task can finish.
	LatestFinish int `json:"latest_finish"`

	// IsCritical is true when the task has zero slack.
	IsCritical bool `json:"is_critical"`

	// Priority is the assigned scheduling priority.
	Priority Priority `json:"priority"`
}

// Slack returns LatestStart - EarliestStart.
func (n *TaskNode) Slack() int {
	return n.LatestStart - n.EarliestStart
}

// -----------------------------------------------------------------------------
// Schedule
// -----------------------------------------------------------------------------

// Edge is a directed dependency edge (predecessor -> successor).
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// PhaseGroup is a set of tasks sharing the same earliest start, schedulable
// in parallel. Within a phase, task ids are ordered by priority then id.
type PhaseGroup struct {
	// Index is the zero-based phase ordinal.
	Index int `json:"index"`

	// StartDay is the earliest start shared by all member tasks.
	StartDay int `json:"start_day"`

	// TaskIDs are the member task ids.
	TaskIDs []string `json:"task_ids"`
}

// Checkpoint is a verification point inserted after every N phases.
type Checkpoint struct {
	// ID uniquely identifies the checkpoint within the schedule.
	ID string `json:"id"`

	// AfterPhase is the phase index this checkpoint verifies.
	AfterPhase int `json:"after_phase"`

	// MilestoneReached is the highest milestone index expected to be
	// reached by this checkpoint, or -1 when no milestone applies.
	MilestoneReached int `json:"milestone_reached"`
}

// PhaseWindow is the planned day window of one phase. Phases execute
// sequentially in the timeline model, so windows do not overlap.
type PhaseWindow struct {
	Phase    int `json:"phase"`
	StartDay int `json:"start_day"`
	EndDay   int `json:"end_day"`
}

// Timeline is the planned day-level timeline of the schedule.
type Timeline struct {
	// Windows holds one planned window per phase, in phase order.
	Windows []PhaseWindow `json:"windows"`

	// TotalDurationDays is the sum of phase durations.
	TotalDurationDays int `json:"total_duration_days"`

	// EstStart and EstEnd map the day ticks onto the calendar. Zero unless
	// the caller supplies a start date.
	EstStart time.Time `json:"est_start,omitempty"`
	EstEnd   time.Time `json:"est_end,omitempty"`
}

// Schedule is the complete CPM output for a plan.
type Schedule struct {
	// Nodes maps task id to its timed node.
	Nodes map[string]*TaskNode `json:"nodes"`

	// Edges is the full dependency edge set (declared plus inferred).
	Edges []Edge `json:"edges"`

	// CriticalPath lists critical task ids sorted ascending by earliest
	// start, ties broken by id.
	CriticalPath []string `json:"critical_path"`

	// Phases groups tasks into parallel phases in ascending start order.
	Phases []PhaseGroup `json:"phases"`

	// Checkpoints are the verification points derived from the phases.
	Checkpoints []Checkpoint `json:"checkpoints"`

	// Timeline is the planned day-level timeline.
	Timeline Timeline `json:"timeline"`
}

// Node returns the node for the given task id, or nil.
func (s *Schedule) Node(taskID string) *TaskNode {
	return s.Nodes[taskID]
}

// PhaseOf returns the index of the phase containing the given task,
// or -1 if the task is not scheduled.
func (s *Schedule) PhaseOf(taskID string) int {
	for _, ph := range s.Phases {
		for _, id := range ph.TaskIDs {
			if id == taskID {
				return ph.Index
			}
		}
	}
	return -1
}

// CheckpointByID returns the checkpoint with the given id, or nil.
func (s *Schedule) CheckpointByID(id string) *Checkpoint {
	for i := range s.Checkpoints {
		if s.Checkpoints[i].ID == id {
			return &s.Checkpoints[i]
		}
	}
	return nil
}

// ProjectEnd returns the maximum earliest finish across all nodes.
func (s *Schedule) ProjectEnd() int {
	end := 0
	for _, n := range s.Nodes {
		if n.EarliestFinish > end {
			end = n.EarliestFinish
		}
	}
	return end
}
