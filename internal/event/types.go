// Package event provides the synchronous pub-sub event bus used by the
// coordinator to notify subscribers of progress changes.
//
// Events emitted for a given task respect the order of the originating
// status mutations (per-task FIFO): the tracker queues events in
// application order while its write lock is held and a single dispatcher
// drains the queue.
package event

import "time"

// Event kinds published by the coordinator.
const (
	// TypeTaskStatusChanged fires on every accepted status transition.
	TypeTaskStatusChanged = "task_status_changed"

	// TypeTaskCompleted fires when a task reaches the completed state.
	TypeTaskCompleted = "task_completed"

	// TypePhaseCompleted fires when every task in a phase is completed.
	TypePhaseCompleted = "phase_completed"

	// TypeCheckpointTriggered fires when a registered checkpoint's phase
	// transitions into the complete state. Delivered exactly once per
	// transition.
	TypeCheckpointTriggered = "checkpoint_triggered"

	// TypeMilestoneCompleted fires when every task in a milestone is completed.
	TypeMilestoneCompleted = "milestone_completed"
)

// Kinds returns every event kind string.
func Kinds() []string {
	return []string{
		TypeTaskStatusChanged,
		TypeTaskCompleted,
		TypePhaseCompleted,
		TypeCheckpointTriggered,
		TypeMilestoneCompleted,
	}
}

// Event is the interface implemented by all published events.
type Event interface {
	// EventType returns the event kind string.
	EventType() string
	// Plan returns the id of the plan the event belongs to.
	Plan() string
	// When returns the time the event occurred.
	When() time.Time
}

// TaskStatusChanged is published on every accepted status transition.
type TaskStatusChanged struct {
	PlanID     string    `json:"plan_id"`
	TaskID     string    `json:"task_id"`
	From       string    `json:"from"`
	To         string    `json:"to"`
	Completion float64   `json:"completion"`
	Notes      string    `json:"notes,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewTaskStatusChanged creates a TaskStatusChanged event.
func NewTaskStatusChanged(planID, taskID, from, to string, completion float64, notes string, at time.Time) TaskStatusChanged {
	return TaskStatusChanged{
		PlanID:     planID,
		TaskID:     taskID,
		From:       from,
		To:         to,
		Completion: completion,
		Notes:      notes,
		Timestamp:  at,
	}
}

// EventType returns TypeTaskStatusChanged.
func (TaskStatusChanged) EventType() string { return TypeTaskStatusChanged }

// Plan returns the plan id.
func (e TaskStatusChanged) Plan() string { return e.PlanID }

// When returns the event timestamp.
func (e TaskStatusChanged) When() time.Time { return e.Timestamp }

// TaskCompleted is published when a task reaches the completed state.
type TaskCompleted struct {
	PlanID          string    `json:"plan_id"`
	TaskID          string    `json:"task_id"`
	Milestone       string    `json:"milestone,omitempty"`
	MilestoneStatus string    `json:"milestone_status,omitempty"`
	PhaseCompleted  bool      `json:"phase_completed"`
	Checkpoint      string    `json:"checkpoint_triggered,omitempty"`
	UnblockedTasks  []string  `json:"unblocked_tasks,omitempty"`
	ResultSummary   string    `json:"result_summary,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
}

// EventType returns TypeTaskCompleted.
func (TaskCompleted) EventType() string { return TypeTaskCompleted }

// Plan returns the plan id.
func (e TaskCompleted) Plan() string { return e.PlanID }

// When returns the event timestamp.
func (e TaskCompleted) When() time.Time { return e.Timestamp }

// PhaseCompleted is published when every task in a phase is completed.
type PhaseCompleted struct {
	PlanID    string    `json:"plan_id"`
	Phase     int       `json:"phase"`
	TaskIDs   []string  `json:"task_ids"`
	Timestamp time.Time `json:"timestamp"`
}

// EventType returns TypePhaseCompleted.
func (PhaseCompleted) EventType() string { return TypePhaseCompleted }

// Plan returns the plan id.
func (e PhaseCompleted) Plan() string { return e.PlanID }

// When returns the event timestamp.
func (e PhaseCompleted) When() time.Time { return e.Timestamp }

// CheckpointTriggered is published when a checkpoint's phase completes.
type CheckpointTriggered struct {
	PlanID       string    `json:"plan_id"`
	CheckpointID string    `json:"checkpoint_id"`
	AfterPhase   int       `json:"after_phase"`
	Timestamp    time.Time `json:"timestamp"`
}

// EventType returns TypeCheckpointTriggered.
func (CheckpointTriggered) EventType() string { return TypeCheckpointTriggered }

// Plan returns the plan id.
func (e CheckpointTriggered) Plan() string { return e.PlanID }

// When returns the event timestamp.
func (e CheckpointTriggered) When() time.Time { return e.Timestamp }

// MilestoneCompleted is published when every task in a milestone is completed.
type MilestoneCompleted struct {
	PlanID         string    `json:"plan_id"`
	Milestone      string    `json:"milestone"`
	MilestoneIndex int       `json:"milestone_index"`
	Timestamp      time.Time `json:"timestamp"`
}

// EventType returns TypeMilestoneCompleted.
func (MilestoneCompleted) EventType() string { return TypeMilestoneCompleted }

// Plan returns the plan id.
func (e MilestoneCompleted) Plan() string { return e.PlanID }

// When returns the event timestamp.
func (e MilestoneCompleted) When() time.Time { return e.Timestamp }
