package tracker

import (
	"sync"
	"time"

	"github.com/harwoeck/planwell/internal/errors"
	"github.com/harwoeck/planwell/internal/event"
	"github.com/harwoeck/planwell/internal/logging"
	"github.com/harwoeck/planwell/internal/plan"
	"github.com/harwoeck/planwell/internal/schedule"
)

// Option customizes a Tracker.
type Option func(*Tracker)

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithLogger sets the structured logger.
func WithLogger(log *logging.Logger) Option {
	return func(t *Tracker) { t.log = log }
}

// WithOverdueWarningDays sets the days-to-deadline threshold below which
// tasks are flagged at risk. Defaults to 2.
func WithOverdueWarningDays(days int) Option {
	return func(t *Tracker) {
		if days > 0 {
			t.overdueWarningDays = days
		}
	}
}

// WithEstimatedStart anchors the timeline to a calendar date for adherence
// and risk computations. Defaults to the tracker's creation time.
func WithEstimatedStart(start time.Time) Option {
	return func(t *Tracker) { t.estStart = start }
}

// Tracker maintains live progress state for one scheduled plan.
//
// All mutations are serialized behind a single write lock; reads may run
// concurrently. Events are appended to an ordered outbox while the lock
// is held and drained by one dispatcher at a time, so subscribers observe
// events for a given task in the order the originating calls were
// applied, and a rollup read from a handler reflects the mutation that
// produced the event.
type Tracker struct {
	mu sync.RWMutex

	planID  string
	tasks   map[string]*plan.Task
	taskIDs []string // declaration order
	records map[string]*ProgressRecord
	sched   *schedule.Schedule
	succ    map[string][]string

	// firedCheckpoints guarantees exactly-once checkpoint delivery per
	// transition into the phase-complete state.
	firedCheckpoints map[string]bool

	// outbox holds unpublished events in application order; pubMu admits
	// one dispatcher at a time so delivery preserves that order.
	outbox []event.Event
	pubMu  sync.Mutex

	bus                *event.Bus
	log                *logging.Logger
	now                func() time.Time
	estStart           time.Time
	overdueWarningDays int
}

// New creates a Tracker for the given tasks and schedule. Every task starts
// with a pending progress record.
func New(planID string, tasks []plan.Task, sched *schedule.Schedule, bus *event.Bus, opts ...Option) *Tracker {
	t := &Tracker{
		planID:             planID,
		tasks:              make(map[string]*plan.Task, len(tasks)),
		taskIDs:            make([]string, 0, len(tasks)),
		records:            make(map[string]*ProgressRecord, len(tasks)),
		sched:              sched,
		succ:               plan.Successors(tasks),
		firedCheckpoints:   make(map[string]bool),
		bus:                bus,
		log:                logging.NopLogger(),
		now:                time.Now,
		overdueWarningDays: 2,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.estStart.IsZero() {
		t.estStart = t.now()
	}

	created := t.now()
	for i := range tasks {
		task := tasks[i]
		t.tasks[task.ID] = &task
		t.taskIDs = append(t.taskIDs, task.ID)
		t.records[task.ID] = &ProgressRecord{
			TaskID:    task.ID,
			Status:    StatusPending,
			UpdatedAt: created,
			Updates: []Update{{
				Timestamp: created,
				Status:    StatusPending,
			}},
		}
	}
	return t
}

// Record returns a copy of the progress record for the given task.
func (t *Tracker) Record(taskID string) (ProgressRecord, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	rec, ok := t.records[taskID]
	if !ok {
		return ProgressRecord{}, errors.NewTrackerError("unknown task", errors.ErrTaskNotFound).WithTask(taskID)
	}
	return rec.clone(), nil
}

// UpdateStatus applies a status transition to the given task.
//
// completion may be negative to leave the current percentage untouched;
// it is clamped to [0,100] otherwise. Illegal transitions are rejected
// with an IllegalTransitionError and leave the record unchanged.
func (t *Tracker) UpdateStatus(taskID string, to Status, completion float64, notes string) (ProgressRecord, error) {
	if !to.IsValid() {
		return ProgressRecord{}, errors.NewTrackerError("unrecognized status", errors.ErrInvalidInput).WithTask(taskID)
	}

	t.mu.Lock()
	rec, ok := t.records[taskID]
	if !ok {
		t.mu.Unlock()
		return ProgressRecord{}, errors.NewTrackerError("unknown task", errors.ErrTaskNotFound).WithTask(taskID)
	}

	from := rec.Status
	if !canTransition(from, to) {
		t.mu.Unlock()
		return ProgressRecord{}, errors.NewIllegalTransition(taskID, from.String(), to.String())
	}

	t.apply(rec, to, completion, notes)
	result := rec.clone()
	t.enqueue(event.NewTaskStatusChanged(t.planID, taskID, from.String(), to.String(),
		result.Completion, notes, result.UpdatedAt))
	t.mu.Unlock()

	t.log.Debug("task status changed", "task_id", taskID, "from", from.String(), "to", to.String())
	t.flushEvents()
	return result, nil
}

// CompleteTask transitions the task to completed and propagates the
// completion: it computes newly unblocked tasks, detects phase completion,
// fires the registered checkpoint (exactly once per phase completion), and
// publishes the corresponding events.
//
// Event handlers run synchronously during dispatch and must not re-enter
// mutating operations.
func (t *Tracker) CompleteTask(taskID string, resultSummary string) (*CompletionEvent, error) {
	t.mu.Lock()
	rec, ok := t.records[taskID]
	if !ok {
		t.mu.Unlock()
		return nil, errors.NewTrackerError("unknown task", errors.ErrTaskNotFound).WithTask(taskID)
	}

	from := rec.Status
	if !canTransition(from, StatusCompleted) {
		t.mu.Unlock()
		return nil, errors.NewIllegalTransition(taskID, from.String(), StatusCompleted.String())
	}

	t.apply(rec, StatusCompleted, 100, resultSummary)
	at := rec.UpdatedAt

	task := t.tasks[taskID]
	unblocked := t.unblockedBy(taskID)

	phase := t.sched.PhaseOf(taskID)
	phaseComplete := phase >= 0 && t.phaseCompleteLocked(phase)

	checkpointID := ""
	if phaseComplete {
		for _, cp := range t.sched.Checkpoints {
			if cp.AfterPhase == phase && !t.firedCheckpoints[cp.ID] {
				t.firedCheckpoints[cp.ID] = true
				checkpointID = cp.ID
				break
			}
		}
	}

	milestoneStatus := t.milestoneStatusLocked(task.Milestone)
	completion := &CompletionEvent{
		TaskID:              taskID,
		Milestone:           task.Milestone,
		MilestoneStatus:     milestoneStatus,
		Phase:               phase,
		PhaseCompleted:      phaseComplete,
		CheckpointTriggered: checkpointID,
		UnblockedTasks:      unblocked,
	}

	var phaseTaskIDs []string
	if phaseComplete {
		phaseTaskIDs = append(phaseTaskIDs, t.sched.Phases[phase].TaskIDs...)
	}

	t.enqueue(event.TaskCompleted{
		PlanID:          t.planID,
		TaskID:          taskID,
		Milestone:       task.Milestone,
		MilestoneStatus: milestoneStatus.String(),
		PhaseCompleted:  phaseComplete,
		Checkpoint:      checkpointID,
		UnblockedTasks:  unblocked,
		ResultSummary:   resultSummary,
		Timestamp:       at,
	})
	if phaseComplete {
		t.enqueue(event.PhaseCompleted{PlanID: t.planID, Phase: phase, TaskIDs: phaseTaskIDs, Timestamp: at})
	}
	if checkpointID != "" {
		t.enqueue(event.CheckpointTriggered{PlanID: t.planID, CheckpointID: checkpointID, AfterPhase: phase, Timestamp: at})
	}
	if milestoneStatus == StatusCompleted {
		t.enqueue(event.MilestoneCompleted{
			PlanID: t.planID, Milestone: task.Milestone, MilestoneIndex: task.MilestoneIndex, Timestamp: at,
		})
	}
	t.mu.Unlock()

	t.log.Info("task completed", "task_id", taskID, "phase", phase,
		"phase_completed", phaseComplete, "unblocked", len(unblocked))
	t.flushEvents()
	return completion, nil
}

// Reopen moves a completed task back to in_progress. It is the only way to
// leave a terminal state, intended for user rejection of delivered work.
// The completion timestamp is cleared and a new update entry is recorded.
func (t *Tracker) Reopen(taskID string, reason string) (ProgressRecord, error) {
	t.mu.Lock()
	rec, ok := t.records[taskID]
	if !ok {
		t.mu.Unlock()
		return ProgressRecord{}, errors.NewTrackerError("unknown task", errors.ErrTaskNotFound).WithTask(taskID)
	}

	from := rec.Status
	if from != StatusCompleted {
		t.mu.Unlock()
		return ProgressRecord{}, errors.NewIllegalTransition(taskID, from.String(), StatusInProgress.String())
	}

	now := t.monotonicNow(rec)
	rec.Status = StatusInProgress
	rec.CompletedAt = nil
	rec.UpdatedAt = now
	rec.Updates = append(rec.Updates, Update{
		Timestamp:  now,
		Status:     StatusInProgress,
		Completion: rec.Completion,
		Notes:      reason,
	})
	result := rec.clone()
	t.enqueue(event.NewTaskStatusChanged(t.planID, taskID, from.String(),
		StatusInProgress.String(), result.Completion, reason, result.UpdatedAt))
	t.mu.Unlock()

	t.log.Info("task reopened", "task_id", taskID, "reason", reason)
	t.flushEvents()
	return result, nil
}

// apply mutates a record for an accepted transition. Caller holds the lock.
func (t *Tracker) apply(rec *ProgressRecord, to Status, completion float64, notes string) {
	now := t.monotonicNow(rec)

	if to == StatusInProgress && rec.StartedAt == nil {
		started := now
		rec.StartedAt = &started
	}
	if to == StatusCompleted {
		completed := now
		rec.CompletedAt = &completed
		completion = 100
	}

	if completion >= 0 {
		rec.Completion = clampPct(completion)
	}
	rec.Status = to
	rec.UpdatedAt = now
	rec.Updates = append(rec.Updates, Update{
		Timestamp:  now,
		Status:     to,
		Completion: rec.Completion,
		Notes:      notes,
	})
}

// monotonicNow returns the current time, never earlier than the record's
// latest update so update timestamps are non-decreasing.
func (t *Tracker) monotonicNow(rec *ProgressRecord) time.Time {
	now := t.now()
	if now.Before(rec.UpdatedAt) {
		return rec.UpdatedAt
	}
	return now
}

// unblockedBy returns tasks that become startable once taskID completes:
// still pending, depending on taskID, with every predecessor completed.
// Caller holds the lock.
func (t *Tracker) unblockedBy(taskID string) []string {
	var unblocked []string
	for _, succID := range t.succ[taskID] {
		rec := t.records[succID]
		if rec == nil || rec.Status != StatusPending {
			continue
		}
		allDone := true
		for _, depID := range t.tasks[succID].Predecessors() {
			dep := t.records[depID]
			if dep == nil || dep.Status != StatusCompleted {
				allDone = false
				break
			}
		}
		if allDone {
			unblocked = append(unblocked, succID)
		}
	}
	return unblocked
}

// phaseCompleteLocked reports whether every task in the phase is completed.
func (t *Tracker) phaseCompleteLocked(phase int) bool {
	if phase < 0 || phase >= len(t.sched.Phases) {
		return false
	}
	for _, id := range t.sched.Phases[phase].TaskIDs {
		if rec := t.records[id]; rec == nil || rec.Status != StatusCompleted {
			return false
		}
	}
	return true
}

// enqueue appends an event to the outbox. Caller holds the write lock.
func (t *Tracker) enqueue(e event.Event) {
	if t.bus != nil {
		t.outbox = append(t.outbox, e)
	}
}

// flushEvents drains the outbox and publishes its events. One dispatcher
// runs at a time, so delivery order matches the order mutations were
// applied even when mutators race; the write lock is not held while
// handlers run, so handlers may call read-only operations.
func (t *Tracker) flushEvents() {
	t.pubMu.Lock()
	defer t.pubMu.Unlock()
	for {
		t.mu.Lock()
		batch := t.outbox
		t.outbox = nil
		t.mu.Unlock()
		if len(batch) == 0 {
			return
		}
		for _, e := range batch {
			t.bus.Publish(e)
		}
	}
}

func clampPct(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
