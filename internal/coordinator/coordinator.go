// Package coordinator is the programmatic facade over the execution core:
// plan ingestion, scheduling, assignment, progress tracking, and event
// subscription, keyed by plan id.
package coordinator

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/harwoeck/planwell/internal/assign"
	"github.com/harwoeck/planwell/internal/errors"
	"github.com/harwoeck/planwell/internal/event"
	"github.com/harwoeck/planwell/internal/logging"
	"github.com/harwoeck/planwell/internal/plan"
	"github.com/harwoeck/planwell/internal/schedule"
	"github.com/harwoeck/planwell/internal/tracker"
)

// Options carries the tunables recognized by the core.
type Options struct {
	// MaxProjectDurationDays flags plans whose total duration exceeds it.
	// Defaults to 90.
	MaxProjectDurationDays int

	// CheckpointEveryNPhases inserts a checkpoint after every Nth phase.
	// Defaults to 3.
	CheckpointEveryNPhases int

	// WorkloadImbalanceThreshold is the maximum tolerated queue-length
	// spread between agents. Defaults to 2.
	WorkloadImbalanceThreshold int

	// OverdueWarningDays is the days-to-deadline threshold for at-risk
	// classification. Defaults to 2.
	OverdueWarningDays int

	// DisableInferredDependencies turns off the lexical dependency
	// inference heuristics.
	DisableInferredDependencies bool

	// EstimatedStart anchors timelines to a calendar date. Defaults to the
	// submission time.
	EstimatedStart time.Time
}

func (o *Options) withDefaults() Options {
	out := *o
	if out.MaxProjectDurationDays <= 0 {
		out.MaxProjectDurationDays = 90
	}
	if out.CheckpointEveryNPhases <= 0 {
		out.CheckpointEveryNPhases = 3
	}
	if out.WorkloadImbalanceThreshold <= 0 {
		out.WorkloadImbalanceThreshold = 2
	}
	if out.OverdueWarningDays <= 0 {
		out.OverdueWarningDays = 2
	}
	return out
}

// planState bundles everything derived from one submitted plan.
type planState struct {
	plan       *plan.Plan
	tasks      []plan.Task
	warnings   []string
	schedule   *schedule.Schedule
	assignment *assign.Result
	tracker    *tracker.Tracker
}

// Coordinator owns the per-plan execution state. All state is reachable
// from a plan id; there are no globals.
type Coordinator struct {
	mu    sync.RWMutex
	plans map[string]*planState

	bus  *event.Bus
	log  *logging.Logger
	opts Options
	now  func() time.Time
}

// Option customizes a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the structured logger.
func WithLogger(log *logging.Logger) Option {
	return func(c *Coordinator) { c.log = log }
}

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// New creates a Coordinator with the given tunables.
func New(opts Options, copts ...Option) *Coordinator {
	c := &Coordinator{
		plans: make(map[string]*planState),
		bus:   event.NewBus(),
		log:   logging.NopLogger(),
		opts:  opts.withDefaults(),
		now:   time.Now,
	}
	for _, o := range copts {
		o(c)
	}
	return c
}

// Bus exposes the event bus for direct subscription.
func (c *Coordinator) Bus() *event.Bus {
	return c.bus
}

// SubmitPlan ingests a plan, builds its schedule and assignments, and
// starts tracking progress. Returns the assigned plan id.
//
// An invalid assignment does not reject the plan: the schedule and the
// validation issues are both retrievable so tooling can render them.
func (c *Coordinator) SubmitPlan(p *plan.Plan) (string, error) {
	tasks, warnings, err := plan.Normalize(p, !c.opts.DisableInferredDependencies)
	if err != nil {
		return "", err
	}

	estStart := c.opts.EstimatedStart
	if estStart.IsZero() {
		estStart = c.now()
	}

	sched, err := schedule.Build(tasks, schedule.Options{
		CheckpointEveryNPhases: c.opts.CheckpointEveryNPhases,
		EstStart:               estStart,
	})
	if err != nil {
		return "", err
	}

	assignment := assign.Build(sched, assign.Options{
		ImbalanceThreshold:     c.opts.WorkloadImbalanceThreshold,
		MaxProjectDurationDays: c.opts.MaxProjectDurationDays,
		Resources:              p.Resources,
	})

	planID := uuid.NewString()
	trk := tracker.New(planID, tasks, sched, c.bus,
		tracker.WithLogger(c.log.WithPlan(planID)),
		tracker.WithOverdueWarningDays(c.opts.OverdueWarningDays),
		tracker.WithEstimatedStart(estStart),
		tracker.WithClock(c.now),
	)

	c.mu.Lock()
	c.plans[planID] = &planState{
		plan:       p,
		tasks:      tasks,
		warnings:   warnings,
		schedule:   sched,
		assignment: assignment,
		tracker:    trk,
	}
	c.mu.Unlock()

	c.log.Info("plan submitted", "plan_id", planID, "name", p.Name,
		"tasks", len(tasks), "phases", len(sched.Phases),
		"valid", assignment.Validation.IsValid)
	return planID, nil
}

// state looks up the plan state for an id.
func (c *Coordinator) state(planID string) (*planState, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	st, ok := c.plans[planID]
	if !ok {
		return nil, errors.NewPlanError("unknown plan", errors.ErrPlanNotFound).WithPlan(planID)
	}
	return st, nil
}

// GetSchedule returns the schedule built for the plan.
func (c *Coordinator) GetSchedule(planID string) (*schedule.Schedule, error) {
	st, err := c.state(planID)
	if err != nil {
		return nil, err
	}
	return st.schedule, nil
}

// GetAssignments returns the per-agent work queues built for the plan.
func (c *Coordinator) GetAssignments(planID string) (map[string][]assign.Instruction, error) {
	st, err := c.state(planID)
	if err != nil {
		return nil, err
	}
	return st.assignment.Assignments, nil
}

// GetAssignmentResult returns the full assignment output, including phase
// records and validation.
func (c *Coordinator) GetAssignmentResult(planID string) (*assign.Result, error) {
	st, err := c.state(planID)
	if err != nil {
		return nil, err
	}
	return st.assignment, nil
}

// ValidatePlan returns the validation outcome for the plan, with ingestion
// warnings folded in as warning-severity issues.
func (c *Coordinator) ValidatePlan(planID string) (assign.Validation, error) {
	st, err := c.state(planID)
	if err != nil {
		return assign.Validation{}, err
	}

	v := st.assignment.Validation
	out := assign.Validation{IsValid: v.IsValid}
	out.Issues = append(out.Issues, v.Issues...)
	for _, w := range st.warnings {
		out.Issues = append(out.Issues, assign.Issue{
			Severity: assign.IssueWarning,
			Message:  w,
		})
	}
	return out, nil
}

// Tasks returns the normalized task set of the plan.
func (c *Coordinator) Tasks(planID string) ([]plan.Task, error) {
	st, err := c.state(planID)
	if err != nil {
		return nil, err
	}
	return st.tasks, nil
}

// UpdateTaskStatus applies a status transition to a task of the plan.
func (c *Coordinator) UpdateTaskStatus(planID, taskID string, to tracker.Status, completion float64, notes string) (tracker.ProgressRecord, error) {
	st, err := c.state(planID)
	if err != nil {
		return tracker.ProgressRecord{}, err
	}
	return st.tracker.UpdateStatus(taskID, to, completion, notes)
}

// CompleteTask completes a task and propagates the completion.
func (c *Coordinator) CompleteTask(planID, taskID, resultSummary string) (*tracker.CompletionEvent, error) {
	st, err := c.state(planID)
	if err != nil {
		return nil, err
	}
	return st.tracker.CompleteTask(taskID, resultSummary)
}

// ReopenTask moves a completed task back to in_progress.
func (c *Coordinator) ReopenTask(planID, taskID, reason string) (tracker.ProgressRecord, error) {
	st, err := c.state(planID)
	if err != nil {
		return tracker.ProgressRecord{}, err
	}
	return st.tracker.Reopen(taskID, reason)
}

// GetProjectProgress returns the full project rollup.
func (c *Coordinator) GetProjectProgress(planID string) (tracker.ProjectProgress, error) {
	st, err := c.state(planID)
	if err != nil {
		return tracker.ProjectProgress{}, err
	}
	return st.tracker.ProjectProgress(), nil
}

// GetBottlenecks returns tasks holding up the plan.
func (c *Coordinator) GetBottlenecks(planID string) ([]tracker.Bottleneck, error) {
	st, err := c.state(planID)
	if err != nil {
		return nil, err
	}
	return st.tracker.Bottlenecks(), nil
}

// GetAtRiskTasks returns the at-risk classification of the plan's tasks.
func (c *Coordinator) GetAtRiskTasks(planID string) ([]tracker.AtRiskTask, error) {
	st, err := c.state(planID)
	if err != nil {
		return nil, err
	}
	return st.tracker.AtRiskTasks(), nil
}

// GetTimelineAdherence compares execution against the planned timeline.
func (c *Coordinator) GetTimelineAdherence(planID string) (tracker.Adherence, error) {
	st, err := c.state(planID)
	if err != nil {
		return tracker.Adherence{}, err
	}
	return st.tracker.TimelineAdherence(), nil
}

// VerifyCheckpoint checks whether a registered checkpoint has been reached.
func (c *Coordinator) VerifyCheckpoint(planID, checkpointID string) (tracker.VerificationResult, error) {
	st, err := c.state(planID)
	if err != nil {
		return tracker.NotVerified, err
	}
	return st.tracker.VerifyCheckpoint(checkpointID)
}

// Subscribe registers a handler for events of one kind belonging to the
// given plan. Kind "*" subscribes to all kinds. Returns a subscription id
// usable with Unsubscribe.
func (c *Coordinator) Subscribe(planID, kind string, handler event.Handler) string {
	filtered := func(e event.Event) {
		if e.Plan() == planID {
			handler(e)
		}
	}
	if kind == "*" {
		return c.bus.SubscribeAll(filtered)
	}
	return c.bus.Subscribe(kind, filtered)
}

// Unsubscribe removes a subscription created by Subscribe.
func (c *Coordinator) Unsubscribe(id string) bool {
	return c.bus.Unsubscribe(id)
}
