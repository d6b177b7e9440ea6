// Package plan defines the hierarchical project plan model and the
// normalization pipeline that turns a declarative plan into a flat,
// dependency-resolved task set.
//
// The pipeline runs in a fixed order:
//  1. Ingest - flatten milestones into tasks, assign stable ids
//  2. InferDependencies - add cross-milestone edges from lexical heuristics
//  3. ComputeSkillRequirements - score tasks against agent types
//  4. AssertAcyclic - confirm the resulting graph is a DAG
//
// All steps are pure and deterministic: the same plan always yields the
// same task set.
package plan

import "strings"

// -----------------------------------------------------------------------------
// Effort
// -----------------------------------------------------------------------------

// Effort represents the estimated effort of a task.
//
// Effort maps directly to a duration in scheduling days. The unit is a
// dimensionless tick; calendar mapping is the caller's concern.
type Effort string

const (
	// EffortLow indicates a simple, well-scoped task (1 day).
	EffortLow Effort = "low"

	// EffortMedium indicates a moderate task with some scope (2 days).
	EffortMedium Effort = "medium"

	// EffortHigh indicates a complex task requiring significant work (3 days).
	EffortHigh Effort = "high"
)

// String returns the string representation of the effort.
func (e Effort) String() string {
	return string(e)
}

// IsValid returns true if this is a recognized effort value.
func (e Effort) IsValid() bool {
	switch e {
	case EffortLow, EffortMedium, EffortHigh:
		return true
	default:
		return false
	}
}

// DurationDays returns the scheduling duration for this effort level.
// Unrecognized values default to medium.
func (e Effort) DurationDays() int {
	switch e {
	case EffortLow:
		return 1
	case EffortHigh:
		return 3
	default:
		return 2
	}
}

// -----------------------------------------------------------------------------
// Agent Types
// -----------------------------------------------------------------------------

// Canonical agent type identifiers used in skill requirements and
// assignments. MatchOrder fixes the tie-break order for skill matching.
const (
	AgentSolutionArchitect  = "solution_architect"
	AgentFullStackDeveloper = "full_stack_developer"
	AgentQATest             = "qa_test"
	AgentProjectManager     = "project_manager"
)

// MatchOrder is the fixed tie-break order used when multiple agent types
// score equally for a task.
var MatchOrder = []string{
	AgentSolutionArchitect,
	AgentFullStackDeveloper,
	AgentQATest,
	AgentProjectManager,
}

// -----------------------------------------------------------------------------
// Plan Input Model
// -----------------------------------------------------------------------------

// Plan is the declarative input: an ordered sequence of milestones plus a
// pool of available resources. A Plan is immutable once accepted.
type Plan struct {
	// Name is a human-readable plan name.
	Name string `json:"name" yaml:"name"`

	// Milestones are processed in order; their position defines
	// MilestoneIndex on every derived task.
	Milestones []Milestone `json:"milestones" yaml:"milestones"`

	// Resources describes the available worker agents.
	Resources []Resource `json:"resources,omitempty" yaml:"resources,omitempty"`
}

// Milestone groups related tasks under a named delivery point.
type Milestone struct {
	// Name must be unique within the plan.
	Name string `json:"name" yaml:"name"`

	// Tasks are the declared work items for this milestone.
	Tasks []TaskSpec `json:"tasks" yaml:"tasks"`
}

// TaskSpec is a single declared task within a milestone.
type TaskSpec struct {
	// ID optionally fixes the task id. When empty or duplicated, a stable
	// id is synthesized during ingestion.
	ID string `json:"id,omitempty" yaml:"id,omitempty"`

	// Name is a short, human-readable task name. Required.
	Name string `json:"name" yaml:"name"`

	// Description contains detailed instructions for the executing agent.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Effort is the estimated effort level. Defaults to medium.
	Effort Effort `json:"effort,omitempty" yaml:"effort,omitempty"`

	// DependsOn lists task ids that must complete before this task.
	DependsOn []string `json:"depends_on,omitempty" yaml:"depends_on,omitempty"`
}

// Resource describes a worker agent available to the plan.
type Resource struct {
	// AgentType is the canonical agent type string.
	AgentType string `json:"agent_type" yaml:"agent_type"`

	// Skills lists skill keywords this agent covers.
	Skills []string `json:"skills,omitempty" yaml:"skills,omitempty"`

	// Capacity is the relative capacity fraction of this agent.
	Capacity float64 `json:"capacity,omitempty" yaml:"capacity,omitempty"`
}

// -----------------------------------------------------------------------------
// Normalized Task
// -----------------------------------------------------------------------------

// Task is the normalized, flattened work item produced by ingestion.
//
// A Task is immutable after the normalization pipeline finishes; live
// execution state is tracked separately by the progress tracker.
type Task struct {
	// ID uniquely identifies this task within the plan.
	ID string `json:"id"`

	// Name is the human-readable task name.
	Name string `json:"name"`

	// Description contains detailed instructions for the executing agent.
	Description string `json:"description,omitempty"`

	// Milestone is the name of the milestone this task belongs to.
	Milestone string `json:"milestone"`

	// MilestoneIndex is the stable 0-based order of the milestone.
	MilestoneIndex int `json:"milestone_index"`

	// Effort is the estimated effort level.
	Effort Effort `json:"effort"`

	// DependsOn lists predecessor task ids declared by the plan.
	DependsOn []string `json:"depends_on"`

	// InferredDeps lists predecessor task ids added by dependency inference.
	// Kept separate from DependsOn so the inference can be audited.
	InferredDeps []string `json:"inferred_deps,omitempty"`

	// Skills maps agent type to required proficiency in [0,1].
	Skills map[string]float64 `json:"skills,omitempty"`
}

// Predecessors returns the union of declared and inferred predecessor ids,
// declared first, deduplicated, preserving order.
func (t *Task) Predecessors() []string {
	if len(t.InferredDeps) == 0 {
		return t.DependsOn
	}
	seen := make(map[string]bool, len(t.DependsOn)+len(t.InferredDeps))
	preds := make([]string, 0, len(t.DependsOn)+len(t.InferredDeps))
	for _, id := range t.DependsOn {
		if !seen[id] {
			seen[id] = true
			preds = append(preds, id)
		}
	}
	for _, id := range t.InferredDeps {
		if !seen[id] {
			seen[id] = true
			preds = append(preds, id)
		}
	}
	return preds
}

// DurationDays returns the scheduling duration for this task.
func (t *Task) DurationDays() int {
	return t.Effort.DurationDays()
}

// SearchText returns the lowercase text used by the lexical heuristics.
func (t *Task) SearchText() string {
	return strings.ToLower(t.Name + " " + t.Description)
}

// TaskIndex builds a lookup map from task id to task. The returned map
// points into the given slice; it must not outlive it.
func TaskIndex(tasks []Task) map[string]*Task {
	idx := make(map[string]*Task, len(tasks))
	for i := range tasks {
		idx[tasks[i].ID] = &tasks[i]
	}
	return idx
}
