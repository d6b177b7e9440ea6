package assign

import (
	"fmt"
	"sort"
	"strings"

	"github.com/harwoeck/planwell/internal/plan"
	"github.com/harwoeck/planwell/internal/schedule"
)

// declaredSkillBoost is added to an agent's match score when the task
// text contains one of its declared resource skill keywords.
const declaredSkillBoost = 0.1

// Options controls assignment construction.
type Options struct {
	// ImbalanceThreshold is the maximum allowed difference between the
	// most- and least-loaded agents before rebalancing kicks in.
	// Values below 1 default to 2.
	ImbalanceThreshold int

	// MaxProjectDurationDays bounds the planned total duration during
	// validation. Values below 1 default to 90.
	MaxProjectDurationDays int

	// Resources is the plan's declared resource pool. Declared skills
	// break close matching calls, declared capacities weight the workload
	// balancer. An empty pool leaves every agent at capacity 1.
	Resources []plan.Resource
}

// Build produces per-agent work queues from the schedule.
//
// Tasks are matched to the agent type with the highest skill requirement
// (declared resource skills boost close calls, remaining ties break in
// the fixed plan.MatchOrder), workload is rebalanced by moving
// transferable tasks from the most- to the least-loaded agent with loads
// weighted by declared capacity, and each queue is sorted by priority,
// earliest start, then id.
func Build(s *schedule.Schedule, opts Options) *Result {
	if opts.ImbalanceThreshold < 1 {
		opts.ImbalanceThreshold = 2
	}
	if opts.MaxProjectDurationDays < 1 {
		opts.MaxProjectDurationDays = 90
	}

	owner := matchSkills(s, declaredSkills(opts.Resources))
	balance(owner, s, opts.ImbalanceThreshold, capacityFor(opts.Resources))

	assignments := buildQueues(owner, s)
	phases := buildPhaseRecords(owner, s)

	result := &Result{
		Assignments: assignments,
		Owner:       owner,
		Phases:      phases,
	}
	result.Validation = validate(result, s, opts)
	return result
}

// matchSkills picks the agent type maximizing the task's skill requirement.
// An agent whose declared skill keywords appear in the task text gets a
// small boost, so a declared specialist wins close calls. Remaining ties
// break in the fixed MatchOrder so results are deterministic.
func matchSkills(s *schedule.Schedule, declared map[string][]string) map[string]string {
	owner := make(map[string]string, len(s.Nodes))
	for id, node := range s.Nodes {
		text := node.Task.SearchText()
		best := plan.AgentFullStackDeveloper
		bestScore := -1.0
		for _, agent := range plan.MatchOrder {
			score, ok := node.Task.Skills[agent]
			if !ok {
				continue
			}
			for _, kw := range declared[agent] {
				if kw != "" && strings.Contains(text, kw) {
					score += declaredSkillBoost
					break
				}
			}
			if score > bestScore {
				best = agent
				bestScore = score
			}
		}
		owner[id] = best
	}
	return owner
}

// declaredSkills maps agent type to its declared skill keywords, lowered
// for matching against task text.
func declaredSkills(resources []plan.Resource) map[string][]string {
	if len(resources) == 0 {
		return nil
	}
	out := make(map[string][]string, len(resources))
	for _, r := range resources {
		for _, skill := range r.Skills {
			out[r.AgentType] = append(out[r.AgentType], strings.ToLower(skill))
		}
	}
	return out
}

// capacityFor extracts the declared capacities by agent type. Agents
// without a declared capacity default to 1.
func capacityFor(resources []plan.Resource) map[string]float64 {
	caps := make(map[string]float64, len(resources))
	for _, r := range resources {
		if r.Capacity > 0 {
			caps[r.AgentType] = r.Capacity
		}
	}
	return caps
}

// buildQueues assembles and orders each agent's instruction queue:
// priority descending, earliest start ascending, id ascending.
func buildQueues(owner map[string]string, s *schedule.Schedule) map[string][]Instruction {
	queues := make(map[string][]Instruction)
	for id, agent := range owner {
		node := s.Nodes[id]

		var predOwnership map[string]string
		if preds := node.Task.Predecessors(); len(preds) > 0 {
			predOwnership = make(map[string]string, len(preds))
			for _, depID := range preds {
				predOwnership[depID] = owner[depID]
			}
		}

		queues[agent] = append(queues[agent], Instruction{
			TaskID:               id,
			Priority:             node.Priority,
			EarliestStart:        node.EarliestStart,
			PredecessorOwnership: predOwnership,
			IsCritical:           node.IsCritical,
		})
	}

	for agent := range queues {
		queue := queues[agent]
		sort.Slice(queue, func(i, j int) bool {
			if queue[i].Priority.Rank() != queue[j].Priority.Rank() {
				return queue[i].Priority.Rank() > queue[j].Priority.Rank()
			}
			if queue[i].EarliestStart != queue[j].EarliestStart {
				return queue[i].EarliestStart < queue[j].EarliestStart
			}
			return queue[i].TaskID < queue[j].TaskID
		})
	}
	return queues
}

// buildPhaseRecords records the agent placement of every parallel phase.
func buildPhaseRecords(owner map[string]string, s *schedule.Schedule) []PhaseRecord {
	records := make([]PhaseRecord, 0, len(s.Phases))
	for _, ph := range s.Phases {
		rec := PhaseRecord{PhaseID: ph.Index}
		for _, id := range ph.TaskIDs {
			node := s.Nodes[id]
			rec.Entries = append(rec.Entries, PhaseEntry{
				TaskID:     id,
				Agent:      owner[id],
				Priority:   node.Priority,
				IsCritical: node.IsCritical,
			})
		}
		records = append(records, rec)
	}
	return records
}

// validate checks the assignment result against the plan validity rules:
// every critical task assigned, every phase non-empty, and a positive total
// duration within the configured maximum. The result is returned even when
// invalid so operators can inspect the issues.
func validate(r *Result, s *schedule.Schedule, opts Options) Validation {
	v := Validation{IsValid: true}

	for _, id := range s.CriticalPath {
		if r.Owner[id] == "" {
			v.IsValid = false
			v.Issues = append(v.Issues, Issue{
				Severity: IssueError,
				Message:  "critical-path task is unassigned",
				TaskID:   id,
			})
		}
	}

	for _, ph := range s.Phases {
		if len(ph.TaskIDs) == 0 {
			v.IsValid = false
			v.Issues = append(v.Issues, Issue{
				Severity: IssueError,
				Message:  fmt.Sprintf("phase %d has no tasks", ph.Index),
			})
		}
	}

	known := make(map[string]bool, len(plan.MatchOrder))
	for _, agent := range plan.MatchOrder {
		known[agent] = true
	}
	for _, r := range opts.Resources {
		if !known[r.AgentType] {
			v.Issues = append(v.Issues, Issue{
				Severity: IssueWarning,
				Message:  fmt.Sprintf("resource pool declares unknown agent type %q", r.AgentType),
			})
		}
	}

	total := s.Timeline.TotalDurationDays
	if total <= 0 {
		v.IsValid = false
		v.Issues = append(v.Issues, Issue{
			Severity: IssueError,
			Message:  "planned total duration is not positive",
		})
	} else if total > opts.MaxProjectDurationDays {
		// Over-budget duration is flagged as a warning but still
		// invalidates the plan until an operator signs off.
		v.IsValid = false
		v.Issues = append(v.Issues, Issue{
			Severity: IssueWarning,
			Message: fmt.Sprintf("planned duration %d days exceeds maximum of %d",
				total, opts.MaxProjectDurationDays),
		})
	}

	return v
}
