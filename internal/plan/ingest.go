package plan

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/harwoeck/planwell/internal/errors"
)

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// Slug converts a name into a lowercase, hyphen-separated identifier.
func Slug(name string) string {
	s := slugPattern.ReplaceAllString(strings.ToLower(name), "-")
	return strings.Trim(s, "-")
}

// Ingest flattens the plan's milestones into a normalized task set.
//
// Each task receives a stable id: the plan-provided id when it is unique
// within the plan, otherwise a synthesized one derived from milestone and
// task position. Milestone order of appearance fixes MilestoneIndex.
//
// Returns the tasks in declaration order plus any non-fatal warnings.
// Structural problems (no milestones, duplicate milestone names, unresolvable
// dependency references) abort ingestion with an InvalidPlan error.
func Ingest(p *Plan) ([]Task, []string, error) {
	if p == nil {
		return nil, nil, errors.NewPlanError("plan is nil", errors.ErrInvalidPlan)
	}
	if len(p.Milestones) == 0 {
		return nil, nil, errors.NewPlanError("plan has no milestones", errors.ErrInvalidPlan)
	}

	var warnings []string

	milestoneNames := make(map[string]bool, len(p.Milestones))
	for _, m := range p.Milestones {
		if strings.TrimSpace(m.Name) == "" {
			return nil, nil, errors.NewPlanError("milestone has no name", errors.ErrInvalidPlan)
		}
		if milestoneNames[m.Name] {
			return nil, nil, errors.NewPlanError(
				fmt.Sprintf("duplicate milestone name %q", m.Name), errors.ErrInvalidPlan)
		}
		milestoneNames[m.Name] = true
	}

	// First pass: claim plan-provided ids that are unique.
	idCounts := make(map[string]int)
	for _, m := range p.Milestones {
		for _, spec := range m.Tasks {
			if spec.ID != "" {
				idCounts[spec.ID]++
			}
		}
	}

	var tasks []Task
	usedIDs := make(map[string]bool)
	for mi, m := range p.Milestones {
		for ti, spec := range m.Tasks {
			if strings.TrimSpace(spec.Name) == "" {
				return nil, nil, errors.NewPlanError(
					fmt.Sprintf("milestone %q: task %d has no name", m.Name, ti), errors.ErrInvalidPlan)
			}

			id := spec.ID
			if id == "" || idCounts[id] > 1 || usedIDs[id] {
				id = synthesizeID(mi, ti, spec.Name, usedIDs)
				if spec.ID != "" {
					warnings = append(warnings,
						fmt.Sprintf("task id %q is not unique; synthesized %q", spec.ID, id))
				}
			}
			usedIDs[id] = true

			effort := spec.Effort
			if effort == "" {
				effort = EffortMedium
			}
			if !effort.IsValid() {
				warnings = append(warnings,
					fmt.Sprintf("task %q: unrecognized effort %q, defaulting to medium", id, spec.Effort))
				effort = EffortMedium
			}
			if strings.TrimSpace(spec.Description) == "" {
				warnings = append(warnings, fmt.Sprintf("task %q has no description", id))
			}

			depends := spec.DependsOn
			if depends == nil {
				depends = []string{}
			}

			tasks = append(tasks, Task{
				ID:             id,
				Name:           spec.Name,
				Description:    spec.Description,
				Milestone:      m.Name,
				MilestoneIndex: mi,
				Effort:         effort,
				DependsOn:      depends,
			})
		}
	}

	if len(tasks) == 0 {
		return nil, nil, errors.NewPlanError("plan has no tasks", errors.ErrInvalidPlan)
	}

	// Every declared predecessor must resolve to a task in the same plan.
	for _, t := range tasks {
		for _, dep := range t.DependsOn {
			if dep == t.ID {
				return nil, nil, errors.NewPlanError(
					fmt.Sprintf("task %q depends on itself", t.ID), errors.ErrInvalidPlan)
			}
			if !usedIDs[dep] {
				return nil, nil, errors.NewPlanError(
					fmt.Sprintf("task %q depends on unknown task %q", t.ID, dep), errors.ErrInvalidPlan)
			}
		}
	}

	return tasks, warnings, nil
}

// synthesizeID builds a deterministic task id from milestone/task position
// and the task name, appending a counter on collision.
func synthesizeID(milestoneIdx, taskIdx int, name string, used map[string]bool) string {
	base := fmt.Sprintf("m%d-t%d", milestoneIdx+1, taskIdx+1)
	if slug := Slug(name); slug != "" {
		base = base + "-" + slug
	}
	id := base
	for n := 2; used[id]; n++ {
		id = fmt.Sprintf("%s-%d", base, n)
	}
	return id
}
