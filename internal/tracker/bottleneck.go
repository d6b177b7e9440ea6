package tracker

import (
	"fmt"
	"sort"
)

// Bottlenecks scans for tasks holding up the plan.
//
// A task is flagged when it is blocked (high impact with more than two
// transitive successors, medium otherwise), when a successor completed
// before it (medium), or when it is a critical-path task in progress past
// its estimated duration (critical). A task is reported at most once, at
// the highest applicable impact. Results are sorted by impact then id.
func (t *Tracker) Bottlenecks() []Bottleneck {
	t.mu.RLock()
	defer t.mu.RUnlock()

	now := t.now()
	found := make(map[string]Bottleneck)

	record := func(b Bottleneck) {
		if prev, ok := found[b.TaskID]; ok && prev.Impact.Rank() >= b.Impact.Rank() {
			return
		}
		found[b.TaskID] = b
	}

	for _, id := range t.taskIDs {
		rec := t.records[id]

		if rec.Status == StatusBlocked {
			downstream := t.transitiveSuccessorsLocked(id)
			impact := ImpactMedium
			if downstream > 2 {
				impact = ImpactHigh
			}
			record(Bottleneck{
				TaskID:            id,
				Impact:            impact,
				Reason:            fmt.Sprintf("blocked with %d downstream tasks", downstream),
				BlockedSuccessors: downstream,
			})
		}

		if rec.Status != StatusCompleted {
			for _, succID := range t.succ[id] {
				if s := t.records[succID]; s != nil && s.Status == StatusCompleted {
					record(Bottleneck{
						TaskID: id,
						Impact: ImpactMedium,
						Reason: fmt.Sprintf("successor %s completed before this task", succID),
					})
					break
				}
			}
		}

		if rec.Status == StatusInProgress && rec.StartedAt != nil {
			node := t.sched.Node(id)
			if node != nil && node.IsCritical {
				inProgressDays := int(now.Sub(*rec.StartedAt).Hours() / 24)
				budget := t.tasks[id].Effort.DurationDays()
				if inProgressDays > budget {
					record(Bottleneck{
						TaskID: id,
						Impact: ImpactCritical,
						Reason: fmt.Sprintf("critical-path task in progress %d days, estimated %d", inProgressDays, budget),
					})
				}
			}
		}
	}

	out := make([]Bottleneck, 0, len(found))
	for _, b := range found {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Impact.Rank() != out[j].Impact.Rank() {
			return out[i].Impact.Rank() > out[j].Impact.Rank()
		}
		return out[i].TaskID < out[j].TaskID
	})
	return out
}

// transitiveSuccessorsLocked counts all tasks reachable from taskID through
// dependency edges.
func (t *Tracker) transitiveSuccessorsLocked(taskID string) int {
	visited := make(map[string]bool)
	var walk func(id string)
	walk = func(id string) {
		for _, succID := range t.succ[id] {
			if !visited[succID] {
				visited[succID] = true
				walk(succID)
			}
		}
	}
	walk(taskID)
	return len(visited)
}
