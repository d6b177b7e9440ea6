package tracker

import (
	"sort"
)

// MilestoneProgress returns the rollup for one milestone.
func (t *Tracker) MilestoneProgress(milestone string) GroupProgress {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.groupProgressLocked(milestone, t.milestoneMembersLocked(milestone))
}

// PhaseProgress returns the rollup for one phase.
func (t *Tracker) PhaseProgress(phase int) GroupProgress {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if phase < 0 || phase >= len(t.sched.Phases) {
		return GroupProgress{}
	}
	ph := t.sched.Phases[phase]
	return t.groupProgressLocked(phaseLabel(ph), ph.TaskIDs)
}

// ProjectProgress returns the full project rollup: overall status, mean
// completion, per-status counts, milestone rollups in milestone order, and
// critical-path progress.
func (t *Tracker) ProjectProgress() ProjectProgress {
	t.mu.RLock()
	defer t.mu.RUnlock()

	counts := make(map[Status]int)
	sum := 0.0
	for _, id := range t.taskIDs {
		rec := t.records[id]
		counts[rec.Status]++
		sum += rec.contribution()
	}
	completion := 0.0
	if len(t.taskIDs) > 0 {
		completion = sum / float64(len(t.taskIDs))
	}

	overall := OverallPending
	switch {
	case counts[StatusCompleted] == len(t.taskIDs) && len(t.taskIDs) > 0:
		overall = OverallCompleted
	case counts[StatusBlocked] > 0:
		overall = OverallBlocked
	case counts[StatusFailed] > 0:
		overall = OverallIssues
	case counts[StatusInProgress] > 0:
		overall = OverallInProgress
	}

	// Milestone rollups in milestone-index order.
	type msInfo struct {
		name  string
		index int
	}
	seen := make(map[string]bool)
	var milestones []msInfo
	for _, id := range t.taskIDs {
		task := t.tasks[id]
		if !seen[task.Milestone] {
			seen[task.Milestone] = true
			milestones = append(milestones, msInfo{task.Milestone, task.MilestoneIndex})
		}
	}
	sort.Slice(milestones, func(i, j int) bool { return milestones[i].index < milestones[j].index })

	rollups := make([]GroupProgress, 0, len(milestones))
	for _, ms := range milestones {
		rollups = append(rollups, t.groupProgressLocked(ms.name, t.milestoneMembersLocked(ms.name)))
	}

	return ProjectProgress{
		Overall:      overall,
		Completion:   completion,
		Counts:       counts,
		Milestones:   rollups,
		CriticalPath: t.criticalPathProgressLocked(completion),
	}
}

// criticalPathProgressLocked reports completion along the critical path and
// whether it keeps pace with overall completion.
func (t *Tracker) criticalPathProgressLocked(overallCompletion float64) CriticalPathProgress {
	total := len(t.sched.CriticalPath)
	if total == 0 {
		return CriticalPathProgress{OnTrack: true}
	}
	completed := 0
	for _, id := range t.sched.CriticalPath {
		if rec := t.records[id]; rec != nil && rec.Status == StatusCompleted {
			completed++
		}
	}
	pct := float64(completed) / float64(total) * 100
	return CriticalPathProgress{
		Completed:  completed,
		Total:      total,
		Completion: pct,
		OnTrack:    pct >= overallCompletion,
	}
}

// milestoneMembersLocked returns the ids of tasks in the given milestone,
// in declaration order.
func (t *Tracker) milestoneMembersLocked(milestone string) []string {
	var members []string
	for _, id := range t.taskIDs {
		if t.tasks[id].Milestone == milestone {
			members = append(members, id)
		}
	}
	return members
}

// groupProgressLocked rolls up a set of tasks: completed iff all members
// completed; blocked if any blocked; in_progress if any in progress;
// pending otherwise. Completion is the mean of member contributions.
func (t *Tracker) groupProgressLocked(name string, members []string) GroupProgress {
	gp := GroupProgress{Name: name, Status: StatusPending, Total: len(members)}
	if len(members) == 0 {
		return gp
	}

	sum := 0.0
	anyBlocked, anyInProgress := false, false
	for _, id := range members {
		rec := t.records[id]
		sum += rec.contribution()
		switch rec.Status {
		case StatusCompleted:
			gp.Completed++
		case StatusBlocked:
			anyBlocked = true
		case StatusInProgress:
			anyInProgress = true
		}
	}
	gp.Completion = sum / float64(len(members))

	switch {
	case gp.Completed == len(members):
		gp.Status = StatusCompleted
	case anyBlocked:
		gp.Status = StatusBlocked
	case anyInProgress:
		gp.Status = StatusInProgress
	}
	return gp
}

// milestoneStatusLocked returns the rolled-up status of a milestone.
func (t *Tracker) milestoneStatusLocked(milestone string) Status {
	return t.groupProgressLocked(milestone, t.milestoneMembersLocked(milestone)).Status
}
