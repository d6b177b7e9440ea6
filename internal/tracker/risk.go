package tracker

import (
	"fmt"
	"sort"

	"github.com/harwoeck/planwell/internal/plan"
)

// AtRiskTasks classifies every non-terminal task by accumulated risk
// factors and returns those above RiskNone, sorted by risk level then
// critical-path membership.
func (t *Tracker) AtRiskTasks() []AtRiskTask {
	t.mu.RLock()
	defer t.mu.RUnlock()

	daysElapsed := int(t.now().Sub(t.estStart).Hours() / 24)
	if daysElapsed < 0 {
		daysElapsed = 0
	}
	behindSchedule := t.behindScheduleLocked(daysElapsed)

	var out []AtRiskTask
	for _, id := range t.taskIDs {
		rec := t.records[id]
		if rec.Status.IsTerminal() {
			continue
		}

		node := t.sched.Node(id)
		if node == nil {
			continue
		}
		task := t.tasks[id]

		risk := RiskNone
		var factors []string
		raise := func(level RiskLevel, factor string) {
			factors = append(factors, factor)
			if level.Rank() > risk.Rank() {
				risk = level
			}
		}

		if node.IsCritical {
			raise(RiskMedium, "on critical path")
		}

		overdue := daysElapsed > node.LatestFinish
		if overdue {
			if rec.Status == StatusPending {
				raise(RiskHigh, "overdue and not started")
			} else {
				raise(RiskMedium, "overdue")
			}
		}

		phase := t.sched.PhaseOf(id)
		if phase >= 0 && phase < len(t.sched.Timeline.Windows) {
			toPhaseEnd := t.sched.Timeline.Windows[phase].EndDay - daysElapsed
			if toPhaseEnd <= t.overdueWarningDays {
				if rec.Status == StatusPending {
					raise(RiskHigh, fmt.Sprintf("%d days to phase end, not started", toPhaseEnd))
				} else {
					raise(RiskMedium, fmt.Sprintf("%d days to phase end", toPhaseEnd))
				}
			}
		}

		if task.Effort == plan.EffortHigh && node.LatestFinish-daysElapsed <= 3 {
			raise(RiskHigh, "high effort with 3 or fewer days remaining")
		}

		for _, depID := range task.Predecessors() {
			dep := t.records[depID]
			if dep == nil {
				continue
			}
			switch dep.Status {
			case StatusBlocked:
				raise(RiskHigh, fmt.Sprintf("predecessor %s blocked", depID))
			case StatusFailed:
				raise(RiskCritical, fmt.Sprintf("predecessor %s failed", depID))
			}
		}

		if rec.Status == StatusBlocked {
			raise(RiskCritical, "task is blocked")
		}

		if behindSchedule && node.IsCritical {
			raise(RiskHigh, "project behind schedule on critical path")
		}

		if risk == RiskNone {
			continue
		}
		out = append(out, AtRiskTask{
			TaskID:     id,
			Risk:       risk,
			IsCritical: node.IsCritical,
			Factors:    factors,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Risk.Rank() != out[j].Risk.Rank() {
			return out[i].Risk.Rank() > out[j].Risk.Rank()
		}
		if out[i].IsCritical != out[j].IsCritical {
			return out[i].IsCritical
		}
		return out[i].TaskID < out[j].TaskID
	})
	return out
}

// behindScheduleLocked reports whether the first incomplete phase lags the
// phase the timeline expects to be running.
func (t *Tracker) behindScheduleLocked(daysElapsed int) bool {
	windows := t.sched.Timeline.Windows
	expected := len(windows)
	for _, w := range windows {
		if daysElapsed < w.EndDay {
			expected = w.Phase
			break
		}
	}
	actual := len(windows)
	for _, w := range windows {
		if !t.phaseCompleteLocked(w.Phase) {
			actual = w.Phase
			break
		}
	}
	return actual < expected
}
