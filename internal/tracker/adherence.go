package tracker

import "time"

// TimelineAdherence compares actual execution against the planned phase
// windows, anchored at the estimated start date.
func (t *Tracker) TimelineAdherence() Adherence {
	t.mu.RLock()
	defer t.mu.RUnlock()

	daysElapsed := int(t.now().Sub(t.estStart).Hours() / 24)
	if daysElapsed < 0 {
		daysElapsed = 0
	}

	windows := t.sched.Timeline.Windows
	variances := make([]PhaseVariance, 0, len(windows))
	worstVariance := 0
	haveVariance := false

	expectedPhase := len(windows)
	for _, w := range windows {
		if daysElapsed < w.EndDay {
			expectedPhase = w.Phase
			break
		}
	}

	actualPhase := len(windows)
	for _, w := range windows {
		if !t.phaseCompleteLocked(w.Phase) {
			actualPhase = w.Phase
			break
		}
	}

	for _, w := range windows {
		pv := PhaseVariance{
			Phase:           w.Phase,
			PlannedStartDay: w.StartDay,
			PlannedEndDay:   w.EndDay,
			ActualStartDay:  -1,
			ActualEndDay:    -1,
		}

		started := false
		allDone := true
		for _, id := range t.sched.Phases[w.Phase].TaskIDs {
			rec := t.records[id]
			if rec.StartedAt != nil {
				day := t.dayOf(*rec.StartedAt)
				if !started || day < pv.ActualStartDay {
					pv.ActualStartDay = day
				}
				started = true
			}
			if rec.Status != StatusCompleted {
				allDone = false
				continue
			}
			if rec.CompletedAt != nil {
				day := t.dayOf(*rec.CompletedAt)
				if day > pv.ActualEndDay {
					pv.ActualEndDay = day
				}
			}
		}
		if !allDone {
			pv.ActualEndDay = -1
		}

		if pv.ActualStartDay >= 0 {
			pv.StartVariance = pv.ActualStartDay - pv.PlannedStartDay
		}
		if pv.ActualEndDay >= 0 {
			pv.EndVariance = pv.ActualEndDay - pv.PlannedEndDay
		} else if daysElapsed > pv.PlannedEndDay {
			// Phase should already be done; count the slip so far.
			pv.EndVariance = daysElapsed - pv.PlannedEndDay
		}

		// Only phases that should be underway or done contribute to the
		// project variance. The value is signed: the worst slip wins, and
		// a project running ahead reports a negative variance.
		if w.StartDay <= daysElapsed && (!haveVariance || pv.EndVariance > worstVariance) {
			worstVariance = pv.EndVariance
			haveVariance = true
		}
		variances = append(variances, pv)
	}

	status := AdherenceOnSchedule
	switch {
	case actualPhase > expectedPhase:
		status = AdherenceAhead
	case actualPhase < expectedPhase:
		status = AdherenceBehind
	}

	return Adherence{
		DaysElapsed:   daysElapsed,
		ExpectedPhase: expectedPhase,
		ActualPhase:   actualPhase,
		Status:        status,
		VarianceDays:  worstVariance,
		Phases:        variances,
	}
}

// dayOf converts a timestamp into a day tick relative to the estimated start.
func (t *Tracker) dayOf(at time.Time) int {
	d := int(at.Sub(t.estStart).Hours() / 24)
	if d < 0 {
		return 0
	}
	return d
}
