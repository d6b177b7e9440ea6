package tracker

// allowedTransitions encodes the task status state machine.
//
// Completed, failed and cancelled are terminal. The single exception is
// the explicit reopen operation, which moves completed back to in_progress
// and is handled separately from ordinary updates.
var allowedTransitions = map[Status][]Status{
	StatusPending:    {StatusInProgress, StatusBlocked, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusBlocked, StatusFailed, StatusCancelled},
	StatusBlocked:    {StatusInProgress, StatusCancelled, StatusFailed},
}

// canTransition reports whether from -> to is a legal ordinary transition.
// A repeated in_progress status is allowed so callers can report
// incremental completion percentages.
func canTransition(from, to Status) bool {
	if from == StatusInProgress && to == StatusInProgress {
		return true
	}
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
