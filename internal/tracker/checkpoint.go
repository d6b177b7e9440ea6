package tracker

import (
	"github.com/harwoeck/planwell/internal/errors"
)

// VerifyCheckpoint checks whether a registered checkpoint has been reached.
//
// A checkpoint is verified when its phase and its expected milestone (if
// any) are both completed, partially verified when only the phase is
// completed, and not verified otherwise.
func (t *Tracker) VerifyCheckpoint(checkpointID string) (VerificationResult, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	cp := t.sched.CheckpointByID(checkpointID)
	if cp == nil {
		return NotVerified, errors.NewTrackerError("unknown checkpoint", errors.ErrCheckpointNotFound)
	}

	if !t.phaseCompleteLocked(cp.AfterPhase) {
		return NotVerified, nil
	}
	if cp.MilestoneReached < 0 {
		return Verified, nil
	}

	// Every milestone up to and including the expected one must be complete.
	for _, id := range t.taskIDs {
		task := t.tasks[id]
		if task.MilestoneIndex > cp.MilestoneReached {
			continue
		}
		if t.records[id].Status != StatusCompleted {
			return PartiallyVerified, nil
		}
	}
	return Verified, nil
}
