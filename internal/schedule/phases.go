package schedule

import (
	"fmt"
	"sort"
	"time"
)

// buildPhases buckets task nodes by earliest start and emits phases in
// ascending order of the bucket key. Within a phase, tasks are ordered by
// priority (descending rank) then id.
func buildPhases(nodes map[string]*TaskNode) []PhaseGroup {
	buckets := make(map[int][]string)
	for id, node := range nodes {
		buckets[node.EarliestStart] = append(buckets[node.EarliestStart], id)
	}

	starts := make([]int, 0, len(buckets))
	for es := range buckets {
		starts = append(starts, es)
	}
	sort.Ints(starts)

	phases := make([]PhaseGroup, 0, len(starts))
	for i, es := range starts {
		ids := buckets[es]
		sort.Slice(ids, func(a, b int) bool {
			pa, pb := nodes[ids[a]].Priority.Rank(), nodes[ids[b]].Priority.Rank()
			if pa != pb {
				return pa > pb
			}
			return ids[a] < ids[b]
		})
		phases = append(phases, PhaseGroup{
			Index:    i,
			StartDay: es,
			TaskIDs:  ids,
		})
	}
	return phases
}

// buildTimeline derives the planned phase windows. Phase duration is the
// maximum task duration within the phase; phases execute sequentially, so
// the total is the sum of phase durations.
func buildTimeline(phases []PhaseGroup, nodes map[string]*TaskNode, estStart time.Time) Timeline {
	var timeline Timeline
	day := 0
	for _, ph := range phases {
		duration := 0
		for _, id := range ph.TaskIDs {
			if d := nodes[id].Task.DurationDays(); d > duration {
				duration = d
			}
		}
		timeline.Windows = append(timeline.Windows, PhaseWindow{
			Phase:    ph.Index,
			StartDay: day,
			EndDay:   day + duration,
		})
		day += duration
	}
	timeline.TotalDurationDays = day

	if !estStart.IsZero() {
		timeline.EstStart = estStart
		timeline.EstEnd = estStart.AddDate(0, 0, day)
	}
	return timeline
}

// buildCheckpoints inserts a checkpoint after every Nth phase. The
// milestone reached is the highest milestone index among tasks whose
// earliest start does not exceed the checkpointed phase's start day, or -1
// when no task qualifies.
func buildCheckpoints(phases []PhaseGroup, nodes map[string]*TaskNode, everyN int) []Checkpoint {
	var checkpoints []Checkpoint
	for i, ph := range phases {
		if (i+1)%everyN != 0 {
			continue
		}
		milestone := -1
		for _, node := range nodes {
			if node.EarliestStart <= ph.StartDay && node.Task.MilestoneIndex > milestone {
				milestone = node.Task.MilestoneIndex
			}
		}
		checkpoints = append(checkpoints, Checkpoint{
			ID:               fmt.Sprintf("checkpoint-%d", len(checkpoints)+1),
			AfterPhase:       ph.Index,
			MilestoneReached: milestone,
		})
	}
	return checkpoints
}
