package assign

import (
	"sort"

	"github.com/harwoeck/planwell/internal/plan"
	"github.com/harwoeck/planwell/internal/schedule"
)

// balance moves transferable tasks from the most-loaded to the least-loaded
// agent until the load spread is within the threshold or no transferable
// candidate remains.
//
// Only low and medium priority tasks may move; among candidates the lowest
// priority transfers first, ties broken by the latest earliest start
// (the task with the most room to move). Critical and high priority tasks
// never change owner.
func balance(owner map[string]string, s *schedule.Schedule, threshold int, caps map[string]float64) {
	// Each iteration moves exactly one task; bounding the loop by the task
	// count keeps a pathological capacity mix from ping-ponging forever.
	for moves := 0; moves < len(owner); moves++ {
		maxAgent, minAgent, spread := loadSpread(owner, caps)
		if spread <= float64(threshold) {
			return
		}

		candidate := pickTransferable(owner, s, maxAgent)
		if candidate == "" {
			return
		}
		owner[candidate] = minAgent
	}
}

// loadSpread returns the most- and least-loaded agents and the spread of
// their capacity-weighted loads. Every canonical agent type participates,
// including idle ones, so a plan matching a single agent still spreads
// out; a declared capacity scales how much work an agent absorbs before
// it counts as overloaded. Agent names are iterated in sorted order so
// ties resolve deterministically.
func loadSpread(owner map[string]string, caps map[string]float64) (maxAgent, minAgent string, spread float64) {
	counts := make(map[string]int, len(plan.MatchOrder))
	for _, agent := range plan.MatchOrder {
		counts[agent] = 0
	}
	for _, agent := range owner {
		counts[agent]++
	}
	if len(counts) < 2 {
		return "", "", 0
	}

	agents := make([]string, 0, len(counts))
	for agent := range counts {
		agents = append(agents, agent)
	}
	sort.Strings(agents)

	load := func(agent string) float64 {
		c := 1.0
		if declared, ok := caps[agent]; ok && declared > 0 {
			c = declared
		}
		return float64(counts[agent]) / c
	}

	maxAgent, minAgent = agents[0], agents[0]
	for _, agent := range agents[1:] {
		if load(agent) > load(maxAgent) {
			maxAgent = agent
		}
		if load(agent) < load(minAgent) {
			minAgent = agent
		}
	}
	return maxAgent, minAgent, load(maxAgent) - load(minAgent)
}

// pickTransferable selects the task to move off the given agent, or ""
// when none qualifies.
func pickTransferable(owner map[string]string, s *schedule.Schedule, agent string) string {
	var candidates []string
	for id, a := range owner {
		if a != agent {
			continue
		}
		if s.Nodes[id].Priority.Transferable() {
			candidates = append(candidates, id)
		}
	}
	if len(candidates) == 0 {
		return ""
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := s.Nodes[candidates[i]], s.Nodes[candidates[j]]
		// Lowest priority first.
		if a.Priority.Rank() != b.Priority.Rank() {
			return a.Priority.Rank() < b.Priority.Rank()
		}
		// Latest earliest start first.
		if a.EarliestStart != b.EarliestStart {
			return a.EarliestStart > b.EarliestStart
		}
		return candidates[i] < candidates[j]
	})
	return candidates[0]
}
