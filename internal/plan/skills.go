package plan

import "strings"

// skillKeywords maps each agent type to the keywords that indicate the task
// needs that agent, and the proficiency the match implies.
var skillKeywords = []struct {
	agent    string
	keywords []string
	score    float64
}{
	{AgentSolutionArchitect, []string{"architect", "design", "system", "structure"}, 0.8},
	{AgentFullStackDeveloper, []string{"develop", "implement", "code", "build", "create"}, 0.8},
	{AgentQATest, []string{"test", "qa", "quality", "validation", "verify"}, 0.8},
	{AgentProjectManager, []string{"plan", "coordinate", "schedule", "manage"}, 0.8},
}

// defaultSkillScore is assigned to the full-stack developer when no keyword
// class produces a confident match.
const defaultSkillScore = 0.5

// highEffortBoost is added to the top-scoring agent for high-effort tasks.
const highEffortBoost = 0.2

// ComputeSkillRequirements scores the task's name and description against
// the keyword classes and returns the agent-type -> proficiency map.
//
// High-effort tasks boost the top-scoring agent by 0.2 (clamped at 1.0).
// If every score falls below 0.5, the full-stack developer is assigned the
// default 0.5 so the task always has a plausible owner.
func ComputeSkillRequirements(t *Task) map[string]float64 {
	text := t.SearchText()
	scores := make(map[string]float64)

	for _, class := range skillKeywords {
		for _, kw := range class.keywords {
			if strings.Contains(text, kw) {
				if class.score > scores[class.agent] {
					scores[class.agent] = class.score
				}
				break
			}
		}
	}

	if t.Effort == EffortHigh && len(scores) > 0 {
		top := topAgent(scores)
		scores[top] = clamp01(scores[top] + highEffortBoost)
	}

	confident := false
	for _, s := range scores {
		if s >= defaultSkillScore {
			confident = true
			break
		}
	}
	if !confident {
		scores[AgentFullStackDeveloper] = defaultSkillScore
	}

	return scores
}

// ComputeAllSkillRequirements runs ComputeSkillRequirements over the task
// set, populating each task's Skills map in place.
func ComputeAllSkillRequirements(tasks []Task) []Task {
	for i := range tasks {
		tasks[i].Skills = ComputeSkillRequirements(&tasks[i])
	}
	return tasks
}

// topAgent returns the highest-scoring agent, breaking ties with MatchOrder.
func topAgent(scores map[string]float64) string {
	best := ""
	bestScore := -1.0
	for _, agent := range MatchOrder {
		if s, ok := scores[agent]; ok && s > bestScore {
			best = agent
			bestScore = s
		}
	}
	return best
}

func clamp01(v float64) float64 {
	if v > 1.0 {
		return 1.0
	}
	if v < 0 {
		return 0
	}
	return v
}
