package plan

import (
	"math"
	"testing"
)

func TestComputeSkillRequirements(t *testing.T) {
	tests := []struct {
		name string
		task Task
		want map[string]float64
	}{
		{
			name: "architecture keywords",
			task: Task{Name: "Design system architecture", Effort: EffortMedium},
			want: map[string]float64{AgentSolutionArchitect: 0.8},
		},
		{
			name: "development keywords",
			task: Task{Name: "Implement REST endpoints", Effort: EffortMedium},
			want: map[string]float64{AgentFullStackDeveloper: 0.8},
		},
		{
			name: "qa keywords",
			task: Task{Name: "Verify checkout flow", Effort: EffortMedium},
			want: map[string]float64{AgentQATest: 0.8},
		},
		{
			name: "management keywords",
			task: Task{Name: "Coordinate release", Effort: EffortMedium},
			want: map[string]float64{AgentProjectManager: 0.8},
		},
		{
			name: "description scored too",
			task: Task{Name: "Login flow", Description: "implement OAuth handshake", Effort: EffortMedium},
			want: map[string]float64{AgentFullStackDeveloper: 0.8},
		},
		{
			name: "high effort boosts the top agent",
			task: Task{Name: "Implement payment pipeline", Effort: EffortHigh},
			want: map[string]float64{AgentFullStackDeveloper: 1.0},
		},
		{
			name: "no keyword match falls back to full stack",
			task: Task{Name: "Miscellaneous chores", Effort: EffortMedium},
			want: map[string]float64{AgentFullStackDeveloper: 0.5},
		},
		{
			name: "multiple agent classes",
			task: Task{Name: "Design and test onboarding", Effort: EffortMedium},
			want: map[string]float64{AgentSolutionArchitect: 0.8, AgentQATest: 0.8},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeSkillRequirements(&tt.task)
			if len(got) != len(tt.want) {
				t.Fatalf("ComputeSkillRequirements() = %v, want %v", got, tt.want)
			}
			for agent, score := range tt.want {
				if math.Abs(got[agent]-score) > 1e-9 {
					t.Errorf("score[%s] = %v, want %v", agent, got[agent], score)
				}
			}
		})
	}
}

func TestHighEffortBoostBreaksTiesInMatchOrder(t *testing.T) {
	// Both classes score 0.8; the boost must land on the agent earlier in
	// the fixed match order.
	task := Task{Name: "Design and implement search", Effort: EffortHigh}
	got := ComputeSkillRequirements(&task)

	if math.Abs(got[AgentSolutionArchitect]-1.0) > 1e-9 {
		t.Errorf("architect score = %v, want 1.0 (boosted)", got[AgentSolutionArchitect])
	}
	if math.Abs(got[AgentFullStackDeveloper]-0.8) > 1e-9 {
		t.Errorf("developer score = %v, want 0.8 (not boosted)", got[AgentFullStackDeveloper])
	}
}

func TestComputeAllSkillRequirementsPopulatesEveryTask(t *testing.T) {
	tasks := []Task{
		{ID: "a", Name: "Design schema", Effort: EffortMedium},
		{ID: "b", Name: "Whatever", Effort: EffortLow},
	}
	got := ComputeAllSkillRequirements(tasks)
	for _, task := range got {
		if len(task.Skills) == 0 {
			t.Errorf("task %s has empty skill map", task.ID)
		}
	}
}
