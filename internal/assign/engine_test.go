package assign

import (
	"fmt"
	"strings"
	"testing"

	"github.com/harwoeck/planwell/internal/plan"
	"github.com/harwoeck/planwell/internal/schedule"
)

func buildSchedule(t *testing.T, tasks []plan.Task) *schedule.Schedule {
	t.Helper()
	s, err := schedule.Build(tasks, schedule.Options{})
	if err != nil {
		t.Fatalf("schedule.Build() error = %v", err)
	}
	return s
}

func TestMatchSkillsPicksHighestRequirement(t *testing.T) {
	tasks := []plan.Task{
		{ID: "arch", Name: "arch", Effort: plan.EffortMedium,
			Skills: map[string]float64{plan.AgentSolutionArchitect: 0.8, plan.AgentFullStackDeveloper: 0.5}},
		{ID: "dev", Name: "dev", Effort: plan.EffortMedium,
			Skills: map[string]float64{plan.AgentFullStackDeveloper: 0.9}},
		{ID: "qa", Name: "qa", Effort: plan.EffortMedium,
			Skills: map[string]float64{plan.AgentQATest: 0.8, plan.AgentFullStackDeveloper: 0.8}},
	}

	r := Build(buildSchedule(t, tasks), Options{})

	if got := r.AgentFor("arch"); got != plan.AgentSolutionArchitect {
		t.Errorf("owner(arch) = %s, want solution_architect", got)
	}
	if got := r.AgentFor("dev"); got != plan.AgentFullStackDeveloper {
		t.Errorf("owner(dev) = %s, want full_stack_developer", got)
	}
	// Equal scores resolve in the fixed match order; full_stack_developer
	// precedes qa_test.
	if got := r.AgentFor("qa"); got != plan.AgentFullStackDeveloper {
		t.Errorf("owner(qa) = %s, want full_stack_developer (tie-break)", got)
	}
}

func TestAssignmentTotality(t *testing.T) {
	tasks := []plan.Task{
		{ID: "a", Name: "a", Effort: plan.EffortMedium,
			Skills: map[string]float64{plan.AgentSolutionArchitect: 0.8}},
		{ID: "b", Name: "b", Effort: plan.EffortMedium, DependsOn: []string{"a"},
			Skills: map[string]float64{plan.AgentFullStackDeveloper: 0.8}},
		{ID: "c", Name: "c", Effort: plan.EffortMedium, Skills: map[string]float64{}},
	}

	r := Build(buildSchedule(t, tasks), Options{})

	for _, task := range tasks {
		agent := r.AgentFor(task.ID)
		if agent == "" {
			t.Errorf("task %s has no owner", task.ID)
		}
	}
	// Every task appears in exactly one queue.
	total := 0
	for _, queue := range r.Assignments {
		total += len(queue)
	}
	if total != len(tasks) {
		t.Errorf("queues hold %d instructions, want %d", total, len(tasks))
	}
	// Tasks with no confident skill match default to the full-stack developer.
	if got := r.AgentFor("c"); got != plan.AgentFullStackDeveloper {
		t.Errorf("owner(c) = %s, want full_stack_developer fallback", got)
	}
}

func TestWorkloadBalancing(t *testing.T) {
	// Ten tasks, all matching the full-stack developer at 0.8; one of them
	// high effort. The spread must shrink to the threshold and the
	// high-priority task must stay put.
	var tasks []plan.Task
	for i := 0; i < 10; i++ {
		effort := plan.EffortLow
		if i == 0 {
			effort = plan.EffortHigh
		}
		tasks = append(tasks, plan.Task{
			ID:     fmt.Sprintf("t%02d", i),
			Name:   fmt.Sprintf("t%02d", i),
			Effort: effort,
			Skills: map[string]float64{
				plan.AgentFullStackDeveloper: 0.8,
				plan.AgentQATest:             0.1,
			},
		})
	}

	s := buildSchedule(t, tasks)
	r := Build(s, Options{ImbalanceThreshold: 2})

	lengths := r.QueueLengths()
	if len(lengths) < 2 {
		t.Fatalf("balancing produced a single queue: %v", lengths)
	}
	max, min := 0, len(tasks)
	for _, n := range lengths {
		if n > max {
			max = n
		}
		if n < min {
			min = n
		}
	}
	if max-min > 2 {
		t.Errorf("queue spread = %d (%v), want <= 2", max-min, lengths)
	}

	// Critical and high priority tasks never transfer off their matched agent.
	for id, node := range s.Nodes {
		if !node.Priority.Transferable() && r.Owner[id] != plan.AgentFullStackDeveloper {
			t.Errorf("non-transferable task %s moved to %s", id, r.Owner[id])
		}
	}
}

func TestResourceCapacityWeightsBalancing(t *testing.T) {
	// Nine tasks all matched to the developer: one high-effort anchor and
	// eight low-effort tasks with slack. A declared double capacity halves
	// the developer's weighted load, so the whole queue stays put; without
	// it the balancer spreads the work out.
	var tasks []plan.Task
	for i := 0; i < 9; i++ {
		effort := plan.EffortLow
		if i == 0 {
			effort = plan.EffortHigh
		}
		tasks = append(tasks, plan.Task{
			ID:     fmt.Sprintf("t%d", i),
			Name:   fmt.Sprintf("t%d", i),
			Effort: effort,
			Skills: map[string]float64{plan.AgentFullStackDeveloper: 0.8},
		})
	}

	r := Build(buildSchedule(t, tasks), Options{
		ImbalanceThreshold: 5,
		Resources: []plan.Resource{
			{AgentType: plan.AgentFullStackDeveloper, Capacity: 2},
		},
	})
	if got := len(r.Assignments[plan.AgentFullStackDeveloper]); got != 9 {
		t.Errorf("developer queue = %d tasks, want all 9 (weighted load within threshold)", got)
	}

	r = Build(buildSchedule(t, tasks), Options{ImbalanceThreshold: 5})
	if got := len(r.Assignments[plan.AgentFullStackDeveloper]); got == 9 {
		t.Error("developer kept all 9 tasks despite the imbalance threshold")
	}
}

func TestResourceSkillsBreakTies(t *testing.T) {
	tasks := []plan.Task{
		{ID: "review", Name: "Review the release test plan", Effort: plan.EffortMedium,
			Skills: map[string]float64{
				plan.AgentFullStackDeveloper: 0.6,
				plan.AgentQATest:             0.6,
			}},
	}

	// Without a declared pool the fixed match order keeps the developer.
	r := Build(buildSchedule(t, tasks), Options{})
	if got := r.AgentFor("review"); got != plan.AgentFullStackDeveloper {
		t.Fatalf("owner = %s, want full_stack_developer without a declared pool", got)
	}

	// A declared qa_test specialist whose skill keyword appears in the
	// task text wins the tie.
	r = Build(buildSchedule(t, tasks), Options{
		Resources: []plan.Resource{
			{AgentType: plan.AgentQATest, Skills: []string{"test plan"}},
		},
	})
	if got := r.AgentFor("review"); got != plan.AgentQATest {
		t.Errorf("owner = %s, want qa_test (declared specialist)", got)
	}
}

func TestValidationFlagsUnknownResourceAgent(t *testing.T) {
	tasks := []plan.Task{
		{ID: "a", Name: "a", Effort: plan.EffortMedium,
			Skills: map[string]float64{plan.AgentFullStackDeveloper: 0.8}},
	}

	r := Build(buildSchedule(t, tasks), Options{
		Resources: []plan.Resource{{AgentType: "designer", Capacity: 1}},
	})

	if !r.Validation.IsValid {
		t.Errorf("unknown resource agent invalidated the plan: %+v", r.Validation.Issues)
	}
	found := false
	for _, issue := range r.Validation.Issues {
		if issue.Severity == IssueWarning && strings.Contains(issue.Message, "designer") {
			found = true
		}
	}
	if !found {
		t.Errorf("issues = %+v, want a warning naming the unknown agent type", r.Validation.Issues)
	}
}

func TestQueueOrdering(t *testing.T) {
	tasks := []plan.Task{
		{ID: "spine", Name: "spine", Effort: plan.EffortHigh,
			Skills: map[string]float64{plan.AgentFullStackDeveloper: 0.8}},
		{ID: "later", Name: "later", Effort: plan.EffortLow, DependsOn: []string{"spine"},
			Skills: map[string]float64{plan.AgentFullStackDeveloper: 0.8}},
		{ID: "slacker", Name: "slacker", Effort: plan.EffortLow,
			Skills: map[string]float64{plan.AgentFullStackDeveloper: 0.8}},
	}

	r := Build(buildSchedule(t, tasks), Options{ImbalanceThreshold: 99})

	queue := r.Assignments[plan.AgentFullStackDeveloper]
	if len(queue) != 3 {
		t.Fatalf("queue = %v, want 3 instructions", queue)
	}
	for i := 1; i < len(queue); i++ {
		prev, cur := queue[i-1], queue[i]
		if prev.Priority.Rank() < cur.Priority.Rank() {
			t.Errorf("queue not sorted by priority: %s before %s", prev.TaskID, cur.TaskID)
		}
		if prev.Priority.Rank() == cur.Priority.Rank() && prev.EarliestStart > cur.EarliestStart {
			t.Errorf("queue not sorted by earliest start: %s before %s", prev.TaskID, cur.TaskID)
		}
	}
	if queue[0].TaskID != "spine" {
		t.Errorf("queue head = %s, want spine (critical)", queue[0].TaskID)
	}
}

func TestInstructionCarriesPredecessorOwnership(t *testing.T) {
	tasks := []plan.Task{
		{ID: "design", Name: "design", Effort: plan.EffortMedium,
			Skills: map[string]float64{plan.AgentSolutionArchitect: 0.8}},
		{ID: "impl", Name: "impl", Effort: plan.EffortMedium, DependsOn: []string{"design"},
			Skills: map[string]float64{plan.AgentFullStackDeveloper: 0.8}},
	}

	r := Build(buildSchedule(t, tasks), Options{})

	queue := r.Assignments[plan.AgentFullStackDeveloper]
	if len(queue) != 1 {
		t.Fatalf("developer queue = %v, want 1 instruction", queue)
	}
	inst := queue[0]
	if got := inst.PredecessorOwnership["design"]; got != plan.AgentSolutionArchitect {
		t.Errorf("predecessor ownership = %v, want design -> solution_architect", inst.PredecessorOwnership)
	}
}

func TestValidationFlagsOverlongPlans(t *testing.T) {
	tasks := []plan.Task{
		{ID: "a", Name: "a", Effort: plan.EffortHigh,
			Skills: map[string]float64{plan.AgentFullStackDeveloper: 0.8}},
		{ID: "b", Name: "b", Effort: plan.EffortHigh, DependsOn: []string{"a"},
			Skills: map[string]float64{plan.AgentFullStackDeveloper: 0.8}},
	}

	r := Build(buildSchedule(t, tasks), Options{MaxProjectDurationDays: 5})

	if r.Validation.IsValid {
		t.Error("validation passed a 6-day plan against a 5-day maximum")
	}
	found := false
	for _, issue := range r.Validation.Issues {
		if issue.Severity == IssueWarning {
			found = true
		}
	}
	if !found {
		t.Errorf("issues = %+v, want a duration warning", r.Validation.Issues)
	}
}

func TestValidationAcceptsReasonablePlan(t *testing.T) {
	tasks := []plan.Task{
		{ID: "a", Name: "a", Effort: plan.EffortMedium,
			Skills: map[string]float64{plan.AgentFullStackDeveloper: 0.8}},
	}

	r := Build(buildSchedule(t, tasks), Options{})

	if !r.Validation.IsValid {
		t.Errorf("validation failed: %+v", r.Validation.Issues)
	}
	if len(r.Validation.Issues) != 0 {
		t.Errorf("issues = %+v, want none", r.Validation.Issues)
	}
}

func TestPhaseRecordsCoverEveryPhase(t *testing.T) {
	tasks := []plan.Task{
		{ID: "a", Name: "a", Effort: plan.EffortLow,
			Skills: map[string]float64{plan.AgentFullStackDeveloper: 0.8}},
		{ID: "b", Name: "b", Effort: plan.EffortLow, DependsOn: []string{"a"},
			Skills: map[string]float64{plan.AgentQATest: 0.8}},
	}

	s := buildSchedule(t, tasks)
	r := Build(s, Options{})

	if len(r.Phases) != len(s.Phases) {
		t.Fatalf("got %d phase records, want %d", len(r.Phases), len(s.Phases))
	}
	for i, rec := range r.Phases {
		if rec.PhaseID != i {
			t.Errorf("record %d has phase id %d", i, rec.PhaseID)
		}
		if len(rec.Entries) != len(s.Phases[i].TaskIDs) {
			t.Errorf("record %d has %d entries, want %d", i, len(rec.Entries), len(s.Phases[i].TaskIDs))
		}
		for _, entry := range rec.Entries {
			if entry.Agent == "" {
				t.Errorf("phase %d entry %s has no agent", i, entry.TaskID)
			}
		}
	}
}
