package plan

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/harwoeck/planwell/internal/errors"
)

func TestDetectCycleFindsThreeNodeCycle(t *testing.T) {
	tasks := []Task{
		{ID: "a", Name: "a", DependsOn: []string{"b"}},
		{ID: "b", Name: "b", DependsOn: []string{"c"}},
		{ID: "c", Name: "c", DependsOn: []string{"a"}},
	}

	cycle := DetectCycle(tasks)
	if cycle == nil {
		t.Fatal("DetectCycle() = nil, want a cycle")
	}
	if cycle[0] != cycle[len(cycle)-1] {
		t.Errorf("cycle %v does not repeat its first id last", cycle)
	}
	members := make(map[string]bool)
	for _, id := range cycle {
		members[id] = true
	}
	for _, id := range []string{"a", "b", "c"} {
		if !members[id] {
			t.Errorf("cycle %v is missing task %s", cycle, id)
		}
	}
}

func TestDetectCycleAcceptsDAG(t *testing.T) {
	tasks := []Task{
		{ID: "a", Name: "a"},
		{ID: "b", Name: "b", DependsOn: []string{"a"}},
		{ID: "c", Name: "c", DependsOn: []string{"a", "b"}},
	}
	if cycle := DetectCycle(tasks); cycle != nil {
		t.Errorf("DetectCycle() = %v, want nil", cycle)
	}
}

func TestAssertAcyclicReportsCycleError(t *testing.T) {
	tasks := []Task{
		{ID: "a", Name: "a", DependsOn: []string{"b"}},
		{ID: "b", Name: "b", DependsOn: []string{"a"}},
	}

	err := AssertAcyclic(tasks)
	if err == nil {
		t.Fatal("AssertAcyclic() = nil, want error")
	}
	if !errors.Is(err, errors.ErrDependencyCycle) {
		t.Errorf("error = %v, want ErrDependencyCycle", err)
	}

	var cycleErr *errors.CircularDependencyError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("error %v is not a CircularDependencyError", err)
	}
	if len(cycleErr.Cycle) < 3 {
		t.Errorf("cycle path %v is too short", cycleErr.Cycle)
	}
}

func TestTopologicalOrderRespectsEdgesAndTieBreaks(t *testing.T) {
	tasks := []Task{
		{ID: "z", Name: "z"},
		{ID: "a", Name: "a"},
		{ID: "m", Name: "m", DependsOn: []string{"z", "a"}},
	}

	order, ok := TopologicalOrder(tasks)
	if !ok {
		t.Fatal("TopologicalOrder() reported a cycle on a DAG")
	}
	want := []string{"a", "z", "m"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestTopologicalOrderDetectsCycle(t *testing.T) {
	tasks := []Task{
		{ID: "a", Name: "a", DependsOn: []string{"b"}},
		{ID: "b", Name: "b", DependsOn: []string{"a"}},
	}
	if _, ok := TopologicalOrder(tasks); ok {
		t.Error("TopologicalOrder() accepted a cyclic graph")
	}
}

func TestSuccessorsAreSorted(t *testing.T) {
	tasks := []Task{
		{ID: "a", Name: "a"},
		{ID: "z", Name: "z", DependsOn: []string{"a"}},
		{ID: "b", Name: "b", DependsOn: []string{"a"}},
	}

	succ := Successors(tasks)
	got := succ["a"]
	want := []string{"b", "z"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("Successors()[a] = %v, want %v", got, want)
	}
}

// randomPlan builds a structurally valid plan from a seed: declared
// dependencies only reference earlier-declared tasks, so ingestion always
// succeeds and inference is the only source of additional edges.
func randomPlan(milestones, tasksPer int, seed int64) *Plan {
	rng := rand.New(rand.NewSource(seed))
	verbs := []string{"Design", "Implement", "Test", "Create", "Use", "Setup", "Configure", "Review"}
	nouns := []string{"auth", "billing", "search", "profile", "gateway", "cache"}
	efforts := []Effort{EffortLow, EffortMedium, EffortHigh}

	p := &Plan{Name: "generated"}
	var priorIDs []string
	for m := 0; m < milestones; m++ {
		ms := Milestone{Name: fmt.Sprintf("M%d", m+1)}
		for i := 0; i < tasksPer; i++ {
			id := fmt.Sprintf("m%d-task%d", m, i)
			spec := TaskSpec{
				ID:          id,
				Name:        fmt.Sprintf("%s %s", verbs[rng.Intn(len(verbs))], nouns[rng.Intn(len(nouns))]),
				Description: "generated",
				Effort:      efforts[rng.Intn(len(efforts))],
			}
			for _, prior := range priorIDs {
				if rng.Intn(4) == 0 {
					spec.DependsOn = append(spec.DependsOn, prior)
				}
			}
			ms.Tasks = append(ms.Tasks, spec)
		}
		p.Milestones = append(p.Milestones, ms)
		for i := 0; i < tasksPer; i++ {
			priorIDs = append(priorIDs, fmt.Sprintf("m%d-task%d", m, i))
		}
	}
	return p
}

func TestNormalizeAlwaysYieldsDAG(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("normalized plans are acyclic", prop.ForAll(
		func(milestones, tasksPer int, seed int64) bool {
			tasks, _, err := Normalize(randomPlan(milestones, tasksPer, seed), true)
			if err != nil {
				return false
			}
			if DetectCycle(tasks) != nil {
				return false
			}
			order, ok := TopologicalOrder(tasks)
			return ok && len(order) == len(tasks)
		},
		gen.IntRange(1, 4),
		gen.IntRange(1, 5),
		gen.Int64(),
	))

	properties.TestingRun(t)
}
