package tracker

import (
	"testing"
	"time"

	"github.com/harwoeck/planwell/internal/plan"
	"github.com/harwoeck/planwell/internal/schedule"
)

func TestBottleneckBlockedImpactScalesWithDownstream(t *testing.T) {
	tasks := chainTasks("M", "a", "b", "c", "d")

	t.Run("three downstream tasks is high impact", func(t *testing.T) {
		tr := newTestTracker(t, tasks, schedule.Options{})
		if _, err := tr.UpdateStatus("a", StatusBlocked, -1, "waiting on access"); err != nil {
			t.Fatalf("UpdateStatus() error = %v", err)
		}

		got := tr.Bottlenecks()
		if len(got) != 1 {
			t.Fatalf("bottlenecks = %+v, want exactly one", got)
		}
		if got[0].TaskID != "a" || got[0].Impact != ImpactHigh {
			t.Errorf("bottleneck = %+v, want a at high impact", got[0])
		}
		if got[0].BlockedSuccessors != 3 {
			t.Errorf("blocked successors = %d, want 3", got[0].BlockedSuccessors)
		}
	})

	t.Run("one downstream task is medium impact", func(t *testing.T) {
		tr := newTestTracker(t, tasks, schedule.Options{})
		if _, err := tr.UpdateStatus("c", StatusBlocked, -1, ""); err != nil {
			t.Fatalf("UpdateStatus() error = %v", err)
		}

		got := tr.Bottlenecks()
		if len(got) != 1 || got[0].TaskID != "c" || got[0].Impact != ImpactMedium {
			t.Fatalf("bottlenecks = %+v, want c at medium impact", got)
		}
	})
}

func TestBottleneckSuccessorCompletedFirst(t *testing.T) {
	tr := newTestTracker(t, chainTasks("M", "a", "b"), schedule.Options{})

	// b finishes while a is still untouched.
	start(t, tr, "b")
	complete(t, tr, "b")

	got := tr.Bottlenecks()
	if len(got) != 1 {
		t.Fatalf("bottlenecks = %+v, want exactly one", got)
	}
	if got[0].TaskID != "a" || got[0].Impact != ImpactMedium {
		t.Errorf("bottleneck = %+v, want a at medium impact", got[0])
	}
}

func TestBottleneckCriticalTaskOverBudget(t *testing.T) {
	clock := newFakeClock()
	tr := newTestTracker(t, chainTasks("M", "a"), schedule.Options{},
		WithClock(clock.Now), WithEstimatedStart(clock.Now()))

	start(t, tr, "a")
	if got := tr.Bottlenecks(); len(got) != 0 {
		t.Fatalf("bottlenecks = %+v before the budget expired, want none", got)
	}

	// Medium effort budgets two days; three days in flight overruns it.
	clock.Advance(72 * time.Hour)

	got := tr.Bottlenecks()
	if len(got) != 1 || got[0].TaskID != "a" || got[0].Impact != ImpactCritical {
		t.Fatalf("bottlenecks = %+v, want a at critical impact", got)
	}
}

func TestBottleneckReportsHighestImpactOnce(t *testing.T) {
	// a is blocked with three downstream tasks and also has a completed
	// successor; it must appear once, at the higher impact.
	tr := newTestTracker(t, chainTasks("M", "a", "b", "c", "d"), schedule.Options{})
	if _, err := tr.UpdateStatus("a", StatusBlocked, -1, ""); err != nil {
		t.Fatalf("UpdateStatus() error = %v", err)
	}
	start(t, tr, "b")
	complete(t, tr, "b")

	var forA []Bottleneck
	for _, b := range tr.Bottlenecks() {
		if b.TaskID == "a" {
			forA = append(forA, b)
		}
	}
	if len(forA) != 1 {
		t.Fatalf("a reported %d times, want once", len(forA))
	}
	if forA[0].Impact != ImpactHigh {
		t.Errorf("impact = %s, want high", forA[0].Impact)
	}
}

func TestBottleneckSorting(t *testing.T) {
	// Two independent chains: x -> {x1,x2,x3} blocked at the root (high),
	// m -> m1 blocked at the root (medium).
	tasks := []plan.Task{
		{ID: "x", Name: "x", Milestone: "M", Effort: plan.EffortLow},
		{ID: "x1", Name: "x1", Milestone: "M", Effort: plan.EffortLow, DependsOn: []string{"x"}},
		{ID: "x2", Name: "x2", Milestone: "M", Effort: plan.EffortLow, DependsOn: []string{"x1"}},
		{ID: "x3", Name: "x3", Milestone: "M", Effort: plan.EffortLow, DependsOn: []string{"x2"}},
		{ID: "m", Name: "m", Milestone: "M", Effort: plan.EffortLow},
		{ID: "m1", Name: "m1", Milestone: "M", Effort: plan.EffortLow, DependsOn: []string{"m"}},
	}
	tr := newTestTracker(t, tasks, schedule.Options{})
	for _, id := range []string{"m", "x"} {
		if _, err := tr.UpdateStatus(id, StatusBlocked, -1, ""); err != nil {
			t.Fatalf("UpdateStatus() error = %v", err)
		}
	}

	got := tr.Bottlenecks()
	if len(got) != 2 {
		t.Fatalf("bottlenecks = %+v, want 2", got)
	}
	if got[0].TaskID != "x" || got[0].Impact != ImpactHigh {
		t.Errorf("first = %+v, want x at high impact", got[0])
	}
	if got[1].TaskID != "m" || got[1].Impact != ImpactMedium {
		t.Errorf("second = %+v, want m at medium impact", got[1])
	}
}
