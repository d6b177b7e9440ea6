package schedule

import (
	"sort"
	"time"

	"github.com/harwoeck/planwell/internal/errors"
	"github.com/harwoeck/planwell/internal/plan"
)

// Options controls schedule construction.
type Options struct {
	// CheckpointEveryNPhases inserts a checkpoint after every Nth phase.
	// Values below 1 default to 3.
	CheckpointEveryNPhases int

	// EstStart anchors the timeline to a calendar date. Optional.
	EstStart time.Time
}

// slackThreshold is the slack above which a task is considered low priority.
const slackThreshold = 3

// Build computes the CPM schedule for the given normalized task set.
//
// The forward and backward passes run in a deterministic topological order
// (Kahn's algorithm, ties broken by id), so equal inputs always produce
// equal schedules. Returns a SchedulerError wrapping ErrNonDAG if the graph
// contains a cycle; callers must re-run plan normalization first.
func Build(tasks []plan.Task, opts Options) (*Schedule, error) {
	if opts.CheckpointEveryNPhases < 1 {
		opts.CheckpointEveryNPhases = 3
	}

	order, ok := plan.TopologicalOrder(tasks)
	if !ok {
		return nil, errors.NewSchedulerError("cannot schedule cyclic graph", errors.ErrNonDAG)
	}

	idx := plan.TaskIndex(tasks)
	successors := plan.Successors(tasks)

	nodes := make(map[string]*TaskNode, len(tasks))
	for i := range tasks {
		nodes[tasks[i].ID] = &TaskNode{Task: tasks[i]}
	}

	// Forward pass: ES(v) = max EF(u) over predecessors, EF = ES + duration.
	for _, id := range order {
		node := nodes[id]
		es := 0
		for _, depID := range idx[id].Predecessors() {
			if dep, ok := nodes[depID]; ok && dep.EarliestFinish > es {
				es = dep.EarliestFinish
			}
		}
		node.EarliestStart = es
		node.EarliestFinish = es + node.Task.DurationDays()
	}

	projectEnd := 0
	for _, n := range nodes {
		if n.EarliestFinish > projectEnd {
			projectEnd = n.EarliestFinish
		}
	}

	// Backward pass: LF(v) = min LS(w) over successors, LS = LF - duration.
	for i := len(order) - 1; i >= 0; i-- {
		node := nodes[order[i]]
		lf := projectEnd
		for _, succID := range successors[node.Task.ID] {
			if succ, ok := nodes[succID]; ok && succ.LatestStart < lf {
				lf = succ.LatestStart
			}
		}
		node.LatestFinish = lf
		node.LatestStart = lf - node.Task.DurationDays()
	}

	// Critical path: zero-slack nodes sorted by ES, ties by id.
	var critical []string
	for _, id := range order {
		node := nodes[id]
		node.IsCritical = node.LatestStart == node.EarliestStart
		if node.IsCritical {
			critical = append(critical, id)
		}
	}
	sort.Slice(critical, func(i, j int) bool {
		a, b := nodes[critical[i]], nodes[critical[j]]
		if a.EarliestStart != b.EarliestStart {
			return a.EarliestStart < b.EarliestStart
		}
		return critical[i] < critical[j]
	})

	assignPriorities(nodes, idx)

	edges := collectEdges(tasks, idx)
	phases := buildPhases(nodes)
	timeline := buildTimeline(phases, nodes, opts.EstStart)
	checkpoints := buildCheckpoints(phases, nodes, opts.CheckpointEveryNPhases)

	return &Schedule{
		Nodes:        nodes,
		Edges:        edges,
		CriticalPath: critical,
		Phases:       phases,
		Checkpoints:  checkpoints,
		Timeline:     timeline,
	}, nil
}

// assignPriorities applies the priority rules after the CPM passes:
// critical-path tasks are critical; direct predecessors of critical tasks
// and high-effort tasks are high; slack above the threshold is low;
// everything else is medium.
func assignPriorities(nodes map[string]*TaskNode, idx map[string]*plan.Task) {
	// Tasks that are direct predecessors of a critical task.
	criticalPreds := make(map[string]bool)
	for id, node := range nodes {
		if !node.IsCritical {
			continue
		}
		for _, depID := range idx[id].Predecessors() {
			criticalPreds[depID] = true
		}
	}

	for id, node := range nodes {
		switch {
		case node.IsCritical:
			node.Priority = PriorityCritical
		case criticalPreds[id] || node.Task.Effort == plan.EffortHigh:
			node.Priority = PriorityHigh
		case node.Slack() > slackThreshold:
			node.Priority = PriorityLow
		default:
			node.Priority = PriorityMedium
		}
	}
}

// collectEdges returns the full edge set in deterministic order.
func collectEdges(tasks []plan.Task, idx map[string]*plan.Task) []Edge {
	var edges []Edge
	for i := range tasks {
		for _, depID := range idx[tasks[i].ID].Predecessors() {
			edges = append(edges, Edge{From: depID, To: tasks[i].ID})
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].From != edges[j].From {
			return edges[i].From < edges[j].From
		}
		return edges[i].To < edges[j].To
	})
	return edges
}
