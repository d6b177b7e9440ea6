package plan

import (
	"sort"

	"github.com/harwoeck/planwell/internal/errors"
)

// AssertAcyclic confirms the task graph (declared plus inferred edges) is a
// DAG. Returns a CircularDependencyError carrying the offending cycle path
// verbatim if a cycle exists, nil otherwise.
//
// The caller is expected to remove an edge and retry.
func AssertAcyclic(tasks []Task) error {
	if cycle := DetectCycle(tasks); cycle != nil {
		return errors.NewCircularDependency(cycle)
	}
	return nil
}

// DetectCycle returns the task ids forming a dependency cycle, first id
// repeated last, or nil if the graph is acyclic. Tasks are visited in
// declaration order so the reported cycle is deterministic.
func DetectCycle(tasks []Task) []string {
	idx := TaskIndex(tasks)

	visited := make(map[string]bool)
	recStack := make(map[string]bool)
	parent := make(map[string]string)

	var dfs func(taskID string) []string
	dfs = func(taskID string) []string {
		visited[taskID] = true
		recStack[taskID] = true

		task, ok := idx[taskID]
		if !ok {
			recStack[taskID] = false
			return nil
		}

		for _, depID := range task.Predecessors() {
			if !visited[depID] {
				parent[depID] = taskID
				if cycle := dfs(depID); cycle != nil {
					return cycle
				}
			} else if recStack[depID] {
				// Found a cycle - reconstruct it
				cycle := []string{depID}
				current := taskID
				for current != depID {
					cycle = append([]string{current}, cycle...)
					current = parent[current]
				}
				cycle = append([]string{depID}, cycle...)
				return cycle
			}
		}

		recStack[taskID] = false
		return nil
	}

	for _, task := range tasks {
		if !visited[task.ID] {
			if cycle := dfs(task.ID); cycle != nil {
				return cycle
			}
		}
	}

	return nil
}

// TopologicalOrder computes a deterministic topological ordering of the
// task graph using Kahn's algorithm, breaking ties lexicographically by id.
//
// The second return value is false if the graph contains a cycle, in which
// case the returned order covers only the acyclic prefix.
func TopologicalOrder(tasks []Task) ([]string, bool) {
	idx := TaskIndex(tasks)

	inDegree := make(map[string]int, len(tasks))
	successors := make(map[string][]string, len(tasks))
	for _, t := range tasks {
		inDegree[t.ID] = 0
	}
	for _, t := range tasks {
		for _, depID := range idx[t.ID].Predecessors() {
			if _, ok := idx[depID]; ok {
				inDegree[t.ID]++
				successors[depID] = append(successors[depID], t.ID)
			}
		}
	}

	var ready []string
	for id, deg := range inDegree {
		if deg == 0 {
			ready = append(ready, id)
		}
	}
	sort.Strings(ready)

	order := make([]string, 0, len(tasks))
	for len(ready) > 0 {
		// Pop the lexicographically smallest ready id for determinism.
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)

		var unlocked []string
		for _, succ := range successors[id] {
			inDegree[succ]--
			if inDegree[succ] == 0 {
				unlocked = append(unlocked, succ)
			}
		}
		if len(unlocked) > 0 {
			ready = append(ready, unlocked...)
			sort.Strings(ready)
		}
	}

	return order, len(order) == len(tasks)
}

// Successors builds the forward adjacency map (predecessor -> successor ids)
// over declared and inferred edges. Successor lists are sorted by id.
func Successors(tasks []Task) map[string][]string {
	succ := make(map[string][]string, len(tasks))
	for i := range tasks {
		for _, depID := range tasks[i].Predecessors() {
			succ[depID] = append(succ[depID], tasks[i].ID)
		}
	}
	for id := range succ {
		sort.Strings(succ[id])
	}
	return succ
}

// Normalize runs the full normalization pipeline: ingest, optional
// dependency inference, skill scoring, and the acyclicity check.
func Normalize(p *Plan, inferDeps bool) ([]Task, []string, error) {
	tasks, warnings, err := Ingest(p)
	if err != nil {
		return nil, warnings, err
	}
	if inferDeps {
		tasks = InferDependencies(tasks)
	}
	tasks = ComputeAllSkillRequirements(tasks)
	if err := AssertAcyclic(tasks); err != nil {
		return nil, warnings, err
	}
	return tasks, warnings, nil
}
