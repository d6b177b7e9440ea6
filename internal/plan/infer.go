package plan

import "strings"

// lifecyclePairs are verb pairs that imply an ordering between tasks in
// earlier and later milestones: a task whose name contains the first verb
// logically precedes one containing the second.
var lifecyclePairs = [][2]string{
	{"design", "implement"},
	{"implement", "test"},
	{"create", "use"},
	{"setup", "configure"},
}

// InferDependencies adds implicit cross-milestone predecessor edges.
//
// For every task t in milestone i, every task p in an earlier milestone j < i
// is considered a candidate predecessor. The edge p -> t is added to
// t.InferredDeps iff IsLogicalDependency(p, t) holds and the edge is not
// already declared.
//
// The heuristic is deterministic and intentionally coarse; it can
// over-constrain plans with parallel sub-tracks, so it can be disabled via
// configuration.
func InferDependencies(tasks []Task) []Task {
	for i := range tasks {
		t := &tasks[i]
		declared := make(map[string]bool, len(t.DependsOn))
		for _, dep := range t.DependsOn {
			declared[dep] = true
		}
		for j := range tasks {
			p := &tasks[j]
			if p.MilestoneIndex >= t.MilestoneIndex {
				continue
			}
			if declared[p.ID] {
				continue
			}
			if IsLogicalDependency(p, t) {
				t.InferredDeps = append(t.InferredDeps, p.ID)
				declared[p.ID] = true
			}
		}
	}
	return tasks
}

// IsLogicalDependency reports whether task p logically precedes task t.
//
// True when either:
//   - their lowercase names share at least two tokens, or
//   - a recognized lifecycle pair links them (design->implement,
//     implement->test, create->use, setup->configure).
func IsLogicalDependency(p, t *Task) bool {
	pTokens := tokenize(p.Name)
	tTokens := tokenize(t.Name)

	shared := 0
	for tok := range pTokens {
		if tTokens[tok] {
			shared++
		}
	}
	if shared >= 2 {
		return true
	}

	pName := strings.ToLower(p.Name)
	tName := strings.ToLower(t.Name)
	for _, pair := range lifecyclePairs {
		if strings.Contains(pName, pair[0]) && strings.Contains(tName, pair[1]) {
			return true
		}
	}
	return false
}

// tokenize splits a name into a set of lowercase alphanumeric tokens.
func tokenize(name string) map[string]bool {
	tokens := make(map[string]bool)
	var sb strings.Builder
	flush := func() {
		if sb.Len() > 0 {
			tokens[sb.String()] = true
			sb.Reset()
		}
	}
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			sb.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return tokens
}
