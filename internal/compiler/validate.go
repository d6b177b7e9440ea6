package compiler

import (
	"fmt"
	"strings"
)

// ValidateAll checks the artifact collection against the project structure
// and the artifact dependency graph.
//
// Errors: a cycle among artifact dependencies, or a dependency referencing
// an unregistered artifact. Warnings: a required file no artifact provides,
// or an artifact path outside the permitted prefixes for its type. Info: a
// component type with no artifact present.
func (p *Project) ValidateAll() []ValidationMessage {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.validateLocked()
}

func (p *Project) validateLocked() []ValidationMessage {
	var msgs []ValidationMessage

	// Dependency references and cycles.
	for _, id := range p.order {
		a := p.artifacts[id]
		for _, dep := range a.Dependencies {
			if _, ok := p.artifacts[dep]; !ok {
				msgs = append(msgs, ValidationMessage{
					Severity:   SeverityError,
					ArtifactID: id,
					Message:    fmt.Sprintf("artifact %s depends on unregistered artifact %s", a.Name, dep),
					Suggestion: "register the missing artifact or drop the dependency",
				})
			}
		}
	}
	if cycle := p.dependencyCycleLocked(); cycle != nil {
		msgs = append(msgs, ValidationMessage{
			Severity:   SeverityError,
			ArtifactID: cycle[0],
			Message:    fmt.Sprintf("artifact dependency cycle: %s", strings.Join(cycle, " -> ")),
			Suggestion: "remove one dependency edge from the cycle",
		})
	}

	// Required files.
	claimed := make(map[string]bool, len(p.paths))
	for fp := range p.paths {
		claimed[fp] = true
	}
	for _, required := range p.structure.RequiredFiles {
		if !claimed[normalizePath(required)] {
			msgs = append(msgs, ValidationMessage{
				Severity:   SeverityWarning,
				Message:    fmt.Sprintf("required file %s is not provided by any artifact", required),
				Suggestion: "add an artifact with this path",
			})
		}
	}

	// Placement.
	for _, id := range p.order {
		a := p.artifacts[id]
		if a.FilePath == "" {
			continue
		}
		if !p.pathPermitted(a.ComponentType, a.FilePath) {
			msgs = append(msgs, ValidationMessage{
				Severity:   SeverityWarning,
				ArtifactID: id,
				Message: fmt.Sprintf("path %s is outside the permitted directories for %s artifacts",
					a.FilePath, a.ComponentType),
				Suggestion: fmt.Sprintf("place it under one of: %s",
					strings.Join(p.structure.FileMappings[a.ComponentType], ", ")),
			})
		}
	}

	// Coverage.
	present := make(map[ComponentType]bool)
	for _, id := range p.order {
		present[p.artifacts[id].ComponentType] = true
	}
	for _, ct := range ComponentTypes() {
		if !present[ct] {
			msgs = append(msgs, ValidationMessage{
				Severity: SeverityInfo,
				Message:  fmt.Sprintf("no %s artifact present", ct),
			})
		}
	}

	return msgs
}

// pathPermitted reports whether fp sits under a permitted prefix for the
// component type. An empty prefix permits the project root.
func (p *Project) pathPermitted(ct ComponentType, fp string) bool {
	prefixes, ok := p.structure.FileMappings[ct]
	if !ok || len(prefixes) == 0 {
		return true
	}
	for _, prefix := range prefixes {
		if prefix == "" {
			if !strings.Contains(fp, "/") {
				return true
			}
			continue
		}
		if fp == prefix || strings.HasPrefix(fp, prefix+"/") {
			return true
		}
	}
	return false
}

// dependencyCycleLocked runs a DFS over the artifact dependency graph and
// returns the first cycle found, first id repeated last, or nil. Artifacts
// are visited in registration order so the reported cycle is deterministic.
func (p *Project) dependencyCycleLocked() []string {
	visited := make(map[string]bool)
	recStack := make(map[string]bool)
	parent := make(map[string]string)

	var dfs func(id string) []string
	dfs = func(id string) []string {
		visited[id] = true
		recStack[id] = true

		for _, dep := range p.artifacts[id].Dependencies {
			if _, ok := p.artifacts[dep]; !ok {
				continue // reported separately as a missing reference
			}
			if !visited[dep] {
				parent[dep] = id
				if cycle := dfs(dep); cycle != nil {
					return cycle
				}
			} else if recStack[dep] {
				cycle := []string{dep}
				current := id
				for current != dep {
					cycle = append([]string{current}, cycle...)
					current = parent[current]
				}
				cycle = append([]string{dep}, cycle...)
				return cycle
			}
		}

		recStack[id] = false
		return nil
	}

	for _, id := range p.order {
		if !visited[id] {
			if cycle := dfs(id); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}
