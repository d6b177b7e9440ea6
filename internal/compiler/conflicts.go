package compiler

import (
	"fmt"
	"sort"
)

// ResolveConflicts scans the artifact collection for duplicate normalized
// paths and duplicate (name, component type) pairs. For each conflict group
// the newest artifact by timestamp keeps its slot; the others are renamed
// to <base>_from_<producer><ext>. Every rename is recorded and returned.
func (p *Project) ResolveConflicts() []Resolution {
	p.mu.Lock()
	defer p.mu.Unlock()

	var resolutions []Resolution
	resolutions = append(resolutions, p.resolvePathConflictsLocked()...)
	resolutions = append(resolutions, p.resolveNameConflictsLocked()...)

	for _, r := range resolutions {
		p.messages = append(p.messages, ValidationMessage{
			Severity:   SeverityWarning,
			ArtifactID: r.ArtifactID,
			Message: fmt.Sprintf("conflict resolved: %s renamed %s -> %s (%s)",
				r.ArtifactID, r.OldPath, r.NewPath, r.Reason),
		})
		p.log.Warn("conflict resolved", "artifact", r.ArtifactID,
			"old_path", r.OldPath, "new_path", r.NewPath, "reason", r.Reason)
	}
	return resolutions
}

// resolvePathConflictsLocked handles artifacts sharing a normalized path.
func (p *Project) resolvePathConflictsLocked() []Resolution {
	byPath := make(map[string][]*Artifact)
	for _, id := range p.order {
		a := p.artifacts[id]
		if a.FilePath != "" {
			byPath[a.FilePath] = append(byPath[a.FilePath], a)
		}
	}

	var groups []string
	for fp, members := range byPath {
		if len(members) > 1 {
			groups = append(groups, fp)
		}
	}
	sort.Strings(groups)

	var resolutions []Resolution
	for _, fp := range groups {
		kept, losers := splitNewest(byPath[fp])
		for _, a := range losers {
			oldPath := a.FilePath
			a.FilePath = p.freePathLocked(renameForProducer(oldPath, a.ProducerAgent))
			p.paths[a.FilePath] = a.ID
			resolutions = append(resolutions, Resolution{
				ArtifactID:     a.ID,
				KeptArtifactID: kept.ID,
				OldPath:        oldPath,
				NewPath:        a.FilePath,
				Reason:         "duplicate path",
			})
		}
		p.paths[fp] = kept.ID
	}
	return resolutions
}

// resolveNameConflictsLocked handles artifacts sharing a (name, type) pair.
func (p *Project) resolveNameConflictsLocked() []Resolution {
	type key struct {
		name  string
		ctype ComponentType
	}
	byKey := make(map[key][]*Artifact)
	for _, id := range p.order {
		a := p.artifacts[id]
		byKey[key{a.Name, a.ComponentType}] = append(byKey[key{a.Name, a.ComponentType}], a)
	}

	var groups []key
	for k, members := range byKey {
		if len(members) > 1 {
			groups = append(groups, k)
		}
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].name != groups[j].name {
			return groups[i].name < groups[j].name
		}
		return groups[i].ctype < groups[j].ctype
	})

	var resolutions []Resolution
	for _, k := range groups {
		kept, losers := splitNewest(byKey[k])
		for _, a := range losers {
			producer := a.ProducerAgent
			if producer == "" {
				producer = "unknown"
			}
			oldName := a.Name
			a.Name = fmt.Sprintf("%s_from_%s", oldName, slugify(producer))
			resolutions = append(resolutions, Resolution{
				ArtifactID:     a.ID,
				KeptArtifactID: kept.ID,
				OldPath:        oldName,
				NewPath:        a.Name,
				Reason:         "duplicate name and type",
			})
		}
	}
	return resolutions
}

// splitNewest partitions a conflict group into the newest artifact and the
// rest. Ties on timestamp keep the earliest registered.
func splitNewest(group []*Artifact) (*Artifact, []*Artifact) {
	kept := group[0]
	for _, a := range group[1:] {
		if a.Timestamp.After(kept.Timestamp) {
			kept = a
		}
	}
	losers := make([]*Artifact, 0, len(group)-1)
	for _, a := range group {
		if a != kept {
			losers = append(losers, a)
		}
	}
	return kept, losers
}
