package compiler

import (
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/harwoeck/planwell/internal/errors"
	"github.com/harwoeck/planwell/internal/logging"
)

// Compiler creates and tracks project handles.
type Compiler struct {
	mu       sync.Mutex
	projects map[string]*Project

	log *logging.Logger
	now func() time.Time
}

// CompilerOption customizes a Compiler.
type CompilerOption func(*Compiler)

// WithLogger sets the structured logger.
func WithLogger(log *logging.Logger) CompilerOption {
	return func(c *Compiler) { c.log = log }
}

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) CompilerOption {
	return func(c *Compiler) { c.now = now }
}

// NewCompiler creates an empty Compiler.
func NewCompiler(opts ...CompilerOption) *Compiler {
	c := &Compiler{
		projects: make(map[string]*Project),
		log:      logging.NopLogger(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CreateProject creates a new project handle. When the name collides with an
// existing project, a version suffix is appended (_v1, _v2, ...).
func (c *Compiler) CreateProject(name string, ptype ProjectType, outputBase string) *Project {
	c.mu.Lock()
	defer c.mu.Unlock()

	final := name
	for v := 1; ; v++ {
		if _, taken := c.projects[final]; !taken {
			break
		}
		final = fmt.Sprintf("%s_v%d", name, v)
	}

	p := &Project{
		Name:       final,
		Type:       ptype,
		OutputBase: outputBase,
		structure:  StructureFor(ptype),
		artifacts:  make(map[string]*Artifact),
		paths:      make(map[string]string),
		log:        c.log.WithComponent("compiler"),
		now:        c.now,
	}
	c.projects[final] = p
	c.log.Info("project created", "name", final, "type", ptype.String(), "output_base", outputBase)
	return p
}

// Project returns the handle for a previously created project.
func (c *Compiler) Project(name string) (*Project, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.projects[name]
	if !ok {
		return nil, errors.NewCompileError("unknown project", errors.ErrProjectNotFound)
	}
	return p, nil
}

// Project is a long-lived handle to one artifact collection.
//
// Registration is serialized behind a write lock; reads may run
// concurrently. Artifacts are append-only: conflict resolution renames,
// it never removes.
type Project struct {
	// Name is the (possibly version-suffixed) project name.
	Name string

	// Type selects the structure preset.
	Type ProjectType

	// OutputBase is the directory Materialize writes under.
	OutputBase string

	mu        sync.RWMutex
	structure ProjectStructure
	artifacts map[string]*Artifact
	order     []string          // registration order
	paths     map[string]string // normalized path -> artifact id
	messages  []ValidationMessage

	log *logging.Logger
	now func() time.Time
}

// Structure returns the project's structure preset.
func (p *Project) Structure() ProjectStructure {
	return p.structure
}

// RegisterArtifact adds an artifact to the project. An id is assigned when
// the artifact carries none. When the artifact's path collides with an
// already registered artifact, the newer of the two keeps the path and the
// older is renamed to <base>_from_<producer_agent><ext>; a warning naming
// both artifacts is recorded.
func (p *Project) RegisterArtifact(a Artifact) (string, error) {
	if a.Name == "" {
		return "", errors.NewCompileError("artifact has no name", errors.ErrInvalidInput)
	}
	if !a.ComponentType.IsValid() {
		return "", errors.NewCompileError(
			fmt.Sprintf("unrecognized component type %q for artifact %s", a.ComponentType, a.Name),
			errors.ErrInvalidInput)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.registerLocked(a)
}

// BulkRegister adds a batch of artifacts attributed to one producer.
// Artifacts that fail validation are skipped; registration continues with
// the rest.
func (p *Project) BulkRegister(artifacts []Artifact, producer string) BulkSummary {
	p.mu.Lock()
	defer p.mu.Unlock()

	var summary BulkSummary
	for _, a := range artifacts {
		if a.ProducerAgent == "" {
			a.ProducerAgent = producer
		}
		if a.Name == "" || !a.ComponentType.IsValid() {
			p.messages = append(p.messages, ValidationMessage{
				Severity:   SeverityWarning,
				ArtifactID: a.ID,
				Message:    fmt.Sprintf("skipped artifact %q: missing name or unrecognized component type", a.Name),
			})
			continue
		}

		before := len(p.messages)
		id, err := p.registerLocked(a)
		if err != nil {
			continue
		}
		summary.Registered++
		summary.ArtifactIDs = append(summary.ArtifactIDs, id)
		if len(p.messages) > before {
			summary.Renamed++
		}
	}
	return summary
}

// registerLocked performs the registration. Caller holds the lock.
func (p *Project) registerLocked(a Artifact) (string, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if _, exists := p.artifacts[a.ID]; exists {
		return "", errors.NewCompileError(
			fmt.Sprintf("artifact id %s already registered", a.ID), errors.ErrInvalidInput)
	}
	if a.Timestamp.IsZero() {
		a.Timestamp = p.now()
	}

	if a.FilePath != "" {
		a.FilePath = normalizePath(a.FilePath)
		if holderID, taken := p.paths[a.FilePath]; taken {
			p.resolvePathCollisionLocked(&a, holderID)
		}
		p.paths[a.FilePath] = a.ID
	}

	cp := a
	p.artifacts[a.ID] = &cp
	p.order = append(p.order, a.ID)
	p.log.Debug("artifact registered", "id", a.ID, "name", a.Name,
		"type", a.ComponentType.String(), "producer", a.ProducerAgent)
	return a.ID, nil
}

// resolvePathCollisionLocked settles a registration-time path collision.
// The newer artifact by timestamp keeps the contested path; the older one is
// renamed to <base>_from_<producer><ext>. Caller holds the lock.
func (p *Project) resolvePathCollisionLocked(a *Artifact, holderID string) {
	contested := a.FilePath
	holder := p.artifacts[holderID]

	if holder != nil && a.Timestamp.After(holder.Timestamp) {
		holder.FilePath = p.freePathLocked(renameForProducer(contested, holder.ProducerAgent))
		p.paths[holder.FilePath] = holder.ID
		p.messages = append(p.messages, ValidationMessage{
			Severity:   SeverityWarning,
			ArtifactID: holder.ID,
			Message: fmt.Sprintf("path %s claimed by both %s and %s; older artifact %s renamed to %s",
				contested, holder.ID, a.ID, holder.ID, holder.FilePath),
			Suggestion: "coordinate producers so paths are unique",
		})
		p.log.Warn("artifact path collision",
			"artifact", holder.Name, "path", contested, "renamed_to", holder.FilePath)
		return
	}

	keptID := holderID
	renamed := p.freePathLocked(renameForProducer(contested, a.ProducerAgent))
	p.messages = append(p.messages, ValidationMessage{
		Severity:   SeverityWarning,
		ArtifactID: a.ID,
		Message: fmt.Sprintf("path %s claimed by both %s and %s; older artifact %s renamed to %s",
			contested, keptID, a.ID, a.ID, renamed),
		Suggestion: "coordinate producers so paths are unique",
	})
	p.log.Warn("artifact path collision",
		"artifact", a.Name, "path", contested, "renamed_to", renamed)
	a.FilePath = renamed
}

// Artifact returns a copy of the artifact with the given id.
func (p *Project) Artifact(id string) (Artifact, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	a, ok := p.artifacts[id]
	if !ok {
		return Artifact{}, errors.NewCompileError("unknown artifact", errors.ErrArtifactNotFound)
	}
	return *a, nil
}

// Artifacts returns copies of all artifacts in registration order.
func (p *Project) Artifacts() []Artifact {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]Artifact, 0, len(p.order))
	for _, id := range p.order {
		out = append(out, *p.artifacts[id])
	}
	return out
}

// Messages returns all accumulated validation messages.
func (p *Project) Messages() []ValidationMessage {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]ValidationMessage, len(p.messages))
	copy(out, p.messages)
	return out
}

// freePathLocked returns fp, or the first numbered variant of fp that no
// registered artifact claims. Caller holds the lock.
func (p *Project) freePathLocked(fp string) string {
	if _, taken := p.paths[fp]; !taken {
		return fp
	}
	ext := path.Ext(fp)
	stem := strings.TrimSuffix(fp, ext)
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s_%d%s", stem, n, ext)
		if _, taken := p.paths[candidate]; !taken {
			return candidate
		}
	}
}

// normalizePath cleans a producer-supplied path into a project-relative,
// slash-separated form.
func normalizePath(fp string) string {
	fp = strings.ReplaceAll(fp, "\\", "/")
	fp = path.Clean(fp)
	fp = strings.TrimPrefix(fp, "/")
	return fp
}

// renameForProducer derives the collision-avoiding name
// <base>_from_<producer><ext>.
func renameForProducer(fp, producer string) string {
	dir := path.Dir(fp)
	base := path.Base(fp)
	ext := path.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	if producer == "" {
		producer = "unknown"
	}
	renamed := fmt.Sprintf("%s_from_%s%s", stem, slugify(producer), ext)
	if dir == "." {
		return renamed
	}
	return path.Join(dir, renamed)
}
