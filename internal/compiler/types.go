// Package compiler collects artifacts from heterogeneous producers and
// materializes them into a valid project directory.
//
// A Project is a long-lived handle: artifact registration is serialized
// behind a write lock, reads may run concurrently. Conflicting artifacts
// (duplicate paths, duplicate name+type pairs) are resolved by renaming
// before materialization, and every resolution is recorded.
package compiler

import (
	"regexp"
	"strings"
	"time"
)

// -----------------------------------------------------------------------------
// Component Type
// -----------------------------------------------------------------------------

// ComponentType classifies an artifact.
type ComponentType string

const (
	// ComponentCode is source code.
	ComponentCode ComponentType = "code"

	// ComponentDocumentation is prose documentation.
	ComponentDocumentation ComponentType = "documentation"

	// ComponentConfig is configuration.
	ComponentConfig ComponentType = "config"

	// ComponentResource is a static resource (assets, data files).
	ComponentResource ComponentType = "resource"

	// ComponentTest is test code.
	ComponentTest ComponentType = "test"

	// ComponentBuild is build tooling (manifests, scripts).
	ComponentBuild ComponentType = "build"
)

// String returns the string representation of the component type.
func (c ComponentType) String() string {
	return string(c)
}

// IsValid returns true if this is a recognized component type.
func (c ComponentType) IsValid() bool {
	switch c {
	case ComponentCode, ComponentDocumentation, ComponentConfig,
		ComponentResource, ComponentTest, ComponentBuild:
		return true
	default:
		return false
	}
}

// ComponentTypes returns every component type, in a stable order.
func ComponentTypes() []ComponentType {
	return []ComponentType{
		ComponentCode, ComponentDocumentation, ComponentConfig,
		ComponentResource, ComponentTest, ComponentBuild,
	}
}

// defaultExtensions maps component types to the extension used when an
// artifact carries no file path of its own.
var defaultExtensions = map[ComponentType]string{
	ComponentCode:          ".go",
	ComponentDocumentation: ".md",
	ComponentConfig:        ".yaml",
	ComponentResource:      ".txt",
	ComponentTest:          "_test.go",
	ComponentBuild:         ".sh",
}

// Extension returns the default file extension for the component type.
func (c ComponentType) Extension() string {
	if ext, ok := defaultExtensions[c]; ok {
		return ext
	}
	return ".txt"
}

// -----------------------------------------------------------------------------
// Artifact
// -----------------------------------------------------------------------------

// Artifact is one producer-emitted output.
//
// Content may be a string (written as UTF-8), []byte (written verbatim), a
// map or slice (written as indented JSON), or any other value (written via
// its string form).
type Artifact struct {
	// ID uniquely identifies the artifact. Assigned on registration when
	// empty.
	ID string `json:"id"`

	// Name is the producer-facing artifact name.
	Name string `json:"name"`

	// ComponentType classifies the artifact.
	ComponentType ComponentType `json:"component_type"`

	// ProducerAgent names the agent that emitted the artifact.
	ProducerAgent string `json:"producer_agent"`

	// Content is the artifact payload.
	Content any `json:"content,omitempty"`

	// FilePath is the path relative to the project root, if the producer
	// chose one. Assigned during materialization otherwise.
	FilePath string `json:"file_path,omitempty"`

	// Dependencies lists artifact ids this artifact depends on.
	Dependencies []string `json:"dependencies,omitempty"`

	// Metadata carries auxiliary producer-supplied fields.
	Metadata map[string]string `json:"metadata,omitempty"`

	// Timestamp is when the artifact was produced. Newest wins during
	// conflict resolution.
	Timestamp time.Time `json:"timestamp"`
}

// -----------------------------------------------------------------------------
// Project Structure
// -----------------------------------------------------------------------------

// ProjectType selects a structure preset.
type ProjectType string

const (
	// ProjectWebApp is a frontend/backend web application.
	ProjectWebApp ProjectType = "web_app"

	// ProjectAPI is a backend service.
	ProjectAPI ProjectType = "api"

	// ProjectCLI is a command-line tool.
	ProjectCLI ProjectType = "cli"

	// ProjectLibrary is a reusable library.
	ProjectLibrary ProjectType = "library"

	// ProjectGeneric is the fallback structure.
	ProjectGeneric ProjectType = "generic"
)

// String returns the string representation of the project type.
func (p ProjectType) String() string {
	return string(p)
}

// ProjectStructure defines the directory layout materialization creates and
// the placement rules validation enforces.
type ProjectStructure struct {
	// Directories maps top-level directory names to their subdirectories.
	Directories map[string][]string `json:"directories"`

	// FileMappings maps a component type to its permitted directory
	// prefixes. The first prefix is where unplaced artifacts land.
	FileMappings map[ComponentType][]string `json:"file_mappings"`

	// RequiredFiles must exist after materialization; missing ones produce
	// a WARNING.
	RequiredFiles []string `json:"required_files"`
}

// StructureFor returns the structure preset for the given project type.
func StructureFor(ptype ProjectType) ProjectStructure {
	switch ptype {
	case ProjectWebApp:
		return ProjectStructure{
			Directories: map[string][]string{
				"src":    {"components", "pages", "styles"},
				"public": nil,
				"tests":  nil,
				"docs":   nil,
				"config": nil,
			},
			FileMappings: map[ComponentType][]string{
				ComponentCode:          {"src", "src/components", "src/pages"},
				ComponentDocumentation: {"docs"},
				ComponentConfig:        {"config"},
				ComponentResource:      {"public"},
				ComponentTest:          {"tests"},
				ComponentBuild:         {""},
			},
			RequiredFiles: []string{"README.md"},
		}
	case ProjectAPI:
		return ProjectStructure{
			Directories: map[string][]string{
				"src":    {"handlers", "models", "middleware"},
				"tests":  nil,
				"docs":   nil,
				"config": nil,
			},
			FileMappings: map[ComponentType][]string{
				ComponentCode:          {"src", "src/handlers", "src/models", "src/middleware"},
				ComponentDocumentation: {"docs"},
				ComponentConfig:        {"config"},
				ComponentResource:      {"src"},
				ComponentTest:          {"tests"},
				ComponentBuild:         {""},
			},
			RequiredFiles: []string{"README.md"},
		}
	case ProjectCLI:
		return ProjectStructure{
			Directories: map[string][]string{
				"cmd":      nil,
				"internal": nil,
				"tests":    nil,
				"docs":     nil,
			},
			FileMappings: map[ComponentType][]string{
				ComponentCode:          {"cmd", "internal"},
				ComponentDocumentation: {"docs"},
				ComponentConfig:        {""},
				ComponentResource:      {"internal"},
				ComponentTest:          {"tests"},
				ComponentBuild:         {""},
			},
			RequiredFiles: []string{"README.md"},
		}
	case ProjectLibrary:
		return ProjectStructure{
			Directories: map[string][]string{
				"lib":      nil,
				"tests":    nil,
				"docs":     nil,
				"examples": nil,
			},
			FileMappings: map[ComponentType][]string{
				ComponentCode:          {"lib"},
				ComponentDocumentation: {"docs"},
				ComponentConfig:        {""},
				ComponentResource:      {"examples"},
				ComponentTest:          {"tests"},
				ComponentBuild:         {""},
			},
			RequiredFiles: []string{"README.md"},
		}
	default:
		return ProjectStructure{
			Directories: map[string][]string{
				"src":   nil,
				"tests": nil,
				"docs":  nil,
			},
			FileMappings: map[ComponentType][]string{
				ComponentCode:          {"src"},
				ComponentDocumentation: {"docs"},
				ComponentConfig:        {""},
				ComponentResource:      {"src"},
				ComponentTest:          {"tests"},
				ComponentBuild:         {""},
			},
			RequiredFiles: []string{"README.md"},
		}
	}
}

// -----------------------------------------------------------------------------
// Validation
// -----------------------------------------------------------------------------

// MessageSeverity classifies a validation message.
type MessageSeverity string

const (
	// SeverityError blocks a successful compilation.
	SeverityError MessageSeverity = "error"

	// SeverityWarning flags a problem that does not block compilation.
	SeverityWarning MessageSeverity = "warning"

	// SeverityInfo is advisory.
	SeverityInfo MessageSeverity = "info"
)

// ValidationMessage is one finding from artifact validation.
type ValidationMessage struct {
	// Severity classifies the finding.
	Severity MessageSeverity `json:"severity"`

	// ArtifactID identifies the offending artifact, when one applies.
	ArtifactID string `json:"artifact_id,omitempty"`

	// Message describes the finding.
	Message string `json:"message"`

	// Suggestion proposes a fix, when one is known.
	Suggestion string `json:"suggestion,omitempty"`
}

// -----------------------------------------------------------------------------
// Conflict Resolution
// -----------------------------------------------------------------------------

// Resolution records one conflict fix: the losing artifact was renamed so
// the newest artifact keeps the contested path or name.
type Resolution struct {
	// ArtifactID is the renamed artifact.
	ArtifactID string `json:"artifact_id"`

	// KeptArtifactID is the artifact that kept the contested slot.
	KeptArtifactID string `json:"kept_artifact_id"`

	// OldPath and NewPath record the rename.
	OldPath string `json:"old_path"`
	NewPath string `json:"new_path"`

	// Reason explains which conflict rule fired.
	Reason string `json:"reason"`
}

// -----------------------------------------------------------------------------
// Compilation Result
// -----------------------------------------------------------------------------

// ComponentSummary describes one materialized artifact in the compilation
// metadata.
type ComponentSummary struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	ComponentType ComponentType `json:"component_type"`
	ProducerAgent string        `json:"producer_agent"`
	FilePath      string        `json:"file_path"`
}

// CompilationResult is the outcome of Materialize.
type CompilationResult struct {
	// ProjectName and ProjectType identify the project.
	ProjectName string      `json:"project_name"`
	ProjectType ProjectType `json:"project_type"`

	// OutputDir is the materialized directory.
	OutputDir string `json:"output_dir"`

	// Timestamp is when materialization ran, in UTC.
	Timestamp time.Time `json:"timestamp"`

	// Success is true iff validation produced no error-level message.
	Success bool `json:"success"`

	// Components lists every materialized artifact.
	Components []ComponentSummary `json:"components"`

	// ValidationMessages holds all findings, including registration and
	// conflict-resolution warnings.
	ValidationMessages []ValidationMessage `json:"validation_messages"`
}

// BulkSummary reports the outcome of a bulk registration.
type BulkSummary struct {
	// Registered counts successfully registered artifacts.
	Registered int `json:"registered"`

	// Renamed counts artifacts renamed due to path collisions.
	Renamed int `json:"renamed"`

	// ArtifactIDs lists the assigned ids, in registration order.
	ArtifactIDs []string `json:"artifact_ids"`
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// slugify normalizes a name into a lowercase filesystem-safe slug.
func slugify(name string) string {
	s := slugPattern.ReplaceAllString(strings.ToLower(name), "_")
	s = strings.Trim(s, "_")
	if s == "" {
		return "artifact"
	}
	return s
}
