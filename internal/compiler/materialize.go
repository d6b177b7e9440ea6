package compiler

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/harwoeck/planwell/internal/errors"
)

// metadataFile is written alongside the materialized artifacts.
const metadataFile = "compilation_metadata.json"

// Materialize writes the artifact collection to disk as
// <output_base>/<project_slug>_<UTC timestamp>/.
//
// Artifacts without a path are placed under the first permitted directory
// for their type. All writes go to a staging directory first; the final
// output appears atomically via rename, so a cancelled or failed run leaves
// nothing behind. The result reports success iff validation produced no
// error-level message.
func (p *Project) Materialize(ctx context.Context) (*CompilationResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now().UTC()
	outDir := filepath.Join(p.OutputBase,
		fmt.Sprintf("%s_%s", slugify(p.Name), now.Format("20060102T150405Z")))

	p.assignPathsLocked()

	messages := append(p.validateLocked(), p.messages...)
	success := true
	for _, m := range messages {
		if m.Severity == SeverityError {
			success = false
			break
		}
	}

	result := &CompilationResult{
		ProjectName:        p.Name,
		ProjectType:        p.Type,
		OutputDir:          outDir,
		Timestamp:          now,
		Success:            success,
		ValidationMessages: messages,
	}
	for _, id := range p.order {
		a := p.artifacts[id]
		result.Components = append(result.Components, ComponentSummary{
			ID:            a.ID,
			Name:          a.Name,
			ComponentType: a.ComponentType,
			ProducerAgent: a.ProducerAgent,
			FilePath:      a.FilePath,
		})
	}

	if err := p.writeStagedLocked(ctx, outDir, result); err != nil {
		return nil, err
	}

	p.log.Info("project materialized", "output_dir", outDir,
		"artifacts", len(result.Components), "success", success)
	return result, nil
}

// writeStagedLocked writes everything into a staging directory next to the
// final destination and renames it into place on success.
func (p *Project) writeStagedLocked(ctx context.Context, outDir string, result *CompilationResult) error {
	if err := os.MkdirAll(p.OutputBase, 0o755); err != nil {
		return errors.NewIOError(p.OutputBase, err)
	}

	staging, err := os.MkdirTemp(p.OutputBase, ".staging-*")
	if err != nil {
		return errors.NewIOError(p.OutputBase, err)
	}
	defer os.RemoveAll(staging)

	// Directory tree from the structure preset.
	for dir, subdirs := range p.structure.Directories {
		if err := os.MkdirAll(filepath.Join(staging, dir), 0o755); err != nil {
			return errors.NewIOError(dir, err)
		}
		for _, sub := range subdirs {
			if err := os.MkdirAll(filepath.Join(staging, dir, sub), 0o755); err != nil {
				return errors.NewIOError(path.Join(dir, sub), err)
			}
		}
	}

	for _, id := range p.order {
		if err := ctx.Err(); err != nil {
			return errors.NewCompileError("materialization canceled", errors.ErrCanceled)
		}
		a := p.artifacts[id]
		if a.FilePath == "" {
			continue
		}
		target := filepath.Join(staging, filepath.FromSlash(a.FilePath))
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return errors.NewIOError(a.FilePath, err)
		}
		data, err := encodeContent(a.Content)
		if err != nil {
			return errors.NewCompileError(
				fmt.Sprintf("cannot encode artifact %s", a.Name), err).WithPath(a.FilePath)
		}
		if err := os.WriteFile(target, data, 0o644); err != nil {
			return errors.NewIOError(a.FilePath, err)
		}
	}

	if err := ctx.Err(); err != nil {
		return errors.NewCompileError("materialization canceled", errors.ErrCanceled)
	}

	meta, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return errors.NewCompileError("cannot encode compilation metadata", err)
	}
	if err := os.WriteFile(filepath.Join(staging, metadataFile), append(meta, '\n'), 0o644); err != nil {
		return errors.NewIOError(metadataFile, err)
	}

	if err := os.Rename(staging, outDir); err != nil {
		return errors.NewIOError(outDir, err)
	}
	return nil
}

// assignPathsLocked gives every pathless artifact a deduplicated location
// under the first permitted directory for its type.
func (p *Project) assignPathsLocked() {
	for _, id := range p.order {
		a := p.artifacts[id]
		if a.FilePath != "" {
			continue
		}
		dir := ""
		if prefixes := p.structure.FileMappings[a.ComponentType]; len(prefixes) > 0 {
			dir = prefixes[0]
		}
		fp := slugify(a.Name) + a.ComponentType.Extension()
		if dir != "" {
			fp = path.Join(dir, fp)
		}
		a.FilePath = p.freePathLocked(fp)
		p.paths[a.FilePath] = a.ID
	}
}

// encodeContent renders artifact content to bytes: strings as UTF-8, byte
// slices verbatim, maps and slices as indented JSON, everything else via
// its string form.
func encodeContent(content any) ([]byte, error) {
	switch v := content.(type) {
	case nil:
		return nil, nil
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	case map[string]any, []any:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	case time.Time:
		return []byte(v.Format(time.RFC3339)), nil
	default:
		return []byte(fmt.Sprint(v)), nil
	}
}
