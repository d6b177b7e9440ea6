package compiler

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/harwoeck/planwell/internal/errors"
)

func TestMaterializeWritesProjectTree(t *testing.T) {
	base := t.TempDir()
	p := newTestCompiler().CreateProject("demo", ProjectGeneric, base)

	_, err := p.RegisterArtifact(Artifact{
		ID: "main", Name: "main", ComponentType: ComponentCode,
		ProducerAgent: "backend", FilePath: "src/main.go", Content: "package main\n",
	})
	require.NoError(t, err)
	_, err = p.RegisterArtifact(Artifact{
		ID: "guide", Name: "guide", ComponentType: ComponentDocumentation,
		ProducerAgent: "writer", FilePath: "docs/guide.md", Content: "# Guide\n",
	})
	require.NoError(t, err)
	// No path: lands under the structure's config location with a slug name.
	_, err = p.RegisterArtifact(Artifact{
		ID: "settings", Name: "App Settings", ComponentType: ComponentConfig,
		ProducerAgent: "backend", Content: map[string]any{"debug": true},
	})
	require.NoError(t, err)

	result, err := p.Materialize(context.Background())
	require.NoError(t, err)
	require.True(t, result.Success, "validation messages: %+v", result.ValidationMessages)

	require.True(t, strings.HasPrefix(filepath.Base(result.OutputDir), "demo_"),
		"output dir %s not named after the project", result.OutputDir)

	// Every component exists on disk with its content.
	require.Len(t, result.Components, 3)
	for _, comp := range result.Components {
		require.NotEmpty(t, comp.FilePath, "component %s has no path", comp.ID)
		_, statErr := os.Stat(filepath.Join(result.OutputDir, filepath.FromSlash(comp.FilePath)))
		require.NoError(t, statErr, "component %s missing on disk", comp.ID)
	}
	content, err := os.ReadFile(filepath.Join(result.OutputDir, "src", "main.go"))
	require.NoError(t, err)
	require.Equal(t, "package main\n", string(content))

	// The metadata file round-trips and lists every component.
	meta, err := os.ReadFile(filepath.Join(result.OutputDir, metadataFile))
	require.NoError(t, err)
	var decoded CompilationResult
	require.NoError(t, json.Unmarshal(meta, &decoded))
	require.Equal(t, "demo", decoded.ProjectName)
	require.Len(t, decoded.Components, 3)

	// The structure preset's directories exist even when empty.
	for dir := range p.Structure().Directories {
		info, statErr := os.Stat(filepath.Join(result.OutputDir, dir))
		require.NoError(t, statErr)
		require.True(t, info.IsDir())
	}
}

func TestMaterializeCanceledLeavesNothing(t *testing.T) {
	base := t.TempDir()
	p := newTestCompiler().CreateProject("demo", ProjectGeneric, base)
	_, err := p.RegisterArtifact(Artifact{
		ID: "main", Name: "main", ComponentType: ComponentCode,
		FilePath: "src/main.go", Content: "package main\n",
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = p.Materialize(ctx)
	require.ErrorIs(t, err, errors.ErrCanceled)

	// No output directory and no staging remnants.
	entries, err := os.ReadDir(base)
	require.NoError(t, err)
	require.Empty(t, entries, "canceled run left files behind")
}

func TestMaterializeReportsValidationFailure(t *testing.T) {
	p := newTestCompiler().CreateProject("demo", ProjectGeneric, t.TempDir())
	_, err := p.RegisterArtifact(Artifact{
		ID: "a", Name: "app", ComponentType: ComponentCode,
		FilePath: "src/app.go", Content: "package app\n", Dependencies: []string{"phantom"},
	})
	require.NoError(t, err)

	result, err := p.Materialize(context.Background())
	require.NoError(t, err)
	require.False(t, result.Success)

	// The tree is still written so the failure can be inspected.
	_, err = os.Stat(filepath.Join(result.OutputDir, "src", "app.go"))
	require.NoError(t, err)
}

func TestAssignPathsDeduplicates(t *testing.T) {
	p := newTestCompiler().CreateProject("demo", ProjectGeneric, t.TempDir())
	for _, id := range []string{"one", "two"} {
		_, err := p.RegisterArtifact(Artifact{
			ID: id, Name: "helper", ComponentType: ComponentCode, Content: "package x\n",
		})
		require.NoError(t, err)
	}

	result, err := p.Materialize(context.Background())
	require.NoError(t, err)

	paths := make(map[string]bool)
	for _, comp := range result.Components {
		require.False(t, paths[comp.FilePath], "path %s assigned twice", comp.FilePath)
		paths[comp.FilePath] = true
	}
	require.True(t, paths["src/helper.go"], "paths: %v", paths)
	require.True(t, paths["src/helper_2.go"], "paths: %v", paths)
}

func TestEncodeContent(t *testing.T) {
	stamp := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		content any
		want    string
	}{
		{"nil", nil, ""},
		{"string", "hello\n", "hello\n"},
		{"bytes", []byte{0x68, 0x69}, "hi"},
		{"map as json", map[string]any{"port": 8080}, "{\n  \"port\": 8080\n}\n"},
		{"slice as json", []any{"a", "b"}, "[\n  \"a\",\n  \"b\"\n]\n"},
		{"time as rfc3339", stamp, "2026-04-01T12:00:00Z"},
		{"fallback via sprint", 42, "42"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := encodeContent(tt.content)
			require.NoError(t, err)
			require.Equal(t, tt.want, string(got))
		})
	}
}
