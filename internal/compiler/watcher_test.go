package compiler

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTypeForFile(t *testing.T) {
	tests := []struct {
		name string
		want ComponentType
	}{
		{"main.go", ComponentCode},
		{"app.ts", ComponentCode},
		{"server.py", ComponentCode},
		{"README.md", ComponentDocumentation},
		{"notes.txt", ComponentDocumentation},
		{"config.yaml", ComponentConfig},
		{"package.json", ComponentConfig},
		{"style.css", ComponentResource},
		{"index.html", ComponentResource},
		{"build.sh", ComponentBuild},
		{"parser_test.go", ComponentTest},
		{"app.test.js", ComponentTest},
		{"app.spec.js", ComponentTest},
		{"app.test.ts", ComponentTest},
		{"src/deep/handler_test.go", ComponentTest},
		{"artifact.bin", ComponentResource}, // unknown extensions fall back
	}
	for _, tt := range tests {
		if got := TypeForFile(tt.name); got != tt.want {
			t.Errorf("TypeForFile(%q) = %s, want %s", tt.name, got, tt.want)
		}
	}
}

func TestWatcherRegistersDroppedFiles(t *testing.T) {
	p := newTestCompiler().CreateProject("demo", ProjectWebApp, t.TempDir())

	dropDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dropDir, "frontend"), 0o755))

	w, err := NewWatcher(p, dropDir, nil)
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Stop()

	var registered []Artifact
	done := make(chan struct{}, 4)
	w.SetRegisterCallback(func(id string, a Artifact) {
		registered = append(registered, a)
		done <- struct{}{}
	})

	require.NoError(t, os.WriteFile(
		filepath.Join(dropDir, "frontend", "index.js"), []byte("console.log(1)\n"), 0o644))

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("dropped file was never registered")
	}

	require.Len(t, registered, 1)
	a := registered[0]
	require.Equal(t, "index.js", a.Name)
	require.Equal(t, "frontend", a.ProducerAgent)
	require.Equal(t, ComponentCode, a.ComponentType)
	require.Equal(t, []byte("console.log(1)\n"), a.Content)

	artifacts := p.Artifacts()
	require.Len(t, artifacts, 1)
	require.Equal(t, "index.js", artifacts[0].FilePath)
}

func TestWatcherScansNewProducerDirectories(t *testing.T) {
	p := newTestCompiler().CreateProject("demo", ProjectWebApp, t.TempDir())

	dropDir := t.TempDir()
	w, err := NewWatcher(p, dropDir, nil)
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Stop()

	// Prepare a producer directory with a file already inside and move it
	// into the drop dir in one step. Only the directory itself produces an
	// event; the file predates the directory's watch.
	staging := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(staging, "backend"), 0o755))
	require.NoError(t, os.WriteFile(
		filepath.Join(staging, "backend", "server.py"), []byte("print('up')\n"), 0o644))
	require.NoError(t, os.Rename(
		filepath.Join(staging, "backend"), filepath.Join(dropDir, "backend")))

	require.Eventually(t, func() bool {
		return len(p.Artifacts()) == 1
	}, 5*time.Second, 20*time.Millisecond, "file inside the moved directory was never registered")

	a := p.Artifacts()[0]
	require.Equal(t, "server.py", a.Name)
	require.Equal(t, "backend", a.ProducerAgent)
	require.Equal(t, ComponentCode, a.ComponentType)

	// The scan must not double-register once the directory's own watch
	// starts delivering events for the same file.
	time.Sleep(150 * time.Millisecond)
	require.Len(t, p.Artifacts(), 1)
}

func TestWatcherAttributesUnscopedFilesToExternal(t *testing.T) {
	p := newTestCompiler().CreateProject("demo", ProjectWebApp, t.TempDir())

	dropDir := t.TempDir()
	w, err := NewWatcher(p, dropDir, nil)
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Stop()

	require.NoError(t, os.WriteFile(
		filepath.Join(dropDir, "notes.md"), []byte("# notes\n"), 0o644))

	require.Eventually(t, func() bool {
		return len(p.Artifacts()) == 1
	}, 5*time.Second, 20*time.Millisecond, "file at the drop root was never registered")

	a := p.Artifacts()[0]
	require.Equal(t, "external", a.ProducerAgent)
	require.Equal(t, ComponentDocumentation, a.ComponentType)
}

func TestWatcherIgnoresHiddenFiles(t *testing.T) {
	p := newTestCompiler().CreateProject("demo", ProjectWebApp, t.TempDir())

	dropDir := t.TempDir()
	w, err := NewWatcher(p, dropDir, nil)
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Stop()

	require.NoError(t, os.WriteFile(
		filepath.Join(dropDir, ".tmp-upload"), []byte("partial"), 0o644))
	require.NoError(t, os.WriteFile(
		filepath.Join(dropDir, "real.md"), []byte("# real\n"), 0o644))

	require.Eventually(t, func() bool {
		return len(p.Artifacts()) == 1
	}, 5*time.Second, 20*time.Millisecond)

	// Give the debounce a beat to flush anything else, then confirm the
	// hidden file never landed.
	time.Sleep(150 * time.Millisecond)
	artifacts := p.Artifacts()
	require.Len(t, artifacts, 1)
	require.Equal(t, "real.md", artifacts[0].Name)
}
