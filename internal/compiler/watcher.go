package compiler

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/harwoeck/planwell/internal/logging"
)

// extensionTypes maps file extensions of dropped files to component types.
var extensionTypes = map[string]ComponentType{
	".go":   ComponentCode,
	".js":   ComponentCode,
	".ts":   ComponentCode,
	".py":   ComponentCode,
	".md":   ComponentDocumentation,
	".txt":  ComponentDocumentation,
	".yaml": ComponentConfig,
	".yml":  ComponentConfig,
	".json": ComponentConfig,
	".toml": ComponentConfig,
	".env":  ComponentConfig,
	".css":  ComponentResource,
	".html": ComponentResource,
	".svg":  ComponentResource,
	".png":  ComponentResource,
	".sh":   ComponentBuild,
}

// TypeForFile infers the component type of a dropped file from its name.
func TypeForFile(name string) ComponentType {
	base := filepath.Base(name)
	if strings.Contains(base, "_test.") || strings.HasSuffix(base, ".test.js") ||
		strings.HasSuffix(base, ".spec.js") || strings.HasSuffix(base, ".test.ts") {
		return ComponentTest
	}
	if ct, ok := extensionTypes[strings.ToLower(filepath.Ext(base))]; ok {
		return ct
	}
	return ComponentResource
}

// Watcher registers artifacts dropped into a directory by external
// producers. Each producer gets its own subdirectory; files written there
// are registered against the project, attributed to that producer.
type Watcher struct {
	watcher *fsnotify.Watcher
	project *Project
	dropDir string

	// onRegister, if set, is called after each successful registration.
	onRegister func(id string, a Artifact)

	// seen records the modtime of each registered path so a file picked
	// up by a directory scan is not registered again by its own event.
	seen map[string]time.Time

	log    *logging.Logger
	mu     sync.Mutex
	stopCh chan struct{}
}

// NewWatcher creates a watcher registering files dropped under dropDir into
// the given project.
func NewWatcher(project *Project, dropDir string, log *logging.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logging.NopLogger()
	}
	return &Watcher{
		watcher: fw,
		project: project,
		dropDir: dropDir,
		seen:    make(map[string]time.Time),
		log:     log.WithComponent("watcher"),
		stopCh:  make(chan struct{}),
	}, nil
}

// SetRegisterCallback sets the callback invoked after each registration.
func (w *Watcher) SetRegisterCallback(cb func(id string, a Artifact)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onRegister = cb
}

// Start begins watching the drop directory and its existing subdirectories.
func (w *Watcher) Start() error {
	if err := os.MkdirAll(w.dropDir, 0o755); err != nil {
		return err
	}
	if err := w.watcher.Add(w.dropDir); err != nil {
		return err
	}
	// Watch existing producer subdirectories too.
	err := filepath.Walk(w.dropDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			_ = w.watcher.Add(path)
		}
		return nil
	})
	if err != nil {
		return err
	}

	go w.watchLoop()
	return nil
}

// Stop stops the watcher and releases its resources.
func (w *Watcher) Stop() {
	close(w.stopCh)
	_ = w.watcher.Close()
}

// watchLoop processes filesystem events, debounced because producers often
// emit several events per file write.
func (w *Watcher) watchLoop() {
	debounce := time.NewTimer(0)
	<-debounce.C // drain initial timer

	pending := make(map[string]fsnotify.Event)

	for {
		select {
		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			pending[event.Name] = event
			debounce.Reset(50 * time.Millisecond)

		case <-debounce.C:
			events := pending
			pending = make(map[string]fsnotify.Event)
			for _, event := range events {
				w.handleEvent(event)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("watch error", "error", err)
		}
	}
}

// handleEvent registers one dropped file, or starts watching a newly
// created producer directory.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	info, err := os.Stat(event.Name)
	if err != nil {
		return
	}
	if info.IsDir() {
		_ = w.watcher.Add(event.Name)
		// Files can land in a new directory before its watch is
		// established and never produce an event of their own.
		w.scanDir(event.Name)
		return
	}
	if strings.HasPrefix(filepath.Base(event.Name), ".") {
		return
	}

	w.mu.Lock()
	last, dup := w.seen[event.Name]
	w.mu.Unlock()
	if dup && !info.ModTime().After(last) {
		return
	}

	rel, err := filepath.Rel(w.dropDir, event.Name)
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)

	// First path element names the producer: <drop_dir>/<producer>/<file>.
	producer := "external"
	name := rel
	if i := strings.Index(rel, "/"); i > 0 {
		producer = rel[:i]
		name = rel[i+1:]
	}

	content, err := os.ReadFile(event.Name)
	if err != nil {
		w.log.Warn("cannot read dropped file", "path", event.Name, "error", err)
		return
	}

	a := Artifact{
		Name:          name,
		ComponentType: TypeForFile(name),
		ProducerAgent: producer,
		Content:       content,
		FilePath:      name,
		Timestamp:     info.ModTime(),
	}
	id, err := w.project.RegisterArtifact(a)
	if err != nil {
		w.log.Warn("dropped file rejected", "path", event.Name, "error", err)
		return
	}
	w.log.Info("artifact registered from drop dir",
		"id", id, "name", name, "producer", producer, "type", a.ComponentType.String())

	w.mu.Lock()
	w.seen[event.Name] = info.ModTime()
	cb := w.onRegister
	w.mu.Unlock()
	if cb != nil {
		cb(id, a)
	}
}

// scanDir registers files already present under a newly watched
// directory, recursing into subdirectories.
func (w *Watcher) scanDir(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		if entry.IsDir() {
			_ = w.watcher.Add(path)
			w.scanDir(path)
			continue
		}
		w.handleEvent(fsnotify.Event{Name: path, Op: fsnotify.Create})
	}
}
