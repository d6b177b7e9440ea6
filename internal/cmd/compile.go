package cmd

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/harwoeck/planwell/internal/compiler"
	"github.com/harwoeck/planwell/internal/config"
)

var compileCmd = &cobra.Command{
	Use:   "compile <project-name>",
	Short: "Compile registered artifacts into a project directory",
	Long: `Compile collects artifact files and materializes them as a project
directory under the configured output base.

With --from-dir, every file under the directory is registered as an
artifact; the first path element names the producer agent
(e.g. artifacts/full_stack_developer/src/index.js).

With --watch, compile keeps running and registers files as producers
drop them into the directory; press Ctrl-C to stop watching and
materialize what was collected.`,
	Args: cobra.ExactArgs(1),
	RunE: runCompile,
}

var (
	compileType    string
	compileFromDir string
	compileWatch   bool
)

func init() {
	rootCmd.AddCommand(compileCmd)

	compileCmd.Flags().StringVarP(&compileType, "type", "t", "generic", "Project type (web_app/api/cli/library/generic)")
	compileCmd.Flags().StringVar(&compileFromDir, "from-dir", "", "Register all files under this directory (default: configured drop dir)")
	compileCmd.Flags().BoolVarP(&compileWatch, "watch", "w", false, "Watch the drop directory for new artifacts until interrupted")
}

func runCompile(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	log := newLogger(cfg)
	defer func() { _ = log.Close() }()

	dropDir := compileFromDir
	if dropDir == "" {
		dropDir = cfg.Compiler.DropDir
	}

	comp := compiler.NewCompiler(compiler.WithLogger(log))
	project := comp.CreateProject(args[0], compiler.ProjectType(compileType), cfg.Compiler.OutputBase)

	if err := registerFromDir(project, dropDir); err != nil {
		return err
	}

	if compileWatch {
		watcher, err := compiler.NewWatcher(project, dropDir, log)
		if err != nil {
			return err
		}
		if err := watcher.Start(); err != nil {
			return err
		}
		defer watcher.Stop()

		cmd.Printf("watching %s for artifacts, Ctrl-C to compile\n", dropDir)
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		<-stop
	}

	project.ResolveConflicts()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	result, err := project.Materialize(ctx)
	if err != nil {
		return err
	}
	return printJSON(result)
}

// registerFromDir registers every regular file under dir as an artifact.
// The first path element below dir names the producer agent.
func registerFromDir(project *compiler.Project, dir string) error {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil // nothing to register yet
	}

	var artifacts []compiler.Artifact
	err = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		if filepath.Base(path)[0] == '.' {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		producer := "external"
		name := rel
		if i := strings.Index(rel, "/"); i > 0 {
			producer = rel[:i]
			name = rel[i+1:]
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		artifacts = append(artifacts, compiler.Artifact{
			Name:          name,
			ComponentType: compiler.TypeForFile(name),
			ProducerAgent: producer,
			Content:       content,
			FilePath:      name,
			Timestamp:     info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return err
	}

	project.BulkRegister(artifacts, "external")
	return nil
}
