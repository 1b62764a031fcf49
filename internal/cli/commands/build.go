package commands

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/legout/duckalog/internal/build"
	"github.com/legout/duckalog/internal/cli/config"
	"github.com/legout/duckalog/internal/history"
)

// BuildOptions holds options for the build command.
type BuildOptions struct {
	DryRun bool
	Watch  bool
}

// NewBuildCommand creates the build command.
func NewBuildCommand() *cobra.Command {
	opts := &BuildOptions{}

	cmd := &cobra.Command{
		Use:   "build [catalog.yaml]",
		Short: "Build the catalog databases",
		Long: `Merge the catalog description and its imports, generate SQL, and execute
it against the target DuckDB database.

Nested catalogs referenced through duckdb attachments build first, so every
embedded database exists before the catalog that attaches it.`,
		Example: `  # Build the catalog in the current directory
  duckalog build

  # Build a specific description file
  duckalog build etl/duckalog.yaml

  # Validate and show what would run without touching any database
  duckalog build --dry-run

  # Rebuild whenever the description or SQL files change
  duckalog build --watch`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, args, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Generate statements without executing them")
	cmd.Flags().BoolVar(&opts.Watch, "watch", false, "Rebuild on file changes")

	return cmd
}

func runBuild(cmd *cobra.Command, args []string, opts *BuildOptions) error {
	ctx := cmd.Context()
	cfg := GetConfig(ctx)

	path, err := catalogPath(cfg, args)
	if err != nil {
		return err
	}

	var store *history.Store
	if !opts.DryRun {
		store, err = openHistory(cfg)
		if err != nil {
			GetLogger(ctx).Warn("run history disabled", "error", err)
		} else {
			defer func() { _ = store.Close() }()
		}
	}

	runner := newRunner(ctx, cfg, opts.DryRun, store)

	if opts.Watch {
		return watchAndBuild(ctx, cmd, runner, path)
	}
	return buildOnce(ctx, cmd, runner, path)
}

func newRunner(ctx context.Context, cfg *config.Config, dryRun bool, store *history.Store) *build.Runner {
	logger := GetLogger(ctx)
	return build.NewRunner(build.Options{
		AllowedRoots: cfg.Roots,
		MaxDepth:     cfg.MaxDepth,
		Concurrency:  cfg.Concurrency,
		Executor:     &build.AdapterExecutor{Logger: logger},
		DryRun:       dryRun,
		History:      store,
		Logger:       logger,
	})
}

// openHistory opens the run history store under the project's .duckalog
// directory and ensures the schema exists.
func openHistory(cfg *config.Config) (*history.Store, error) {
	if cfg.ProjectRoot == "" {
		return nil, fmt.Errorf("no project root")
	}
	dir := filepath.Join(cfg.ProjectRoot, ".duckalog")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	store := history.NewStore()
	if err := store.Open(filepath.Join(dir, "history.db")); err != nil {
		return nil, err
	}
	if err := store.InitSchema(); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

func buildOnce(ctx context.Context, cmd *cobra.Command, runner *build.Runner, path string) error {
	start := time.Now()

	res, err := runner.Run(ctx, path)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, cat := range res.Catalogs {
		verb := "built"
		if res.DryRun {
			verb = "planned"
		}
		fmt.Fprintf(out, "%s %s (%d statements) in %s\n",
			verb, cat.Database, len(cat.Statements), cat.Elapsed.Round(time.Millisecond))
	}
	fmt.Fprintf(out, "Run %s completed in %s\n", res.RunID, time.Since(start).Round(time.Millisecond))
	return nil
}

// watchAndBuild rebuilds on every change to a .yaml or .sql file under the
// catalog's directory. A failing rebuild logs and keeps watching.
func watchAndBuild(ctx context.Context, cmd *cobra.Command, runner *build.Runner, path string) error {
	logger := GetLogger(ctx)

	if err := buildOnce(ctx, cmd, runner, path); err != nil {
		logger.Error("initial build failed", "error", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := watchDirRecursive(watcher, filepath.Dir(abs)); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Watching for changes (Ctrl-C to stop)...")

	var debounceTimer *time.Timer
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			ext := filepath.Ext(event.Name)
			if ext != ".yaml" && ext != ".yml" && ext != ".sql" {
				continue
			}

			// Debounce
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(100*time.Millisecond, func() {
				logger.Debug("file changed, rebuilding", "file", event.Name)
				if err := buildOnce(ctx, cmd, runner, path); err != nil {
					logger.Error("rebuild failed", "error", err)
				}
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("watch error", "error", err)
		}
	}
}

func watchDirRecursive(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
}
