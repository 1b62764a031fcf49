package build

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/legout/duckalog/internal/config"
	"github.com/legout/duckalog/internal/dag"
	"github.com/legout/duckalog/internal/emit"
	"github.com/legout/duckalog/internal/fsys"
	"github.com/legout/duckalog/internal/history"
	"github.com/legout/duckalog/internal/sqlfile"
	"github.com/legout/duckalog/pkg/pathguard"
)

// Executor applies generated statements to a target database.
type Executor interface {
	Execute(ctx context.Context, database string, stmts []emit.Statement) error
}

// Options configures a Runner. Zero values select defaults.
type Options struct {
	// FS serves file reads; defaults to a local-only registry.
	FS *fsys.Registry
	// AllowedRoots constrains config and SQL file resolution. Defaults to
	// the root document's directory.
	AllowedRoots []string
	// LookupEnv resolves ${env:...} placeholders; defaults to os.LookupEnv.
	LookupEnv config.LookupEnv
	// MaxDepth bounds both import chains and nested catalog chains.
	MaxDepth int
	// Concurrency bounds parallel SQL file reads per catalog.
	Concurrency int
	// Executor applies statements. Required unless DryRun is set.
	Executor Executor
	// DryRun walks and validates the whole tree without executing anything.
	DryRun bool
	// History records completed runs when set. Dry runs are never recorded.
	History *history.Store
	// Logger defaults to a discard logger.
	Logger *slog.Logger
}

// Runner builds the catalog tree rooted at one description file.
type Runner struct {
	opts   Options
	logger *slog.Logger
}

// NewRunner creates a Runner with the given options.
func NewRunner(opts Options) *Runner {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = config.DefaultMaxDepth
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Runner{opts: opts, logger: logger}
}

// Result describes one completed (or planned) build run.
type Result struct {
	RunID    string
	DryRun   bool
	Catalogs []CatalogResult
	Duration time.Duration
}

// CatalogResult describes one catalog in build order.
type CatalogResult struct {
	Path       string
	Database   string
	Statements []emit.Statement
	Children   []string
	Elapsed    time.Duration
}

// catalog is the discovery record for one description file.
type catalog struct {
	path     string
	cfg      *config.Config
	children map[string]string // attachment alias -> child config path
}

// discovery states; a path in visiting state encountered again is a cycle.
type visitState int

const (
	stateVisiting visitState = iota + 1
	stateVisited
)

type walk struct {
	runner   *Runner
	loader   *config.Loader
	roots    []string
	graph    *dag.Graph
	states   map[string]visitState
	catalogs map[string]*catalog
}

// Run builds the catalog tree rooted at configPath. Nested catalogs build
// first so every embedded database exists before it is attached. With DryRun
// set, the full tree is still loaded and validated and every statement is
// generated, but nothing executes.
func (r *Runner) Run(ctx context.Context, configPath string) (*Result, error) {
	start := time.Now()
	runID := uuid.NewString()

	if !r.opts.DryRun && r.opts.Executor == nil {
		return nil, fmt.Errorf("no executor configured")
	}

	resolved := configPath
	if !fsys.IsRemote(configPath) {
		abs, err := filepath.Abs(configPath)
		if err != nil {
			return nil, fmt.Errorf("resolving config path: %w", err)
		}
		resolved = filepath.Clean(abs)
	}

	roots := r.opts.AllowedRoots
	if len(roots) == 0 && !fsys.IsRemote(resolved) {
		roots = []string{filepath.Dir(resolved)}
	}

	w := &walk{
		runner: r,
		loader: config.NewLoader(config.LoaderOptions{
			FS:           r.opts.FS,
			AllowedRoots: roots,
			LookupEnv:    r.opts.LookupEnv,
			MaxDepth:     r.opts.MaxDepth,
			Logger:       r.logger,
		}),
		roots:    roots,
		graph:    dag.New(),
		states:   make(map[string]visitState),
		catalogs: make(map[string]*catalog),
	}

	r.logger.Info("starting build", "run_id", runID, "config", resolved, "dry_run", r.opts.DryRun)

	recorder := r.opts.History
	if r.opts.DryRun {
		recorder = nil
	}
	if recorder != nil {
		if _, err := recorder.CreateRun(runID, resolved); err != nil {
			r.logger.Warn("failed to record run", "error", err)
			recorder = nil
		}
	}

	if err := w.discover(resolved, nil); err != nil {
		return nil, r.failRun(recorder, runID, err)
	}

	order, err := w.graph.TopologicalSort()
	if err != nil {
		return nil, r.failRun(recorder, runID, fmt.Errorf("ordering catalog builds: %w", err))
	}

	resolver := sqlfile.NewResolver(sqlfile.Options{
		FS:           r.opts.FS,
		AllowedRoots: roots,
		Concurrency:  r.opts.Concurrency,
		Logger:       r.logger,
	})

	result := &Result{RunID: runID, DryRun: r.opts.DryRun}
	for _, node := range order {
		cat := w.catalogs[node.ID]
		cr, err := r.buildCatalog(ctx, cat, w.catalogs, resolver)
		if err != nil {
			return nil, r.failRun(recorder, runID, err)
		}
		result.Catalogs = append(result.Catalogs, *cr)
		if recorder != nil {
			if err := recorder.RecordCatalog(runID, cr.Path, cr.Database, len(cr.Statements), cr.Elapsed); err != nil {
				r.logger.Warn("failed to record catalog run", "path", cr.Path, "error", err)
			}
		}
	}

	if recorder != nil {
		if err := recorder.CompleteRun(runID, history.RunStatusCompleted, ""); err != nil {
			r.logger.Warn("failed to complete run record", "run_id", runID, "error", err)
		}
	}

	result.Duration = time.Since(start)
	r.logger.Info("build completed",
		"run_id", runID,
		"catalogs", len(result.Catalogs),
		"duration", result.Duration)
	return result, nil
}

// failRun marks the history record failed and passes err through unchanged.
func (r *Runner) failRun(recorder *history.Store, runID string, err error) error {
	if recorder != nil {
		if herr := recorder.CompleteRun(runID, history.RunStatusFailed, err.Error()); herr != nil {
			r.logger.Warn("failed to complete run record", "run_id", runID, "error", herr)
		}
	}
	return err
}

// discover loads file and every description reachable through its nested
// attachments, depth-first. chain holds the paths currently being visited,
// parent-before-child, for cycle and depth reporting.
func (w *walk) discover(file string, chain []string) error {
	switch w.states[file] {
	case stateVisited:
		// Shared nested catalog; build exactly once.
		return nil
	case stateVisiting:
		idx := 0
		for i, c := range chain {
			if c == file {
				idx = i
				break
			}
		}
		return &CycleError{Chain: append(append([]string{}, chain[idx:]...), file)}
	}

	if len(chain) >= w.runner.opts.MaxDepth {
		return &DepthError{Limit: w.runner.opts.MaxDepth, Chain: append(append([]string{}, chain...), file)}
	}

	w.states[file] = stateVisiting
	chain = append(chain, file)

	cfg, err := w.loader.Load(file)
	if err != nil {
		return err
	}

	cat := &catalog{path: file, cfg: cfg, children: make(map[string]string)}
	w.graph.AddNode(file, cat)
	w.catalogs[file] = cat

	for _, att := range cfg.Attachments.DuckDB {
		if att.Config == "" {
			continue
		}
		child, err := w.resolveNested(cfg, att.Config)
		if err != nil {
			return &NestedConfigError{Parent: file, Alias: att.Alias, Path: att.Config, Reason: err.Error()}
		}
		if err := w.discover(child, chain); err != nil {
			return err
		}
		if w.catalogs[child].cfg.Database == "" {
			return &NestedConfigError{
				Parent: file,
				Alias:  att.Alias,
				Path:   child,
				Reason: "no database path declared, nothing to attach",
			}
		}
		cat.children[att.Alias] = child
	}

	// Children registered their nodes during recursion; edges after so both
	// endpoints exist.
	for _, child := range cat.children {
		if err := w.graph.AddEdge(child, file); err != nil {
			return err
		}
	}

	w.states[file] = stateVisited
	return nil
}

// resolveNested resolves a nested attachment reference relative to the
// referencing catalog's directory, subject to the path guard.
func (w *walk) resolveNested(parent *config.Config, ref string) (string, error) {
	if fsys.IsRemote(ref) {
		return ref, nil
	}
	if parent.Dir == "" {
		return "", fmt.Errorf("relative reference from remote catalog %s", parent.Path)
	}
	candidate := ref
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(parent.Dir, candidate)
	}
	return pathguard.Resolve(candidate, w.roots)
}

// buildCatalog generates and, unless dry-running, executes the statements for
// one catalog. Nested databases are already built at this point.
func (r *Runner) buildCatalog(ctx context.Context, cat *catalog, catalogs map[string]*catalog, resolver *sqlfile.Resolver) (*CatalogResult, error) {
	start := time.Now()

	cfg, err := resolver.Inline(ctx, cat.cfg)
	if err != nil {
		return nil, err
	}

	// Database paths resolve against their own catalog's directory before
	// anything reaches the engine, which resolves bare relative paths
	// against the process working directory instead.
	database := cfg.AbsPath(cfg.Database)

	artifacts := make(map[string]string, len(cat.children))
	children := make([]string, 0, len(cat.children))
	for alias, child := range cat.children {
		childCfg := catalogs[child].cfg
		artifacts[alias] = childCfg.AbsPath(childCfg.Database)
		children = append(children, child)
	}
	sort.Strings(children)

	stmts, err := emit.Statements(cfg, artifacts)
	if err != nil {
		return nil, err
	}

	if !r.opts.DryRun {
		r.logger.Debug("executing catalog",
			"config", cat.path,
			"database", database,
			"statements", len(stmts))
		if err := r.opts.Executor.Execute(ctx, database, stmts); err != nil {
			return nil, err
		}
	}

	return &CatalogResult{
		Path:       cat.path,
		Database:   database,
		Statements: stmts,
		Children:   children,
		Elapsed:    time.Since(start),
	}, nil
}
