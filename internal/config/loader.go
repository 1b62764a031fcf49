package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	yamlparser "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/v2"

	"github.com/legout/duckalog/internal/fsys"
	"github.com/legout/duckalog/pkg/pathguard"
)

// DefaultMaxDepth bounds the import chain independently of cycle detection,
// as a defense against extremely deep but acyclic graphs.
const DefaultMaxDepth = 10

// Loader resolves a catalog description and its import graph into one
// merged, validated Config.
type Loader struct {
	fs       *fsys.Registry
	roots    []string
	lookup   LookupEnv
	maxDepth int
	logger   *slog.Logger
}

// LoaderOptions configures a Loader. Zero values select defaults.
type LoaderOptions struct {
	// FS serves file reads; defaults to a local-only registry.
	FS *fsys.Registry
	// AllowedRoots constrains every locally-resolved path. Defaults to the
	// root document's directory.
	AllowedRoots []string
	// LookupEnv resolves ${env:...} placeholders; defaults to os.LookupEnv.
	LookupEnv LookupEnv
	// MaxDepth bounds the import chain; defaults to DefaultMaxDepth.
	MaxDepth int
	// Logger defaults to a discard logger.
	Logger *slog.Logger
}

// NewLoader creates a Loader with the given options.
func NewLoader(opts LoaderOptions) *Loader {
	l := &Loader{
		fs:       opts.FS,
		roots:    opts.AllowedRoots,
		lookup:   opts.LookupEnv,
		maxDepth: opts.MaxDepth,
		logger:   opts.Logger,
	}
	if l.fs == nil {
		l.fs = fsys.NewRegistry()
	}
	if l.lookup == nil {
		l.lookup = os.LookupEnv
	}
	if l.maxDepth <= 0 {
		l.maxDepth = DefaultMaxDepth
	}
	if l.logger == nil {
		l.logger = slog.New(slog.DiscardHandler)
	}
	return l
}

// file traversal states; a path in loading state encountered again is a cycle.
type fileState int

const (
	stateLoading fileState = iota + 1
	stateMerged
)

// traversal holds the per-call merge state. It is owned by a single Load
// call and never outlives it.
type traversal struct {
	loader *Loader
	roots  []string
	states map[string]fileState
	doc    map[string]any
	prov   provenance
}

// Load merges path and its transitive imports into a validated Config.
func (l *Loader) Load(configPath string) (*Config, error) {
	resolved := configPath
	if !fsys.IsRemote(configPath) {
		abs, err := filepath.Abs(configPath)
		if err != nil {
			return nil, fmt.Errorf("resolving config path: %w", err)
		}
		resolved = filepath.Clean(abs)
	}

	roots := l.roots
	if len(roots) == 0 && !fsys.IsRemote(resolved) {
		roots = []string{filepath.Dir(resolved)}
	}

	t := &traversal{
		loader: l,
		roots:  roots,
		states: make(map[string]fileState),
		doc:    make(map[string]any),
		prov:   make(provenance),
	}

	if err := t.load(resolved, nil); err != nil {
		return nil, err
	}

	cfg, err := decode(t.doc)
	if err != nil {
		return nil, err
	}
	cfg.Path = resolved
	if !fsys.IsRemote(resolved) {
		cfg.Dir = filepath.Dir(resolved)
	}

	if err := validate(cfg, t.prov); err != nil {
		return nil, err
	}

	l.logger.Debug("config merged",
		"path", resolved,
		"files", len(t.states),
		"views", len(cfg.Views),
		"attachments", len(cfg.Attachments.All()),
		"secrets", len(cfg.Secrets))

	return cfg, nil
}

// load merges one file, its imports first. chain holds the files currently
// being loaded, importer-before-imported, for cycle and depth reporting.
func (t *traversal) load(file string, chain []string) error {
	switch t.states[file] {
	case stateMerged:
		// Already merged via another import path; load exactly once.
		return nil
	case stateLoading:
		idx := 0
		for i, c := range chain {
			if c == file {
				idx = i
				break
			}
		}
		return &CycleError{Chain: append(append([]string{}, chain[idx:]...), file)}
	}

	if len(chain) >= t.loader.maxDepth {
		return &DepthError{Limit: t.loader.maxDepth, Chain: append(append([]string{}, chain...), file)}
	}

	t.states[file] = stateLoading
	chain = append(chain, file)

	data, err := t.loader.fs.ReadFile(file)
	if err != nil {
		return fmt.Errorf("reading %s: %w", file, err)
	}

	tree, err := yamlparser.Parser().Unmarshal(data)
	if err != nil {
		return &ParseError{File: file, Err: err}
	}

	tree, err = interpolateTree(tree, file, t.loader.lookup)
	if err != nil {
		return err
	}

	if err := t.loadImports(file, tree, chain); err != nil {
		return err
	}

	// The file's own fields merge last, so they win over everything the
	// file imports.
	if err := mergeDocument(t.doc, tree, file, t.prov); err != nil {
		return err
	}
	t.states[file] = stateMerged
	return nil
}

func (t *traversal) loadImports(file string, tree map[string]any, chain []string) error {
	raw, ok := tree["imports"]
	if !ok {
		return nil
	}
	entries, ok := raw.([]any)
	if !ok {
		return &ParseError{File: file, Err: fmt.Errorf("imports must be a list of paths")}
	}

	seen := make(map[string]bool, len(entries))
	for _, entry := range entries {
		target, ok := entry.(string)
		if !ok {
			return &ParseError{File: file, Err: fmt.Errorf("import entry %v is not a string", entry)}
		}

		resolved, err := t.resolveImport(file, target)
		if err != nil {
			return fmt.Errorf("import %q in %s: %w", target, file, err)
		}
		if seen[resolved] {
			continue
		}
		seen[resolved] = true

		if err := t.load(resolved, chain); err != nil {
			return classifyImportError(file, target, err)
		}
	}
	return nil
}

// resolveImport resolves an import entry relative to the importing file.
// Remote targets bypass the path guard and go to the filesystem capability.
func (t *traversal) resolveImport(importer, target string) (string, error) {
	if fsys.IsRemote(target) {
		return target, nil
	}

	if fsys.IsRemote(importer) {
		// Relative import inside a remote document: join on the URI path.
		i := strings.Index(importer, "://")
		scheme, rest := importer[:i+3], importer[i+3:]
		return scheme + path.Join(path.Dir(rest), target), nil
	}

	candidate := target
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(filepath.Dir(importer), candidate)
	}
	return pathguard.Resolve(candidate, t.roots)
}

// classifyImportError wraps a child load failure with the importing context.
// Errors that already carry full context (nested imports, interpolation,
// path security) pass through unchanged.
func classifyImportError(importer, target string, err error) error {
	var (
		importErr *ImportError
		parseErr  *ParseError
		cycleErr  *CycleError
	)
	switch {
	case errors.As(err, &importErr):
		return err
	case errors.Is(err, os.ErrNotExist):
		return &ImportError{Importer: importer, Target: target, Kind: ImportNotFound, Err: err}
	case errors.As(err, &cycleErr):
		return &ImportError{Importer: importer, Target: target, Kind: ImportCycle, Err: cycleErr}
	case errors.As(err, &parseErr) && parseErr.File != importer:
		return &ImportError{Importer: importer, Target: target, Kind: ImportSyntax, Err: parseErr}
	}
	return err
}

// decode converts the merged generic tree into typed entities.
func decode(merged map[string]any) (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(confmap.Provider(merged, "."), nil); err != nil {
		return nil, fmt.Errorf("loading merged document: %w", err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			TagName:          "koanf",
			Result:           &cfg,
			WeaklyTypedInput: true,
		},
	}); err != nil {
		return nil, fmt.Errorf("decoding merged document: %w", err)
	}
	return &cfg, nil
}
