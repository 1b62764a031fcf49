// Package sqlfile inlines external SQL referenced by views. It is a pure
// pre-pass over a merged config: views with sql_file or sql_template
// references get their content loaded (and, for templates, substituted) into
// the inline SQL field, producing a new config. When the pass is skipped the
// references survive untouched.
package sqlfile

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/legout/duckalog/internal/config"
	"github.com/legout/duckalog/internal/fsys"
	"github.com/legout/duckalog/pkg/pathguard"
)

// DefaultConcurrency bounds parallel file reads. Views are independent once
// the merge is done, so reads across them are safe to overlap.
const DefaultConcurrency = 4

// FileError reports a SQL file that could not be resolved or read.
type FileError struct {
	View string
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("view %q: sql file %s: %v", e.View, e.Path, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }

// TemplateVarError reports a {{name}} placeholder with no value in the
// view's template_vars.
type TemplateVarError struct {
	View string
	Var  string
	Path string
}

func (e *TemplateVarError) Error() string {
	return fmt.Sprintf("view %q: template %s: no value for placeholder %q", e.View, e.Path, e.Var)
}

var placeholderPattern = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_]*)\s*\}\}`)

// Resolver loads and substitutes external SQL. The content cache is scoped
// to one Resolver instance, never process-wide.
type Resolver struct {
	fs          *fsys.Registry
	roots       []string
	logger      *slog.Logger
	concurrency int

	mu    sync.Mutex
	cache map[string][]byte
}

// Options configures a Resolver. Zero values select defaults.
type Options struct {
	FS *fsys.Registry
	// AllowedRoots constrains local SQL paths; defaults to the config's
	// directory at resolve time.
	AllowedRoots []string
	Logger       *slog.Logger
	Concurrency  int
}

// NewResolver creates a Resolver.
func NewResolver(opts Options) *Resolver {
	r := &Resolver{
		fs:          opts.FS,
		roots:       opts.AllowedRoots,
		logger:      opts.Logger,
		concurrency: opts.Concurrency,
		cache:       make(map[string][]byte),
	}
	if r.fs == nil {
		r.fs = fsys.NewRegistry()
	}
	if r.logger == nil {
		r.logger = slog.New(slog.DiscardHandler)
	}
	if r.concurrency <= 0 {
		r.concurrency = DefaultConcurrency
	}
	return r
}

// Inline returns a copy of cfg with every sql_file and sql_template
// reference replaced by inline SQL. cfg itself is not mutated.
func (r *Resolver) Inline(ctx context.Context, cfg *config.Config) (*config.Config, error) {
	out := *cfg
	out.Views = make([]config.View, len(cfg.Views))
	copy(out.Views, cfg.Views)

	roots := r.roots
	if len(roots) == 0 && cfg.Dir != "" {
		roots = []string{cfg.Dir}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for i := range out.Views {
		if out.Views[i].SQLFile == "" && out.Views[i].SQLTemplate == "" {
			continue
		}
		view := &out.Views[i]
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return r.inlineView(view, roots)
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *Resolver) inlineView(v *config.View, roots []string) error {
	ref := v.SQLFile
	isTemplate := false
	if ref == "" {
		ref = v.SQLTemplate
		isTemplate = true
	}

	resolved := ref
	if !fsys.IsRemote(ref) {
		var err error
		resolved, err = pathguard.Resolve(ref, roots)
		if err != nil {
			return &FileError{View: v.Key(), Path: ref, Err: err}
		}
	}

	content, err := r.read(resolved)
	if err != nil {
		return &FileError{View: v.Key(), Path: resolved, Err: err}
	}

	sql := string(content)
	if isTemplate {
		sql, err = substitute(sql, v, resolved)
		if err != nil {
			return err
		}
	}

	r.logger.Debug("inlined sql", "view", v.Key(), "path", resolved, "template", isTemplate)

	v.SQL = sql
	v.SQLFile = ""
	v.SQLTemplate = ""
	v.TemplateVars = nil
	return nil
}

// substitute replaces {{name}} placeholders with the plain string form of
// the view's template variables. No quoting is applied; authors opt into
// quoting explicitly, same as everywhere else in the pipeline.
func substitute(sql string, v *config.View, path string) (string, error) {
	var missing *TemplateVarError
	replaced := placeholderPattern.ReplaceAllStringFunc(sql, func(match string) string {
		name := placeholderPattern.FindStringSubmatch(match)[1]
		val, ok := v.TemplateVars[name]
		if !ok {
			if missing == nil {
				missing = &TemplateVarError{View: v.Key(), Var: name, Path: path}
			}
			return match
		}
		return fmt.Sprintf("%v", val)
	})
	if missing != nil {
		return "", missing
	}
	return replaced, nil
}

// read returns file content through the per-run cache.
func (r *Resolver) read(path string) ([]byte, error) {
	r.mu.Lock()
	if content, ok := r.cache[path]; ok {
		r.mu.Unlock()
		return content, nil
	}
	r.mu.Unlock()

	content, err := r.fs.ReadFile(path)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.cache[path] = content
	r.mu.Unlock()
	return content, nil
}
