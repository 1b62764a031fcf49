// Package config loads CLI settings for duckalog.
//
// The catalog description itself (duckalog.yaml) is the domain document and
// is parsed by internal/config. This package only resolves tool settings:
// which catalog file to build, allowed roots, depth and concurrency limits,
// and output preferences. Precedence (highest to lowest):
// flags > environment (DUCKALOG_ prefix) > settings file > defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	intconfig "github.com/legout/duckalog/internal/config"
)

// Defaults.
const (
	DefaultOutput      = "text"
	DefaultConcurrency = 4

	// SettingsFile is the optional per-project tool settings file. It holds
	// CLI settings only, never catalog entities.
	SettingsFile = ".duckalog.yaml"
)

// maxUpwardSearchLevels limits how far up the directory tree to search for
// a catalog file.
const maxUpwardSearchLevels = 10

// Config holds all CLI settings.
type Config struct {
	// Catalog is the catalog description file to operate on.
	Catalog string `koanf:"catalog"`
	// Roots are the allowed roots for import and SQL file resolution.
	// Empty means the catalog file's directory.
	Roots []string `koanf:"roots"`

	MaxDepth    int  `koanf:"max_depth"`
	Concurrency int  `koanf:"concurrency"`
	Verbose     bool `koanf:"verbose"`

	// Output selects the rendering mode (text|json).
	Output string `koanf:"output"`

	// ProjectRoot is the directory the catalog file was found in.
	ProjectRoot string `koanf:"-"`
}

var catalogNames = []string{"duckalog.yaml", "duckalog.yml"}

// findCatalog locates the catalog file. Priority: explicit path, then
// duckalog.yaml / duckalog.yml in the current directory, then upward.
func findCatalog(explicit string) string {
	if explicit != "" {
		return explicit
	}

	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for i := 0; i < maxUpwardSearchLevels; i++ {
		for _, name := range catalogNames {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// Load assembles the CLI settings from defaults, the optional settings
// file, DUCKALOG_* environment variables, and explicitly set flags.
func Load(catalogFlag string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(map[string]interface{}{
		"max_depth":   intconfig.DefaultMaxDepth,
		"concurrency": DefaultConcurrency,
		"verbose":     false,
		"output":      DefaultOutput,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	explicit := catalogFlag
	if explicit == "" {
		explicit = os.Getenv("DUCKALOG_CATALOG")
	}
	catalog := findCatalog(explicit)
	projectRoot := ""
	if catalog != "" {
		abs, err := filepath.Abs(catalog)
		if err != nil {
			return nil, fmt.Errorf("resolving catalog path: %w", err)
		}
		catalog = abs
		projectRoot = filepath.Dir(abs)
	}

	// Optional per-project settings file next to the catalog.
	if projectRoot != "" {
		settings := filepath.Join(projectRoot, SettingsFile)
		if _, err := os.Stat(settings); err == nil {
			if err := k.Load(file.Provider(settings), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("error reading settings file %s: %w", settings, err)
			}
		}
	}

	// Transform: DUCKALOG_MAX_DEPTH -> max_depth
	if err := k.Load(env.Provider("DUCKALOG_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "DUCKALOG_"))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			key := strings.ReplaceAll(f.Name, "-", "_")

			// The CLI uses --root (repeatable) for the roots list.
			if key == "root" {
				return "roots", posflag.FlagVal(flags, f)
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode settings: %w", err)
	}

	cfg.Catalog = catalog
	cfg.ProjectRoot = projectRoot

	for i, root := range cfg.Roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("resolving root %q: %w", root, err)
		}
		cfg.Roots[i] = abs
	}

	return &cfg, nil
}
