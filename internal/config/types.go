// Package config loads declarative catalog descriptions, resolves their
// import graphs into one merged document, and validates the result into
// typed entities. The merged Config is immutable after validation;
// downstream passes produce new values instead of mutating it.
package config

import (
	"path/filepath"

	"github.com/legout/duckalog/internal/fsys"
)

// Config is the merged, validated catalog description.
type Config struct {
	// Database is the DuckDB database path the catalog is built into.
	// Empty means in-memory.
	Database string `koanf:"database"`

	Views          []View           `koanf:"views"`
	Attachments    AttachmentGroups `koanf:"attachments"`
	Secrets        []Secret         `koanf:"secrets"`
	Catalogs       []Catalog        `koanf:"catalogs"`
	SemanticModels []SemanticModel  `koanf:"semantic_models"`

	// Path is the resolved location of the root document; Dir its directory.
	// Set by the loader, not part of the document.
	Path string `koanf:"-"`
	Dir  string `koanf:"-"`
}

// AbsPath resolves a document-relative path against the catalog's directory,
// so generated SQL and resource probes never depend on the process working
// directory. Absolute paths, remote references, and paths from remote
// documents pass through unchanged.
func (c *Config) AbsPath(p string) string {
	if p == "" || c.Dir == "" || fsys.IsRemote(p) || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Dir, p)
}

// View declares a SQL view. Exactly one of SQL, SQLFile, SQLTemplate, or
// Source must be set; the loader enforces this at validation time.
type View struct {
	Name   string `koanf:"name"`
	Schema string `koanf:"schema"`

	// SQL is the inline view body.
	SQL string `koanf:"sql"`
	// SQLFile references an external SQL file, inlined by the resolver pass.
	SQLFile string `koanf:"sql_file"`
	// SQLTemplate references an external SQL file with {{name}} placeholders
	// substituted from TemplateVars.
	SQLTemplate  string         `koanf:"sql_template"`
	TemplateVars map[string]any `koanf:"template_vars"`

	// Source is a structured descriptor instead of hand-written SQL.
	Source *Source `koanf:"source"`
}

// Key returns the identity a view is deduplicated under: schema-qualified
// when a schema is set, the bare name otherwise.
func (v View) Key() string {
	if v.Schema != "" {
		return v.Schema + "." + v.Name
	}
	return v.Name
}

// SourceCount returns how many SQL sources are set on the view.
func (v View) SourceCount() int {
	n := 0
	if v.SQL != "" {
		n++
	}
	if v.SQLFile != "" {
		n++
	}
	if v.SQLTemplate != "" {
		n++
	}
	if v.Source != nil {
		n++
	}
	return n
}

// Source describes where a view's data lives when no SQL is written by hand.
// Either Attachment+Table (a table behind an attached database) or
// Path+Format (a file pattern readable by DuckDB) is set.
type Source struct {
	Attachment string `koanf:"attachment"`
	Table      string `koanf:"table"`

	Path    string         `koanf:"path"`
	Format  string         `koanf:"format"` // parquet, csv, json
	Options map[string]any `koanf:"options"`
}

// AttachmentKind identifies the backend of an attachment.
type AttachmentKind string

const (
	KindDuckDB   AttachmentKind = "duckdb"
	KindSQLite   AttachmentKind = "sqlite"
	KindPostgres AttachmentKind = "postgres"
)

// AttachmentGroups holds attachments grouped by backend kind, matching the
// document layout.
type AttachmentGroups struct {
	DuckDB   []Attachment `koanf:"duckdb"`
	SQLite   []Attachment `koanf:"sqlite"`
	Postgres []Attachment `koanf:"postgres"`
}

// All flattens the groups into one list with Kind populated, preserving
// group order (duckdb, sqlite, postgres) and document order within a group.
func (g AttachmentGroups) All() []Attachment {
	out := make([]Attachment, 0, len(g.DuckDB)+len(g.SQLite)+len(g.Postgres))
	for _, a := range g.DuckDB {
		a.Kind = KindDuckDB
		out = append(out, a)
	}
	for _, a := range g.SQLite {
		a.Kind = KindSQLite
		out = append(out, a)
	}
	for _, a := range g.Postgres {
		a.Kind = KindPostgres
		out = append(out, a)
	}
	return out
}

// Attachment declares a database attached under an alias.
type Attachment struct {
	Alias string `koanf:"alias"`

	// Path locates file-backed databases (duckdb, sqlite).
	Path string `koanf:"path"`

	// Connection parameters for server-backed databases (postgres).
	// Credentials may carry ${env:...} placeholders; interpolation happens
	// before decoding.
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	DBName   string `koanf:"dbname"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`

	ReadOnly bool `koanf:"read_only"`

	// Config points at another catalog description whose built database
	// becomes this attachment's target. Only valid for duckdb attachments.
	Config string `koanf:"config"`

	// Kind is populated by AttachmentGroups.All, not the document.
	Kind AttachmentKind `koanf:"-"`
}

// Secret declares a DuckDB secret for remote storage authentication.
type Secret struct {
	Name       string `koanf:"name"`
	Type       string `koanf:"type"`     // s3, gcs, azure, r2, huggingface
	Provider   string `koanf:"provider"` // config, credential_chain, ...
	Persistent bool   `koanf:"persistent"`

	KeyID        string `koanf:"key_id"`
	Secret       string `koanf:"secret"`
	SessionToken string `koanf:"session_token"`
	Region       string `koanf:"region"`
	Endpoint     string `koanf:"endpoint"`
	URLStyle     string `koanf:"url_style"`
	UseSSL       *bool  `koanf:"use_ssl"`

	// Scope limits the secret to path prefixes: a string or list of strings.
	Scope any `koanf:"scope"`

	// Options carries additional key/value pairs. Values are restricted to
	// bool, integer, float, and string.
	Options map[string]any `koanf:"options"`
}

// ScopeList normalizes Scope into a list of strings.
func (s Secret) ScopeList() []string {
	switch v := s.Scope.(type) {
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		return out
	case []string:
		return v
	}
	return nil
}

// Catalog declares an external table-format catalog attached under a name.
type Catalog struct {
	Name         string         `koanf:"name"`
	MetadataPath string         `koanf:"metadata_path"`
	DataPath     string         `koanf:"data_path"`
	ReadOnly     bool           `koanf:"read_only"`
	Options      map[string]any `koanf:"options"`
}

// SemanticModel is pure metadata carried through the merge for downstream
// tools. It never affects generated SQL.
type SemanticModel struct {
	Name        string         `koanf:"name"`
	Description string         `koanf:"description"`
	Model       map[string]any `koanf:"model"`
}
