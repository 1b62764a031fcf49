// Package emit turns a validated, SQL-inlined config into the ordered
// statement sequence that builds the catalog. Order is deliberate: secrets
// first so attachments can authenticate, attachments next so views can
// reference their aliases, then schemas and views. Every identifier and
// literal passes through sqlsafe; raw configuration strings are never
// interpolated.
package emit

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/legout/duckalog/internal/config"
	"github.com/legout/duckalog/pkg/sqlsafe"
)

// Phase identifies the build phase a statement belongs to.
type Phase string

const (
	PhaseSecret     Phase = "secret"
	PhaseAttachment Phase = "attachment"
	PhaseCatalog    Phase = "catalog"
	PhaseSchema     Phase = "schema"
	PhaseView       Phase = "view"
)

// Statement is one generated SQL statement with its phase and the entity it
// came from.
type Statement struct {
	Phase  Phase
	Object string
	SQL    string
}

// Statements generates the full ordered statement list for cfg. artifacts
// maps attachment aliases with nested configs to their built database paths.
func Statements(cfg *config.Config, artifacts map[string]string) ([]Statement, error) {
	var out []Statement

	for _, s := range cfg.Secrets {
		sql, err := secretSQL(s)
		if err != nil {
			return nil, err
		}
		out = append(out, Statement{Phase: PhaseSecret, Object: s.Name, SQL: sql})
	}

	for _, a := range cfg.Attachments.All() {
		sql, err := attachSQL(cfg, a, artifacts)
		if err != nil {
			return nil, err
		}
		out = append(out, Statement{Phase: PhaseAttachment, Object: a.Alias, SQL: sql})
	}

	for _, c := range cfg.Catalogs {
		sql, err := catalogSQL(c)
		if err != nil {
			return nil, err
		}
		out = append(out, Statement{Phase: PhaseCatalog, Object: c.Name, SQL: sql})
	}

	for _, schema := range viewSchemas(cfg.Views) {
		out = append(out, Statement{
			Phase:  PhaseSchema,
			Object: schema,
			SQL:    "CREATE SCHEMA IF NOT EXISTS " + sqlsafe.QuoteIdent(schema),
		})
	}

	for _, v := range cfg.Views {
		sql, err := viewSQL(v)
		if err != nil {
			return nil, err
		}
		out = append(out, Statement{Phase: PhaseView, Object: v.Key(), SQL: sql})
	}

	return out, nil
}

// SQL returns just the statement text, in order.
func SQL(stmts []Statement) []string {
	out := make([]string, len(stmts))
	for i, s := range stmts {
		out[i] = s.SQL
	}
	return out
}

func secretSQL(s config.Secret) (string, error) {
	if !plainIdentifier(s.Type) {
		return "", fmt.Errorf("secret %q: invalid type %q", s.Name, s.Type)
	}

	params := []string{"TYPE " + s.Type}
	if s.Provider != "" {
		if !plainIdentifier(s.Provider) {
			return "", fmt.Errorf("secret %q: invalid provider %q", s.Name, s.Provider)
		}
		params = append(params, "PROVIDER "+s.Provider)
	}

	stringParams := []struct{ key, val string }{
		{"KEY_ID", s.KeyID},
		{"SECRET", s.Secret},
		{"SESSION_TOKEN", s.SessionToken},
		{"REGION", s.Region},
		{"ENDPOINT", s.Endpoint},
		{"URL_STYLE", s.URLStyle},
	}
	for _, p := range stringParams {
		if p.val != "" {
			params = append(params, p.key+" "+sqlsafe.QuoteLiteral(p.val))
		}
	}
	if s.UseSSL != nil {
		params = append(params, "USE_SSL "+strings.ToUpper(strconv.FormatBool(*s.UseSSL)))
	}
	if scope := s.ScopeList(); len(scope) > 0 {
		quoted := make([]string, len(scope))
		for i, sc := range scope {
			quoted[i] = sqlsafe.QuoteLiteral(sc)
		}
		params = append(params, "SCOPE ("+strings.Join(quoted, ", ")+")")
	}

	extra, err := renderOptions(s.Options, fmt.Sprintf("secret %q", s.Name), " ")
	if err != nil {
		return "", err
	}
	params = append(params, extra...)

	keyword := "SECRET"
	if s.Persistent {
		keyword = "PERSISTENT SECRET"
	}
	return fmt.Sprintf("CREATE OR REPLACE %s %s (%s)",
		keyword, sqlsafe.QuoteIdent(s.Name), strings.Join(params, ", ")), nil
}

// attachSQL renders one ATTACH statement. File targets resolve against the
// document's directory; the engine would otherwise resolve them against its
// own working directory.
func attachSQL(cfg *config.Config, a config.Attachment, artifacts map[string]string) (string, error) {
	var target string
	var opts []string

	switch a.Kind {
	case config.KindDuckDB:
		path := cfg.AbsPath(a.Path)
		if a.Config != "" {
			built, ok := artifacts[a.Alias]
			if !ok {
				return "", fmt.Errorf("attachment %q: nested catalog %s has not been built", a.Alias, a.Config)
			}
			path = built
		}
		target = path
	case config.KindSQLite:
		target = cfg.AbsPath(a.Path)
		opts = append(opts, "TYPE sqlite")
	case config.KindPostgres:
		target = postgresConnInfo(a)
		opts = append(opts, "TYPE postgres")
	default:
		return "", fmt.Errorf("attachment %q: unknown kind %q", a.Alias, a.Kind)
	}

	if a.ReadOnly {
		opts = append(opts, "READ_ONLY")
	}

	sql := fmt.Sprintf("ATTACH IF NOT EXISTS %s AS %s", sqlsafe.QuoteLiteral(target), sqlsafe.QuoteIdent(a.Alias))
	if len(opts) > 0 {
		sql += " (" + strings.Join(opts, ", ") + ")"
	}
	return sql, nil
}

// postgresConnInfo builds a libpq-style connection string. Values are
// escaped per conninfo rules (backslash and single quote), then the whole
// string is embedded as one SQL literal by the caller.
func postgresConnInfo(a config.Attachment) string {
	pairs := []struct{ key, val string }{
		{"dbname", a.DBName},
		{"host", a.Host},
		{"user", a.User},
		{"password", a.Password},
	}

	var parts []string
	for _, p := range pairs {
		if p.val != "" {
			parts = append(parts, p.key+"="+conninfoValue(p.val))
		}
	}
	if a.Port != 0 {
		parts = append(parts, "port="+strconv.Itoa(a.Port))
	}
	return strings.Join(parts, " ")
}

func conninfoValue(v string) string {
	escaped := strings.ReplaceAll(v, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `'`, `\'`)
	if strings.ContainsAny(escaped, " \t") || escaped == "" {
		return "'" + escaped + "'"
	}
	return escaped
}

func catalogSQL(c config.Catalog) (string, error) {
	var opts []string
	if c.DataPath != "" {
		opts = append(opts, "DATA_PATH "+sqlsafe.QuoteLiteral(c.DataPath))
	}
	if c.ReadOnly {
		opts = append(opts, "READ_ONLY")
	}

	extra, err := renderOptions(c.Options, fmt.Sprintf("catalog %q", c.Name), " ")
	if err != nil {
		return "", err
	}
	opts = append(opts, extra...)

	sql := fmt.Sprintf("ATTACH IF NOT EXISTS %s AS %s",
		sqlsafe.QuoteLiteral("ducklake:"+c.MetadataPath), sqlsafe.QuoteIdent(c.Name))
	if len(opts) > 0 {
		sql += " (" + strings.Join(opts, ", ") + ")"
	}
	return sql, nil
}

func viewSQL(v config.View) (string, error) {
	body := v.SQL
	switch {
	case v.SQLFile != "" || v.SQLTemplate != "":
		return "", fmt.Errorf("view %q: external SQL reference was not inlined before emission", v.Key())
	case v.Source != nil:
		var err error
		body, err = sourceSQL(v)
		if err != nil {
			return "", err
		}
	case body == "":
		return "", fmt.Errorf("view %q: no SQL source", v.Key())
	}

	return fmt.Sprintf("CREATE OR REPLACE VIEW %s AS %s",
		sqlsafe.QuoteQualified(v.Schema, v.Name), body), nil
}

func sourceSQL(v config.View) (string, error) {
	src := v.Source
	if src.Attachment != "" {
		parts := []string{sqlsafe.QuoteIdent(src.Attachment)}
		for _, p := range strings.Split(src.Table, ".") {
			parts = append(parts, sqlsafe.QuoteIdent(p))
		}
		return "SELECT * FROM " + strings.Join(parts, "."), nil
	}

	reader, err := readerFunction(src, v.Key())
	if err != nil {
		return "", err
	}

	args := []string{sqlsafe.QuoteLiteral(src.Path)}
	opts, err := renderOptions(src.Options, fmt.Sprintf("view %q", v.Key()), "=")
	if err != nil {
		return "", err
	}
	args = append(args, opts...)

	return fmt.Sprintf("SELECT * FROM %s(%s)", reader, strings.Join(args, ", ")), nil
}

func readerFunction(src *config.Source, view string) (string, error) {
	format := src.Format
	if format == "" {
		format = inferFormat(src.Path)
	}
	switch format {
	case "parquet":
		return "read_parquet", nil
	case "csv":
		return "read_csv", nil
	case "json":
		return "read_json", nil
	case "":
		return "", fmt.Errorf("view %q: cannot infer format from path %q, set source.format", view, src.Path)
	default:
		return "", fmt.Errorf("view %q: unsupported source format %q", view, format)
	}
}

func inferFormat(path string) string {
	trimmed := strings.TrimRight(path, "*?")
	switch {
	case strings.HasSuffix(trimmed, ".parquet"):
		return "parquet"
	case strings.HasSuffix(trimmed, ".csv"), strings.HasSuffix(trimmed, ".csv.gz"):
		return "csv"
	case strings.HasSuffix(trimmed, ".json"), strings.HasSuffix(trimmed, ".ndjson"), strings.HasSuffix(trimmed, ".jsonl"):
		return "json"
	}
	return ""
}

// renderOptions renders an options map as "KEY<sep>value" entries in sorted
// key order. Values go through sqlsafe type checking.
func renderOptions(options map[string]any, entity, sep string) ([]string, error) {
	keys := make([]string, 0, len(options))
	for key := range options {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var out []string
	for _, key := range keys {
		if !plainIdentifier(key) {
			return nil, fmt.Errorf("%s: invalid option name %q", entity, key)
		}
		val, err := sqlsafe.RenderOptionValue(key, options[key])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", entity, err)
		}
		out = append(out, key+sep+val)
	}
	return out, nil
}

func viewSchemas(views []config.View) []string {
	seen := make(map[string]bool)
	var schemas []string
	for _, v := range views {
		if v.Schema != "" && !seen[v.Schema] {
			seen[v.Schema] = true
			schemas = append(schemas, v.Schema)
		}
	}
	sort.Strings(schemas)
	return schemas
}

func plainIdentifier(s string) bool {
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
		default:
			return false
		}
	}
	return s != ""
}
