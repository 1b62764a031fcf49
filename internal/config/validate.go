package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/legout/duckalog/pkg/sqlsafe"
)

// validate enforces entity invariants over the merged result. All violations
// are accumulated and reported together.
func validate(cfg *Config, prov provenance) error {
	var errs []error

	errs = append(errs, duplicateErrors(prov)...)

	aliases := make(map[string]bool)
	for _, a := range cfg.Attachments.All() {
		if a.Alias != "" {
			aliases[a.Alias] = true
		}
	}
	for _, c := range cfg.Catalogs {
		if c.Name != "" {
			aliases[c.Name] = true
		}
	}

	for _, v := range cfg.Views {
		entity := fmt.Sprintf("view %q", v.Key())
		file := firstFile(prov, "view", v.Key())
		if v.Name == "" {
			errs = append(errs, &ValidationError{Entity: "view", File: file, Msg: "name is required"})
			continue
		}
		switch n := v.SourceCount(); {
		case n == 0:
			errs = append(errs, &ValidationError{Entity: entity, File: file,
				Msg: "one of sql, sql_file, sql_template, or source is required"})
		case n > 1:
			errs = append(errs, &ValidationError{Entity: entity, File: file,
				Msg: "sql, sql_file, sql_template, and source are mutually exclusive"})
		}
		if v.Source != nil {
			errs = append(errs, validateSource(entity, file, v.Source, aliases)...)
		}
	}

	for _, a := range cfg.Attachments.All() {
		entity := fmt.Sprintf("%s attachment %q", a.Kind, a.Alias)
		file := firstFile(prov, "attachment", a.Alias)
		if a.Alias == "" {
			errs = append(errs, &ValidationError{Entity: string(a.Kind) + " attachment", File: file, Msg: "alias is required"})
			continue
		}
		switch a.Kind {
		case KindDuckDB:
			if a.Path == "" && a.Config == "" {
				errs = append(errs, &ValidationError{Entity: entity, File: file, Msg: "path or config is required"})
			}
		case KindSQLite:
			if a.Path == "" {
				errs = append(errs, &ValidationError{Entity: entity, File: file, Msg: "path is required"})
			}
			if a.Config != "" {
				errs = append(errs, &ValidationError{Entity: entity, File: file, Msg: "nested config is only supported for duckdb attachments"})
			}
		case KindPostgres:
			if a.Host == "" || a.DBName == "" {
				errs = append(errs, &ValidationError{Entity: entity, File: file, Msg: "host and dbname are required"})
			}
			if a.Config != "" {
				errs = append(errs, &ValidationError{Entity: entity, File: file, Msg: "nested config is only supported for duckdb attachments"})
			}
		}
	}

	for _, s := range cfg.Secrets {
		entity := fmt.Sprintf("secret %q", s.Name)
		file := firstFile(prov, "secret", s.Name)
		if s.Name == "" {
			errs = append(errs, &ValidationError{Entity: "secret", File: file, Msg: "name is required"})
			continue
		}
		if s.Type == "" {
			errs = append(errs, &ValidationError{Entity: entity, File: file, Msg: "type is required"})
		} else if !plainIdentifier(s.Type) {
			errs = append(errs, &ValidationError{Entity: entity, File: file,
				Msg: fmt.Sprintf("type %q must contain only letters, digits, and underscores", s.Type)})
		}
		errs = append(errs, optionErrors(entity, file, s.Options)...)
	}

	for _, c := range cfg.Catalogs {
		entity := fmt.Sprintf("catalog %q", c.Name)
		file := firstFile(prov, "catalog", c.Name)
		if c.Name == "" {
			errs = append(errs, &ValidationError{Entity: "catalog", File: file, Msg: "name is required"})
			continue
		}
		if c.MetadataPath == "" {
			errs = append(errs, &ValidationError{Entity: entity, File: file, Msg: "metadata_path is required"})
		}
		errs = append(errs, optionErrors(entity, file, c.Options)...)
	}

	for _, m := range cfg.SemanticModels {
		if m.Name == "" {
			errs = append(errs, &ValidationError{Entity: "semantic model", Msg: "name is required"})
		}
	}

	if len(errs) > 0 {
		return &ValidationErrors{Errors: errs}
	}
	return nil
}

// duplicateErrors reports every entity identity defined more than once.
// Secrets are exempt: they are emitted with CREATE OR REPLACE and the last
// definition winning is the documented behavior.
func duplicateErrors(prov provenance) []error {
	keys := make([]string, 0, len(prov))
	for key := range prov {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var errs []error
	for _, key := range keys {
		files := prov[key]
		if len(files) < 2 {
			continue
		}
		kind, name, _ := strings.Cut(key, ":")
		if kind == "secret" {
			continue
		}
		errs = append(errs, &DuplicateNameError{Kind: kind, Name: name, Files: files})
	}
	return errs
}

func validateSource(entity, file string, src *Source, aliases map[string]bool) []error {
	var errs []error
	hasAttachment := src.Attachment != ""
	hasPath := src.Path != ""
	switch {
	case hasAttachment && hasPath:
		errs = append(errs, &ValidationError{Entity: entity, File: file,
			Msg: "source.attachment and source.path are mutually exclusive"})
	case !hasAttachment && !hasPath:
		errs = append(errs, &ValidationError{Entity: entity, File: file,
			Msg: "source requires attachment or path"})
	case hasAttachment:
		if src.Table == "" {
			errs = append(errs, &ValidationError{Entity: entity, File: file, Msg: "source.table is required with source.attachment"})
		}
		if !aliases[src.Attachment] {
			errs = append(errs, &ValidationError{Entity: entity, File: file,
				Msg: fmt.Sprintf("source references unknown attachment %q", src.Attachment)})
		}
	}
	errs = append(errs, optionErrors(entity, file, src.Options)...)
	return errs
}

// optionErrors type-checks an options map; only primitives may reach
// generated SQL.
func optionErrors(entity, file string, options map[string]any) []error {
	keys := make([]string, 0, len(options))
	for key := range options {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var errs []error
	for _, key := range keys {
		if _, err := sqlsafe.RenderOptionValue(key, options[key]); err != nil {
			errs = append(errs, &ValidationError{Entity: entity, File: file, Msg: err.Error()})
		}
	}
	return errs
}

func firstFile(prov provenance, kind, name string) string {
	if files := prov.files(kind, name); len(files) > 0 {
		return files[0]
	}
	return ""
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
