package commands

import (
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	intconfig "github.com/legout/duckalog/internal/config"
)

// NewConfigCommand creates the config command group.
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the merged catalog description",
	}
	cmd.AddCommand(newConfigShowCommand())
	return cmd
}

// mergedDoc is the YAML shape printed by config show. It mirrors the
// document keys, not the internal struct layout.
type mergedDoc struct {
	Database       string                    `yaml:"database,omitempty"`
	Views          []map[string]any          `yaml:"views,omitempty"`
	Attachments    map[string][]mergedAttach `yaml:"attachments,omitempty"`
	Secrets        []map[string]string       `yaml:"secrets,omitempty"`
	Catalogs       []map[string]any          `yaml:"catalogs,omitempty"`
	SemanticModels []map[string]any          `yaml:"semantic_models,omitempty"`
}

type mergedAttach struct {
	Alias    string `yaml:"alias"`
	Path     string `yaml:"path,omitempty"`
	Host     string `yaml:"host,omitempty"`
	Port     int    `yaml:"port,omitempty"`
	DBName   string `yaml:"dbname,omitempty"`
	User     string `yaml:"user,omitempty"`
	ReadOnly bool   `yaml:"read_only,omitempty"`
	Config   string `yaml:"config,omitempty"`
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show [catalog.yaml]",
		Short: "Print the merged catalog description as YAML",
		Long: `Merge the catalog description with all its imports and print the result.
Secret material and attachment passwords are redacted.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runConfigShow,
	}
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := GetConfig(ctx)

	path, err := catalogPath(cfg, args)
	if err != nil {
		return err
	}

	loader := intconfig.NewLoader(intconfig.LoaderOptions{
		AllowedRoots: cfg.Roots,
		MaxDepth:     cfg.MaxDepth,
		Logger:       GetLogger(ctx),
	})
	merged, err := loader.Load(path)
	if err != nil {
		return err
	}

	doc := mergedDoc{Database: merged.Database}

	for _, v := range merged.Views {
		entry := map[string]any{"name": v.Name}
		setIf(entry, "schema", v.Schema)
		setIf(entry, "sql", v.SQL)
		setIf(entry, "sql_file", v.SQLFile)
		setIf(entry, "sql_template", v.SQLTemplate)
		if v.Source != nil {
			src := map[string]any{}
			setIf(src, "attachment", v.Source.Attachment)
			setIf(src, "table", v.Source.Table)
			setIf(src, "path", v.Source.Path)
			setIf(src, "format", v.Source.Format)
			entry["source"] = src
		}
		doc.Views = append(doc.Views, entry)
	}

	for _, c := range merged.Catalogs {
		entry := map[string]any{"name": c.Name, "metadata_path": c.MetadataPath}
		setIf(entry, "data_path", c.DataPath)
		if c.ReadOnly {
			entry["read_only"] = true
		}
		doc.Catalogs = append(doc.Catalogs, entry)
	}

	for _, m := range merged.SemanticModels {
		entry := map[string]any{"name": m.Name}
		setIf(entry, "description", m.Description)
		doc.SemanticModels = append(doc.SemanticModels, entry)
	}

	groups := map[string][]intconfig.Attachment{
		"duckdb":   merged.Attachments.DuckDB,
		"sqlite":   merged.Attachments.SQLite,
		"postgres": merged.Attachments.Postgres,
	}
	for kind, atts := range groups {
		for _, a := range atts {
			if doc.Attachments == nil {
				doc.Attachments = make(map[string][]mergedAttach)
			}
			doc.Attachments[kind] = append(doc.Attachments[kind], mergedAttach{
				Alias:    a.Alias,
				Path:     a.Path,
				Host:     a.Host,
				Port:     a.Port,
				DBName:   a.DBName,
				User:     a.User,
				ReadOnly: a.ReadOnly,
				Config:   a.Config,
			})
		}
	}

	for _, s := range merged.Secrets {
		entry := map[string]string{
			"name": s.Name,
			"type": s.Type,
		}
		if s.KeyID != "" {
			entry["key_id"] = "[redacted]"
		}
		if s.Secret != "" {
			entry["secret"] = "[redacted]"
		}
		doc.Secrets = append(doc.Secrets, entry)
	}

	return printYAML(cmd, doc)
}

func setIf(m map[string]any, key, value string) {
	if value != "" {
		m[key] = value
	}
}

func printYAML(cmd *cobra.Command, doc mergedDoc) error {
	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	defer func() { _ = enc.Close() }()
	return enc.Encode(doc)
}
