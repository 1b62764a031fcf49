package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

const starterCatalog = `# duckalog catalog description
database: catalog.duckdb

views:
  - name: example
    schema: main
    sql_file: sql/example.sql

# Compose descriptions from other files:
# imports:
#   - shared/attachments.yaml

# Attach databases under an alias:
# attachments:
#   sqlite:
#     - alias: app
#       path: app.db
#       read_only: true

# Authenticate against remote storage:
# secrets:
#   - name: warehouse
#     type: s3
#     key_id: ${env:AWS_ACCESS_KEY_ID}
#     secret: ${env:AWS_SECRET_ACCESS_KEY}
`

const starterSQL = `SELECT 42 AS answer
`

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new duckalog project",
		Long: `Create a starter duckalog.yaml and an example SQL file.

The generated catalog builds a single example view; edit duckalog.yaml to
add views, attachments, secrets, and imports.`,
		Example: `  # Initialize in the current directory
  duckalog init

  # Initialize in a new directory
  duckalog init my-catalog

  # Overwrite an existing duckalog.yaml
  duckalog init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			return runInit(cmd, dir, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration")

	return cmd
}

func runInit(cmd *cobra.Command, dir string, force bool) error {
	if dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	catalogPath := filepath.Join(dir, "duckalog.yaml")
	if _, err := os.Stat(catalogPath); err == nil && !force {
		return fmt.Errorf("duckalog.yaml already exists. Use --force to overwrite")
	}

	if err := os.MkdirAll(filepath.Join(dir, "sql"), 0o750); err != nil {
		return fmt.Errorf("failed to create sql directory: %w", err)
	}
	if err := os.WriteFile(catalogPath, []byte(starterCatalog), 0o644); err != nil {
		return fmt.Errorf("failed to write duckalog.yaml: %w", err)
	}
	sqlPath := filepath.Join(dir, "sql", "example.sql")
	if err := os.WriteFile(sqlPath, []byte(starterSQL), 0o644); err != nil {
		return fmt.Errorf("failed to write example SQL: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "created", catalogPath)
	fmt.Fprintln(out, "created", sqlPath)
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "duckalog project initialized!")
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "Next steps:")
	fmt.Fprintln(out, "  1. Edit duckalog.yaml to describe your catalog")
	fmt.Fprintln(out, "  2. Run 'duckalog plan' to inspect the generated SQL")
	fmt.Fprintln(out, "  3. Run 'duckalog build' to build the database")

	return nil
}
