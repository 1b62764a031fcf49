package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/legout/duckalog/internal/build"
)

// NewPlanCommand creates the plan command.
func NewPlanCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan [catalog.yaml]",
		Short: "Show the statements a build would execute",
		Long: `Merge and validate the catalog description, then print every statement a
build would execute, in order, without touching any database.`,
		Example: `  # Show the plan as a table
  duckalog plan

  # Machine-readable plan for CI
  duckalog plan -o json`,
		Args: cobra.MaximumNArgs(1),
		RunE: runPlan,
	}
	return cmd
}

// planStatement is the JSON shape of one planned statement.
type planStatement struct {
	Database string `json:"database"`
	Phase    string `json:"phase"`
	Object   string `json:"object"`
	SQL      string `json:"sql"`
}

func runPlan(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := GetConfig(ctx)

	path, err := catalogPath(cfg, args)
	if err != nil {
		return err
	}

	res, err := newRunner(ctx, cfg, true, nil).Run(ctx, path)
	if err != nil {
		return err
	}

	if cfg.Output == "json" {
		var plan []planStatement
		for _, cat := range res.Catalogs {
			for _, stmt := range cat.Statements {
				plan = append(plan, planStatement{
					Database: cat.Database,
					Phase:    string(stmt.Phase),
					Object:   stmt.Object,
					SQL:      stmt.SQL,
				})
			}
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(plan)
	}

	out := cmd.OutOrStdout()
	for _, cat := range res.Catalogs {
		fmt.Fprintf(out, "Catalog %s (%s)\n", cat.Database, cat.Path)

		t := table.NewWriter()
		t.SetOutputMirror(out)
		t.SetStyle(table.StyleLight)
		t.AppendHeader(table.Row{"#", "Phase", "Object", "SQL"})
		for i, stmt := range cat.Statements {
			t.AppendRow(table.Row{i + 1, stmt.Phase, stmt.Object, truncateSQL(stmt.SQL, 80)})
		}
		t.Render()
		fmt.Fprintln(out)
	}
	fmt.Fprintf(out, "%d catalog(s), %d statement(s)\n", len(res.Catalogs), countStatements(res))
	return nil
}

func countStatements(res *build.Result) int {
	n := 0
	for _, cat := range res.Catalogs {
		n += len(cat.Statements)
	}
	return n
}

// truncateSQL collapses a statement to one line bounded at max runes.
func truncateSQL(sql string, max int) string {
	oneLine := strings.Join(strings.Fields(sql), " ")
	runes := []rune(oneLine)
	if len(runes) <= max {
		return oneLine
	}
	return string(runes[:max-3]) + "..."
}
