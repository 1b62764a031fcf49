package commands

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	intconfig "github.com/legout/duckalog/internal/config"
	"github.com/legout/duckalog/internal/doctor"
)

// NewDoctorCommand creates the doctor command.
func NewDoctorCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor [catalog.yaml]",
		Short: "Check the catalog's external resources",
		Long: `Probe every resource the catalog description depends on: attachment
database files, postgres connections, and referenced SQL files. The catalog
itself is not built.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runDoctor,
	}
}

func runDoctor(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := GetConfig(ctx)
	logger := GetLogger(ctx)

	path, err := catalogPath(cfg, args)
	if err != nil {
		return err
	}

	loader := intconfig.NewLoader(intconfig.LoaderOptions{
		AllowedRoots: cfg.Roots,
		MaxDepth:     cfg.MaxDepth,
		Logger:       logger,
	})
	merged, err := loader.Load(path)
	if err != nil {
		return err
	}

	checks, ok := doctor.New(doctor.Options{Logger: logger}).Run(ctx, merged)

	out := cmd.OutOrStdout()
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Object", "Kind", "Status", "Detail"})
	for _, c := range checks {
		t.AppendRow(table.Row{c.Object, c.Kind, c.Status, c.Detail})
	}
	t.Render()

	if !ok {
		return fmt.Errorf("doctor found problems")
	}
	fmt.Fprintf(out, "%d check(s) passed\n", len(checks))
	return nil
}
