package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	intconfig "github.com/legout/duckalog/internal/config"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [catalog.yaml]",
		Short: "Validate the catalog description",
		Long: `Merge the catalog description and its imports, walk every nested catalog,
and report all validation errors. Nothing is executed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runValidate,
	}
}

func runValidate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := GetConfig(ctx)

	path, err := catalogPath(cfg, args)
	if err != nil {
		return err
	}

	res, err := newRunner(ctx, cfg, true, nil).Run(ctx, path)
	if err != nil {
		var verrs *intconfig.ValidationErrors
		if errors.As(err, &verrs) {
			out := cmd.ErrOrStderr()
			for _, e := range verrs.Errors {
				fmt.Fprintf(out, "  - %v\n", e)
			}
		}
		return fmt.Errorf("validation failed: %w", err)
	}

	out := cmd.OutOrStdout()
	for _, cat := range res.Catalogs {
		fmt.Fprintf(out, "ok  %s -> %s (%d statements)\n", cat.Path, cat.Database, len(cat.Statements))
	}
	fmt.Fprintf(out, "%d catalog description(s) valid\n", len(res.Catalogs))
	return nil
}
