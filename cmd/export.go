package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Regenerate the README and HTML exports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a App) error {
				if err := a.Archiver().WriteExports(ctx); err != nil {
					return fmt.Errorf("export: %w", err)
				}
				return nil
			})
		},
	}
}
