package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/alexandria/internal/export"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print every snapshot as a table, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a App) error {
				snaps, err := a.Library().NewestFirst(ctx, func(err error) {
					a.Logger().Warn("skipping snapshot", zap.Error(err))
				})
				if err != nil {
					return fmt.Errorf("list: %w", err)
				}
				export.Table(cmd.OutOrStdout(), snaps)
				return nil
			})
		},
	}
}
