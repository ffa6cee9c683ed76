package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the archive index over HTTP",
		Long: `Starts the index server on --port. The home page lists every snapshot,
newest first; every other path is served from the mirror directory.
Ctrl-C shuts the server down gracefully.`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, func(ctx context.Context, a App) error {
		if err := a.Server().Start(ctx); err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
}
