package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/alexandria/internal/archive"
)

func newArchiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "archive url...",
		Short: "Mirror one or more URLs into the archive",
		Long: `Downloads each URL with its page requisites, records a snapshot and
regenerates the README and HTML exports. URLs already in the archive are
skipped.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runArchive,
	}
}

func runArchive(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a App) error {
		if cfg, err := loadedConfig(ctx); err == nil && cfg.Fetch.Skip {
			fmt.Fprintln(cmd.OutOrStdout(), "BYPASSING THE PROCESS OF DOWNLOAD - you are on your own")
		}
		report, err := a.Archiver().Archive(ctx, args)
		printReport(cmd, report)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				a.Logger().Warn("archive interrupted", zap.Int("archived", len(report.Archived)))
			}
			return fmt.Errorf("archive: %w", err)
		}
		return nil
	})
}

func printReport(cmd *cobra.Command, report archive.Report) {
	out := cmd.OutOrStdout()
	for _, s := range report.Archived {
		fmt.Fprintf(out, "archived   %s\n", s.URL)
	}
	for _, raw := range report.Duplicates {
		fmt.Fprintf(out, "duplicate  %s\n", raw)
	}
	for _, f := range report.Failed {
		fmt.Fprintf(out, "failed     %s: %v\n", f.URL, f.Err)
	}
	fmt.Fprintf(out, "%d archived, %d duplicate, %d failed\n",
		len(report.Archived), len(report.Duplicates), len(report.Failed))
}
