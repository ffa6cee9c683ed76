// Package cmd defines and implements the CLI commands for the alexandria executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/alexandria/internal/api"
	"github.com/JakeFAU/alexandria/internal/app"
	"github.com/JakeFAU/alexandria/internal/archive"
	"github.com/JakeFAU/alexandria/internal/config"
)

const (
	banner   = "Alexandria - CLI website preservation"
	farewell = "Keep and hold"
)

// configKeyType is the key for storing the loaded Config in the context.
type configKeyType string

const configKey configKeyType = "config"

// App defines the application interface that commands will use.
// This allows us to inject a test app.
type App interface {
	Close()
	Logger() *zap.Logger
	Library() *archive.Library
	Archiver() *archive.Archiver
	Server() *api.Server
}

// newApp is the application factory. It's a variable so tests can replace it.
var newApp = func(ctx context.Context, cfg config.Config) (App, error) {
	return app.New(ctx, cfg, nil)
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alexandria [url...]",
		Short: "A tool to manage your personal website backup library.",
		Long: `alexandria mirrors web pages into a local storage directory, keeps an index
of every snapshot and serves the archive over HTTP.

With URLs it archives them; without arguments it starts the index server.`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,

		// Config is loaded after flags are parsed so explicit flags win over
		// the file and the environment.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), banner)
			path, err := cmd.Flags().GetString("config")
			if err != nil {
				return fmt.Errorf("read --config: %w", err)
			}
			cfg, err := config.Load(path, cmd.Flags())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), configKey, cfg))
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), farewell)
		},

		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return runArchive(cmd, args)
			}
			return runServe(cmd, args)
		},
	}

	flags := cmd.PersistentFlags()
	flags.String("config", "", "config file (YAML, TOML or JSON)")
	flags.String("path", "./alx", "storage directory")
	flags.IntP("port", "p", 8000, "the port to run the server on")
	flags.BoolP("verbose", "v", false, "enable verbose logging")
	flags.Int("depth", 1, "recursion depth when mirroring")
	flags.String("engine", config.EngineWget, "fetch engine: wget or colly")
	flags.Duration("delay", 0, "minimum pause between two fetches")
	flags.Bool("readme", true, "generate the database README")
	flags.Bool("html", false, "generate a static HTML index")
	flags.Bool("screenshot", false, "take a screenshot of each page")
	flags.Bool("skip", false, "skip the download, only add entries")
	flags.Bool("git", false, "commit the storage directory after archiving")

	cmd.AddCommand(newArchiveCmd(), newServeCmd(), newExportCmd(), newListCmd())
	return cmd
}

// Execute is the main entry point. SIGINT and SIGTERM cancel the running
// command.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func loadedConfig(ctx context.Context) (config.Config, error) {
	cfg, ok := ctx.Value(configKey).(config.Config)
	if !ok {
		return config.Config{}, errors.New("configuration not loaded")
	}
	return cfg, nil
}

// withApp builds the application for one command and closes it afterwards.
func withApp(cmd *cobra.Command, run func(ctx context.Context, a App) error) error {
	ctx := cmd.Context()
	cfg, err := loadedConfig(ctx)
	if err != nil {
		return err
	}
	appInstance, err := newApp(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize application services: %w", err)
	}
	defer appInstance.Close()
	return run(ctx, appInstance)
}
