// Package app initializes and holds long-lived application services, acting as a dependency injection container.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/alexandria/internal/api"
	"github.com/JakeFAU/alexandria/internal/archive"
	"github.com/JakeFAU/alexandria/internal/clock/system"
	"github.com/JakeFAU/alexandria/internal/config"
	"github.com/JakeFAU/alexandria/internal/database/flatfile"
	"github.com/JakeFAU/alexandria/internal/database/postgres"
	"github.com/JakeFAU/alexandria/internal/external"
	collyfetcher "github.com/JakeFAU/alexandria/internal/fetcher/colly"
	"github.com/JakeFAU/alexandria/internal/id/uuid"
	"github.com/JakeFAU/alexandria/internal/logging"
	"github.com/JakeFAU/alexandria/internal/screenshot"
)

// Store is a snapshot store that holds resources until closed.
type Store interface {
	archive.Store
	Close()
}

// App holds the shared services for one invocation: the snapshot store, the
// archive library, the archiver and the index server.
type App struct {
	cfg      config.Config
	logger   *zap.Logger
	store    Store
	library  *archive.Library
	archiver *archive.Archiver
	server   *api.Server
	closers  []func()
}

// New builds every service from cfg. A nil logger is built from cfg.Logging.
// It fails fast if the store cannot be opened.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		l, err := logging.New(cfg.Logging.Development, cfg.Logging.Verbose)
		if err != nil {
			return nil, err
		}
		logger = l
	}

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	a := &App{cfg: cfg, logger: logger, store: store}
	a.library = archive.NewLibrary(store, cfg.MirrorsDir(), cfg.ScreenshotsDir())

	fetcher := a.buildFetcher()
	shooter, err := a.buildScreenshotter()
	if err != nil {
		a.Close()
		return nil, err
	}
	var committer archive.Committer
	if cfg.Git.Enabled {
		committer = external.NewGit(nil, nil)
	}

	a.archiver = archive.NewArchiver(
		a.library,
		fetcher,
		shooter,
		committer,
		system.New(),
		uuid.New(),
		archive.Options{
			StorageDir:       cfg.Storage.Path,
			SkipFetch:        cfg.Fetch.Skip,
			Screenshots:      cfg.Screenshot.Enabled,
			Delay:            cfg.Fetch.Delay,
			ReadmePath:       cfg.ReadmePath(),
			HTMLPath:         cfg.HTMLPath(),
			IndexPrefix:      cfg.Storage.Mirrors,
			ScreenshotPrefix: cfg.Storage.Screenshots,
			Commit:           cfg.Git.Enabled,
			FetchEngine:      cfg.Fetch.Engine,
		},
		logger.Named("archive"),
	)

	a.server = api.NewServer(a.library, api.Options{
		Port:            cfg.Server.Port,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		Screenshots:     cfg.Screenshot.Enabled,
		Verbose:         cfg.Logging.Verbose,
	}, logger.Named("api"))

	logger.Debug("application services initialized",
		zap.String("storage", cfg.Storage.Path),
		zap.String("database", cfg.Database.Driver),
		zap.String("fetch_engine", cfg.Fetch.Engine),
	)
	return a, nil
}

func openStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (Store, error) {
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		logger.Info("connecting to postgres", zap.String("table", cfg.Database.Table))
		store, err := postgres.NewSnapshotStore(ctx, postgres.Config{
			DSN:   cfg.Database.DSN,
			Table: cfg.Database.Table,
		})
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
		return store, nil
	case config.DriverJSON:
		db, err := flatfile.Open(cfg.DatabasePath())
		if err != nil {
			return nil, fmt.Errorf("init flat database: %w", err)
		}
		return flatfile.NewSnapshotStore(db), nil
	default:
		return nil, fmt.Errorf("unknown database driver: %s", cfg.Database.Driver)
	}
}

func (a *App) buildFetcher() archive.Fetcher {
	if a.cfg.Fetch.Engine == config.EngineColly {
		return collyfetcher.New(collyfetcher.Config{
			MirrorsDir:    a.cfg.MirrorsDir(),
			Depth:         a.cfg.Fetch.Depth,
			UserAgent:     a.cfg.Fetch.UserAgent,
			RespectRobots: a.cfg.Fetch.RespectRobots,
			Timeout:       a.cfg.Fetch.Timeout,
		}, a.logger.Named("colly"))
	}
	return external.NewWget(external.WgetOptions{
		MirrorsDir: a.cfg.MirrorsDir(),
		Depth:      a.cfg.Fetch.Depth,
		UserAgent:  a.cfg.Fetch.UserAgent,
	}, a.logger.Named("wget"))
}

func (a *App) buildScreenshotter() (archive.Screenshotter, error) {
	if !a.cfg.Screenshot.Enabled {
		return nil, nil
	}
	if a.cfg.Screenshot.Engine == config.EngineChromedp {
		shooter, err := screenshot.NewChromedp(screenshot.Config{
			Dir:          a.cfg.ScreenshotsDir(),
			WindowWidth:  a.cfg.Screenshot.WindowWidth,
			WindowHeight: a.cfg.Screenshot.WindowHeight,
			UserAgent:    a.cfg.Fetch.UserAgent,
			Budget:       a.cfg.Screenshot.Budget,
		})
		if err != nil {
			return nil, fmt.Errorf("init chromedp: %w", err)
		}
		a.closers = append(a.closers, shooter.Close)
		return shooter, nil
	}
	return external.NewChromium(external.ChromiumOptions{
		ScreenshotsDir: a.cfg.ScreenshotsDir(),
		WindowWidth:    a.cfg.Screenshot.WindowWidth,
		WindowHeight:   a.cfg.Screenshot.WindowHeight,
		Budget:         a.cfg.Screenshot.Budget,
	}), nil
}

// Config returns the configuration the App was built from.
func (a *App) Config() config.Config { return a.cfg }

// Logger returns the shared zap logger.
func (a *App) Logger() *zap.Logger { return a.logger }

// Library returns the archive facade.
func (a *App) Library() *archive.Library { return a.library }

// Archiver returns the batch archiver.
func (a *App) Archiver() *archive.Archiver { return a.archiver }

// Server returns the index server.
func (a *App) Server() *api.Server { return a.server }

// Close releases browsers and store connections and flushes the logger.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
	if a.store != nil {
		a.store.Close()
	}
	// Syncing stderr fails on some terminals; nothing useful can be done about it.
	_ = a.logger.Sync()
}
