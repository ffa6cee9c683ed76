package archive

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/JakeFAU/alexandria/internal/export"
	"github.com/JakeFAU/alexandria/internal/external"
	"github.com/JakeFAU/alexandria/internal/metrics"
	"github.com/JakeFAU/alexandria/internal/snapshot"
)

// Options controls an Archiver.
type Options struct {
	// StorageDir is committed to git after a batch when Commit is set.
	StorageDir string
	// SkipFetch records URLs without downloading them. The mirror must
	// already hold the pages.
	SkipFetch   bool
	Screenshots bool
	// Delay is the minimum pause between two fetches.
	Delay time.Duration
	// ReadmePath and HTMLPath are rewritten after a batch when non-empty.
	ReadmePath string
	HTMLPath   string
	// IndexPrefix and ScreenshotPrefix locate the mirror and screenshot
	// roots relative to HTMLPath.
	IndexPrefix      string
	ScreenshotPrefix string
	Commit           bool
	// FetchEngine labels fetch metrics.
	FetchEngine string
}

// Failure is a URL the batch could not archive.
type Failure struct {
	URL string
	Err error
}

// Report summarizes a batch.
type Report struct {
	RunID    string
	Archived []snapshot.Snapshot
	// Duplicates were already in the archive and left untouched.
	Duplicates []string
	Failed     []Failure
}

// Archiver runs archive batches one URL at a time.
type Archiver struct {
	lib       *Library
	fetcher   Fetcher
	shooter   Screenshotter
	committer Committer
	clock     Clock
	ids       IDGenerator
	limiter   *rate.Limiter
	opts      Options
	logger    *zap.Logger
}

// NewArchiver constructs an Archiver. shooter and committer may be nil.
func NewArchiver(
	lib *Library,
	fetcher Fetcher,
	shooter Screenshotter,
	committer Committer,
	clock Clock,
	ids IDGenerator,
	opts Options,
	logger *zap.Logger,
) *Archiver {
	metrics.Init()
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.FetchEngine == "" {
		opts.FetchEngine = "wget"
	}
	var limiter *rate.Limiter
	if opts.Delay > 0 {
		limiter = rate.NewLimiter(rate.Every(opts.Delay), 1)
	}
	return &Archiver{
		lib:       lib,
		fetcher:   fetcher,
		shooter:   shooter,
		committer: committer,
		clock:     clock,
		ids:       ids,
		limiter:   limiter,
		opts:      opts,
		logger:    logger,
	}
}

// Archive fetches and records every URL in order. Per-URL problems are
// collected in the report; a missing fetch dependency, a persistence failure
// or cancellation stop the batch and are returned.
func (a *Archiver) Archive(ctx context.Context, rawURLs []string) (Report, error) {
	runID, err := a.ids.NewID()
	if err != nil {
		return Report{}, fmt.Errorf("generate run id: %w", err)
	}
	report := Report{RunID: runID}
	logger := a.logger.With(zap.String("run_id", runID))
	metrics.ObserveBatch()
	logger.Info("archive batch started", zap.Int("urls", len(rawURLs)), zap.Bool("skip_fetch", a.opts.SkipFetch))

	for _, raw := range rawURLs {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if err := a.archiveOne(ctx, raw, &report, logger); err != nil {
			return report, err
		}
	}

	if len(report.Archived) > 0 {
		a.finish(ctx, report, logger)
	}
	logger.Info("archive batch finished",
		zap.Int("archived", len(report.Archived)),
		zap.Int("duplicates", len(report.Duplicates)),
		zap.Int("failed", len(report.Failed)),
	)
	return report, nil
}

func (a *Archiver) archiveOne(ctx context.Context, raw string, report *Report, logger *zap.Logger) error {
	u, err := snapshot.ParseURL(raw)
	if err != nil {
		logger.Warn("skipping invalid url", zap.String("url", raw), zap.Error(err))
		metrics.ObserveArchive("", metrics.OutcomeInvalid)
		report.Failed = append(report.Failed, Failure{URL: raw, Err: err})
		return nil
	}
	logger = logger.With(zap.String("url", u.String()))

	exists, err := a.lib.HasSnapshot(ctx, u)
	if err != nil {
		return err
	}
	if exists {
		logger.Info("already archived")
		metrics.ObserveArchive(u.Hostname(), metrics.OutcomeDuplicate)
		report.Duplicates = append(report.Duplicates, raw)
		return nil
	}

	if !a.opts.SkipFetch {
		if err := a.fetch(ctx, u, logger); err != nil {
			if errors.Is(err, external.ErrDependencyNotFound) || ctx.Err() != nil {
				return err
			}
			logger.Error("fetch failed", zap.Error(err))
			metrics.ObserveArchive(u.Hostname(), metrics.OutcomeFailed)
			report.Failed = append(report.Failed, Failure{URL: raw, Err: err})
			return nil
		}
	}

	lookup := a.lib.Resolver().Lookup(u)
	if !lookup.Found {
		err := &snapshot.StaticNotFoundError{URL: raw, Candidates: lookup.Candidates}
		logger.Error("mirror has no index file", zap.Strings("candidates", lookup.Candidates))
		metrics.ObserveArchive(u.Hostname(), metrics.OutcomeNotFound)
		report.Failed = append(report.Failed, Failure{URL: raw, Err: err})
		return nil
	}

	if a.opts.Screenshots && a.shooter != nil {
		a.screenshot(ctx, u, logger)
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	snap := snapshot.New(u, a.clock.Now())
	if err := a.lib.Record(ctx, snap); err != nil {
		return err
	}
	if err := a.lib.Save(ctx); err != nil {
		return err
	}
	logger.Info("archived", zap.String("index", lookup.Path))
	metrics.ObserveArchive(u.Hostname(), metrics.OutcomeArchived)
	report.Archived = append(report.Archived, snap)
	return nil
}

func (a *Archiver) fetch(ctx context.Context, u snapshot.URL, logger *zap.Logger) error {
	if a.limiter != nil {
		start := time.Now()
		if err := a.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("pacing: %w", err)
		}
		metrics.ObservePacingDelay(time.Since(start))
	}
	logger.Info("fetching", zap.String("engine", a.opts.FetchEngine))
	start := time.Now()
	err := a.fetcher.Fetch(ctx, u)
	metrics.ObserveFetch(a.opts.FetchEngine, time.Since(start))
	return err
}

func (a *Archiver) screenshot(ctx context.Context, u snapshot.URL, logger *zap.Logger) {
	path, err := a.shooter.Screenshot(ctx, u)
	switch {
	case errors.Is(err, external.ErrDependencyNotFound):
		logger.Warn("screenshot skipped", zap.Error(err))
		metrics.ObserveScreenshot("unavailable")
	case err != nil:
		logger.Warn("screenshot failed", zap.Error(err))
		metrics.ObserveScreenshot("failed")
	default:
		logger.Debug("screenshot written", zap.String("path", path))
		metrics.ObserveScreenshot("ok")
	}
}

// finish regenerates exports and commits the storage directory. Failures here
// never undo the batch and are only logged.
func (a *Archiver) finish(ctx context.Context, report Report, logger *zap.Logger) {
	a.lib.ResetSizes()
	if err := a.WriteExports(ctx); err != nil {
		logger.Error("export failed", zap.Error(err))
	}
	if !a.opts.Commit || a.committer == nil {
		return
	}
	msg := fmt.Sprintf("alexandria: archive %d snapshot(s) [run %s]", len(report.Archived), report.RunID)
	if err := a.committer.Commit(ctx, a.opts.StorageDir, msg); err != nil {
		logger.Warn("git commit failed", zap.Error(err))
	}
}

// WriteExports rewrites the configured README and HTML index, newest first.
func (a *Archiver) WriteExports(ctx context.Context) error {
	if a.opts.ReadmePath == "" && a.opts.HTMLPath == "" {
		return nil
	}
	snaps, err := a.lib.NewestFirst(ctx, func(err error) {
		metrics.ObserveMaterializeFailure()
		a.logger.Warn("snapshot left out of export", zap.Error(err))
	})
	if err != nil {
		return err
	}
	now := a.clock.Now()
	if a.opts.ReadmePath != "" {
		if err := writeFile(a.opts.ReadmePath, []byte(export.Markdown(snaps, now))); err != nil {
			return err
		}
	}
	if a.opts.HTMLPath != "" {
		page, err := export.HTML(snaps, export.HTMLOptions{
			IndexPrefix:      a.opts.IndexPrefix,
			ScreenshotPrefix: a.opts.ScreenshotPrefix,
			Screenshots:      true,
			GeneratedAt:      now,
		})
		if err != nil {
			return err
		}
		if err := writeFile(a.opts.HTMLPath, []byte(page)); err != nil {
			return err
		}
	}
	return nil
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
