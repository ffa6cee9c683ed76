// Package archive ties the snapshot store to the mirror tree. Library answers
// questions about what has been archived; Archiver runs archive batches.
package archive

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"slices"

	"github.com/JakeFAU/alexandria/internal/snapshot"
	"github.com/JakeFAU/alexandria/internal/statics"
)

// MaterializeError reports a single snapshot that could not be read back from
// the mirror tree.
type MaterializeError struct {
	URL string
	Err error
}

func (e *MaterializeError) Error() string {
	return fmt.Sprintf("materialize %s: %v", e.URL, e.Err)
}

func (e *MaterializeError) Unwrap() error { return e.Err }

// Library is the archive facade over the store, the resolver and the size cache.
type Library struct {
	store          Store
	resolver       *statics.Resolver
	sizes          *statics.SizeCache
	screenshotsDir string
}

// NewLibrary builds a Library over a mirror root and a screenshot root.
func NewLibrary(store Store, mirrorsDir, screenshotsDir string) *Library {
	return &Library{
		store:          store,
		resolver:       statics.NewResolver(mirrorsDir),
		sizes:          statics.NewSizeCache(),
		screenshotsDir: screenshotsDir,
	}
}

// Resolver exposes the mirror resolver.
func (l *Library) Resolver() *statics.Resolver { return l.resolver }

// MirrorsDir returns the mirror root.
func (l *Library) MirrorsDir() string { return l.resolver.Root() }

// ScreenshotsDir returns the screenshot root.
func (l *Library) ScreenshotsDir() string { return l.screenshotsDir }

// Snapshots returns the persisted identities, oldest first.
func (l *Library) Snapshots(ctx context.Context) ([]snapshot.Snapshot, error) {
	snaps, err := l.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	return snaps, nil
}

// HasSnapshot reports whether u was already recorded.
func (l *Library) HasSnapshot(ctx context.Context, u snapshot.URL) (bool, error) {
	snaps, err := l.Snapshots(ctx)
	if err != nil {
		return false, err
	}
	return slices.ContainsFunc(snaps, func(s snapshot.Snapshot) bool {
		return s.URL.Equal(u)
	}), nil
}

// Record appends s to the store. Duplicates are the caller's concern.
func (l *Library) Record(ctx context.Context, s snapshot.Snapshot) error {
	if err := l.store.Insert(ctx, s); err != nil {
		return fmt.Errorf("record %s: %w", s.URL, err)
	}
	return nil
}

// Save flushes the store.
func (l *Library) Save(ctx context.Context) error {
	if err := l.store.Save(ctx); err != nil {
		return fmt.Errorf("save snapshots: %w", err)
	}
	return nil
}

// ResetSizes drops cached directory sizes.
func (l *Library) ResetSizes() { l.sizes.Reset() }

// ScreenshotPath is where the screenshot of u lives, whether or not it exists.
func (l *Library) ScreenshotPath(u snapshot.URL) string {
	return filepath.Join(l.screenshotsDir, u.UniqueID()+".png")
}

// Materialize derives title, size, index file and screenshot for s from disk.
func (l *Library) Materialize(ctx context.Context, s snapshot.Snapshot) (snapshot.Materialized, error) {
	if err := ctx.Err(); err != nil {
		return snapshot.Materialized{}, err
	}
	index, err := l.resolver.Resolve(s.URL)
	if err != nil {
		return snapshot.Materialized{}, err
	}
	rel, err := l.resolver.Relative(index)
	if err != nil {
		return snapshot.Materialized{}, fmt.Errorf("relative index path: %w", err)
	}
	size, err := l.hostSize(s.URL)
	if err != nil {
		return snapshot.Materialized{}, err
	}

	m := snapshot.Materialized{
		Snapshot:  s,
		Title:     statics.ExtractTitle(index),
		SizeBytes: size,
		IndexFile: rel,
	}
	shot := l.ScreenshotPath(s.URL)
	if info, err := os.Stat(shot); err == nil && info.Mode().IsRegular() {
		m.ScreenshotFile = filepath.Base(shot)
	}
	return m, nil
}

func (l *Library) hostSize(u snapshot.URL) (int64, error) {
	size, err := l.sizes.SizeOf(l.resolver.HostDir(u))
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("size of %s: %w", u.Host(), err)
	}
	return size, nil
}

// ListMaterialized lazily materializes every recorded snapshot, oldest first.
// A snapshot that cannot be materialized is yielded as a *MaterializeError and
// the listing continues. Store failures and cancellation end the sequence.
func (l *Library) ListMaterialized(ctx context.Context) iter.Seq2[snapshot.Materialized, error] {
	return func(yield func(snapshot.Materialized, error) bool) {
		snaps, err := l.Snapshots(ctx)
		if err != nil {
			yield(snapshot.Materialized{}, err)
			return
		}
		for _, s := range snaps {
			if err := ctx.Err(); err != nil {
				yield(snapshot.Materialized{}, err)
				return
			}
			m, err := l.Materialize(ctx, s)
			if err != nil {
				err = &MaterializeError{URL: s.URL.String(), Err: err}
			}
			if !yield(m, err) {
				return
			}
		}
	}
}

// NewestFirst materializes every snapshot and returns them newest first.
// Per-snapshot failures are handed to skip and left out of the result.
func (l *Library) NewestFirst(ctx context.Context, skip func(error)) ([]snapshot.Materialized, error) {
	var out []snapshot.Materialized
	for m, err := range l.ListMaterialized(ctx) {
		var merr *MaterializeError
		switch {
		case errors.As(err, &merr):
			if skip != nil {
				skip(err)
			}
		case err != nil:
			return nil, err
		default:
			out = append(out, m)
		}
	}
	slices.Reverse(out)
	return out, nil
}
