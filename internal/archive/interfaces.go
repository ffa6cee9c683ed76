package archive

import (
	"context"
	"time"

	"github.com/JakeFAU/alexandria/internal/snapshot"
)

// Store persists snapshot identities.
type Store interface {
	List(ctx context.Context) ([]snapshot.Snapshot, error)
	Insert(ctx context.Context, s snapshot.Snapshot) error
	Save(ctx context.Context) error
}

// Fetcher mirrors a URL into the mirror tree.
type Fetcher interface {
	Fetch(ctx context.Context, u snapshot.URL) error
}

// Screenshotter renders a URL and returns the written image path.
type Screenshotter interface {
	Screenshot(ctx context.Context, u snapshot.URL) (string, error)
}

// Committer records the storage directory in version control.
type Committer interface {
	Commit(ctx context.Context, dir, message string) error
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs.
type IDGenerator interface {
	NewID() (string, error)
}
