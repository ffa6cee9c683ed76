package snapshot

import (
	"fmt"
	"time"
)

// Snapshot records that a URL was archived at a point in time. Identity is the
// URL alone; CreatedAt is informational.
type Snapshot struct {
	URL       URL
	CreatedAt time.Time
}

// New builds a Snapshot.
func New(u URL, createdAt time.Time) Snapshot {
	return Snapshot{URL: u, CreatedAt: createdAt}
}

// Key is the duplicate-detection key.
func (s Snapshot) Key() string { return s.URL.String() }

// Equal compares snapshots by URL only.
func (s Snapshot) Equal(other Snapshot) bool { return s.URL.Equal(other.URL) }

// Record is the persisted form of a Snapshot.
type Record struct {
	URL       string `json:"url"`
	CreatedAt string `json:"created_at"`
}

// Record converts s into its persisted form.
func (s Snapshot) Record() Record {
	return Record{
		URL:       s.URL.String(),
		CreatedAt: s.CreatedAt.Format(time.RFC3339Nano),
	}
}

// legacyLayouts are ISO-8601 forms without a zone, as written by older
// databases. They are interpreted in local time.
var legacyLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// FromRecord rebuilds a Snapshot from its persisted form.
func FromRecord(rec Record) (Snapshot, error) {
	u, err := ParseURL(rec.URL)
	if err != nil {
		return Snapshot{}, err
	}
	createdAt, err := ParseTimestamp(rec.CreatedAt)
	if err != nil {
		return Snapshot{}, fmt.Errorf("snapshot %s: %w", rec.URL, err)
	}
	return New(u, createdAt), nil
}

// ParseTimestamp accepts RFC 3339 and zone-less ISO-8601 timestamps.
func ParseTimestamp(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t, nil
	}
	for _, layout := range legacyLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("parse created_at %q: unsupported timestamp format", raw)
}

// Materialized is a Snapshot enriched with data derived from the mirror tree.
// It is recomputed on every read and never persisted.
type Materialized struct {
	Snapshot

	Title     string
	SizeBytes int64
	// IndexFile is relative to the mirror root, slash separated.
	IndexFile string
	// ScreenshotFile is relative to the screenshots root; empty when absent.
	ScreenshotFile string
}

// HasScreenshot reports whether a screenshot exists for the snapshot.
func (m Materialized) HasScreenshot() bool { return m.ScreenshotFile != "" }
