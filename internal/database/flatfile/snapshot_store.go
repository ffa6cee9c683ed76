package flatfile

import (
	"context"
	"fmt"

	"github.com/JakeFAU/alexandria/internal/snapshot"
)

// SnapshotStore persists snapshot records in the websites collection.
type SnapshotStore struct {
	db *DB
}

// NewSnapshotStore wraps db.
func NewSnapshotStore(db *DB) *SnapshotStore {
	return &SnapshotStore{db: db}
}

// List returns every recorded snapshot, oldest first. The file is reread
// first, so records saved by another process are included.
func (s *SnapshotStore) List(_ context.Context) ([]snapshot.Snapshot, error) {
	if err := s.db.Refresh(); err != nil {
		return nil, err
	}
	docs := s.db.Collection(WebsitesCollection)
	out := make([]snapshot.Snapshot, 0, len(docs))
	for i, doc := range docs {
		rec, err := recordFromDocument(doc)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", WebsitesCollection, i, err)
		}
		snap, err := snapshot.FromRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", WebsitesCollection, i, err)
		}
		out = append(out, snap)
	}
	return out, nil
}

// Insert appends s without checking for duplicates.
func (s *SnapshotStore) Insert(_ context.Context, snap snapshot.Snapshot) error {
	rec := snap.Record()
	s.db.InsertOne(WebsitesCollection, Document{
		"url":        rec.URL,
		"created_at": rec.CreatedAt,
	})
	return nil
}

// Save flushes the database file.
func (s *SnapshotStore) Save(_ context.Context) error {
	return s.db.Save()
}

// Close is a no-op; the file is only touched by Save.
func (s *SnapshotStore) Close() {}

func recordFromDocument(doc Document) (snapshot.Record, error) {
	rawURL, ok := doc["url"].(string)
	if !ok {
		return snapshot.Record{}, fmt.Errorf("missing url field")
	}
	createdAt, ok := doc["created_at"].(string)
	if !ok {
		return snapshot.Record{}, fmt.Errorf("missing created_at field")
	}
	return snapshot.Record{URL: rawURL, CreatedAt: createdAt}, nil
}
