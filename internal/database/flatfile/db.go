// Package flatfile implements the archive's document database: named
// collections of JSON objects kept in memory and flushed to a single file.
package flatfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"sync"
)

// WebsitesCollection holds one document per archived snapshot.
const WebsitesCollection = "websites"

// Document is a single JSON object stored in a collection.
type Document map[string]any

// DB is an in-memory set of collections mirrored to a JSON file. Every Save
// rewrites the whole file.
type DB struct {
	mu          sync.Mutex
	path        string
	collections map[string][]Document
	// changes counts inserts; saved is the count last flushed or loaded.
	changes uint64
	saved   uint64
}

// Open loads the database at path, creating the file and its directory when
// missing. The websites collection always exists after Open.
func Open(path string) (*DB, error) {
	db := &DB{path: path, collections: make(map[string][]Document)}
	if err := db.InitialMigration(); err != nil {
		return nil, err
	}
	if err := db.Load(); err != nil {
		return nil, err
	}
	return db, nil
}

// Path returns the backing file.
func (db *DB) Path() string { return db.path }

// InitialMigration writes an empty database when the file does not exist yet.
func (db *DB) InitialMigration() error {
	_, err := os.Stat(db.path)
	if err == nil {
		return nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat database: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(db.path), 0o750); err != nil {
		return fmt.Errorf("create database dir: %w", err)
	}
	db.mu.Lock()
	db.ensureDefaultsLocked()
	db.mu.Unlock()
	return db.Save()
}

// Load replaces the in-memory state with the file contents.
func (db *DB) Load() error {
	raw, err := os.ReadFile(db.path)
	if err != nil {
		return fmt.Errorf("read database: %w", err)
	}
	collections := make(map[string][]Document)
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &collections); err != nil {
			return fmt.Errorf("decode database %s: %w", db.path, err)
		}
	}

	db.mu.Lock()
	defer db.mu.Unlock()
	db.collections = collections
	db.ensureDefaultsLocked()
	db.saved = db.changes
	return nil
}

// Refresh reloads the file so writes from other processes become visible.
// It is a no-op while this handle holds unsaved inserts.
func (db *DB) Refresh() error {
	if db.Dirty() {
		return nil
	}
	return db.Load()
}

// Dirty reports whether inserts are waiting for Save.
func (db *DB) Dirty() bool {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.changes != db.saved
}

// Save flushes every collection to disk, replacing the previous file.
func (db *DB) Save() error {
	db.mu.Lock()
	data, err := json.MarshalIndent(db.collections, "", "    ")
	flushed := db.changes
	db.mu.Unlock()
	if err != nil {
		return fmt.Errorf("encode database: %w", err)
	}

	dir := filepath.Dir(db.path)
	tmp, err := os.CreateTemp(dir, ".database-*.json")
	if err != nil {
		return fmt.Errorf("create temp database: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // no-op once renamed

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close() //nolint:errcheck,gosec // write error wins
		return fmt.Errorf("write database: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return fmt.Errorf("chmod database: %w", err)
	}
	if err := os.Rename(tmpName, db.path); err != nil {
		return fmt.Errorf("replace database: %w", err)
	}
	db.mu.Lock()
	db.saved = flushed
	db.mu.Unlock()
	return nil
}

// InsertOne appends doc to collection, creating the collection if needed.
func (db *DB) InsertOne(collection string, doc Document) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.collections[collection] = append(db.collections[collection], cloneDocument(doc))
	db.changes++
}

// FindOne returns the first document in collection whose fields match every
// key of query.
func (db *DB) FindOne(collection string, query Document) (Document, bool) {
	db.mu.Lock()
	defer db.mu.Unlock()
	for _, doc := range db.collections[collection] {
		if matches(doc, query) {
			return cloneDocument(doc), true
		}
	}
	return nil, false
}

// Collection returns a copy of the documents in collection, in insertion order.
func (db *DB) Collection(collection string) []Document {
	db.mu.Lock()
	defer db.mu.Unlock()
	docs := db.collections[collection]
	out := make([]Document, 0, len(docs))
	for _, doc := range docs {
		out = append(out, cloneDocument(doc))
	}
	return out
}

// Has reports whether collection exists.
func (db *DB) Has(collection string) bool {
	db.mu.Lock()
	defer db.mu.Unlock()
	_, ok := db.collections[collection]
	return ok
}

func (db *DB) ensureDefaultsLocked() {
	if _, ok := db.collections[WebsitesCollection]; !ok {
		db.collections[WebsitesCollection] = []Document{}
	}
}

func matches(doc, query Document) bool {
	for k, want := range query {
		got, ok := doc[k]
		if !ok || !reflect.DeepEqual(got, want) {
			return false
		}
	}
	return true
}

func cloneDocument(doc Document) Document {
	out := make(Document, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}
