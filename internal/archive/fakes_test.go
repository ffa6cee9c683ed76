package archive

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/alexandria/internal/snapshot"
)

type fakeStore struct {
	mu      sync.Mutex
	snaps   []snapshot.Snapshot
	saved   int
	listErr error
	saveErr error
}

func (s *fakeStore) List(context.Context) ([]snapshot.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	return append([]snapshot.Snapshot(nil), s.snaps...), nil
}

func (s *fakeStore) Insert(_ context.Context, snap snapshot.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snaps = append(s.snaps, snap)
	return nil
}

func (s *fakeStore) Save(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved++
	return s.saveErr
}

// fakeFetcher writes pages[url] to the mirror as the index document.
type fakeFetcher struct {
	root  string
	pages map[string]string
	err   map[string]error
	calls []string
	after func(u snapshot.URL)
}

func (f *fakeFetcher) Fetch(_ context.Context, u snapshot.URL) error {
	f.calls = append(f.calls, u.String())
	if f.after != nil {
		defer f.after(u)
	}
	if err := f.err[u.String()]; err != nil {
		return err
	}
	body, ok := f.pages[u.String()]
	if !ok {
		return nil
	}
	dir := filepath.Join(f.root, u.Host(), filepath.FromSlash(u.Path()))
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "index.html"), []byte(body), 0o600)
}

type fakeShooter struct {
	dir   string
	err   error
	calls int
}

func (f *fakeShooter) Screenshot(_ context.Context, u snapshot.URL) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	path := filepath.Join(f.dir, u.UniqueID()+".png")
	if err := os.MkdirAll(f.dir, 0o750); err != nil {
		return "", err
	}
	return path, os.WriteFile(path, []byte("png"), 0o600)
}

type fakeCommitter struct {
	dirs     []string
	messages []string
	err      error
}

func (f *fakeCommitter) Commit(_ context.Context, dir, message string) error {
	f.dirs = append(f.dirs, dir)
	f.messages = append(f.messages, message)
	return f.err
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.now = c.now.Add(time.Minute)
	return c.now
}

type fakeIDs struct {
	err error
}

func (f fakeIDs) NewID() (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "run-1", nil
}

var errBoom = errors.New("boom")

func writeMirror(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}
