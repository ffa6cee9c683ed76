package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/alexandria/internal/archive"
	"github.com/JakeFAU/alexandria/internal/database/flatfile"
	"github.com/JakeFAU/alexandria/internal/snapshot"
)

func newTestLibrary(t *testing.T) (*archive.Library, string, string) {
	t.Helper()

	dir := t.TempDir()
	db, err := flatfile.Open(filepath.Join(dir, "database.json"))
	require.NoError(t, err)
	mirrors := filepath.Join(dir, "mirrors")
	shots := filepath.Join(dir, "screenshots")
	return archive.NewLibrary(flatfile.NewSnapshotStore(db), mirrors, shots), mirrors, shots
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

// htmlPage returns a document whose title sits in the first half of the file.
func htmlPage(title string) string {
	head := "<html><head><title>" + title + "</title></head>"
	return head + "<body>" + strings.Repeat("-", len(head)) + "</body></html>"
}

func record(t *testing.T, lib *archive.Library, raw string, at time.Time) {
	t.Helper()
	require.NoError(t, lib.Record(context.Background(), snapshot.New(snapshot.MustParseURL(raw), at)))
}

func serve(t *testing.T, s *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHomeRendersNewestFirstAndSkipsMissing(t *testing.T) {
	t.Parallel()

	lib, mirrors, _ := newTestLibrary(t)
	writeFile(t, filepath.Join(mirrors, "a.com", "index.html"), htmlPage("Older Page"))
	writeFile(t, filepath.Join(mirrors, "b.com", "docs", "index.html"), htmlPage("Newer &amp; Better"))
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	record(t, lib, "http://a.com/", base)
	record(t, lib, "http://gone.com/", base.Add(time.Hour))
	record(t, lib, "http://b.com/docs", base.Add(2*time.Hour))

	s := NewServer(lib, Options{}, zap.NewNop())
	rec := serve(t, s, "/")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	body := rec.Body.String()
	older := strings.Index(body, "Older Page")
	newer := strings.Index(body, "Newer &amp; Better")
	require.NotEqual(t, -1, older)
	require.NotEqual(t, -1, newer)
	assert.Less(t, newer, older)
	assert.NotContains(t, body, "gone.com")
	assert.Contains(t, body, `href="/b.com/docs/index.html"`)
	assert.Contains(t, body, `href="/static/index.css"`)
	assert.Contains(t, body, "2 snapshots")
}

func TestHomeLinksScreenshots(t *testing.T) {
	t.Parallel()

	lib, mirrors, _ := newTestLibrary(t)
	writeFile(t, filepath.Join(mirrors, "a.com", "index.html"), htmlPage("A"))
	u := snapshot.MustParseURL("http://a.com/")
	record(t, lib, u.String(), time.Now())
	writeFile(t, lib.ScreenshotPath(u), "png")

	s := NewServer(lib, Options{Screenshots: true}, zap.NewNop())
	rec := serve(t, s, "/")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `href="/screenshots/`+u.UniqueID()+`.png"`)

	shot := serve(t, s, "/screenshots/"+u.UniqueID()+".png")
	require.Equal(t, http.StatusOK, shot.Code)
	assert.Equal(t, "png", shot.Body.String())
}

func TestStaticRoutes(t *testing.T) {
	t.Parallel()

	lib, _, _ := newTestLibrary(t)
	s := NewServer(lib, Options{}, zap.NewNop())

	css := serve(t, s, "/static/index.css")
	require.Equal(t, http.StatusOK, css.Code)
	assert.Contains(t, css.Header().Get("Content-Type"), "text/css")
	assert.NotEmpty(t, css.Body.String())

	health := serve(t, s, "/healthz")
	require.Equal(t, http.StatusOK, health.Code)
	assert.Equal(t, "ok\n", health.Body.String())

	metricsRec := serve(t, s, "/metrics")
	require.Equal(t, http.StatusOK, metricsRec.Code)
}

func TestMirrorFallbackSniffsExtensionlessFiles(t *testing.T) {
	t.Parallel()

	lib, mirrors, _ := newTestLibrary(t)
	writeFile(t, filepath.Join(mirrors, "a.com", "page"), "<!DOCTYPE html><html><head><title>P</title></head><body>hi</body></html>")
	writeFile(t, filepath.Join(mirrors, "a.com", "style.css"), "body{}")

	s := NewServer(lib, Options{}, zap.NewNop())

	page := serve(t, s, "/a.com/page")
	require.Equal(t, http.StatusOK, page.Code)
	assert.Contains(t, page.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, page.Body.String(), "hi")

	css := serve(t, s, "/a.com/style.css")
	require.Equal(t, http.StatusOK, css.Code)
	assert.Contains(t, css.Header().Get("Content-Type"), "text/css")

	missing := serve(t, s, "/a.com/nope")
	assert.Equal(t, http.StatusNotFound, missing.Code)
}

type failingIndex struct {
	dir   string
	err   error
	panic bool
}

func (f failingIndex) NewestFirst(context.Context, func(error)) ([]snapshot.Materialized, error) {
	if f.panic {
		panic("boom")
	}
	return nil, f.err
}

func (f failingIndex) ResetSizes()            {}
func (f failingIndex) MirrorsDir() string     { return f.dir }
func (f failingIndex) ScreenshotsDir() string { return f.dir }

func TestHomeStoreFailure(t *testing.T) {
	t.Parallel()

	s := NewServer(failingIndex{dir: t.TempDir(), err: errors.New("disk gone")}, Options{}, zap.NewNop())
	rec := serve(t, s, "/")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRecovererHandlesPanics(t *testing.T) {
	t.Parallel()

	s := NewServer(failingIndex{dir: t.TempDir(), panic: true}, Options{Verbose: true}, zap.NewNop())
	rec := serve(t, s, "/")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestServeShutsDownOnCancel(t *testing.T) {
	t.Parallel()

	lib, _, _ := newTestLibrary(t)
	s := NewServer(lib, Options{ShutdownTimeout: time.Second}, zap.NewNop())

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestHomeShowsRecordsSavedAfterStart(t *testing.T) {
	t.Parallel()

	lib, mirrors, _ := newTestLibrary(t)
	writeFile(t, filepath.Join(mirrors, "a.com", "index.html"), htmlPage("Fresh Page"))
	s := NewServer(lib, Options{}, zap.NewNop())

	before := serve(t, s, "/")
	require.Equal(t, http.StatusOK, before.Code)
	assert.Contains(t, before.Body.String(), "0 snapshots")

	db, err := flatfile.Open(filepath.Join(filepath.Dir(mirrors), "database.json"))
	require.NoError(t, err)
	other := flatfile.NewSnapshotStore(db)
	require.NoError(t, other.Insert(context.Background(), snapshot.New(snapshot.MustParseURL("http://a.com/"), time.Now())))
	require.NoError(t, other.Save(context.Background()))

	after := serve(t, s, "/")
	require.Equal(t, http.StatusOK, after.Code)
	assert.Contains(t, after.Body.String(), "Fresh Page")
	assert.Contains(t, after.Body.String(), "1 snapshots")
}
