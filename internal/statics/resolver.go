// Package statics correlates archived URLs with the mirror tree written by the
// fetch engine: it locates a URL's index document, extracts its title and
// measures the on-disk footprint of a mirrored host.
package statics

import (
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/JakeFAU/alexandria/internal/snapshot"
)

// Resolver maps URLs to files under a mirror root laid out as <root>/<host>/<path...>.
type Resolver struct {
	root string
}

// NewResolver returns a Resolver rooted at root.
func NewResolver(root string) *Resolver {
	return &Resolver{root: filepath.Clean(root)}
}

// Root returns the mirror root.
func (r *Resolver) Root() string { return r.root }

// Lookup is the outcome of a resolution attempt. Path is set only when Found.
type Lookup struct {
	Path       string
	Found      bool
	Candidates []string
}

// Candidates returns the ordered list of paths that may hold the index
// document for u. The order decides which file wins when the mirror is
// ambiguous and must not change.
func (r *Resolver) Candidates(u snapshot.URL) []string {
	base := r.basePath(u)
	query := u.Query()
	return []string{
		base,
		filepath.Join(base, "index.html"),
		base + ".html",
		filepath.Join(base, "index.html@"+query+".html"),
		base + "@" + query + ".html",
	}
}

// Lookup tries every candidate in order and reports the first regular file.
func (r *Resolver) Lookup(u snapshot.URL) Lookup {
	candidates := r.Candidates(u)
	for _, c := range candidates {
		if isRegularFile(c) {
			return Lookup{Path: c, Found: true, Candidates: candidates}
		}
	}
	return Lookup{Candidates: candidates}
}

// Resolve returns the index document for u or a *snapshot.StaticNotFoundError
// listing every candidate that was checked.
func (r *Resolver) Resolve(u snapshot.URL) (string, error) {
	res := r.Lookup(u)
	if !res.Found {
		return "", &snapshot.StaticNotFoundError{URL: u.String(), Candidates: res.Candidates}
	}
	return res.Path, nil
}

// Relative returns path relative to the root using forward slashes.
func (r *Resolver) Relative(path string) (string, error) {
	rel, err := filepath.Rel(r.root, path)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

// HostDir returns the directory holding everything mirrored for u's host.
func (r *Resolver) HostDir(u snapshot.URL) string {
	return filepath.Join(r.root, u.Host())
}

func (r *Resolver) basePath(u snapshot.URL) string {
	// Cleaning against "/" keeps ".." segments from climbing out of the host dir.
	p := strings.TrimPrefix(path.Clean("/"+u.Path()), "/")
	return filepath.Join(r.root, u.Host(), filepath.FromSlash(p))
}

func isRegularFile(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}
