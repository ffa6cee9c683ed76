package statics

import (
	"html"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var titlePattern = regexp.MustCompile(`(?is)<title[^>]*>(.+?)</title>`)

// ExtractTitle returns the unescaped contents of the first <title> element in
// the leading half of path. It never fails: when no title is found or the file
// cannot be read the file's base name is returned instead.
func ExtractTitle(path string) string {
	fallback := filepath.Base(path)

	f, err := os.Open(path) // #nosec G304 -- path comes from the resolver.
	if err != nil {
		return fallback
	}
	defer f.Close() //nolint:errcheck // read-only handle

	info, err := f.Stat()
	if err != nil {
		return fallback
	}

	limit := probeLength(info.Size())
	// Invalid UTF-8 is replaced with U+FFFD rather than failing the read.
	decoded := transform.NewReader(io.LimitReader(f, limit), unicode.UTF8.NewDecoder())
	content, err := io.ReadAll(decoded)
	if err != nil && len(content) == 0 {
		return fallback
	}

	match := titlePattern.FindSubmatch(content)
	if match == nil {
		return fallback
	}
	title := strings.TrimSpace(html.UnescapeString(string(match[1])))
	if title == "" {
		return fallback
	}
	return title
}

// probeLength is the number of leading bytes scanned for a title.
func probeLength(size int64) int64 {
	return size / 2
}
