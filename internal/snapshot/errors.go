package snapshot

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidURL matches any *InvalidURLError.
	ErrInvalidURL = errors.New("invalid url")
	// ErrStaticNotFound matches any *StaticNotFoundError.
	ErrStaticNotFound = errors.New("snapshot static not found")
)

const (
	reasonNotValid = "is not a valid URL"
	reasonNotHTTP  = "is not HTTP or HTTPS"
)

// InvalidURLError reports input rejected by ParseURL.
type InvalidURLError struct {
	Raw    string
	Reason string
}

func (e *InvalidURLError) Error() string {
	return fmt.Sprintf("%q %s", e.Raw, e.Reason)
}

// Is lets errors.Is(err, ErrInvalidURL) succeed.
func (e *InvalidURLError) Is(target error) bool {
	return target == ErrInvalidURL
}

// StaticNotFoundError reports that no file in the mirror tree represents URL.
// Candidates holds every path that was checked, in order.
type StaticNotFoundError struct {
	URL        string
	Candidates []string
}

func (e *StaticNotFoundError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "could not determine the index file for %s; candidates checked:", e.URL)
	for _, c := range e.Candidates {
		b.WriteString("\n  ")
		b.WriteString(c)
	}
	return b.String()
}

// Is lets errors.Is(err, ErrStaticNotFound) succeed.
func (e *StaticNotFoundError) Is(target error) bool {
	return target == ErrStaticNotFound
}
