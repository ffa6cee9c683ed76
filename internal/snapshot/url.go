// Package snapshot defines the archive's identity types: the URL model, the
// persisted Snapshot record and the disk-derived Materialized view.
package snapshot

import (
	"crypto/md5" // #nosec G501 -- used for stable artifact names, not security.
	"encoding/hex"
	"net/url"
	"strings"
)

// URL is an immutable, comparable http(s) address. Identity is the raw string
// exactly as typed; the parsed components are derived from it.
type URL struct {
	raw      string
	scheme   string
	host     string
	path     string
	query    string
	fragment string
}

// ParseURL validates raw and returns its URL model.
func ParseURL(raw string) (URL, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return URL{}, &InvalidURLError{Raw: raw, Reason: reasonNotValid}
	}
	if parsed.Scheme == "" && parsed.Host == "" {
		return URL{}, &InvalidURLError{Raw: raw, Reason: reasonNotValid}
	}
	switch strings.ToLower(parsed.Scheme) {
	case "", "http", "https":
	default:
		return URL{}, &InvalidURLError{Raw: raw, Reason: reasonNotHTTP}
	}
	return URL{
		raw:      raw,
		scheme:   parsed.Scheme,
		host:     parsed.Host,
		path:     parsed.EscapedPath(),
		query:    parsed.RawQuery,
		fragment: parsed.Fragment,
	}, nil
}

// MustParseURL is ParseURL for literals known to be valid. It panics otherwise.
func MustParseURL(raw string) URL {
	u, err := ParseURL(raw)
	if err != nil {
		panic(err)
	}
	return u
}

// String returns the original input unchanged.
func (u URL) String() string { return u.raw }

// Scheme returns the URL scheme, possibly empty.
func (u URL) Scheme() string { return u.scheme }

// Host returns the network location including any port.
func (u URL) Host() string { return u.host }

// Hostname returns the host without its port.
func (u URL) Hostname() string {
	host := u.host
	if strings.HasPrefix(host, "[") {
		if end := strings.Index(host, "]"); end > 0 {
			return host[1:end]
		}
	}
	if i := strings.LastIndex(host, ":"); i >= 0 {
		return host[:i]
	}
	return host
}

// Path returns the path as it appeared in the input.
func (u URL) Path() string { return u.path }

// Query returns the raw query string without the leading '?'.
func (u URL) Query() string { return u.query }

// Fragment returns the fragment without the leading '#'.
func (u URL) Fragment() string { return u.fragment }

// IsZero reports whether u was never parsed.
func (u URL) IsZero() bool { return u.raw == "" }

// Equal compares the raw strings; "http://a.com" and "http://a.com/" differ.
func (u URL) Equal(other URL) bool { return u.raw == other.raw }

// UniqueID is the MD5 hex digest of the raw string. It names derived artifacts
// such as screenshots.
func (u URL) UniqueID() string {
	sum := md5.Sum([]byte(u.raw)) // #nosec G401 -- naming only.
	return hex.EncodeToString(sum[:])
}
