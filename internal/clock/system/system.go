// Package system provides the wall clock used to stamp snapshots.
package system

import "time"

// Clock implements archive.Clock using time.Now. Readings are UTC and
// truncated to milliseconds so persisted timestamps stay short.
type Clock struct{}

// New creates a new Clock.
func New() *Clock {
	return &Clock{}
}

// Now returns the current time.
func (Clock) Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
