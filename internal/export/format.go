// Package export renders archived snapshots as an HTML index page, a Markdown
// README and a terminal table.
package export

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// DefaultURLWidth is the TruncateURL limit used by the exporters.
const DefaultURLWidth = 45

// TimeLayout renders timestamps as "09. March 2024 02:05PM".
const TimeLayout = "02. January 2006 03:04PM"

var sizeUnits = []string{"KiB", "MiB", "GiB"}

// CleanTitle makes a title safe for a single table cell.
func CleanTitle(title string) string {
	title = strings.ReplaceAll(title, "|", "-")
	title = strings.ReplaceAll(title, "\r", "")
	return strings.ReplaceAll(title, "\n", "")
}

// HumanizeSize formats n bytes with 1024-based units and one decimal.
// Anything below a KiB is still shown in KiB.
func HumanizeSize(n int64) string {
	if n == 0 {
		return "0 B"
	}
	num := float64(n)
	unit := sizeUnits[0]
	for _, u := range sizeUnits {
		num /= 1024
		unit = u
		if math.Abs(num) < 1024 {
			break
		}
	}
	return fmt.Sprintf("%3.1f %s", num, unit)
}

// TruncateURL drops the scheme and a leading "www." and shortens the rest to
// width characters followed by "(...)". A non-positive width means
// DefaultURLWidth.
func TruncateURL(raw string, width int) string {
	if width <= 0 {
		width = DefaultURLWidth
	}
	s := strings.TrimPrefix(raw, "https://")
	s = strings.TrimPrefix(s, "http://")
	s = strings.TrimPrefix(s, "www.")
	runes := []rune(s)
	if len(runes) > width {
		return string(runes[:width]) + "(...)"
	}
	return s
}

// HumanizeTime formats t with TimeLayout.
func HumanizeTime(t time.Time) string {
	return t.Format(TimeLayout)
}
