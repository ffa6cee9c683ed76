package export

import (
	_ "embed"
	"fmt"
	"html/template"
	"path"
	"strings"
	"time"

	"github.com/JakeFAU/alexandria/internal/snapshot"
)

var (
	//go:embed assets/index.html.tmpl
	pageSource string
	//go:embed assets/index.css
	stylesheet []byte
)

var pageTemplate = template.Must(template.New("index").Parse(pageSource))

// Stylesheet returns the CSS referenced by the index page.
func Stylesheet() []byte {
	return stylesheet
}

// HTMLOptions controls links and decoration of the index page.
type HTMLOptions struct {
	// IndexPrefix is prepended to each snapshot's IndexFile in links.
	IndexPrefix string
	// ScreenshotPrefix is prepended to each ScreenshotFile in links.
	ScreenshotPrefix string
	// Screenshots adds a column linking to screenshots when present.
	Screenshots bool
	// StylesheetHref links an external stylesheet; empty inlines the CSS.
	StylesheetHref string
	GeneratedAt    time.Time
}

type row struct {
	Title      string
	URL        string
	Link       string
	Size       string
	CreatedAt  string
	Screenshot string
}

type page struct {
	Rows           []row
	Screenshots    bool
	StylesheetHref string
	InlineCSS      template.CSS
	GeneratedAt    string
	Count          int
}

// HTML renders the index page for snaps in the order given.
func HTML(snaps []snapshot.Materialized, opts HTMLOptions) (string, error) {
	p := page{
		Rows:           make([]row, 0, len(snaps)),
		Screenshots:    opts.Screenshots,
		StylesheetHref: opts.StylesheetHref,
		Count:          len(snaps),
	}
	if opts.StylesheetHref == "" {
		p.InlineCSS = template.CSS(stylesheet) // #nosec G203 -- embedded asset.
	}
	if !opts.GeneratedAt.IsZero() {
		p.GeneratedAt = HumanizeTime(opts.GeneratedAt)
	}
	for _, s := range snaps {
		r := row{
			Title:     CleanTitle(s.Title),
			URL:       TruncateURL(s.URL.String(), DefaultURLWidth),
			Link:      joinLink(opts.IndexPrefix, s.IndexFile),
			Size:      HumanizeSize(s.SizeBytes),
			CreatedAt: HumanizeTime(s.CreatedAt),
		}
		if s.HasScreenshot() {
			r.Screenshot = joinLink(opts.ScreenshotPrefix, s.ScreenshotFile)
		}
		p.Rows = append(p.Rows, r)
	}

	var b strings.Builder
	if err := pageTemplate.Execute(&b, p); err != nil {
		return "", fmt.Errorf("render index page: %w", err)
	}
	return b.String(), nil
}

func joinLink(prefix, file string) string {
	if prefix == "" {
		return file
	}
	return path.Join(prefix, file)
}
