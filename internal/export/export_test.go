package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/alexandria/internal/snapshot"
)

func sample() []snapshot.Materialized {
	return []snapshot.Materialized{
		{
			Snapshot:       snapshot.New(snapshot.MustParseURL("https://www.example.com/docs"), time.Date(2024, 3, 9, 14, 5, 0, 0, time.UTC)),
			Title:          "Docs | Example",
			SizeBytes:      1536,
			IndexFile:      "www.example.com/docs/index.html",
			ScreenshotFile: "abc.png",
		},
		{
			Snapshot:  snapshot.New(snapshot.MustParseURL("http://a.com"), time.Date(2023, 1, 1, 9, 0, 0, 0, time.UTC)),
			Title:     "<A & B>",
			IndexFile: "a.com/index.html",
		},
	}
}

func TestMarkdown(t *testing.T) {
	t.Parallel()

	out := Markdown(sample(), time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC))
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.GreaterOrEqual(t, len(lines), 5)
	assert.Equal(t, "# Alexandria - generated at 01. May 2024 08:30AM", lines[0])
	assert.Contains(t, lines[1], "| Site")
	assert.Contains(t, lines[1], "Created at |")
	assert.Contains(t, out, "[Docs - Example](https://www.example.com/docs)")
	assert.Contains(t, out, "09. March 2024 02:05PM")
	assert.Less(t, strings.Index(out, "example.com/docs"), strings.Index(out, "(http://a.com)"))
	assert.True(t, strings.HasSuffix(out, "\n"))
}

func TestMarkdownEmpty(t *testing.T) {
	t.Parallel()

	out := Markdown(nil, time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC))
	assert.True(t, strings.HasPrefix(out, "# Alexandria - generated at 01. May 2024 08:30AM\n"))
}

func TestHTML(t *testing.T) {
	t.Parallel()

	out, err := HTML(sample(), HTMLOptions{StylesheetHref: "/static/index.css"})
	require.NoError(t, err)
	assert.Contains(t, out, `<link rel="stylesheet" href="/static/index.css">`)
	assert.Contains(t, out, "Docs - Example")
	assert.Contains(t, out, `href="www.example.com/docs/index.html"`)
	assert.Contains(t, out, ">example.com/docs</a>")
	assert.Contains(t, out, "1.5 KiB")
	assert.Contains(t, out, "0 B")
	assert.Contains(t, out, "09. March 2024 02:05PM")
	assert.Contains(t, out, "&lt;A &amp; B&gt;")
	assert.NotContains(t, out, "<th>Screenshot</th>")
	assert.Less(t, strings.Index(out, "Docs - Example"), strings.Index(out, "&lt;A &amp; B&gt;"))
}

func TestHTMLStaticExport(t *testing.T) {
	t.Parallel()

	out, err := HTML(sample(), HTMLOptions{
		IndexPrefix:      "mirrors",
		ScreenshotPrefix: "screenshots",
		Screenshots:      true,
		GeneratedAt:      time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Contains(t, out, "<style>")
	assert.Contains(t, out, "border-collapse")
	assert.Contains(t, out, `href="mirrors/a.com/index.html"`)
	assert.Contains(t, out, "<th>Screenshot</th>")
	assert.Contains(t, out, `href="screenshots/abc.png"`)
	assert.Contains(t, out, "generated at 01. May 2024 08:30AM")
	assert.Equal(t, 1, strings.Count(out, ">view</a>"))
}

func TestTable(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	Table(&buf, sample())
	out := buf.String()
	assert.Contains(t, out, "Docs - Example")
	assert.Contains(t, out, "example.com/docs")
	assert.Contains(t, out, "abc.png")
	assert.Contains(t, strings.ToLower(out), "2 snapshots")
}

func TestStylesheetEmbedded(t *testing.T) {
	t.Parallel()

	assert.Contains(t, string(Stylesheet()), "table")
}
