package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/JakeFAU/alexandria/internal/snapshot"
)

// Markdown renders the README: a heading stamped with generatedAt followed by
// a Site / Created at table in the order given.
func Markdown(snaps []snapshot.Materialized, generatedAt time.Time) string {
	t := table.NewWriter()
	t.Style().Format.Header = text.FormatDefault
	t.AppendHeader(table.Row{"Site", "Created at"})
	for _, s := range snaps {
		t.AppendRow(table.Row{
			fmt.Sprintf("[%s](%s)", CleanTitle(s.Title), s.URL.String()),
			HumanizeTime(s.CreatedAt),
		})
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Alexandria - generated at %s\n", HumanizeTime(generatedAt))
	b.WriteString(t.RenderMarkdown())
	b.WriteString("\n")
	return b.String()
}

// Table writes a terminal listing of snaps to w.
func Table(w io.Writer, snaps []snapshot.Materialized) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Title", "URL", "Size", "Created at", "Screenshot"})
	for _, s := range snaps {
		shot := ""
		if s.HasScreenshot() {
			shot = s.ScreenshotFile
		}
		t.AppendRow(table.Row{
			CleanTitle(s.Title),
			TruncateURL(s.URL.String(), DefaultURLWidth),
			HumanizeSize(s.SizeBytes),
			HumanizeTime(s.CreatedAt),
			shot,
		})
	}
	t.AppendFooter(table.Row{"", fmt.Sprintf("%d snapshots", len(snaps)), "", "", ""})
	t.Render()
}
