package external

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/JakeFAU/alexandria/internal/snapshot"
)

// ChromiumOptions configures headless screenshots.
type ChromiumOptions struct {
	ScreenshotsDir string
	WindowWidth    int
	WindowHeight   int
	Budget         time.Duration

	Runner   Runner
	LookPath LookPathFunc
}

// Chromium takes full-window screenshots with a locally installed
// Chromium-family browser.
type Chromium struct {
	dep  Dependency
	opts ChromiumOptions
}

// NewChromium builds the screenshot adapter.
func NewChromium(opts ChromiumOptions) *Chromium {
	if opts.WindowWidth <= 0 {
		opts.WindowWidth = 1920
	}
	if opts.WindowHeight <= 0 {
		opts.WindowHeight = 4000
	}
	if opts.Budget <= 0 {
		opts.Budget = 30 * time.Second
	}
	return &Chromium{
		dep: Dependency{
			Name:     "chromium",
			Commands: []string{"chromium", "chromium-browser", "google-chrome", "chrome"},
			Args: []string{
				"--run-all-compositor-stages-before-draw",
				"--disable-gpu",
				"--headless=new",
				fmt.Sprintf("--virtual-time-budget=%d", opts.Budget.Milliseconds()),
				"--hide-scrollbars",
				fmt.Sprintf("--window-size=%d,%d", opts.WindowWidth, opts.WindowHeight),
			},
			Quiet:    true,
			Runner:   opts.Runner,
			LookPath: opts.LookPath,
		},
		opts: opts,
	}
}

// Path returns where the screenshot of u is written.
func (c *Chromium) Path(u snapshot.URL) string {
	return filepath.Join(c.opts.ScreenshotsDir, u.UniqueID()+".png")
}

// Screenshot renders u and returns the PNG path.
func (c *Chromium) Screenshot(ctx context.Context, u snapshot.URL) (string, error) {
	if err := os.MkdirAll(c.opts.ScreenshotsDir, 0o750); err != nil {
		return "", fmt.Errorf("create screenshots dir: %w", err)
	}
	out := c.Path(u)
	if err := c.dep.Run(ctx, []string{"--screenshot=" + out, u.String()}, true); err != nil {
		return "", err
	}
	return out, nil
}
