// Package screenshot renders pages to PNG with an in-process chromedp browser.
package screenshot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"

	"github.com/JakeFAU/alexandria/internal/snapshot"
)

// Config controls the behavior of the chromedp screenshot engine.
type Config struct {
	Dir          string
	WindowWidth  int
	WindowHeight int
	UserAgent    string
	// Budget bounds navigation and rendering of a single page.
	Budget time.Duration
	// Settle is the pause after the body is ready, letting late scripts paint.
	Settle time.Duration
	// ExecPath overrides browser discovery.
	ExecPath string
}

// Chromedp implements archive.Screenshotter using headless Chrome.
type Chromedp struct {
	cfg         Config
	allocator   context.Context
	allocCancel context.CancelFunc
}

// NewChromedp creates a screenshot engine. The browser starts lazily on the
// first screenshot.
func NewChromedp(cfg Config) (*Chromedp, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("screenshot dir is required")
	}
	if cfg.WindowWidth <= 0 {
		cfg.WindowWidth = 1920
	}
	if cfg.WindowHeight <= 0 {
		cfg.WindowHeight = 4000
	}
	if cfg.Budget <= 0 {
		cfg.Budget = 30 * time.Second
	}
	if cfg.Settle < 0 {
		cfg.Settle = 0
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("run-all-compositor-stages-before-draw", true),
		chromedp.WindowSize(cfg.WindowWidth, cfg.WindowHeight),
	)
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &Chromedp{
		cfg:         cfg,
		allocator:   allocCtx,
		allocCancel: allocCancel,
	}, nil
}

// Close shuts the browser down.
func (c *Chromedp) Close() {
	c.allocCancel()
}

// Path returns where the screenshot of u is written.
func (c *Chromedp) Path(u snapshot.URL) string {
	return filepath.Join(c.cfg.Dir, u.UniqueID()+".png")
}

// Screenshot navigates to u and writes a PNG of the configured window.
func (c *Chromedp) Screenshot(ctx context.Context, u snapshot.URL) (string, error) {
	if err := os.MkdirAll(c.cfg.Dir, 0o750); err != nil {
		return "", fmt.Errorf("create screenshots dir: %w", err)
	}

	taskCtx, taskCancel := chromedp.NewContext(c.allocator)
	defer taskCancel()
	taskCtx, cancel := context.WithTimeout(taskCtx, c.cfg.Budget)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var buf []byte
	if err := chromedp.Run(taskCtx, c.actions(u.String(), &buf)...); err != nil {
		return "", fmt.Errorf("chromedp screenshot %s: %w", u, err)
	}

	out := c.Path(u)
	if err := os.WriteFile(out, buf, 0o600); err != nil {
		return "", fmt.Errorf("write screenshot: %w", err)
	}
	return out, nil
}

func (c *Chromedp) actions(target string, buf *[]byte) []chromedp.Action {
	actions := []chromedp.Action{
		emulation.SetDeviceMetricsOverride(int64(c.cfg.WindowWidth), int64(c.cfg.WindowHeight), 1, false),
		chromedp.Navigate(target),
		chromedp.WaitReady("body", chromedp.ByQuery),
	}
	if c.cfg.Settle > 0 {
		actions = append(actions, chromedp.Sleep(c.cfg.Settle))
	}
	return append(actions, chromedp.CaptureScreenshot(buf))
}
