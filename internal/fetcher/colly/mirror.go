// Package collyfetcher mirrors pages in-process with gocolly, writing the same
// on-disk layout wget produces so the resolver can find them.
package collyfetcher

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/JakeFAU/alexandria/internal/snapshot"
)

const requisiteKey = "requisite"

// Config controls collector behavior.
type Config struct {
	MirrorsDir    string
	Depth         int
	UserAgent     string
	RespectRobots bool
	Timeout       time.Duration
}

// Mirror implements archive.Fetcher using the Colly collector.
type Mirror struct {
	cfg       Config
	transport http.RoundTripper
	logger    *zap.Logger
}

// New builds a Mirror.
func New(cfg Config, logger *zap.Logger) *Mirror {
	if cfg.Depth <= 0 {
		cfg.Depth = 1
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "Mozilla"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Mirror{cfg: cfg, transport: newHTTPTransport(), logger: logger}
}

// Fetch mirrors u and the pages it links to on the same host, up to the
// configured depth, together with their stylesheets, scripts and images.
// Only a failure of the page itself is returned; failed sub-resources are
// logged.
func (m *Mirror) Fetch(ctx context.Context, u snapshot.URL) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("colly fetch canceled: %w", err)
	}
	start, err := url.Parse(u.String())
	if err != nil {
		return fmt.Errorf("parse %s: %w", u, err)
	}
	if start.Scheme == "" {
		start.Scheme = "http"
	}

	var (
		mu      sync.Mutex
		rootErr error
		written int
	)
	c, robots := m.buildCollector(ctx, start)

	c.OnResponse(func(r *colly.Response) {
		dest := LocalPath(m.cfg.MirrorsDir, r.Request.URL, isHTML(r))
		if err := writeFile(dest, r.Body); err != nil {
			m.logger.Warn("mirror write failed", zap.String("url", r.Request.URL.String()), zap.Error(err))
			return
		}
		mu.Lock()
		written++
		mu.Unlock()
		m.logger.Debug("mirrored", zap.String("url", r.Request.URL.String()), zap.String("path", dest))
	})

	c.OnError(func(r *colly.Response, err error) {
		if r != nil && r.Request != nil && sameResource(r.Request.URL, start) {
			mu.Lock()
			rootErr = err
			mu.Unlock()
			return
		}
		m.logger.Warn("mirror request failed", zap.Error(err))
	})

	if err := m.run(ctx, c, start.String()); err != nil {
		return err
	}
	if rootErr != nil {
		return fmt.Errorf("colly response failed: %w", rootErr)
	}
	m.logger.Info("mirror complete",
		zap.String("url", u.String()),
		zap.Int("files", written),
		zap.Bool("robots_fallback", robots.fellBack(start.Host)),
	)
	return nil
}

// buildCollector returns the collector for start and, when robots.txt is
// honored, the state recording which hosts fell back to allow-all.
func (m *Mirror) buildCollector(ctx context.Context, start *url.URL) (*colly.Collector, *robotsProbeState) {
	c := colly.NewCollector(
		colly.StdlibContext(ctx),
		colly.Async(false),
		colly.MaxDepth(m.cfg.Depth+1),
		colly.AllowedDomains(start.Hostname()),
		colly.UserAgent(m.cfg.UserAgent),
	)
	c.IgnoreRobotsTxt = !m.cfg.RespectRobots
	c.SetRequestTimeout(m.cfg.Timeout)
	var robots *robotsProbeState
	if m.cfg.RespectRobots {
		robots = newRobotsProbeState(m.logger)
		c.WithTransport(&robotsAwareTransport{base: m.transport, state: robots})
	} else {
		c.WithTransport(m.transport)
	}

	parent := parentPrefix(start)

	c.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
		}
	})

	c.OnHTML("a[href]", func(e *colly.HTMLElement) {
		if e.Request.Ctx.Get(requisiteKey) != "" {
			return
		}
		target := e.Request.AbsoluteURL(e.Attr("href"))
		if target == "" {
			return
		}
		parsed, err := url.Parse(target)
		if err != nil || !strings.HasPrefix(parsed.EscapedPath(), parent) {
			return
		}
		_ = e.Request.Visit(target) //nolint:errcheck // already visited or out of scope
	})

	requisite := func(attr string) colly.HTMLCallback {
		return func(e *colly.HTMLElement) {
			target := e.Request.AbsoluteURL(e.Attr(attr))
			if target == "" {
				return
			}
			rctx := colly.NewContext()
			rctx.Put(requisiteKey, "1")
			_ = c.Request(http.MethodGet, target, nil, rctx, nil) //nolint:errcheck // already visited or out of scope
		}
	}
	c.OnHTML(`link[rel="stylesheet"][href]`, requisite("href"))
	c.OnHTML(`link[rel="icon"][href]`, requisite("href"))
	c.OnHTML("script[src]", requisite("src"))
	c.OnHTML("img[src]", requisite("src"))

	return c, robots
}

func (m *Mirror) run(ctx context.Context, c *colly.Collector, target string) error {
	done := make(chan error, 1)
	go func() {
		done <- c.Visit(target)
	}()

	select {
	case <-ctx.Done():
		// New requests are aborted and in-flight ones share ctx, so Visit
		// returns promptly. No file may be written once Fetch has returned.
		<-done
		return fmt.Errorf("colly fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("colly visit failed: %w", err)
		}
		return nil
	}
}

// LocalPath maps a fetched URL to its file in the mirror, following wget's
// --adjust-extension and --restrict-file-names=windows conventions: directory
// URLs become index.html, the query is appended after '@' and HTML documents
// always end in .html.
func LocalPath(root string, u *url.URL, html bool) string {
	p := u.EscapedPath()
	if p == "" || strings.HasSuffix(p, "/") {
		p += "index.html"
	}
	if u.RawQuery != "" {
		p += "@" + u.RawQuery
	}
	lower := strings.ToLower(p)
	if html && !strings.HasSuffix(lower, ".html") && !strings.HasSuffix(lower, ".htm") {
		p += ".html"
	}
	p = strings.TrimPrefix(path.Clean("/"+p), "/")
	return filepath.Join(root, u.Host, filepath.FromSlash(p))
}

func isHTML(r *colly.Response) bool {
	if ct := r.Headers.Get("Content-Type"); ct != "" {
		return strings.Contains(strings.ToLower(ct), "text/html")
	}
	return mimetype.Detect(r.Body).Is("text/html")
}

// parentPrefix is the directory of start; links outside it are not followed.
func parentPrefix(start *url.URL) string {
	p := start.EscapedPath()
	if p == "" {
		return "/"
	}
	if strings.HasSuffix(p, "/") {
		return p
	}
	return p[:strings.LastIndex(p, "/")+1]
}

func sameResource(a, b *url.URL) bool {
	return a.Host == b.Host && strings.TrimSuffix(a.EscapedPath(), "/") == strings.TrimSuffix(b.EscapedPath(), "/") && a.RawQuery == b.RawQuery
}

func writeFile(dest string, body []byte) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
		return fmt.Errorf("create mirror dir: %w", err)
	}
	if err := os.WriteFile(dest, body, 0o600); err != nil {
		return fmt.Errorf("write mirror file: %w", err)
	}
	return nil
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
