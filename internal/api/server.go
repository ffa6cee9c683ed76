package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/JakeFAU/alexandria/internal/export"
	"github.com/JakeFAU/alexandria/internal/metrics"
	"github.com/JakeFAU/alexandria/internal/snapshot"
)

const (
	stylesheetRoute  = "/static/index.css"
	screenshotsRoute = "/screenshots"
)

// Index is the read side of the archive the server renders.
type Index interface {
	NewestFirst(ctx context.Context, skip func(error)) ([]snapshot.Materialized, error)
	ResetSizes()
	MirrorsDir() string
	ScreenshotsDir() string
}

// Options configures the listener and the rendered page.
type Options struct {
	Port            int
	ShutdownTimeout time.Duration
	Screenshots     bool
	Verbose         bool
}

// Server renders the archive index and serves mirrored files.
type Server struct {
	router chi.Router
	index  Index
	opts   Options
	logger *zap.Logger
	now    func() time.Time
}

// NewServer constructs a Server with middleware and routes.
func NewServer(index Index, opts Options, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 5 * time.Second
	}
	metrics.Init()

	s := &Server{
		index:  index,
		opts:   opts,
		logger: logger,
		now:    time.Now,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if opts.Verbose {
		r.Use(accessLog(logger))
	}
	r.Use(recoverer(logger))
	r.Use(metrics.Middleware)

	r.Get("/", s.home)
	r.Get("/healthz", s.healthz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	r.Get(stylesheetRoute, s.stylesheet)
	r.Handle(screenshotsRoute+"/*", http.StripPrefix(screenshotsRoute,
		http.FileServer(http.Dir(index.ScreenshotsDir()))))
	r.NotFound(s.mirror)

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on the configured port and blocks until ctx is cancelled or
// the listener fails.
func (s *Server) Start(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", fmt.Sprintf(":%d", s.opts.Port))
	if err != nil {
		return fmt.Errorf("listen on port %d: %w", s.opts.Port, err)
	}
	return s.Serve(ctx, ln)
}

// Serve handles connections on ln until ctx is cancelled, then shuts down
// gracefully within the configured timeout.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server started", zap.String("addr", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutdown initiated")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	s.logger.Info("shutdown complete")
	return nil
}

func (s *Server) home(w http.ResponseWriter, r *http.Request) {
	// Sizes are recomputed for every render so new mirrors show up.
	s.index.ResetSizes()
	snaps, err := s.index.NewestFirst(r.Context(), func(err error) {
		metrics.ObserveMaterializeFailure()
		s.logger.Warn("skipping snapshot", zap.Error(err))
	})
	if err != nil {
		s.logger.Error("list snapshots failed", zap.Error(err))
		http.Error(w, "failed to list snapshots", http.StatusInternalServerError)
		return
	}
	metrics.SetIndexedSnapshots(len(snaps))

	body, err := export.HTML(snaps, export.HTMLOptions{
		IndexPrefix:      "/",
		ScreenshotPrefix: screenshotsRoute,
		Screenshots:      s.opts.Screenshots,
		StylesheetHref:   stylesheetRoute,
		GeneratedAt:      s.now(),
	})
	if err != nil {
		s.logger.Error("render index failed", zap.Error(err))
		http.Error(w, "failed to render index", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write([]byte(body)); err != nil {
		s.logger.Debug("write index failed", zap.Error(err))
	}
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if _, err := w.Write([]byte("ok\n")); err != nil {
		s.logger.Debug("write healthz failed", zap.Error(err))
	}
}

func (s *Server) stylesheet(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	if _, err := w.Write(export.Stylesheet()); err != nil {
		s.logger.Debug("write stylesheet failed", zap.Error(err))
	}
}

// mirror serves files from the mirror root. Mirrored pages are often saved
// without an extension, so their type is sniffed from content.
func (s *Server) mirror(w http.ResponseWriter, r *http.Request) {
	root := s.index.MirrorsDir()
	name := path.Clean("/" + r.URL.Path)
	if path.Ext(name) == "" {
		full := filepath.Join(root, filepath.FromSlash(name))
		if info, err := os.Stat(full); err == nil && info.Mode().IsRegular() {
			if mt, err := mimetype.DetectFile(full); err == nil {
				w.Header().Set("Content-Type", mt.String())
			}
		}
	}
	http.FileServer(http.Dir(root)).ServeHTTP(w, r)
}

func accessLog(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Debug("request completed",
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}

func recoverer(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					logger.Error("panic recovered",
						zap.Any("panic", rec),
						zap.String("path", r.URL.Path),
						zap.Stack("stack"),
					)
					http.Error(w, "internal server error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
