package external

import (
	"context"
	"errors"
	"strconv"

	"go.uber.org/zap"

	"github.com/JakeFAU/alexandria/internal/snapshot"
)

// WgetOptions configures the mirroring invocation.
type WgetOptions struct {
	MirrorsDir string
	Depth      int
	UserAgent  string

	Runner   Runner
	LookPath LookPathFunc
}

// Wget mirrors a page and its requisites into <MirrorsDir>/<host>/...
type Wget struct {
	dep    Dependency
	opts   WgetOptions
	logger *zap.Logger
}

// NewWget builds a wget adapter.
func NewWget(opts WgetOptions, logger *zap.Logger) *Wget {
	if opts.Depth <= 0 {
		opts.Depth = 1
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "Mozilla"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Wget{
		dep: Dependency{
			Name:     "wget",
			Commands: []string{"wget"},
			Runner:   opts.Runner,
			LookPath: opts.LookPath,
		},
		opts:   opts,
		logger: logger,
	}
}

// Args returns the full wget argument list for u, without the program name.
func (w *Wget) Args(u snapshot.URL) []string {
	return []string{
		"-P", w.opts.MirrorsDir,
		"--mirror", "-p", "--recursive", "-l", strconv.Itoa(w.opts.Depth),
		"--page-requisites", "--adjust-extension", "--span-hosts",
		"-U", w.opts.UserAgent, "-E", "-k",
		"-e", "robots=off", "--random-wait", "--no-cookies",
		"--convert-links", "--restrict-file-names=windows",
		"--domains", u.Hostname(),
		"--no-parent", u.String(),
	}
}

// Fetch mirrors u. A missing wget binary is returned as
// *DependencyNotFoundError; a non-zero exit status is logged and swallowed
// because wget reports partial failures that still leave a usable mirror.
func (w *Wget) Fetch(ctx context.Context, u snapshot.URL) error {
	err := w.dep.Run(ctx, w.Args(u), false)
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		w.logger.Warn("wget exited with errors", zap.String("url", u.String()), zap.Int("status", exitErr.Code))
		return nil
	}
	return err
}
