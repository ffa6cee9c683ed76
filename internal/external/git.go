package external

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Git records the storage directory history.
type Git struct {
	dep Dependency
}

// NewGit builds the git adapter. runner and lookPath may be nil.
func NewGit(runner Runner, lookPath LookPathFunc) *Git {
	return &Git{dep: Dependency{
		Name:     "git",
		Commands: []string{"git"},
		Quiet:    true,
		Runner:   runner,
		LookPath: lookPath,
	}}
}

// Init creates a repository in dir unless one already exists.
func (g *Git) Init(ctx context.Context, dir string) error {
	if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
		return nil
	}
	if err := g.dep.Run(ctx, []string{"-C", dir, "init"}, false); err != nil {
		return fmt.Errorf("git init: %w", err)
	}
	return nil
}

// Commit stages everything under dir and commits it with message.
func (g *Git) Commit(ctx context.Context, dir, message string) error {
	if err := g.Init(ctx, dir); err != nil {
		return err
	}
	if err := g.dep.Run(ctx, []string{"-C", dir, "add", "-A"}, false); err != nil {
		return fmt.Errorf("git add: %w", err)
	}
	if err := g.dep.Run(ctx, []string{"-C", dir, "commit", "-m", message}, false); err != nil {
		return fmt.Errorf("git commit: %w", err)
	}
	return nil
}
