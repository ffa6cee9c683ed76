// Package external wraps the command-line programs the archive drives: wget
// for mirroring, a Chromium build for screenshots and git for history.
package external

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
)

// ErrDependencyNotFound matches any *DependencyNotFoundError.
var ErrDependencyNotFound = errors.New("external dependency not found")

// DependencyNotFoundError reports that none of a dependency's commands is on PATH.
type DependencyNotFoundError struct {
	Name     string
	Commands []string
}

func (e *DependencyNotFoundError) Error() string {
	return fmt.Sprintf("%s is required dependency, please install it using your package manager", e.Name)
}

// Is lets errors.Is(err, ErrDependencyNotFound) succeed.
func (e *DependencyNotFoundError) Is(target error) bool {
	return target == ErrDependencyNotFound
}

// ExitError reports a program that ran but exited with a non-zero status.
type ExitError struct {
	Name string
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with status %d", e.Name, e.Code)
}

func (e *ExitError) Unwrap() error { return e.Err }

// Runner executes a resolved command line. Quiet discards the program output.
type Runner interface {
	Run(ctx context.Context, argv []string, quiet bool) error
}

// LookPathFunc resolves a command name to an executable path.
type LookPathFunc func(file string) (string, error)

// ExecRunner runs programs with os/exec, streaming output to Stdout/Stderr
// unless quiet.
type ExecRunner struct {
	Stdout io.Writer
	Stderr io.Writer
}

// Run implements Runner.
func (r ExecRunner) Run(ctx context.Context, argv []string, quiet bool) error {
	if len(argv) == 0 {
		return fmt.Errorf("empty command line")
	}
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...) // #nosec G204 -- argv is built from fixed templates.
	if quiet {
		cmd.Stdout = io.Discard
		cmd.Stderr = io.Discard
	} else {
		cmd.Stdout = orDefault(r.Stdout, os.Stdout)
		cmd.Stderr = orDefault(r.Stderr, os.Stderr)
	}
	err := cmd.Run()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && ctx.Err() == nil {
		return &ExitError{Name: argv[0], Code: exitErr.ExitCode(), Err: err}
	}
	if err != nil {
		return fmt.Errorf("run %s: %w", argv[0], err)
	}
	return nil
}

func orDefault(w, fallback io.Writer) io.Writer {
	if w == nil {
		return fallback
	}
	return w
}

// Dependency describes an external program: the names it may be installed
// under and its default arguments.
type Dependency struct {
	Name     string
	Commands []string
	Args     []string
	Quiet    bool

	Runner   Runner
	LookPath LookPathFunc
}

// Available returns the first command found on PATH.
func (d *Dependency) Available() (string, bool) {
	look := d.LookPath
	if look == nil {
		look = exec.LookPath
	}
	for _, c := range d.Commands {
		if _, err := look(c); err == nil {
			return c, true
		}
	}
	return "", false
}

// CommandLine builds the argument vector for one invocation. Defaults are
// used alone when args is empty and prepended to args when mergeDefaults is
// set. A new slice is returned on every call.
func (d *Dependency) CommandLine(command string, args []string, mergeDefaults bool) []string {
	argv := make([]string, 0, 1+len(d.Args)+len(args))
	argv = append(argv, command)
	if len(args) == 0 || mergeDefaults {
		argv = append(argv, d.Args...)
	}
	return append(argv, args...)
}

// Run resolves the command and executes it.
func (d *Dependency) Run(ctx context.Context, args []string, mergeDefaults bool) error {
	command, ok := d.Available()
	if !ok {
		return &DependencyNotFoundError{Name: d.Name, Commands: append([]string(nil), d.Commands...)}
	}
	runner := d.Runner
	if runner == nil {
		runner = ExecRunner{}
	}
	return runner.Run(ctx, d.CommandLine(command, args, mergeDefaults), d.Quiet)
}
