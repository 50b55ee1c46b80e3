// Package executor runs external commands: package managers, ssh, rsync
// and the commands a package installs.
package executor

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/arthur-debert/roost/pkg/errors"
	"github.com/arthur-debert/roost/pkg/logging"
)

// Command is one external command invocation
type Command struct {
	Name string
	Args []string
	Dir  string
	// Env replaces the process environment when non-nil
	Env []string

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// String renders the command line for logs and dry runs
func (c Command) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// Commander runs commands and looks up executables
type Commander interface {
	Run(ctx context.Context, cmd Command) error
	LookPath(name string) (string, error)
}

// Exec runs commands as child processes
type Exec struct {
	// DryRun prints commands to Out instead of running them
	DryRun bool
	Out    io.Writer
}

// New creates a Commander backed by os/exec
func New(dryRun bool) *Exec {
	return &Exec{DryRun: dryRun, Out: os.Stdout}
}

// Run starts cmd and waits for it. A non-zero exit is an ErrExecution
// error carrying the command and the status.
func (e *Exec) Run(ctx context.Context, cmd Command) error {
	logger := logging.GetLogger("executor")

	if e.DryRun {
		logger.Info().Str("command", cmd.String()).Msg("Dry run, not executing")
		if e.Out != nil {
			_, _ = fmt.Fprintf(e.Out, "would run: %s\n", cmd)
		}
		return nil
	}

	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	c.Env = cmd.Env
	c.Stdin = cmd.Stdin
	c.Stdout = cmd.Stdout
	c.Stderr = cmd.Stderr

	logger.Debug().Str("command", cmd.String()).Str("dir", cmd.Dir).Msg("Executing command")

	if err := c.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return errors.Newf(errors.ErrExecution, "%s exited with status %d", cmd.Name, exitErr.ExitCode()).
				WithOp("executor.run").
				WithDetail(errors.DetailCommand, cmd.String()).
				WithDetail(errors.DetailStatus, exitErr.ExitCode())
		}
		return errors.Wrapf(err, errors.ErrExecution, "failed to execute %s", cmd.Name).
			WithOp("executor.run").WithDetail(errors.DetailCommand, cmd.String())
	}
	return nil
}

// LookPath searches PATH for an executable
func (e *Exec) LookPath(name string) (string, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrNotFound, "%s not found", name).
			WithOp("executor.lookpath").WithDetail(errors.DetailCommand, name)
	}
	return path, nil
}
