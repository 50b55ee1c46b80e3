// Package shell runs module scripts in isolated interpreter instances and
// reads and writes the shared environment definition file.
//
// Scripts run in mvdan.cc/sh, never in the calling process: a script may
// change its own directory and variables freely, and the only way for it
// to affect the session is through the roost_define and roost_path
// builtins, which append to the environment file.
package shell

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/arthur-debert/roost/pkg/errors"
	"github.com/arthur-debert/roost/pkg/logging"
	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

// Variables exported to every script
const (
	EnvHome    = "ROOST_HOME"
	EnvFile    = "ROOST_ENV"
	EnvModule  = "ROOST_MODULE"
	EnvScratch = "ROOST_SCRATCH"
)

// Definer receives the persistent mutations a script requests.
type Definer interface {
	Define(name, value string) error
	PrependPath(dir string) error
}

// RunOptions configures one script execution
type RunOptions struct {
	// Name identifies the script in errors and parser positions
	Name   string
	Script io.Reader
	// Dir is the initial working directory of the interpreter
	Dir  string
	Env  []string
	Args []string

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Definer backs the roost_define and roost_path builtins. Without one
	// the builtins fail.
	Definer Definer
}

// Runner executes scripts. The zero value is ready to use.
type Runner struct{}

// NewRunner creates a script runner
func NewRunner() *Runner {
	return &Runner{}
}

// RunScript parses and runs a script in a fresh interpreter. A non-zero
// exit status is returned as an ErrExecution error carrying the status.
func (r *Runner) RunScript(ctx context.Context, opts RunOptions) error {
	logger := logging.GetLogger("shell.runner")

	prog, err := syntax.NewParser().Parse(opts.Script, opts.Name)
	if err != nil {
		return errors.Wrapf(err, errors.ErrExecution, "failed to parse %s", opts.Name).
			WithOp("shell.run").WithDetail(errors.DetailModule, opts.Name)
	}

	stdout, stderr := opts.Stdout, opts.Stderr
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}

	runnerOpts := []interp.RunnerOption{
		interp.Dir(opts.Dir),
		interp.Env(expand.ListEnviron(opts.Env...)),
		interp.StdIO(opts.Stdin, stdout, stderr),
		interp.ExecHandlers(builtins(opts.Definer)),
	}
	if len(opts.Args) > 0 {
		// "--" keeps leading dashes in args from being read as shell options
		runnerOpts = append(runnerOpts, interp.Params(append([]string{"--"}, opts.Args...)...))
	}

	runner, err := interp.New(runnerOpts...)
	if err != nil {
		return errors.Wrapf(err, errors.ErrInternal, "failed to create interpreter for %s", opts.Name).
			WithOp("shell.run").WithDetail(errors.DetailModule, opts.Name)
	}

	logger.Debug().Str("module", opts.Name).Str("dir", opts.Dir).Msg("Running script")

	if err := runner.Run(ctx, prog); err != nil {
		var status interp.ExitStatus
		if errors.As(err, &status) {
			return errors.Newf(errors.ErrExecution, "%s exited with status %d", opts.Name, status).
				WithOp("shell.run").
				WithDetail(errors.DetailModule, opts.Name).
				WithDetail(errors.DetailStatus, int(status))
		}
		return errors.Wrapf(err, errors.ErrExecution, "failed to run %s", opts.Name).
			WithOp("shell.run").WithDetail(errors.DetailModule, opts.Name)
	}
	return nil
}

// Builtin names available to scripts
const (
	BuiltinDefine = "roost_define"
	BuiltinPath   = "roost_path"
)

// builtins intercepts the roost_* commands before they reach PATH lookup.
func builtins(definer Definer) func(next interp.ExecHandlerFunc) interp.ExecHandlerFunc {
	return func(next interp.ExecHandlerFunc) interp.ExecHandlerFunc {
		return func(ctx context.Context, args []string) error {
			if len(args) == 0 || !strings.HasPrefix(args[0], "roost_") {
				return next(ctx, args)
			}

			hc := interp.HandlerCtx(ctx)
			fail := func(format string, a ...interface{}) error {
				_, _ = fmt.Fprintf(hc.Stderr, args[0]+": "+format+"\n", a...)
				return interp.NewExitStatus(2)
			}

			switch args[0] {
			case BuiltinDefine:
				if len(args) != 3 {
					return fail("usage: %s NAME VALUE", BuiltinDefine)
				}
				if definer == nil {
					return fail("no session")
				}
				if err := definer.Define(args[1], args[2]); err != nil {
					return fail("%v", err)
				}
			case BuiltinPath:
				if len(args) != 2 {
					return fail("usage: %s DIR", BuiltinPath)
				}
				if definer == nil {
					return fail("no session")
				}
				dir := args[1]
				if !filepath.IsAbs(dir) {
					dir = filepath.Join(hc.Dir, dir)
				}
				if err := definer.PrependPath(dir); err != nil {
					return fail("%v", err)
				}
			default:
				return next(ctx, args)
			}
			return nil
		}
	}
}
