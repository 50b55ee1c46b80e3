// Package cli implements the roost command line.
package cli

import (
	"io"
	"os"

	"github.com/arthur-debert/roost/pkg/config"
	"github.com/arthur-debert/roost/pkg/executor"
	"github.com/arthur-debert/roost/pkg/filesystem"
	"github.com/arthur-debert/roost/pkg/logging"
	"github.com/arthur-debert/roost/pkg/paths"
	"github.com/arthur-debert/roost/pkg/session"
	"github.com/arthur-debert/roost/pkg/ui"
)

// App is one roost invocation. The command tree fills in the
// configuration, paths and session before any command runs; main defers
// Cleanup and reports errors through Fault.
type App struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Commander runs external commands; nil selects os/exec
	Commander executor.Commander
	// Environ, when set, isolates the session from the process
	// environment
	Environ []string
	// LogFile overrides the state log file; "-" disables it
	LogFile string

	flags globalFlags

	cfg     *config.Config
	paths   paths.Paths
	fs      filesystem.FS
	session *session.Session
	printer *ui.Printer
}

type globalFlags struct {
	verbosity  int
	home       string
	configFile string
	output     string
}

// NewApp creates an app over the process streams
func NewApp() *App {
	return &App{Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr}
}

// setup loads the configuration and opens the session
func (a *App) setup() error {
	switch a.LogFile {
	case "":
		logging.SetupLoggerWithOutput(a.flags.verbosity, a.Stderr, logging.LogFilePath())
	case "-":
		logging.SetupLoggerWithOutput(a.flags.verbosity, a.Stderr, "")
	default:
		logging.SetupLoggerWithOutput(a.flags.verbosity, a.Stderr, a.LogFile)
	}

	format, err := ui.ParseFormat(a.flags.output)
	if err != nil {
		return err
	}
	a.printer = ui.NewPrinter(a.Stdout, a.Stderr, format)

	cfg, err := config.Load(a.flags.configFile, map[string]interface{}{"home": a.flags.home})
	if err != nil {
		return err
	}
	p, err := paths.New(cfg.Home)
	if err != nil {
		return err
	}

	if err := a.Cleanup(); err != nil {
		return err
	}
	a.cfg = cfg
	a.paths = p
	a.fs = filesystem.NewOS()
	if a.Environ != nil {
		a.session = session.NewIsolated(p, a.fs, a.Environ)
	} else {
		a.session = session.New(p, a.fs)
	}
	return nil
}

// commander returns the external command runner
func (a *App) commander(dryRun bool) executor.Commander {
	if a.Commander != nil {
		return a.Commander
	}
	e := executor.New(dryRun)
	e.Out = a.Stdout
	return e
}

// Cleanup releases the session's scratch directories
func (a *App) Cleanup() error {
	if a.session == nil {
		return nil
	}
	return a.session.Cleanup()
}

// Fault reports an error that ends the invocation
func (a *App) Fault(err error) {
	p := a.printer
	if p == nil {
		p = ui.NewPrinter(a.Stdout, a.Stderr, ui.FormatText)
	}
	p.Fault(err)
}
