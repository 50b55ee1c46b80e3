// Package pkgmgr installs OS packages through the host package manager.
//
// A Selector checks the host once for a supported package manager and
// hands out the resulting Manager on every later call.
package pkgmgr

import (
	"context"
	"strings"
	"sync"

	"github.com/arthur-debert/roost/pkg/errors"
	"github.com/arthur-debert/roost/pkg/executor"
	"github.com/arthur-debert/roost/pkg/logging"
)

// Manager is a host package manager
type Manager interface {
	Name() string
	IsInstalled(ctx context.Context, pkg string) (bool, error)
	Install(ctx context.Context, pkgs ...string) error
}

// strategy describes one package manager as command lines
type strategy struct {
	name string
	// detect is the executable whose presence selects the strategy
	detect  string
	query   []string
	install []string
	// sudo prefixes install with sudo when not running as root
	sudo bool
}

var strategies = []strategy{
	{name: "brew", detect: "brew", query: []string{"brew", "list", "--formula"}, install: []string{"brew", "install"}},
	{name: "apt", detect: "apt-get", query: []string{"dpkg", "-s"}, install: []string{"apt-get", "install", "-y"}, sudo: true},
	{name: "dnf", detect: "dnf", query: []string{"rpm", "-q"}, install: []string{"dnf", "install", "-y"}, sudo: true},
	{name: "pacman", detect: "pacman", query: []string{"pacman", "-Q"}, install: []string{"pacman", "-S", "--noconfirm", "--needed"}, sudo: true},
	{name: "zypper", detect: "zypper", query: []string{"rpm", "-q"}, install: []string{"zypper", "--non-interactive", "install"}, sudo: true},
}

// Names lists the supported managers in detection order
func Names() []string {
	names := make([]string, 0, len(strategies))
	for _, s := range strategies {
		names = append(names, s.name)
	}
	return names
}

type manager struct {
	strategy
	cmd    executor.Commander
	asRoot bool
}

func (m *manager) Name() string {
	return m.name
}

// IsInstalled reports whether the query command succeeds for pkg. An
// execution failure means "not installed"; anything else is an error.
func (m *manager) IsInstalled(ctx context.Context, pkg string) (bool, error) {
	err := m.cmd.Run(ctx, executor.Command{Name: m.query[0], Args: append(append([]string(nil), m.query[1:]...), pkg)})
	if err == nil {
		return true, nil
	}
	if errors.IsErrorCode(err, errors.ErrExecution) && errors.GetErrorDetails(err)[errors.DetailStatus] != nil {
		return false, nil
	}
	return false, err
}

func (m *manager) Install(ctx context.Context, pkgs ...string) error {
	if len(pkgs) == 0 {
		return nil
	}
	argv := append(append([]string(nil), m.install...), pkgs...)
	if m.sudo && !m.asRoot {
		argv = append([]string{"sudo"}, argv...)
	}

	logger := logging.GetLogger("pkgmgr")
	logger.Info().
		Str("manager", m.name).
		Strs("packages", pkgs).
		Msg("Installing packages")

	if err := m.cmd.Run(ctx, executor.Command{Name: argv[0], Args: argv[1:]}); err != nil {
		return errors.Wrapf(err, errors.ErrExecution, "%s failed to install %s", m.name, strings.Join(pkgs, " ")).
			WithOp("pkgmgr.install").WithDetail(errors.DetailPackage, strings.Join(pkgs, " "))
	}
	return nil
}

// Selector picks the host package manager on first use and memoizes it
type Selector struct {
	cmd executor.Commander
	// preferred forces a manager by name instead of probing
	preferred string
	asRoot    bool

	once    sync.Once
	manager Manager
	err     error
}

// NewSelector creates a selector. A non-empty preferred name skips probing.
func NewSelector(cmd executor.Commander, preferred string, asRoot bool) *Selector {
	return &Selector{cmd: cmd, preferred: preferred, asRoot: asRoot}
}

// Manager returns the selected manager, probing only on the first call.
func (s *Selector) Manager() (Manager, error) {
	s.once.Do(func() {
		s.manager, s.err = s.detect()
	})
	return s.manager, s.err
}

func (s *Selector) detect() (Manager, error) {
	logger := logging.GetLogger("pkgmgr")

	if s.preferred != "" {
		for _, st := range strategies {
			if st.name == s.preferred {
				return &manager{strategy: st, cmd: s.cmd, asRoot: s.asRoot}, nil
			}
		}
		return nil, errors.Newf(errors.ErrInvalidInput, "unknown package manager %q (want one of %s)",
			s.preferred, strings.Join(Names(), ", ")).WithOp("pkgmgr.detect")
	}

	for _, st := range strategies {
		if _, err := s.cmd.LookPath(st.detect); err == nil {
			logger.Debug().Str("manager", st.name).Msg("Detected package manager")
			return &manager{strategy: st, cmd: s.cmd, asRoot: s.asRoot}, nil
		}
	}
	return nil, errors.Newf(errors.ErrNotFound, "no supported package manager found (looked for %s)",
		strings.Join(Names(), ", ")).WithOp("pkgmgr.detect")
}

// InstallMissing installs the names the manager does not report as
// installed, in one install call, and returns them.
func InstallMissing(ctx context.Context, m Manager, names []string) ([]string, error) {
	var missing []string
	for _, name := range names {
		ok, err := m.IsInstalled(ctx, name)
		if err != nil {
			return nil, err
		}
		if !ok {
			missing = append(missing, name)
		}
	}
	if err := m.Install(ctx, missing...); err != nil {
		return nil, err
	}
	return missing, nil
}
