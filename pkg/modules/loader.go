// Package modules loads module scripts into the session at most once per
// content change.
//
// A module is a shell script. It is named either by a path (anything
// containing a separator), or by a bare name looked up in the canonical
// module directory. After a successful load the module's sentinel marker
// is touched (markers of modules named by a path outside the module
// directory are keyed on the canonical script path); the module is loaded again only when its script becomes
// newer than the marker, or when a reload is forced.
package modules

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/arthur-debert/roost/pkg/errors"
	"github.com/arthur-debert/roost/pkg/logging"
	"github.com/arthur-debert/roost/pkg/paths"
	"github.com/arthur-debert/roost/pkg/session"
	"github.com/arthur-debert/roost/pkg/shell"
)

// Module is a resolved module script
type Module struct {
	Name   string
	Script string
	// Marker keys the sentinel marker
	Marker string
	// MarkerTime is the mtime of the sentinel marker, zero when the module
	// was never loaded
	MarkerTime time.Time
}

// LoadResult lists module names in processing order
type LoadResult struct {
	Loaded  []string `yaml:"loaded"`
	Skipped []string `yaml:"skipped"`
}

// Loader loads modules into a session
type Loader struct {
	session  *session.Session
	runner   *shell.Runner
	resolver *paths.Resolver

	stdout io.Writer
	stderr io.Writer
	now    func() time.Time
}

// Option configures a Loader
type Option func(*Loader)

// WithOutput sets the streams modules write to
func WithOutput(stdout, stderr io.Writer) Option {
	return func(l *Loader) {
		l.stdout = stdout
		l.stderr = stderr
	}
}

// WithClock overrides the time used for sentinel markers
func WithClock(now func() time.Time) Option {
	return func(l *Loader) {
		l.now = now
	}
}

// NewLoader creates a loader over s
func NewLoader(s *session.Session, opts ...Option) *Loader {
	l := &Loader{
		session:  s,
		runner:   shell.NewRunner(),
		resolver: paths.NewResolver(s.FS()),
		stdout:   os.Stdout,
		stderr:   os.Stderr,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load loads the identified modules in order. Unless force is set, a
// module whose marker is not older than its script is skipped. The first
// failure stops processing; modules loaded before it stay loaded.
func (l *Loader) Load(ctx context.Context, force bool, ids ...string) (LoadResult, error) {
	logger := logging.GetLogger("modules.loader")
	var result LoadResult

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		mod, err := l.Resolve(id)
		if err != nil {
			return result, err
		}

		if !force {
			fresh, err := l.upToDate(mod)
			if err != nil {
				return result, err
			}
			if fresh {
				logger.Debug().Str("module", mod.Name).Msg("Module up to date, skipping")
				result.Skipped = append(result.Skipped, mod.Name)
				continue
			}
		}

		if err := l.run(ctx, mod); err != nil {
			return result, err
		}
		result.Loaded = append(result.Loaded, mod.Name)
		logger.Info().Str("module", mod.Name).Str("script", mod.Script).Msg("Loaded module")
	}
	return result, nil
}

// Resolve maps an identifier to its canonical script.
func (l *Loader) Resolve(id string) (Module, error) {
	p := l.session.Paths()

	var name, entry string
	inModuleDir := true
	if strings.ContainsRune(id, filepath.Separator) {
		entry = filepath.Clean(id)
		name = filepath.Base(entry)
		abs, err := filepath.Abs(entry)
		if err != nil {
			return Module{}, errors.Wrapf(err, errors.ErrFileAccess, "failed to get absolute path for %s", id).
				WithOp("modules.resolve").WithDetail(errors.DetailModule, id)
		}
		inModuleDir = filepath.Dir(abs) == p.ModuleDir()
	} else {
		if id == "" || id == "." || id == ".." || strings.HasPrefix(id, paths.SentinelPrefix) {
			return Module{}, errors.Newf(errors.ErrInvalidInput, "invalid module name %q", id).
				WithOp("modules.resolve").WithDetail(errors.DetailModule, id)
		}
		name = id
		entry = p.ModulePath(id)
	}

	script, err := l.resolver.Resolve(entry)
	if err != nil {
		return Module{}, errors.Wrapf(err, errors.GetErrorCode(err), "cannot find module %s", id).
			WithOp("modules.resolve").WithDetail(errors.DetailModule, id)
	}

	info, err := l.session.FS().Stat(script)
	if err != nil {
		return Module{}, errors.Wrapf(err, errors.ErrFileAccess, "failed to stat module %s", script).
			WithOp("modules.resolve").WithDetail(errors.DetailModule, id).WithDetail(errors.DetailPath, script)
	}
	if !info.Mode().IsRegular() {
		return Module{}, errors.Newf(errors.ErrInvalidInput, "module %s is not a regular file: %s", id, script).
			WithOp("modules.resolve").WithDetail(errors.DetailModule, id).WithDetail(errors.DetailPath, script)
	}

	mod := Module{Name: name, Script: script, Marker: name}
	if !inModuleDir {
		mod.Marker = pathMarker(name, script)
	}
	marker, err := l.session.FS().Stat(p.SentinelPath(mod.Marker))
	switch {
	case err == nil:
		mod.MarkerTime = marker.ModTime()
	case !os.IsNotExist(err):
		return Module{}, errors.Wrapf(err, errors.ErrFileAccess, "failed to stat marker of %s", name).
			WithOp("modules.resolve").WithDetail(errors.DetailModule, name)
	}
	return mod, nil
}

// pathMarker names the marker of a module outside the module directory
// after its base name and a digest of its canonical script path.
func pathMarker(name, script string) string {
	sum := sha256.Sum256([]byte(script))
	return name + "-" + hex.EncodeToString(sum[:4])
}

// upToDate reports whether the marker is at least as new as the script.
func (l *Loader) upToDate(mod Module) (bool, error) {
	if mod.MarkerTime.IsZero() {
		return false, nil
	}
	info, err := l.session.FS().Stat(mod.Script)
	if err != nil {
		return false, errors.Wrapf(err, errors.ErrFileAccess, "failed to stat module %s", mod.Script).
			WithOp("modules.load").WithDetail(errors.DetailModule, mod.Name)
	}
	return !mod.MarkerTime.Before(info.ModTime()), nil
}

func (l *Loader) run(ctx context.Context, mod Module) error {
	logger := logging.GetLogger("modules.loader")
	defer logging.LogOperationStart(logger, "load "+mod.Name)()
	s := l.session
	p := s.Paths()

	scratch, err := s.Scratch()
	if err != nil {
		return err
	}
	defer func() {
		if err := s.Release(scratch); err != nil {
			logger.Warn().Err(err).Str("dir", scratch).Msg("Failed to remove scratch directory")
		}
	}()

	script, err := s.FS().Open(mod.Script)
	if err != nil {
		return errors.Wrapf(err, errors.ErrFileAccess, "failed to open module %s", mod.Script).
			WithOp("modules.load").WithDetail(errors.DetailModule, mod.Name)
	}
	defer func() { _ = script.Close() }()

	env := append(s.Environ(),
		shell.EnvHome+"="+p.Home(),
		shell.EnvFile+"="+p.EnvFile(),
		shell.EnvModule+"="+mod.Name,
		shell.EnvScratch+"="+scratch,
	)

	err = l.runner.RunScript(ctx, shell.RunOptions{
		Name:    mod.Name,
		Script:  script,
		Dir:     scratch,
		Env:     env,
		Stdout:  l.stdout,
		Stderr:  l.stderr,
		Definer: s,
	})
	if err != nil {
		return errors.Wrapf(err, errors.ErrExecution, "module %s failed", mod.Name).
			WithOp("modules.load").WithDetail(errors.DetailModule, mod.Name).WithDetail(errors.DetailPath, mod.Script)
	}

	if err := s.Apply(ctx); err != nil {
		return err
	}
	return l.touch(mod)
}

// touch records a successful load
func (l *Loader) touch(mod Module) error {
	fsys := l.session.FS()
	marker := l.session.Paths().SentinelPath(mod.Marker)
	wrap := func(err error) error {
		return errors.Wrapf(err, errors.ErrFileAccess, "failed to update marker %s", marker).
			WithOp("modules.load").WithDetail(errors.DetailModule, mod.Name).WithDetail(errors.DetailPath, marker)
	}

	if _, err := fsys.Stat(marker); os.IsNotExist(err) {
		if err := fsys.MkdirAll(filepath.Dir(marker), 0755); err != nil {
			return wrap(err)
		}
		if err := fsys.WriteFile(marker, nil, 0644); err != nil {
			return wrap(err)
		}
	}
	now := l.now()
	if err := fsys.Chtimes(marker, now, now); err != nil {
		return wrap(err)
	}
	return nil
}
