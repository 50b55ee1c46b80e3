// Package session holds the state shared by one roost invocation: the live
// environment, the environment definition file, and the scratch
// directories created for module execution.
//
// The top-level process owns exactly one Session and defers Cleanup, which
// removes every scratch directory whatever way the process ends.
package session

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/arthur-debert/roost/pkg/errors"
	"github.com/arthur-debert/roost/pkg/filesystem"
	"github.com/arthur-debert/roost/pkg/logging"
	"github.com/arthur-debert/roost/pkg/paths"
	"github.com/arthur-debert/roost/pkg/shell"
)

const scratchPattern = "roost-scratch-"

// Session implements shell.Definer
type Session struct {
	mu sync.Mutex

	paths paths.Paths
	fs    filesystem.FS

	// base is the environment the session started with. The environment
	// file is always evaluated against it, so re-applying never stacks
	// PATH prefixes.
	base []string
	env  []string
	// export mirrors applied variables into the process environment
	export bool

	scratch []string
}

// New creates a session over the process environment. Applied variables
// are also set in the process environment.
func New(p paths.Paths, fsys filesystem.FS) *Session {
	s := NewIsolated(p, fsys, os.Environ())
	s.export = true
	return s
}

// NewIsolated creates a session over env that never touches the process
// environment.
func NewIsolated(p paths.Paths, fsys filesystem.FS, env []string) *Session {
	base := append([]string(nil), env...)
	return &Session{
		paths: p,
		fs:    fsys,
		base:  base,
		env:   append([]string(nil), base...),
	}
}

func (s *Session) Paths() paths.Paths {
	return s.paths
}

func (s *Session) FS() filesystem.FS {
	return s.fs
}

// Environ returns a copy of the live environment as KEY=VALUE pairs
func (s *Session) Environ() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.env...)
}

// Getenv returns a variable of the live environment
func (s *Session) Getenv(name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.env) - 1; i >= 0; i-- {
		if k, v, ok := strings.Cut(s.env[i], "="); ok && k == name {
			return v
		}
	}
	return ""
}

// Define appends an assignment of name to the environment file unless an
// identical line is already there. The live environment is unchanged
// until Apply.
func (s *Session) Define(name, value string) error {
	line, err := shell.FormatAssignment(name, value)
	if err != nil {
		return err
	}
	return s.appendLine(line)
}

// PrependPath appends a PATH prepend of dir to the environment file
// unless an identical line is already there.
func (s *Session) PrependPath(dir string) error {
	line, err := shell.FormatPathPrepend(filepath.Clean(dir))
	if err != nil {
		return err
	}
	return s.appendLine(line)
}

func (s *Session) appendLine(line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file := s.paths.EnvFile()
	content, err := s.fs.ReadFile(file)
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, errors.ErrFileAccess, "failed to read environment file %s", file).
			WithOp("session.define").WithDetail(errors.DetailPath, file)
	}

	scanner := bufio.NewScanner(strings.NewReader(string(content)))
	for scanner.Scan() {
		if scanner.Text() == line {
			return nil
		}
	}

	var b strings.Builder
	b.Write(content)
	if len(content) > 0 && content[len(content)-1] != '\n' {
		b.WriteByte('\n')
	}
	b.WriteString(line + "\n")

	if err := s.fs.MkdirAll(filepath.Dir(file), 0755); err != nil {
		return errors.Wrapf(err, errors.ErrFileAccess, "failed to create %s", filepath.Dir(file)).
			WithOp("session.define").WithDetail(errors.DetailPath, file)
	}
	if err := s.fs.WriteFile(file, []byte(b.String()), 0644); err != nil {
		return errors.Wrapf(err, errors.ErrFileAccess, "failed to write environment file %s", file).
			WithOp("session.define").WithDetail(errors.DetailPath, file)
	}

	logger := logging.GetLogger("session")
	logger.Debug().Str("line", line).Msg("Appended environment definition")
	return nil
}

// Apply re-reads the environment file and applies its assignments, in
// file order, to the live environment.
func (s *Session) Apply(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	env, err := shell.ApplyEnvFile(ctx, s.fs, s.paths.EnvFile(), s.base)
	if err != nil {
		return err
	}

	if s.export {
		for _, kv := range env {
			name, value, _ := strings.Cut(kv, "=")
			if os.Getenv(name) == value {
				continue
			}
			if err := os.Setenv(name, value); err != nil {
				return errors.Wrapf(err, errors.ErrInternal, "failed to set %s", name).
					WithOp("session.apply")
			}
		}
	}
	s.env = env
	return nil
}

// Scratch creates and registers a temporary directory
func (s *Session) Scratch() (string, error) {
	dir, err := os.MkdirTemp("", scratchPattern)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrFileAccess, "failed to create scratch directory").
			WithOp("session.scratch")
	}
	// modules see the physical path, like `cd -P`
	if resolved, err := paths.Resolve(dir); err == nil {
		dir = resolved
	}

	s.mu.Lock()
	s.scratch = append(s.scratch, dir)
	s.mu.Unlock()
	return dir, nil
}

// Release removes one scratch directory and forgets it
func (s *Session) Release(dir string) error {
	s.mu.Lock()
	kept := s.scratch[:0]
	for _, d := range s.scratch {
		if d != dir {
			kept = append(kept, d)
		}
	}
	s.scratch = kept
	s.mu.Unlock()

	return removeScratch(dir)
}

// ScratchDirs returns the registered scratch directories
func (s *Session) ScratchDirs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.scratch...)
}

// Cleanup removes every registered scratch directory. It may be called any
// number of times; the first removal error is returned after all
// directories were attempted.
func (s *Session) Cleanup() error {
	s.mu.Lock()
	dirs := s.scratch
	s.scratch = nil
	s.mu.Unlock()

	var first error
	for _, dir := range dirs {
		if err := removeScratch(dir); err != nil && first == nil {
			first = err
		}
	}
	if len(dirs) > 0 {
		logger := logging.GetLogger("session")
		logger.Debug().Int("count", len(dirs)).Msg("Removed scratch directories")
	}
	return first
}

func removeScratch(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return errors.Wrapf(err, errors.ErrFileAccess, "failed to remove scratch directory %s", dir).
			WithOp("session.cleanup").WithDetail(errors.DetailPath, dir)
	}
	return nil
}
