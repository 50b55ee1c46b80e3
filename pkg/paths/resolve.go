package paths

import (
	"io/fs"
	"os"
	"strings"

	"github.com/arthur-debert/roost/pkg/errors"
	"github.com/arthur-debert/roost/pkg/filesystem"
)

const sep = string(os.PathSeparator)

// MaxSymlinkExpansions bounds the number of symlinks expanded by one
// resolution call, mirroring the kernel's ELOOP limit.
const MaxSymlinkExpansions = 255

// Resolver canonicalizes paths. Directories are walked component by
// component the way `cd -P` does, so the directory reached after each step
// is always physical and ".." means the physical parent.
type Resolver struct {
	fs    filesystem.FS
	getwd func() (string, error)
}

// NewResolver creates a resolver over fsys. Relative paths are resolved
// against the process working directory.
func NewResolver(fsys filesystem.FS) *Resolver {
	return &Resolver{fs: fsys, getwd: os.Getwd}
}

// Resolve canonicalizes path on the OS filesystem.
func Resolve(path string) (string, error) {
	return NewResolver(filesystem.NewOS()).Resolve(path)
}

// resolution is the state of one top-level Resolve call.
type resolution struct {
	r *Resolver
	// expanding holds the symlinks whose targets are being resolved. Meeting
	// one of them again means its target depends on itself.
	expanding  map[string]bool
	expansions int
	origin     string
}

// Resolve returns the absolute, symlink-free path of the object named by
// path. It fails with ErrNotFound when the object does not exist and ErrCycle
// when a symlink's resolution leads back to itself.
func (r *Resolver) Resolve(path string) (string, error) {
	if path == "" {
		return "", errors.New(errors.ErrInvalidInput, "empty path").WithOp("paths.resolve")
	}
	res := &resolution{r: r, expanding: make(map[string]bool), origin: path}

	start := sep
	if !strings.HasPrefix(path, sep) {
		wd, err := r.getwd()
		if err != nil {
			return "", errors.Wrap(err, errors.ErrFileAccess, "failed to get working directory").
				WithOp("paths.resolve").WithDetail(errors.DetailPath, path)
		}
		// The working directory may be a logical path; walk it physically.
		if start, err = res.resolveDir(sep, wd); err != nil {
			return "", err
		}
	}
	return res.resolve(start, path)
}

// components splits path into its names, dropping empty and "." segments
// which collapses repeated separators.
func components(path string) []string {
	var out []string
	for _, c := range strings.Split(path, sep) {
		if c == "" || c == "." {
			continue
		}
		out = append(out, c)
	}
	return out
}

func join(dir, name string) string {
	if dir == sep {
		return sep + name
	}
	return dir + sep + name
}

func parent(dir string) string {
	i := strings.LastIndex(dir, sep)
	if i <= 0 {
		return sep
	}
	return dir[:i]
}

// resolve resolves path relative to the physical directory base.
func (s *resolution) resolve(base, path string) (string, error) {
	if strings.HasPrefix(path, sep) {
		base = sep
	}
	parts := components(path)
	if len(parts) == 0 {
		return base, nil
	}

	dir, err := s.walkDirs(base, parts[:len(parts)-1])
	if err != nil {
		return "", err
	}

	last := parts[len(parts)-1]
	if last == ".." {
		return parent(dir), nil
	}

	candidate := join(dir, last)
	info, err := s.r.fs.Lstat(candidate)
	if err != nil {
		return "", s.statError(err, candidate)
	}

	switch {
	case info.IsDir():
		return candidate, nil
	case info.Mode()&fs.ModeSymlink != 0:
		return s.expand(dir, candidate)
	default:
		return candidate, nil
	}
}

// resolveDir resolves path relative to base and requires a directory.
func (s *resolution) resolveDir(base, path string) (string, error) {
	if strings.HasPrefix(path, sep) {
		base = sep
	}
	return s.walkDirs(base, components(path))
}

// walkDirs enters each component in turn, keeping the current directory
// physical at every step.
func (s *resolution) walkDirs(dir string, parts []string) (string, error) {
	for _, part := range parts {
		if part == ".." {
			dir = parent(dir)
			continue
		}

		next := join(dir, part)
		info, err := s.r.fs.Lstat(next)
		if err != nil {
			return "", s.statError(err, next)
		}

		if info.Mode()&fs.ModeSymlink != 0 {
			if next, err = s.expand(dir, next); err != nil {
				return "", err
			}
			if info, err = s.r.fs.Stat(next); err != nil {
				return "", s.statError(err, next)
			}
		}

		if !info.IsDir() {
			return "", errors.Newf(errors.ErrResolution, "not a directory: %s", next).
				WithOp("paths.resolve").WithDetail(errors.DetailPath, s.origin)
		}
		dir = next
	}
	return dir, nil
}

// expand resolves the target of the symlink link located in the physical
// directory dir.
func (s *resolution) expand(dir, link string) (string, error) {
	if s.expanding[link] {
		return "", errors.Newf(errors.ErrCycle, "symlink cycle at %s", link).
			WithOp("paths.resolve").WithDetail(errors.DetailPath, s.origin)
	}
	s.expansions++
	if s.expansions > MaxSymlinkExpansions {
		return "", errors.Newf(errors.ErrCycle, "too many levels of symbolic links resolving %s", s.origin).
			WithOp("paths.resolve").WithDetail(errors.DetailPath, s.origin)
	}

	target, err := s.r.fs.Readlink(link)
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrFileAccess, "failed to read symlink %s", link).
			WithOp("paths.resolve").WithDetail(errors.DetailPath, s.origin)
	}

	s.expanding[link] = true
	defer delete(s.expanding, link)
	return s.resolve(dir, target)
}

func (s *resolution) statError(err error, path string) error {
	if os.IsNotExist(err) {
		return errors.Wrapf(err, errors.ErrNotFound, "no such file or directory: %s", path).
			WithOp("paths.resolve").WithDetail(errors.DetailPath, s.origin)
	}
	return errors.Wrapf(err, errors.ErrResolution, "failed to stat %s", path).
		WithOp("paths.resolve").WithDetail(errors.DetailPath, s.origin)
}
