// Package tree enumerates directory trees and mirrors them into other
// directories.
package tree

import (
	"io/fs"
	"path/filepath"
	"time"

	"github.com/arthur-debert/roost/pkg/errors"
	"github.com/arthur-debert/roost/pkg/filesystem"
)

// Kind classifies a tree entry
type Kind int

const (
	KindOther Kind = iota
	KindDirectory
	KindFile
	KindSymlink
)

func (k Kind) String() string {
	switch k {
	case KindDirectory:
		return "directory"
	case KindFile:
		return "file"
	case KindSymlink:
		return "symlink"
	default:
		return "other"
	}
}

// KindOf classifies a FileInfo obtained without following symlinks.
func KindOf(info fs.FileInfo) Kind {
	mode := info.Mode()
	switch {
	case mode&fs.ModeSymlink != 0:
		return KindSymlink
	case mode.IsDir():
		return KindDirectory
	case mode.IsRegular():
		return KindFile
	default:
		return KindOther
	}
}

// Entry is one object found while walking a tree. Entries are recomputed
// on every walk.
type Entry struct {
	// RelPath is the path relative to the walk root
	RelPath string
	// Path is the walk root joined with RelPath
	Path    string
	Kind    Kind
	Mode    fs.FileMode
	ModTime time.Time
	// LinkTarget is the raw, unresolved target of a symlink
	LinkTarget string
}

// VisitFunc is called for every entry. A non-nil error aborts the walk and
// is returned from Walk unchanged.
type VisitFunc func(Entry) error

// Walk visits every entry below root in pre-order, dotfiles included. A
// directory is visited before its children; a symlink to a directory is a
// leaf and is never descended into. Entries come in the order the
// filesystem lists them.
func Walk(fsys filesystem.FS, root string, visit VisitFunc) error {
	return walkDir(fsys, root, "", visit)
}

func walkDir(fsys filesystem.FS, root, rel string, visit VisitFunc) error {
	dir := filepath.Join(root, rel)
	entries, err := fsys.ReadDir(dir)
	if err != nil {
		return errors.Wrapf(err, errors.ErrFileAccess, "failed to read directory %s", dir).
			WithOp("tree.walk").WithDetail(errors.DetailPath, dir)
	}

	for _, de := range entries {
		name := de.Name()
		if name == "." || name == ".." {
			continue
		}
		childRel := filepath.Join(rel, name)
		childPath := filepath.Join(root, childRel)

		info, err := fsys.Lstat(childPath)
		if err != nil {
			return errors.Wrapf(err, errors.ErrFileAccess, "failed to stat %s", childPath).
				WithOp("tree.walk").WithDetail(errors.DetailPath, childPath)
		}

		entry := Entry{
			RelPath: childRel,
			Path:    childPath,
			Kind:    KindOf(info),
			Mode:    info.Mode(),
			ModTime: info.ModTime(),
		}
		if entry.Kind == KindSymlink {
			if entry.LinkTarget, err = fsys.Readlink(childPath); err != nil {
				return errors.Wrapf(err, errors.ErrFileAccess, "failed to read symlink %s", childPath).
					WithOp("tree.walk").WithDetail(errors.DetailPath, childPath)
			}
		}

		if err := visit(entry); err != nil {
			return err
		}

		if entry.Kind == KindDirectory {
			if err := walkDir(fsys, root, childRel, visit); err != nil {
				return err
			}
		}
	}
	return nil
}
