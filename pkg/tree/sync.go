package tree

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/arthur-debert/roost/pkg/errors"
	"github.com/arthur-debert/roost/pkg/filesystem"
	"github.com/arthur-debert/roost/pkg/logging"
	"github.com/arthur-debert/roost/pkg/paths"
)

// Result reports what one synchronization changed. Paths are relative to
// the synchronized roots.
type Result struct {
	Changed int
	Created []string
	Linked  []string
	Copied  []string
}

// Synchronizer mirrors source trees into destination trees. The mirror is
// additive: entries that only exist in the destination are left alone.
type Synchronizer struct {
	fs       filesystem.FS
	resolver *paths.Resolver
}

// NewSynchronizer creates a synchronizer over fsys
func NewSynchronizer(fsys filesystem.FS) *Synchronizer {
	return &Synchronizer{fs: fsys, resolver: paths.NewResolver(fsys)}
}

// syncRun carries the state of a single Sync call.
type syncRun struct {
	s           *Synchronizer
	source      string
	destination string
	result      Result
}

// Sync mirrors source into destination, creating destination if needed.
//
// Directories are created when missing, symlinks are recreated when their
// raw target differs, and regular files are copied, mode and mtime
// included, when missing from the destination or strictly older there.
// Any destination entry whose type is incompatible with its source entry
// fails the whole call before anything is written.
func (s *Synchronizer) Sync(source, destination string) (Result, error) {
	logger := logging.GetLogger("tree.sync")
	defer logging.LogOperationStart(logger, "sync "+source)()

	if err := s.fs.MkdirAll(destination, 0755); err != nil {
		return Result{}, errors.Wrapf(err, errors.ErrFileAccess, "failed to create destination %s", destination).
			WithOp("tree.sync").WithDetail(errors.DetailPath, destination)
	}

	src, err := s.resolver.Resolve(source)
	if err != nil {
		return Result{}, err
	}
	dst, err := s.resolver.Resolve(destination)
	if err != nil {
		return Result{}, err
	}

	run := &syncRun{s: s, source: src, destination: dst}
	if err := Walk(s.fs, src, run.check); err != nil {
		return Result{}, err
	}
	if err := Walk(s.fs, src, run.apply); err != nil {
		return run.result, err
	}

	logger.Debug().
		Str("source", src).
		Str("destination", dst).
		Int("changed", run.result.Changed).
		Msg("Synchronized tree")
	return run.result, nil
}

func (r *syncRun) target(e Entry) string {
	return filepath.Join(r.destination, e.RelPath)
}

// lstat returns nil info without error when the path does not exist.
func (r *syncRun) lstat(path string) (fs.FileInfo, error) {
	info, err := r.s.fs.Lstat(path)
	if err == nil {
		return info, nil
	}
	if os.IsNotExist(err) {
		return nil, nil
	}
	return nil, errors.Wrapf(err, errors.ErrFileAccess, "failed to stat %s", path).
		WithOp("tree.sync").WithDetail(errors.DetailPath, path)
}

// check rejects the entries apply would refuse, so a conflicting tree is
// rejected before any write.
func (r *syncRun) check(e Entry) error {
	if e.Kind == KindOther {
		return errors.Newf(errors.ErrUnsupportedType, "unsupported file type %s at %s", e.Mode.Type(), e.Path).
			WithOp("tree.sync").WithDetail(errors.DetailPath, e.Path)
	}

	dst := r.target(e)
	info, err := r.lstat(dst)
	if err != nil || info == nil {
		return err
	}
	if conflicts(e.Kind, KindOf(info)) {
		return r.conflict(e, dst, info)
	}
	return nil
}

// conflicts reports whether a destination object of kind existing may not
// be replaced by a source entry of kind source.
func conflicts(source, existing Kind) bool {
	switch source {
	case KindDirectory:
		return existing != KindDirectory
	case KindFile:
		return existing != KindFile
	case KindSymlink:
		// files and stale symlinks are replaced; directories would lose content
		return existing == KindDirectory || existing == KindOther
	}
	return true
}

func (r *syncRun) apply(e Entry) error {
	dst := r.target(e)
	info, err := r.lstat(dst)
	if err != nil {
		return err
	}

	switch e.Kind {
	case KindDirectory:
		return r.syncDir(e, dst, info)
	case KindSymlink:
		return r.syncSymlink(e, dst, info)
	case KindFile:
		return r.syncFile(e, dst, info)
	default:
		return errors.Newf(errors.ErrUnsupportedType, "unsupported file type %s at %s", e.Mode.Type(), e.Path).
			WithOp("tree.sync").WithDetail(errors.DetailPath, e.Path)
	}
}

func (r *syncRun) syncDir(e Entry, dst string, existing fs.FileInfo) error {
	if existing != nil {
		if !existing.IsDir() {
			return r.conflict(e, dst, existing)
		}
		return nil
	}
	if err := r.s.fs.Mkdir(dst, e.Mode.Perm()|0700); err != nil {
		return errors.Wrapf(err, errors.ErrFileAccess, "failed to create directory %s", dst).
			WithOp("tree.sync").WithDetail(errors.DetailPath, dst)
	}
	r.changed(&r.result.Created, e)
	return nil
}

func (r *syncRun) syncSymlink(e Entry, dst string, existing fs.FileInfo) error {
	if existing != nil {
		switch KindOf(existing) {
		case KindSymlink:
			current, err := r.s.fs.Readlink(dst)
			if err != nil {
				return errors.Wrapf(err, errors.ErrFileAccess, "failed to read symlink %s", dst).
					WithOp("tree.sync").WithDetail(errors.DetailPath, dst)
			}
			if current == e.LinkTarget {
				return nil
			}
		case KindFile:
		default:
			return r.conflict(e, dst, existing)
		}
		if err := r.s.fs.Remove(dst); err != nil {
			return errors.Wrapf(err, errors.ErrFileAccess, "failed to remove %s", dst).
				WithOp("tree.sync").WithDetail(errors.DetailPath, dst)
		}
	}

	if err := r.s.fs.Symlink(e.LinkTarget, dst); err != nil {
		return errors.Wrapf(err, errors.ErrFileAccess, "failed to create symlink %s", dst).
			WithOp("tree.sync").WithDetail(errors.DetailPath, dst)
	}
	r.changed(&r.result.Linked, e)
	return nil
}

func (r *syncRun) syncFile(e Entry, dst string, existing fs.FileInfo) error {
	if existing != nil {
		if !existing.Mode().IsRegular() {
			return r.conflict(e, dst, existing)
		}
		if !e.ModTime.After(existing.ModTime()) {
			return nil
		}
	}

	if err := r.copyFile(e, dst); err != nil {
		return err
	}
	r.changed(&r.result.Copied, e)
	return nil
}

func (r *syncRun) copyFile(e Entry, dst string) error {
	wrap := func(err error, what string) error {
		return errors.Wrapf(err, errors.ErrFileAccess, "failed to %s %s", what, dst).
			WithOp("tree.sync").WithDetail(errors.DetailPath, dst)
	}

	in, err := r.s.fs.Open(e.Path)
	if err != nil {
		return errors.Wrapf(err, errors.ErrFileAccess, "failed to open %s", e.Path).
			WithOp("tree.sync").WithDetail(errors.DetailPath, e.Path)
	}
	defer func() { _ = in.Close() }()

	out, err := r.s.fs.Create(dst, e.Mode.Perm())
	if err != nil {
		return wrap(err, "create")
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return wrap(err, "write")
	}
	if err := out.Close(); err != nil {
		return wrap(err, "close")
	}

	// Create only applies the mode to new files
	if err := r.s.fs.Chmod(dst, e.Mode.Perm()); err != nil {
		return wrap(err, "chmod")
	}
	if err := r.s.fs.Chtimes(dst, time.Now(), e.ModTime); err != nil {
		return wrap(err, "set times on")
	}
	return nil
}

func (r *syncRun) conflict(e Entry, dst string, existing fs.FileInfo) error {
	return errors.Newf(errors.ErrTypeConflict, "cannot mirror %s %s over existing %s %s",
		e.Kind, e.Path, KindOf(existing), dst).
		WithOp("tree.sync").WithDetail(errors.DetailPath, dst)
}

func (r *syncRun) changed(list *[]string, e Entry) {
	*list = append(*list, e.RelPath)
	r.result.Changed++
}
