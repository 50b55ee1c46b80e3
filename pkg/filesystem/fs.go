package filesystem

import (
	"io"
	"io/fs"
	"time"
)

// FS is the set of filesystem operations roost needs.
type FS interface {
	Stat(name string) (fs.FileInfo, error)
	// Lstat must not follow a final symlink.
	Lstat(name string) (fs.FileInfo, error)
	ReadDir(name string) ([]fs.DirEntry, error)
	ReadFile(name string) ([]byte, error)
	WriteFile(name string, data []byte, perm fs.FileMode) error

	Open(name string) (io.ReadCloser, error)
	// Create opens name for writing, truncating it, with perm applied when
	// the file is created.
	Create(name string, perm fs.FileMode) (io.WriteCloser, error)

	Mkdir(path string, perm fs.FileMode) error
	MkdirAll(path string, perm fs.FileMode) error

	Symlink(oldname, newname string) error
	Readlink(name string) (string, error)

	Chmod(name string, mode fs.FileMode) error
	Chtimes(name string, atime, mtime time.Time) error

	Remove(name string) error
	RemoveAll(path string) error
	Rename(oldpath, newpath string) error
}
