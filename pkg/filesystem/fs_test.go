package filesystem

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func implementations(t *testing.T) map[string]FS {
	t.Helper()
	return map[string]FS{
		"os":       NewOS(),
		"afero-os": NewAferoFS(afero.NewOsFs()),
	}
}

func TestFS_BasicOperations(t *testing.T) {
	for name, fsys := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			tmpDir := t.TempDir()
			file := filepath.Join(tmpDir, "test.txt")

			require.NoError(t, fsys.WriteFile(file, []byte("hello"), 0644))

			info, err := fsys.Stat(file)
			require.NoError(t, err)
			assert.Equal(t, int64(5), info.Size())

			require.NoError(t, fsys.MkdirAll(filepath.Join(tmpDir, "sub", "dir"), 0755))
			entries, err := fsys.ReadDir(tmpDir)
			require.NoError(t, err)
			assert.Len(t, entries, 2)

			require.NoError(t, fsys.Remove(file))
			_, err = fsys.Stat(file)
			assert.True(t, os.IsNotExist(err))
		})
	}
}

func TestFS_CreateChmodChtimes(t *testing.T) {
	for name, fsys := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			file := filepath.Join(t.TempDir(), "script")

			w, err := fsys.Create(file, 0600)
			require.NoError(t, err)
			_, err = io.WriteString(w, "#!/bin/sh\n")
			require.NoError(t, err)
			require.NoError(t, w.Close())

			require.NoError(t, fsys.Chmod(file, 0755))
			mtime := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)
			require.NoError(t, fsys.Chtimes(file, mtime, mtime))

			info, err := fsys.Stat(file)
			require.NoError(t, err)
			assert.Equal(t, os.FileMode(0755), info.Mode().Perm())
			assert.True(t, info.ModTime().Equal(mtime))

			r, err := fsys.Open(file)
			require.NoError(t, err)
			content, err := io.ReadAll(r)
			require.NoError(t, err)
			require.NoError(t, r.Close())
			assert.Equal(t, "#!/bin/sh\n", string(content))
		})
	}
}

func TestFS_Symlinks(t *testing.T) {
	for name, fsys := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			tmpDir := t.TempDir()
			link := filepath.Join(tmpDir, "link")

			require.NoError(t, fsys.Symlink("../missing", link))

			target, err := fsys.Readlink(link)
			require.NoError(t, err)
			assert.Equal(t, "../missing", target)

			info, err := fsys.Lstat(link)
			require.NoError(t, err)
			assert.NotZero(t, info.Mode()&os.ModeSymlink)
		})
	}
}

func TestAferoFS_MemMapWithoutSymlinks(t *testing.T) {
	fsys := NewAferoFS(afero.NewMemMapFs())

	require.NoError(t, fsys.MkdirAll("/root/a", 0755))
	require.NoError(t, fsys.WriteFile("/root/a/f", []byte("x"), 0644))

	info, err := fsys.Lstat("/root/a/f")
	require.NoError(t, err)
	assert.True(t, info.Mode().IsRegular())

	err = fsys.Symlink("/root/a/f", "/root/l")
	assert.ErrorIs(t, err, afero.ErrNoSymlink)

	_, err = fsys.Readlink("/root/a/f")
	assert.ErrorIs(t, err, afero.ErrNoReadlink)
}
