package packages

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/arthur-debert/roost/pkg/errors"
	"github.com/arthur-debert/roost/pkg/filesystem"
	"github.com/arthur-debert/roost/pkg/paths"
	"github.com/arthur-debert/roost/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	root      string
	paths     paths.Paths
	installer *Installer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := testutil.PhysicalTempDir(t)
	p, err := paths.New(filepath.Join(root, "home"))
	require.NoError(t, err)
	return &fixture{root: root, paths: p, installer: NewInstaller(filesystem.NewOS(), p, "")}
}

// bundle creates a package directory named after the package
func (f *fixture) bundle(t *testing.T, name string, files map[string]string) string {
	t.Helper()
	dir := testutil.CreateDir(t, f.root, "src-"+name)
	testutil.CreateFile(t, dir, DefaultDescriptor, name+"\n")
	for rel, content := range files {
		testutil.CreateFile(t, dir, rel, content)
	}
	return dir
}

func TestInstall_EndToEnd(t *testing.T) {
	f := newFixture(t)
	dir := f.bundle(t, "demo", map[string]string{"cmd/hello": "X"})

	result, err := f.installer.Install(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, result.Packages, 1)

	cached := filepath.Join(f.paths.Home(), "pkg", "demo", "cmd", "hello")
	testutil.AssertFileContent(t, cached, "X")

	link := filepath.Join(f.paths.Home(), "cmd", "demo-hello")
	assert.Equal(t, cached, testutil.ReadSymlink(t, link))
	testutil.AssertFileContent(t, link, "X")

	pr := result.Packages[0]
	assert.Equal(t, "demo", pr.Name)
	assert.Equal(t, dir, pr.Source)
	assert.Equal(t, []string{"cmd/hello"}, pr.Copied)
	assert.Equal(t, []string{"cmd/demo-hello"}, pr.Links)
	assert.Equal(t, []string{"cmd/demo-hello"}, pr.Relinked)

	// second install: no copies, link untouched
	linkMtime := testutil.Mtime(t, link)
	again, err := f.installer.Install(context.Background(), dir)
	require.NoError(t, err)
	assert.Empty(t, again.Packages[0].Copied)
	assert.Empty(t, again.Packages[0].Relinked)
	assert.Equal(t, 0, again.Changed())
	assert.Equal(t, cached, testutil.ReadSymlink(t, link))
	assert.True(t, linkMtime.Equal(testutil.Mtime(t, link)))
}

func TestInstall_ModulesAndNestedFiles(t *testing.T) {
	f := newFixture(t)
	dir := f.bundle(t, "shell-tools-1.2", map[string]string{
		"mod/prompt":        "echo prompt",
		"mod/lib/helpers":   "echo helpers",
		"cmd/.hidden":       "hidden",
		"README":            "not installed",
		"cmd/nested/run.sh": "run",
	})
	testutil.CreateSymlink(t, "run.sh", filepath.Join(dir, "cmd", "nested", "run"))

	result, err := f.installer.Install(context.Background(), dir)
	require.NoError(t, err)

	pr := result.Packages[0]
	assert.ElementsMatch(t, []string{
		"mod/shell-tools-1.2-prompt",
		"mod/shell-tools-1.2-helpers",
		"cmd/shell-tools-1.2-.hidden",
		"cmd/shell-tools-1.2-run.sh",
		"cmd/shell-tools-1.2-run",
	}, pr.Links)

	testutil.AssertFileContent(t, f.paths.ModulePath("shell-tools-1.2-helpers"), "echo helpers")
	// a cached symlink keeps its relative target, so the link still resolves
	testutil.AssertFileContent(t, f.paths.CommandPath("shell-tools-1.2-run"), "run")
	testutil.AssertNoFile(t, filepath.Join(f.paths.PackageDir("shell-tools-1.2"), "README"))
}

func TestInstall_PropagatesChanges(t *testing.T) {
	f := newFixture(t)
	dir := f.bundle(t, "demo", map[string]string{"cmd/hello": "X", "cmd/other": "O"})
	_, err := f.installer.Install(context.Background(), dir)
	require.NoError(t, err)

	hello := filepath.Join(dir, "cmd", "hello")
	require.NoError(t, os.WriteFile(hello, []byte("Y"), 0644))
	testutil.SetMtime(t, hello, time.Now().Add(time.Hour))
	testutil.CreateFile(t, dir, "cmd/added", "A")

	result, err := f.installer.Install(context.Background(), dir)
	require.NoError(t, err)

	pr := result.Packages[0]
	assert.ElementsMatch(t, []string{"cmd/hello", "cmd/added"}, pr.Copied)
	assert.Equal(t, []string{"cmd/demo-added"}, pr.Relinked)
	testutil.AssertFileContent(t, f.paths.CommandPath("demo-hello"), "Y")
}

func TestInstall_RefreshesStaleLink(t *testing.T) {
	f := newFixture(t)
	dir := f.bundle(t, "demo", map[string]string{"cmd/hello": "X"})
	require.NoError(t, f.paths.EnsureLayout(filesystem.NewOS()))
	testutil.CreateSymlink(t, "/somewhere/else", f.paths.CommandPath("demo-hello"))

	result, err := f.installer.Install(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"cmd/demo-hello"}, result.Packages[0].Relinked)
	assert.Equal(t, filepath.Join(f.paths.PackageCategoryDir("demo", "cmd"), "hello"),
		testutil.ReadSymlink(t, f.paths.CommandPath("demo-hello")))
}

func TestInstall_LinkConflicts(t *testing.T) {
	t.Run("existing_file", func(t *testing.T) {
		f := newFixture(t)
		dir := f.bundle(t, "demo", map[string]string{"cmd/hello": "X"})
		require.NoError(t, f.paths.EnsureLayout(filesystem.NewOS()))
		testutil.CreateFile(t, f.paths.CommandDir(), "demo-hello", "user file")

		_, err := f.installer.Install(context.Background(), dir)
		require.Error(t, err)
		assert.True(t, errors.IsErrorCode(err, errors.ErrTypeConflict), "got %v", err)
		testutil.AssertFileContent(t, f.paths.CommandPath("demo-hello"), "user file")
	})

	t.Run("link_owned_by_other_package", func(t *testing.T) {
		f := newFixture(t)
		first := f.bundle(t, "foo", map[string]string{"cmd/bar-x": "1"})
		_, err := f.installer.Install(context.Background(), first)
		require.NoError(t, err)
		owned := testutil.ReadSymlink(t, f.paths.CommandPath("foo-bar-x"))

		second := f.bundle(t, "foo-bar", map[string]string{"cmd/x": "2"})
		_, err = f.installer.Install(context.Background(), second)
		require.Error(t, err)
		assert.True(t, errors.IsErrorCode(err, errors.ErrTypeConflict), "got %v", err)
		assert.Equal(t, owned, testutil.ReadSymlink(t, f.paths.CommandPath("foo-bar-x")))
		testutil.AssertFileContent(t, f.paths.CommandPath("foo-bar-x"), "1")
	})

	t.Run("same_basename_twice", func(t *testing.T) {
		f := newFixture(t)
		dir := f.bundle(t, "demo", map[string]string{"cmd/a/x": "1", "cmd/b/x": "2"})

		_, err := f.installer.Install(context.Background(), dir)
		require.Error(t, err)
		assert.True(t, errors.IsErrorCode(err, errors.ErrValidation), "got %v", err)
	})
}

func TestInstall_Validation(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, dir string)
	}{
		{"missing_descriptor", func(t *testing.T, dir string) {}},
		{"bad_name", func(t *testing.T, dir string) {
			testutil.CreateFile(t, dir, DefaultDescriptor, "Bad_Name")
		}},
		{"empty_descriptor", func(t *testing.T, dir string) {
			testutil.CreateFile(t, dir, DefaultDescriptor, "  \n")
		}},
		{"multi_line_descriptor", func(t *testing.T, dir string) {
			testutil.CreateFile(t, dir, DefaultDescriptor, "foo\nbar\n")
		}},
		{"category_is_file", func(t *testing.T, dir string) {
			testutil.CreateFile(t, dir, DefaultDescriptor, "foo")
			testutil.CreateFile(t, dir, "cmd", "not a dir")
		}},
		{"bad_dep_line", func(t *testing.T, dir string) {
			testutil.CreateFile(t, dir, DefaultDescriptor, "foo")
			testutil.CreateFile(t, dir, "dep", "git curl\n")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			dir := testutil.CreateDir(t, f.root, "bundle")
			tt.setup(t, dir)

			_, err := f.installer.Install(context.Background(), dir)
			require.Error(t, err)
			assert.True(t, errors.IsErrorCode(err, errors.ErrValidation), "got %v", err)
			testutil.AssertNoFile(t, filepath.Join(f.paths.Home(), "pkg"))
		})
	}
}

func TestInstall_NotADirectory(t *testing.T) {
	f := newFixture(t)
	file := testutil.CreateFile(t, f.root, "plain", "x")

	_, err := f.installer.Install(context.Background(), file)
	assert.True(t, errors.IsErrorCode(err, errors.ErrValidation), "got %v", err)

	_, err = f.installer.Install(context.Background(), filepath.Join(f.root, "missing"))
	assert.True(t, errors.IsErrorCode(err, errors.ErrNotFound), "got %v", err)
}

func TestInstall_SourceConflictLeavesCacheAlone(t *testing.T) {
	f := newFixture(t)
	dir := f.bundle(t, "demo", map[string]string{"cmd/tool": "X"})
	testutil.CreateFile(t, f.paths.PackageCategoryDir("demo", "cmd"), "tool/inner", "cached dir")

	_, err := f.installer.Install(context.Background(), dir)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrTypeConflict), "got %v", err)
	assert.Equal(t, "demo", errors.GetErrorDetails(err)[errors.DetailPackage])
	testutil.AssertFileContent(t, filepath.Join(f.paths.PackageCategoryDir("demo", "cmd"), "tool", "inner"), "cached dir")
}

func TestInstall_DefaultsToWorkingDirectory(t *testing.T) {
	f := newFixture(t)
	dir := f.bundle(t, "here", map[string]string{"cmd/x": "x"})
	testutil.Chdir(t, dir)

	result, err := f.installer.Install(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Packages, 1)
	assert.Equal(t, "here", result.Packages[0].Name)
}

func TestInstall_FailFastInOrder(t *testing.T) {
	f := newFixture(t)
	first := f.bundle(t, "first", map[string]string{"cmd/a": "a"})
	broken := testutil.CreateDir(t, f.root, "broken")
	last := f.bundle(t, "last", map[string]string{"cmd/b": "b"})

	result, err := f.installer.Install(context.Background(), first, broken, last)
	require.Error(t, err)
	require.Len(t, result.Packages, 1)
	assert.Equal(t, "first", result.Packages[0].Name)
	assert.True(t, testutil.SymlinkExists(t, f.paths.CommandPath("first-a")))
	testutil.AssertNoFile(t, f.paths.PackageDir("last"))
}

func TestInstall_Deps(t *testing.T) {
	f := newFixture(t)
	a := f.bundle(t, "alpha", map[string]string{"dep": "git\n# comment\n\nripgrep\n"})
	b := f.bundle(t, "beta", map[string]string{"dep": "ripgrep\nfzf"})

	result, err := f.installer.Install(context.Background(), a, b)
	require.NoError(t, err)
	assert.Equal(t, []string{"git", "ripgrep"}, result.Packages[0].Deps)
	assert.Equal(t, []string{"fzf"}, result.Packages[1].Deps)
	testutil.AssertFileContent(t, f.paths.DepFile(), "git\nripgrep\nfzf\n")

	_, err = f.installer.Install(context.Background(), a, b)
	require.NoError(t, err)
	testutil.AssertFileContent(t, f.paths.DepFile(), "git\nripgrep\nfzf\n")
}

func TestInstall_CustomDescriptor(t *testing.T) {
	f := newFixture(t)
	dir := testutil.CreateDir(t, f.root, "bundle")
	testutil.CreateFile(t, dir, "PACKAGE", "custom")
	testutil.CreateFile(t, dir, "mod/init", "true")

	result, err := NewInstaller(filesystem.NewOS(), f.paths, "PACKAGE").Install(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, "custom", result.Packages[0].Name)
}

func TestInstalled(t *testing.T) {
	f := newFixture(t)
	names, err := f.installer.Installed()
	require.NoError(t, err)
	assert.Empty(t, names)

	for _, name := range []string{"zeta", "alpha"} {
		_, err := f.installer.Install(context.Background(), f.bundle(t, name, map[string]string{"cmd/x": "x"}))
		require.NoError(t, err)
	}

	names, err = f.installer.Installed()
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "zeta"}, names)
}

func TestInstall_CacheIsABundle(t *testing.T) {
	f := newFixture(t)
	dir := f.bundle(t, "demo", map[string]string{"cmd/hello": "X", "dep": "git\n"})
	_, err := f.installer.Install(context.Background(), dir)
	require.NoError(t, err)

	cache := f.paths.PackageDir("demo")
	testutil.AssertFileContent(t, filepath.Join(cache, DefaultDescriptor), "demo\n")
	testutil.AssertFileContent(t, filepath.Join(cache, "dep"), "git\n")

	// a copy of the cache installs into another home
	other, err := paths.New(filepath.Join(f.root, "other-home"))
	require.NoError(t, err)
	result, err := NewInstaller(filesystem.NewOS(), other, "").Install(context.Background(), cache)
	require.NoError(t, err)
	assert.Equal(t, "demo", result.Packages[0].Name)
	testutil.AssertFileContent(t, other.CommandPath("demo-hello"), "X")

	// and reinstalling the cache in place changes nothing
	again, err := f.installer.Install(context.Background(), cache)
	require.NoError(t, err)
	assert.Equal(t, 0, again.Changed())
}
