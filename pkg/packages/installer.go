package packages

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/arthur-debert/roost/pkg/errors"
	"github.com/arthur-debert/roost/pkg/filesystem"
	"github.com/arthur-debert/roost/pkg/logging"
	"github.com/arthur-debert/roost/pkg/paths"
	"github.com/arthur-debert/roost/pkg/tree"
)

// PackageResult reports the installation of one package
type PackageResult struct {
	Name   string `yaml:"name"`
	Source string `yaml:"source"`
	// Changed counts synchronized cache entries plus refreshed links
	Changed int      `yaml:"changed"`
	Copied  []string `yaml:"copied,omitempty"`
	// Links are every canonical link of the package, Relinked the ones
	// this install created or retargeted
	Links    []string `yaml:"links,omitempty"`
	Relinked []string `yaml:"relinked,omitempty"`
	Deps     []string `yaml:"deps,omitempty"`
}

// InstallResult lists package results in installation order
type InstallResult struct {
	Packages []PackageResult `yaml:"packages"`
}

// Changed sums the changes of every package
func (r InstallResult) Changed() int {
	total := 0
	for _, p := range r.Packages {
		total += p.Changed
	}
	return total
}

// Installer installs bundles into a roost home
type Installer struct {
	fs         filesystem.FS
	paths      paths.Paths
	resolver   *paths.Resolver
	sync       *tree.Synchronizer
	descriptor string
}

// NewInstaller creates an installer. An empty descriptor selects
// DefaultDescriptor.
func NewInstaller(fsys filesystem.FS, p paths.Paths, descriptor string) *Installer {
	if descriptor == "" {
		descriptor = DefaultDescriptor
	}
	return &Installer{
		fs:         fsys,
		paths:      p,
		resolver:   paths.NewResolver(fsys),
		sync:       tree.NewSynchronizer(fsys),
		descriptor: descriptor,
	}
}

// Install installs the bundles in dirs, in order, stopping at the first
// failure. With no dirs the working directory is installed.
func (i *Installer) Install(ctx context.Context, dirs ...string) (InstallResult, error) {
	if len(dirs) == 0 {
		dirs = []string{"."}
	}

	var result InstallResult
	for _, dir := range dirs {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		pr, err := i.InstallPackage(dir)
		if err != nil {
			return result, err
		}
		result.Packages = append(result.Packages, pr)
	}
	return result, nil
}

// InstallPackage installs a single bundle.
func (i *Installer) InstallPackage(dir string) (PackageResult, error) {
	logger := logging.GetLogger("packages.installer")
	defer logging.LogOperationStart(logger, "install "+dir)()

	source, err := i.resolver.Resolve(dir)
	if err != nil {
		return PackageResult{}, errors.Wrapf(err, errors.GetErrorCode(err), "cannot find package %s", dir).
			WithOp("packages.install").WithDetail(errors.DetailPath, dir)
	}
	pkg, err := OpenBundle(i.fs, source, i.descriptor)
	if err != nil {
		return PackageResult{}, err
	}
	if err := i.paths.EnsureLayout(i.fs); err != nil {
		return PackageResult{}, err
	}

	result := PackageResult{Name: pkg.Name, Source: pkg.SourceDir}
	if err := i.writeCacheBundle(pkg); err != nil {
		return result, err
	}
	for _, cat := range pkg.Categories() {
		cache := i.paths.PackageCategoryDir(pkg.Name, cat)
		synced, err := i.sync.Sync(filepath.Join(pkg.SourceDir, cat), cache)
		if err != nil {
			return result, errors.Wrapf(err, errors.GetErrorCode(err), "failed to synchronize %s/%s", pkg.Name, cat).
				WithOp("packages.install").WithDetail(errors.DetailPackage, pkg.Name)
		}
		result.Changed += synced.Changed
		for _, rel := range synced.Copied {
			result.Copied = append(result.Copied, filepath.Join(cat, rel))
		}

		if err := i.link(pkg.Name, cat, cache, &result); err != nil {
			return result, err
		}
	}

	added, err := AppendDeps(i.fs, i.paths.DepFile(), pkg.Deps)
	if err != nil {
		return result, err
	}
	result.Deps = added

	logger.Info().
		Str("package", pkg.Name).
		Str("source", pkg.SourceDir).
		Int("changed", result.Changed).
		Msg("Installed package")
	return result, nil
}

// writeCacheBundle makes the cache directory an installable bundle of its
// own, so a copied cache can be installed on another host.
func (i *Installer) writeCacheBundle(pkg Package) error {
	dir := i.paths.PackageDir(pkg.Name)
	if dir == pkg.SourceDir {
		return nil
	}
	if err := i.fs.MkdirAll(dir, 0755); err != nil {
		return errors.Wrapf(err, errors.ErrFileAccess, "failed to create %s", dir).
			WithOp("packages.install").WithDetail(errors.DetailPackage, pkg.Name)
	}

	files := map[string]string{i.descriptor: pkg.Name + "\n"}
	if len(pkg.Deps) > 0 {
		files[paths.DepFileName] = strings.Join(pkg.Deps, "\n") + "\n"
	}
	for name, content := range files {
		file := filepath.Join(dir, name)
		if current, err := i.fs.ReadFile(file); err == nil && string(current) == content {
			continue
		}
		if err := i.fs.WriteFile(file, []byte(content), 0644); err != nil {
			return errors.Wrapf(err, errors.ErrFileAccess, "failed to write %s", file).
				WithOp("packages.install").WithDetail(errors.DetailPackage, pkg.Name)
		}
	}
	return nil
}

// link exposes every non-directory entry of a cache subtree in the flat
// canonical directory of cat as <pkg>-<basename>.
func (i *Installer) link(pkg, cat, cache string, result *PackageResult) error {
	canonical := i.paths.CategoryDir(cat)
	owners := make(map[string]string)

	return tree.Walk(i.fs, cache, func(e tree.Entry) error {
		if e.Kind == tree.KindDirectory {
			return nil
		}

		name := pkg + "-" + filepath.Base(e.RelPath)
		if prev, ok := owners[name]; ok {
			return errors.Newf(errors.ErrValidation, "%s/%s and %s/%s both map to %s",
				cat, prev, cat, e.RelPath, name).
				WithOp("packages.link").WithDetail(errors.DetailPackage, pkg)
		}
		owners[name] = e.RelPath

		linkPath := filepath.Join(canonical, name)
		changed, err := i.ensureLink(pkg, e.Path, linkPath)
		if err != nil {
			return errors.Wrapf(err, errors.GetErrorCode(err), "failed to link %s", linkPath).
				WithOp("packages.link").WithDetail(errors.DetailPackage, pkg).WithDetail(errors.DetailPath, linkPath)
		}

		rel := filepath.Join(cat, name)
		result.Links = append(result.Links, rel)
		if changed {
			result.Relinked = append(result.Relinked, rel)
			result.Changed++
		}
		return nil
	})
}

// ensureLink points link at target, replacing a stale symlink. Anything
// other than a symlink at link is a conflict, and so is a symlink into the
// cache of another package.
func (i *Installer) ensureLink(pkg, target, link string) (bool, error) {
	info, err := i.fs.Lstat(link)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return false, errors.Wrapf(err, errors.ErrFileAccess, "failed to stat %s", link)
	case tree.KindOf(info) != tree.KindSymlink:
		return false, errors.Newf(errors.ErrTypeConflict, "%s exists and is a %s", link, tree.KindOf(info))
	default:
		current, err := i.fs.Readlink(link)
		if err != nil {
			return false, errors.Wrapf(err, errors.ErrFileAccess, "failed to read symlink %s", link)
		}
		if current == target {
			return false, nil
		}
		if owner := i.cacheOwner(current); owner != "" && owner != pkg {
			return false, errors.Newf(errors.ErrTypeConflict, "%s belongs to package %s", link, owner)
		}
		if err := i.fs.Remove(link); err != nil {
			return false, errors.Wrapf(err, errors.ErrFileAccess, "failed to remove %s", link)
		}
	}

	if err := i.fs.Symlink(target, link); err != nil {
		return false, errors.Wrapf(err, errors.ErrFileAccess, "failed to create symlink %s", link)
	}
	return true, nil
}

// cacheOwner returns the package whose cache holds target, or "" when
// target is outside the package cache.
func (i *Installer) cacheOwner(target string) string {
	root := filepath.Join(i.paths.Home(), paths.PackageCacheDir) + string(filepath.Separator)
	if !strings.HasPrefix(target, root) {
		return ""
	}
	owner, _, _ := strings.Cut(strings.TrimPrefix(target, root), string(filepath.Separator))
	return owner
}

// Installed lists the packages present in the cache, sorted
func (i *Installer) Installed() ([]string, error) {
	dir := filepath.Join(i.paths.Home(), paths.PackageCacheDir)
	entries, err := i.fs.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, errors.ErrFileAccess, "failed to list %s", dir).
			WithOp("packages.installed").WithDetail(errors.DetailPath, dir)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() && ValidateName(e.Name()) == nil {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
