package paths

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/arthur-debert/roost/pkg/errors"
	"github.com/arthur-debert/roost/pkg/filesystem"
)

// Environment variable names
const (
	// EnvHome overrides the roost home directory
	EnvHome = "ROOST_HOME"

	// EnvUserHome is the standard home directory variable
	EnvUserHome = "HOME"
)

// Home directory layout. These names are part of the persisted state
// format and are not user-configurable.
const (
	// AppDirName is the directory name used under the XDG base directories
	AppDirName = "roost"

	// PackageCacheDir holds one cache mirror per installed package
	PackageCacheDir = "pkg"

	// ModuleDir is the flat canonical module directory
	ModuleDir = "mod"

	// CommandDir is the flat canonical command directory
	CommandDir = "cmd"

	// BinDir is prepended to the executable search path
	BinDir = "bin"

	// EnvFileName is the append-only environment definition file
	EnvFileName = "env"

	// DepFileName lists declared package dependencies
	DepFileName = "dep"

	// SentinelPrefix prefixes module sentinel marker files in ModuleDir
	SentinelPrefix = ".loaded_"
)

// Categories are the package subtrees mirrored into the cache and exposed
// through the flat canonical directories.
var Categories = []string{ModuleDir, CommandDir}

// Paths provides centralized path management for roost
type Paths interface {
	Home() string
	PackageDir(pkg string) string
	PackageCategoryDir(pkg, category string) string
	CategoryDir(category string) string
	ModuleDir() string
	CommandDir() string
	BinDir() string
	EnvFile() string
	DepFile() string
	ModulePath(name string) string
	CommandPath(name string) string
	SentinelPath(module string) string
	EnsureLayout(fs filesystem.FS) error
}

type paths struct {
	home string
}

// New creates a Paths instance rooted at home. An empty home falls back to
// $ROOST_HOME and then to $XDG_DATA_HOME/roost.
func New(home string) (Paths, error) {
	if home == "" {
		home = os.Getenv(EnvHome)
	}
	if home == "" {
		home = filepath.Join(xdg.DataHome, AppDirName)
	}

	abs, err := filepath.Abs(ExpandHome(home))
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrFileAccess, "failed to get absolute path for home %s", home).
			WithOp("paths.new").WithDetail(errors.DetailPath, home)
	}
	return &paths{home: abs}, nil
}

// Home returns the roost home directory
func (p *paths) Home() string {
	return p.home
}

// PackageDir returns the cache directory of a package
func (p *paths) PackageDir(pkg string) string {
	return filepath.Join(p.home, PackageCacheDir, pkg)
}

// PackageCategoryDir returns a category subtree of a package cache
func (p *paths) PackageCategoryDir(pkg, category string) string {
	return filepath.Join(p.PackageDir(pkg), category)
}

// CategoryDir returns the flat canonical directory of a category
func (p *paths) CategoryDir(category string) string {
	return filepath.Join(p.home, category)
}

func (p *paths) ModuleDir() string {
	return p.CategoryDir(ModuleDir)
}

func (p *paths) CommandDir() string {
	return p.CategoryDir(CommandDir)
}

func (p *paths) BinDir() string {
	return filepath.Join(p.home, BinDir)
}

func (p *paths) EnvFile() string {
	return filepath.Join(p.home, EnvFileName)
}

func (p *paths) DepFile() string {
	return filepath.Join(p.home, DepFileName)
}

// ModulePath returns the canonical-directory entry of a module
func (p *paths) ModulePath(name string) string {
	return filepath.Join(p.ModuleDir(), name)
}

// CommandPath returns the canonical-directory entry of a command
func (p *paths) CommandPath(name string) string {
	return filepath.Join(p.CommandDir(), name)
}

// SentinelPath returns the marker recording the last load of a module
func (p *paths) SentinelPath(module string) string {
	return filepath.Join(p.ModuleDir(), SentinelPrefix+module)
}

// EnsureLayout creates the home directory skeleton.
func (p *paths) EnsureLayout(fs filesystem.FS) error {
	for _, dir := range []string{
		filepath.Join(p.home, PackageCacheDir),
		p.ModuleDir(),
		p.CommandDir(),
		p.BinDir(),
	} {
		if err := fs.MkdirAll(dir, 0755); err != nil {
			return errors.Wrapf(err, errors.ErrFileAccess, "failed to create %s", dir).
				WithOp("paths.layout").WithDetail(errors.DetailPath, dir)
		}
	}
	return nil
}

// ExpandHome expands a leading ~ to the user's home directory
func ExpandHome(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = os.Getenv(EnvUserHome)
		if homeDir == "" {
			return path
		}
	}

	if len(path) == 1 {
		return homeDir
	}
	if path[1] == '/' || path[1] == filepath.Separator {
		return filepath.Join(homeDir, path[2:])
	}

	// ~user is not expanded
	return path
}
