package packages

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/arthur-debert/roost/pkg/errors"
	"github.com/arthur-debert/roost/pkg/filesystem"
	"github.com/arthur-debert/roost/pkg/paths"
)

// DefaultDescriptor is the name of the descriptor file in a bundle
const DefaultDescriptor = "name"

// Package is a validated package bundle
type Package struct {
	Name string
	// SourceDir is the canonical bundle directory
	SourceDir string
	// HasMod and HasCmd report which category subtrees the bundle carries
	HasMod bool
	HasCmd bool
	// Deps are the names listed in the bundle's dep file
	Deps []string
}

// Categories returns the category subtrees present in the bundle
func (p Package) Categories() []string {
	var cats []string
	if p.HasMod {
		cats = append(cats, paths.ModuleDir)
	}
	if p.HasCmd {
		cats = append(cats, paths.CommandDir)
	}
	return cats
}

// OpenBundle validates the bundle in dir, which must already be canonical.
func OpenBundle(fsys filesystem.FS, dir, descriptor string) (Package, error) {
	if descriptor == "" {
		descriptor = DefaultDescriptor
	}

	info, err := fsys.Stat(dir)
	if err != nil {
		return Package{}, errors.Wrapf(err, errors.ErrFileAccess, "failed to stat package %s", dir).
			WithOp("packages.open").WithDetail(errors.DetailPath, dir)
	}
	if !info.IsDir() {
		return Package{}, errors.Newf(errors.ErrValidation, "package %s is not a directory", dir).
			WithOp("packages.open").WithDetail(errors.DetailPath, dir)
	}

	file := filepath.Join(dir, descriptor)
	content, err := fsys.ReadFile(file)
	if err != nil {
		if os.IsNotExist(err) {
			return Package{}, errors.Newf(errors.ErrValidation, "package %s has no %s descriptor", dir, descriptor).
				WithOp("packages.open").WithDetail(errors.DetailPath, file)
		}
		return Package{}, errors.Wrapf(err, errors.ErrFileAccess, "failed to read descriptor %s", file).
			WithOp("packages.open").WithDetail(errors.DetailPath, file)
	}

	name := strings.TrimSpace(string(content))
	if strings.ContainsAny(name, "\r\n") {
		return Package{}, errors.Newf(errors.ErrValidation, "descriptor %s must hold a single line", file).
			WithOp("packages.open").WithDetail(errors.DetailPath, file)
	}
	if err := ValidateName(name); err != nil {
		return Package{}, errors.Wrapf(err, errors.ErrValidation, "invalid descriptor %s", file).
			WithOp("packages.open").WithDetail(errors.DetailPath, file)
	}

	pkg := Package{Name: name, SourceDir: dir}
	for _, cat := range paths.Categories {
		present, err := hasSubtree(fsys, filepath.Join(dir, cat))
		if err != nil {
			return Package{}, err
		}
		switch cat {
		case paths.ModuleDir:
			pkg.HasMod = present
		case paths.CommandDir:
			pkg.HasCmd = present
		}
	}

	if pkg.Deps, err = ReadDeps(fsys, filepath.Join(dir, paths.DepFileName)); err != nil {
		return Package{}, err
	}
	return pkg, nil
}

func hasSubtree(fsys filesystem.FS, dir string) (bool, error) {
	info, err := fsys.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.Wrapf(err, errors.ErrFileAccess, "failed to stat %s", dir).
			WithOp("packages.open").WithDetail(errors.DetailPath, dir)
	}
	if !info.IsDir() {
		return false, errors.Newf(errors.ErrValidation, "%s must be a directory", dir).
			WithOp("packages.open").WithDetail(errors.DetailPath, dir)
	}
	return true, nil
}
