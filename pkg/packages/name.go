// Package packages installs package bundles into the roost home.
//
// A bundle is a directory holding a one-line descriptor file with the
// package name, and optional mod/ and cmd/ subtrees. Installing mirrors
// each subtree into the package cache under <home>/pkg/<name>/ and exposes
// every cached file through a namespaced symlink <name>-<file> in the flat
// canonical directory of its category.
package packages

import (
	"regexp"

	"github.com/arthur-debert/roost/pkg/errors"
)

// A name is hyphen-joined lowercase words and dotted numeric versions,
// starting with a word.
var namePattern = regexp.MustCompile(`^[a-z]+(-([a-z]+|[0-9]+(\.[0-9]+)*))*$`)

// ValidateName checks a package name against the name grammar
func ValidateName(name string) error {
	if !namePattern.MatchString(name) {
		return errors.Newf(errors.ErrValidation, "invalid package name %q", name).
			WithOp("packages.validate").WithDetail(errors.DetailPackage, name)
	}
	return nil
}
