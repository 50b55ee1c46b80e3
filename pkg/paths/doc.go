// Package paths provides centralized path handling for roost.
//
// It owns the layout of the roost home directory and the canonical path
// resolver used by every component that needs to identify a filesystem
// object independently of the symlinks leading to it.
//
// # Resolution semantics
//
// Resolve walks a path one component at a time starting at the root (absolute
// paths) or the physical working directory (relative paths). Every
// intermediate component must be a directory or a symlink to one; symlinks
// are expanded recursively against the physical directory that contains
// them. The final component decides the result:
//
//   - a directory resolves to its physical path
//   - a symlink resolves to the resolution of its target
//   - any other existing object resolves to physicalDir/name
//   - a missing object is an ErrNotFound failure
//
// A symlink met again while its own target is still being resolved is an
// ErrCycle failure.
package paths
