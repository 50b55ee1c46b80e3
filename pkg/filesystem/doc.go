// Package filesystem provides the filesystem abstraction used by the tree
// walker, the synchronizer and the path resolver.
//
// Two implementations exist: NewOS talks to the host filesystem directly and
// NewAferoFS adapts any afero.Fs. Symlink operations on an afero backend are
// only available when the backend implements the afero link interfaces
// (the OS backend does, MemMapFs does not).
package filesystem
