package types

import (
	"io/fs"
)

// FS is the filesystem interface required for modcollect operations
type FS interface {
	// File operations
	Stat(name string) (fs.FileInfo, error)
	ReadFile(name string) ([]byte, error)
	WriteFile(name string, data []byte, perm fs.FileMode) error

	// Directory operations
	MkdirAll(path string, perm fs.FileMode) error
	ReadDir(name string) ([]fs.DirEntry, error)

	// Symlink operations
	Symlink(oldname, newname string) error
	Readlink(name string) (string, error)

	// Other operations
	Remove(name string) error
	Rename(oldpath, newpath string) error

	// Lstat may fall back to Stat on filesystems without symlink support
	Lstat(name string) (fs.FileInfo, error)
}

// PluginSorter is the optional external plugin-sorting collaborator. Sort
// receives plugin filenames and returns a permutation of exactly that set,
// or ErrSorterUnavailable-class errors when no reordering could be produced.
type PluginSorter interface {
	Sort(plugins []string) ([]string, error)
}
