// Package fs defines the filesystem abstraction used by config-archiver.
// It provides the FS interface and the FileInfo type shared across the system.
package fs

import (
	"context"
	"io"
	iofs "io/fs"
	"time"
)

type FileInfo struct {
	Path  string
	Size  int64
	MTime time.Time
	Mode  iofs.FileMode
	Inode uint64
}

func (fi FileInfo) IsDir() bool     { return fi.Mode.IsDir() }
func (fi FileInfo) IsRegular() bool { return fi.Mode.IsRegular() }

// File is a writable file handle returned by FS.Create.
type File interface {
	io.WriteCloser
	Sync() error
}

type FS interface {
	// Stat follows symlinks; Lstat does not.
	Stat(path string) (FileInfo, error)
	Lstat(path string) (FileInfo, error)
	ReadDir(dir string) ([]iofs.DirEntry, error)
	WalkDir(root string, fn iofs.WalkDirFunc) error
	// CopyTo opens src, obtains the destination from dst only once src is
	// readable, streams the content and reports whether src changed while
	// it was being read. The copy stops when ctx is cancelled.
	CopyTo(ctx context.Context, src string, dst func() (io.Writer, error)) (changed bool, err error)
	Create(path string) (File, error)
	Rename(ctx context.Context, oldPath, newPath string) error
	Remove(ctx context.Context, path string) error
	MkdirAll(path string) error
}
