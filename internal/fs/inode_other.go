//go:build !unix

package fs

import "os"

// Windows and other non-POSIX systems do not expose inodes through
// os.FileInfo; change detection falls back to size and mtime.

func inodeOf(os.FileInfo) uint64 {
	return 0
}
