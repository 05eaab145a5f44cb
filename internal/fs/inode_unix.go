//go:build unix

package fs

import (
	"os"
	"syscall"
)

// extracts inode information from syscall.Stat_t on Unix systems.
// Inode values reveal a source file that was replaced while it was archived.

func inodeOf(info os.FileInfo) uint64 {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return 0
	}
	return uint64(st.Ino)
}
