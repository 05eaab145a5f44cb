package archive

import "time"

// Entry describes a single file written into an archive.
type Entry struct {
	Name    string // slash-separated, relative to the base directory
	Source  string
	Size    int64
	ModTime time.Time
}
