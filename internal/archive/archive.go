// Package archive describes backup archives: their names on disk and the
// entries they contain.
package archive

import (
	"strings"
	"time"
)

// TimestampLayout is fixed-width and zero-padded, so archive names sort
// lexicographically in chronological order.
const TimestampLayout = "20060102_150405"

// Archive is one finished backup file in the output directory.
type Archive struct {
	Name      string
	Path      string
	Timestamp time.Time
	Size      int64
}

// Naming builds and recognises archive file names of the form
// <Prefix><timestamp><Extension>.
type Naming struct {
	Prefix    string
	Extension string
}

// Name returns the archive file name for t.
func (n Naming) Name(t time.Time) string {
	return n.Prefix + t.Format(TimestampLayout) + n.Extension
}

// TempName returns the hidden name an archive is written under before it
// is renamed into place.
func (n Naming) TempName(name string) string {
	return "." + name + ".partial"
}

// IsTemp reports whether name is the temporary name of some archive, such
// as one left behind by an interrupted run.
func (n Naming) IsTemp(name string) bool {
	if !strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ".partial") {
		return false
	}
	return n.Matches(strings.TrimSuffix(name[1:], ".partial"))
}

// Matches reports whether name carries the archive prefix and extension.
// The timestamp part is not checked.
func (n Naming) Matches(name string) bool {
	return len(name) > len(n.Prefix)+len(n.Extension) &&
		strings.HasPrefix(name, n.Prefix) &&
		strings.HasSuffix(name, n.Extension)
}

// Parse extracts the timestamp from an archive name, interpreted in loc.
func (n Naming) Parse(name string, loc *time.Location) (time.Time, bool) {
	if !n.Matches(name) {
		return time.Time{}, false
	}
	core := strings.TrimSuffix(strings.TrimPrefix(name, n.Prefix), n.Extension)
	t, err := time.ParseInLocation(TimestampLayout, core, loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
