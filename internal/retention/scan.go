package retention

import (
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/raoulx24/config-archiver/internal/archive"
	"github.com/raoulx24/config-archiver/internal/fs"
)

// scanArchives lists regular files in dir that carry the archive naming,
// sorted by name. Names are fixed-width timestamps, so name order is
// creation order.
func scanArchives(f fs.FS, dir string, naming archive.Naming) ([]archive.Archive, error) {
	entries, err := f.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading folder: %w", err)
	}

	var archives []archive.Archive
	for _, ent := range entries {
		name := ent.Name()
		if !ent.Type().IsRegular() || !naming.Matches(name) {
			continue
		}

		a := archive.Archive{Name: name, Path: filepath.Join(dir, name)}
		if ts, ok := naming.Parse(name, time.Local); ok {
			a.Timestamp = ts
		}
		if info, err := ent.Info(); err == nil {
			a.Size = info.Size()
		}
		archives = append(archives, a)
	}

	sort.Slice(archives, func(i, j int) bool {
		return archives[i].Name < archives[j].Name
	})

	return archives, nil
}
