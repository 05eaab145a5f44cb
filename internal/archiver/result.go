package archiver

import (
	"time"

	"github.com/raoulx24/config-archiver/internal/archive"
	"github.com/raoulx24/config-archiver/internal/retention"
)

// Result aggregates everything a run did. Archive is nil when the run
// failed.
type Result struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time

	Archive *archive.Archive
	Entries []archive.Entry
	Issues  []Issue

	ItemsArchived int
	ItemsMissing  int

	Prune    *retention.Result
	PruneErr error
}

// OK reports whether an archive was written.
func (r Result) OK() bool {
	return r.Archive != nil
}

// IssuesOf returns the issues of kind k in the order they occurred.
func (r Result) IssuesOf(k Kind) []Issue {
	var out []Issue
	for _, i := range r.Issues {
		if i.Kind == k {
			out = append(out, i)
		}
	}
	return out
}
