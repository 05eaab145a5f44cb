// Package archiver writes the configured items into one timestamped zip
// archive per run and then hands over to the retention pruner.
package archiver

import (
	"context"
	"errors"
	"fmt"
	iofs "io/fs"
	"path/filepath"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/raoulx24/config-archiver/internal/archive"
	"github.com/raoulx24/config-archiver/internal/config"
	"github.com/raoulx24/config-archiver/internal/fs"
	"github.com/raoulx24/config-archiver/internal/logging"
	"github.com/raoulx24/config-archiver/internal/metrics"
	"github.com/raoulx24/config-archiver/internal/retention"
)

// ErrArchiveFailed is returned by Run when no archive could be produced.
var ErrArchiveFailed = errors.New("backup failed")

// maxNameTries bounds the search for a free archive name when runs follow
// each other within the same second.
const maxNameTries = 60

// Pruner is invoked after every successful run.
type Pruner interface {
	Apply(ctx context.Context) (retention.Result, error)
}

type Archiver struct {
	mu  sync.RWMutex
	cfg config.Config

	fs      fs.FS
	log     logging.Logger
	pruner  Pruner
	metrics *metrics.Metrics
	now     func() time.Time
	policy  func(Kind) Action
}

// New creates an archiver. cfg must already be resolved. pruner may be nil
// to disable retention; filesystem may be nil for the OS filesystem.
func New(cfg config.Config, log logging.Logger, pruner Pruner, m *metrics.Metrics, filesystem fs.FS) *Archiver {
	if filesystem == nil {
		filesystem = fs.New()
	}
	return &Archiver{
		cfg:     cfg.Clone(),
		fs:      filesystem,
		log:     log,
		pruner:  pruner,
		metrics: m,
		now:     time.Now,
		policy:  PolicyFor,
	}
}

// WithClock replaces the time source used for archive names.
func (a *Archiver) WithClock(now func() time.Time) *Archiver {
	a.now = now
	return a
}

// UpdateConfig hot-reloads the settings used by subsequent runs.
func (a *Archiver) UpdateConfig(cfg config.Config) {
	a.mu.Lock()
	a.cfg = cfg.Clone()
	a.mu.Unlock()
}

// Run produces one archive. Problems with individual items or files are
// recorded in the result and do not fail the run; an error is returned only
// when the archive itself could not be written, in which case nothing is
// left behind in the output directory.
func (a *Archiver) Run(ctx context.Context) (Result, error) {
	a.mu.RLock()
	cfg := a.cfg.Clone()
	a.mu.RUnlock()

	start := a.now()
	r := &run{
		a:      a,
		cfg:    cfg,
		naming: archive.Naming{Prefix: cfg.Archive.Prefix, Extension: cfg.Archive.Extension},
		res:    Result{RunID: uuid.NewString(), StartedAt: start},
	}
	r.log = a.log.With("run_id", r.res.RunID)

	final, err := r.write(ctx, start)
	r.res.FinishedAt = a.now()
	took := r.res.FinishedAt.Sub(start)

	if err != nil {
		r.record(ArchiveFailed, "", "", err)
		a.metrics.RunFailed(took)
		return r.res, fmt.Errorf("%w: %w", ErrArchiveFailed, err)
	}

	r.res.Archive = &final
	a.metrics.RunSucceeded(r.res.FinishedAt, took, final.Size)
	r.log.Info("created backup archive",
		"archive", final.Path,
		"entries", len(r.res.Entries),
		"size", humanize.Bytes(uint64(final.Size)),
		"issues", len(r.res.Issues))

	if a.pruner != nil {
		pr, err := a.pruner.Apply(ctx)
		r.res.Prune = &pr
		if err != nil {
			r.res.PruneErr = err
			r.res.Issues = append(r.res.Issues, Issue{Kind: PruneFailed, Path: cfg.OutputDir, Err: err})
		}
	}

	return r.res, nil
}

// run holds the state of a single invocation.
type run struct {
	a      *Archiver
	cfg    config.Config
	naming archive.Naming
	log    logging.Logger
	res    Result

	tmpPath string
	sink    *sinkWriter
}

// write builds the archive under a hidden temporary name and renames it
// into place once complete.
func (r *run) write(ctx context.Context, start time.Time) (archive.Archive, error) {
	outDir := r.cfg.OutputDir
	if err := r.a.fs.MkdirAll(outDir); err != nil {
		return archive.Archive{}, fmt.Errorf("creating output directory: %w", err)
	}

	r.sweepPartials(ctx, outDir)

	name, ts, err := r.reserveName(outDir, start)
	if err != nil {
		return archive.Archive{}, err
	}
	finalPath := filepath.Join(outDir, name)
	r.tmpPath = filepath.Join(outDir, r.naming.TempName(name))

	if err := r.writeZip(ctx); err != nil {
		r.discard()
		return archive.Archive{}, err
	}

	if err := r.a.fs.Rename(ctx, r.tmpPath, finalPath); err != nil {
		r.discard()
		return archive.Archive{}, fmt.Errorf("finalizing archive: %w", err)
	}

	out := archive.Archive{Name: name, Path: finalPath, Timestamp: ts}
	if info, err := r.a.fs.Stat(finalPath); err == nil {
		out.Size = info.Size
	}
	return out, nil
}

// reserveName picks the archive name for start, moving forward one second
// at a time while the name is taken so that names stay fixed-width.
func (r *run) reserveName(outDir string, start time.Time) (string, time.Time, error) {
	ts := start.Truncate(time.Second)
	for i := 0; i < maxNameTries; i++ {
		name := r.naming.Name(ts)
		_, err := r.a.fs.Lstat(filepath.Join(outDir, name))
		if errors.Is(err, iofs.ErrNotExist) {
			return name, ts, nil
		}
		if err != nil {
			return "", time.Time{}, fmt.Errorf("checking archive name: %w", err)
		}
		ts = ts.Add(time.Second)
	}
	return "", time.Time{}, fmt.Errorf("no free archive name after %d attempts", maxNameTries)
}

// sweepPartials removes temporary archives left by interrupted runs.
// Failures are logged and never block a new run.
func (r *run) sweepPartials(ctx context.Context, outDir string) {
	entries, err := r.a.fs.ReadDir(outDir)
	if err != nil {
		r.log.Warn("listing output directory failed", "path", outDir, "error", err)
		return
	}
	for _, ent := range entries {
		if !ent.Type().IsRegular() || !r.naming.IsTemp(ent.Name()) {
			continue
		}
		path := filepath.Join(outDir, ent.Name())
		if err := r.a.fs.Remove(ctx, path); err != nil && !errors.Is(err, iofs.ErrNotExist) {
			r.log.Warn("failed to remove stale partial archive", "path", path, "error", err)
			continue
		}
		r.log.Info("removed stale partial archive", "path", path)
	}
}

// discard removes the partial archive. It runs even when the run's context
// is already cancelled.
func (r *run) discard() {
	if r.tmpPath == "" {
		return
	}
	err := r.a.fs.Remove(context.Background(), r.tmpPath)
	if err != nil && !errors.Is(err, iofs.ErrNotExist) {
		r.log.Error("failed to remove partial archive", "path", r.tmpPath, "error", err)
	}
}

// handle records an issue and turns the action the policy prescribes into
// control flow: nil to carry on, errAbortItem to stop the current item, or
// an *AbortError to stop the run.
func (r *run) handle(kind Kind, item, path string, err error) error {
	r.record(kind, item, path, err)

	switch r.a.policy(kind) {
	case AbortItem:
		return errAbortItem
	case AbortRun:
		return &AbortError{Issue: Issue{Kind: kind, Item: item, Path: path, Err: err}}
	default:
		return nil
	}
}

// record appends an issue and logs it at the level its kind calls for.
func (r *run) record(kind Kind, item, path string, err error) {
	r.res.Issues = append(r.res.Issues, Issue{Kind: kind, Item: item, Path: path, Err: err})

	switch kind {
	case ItemMissing:
		r.res.ItemsMissing++
		r.a.metrics.ItemSkipped()
		r.log.Warn("source does not exist, skipping", "item", item)
	case FileSkipped:
		r.log.Warn("skipping non-regular file", "item", item, "path", path)
	case FileFailed:
		r.a.metrics.FileFailed()
		r.log.Error("failed to add file", "item", item, "path", path, "error", err)
	case ItemFailed:
		r.a.metrics.FileFailed()
		r.log.Error("failed to back up item", "item", item, "error", err)
	case ArchiveFailed:
		r.log.Error("backup failed", "error", err)
	default:
		r.log.Error("backup problem", "kind", kind, "item", item, "path", path, "error", err)
	}
}
