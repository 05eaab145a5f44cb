package archiver

import (
	"archive/zip"
	"context"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"

	"github.com/raoulx24/config-archiver/internal/archive"
	"github.com/raoulx24/config-archiver/internal/fs"
)

// sinkWriter remembers the first error of the archive file so that a
// failing destination can be told apart from an unreadable source.
type sinkWriter struct {
	w   io.Writer
	err error
}

func (s *sinkWriter) Write(p []byte) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	n, err := s.w.Write(p)
	if err != nil {
		s.err = err
	}
	return n, err
}

// writeZip streams every configured item into the temporary archive file.
// Only errors that make the archive unusable are returned.
func (r *run) writeZip(ctx context.Context) error {
	f, err := r.a.fs.Create(r.tmpPath)
	if err != nil {
		return fmt.Errorf("creating archive file: %w", err)
	}
	fileClosed := false
	defer func() {
		if !fileClosed {
			_ = f.Close()
		}
	}()

	r.sink = &sinkWriter{w: f}
	zw := zip.NewWriter(r.sink)
	level := r.cfg.Archive.CompressionLevel
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, level)
	})

	for _, item := range r.cfg.Items {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.addItem(ctx, zw, item); err != nil {
			return err
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("writing archive: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("syncing archive: %w", err)
	}
	fileClosed = true
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing archive: %w", err)
	}
	return nil
}

// fatal returns the reason the run must stop after an entry failed, or nil
// when the failure is confined to that entry.
func (r *run) fatal(ctx context.Context) error {
	if r.sink.err != nil {
		return fmt.Errorf("writing archive: %w", r.sink.err)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return nil
}

// addEntry writes one regular file. info must describe the file after
// symlink resolution.
func (r *run) addEntry(ctx context.Context, zw *zip.Writer, src, name string, info fs.FileInfo) error {
	hdr := &zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: info.MTime,
	}
	hdr.SetMode(info.Mode)

	changed, err := r.a.fs.CopyTo(ctx, src, func() (io.Writer, error) {
		return zw.CreateHeader(hdr)
	})
	if err != nil {
		return err
	}

	r.res.Entries = append(r.res.Entries, archive.Entry{
		Name:    name,
		Source:  src,
		Size:    info.Size,
		ModTime: info.MTime,
	})
	r.a.metrics.EntryAdded()
	r.log.Info("added entry", "name", name)
	if changed {
		r.log.Warn("source changed while it was archived", "path", src)
	}
	return nil
}
