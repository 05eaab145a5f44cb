package fs

import (
	"context"
	"io"
	"os"
)

// streams a source file into an archive writer and detects whether the
// source was modified while it was read. Bytes already handed to w cannot
// be taken back, so a change is reported rather than retried.

func copyDetectingChange(ctx context.Context, f FS, src string, dst func() (io.Writer, error)) (bool, error) {
	orig, err := f.Stat(src)
	if err != nil {
		return false, err
	}

	in, err := os.Open(src)
	if err != nil {
		return false, err
	}
	defer in.Close()

	w, err := dst()
	if err != nil {
		return false, err
	}

	if _, err := io.Copy(w, ctxReader{ctx: ctx, r: in}); err != nil {
		return false, err
	}

	now, err := f.Stat(src)
	if err != nil {
		// removed after a complete read; the copy itself is intact
		return true, nil
	}
	return sourceChanged(orig, now), nil
}

func sourceChanged(orig, now FileInfo) bool {
	if now.Inode != 0 && orig.Inode != 0 && now.Inode != orig.Inode {
		return true
	}
	if now.MTime.After(orig.MTime) {
		return true
	}
	if now.Size != orig.Size {
		return true
	}
	return false
}

// ctxReader fails reads once ctx is done, so large copies stop promptly
// on shutdown.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
