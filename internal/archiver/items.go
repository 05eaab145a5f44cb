package archiver

import (
	"archive/zip"
	"context"
	"errors"
	iofs "io/fs"
	"path/filepath"
	"strings"

	"github.com/raoulx24/config-archiver/internal/fs"
)

// addItem archives one configured item. Problems confined to the item are
// recorded and handled by the policy; the returned error aborts the run.
func (r *run) addItem(ctx context.Context, zw *zip.Writer, item string) error {
	src := filepath.Join(r.cfg.BaseDir, item)

	info, err := r.a.fs.Stat(src)
	if errors.Is(err, iofs.ErrNotExist) {
		return itemDone(r.handle(ItemMissing, item, src, nil))
	}
	if err != nil {
		return itemDone(r.handle(ItemFailed, item, src, err))
	}

	if info.IsDir() {
		err = r.addDir(ctx, zw, item, src)
	} else {
		err = r.addFile(ctx, zw, item, src, info)
	}

	var abort *AbortError
	switch {
	case err == nil:
		r.res.ItemsArchived++
		return nil
	case errors.Is(err, errAbortItem):
		return nil
	case errors.As(err, &abort):
		return err
	}

	if fatal := r.fatal(ctx); fatal != nil {
		return fatal
	}
	return itemDone(r.handle(ItemFailed, item, src, err))
}

// itemDone maps the outcome of an item-level issue: stopping the item is
// what already happened, anything else passes through.
func itemDone(err error) error {
	if errors.Is(err, errAbortItem) {
		return nil
	}
	return err
}

func (r *run) addFile(ctx context.Context, zw *zip.Writer, item, src string, info fs.FileInfo) error {
	if r.inOutputDir(src) {
		r.log.Debug("skipping file inside the output directory", "path", src)
		return nil
	}
	if !info.IsRegular() {
		return r.handle(FileSkipped, item, src, nil)
	}
	name := filepath.ToSlash(filepath.Clean(item))
	return r.addOne(ctx, zw, item, src, name, info)
}

// addOne adds a file and applies the file-level policy to any failure.
func (r *run) addOne(ctx context.Context, zw *zip.Writer, item, src, name string, info fs.FileInfo) error {
	err := r.addEntry(ctx, zw, src, name, info)
	if err == nil {
		return nil
	}
	if fatal := r.fatal(ctx); fatal != nil {
		return fatal
	}
	return r.handle(FileFailed, item, src, err)
}

// addDir walks an item directory. A symlinked item root is followed;
// symlinked directories below it are not.
func (r *run) addDir(ctx context.Context, zw *zip.Writer, item, src string) error {
	root := src
	if l, err := r.a.fs.Lstat(src); err == nil && l.Mode&iofs.ModeSymlink != 0 {
		resolved, err := filepath.EvalSymlinks(src)
		if err != nil {
			return err
		}
		root = resolved
	}

	return r.a.fs.WalkDir(root, func(path string, d iofs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if path == root {
				return err
			}
			if herr := r.handle(FileFailed, item, path, err); herr != nil {
				return herr
			}
			if d != nil && d.IsDir() {
				return iofs.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if r.inOutputDir(path) {
				r.log.Debug("skipping the output directory", "path", path)
				return iofs.SkipDir
			}
			return nil
		}

		info, ok, err := r.entryInfo(item, path, d)
		if !ok {
			return err
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(filepath.Join(item, rel))
		return r.addOne(ctx, zw, item, path, name, info)
	})
}

// entryInfo resolves a walked entry to the regular file it stands for. When
// ok is false the entry is not archived and err carries the policy outcome.
func (r *run) entryInfo(item, path string, d iofs.DirEntry) (fs.FileInfo, bool, error) {
	switch {
	case d.Type().IsRegular():
		info, err := r.a.fs.Lstat(path)
		if err != nil {
			return fs.FileInfo{}, false, r.handle(FileFailed, item, path, err)
		}
		return info, true, nil

	case d.Type()&iofs.ModeSymlink != 0:
		info, err := r.a.fs.Stat(path)
		if err != nil {
			return fs.FileInfo{}, false, r.handle(FileFailed, item, path, err)
		}
		if info.IsDir() {
			r.log.Debug("not following directory symlink", "path", path)
			return fs.FileInfo{}, false, nil
		}
		if !info.IsRegular() {
			return fs.FileInfo{}, false, r.handle(FileSkipped, item, path, nil)
		}
		return info, true, nil

	default:
		return fs.FileInfo{}, false, r.handle(FileSkipped, item, path, nil)
	}
}

func (r *run) inOutputDir(path string) bool {
	out := filepath.Clean(r.cfg.OutputDir)
	p := filepath.Clean(path)
	return p == out || strings.HasPrefix(p, out+string(filepath.Separator))
}
