package archiver

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	iofs "io/fs"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/raoulx24/config-archiver/internal/archive"
	"github.com/raoulx24/config-archiver/internal/fs"
	"github.com/raoulx24/config-archiver/internal/logging"
	"github.com/raoulx24/config-archiver/internal/metrics"
	"github.com/raoulx24/config-archiver/internal/retention"
)

func TestRunArchivesFilesAndDirectories(t *testing.T) {
	env := newTestEnv(t)
	env.write(t, ".gitconfig", "[user]\n\tname = test\n", 0o644)
	env.write(t, ".ssh/config", "Host *\n", 0o644)
	env.write(t, ".ssh/id_rsa", "PRIVATE", 0o600)

	cfg := env.config(".gitconfig", ".ssh", ".zshrc")
	a := New(cfg, logging.Nop(), nil, nil, nil).WithClock(func() time.Time { return testNow })

	res, err := a.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !res.OK() {
		t.Fatal("no archive reported")
	}
	if want := "config_backup_20261018_145200.zip"; res.Archive.Name != want {
		t.Errorf("archive name = %q, want %q", res.Archive.Name, want)
	}

	entries := readZip(t, res.Archive.Path)
	got := strings.Join(sortedKeys(entries), ",")
	if want := ".gitconfig,.ssh/config,.ssh/id_rsa"; got != want {
		t.Fatalf("entries = %s, want %s", got, want)
	}
	if c := zipContent(t, entries[".ssh/id_rsa"]); c != "PRIVATE" {
		t.Errorf("id_rsa content = %q", c)
	}
	if m := entries[".ssh/id_rsa"].Mode().Perm(); m != 0o600 {
		t.Errorf("id_rsa mode = %o", m)
	}
	if entries[".gitconfig"].Method != zip.Deflate {
		t.Errorf(".gitconfig not deflated")
	}

	if res.ItemsArchived != 2 || res.ItemsMissing != 1 {
		t.Errorf("archived %d missing %d", res.ItemsArchived, res.ItemsMissing)
	}
	if len(res.Entries) != 3 {
		t.Errorf("result entries = %d", len(res.Entries))
	}
	missing := res.IssuesOf(ItemMissing)
	if len(missing) != 1 || missing[0].Item != ".zshrc" {
		t.Errorf("missing issues = %+v", missing)
	}
	if res.RunID == "" {
		t.Error("empty run id")
	}
	if res.Archive.Size == 0 {
		t.Error("archive size not recorded")
	}
}

func TestRunAllItemsMissing(t *testing.T) {
	env := newTestEnv(t)
	a := New(env.config(".nothing", ".here"), logging.Nop(), nil, nil, nil)

	res, err := a.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(readZip(t, res.Archive.Path)) != 0 {
		t.Error("archive should be empty")
	}
	if res.ItemsMissing != 2 {
		t.Errorf("ItemsMissing = %d", res.ItemsMissing)
	}
}

func TestRunLogsMissingItem(t *testing.T) {
	env := newTestEnv(t)
	var buf bytes.Buffer
	log, _, err := logging.New(logging.Config{Level: "info", Format: "json", Stdout: &buf})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := New(env.config(".zshrc"), log, nil, nil, nil).Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	var found bool
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var rec map[string]any
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			t.Fatalf("bad log line %q: %v", line, err)
		}
		if rec["level"] == "warn" && rec["item"] == ".zshrc" {
			found = true
			if rec["run_id"] == nil {
				t.Error("warning carries no run_id")
			}
		}
	}
	if !found {
		t.Errorf("no skip warning in %s", buf.String())
	}
}

func TestRunTwiceProducesDistinctArchives(t *testing.T) {
	env := newTestEnv(t)
	env.write(t, ".bashrc", "export A=1", 0o644)

	a := New(env.config(".bashrc"), logging.Nop(), nil, nil, nil).WithClock(func() time.Time { return testNow })

	first, err := a.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	second, err := a.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if first.Archive.Name == second.Archive.Name {
		t.Fatalf("both runs wrote %s", first.Archive.Name)
	}
	if second.Archive.Name != "config_backup_20261018_145201.zip" {
		t.Errorf("second name = %s", second.Archive.Name)
	}
	if got := env.outputNames(t); len(got) != 2 {
		t.Errorf("output = %v", got)
	}
}

func TestRunNestedDirectories(t *testing.T) {
	env := newTestEnv(t)
	env.write(t, ".vscode/settings.json", "{}", 0o644)
	env.write(t, ".vscode/extensions/a/package.json", "{}", 0o644)
	if err := os.MkdirAll(filepath.Join(env.home, ".vscode", "empty"), 0o755); err != nil {
		t.Fatal(err)
	}

	res, err := New(env.config(".vscode"), logging.Nop(), nil, nil, nil).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	got := strings.Join(sortedKeys(readZip(t, res.Archive.Path)), ",")
	if want := ".vscode/extensions/a/package.json,.vscode/settings.json"; got != want {
		t.Errorf("entries = %s, want %s", got, want)
	}
}

func TestRunSymlinks(t *testing.T) {
	env := newTestEnv(t)
	env.write(t, "dotfiles/zshrc", "setopt", 0o644)
	env.write(t, "dotfiles/ssh/config", "Host *", 0o644)
	env.write(t, "elsewhere/big/file", "x", 0o644)

	link := func(target, name string) {
		t.Helper()
		if err := os.Symlink(filepath.Join(env.home, target), filepath.Join(env.home, name)); err != nil {
			t.Skipf("symlinks unsupported: %v", err)
		}
	}
	link("dotfiles/zshrc", ".zshrc")
	link("dotfiles/ssh", ".ssh")
	link("elsewhere", "dotfiles/ssh/linked-dir")
	link("dotfiles/missing", "dotfiles/ssh/dangling")

	res, err := New(env.config(".zshrc", ".ssh"), logging.Nop(), nil, nil, nil).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	entries := readZip(t, res.Archive.Path)
	got := strings.Join(sortedKeys(entries), ",")
	if want := ".ssh/config,.zshrc"; got != want {
		t.Errorf("entries = %s, want %s", got, want)
	}
	if c := zipContent(t, entries[".zshrc"]); c != "setopt" {
		t.Errorf(".zshrc content = %q", c)
	}

	failed := res.IssuesOf(FileFailed)
	if len(failed) != 1 || !strings.HasSuffix(failed[0].Path, "dangling") {
		t.Errorf("file failures = %+v", failed)
	}
}

func TestRunSkipsOutputDirectory(t *testing.T) {
	env := newTestEnv(t)
	env.outDir = filepath.Join(env.home, ".config", "backups")
	env.write(t, ".config/app.toml", "a = 1", 0o644)

	a := New(env.config(".config"), logging.Nop(), nil, nil, nil)
	if _, err := a.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	res, err := a.WithClock(func() time.Time { return testNow.Add(time.Hour) }).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	got := strings.Join(sortedKeys(readZip(t, res.Archive.Path)), ",")
	if got != ".config/app.toml" {
		t.Errorf("entries = %s", got)
	}
}

// failingFS injects faults into an otherwise real filesystem.
type failingFS struct {
	*fs.OSFS
	writeLimit int    // archive writes fail after this many bytes when > 0
	copyFails  string // base name of a source whose copy fails
	renameErr  error
	statFails  string // base name of an item whose Stat fails
	walkFails  string // base name of a directory that cannot be read
}

var errUnreadable = errors.New("permission denied")

func (f *failingFS) Stat(path string) (fs.FileInfo, error) {
	if f.statFails != "" && filepath.Base(path) == f.statFails {
		return fs.FileInfo{}, errUnreadable
	}
	return f.OSFS.Stat(path)
}

// WalkDir reports walkFails the way filepath.WalkDir reports a directory
// it cannot read: once when entering it, then again with the error.
func (f *failingFS) WalkDir(root string, fn iofs.WalkDirFunc) error {
	if f.walkFails != "" && filepath.Base(root) == f.walkFails {
		return fn(root, nil, errUnreadable)
	}
	return f.OSFS.WalkDir(root, func(path string, d iofs.DirEntry, err error) error {
		if err == nil && d.IsDir() && f.walkFails != "" && filepath.Base(path) == f.walkFails {
			if err := fn(path, d, nil); err != nil {
				return err
			}
			return fn(path, d, errUnreadable)
		}
		return fn(path, d, err)
	})
}

func (f *failingFS) Create(path string) (fs.File, error) {
	file, err := f.OSFS.Create(path)
	if err != nil || f.writeLimit == 0 {
		return file, err
	}
	return &limitedFile{File: file, left: f.writeLimit}, nil
}

func (f *failingFS) CopyTo(ctx context.Context, src string, dst func() (io.Writer, error)) (bool, error) {
	if filepath.Base(src) == f.copyFails {
		return false, os.ErrPermission
	}
	return f.OSFS.CopyTo(ctx, src, dst)
}

func (f *failingFS) Rename(ctx context.Context, oldPath, newPath string) error {
	if f.renameErr != nil {
		return f.renameErr
	}
	return f.OSFS.Rename(ctx, oldPath, newPath)
}

type limitedFile struct {
	fs.File
	left int
}

var errDiskFull = errors.New("no space left on device")

func (l *limitedFile) Write(p []byte) (int, error) {
	if len(p) > l.left {
		n, _ := l.File.Write(p[:l.left])
		l.left = 0
		return n, errDiskFull
	}
	l.left -= len(p)
	return l.File.Write(p)
}

func incompressible(n int) string {
	b := make([]byte, n)
	rand.New(rand.NewSource(1)).Read(b)
	return string(b)
}

func TestRunFailurePartwayLeavesNothing(t *testing.T) {
	env := newTestEnv(t)
	env.write(t, ".bash_history", incompressible(256<<10), 0o600)
	env.write(t, ".zshrc", "setopt", 0o644)
	m := metrics.New()

	fsys := &failingFS{OSFS: fs.New(), writeLimit: 8 << 10}
	res, err := New(env.config(".bash_history", ".zshrc"), logging.Nop(), nil, m, fsys).Run(context.Background())

	if !errors.Is(err, ErrArchiveFailed) || !errors.Is(err, errDiskFull) {
		t.Fatalf("err = %v", err)
	}
	if res.OK() {
		t.Error("failed run reported an archive")
	}
	if len(res.IssuesOf(ArchiveFailed)) != 1 {
		t.Errorf("issues = %+v", res.Issues)
	}
	if got := env.outputNames(t); len(got) != 0 {
		t.Errorf("output directory not empty: %v", got)
	}
}

func TestRunRenameFailureLeavesNothing(t *testing.T) {
	env := newTestEnv(t)
	env.write(t, ".zshrc", "setopt", 0o644)

	fsys := &failingFS{OSFS: fs.New(), renameErr: os.ErrPermission}
	_, err := New(env.config(".zshrc"), logging.Nop(), nil, nil, fsys).Run(context.Background())
	if !errors.Is(err, os.ErrPermission) {
		t.Fatalf("err = %v", err)
	}
	if got := env.outputNames(t); len(got) != 0 {
		t.Errorf("output directory not empty: %v", got)
	}
}

func TestRunCancelled(t *testing.T) {
	env := newTestEnv(t)
	env.write(t, ".zshrc", "setopt", 0o644)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(env.config(".zshrc"), logging.Nop(), nil, nil, nil).Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
	if got := env.outputNames(t); len(got) != 0 {
		t.Errorf("output directory not empty: %v", got)
	}
}

func TestRunFileFailureIsNotFatal(t *testing.T) {
	env := newTestEnv(t)
	env.write(t, ".ssh/config", "Host *", 0o644)
	env.write(t, ".ssh/id_rsa", "PRIVATE", 0o600)
	env.write(t, ".gitconfig", "[user]", 0o644)

	fsys := &failingFS{OSFS: fs.New(), copyFails: "id_rsa"}
	res, err := New(env.config(".ssh", ".gitconfig"), logging.Nop(), nil, nil, fsys).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	got := strings.Join(sortedKeys(readZip(t, res.Archive.Path)), ",")
	if want := ".gitconfig,.ssh/config"; got != want {
		t.Errorf("entries = %s, want %s", got, want)
	}
	failed := res.IssuesOf(FileFailed)
	if len(failed) != 1 || failed[0].Item != ".ssh" || !errors.Is(failed[0], os.ErrPermission) {
		t.Errorf("failures = %+v", failed)
	}
}

func TestRunCleansStalePartial(t *testing.T) {
	env := newTestEnv(t)
	env.write(t, ".zshrc", "setopt", 0o644)
	naming := archive.Naming{Prefix: "config_backup_", Extension: ".zip"}
	// one with this run's name, one from a run interrupted long ago
	env.write(t, "ConfigBackups/"+naming.TempName(naming.Name(testNow)), "garbage", 0o644)
	env.write(t, "ConfigBackups/"+naming.TempName(naming.Name(testNow.AddDate(-1, 0, 0))), "garbage", 0o644)
	env.write(t, "ConfigBackups/.notes.partial", "keep", 0o644)

	res, err := New(env.config(".zshrc"), logging.Nop(), nil, nil, nil).
		WithClock(func() time.Time { return testNow }).
		Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	got := env.outputNames(t)
	if len(got) != 2 || got[0] != ".notes.partial" || got[1] != res.Archive.Name {
		t.Errorf("output = %v", got)
	}
}

type stubPruner struct {
	calls int
	err   error
}

func (s *stubPruner) Apply(context.Context) (retention.Result, error) {
	s.calls++
	return retention.Result{}, s.err
}

func TestPruneFailureDoesNotFailRun(t *testing.T) {
	env := newTestEnv(t)
	pruner := &stubPruner{err: os.ErrPermission}

	res, err := New(env.config(".zshrc"), logging.Nop(), pruner, nil, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if pruner.calls != 1 {
		t.Errorf("pruner called %d times", pruner.calls)
	}
	if !res.OK() || !errors.Is(res.PruneErr, os.ErrPermission) {
		t.Errorf("res = %+v", res)
	}
	if len(res.IssuesOf(PruneFailed)) != 1 {
		t.Errorf("issues = %+v", res.Issues)
	}
}

func TestPrunerNotCalledOnFailure(t *testing.T) {
	env := newTestEnv(t)
	pruner := &stubPruner{}
	fsys := &failingFS{OSFS: fs.New(), renameErr: os.ErrPermission}

	if _, err := New(env.config(".zshrc"), logging.Nop(), pruner, nil, fsys).Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if pruner.calls != 0 {
		t.Errorf("pruner called after a failed run")
	}
}

func TestRunWithRetention(t *testing.T) {
	env := newTestEnv(t)
	env.write(t, ".gitconfig", "[user]", 0o644)

	// ten archives from an earlier year
	naming := archive.Naming{Prefix: "config_backup_", Extension: ".zip"}
	var prior []string
	for i := 0; i < 10; i++ {
		name := naming.Name(time.Date(2025, 1, 1+i, 3, 0, 0, 0, time.Local))
		env.write(t, "ConfigBackups/"+name, "PK", 0o644)
		prior = append(prior, name)
	}

	cfg := env.config(".gitconfig")
	cfg.MaxBackups = 7
	pruner := retention.New(cfg, logging.Nop(), nil, nil)

	res, err := New(cfg, logging.Nop(), pruner, nil, nil).
		WithClock(func() time.Time { return testNow }).
		Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := append(append([]string(nil), prior[4:]...), res.Archive.Name)
	got := env.outputNames(t)
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("remaining = %v\nwant      %v", got, want)
	}
	if res.Prune == nil || len(res.Prune.Deleted) != 4 {
		t.Errorf("prune result = %+v", res.Prune)
	}
}

func TestRepeatedRunsConvergeToWindow(t *testing.T) {
	env := newTestEnv(t)
	env.write(t, ".zshrc", "setopt", 0o644)

	cfg := env.config(".zshrc")
	cfg.MaxBackups = 3
	now, advance := steppingClock(testNow)
	a := New(cfg, logging.Nop(), retention.New(cfg, logging.Nop(), nil, nil), nil, nil).WithClock(now)

	var written []string
	for i := 1; i <= 6; i++ {
		res, err := a.Run(context.Background())
		if err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
		written = append(written, res.Archive.Name)
		advance(time.Minute)

		got := env.outputNames(t)
		wantCount := min(i, cfg.MaxBackups)
		if len(got) != wantCount {
			t.Fatalf("after %d runs: %d archives, want %d", i, len(got), wantCount)
		}
		if strings.Join(got, ",") != strings.Join(written[len(written)-wantCount:], ",") {
			t.Fatalf("after %d runs: %v", i, got)
		}
	}
}

func TestUpdateConfig(t *testing.T) {
	env := newTestEnv(t)
	env.write(t, ".zshrc", "setopt", 0o644)
	env.write(t, ".bashrc", "set -o vi", 0o644)

	a := New(env.config(".zshrc"), logging.Nop(), nil, nil, nil)
	a.UpdateConfig(env.config(".bashrc"))

	res, err := a.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(sortedKeys(readZip(t, res.Archive.Path)), ","); got != ".bashrc" {
		t.Errorf("entries = %s", got)
	}
}
