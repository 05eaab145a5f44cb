package archiver

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/raoulx24/config-archiver/internal/config"
)

var testNow = time.Date(2026, 10, 18, 14, 52, 0, 0, time.Local)

// testEnv is a fake home directory with an output directory inside it.
type testEnv struct {
	home   string
	outDir string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	home := t.TempDir()
	return &testEnv{home: home, outDir: filepath.Join(home, "ConfigBackups")}
}

func (e *testEnv) write(t *testing.T, rel, content string, mode os.FileMode) {
	t.Helper()
	path := filepath.Join(e.home, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), mode); err != nil {
		t.Fatal(err)
	}
}

func (e *testEnv) config(items ...string) config.Config {
	cfg := config.Default()
	cfg.BaseDir = e.home
	cfg.OutputDir = e.outDir
	cfg.Items = items
	return cfg
}

// outputNames lists everything in the output directory, hidden files included.
func (e *testEnv) outputNames(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(e.outDir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		t.Fatal(err)
	}
	names := make([]string, 0, len(entries))
	for _, ent := range entries {
		names = append(names, ent.Name())
	}
	sort.Strings(names)
	return names
}

// readZip returns the archive's entries keyed by name.
func readZip(t *testing.T, path string) map[string]*zip.File {
	t.Helper()
	zr, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("opening %s: %v", path, err)
	}
	t.Cleanup(func() { zr.Close() })

	out := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		out[f.Name] = f
	}
	return out
}

func zipContent(t *testing.T, f *zip.File) string {
	t.Helper()
	rc, err := f.Open()
	if err != nil {
		t.Fatalf("opening entry %s: %v", f.Name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("reading entry %s: %v", f.Name, err)
	}
	return string(data)
}

func sortedKeys(m map[string]*zip.File) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// steppingClock returns a clock that advances by step on every call to
// Run, starting at start.
func steppingClock(start time.Time) (func() time.Time, func(time.Duration)) {
	now := start
	return func() time.Time { return now }, func(d time.Duration) { now = now.Add(d) }
}
