package scan

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/arthur-debert/dirsync/pkg/dirsync"
	"github.com/arthur-debert/dirsync/pkg/dirsync/catalog"
)

func writeFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	abs := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	return abs
}

func run(t *testing.T, root string, opts Options) *Result {
	t.Helper()
	opts.Logger = zerolog.Nop()
	res, err := Run(context.Background(), root, opts)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	return res
}

func paths(res *Result) []string {
	out := make([]string, len(res.Entries))
	for i, e := range res.Entries {
		out[i] = e.Path
	}
	return out
}

func TestRunBasic(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "b.txt", "hello")
	writeFile(t, root, "a.txt", "hello")
	writeFile(t, root, "sub/c.txt", "world")
	writeFile(t, root, "empty.txt", "")

	res := run(t, root, Options{Mode: dirsync.FullMode()})

	want := []string{"a.txt", "b.txt", "empty.txt", "sub/c.txt"}
	got := paths(res)
	if len(got) != len(want) {
		t.Fatalf("Expected %v, got: %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Expected sorted paths %v, got: %v", want, got)
		}
	}
	if res.Hashed != 4 || res.Reused != 0 {
		t.Errorf("Expected 4 hashed, got: hashed=%d reused=%d", res.Hashed, res.Reused)
	}

	byPath := make(map[string]catalog.Entry)
	for _, e := range res.Entries {
		byPath[e.Path] = e
	}
	if byPath["a.txt"].Sig != byPath["b.txt"].Sig {
		t.Error("Expected identical content to hash identically")
	}
	if byPath["a.txt"].Sig == byPath["sub/c.txt"].Sig {
		t.Error("Expected different content to hash differently")
	}
	if byPath["a.txt"].Size != 5 || byPath["empty.txt"].Size != 0 {
		t.Errorf("Unexpected sizes: a=%d empty=%d", byPath["a.txt"].Size, byPath["empty.txt"].Size)
	}
	if byPath["a.txt"].Mode != "full" {
		t.Errorf("Expected full mode on entries, got: %s", byPath["a.txt"].Mode)
	}
}

func TestRunExcludes(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "keep.txt", "k")
	writeFile(t, root, "skip.log", "s")
	writeFile(t, root, "cache/blob", "b")
	writeFile(t, root, "deep/nested.log", "n")

	res := run(t, root, Options{
		Mode:    dirsync.FullMode(),
		Exclude: []string{"**/*.log", "*.log", "cache"},
	})

	got := paths(res)
	if len(got) != 1 || got[0] != "keep.txt" {
		t.Errorf("Expected [keep.txt], got: %v", got)
	}
}

func TestRunBadExcludePattern(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.txt", "a")

	_, err := Run(context.Background(), root, Options{
		Mode:    dirsync.FullMode(),
		Exclude: []string{"[unclosed"},
		Logger:  zerolog.Nop(),
	})
	if err == nil {
		t.Fatal("Expected error for malformed exclude pattern")
	}
}

func TestRunSkipsCatalogFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.txt", "a")
	writeFile(t, root, ".dirsync.db", "db")
	writeFile(t, root, ".dirsync.db-wal", "wal")
	writeFile(t, root, "sub/.dirsync.db", "db")

	res := run(t, root, Options{Mode: dirsync.FullMode(), CatalogName: ".dirsync.db"})

	got := paths(res)
	if len(got) != 1 || got[0] != "a.txt" {
		t.Errorf("Expected catalog files skipped, got: %v", got)
	}
}

func TestRunSkipsSymlinks(t *testing.T) {
	root := t.TempDir()
	target := writeFile(t, root, "real.txt", "content")
	if err := os.Symlink(target, filepath.Join(root, "link.txt")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	res := run(t, root, Options{Mode: dirsync.FullMode()})

	got := paths(res)
	if len(got) != 1 || got[0] != "real.txt" {
		t.Errorf("Expected symlink skipped, got: %v", got)
	}
}

func TestRunReusesPriorSignatures(t *testing.T) {
	root := t.TempDir()
	abs := writeFile(t, root, "stable.txt", "unchanged")
	writeFile(t, root, "fresh.txt", "new content")

	info, err := os.Stat(abs)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	prior := map[string]catalog.Entry{
		"stable.txt": {
			Path:  "stable.txt",
			Size:  info.Size(),
			Mtime: info.ModTime().UnixNano(),
			Sig:   "b3:cached",
			Mode:  "full",
		},
	}

	res := run(t, root, Options{Mode: dirsync.FullMode(), Prior: prior})

	if res.Reused != 1 || res.Hashed != 1 {
		t.Fatalf("Expected 1 reused and 1 hashed, got: reused=%d hashed=%d", res.Reused, res.Hashed)
	}
	for _, e := range res.Entries {
		if e.Path == "stable.txt" && e.Sig != "b3:cached" {
			t.Errorf("Expected cached signature to be kept, got: %s", e.Sig)
		}
	}
}

func TestRunRehashesOnMtimeChange(t *testing.T) {
	root := t.TempDir()
	abs := writeFile(t, root, "a.txt", "content")

	info, err := os.Stat(abs)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	prior := map[string]catalog.Entry{
		"a.txt": {
			Path:  "a.txt",
			Size:  info.Size(),
			Mtime: info.ModTime().UnixNano() - 1,
			Sig:   "b3:stale",
			Mode:  "full",
		},
	}

	res := run(t, root, Options{Mode: dirsync.FullMode(), Prior: prior})

	if res.Reused != 0 || res.Hashed != 1 {
		t.Fatalf("Expected a rehash, got: reused=%d hashed=%d", res.Reused, res.Hashed)
	}
	if res.Entries[0].Sig == "b3:stale" {
		t.Error("Expected the stale signature to be replaced")
	}
}

func TestRunRehashesOnModeChange(t *testing.T) {
	root := t.TempDir()
	abs := writeFile(t, root, "a.txt", "content")

	info, err := os.Stat(abs)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	prior := map[string]catalog.Entry{
		"a.txt": {
			Path:  "a.txt",
			Size:  info.Size(),
			Mtime: info.ModTime().UnixNano(),
			Sig:   "b3:full-form",
			Mode:  "full",
		},
	}

	res := run(t, root, Options{Mode: dirsync.PartialMode(4096), Prior: prior})

	if res.Reused != 0 || res.Hashed != 1 {
		t.Fatalf("Expected a rehash after mode change, got: reused=%d hashed=%d", res.Reused, res.Hashed)
	}
	if res.Entries[0].Mode != "partial:4096" {
		t.Errorf("Expected partial:4096 entries, got: %s", res.Entries[0].Mode)
	}
}

func TestRunJobsEquivalence(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.txt", "alpha")
	writeFile(t, root, "b.txt", "bravo")
	writeFile(t, root, "c/d.txt", "delta")
	writeFile(t, root, "c/e.txt", "echo")

	serial := run(t, root, Options{Mode: dirsync.FullMode(), Jobs: 1})
	parallel := run(t, root, Options{Mode: dirsync.FullMode(), Jobs: 8})

	if len(serial.Entries) != len(parallel.Entries) {
		t.Fatalf("Expected same entry count, got: %d vs %d", len(serial.Entries), len(parallel.Entries))
	}
	for i := range serial.Entries {
		if serial.Entries[i] != parallel.Entries[i] {
			t.Errorf("Entry %d differs: %+v vs %+v", i, serial.Entries[i], parallel.Entries[i])
		}
	}
}

func TestRunCanceledContext(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.txt", "content")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, root, Options{Mode: dirsync.FullMode(), Logger: zerolog.Nop()})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got: %v", err)
	}
}

func TestRunMissingRoot(t *testing.T) {
	_, err := Run(context.Background(), filepath.Join(t.TempDir(), "absent"), Options{
		Mode:   dirsync.FullMode(),
		Logger: zerolog.Nop(),
	})
	if err == nil {
		t.Fatal("Expected error for missing root")
	}
}
