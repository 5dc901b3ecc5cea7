package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/arthur-debert/dirsync/pkg/dirsync"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), DefaultName)
	store, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStoreReplaceAndEntries(t *testing.T) {
	store := openTemp(t)

	entries := []Entry{
		{Path: "a.txt", Size: 3, Mtime: 1000, Sig: "b3:aa", Mode: "full"},
		{Path: "sub/b.txt", Size: 7, Mtime: 2000, Sig: "b3:bb", Mode: "full"},
	}
	if err := store.Replace(entries, dirsync.FullMode()); err != nil {
		t.Fatalf("Replace failed: %v", err)
	}

	got, err := store.Entries()
	if err != nil {
		t.Fatalf("Entries failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 entries, got: %d", len(got))
	}
	if got["sub/b.txt"].Sig != "b3:bb" || got["sub/b.txt"].Mtime != 2000 {
		t.Errorf("Unexpected entry: %+v", got["sub/b.txt"])
	}

	mode, ok, err := store.Mode()
	if err != nil || !ok {
		t.Fatalf("Mode failed: ok=%v err=%v", ok, err)
	}
	if mode.Partial {
		t.Errorf("Expected full mode, got: %s", mode)
	}
}

func TestStoreReplaceDropsOldRows(t *testing.T) {
	store := openTemp(t)

	first := []Entry{{Path: "old.txt", Size: 1, Mtime: 1, Sig: "b3:aa", Mode: "full"}}
	if err := store.Replace(first, dirsync.FullMode()); err != nil {
		t.Fatalf("First Replace failed: %v", err)
	}
	second := []Entry{{Path: "new.txt", Size: 2, Mtime: 2, Sig: "b3:bb", Mode: "partial:4096"}}
	if err := store.Replace(second, dirsync.PartialMode(4096)); err != nil {
		t.Fatalf("Second Replace failed: %v", err)
	}

	got, err := store.Entries()
	if err != nil {
		t.Fatalf("Entries failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Expected 1 entry after replace, got: %d", len(got))
	}
	if _, stale := got["old.txt"]; stale {
		t.Error("Expected old rows to be dropped")
	}

	mode, ok, err := store.Mode()
	if err != nil || !ok {
		t.Fatalf("Mode failed: ok=%v err=%v", ok, err)
	}
	if !mode.Partial || mode.Window != 4096 {
		t.Errorf("Expected partial:4096, got: %s", mode)
	}
}

func TestStoreModeUnsetOnFreshCatalog(t *testing.T) {
	store := openTemp(t)

	_, ok, err := store.Mode()
	if err != nil {
		t.Fatalf("Mode failed: %v", err)
	}
	if ok {
		t.Error("Expected no mode on a fresh catalog")
	}
}

func TestOpenExistingMissing(t *testing.T) {
	_, err := OpenExisting(filepath.Join(t.TempDir(), DefaultName))
	if !errors.Is(err, ErrNoCatalog) {
		t.Errorf("Expected ErrNoCatalog, got: %v", err)
	}
}

func TestOpenRejectsCorruptDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), DefaultName)
	if err := os.WriteFile(dbPath, []byte("this is not sqlite"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	_, err := Open(dbPath)
	if err == nil {
		t.Fatal("Expected error opening corrupt database")
	}
	var catErr *CatalogError
	if !errors.As(err, &catErr) {
		t.Errorf("Expected CatalogError, got: %T", err)
	}
}

func TestOpenRejectsUnsupportedFormat(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), DefaultName)
	store, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if _, err := store.db.Exec(
		`INSERT OR REPLACE INTO meta (key, value) VALUES ('format', '999')`,
	); err != nil {
		t.Fatalf("Exec failed: %v", err)
	}
	store.Close()

	_, err = Open(dbPath)
	var catErr *CatalogError
	if !errors.As(err, &catErr) {
		t.Fatalf("Expected CatalogError, got: %v", err)
	}
}

func TestStoreSnapshot(t *testing.T) {
	store := openTemp(t)

	entries := []Entry{
		{Path: "z.txt", Size: 5, Mtime: 1, Sig: "b3:zz", Mode: "full"},
		{Path: "a.txt", Size: 3, Mtime: 1, Sig: "b3:aa", Mode: "full"},
	}
	if err := store.Replace(entries, dirsync.FullMode()); err != nil {
		t.Fatalf("Replace failed: %v", err)
	}

	snap, err := store.Snapshot("/tree")
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	records := snap.Records()
	if len(records) != 2 {
		t.Fatalf("Expected 2 records, got: %d", len(records))
	}
	if records[0].Path != "a.txt" || records[1].Path != "z.txt" {
		t.Errorf("Expected records sorted by path, got: %v", records)
	}
	if records[0].Signature != "b3:aa" || records[0].Size != 3 {
		t.Errorf("Unexpected record: %+v", records[0])
	}
}

func TestSnapshotFromEntriesRejectsBadMode(t *testing.T) {
	_, err := SnapshotFromEntries("/tree", []Entry{
		{Path: "a.txt", Size: 1, Mtime: 1, Sig: "b3:aa", Mode: "sha256"},
	})
	if err == nil {
		t.Fatal("Expected error for unknown signature mode")
	}
}
