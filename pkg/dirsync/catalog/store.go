// Package catalog persists snapshots as per-root sqlite databases and
// loads hierarchies that are covered by several nested catalogs.
package catalog

import (
	"database/sql"
	"errors"
	"fmt"
	"os"

	_ "modernc.org/sqlite"

	"github.com/arthur-debert/dirsync/pkg/dirsync"
)

// DefaultName is the catalog database's file name inside its root.
const DefaultName = ".dirsync.db"

const formatVersion = "1"

const schema = `
CREATE TABLE IF NOT EXISTS files (
	path TEXT PRIMARY KEY,
	size INTEGER NOT NULL,
	mtime INTEGER NOT NULL,
	sig TEXT NOT NULL,
	mode TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS meta (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// ErrNoCatalog reports that a root holds no catalog database.
var ErrNoCatalog = errors.New("no catalog found")

// CatalogError reports a catalog database that cannot be opened, read, or
// written. One broken catalog is fatal only for itself; tree loading
// continues with the others.
type CatalogError struct {
	Path string
	Err  error
}

func (e *CatalogError) Error() string {
	return fmt.Sprintf("catalog %s: %v", e.Path, e.Err)
}

func (e *CatalogError) Unwrap() error { return e.Err }

// Entry is one persisted file record plus the stat fields used to decide
// whether its signature is still current.
type Entry struct {
	Path  string
	Size  int64
	Mtime int64 // nanoseconds since epoch
	Sig   string
	Mode  string
}

// Store is one open catalog database. Writes go through Replace, which
// swaps the whole content in a single transaction; concurrent writers are
// not supported.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens the catalog database at dbPath, creating it if needed.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, &CatalogError{Path: dbPath, Err: err}
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, &CatalogError{Path: dbPath, Err: err}
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, &CatalogError{Path: dbPath, Err: err}
	}

	s := &Store{db: db, path: dbPath}
	if err := s.checkFormat(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// OpenExisting opens a catalog that must already exist on disk; a missing
// database reports ErrNoCatalog.
func OpenExisting(dbPath string) (*Store, error) {
	if _, err := os.Stat(dbPath); err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoCatalog
		}
		return nil, &CatalogError{Path: dbPath, Err: err}
	}
	return Open(dbPath)
}

func (s *Store) checkFormat() error {
	stored, ok, err := s.metaValue("format")
	if err != nil {
		return err
	}
	if !ok {
		if _, err := s.db.Exec(
			`INSERT OR REPLACE INTO meta (key, value) VALUES ('format', ?)`, formatVersion,
		); err != nil {
			return &CatalogError{Path: s.path, Err: err}
		}
		return nil
	}
	if stored != formatVersion {
		return &CatalogError{
			Path: s.path,
			Err:  fmt.Errorf("unsupported format %q (want %q)", stored, formatVersion),
		}
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Path returns the database file's location.
func (s *Store) Path() string { return s.path }

func (s *Store) metaValue(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM meta WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, &CatalogError{Path: s.path, Err: err}
	}
	return value, true, nil
}

// Mode returns the signature mode the catalog was last replaced with. ok
// is false for a catalog that has never been written.
func (s *Store) Mode() (dirsync.SignatureMode, bool, error) {
	value, ok, err := s.metaValue("mode")
	if err != nil || !ok {
		return dirsync.SignatureMode{}, false, err
	}
	mode, err := dirsync.ParseSignatureMode(value)
	if err != nil {
		return dirsync.SignatureMode{}, false, &CatalogError{Path: s.path, Err: err}
	}
	return mode, true, nil
}

// Entries returns every persisted record keyed by path.
func (s *Store) Entries() (map[string]Entry, error) {
	rows, err := s.db.Query("SELECT path, size, mtime, sig, mode FROM files")
	if err != nil {
		return nil, &CatalogError{Path: s.path, Err: err}
	}
	defer rows.Close()

	entries := make(map[string]Entry)
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Path, &e.Size, &e.Mtime, &e.Sig, &e.Mode); err != nil {
			return nil, &CatalogError{Path: s.path, Err: err}
		}
		entries[e.Path] = e
	}
	if err := rows.Err(); err != nil {
		return nil, &CatalogError{Path: s.path, Err: err}
	}
	return entries, nil
}

// Replace swaps the catalog's whole content for entries in one
// transaction and records the hash mode the scan used.
func (s *Store) Replace(entries []Entry, mode dirsync.SignatureMode) error {
	tx, err := s.db.Begin()
	if err != nil {
		return &CatalogError{Path: s.path, Err: err}
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM files"); err != nil {
		return &CatalogError{Path: s.path, Err: err}
	}
	stmt, err := tx.Prepare(
		`INSERT INTO files (path, size, mtime, sig, mode) VALUES (?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return &CatalogError{Path: s.path, Err: err}
	}
	defer stmt.Close()
	for _, e := range entries {
		if _, err := stmt.Exec(e.Path, e.Size, e.Mtime, e.Sig, e.Mode); err != nil {
			return &CatalogError{Path: s.path, Err: err}
		}
	}
	if _, err := tx.Exec(
		`INSERT OR REPLACE INTO meta (key, value) VALUES ('mode', ?)`, mode.String(),
	); err != nil {
		return &CatalogError{Path: s.path, Err: err}
	}

	if err := tx.Commit(); err != nil {
		return &CatalogError{Path: s.path, Err: err}
	}
	return nil
}

// Snapshot converts the stored records into an engine snapshot rooted at
// root.
func (s *Store) Snapshot(root string) (*dirsync.Snapshot, error) {
	entries, err := s.Entries()
	if err != nil {
		return nil, err
	}
	list := make([]Entry, 0, len(entries))
	for _, e := range entries {
		list = append(list, e)
	}
	snap, err := SnapshotFromEntries(root, list)
	if err != nil {
		return nil, &CatalogError{Path: s.path, Err: err}
	}
	return snap, nil
}

// SnapshotFromEntries builds an engine snapshot out of catalog entries,
// parsing each entry's persisted signature mode.
func SnapshotFromEntries(root string, entries []Entry) (*dirsync.Snapshot, error) {
	records := make([]dirsync.FileRecord, 0, len(entries))
	for _, e := range entries {
		mode, err := dirsync.ParseSignatureMode(e.Mode)
		if err != nil {
			return nil, fmt.Errorf("entry %s: %w", e.Path, err)
		}
		records = append(records, dirsync.FileRecord{
			Path:      e.Path,
			Size:      e.Size,
			Signature: e.Sig,
			Mode:      mode,
		})
	}
	return dirsync.NewSnapshot(root, records)
}
