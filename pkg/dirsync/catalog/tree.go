package catalog

import (
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/arthur-debert/dirsync/pkg/dirsync"
)

// Discover walks root and returns every directory that holds a catalog
// database named name, as slash-separated paths relative to root ("." for
// root itself), sorted lexically.
func Discover(root, name string) ([]string, error) {
	var dirs []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || d.Name() != name {
			return nil
		}
		rel, err := filepath.Rel(root, filepath.Dir(p))
		if err != nil {
			return err
		}
		dirs = append(dirs, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(dirs)
	return dirs, nil
}

// LoadTree loads every catalog under root and merges them into a single
// snapshot rooted at root. When catalog roots nest, each path belongs to
// its nearest enclosing catalog; records a deeper catalog owns shadow the
// outer catalog's records for the same subtree.
//
// A catalog that cannot be opened or read is logged and skipped. The load
// fails only when root holds no catalog at all (ErrNoCatalog) or when
// every discovered catalog is broken.
func LoadTree(root, name string, logger zerolog.Logger) (*dirsync.Snapshot, error) {
	dirs, err := Discover(root, name)
	if err != nil {
		return nil, err
	}
	if len(dirs) == 0 {
		return nil, ErrNoCatalog
	}

	var (
		records  []dirsync.FileRecord
		loaded   int
		firstErr error
	)
	for _, dir := range dirs {
		dbPath := filepath.Join(root, filepath.FromSlash(dir), name)
		recs, err := loadOwned(dbPath, dir, dirs)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			logger.Error().Err(err).Str("catalog", dbPath).Msg("skipping broken catalog")
			continue
		}
		records = append(records, recs...)
		loaded++
	}
	if loaded == 0 {
		return nil, firstErr
	}
	return dirsync.NewSnapshot(root, records)
}

// loadOwned reads the catalog at dbPath (rooted at dir relative to the
// tree) and keeps only the records that no deeper catalog owns.
func loadOwned(dbPath, dir string, dirs []string) ([]dirsync.FileRecord, error) {
	store, err := OpenExisting(dbPath)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	entries, err := store.Entries()
	if err != nil {
		return nil, err
	}
	records := make([]dirsync.FileRecord, 0, len(entries))
	for _, e := range entries {
		treePath := e.Path
		if dir != "." {
			treePath = path.Join(dir, e.Path)
		}
		if owner(treePath, dirs) != dir {
			continue
		}
		mode, err := dirsync.ParseSignatureMode(e.Mode)
		if err != nil {
			return nil, &CatalogError{Path: dbPath, Err: err}
		}
		records = append(records, dirsync.FileRecord{
			Path:      treePath,
			Size:      e.Size,
			Signature: e.Sig,
			Mode:      mode,
		})
	}
	return records, nil
}

// owner returns the deepest catalog directory in dirs that encloses
// treePath.
func owner(treePath string, dirs []string) string {
	best, bestLen := ".", 0
	for _, dir := range dirs {
		if dir == "." {
			continue
		}
		if strings.HasPrefix(treePath, dir+"/") && len(dir) > bestLen {
			best, bestLen = dir, len(dir)
		}
	}
	return best
}
