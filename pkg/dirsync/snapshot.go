package dirsync

import (
	"fmt"
	"sort"
)

// Snapshot is an immutable, path-ordered collection of file records
// captured from one hierarchy root. Snapshots are inputs to the planner;
// they are produced by the catalog store or by a live scan.
type Snapshot struct {
	root    string
	records []FileRecord
	byPath  map[string]int
}

// NewSnapshot builds a snapshot from records, sorting them by path.
// Records are copied; the caller keeps ownership of the slice. Duplicate
// paths are rejected, since every downstream structure assumes path
// uniqueness within one snapshot.
func NewSnapshot(root string, records []FileRecord) (*Snapshot, error) {
	sorted := make([]FileRecord, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	byPath := make(map[string]int, len(sorted))
	for i, r := range sorted {
		if r.Path == "" {
			return nil, fmt.Errorf("snapshot %q: record %d has an empty path", root, i)
		}
		if _, dup := byPath[r.Path]; dup {
			return nil, fmt.Errorf("snapshot %q: duplicate path %q", root, r.Path)
		}
		byPath[r.Path] = i
	}

	return &Snapshot{root: root, records: sorted, byPath: byPath}, nil
}

// Root returns the identifier of the hierarchy this snapshot was taken from.
func (s *Snapshot) Root() string { return s.root }

// Len returns the number of records.
func (s *Snapshot) Len() int { return len(s.records) }

// Records returns the records in path order. The returned slice is shared;
// callers must not modify it.
func (s *Snapshot) Records() []FileRecord { return s.records }

// Lookup returns the record at path, if any.
func (s *Snapshot) Lookup(path string) (FileRecord, bool) {
	i, ok := s.byPath[path]
	if !ok {
		return FileRecord{}, false
	}
	return s.records[i], true
}

// Mode returns the signature mode shared by every record. ok is false when
// the snapshot mixes modes, which happens when merged catalogs were built
// with different hash settings. An empty snapshot reports the zero mode.
func (s *Snapshot) Mode() (SignatureMode, bool) {
	var mode SignatureMode
	for i, r := range s.records {
		if i == 0 {
			mode = r.Mode
			continue
		}
		if r.Mode != mode {
			return SignatureMode{}, false
		}
	}
	return mode, true
}
