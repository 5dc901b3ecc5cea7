package dirsync

import "sort"

// DuplicateGroup is one set of snapshot paths sharing identical content.
type DuplicateGroup struct {
	Key   ContentKey
	Paths []string
}

// WastedBytes returns the bytes reclaimable by deduplicating the group:
// every member beyond the first.
func (g DuplicateGroup) WastedBytes() int64 {
	return int64(len(g.Paths)-1) * g.Key.Size
}

// Duplicates lists every group of two or more records sharing a content
// key, groups ordered by their first path, members ordered by path. The
// result is canonical regardless of the snapshot's input order, since
// snapshots sort by path on construction. Empty files are skipped: they
// all share one key without sharing any content worth reporting.
func Duplicates(s *Snapshot) []DuplicateGroup {
	byKey := make(map[ContentKey][]string)
	for _, r := range s.Records() {
		if r.Size == 0 {
			continue
		}
		key := r.Key()
		byKey[key] = append(byKey[key], r.Path)
	}

	var groups []DuplicateGroup
	for key, paths := range byKey {
		if len(paths) < 2 {
			continue
		}
		groups = append(groups, DuplicateGroup{Key: key, Paths: paths})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Paths[0] < groups[j].Paths[0] })
	return groups
}
