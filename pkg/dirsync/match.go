package dirsync

import (
	"sort"

	"github.com/rs/zerolog"
)

// MoveEdge states that the destination file currently at From must end up
// at To. Edges form a graph over destination paths in which every path has
// at most one incoming and one outgoing edge.
type MoveEdge struct {
	From string
	To   string
}

// copyIntent is a source path whose content exists in the destination but
// every holder of it is claimed by another match. The read path is chosen
// at assembly time, once move targets are settled.
type copyIntent struct {
	To   string
	Key  ContentKey
	Size int64
}

// matchResult is the matcher's classification of both snapshots.
type matchResult struct {
	correct   []string     // destination paths already holding the right content
	moves     []MoveEdge   // relocations of existing destination content
	copies    []copyIntent // duplications of existing destination content
	transfers []FileRecord // source records whose content the destination lacks
	deletes   []FileRecord // destination records nothing claims or overwrites
	stale     []FileRecord // destination records kept in place awaiting external transfer
	claimed   map[string]bool
}

// matchSnapshots classifies every source record against the destination
// index, claiming destination paths so no file is consumed twice.
//
// Claiming runs in two passes. Files already at their correct path claim
// first, all of them, before any move candidate is considered; otherwise a
// duplicate of the same content elsewhere in the source could steal a
// destination file that was already exactly where it belonged. The second
// pass claims move candidates in source path order with a deterministic
// tie-break (shortest path, then lexicographic).
//
// Zero-size files never participate in cross-path matching: an empty file
// carries no content worth moving, and every empty file has the same key.
// They can still be already-correct; an unmatched one surfaces as a
// transfer advisory or a delete like any other record.
func matchSnapshots(source, dest *Snapshot, ix *SignatureIndex, logger zerolog.Logger) *matchResult {
	res := &matchResult{claimed: make(map[string]bool)}
	claimed := res.claimed             // destination paths consumed by a match
	satisfied := make(map[string]bool) // source paths settled in the first pass

	for _, r := range source.Records() {
		if d, ok := dest.Lookup(r.Path); ok && d.Key() == r.Key() {
			claimed[r.Path] = true
			satisfied[r.Path] = true
			res.correct = append(res.correct, r.Path)
		}
	}

	for _, r := range source.Records() {
		if satisfied[r.Path] {
			continue
		}

		var holders []string
		if r.Size > 0 {
			holders = ix.Paths(r.Key())
		}

		if from, ok := claimMoveSource(holders, claimed); ok {
			claimed[from] = true
			res.moves = append(res.moves, MoveEdge{From: from, To: r.Path})
			continue
		}

		if len(holders) > 0 {
			res.copies = append(res.copies, copyIntent{To: r.Path, Key: r.Key(), Size: r.Size})
			continue
		}

		res.transfers = append(res.transfers, r)
	}

	for _, d := range dest.Records() {
		if claimed[d.Path] {
			continue
		}
		if isPlannedTarget(d.Path, res) {
			// The occupant dies by overwrite; a separate delete would
			// run after the move and destroy the fresh content.
			continue
		}
		if _, inSource := source.Lookup(d.Path); inSource {
			// The path's true content is pending external transfer.
			// Keep the stale file: delta-transfer tools can use it as
			// a basis, and the transfer will overwrite it in place.
			res.stale = append(res.stale, d)
			logger.Debug().
				Str("path", d.Path).
				Msg("keeping stale file pending external transfer")
			continue
		}
		res.deletes = append(res.deletes, d)
	}

	logger.Debug().
		Int("correct", len(res.correct)).
		Int("moves", len(res.moves)).
		Int("copies", len(res.copies)).
		Int("transfers", len(res.transfers)).
		Int("deletes", len(res.deletes)).
		Msg("matched snapshots")

	return res
}

// claimMoveSource picks one unclaimed holder of the wanted content:
// shortest path first, then lexicographic.
func claimMoveSource(holders []string, claimed map[string]bool) (string, bool) {
	var free []string
	for _, p := range holders {
		if !claimed[p] {
			free = append(free, p)
		}
	}
	if len(free) == 0 {
		return "", false
	}
	sort.Slice(free, func(i, j int) bool {
		if len(free[i]) != len(free[j]) {
			return len(free[i]) < len(free[j])
		}
		return free[i] < free[j]
	})
	return free[0], true
}

// isPlannedTarget reports whether path will receive correct content from a
// move or copy in this run.
func isPlannedTarget(path string, res *matchResult) bool {
	for _, e := range res.moves {
		if e.To == path {
			return true
		}
	}
	for _, c := range res.copies {
		if c.To == path {
			return true
		}
	}
	return false
}
