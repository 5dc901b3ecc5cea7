package dirsync

import (
	"github.com/rs/zerolog"
)

// assemblePlan merges the matcher's classifications into one verified
// plan: resolved moves first, then copies, then deletes, then transfer
// advisories. Deletes never precede a copy that still reads the deleted
// content, and moves precede the copies that source from their targets;
// the phase order guarantees both, and verifyPlan enforces rather than
// assumes it.
func assemblePlan(source, dest *Snapshot, m *matchResult, logger zerolog.Logger) (*Plan, error) {
	taken := newPathSet()
	for _, r := range dest.Records() {
		taken.add(r.Path)
	}
	for _, r := range source.Records() {
		taken.add(r.Path)
	}

	moves, err := resolveMoves(m.moves, dest, taken)
	if err != nil {
		return nil, err
	}

	// A target occupied by an unclaimed original is doomed: the write
	// clobbers it deliberately and no separate delete is emitted.
	doomed := func(p string) bool {
		_, occupied := dest.Lookup(p)
		return occupied && !m.claimed[p]
	}
	for i := range moves {
		if doomed(moves[i].To) {
			moves[i].Overwrite = true
		}
	}

	// Copies read from the first settled holder of their content: a
	// destination file that was already correct, else the target of an
	// already-executed move.
	settled := make(map[ContentKey][]string)
	for _, p := range m.correct {
		d, _ := dest.Lookup(p)
		settled[d.Key()] = append(settled[d.Key()], p)
	}
	for _, e := range m.moves {
		d, _ := dest.Lookup(e.From)
		settled[d.Key()] = append(settled[d.Key()], e.To)
	}

	ops := moves
	for _, c := range m.copies {
		holders := settled[c.Key]
		if len(holders) == 0 {
			return nil, invariant("assemble", "copy for %s has no settled holder of its content", c.To)
		}
		op := NewCopy(holders[0], c.To, c.Size)
		if doomed(op.To) {
			op.Overwrite = true
		}
		ops = append(ops, op)
	}

	for _, d := range m.deletes {
		ops = append(ops, NewDelete(d.Path, d.Size))
	}
	for _, r := range m.transfers {
		ops = append(ops, NewTransfer(r.Path, r.Size))
	}

	if err := verifyPlan(ops, dest); err != nil {
		return nil, err
	}

	plan := newPlan(ops)
	counts := plan.Counts()
	logger.Info().
		Int("moves", counts.Moves).
		Int("copies", counts.Copies).
		Int("deletes", counts.Deletes).
		Int("transfers", counts.Transfers).
		Int64("transfer_bytes", plan.TransferBytes()).
		Msg("plan assembled")

	return plan, nil
}
