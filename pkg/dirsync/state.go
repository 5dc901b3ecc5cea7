package dirsync

// pathState is the projected condition of one destination path while a
// plan is simulated, before any operation actually runs.
type pathState struct {
	exists   bool
	original bool // still holds the untouched destination file
}

// verifyPlan replays the plan against the destination snapshot and rejects
// any sequence that reads a missing path, writes an occupied path without
// claiming it, clobbers or deletes content the plan itself placed, or
// deletes a path a later operation still reads. Assembly is supposed to
// produce sequences that pass; verification exists so an ordering bug
// fails loudly here instead of reaching an executing shell.
func verifyPlan(ops []Operation, dest *Snapshot) error {
	states := make(map[string]*pathState, dest.Len())
	for _, r := range dest.Records() {
		states[r.Path] = &pathState{exists: true, original: true}
	}
	at := func(p string) *pathState {
		st, ok := states[p]
		if !ok {
			st = &pathState{}
			states[p] = st
		}
		return st
	}

	// Highest index at which each path is read, for delete checks.
	lastRead := make(map[string]int, len(ops))
	for i, op := range ops {
		if op.Kind == OpMove || op.Kind == OpCopy {
			lastRead[op.From] = i
		}
	}

	advisory := false
	for i, op := range ops {
		if advisory && op.Kind != OpTransfer {
			return invariant("verify", "operation %d (%s) ordered after transfer advisories", i, op)
		}
		switch op.Kind {
		case OpMove, OpCopy:
			src := at(op.From)
			if !src.exists {
				return invariant("verify", "operation %d (%s) reads a path that no longer exists", i, op)
			}
			dst := at(op.To)
			if dst.exists {
				if !op.Overwrite {
					return invariant("verify", "operation %d (%s) writes an occupied path without claiming overwrite", i, op)
				}
				if !dst.original {
					return invariant("verify", "operation %d (%s) would clobber content placed earlier in the plan", i, op)
				}
			}
			if op.Kind == OpMove {
				src.exists = false
				src.original = false
			}
			dst.exists = true
			dst.original = false

		case OpDelete:
			st := at(op.Path)
			if !st.exists {
				return invariant("verify", "operation %d (%s) deletes a missing path", i, op)
			}
			if !st.original {
				return invariant("verify", "operation %d (%s) deletes content placed earlier in the plan", i, op)
			}
			if last, ok := lastRead[op.Path]; ok && last > i {
				return invariant("verify", "operation %d (%s) deletes a path operation %d still reads", i, op, last)
			}
			st.exists = false

		case OpTransfer:
			advisory = true

		default:
			return invariant("verify", "operation %d has unknown kind %d", i, uint8(op.Kind))
		}
	}
	return nil
}
