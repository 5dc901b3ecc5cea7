package dirsync_test

import (
	"errors"
	"io"
	"testing"

	"github.com/arthur-debert/dirsync/pkg/dirsync"
)

func rec(path, sig string, size int64) dirsync.FileRecord {
	return dirsync.FileRecord{Path: path, Size: size, Signature: sig, Mode: dirsync.FullMode()}
}

func mustSnap(t *testing.T, root string, records ...dirsync.FileRecord) *dirsync.Snapshot {
	t.Helper()
	s, err := dirsync.NewSnapshot(root, records)
	if err != nil {
		t.Fatalf("Expected no error building snapshot, got: %v", err)
	}
	return s
}

func reconcile(t *testing.T, source, dest *dirsync.Snapshot) *dirsync.Plan {
	t.Helper()
	plan, err := dirsync.Reconcile(source, dest,
		dirsync.WithLogger(dirsync.NewTestLogger(io.Discard, 0)))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	return plan
}

func TestReconcile_DuplicateSourceContent(t *testing.T) {
	// Content H1 is wanted twice but exists nowhere in the destination;
	// H2 exists under an old name; d.txt is leftover.
	source := mustSnap(t, "src",
		rec("a.txt", "H1", 10),
		rec("b.txt", "H1", 10),
		rec("c.txt", "H2", 20),
	)
	dest := mustSnap(t, "dst",
		rec("old.txt", "H2", 20),
		rec("d.txt", "H3", 5),
	)

	plan := reconcile(t, source, dest)
	ops := plan.Operations()
	if len(ops) != 4 {
		t.Fatalf("Expected 4 operations, got: %v", ops)
	}
	if ops[0].Kind != dirsync.OpMove || ops[0].From != "old.txt" || ops[0].To != "c.txt" {
		t.Errorf("Expected move old.txt -> c.txt, got: %v", ops[0])
	}
	if ops[1].Kind != dirsync.OpDelete || ops[1].Path != "d.txt" {
		t.Errorf("Expected delete d.txt, got: %v", ops[1])
	}
	if ops[2].Kind != dirsync.OpTransfer || ops[2].Path != "a.txt" {
		t.Errorf("Expected transfer advisory for a.txt, got: %v", ops[2])
	}
	if ops[3].Kind != dirsync.OpTransfer || ops[3].Path != "b.txt" {
		t.Errorf("Expected transfer advisory for b.txt, got: %v", ops[3])
	}
}

func TestReconcile_SwapCycle(t *testing.T) {
	// x.txt and y.txt must exchange contents: three moves through one
	// scratch path, no content lost at any prefix.
	source := mustSnap(t, "src",
		rec("x.txt", "Ha", 10),
		rec("y.txt", "Hb", 12),
	)
	dest := mustSnap(t, "dst",
		rec("x.txt", "Hb", 12),
		rec("y.txt", "Ha", 10),
	)

	plan := reconcile(t, source, dest)
	ops := plan.Operations()
	if len(ops) != 3 {
		t.Fatalf("Expected 3 moves, got: %v", ops)
	}
	scratch := ops[0].To
	want := []dirsync.Operation{
		dirsync.NewMove("x.txt", scratch, 12),
		dirsync.NewMove("y.txt", "x.txt", 10),
		dirsync.NewMove(scratch, "y.txt", 12),
	}
	for i := range want {
		if ops[i].Kind != want[i].Kind || ops[i].From != want[i].From || ops[i].To != want[i].To {
			t.Errorf("Operation %d: expected %v, got %v", i, want[i], ops[i])
		}
	}
	if scratch == "x.txt" || scratch == "y.txt" {
		t.Errorf("Expected a generated scratch path, got: %s", scratch)
	}
}

func TestReconcile_EmptyDestination(t *testing.T) {
	source := mustSnap(t, "src",
		rec("a.txt", "H1", 10),
		rec("b.txt", "H2", 20),
	)
	dest := mustSnap(t, "dst")

	plan := reconcile(t, source, dest)
	counts := plan.Counts()
	if counts.Transfers != 2 || counts.Moves+counts.Copies+counts.Deletes != 0 {
		t.Errorf("Expected transfers only, got: %+v", counts)
	}
}

func TestReconcile_IdenticalSides(t *testing.T) {
	source := mustSnap(t, "src",
		rec("a.txt", "H1", 10),
		rec("sub/b.txt", "H2", 20),
	)
	dest := mustSnap(t, "dst",
		rec("a.txt", "H1", 10),
		rec("sub/b.txt", "H2", 20),
	)

	plan := reconcile(t, source, dest)
	if plan.Len() != 0 {
		t.Errorf("Expected an empty plan, got: %v", plan.Operations())
	}
}

func TestReconcile_NilSnapshots(t *testing.T) {
	if _, err := dirsync.Reconcile(nil, nil); err == nil {
		t.Error("Expected an error for nil snapshots")
	}
}

func TestReconcile_ModeMismatch(t *testing.T) {
	full := rec("a.txt", "b3:aa", 10)
	partial := dirsync.FileRecord{
		Path: "a.txt", Size: 10, Signature: "b3p65536:aa", Mode: dirsync.PartialMode(65536),
	}
	source := mustSnap(t, "src", full)
	dest := mustSnap(t, "dst", partial)

	_, err := dirsync.Reconcile(source, dest,
		dirsync.WithLogger(dirsync.NewTestLogger(io.Discard, 0)))
	var mismatch *dirsync.ModeMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("Expected a ModeMismatchError, got: %v", err)
	}
}

func TestPlan_OperationsReturnsACopy(t *testing.T) {
	source := mustSnap(t, "src", rec("a.txt", "H1", 10))
	dest := mustSnap(t, "dst")

	plan := reconcile(t, source, dest)
	ops := plan.Operations()
	ops[0].Path = "tampered"
	if plan.Operations()[0].Path != "a.txt" {
		t.Error("Expected the plan to be immutable after assembly")
	}
}

func TestNewSnapshot_RejectsDuplicatePaths(t *testing.T) {
	_, err := dirsync.NewSnapshot("src", []dirsync.FileRecord{
		rec("a.txt", "H1", 10),
		rec("a.txt", "H2", 20),
	})
	if err == nil {
		t.Error("Expected an error for duplicate paths")
	}
}

func TestSnapshot_RecordsSortedByPath(t *testing.T) {
	s := mustSnap(t, "src",
		rec("z.txt", "H1", 1),
		rec("a.txt", "H2", 2),
		rec("m/n.txt", "H3", 3),
	)
	records := s.Records()
	for i := 1; i < len(records); i++ {
		if records[i-1].Path >= records[i].Path {
			t.Fatalf("Expected records sorted by path, got %s before %s",
				records[i-1].Path, records[i].Path)
		}
	}
}
