package dirsync

import "fmt"

// OpKind tags the variants of Operation.
type OpKind uint8

const (
	// OpMove relocates the file at From to To.
	OpMove OpKind = iota + 1
	// OpCopy duplicates the file at From to To.
	OpCopy
	// OpDelete removes the file at Path.
	OpDelete
	// OpTransfer is advisory: the content for Path exists only on the
	// source side and cannot be produced by local operations.
	OpTransfer
)

func (k OpKind) String() string {
	switch k {
	case OpMove:
		return "move"
	case OpCopy:
		return "copy"
	case OpDelete:
		return "delete"
	case OpTransfer:
		return "transfer"
	default:
		return fmt.Sprintf("opkind(%d)", uint8(k))
	}
}

// Operation is one step of a plan. Which fields are meaningful depends on
// Kind: Move and Copy use From and To, Delete and Transfer use Path.
// Consumers must switch on Kind exhaustively and reject kinds they do not
// know.
type Operation struct {
	Kind OpKind
	From string
	To   string
	Path string
	Size int64

	// Overwrite marks a Move or Copy whose target is occupied by an
	// original destination file the plan discards. Emitters may clobber
	// that target; without the flag an occupied target means the
	// destination drifted since the snapshot was taken.
	Overwrite bool
}

// NewMove returns a move of size bytes from one destination path to another.
func NewMove(from, to string, size int64) Operation {
	return Operation{Kind: OpMove, From: from, To: to, Size: size}
}

// NewCopy returns a copy of size bytes from one destination path to another.
func NewCopy(from, to string, size int64) Operation {
	return Operation{Kind: OpCopy, From: from, To: to, Size: size}
}

// NewDelete returns a deletion of the file at path.
func NewDelete(path string, size int64) Operation {
	return Operation{Kind: OpDelete, Path: path, Size: size}
}

// NewTransfer returns the advisory record for a source path whose content
// is absent from the destination.
func NewTransfer(path string, size int64) Operation {
	return Operation{Kind: OpTransfer, Path: path, Size: size}
}

func (o Operation) String() string {
	switch o.Kind {
	case OpMove, OpCopy:
		return fmt.Sprintf("%s %s -> %s", o.Kind, o.From, o.To)
	case OpDelete:
		return fmt.Sprintf("delete %s", o.Path)
	case OpTransfer:
		return fmt.Sprintf("transfer needed: %s", o.Path)
	default:
		return o.Kind.String()
	}
}

// PlanCounts summarizes a plan by operation kind.
type PlanCounts struct {
	Moves     int
	Copies    int
	Deletes   int
	Transfers int
}

// Plan is the ordered operation sequence produced by one reconciliation
// run. It is immutable after assembly: moves first (in their resolved safe
// order), then copies, then deletes, then transfer advisories.
type Plan struct {
	ops []Operation
}

func newPlan(ops []Operation) *Plan {
	return &Plan{ops: ops}
}

// Operations returns a copy of the plan's operations in execution order.
func (p *Plan) Operations() []Operation {
	out := make([]Operation, len(p.ops))
	copy(out, p.ops)
	return out
}

// Len returns the number of operations, advisories included.
func (p *Plan) Len() int { return len(p.ops) }

// Counts tallies operations by kind.
func (p *Plan) Counts() PlanCounts {
	var c PlanCounts
	for _, op := range p.ops {
		switch op.Kind {
		case OpMove:
			c.Moves++
		case OpCopy:
			c.Copies++
		case OpDelete:
			c.Deletes++
		case OpTransfer:
			c.Transfers++
		}
	}
	return c
}

// TransferBytes returns the total size of content that must travel by
// means outside this plan.
func (p *Plan) TransferBytes() int64 {
	var total int64
	for _, op := range p.ops {
		if op.Kind == OpTransfer {
			total += op.Size
		}
	}
	return total
}
