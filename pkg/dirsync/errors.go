package dirsync

import "fmt"

// InvariantError reports an internal planner defect: a malformed move
// graph, a double-claimed target, or a plan that failed verification. It
// is never the result of ordinary inputs; reconciliation prefers failing
// loudly over emitting a plan that could destroy data.
type InvariantError struct {
	Stage  string
	Detail string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("internal invariant violated in %s: %s", e.Stage, e.Detail)
}

func invariant(stage, format string, args ...any) error {
	return &InvariantError{Stage: stage, Detail: fmt.Sprintf(format, args...)}
}

// ModeMismatchError reports that the two sides of a reconciliation were
// hashed under incompatible signature modes, or that one side mixes modes.
// Signatures from different modes never match, so planning would silently
// classify everything as needing transfer; erroring out is more useful.
type ModeMismatchError struct {
	Source string
	Dest   string
}

func (e *ModeMismatchError) Error() string {
	return fmt.Sprintf("signature mode mismatch: source %s, destination %s (re-run update with matching hash settings)", e.Source, e.Dest)
}
