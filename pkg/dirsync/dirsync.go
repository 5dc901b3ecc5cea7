// Package dirsync plans the local filesystem operations that make a
// destination hierarchy's content match a source hierarchy, matching files
// by content signature so identical bytes already present in the
// destination are moved or copied instead of re-transferred. The planner
// consumes two immutable snapshots and produces an ordered, clobber-safe
// plan of moves, copies, deletes, and transfer advisories; it performs no
// filesystem mutation itself.
package dirsync

import (
	"fmt"

	"github.com/rs/zerolog"
)

// ReconcileOption configures a reconciliation run.
type ReconcileOption func(*reconcileConfig)

type reconcileConfig struct {
	logger zerolog.Logger
}

// WithLogger routes the run's diagnostics to the given logger instead of
// the package default.
func WithLogger(logger zerolog.Logger) ReconcileOption {
	return func(c *reconcileConfig) {
		c.logger = logger
	}
}

// Reconcile plans the operations that transform the destination snapshot's
// hierarchy into the source snapshot's. Planning is pure: it reads no
// files and can be abandoned without side effects. The two snapshots must
// have been hashed under the same signature mode; content equality across
// modes is undecidable, so a mismatch is an error rather than a silently
// empty match.
func Reconcile(source, dest *Snapshot, opts ...ReconcileOption) (*Plan, error) {
	if source == nil || dest == nil {
		return nil, fmt.Errorf("reconcile: both snapshots are required")
	}

	cfg := reconcileConfig{logger: DefaultLogger()}
	for _, opt := range opts {
		opt(&cfg)
	}

	if err := checkModes(source, dest); err != nil {
		return nil, err
	}

	cfg.logger.Debug().
		Str("source", source.Root()).
		Int("source_files", source.Len()).
		Str("dest", dest.Root()).
		Int("dest_files", dest.Len()).
		Msg("reconciling snapshots")

	ix := NewSignatureIndex(dest)
	m := matchSnapshots(source, dest, ix, cfg.logger)
	return assemblePlan(source, dest, m, cfg.logger)
}

func checkModes(source, dest *Snapshot) error {
	if source.Len() == 0 || dest.Len() == 0 {
		return nil
	}
	srcMode, ok := source.Mode()
	if !ok {
		return &ModeMismatchError{Source: "mixed", Dest: "-"}
	}
	destMode, ok := dest.Mode()
	if !ok {
		return &ModeMismatchError{Source: srcMode.String(), Dest: "mixed"}
	}
	if srcMode != destMode {
		return &ModeMismatchError{Source: srcMode.String(), Dest: destMode.String()}
	}
	return nil
}
