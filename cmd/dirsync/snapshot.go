package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/arthur-debert/dirsync/pkg/dirsync"
	"github.com/arthur-debert/dirsync/pkg/dirsync/catalog"
	"github.com/arthur-debert/dirsync/pkg/dirsync/config"
	"github.com/arthur-debert/dirsync/pkg/dirsync/scan"
)

// scanFlags are the hashing and walking options shared by every command
// that reads a tree.
type scanFlags struct {
	partial bool
	window  string
	jobs    int
	exclude []string
}

func (f *scanFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.partial, "partial", false,
		"hash only a window at each end of every file")
	cmd.Flags().StringVar(&f.window, "window", "",
		"window size for partial hashing (e.g. 64KiB)")
	cmd.Flags().IntVarP(&f.jobs, "jobs", "j", 0,
		"concurrent hashing workers")
	cmd.Flags().StringArrayVar(&f.exclude, "exclude", nil,
		"doublestar pattern to skip, relative to the root (repeatable)")
}

// mode resolves the signature mode; flags outrank configuration.
func (f *scanFlags) mode(cmd *cobra.Command) (dirsync.SignatureMode, error) {
	partial := cfg.Hash.Partial
	if cmd.Flags().Changed("partial") {
		partial = f.partial
	}
	window := int64(cfg.Hash.Window)
	if cmd.Flags().Changed("window") {
		n, err := config.ParseByteSize(f.window)
		if err != nil {
			return dirsync.SignatureMode{}, err
		}
		window = int64(n)
	}
	if !partial {
		return dirsync.FullMode(), nil
	}
	return dirsync.PartialMode(window), nil
}

func (f *scanFlags) options(cmd *cobra.Command) (scan.Options, error) {
	mode, err := f.mode(cmd)
	if err != nil {
		return scan.Options{}, err
	}
	jobs := cfg.Scan.Jobs
	if cmd.Flags().Changed("jobs") {
		jobs = f.jobs
	}
	exclude := append([]string{}, cfg.Scan.Exclude...)
	exclude = append(exclude, f.exclude...)
	// The plan script lives inside the tree it updates; never catalog it.
	exclude = append(exclude, cfg.Script.Name)
	return scan.Options{
		Mode:        mode,
		Jobs:        jobs,
		Exclude:     exclude,
		CatalogName: cfg.Catalog.Name,
		Logger:      logger,
	}, nil
}

// loadSide returns the snapshot for the absolute root, from its catalogs
// when any exist, otherwise from a live scan.
func loadSide(ctx context.Context, root string, opts scan.Options) (*dirsync.Snapshot, error) {
	snap, err := catalog.LoadTree(root, cfg.Catalog.Name, logger)
	if err == nil {
		logger.Debug().Str("root", root).Int("files", snap.Len()).Msg("loaded catalogs")
		return snap, nil
	}
	if !errors.Is(err, catalog.ErrNoCatalog) {
		return nil, err
	}

	logger.Info().Str("root", root).Msg("no catalog found, scanning live")
	res, err := scan.Run(ctx, root, opts)
	if err != nil {
		return nil, err
	}
	return catalog.SnapshotFromEntries(root, res.Entries)
}
