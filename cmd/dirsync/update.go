package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/arthur-debert/dirsync/pkg/dirsync/catalog"
	"github.com/arthur-debert/dirsync/pkg/dirsync/scan"
)

func newUpdateCommand() *cobra.Command {
	var flags scanFlags

	cmd := &cobra.Command{
		Use:   "update <root>...",
		Short: "Create or refresh the catalog for each root",
		Long: `Walk each root, hash its files, and write the catalog database at the
root's top level. Files whose size and mtime are unchanged since the
last update keep their recorded signature instead of being re-read, so
refreshing a large mostly-static tree is cheap.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.options(cmd)
			if err != nil {
				return err
			}
			for _, root := range args {
				if err := updateRoot(cmd, root, opts); err != nil {
					return err
				}
			}
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}

func updateRoot(cmd *cobra.Command, root string, opts scan.Options) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	store, err := catalog.Open(filepath.Join(abs, cfg.Catalog.Name))
	if err != nil {
		return err
	}
	defer store.Close()

	prior, err := store.Entries()
	if err != nil {
		return err
	}
	stored, ok, err := store.Mode()
	if err != nil {
		return err
	}
	if ok && stored != opts.Mode {
		logger.Info().Str("root", abs).
			Str("from", stored.String()).Str("to", opts.Mode.String()).
			Msg("hash settings changed, rehashing everything")
		prior = nil
	}
	opts.Prior = prior

	res, err := scan.Run(cmd.Context(), abs, opts)
	if err != nil {
		return err
	}
	if err := store.Replace(res.Entries, opts.Mode); err != nil {
		return err
	}

	fmt.Printf("%s: %d files cataloged (%d hashed, %d reused)\n",
		root, len(res.Entries), res.Hashed, res.Reused)
	return nil
}
