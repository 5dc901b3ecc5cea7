package main

import (
	"fmt"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/arthur-debert/dirsync/pkg/dirsync"
)

func newDupsCommand() *cobra.Command {
	var flags scanFlags

	cmd := &cobra.Command{
		Use:   "dups [root]",
		Short: "List files whose content appears more than once",
		Long: `List groups of files within one tree that share the same content
signature, together with the space reclaimable by deduplicating them.
Zero-length files are never reported.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) == 1 {
				root = args[0]
			}
			opts, err := flags.options(cmd)
			if err != nil {
				return err
			}
			abs, err := filepath.Abs(root)
			if err != nil {
				return err
			}
			snap, err := loadSide(cmd.Context(), abs, opts)
			if err != nil {
				return err
			}

			groups := dirsync.Duplicates(snap)
			if len(groups) == 0 {
				fmt.Println("no duplicates found")
				return nil
			}

			var wasted int64
			for _, g := range groups {
				fmt.Printf("%s each, %d copies:\n", humanize.Bytes(uint64(g.Key.Size)), len(g.Paths))
				for _, p := range g.Paths {
					fmt.Printf("  %s\n", p)
				}
				wasted += g.WastedBytes()
			}
			fmt.Printf("\n%d groups, %s reclaimable\n", len(groups), humanize.Bytes(uint64(wasted)))
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}
