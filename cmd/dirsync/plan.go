package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/arthur-debert/dirsync/pkg/dirsync"
	"github.com/arthur-debert/dirsync/pkg/dirsync/script"
)

func newPlanCommand() *cobra.Command {
	var (
		flags  scanFlags
		output string
	)

	cmd := &cobra.Command{
		Use:   "plan <source-root> <dest-root>",
		Short: "Plan the operations that line a destination up with a source",
		Long: `Compare the source and destination trees by content signature and write
an executable shell script that reorganizes the destination: files are
moved or copied into place, surplus files are removed, and content the
destination lacks entirely is listed for transfer by other means.

Each side is read from its catalog databases when present and scanned
live otherwise. The script only plans; nothing changes until it is run.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.options(cmd)
			if err != nil {
				return err
			}
			srcRoot, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			dstRoot, err := filepath.Abs(args[1])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			source, err := loadSide(ctx, srcRoot, opts)
			if err != nil {
				return err
			}
			dest, err := loadSide(ctx, dstRoot, opts)
			if err != nil {
				return err
			}

			plan, err := dirsync.Reconcile(source, dest, dirsync.WithLogger(logger))
			if err != nil {
				return err
			}

			scriptOpts := script.Options{SourceRoot: srcRoot, DestRoot: dstRoot}
			out := output
			if out == "" {
				out = filepath.Join(dstRoot, cfg.Script.Name)
			}

			// Summary goes to stderr when the script itself claims stdout.
			summary := os.Stdout
			if out == "-" {
				if err := script.Write(os.Stdout, plan, scriptOpts); err != nil {
					return err
				}
				summary = os.Stderr
			} else {
				if err := script.WriteFile(out, plan, scriptOpts); err != nil {
					return err
				}
				fmt.Fprintf(summary, "wrote %s\n", out)
			}

			counts := plan.Counts()
			fmt.Fprintf(summary, "%d moves, %d copies, %d deletes planned\n",
				counts.Moves, counts.Copies, counts.Deletes)
			if counts.Transfers > 0 {
				fmt.Fprintf(summary, "%d files (%s) must be transferred by other means\n",
					counts.Transfers, humanize.Bytes(uint64(plan.TransferBytes())))
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "",
		`script path (default: <dest-root>/update.sh, "-" for stdout)`)
	return cmd
}
