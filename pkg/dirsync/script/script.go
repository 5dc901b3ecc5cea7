// Package script renders a plan as an executable POSIX shell script.
//
// The script is meant to be reviewed and then run from the destination
// root. Every command goes through a helper that creates parent
// directories, refuses to clobber paths the plan did not claim, and stops
// on the first failure, so a tree that drifted since the catalog was
// taken fails loudly instead of being mangled.
package script

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/arthur-debert/dirsync/pkg/dirsync"
)

// DefaultName is the script's file name inside the destination root.
const DefaultName = "update.sh"

// Options name the two roots for the script header.
type Options struct {
	SourceRoot string
	DestRoot   string
}

const preamble = `set -eu

MVFLAGS="${MVFLAGS:-}"
CPFLAGS="${CPFLAGS:---reflink=auto}"
MKDIRFLAGS="${MKDIRFLAGS:-}"
RMFLAGS="${RMFLAGS:-}"

refuse() {
	printf 'dirsync: refusing to overwrite %s\n' "$1" >&2
	exit 1
}

move() {
	[ ! -e "$2" ] || refuse "$2"
	move_over "$1" "$2"
}

move_over() {
	mkdir $MKDIRFLAGS -p -- "$(dirname -- "$2")"
	mv $MVFLAGS -- "$1" "$2"
}

copy() {
	[ ! -e "$2" ] || refuse "$2"
	copy_over "$1" "$2"
}

copy_over() {
	mkdir $MKDIRFLAGS -p -- "$(dirname -- "$2")"
	cp $CPFLAGS -- "$1" "$2"
}

remove() {
	if [ ! -e "$1" ]; then
		printf 'dirsync: %s already gone, skipping\n' "$1" >&2
		return 0
	fi
	if [ ! -f "$1" ]; then
		printf 'dirsync: %s is not a regular file, aborting\n' "$1" >&2
		exit 1
	fi
	rm $RMFLAGS -- "$1"
}
`

// Render returns the shell script for plan.
func Render(plan *dirsync.Plan, opts Options) string {
	var b strings.Builder
	b.WriteString("#!/bin/sh\n")
	b.WriteString("# Generated by dirsync.\n")
	if opts.SourceRoot != "" {
		fmt.Fprintf(&b, "#   source:      %s\n", opts.SourceRoot)
	}
	if opts.DestRoot != "" {
		fmt.Fprintf(&b, "#   destination: %s\n", opts.DestRoot)
	}

	ops := plan.Operations()
	if len(ops) == 0 {
		b.WriteString("# Nothing to do.\n")
		return b.String()
	}

	b.WriteString("# Review before running; run from the destination root.\n")
	b.WriteString(preamble)

	var transfers []dirsync.Operation
	lastKind := dirsync.OpKind(0)
	for _, op := range ops {
		if op.Kind == dirsync.OpTransfer {
			transfers = append(transfers, op)
			continue
		}
		if op.Kind != lastKind {
			b.WriteString("\n")
			lastKind = op.Kind
		}
		switch op.Kind {
		case dirsync.OpMove:
			b.WriteString(command("move", op.Overwrite, sq(op.From), sq(op.To)))
		case dirsync.OpCopy:
			b.WriteString(command("copy", op.Overwrite, sq(op.From), sq(op.To)))
		case dirsync.OpDelete:
			fmt.Fprintf(&b, "remove %s\n", sq(op.Path))
		}
	}

	if len(transfers) > 0 {
		var total int64
		for _, op := range transfers {
			total += op.Size
		}
		b.WriteString("\n")
		fmt.Fprintf(&b, "# missing on destination: %d file(s), %s\n",
			len(transfers), humanize.Bytes(uint64(total)))
		for _, op := range transfers {
			fmt.Fprintf(&b, "#   %s (%s)\n", op.Path, humanize.Bytes(uint64(op.Size)))
		}
		b.WriteString("# transfer these by other means, then update and plan again.\n")
	}
	return b.String()
}

func command(verb string, overwrite bool, from, to string) string {
	if overwrite {
		verb += "_over"
	}
	return fmt.Sprintf("%s %s %s\n", verb, from, to)
}

// sq single-quotes s for the shell.
func sq(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// Write renders plan into w.
func Write(w io.Writer, plan *dirsync.Plan, opts Options) error {
	_, err := io.WriteString(w, Render(plan, opts))
	return err
}

// WriteFile atomically writes the rendered script to path and marks it
// executable. The script lands complete or not at all.
func WriteFile(path string, plan *dirsync.Plan, opts Options) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("writing script: %w", err)
	}
	defer func() {
		if tmp != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if _, err := io.WriteString(tmp, Render(plan, opts)); err != nil {
		return fmt.Errorf("writing script: %w", err)
	}
	if err := tmp.Chmod(0o755); err != nil {
		return fmt.Errorf("writing script: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("writing script: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing script: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("writing script: %w", err)
	}
	tmp = nil
	return nil
}
