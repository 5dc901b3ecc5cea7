package main

import (
	"fmt"
	"log"
	"os"

	"github.com/arthur-debert/dirsync/pkg/dirsync"
	"github.com/arthur-debert/dirsync/pkg/dirsync/script"
)

// Example demonstrating the planning engine on in-memory snapshots.
func main() {
	full := dirsync.FullMode()
	record := func(path, sig string, size int64) dirsync.FileRecord {
		return dirsync.FileRecord{Path: path, Size: size, Signature: sig, Mode: full}
	}

	// The source holds the same photo twice plus one brand-new file; the
	// destination has that photo under an old name, plus a leftover.
	source, err := dirsync.NewSnapshot("/media/source", []dirsync.FileRecord{
		record("photos/2024/beach.jpg", "b3:4f2a", 2_000_000),
		record("photos/2024/beach-copy.jpg", "b3:4f2a", 2_000_000),
		record("notes/today.txt", "b3:90ab", 1_200),
	})
	if err != nil {
		log.Fatal(err)
	}
	dest, err := dirsync.NewSnapshot("/media/backup", []dirsync.FileRecord{
		record("old/beach.jpg", "b3:4f2a", 2_000_000),
		record("tmp/leftover.bin", "b3:dead", 9_000),
	})
	if err != nil {
		log.Fatal(err)
	}

	plan, err := dirsync.Reconcile(source, dest)
	if err != nil {
		log.Fatal(err)
	}

	counts := plan.Counts()
	fmt.Printf("✓ planned %d moves, %d copies, %d deletes, %d transfers\n\n",
		counts.Moves, counts.Copies, counts.Deletes, counts.Transfers)
	for _, op := range plan.Operations() {
		fmt.Printf("  %s\n", op)
	}

	fmt.Println("\nAs a shell script:")
	if err := script.Write(os.Stdout, plan, script.Options{
		SourceRoot: "/media/source",
		DestRoot:   "/media/backup",
	}); err != nil {
		log.Fatal(err)
	}
}
