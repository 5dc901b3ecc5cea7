// Package scan walks a directory tree and hashes its regular files into
// catalog entries.
package scan

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"

	"github.com/arthur-debert/dirsync/pkg/dirsync"
	"github.com/arthur-debert/dirsync/pkg/dirsync/catalog"
	"github.com/arthur-debert/dirsync/pkg/dirsync/digest"
)

// Options control a scan run.
type Options struct {
	// Mode selects the signature mode for hashed files.
	Mode dirsync.SignatureMode

	// Jobs caps the number of concurrent hashing workers. Zero or
	// negative means one worker per CPU.
	Jobs int

	// Exclude holds doublestar patterns matched against slash-separated
	// tree-relative paths. A matching file is skipped; a matching
	// directory is pruned whole.
	Exclude []string

	// CatalogName names the catalog database file, which is always
	// skipped (along with its journal sidecars) wherever it appears.
	CatalogName string

	// Prior seeds signatures from an earlier catalog. A file whose size
	// and mtime match its prior entry keeps that signature without being
	// re-read; everything else is hashed fresh.
	Prior map[string]catalog.Entry

	Logger zerolog.Logger
}

// Result is a finished scan.
type Result struct {
	Entries []catalog.Entry // one per regular file, sorted by path
	Hashed  int             // files read and hashed this run
	Reused  int             // signatures carried over from Prior
	Skipped int             // files that became unreadable mid-scan
}

type task struct {
	rel   string
	abs   string
	size  int64
	mtime int64
}

// Run scans root and returns one entry per regular file under it. The
// walk order is lexical, so results are deterministic for a given tree;
// hashing itself fans out across workers. Files that vanish or turn
// unreadable between the walk and the read are logged and skipped.
func Run(ctx context.Context, root string, opts Options) (*Result, error) {
	res := &Result{}

	var pending []task
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			return nil
		}

		skip, err := excluded(rel, opts.Exclude)
		if err != nil {
			return err
		}
		if d.IsDir() {
			if skip {
				return fs.SkipDir
			}
			return nil
		}
		if skip || isCatalogFile(d.Name(), opts.CatalogName) || !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			opts.Logger.Warn().Err(err).Str("path", rel).Msg("skipping unreadable file")
			res.Skipped++
			return nil
		}

		tk := task{rel: rel, abs: p, size: info.Size(), mtime: info.ModTime().UnixNano()}
		if prior, ok := opts.Prior[rel]; ok &&
			prior.Size == tk.size && prior.Mtime == tk.mtime && prior.Mode == opts.Mode.String() {
			res.Entries = append(res.Entries, prior)
			res.Reused++
			return nil
		}
		pending = append(pending, tk)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", root, err)
	}

	if err := hashAll(ctx, pending, opts, res); err != nil {
		return nil, err
	}

	sort.Slice(res.Entries, func(i, j int) bool {
		return res.Entries[i].Path < res.Entries[j].Path
	})
	opts.Logger.Debug().
		Str("root", root).
		Int("files", len(res.Entries)).
		Int("hashed", res.Hashed).
		Int("reused", res.Reused).
		Int("skipped", res.Skipped).
		Msg("scan complete")
	return res, nil
}

// hashAll fans the pending tasks out across a bounded worker pool and
// appends the results to res. Cancelling ctx stops the feed; workers
// finish the file in hand and exit.
func hashAll(ctx context.Context, pending []task, opts Options, res *Result) error {
	workers := opts.Jobs
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(pending) && len(pending) > 0 {
		workers = len(pending)
	}

	jobs := make(chan task)
	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		entries []catalog.Entry
		hashed  int
		skipped int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for tk := range jobs {
				sig, err := digest.File(tk.abs, opts.Mode)
				if err != nil {
					opts.Logger.Warn().Err(err).Str("path", tk.rel).Msg("skipping unreadable file")
					mu.Lock()
					skipped++
					mu.Unlock()
					continue
				}
				mu.Lock()
				entries = append(entries, catalog.Entry{
					Path:  tk.rel,
					Size:  tk.size,
					Mtime: tk.mtime,
					Sig:   sig,
					Mode:  opts.Mode.String(),
				})
				hashed++
				mu.Unlock()
			}
		}()
	}

feed:
	for _, tk := range pending {
		select {
		case jobs <- tk:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}
	res.Entries = append(res.Entries, entries...)
	res.Hashed = hashed
	res.Skipped += skipped
	return nil
}

func excluded(rel string, patterns []string) (bool, error) {
	for _, pattern := range patterns {
		ok, err := doublestar.Match(pattern, rel)
		if err != nil {
			return false, fmt.Errorf("exclude pattern %q: %w", pattern, err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// isCatalogFile matches the catalog database and its -wal/-shm journal
// sidecars.
func isCatalogFile(name, catalogName string) bool {
	if catalogName == "" {
		return false
	}
	return name == catalogName || strings.HasPrefix(name, catalogName+"-")
}
