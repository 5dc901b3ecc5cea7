// Package digest computes the content signatures reconciliation matches
// on, using BLAKE3 over either the whole file or a bounded head/tail
// window of it.
package digest

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"lukechampine.com/blake3"

	"github.com/arthur-debert/dirsync/pkg/dirsync"
)

const hashSize = 32

// File computes the signature of the file at path under the given mode.
func File(path string, mode dirsync.SignatureMode) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", path, err)
	}
	sig, err := Compute(f, info.Size(), mode)
	if err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return sig, nil
}

// Compute computes the signature of r, whose total length is size bytes.
//
// Full mode hashes everything. Partial mode with window W hashes the first
// W bytes, the last W bytes, and the total size; a file of size <= 2*W is
// hashed whole instead and yields the full-mode signature verbatim, so
// small files never produce the degenerate matches overlapping windows
// would allow. Signatures carry their mode as a prefix ("b3:" or
// "b3p<W>:"), which keeps signatures from different modes unequal by
// construction.
func Compute(r io.ReadSeeker, size int64, mode dirsync.SignatureMode) (string, error) {
	if mode.Partial && mode.Window <= 0 {
		return "", fmt.Errorf("partial window must be positive, got %d", mode.Window)
	}
	if !mode.Partial || size <= 2*mode.Window {
		return full(r)
	}
	return partial(r, size, mode.Window)
}

func full(r io.Reader) (string, error) {
	h := blake3.New(hashSize, nil)
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return "b3:" + hex.EncodeToString(h.Sum(nil)), nil
}

func partial(r io.ReadSeeker, size, window int64) (string, error) {
	h := blake3.New(hashSize, nil)
	if _, err := io.CopyN(h, r, window); err != nil {
		return "", err
	}
	if _, err := r.Seek(size-window, io.SeekStart); err != nil {
		return "", err
	}
	if _, err := io.CopyN(h, r, window); err != nil {
		return "", err
	}

	// The total size folds into the signature so two files sharing only
	// head and tail windows still differ when their lengths differ.
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(size))
	if _, err := h.Write(buf[:]); err != nil {
		return "", err
	}

	return fmt.Sprintf("b3p%d:%s", window, hex.EncodeToString(h.Sum(nil))), nil
}
