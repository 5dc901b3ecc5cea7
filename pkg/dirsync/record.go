package dirsync

import (
	"fmt"
	"strconv"
	"strings"
)

// SignatureMode describes how a record's signature was computed: over the
// whole file, or over a bounded head/tail window of it.
type SignatureMode struct {
	Partial bool
	Window  int64 // bytes per window; meaningful only when Partial is true
}

// FullMode returns the mode for whole-file signatures.
func FullMode() SignatureMode {
	return SignatureMode{}
}

// PartialMode returns the mode for windowed signatures with the given
// window size in bytes.
func PartialMode(window int64) SignatureMode {
	return SignatureMode{Partial: true, Window: window}
}

func (m SignatureMode) String() string {
	if m.Partial {
		return fmt.Sprintf("partial:%d", m.Window)
	}
	return "full"
}

// ParseSignatureMode parses the string form produced by String.
func ParseSignatureMode(s string) (SignatureMode, error) {
	if s == "full" {
		return FullMode(), nil
	}
	rest, ok := strings.CutPrefix(s, "partial:")
	if !ok {
		return SignatureMode{}, fmt.Errorf("unknown signature mode %q", s)
	}
	window, err := strconv.ParseInt(rest, 10, 64)
	if err != nil || window <= 0 {
		return SignatureMode{}, fmt.Errorf("invalid signature mode window %q", rest)
	}
	return PartialMode(window), nil
}

// FileRecord is one file of a snapshot: a relative slash-separated path,
// the file size, and its content signature.
type FileRecord struct {
	Path      string
	Size      int64
	Signature string
	Mode      SignatureMode
}

// ContentKey is the equality basis for "same content": two records with
// equal keys are treated as content-identical. This is a documented
// approximation, strong under full signatures and weaker under partial
// ones; signatures embed their mode, so keys from different modes never
// compare equal.
type ContentKey struct {
	Signature string
	Size      int64
}

// Key returns the record's content key.
func (r FileRecord) Key() ContentKey {
	return ContentKey{Signature: r.Signature, Size: r.Size}
}
