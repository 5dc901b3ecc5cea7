package dirsync

// SignatureIndex maps content keys to the destination paths holding that
// content. Paths per key are in lexicographic order, so downstream
// tie-breaks are reproducible. Pure function of its snapshot.
type SignatureIndex struct {
	byKey map[ContentKey][]string
}

// NewSignatureIndex indexes every record of the snapshot. Snapshot records
// are already path-sorted, so per-key path lists come out ordered.
func NewSignatureIndex(s *Snapshot) *SignatureIndex {
	ix := &SignatureIndex{byKey: make(map[ContentKey][]string, s.Len())}
	for _, r := range s.Records() {
		key := r.Key()
		ix.byKey[key] = append(ix.byKey[key], r.Path)
	}
	return ix
}

// Paths returns the paths holding the keyed content, in lexicographic
// order. The returned slice is shared; callers must not modify it.
func (ix *SignatureIndex) Paths(key ContentKey) []string {
	return ix.byKey[key]
}
