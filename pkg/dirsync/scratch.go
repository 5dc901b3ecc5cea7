package dirsync

import (
	"fmt"
	"path"
)

// pathSet tracks every path that exists or will exist during a run, so
// generated scratch names never collide with anything real or planned.
type pathSet struct {
	m map[string]bool
}

func newPathSet() *pathSet {
	return &pathSet{m: make(map[string]bool)}
}

func (s *pathSet) add(p string) { s.m[p] = true }

func (s *pathSet) has(p string) bool { return s.m[p] }

// scratchPath returns a temporary name inside dir that collides with no
// known path, and reserves it. Names are generated from a counter, so a
// given run produces the same scratch paths every time.
func (s *pathSet) scratchPath(dir string) string {
	for n := 1; ; n++ {
		p := path.Join(dir, fmt.Sprintf(".dirsync-tmp-%d", n))
		if !s.has(p) {
			s.add(p)
			return p
		}
	}
}
