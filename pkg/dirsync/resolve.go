package dirsync

import (
	"path"
	"sort"

	"github.com/gammazero/toposort"
)

// moveComponent is one weakly connected piece of the move graph. Because
// every path has at most one incoming and one outgoing edge, a component
// is either a simple chain or a pure cycle. Edges are held in forward path
// order; for a cycle, the slice starts at the edge chosen to be broken
// through a scratch path.
type moveComponent struct {
	edges []MoveEdge
	cycle bool
	min   string // smallest path in the component, orders components deterministically
}

// resolveMoves turns the matcher's move edges into an executable sequence.
// Chains run vacate-first: a move executes only after the move that
// empties its target. Cycles are broken by parking one file at a scratch
// path, rotating the rest, and completing the parked move last. Malformed
// edge sets (self-loops, a path read or written by two moves) are matcher
// defects and fail loudly.
func resolveMoves(edges []MoveEdge, dest *Snapshot, taken *pathSet) ([]Operation, error) {
	if len(edges) == 0 {
		return nil, nil
	}

	byFrom := make(map[string]MoveEdge, len(edges))
	byTo := make(map[string]MoveEdge, len(edges))
	for _, e := range edges {
		if e.From == e.To {
			return nil, invariant("resolve", "self-loop move at %s", e.From)
		}
		if _, ok := dest.Lookup(e.From); !ok {
			return nil, invariant("resolve", "move reads %s, which the destination snapshot does not hold", e.From)
		}
		if prev, dup := byFrom[e.From]; dup {
			return nil, invariant("resolve", "path %s is the source of two moves (to %s and to %s)", e.From, prev.To, e.To)
		}
		if prev, dup := byTo[e.To]; dup {
			return nil, invariant("resolve", "target %s claimed twice (from %s and from %s)", e.To, prev.From, e.From)
		}
		byFrom[e.From] = e
		byTo[e.To] = e
	}

	froms := make([]string, 0, len(byFrom))
	for f := range byFrom {
		froms = append(froms, f)
	}
	sort.Strings(froms)

	visited := make(map[string]bool, len(edges))
	var comps []moveComponent
	for _, f := range froms {
		if visited[f] {
			continue
		}
		comps = append(comps, collectComponent(byFrom[f], byFrom, byTo, visited))
	}
	sort.Slice(comps, func(i, j int) bool { return comps[i].min < comps[j].min })

	var ops []Operation
	for _, comp := range comps {
		compOps, err := orderComponent(comp, dest, taken)
		if err != nil {
			return nil, err
		}
		ops = append(ops, compOps...)
	}
	return ops, nil
}

// collectComponent walks out from one edge and gathers its whole
// component, marking every member visited.
func collectComponent(start MoveEdge, byFrom, byTo map[string]MoveEdge, visited map[string]bool) moveComponent {
	head := start
	for {
		up, ok := byTo[head.From]
		if !ok {
			break
		}
		if up == start {
			return collectCycle(start, byFrom, visited)
		}
		head = up
	}

	var es []MoveEdge
	cur := head
	for {
		es = append(es, cur)
		visited[cur.From] = true
		next, ok := byFrom[cur.To]
		if !ok {
			break
		}
		cur = next
	}
	return moveComponent{edges: es, min: minPath(es)}
}

// collectCycle gathers a cycle in forward order and rotates it so the edge
// with the lexically smallest From leads; that edge is the one diverted
// through scratch, which keeps plans deterministic.
func collectCycle(start MoveEdge, byFrom map[string]MoveEdge, visited map[string]bool) moveComponent {
	var es []MoveEdge
	cur := start
	for {
		es = append(es, cur)
		visited[cur.From] = true
		cur = byFrom[cur.To]
		if cur == start {
			break
		}
	}

	lead := 0
	for i, e := range es {
		if e.From < es[lead].From {
			lead = i
		}
	}
	rot := make([]MoveEdge, 0, len(es))
	rot = append(rot, es[lead:]...)
	rot = append(rot, es[:lead]...)
	return moveComponent{edges: rot, cycle: true, min: minPath(rot)}
}

func minPath(edges []MoveEdge) string {
	min := edges[0].From
	for _, e := range edges {
		if e.From < min {
			min = e.From
		}
		if e.To < min {
			min = e.To
		}
	}
	return min
}

// orderComponent linearizes one component into move operations.
func orderComponent(comp moveComponent, dest *Snapshot, taken *pathSet) ([]Operation, error) {
	sizeAt := func(p string) int64 {
		r, _ := dest.Lookup(p)
		return r.Size
	}

	if comp.cycle {
		brk := comp.edges[0]
		scratch := taken.scratchPath(path.Dir(brk.From))
		ops := make([]Operation, 0, len(comp.edges)+1)
		ops = append(ops, NewMove(brk.From, scratch, sizeAt(brk.From)))
		rest := comp.edges[1:]
		for i := len(rest) - 1; i >= 0; i-- {
			e := rest[i]
			ops = append(ops, NewMove(e.From, e.To, sizeAt(e.From)))
		}
		ops = append(ops, NewMove(scratch, brk.To, sizeAt(brk.From)))
		return ops, nil
	}

	if len(comp.edges) == 1 {
		e := comp.edges[0]
		return []Operation{NewMove(e.From, e.To, sizeAt(e.From))}, nil
	}

	// A move depends on the move that vacates its target; topological
	// order over that relation is the execution sequence.
	byFrom := make(map[string]MoveEdge, len(comp.edges))
	for _, e := range comp.edges {
		byFrom[e.From] = e
	}
	tedges := make([]toposort.Edge, 0, len(comp.edges)-1)
	for _, e := range comp.edges {
		if succ, ok := byFrom[e.To]; ok {
			// succ empties e's target, so succ runs first
			tedges = append(tedges, toposort.Edge{succ.From, e.From})
		}
	}
	sortedIDs, err := toposort.Toposort(tedges)
	if err != nil {
		return nil, invariant("resolve", "chain ordering failed: %v", err)
	}

	ops := make([]Operation, 0, len(comp.edges))
	for _, id := range sortedIDs {
		from, ok := id.(string)
		if !ok {
			return nil, invariant("resolve", "unexpected type %T in chain ordering result", id)
		}
		e, ok := byFrom[from]
		if !ok {
			return nil, invariant("resolve", "chain ordering produced unknown move source %s", from)
		}
		ops = append(ops, NewMove(e.From, e.To, sizeAt(e.From)))
	}
	if len(ops) != len(comp.edges) {
		return nil, invariant("resolve", "chain ordering kept %d of %d moves", len(ops), len(comp.edges))
	}
	return ops, nil
}
