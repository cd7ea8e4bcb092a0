// Package route finds congestion-aware routes for dataflow values.
package route

import (
	"container/heap"

	"github.com/sarchlab/cgrame/dfg"
	"github.com/sarchlab/cgrame/mapping"
	"github.com/sarchlab/cgrame/mrrg"
)

// Router routes one value at a time against the current occupancy. A value
// reaching several consumers shares the common part of its paths.
type Router struct {
	occ *mapping.Occupancy

	prev map[mrrg.NodeID]mrrg.NodeID
	best map[mrrg.NodeID]float64
	seq  int
}

// New creates a router working on the given occupancy table.
func New(occ *mapping.Occupancy) *Router {
	return &Router{occ: occ}
}

type tree struct {
	src      mrrg.NodeID
	order    []mrrg.NodeID
	accepted map[mrrg.NodeID]bool
	arrival  map[mrrg.NodeID]int
}

// RouteVal claims routing nodes that connect the producer of v to the operand
// nodes of all its consumers. The producer and every consumer must be placed.
// On failure nothing is committed and false is returned.
func (r *Router) RouteVal(v dfg.ValID) bool {
	m := r.occ.Mapping()
	val := m.DFG.Val(v)

	src, ok := m.Placement(val.Producer)
	if !ok {
		return false
	}

	sinks, ok := r.sinks(val)
	if !ok {
		return false
	}

	t := &tree{
		src:      src,
		accepted: map[mrrg.NodeID]bool{src: true},
		arrival:  map[mrrg.NodeID]int{src: 0},
	}

	latency := make([]int, len(sinks))
	reached := make([]bool, len(sinks))
	remaining := len(sinks)

	for {
		for i, s := range sinks {
			if !reached[i] && t.accepted[s] {
				reached[i] = true
				latency[i] = t.arrival[s]
				remaining--
			}
		}

		if remaining == 0 {
			break
		}

		found, ok := r.search(t, sinks, reached)
		if !ok {
			return false
		}

		r.accept(t, found)
	}

	r.occ.Commit(v, t.order, latency)

	return true
}

func (r *Router) sinks(val *dfg.Val) ([]mrrg.NodeID, bool) {
	m := r.occ.Mapping()
	sinks := make([]mrrg.NodeID, len(val.Uses))

	for i, u := range val.Uses {
		fn, ok := m.Placement(u.Op)
		if !ok {
			return nil, false
		}

		consumer := m.Graph.Node(fn)
		if u.Operand >= len(consumer.Operands) {
			return nil, false
		}

		sinks[i] = consumer.Operands[u.Operand]
	}

	return sinks, true
}

// search runs a best-first search from every accepted node and stops at the
// first unreached sink it pops.
func (r *Router) search(
	t *tree,
	sinks []mrrg.NodeID,
	reached []bool,
) (mrrg.NodeID, bool) {
	g := r.occ.Mapping().Graph

	wanted := make(map[mrrg.NodeID]bool)
	for i, s := range sinks {
		if !reached[i] {
			wanted[s] = true
		}
	}

	r.prev = make(map[mrrg.NodeID]mrrg.NodeID)
	r.best = make(map[mrrg.NodeID]float64)
	r.seq = 0

	visited := make(map[mrrg.NodeID]bool)
	q := &queue{}

	r.push(q, t.src, 0)
	for _, n := range t.order {
		r.push(q, n, 0)
	}

	for q.Len() > 0 {
		e := heap.Pop(q).(entry)
		if visited[e.node] {
			continue
		}

		visited[e.node] = true

		if wanted[e.node] && !t.accepted[e.node] {
			return e.node, true
		}

		node := g.Node(e.node)
		if node.IsFunction() && e.node != t.src {
			continue
		}

		for _, f := range node.Fanout {
			if visited[f] || t.accepted[f] || g.Node(f).IsFunction() {
				continue
			}

			c := e.cost + r.occ.EntryCost(f)
			if b, seen := r.best[f]; seen && b <= c {
				continue
			}

			r.best[f] = c
			r.prev[f] = e.node
			r.push(q, f, c)
		}
	}

	return mrrg.NoNode, false
}

func (r *Router) push(q *queue, n mrrg.NodeID, cost float64) {
	heap.Push(q, entry{node: n, cost: cost, seq: r.seq})
	r.seq++
}

// accept walks back from a popped sink to the tree and adds the new path.
func (r *Router) accept(t *tree, sink mrrg.NodeID) {
	g := r.occ.Mapping().Graph

	var path []mrrg.NodeID
	for n := sink; !t.accepted[n]; n = r.prev[n] {
		path = append(path, n)
	}

	for i := len(path) - 1; i >= 0; i-- {
		n := path[i]
		p := r.prev[n]

		t.arrival[n] = t.arrival[p] + g.Node(p).Latency
		t.accepted[n] = true
		t.order = append(t.order, n)
	}
}
