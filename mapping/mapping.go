// Package mapping holds the result of placing and routing a dataflow graph onto
// a resource graph, the occupancy table that prices it, and the tools to check
// and print it.
package mapping

import (
	"context"

	"github.com/sarchlab/cgrame/dfg"
	"github.com/sarchlab/cgrame/mrrg"
)

// Mapper maps a dataflow graph onto a resource graph.
type Mapper interface {
	Map(ctx context.Context, g *mrrg.Graph, d *dfg.Graph) (*Mapping, error)
}

// Mapping assigns every op one function node and every value the routing
// nodes that carry it to its consumers.
type Mapping struct {
	Graph *mrrg.Graph
	DFG   *dfg.Graph

	Status Status
	Stats  Stats

	ops     []mrrg.NodeID
	routes  [][]mrrg.NodeID
	latency [][]int
	routed  []bool
}

// New creates an empty mapping.
func New(g *mrrg.Graph, d *dfg.Graph) *Mapping {
	m := &Mapping{
		Graph:   g,
		DFG:     d,
		ops:     make([]mrrg.NodeID, d.NumOps()),
		routes:  make([][]mrrg.NodeID, d.NumVals()),
		latency: make([][]int, d.NumVals()),
		routed:  make([]bool, d.NumVals()),
	}

	for i := range m.ops {
		m.ops[i] = mrrg.NoNode
	}

	m.Stats.II = g.II

	return m
}

// IsMapped reports whether the mapping is complete and legal.
func (m *Mapping) IsMapped() bool {
	return m.Status == StatusMapped
}

// Placement returns the function node an op is placed on.
func (m *Mapping) Placement(op dfg.OpID) (mrrg.NodeID, bool) {
	n := m.ops[op]
	return n, n != mrrg.NoNode
}

// OpNodes returns the nodes of an op: its function node, or nothing.
func (m *Mapping) OpNodes(op dfg.OpID) []mrrg.NodeID {
	if n, ok := m.Placement(op); ok {
		return []mrrg.NodeID{n}
	}

	return nil
}

// Route returns the routing nodes of a value in the order they were claimed.
// The slice must not be modified.
func (m *Mapping) Route(v dfg.ValID) []mrrg.NodeID {
	return m.routes[v]
}

// IsRouted reports whether a value has a committed route.
func (m *Mapping) IsRouted(v dfg.ValID) bool {
	return m.routed[v]
}

// SinkLatency returns the cycles a value takes to reach its i-th use.
func (m *Mapping) SinkLatency(v dfg.ValID, use int) int {
	return m.latency[v][use]
}

// Clone copies the mapping so that further search does not change it.
func (m *Mapping) Clone() *Mapping {
	c := &Mapping{
		Graph:   m.Graph,
		DFG:     m.DFG,
		Status:  m.Status,
		Stats:   m.Stats,
		ops:     append([]mrrg.NodeID(nil), m.ops...),
		routes:  make([][]mrrg.NodeID, len(m.routes)),
		latency: make([][]int, len(m.latency)),
		routed:  append([]bool(nil), m.routed...),
	}

	for i := range m.routes {
		c.routes[i] = append([]mrrg.NodeID(nil), m.routes[i]...)
		c.latency[i] = append([]int(nil), m.latency[i]...)
	}

	return c
}

// SameAssignment reports whether two mappings place and route identically.
func (m *Mapping) SameAssignment(o *Mapping) bool {
	if len(m.ops) != len(o.ops) || len(m.routes) != len(o.routes) {
		return false
	}

	for i := range m.ops {
		if m.ops[i] != o.ops[i] {
			return false
		}
	}

	for i := range m.routes {
		if m.routed[i] != o.routed[i] || !sameNodes(m.routes[i], o.routes[i]) {
			return false
		}
	}

	return true
}

func sameNodes(a, b []mrrg.NodeID) bool {
	if len(a) != len(b) {
		return false
	}

	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}

	return true
}
