// Package mrrg defines the modulo routing resource graph (MRRG) of a CGRA.
//
// An MRRG holds II copies of every hardware resource of the array. Function
// nodes execute operations, routing nodes carry values. Edges either stay in a
// cycle (wires) or cross a cycle boundary modulo II (register hops). Nodes live
// in an arena and are addressed by NodeID handles; edges are handle lists.
package mrrg

import (
	"errors"
	"fmt"
	"sort"
)

// ErrInvalid is wrapped by every structural problem found in a graph.
var ErrInvalid = errors.New("invalid resource graph")

// NodeID is a stable handle of a node inside one Graph.
type NodeID int32

// NoNode marks the absence of a node.
const NoNode NodeID = -1

// Kind tells whether a node executes operations or carries values.
type Kind int

const (
	Function Kind = iota
	Routing
)

// String returns the name of the kind.
func (k Kind) String() string {
	switch k {
	case Function:
		return "FUNCTION"
	case Routing:
		return "ROUTING"
	default:
		panic("invalid node kind")
	}
}

// Node is one physical resource at one cycle.
type Node struct {
	ID       NodeID
	Name     string
	Element  string
	Kind     Kind
	Cycle    int
	Capacity int

	// Latency is the number of cycles a value spends when leaving the node.
	Latency int

	// Operands lists the operand-input routing nodes of a function node,
	// indexed by operand position.
	Operands []NodeID

	// Ops is the sorted set of opcodes a function node executes.
	Ops []string

	Fanin  []NodeID
	Fanout []NodeID
}

// IsFunction reports whether the node executes operations.
func (n *Node) IsFunction() bool {
	return n.Kind == Function
}

// Supports reports whether the function node can execute the opcode.
func (n *Node) Supports(opcode string) bool {
	i := sort.SearchStrings(n.Ops, opcode)
	return i < len(n.Ops) && n.Ops[i] == opcode
}

// String returns name@cycle.
func (n *Node) String() string {
	return fmt.Sprintf("%s@%d", n.Name, n.Cycle)
}

type nodeKey struct {
	name  string
	cycle int
}

// Graph is the resource graph of one initiation interval.
type Graph struct {
	II int

	nodes    []*Node
	function []NodeID
	routing  []NodeID
	byName   map[nodeKey]NodeID
}

// New creates an empty graph for the given initiation interval.
func New(ii int) *Graph {
	if ii < 1 {
		panic("initiation interval must be positive")
	}

	return &Graph{
		II:     ii,
		byName: make(map[nodeKey]NodeID),
	}
}

// Cycle folds an arbitrary cycle number into [0, II).
func (g *Graph) Cycle(c int) int {
	c %= g.II
	if c < 0 {
		c += g.II
	}

	return c
}

func (g *Graph) add(n *Node) NodeID {
	n.Cycle = g.Cycle(n.Cycle)

	key := nodeKey{n.Name, n.Cycle}
	if _, dup := g.byName[key]; dup {
		panic(fmt.Sprintf("duplicated node %s@%d", n.Name, n.Cycle))
	}

	n.ID = NodeID(len(g.nodes))
	g.nodes = append(g.nodes, n)
	g.byName[key] = n.ID

	if n.Kind == Function {
		g.function = append(g.function, n.ID)
	} else {
		g.routing = append(g.routing, n.ID)
	}

	return n.ID
}

// AddFunction adds a function node that executes the given opcodes.
func (g *Graph) AddFunction(
	name, element string,
	cycle, latency int,
	ops []string,
) NodeID {
	sorted := append([]string(nil), ops...)
	sort.Strings(sorted)

	return g.add(&Node{
		Name:     name,
		Element:  element,
		Kind:     Function,
		Cycle:    cycle,
		Capacity: 1,
		Latency:  latency,
		Ops:      sorted,
	})
}

// AddRouting adds a routing node.
func (g *Graph) AddRouting(name, element string, cycle, latency int) NodeID {
	return g.add(&Node{
		Name:     name,
		Element:  element,
		Kind:     Routing,
		Cycle:    cycle,
		Capacity: 1,
		Latency:  latency,
	})
}

// SetCapacity changes how many dataflow nodes may use the node at once.
func (g *Graph) SetCapacity(id NodeID, capacity int) {
	if capacity < 0 {
		panic("negative capacity")
	}

	g.Node(id).Capacity = capacity
}

// Link adds a directed edge. Duplicated edges are ignored, and so are
// self-loops, which appear when a register holds its value for one cycle at
// II=1. Fanin and fanout therefore never contain the node itself.
func (g *Graph) Link(from, to NodeID) {
	src, dst := g.Node(from), g.Node(to)
	if from == to {
		return
	}

	for _, f := range src.Fanout {
		if f == to {
			return
		}
	}

	src.Fanout = append(src.Fanout, to)
	dst.Fanin = append(dst.Fanin, from)
}

// AddOperand appends an operand-input node to a function node and links it.
func (g *Graph) AddOperand(fn, operand NodeID) {
	n := g.Node(fn)
	if !n.IsFunction() {
		panic(fmt.Sprintf("%s is not a function node", n))
	}

	n.Operands = append(n.Operands, operand)
	g.Link(operand, fn)
}

// Node returns the node behind a handle.
func (g *Graph) Node(id NodeID) *Node {
	if id < 0 || int(id) >= len(g.nodes) {
		panic(fmt.Sprintf("node handle %d out of range", id))
	}

	return g.nodes[id]
}

// Lookup finds a node by name and cycle.
func (g *Graph) Lookup(name string, cycle int) (NodeID, bool) {
	id, ok := g.byName[nodeKey{name, g.Cycle(cycle)}]
	return id, ok
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// FunctionNodes returns the handles of all function nodes in creation order.
func (g *Graph) FunctionNodes() []NodeID {
	return g.function
}

// RoutingNodes returns the handles of all routing nodes in creation order.
func (g *Graph) RoutingNodes() []NodeID {
	return g.routing
}

// Verify checks the structural invariants of the graph.
func (g *Graph) Verify() error {
	var errs []error

	for _, n := range g.nodes {
		if n.Cycle < 0 || n.Cycle >= g.II {
			errs = append(errs, fmt.Errorf("%w: %s cycle out of range", ErrInvalid, n))
		}

		if n.Capacity < 0 || n.Latency < 0 {
			errs = append(errs, fmt.Errorf("%w: %s has negative capacity or latency", ErrInvalid, n))
		}

		if contains(n.Fanout, n.ID) || contains(n.Fanin, n.ID) {
			errs = append(errs, fmt.Errorf("%w: %s links to itself", ErrInvalid, n))
		}

		for _, f := range n.Fanout {
			if !contains(g.Node(f).Fanin, n.ID) {
				errs = append(errs, fmt.Errorf("%w: edge %s->%s missing fanin", ErrInvalid, n, g.Node(f)))
			}
		}

		for _, f := range n.Fanin {
			if !contains(g.Node(f).Fanout, n.ID) {
				errs = append(errs, fmt.Errorf("%w: edge %s->%s missing fanout", ErrInvalid, g.Node(f), n))
			}
		}

		errs = append(errs, g.verifyOperands(n)...)
	}

	return errors.Join(errs...)
}

func (g *Graph) verifyOperands(n *Node) []error {
	var errs []error

	if !n.IsFunction() {
		if len(n.Operands) > 0 || len(n.Ops) > 0 {
			errs = append(errs, fmt.Errorf("%w: routing node %s has operands or ops", ErrInvalid, n))
		}

		return errs
	}

	for i, o := range n.Operands {
		operand := g.Node(o)
		if operand.IsFunction() {
			errs = append(errs, fmt.Errorf("%w: operand %d of %s is a function node", ErrInvalid, i, n))
		}

		if !contains(operand.Fanout, n.ID) {
			errs = append(errs, fmt.Errorf("%w: operand %d of %s is not linked", ErrInvalid, i, n))
		}
	}

	return errs
}

func contains(ids []NodeID, id NodeID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}

	return false
}
