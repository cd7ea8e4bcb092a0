package mapping

import (
	"fmt"
	"math"
	"sort"

	"github.com/sarchlab/cgrame/dfg"
	"github.com/sarchlab/cgrame/mrrg"
)

// Base costs of one occupant.
const (
	FunctionBaseCost = 2
	RoutingBaseCost  = 1
)

// Occupancy tracks how many dataflow nodes use every resource node of one
// Mapping and prices the result. All changes to the Mapping go through it so
// that the table never drifts from the assignment.
type Occupancy struct {
	m       *Mapping
	use     []int
	onNode  map[mrrg.NodeID][]dfg.OpID
	pfactor float64

	baseUnits int
	overUnits int
	overused  int
}

// NewOccupancy builds the table for a mapping, counting what it already holds.
func NewOccupancy(m *Mapping, pfactor float64) *Occupancy {
	o := &Occupancy{
		m:       m,
		use:     make([]int, m.Graph.Len()),
		onNode:  make(map[mrrg.NodeID][]dfg.OpID),
		pfactor: pfactor,
	}

	for op, n := range m.ops {
		if n != mrrg.NoNode {
			o.inc(n)
			o.addOccupant(n, dfg.OpID(op))
		}
	}

	for v, nodes := range m.routes {
		if !m.routed[v] {
			continue
		}

		for _, n := range nodes {
			o.inc(n)
		}
	}

	return o
}

// Mapping returns the mapping the table belongs to.
func (o *Occupancy) Mapping() *Mapping {
	return o.m
}

// PFactor returns the current over-use penalty.
func (o *Occupancy) PFactor() float64 {
	return o.pfactor
}

// SetPFactor changes the over-use penalty.
func (o *Occupancy) SetPFactor(p float64) {
	o.pfactor = p
}

func (o *Occupancy) baseCost(n mrrg.NodeID) int {
	if o.m.Graph.Node(n).IsFunction() {
		return FunctionBaseCost
	}

	return RoutingBaseCost
}

func (o *Occupancy) inc(n mrrg.NodeID) {
	capacity := o.m.Graph.Node(n).Capacity

	o.use[n]++
	o.baseUnits += o.baseCost(n)

	if o.use[n] > capacity {
		o.overUnits++
		if o.use[n] == capacity+1 {
			o.overused++
		}
	}
}

func (o *Occupancy) dec(n mrrg.NodeID) {
	capacity := o.m.Graph.Node(n).Capacity

	if o.use[n] == 0 {
		panic(fmt.Sprintf("occupancy of %s below zero", o.m.Graph.Node(n)))
	}

	if o.use[n] > capacity {
		o.overUnits--
		if o.use[n] == capacity+1 {
			o.overused--
		}
	}

	o.use[n]--
	o.baseUnits -= o.baseCost(n)
}

func (o *Occupancy) addOccupant(n mrrg.NodeID, op dfg.OpID) {
	ops := o.onNode[n]
	i := sort.Search(len(ops), func(i int) bool { return ops[i] >= op })
	ops = append(ops, 0)
	copy(ops[i+1:], ops[i:])
	ops[i] = op
	o.onNode[n] = ops
}

func (o *Occupancy) removeOccupant(n mrrg.NodeID, op dfg.OpID) {
	ops := o.onNode[n]
	for i, x := range ops {
		if x == op {
			o.onNode[n] = append(ops[:i], ops[i+1:]...)
			break
		}
	}

	if len(o.onNode[n]) == 0 {
		delete(o.onNode, n)
	}
}

// Place puts an unplaced op on a function node.
func (o *Occupancy) Place(op dfg.OpID, n mrrg.NodeID) {
	if o.m.ops[op] != mrrg.NoNode {
		panic(fmt.Sprintf("op %d is already placed", op))
	}

	if !o.m.Graph.Node(n).IsFunction() {
		panic(fmt.Sprintf("%s is not a function node", o.m.Graph.Node(n)))
	}

	o.m.ops[op] = n
	o.inc(n)
	o.addOccupant(n, op)
}

// Unplace removes an op from its node. Unplacing an unplaced op does nothing.
func (o *Occupancy) Unplace(op dfg.OpID) {
	n := o.m.ops[op]
	if n == mrrg.NoNode {
		return
	}

	o.dec(n)
	o.removeOccupant(n, op)
	o.m.ops[op] = mrrg.NoNode
}

// Commit records the route of an unrouted value and the latency to each of its
// uses.
func (o *Occupancy) Commit(v dfg.ValID, nodes []mrrg.NodeID, latency []int) {
	if o.m.routed[v] {
		panic(fmt.Sprintf("val %d is already routed", v))
	}

	o.m.routes[v] = append([]mrrg.NodeID(nil), nodes...)
	o.m.latency[v] = append([]int(nil), latency...)
	o.m.routed[v] = true

	for _, n := range nodes {
		o.inc(n)
	}
}

// RipUp releases the route of a value. Ripping up an unrouted value does
// nothing.
func (o *Occupancy) RipUp(v dfg.ValID) {
	if !o.m.routed[v] {
		return
	}

	for _, n := range o.m.routes[v] {
		o.dec(n)
	}

	o.m.routes[v] = nil
	o.m.latency[v] = nil
	o.m.routed[v] = false
}

// Use returns the number of dataflow nodes on a resource node.
func (o *Occupancy) Use(n mrrg.NodeID) int {
	return o.use[n]
}

// OpsOn returns the ops placed on a function node, ordered by id.
func (o *Occupancy) OpsOn(n mrrg.NodeID) []dfg.OpID {
	return o.onNode[n]
}

func (o *Occupancy) costAt(n mrrg.NodeID, use int) float64 {
	c := float64(o.baseCost(n) * use)

	if over := use - o.m.Graph.Node(n).Capacity; over > 0 {
		c += float64(over) * o.pfactor
	}

	return c
}

// NodeCost returns the current cost of one resource node.
func (o *Occupancy) NodeCost(n mrrg.NodeID) float64 {
	return o.costAt(n, o.use[n])
}

// EntryCost returns what a node would cost with one more occupant.
func (o *Occupancy) EntryCost(n mrrg.NodeID) float64 {
	return o.costAt(n, o.use[n]+1)
}

// Cost returns the cost of the whole resource graph.
func (o *Occupancy) Cost() float64 {
	if o.overUnits == 0 {
		return float64(o.baseUnits)
	}

	return float64(o.baseUnits) + float64(o.overUnits)*o.pfactor
}

// OpCost returns the cost of the node an op sits on, +Inf when unplaced.
func (o *Occupancy) OpCost(op dfg.OpID) float64 {
	n, ok := o.m.Placement(op)
	if !ok {
		return math.Inf(1)
	}

	return o.NodeCost(n)
}

// ValCost returns the cost of the nodes a value occupies, +Inf when unrouted.
func (o *Occupancy) ValCost(v dfg.ValID) float64 {
	if !o.m.routed[v] {
		return math.Inf(1)
	}

	c := 0.0
	for _, n := range o.m.routes[v] {
		c += o.NodeCost(n)
	}

	return c
}

// Overused reports whether some node holds more than its capacity.
func (o *Occupancy) Overused() bool {
	return o.overused > 0
}

// Complete reports whether every op is placed and every value routed.
func (o *Occupancy) Complete() bool {
	for _, n := range o.m.ops {
		if n == mrrg.NoNode {
			return false
		}
	}

	for _, r := range o.m.routed {
		if !r {
			return false
		}
	}

	return true
}
