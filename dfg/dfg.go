// Package dfg defines the dataflow graph of a loop body: operations connected
// through values, each value with one producer and any number of consumers.
package dfg

import (
	"errors"
	"fmt"
)

// ErrInvalid is wrapped by every malformed-graph error.
var ErrInvalid = errors.New("invalid dataflow graph")

// OpID is the index of an Op inside its Graph.
type OpID int

// ValID is the index of a Val inside its Graph.
type ValID int

// NoVal marks an unconnected operand or a missing output.
const NoVal ValID = -1

// Op is one operation of the loop body.
type Op struct {
	ID     OpID
	Name   string
	Opcode Opcode

	// Inputs holds one entry per operand position, NoVal when unconnected.
	Inputs []ValID
	Output ValID

	// Const is the immediate of a const op.
	Const int64
}

// NumInputs returns the number of connected operands.
func (o *Op) NumInputs() int {
	n := 0
	for _, v := range o.Inputs {
		if v != NoVal {
			n++
		}
	}

	return n
}

// Use is one consumption of a value.
type Use struct {
	Op      OpID
	Operand int
}

// Val is a value flowing from its producer to its consumers.
type Val struct {
	ID       ValID
	Name     string
	Producer OpID
	Uses     []Use
}

// Graph is a dataflow graph. It is built once and treated as immutable
// afterwards.
type Graph struct {
	Name string

	ops    []*Op
	vals   []*Val
	byName map[string]OpID
}

// New creates an empty graph.
func New(name string) *Graph {
	return &Graph{
		Name:   name,
		byName: make(map[string]OpID),
	}
}

// AddOp appends an operation.
func (g *Graph) AddOp(name string, opcode Opcode) (OpID, error) {
	if _, dup := g.byName[name]; dup {
		return 0, fmt.Errorf("%w: duplicated op %q", ErrInvalid, name)
	}

	if _, err := ParseOpcode(string(opcode)); err != nil {
		return 0, err
	}

	id := OpID(len(g.ops))
	inputs := make([]ValID, opcode.Arity())
	for i := range inputs {
		inputs[i] = NoVal
	}

	g.ops = append(g.ops, &Op{
		ID:     id,
		Name:   name,
		Opcode: opcode,
		Inputs: inputs,
		Output: NoVal,
	})
	g.byName[name] = id

	return id, nil
}

// MustAddOp is AddOp that panics on error.
func (g *Graph) MustAddOp(name string, opcode Opcode) OpID {
	id, err := g.AddOp(name, opcode)
	if err != nil {
		panic(err)
	}

	return id
}

// Connect feeds the output of from into operand slot of to. The output value
// of from is created on its first use.
func (g *Graph) Connect(from, to OpID, operand int) (ValID, error) {
	src, dst := g.Op(from), g.Op(to)

	if !src.Opcode.HasOutput() {
		return NoVal, fmt.Errorf("%w: %s (%s) produces no value",
			ErrInvalid, src.Name, src.Opcode)
	}

	if operand < 0 || operand >= len(dst.Inputs) {
		return NoVal, fmt.Errorf("%w: %s (%s) has no operand %d",
			ErrInvalid, dst.Name, dst.Opcode, operand)
	}

	if dst.Inputs[operand] != NoVal {
		return NoVal, fmt.Errorf("%w: operand %d of %s connected twice",
			ErrInvalid, operand, dst.Name)
	}

	if src.Output == NoVal {
		src.Output = ValID(len(g.vals))
		g.vals = append(g.vals, &Val{
			ID:       src.Output,
			Name:     src.Name,
			Producer: from,
		})
	}

	val := g.vals[src.Output]
	val.Uses = append(val.Uses, Use{Op: to, Operand: operand})
	dst.Inputs[operand] = val.ID

	return val.ID, nil
}

// MustConnect is Connect that panics on error.
func (g *Graph) MustConnect(from, to OpID, operand int) ValID {
	v, err := g.Connect(from, to, operand)
	if err != nil {
		panic(err)
	}

	return v
}

// Op returns the op behind an id.
func (g *Graph) Op(id OpID) *Op {
	if id < 0 || int(id) >= len(g.ops) {
		panic(fmt.Sprintf("op %d out of range", id))
	}

	return g.ops[id]
}

// Val returns the value behind an id.
func (g *Graph) Val(id ValID) *Val {
	if id < 0 || int(id) >= len(g.vals) {
		panic(fmt.Sprintf("val %d out of range", id))
	}

	return g.vals[id]
}

// OpByName finds an op by name.
func (g *Graph) OpByName(name string) (OpID, bool) {
	id, ok := g.byName[name]
	return id, ok
}

// Ops returns all ops in insertion order.
func (g *Graph) Ops() []*Op {
	return g.ops
}

// Vals returns all values in creation order.
func (g *Graph) Vals() []*Val {
	return g.vals
}

// NumOps returns the number of ops.
func (g *Graph) NumOps() int {
	return len(g.ops)
}

// NumVals returns the number of values.
func (g *Graph) NumVals() int {
	return len(g.vals)
}
