package arch

import (
	"fmt"

	"github.com/sarchlab/cgrame/mrrg"
)

// Element is one hardware block. The set of element kinds is closed: function
// unit, multiplexer, register file, tristate, memory unit, constant unit and
// I/O unit. Each kind knows how to expand itself into resource-graph nodes and
// how to derive its configuration from a mapping.
type Element interface {
	ElementName() string

	expand(x *expander)
	settings(c *configurator, cycle int) []Setting
}

// FuncUnit is an arithmetic unit executing the opcodes of its class.
type FuncUnit struct {
	Name     string
	Class    string
	Operands int
	Latency  int
}

// Mux selects one of its inputs in every cycle.
type Mux struct {
	Name   string
	Inputs int
}

// RegisterFile stores values across cycles. Every write port reaches every
// register; every register reaches every read port one cycle later.
type RegisterFile struct {
	Name       string
	Registers  int
	ReadPorts  int
	WritePorts int
}

// Tristate is a switchable buffer.
type Tristate struct {
	Name string
}

// MemUnit issues loads and stores. Operand 0 is the address, operand 1 the
// data of a store.
type MemUnit struct {
	Name    string
	Latency int
}

// ConstUnit produces an immediate.
type ConstUnit struct {
	Name string
}

// IOUnit moves values into and out of the array.
type IOUnit struct {
	Name string
}

// ElementName returns the name of the element.
func (f FuncUnit) ElementName() string { return f.Name }

// ElementName returns the name of the element.
func (m Mux) ElementName() string { return m.Name }

// ElementName returns the name of the element.
func (r RegisterFile) ElementName() string { return r.Name }

// ElementName returns the name of the element.
func (t Tristate) ElementName() string { return t.Name }

// ElementName returns the name of the element.
func (m MemUnit) ElementName() string { return m.Name }

// ElementName returns the name of the element.
func (c ConstUnit) ElementName() string { return c.Name }

// ElementName returns the name of the element.
func (i IOUnit) ElementName() string { return i.Name }

// Port returns the qualified name of an element port.
func Port(element, port string) string {
	return element + "." + port
}

// InPort returns the name of the k-th input port.
func InPort(k int) string {
	return fmt.Sprintf("in%d", k)
}

type expander struct {
	g    *mrrg.Graph
	caps Capabilities
}

// function adds, per cycle, a function node with its operand inputs and an
// output that appears latency cycles later.
func (x *expander) function(name string, ops []string, operands, latency int) {
	for t := 0; t < x.g.II; t++ {
		fn := x.g.AddFunction(name, name, t, latency, ops)

		for k := 0; k < operands; k++ {
			in := x.g.AddRouting(Port(name, InPort(k)), name, t, 0)
			x.g.AddOperand(fn, in)
		}

		out := x.g.AddRouting(Port(name, "out"), name, t+latency, 0)
		x.g.Link(fn, out)
	}
}

func (x *expander) lookup(name string, cycle int) mrrg.NodeID {
	id, ok := x.g.Lookup(name, cycle)
	if !ok {
		panic(fmt.Sprintf("node %s@%d not expanded", name, cycle))
	}

	return id
}

func (f FuncUnit) expand(x *expander) {
	x.function(f.Name, x.caps.Ops(f.Class), f.Operands, f.Latency)
}

func (m MemUnit) expand(x *expander) {
	x.function(m.Name, x.caps.Ops(ClassMemory), 2, m.Latency)
}

func (c ConstUnit) expand(x *expander) {
	x.function(c.Name, x.caps.Ops(ClassConst), 0, 0)
}

func (i IOUnit) expand(x *expander) {
	x.function(i.Name, x.caps.Ops(ClassIO), 1, 0)
}

func (m Mux) expand(x *expander) {
	for t := 0; t < x.g.II; t++ {
		out := x.g.AddRouting(Port(m.Name, "out"), m.Name, t, 0)

		for k := 0; k < m.Inputs; k++ {
			in := x.g.AddRouting(Port(m.Name, InPort(k)), m.Name, t, 0)
			x.g.Link(in, out)
		}
	}
}

func (tr Tristate) expand(x *expander) {
	for t := 0; t < x.g.II; t++ {
		in := x.g.AddRouting(Port(tr.Name, "in"), tr.Name, t, 0)
		out := x.g.AddRouting(Port(tr.Name, "out"), tr.Name, t, 0)
		x.g.Link(in, out)
	}
}

func (r RegisterFile) register(i int) string {
	return Port(r.Name, fmt.Sprintf("r%d", i))
}

func (r RegisterFile) readPort(k int) string {
	return Port(r.Name, fmt.Sprintf("rd%d", k))
}

func (r RegisterFile) writePort(k int) string {
	return Port(r.Name, fmt.Sprintf("wr%d", k))
}

func (r RegisterFile) expand(x *expander) {
	for t := 0; t < x.g.II; t++ {
		for k := 0; k < r.WritePorts; k++ {
			x.g.AddRouting(r.writePort(k), r.Name, t, 0)
		}

		for i := 0; i < r.Registers; i++ {
			x.g.AddRouting(r.register(i), r.Name, t, 1)
		}

		for k := 0; k < r.ReadPorts; k++ {
			x.g.AddRouting(r.readPort(k), r.Name, t, 0)
		}
	}

	for t := 0; t < x.g.II; t++ {
		for i := 0; i < r.Registers; i++ {
			reg := x.lookup(r.register(i), t)

			for k := 0; k < r.WritePorts; k++ {
				x.g.Link(x.lookup(r.writePort(k), t), reg)
			}

			x.g.Link(reg, x.lookup(r.register(i), t+1))

			for k := 0; k < r.ReadPorts; k++ {
				x.g.Link(reg, x.lookup(r.readPort(k), t+1))
			}
		}
	}
}
