package arch

import (
	"sort"

	"github.com/sarchlab/cgrame/dfg"
)

// Unit classes looked up in a Capabilities table.
const (
	ClassALU    = "alu"
	ClassMemory = "mem"
	ClassIO     = "io"
	ClassConst  = "const"
)

// Capabilities maps a unit class to the opcodes its units execute. A table is
// never modified after creation; With returns a changed copy.
type Capabilities struct {
	ops map[string][]string
}

// NewCapabilities copies a class-to-opcodes table.
func NewCapabilities(table map[string][]string) Capabilities {
	c := Capabilities{ops: make(map[string][]string, len(table))}
	for class, ops := range table {
		c.ops[class] = sortedCopy(ops)
	}

	return c
}

// DefaultCapabilities returns the table of a HyCUBE-like array.
func DefaultCapabilities() Capabilities {
	alu := []string{}
	for _, op := range []dfg.Opcode{
		dfg.OpAdd, dfg.OpSub, dfg.OpMul, dfg.OpDiv,
		dfg.OpAnd, dfg.OpOr, dfg.OpXor,
		dfg.OpShl, dfg.OpShr, dfg.OpAShr,
		dfg.OpCmp, dfg.OpSelect, dfg.OpPhi, dfg.OpGEP,
		dfg.OpSExt, dfg.OpZExt, dfg.OpTrunc, dfg.OpNop,
	} {
		alu = append(alu, string(op))
	}

	return NewCapabilities(map[string][]string{
		ClassALU:    alu,
		ClassMemory: {string(dfg.OpLoad), string(dfg.OpStore)},
		ClassIO:     {string(dfg.OpInput), string(dfg.OpOutput)},
		ClassConst:  {string(dfg.OpConst)},
	})
}

// Ops returns the sorted opcodes of a class.
func (c Capabilities) Ops(class string) []string {
	return append([]string(nil), c.ops[class]...)
}

// Classes returns the known classes in name order.
func (c Capabilities) Classes() []string {
	classes := make([]string, 0, len(c.ops))
	for class := range c.ops {
		classes = append(classes, class)
	}

	sort.Strings(classes)

	return classes
}

// With returns a copy of the table where class executes exactly ops.
func (c Capabilities) With(class string, ops ...string) Capabilities {
	n := Capabilities{ops: make(map[string][]string, len(c.ops)+1)}
	for k, v := range c.ops {
		n.ops[k] = v
	}

	n.ops[class] = sortedCopy(ops)

	return n
}

func sortedCopy(ops []string) []string {
	s := append([]string(nil), ops...)
	sort.Strings(s)

	return s
}
