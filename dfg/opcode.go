package dfg

import (
	"fmt"
	"sort"
)

// Opcode names the operation an Op performs.
type Opcode string

// The opcode vocabulary understood by the mapper.
const (
	OpNop    Opcode = "nop"
	OpInput  Opcode = "input"
	OpOutput Opcode = "output"
	OpConst  Opcode = "const"
	OpAdd    Opcode = "add"
	OpSub    Opcode = "sub"
	OpMul    Opcode = "mul"
	OpDiv    Opcode = "div"
	OpAnd    Opcode = "and"
	OpOr     Opcode = "or"
	OpXor    Opcode = "xor"
	OpShl    Opcode = "shl"
	OpShr    Opcode = "shr"
	OpAShr   Opcode = "ashr"
	OpCmp    Opcode = "cmp"
	OpSelect Opcode = "select"
	OpPhi    Opcode = "phi"
	OpLoad   Opcode = "load"
	OpStore  Opcode = "store"
	OpGEP    Opcode = "gep"
	OpSExt   Opcode = "sext"
	OpZExt   Opcode = "zext"
	OpTrunc  Opcode = "trunc"
)

// arity is the maximum number of operands of each opcode.
var arity = map[Opcode]int{
	OpNop:    0,
	OpInput:  0,
	OpOutput: 1,
	OpConst:  0,
	OpAdd:    2,
	OpSub:    2,
	OpMul:    2,
	OpDiv:    2,
	OpAnd:    2,
	OpOr:     2,
	OpXor:    2,
	OpShl:    2,
	OpShr:    2,
	OpAShr:   2,
	OpCmp:    2,
	OpSelect: 3,
	OpPhi:    2,
	OpLoad:   1,
	OpStore:  2,
	OpGEP:    2,
	OpSExt:   1,
	OpZExt:   1,
	OpTrunc:  1,
}

// sinkOnly lists the opcodes without an output.
var sinkOnly = map[Opcode]bool{
	OpOutput: true,
	OpStore:  true,
	OpNop:    true,
}

// ParseOpcode converts a name into a known opcode.
func ParseOpcode(s string) (Opcode, error) {
	op := Opcode(s)
	if _, ok := arity[op]; !ok {
		return "", fmt.Errorf("%w: unknown opcode %q", ErrInvalid, s)
	}

	return op, nil
}

// Arity returns the maximum number of operands of the opcode.
func (o Opcode) Arity() int {
	a, ok := arity[o]
	if !ok {
		panic(fmt.Sprintf("unknown opcode %q", string(o)))
	}

	return a
}

// HasOutput reports whether ops of this opcode produce a value.
func (o Opcode) HasOutput() bool {
	return !sinkOnly[o]
}

// Opcodes returns the whole vocabulary in name order.
func Opcodes() []Opcode {
	ops := make([]Opcode, 0, len(arity))
	for op := range arity {
		ops = append(ops, op)
	}

	sort.Slice(ops, func(i, j int) bool { return ops[i] < ops[j] })

	return ops
}
