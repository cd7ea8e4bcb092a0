package dfg

import (
	"errors"
	"fmt"
)

// ErrExhausted is returned when an input op runs out of values.
var ErrExhausted = errors.New("input exhausted")

// Interpreter executes a graph one loop iteration at a time on 32-bit words.
// Input ops consume fed values in order, output ops collect what they
// receive, and load/store act on a sparse word-addressed memory. A phi takes
// its operand 0 in the first iteration and its operand 1 from the previous
// iteration afterwards.
type Interpreter struct {
	g     *Graph
	order []OpID

	inputs  map[OpID][]int32
	outputs map[OpID][]int32
	memory  map[int32]int32

	cur  []int32
	prev []int32
	done []bool
	iter int
}

// NewInterpreter prepares a validated graph for execution.
func NewInterpreter(g *Graph) (*Interpreter, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}

	order, err := g.TopologicalOrder()
	if err != nil {
		return nil, err
	}

	return &Interpreter{
		g:       g,
		order:   order,
		inputs:  make(map[OpID][]int32),
		outputs: make(map[OpID][]int32),
		memory:  make(map[int32]int32),
		cur:     make([]int32, g.NumVals()),
		prev:    make([]int32, g.NumVals()),
		done:    make([]bool, g.NumOps()),
	}, nil
}

// Feed appends values to the stream of an input op.
func (in *Interpreter) Feed(name string, values ...int32) error {
	id, ok := in.g.OpByName(name)
	if !ok || in.g.Op(id).Opcode != OpInput {
		return fmt.Errorf("%w: %q is not an input", ErrInvalid, name)
	}

	in.inputs[id] = append(in.inputs[id], values...)

	return nil
}

// Outputs returns what an output op has received so far.
func (in *Interpreter) Outputs(name string) []int32 {
	id, ok := in.g.OpByName(name)
	if !ok {
		return nil
	}

	return in.outputs[id]
}

// Poke writes a memory word.
func (in *Interpreter) Poke(addr, value int32) {
	in.memory[addr] = value
}

// Peek reads a memory word. Unwritten words read as zero.
func (in *Interpreter) Peek(addr int32) int32 {
	return in.memory[addr]
}

// Iterations returns the number of completed iterations.
func (in *Interpreter) Iterations() int {
	return in.iter
}

// Run executes n iterations.
func (in *Interpreter) Run(n int) error {
	for i := 0; i < n; i++ {
		if err := in.step(); err != nil {
			return fmt.Errorf("iteration %d: %w", in.iter, err)
		}
	}

	return nil
}

func (in *Interpreter) step() error {
	for i := range in.done {
		in.done[i] = false
	}

	for _, id := range in.order {
		if err := in.eval(id); err != nil {
			return err
		}
	}

	in.prev, in.cur = in.cur, in.prev
	in.iter++

	return nil
}

// operand returns the value on an operand slot of the current iteration.
// Unconnected slots read as zero.
func (in *Interpreter) operand(op *Op, k int) (int32, error) {
	v := op.Inputs[k]
	if v == NoVal {
		return 0, nil
	}

	if err := in.eval(in.g.Val(v).Producer); err != nil {
		return 0, err
	}

	return in.cur[v], nil
}

func (in *Interpreter) eval(id OpID) error {
	if in.done[id] {
		return nil
	}

	in.done[id] = true
	op := in.g.Op(id)

	if op.Opcode == OpPhi {
		return in.phi(op)
	}

	args := make([]int32, op.NumInputs())
	for k := range args {
		x, err := in.operand(op, k)
		if err != nil {
			return err
		}

		args[k] = x
	}

	result, err := in.execute(op, args)
	if err != nil {
		return fmt.Errorf("op %q: %w", op.Name, err)
	}

	if op.Output != NoVal {
		in.cur[op.Output] = result
	}

	return nil
}

func (in *Interpreter) phi(op *Op) error {
	var x int32

	if in.iter == 0 {
		var err error
		if x, err = in.operand(op, 0); err != nil {
			return err
		}
	} else if v := op.Inputs[1]; v != NoVal {
		x = in.prev[v]
	}

	if op.Output != NoVal {
		in.cur[op.Output] = x
	}

	return nil
}

func (in *Interpreter) execute(op *Op, a []int32) (int32, error) {
	switch op.Opcode {
	case OpNop:
		return 0, nil
	case OpInput:
		stream := in.inputs[op.ID]
		if len(stream) == 0 {
			return 0, ErrExhausted
		}

		in.inputs[op.ID] = stream[1:]

		return stream[0], nil
	case OpOutput:
		in.outputs[op.ID] = append(in.outputs[op.ID], a[0])
		return 0, nil
	case OpConst:
		return int32(op.Const), nil
	case OpAdd, OpGEP:
		return a[0] + a[1], nil
	case OpSub:
		return a[0] - a[1], nil
	case OpMul:
		return a[0] * a[1], nil
	case OpDiv:
		if a[1] == 0 {
			return 0, errors.New("division by zero")
		}

		return a[0] / a[1], nil
	case OpAnd:
		return a[0] & a[1], nil
	case OpOr:
		return a[0] | a[1], nil
	case OpXor:
		return a[0] ^ a[1], nil
	case OpShl:
		return a[0] << (uint32(a[1]) & 31), nil
	case OpShr:
		return int32(uint32(a[0]) >> (uint32(a[1]) & 31)), nil
	case OpAShr:
		return a[0] >> (uint32(a[1]) & 31), nil
	case OpCmp:
		if a[0] < a[1] {
			return 1, nil
		}

		return 0, nil
	case OpSelect:
		if a[0] != 0 {
			return a[1], nil
		}

		return a[2], nil
	case OpLoad:
		return in.memory[a[0]], nil
	case OpStore:
		in.memory[a[0]] = a[1]
		return 0, nil
	case OpSExt, OpZExt, OpTrunc:
		return a[0], nil
	default:
		panic(fmt.Sprintf("cannot execute %s", op.Opcode))
	}
}
