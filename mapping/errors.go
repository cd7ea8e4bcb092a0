package mapping

import (
	"errors"
	"fmt"

	"github.com/sarchlab/cgrame/dfg"
	"github.com/sarchlab/cgrame/mrrg"
)

// ErrStructural marks a dataflow graph that can never fit the resource graph.
var ErrStructural = errors.New("structurally unmappable")

// StructuralError names the dataflow node that cannot be mapped.
type StructuralError struct {
	Op     dfg.OpID
	Val    dfg.ValID
	Name   string
	Reason string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("%s %q: %s", ErrStructural, e.Name, e.Reason)
}

// Is lets errors.Is match ErrStructural.
func (e *StructuralError) Is(target error) bool {
	return target == ErrStructural
}

// Compatible lists, per op, the function nodes able to execute it in graph
// order. An op without any candidate yields a StructuralError.
func Compatible(g *mrrg.Graph, d *dfg.Graph) ([][]mrrg.NodeID, error) {
	compat := make([][]mrrg.NodeID, d.NumOps())

	for _, op := range d.Ops() {
		operands := op.NumInputs()

		for _, id := range g.FunctionNodes() {
			n := g.Node(id)
			if n.Supports(string(op.Opcode)) && len(n.Operands) >= operands {
				compat[op.ID] = append(compat[op.ID], id)
			}
		}

		if len(compat[op.ID]) == 0 {
			return nil, &StructuralError{
				Op:     op.ID,
				Val:    dfg.NoVal,
				Name:   op.Name,
				Reason: fmt.Sprintf("no function node executes %s with %d operands", op.Opcode, operands),
			}
		}
	}

	return compat, nil
}
