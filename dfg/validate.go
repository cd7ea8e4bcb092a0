package dfg

import (
	"errors"
	"fmt"
)

// Validate checks that operands are connected densely from position zero and
// that every cycle of the graph passes through a phi.
func (g *Graph) Validate() error {
	var errs []error

	for _, op := range g.ops {
		seenHole := false
		for i, v := range op.Inputs {
			switch {
			case v == NoVal:
				seenHole = true
			case seenHole:
				errs = append(errs, fmt.Errorf(
					"%w: operand %d of %s connected after a gap",
					ErrInvalid, i, op.Name))
			case g.vals[v].Producer == op.ID && op.Opcode != OpPhi:
				errs = append(errs, fmt.Errorf(
					"%w: %s consumes its own value", ErrInvalid, op.Name))
			}
		}

		if op.Opcode == OpOutput && op.NumInputs() == 0 {
			errs = append(errs, fmt.Errorf(
				"%w: output %s has no input", ErrInvalid, op.Name))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	if _, err := g.TopologicalOrder(); err != nil {
		return err
	}

	return nil
}

// TopologicalOrder sorts the ops so that producers come before consumers. Edges
// into phi ops are back-edges and do not constrain the order.
func (g *Graph) TopologicalOrder() ([]OpID, error) {
	indegree := make([]int, len(g.ops))
	for _, op := range g.ops {
		if op.Opcode == OpPhi {
			continue
		}

		indegree[op.ID] = op.NumInputs()
	}

	queue := make([]OpID, 0, len(g.ops))
	for _, op := range g.ops {
		if indegree[op.ID] == 0 {
			queue = append(queue, op.ID)
		}
	}

	order := make([]OpID, 0, len(g.ops))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		order = append(order, id)

		out := g.ops[id].Output
		if out == NoVal {
			continue
		}

		for _, u := range g.vals[out].Uses {
			if g.ops[u.Op].Opcode == OpPhi {
				continue
			}

			indegree[u.Op]--
			if indegree[u.Op] == 0 {
				queue = append(queue, u.Op)
			}
		}
	}

	if len(order) != len(g.ops) {
		return nil, fmt.Errorf("%w: cycle without a phi", ErrInvalid)
	}

	return order, nil
}
