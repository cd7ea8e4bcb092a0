package ilp

import (
	"context"
	"time"

	"github.com/go-air/gini"
	"github.com/go-air/gini/z"
	"github.com/sarchlab/cgrame/dfg"
	"github.com/sarchlab/cgrame/mrrg"
)

// satisfiable is the solver result of a model with a solution.
const satisfiable = 1

// interruption tells why a solve did not finish.
type interruption int

const (
	finished interruption = iota
	timedOut
	cancelled
)

// solution is a satisfying assignment read back from the solver.
type solution struct {
	ops       []mrrg.NodeID
	routes    [][]mrrg.NodeID
	latency   [][]int
	objective int
}

// optimizer runs the bound search over one model.
type optimizer struct {
	cfg      Config
	m        *model
	sat      *gini.Gini
	deadline time.Time

	onSolution func(s *solution, lowerBound int)

	best       *solution
	lowerBound int
	solutions  int
	cuts       int
}

func newOptimizer(cfg Config, m *model, start time.Time) *optimizer {
	o := &optimizer{
		cfg: cfg,
		m:   m,
		sat: gini.New(),
	}

	if cfg.TimeLimit > 0 {
		o.deadline = start.Add(cfg.TimeLimit)
	}

	m.encode(o.sat)

	return o
}

// run tightens the bound on the number of used routing nodes until it meets
// the best solution, the gap is closed or a limit is hit.
func (o *optimizer) run(ctx context.Context) Outcome {
	bound := -1

	for {
		res, why := o.solveConnected(ctx, bound)

		switch why {
		case cancelled:
			return OutcomeInterrupted
		case timedOut:
			if o.best != nil {
				return OutcomeSuboptimal
			}

			return OutcomeTimeout
		}

		if res == satisfiable {
			o.best = o.extract()
			o.solutions++

			if o.onSolution != nil {
				o.onSolution(o.best, o.lowerBound)
			}
		} else {
			if bound < 0 {
				return OutcomeInfeasible
			}

			o.lowerBound = bound + 1
		}

		if o.lowerBound >= o.best.objective {
			o.lowerBound = o.best.objective
			return OutcomeOptimal
		}

		if o.gapClosed() {
			return OutcomeSuboptimal
		}

		if o.cfg.SolutionLimit > 0 && o.solutions >= o.cfg.SolutionLimit {
			return OutcomeSuboptimal
		}

		bound = o.lowerBound + (o.best.objective-1-o.lowerBound)/2
	}
}

func (o *optimizer) gapClosed() bool {
	if o.cfg.MIPGap <= 0 {
		return false
	}

	gap := float64(o.best.objective-o.lowerBound) / float64(max(o.best.objective, 1))

	return gap <= o.cfg.MIPGap
}

// solveConnected solves under the bound and adds connectivity cuts until the
// routes in the assignment are trees rooted at their producers.
func (o *optimizer) solveConnected(ctx context.Context, bound int) (int, interruption) {
	for {
		if bound >= 0 {
			o.sat.Assume(o.m.cost.Leq(bound))
		}

		res, why := o.solve(ctx)
		if why != finished || res != satisfiable {
			return res, why
		}

		cuts := o.m.cuts(o.sat)
		if len(cuts) == 0 {
			return res, finished
		}

		for _, clause := range cuts {
			for _, x := range clause {
				o.sat.Add(x)
			}
			o.sat.Add(0)
		}

		o.cuts += len(cuts)
	}
}

func (o *optimizer) solve(ctx context.Context) (int, interruption) {
	if ctx.Err() != nil {
		return 0, cancelled
	}

	var limit <-chan time.Time
	if !o.deadline.IsZero() {
		left := time.Until(o.deadline)
		if left <= 0 {
			return 0, timedOut
		}

		timer := time.NewTimer(left)
		defer timer.Stop()
		limit = timer.C
	}

	poll := time.NewTicker(o.cfg.PollInterval)
	defer poll.Stop()

	s := o.sat.GoSolve()

	for {
		select {
		case <-ctx.Done():
			s.Stop()
			return 0, cancelled
		case <-limit:
			s.Stop()
			return 0, timedOut
		case <-poll.C:
			if res, ok := s.Test(); ok {
				return res, finished
			}
		}
	}
}

func (o *optimizer) extract() *solution {
	m := o.m
	s := &solution{
		ops:     make([]mrrg.NodeID, m.d.NumOps()),
		routes:  make([][]mrrg.NodeID, m.d.NumVals()),
		latency: make([][]int, m.d.NumVals()),
	}

	for _, x := range m.costLits {
		if o.sat.Value(x) {
			s.objective++
		}
	}

	for _, op := range m.d.Ops() {
		s.ops[op.ID] = mrrg.NoNode

		for _, n := range m.place[op.ID].nodes {
			if o.sat.Value(m.place[op.ID].lits[n]) {
				s.ops[op.ID] = n
				break
			}
		}
	}

	for _, v := range m.d.Vals() {
		s.routes[v.ID], s.latency[v.ID] = m.route(o.sat, v, s.ops)
	}

	return s
}

// active returns the nodes of a variable set that are true in the model.
func active(sat *gini.Gini, s *litSet) map[mrrg.NodeID]bool {
	on := make(map[mrrg.NodeID]bool)

	for _, n := range s.nodes {
		if sat.Value(s.lits[n]) {
			on[n] = true
		}
	}

	return on
}

// walk searches breadth-first from the source through the given nodes and
// returns the predecessor of every node reached.
func (m *model) walk(src mrrg.NodeID, through map[mrrg.NodeID]bool) map[mrrg.NodeID]mrrg.NodeID {
	prev := map[mrrg.NodeID]mrrg.NodeID{src: mrrg.NoNode}
	queue := []mrrg.NodeID{src}

	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]

		for _, f := range m.g.Node(n).Fanout {
			if _, seen := prev[f]; seen || !through[f] {
				continue
			}

			prev[f] = n
			queue = append(queue, f)
		}
	}

	return prev
}

// route rebuilds the route of a value from the sink variables: one path per
// use, joined in use order.
func (m *model) route(sat *gini.Gini, v *dfg.Val, ops []mrrg.NodeID) ([]mrrg.NodeID, []int) {
	src := ops[v.Producer]
	arrival := map[mrrg.NodeID]int{src: 0}
	seen := make(map[mrrg.NodeID]bool)

	var nodes []mrrg.NodeID
	latency := make([]int, len(v.Uses))

	for k, u := range v.Uses {
		prev := m.walk(src, active(sat, m.sink[v.ID][k]))
		target := m.g.Node(ops[u.Op]).Operands[u.Operand]

		var path []mrrg.NodeID
		for n := target; n != src; n = prev[n] {
			path = append(path, n)
		}

		for i := len(path) - 1; i >= 0; i-- {
			n := path[i]
			p := src
			if i+1 < len(path) {
				p = path[i+1]
			}

			if _, ok := arrival[n]; !ok {
				arrival[n] = arrival[p] + m.g.Node(p).Latency
			}

			if !seen[n] {
				seen[n] = true
				nodes = append(nodes, n)
			}
		}

		latency[k] = arrival[target]
	}

	return nodes, latency
}

// cuts finds uses whose sink is not connected to the producer through the
// active sink variables. For each, the returned clause demands that the sink
// is dropped or that the disconnected part gains a driver from outside.
func (m *model) cuts(sat *gini.Gini) [][]z.Lit {
	var cuts [][]z.Lit

	for _, v := range m.d.Vals() {
		src := m.placed(sat, v.Producer)

		for k, u := range v.Uses {
			s := m.sink[v.ID][k]
			on := active(sat, s)
			target := m.g.Node(m.placed(sat, u.Op)).Operands[u.Operand]

			reached := m.walk(src, on)
			if _, ok := reached[target]; ok {
				continue
			}

			cuts = append(cuts, m.cut(v, s, on, reached, target))
		}
	}

	return cuts
}

func (m *model) cut(
	v *dfg.Val,
	s *litSet,
	on map[mrrg.NodeID]bool,
	reached map[mrrg.NodeID]mrrg.NodeID,
	target mrrg.NodeID,
) []z.Lit {
	island := make(map[mrrg.NodeID]bool)
	for n := range on {
		if _, ok := reached[n]; !ok {
			island[n] = true
		}
	}

	clause := []z.Lit{s.lits[target].Not()}
	added := make(map[z.Lit]bool)

	for _, n := range s.nodes {
		if !island[n] {
			continue
		}

		for _, p := range m.g.Node(n).Fanin {
			if island[p] {
				continue
			}

			if x, ok := m.driver(v, s, p); ok && !added[x] {
				added[x] = true
				clause = append(clause, x)
			}
		}
	}

	return clause
}

func (m *model) placed(sat *gini.Gini, op dfg.OpID) mrrg.NodeID {
	p := m.place[op]
	for _, n := range p.nodes {
		if sat.Value(p.lits[n]) {
			return n
		}
	}

	panic("op is not placed in a satisfying assignment")
}
