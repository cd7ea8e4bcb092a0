package ilp

import (
	"github.com/go-air/gini/inter"
	"github.com/go-air/gini/logic"
	"github.com/go-air/gini/z"
	"github.com/sarchlab/cgrame/dfg"
	"github.com/sarchlab/cgrame/mrrg"
)

// litSet is a set of per-node variables kept in node order so that the
// generated clauses do not depend on map iteration.
type litSet struct {
	nodes []mrrg.NodeID
	lits  map[mrrg.NodeID]z.Lit
}

func newLitSet() *litSet {
	return &litSet{lits: make(map[mrrg.NodeID]z.Lit)}
}

func (s *litSet) add(n mrrg.NodeID, m z.Lit) {
	if _, ok := s.lits[n]; ok {
		return
	}

	s.nodes = append(s.nodes, n)
	s.lits[n] = m
}

func (s *litSet) get(n mrrg.NodeID) (z.Lit, bool) {
	m, ok := s.lits[n]
	return m, ok
}

// model is the 0/1 program of one mapping problem, written as a circuit.
//
//	F[op][n]     op executes on function node n
//	R[v][n]      value v occupies routing node n
//	S[v][k][n]   routing node n carries v towards its k-th use
type model struct {
	g      *mrrg.Graph
	d      *dfg.Graph
	compat [][]mrrg.NodeID

	c     *logic.C
	roots []z.Lit

	place []*litSet
	use   []*litSet
	sink  [][]*litSet

	costLits []z.Lit
	cost     *logic.CardSort
}

func newModel(g *mrrg.Graph, d *dfg.Graph, compat [][]mrrg.NodeID) *model {
	m := &model{
		g:      g,
		d:      d,
		compat: compat,
		c:      logic.NewC(),
		place:  make([]*litSet, d.NumOps()),
		use:    make([]*litSet, d.NumVals()),
		sink:   make([][]*litSet, d.NumVals()),
	}

	m.declare()
	m.constrainPlacement()
	m.constrainCapacity()
	m.constrainSinks()
	m.constrainFanin()
	m.constrainProducers()
	m.objective()

	return m
}

func (m *model) require(x z.Lit) {
	m.roots = append(m.roots, x)
}

func (m *model) declare() {
	for _, op := range m.d.Ops() {
		m.place[op.ID] = newLitSet()
		for _, n := range m.compat[op.ID] {
			m.place[op.ID].add(n, m.c.Lit())
		}
	}

	for _, v := range m.d.Vals() {
		m.use[v.ID] = newLitSet()
		m.sink[v.ID] = make([]*litSet, len(v.Uses))

		forward := m.forward(m.compat[v.Producer])

		candidates := make(map[mrrg.NodeID]bool)
		for k, u := range v.Uses {
			m.sink[v.ID][k] = newLitSet()

			backward := m.backward(m.sinkNodes(u))
			for _, n := range m.g.RoutingNodes() {
				if forward[n] && backward[n] {
					m.sink[v.ID][k].add(n, m.c.Lit())
					candidates[n] = true
				}
			}
		}

		for _, n := range m.g.RoutingNodes() {
			if candidates[n] {
				m.use[v.ID].add(n, m.c.Lit())
			}
		}
	}
}

// sinkNodes lists the operand nodes a use may end on.
func (m *model) sinkNodes(u dfg.Use) []mrrg.NodeID {
	var sinks []mrrg.NodeID

	for _, fn := range m.compat[u.Op] {
		operands := m.g.Node(fn).Operands
		if u.Operand < len(operands) {
			sinks = append(sinks, operands[u.Operand])
		}
	}

	return sinks
}

// forward marks the routing nodes reachable from the outputs of the given
// function nodes through routing nodes only.
func (m *model) forward(from []mrrg.NodeID) map[mrrg.NodeID]bool {
	seen := make(map[mrrg.NodeID]bool)

	var queue []mrrg.NodeID
	for _, fn := range from {
		queue = append(queue, m.g.Node(fn).Fanout...)
	}

	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]

		if seen[n] || m.g.Node(n).IsFunction() {
			continue
		}

		seen[n] = true
		queue = append(queue, m.g.Node(n).Fanout...)
	}

	return seen
}

// backward marks the routing nodes that reach one of the sinks through
// routing nodes only.
func (m *model) backward(sinks []mrrg.NodeID) map[mrrg.NodeID]bool {
	seen := make(map[mrrg.NodeID]bool)
	queue := append([]mrrg.NodeID(nil), sinks...)

	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]

		if seen[n] || m.g.Node(n).IsFunction() {
			continue
		}

		seen[n] = true
		queue = append(queue, m.g.Node(n).Fanin...)
	}

	return seen
}

func (m *model) atMost(lits []z.Lit, k int) z.Lit {
	if len(lits) <= k {
		return m.c.T
	}

	return m.c.CardSort(lits).Leq(k)
}

func (m *model) constrainPlacement() {
	for _, op := range m.d.Ops() {
		lits := m.lits(m.place[op.ID])

		m.require(m.c.Ors(lits...))
		m.require(m.atMost(lits, 1))
	}
}

func (m *model) constrainCapacity() {
	for _, fn := range m.g.FunctionNodes() {
		var lits []z.Lit
		for _, op := range m.d.Ops() {
			if x, ok := m.place[op.ID].get(fn); ok {
				lits = append(lits, x)
			}
		}

		m.require(m.atMost(lits, m.g.Node(fn).Capacity))
	}

	for _, n := range m.g.RoutingNodes() {
		var lits []z.Lit
		for _, v := range m.d.Vals() {
			if x, ok := m.use[v.ID].get(n); ok {
				lits = append(lits, x)
			}
		}

		m.require(m.atMost(lits, m.g.Node(n).Capacity))
	}
}

// constrainSinks ties S to R and forces the operand node of a placed
// consumer to carry the value.
func (m *model) constrainSinks() {
	for _, v := range m.d.Vals() {
		r := m.use[v.ID]

		for _, n := range r.nodes {
			var carriers []z.Lit
			for _, s := range m.sink[v.ID] {
				if x, ok := s.get(n); ok {
					m.require(m.c.Implies(x, r.lits[n]))
					carriers = append(carriers, x)
				}
			}

			m.require(m.c.Implies(r.lits[n], m.c.Ors(carriers...)))
		}

		for k, u := range v.Uses {
			s := m.sink[v.ID][k]

			for _, fn := range m.compat[u.Op] {
				f := m.place[u.Op].lits[fn]
				operand := m.g.Node(fn).Operands[u.Operand]

				if x, ok := s.get(operand); ok {
					m.require(m.c.Implies(f, x))
				} else {
					m.require(f.Not())
				}
			}
		}
	}
}

// driver returns the variable telling that node p feeds the value into the
// routing graph: S or R of a routing node, or F of the producer.
func (m *model) driver(v *dfg.Val, vars *litSet, p mrrg.NodeID) (z.Lit, bool) {
	if m.g.Node(p).IsFunction() {
		return m.place[v.Producer].get(p)
	}

	return vars.get(p)
}

func (m *model) drivers(v *dfg.Val, vars *litSet, n mrrg.NodeID) []z.Lit {
	var lits []z.Lit

	for _, p := range m.g.Node(n).Fanin {
		if p == n {
			continue
		}

		if x, ok := m.driver(v, vars, p); ok {
			lits = append(lits, x)
		}
	}

	return lits
}

// constrainFanin makes every used sink node fed by an active fanin and
// forbids a routing node from taking the same value from two fanins.
func (m *model) constrainFanin() {
	for _, v := range m.d.Vals() {
		for _, s := range m.sink[v.ID] {
			for _, n := range s.nodes {
				support := m.drivers(v, s, n)
				m.require(m.c.Implies(s.lits[n], m.c.Ors(support...)))
			}
		}

		r := m.use[v.ID]
		for _, n := range r.nodes {
			fanin := m.drivers(v, r, n)
			if len(fanin) > 1 {
				m.require(m.c.Implies(r.lits[n], m.atMost(fanin, 1)))
			}
		}
	}
}

func (m *model) constrainProducers() {
	for _, v := range m.d.Vals() {
		if len(v.Uses) == 0 {
			continue
		}

		for _, fn := range m.compat[v.Producer] {
			var outs []z.Lit
			for _, o := range m.g.Node(fn).Fanout {
				if x, ok := m.use[v.ID].get(o); ok {
					outs = append(outs, x)
				}
			}

			f := m.place[v.Producer].lits[fn]
			m.require(m.c.Implies(f, m.c.Ors(outs...)))
		}
	}
}

func (m *model) objective() {
	for _, v := range m.d.Vals() {
		m.costLits = append(m.costLits, m.lits(m.use[v.ID])...)
	}

	m.cost = m.c.CardSort(m.costLits)
}

func (m *model) lits(s *litSet) []z.Lit {
	lits := make([]z.Lit, 0, len(s.nodes))
	for _, n := range s.nodes {
		lits = append(lits, s.lits[n])
	}

	return lits
}

// encode writes the circuit and its required outputs as clauses.
func (m *model) encode(dst inter.Adder) {
	m.c.ToCnf(dst)

	for _, x := range m.roots {
		dst.Add(x)
		dst.Add(0)
	}
}

// size returns the number of variables carrying placement or routing choices.
func (m *model) size() int {
	n := len(m.costLits)

	for _, p := range m.place {
		n += len(p.nodes)
	}

	for _, sinks := range m.sink {
		for _, s := range sinks {
			n += len(s.nodes)
		}
	}

	return n
}
