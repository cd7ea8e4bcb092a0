package anneal

import (
	"math"
	"math/rand"

	"github.com/sarchlab/cgrame/dfg"
	"github.com/sarchlab/cgrame/mapping"
	"github.com/sarchlab/cgrame/mrrg"
	"github.com/sarchlab/cgrame/route"
)

// search is the state of one annealing attempt.
type search struct {
	cfg    Config
	m      *mapping.Mapping
	occ    *mapping.Occupancy
	router *route.Router
	rng    *rand.Rand

	compat    [][]mrrg.NodeID
	compatSet []map[mrrg.NodeID]bool
	temp      float64
}

// undo remembers what a trial changed.
type undo struct {
	ops     []dfg.OpID
	nodes   []mrrg.NodeID
	vals    []dfg.ValID
	routed  []bool
	routes  [][]mrrg.NodeID
	latency [][]int
	delta   float64
}

func newSearch(cfg Config, m *mapping.Mapping) (*search, error) {
	compat, err := mapping.Compatible(m.Graph, m.DFG)
	if err != nil {
		return nil, err
	}

	occ := mapping.NewOccupancy(m, cfg.InitialPFactor)
	s := &search{
		cfg:       cfg,
		m:         m,
		occ:       occ,
		router:    route.New(occ),
		rng:       rand.New(rand.NewSource(cfg.Seed)),
		compat:    compat,
		compatSet: make([]map[mrrg.NodeID]bool, len(compat)),
	}

	for op, nodes := range compat {
		s.compatSet[op] = make(map[mrrg.NodeID]bool, len(nodes))
		for _, n := range nodes {
			s.compatSet[op][n] = true
		}
	}

	return s, nil
}

func (s *search) numOps() int {
	return s.m.DFG.NumOps()
}

// init places every op on a random compatible node, ignoring capacity, and
// routes every value.
func (s *search) init() error {
	for _, op := range s.m.DFG.Ops() {
		c := s.compat[op.ID]
		s.occ.Place(op.ID, c[s.rng.Intn(len(c))])
	}

	for _, v := range s.m.DFG.Vals() {
		if !s.router.RouteVal(v.ID) {
			return &mapping.StructuralError{
				Op:     v.Producer,
				Val:    v.ID,
				Name:   v.Name,
				Reason: "no route from the producer to all consumers",
			}
		}
	}

	return nil
}

func (s *search) legal() bool {
	return s.occ.Complete() && !s.occ.Overused()
}

// pick draws an op and a compatible target. It returns the ops to move and
// their destinations: one op for a move to a free node, two for a swap with
// the first other occupant of the target. ok is false for trials that cannot
// change anything.
func (s *search) pick() (ops []dfg.OpID, targets []mrrg.NodeID, ok bool) {
	op := dfg.OpID(s.rng.Intn(s.numOps()))
	c := s.compat[op]
	target := c[s.rng.Intn(len(c))]

	cur, _ := s.m.Placement(op)
	if target == cur {
		return nil, nil, false
	}

	for _, other := range s.occ.OpsOn(target) {
		if other == op {
			continue
		}

		if !s.compatSet[other][cur] {
			return nil, nil, false
		}

		return []dfg.OpID{op, other}, []mrrg.NodeID{target, cur}, true
	}

	return []dfg.OpID{op}, []mrrg.NodeID{target}, true
}

// affected lists, without repetition, every value produced or consumed by
// the ops.
func (s *search) affected(ops []dfg.OpID) []dfg.ValID {
	seen := make(map[dfg.ValID]bool)
	var vals []dfg.ValID

	add := func(v dfg.ValID) {
		if v != dfg.NoVal && !seen[v] {
			seen[v] = true
			vals = append(vals, v)
		}
	}

	for _, id := range ops {
		op := s.m.DFG.Op(id)
		for _, v := range op.Inputs {
			add(v)
		}

		add(op.Output)
	}

	return vals
}

// apply relocates ops and re-routes their values. On a routing failure the
// previous state is restored and ok is false.
func (s *search) apply(ops []dfg.OpID, targets []mrrg.NodeID) (*undo, bool) {
	before := s.occ.Cost()

	u := &undo{ops: ops, vals: s.affected(ops)}
	for _, op := range ops {
		n, _ := s.m.Placement(op)
		u.nodes = append(u.nodes, n)
	}

	for _, v := range u.vals {
		u.routed = append(u.routed, s.m.IsRouted(v))
		u.routes = append(u.routes, s.m.Route(v))
		lat := make([]int, len(s.m.DFG.Val(v).Uses))
		for i := range lat {
			if s.m.IsRouted(v) {
				lat[i] = s.m.SinkLatency(v, i)
			}
		}
		u.latency = append(u.latency, lat)
	}

	for _, v := range u.vals {
		s.occ.RipUp(v)
	}

	for _, op := range ops {
		s.occ.Unplace(op)
	}

	for i, op := range ops {
		s.occ.Place(op, targets[i])
	}

	for _, v := range u.vals {
		if !s.router.RouteVal(v) {
			s.restore(u)
			return nil, false
		}
	}

	u.delta = s.occ.Cost() - before
	if math.IsNaN(u.delta) {
		u.delta = 0
	}

	return u, true
}

// restore puts back exactly what apply changed.
func (s *search) restore(u *undo) {
	for _, v := range u.vals {
		s.occ.RipUp(v)
	}

	for _, op := range u.ops {
		s.occ.Unplace(op)
	}

	for i, op := range u.ops {
		s.occ.Place(op, u.nodes[i])
	}

	for i, v := range u.vals {
		if u.routed[i] {
			s.occ.Commit(v, u.routes[i], u.latency[i])
		}
	}
}

// trial performs one Metropolis step and reports whether it was accepted.
func (s *search) trial() bool {
	ops, targets, ok := s.pick()
	if !ok {
		return false
	}

	u, ok := s.apply(ops, targets)
	if !ok {
		return false
	}

	if u.delta < 0 || math.Exp(-u.delta/s.temp) > s.rng.Float64() {
		return true
	}

	s.restore(u)

	return false
}

// calibrate sets the initial temperature so that the worst move seen during
// a few undone trials is accepted with probability 0.99.
func (s *search) calibrate() {
	maxDelta := 0.0

	for i := 0; i < s.cfg.CalibrationTrials; i++ {
		ops, targets, ok := s.pick()
		if !ok {
			continue
		}

		u, ok := s.apply(ops, targets)
		if !ok {
			continue
		}

		if d := math.Abs(u.delta); !math.IsInf(d, 0) && d > maxDelta {
			maxDelta = d
		}

		s.restore(u)
	}

	if maxDelta == 0 {
		maxDelta = 1
	}

	s.temp = -maxDelta / math.Log(0.99)
}

func (s *search) record(batch, size int, cost, prevCost, rate float64) {
	s.m.Stats.Batches = batch
	s.m.Stats.Trials += size
	s.m.Stats.Cost = cost
	s.m.Stats.PrevCost = prevCost
	s.m.Stats.AcceptRate = rate
	s.m.Stats.Temperature = s.temp
	s.m.Stats.PFactor = s.occ.PFactor()
}
