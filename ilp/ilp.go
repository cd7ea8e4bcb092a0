// Package ilp maps a dataflow graph exactly, as a 0/1 program solved by a
// SAT solver. The program minimizes the number of routing nodes in use.
package ilp

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/cgrame/dfg"
	"github.com/sarchlab/cgrame/mapping"
	"github.com/sarchlab/cgrame/mrrg"
)

// HookPosIncumbent marks a new best solution.
var HookPosIncumbent = &sim.HookPos{Name: "ILP Incumbent"}

// HookPosDone marks the end of an exact run.
var HookPosDone = &sim.HookPos{Name: "ILP Done"}

// IncumbentInfo is the hook detail of HookPosIncumbent.
type IncumbentInfo struct {
	Objective  int
	LowerBound int
	Solutions  int
}

// Mapper is the exact mapper.
type Mapper struct {
	*sim.HookableBase

	cfg Config
}

// New creates an exact mapper.
func New(cfg Config) *Mapper {
	if cfg.Solver != "gini" {
		panic(fmt.Sprintf("unsupported solver %q", cfg.Solver))
	}

	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultConfig().PollInterval
	}

	return &Mapper{
		HookableBase: sim.NewHookableBase(),
		cfg:          cfg,
	}
}

// Map solves one mapping problem. Infeasible and Timeout are reported through
// the status of the returned mapping. A structural error is returned when an
// op has no compatible node, and ctx.Err() when the run was cancelled.
func (x *Mapper) Map(
	ctx context.Context,
	g *mrrg.Graph,
	d *dfg.Graph,
) (*mapping.Mapping, error) {
	start := time.Now()
	m := mapping.New(g, d)

	compat, err := mapping.Compatible(g, d)
	if err != nil {
		m.Status = mapping.StatusInfeasible
		return m, err
	}

	model := newModel(g, d, compat)
	slog.Debug("ilp model built",
		"dfg", d.Name, "ii", g.II, "vars", model.size(), "clauses", len(model.roots))

	o := newOptimizer(x.cfg, model, start)
	o.onSolution = func(s *solution, lowerBound int) {
		mapping.Trace("ilp incumbent",
			"objective", s.objective, "lower_bound", lowerBound, "cuts", o.cuts)

		x.InvokeHook(sim.HookCtx{
			Domain: x,
			Pos:    HookPosIncumbent,
			Item:   m,
			Detail: IncumbentInfo{
				Objective:  s.objective,
				LowerBound: lowerBound,
				Solutions:  o.solutions,
			},
		})
	}

	outcome := o.run(ctx)
	if o.best != nil && outcome != OutcomeInterrupted {
		populate(m, o.best)
		m.Stats.Objective = o.best.objective
	}

	m.Status = outcome.Status()
	m.Stats.LowerBound = o.lowerBound
	m.Stats.Solutions = o.solutions
	m.Stats.Optimal = outcome == OutcomeOptimal
	m.Stats.Elapsed = time.Since(start)

	if m.Status == mapping.StatusMapped {
		if issues := mapping.Verify(m); len(issues) > 0 {
			slog.Error("ilp solution is not legal",
				"dfg", d.Name, "ii", g.II, "issue", issues[0].Message)
			m.Status = mapping.StatusInternalError
		}
	}

	slog.Info("ilp finished",
		"dfg", d.Name,
		"ii", g.II,
		"outcome", outcome.String(),
		"objective", m.Stats.Objective,
		"lower_bound", m.Stats.LowerBound,
		"solutions", m.Stats.Solutions,
		"elapsed", m.Stats.Elapsed)

	x.InvokeHook(sim.HookCtx{
		Domain: x,
		Pos:    HookPosDone,
		Item:   m,
		Detail: outcome,
	})

	if outcome == OutcomeInterrupted {
		return m, ctx.Err()
	}

	return m, nil
}

func populate(m *mapping.Mapping, s *solution) {
	occ := mapping.NewOccupancy(m, 1)

	for op, n := range s.ops {
		occ.Place(dfg.OpID(op), n)
	}

	for v, route := range s.routes {
		occ.Commit(dfg.ValID(v), route, s.latency[v])
	}

	m.Stats.Cost = occ.Cost()
}
