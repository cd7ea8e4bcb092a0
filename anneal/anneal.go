// Package anneal places and routes a dataflow graph with simulated annealing
// over a negotiated-congestion router.
package anneal

import (
	"context"
	"log/slog"
	"time"

	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/cgrame/dfg"
	"github.com/sarchlab/cgrame/mapping"
	"github.com/sarchlab/cgrame/mrrg"
)

// HookPosBatchEnd marks the end of an annealing batch.
var HookPosBatchEnd = &sim.HookPos{Name: "Anneal Batch End"}

// HookPosDone marks the end of an annealing run.
var HookPosDone = &sim.HookPos{Name: "Anneal Done"}

// BatchInfo is the hook detail of HookPosBatchEnd.
type BatchInfo struct {
	Batch       int
	Cost        float64
	PrevCost    float64
	AcceptRate  float64
	Temperature float64
	PFactor     float64
}

// Annealer is the simulated-annealing mapper.
type Annealer struct {
	*sim.HookableBase

	cfg Config
}

// New creates an annealer.
func New(cfg Config) *Annealer {
	return &Annealer{
		HookableBase: sim.NewHookableBase(),
		cfg:          cfg,
	}
}

// Map runs one annealing attempt. A structural error is returned, with status
// Infeasible, when an op has no compatible node or a value cannot be routed
// at all. Cancelling ctx stops the search at the next batch boundary.
func (a *Annealer) Map(
	ctx context.Context,
	g *mrrg.Graph,
	d *dfg.Graph,
) (*mapping.Mapping, error) {
	start := time.Now()
	m := mapping.New(g, d)

	s, err := newSearch(a.cfg, m)
	if err != nil {
		m.Status = mapping.StatusInfeasible
		return m, err
	}

	if err := s.init(); err != nil {
		m.Status = mapping.StatusInfeasible
		return m, err
	}

	slog.Debug("anneal initialized",
		"dfg", d.Name, "ii", g.II, "cost", s.occ.Cost(), "legal", s.legal())

	if s.legal() {
		return a.finish(s, mapping.StatusMapped, start), nil
	}

	s.calibrate()
	slog.Debug("anneal calibrated", "temperature", s.temp)

	status := a.anneal(ctx, s, start)
	m = a.finish(s, status, start)

	if status == mapping.StatusInterrupted {
		return m, ctx.Err()
	}

	return m, nil
}

func (a *Annealer) anneal(ctx context.Context, s *search, start time.Time) mapping.Status {
	batchSize := s.numOps() * a.cfg.SwapFactor
	prevCost := s.occ.Cost()

	for batch := 1; ; batch++ {
		if ctx.Err() != nil {
			return mapping.StatusInterrupted
		}

		if a.cfg.TimeLimit > 0 && time.Since(start) >= a.cfg.TimeLimit {
			return mapping.StatusTimeout
		}

		accepted := 0
		for i := 0; i < batchSize; i++ {
			if s.trial() {
				accepted++
			}
		}

		cost := s.occ.Cost()
		rate := float64(accepted) / float64(batchSize)
		s.record(batch, batchSize, cost, prevCost, rate)

		mapping.Trace("anneal batch",
			"batch", batch,
			"cost", cost,
			"prev_cost", prevCost,
			"accept_rate", rate,
			"temperature", s.temp,
			"pfactor", s.occ.PFactor())

		a.InvokeHook(sim.HookCtx{
			Domain: a,
			Pos:    HookPosBatchEnd,
			Item:   s.m,
			Detail: BatchInfo{
				Batch:       batch,
				Cost:        cost,
				PrevCost:    prevCost,
				AcceptRate:  rate,
				Temperature: s.temp,
				PFactor:     s.occ.PFactor(),
			},
		})

		if s.legal() {
			return mapping.StatusMapped
		}

		if rate < a.cfg.ColdAcceptRate && cost >= prevCost {
			return mapping.StatusUnmappedCold
		}

		prevCost = cost
		s.temp *= a.cfg.TempFactor
		s.occ.SetPFactor(s.occ.PFactor() * a.cfg.PFactorFactor)
	}
}

func (a *Annealer) finish(s *search, status mapping.Status, start time.Time) *mapping.Mapping {
	s.m.Status = status
	s.m.Stats.Cost = s.occ.Cost()
	s.m.Stats.Temperature = s.temp
	s.m.Stats.PFactor = s.occ.PFactor()
	s.m.Stats.Elapsed = time.Since(start)

	slog.Info("anneal finished",
		"dfg", s.m.DFG.Name,
		"ii", s.m.Graph.II,
		"status", status.String(),
		"cost", s.m.Stats.Cost,
		"batches", s.m.Stats.Batches,
		"elapsed", s.m.Stats.Elapsed)

	a.InvokeHook(sim.HookCtx{
		Domain: a,
		Pos:    HookPosDone,
		Item:   s.m,
	})

	return s.m
}
