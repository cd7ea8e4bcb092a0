// Package api drives mapping runs: it sweeps the initiation interval, retries
// annealing with fresh seeds, and checks every mapping it hands out.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/cgrame/config"
	"github.com/sarchlab/cgrame/dfg"
	"github.com/sarchlab/cgrame/mapping"
	"github.com/sarchlab/cgrame/mrrg"
)

// ErrIllegal is returned when a backend claims a mapping that does not pass
// the checks.
var ErrIllegal = errors.New("illegal mapping")

// HookPosAttempt marks the end of one mapping attempt.
var HookPosAttempt = &sim.HookPos{Name: "Mapping Attempt"}

// AttemptInfo is the hook detail of HookPosAttempt.
type AttemptInfo struct {
	II      int
	Attempt int
	Status  mapping.Status
}

// Result is the outcome of a run.
type Result struct {
	// Mapping is the last mapping produced, legal if its status is Mapped.
	Mapping *mapping.Mapping

	II       int
	Attempts int
	Issues   []mapping.Issue
}

// Driver maps dataflow graphs onto one hardware model.
type Driver interface {
	// AcceptHook registers a hook on the driver and on every mapper it runs.
	AcceptHook(hook sim.Hook)

	// Map searches for the smallest II that maps the graph. The returned
	// error is set for structural failures, cancellation and illegal
	// results; running out of IIs is reported through the mapping status.
	// A timeout of the exact backend ends the sweep.
	Map(ctx context.Context, d *dfg.Graph) (*Result, error)
}

type mapperFactory interface {
	make(attempt int) mapping.Mapper
}

type hookable interface {
	AcceptHook(hook sim.Hook)
}

type driverImpl struct {
	*sim.HookableBase

	name          string
	provider      mrrg.Provider
	cfg           config.Config
	mapperFactory mapperFactory
	hooks         []sim.Hook
}

func (d *driverImpl) AcceptHook(hook sim.Hook) {
	d.HookableBase.AcceptHook(hook)
	d.hooks = append(d.hooks, hook)
}

func (d *driverImpl) attempts() int {
	if d.cfg.Mapper == config.MapperILP {
		return 1
	}

	return d.cfg.Attempts
}

func (d *driverImpl) Map(ctx context.Context, g *dfg.Graph) (*Result, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}

	res := &Result{}

	for ii := d.cfg.II; ii <= d.cfg.MaxII; ii++ {
		rg, err := d.provider.ResourceGraph(ii)
		if err != nil {
			return res, err
		}

		for attempt := 0; attempt < d.attempts(); attempt++ {
			done, err := d.attempt(ctx, res, rg, g, attempt)
			if err != nil || done {
				return res, err
			}
		}
	}

	slog.Warn("no mapping found",
		"driver", d.name, "dfg", g.Name, "max_ii", d.cfg.MaxII, "attempts", res.Attempts)

	return res, nil
}

// attempt runs one mapper and reports whether the sweep is over.
func (d *driverImpl) attempt(
	ctx context.Context,
	res *Result,
	rg *mrrg.Graph,
	g *dfg.Graph,
	attempt int,
) (bool, error) {
	mapper := d.mapperFactory.make(attempt)
	if h, ok := mapper.(hookable); ok {
		for _, hook := range d.hooks {
			h.AcceptHook(hook)
		}
	}

	m, err := mapper.Map(ctx, rg, g)
	res.Mapping = m
	res.II = rg.II
	res.Attempts++

	if m != nil {
		d.InvokeHook(sim.HookCtx{
			Domain: d,
			Pos:    HookPosAttempt,
			Item:   m,
			Detail: AttemptInfo{II: rg.II, Attempt: attempt, Status: m.Status},
		})

		slog.Info("mapping attempt",
			"driver", d.name,
			"dfg", g.Name,
			"ii", rg.II,
			"attempt", attempt,
			"status", m.Status.String())
	}

	if err != nil {
		return true, err
	}

	switch m.Status {
	case mapping.StatusMapped:
		res.Issues = mapping.Verify(m)
		if len(res.Issues) > 0 {
			m.Status = mapping.StatusInternalError
			return true, fmt.Errorf("%w at II=%d: %d issues", ErrIllegal, rg.II, len(res.Issues))
		}

		return true, nil
	case mapping.StatusInternalError:
		return true, fmt.Errorf("%w at II=%d", ErrIllegal, rg.II)
	case mapping.StatusTimeout:
		return d.cfg.Mapper == config.MapperILP, nil
	default:
		return false, nil
	}
}
