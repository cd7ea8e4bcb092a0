package api

import (
	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/cgrame/anneal"
	"github.com/sarchlab/cgrame/ilp"
	"github.com/sarchlab/cgrame/mapping"
)

// TraceHook writes hook events to the trace log level.
type TraceHook struct{}

// Func implements sim.Hook.
func (TraceHook) Func(ctx sim.HookCtx) {
	switch ctx.Pos {
	case anneal.HookPosBatchEnd:
		info := ctx.Detail.(anneal.BatchInfo)
		mapping.Trace("batch end",
			"batch", info.Batch,
			"cost", info.Cost,
			"accept_rate", info.AcceptRate,
			"temperature", info.Temperature)
	case ilp.HookPosIncumbent:
		info := ctx.Detail.(ilp.IncumbentInfo)
		mapping.Trace("incumbent",
			"objective", info.Objective,
			"lower_bound", info.LowerBound,
			"solutions", info.Solutions)
	case HookPosAttempt:
		info := ctx.Detail.(AttemptInfo)
		mapping.Trace("attempt",
			"ii", info.II,
			"attempt", info.Attempt,
			"status", info.Status.String())
	default:
		mapping.Trace(ctx.Pos.Name)
	}
}
