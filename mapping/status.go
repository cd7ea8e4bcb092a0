package mapping

import "time"

// Status is the outcome of a mapping attempt.
type Status int

const (
	StatusUnmapped Status = iota
	StatusMapped
	StatusUnmappedCold
	StatusTimeout
	StatusInfeasible
	StatusInterrupted
	StatusInternalError
)

// String returns the name of the status.
func (s Status) String() string {
	switch s {
	case StatusUnmapped:
		return "Unmapped"
	case StatusMapped:
		return "Mapped"
	case StatusUnmappedCold:
		return "UnmappedCold"
	case StatusTimeout:
		return "Timeout"
	case StatusInfeasible:
		return "Infeasible"
	case StatusInterrupted:
		return "Interrupted"
	case StatusInternalError:
		return "InternalError"
	default:
		panic("invalid mapping status")
	}
}

// Stats carries the diagnostics a backend leaves behind.
type Stats struct {
	II int

	// Annealing.
	Cost        float64
	PrevCost    float64
	AcceptRate  float64
	Temperature float64
	PFactor     float64
	Batches     int
	Trials      int

	// Exact backend.
	Objective  int
	LowerBound int
	Solutions  int
	Optimal    bool

	Elapsed time.Duration
}
