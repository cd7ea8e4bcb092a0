package ilp

import "github.com/sarchlab/cgrame/mapping"

// Outcome is how a run of the exact backend ended.
type Outcome int

const (
	OutcomeOptimal Outcome = iota
	OutcomeSuboptimal
	OutcomeInfeasible
	OutcomeTimeout
	OutcomeInterrupted
)

// String returns the name of the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeOptimal:
		return "Optimal"
	case OutcomeSuboptimal:
		return "Suboptimal"
	case OutcomeInfeasible:
		return "Infeasible"
	case OutcomeTimeout:
		return "Timeout"
	case OutcomeInterrupted:
		return "Interrupted"
	default:
		panic("invalid outcome")
	}
}

// Status maps the outcome onto a mapping status. Both optimal and
// suboptimal solutions are legal mappings.
func (o Outcome) Status() mapping.Status {
	switch o {
	case OutcomeOptimal, OutcomeSuboptimal:
		return mapping.StatusMapped
	case OutcomeInfeasible:
		return mapping.StatusInfeasible
	case OutcomeTimeout:
		return mapping.StatusTimeout
	case OutcomeInterrupted:
		return mapping.StatusInterrupted
	default:
		panic("invalid outcome")
	}
}
