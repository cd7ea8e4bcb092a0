package ilp

import "time"

// Config holds the limits of the exact backend.
type Config struct {
	// Solver names the 0/1 solver. Only "gini" is available.
	Solver string

	// MIPGap stops the search once (incumbent - bound) / incumbent falls to
	// or below it.
	MIPGap float64

	// SolutionLimit stops the search after that many improving solutions;
	// zero means unbounded.
	SolutionLimit int

	// TimeLimit bounds the search; zero means unbounded.
	TimeLimit time.Duration

	// PollInterval is how often a running solve is checked for a result.
	PollInterval time.Duration
}

// DefaultConfig returns the limits used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		Solver:       "gini",
		MIPGap:       0,
		TimeLimit:    5 * time.Minute,
		PollInterval: 2 * time.Millisecond,
	}
}
