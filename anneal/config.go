package anneal

import "time"

// Config holds the tunables of the annealer.
type Config struct {
	Seed int64

	// InitialPFactor is the over-use penalty at the start; PFactorFactor
	// multiplies it after every batch.
	InitialPFactor float64
	PFactorFactor  float64

	// TempFactor multiplies the temperature after every batch.
	TempFactor float64

	// SwapFactor times the number of ops is the number of trials per batch.
	SwapFactor int

	// ColdAcceptRate is the acceptance rate below which a batch that did not
	// lower the cost ends the search.
	ColdAcceptRate float64

	// TimeLimit bounds the search; zero means unbounded.
	TimeLimit time.Duration

	CalibrationTrials int
}

// DefaultConfig returns the tunables used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		Seed:              1,
		InitialPFactor:    0.01,
		PFactorFactor:     1.1,
		TempFactor:        0.95,
		SwapFactor:        50,
		ColdAcceptRate:    0.01,
		TimeLimit:         time.Minute,
		CalibrationTrials: 100,
	}
}
