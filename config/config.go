// Package config loads the run configuration of the mapper from YAML.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sarchlab/cgrame/anneal"
	"github.com/sarchlab/cgrame/ilp"
	"gopkg.in/yaml.v3"
)

// ErrInvalid is wrapped by every configuration problem.
var ErrInvalid = errors.New("invalid configuration")

// Mapper names.
const (
	MapperAnneal = "anneal"
	MapperILP    = "ilp"
)

// Anneal holds the annealing tunables.
type Anneal struct {
	Seed              int64         `yaml:"seed"`
	InitialPFactor    float64       `yaml:"initial_pfactor"`
	PFactorFactor     float64       `yaml:"pfactor_factor"`
	TempFactor        float64       `yaml:"temp_factor"`
	SwapFactor        int           `yaml:"swap_factor"`
	ColdAcceptRate    float64       `yaml:"cold_accept_rate"`
	TimeLimit         time.Duration `yaml:"time_limit"`
	CalibrationTrials int           `yaml:"calibration_trials"`
}

// ILP holds the limits of the exact backend.
type ILP struct {
	Solver        string        `yaml:"solver"`
	MIPGap        float64       `yaml:"mip_gap"`
	SolutionLimit int           `yaml:"solution_limit"`
	TimeLimit     time.Duration `yaml:"time_limit"`
}

// Config is the run configuration.
type Config struct {
	Mapper string `yaml:"mapper"`

	// II is the first initiation interval tried, MaxII the last.
	II    int `yaml:"ii"`
	MaxII int `yaml:"max_ii"`

	// Attempts is the number of annealing runs per II, each with the next
	// seed.
	Attempts int `yaml:"attempts"`

	Anneal Anneal `yaml:"anneal"`
	ILP    ILP    `yaml:"ilp"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	a := anneal.DefaultConfig()
	x := ilp.DefaultConfig()

	return Config{
		Mapper:   MapperAnneal,
		II:       1,
		MaxII:    4,
		Attempts: 1,
		Anneal: Anneal{
			Seed:              a.Seed,
			InitialPFactor:    a.InitialPFactor,
			PFactorFactor:     a.PFactorFactor,
			TempFactor:        a.TempFactor,
			SwapFactor:        a.SwapFactor,
			ColdAcceptRate:    a.ColdAcceptRate,
			TimeLimit:         a.TimeLimit,
			CalibrationTrials: a.CalibrationTrials,
		},
		ILP: ILP{
			Solver:        x.Solver,
			MIPGap:        x.MIPGap,
			SolutionLimit: x.SolutionLimit,
			TimeLimit:     x.TimeLimit,
		},
	}
}

// Load reads and validates a configuration file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}

	return cfg, nil
}

// Parse decodes a configuration on top of the defaults and validates it.
// Unknown keys are rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate reports every out-of-range setting.
func (c Config) Validate() error {
	var errs []error

	invalid := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	if c.Mapper != MapperAnneal && c.Mapper != MapperILP {
		invalid("unknown mapper %q", c.Mapper)
	}

	if c.II < 1 {
		invalid("ii must be positive, got %d", c.II)
	}

	if c.MaxII < c.II {
		invalid("max_ii %d is below ii %d", c.MaxII, c.II)
	}

	if c.Attempts < 1 {
		invalid("attempts must be positive, got %d", c.Attempts)
	}

	errs = append(errs, c.Anneal.validate()...)
	errs = append(errs, c.ILP.validate()...)

	return errors.Join(errs...)
}

func (a Anneal) validate() []error {
	var errs []error

	if a.InitialPFactor <= 0 || a.PFactorFactor < 1 {
		errs = append(errs, fmt.Errorf("%w: anneal pfactor must be positive and non-decreasing", ErrInvalid))
	}

	if a.TempFactor <= 0 || a.TempFactor >= 1 {
		errs = append(errs, fmt.Errorf("%w: anneal temp_factor must be in (0, 1)", ErrInvalid))
	}

	if a.SwapFactor < 1 || a.CalibrationTrials < 1 {
		errs = append(errs, fmt.Errorf("%w: anneal swap_factor and calibration_trials must be positive", ErrInvalid))
	}

	if a.ColdAcceptRate < 0 || a.ColdAcceptRate > 1 {
		errs = append(errs, fmt.Errorf("%w: anneal cold_accept_rate must be in [0, 1]", ErrInvalid))
	}

	if a.TimeLimit < 0 {
		errs = append(errs, fmt.Errorf("%w: anneal time_limit is negative", ErrInvalid))
	}

	return errs
}

func (x ILP) validate() []error {
	var errs []error

	if x.Solver != "gini" {
		errs = append(errs, fmt.Errorf("%w: unknown ilp solver %q", ErrInvalid, x.Solver))
	}

	if x.MIPGap < 0 || x.SolutionLimit < 0 || x.TimeLimit < 0 {
		errs = append(errs, fmt.Errorf("%w: ilp limits must not be negative", ErrInvalid))
	}

	return errs
}

// AnnealConfig returns the annealer settings of one attempt. Each attempt
// advances the seed by one.
func (c Config) AnnealConfig(attempt int) anneal.Config {
	return anneal.Config{
		Seed:              c.Anneal.Seed + int64(attempt),
		InitialPFactor:    c.Anneal.InitialPFactor,
		PFactorFactor:     c.Anneal.PFactorFactor,
		TempFactor:        c.Anneal.TempFactor,
		SwapFactor:        c.Anneal.SwapFactor,
		ColdAcceptRate:    c.Anneal.ColdAcceptRate,
		TimeLimit:         c.Anneal.TimeLimit,
		CalibrationTrials: c.Anneal.CalibrationTrials,
	}
}

// ILPConfig returns the exact backend settings.
func (c Config) ILPConfig() ilp.Config {
	cfg := ilp.DefaultConfig()
	cfg.Solver = c.ILP.Solver
	cfg.MIPGap = c.ILP.MIPGap
	cfg.SolutionLimit = c.ILP.SolutionLimit
	cfg.TimeLimit = c.ILP.TimeLimit

	return cfg
}
