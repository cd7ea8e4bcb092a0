package api

import (
	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/cgrame/anneal"
	"github.com/sarchlab/cgrame/config"
	"github.com/sarchlab/cgrame/ilp"
	"github.com/sarchlab/cgrame/mapping"
	"github.com/sarchlab/cgrame/mrrg"
)

type defaultMapperFactory struct {
	cfg config.Config
}

func (f defaultMapperFactory) make(attempt int) mapping.Mapper {
	if f.cfg.Mapper == config.MapperILP {
		return ilp.New(f.cfg.ILPConfig())
	}

	return anneal.New(f.cfg.AnnealConfig(attempt))
}

// DriverBuilder creates a new instance of Driver.
type DriverBuilder struct {
	provider mrrg.Provider
	cfg      config.Config
	hasCfg   bool
}

// WithProvider sets where resource graphs come from.
func (b DriverBuilder) WithProvider(provider mrrg.Provider) DriverBuilder {
	b.provider = provider
	return b
}

// WithConfig sets the run configuration. The defaults are used otherwise.
func (b DriverBuilder) WithConfig(cfg config.Config) DriverBuilder {
	b.cfg = cfg
	b.hasCfg = true

	return b
}

// Build creates a driver.
func (b DriverBuilder) Build(name string) Driver {
	if b.provider == nil {
		panic("driver needs a resource graph provider")
	}

	cfg := b.cfg
	if !b.hasCfg {
		cfg = config.Default()
	}

	if err := cfg.Validate(); err != nil {
		panic(err)
	}

	return &driverImpl{
		HookableBase:  sim.NewHookableBase(),
		name:          name,
		provider:      b.provider,
		cfg:           cfg,
		mapperFactory: defaultMapperFactory{cfg: cfg},
	}
}
