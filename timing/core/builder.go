package core

import (
	"io"
	"log/slog"

	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/murvsim/config"
	"github.com/sarchlab/murvsim/emu"
	"github.com/sarchlab/murvsim/timing/pipeline"
)

// Builder can create new cores.
type Builder struct {
	engine sim.Engine
	freq   sim.Freq
	cfg    *config.Config
	logger *slog.Logger
}

// NewBuilder returns a builder with the default configuration.
func NewBuilder() Builder {
	return Builder{
		cfg: config.Default(),
	}
}

// WithEngine sets the engine. A serial engine is created if none is given.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithFreq sets the frequency of the core. It overrides the configured
// frequency.
func (b Builder) WithFreq(freq sim.Freq) Builder {
	b.freq = freq
	return b
}

// WithConfig sets the simulator configuration.
func (b Builder) WithConfig(cfg *config.Config) Builder {
	b.cfg = cfg
	return b
}

// WithLogger sets the logger for core and pipeline events.
func (b Builder) WithLogger(logger *slog.Logger) Builder {
	b.logger = logger
	return b
}

// Build creates a core. It panics if the memory layout of the configuration
// is invalid.
func (b Builder) Build(name string) *Core {
	engine := b.engine
	if engine == nil {
		engine = sim.NewSerialEngine()
	}

	freq := b.freq
	if freq == 0 {
		freq = b.cfg.Frequency()
	}

	logger := b.logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	memory, err := b.cfg.NewMemory()
	if err != nil {
		panic(err)
	}

	c := &Core{
		cfg:     b.cfg,
		regFile: &emu.RegFile{},
		memory:  memory,
		logger:  logger,
	}

	c.pipeline = pipeline.NewPipeline(c.regFile, c.memory,
		pipeline.WithForwarding(b.cfg.Forwarding),
		pipeline.WithMaxCycles(b.cfg.MaxCycles),
		pipeline.WithLogger(logger.With("core", name)),
	)
	c.pipeline.SetPC(b.cfg.TextBase())

	c.TickingComponent = sim.NewTickingComponent(name, engine, freq, c)

	return c
}
