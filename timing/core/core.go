// Package core provides the cycle-accurate CPU core model.
// It wraps the pipeline in an akita ticking component so that a simulation
// engine drives the clock and hooks observe every cycle.
package core

import (
	"fmt"
	"log/slog"

	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/murvsim/config"
	"github.com/sarchlab/murvsim/emu"
	"github.com/sarchlab/murvsim/loader"
	"github.com/sarchlab/murvsim/timing/pipeline"
)

// HookPosCycle marks the end of a pipeline cycle. The hook item is a
// pipeline.Snapshot.
var HookPosCycle = &sim.HookPos{Name: "Cycle"}

// Core represents a cycle-accurate CPU core model.
// It owns the architectural state, the memory and a 5-stage pipeline.
type Core struct {
	*sim.TickingComponent

	cfg      *config.Config
	regFile  *emu.RegFile
	memory   *emu.Memory
	pipeline *pipeline.Pipeline
	program  *loader.Program
	logger   *slog.Logger

	// bounded limits the ticks of the current run to budget.
	bounded bool
	budget  uint64
}

// Pipeline returns the underlying 5-stage pipeline.
func (c *Core) Pipeline() *pipeline.Pipeline {
	return c.pipeline
}

// RegFile returns the committed register file.
func (c *Core) RegFile() *emu.RegFile {
	return c.regFile
}

// Memory returns the memory.
func (c *Core) Memory() *emu.Memory {
	return c.memory
}

// Program returns the loaded program, or nil.
func (c *Core) Program() *loader.Program {
	return c.program
}

// Stats returns the pipeline statistics.
func (c *Core) Stats() pipeline.Statistics {
	return c.pipeline.Stats()
}

// Halted returns true if an illegal instruction halted the core.
func (c *Core) Halted() bool {
	return c.pipeline.Halted()
}

// Done returns true if the program has run to its end.
func (c *Core) Done() bool {
	return c.pipeline.Done()
}

// Forwarding returns true if operand forwarding is enabled.
func (c *Core) Forwarding() bool {
	return c.pipeline.Forwarding()
}

// SetForwarding enables or disables operand forwarding.
func (c *Core) SetForwarding(enabled bool) {
	c.pipeline.SetForwarding(enabled)
	c.logger.Info("forwarding changed", "core", c.Name(), "enabled", enabled)
}

// Snapshot returns a copy of the current pipeline state.
func (c *Core) Snapshot() pipeline.Snapshot {
	return c.pipeline.Snapshot()
}

// LoadProgram places a program in memory and resets the core to run it.
func (c *Core) LoadProgram(program *loader.Program) {
	c.program = program
	c.Reset()

	c.logger.Info("program loaded",
		"core", c.Name(),
		"base", fmt.Sprintf("0x%08x", program.Base),
		"words", len(program.Words))
}

// Reset clears registers, memory, pipeline registers and statistics, then
// reloads the program and rewinds the PC to its first instruction.
func (c *Core) Reset() {
	c.regFile.Reset()
	c.memory.Reset()
	c.pipeline.Reset()

	if c.program == nil {
		c.pipeline.SetPC(c.cfg.TextBase())
		return
	}

	c.program.LoadInto(c.memory)
	c.pipeline.SetPC(c.program.Base)
	c.pipeline.SetEndPC(c.program.LastPC() + pipeline.EndOfProgramOffset)
}

// Tick advances the pipeline by one cycle. It returns false once the core
// has nothing left to do so the engine stops scheduling ticks.
func (c *Core) Tick() bool {
	if c.pipeline.Halted() || c.pipeline.Done() {
		return false
	}

	if c.bounded && c.budget == 0 {
		return false
	}

	if !c.bounded && c.cycleLimitReached() {
		return false
	}

	c.pipeline.Tick()
	if c.bounded {
		c.budget--
	}

	c.InvokeHook(sim.HookCtx{
		Domain: c,
		Pos:    HookPosCycle,
		Item:   c.pipeline.Snapshot(),
	})

	return true
}

// RunCycles runs the core for at most n cycles. It stops early when the
// program ends or the core halts, in which case the halt error is returned.
func (c *Core) RunCycles(n uint64) error {
	if n == 0 {
		return nil
	}

	c.bounded = true
	c.budget = n
	defer func() { c.bounded = false }()

	if err := c.runEngine(); err != nil {
		return err
	}

	return c.pipeline.Err()
}

// Run runs the core until the program ends. It returns
// pipeline.ErrIllegalInstruction if the core halted and
// pipeline.ErrCycleLimit if the configured cycle limit was reached first.
func (c *Core) Run() error {
	if err := c.runEngine(); err != nil {
		return err
	}

	if c.pipeline.Halted() {
		return c.pipeline.Err()
	}

	if !c.pipeline.Done() {
		return fmt.Errorf("%w after %d cycles at PC=0x%08x",
			pipeline.ErrCycleLimit, c.pipeline.Stats().Cycles, c.pipeline.PC())
	}

	return nil
}

func (c *Core) runEngine() error {
	c.TickLater()
	return c.Engine.Run()
}

func (c *Core) cycleLimitReached() bool {
	return c.cfg.MaxCycles > 0 && c.pipeline.Stats().Cycles >= c.cfg.MaxCycles
}
