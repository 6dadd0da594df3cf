package pipeline

import "github.com/sarchlab/murvsim/emu"

// Snapshot is a copy of the pipeline state at the end of a cycle.
type Snapshot struct {
	// Cycle is the number of cycles completed.
	Cycle uint64

	PC         uint32
	Regs       [emu.NumRegs]uint32
	Forwarding bool
	Stall      StallState
	Halted     bool

	IFID  IFIDRegister
	IDEX  IDEXRegister
	EXMEM EXMEMRegister
	MEMWB MEMWBRegister

	Stats Statistics
}

// Snapshot returns a copy of the current pipeline state. The decoded
// instructions are shared with the pipeline and must not be modified.
func (p *Pipeline) Snapshot() Snapshot {
	return Snapshot{
		Cycle:      p.stats.Cycles,
		PC:         p.regFile.PC,
		Regs:       p.regFile.X,
		Forwarding: p.forwarding,
		Stall:      p.stall,
		Halted:     p.halted,
		IFID:       p.ifid,
		IDEX:       p.idex,
		EXMEM:      p.exmem,
		MEMWB:      p.memwb,
		Stats:      p.stats,
	}
}
