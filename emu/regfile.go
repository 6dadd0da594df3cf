// Package emu provides the architectural state of the simulated RV32I
// processor and a functional reference emulator.
package emu

// NumRegs is the number of general-purpose registers.
const NumRegs = 32

// RegFile represents the RV32I architectural state.
// It contains 32 general-purpose registers (x0-x31), the program counter,
// and the legacy HI/LO accumulator registers.
type RegFile struct {
	// X holds general-purpose registers x0-x31.
	// X[0] is the zero register, writes to it are discarded.
	X [NumRegs]uint32

	// PC is the program counter.
	PC uint32

	// HI and LO are accumulator registers carried over from the MIPS
	// heritage of the simulator. No instruction in the subset uses them.
	HI uint32
	LO uint32
}

// ReadReg reads a register value. Out-of-range registers read as 0.
func (r *RegFile) ReadReg(reg uint8) uint32 {
	if reg >= NumRegs {
		return 0
	}
	return r.X[reg]
}

// WriteReg writes a value to a register. Writes to x0 are ignored.
func (r *RegFile) WriteReg(reg uint8, value uint32) {
	if reg == 0 || reg >= NumRegs {
		return
	}
	r.X[reg] = value
}

// Reset clears all registers and the program counter.
func (r *RegFile) Reset() {
	*r = RegFile{}
}
