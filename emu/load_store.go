package emu

import "github.com/sarchlab/murvsim/insts"

// LoadStoreUnit implements RV32I load and store operations of every width.
type LoadStoreUnit struct {
	memory *Memory
}

// NewLoadStoreUnit creates a new LoadStoreUnit connected to the given memory.
func NewLoadStoreUnit(memory *Memory) *LoadStoreUnit {
	return &LoadStoreUnit{memory: memory}
}

// Load reads memory at addr for the given load operation. LB and LH
// sign-extend, LBU and LHU zero-extend.
func (lsu *LoadStoreUnit) Load(op insts.Op, addr uint32) uint32 {
	switch op {
	case insts.OpLB:
		return uint32(int32(int8(lsu.memory.Read8(addr))))
	case insts.OpLBU:
		return uint32(lsu.memory.Read8(addr))
	case insts.OpLH:
		return uint32(int32(int16(lsu.memory.Read16(addr))))
	case insts.OpLHU:
		return uint32(lsu.memory.Read16(addr))
	case insts.OpLW:
		return lsu.memory.Read32(addr)
	default:
		return 0
	}
}

// Store writes the low bytes of value to addr for the given store operation.
func (lsu *LoadStoreUnit) Store(op insts.Op, addr uint32, value uint32) {
	switch op {
	case insts.OpSB:
		lsu.memory.Write8(addr, uint8(value))
	case insts.OpSH:
		lsu.memory.Write16(addr, uint16(value))
	case insts.OpSW:
		lsu.memory.Write32(addr, value)
	}
}
