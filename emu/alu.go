package emu

import "github.com/sarchlab/murvsim/insts"

// ALU implements RV32I arithmetic, logic, and comparison operations.
// It is stateless and shared by the functional emulator and the pipeline's
// execute stage.
type ALU struct{}

// NewALU creates a new ALU.
func NewALU() *ALU {
	return &ALU{}
}

// Compute returns the result of op applied to a and b. For immediate forms b
// is the sign-extended immediate. Load and store operations compute the
// effective address a + b. AUIPC expects the instruction PC in a.
func (u *ALU) Compute(op insts.Op, a, b uint32) uint32 {
	switch op {
	case insts.OpADD, insts.OpADDI:
		return a + b
	case insts.OpSUB:
		return a - b
	case insts.OpSLL, insts.OpSLLI:
		return a << (b & 0x1F)
	case insts.OpSRL, insts.OpSRLI:
		return a >> (b & 0x1F)
	case insts.OpSRA, insts.OpSRAI:
		return uint32(int32(a) >> (b & 0x1F))
	case insts.OpXOR, insts.OpXORI:
		return a ^ b
	case insts.OpOR, insts.OpORI:
		return a | b
	case insts.OpAND, insts.OpANDI:
		return a & b
	case insts.OpSLT, insts.OpSLTI:
		return boolToWord(int32(a) < int32(b))
	case insts.OpSLTU, insts.OpSLTIU:
		return boolToWord(a < b)
	case insts.OpLB, insts.OpLH, insts.OpLW, insts.OpLBU, insts.OpLHU,
		insts.OpSB, insts.OpSH, insts.OpSW:
		return a + b
	case insts.OpLUI:
		return b
	case insts.OpAUIPC:
		return a + b
	default:
		return 0
	}
}

// BranchTaken evaluates the comparison of a conditional branch.
func (u *ALU) BranchTaken(op insts.Op, a, b uint32) bool {
	switch op {
	case insts.OpBEQ:
		return a == b
	case insts.OpBNE:
		return a != b
	case insts.OpBLT:
		return int32(a) < int32(b)
	case insts.OpBGE:
		return int32(a) >= int32(b)
	case insts.OpBLTU:
		return a < b
	case insts.OpBGEU:
		return a >= b
	default:
		return false
	}
}

// BranchTarget returns the next PC of a conditional branch at pc.
func (u *ALU) BranchTarget(op insts.Op, pc uint32, imm int32, a, b uint32) uint32 {
	if u.BranchTaken(op, a, b) {
		return pc + uint32(imm)
	}
	return pc + 4
}

func boolToWord(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
