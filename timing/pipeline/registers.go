// Package pipeline provides the 5-stage pipeline implementation for timing simulation.
package pipeline

import "github.com/sarchlab/murvsim/insts"

// IFIDRegister holds state between Fetch and Decode stages.
type IFIDRegister struct {
	// Valid indicates if this pipeline register contains valid data.
	Valid bool

	// Seq is the fetch sequence number of the instruction. A re-fetch of a
	// held instruction keeps its sequence number.
	Seq uint64

	// PC is the program counter of the fetched instruction.
	PC uint32

	// InstructionWord is the raw 32-bit instruction word.
	InstructionWord uint32
}

// Clear resets the IF/ID register to empty state.
func (r *IFIDRegister) Clear() {
	*r = IFIDRegister{}
}

// IDEXRegister holds state between Decode and Execute stages.
type IDEXRegister struct {
	Valid           bool
	Seq             uint64
	PC              uint32
	InstructionWord uint32

	// Inst is the decoded instruction.
	Inst *insts.Instruction

	// A and B are the resolved rs1 and rs2 operand values.
	A uint32
	B uint32

	// Imm is the sign-extended immediate.
	Imm int32
}

// Clear resets the ID/EX register to empty state.
func (r *IDEXRegister) Clear() {
	*r = IDEXRegister{}
}

// EXMEMRegister holds state between Execute and Memory stages.
type EXMEMRegister struct {
	Valid           bool
	Seq             uint64
	PC              uint32
	InstructionWord uint32
	Inst            *insts.Instruction

	A uint32
	B uint32

	// ALUOutput is the effective address for loads and stores, the result
	// for everything else.
	ALUOutput uint32

	RegWrite bool
	Rd       uint8
}

// Clear resets the EX/MEM register to empty state.
func (r *EXMEMRegister) Clear() {
	*r = EXMEMRegister{}
}

// IsLoad returns true if the register holds a load instruction.
func (r *EXMEMRegister) IsLoad() bool {
	return r.Valid && r.Inst != nil && r.Inst.IsLoad()
}

// MEMWBRegister holds state between Memory and Writeback stages.
type MEMWBRegister struct {
	Valid           bool
	Seq             uint64
	PC              uint32
	InstructionWord uint32
	Inst            *insts.Instruction

	ALUOutput uint32

	// LMD is the loaded memory data for loads and a copy of ALUOutput for
	// every other instruction.
	LMD uint32

	RegWrite bool
	Rd       uint8
}

// Clear resets the MEM/WB register to empty state.
func (r *MEMWBRegister) Clear() {
	*r = MEMWBRegister{}
}

// Result returns the value the instruction writes back.
func (r *MEMWBRegister) Result() uint32 {
	if r.Inst != nil && r.Inst.IsLoad() {
		return r.LMD
	}
	return r.ALUOutput
}
