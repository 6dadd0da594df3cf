package pipeline

import (
	"github.com/sarchlab/murvsim/emu"
	"github.com/sarchlab/murvsim/insts"
)

// FetchStage handles instruction fetch from memory.
type FetchStage struct {
	memory *emu.Memory
}

// NewFetchStage creates a new fetch stage.
func NewFetchStage(memory *emu.Memory) *FetchStage {
	return &FetchStage{memory: memory}
}

// Fetch reads the instruction at the given PC. Addresses outside every
// region read as 0, which decodes to a NOP.
func (s *FetchStage) Fetch(pc uint32) uint32 {
	return s.memory.Read32(pc)
}

// DecodeStage handles instruction decode and register read.
type DecodeStage struct {
	decoder *insts.Decoder
}

// NewDecodeStage creates a new decode stage.
func NewDecodeStage() *DecodeStage {
	return &DecodeStage{decoder: insts.NewDecoder()}
}

// DecodeResult holds the result of the decode stage.
type DecodeResult struct {
	Inst *insts.Instruction

	// A and B are the rs1 and rs2 values read from the register file, or 0
	// for operands the format does not use.
	A uint32
	B uint32
}

// Decode decodes the instruction and reads the operands its format uses
// from regFile.
func (s *DecodeStage) Decode(word uint32, regFile *emu.RegFile) DecodeResult {
	inst := s.decoder.Decode(word)
	result := DecodeResult{Inst: inst}

	if inst.UsesRs1() {
		result.A = regFile.ReadReg(inst.Rs1)
	}
	if inst.UsesRs2() {
		result.B = regFile.ReadReg(inst.Rs2)
	}

	return result
}

// ExecuteStage handles ALU operations, address calculation, and control
// flow resolution.
type ExecuteStage struct {
	alu *emu.ALU
}

// NewExecuteStage creates a new execute stage.
func NewExecuteStage() *ExecuteStage {
	return &ExecuteStage{alu: emu.NewALU()}
}

// ExecuteResult holds the result of the execute stage.
type ExecuteResult struct {
	ALUOutput uint32
	RegWrite  bool
	Rd        uint8

	// Redirect is set for control transfers. Target is the address Fetch
	// must continue at, whether or not a branch is taken.
	Redirect bool
	Target   uint32
}

// Execute performs the operation of the instruction in ID/EX.
func (s *ExecuteStage) Execute(idex *IDEXRegister) ExecuteResult {
	result := ExecuteResult{}
	inst := idex.Inst

	if !idex.Valid || inst == nil {
		return result
	}

	imm := uint32(idex.Imm)

	switch inst.Format {
	case insts.FormatR:
		result.ALUOutput = s.alu.Compute(inst.Op, idex.A, idex.B)
	case insts.FormatI:
		if inst.Op == insts.OpJALR {
			result.ALUOutput = idex.PC + 4
			result.Redirect = true
			result.Target = (idex.A + imm) &^ 1
		} else {
			result.ALUOutput = s.alu.Compute(inst.Op, idex.A, imm)
		}
	case insts.FormatS:
		result.ALUOutput = s.alu.Compute(inst.Op, idex.A, imm)
	case insts.FormatB:
		result.Redirect = true
		result.Target = s.alu.BranchTarget(inst.Op, idex.PC, idex.Imm, idex.A, idex.B)
	case insts.FormatU:
		if inst.Op == insts.OpAUIPC {
			result.ALUOutput = s.alu.Compute(inst.Op, idex.PC, imm)
		} else {
			result.ALUOutput = s.alu.Compute(inst.Op, 0, imm)
		}
	case insts.FormatJ:
		result.ALUOutput = idex.PC + 4
		result.Redirect = true
		result.Target = idex.PC + imm
	}

	if inst.WritesRd() {
		result.RegWrite = true
		result.Rd = inst.Rd
	}

	return result
}

// MemoryStage handles memory reads and writes.
type MemoryStage struct {
	lsu *emu.LoadStoreUnit
}

// NewMemoryStage creates a new memory stage.
func NewMemoryStage(memory *emu.Memory) *MemoryStage {
	return &MemoryStage{lsu: emu.NewLoadStoreUnit(memory)}
}

// Access performs the memory operation of the instruction in EX/MEM and
// returns the LMD value. Non-memory instructions pass their ALU output
// through.
func (s *MemoryStage) Access(exmem *EXMEMRegister) uint32 {
	inst := exmem.Inst

	if !exmem.Valid || inst == nil {
		return 0
	}

	switch {
	case inst.IsLoad():
		return s.lsu.Load(inst.Op, exmem.ALUOutput)
	case inst.IsStore():
		s.lsu.Store(inst.Op, exmem.ALUOutput, exmem.B)
		return exmem.ALUOutput
	default:
		return exmem.ALUOutput
	}
}

// WritebackStage handles writing results back to the register file.
type WritebackStage struct{}

// NewWritebackStage creates a new writeback stage.
func NewWritebackStage() *WritebackStage {
	return &WritebackStage{}
}

// Writeback writes the result of the instruction in MEM/WB into regFile.
// It returns true if the instruction is illegal and the pipeline must halt.
func (s *WritebackStage) Writeback(memwb *MEMWBRegister, regFile *emu.RegFile) bool {
	if !memwb.Valid || memwb.Inst == nil {
		return false
	}

	if memwb.Inst.Op == insts.OpUnknown {
		return true
	}

	if memwb.RegWrite {
		regFile.WriteReg(memwb.Rd, memwb.Result())
	}

	return false
}
