package emu

import (
	"errors"
	"fmt"

	"github.com/sarchlab/murvsim/insts"
)

var (
	// ErrIllegalInstruction is returned when an instruction word does not
	// decode to a supported operation.
	ErrIllegalInstruction = errors.New("illegal instruction")

	// ErrInstructionLimit is returned when the emulator executes more
	// instructions than allowed.
	ErrInstructionLimit = errors.New("instruction limit reached")
)

// StepResult represents the result of executing a single instruction.
type StepResult struct {
	// Halted is true if the emulator stopped and cannot continue.
	Halted bool

	// Err is set if an error occurred during execution.
	Err error
}

// Emulator executes RV32I instructions functionally, one instruction per
// step, with no pipeline timing. It serves as the reference model that the
// pipeline's architectural results are checked against.
type Emulator struct {
	regFile *RegFile
	memory  *Memory
	decoder *insts.Decoder
	alu     *ALU
	lsu     *LoadStoreUnit

	endPC  uint32
	hasEnd bool
	halted bool

	instructionCount uint64
	maxInstructions  uint64 // 0 means no limit
}

// EmulatorOption is a functional option for configuring the Emulator.
type EmulatorOption func(*Emulator)

// WithMaxInstructions sets the maximum number of instructions to execute.
// A value of 0 means no limit.
func WithMaxInstructions(max uint64) EmulatorOption {
	return func(e *Emulator) {
		e.maxInstructions = max
	}
}

// WithEndPC stops Run when the program counter reaches pc.
func WithEndPC(pc uint32) EmulatorOption {
	return func(e *Emulator) {
		e.endPC = pc
		e.hasEnd = true
	}
}

// NewEmulator creates a new functional emulator over the given state.
func NewEmulator(regFile *RegFile, memory *Memory, opts ...EmulatorOption) *Emulator {
	e := &Emulator{
		regFile: regFile,
		memory:  memory,
		decoder: insts.NewDecoder(),
		alu:     NewALU(),
		lsu:     NewLoadStoreUnit(memory),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// RegFile returns the emulator's register file.
func (e *Emulator) RegFile() *RegFile {
	return e.regFile
}

// Memory returns the emulator's memory.
func (e *Emulator) Memory() *Memory {
	return e.memory
}

// InstructionCount returns the number of instructions executed.
func (e *Emulator) InstructionCount() uint64 {
	return e.instructionCount
}

// Halted returns true if the emulator stopped on an illegal instruction.
func (e *Emulator) Halted() bool {
	return e.halted
}

// LoadProgram writes the program words at base and points the PC at it.
func (e *Emulator) LoadProgram(base uint32, words []uint32) {
	e.memory.LoadWords(base, words)
	e.regFile.PC = base
	e.halted = false
}

// Step executes a single instruction.
func (e *Emulator) Step() StepResult {
	if e.halted {
		return StepResult{Halted: true}
	}

	if e.maxInstructions > 0 && e.instructionCount >= e.maxInstructions {
		return StepResult{Halted: true, Err: ErrInstructionLimit}
	}

	pc := e.regFile.PC
	word := e.memory.Read32(pc)
	inst := e.decoder.Decode(word)

	if inst.Op == insts.OpUnknown {
		e.halted = true
		return StepResult{
			Halted: true,
			Err:    fmt.Errorf("%w 0x%08x at PC=0x%08x", ErrIllegalInstruction, word, pc),
		}
	}

	e.execute(inst, pc)
	e.instructionCount++

	return StepResult{}
}

// Run executes instructions until the end PC is reached or an error occurs.
func (e *Emulator) Run() error {
	for !e.hasEnd || e.regFile.PC != e.endPC {
		result := e.Step()
		if result.Err != nil {
			return result.Err
		}
		if result.Halted {
			return nil
		}
	}
	return nil
}

// execute applies a decoded instruction to the architectural state.
func (e *Emulator) execute(inst *insts.Instruction, pc uint32) {
	rs1 := e.regFile.ReadReg(inst.Rs1)
	rs2 := e.regFile.ReadReg(inst.Rs2)
	imm := uint32(inst.Imm)
	nextPC := pc + 4

	switch inst.Format {
	case insts.FormatR:
		e.regFile.WriteReg(inst.Rd, e.alu.Compute(inst.Op, rs1, rs2))
	case insts.FormatI:
		switch {
		case inst.Op == insts.OpJALR:
			e.regFile.WriteReg(inst.Rd, pc+4)
			nextPC = (rs1 + imm) &^ 1
		case inst.IsLoad():
			addr := e.alu.Compute(inst.Op, rs1, imm)
			e.regFile.WriteReg(inst.Rd, e.lsu.Load(inst.Op, addr))
		default:
			e.regFile.WriteReg(inst.Rd, e.alu.Compute(inst.Op, rs1, imm))
		}
	case insts.FormatS:
		addr := e.alu.Compute(inst.Op, rs1, imm)
		e.lsu.Store(inst.Op, addr, rs2)
	case insts.FormatB:
		nextPC = e.alu.BranchTarget(inst.Op, pc, inst.Imm, rs1, rs2)
	case insts.FormatU:
		if inst.Op == insts.OpAUIPC {
			e.regFile.WriteReg(inst.Rd, e.alu.Compute(inst.Op, pc, imm))
		} else {
			e.regFile.WriteReg(inst.Rd, e.alu.Compute(inst.Op, 0, imm))
		}
	case insts.FormatJ:
		e.regFile.WriteReg(inst.Rd, pc+4)
		nextPC = pc + imm
	}

	e.regFile.PC = nextPC
}
