package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/sarchlab/murvsim/emu"
	"github.com/sarchlab/murvsim/insts"
)

// LevelTrace is the slog level of per-cycle pipeline events.
const LevelTrace slog.Level = slog.LevelInfo + 1

// DefaultMaxCycles bounds Run when no limit is configured.
const DefaultMaxCycles = 1000000

// EndOfProgramOffset is the distance between the last instruction and the
// PC at which a run to completion stops. When the PC reaches it the last
// instruction has left Writeback.
const EndOfProgramOffset = 20

var (
	// ErrIllegalInstruction is returned by Run when an instruction that
	// does not decode reaches Writeback.
	ErrIllegalInstruction = emu.ErrIllegalInstruction

	// ErrCycleLimit is returned by Run when the cycle limit is reached
	// before the program completes.
	ErrCycleLimit = errors.New("cycle limit reached")
)

// Statistics holds pipeline performance statistics.
type Statistics struct {
	// Cycles is the total number of cycles simulated.
	Cycles uint64
	// InstructionCount counts Writeback invocations, one per cycle.
	InstructionCount uint64
	// Retired is the number of instructions, bubbles and NOPs excluded,
	// that completed Writeback.
	Retired uint64
	// Stalls is the number of bubbles issued for data hazards.
	Stalls uint64
	// BranchBubbles is the number of bubbles issued behind control transfers.
	BranchBubbles uint64
	// Forwards is the number of instructions that took at least one operand
	// from a pipeline register.
	Forwards uint64
	// DataHazards is the number of RAW hazards detected.
	DataHazards uint64
}

// CPI returns the cycles per retired instruction.
func (s Statistics) CPI() float64 {
	if s.Retired == 0 {
		return 0
	}
	return float64(s.Cycles) / float64(s.Retired)
}

// PipelineOption is a functional option for configuring the Pipeline.
type PipelineOption func(*Pipeline)

// WithForwarding enables or disables operand forwarding.
func WithForwarding(enabled bool) PipelineOption {
	return func(p *Pipeline) {
		p.forwarding = enabled
	}
}

// WithMaxCycles sets the cycle limit of Run.
func WithMaxCycles(cycles uint64) PipelineOption {
	return func(p *Pipeline) {
		p.maxCycles = cycles
	}
}

// WithEndPC sets the PC at which Run stops.
func WithEndPC(pc uint32) PipelineOption {
	return func(p *Pipeline) {
		p.SetEndPC(pc)
	}
}

// WithLogger sets the logger that receives pipeline events at LevelTrace.
func WithLogger(logger *slog.Logger) PipelineOption {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// Pipeline implements a 5-stage pipelined RV32I CPU model.
// Stages: Fetch (IF) -> Decode (ID) -> Execute (EX) -> Memory (MEM) -> Writeback (WB)
//
// The architectural state is double-buffered. The register file passed to
// NewPipeline holds the committed state. Every cycle the stages build the
// next state from a copy of it, and the copy is committed when all five
// stages have run.
type Pipeline struct {
	// Pipeline registers
	ifid  IFIDRegister
	idex  IDEXRegister
	exmem EXMEMRegister
	memwb MEMWBRegister

	// Pipeline stages
	fetchStage     *FetchStage
	decodeStage    *DecodeStage
	executeStage   *ExecuteStage
	memoryStage    *MemoryStage
	writebackStage *WritebackStage

	// Hazard detection
	hazardUnit *HazardUnit
	stall      StallState
	forwarding bool

	// redirected is set when Execute resolved a control transfer this cycle.
	redirected bool

	// Shared resources
	regFile *emu.RegFile
	next    emu.RegFile
	memory  *emu.Memory

	seq       uint64
	endPC     uint32
	hasEndPC  bool
	maxCycles uint64

	stats   Statistics
	halted  bool
	haltErr error

	logger *slog.Logger
}

// NewPipeline creates a new 5-stage pipeline. Forwarding is enabled by
// default.
func NewPipeline(regFile *emu.RegFile, memory *emu.Memory, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		fetchStage:     NewFetchStage(memory),
		decodeStage:    NewDecodeStage(),
		executeStage:   NewExecuteStage(),
		memoryStage:    NewMemoryStage(memory),
		writebackStage: NewWritebackStage(),
		hazardUnit:     NewHazardUnit(),
		forwarding:     true,
		regFile:        regFile,
		memory:         memory,
		maxCycles:      DefaultMaxCycles,
		logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// PC returns the committed program counter.
func (p *Pipeline) PC() uint32 {
	return p.regFile.PC
}

// SetPC sets the program counter.
func (p *Pipeline) SetPC(pc uint32) {
	p.regFile.PC = pc
}

// SetEndPC sets the PC at which Run stops.
func (p *Pipeline) SetEndPC(pc uint32) {
	p.endPC = pc
	p.hasEndPC = true
}

// EndPC returns the PC at which Run stops, and whether one is set.
func (p *Pipeline) EndPC() (uint32, bool) {
	return p.endPC, p.hasEndPC
}

// Forwarding returns true if operand forwarding is enabled.
func (p *Pipeline) Forwarding() bool {
	return p.forwarding
}

// SetForwarding enables or disables operand forwarding. It takes effect
// from the next cycle.
func (p *Pipeline) SetForwarding(enabled bool) {
	p.forwarding = enabled
}

// RegFile returns the committed register file.
func (p *Pipeline) RegFile() *emu.RegFile {
	return p.regFile
}

// Memory returns the memory.
func (p *Pipeline) Memory() *emu.Memory {
	return p.memory
}

// GetIFID returns the IF/ID pipeline register.
func (p *Pipeline) GetIFID() *IFIDRegister {
	return &p.ifid
}

// GetIDEX returns the ID/EX pipeline register.
func (p *Pipeline) GetIDEX() *IDEXRegister {
	return &p.idex
}

// GetEXMEM returns the EX/MEM pipeline register.
func (p *Pipeline) GetEXMEM() *EXMEMRegister {
	return &p.exmem
}

// GetMEMWB returns the MEM/WB pipeline register.
func (p *Pipeline) GetMEMWB() *MEMWBRegister {
	return &p.memwb
}

// StallState returns the stall state of the Decode stage.
func (p *Pipeline) StallState() StallState {
	return p.stall
}

// Stats returns pipeline statistics.
func (p *Pipeline) Stats() Statistics {
	return p.stats
}

// Halted returns true if the pipeline has halted.
func (p *Pipeline) Halted() bool {
	return p.halted
}

// Err returns the error that halted the pipeline, if any.
func (p *Pipeline) Err() error {
	return p.haltErr
}

// Done returns true if the PC has reached the end PC.
func (p *Pipeline) Done() bool {
	return p.hasEndPC && p.regFile.PC == p.endPC
}

// Run executes the pipeline until the PC reaches the end PC or the
// pipeline halts. It returns ErrIllegalInstruction if an illegal
// instruction halted the pipeline and ErrCycleLimit if the cycle limit was
// reached first.
func (p *Pipeline) Run() error {
	for !p.halted {
		if p.Done() {
			return nil
		}

		if p.maxCycles > 0 && p.stats.Cycles >= p.maxCycles {
			return fmt.Errorf("%w after %d cycles at PC=0x%08x",
				ErrCycleLimit, p.stats.Cycles, p.regFile.PC)
		}

		p.Tick()
	}

	return p.haltErr
}

// RunCycles executes the pipeline for the specified number of cycles.
// Returns true if still running, false if halted.
func (p *Pipeline) RunCycles(cycles uint64) bool {
	for i := uint64(0); i < cycles && !p.halted; i++ {
		p.Tick()
	}
	return !p.halted
}

// Tick executes one pipeline cycle.
//
// Stages are evaluated in reverse order (WB -> MEM -> EX -> ID -> IF) so that
// each stage consumes the pipeline register its predecessor filled in the
// previous cycle before the predecessor overwrites it. Decode therefore sees
// this cycle's EX/MEM and MEM/WB contents, and the register file it reads
// already holds this cycle's Writeback result.
func (p *Pipeline) Tick() {
	if p.halted {
		return
	}

	p.next = *p.regFile
	p.redirected = false

	p.doWriteback()
	if !p.halted {
		p.doMemory()
		p.doExecute()
		p.doDecode()
		p.doFetch()
	}

	*p.regFile = p.next
	p.stats.Cycles++
}

// Reset clears the pipeline registers, the stall state and the statistics.
// The register file and memory are left to the caller.
func (p *Pipeline) Reset() {
	p.ifid.Clear()
	p.idex.Clear()
	p.exmem.Clear()
	p.memwb.Clear()
	p.stall.Release()
	p.redirected = false
	p.seq = 0
	p.stats = Statistics{}
	p.halted = false
	p.haltErr = nil
}

func (p *Pipeline) doWriteback() {
	p.stats.InstructionCount++

	memwb := &p.memwb
	if p.writebackStage.Writeback(memwb, &p.next) {
		p.halted = true
		p.haltErr = fmt.Errorf("%w 0x%08x at PC=0x%08x",
			ErrIllegalInstruction, memwb.InstructionWord, memwb.PC)
		p.trace("halt", "pc", memwb.PC, "word", memwb.InstructionWord)
		return
	}

	if !memwb.Valid {
		return
	}

	if memwb.Inst.Op != insts.OpNOP {
		p.stats.Retired++
	}

	if p.stall.Retire(memwb.Seq) {
		p.trace("stall released", "seq", memwb.Seq, "rd", memwb.Rd)
	}
}

func (p *Pipeline) doMemory() {
	exmem := &p.exmem
	if !exmem.Valid {
		p.memwb.Clear()
		return
	}

	lmd := p.memoryStage.Access(exmem)

	p.memwb = MEMWBRegister{
		Valid:           true,
		Seq:             exmem.Seq,
		PC:              exmem.PC,
		InstructionWord: exmem.InstructionWord,
		Inst:            exmem.Inst,
		ALUOutput:       exmem.ALUOutput,
		LMD:             lmd,
		RegWrite:        exmem.RegWrite,
		Rd:              exmem.Rd,
	}
}

func (p *Pipeline) doExecute() {
	idex := &p.idex
	if !idex.Valid {
		p.exmem.Clear()
		return
	}

	result := p.executeStage.Execute(idex)

	p.exmem = EXMEMRegister{
		Valid:           true,
		Seq:             idex.Seq,
		PC:              idex.PC,
		InstructionWord: idex.InstructionWord,
		Inst:            idex.Inst,
		A:               idex.A,
		B:               idex.B,
		ALUOutput:       result.ALUOutput,
		RegWrite:        result.RegWrite,
		Rd:              result.Rd,
	}

	if result.Redirect {
		p.next.PC = result.Target
		p.redirected = true
		p.trace("redirect", "pc", idex.PC, "target", result.Target)
	}
}

func (p *Pipeline) doDecode() {
	switch p.stall.Kind {
	case StateBranchBubble:
		// The instruction in IF/ID was fetched before the control transfer
		// resolved.
		p.stall.Release()
		p.ifid.Clear()
		p.idex.Clear()
		p.stats.BranchBubbles++
		return
	case StateStalled:
		if p.forwarding {
			if !p.stall.Countdown() {
				p.issueStallBubble()
				return
			}
		} else {
			p.stall.Wait()
			p.issueStallBubble()
			return
		}
	}

	if !p.ifid.Valid {
		p.idex.Clear()
		return
	}

	decoded := p.decodeStage.Decode(p.ifid.InstructionWord, &p.next)
	inst := decoded.Inst

	if p.forwarding {
		if hazard := p.hazardUnit.DetectLoadUseHazard(inst, &p.exmem); hazard.Stall {
			p.enterStall(hazard)
			return
		}

		fwd := p.hazardUnit.DetectForwarding(inst, &p.exmem, &p.memwb)
		decoded.A = p.hazardUnit.ForwardedValue(fwd.ForwardRs1, decoded.A, &p.exmem, &p.memwb)
		decoded.B = p.hazardUnit.ForwardedValue(fwd.ForwardRs2, decoded.B, &p.exmem, &p.memwb)
		if fwd.Any() {
			p.stats.DataHazards++
			p.stats.Forwards++
		}
	} else if hazard := p.hazardUnit.DetectDataHazard(inst, &p.exmem, &p.memwb); hazard.Stall {
		p.enterStall(hazard)
		return
	}

	p.idex = IDEXRegister{
		Valid:           true,
		Seq:             p.ifid.Seq,
		PC:              p.ifid.PC,
		InstructionWord: p.ifid.InstructionWord,
		Inst:            inst,
		A:               decoded.A,
		B:               decoded.B,
		Imm:             inst.Imm,
	}

	if inst.IsControl() {
		p.stall.BranchBubble()
	}
}

func (p *Pipeline) enterStall(hazard HazardResult) {
	p.stats.DataHazards++
	p.stall.Stall(hazard.Cycles, hazard.Producer)
	p.issueStallBubble()
	p.trace("stall",
		"pc", p.ifid.PC,
		"producer_seq", hazard.Producer.Seq,
		"producer_rd", hazard.Producer.Rd,
		"cycles", hazard.Cycles)
}

func (p *Pipeline) issueStallBubble() {
	p.idex.Clear()
	p.stats.Stalls++
}

func (p *Pipeline) doFetch() {
	pc := p.regFile.PC
	seq := p.seq + 1

	switch {
	case p.redirected:
		pc = p.next.PC
	case p.stall.Kind == StateStalled:
		// Decode is holding IF/ID. Fetch the same instruction again.
		pc = p.ifid.PC
		seq = p.ifid.Seq
	}

	if seq > p.seq {
		p.seq = seq
	}

	p.ifid = IFIDRegister{
		Valid:           true,
		Seq:             seq,
		PC:              pc,
		InstructionWord: p.fetchStage.Fetch(pc),
	}
	p.next.PC = pc + 4
}

func (p *Pipeline) trace(msg string, args ...any) {
	args = append([]any{"cycle", p.stats.Cycles}, args...)
	p.logger.Log(context.Background(), LevelTrace, msg, args...)
}
