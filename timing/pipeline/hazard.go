package pipeline

import "github.com/sarchlab/murvsim/insts"

// ForwardSource indicates where a forwarded value should come from.
type ForwardSource int

const (
	// ForwardNone means no forwarding needed - use register file value.
	ForwardNone ForwardSource = iota
	// ForwardFromEXMEM means forward from EX/MEM pipeline register.
	ForwardFromEXMEM
	// ForwardFromMEMWB means forward from MEM/WB pipeline register.
	ForwardFromMEMWB
)

// String returns the name of the forward source.
func (s ForwardSource) String() string {
	switch s {
	case ForwardFromEXMEM:
		return "EX/MEM"
	case ForwardFromMEMWB:
		return "MEM/WB"
	default:
		return "none"
	}
}

// ForwardingResult contains forwarding decisions for both source operands.
type ForwardingResult struct {
	ForwardRs1 ForwardSource
	ForwardRs2 ForwardSource
}

// Any returns true if either operand is forwarded.
func (r ForwardingResult) Any() bool {
	return r.ForwardRs1 != ForwardNone || r.ForwardRs2 != ForwardNone
}

// Producer identifies an in-flight instruction that a stalled instruction
// waits on.
type Producer struct {
	Seq uint64
	Op  insts.Op
	Rd  uint8
}

// HazardResult describes a RAW hazard that forwarding cannot resolve.
type HazardResult struct {
	// Stall indicates the consumer must be held in Decode.
	Stall bool

	// Cycles is the number of bubbles to insert before the consumer can
	// read its operands.
	Cycles int

	// Producer is the youngest in-flight instruction the consumer depends on.
	Producer Producer
}

// HazardUnit detects data hazards and determines forwarding/stall signals.
// It runs inside Decode, after Execute and Memory have produced this
// cycle's EX/MEM and MEM/WB contents.
type HazardUnit struct{}

// NewHazardUnit creates a new hazard detection unit.
func NewHazardUnit() *HazardUnit {
	return &HazardUnit{}
}

// DetectForwarding determines the forwarding source of each operand the
// instruction reads.
func (h *HazardUnit) DetectForwarding(
	inst *insts.Instruction,
	exmem *EXMEMRegister,
	memwb *MEMWBRegister,
) ForwardingResult {
	result := ForwardingResult{}

	if inst.UsesRs1() {
		result.ForwardRs1 = h.detectForwardForReg(inst.Rs1, exmem, memwb)
	}
	if inst.UsesRs2() {
		result.ForwardRs2 = h.detectForwardForReg(inst.Rs2, exmem, memwb)
	}

	return result
}

// detectForwardForReg checks if a specific register needs forwarding.
func (h *HazardUnit) detectForwardForReg(
	reg uint8,
	exmem *EXMEMRegister,
	memwb *MEMWBRegister,
) ForwardSource {
	// x0 is never a forwarding source.
	if reg == 0 {
		return ForwardNone
	}

	// EX/MEM holds the more recent value.
	if writesReg(exmem.Valid, exmem.RegWrite, exmem.Rd, reg) {
		return ForwardFromEXMEM
	}

	if writesReg(memwb.Valid, memwb.RegWrite, memwb.Rd, reg) {
		return ForwardFromMEMWB
	}

	return ForwardNone
}

// ForwardedValue returns the operand value for the given forwarding source.
// MEM/WB forwards LMD, which holds either the loaded data or the
// pass-through ALU output.
func (h *HazardUnit) ForwardedValue(
	forward ForwardSource,
	regValue uint32,
	exmem *EXMEMRegister,
	memwb *MEMWBRegister,
) uint32 {
	switch forward {
	case ForwardFromEXMEM:
		return exmem.ALUOutput
	case ForwardFromMEMWB:
		return memwb.LMD
	default:
		return regValue
	}
}

// DetectLoadUseHazard detects a load in EX/MEM whose destination the
// instruction reads. The loaded value only exists after Memory, so the
// consumer must wait one cycle and then take it from MEM/WB.
func (h *HazardUnit) DetectLoadUseHazard(
	inst *insts.Instruction,
	exmem *EXMEMRegister,
) HazardResult {
	if !exmem.IsLoad() || !exmem.RegWrite || exmem.Rd == 0 {
		return HazardResult{}
	}

	if !readsReg(inst, exmem.Rd) {
		return HazardResult{}
	}

	return HazardResult{
		Stall:    true,
		Cycles:   1,
		Producer: producerOf(exmem.Seq, exmem.Inst, exmem.Rd),
	}
}

// DetectDataHazard detects RAW hazards against both in-flight producers
// when forwarding is disabled. The consumer must wait until the youngest
// matching producer has retired through Writeback: two cycles for a
// producer in EX/MEM, one for a producer in MEM/WB.
func (h *HazardUnit) DetectDataHazard(
	inst *insts.Instruction,
	exmem *EXMEMRegister,
	memwb *MEMWBRegister,
) HazardResult {
	if exmem.Valid && exmem.RegWrite && exmem.Rd != 0 && readsReg(inst, exmem.Rd) {
		return HazardResult{
			Stall:    true,
			Cycles:   2,
			Producer: producerOf(exmem.Seq, exmem.Inst, exmem.Rd),
		}
	}

	if memwb.Valid && memwb.RegWrite && memwb.Rd != 0 && readsReg(inst, memwb.Rd) {
		return HazardResult{
			Stall:    true,
			Cycles:   1,
			Producer: producerOf(memwb.Seq, memwb.Inst, memwb.Rd),
		}
	}

	return HazardResult{}
}

func writesReg(valid, regWrite bool, rd, reg uint8) bool {
	return valid && regWrite && rd != 0 && rd == reg
}

// readsReg returns true if inst reads reg through a source operand its
// format actually uses.
func readsReg(inst *insts.Instruction, reg uint8) bool {
	return (inst.UsesRs1() && inst.Rs1 == reg) ||
		(inst.UsesRs2() && inst.Rs2 == reg)
}

func producerOf(seq uint64, inst *insts.Instruction, rd uint8) Producer {
	p := Producer{Seq: seq, Rd: rd}
	if inst != nil {
		p.Op = inst.Op
	}
	return p
}
