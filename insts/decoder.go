package insts

// Op represents a RISC-V operation.
type Op uint16

// RV32I operations.
const (
	OpUnknown Op = iota
	OpNOP

	// R-type
	OpADD
	OpSUB
	OpSLL
	OpSLT
	OpSLTU
	OpXOR
	OpSRL
	OpSRA
	OpOR
	OpAND

	// I-type arithmetic
	OpADDI
	OpSLTI
	OpSLTIU
	OpXORI
	OpORI
	OpANDI
	OpSLLI
	OpSRLI
	OpSRAI

	// I-type loads
	OpLB
	OpLH
	OpLW
	OpLBU
	OpLHU

	// S-type
	OpSB
	OpSH
	OpSW

	// B-type
	OpBEQ
	OpBNE
	OpBLT
	OpBGE
	OpBLTU
	OpBGEU

	// U-type
	OpLUI
	OpAUIPC

	// Jumps
	OpJAL
	OpJALR
)

// Format represents an instruction encoding format.
type Format uint8

// Instruction formats.
const (
	FormatUnknown Format = iota
	FormatNOP
	FormatR
	FormatI
	FormatS
	FormatB
	FormatU
	FormatJ
)

// Major opcodes (bits [6:0]).
const (
	OpcodeLoad   uint8 = 0x03
	OpcodeOpImm  uint8 = 0x13
	OpcodeAUIPC  uint8 = 0x17
	OpcodeStore  uint8 = 0x23
	OpcodeOp     uint8 = 0x33
	OpcodeLUI    uint8 = 0x37
	OpcodeBranch uint8 = 0x63
	OpcodeJALR   uint8 = 0x67
	OpcodeJAL    uint8 = 0x6F
)

// Instruction represents a decoded RV32I instruction.
type Instruction struct {
	Op     Op     // Operation
	Format Format // Encoding format

	// Raw fields
	Word   uint32 // The encoded instruction word
	Opcode uint8  // bits [6:0]
	Rd     uint8  // bits [11:7]
	Funct3 uint8  // bits [14:12]
	Rs1    uint8  // bits [19:15]
	Rs2    uint8  // bits [24:20]
	Funct7 uint8  // bits [31:25]

	// Imm is the sign-extended immediate for the instruction's format.
	Imm int32
}

// UsesRs1 returns true if the instruction reads Rs1.
func (i *Instruction) UsesRs1() bool {
	switch i.Format {
	case FormatR, FormatI, FormatS, FormatB:
		return true
	}
	return false
}

// UsesRs2 returns true if the instruction reads Rs2.
func (i *Instruction) UsesRs2() bool {
	switch i.Format {
	case FormatR, FormatS, FormatB:
		return true
	}
	return false
}

// WritesRd returns true if the instruction writes a destination register.
func (i *Instruction) WritesRd() bool {
	switch i.Format {
	case FormatR, FormatI, FormatU, FormatJ:
		return true
	}
	return false
}

// IsLoad returns true for load instructions.
func (i *Instruction) IsLoad() bool {
	return i.Opcode == OpcodeLoad && i.Format == FormatI
}

// IsStore returns true for store instructions.
func (i *Instruction) IsStore() bool {
	return i.Format == FormatS
}

// IsControl returns true for branches and jumps, i.e. instructions that may
// redirect the program counter.
func (i *Instruction) IsControl() bool {
	return i.Format == FormatB || i.Op == OpJAL || i.Op == OpJALR
}

// Decoder decodes RV32I machine code into instructions.
type Decoder struct{}

// NewDecoder creates a new RV32I instruction decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode decodes a 32-bit RV32I instruction word.
func (d *Decoder) Decode(word uint32) *Instruction {
	inst := &Instruction{
		Op:     OpUnknown,
		Format: FormatUnknown,
		Word:   word,
		Opcode: uint8(word & 0x7F),
		Rd:     uint8((word >> 7) & 0x1F),
		Funct3: uint8((word >> 12) & 0x7),
		Rs1:    uint8((word >> 15) & 0x1F),
		Rs2:    uint8((word >> 20) & 0x1F),
		Funct7: uint8(word >> 25),
	}

	if word == 0 {
		inst.Op = OpNOP
		inst.Format = FormatNOP
		return inst
	}

	switch inst.Opcode {
	case OpcodeOp:
		d.decodeR(inst)
	case OpcodeOpImm:
		d.decodeOpImm(word, inst)
	case OpcodeLoad:
		d.decodeLoad(word, inst)
	case OpcodeJALR:
		if inst.Funct3 == 0 {
			inst.Format = FormatI
			inst.Op = OpJALR
			inst.Imm = IImm(word)
		}
	case OpcodeStore:
		d.decodeStore(word, inst)
	case OpcodeBranch:
		d.decodeBranch(word, inst)
	case OpcodeLUI:
		inst.Format = FormatU
		inst.Op = OpLUI
		inst.Imm = UImm(word)
	case OpcodeAUIPC:
		inst.Format = FormatU
		inst.Op = OpAUIPC
		inst.Imm = UImm(word)
	case OpcodeJAL:
		inst.Format = FormatJ
		inst.Op = OpJAL
		inst.Imm = JImm(word)
	}

	return inst
}

// decodeR decodes register-register operations.
// Format: funct7 | rs2 | rs1 | funct3 | rd | 0110011
func (d *Decoder) decodeR(inst *Instruction) {
	var op Op

	switch inst.Funct7 {
	case 0x00:
		op = [8]Op{OpADD, OpSLL, OpSLT, OpSLTU, OpXOR, OpSRL, OpOR, OpAND}[inst.Funct3]
	case 0x20:
		switch inst.Funct3 {
		case 0x0:
			op = OpSUB
		case 0x5:
			op = OpSRA
		}
	}

	if op == OpUnknown {
		return
	}

	inst.Format = FormatR
	inst.Op = op
}

// decodeOpImm decodes arithmetic-immediate operations.
// Shifts carry the shift amount in imm[4:0] and select SRAI with imm[10].
func (d *Decoder) decodeOpImm(word uint32, inst *Instruction) {
	inst.Imm = IImm(word)

	switch inst.Funct3 {
	case 0x0:
		inst.Op = OpADDI
	case 0x2:
		inst.Op = OpSLTI
	case 0x3:
		inst.Op = OpSLTIU
	case 0x4:
		inst.Op = OpXORI
	case 0x6:
		inst.Op = OpORI
	case 0x7:
		inst.Op = OpANDI
	case 0x1:
		if inst.Funct7 != 0x00 {
			return
		}
		inst.Op = OpSLLI
	case 0x5:
		switch inst.Funct7 {
		case 0x00:
			inst.Op = OpSRLI
		case 0x20:
			inst.Op = OpSRAI
		default:
			return
		}
	}

	inst.Format = FormatI
}

func (d *Decoder) decodeLoad(word uint32, inst *Instruction) {
	switch inst.Funct3 {
	case 0x0:
		inst.Op = OpLB
	case 0x1:
		inst.Op = OpLH
	case 0x2:
		inst.Op = OpLW
	case 0x4:
		inst.Op = OpLBU
	case 0x5:
		inst.Op = OpLHU
	default:
		return
	}

	inst.Format = FormatI
	inst.Imm = IImm(word)
}

func (d *Decoder) decodeStore(word uint32, inst *Instruction) {
	switch inst.Funct3 {
	case 0x0:
		inst.Op = OpSB
	case 0x1:
		inst.Op = OpSH
	case 0x2:
		inst.Op = OpSW
	default:
		return
	}

	inst.Format = FormatS
	inst.Imm = SImm(word)
}

func (d *Decoder) decodeBranch(word uint32, inst *Instruction) {
	switch inst.Funct3 {
	case 0x0:
		inst.Op = OpBEQ
	case 0x1:
		inst.Op = OpBNE
	case 0x4:
		inst.Op = OpBLT
	case 0x5:
		inst.Op = OpBGE
	case 0x6:
		inst.Op = OpBLTU
	case 0x7:
		inst.Op = OpBGEU
	default:
		return
	}

	inst.Format = FormatB
	inst.Imm = BImm(word)
}

// signExtend sign-extends the low `bits` bits of v.
func signExtend(v uint32, bits uint) int32 {
	shift := 32 - bits
	return int32(v<<shift) >> shift
}

// IImm extracts the I-type immediate: word[31:20], sign-extended from bit 11.
func IImm(word uint32) int32 {
	return signExtend(word>>20, 12)
}

// SImm extracts the S-type immediate: word[31:25]:word[11:7], sign-extended
// from bit 11.
func SImm(word uint32) int32 {
	imm := (word>>25)<<5 | (word>>7)&0x1F
	return signExtend(imm, 12)
}

// BImm extracts the 13-bit B-type immediate, sign-extended from bit 12.
//
//	imm[12]   = word[31]
//	imm[10:5] = word[30:25]
//	imm[4:1]  = word[11:8]
//	imm[11]   = word[7]
func BImm(word uint32) int32 {
	imm := (word>>31)<<12 |
		((word>>7)&0x1)<<11 |
		((word>>25)&0x3F)<<5 |
		((word>>8)&0xF)<<1
	return signExtend(imm, 13)
}

// UImm extracts the U-type immediate: word[31:12] << 12.
func UImm(word uint32) int32 {
	return int32(word & 0xFFFFF000)
}

// JImm extracts the 21-bit J-type immediate, sign-extended from bit 20.
//
//	imm[20]    = word[31]
//	imm[10:1]  = word[30:21]
//	imm[11]    = word[20]
//	imm[19:12] = word[19:12]
func JImm(word uint32) int32 {
	imm := (word>>31)<<20 |
		((word>>12)&0xFF)<<12 |
		((word>>20)&0x1)<<11 |
		((word>>21)&0x3FF)<<1
	return signExtend(imm, 21)
}
