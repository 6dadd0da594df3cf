package insts

import "fmt"

var opNames = map[Op]string{
	OpNOP:   "nop",
	OpADD:   "add",
	OpSUB:   "sub",
	OpSLL:   "sll",
	OpSLT:   "slt",
	OpSLTU:  "sltu",
	OpXOR:   "xor",
	OpSRL:   "srl",
	OpSRA:   "sra",
	OpOR:    "or",
	OpAND:   "and",
	OpADDI:  "addi",
	OpSLTI:  "slti",
	OpSLTIU: "sltiu",
	OpXORI:  "xori",
	OpORI:   "ori",
	OpANDI:  "andi",
	OpSLLI:  "slli",
	OpSRLI:  "srli",
	OpSRAI:  "srai",
	OpLB:    "lb",
	OpLH:    "lh",
	OpLW:    "lw",
	OpLBU:   "lbu",
	OpLHU:   "lhu",
	OpSB:    "sb",
	OpSH:    "sh",
	OpSW:    "sw",
	OpBEQ:   "beq",
	OpBNE:   "bne",
	OpBLT:   "blt",
	OpBGE:   "bge",
	OpBLTU:  "bltu",
	OpBGEU:  "bgeu",
	OpLUI:   "lui",
	OpAUIPC: "auipc",
	OpJAL:   "jal",
	OpJALR:  "jalr",
}

// String returns the mnemonic of the operation.
func (o Op) String() string {
	if name, ok := opNames[o]; ok {
		return name
	}
	return "unknown"
}

// Disassemble renders the instruction in assembly syntax. pc is the address
// of the instruction and is used to print absolute branch and jump targets.
func Disassemble(inst *Instruction, pc uint32) string {
	name := inst.Op.String()

	switch inst.Format {
	case FormatNOP:
		return name
	case FormatR:
		return fmt.Sprintf("%s x%d, x%d, x%d", name, inst.Rd, inst.Rs1, inst.Rs2)
	case FormatI:
		switch {
		case inst.IsLoad() || inst.Op == OpJALR:
			return fmt.Sprintf("%s x%d, %d(x%d)", name, inst.Rd, inst.Imm, inst.Rs1)
		case inst.Op == OpSLLI || inst.Op == OpSRLI || inst.Op == OpSRAI:
			return fmt.Sprintf("%s x%d, x%d, %d", name, inst.Rd, inst.Rs1, inst.Imm&0x1F)
		default:
			return fmt.Sprintf("%s x%d, x%d, %d", name, inst.Rd, inst.Rs1, inst.Imm)
		}
	case FormatS:
		return fmt.Sprintf("%s x%d, %d(x%d)", name, inst.Rs2, inst.Imm, inst.Rs1)
	case FormatB:
		return fmt.Sprintf("%s x%d, x%d, 0x%08x", name, inst.Rs1, inst.Rs2, pc+uint32(inst.Imm))
	case FormatU:
		return fmt.Sprintf("%s x%d, 0x%05x", name, inst.Rd, uint32(inst.Imm)>>12)
	case FormatJ:
		return fmt.Sprintf("%s x%d, 0x%08x", name, inst.Rd, pc+uint32(inst.Imm))
	default:
		return fmt.Sprintf("unknown 0x%08x", inst.Word)
	}
}
