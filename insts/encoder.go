package insts

// Encoding helpers. They build instruction words from fields and are the
// inverse of the immediate extractors in decoder.go.

// EncodeR encodes a register-register instruction.
func EncodeR(funct7 uint8, rs2, rs1 uint8, funct3 uint8, rd uint8, opcode uint8) uint32 {
	return uint32(funct7)<<25 |
		uint32(rs2&0x1F)<<20 |
		uint32(rs1&0x1F)<<15 |
		uint32(funct3&0x7)<<12 |
		uint32(rd&0x1F)<<7 |
		uint32(opcode&0x7F)
}

// EncodeI encodes an I-type instruction. Only imm[11:0] is kept.
func EncodeI(imm int32, rs1 uint8, funct3 uint8, rd uint8, opcode uint8) uint32 {
	return (uint32(imm)&0xFFF)<<20 |
		uint32(rs1&0x1F)<<15 |
		uint32(funct3&0x7)<<12 |
		uint32(rd&0x1F)<<7 |
		uint32(opcode&0x7F)
}

// EncodeS encodes an S-type instruction. Only imm[11:0] is kept.
func EncodeS(imm int32, rs2, rs1 uint8, funct3 uint8, opcode uint8) uint32 {
	u := uint32(imm) & 0xFFF
	return (u>>5)<<25 |
		uint32(rs2&0x1F)<<20 |
		uint32(rs1&0x1F)<<15 |
		uint32(funct3&0x7)<<12 |
		(u&0x1F)<<7 |
		uint32(opcode&0x7F)
}

// BImmBits scatters a 13-bit branch offset into its instruction bit
// positions. Bit 0 of the offset is dropped.
func BImmBits(imm int32) uint32 {
	u := uint32(imm)
	return ((u>>12)&0x1)<<31 |
		((u>>5)&0x3F)<<25 |
		((u>>1)&0xF)<<8 |
		((u>>11)&0x1)<<7
}

// EncodeB encodes a conditional branch.
func EncodeB(imm int32, rs2, rs1 uint8, funct3 uint8) uint32 {
	return BImmBits(imm) |
		uint32(rs2&0x1F)<<20 |
		uint32(rs1&0x1F)<<15 |
		uint32(funct3&0x7)<<12 |
		uint32(OpcodeBranch)
}

// EncodeU encodes LUI/AUIPC. imm is the already shifted value; its low 12
// bits are dropped.
func EncodeU(imm int32, rd uint8, opcode uint8) uint32 {
	return uint32(imm)&0xFFFFF000 | uint32(rd&0x1F)<<7 | uint32(opcode&0x7F)
}

// JImmBits scatters a 21-bit jump offset into its instruction bit positions.
// Bit 0 of the offset is dropped.
func JImmBits(imm int32) uint32 {
	u := uint32(imm)
	return ((u>>20)&0x1)<<31 |
		((u>>1)&0x3FF)<<21 |
		((u>>11)&0x1)<<20 |
		((u>>12)&0xFF)<<12
}

// EncodeJ encodes JAL.
func EncodeJ(imm int32, rd uint8) uint32 {
	return JImmBits(imm) | uint32(rd&0x1F)<<7 | uint32(OpcodeJAL)
}

// Convenience encoders for common instructions.

// ADD encodes add rd, rs1, rs2.
func ADD(rd, rs1, rs2 uint8) uint32 { return EncodeR(0x00, rs2, rs1, 0x0, rd, OpcodeOp) }

// SUB encodes sub rd, rs1, rs2.
func SUB(rd, rs1, rs2 uint8) uint32 { return EncodeR(0x20, rs2, rs1, 0x0, rd, OpcodeOp) }

// ADDI encodes addi rd, rs1, imm.
func ADDI(rd, rs1 uint8, imm int32) uint32 { return EncodeI(imm, rs1, 0x0, rd, OpcodeOpImm) }

// LW encodes lw rd, imm(rs1).
func LW(rd, rs1 uint8, imm int32) uint32 { return EncodeI(imm, rs1, 0x2, rd, OpcodeLoad) }

// SW encodes sw rs2, imm(rs1).
func SW(rs2, rs1 uint8, imm int32) uint32 { return EncodeS(imm, rs2, rs1, 0x2, OpcodeStore) }

// BEQ encodes beq rs1, rs2, imm.
func BEQ(rs1, rs2 uint8, imm int32) uint32 { return EncodeB(imm, rs2, rs1, 0x0) }

// BNE encodes bne rs1, rs2, imm.
func BNE(rs1, rs2 uint8, imm int32) uint32 { return EncodeB(imm, rs2, rs1, 0x1) }

// LUI encodes lui rd, imm (imm already shifted).
func LUI(rd uint8, imm int32) uint32 { return EncodeU(imm, rd, OpcodeLUI) }

// JAL encodes jal rd, imm.
func JAL(rd uint8, imm int32) uint32 { return EncodeJ(imm, rd) }

// JALR encodes jalr rd, imm(rs1).
func JALR(rd, rs1 uint8, imm int32) uint32 { return EncodeI(imm, rs1, 0x0, rd, OpcodeJALR) }

// LB encodes lb rd, imm(rs1).
func LB(rd, rs1 uint8, imm int32) uint32 { return EncodeI(imm, rs1, 0x0, rd, OpcodeLoad) }

// LBU encodes lbu rd, imm(rs1).
func LBU(rd, rs1 uint8, imm int32) uint32 { return EncodeI(imm, rs1, 0x4, rd, OpcodeLoad) }

// SB encodes sb rs2, imm(rs1).
func SB(rs2, rs1 uint8, imm int32) uint32 { return EncodeS(imm, rs2, rs1, 0x0, OpcodeStore) }

// BLT encodes blt rs1, rs2, imm.
func BLT(rs1, rs2 uint8, imm int32) uint32 { return EncodeB(imm, rs2, rs1, 0x4) }

// AUIPC encodes auipc rd, imm (imm already shifted).
func AUIPC(rd uint8, imm int32) uint32 { return EncodeU(imm, rd, OpcodeAUIPC) }
