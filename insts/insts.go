// Package insts provides RV32I instruction definitions and decoding.
//
// This package implements decoding of RISC-V machine code into structured
// instruction representations. It supports:
//   - R-type: ADD, SUB, SLL, SLT, SLTU, XOR, SRL, SRA, OR, AND
//   - I-type: loads, arithmetic with immediate, JALR
//   - S-type: SB, SH, SW
//   - B-type: BEQ, BNE, BLT, BGE, BLTU, BGEU
//   - U-type: LUI, AUIPC
//   - J-type: JAL
//
// Usage:
//
//	decoder := insts.NewDecoder()
//	inst := decoder.Decode(0x02A00093) // ADDI x1, x0, 42
//	fmt.Printf("Op: %v, Rd: %d, Rs1: %d, Imm: %d\n", inst.Op, inst.Rd, inst.Rs1, inst.Imm)
package insts
