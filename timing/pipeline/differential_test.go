package pipeline_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/murvsim/emu"
	"github.com/sarchlab/murvsim/insts"
	"github.com/sarchlab/murvsim/timing/pipeline"
)

// runBoth runs a program on the functional emulator and on the pipeline and
// returns both final register files.
func runBoth(forwarding bool, program []uint32) (*emu.RegFile, *emu.RegFile) {
	end := emu.TextBegin + uint32(len(program))*4

	refRegs := &emu.RegFile{}
	refMem := emu.NewMemory()
	ref := emu.NewEmulator(refRegs, refMem,
		emu.WithEndPC(end),
		emu.WithMaxInstructions(10000),
	)
	ref.LoadProgram(emu.TextBegin, program)
	Expect(ref.Run()).To(Succeed())

	regs := &emu.RegFile{}
	mem := emu.NewMemory()
	mem.LoadWords(emu.TextBegin, program)
	pipe := pipeline.NewPipeline(regs, mem,
		pipeline.WithForwarding(forwarding),
		pipeline.WithEndPC(end-4+pipeline.EndOfProgramOffset),
		pipeline.WithMaxCycles(100000),
	)
	pipe.SetPC(emu.TextBegin)
	Expect(pipe.Run()).To(Succeed())

	return refRegs, regs
}

var _ = Describe("Pipeline against the functional emulator", func() {
	programs := []struct {
		name    string
		program []uint32
	}{
		{"dependent arithmetic", []uint32{
			insts.ADDI(1, 0, 5),
			insts.ADDI(2, 1, -2),
			insts.SUB(3, 1, 2),
			insts.EncodeR(0x00, 3, 1, 0x1, 4, insts.OpcodeOp),    // sll x4, x1, x3
			insts.EncodeI(2, 4, 0x5, 5, insts.OpcodeOpImm),       // srli x5, x4, 2
			insts.EncodeI(-1, 0, 0x0, 6, insts.OpcodeOpImm),      // addi x6, x0, -1
			insts.EncodeI(0x400|4, 6, 0x5, 7, insts.OpcodeOpImm), // srai x7, x6, 4
			insts.EncodeR(0x00, 6, 1, 0x2, 8, insts.OpcodeOp),    // slt x8, x1, x6
			insts.EncodeR(0x00, 6, 1, 0x3, 9, insts.OpcodeOp),    // sltu x9, x1, x6
			insts.EncodeR(0x00, 2, 1, 0x4, 10, insts.OpcodeOp),   // xor x10, x1, x2
		}},
		{"counted loop with memory", []uint32{
			insts.ADDI(1, 0, 5),
			insts.ADDI(2, 0, 0),
			insts.ADD(2, 2, 1),
			insts.ADDI(1, 1, -1),
			insts.BNE(1, 0, -8),
			insts.LUI(10, 0x10000000),
			insts.SW(2, 10, 0),
			insts.LW(11, 10, 0),
			insts.ADD(12, 11, 11),
		}},
		{"call and return", []uint32{
			insts.ADDI(10, 0, 3),
			insts.JAL(1, 12),
			insts.ADDI(11, 10, 0),
			insts.JAL(0, 16),
			insts.ADDI(10, 10, 4),
			insts.ADD(10, 10, 10),
			insts.JALR(0, 1, 0),
			insts.ADDI(12, 0, 1),
		}},
		{"byte stores and loads", []uint32{
			insts.LUI(1, 0x10000000),
			insts.ADDI(2, 0, -128),
			insts.SB(2, 1, 3),
			insts.LB(3, 1, 3),
			insts.LBU(4, 1, 3),
			insts.LW(5, 1, 0),
			insts.AUIPC(6, 0x2000),
			insts.BLT(3, 0, 8),
			insts.ADDI(7, 0, 1),
			insts.ADDI(8, 0, 1),
		}},
	}

	for _, p := range programs {
		for _, forwarding := range []bool{true, false} {
			It("should match on "+p.name+forwardingLabel(forwarding), func() {
				ref, got := runBoth(forwarding, p.program)

				Expect(got.X).To(Equal(ref.X))
			})
		}
	}
})

func forwardingLabel(forwarding bool) string {
	if forwarding {
		return " with forwarding"
	}
	return " without forwarding"
}
