package insts_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/murvsim/insts"
)

var _ = Describe("Encoder", func() {
	var decoder *insts.Decoder

	BeforeEach(func() {
		decoder = insts.NewDecoder()
	})

	It("should encode the same words the decoder tests use", func() {
		Expect(insts.ADD(3, 1, 2)).To(Equal(uint32(0x002081B3)))
		Expect(insts.SUB(3, 1, 2)).To(Equal(uint32(0x402081B3)))
		Expect(insts.ADDI(1, 0, 42)).To(Equal(uint32(0x02A00093)))
		Expect(insts.LW(5, 1, 0)).To(Equal(uint32(0x0000A283)))
		Expect(insts.SW(5, 1, 8)).To(Equal(uint32(0x0050A423)))
		Expect(insts.BEQ(1, 2, 8)).To(Equal(uint32(0x00208463)))
		Expect(insts.BNE(1, 2, -4)).To(Equal(uint32(0xFE209EE3)))
		Expect(insts.LUI(5, 0x12345000)).To(Equal(uint32(0x123452B7)))
		Expect(insts.JAL(1, 16)).To(Equal(uint32(0x010000EF)))
		Expect(insts.JAL(0, -8)).To(Equal(uint32(0xFF9FF06F)))
	})

	Describe("B-type immediate round trip", func() {
		It("should reproduce every even 13-bit offset", func() {
			for imm := int32(-4096); imm <= 4094; imm += 2 {
				word := insts.BEQ(1, 2, imm)
				Expect(insts.BImm(word)).To(Equal(imm), "offset %d", imm)
				Expect(decoder.Decode(word).Imm).To(Equal(imm))
			}
		})

		It("should only touch the immediate bit positions", func() {
			Expect(insts.BImmBits(-2) & 0x01FFF07F).To(BeZero())
		})
	})

	Describe("J-type immediate round trip", func() {
		It("should reproduce 21-bit offsets", func() {
			for imm := int32(-(1 << 20)); imm < 1<<20; imm += 2*511 + 2 {
				word := insts.JAL(1, imm)
				Expect(insts.JImm(word)).To(Equal(imm), "offset %d", imm)
			}
			Expect(insts.JImm(insts.JAL(1, (1<<20)-2))).To(Equal(int32((1 << 20) - 2)))
			Expect(insts.JImm(insts.JAL(1, -(1 << 20)))).To(Equal(int32(-(1 << 20))))
		})

		It("should only touch the immediate bit positions", func() {
			Expect(insts.JImmBits(-2) & 0x00000FFF).To(BeZero())
		})
	})

	It("should keep the low 12 bits of I and S immediates", func() {
		Expect(insts.IImm(insts.ADDI(1, 1, -2048))).To(Equal(int32(-2048)))
		Expect(insts.IImm(insts.ADDI(1, 1, 2047))).To(Equal(int32(2047)))
		Expect(insts.SImm(insts.SW(1, 1, -2048))).To(Equal(int32(-2048)))
		Expect(insts.SImm(insts.SW(1, 1, 2047))).To(Equal(int32(2047)))
	})
})
