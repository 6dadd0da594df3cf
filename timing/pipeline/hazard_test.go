package pipeline_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/murvsim/insts"
	"github.com/sarchlab/murvsim/timing/pipeline"
)

var _ = Describe("HazardUnit", func() {
	var (
		hazardUnit *pipeline.HazardUnit
		decoder    *insts.Decoder
		exmem      *pipeline.EXMEMRegister
		memwb      *pipeline.MEMWBRegister
	)

	BeforeEach(func() {
		hazardUnit = pipeline.NewHazardUnit()
		decoder = insts.NewDecoder()
		exmem = &pipeline.EXMEMRegister{}
		memwb = &pipeline.MEMWBRegister{}
	})

	producerInEXMEM := func(word uint32, seq uint64, result uint32) {
		inst := decoder.Decode(word)
		*exmem = pipeline.EXMEMRegister{
			Valid: true, Seq: seq, Inst: inst, ALUOutput: result,
			RegWrite: inst.WritesRd(), Rd: inst.Rd,
		}
	}

	producerInMEMWB := func(word uint32, seq uint64, lmd uint32) {
		inst := decoder.Decode(word)
		*memwb = pipeline.MEMWBRegister{
			Valid: true, Seq: seq, Inst: inst, LMD: lmd,
			RegWrite: inst.WritesRd(), Rd: inst.Rd,
		}
	}

	Describe("DetectForwarding", func() {
		It("should not forward when nothing is in flight", func() {
			result := hazardUnit.DetectForwarding(decoder.Decode(insts.ADD(3, 1, 2)), exmem, memwb)

			Expect(result.ForwardRs1).To(Equal(pipeline.ForwardNone))
			Expect(result.ForwardRs2).To(Equal(pipeline.ForwardNone))
			Expect(result.Any()).To(BeFalse())
		})

		It("should forward rs1 from EX/MEM", func() {
			producerInEXMEM(insts.ADDI(1, 0, 5), 1, 5)

			result := hazardUnit.DetectForwarding(decoder.Decode(insts.ADD(3, 1, 2)), exmem, memwb)

			Expect(result.ForwardRs1).To(Equal(pipeline.ForwardFromEXMEM))
			Expect(result.ForwardRs2).To(Equal(pipeline.ForwardNone))
		})

		It("should forward rs2 from MEM/WB", func() {
			producerInMEMWB(insts.ADDI(2, 0, 5), 1, 5)

			result := hazardUnit.DetectForwarding(decoder.Decode(insts.ADD(3, 1, 2)), exmem, memwb)

			Expect(result.ForwardRs2).To(Equal(pipeline.ForwardFromMEMWB))
		})

		It("should prefer EX/MEM over MEM/WB", func() {
			producerInEXMEM(insts.ADDI(1, 0, 2), 2, 2)
			producerInMEMWB(insts.ADDI(1, 0, 1), 1, 1)

			result := hazardUnit.DetectForwarding(decoder.Decode(insts.ADD(3, 1, 1)), exmem, memwb)

			Expect(result.ForwardRs1).To(Equal(pipeline.ForwardFromEXMEM))
			Expect(hazardUnit.ForwardedValue(result.ForwardRs1, 0, exmem, memwb)).To(Equal(uint32(2)))
		})

		It("should never forward x0", func() {
			producerInEXMEM(insts.ADDI(0, 0, 5), 1, 5)

			result := hazardUnit.DetectForwarding(decoder.Decode(insts.ADDI(1, 0, 1)), exmem, memwb)

			Expect(result.ForwardRs1).To(Equal(pipeline.ForwardNone))
		})

		It("should ignore producers that do not write a register", func() {
			inst := decoder.Decode(insts.SW(1, 2, 5))
			*exmem = pipeline.EXMEMRegister{Valid: true, Inst: inst, Rd: inst.Rd}

			result := hazardUnit.DetectForwarding(decoder.Decode(insts.ADD(3, inst.Rd, 0)), exmem, memwb)

			Expect(result.Any()).To(BeFalse())
		})

		It("should ignore operands the format does not read", func() {
			producerInEXMEM(insts.ADDI(2, 0, 5), 1, 5)

			// addi reads rs1 only; the rs2 field overlaps the immediate.
			result := hazardUnit.DetectForwarding(decoder.Decode(insts.ADDI(3, 1, 2)), exmem, memwb)

			Expect(result.ForwardRs2).To(Equal(pipeline.ForwardNone))
		})
	})

	Describe("ForwardedValue", func() {
		It("should return the register value when not forwarding", func() {
			Expect(hazardUnit.ForwardedValue(pipeline.ForwardNone, 9, exmem, memwb)).To(Equal(uint32(9)))
		})

		It("should return LMD from MEM/WB", func() {
			producerInMEMWB(insts.LW(5, 1, 0), 1, 42)

			Expect(hazardUnit.ForwardedValue(pipeline.ForwardFromMEMWB, 0, exmem, memwb)).To(Equal(uint32(42)))
		})
	})

	Describe("DetectLoadUseHazard", func() {
		It("should stall one cycle on a load in EX/MEM", func() {
			producerInEXMEM(insts.LW(5, 1, 0), 4, 0x10000000)

			result := hazardUnit.DetectLoadUseHazard(decoder.Decode(insts.ADD(6, 5, 5)), exmem)

			Expect(result.Stall).To(BeTrue())
			Expect(result.Cycles).To(Equal(1))
			Expect(result.Producer).To(Equal(pipeline.Producer{Seq: 4, Op: insts.OpLW, Rd: 5}))
		})

		It("should not stall when the load result is not used", func() {
			producerInEXMEM(insts.LW(5, 1, 0), 4, 0x10000000)

			result := hazardUnit.DetectLoadUseHazard(decoder.Decode(insts.ADD(6, 1, 2)), exmem)

			Expect(result.Stall).To(BeFalse())
		})

		It("should not stall on an ALU producer", func() {
			producerInEXMEM(insts.ADDI(5, 0, 1), 4, 1)

			result := hazardUnit.DetectLoadUseHazard(decoder.Decode(insts.ADD(6, 5, 5)), exmem)

			Expect(result.Stall).To(BeFalse())
		})
	})

	Describe("DetectDataHazard", func() {
		It("should wait two cycles for a producer in EX/MEM", func() {
			producerInEXMEM(insts.ADD(3, 1, 2), 2, 0)

			result := hazardUnit.DetectDataHazard(decoder.Decode(insts.ADD(4, 3, 0)), exmem, memwb)

			Expect(result.Stall).To(BeTrue())
			Expect(result.Cycles).To(Equal(2))
			Expect(result.Producer.Seq).To(Equal(uint64(2)))
		})

		It("should wait one cycle for a producer in MEM/WB", func() {
			producerInMEMWB(insts.ADD(3, 1, 2), 2, 0)

			result := hazardUnit.DetectDataHazard(decoder.Decode(insts.SW(3, 0, 0)), exmem, memwb)

			Expect(result.Stall).To(BeTrue())
			Expect(result.Cycles).To(Equal(1))
		})

		It("should wait on the youngest producer", func() {
			producerInEXMEM(insts.ADDI(1, 0, 2), 2, 2)
			producerInMEMWB(insts.ADDI(2, 0, 1), 1, 1)

			result := hazardUnit.DetectDataHazard(decoder.Decode(insts.ADD(3, 1, 2)), exmem, memwb)

			Expect(result.Producer.Seq).To(Equal(uint64(2)))
			Expect(result.Cycles).To(Equal(2))
		})

		It("should not stall on x0", func() {
			producerInEXMEM(insts.ADDI(0, 0, 1), 2, 1)

			result := hazardUnit.DetectDataHazard(decoder.Decode(insts.ADD(3, 0, 0)), exmem, memwb)

			Expect(result.Stall).To(BeFalse())
		})
	})
})
