package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/murvsim/emu"
)

var _ = Describe("Memory", func() {
	var memory *emu.Memory

	BeforeEach(func() {
		memory = emu.NewMemory()
	})

	It("should lay out the default regions in address order", func() {
		regions := memory.Regions()

		Expect(regions).To(HaveLen(5))
		Expect(regions[0].Name).To(Equal("text"))
		Expect(regions[0].Begin).To(Equal(uint32(0x00400000)))
		Expect(regions[4].Name).To(Equal("kdata"))
		Expect(regions[4].End).To(Equal(uint32(0x900FFFFF)))
	})

	It("should find a region by name", func() {
		r, ok := memory.Region("stack")

		Expect(ok).To(BeTrue())
		Expect(r.Size()).To(Equal(uint64(0x100000)))

		_, ok = memory.Region("heap")
		Expect(ok).To(BeFalse())
	})

	It("should store words little-endian", func() {
		memory.Write32(emu.DataBegin, 0x11223344)

		Expect(memory.Read8(emu.DataBegin)).To(Equal(uint8(0x44)))
		Expect(memory.Read8(emu.DataBegin + 3)).To(Equal(uint8(0x11)))
		Expect(memory.Read16(emu.DataBegin + 2)).To(Equal(uint16(0x1122)))
		Expect(memory.Read32(emu.DataBegin)).To(Equal(uint32(0x11223344)))
	})

	It("should read zero and drop writes outside every region", func() {
		memory.Write32(0x20000000, 0xDEADBEEF)

		Expect(memory.Read32(0x20000000)).To(Equal(uint32(0)))
	})

	It("should read zero and drop misaligned accesses", func() {
		memory.Write32(emu.DataBegin, 0xAABBCCDD)
		memory.Write32(emu.DataBegin+2, 0x12345678)

		Expect(memory.Read32(emu.DataBegin + 2)).To(Equal(uint32(0)))
		Expect(memory.Read16(emu.DataBegin + 1)).To(Equal(uint16(0)))
		Expect(memory.Read32(emu.DataBegin)).To(Equal(uint32(0xAABBCCDD)))
	})

	It("should accept the last word of a region", func() {
		memory.Write32(emu.TextEnd-3, 0x01020304)

		Expect(memory.Read32(emu.TextEnd - 3)).To(Equal(uint32(0x01020304)))
	})

	It("should reject accesses that straddle a region boundary", func() {
		m, err := emu.NewMemoryWithLayout([]emu.RegionSpec{
			{Name: "a", Begin: 0x1000, End: 0x1002},
		})
		Expect(err).NotTo(HaveOccurred())

		m.Write32(0x1000, 0xCAFEF00D)

		Expect(m.Read32(0x1000)).To(Equal(uint32(0)))
		Expect(m.Read16(0x1002)).To(Equal(uint16(0)))
	})

	It("should zero every region on reset", func() {
		memory.Write32(emu.StackBegin, 7)
		memory.Reset()

		Expect(memory.Read32(emu.StackBegin)).To(Equal(uint32(0)))
	})

	Describe("NewMemoryWithLayout", func() {
		It("should reject overlapping regions", func() {
			_, err := emu.NewMemoryWithLayout([]emu.RegionSpec{
				{Name: "a", Begin: 0x1000, End: 0x1FFF},
				{Name: "b", Begin: 0x1800, End: 0x2FFF},
			})

			Expect(err).To(HaveOccurred())
		})

		It("should reject a region that ends before it begins", func() {
			_, err := emu.NewMemoryWithLayout([]emu.RegionSpec{
				{Name: "a", Begin: 0x2000, End: 0x1000},
			})

			Expect(err).To(HaveOccurred())
		})
	})
})
