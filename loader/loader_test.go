package loader_test

import (
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/murvsim/emu"
	"github.com/sarchlab/murvsim/loader"
)

var _ = Describe("Program Loader", func() {
	var tempDir string

	BeforeEach(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "program-loader-test")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		_ = os.RemoveAll(tempDir)
	})

	Describe("Load", func() {
		It("should read one word per line at the text base", func() {
			path := filepath.Join(tempDir, "prog.txt")
			Expect(os.WriteFile(path, []byte("002081b3\n0x02a00093\n"), 0o644)).To(Succeed())

			prog, err := loader.Load(path)

			Expect(err).NotTo(HaveOccurred())
			Expect(prog.Base).To(Equal(emu.TextBegin))
			Expect(prog.Words).To(Equal([]uint32{0x002081B3, 0x02A00093}))
			Expect(prog.LastPC()).To(Equal(emu.TextBegin + 4))
			Expect(prog.EndPC()).To(Equal(emu.TextBegin + 8))
		})

		It("should place the program at a given base", func() {
			path := filepath.Join(tempDir, "prog.txt")
			Expect(os.WriteFile(path, []byte("00000013\n00000013\n"), 0o644)).To(Succeed())

			prog, err := loader.LoadAt(path, 0x1000)

			Expect(err).NotTo(HaveOccurred())
			Expect(prog.Base).To(Equal(uint32(0x1000)))
			Expect(prog.EndPC()).To(Equal(uint32(0x1008)))
		})

		It("should fail for a missing file", func() {
			_, err := loader.Load(filepath.Join(tempDir, "missing.txt"))

			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("failed to open program file"))
		})
	})

	Describe("Parse", func() {
		It("should skip blank lines and comments", func() {
			src := "# header\n\n  00000013  # nop\n0XFFF00093\n"

			prog, err := loader.Parse(strings.NewReader(src))

			Expect(err).NotTo(HaveOccurred())
			Expect(prog.Words).To(Equal([]uint32{0x00000013, 0xFFF00093}))
		})

		It("should report the line of a malformed word", func() {
			_, err := loader.Parse(strings.NewReader("00000013\nzzzz\n"))

			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("line 2"))
		})

		It("should reject words wider than 32 bits", func() {
			_, err := loader.Parse(strings.NewReader("123456789\n"))

			Expect(err).To(HaveOccurred())
		})
	})

	It("should write the program into memory", func() {
		prog := &loader.Program{Base: emu.TextBegin, Words: []uint32{1, 2}}
		memory := emu.NewMemory()

		prog.LoadInto(memory)

		Expect(memory.Read32(emu.TextBegin)).To(Equal(uint32(1)))
		Expect(memory.Read32(emu.TextBegin + 4)).To(Equal(uint32(2)))
	})

	It("should report the base as the last PC of an empty program", func() {
		prog := &loader.Program{Base: emu.TextBegin}

		Expect(prog.LastPC()).To(Equal(emu.TextBegin))
	})

	DescribeTable("CheckFits",
		func(base uint32, words int, fits bool) {
			prog := &loader.Program{Base: base, Words: make([]uint32, words)}
			region := emu.RegionSpec{Name: "text", Begin: 0x1000, End: 0x100F}

			err := prog.CheckFits(region)

			if fits {
				Expect(err).NotTo(HaveOccurred())
			} else {
				Expect(err).To(MatchError(loader.ErrProgramTooLarge))
			}
		},
		Entry("exactly full", uint32(0x1000), 4, true),
		Entry("empty", uint32(0x1000), 0, true),
		Entry("one word too many", uint32(0x1000), 5, false),
		Entry("below the region", uint32(0x0FFC), 1, false),
		Entry("past the region", uint32(0x1010), 1, false),
	)
})
