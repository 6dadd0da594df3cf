package console_test

import (
	"bytes"
	"errors"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/murvsim/config"
	"github.com/sarchlab/murvsim/console"
	"github.com/sarchlab/murvsim/emu"
	"github.com/sarchlab/murvsim/insts"
	"github.com/sarchlab/murvsim/loader"
	"github.com/sarchlab/murvsim/timing/cache"
	"github.com/sarchlab/murvsim/timing/core"
	"github.com/sarchlab/murvsim/timing/pipeline"
)

var _ = Describe("Console", func() {
	var (
		out *bytes.Buffer
		c   *core.Core
		con *console.Console
	)

	BeforeEach(func() {
		out = &bytes.Buffer{}
		c = core.NewBuilder().WithConfig(config.Default()).Build("Core")
		c.LoadProgram(&loader.Program{
			Base: emu.TextBegin,
			Words: []uint32{
				insts.ADDI(1, 0, 5),
				insts.ADD(2, 1, 1),
			},
		})
		con = console.New(c, out)
	})

	Describe("sim", func() {
		It("should run the program to completion", func() {
			Expect(con.Execute("sim")).To(Succeed())

			Expect(c.RegFile().X[2]).To(Equal(uint32(10)))
			Expect(out.String()).To(ContainSubstring("Simulation Finished."))
		})

		It("should refuse to run a finished program", func() {
			Expect(con.Execute("sim")).To(Succeed())
			out.Reset()

			Expect(con.Execute("sim")).To(Succeed())

			Expect(out.String()).To(ContainSubstring("Simulation Stopped."))
		})

		It("should report an illegal instruction", func() {
			c.LoadProgram(&loader.Program{Base: emu.TextBegin, Words: []uint32{0xFFFFFFFF}})

			err := con.Execute("sim")

			Expect(errors.Is(err, pipeline.ErrIllegalInstruction)).To(BeTrue())
			Expect(out.String()).To(ContainSubstring("Simulation Stopped."))
		})
	})

	Describe("run", func() {
		It("should run the given number of cycles", func() {
			Expect(con.Execute("run 3")).To(Succeed())

			Expect(c.Stats().Cycles).To(Equal(uint64(3)))
			Expect(out.String()).To(ContainSubstring("Running simulator for 3 cycles..."))
		})

		It("should reject a missing or bad count", func() {
			Expect(errors.Is(con.Execute("run"), console.ErrInvalidCommand)).To(BeTrue())
			Expect(errors.Is(con.Execute("run many"), console.ErrInvalidCommand)).To(BeTrue())
		})
	})

	Describe("rdump", func() {
		It("should print the registers and the instruction count", func() {
			Expect(con.Execute("sim")).To(Succeed())
			out.Reset()

			Expect(con.Execute("rdump")).To(Succeed())

			Expect(out.String()).To(ContainSubstring("# Instructions Executed : 6"))
			Expect(out.String()).To(ContainSubstring("0x0000000a"))
			Expect(out.String()).To(ContainSubstring("x31"))
			Expect(out.String()).To(ContainSubstring("HI"))
		})
	})

	Describe("input, high and low", func() {
		It("should set a register", func() {
			Expect(con.Execute("input 5 0x2a")).To(Succeed())
			Expect(con.Execute("input x6 -1")).To(Succeed())

			Expect(c.RegFile().X[5]).To(Equal(uint32(42)))
			Expect(c.RegFile().X[6]).To(Equal(uint32(0xFFFFFFFF)))
		})

		It("should keep x0 at zero", func() {
			Expect(con.Execute("input 0 7")).To(Succeed())

			Expect(c.RegFile().X[0]).To(Equal(uint32(0)))
		})

		It("should reject a register out of range", func() {
			Expect(errors.Is(con.Execute("input 32 1"), console.ErrInvalidCommand)).To(BeTrue())
		})

		It("should set HI and LO", func() {
			Expect(con.Execute("high 7")).To(Succeed())
			Expect(con.Execute("low 0x10")).To(Succeed())

			Expect(c.RegFile().HI).To(Equal(uint32(7)))
			Expect(c.RegFile().LO).To(Equal(uint32(16)))
		})

		It("should feed the set value into the program", func() {
			c.LoadProgram(&loader.Program{
				Base:  emu.TextBegin,
				Words: []uint32{insts.ADD(3, 1, 2)},
			})

			Expect(con.Execute("input 1 10")).To(Succeed())
			Expect(con.Execute("input 2 20")).To(Succeed())
			Expect(con.Execute("sim")).To(Succeed())

			Expect(c.RegFile().X[3]).To(Equal(uint32(30)))
		})
	})

	Describe("mdump", func() {
		It("should print the words in the range", func() {
			c.Memory().Write32(emu.DataBegin+4, 0xCAFEBABE)

			Expect(con.Execute("mdump 10000000 1000000c")).To(Succeed())

			Expect(out.String()).To(ContainSubstring("0x10000004"))
			Expect(out.String()).To(ContainSubstring("0xcafebabe"))
			Expect(out.String()).To(ContainSubstring("0x1000000c"))
			Expect(out.String()).NotTo(ContainSubstring("0x10000010"))
		})

		It("should reject a reversed range", func() {
			err := con.Execute("mdump 0x10000010 0x10000000")

			Expect(errors.Is(err, console.ErrInvalidCommand)).To(BeTrue())
		})
	})

	Describe("forward", func() {
		It("should toggle forwarding", func() {
			Expect(con.Execute("forward 0")).To(Succeed())
			Expect(c.Forwarding()).To(BeFalse())
			Expect(out.String()).To(ContainSubstring("Forwarding OFF"))

			Expect(con.Execute("forward 1")).To(Succeed())
			Expect(c.Forwarding()).To(BeTrue())
		})

		It("should reject other values", func() {
			Expect(errors.Is(con.Execute("forward 2"), console.ErrInvalidCommand)).To(BeTrue())
		})
	})

	Describe("reset", func() {
		It("should allow the program to run again", func() {
			Expect(con.Execute("sim")).To(Succeed())
			Expect(con.Execute("reset")).To(Succeed())

			Expect(c.RegFile().X[2]).To(Equal(uint32(0)))
			Expect(c.RegFile().PC).To(Equal(emu.TextBegin))

			Expect(con.Execute("sim")).To(Succeed())
			Expect(c.RegFile().X[2]).To(Equal(uint32(10)))
		})
	})

	Describe("print", func() {
		It("should disassemble the loaded program", func() {
			Expect(con.Execute("print")).To(Succeed())

			Expect(out.String()).To(ContainSubstring("addi x1, x0, 5"))
			Expect(out.String()).To(ContainSubstring("add x2, x1, x1"))
			Expect(out.String()).To(ContainSubstring("0x00400004"))
		})
	})

	Describe("show", func() {
		It("should print the pipeline registers", func() {
			Expect(con.Execute("run 2")).To(Succeed())

			Expect(con.Execute("show")).To(Succeed())

			Expect(out.String()).To(ContainSubstring("IF/ID.IR"))
			Expect(out.String()).To(ContainSubstring("add x2, x1, x1"))
			Expect(out.String()).To(ContainSubstring("addi x1, x0, 5"))
			Expect(out.String()).To(ContainSubstring("MEM/WB.LMD"))
		})

		It("should mark empty pipeline registers", func() {
			Expect(con.Execute("show")).To(Succeed())

			Expect(out.String()).To(ContainSubstring("No Instruction Loaded"))
		})
	})

	Describe("stats", func() {
		It("should print the counters and CPI", func() {
			Expect(con.Execute("sim")).To(Succeed())
			out.Reset()

			Expect(con.Execute("stats")).To(Succeed())

			Expect(out.String()).To(ContainSubstring("Retired"))
			Expect(out.String()).To(ContainSubstring("3.000"))
		})
	})

	Describe("cache", func() {
		It("should report that profiling is off", func() {
			Expect(con.Execute("cache")).To(Succeed())

			Expect(out.String()).To(ContainSubstring("Cache profiling disabled."))
		})

		It("should print the profiled caches", func() {
			profiler := cache.NewProfiler(cache.DefaultICacheConfig(), cache.DefaultDCacheConfig())
			c.AcceptHook(profiler)
			con.SetCacheProfiler(profiler)

			Expect(con.Execute("sim")).To(Succeed())
			out.Reset()
			Expect(con.Execute("cache")).To(Succeed())

			Expect(out.String()).To(ContainSubstring("I-cache"))
			Expect(out.String()).To(ContainSubstring("4096B 2-way 32B lines"))
			Expect(profiler.ICache().Stats().Misses).To(Equal(uint64(1)))
		})
	})

	Describe("Execute", func() {
		It("should ignore blank lines", func() {
			Expect(con.Execute("   ")).To(Succeed())
			Expect(out.String()).To(BeEmpty())
		})

		It("should accept upper case commands", func() {
			Expect(con.Execute("RDUMP")).To(Succeed())
		})

		It("should reject unknown commands", func() {
			Expect(errors.Is(con.Execute("jump"), console.ErrInvalidCommand)).To(BeTrue())
		})

		It("should return ErrQuit for quit", func() {
			Expect(con.Execute("quit")).To(MatchError(console.ErrQuit))
		})
	})

	Describe("Serve", func() {
		It("should execute commands until quit", func() {
			in := strings.NewReader("input 1 3\nbogus\nquit\ninput 1 9\n")

			Expect(con.Serve(in, true)).To(Succeed())

			Expect(c.RegFile().X[1]).To(Equal(uint32(3)))
			Expect(out.String()).To(ContainSubstring(console.Prompt))
			Expect(out.String()).To(ContainSubstring("Error: invalid command: bogus"))
		})

		It("should stop at the end of the input", func() {
			Expect(con.Serve(strings.NewReader("?\n"), false)).To(Succeed())

			Expect(out.String()).To(ContainSubstring("rdump"))
			Expect(out.String()).NotTo(ContainSubstring(console.Prompt))
		})
	})
})
