package console

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/sarchlab/murvsim/emu"
	"github.com/sarchlab/murvsim/insts"
	"github.com/sarchlab/murvsim/timing/cache"
)

const noInstruction = "No Instruction Loaded"

func (c *Console) sim(args []string) error {
	if c.stopped() {
		return nil
	}

	fmt.Fprintln(c.out, "Simulation Started...")
	if err := c.core.Run(); err != nil {
		fmt.Fprintln(c.out, "Simulation Stopped.")
		return err
	}
	fmt.Fprintln(c.out, "Simulation Finished.")

	return nil
}

func (c *Console) run(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: usage: run <n>", ErrInvalidCommand)
	}

	n, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("%w: bad cycle count %q", ErrInvalidCommand, args[0])
	}

	if c.stopped() {
		return nil
	}

	fmt.Fprintf(c.out, "Running simulator for %d cycles...\n", n)
	if err := c.core.RunCycles(n); err != nil {
		fmt.Fprintln(c.out, "Simulation Stopped.")
		return err
	}

	if c.core.Done() {
		fmt.Fprintln(c.out, "Simulation Finished.")
	}

	return nil
}

func (c *Console) stopped() bool {
	if c.core.Halted() || c.core.Done() {
		fmt.Fprintln(c.out, "Simulation Stopped.")
		return true
	}
	return false
}

func (c *Console) rdump(args []string) error {
	fmt.Fprint(c.out, RenderRegisters(c.core.RegFile(), c.core.Stats().InstructionCount))
	return nil
}

// RenderRegisters renders the register file as a table, preceded by the
// instruction count and the PC.
func RenderRegisters(regFile *emu.RegFile, instructions uint64) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Instructions Executed : %d\n", instructions)
	fmt.Fprintf(&b, "PC                      : 0x%08x\n", regFile.PC)

	t := table.NewWriter()
	t.SetTitle("Registers")
	t.AppendHeader(table.Row{"Register", "Hex", "Decimal"})

	for i := 0; i < emu.NumRegs; i++ {
		v := regFile.X[i]
		t.AppendRow(table.Row{fmt.Sprintf("x%d", i), fmt.Sprintf("0x%08x", v), int32(v)})
	}

	t.AppendSeparator()
	t.AppendRow(table.Row{"HI", fmt.Sprintf("0x%08x", regFile.HI), int32(regFile.HI)})
	t.AppendRow(table.Row{"LO", fmt.Sprintf("0x%08x", regFile.LO), int32(regFile.LO)})

	b.WriteString(t.Render())
	b.WriteString("\n")

	return b.String()
}

func (c *Console) mdump(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("%w: usage: mdump <start> <stop>", ErrInvalidCommand)
	}

	start, err := parseAddress(args[0])
	if err != nil {
		return err
	}

	stop, err := parseAddress(args[1])
	if err != nil {
		return err
	}

	if stop < start {
		return fmt.Errorf("%w: stop 0x%08x is below start 0x%08x",
			ErrInvalidCommand, stop, start)
	}

	t := table.NewWriter()
	t.SetTitle(fmt.Sprintf("Memory content [0x%08x..0x%08x]", start, stop))
	t.AppendHeader(table.Row{"Address", "Decimal", "Value"})

	memory := c.core.Memory()
	for addr := uint64(start); addr <= uint64(stop); addr += 4 {
		t.AppendRow(table.Row{
			fmt.Sprintf("0x%08x", addr),
			addr,
			fmt.Sprintf("0x%08x", memory.Read32(uint32(addr))),
		})
	}

	fmt.Fprintln(c.out, t.Render())

	return nil
}

func (c *Console) input(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("%w: usage: input <reg> <val>", ErrInvalidCommand)
	}

	reg, err := parseRegister(args[0])
	if err != nil {
		return err
	}

	value, err := parseValue(args[1])
	if err != nil {
		return err
	}

	c.core.RegFile().WriteReg(reg, value)

	return nil
}

func (c *Console) high(args []string) error {
	value, err := singleValue("high", args)
	if err != nil {
		return err
	}

	c.core.RegFile().HI = value

	return nil
}

func (c *Console) low(args []string) error {
	value, err := singleValue("low", args)
	if err != nil {
		return err
	}

	c.core.RegFile().LO = value

	return nil
}

func (c *Console) forward(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: usage: forward <0|1>", ErrInvalidCommand)
	}

	switch args[0] {
	case "0":
		c.core.SetForwarding(false)
		fmt.Fprintln(c.out, "Forwarding OFF")
	case "1":
		c.core.SetForwarding(true)
		fmt.Fprintln(c.out, "Forwarding ON")
	default:
		return fmt.Errorf("%w: forward takes 0 or 1", ErrInvalidCommand)
	}

	return nil
}

func (c *Console) reset(args []string) error {
	c.core.Reset()
	fmt.Fprintln(c.out, "Simulator reset.")
	return nil
}

func (c *Console) print(args []string) error {
	program := c.core.Program()
	if program == nil {
		fmt.Fprintln(c.out, "No program loaded.")
		return nil
	}

	t := table.NewWriter()
	t.SetTitle("Program")
	t.AppendHeader(table.Row{"Address", "Word", "Instruction"})

	memory := c.core.Memory()
	for pc := program.Base; pc <= program.LastPC() && len(program.Words) > 0; pc += 4 {
		word := memory.Read32(pc)
		t.AppendRow(table.Row{
			fmt.Sprintf("0x%08x", pc),
			fmt.Sprintf("0x%08x", word),
			insts.Disassemble(c.decoder.Decode(word), pc),
		})
	}

	fmt.Fprintln(c.out, t.Render())

	return nil
}

func (c *Console) show(args []string) error {
	snap := c.core.Snapshot()

	hex := func(v uint32) string { return fmt.Sprintf("0x%08x", v) }
	ir := func(valid bool, pc uint32, inst *insts.Instruction) string {
		if !valid || inst == nil || inst.Op == insts.OpNOP {
			return noInstruction
		}
		return insts.Disassemble(inst, pc)
	}

	t := table.NewWriter()
	t.SetTitle(fmt.Sprintf("Pipeline at cycle %d", snap.Cycle))
	t.AppendHeader(table.Row{"Register", "Value"})

	t.AppendRow(table.Row{"PC", hex(snap.PC)})
	t.AppendRow(table.Row{"Stall", snap.Stall.String()})
	t.AppendSeparator()

	t.AppendRow(table.Row{"IF/ID.IR", ir(snap.IFID.Valid, snap.IFID.PC, c.decoder.Decode(snap.IFID.InstructionWord))})
	t.AppendRow(table.Row{"IF/ID.PC", hex(snap.IFID.PC)})
	t.AppendSeparator()

	t.AppendRow(table.Row{"ID/EX.IR", ir(snap.IDEX.Valid, snap.IDEX.PC, snap.IDEX.Inst)})
	t.AppendRow(table.Row{"ID/EX.A", hex(snap.IDEX.A)})
	t.AppendRow(table.Row{"ID/EX.B", hex(snap.IDEX.B)})
	t.AppendRow(table.Row{"ID/EX.imm", snap.IDEX.Imm})
	t.AppendSeparator()

	t.AppendRow(table.Row{"EX/MEM.IR", ir(snap.EXMEM.Valid, snap.EXMEM.PC, snap.EXMEM.Inst)})
	t.AppendRow(table.Row{"EX/MEM.A", hex(snap.EXMEM.A)})
	t.AppendRow(table.Row{"EX/MEM.B", hex(snap.EXMEM.B)})
	t.AppendRow(table.Row{"EX/MEM.ALUOutput", hex(snap.EXMEM.ALUOutput)})
	t.AppendSeparator()

	t.AppendRow(table.Row{"MEM/WB.IR", ir(snap.MEMWB.Valid, snap.MEMWB.PC, snap.MEMWB.Inst)})
	t.AppendRow(table.Row{"MEM/WB.ALUOutput", hex(snap.MEMWB.ALUOutput)})
	t.AppendRow(table.Row{"MEM/WB.LMD", hex(snap.MEMWB.LMD)})

	fmt.Fprintln(c.out, t.Render())

	return nil
}

func (c *Console) stats(args []string) error {
	s := c.core.Stats()

	t := table.NewWriter()
	t.SetTitle("Statistics")
	t.AppendRows([]table.Row{
		{"Cycles", s.Cycles},
		{"Instructions", s.InstructionCount},
		{"Retired", s.Retired},
		{"Stalls", s.Stalls},
		{"Branch bubbles", s.BranchBubbles},
		{"Forwards", s.Forwards},
		{"Data hazards", s.DataHazards},
		{"CPI", fmt.Sprintf("%.3f", s.CPI())},
	})

	fmt.Fprintln(c.out, t.Render())

	return nil
}

func (c *Console) cacheStats(args []string) error {
	if c.profiler == nil {
		fmt.Fprintln(c.out, "Cache profiling disabled.")
		return nil
	}

	fmt.Fprint(c.out, RenderCacheStats(c.profiler))

	return nil
}

// RenderCacheStats renders the statistics of both profiled caches as a
// table.
func RenderCacheStats(p *cache.Profiler) string {
	t := table.NewWriter()
	t.SetTitle("Cache profile")
	t.AppendHeader(table.Row{"Cache", "Geometry", "Reads", "Writes", "Hits", "Misses", "Writebacks", "Hit rate", "Miss cycles"})

	for _, entry := range []struct {
		name  string
		cache *cache.Cache
	}{
		{"I-cache", p.ICache()},
		{"D-cache", p.DCache()},
	} {
		cfg := entry.cache.Config()
		s := entry.cache.Stats()
		t.AppendRow(table.Row{
			entry.name,
			fmt.Sprintf("%dB %d-way %dB lines", cfg.Size, cfg.Associativity, cfg.BlockSize),
			s.Reads,
			s.Writes,
			s.Hits,
			s.Misses,
			s.Writebacks,
			fmt.Sprintf("%.1f%%", 100*s.HitRate()),
			entry.cache.PenaltyCycles(),
		})
	}

	return t.Render() + "\n"
}

func (c *Console) help(args []string) error {
	c.Help()
	return nil
}

func (c *Console) quit(args []string) error {
	fmt.Fprintln(c.out, "Exiting murvsim. Good bye.")
	return ErrQuit
}

func singleValue(cmd string, args []string) (uint32, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("%w: usage: %s <val>", ErrInvalidCommand, cmd)
	}
	return parseValue(args[0])
}

// parseAddress parses a hexadecimal address with an optional 0x prefix.
func parseAddress(s string) (uint32, error) {
	digits := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")

	v, err := strconv.ParseUint(digits, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: bad address %q", ErrInvalidCommand, s)
	}

	return uint32(v), nil
}

// parseRegister accepts "5", "x5" and "r5".
func parseRegister(s string) (uint8, error) {
	digits := strings.TrimLeft(strings.ToLower(s), "xr")

	v, err := strconv.ParseUint(digits, 10, 8)
	if err != nil || v >= emu.NumRegs {
		return 0, fmt.Errorf("%w: bad register %q", ErrInvalidCommand, s)
	}

	return uint8(v), nil
}

// parseValue parses a decimal, hexadecimal (0x) or octal (0) value. Negative
// values are stored in two's complement.
func parseValue(s string) (uint32, error) {
	v, err := strconv.ParseInt(s, 0, 64)
	if err != nil || v < -(1<<31) || v > 1<<32-1 {
		return 0, fmt.Errorf("%w: bad value %q", ErrInvalidCommand, s)
	}

	return uint32(v), nil
}
