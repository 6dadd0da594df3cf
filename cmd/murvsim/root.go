package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sarchlab/murvsim/config"
	"github.com/sarchlab/murvsim/console"
	"github.com/sarchlab/murvsim/emu"
	"github.com/sarchlab/murvsim/loader"
	"github.com/sarchlab/murvsim/timing/cache"
	"github.com/sarchlab/murvsim/timing/core"
	"github.com/sarchlab/murvsim/timing/pipeline"
	"github.com/sarchlab/murvsim/trace"
)

type options struct {
	configPath string
	forwarding bool
	maxCycles  uint64
	functional bool
	batch      bool
	tracePath  string
	cacheProf  bool
	verbose    bool
}

// newRootCmd creates the murvsim command.
func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "murvsim <program>",
		Short: "murvsim simulates a 5-stage pipelined RV32I core cycle by cycle.",
		Long: `murvsim loads a program image (one hexadecimal instruction word per ` +
			`line) into the text segment and simulates it on a 5-stage pipeline ` +
			`with hazard detection and optional operand forwarding. Without ` +
			`--batch it starts an interactive console.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoot(cmd, opts, args[0])
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "path to a JSON configuration file")
	flags.BoolVar(&opts.forwarding, "forwarding", true, "enable operand forwarding")
	flags.Uint64Var(&opts.maxCycles, "max-cycles", 0, "stop a run after this many cycles")
	flags.BoolVar(&opts.functional, "functional", false, "run the single-cycle functional emulator instead of the pipeline")
	flags.BoolVar(&opts.batch, "batch", false, "run to completion and print a report instead of starting the console")
	flags.StringVar(&opts.tracePath, "trace", "", "write a per-cycle pipeline trace to this SQLite database")
	flags.BoolVar(&opts.cacheProf, "cache-profile", false, "replay the run through the default I- and D-caches and report hit rates")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log pipeline events")

	cmd.AddCommand(newBenchCmd())

	return cmd
}

func runRoot(cmd *cobra.Command, opts *options, programPath string) error {
	setupLogger(cmd.ErrOrStderr(), opts.verbose)

	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}

	prog, err := loadProgram(cfg, programPath)
	if err != nil {
		return fmt.Errorf("error loading program: %w", err)
	}

	out := cmd.OutOrStdout()

	if opts.functional {
		return runFunctional(out, cfg, prog)
	}

	c := core.NewBuilder().
		WithConfig(cfg).
		WithLogger(slog.Default()).
		Build("Core")
	c.LoadProgram(prog)

	if cfg.TraceDB != "" {
		tracer := trace.NewSQLiteTracer(cfg.TraceDB)
		if err := tracer.Init(); err != nil {
			return err
		}
		defer func() { _ = tracer.Close() }()

		c.AcceptHook(tracer)
		slog.Info("tracing pipeline", "db", tracer.Path())
	}

	if opts.verbose {
		c.AcceptHook(trace.NewLogHook(slog.Default()))
	}

	profiler := cfg.NewCacheProfiler()
	if profiler != nil {
		c.AcceptHook(profiler)
	}

	if opts.batch {
		return runBatch(out, programPath, c, profiler)
	}

	con := console.New(c, out)
	con.SetCacheProfiler(profiler)
	con.Help()

	return con.Serve(cmd.InOrStdin(), true)
}

func setupLogger(w io.Writer, verbose bool) {
	level := slog.LevelWarn
	if verbose {
		level = pipeline.LevelTrace
	}

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

// loadConfig reads the configuration file, if any, and applies the flags
// given on the command line on top of it.
func loadConfig(cmd *cobra.Command, opts *options) (*config.Config, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		var err error
		cfg, err = config.Load(opts.configPath)
		if err != nil {
			return nil, fmt.Errorf("error loading config: %w", err)
		}
	}

	flags := cmd.Flags()
	if flags.Changed("forwarding") {
		cfg.Forwarding = opts.forwarding
	}
	if flags.Changed("max-cycles") {
		cfg.MaxCycles = opts.maxCycles
	}
	if flags.Changed("trace") {
		cfg.TraceDB = opts.tracePath
	}
	if opts.cacheProf && cfg.CacheProfile == nil {
		cfg.CacheProfile = config.DefaultCacheProfile()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadProgram reads the program image into the configured text region.
func loadProgram(cfg *config.Config, path string) (*loader.Program, error) {
	prog, err := loader.LoadAt(path, cfg.TextBase())
	if err != nil {
		return nil, err
	}

	if text, ok := cfg.TextRegion(); ok {
		if err := prog.CheckFits(text); err != nil {
			return nil, err
		}
	}

	return prog, nil
}

// runFunctional runs the program on the functional emulator.
func runFunctional(out io.Writer, cfg *config.Config, prog *loader.Program) error {
	memory, err := cfg.NewMemory()
	if err != nil {
		return err
	}

	regFile := &emu.RegFile{}
	emulator := emu.NewEmulator(regFile, memory,
		emu.WithEndPC(prog.EndPC()),
		emu.WithMaxInstructions(cfg.MaxCycles),
	)
	emulator.LoadProgram(prog.Base, prog.Words)

	err = emulator.Run()
	fmt.Fprint(out, console.RenderRegisters(regFile, emulator.InstructionCount()))

	return err
}

// runBatch runs the core to completion and prints a timing report.
func runBatch(out io.Writer, programPath string, c *core.Core, profiler *cache.Profiler) error {
	err := c.Run()

	stats := c.Stats()
	totalCycles := stats.Cycles
	if totalCycles == 0 {
		totalCycles = 1
	}

	fmt.Fprintf(out, "\n")
	fmt.Fprintf(out, "Program: %s\n", programPath)
	fmt.Fprintf(out, "Forwarding: %t\n", c.Forwarding())
	fmt.Fprintf(out, "Retired Instructions: %d\n", stats.Retired)
	fmt.Fprintf(out, "Total Cycles: %d\n", stats.Cycles)
	fmt.Fprintf(out, "CPI: %.2f\n", stats.CPI())
	fmt.Fprintf(out, "\n")
	fmt.Fprintf(out, "Pipeline Events:\n")
	fmt.Fprintf(out, "  Data stalls:    %4d cycles (%5.1f%%)\n",
		stats.Stalls, 100.0*float64(stats.Stalls)/float64(totalCycles))
	fmt.Fprintf(out, "  Branch bubbles: %4d cycles (%5.1f%%)\n",
		stats.BranchBubbles, 100.0*float64(stats.BranchBubbles)/float64(totalCycles))
	fmt.Fprintf(out, "  Data hazards:   %4d\n", stats.DataHazards)
	fmt.Fprintf(out, "  Forwards:       %4d\n", stats.Forwards)
	fmt.Fprintf(out, "\n")
	if profiler != nil {
		fmt.Fprint(out, console.RenderCacheStats(profiler))
		fmt.Fprintf(out, "\n")
	}
	fmt.Fprint(out, console.RenderRegisters(c.RegFile(), stats.InstructionCount))

	return err
}
