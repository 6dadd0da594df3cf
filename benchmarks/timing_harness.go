// Package benchmarks provides timing benchmark infrastructure for the
// pipeline model.
package benchmarks

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/sarchlab/murvsim/config"
	"github.com/sarchlab/murvsim/emu"
	"github.com/sarchlab/murvsim/loader"
	"github.com/sarchlab/murvsim/timing/core"
)

// BenchmarkResult holds the timing results for a single benchmark run.
type BenchmarkResult struct {
	// Name identifies the benchmark
	Name string `json:"name"`

	// Description explains what the benchmark measures
	Description string `json:"description"`

	// Forwarding records whether operand forwarding was enabled
	Forwarding bool `json:"forwarding"`

	// SimulatedCycles is the total cycle count from the timing simulator
	SimulatedCycles uint64 `json:"simulated_cycles"`

	// InstructionsRetired is the number of completed instructions
	InstructionsRetired uint64 `json:"instructions_retired"`

	// CPI is cycles per instruction
	CPI float64 `json:"cpi"`

	// StallCycles is the number of bubbles inserted for data hazards
	StallCycles uint64 `json:"stall_cycles"`

	// BranchBubbles is the number of bubbles inserted after control transfers
	BranchBubbles uint64 `json:"branch_bubbles"`

	// DataHazards is the number of RAW hazards detected, forwarded or stalled
	DataHazards uint64 `json:"data_hazards"`

	// Forwards is the number of operands taken from a pipeline register
	Forwards uint64 `json:"forwards"`

	// Error describes a failed run or a wrong architectural result
	Error string `json:"error,omitempty"`

	// WallTime is the actual time taken to run the simulation
	WallTime time.Duration `json:"wall_time_ns"`
}

// Passed returns true if the benchmark ran to completion with the expected
// register values.
func (r BenchmarkResult) Passed() bool {
	return r.Error == ""
}

// Benchmark defines a single benchmark program.
type Benchmark struct {
	// Name identifies the benchmark
	Name string

	// Description explains what the benchmark measures
	Description string

	// Setup prepares the architectural state after the program is loaded
	Setup func(regFile *emu.RegFile, memory *emu.Memory)

	// Program is the RV32I machine code to execute
	Program []uint32

	// Expected lists register values that must hold at the end of the run
	Expected map[uint8]uint32
}

// HarnessConfig configures the benchmark harness.
type HarnessConfig struct {
	// Forwarding enables operand forwarding
	Forwarding bool

	// MaxCycles bounds each benchmark run
	MaxCycles uint64

	// Output is where to write results (default: os.Stdout)
	Output io.Writer

	// Verbose enables detailed output
	Verbose bool
}

// DefaultConfig returns a default harness configuration.
func DefaultConfig() HarnessConfig {
	return HarnessConfig{
		Forwarding: true,
		MaxCycles:  100000,
		Output:     os.Stdout,
		Verbose:    false,
	}
}

// Harness runs timing benchmarks and reports results.
type Harness struct {
	config     HarnessConfig
	benchmarks []Benchmark
}

// NewHarness creates a new benchmark harness.
func NewHarness(config HarnessConfig) *Harness {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	return &Harness{
		config:     config,
		benchmarks: []Benchmark{},
	}
}

// AddBenchmark adds a benchmark to the harness.
func (h *Harness) AddBenchmark(b Benchmark) {
	h.benchmarks = append(h.benchmarks, b)
}

// AddBenchmarks adds multiple benchmarks to the harness.
func (h *Harness) AddBenchmarks(benchmarks []Benchmark) {
	h.benchmarks = append(h.benchmarks, benchmarks...)
}

// RunAll executes all benchmarks and returns results.
func (h *Harness) RunAll() []BenchmarkResult {
	results := make([]BenchmarkResult, 0, len(h.benchmarks))

	for _, bench := range h.benchmarks {
		result := h.runBenchmark(bench)
		results = append(results, result)
	}

	return results
}

// runBenchmark executes a single benchmark on a fresh core.
func (h *Harness) runBenchmark(bench Benchmark) BenchmarkResult {
	cfg := config.Default()
	cfg.Forwarding = h.config.Forwarding
	if h.config.MaxCycles > 0 {
		cfg.MaxCycles = h.config.MaxCycles
	}

	c := core.NewBuilder().WithConfig(cfg).Build(bench.Name)
	c.LoadProgram(&loader.Program{Base: cfg.TextBase(), Words: bench.Program})

	if bench.Setup != nil {
		bench.Setup(c.RegFile(), c.Memory())
	}

	start := time.Now()
	err := c.Run()
	wallTime := time.Since(start)

	stats := c.Stats()
	result := BenchmarkResult{
		Name:                bench.Name,
		Description:         bench.Description,
		Forwarding:          c.Forwarding(),
		SimulatedCycles:     stats.Cycles,
		InstructionsRetired: stats.Retired,
		CPI:                 stats.CPI(),
		StallCycles:         stats.Stalls,
		BranchBubbles:       stats.BranchBubbles,
		DataHazards:         stats.DataHazards,
		Forwards:            stats.Forwards,
		WallTime:            wallTime,
	}

	if err != nil {
		result.Error = err.Error()
	} else {
		result.Error = checkRegisters(c.RegFile(), bench.Expected)
	}

	if h.config.Verbose {
		_, _ = fmt.Fprintf(h.config.Output, "ran %s: %d cycles\n", bench.Name, stats.Cycles)
	}

	return result
}

func checkRegisters(regFile *emu.RegFile, expected map[uint8]uint32) string {
	regs := make([]int, 0, len(expected))
	for r := range expected {
		regs = append(regs, int(r))
	}
	sort.Ints(regs)

	for _, r := range regs {
		want := expected[uint8(r)]
		if got := regFile.X[r]; got != want {
			return fmt.Sprintf("x%d = 0x%08x, want 0x%08x", r, got, want)
		}
	}

	return ""
}

// PrintResults outputs benchmark results in a human-readable format.
func (h *Harness) PrintResults(results []BenchmarkResult) {
	_, _ = fmt.Fprintln(h.config.Output, "=== murvsim Timing Benchmark Results ===")
	_, _ = fmt.Fprintln(h.config.Output, "")

	for _, r := range results {
		_, _ = fmt.Fprintf(h.config.Output, "Benchmark: %s\n", r.Name)
		_, _ = fmt.Fprintf(h.config.Output, "  Description: %s\n", r.Description)
		_, _ = fmt.Fprintf(h.config.Output, "  Forwarding: %t\n", r.Forwarding)
		_, _ = fmt.Fprintln(h.config.Output, "  --- Timing ---")
		_, _ = fmt.Fprintf(h.config.Output, "  Simulated Cycles:     %d\n", r.SimulatedCycles)
		_, _ = fmt.Fprintf(h.config.Output, "  Instructions Retired: %d\n", r.InstructionsRetired)
		_, _ = fmt.Fprintf(h.config.Output, "  CPI:                  %.3f\n", r.CPI)
		_, _ = fmt.Fprintf(h.config.Output, "  Stall Cycles:         %d\n", r.StallCycles)
		_, _ = fmt.Fprintf(h.config.Output, "  Branch Bubbles:       %d\n", r.BranchBubbles)
		_, _ = fmt.Fprintf(h.config.Output, "  Data Hazards:         %d\n", r.DataHazards)
		_, _ = fmt.Fprintf(h.config.Output, "  Forwards:             %d\n", r.Forwards)
		if !r.Passed() {
			_, _ = fmt.Fprintf(h.config.Output, "  FAILED: %s\n", r.Error)
		}
		_, _ = fmt.Fprintf(h.config.Output, "  Wall Time: %v\n", r.WallTime)
		_, _ = fmt.Fprintln(h.config.Output, "")
	}
}

// PrintCSV outputs benchmark results in CSV format for easy comparison.
func (h *Harness) PrintCSV(results []BenchmarkResult) {
	_, _ = fmt.Fprintln(h.config.Output,
		"name,forwarding,cycles,instructions,cpi,stalls,branch_bubbles,data_hazards,forwards,passed")

	for _, r := range results {
		_, _ = fmt.Fprintf(h.config.Output, "%s,%t,%d,%d,%.3f,%d,%d,%d,%d,%t\n",
			r.Name,
			r.Forwarding,
			r.SimulatedCycles,
			r.InstructionsRetired,
			r.CPI,
			r.StallCycles,
			r.BranchBubbles,
			r.DataHazards,
			r.Forwards,
			r.Passed(),
		)
	}
}

// BenchmarkReport is the complete output format for benchmark results.
type BenchmarkReport struct {
	// Metadata about the benchmark run
	Metadata ReportMetadata `json:"metadata"`

	// Results is the list of individual benchmark results
	Results []BenchmarkResult `json:"results"`

	// Summary contains aggregate statistics
	Summary ReportSummary `json:"summary"`
}

// ReportMetadata contains information about the benchmark run.
type ReportMetadata struct {
	// Timestamp when the benchmark was run
	Timestamp string `json:"timestamp"`

	// Forwarding records the harness forwarding setting
	Forwarding bool `json:"forwarding"`
}

// ReportSummary contains aggregate statistics across all benchmarks.
type ReportSummary struct {
	// TotalBenchmarks is the number of benchmarks run
	TotalBenchmarks int `json:"total_benchmarks"`

	// Failed is the number of benchmarks with a wrong result
	Failed int `json:"failed"`

	// TotalCycles is the sum of all simulated cycles
	TotalCycles uint64 `json:"total_cycles"`

	// TotalInstructions is the sum of all instructions retired
	TotalInstructions uint64 `json:"total_instructions"`

	// AverageCPI is the average cycles per instruction
	AverageCPI float64 `json:"average_cpi"`

	// TotalWallTime is the total wall clock time for all benchmarks
	TotalWallTime time.Duration `json:"total_wall_time_ns"`
}

// Summarize aggregates a set of results.
func Summarize(results []BenchmarkResult) ReportSummary {
	summary := ReportSummary{TotalBenchmarks: len(results)}

	for _, r := range results {
		summary.TotalCycles += r.SimulatedCycles
		summary.TotalInstructions += r.InstructionsRetired
		summary.TotalWallTime += r.WallTime
		if !r.Passed() {
			summary.Failed++
		}
	}

	if summary.TotalInstructions > 0 {
		summary.AverageCPI = float64(summary.TotalCycles) / float64(summary.TotalInstructions)
	}

	return summary
}

// PrintJSON outputs benchmark results in JSON format for automated comparison.
func (h *Harness) PrintJSON(results []BenchmarkResult) error {
	report := BenchmarkReport{
		Metadata: ReportMetadata{
			Timestamp:  time.Now().UTC().Format(time.RFC3339),
			Forwarding: h.config.Forwarding,
		},
		Results: results,
		Summary: Summarize(results),
	}

	encoder := json.NewEncoder(h.config.Output)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}
