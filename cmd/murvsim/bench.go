package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sarchlab/murvsim/benchmarks"
)

// newBenchCmd creates the command that runs the built-in microbenchmarks.
func newBenchCmd() *cobra.Command {
	var (
		format     string
		forwarding bool
		core       bool
		maxCycles  uint64
	)

	cmd := &cobra.Command{
		Use:          "bench",
		Short:        "Run the built-in pipeline microbenchmarks",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			config := benchmarks.DefaultConfig()
			config.Output = cmd.OutOrStdout()
			config.Forwarding = forwarding
			config.MaxCycles = maxCycles

			harness := benchmarks.NewHarness(config)
			if core {
				harness.AddBenchmarks(benchmarks.GetCoreBenchmarks())
			} else {
				harness.AddBenchmarks(benchmarks.GetMicrobenchmarks())
			}

			results := harness.RunAll()

			switch format {
			case "text":
				harness.PrintResults(results)
			case "csv":
				harness.PrintCSV(results)
			case "json":
				if err := harness.PrintJSON(results); err != nil {
					return err
				}
			default:
				return fmt.Errorf("unknown format %q", format)
			}

			if failed := benchmarks.Summarize(results).Failed; failed > 0 {
				return fmt.Errorf("%d benchmark(s) failed", failed)
			}

			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&format, "format", "text", "output format: text, csv or json")
	flags.BoolVar(&forwarding, "forwarding", true, "enable operand forwarding")
	flags.BoolVar(&core, "core", false, "run only the core validation set")
	flags.Uint64Var(&maxCycles, "max-cycles", 100000, "cycle limit per benchmark")

	return cmd
}
