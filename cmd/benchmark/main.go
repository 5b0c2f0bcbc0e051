// Command benchmark runs the hazard tests and demo programs through the
// benchmark harness and reports cycles, CPI and hazard counts.
//
// Usage:
//
//	go run ./cmd/benchmark [flags]
//
// Flags:
//
//	-csv         Output results in CSV format (default: human-readable)
//	-json        Output a JSON report
//	-suite       Which programs to run: hazards, demos or all (default: all)
//	-max-cycles  Cycle limit per program
//	-v           Include descriptions and forwarding counts
//
// Example:
//
//	# Output CSV for spreadsheet comparison
//	go run ./cmd/benchmark -csv > results.csv
//
// The exit status is 1 when any program ends in an unexpected state.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/sarchlab/mipsim/benchmarks"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func suite(name string) ([]benchmarks.Benchmark, error) {
	switch name {
	case "hazards":
		return benchmarks.GetHazardTests(), nil
	case "demos":
		return benchmarks.GetDemoPrograms(), nil
	case "all":
		return benchmarks.GetAll(), nil
	default:
		return nil, fmt.Errorf("unknown suite %q (want hazards, demos or all)", name)
	}
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("benchmark", flag.ContinueOnError)
	fs.SetOutput(stderr)
	csvOutput := fs.Bool("csv", false, "Output results in CSV format")
	jsonOutput := fs.Bool("json", false, "Output results as a JSON report")
	suiteName := fs.String("suite", "all", "Programs to run: hazards, demos or all")
	maxCycles := fs.Uint64("max-cycles", benchmarks.DefaultConfig().MaxCycles, "Cycle limit per program")
	verbose := fs.Bool("v", false, "Verbose output")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	programs, err := suite(*suiteName)
	if err != nil {
		_, _ = fmt.Fprintln(stderr, err)
		return 2
	}

	// Configure harness
	config := benchmarks.DefaultConfig()
	config.MaxCycles = *maxCycles
	config.Verbose = *verbose
	config.Output = stdout

	harness := benchmarks.NewHarness(config)
	harness.AddBenchmarks(programs)

	results := harness.RunAll()

	switch {
	case *jsonOutput:
		if err := harness.PrintJSON(results); err != nil {
			_, _ = fmt.Fprintln(stderr, err)
			return 1
		}
	case *csvOutput:
		harness.PrintCSV(results)
	default:
		_, _ = fmt.Fprintln(stdout, "MIPS Pipeline Benchmark Harness")
		_, _ = fmt.Fprintln(stdout, "===============================")
		_, _ = fmt.Fprintln(stdout, "")
		harness.PrintResults(results)

		summary := benchmarks.Summarize(results)
		_, _ = fmt.Fprintln(stdout, "=== Summary ===")
		_, _ = fmt.Fprintf(stdout, "Passed:      %d/%d\n", summary.Passed, summary.TotalBenchmarks)
		_, _ = fmt.Fprintf(stdout, "Average CPI: %.3f\n", summary.AverageCPI)
	}

	for _, r := range results {
		if !r.Passed {
			return 1
		}
	}
	return 0
}
