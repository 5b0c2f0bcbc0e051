// Package benchmarks provides the demo and hazard-test programs together
// with a harness that runs them and checks the final machine state.
package benchmarks

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"time"

	"github.com/go-logr/logr"

	"github.com/sarchlab/mipsim/emu"
	"github.com/sarchlab/mipsim/loader"
	"github.com/sarchlab/mipsim/timing/config"
	"github.com/sarchlab/mipsim/timing/core"
)

// BenchmarkResult holds the results for a single benchmark run.
type BenchmarkResult struct {
	// Name identifies the benchmark
	Name string `json:"name"`

	// Description explains what the benchmark demonstrates
	Description string `json:"description"`

	// SimulatedCycles is the total cycle count
	SimulatedCycles uint64 `json:"simulated_cycles"`

	// InstructionsRetired is the number of completed instructions
	InstructionsRetired uint64 `json:"instructions_retired"`

	// CPI is cycles per instruction
	CPI float64 `json:"cpi"`

	// StallCycles is the number of load-use stall cycles
	StallCycles uint64 `json:"stall_cycles"`

	// PipelineFlushes is the number of taken branches and jumps
	PipelineFlushes uint64 `json:"pipeline_flushes"`

	// ForwardingCycles is the number of cycles that used a bypass path
	ForwardingCycles uint64 `json:"forwarding_cycles"`

	// Passed is true when every expectation held
	Passed bool `json:"passed"`

	// MatchesReference is true when the final registers and memory equal
	// those of sequential, one-instruction-at-a-time execution
	MatchesReference bool `json:"matches_reference"`

	// Mismatches lists the expectations that did not hold
	Mismatches []string `json:"mismatches,omitempty"`

	// Error is set when the program could not be loaded or run
	Error string `json:"error,omitempty"`

	// WallTime is the actual time taken to run the simulation
	WallTime time.Duration `json:"wall_time_ns"`
}

// Benchmark defines a single program together with its initial state and
// expected outcome.
type Benchmark struct {
	// Name identifies the benchmark
	Name string

	// Description explains what the benchmark demonstrates
	Description string

	// Source is the program text, one line per element. Comment and blank
	// lines are allowed.
	Source []string

	// Setup prepares the session configuration (e.g., initial registers,
	// memory, hazard toggles)
	Setup func(cfg *config.Config)

	// ExpectedRegisters maps register numbers to their final values
	ExpectedRegisters map[int]emu.Word

	// ExpectedMemory maps byte addresses to their final words
	ExpectedMemory map[int]emu.Word

	// ExpectedStalls, when set, is the expected stall count
	ExpectedStalls *uint64

	// ExpectedFlushes, when set, is the expected flush count
	ExpectedFlushes *uint64
}

func count(n uint64) *uint64 {
	return &n
}

// HarnessConfig configures the benchmark harness.
type HarnessConfig struct {
	// MaxCycles bounds each run so a broken program cannot loop forever
	MaxCycles uint64

	// Output is where to write results (default: os.Stdout)
	Output io.Writer

	// Verbose enables detailed output
	Verbose bool

	// Logger receives session logs
	Logger logr.Logger
}

// DefaultConfig returns a default harness configuration.
func DefaultConfig() HarnessConfig {
	return HarnessConfig{
		MaxCycles: 10000,
		Output:    os.Stdout,
		Verbose:   false,
		Logger:    logr.Discard(),
	}
}

// Harness runs benchmarks and reports results.
type Harness struct {
	config     HarnessConfig
	benchmarks []Benchmark
}

// NewHarness creates a new benchmark harness.
func NewHarness(config HarnessConfig) *Harness {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	if config.Logger.GetSink() == nil {
		config.Logger = logr.Discard()
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
		result := h.Run(bench)
		results = append(results, result)
	}

	return results
}

// Run executes a single benchmark in a fresh session.
func (h *Harness) Run(bench Benchmark) BenchmarkResult {
	result := BenchmarkResult{
		Name:        bench.Name,
		Description: bench.Description,
	}

	cfg := config.DefaultConfig()
	cfg.MaxCycles = h.config.MaxCycles
	if bench.Setup != nil {
		bench.Setup(cfg)
	}

	session, err := core.NewCore(cfg,
		core.WithLogger(h.config.Logger.WithValues("benchmark", bench.Name)))
	if err != nil {
		result.Error = err.Error()
		return result
	}

	prog, err := loader.FromLines(bench.Source, loader.WithStrict())
	if err != nil {
		result.Error = err.Error()
		return result
	}
	session.Load(prog)

	start := time.Now()
	err = session.Run()
	result.WallTime = time.Since(start)

	stats := session.Stats()
	result.SimulatedCycles = stats.Cycles
	result.InstructionsRetired = stats.Instructions
	result.CPI = stats.CPI()
	result.StallCycles = stats.Stalls
	result.PipelineFlushes = stats.Flushes
	result.ForwardingCycles = stats.Forwards

	if err != nil {
		result.Error = err.Error()
		return result
	}

	result.Mismatches = check(bench, session)
	result.Passed = len(result.Mismatches) == 0

	matches, err := matchesReference(cfg, prog, session)
	if err != nil {
		h.config.Logger.Error(err, "reference run failed", "benchmark", bench.Name)
	}
	result.MatchesReference = matches

	return result
}

// matchesReference replays the program on the functional emulator from the
// same initial state and compares the final architectural state.
func matchesReference(cfg *config.Config, prog *loader.Program, session *core.Core) (bool, error) {
	regFile := emu.NewRegFile()
	memory := emu.NewMemory(cfg.MemoryWords)
	if err := cfg.Apply(regFile, memory); err != nil {
		return false, err
	}

	ref := emu.NewEmulator(regFile, memory, emu.WithMaxInstructions(cfg.MaxCycles))
	ref.LoadProgram(prog.Instructions)
	if err := ref.Run(); err != nil {
		return false, err
	}

	return regFile.Snapshot() == session.RegFile().Snapshot() &&
		slices.Equal(memory.NonZero(), session.Memory().NonZero()), nil
}

func check(bench Benchmark, session *core.Core) []string {
	var mismatches []string

	for _, idx := range slices.Sorted(maps.Keys(bench.ExpectedRegisters)) {
		want := bench.ExpectedRegisters[idx]
		got, err := session.RegFile().Read(idx)
		if err != nil {
			mismatches = append(mismatches, err.Error())
			continue
		}
		if got != want {
			mismatches = append(mismatches, fmt.Sprintf("$%d = %d, want %d", idx, got, want))
		}
	}

	for _, addr := range slices.Sorted(maps.Keys(bench.ExpectedMemory)) {
		want := bench.ExpectedMemory[addr]
		got, err := session.Memory().Load(emu.Word(addr))
		if err != nil {
			mismatches = append(mismatches, err.Error())
			continue
		}
		if got != want {
			mismatches = append(mismatches, fmt.Sprintf("M[%d] = %d, want %d", addr, got, want))
		}
	}

	stats := session.Stats()
	if bench.ExpectedStalls != nil && stats.Stalls != *bench.ExpectedStalls {
		mismatches = append(mismatches,
			fmt.Sprintf("stalls = %d, want %d", stats.Stalls, *bench.ExpectedStalls))
	}
	if bench.ExpectedFlushes != nil && stats.Flushes != *bench.ExpectedFlushes {
		mismatches = append(mismatches,
			fmt.Sprintf("flushes = %d, want %d", stats.Flushes, *bench.ExpectedFlushes))
	}

	return mismatches
}

// PrintResults outputs benchmark results in a human-readable format.
func (h *Harness) PrintResults(results []BenchmarkResult) {
	_, _ = fmt.Fprintln(h.config.Output, "=== MIPS Pipeline Demo Results ===")
	_, _ = fmt.Fprintln(h.config.Output, "")

	for _, r := range results {
		status := "PASS"
		if !r.Passed {
			status = "FAIL"
		}
		_, _ = fmt.Fprintf(h.config.Output, "[%s] %s\n", status, r.Name)
		if h.config.Verbose {
			_, _ = fmt.Fprintf(h.config.Output, "  Description: %s\n", r.Description)
		}
		_, _ = fmt.Fprintf(h.config.Output, "  Simulated Cycles:     %d\n", r.SimulatedCycles)
		_, _ = fmt.Fprintf(h.config.Output, "  Instructions Retired: %d\n", r.InstructionsRetired)
		_, _ = fmt.Fprintf(h.config.Output, "  CPI:                  %.3f\n", r.CPI)
		_, _ = fmt.Fprintf(h.config.Output, "  Stall Cycles:         %d\n", r.StallCycles)
		_, _ = fmt.Fprintf(h.config.Output, "  Pipeline Flushes:     %d\n", r.PipelineFlushes)
		if h.config.Verbose {
			_, _ = fmt.Fprintf(h.config.Output, "  Forwarding Cycles:    %d\n", r.ForwardingCycles)
			_, _ = fmt.Fprintf(h.config.Output, "  Matches Reference:    %t\n", r.MatchesReference)
			_, _ = fmt.Fprintf(h.config.Output, "  Wall Time: %v\n", r.WallTime)
		}
		if r.Error != "" {
			_, _ = fmt.Fprintf(h.config.Output, "  Error: %s\n", r.Error)
		}
		for _, m := range r.Mismatches {
			_, _ = fmt.Fprintf(h.config.Output, "  Mismatch: %s\n", m)
		}
		_, _ = fmt.Fprintln(h.config.Output, "")
	}
}

// PrintCSV outputs benchmark results in CSV format for easy comparison.
func (h *Harness) PrintCSV(results []BenchmarkResult) {
	_, _ = fmt.Fprintln(h.config.Output,
		"name,cycles,instructions,cpi,stalls,flushes,forwarding_cycles,passed")

	for _, r := range results {
		_, _ = fmt.Fprintf(h.config.Output, "%s,%d,%d,%.3f,%d,%d,%d,%t\n",
			r.Name,
			r.SimulatedCycles,
			r.InstructionsRetired,
			r.CPI,
			r.StallCycles,
			r.PipelineFlushes,
			r.ForwardingCycles,
			r.Passed,
		)
	}
}

// BenchmarkReport is the complete output format for benchmark results.
type BenchmarkReport struct {
	// Timestamp when the benchmarks were run
	Timestamp string `json:"timestamp"`

	// Results is the list of individual benchmark results
	Results []BenchmarkResult `json:"results"`

	// Summary contains aggregate statistics
	Summary ReportSummary `json:"summary"`
}

// ReportSummary contains aggregate statistics across all benchmarks.
type ReportSummary struct {
	// TotalBenchmarks is the number of benchmarks run
	TotalBenchmarks int `json:"total_benchmarks"`

	// Passed is the number of benchmarks whose expectations held
	Passed int `json:"passed"`

	// TotalCycles is the sum of all simulated cycles
	TotalCycles uint64 `json:"total_cycles"`

	// TotalInstructions is the sum of all instructions retired
	TotalInstructions uint64 `json:"total_instructions"`

	// AverageCPI is the aggregate cycles per instruction
	AverageCPI float64 `json:"average_cpi"`
}

// Summarize computes aggregate statistics over results.
func Summarize(results []BenchmarkResult) ReportSummary {
	summary := ReportSummary{TotalBenchmarks: len(results)}
	for _, r := range results {
		summary.TotalCycles += r.SimulatedCycles
		summary.TotalInstructions += r.InstructionsRetired
		if r.Passed {
			summary.Passed++
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
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Results:   results,
		Summary:   Summarize(results),
	}

	encoder := json.NewEncoder(h.config.Output)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}
