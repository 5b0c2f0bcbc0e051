// Package main provides a profiling wrapper for mipsim to identify performance bottlenecks.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"runtime"
	"runtime/pprof"
	"time"

	"github.com/sarchlab/mipsim/benchmarks"
	"github.com/sarchlab/mipsim/emu"
	"github.com/sarchlab/mipsim/loader"
	"github.com/sarchlab/mipsim/timing/config"
	"github.com/sarchlab/mipsim/timing/core"
)

type options struct {
	functional bool
	cpuProfile string
	memProfile string
	demo       string
	repeat     int
	maxCycles  uint64
	path       string
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options

	fs := flag.NewFlagSet("profile", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.BoolVar(&opts.functional, "functional", false, "Run the functional emulator instead of the pipeline")
	fs.StringVar(&opts.cpuProfile, "cpuprofile", "", "write cpu profile to file")
	fs.StringVar(&opts.memProfile, "memprofile", "", "write memory profile to file")
	fs.StringVar(&opts.demo, "demo", "", "profile a built-in program instead of a file")
	fs.IntVar(&opts.repeat, "repeat", 1000, "number of times to run the program")
	fs.Uint64Var(&opts.maxCycles, "max-cycles", 1000000, "cycle (or instruction) limit per run (0 = unlimited)")
	fs.Usage = func() {
		_, _ = fmt.Fprintf(stderr, "Usage: profile [options] <program.asm>\n")
		_, _ = fmt.Fprintf(stderr, "\nOptions:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return opts, err
	}

	if opts.demo == "" {
		if fs.NArg() < 1 {
			fs.Usage()
			return opts, errors.New("missing program")
		}
		opts.path = fs.Arg(0)
	}
	if opts.repeat < 1 {
		opts.repeat = 1
	}

	return opts, nil
}

func load(opts options) (*loader.Program, *config.Config, error) {
	cfg := config.DefaultConfig()
	cfg.MaxCycles = opts.maxCycles

	if opts.demo == "" {
		prog, err := loader.Load(opts.path, loader.WithStrict())
		return prog, cfg, err
	}

	bench, ok := benchmarks.Lookup(opts.demo)
	if !ok {
		return nil, nil, fmt.Errorf("unknown demo %q", opts.demo)
	}
	if bench.Setup != nil {
		bench.Setup(cfg)
	}
	prog, err := loader.FromLines(bench.Source, loader.WithStrict())
	return prog, cfg, err
}

func run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return 1
	}

	prog, cfg, err := load(opts)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error loading program: %v\n", err)
		return 1
	}

	// Start CPU profiling if requested
	if opts.cpuProfile != "" {
		f, err := os.Create(opts.cpuProfile)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Error creating CPU profile: %v\n", err)
			return 1
		}
		defer func() { _ = f.Close() }()

		if err := pprof.StartCPUProfile(f); err != nil {
			_, _ = fmt.Fprintf(stderr, "Error starting CPU profile: %v\n", err)
			return 1
		}
		defer pprof.StopCPUProfile()
	}

	start := time.Now()

	var work uint64
	if opts.functional {
		work, err = runFunctional(prog, cfg, opts.repeat)
	} else {
		work, err = runTiming(prog, cfg, opts.repeat)
	}

	elapsed := time.Since(start)

	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error running program: %v\n", err)
		return 1
	}

	unit := "cycles"
	if opts.functional {
		unit = "instructions"
	}
	_, _ = fmt.Fprintf(stdout, "Runs:    %d\n", opts.repeat)
	_, _ = fmt.Fprintf(stdout, "Total:   %d %s\n", work, unit)
	_, _ = fmt.Fprintf(stdout, "Elapsed: %v\n", elapsed)
	if elapsed > 0 {
		_, _ = fmt.Fprintf(stdout, "Rate:    %.0f %s/sec\n", float64(work)/elapsed.Seconds(), unit)
	}

	if opts.memProfile != "" {
		f, err := os.Create(opts.memProfile)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Error creating memory profile: %v\n", err)
			return 1
		}
		defer func() { _ = f.Close() }()

		runtime.GC()
		if err := pprof.WriteHeapProfile(f); err != nil {
			_, _ = fmt.Fprintf(stderr, "Error writing memory profile: %v\n", err)
			return 1
		}
	}

	return 0
}

// runTiming runs the pipelined model repeatedly in one session and returns
// the total simulated cycles.
func runTiming(prog *loader.Program, cfg *config.Config, repeat int) (uint64, error) {
	session, err := core.NewCore(cfg)
	if err != nil {
		return 0, err
	}
	session.Load(prog)

	var cycles uint64
	for i := 0; i < repeat; i++ {
		if err := session.Reset(); err != nil {
			return cycles, err
		}
		if err := session.Run(); err != nil {
			return cycles, err
		}
		cycles += session.Stats().Cycles
	}

	return cycles, nil
}

// runFunctional runs the functional emulator repeatedly and returns the
// total instructions executed.
func runFunctional(prog *loader.Program, cfg *config.Config, repeat int) (uint64, error) {
	var count uint64
	for i := 0; i < repeat; i++ {
		regFile := emu.NewRegFile()
		memory := emu.NewMemory(cfg.MemoryWords)
		if err := cfg.Apply(regFile, memory); err != nil {
			return count, err
		}

		e := emu.NewEmulator(regFile, memory, emu.WithMaxInstructions(cfg.MaxCycles))
		e.LoadProgram(prog.Instructions)
		if err := e.Run(); err != nil {
			return count, err
		}
		count += e.InstructionCount()
	}

	return count, nil
}
