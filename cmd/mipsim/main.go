// Package main provides the command-line front end for the MIPS pipeline
// simulator: run a program file, step through it cycle by cycle, or run
// the built-in demo programs.
package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"

	"github.com/sarchlab/mipsim/benchmarks"
	"github.com/sarchlab/mipsim/emu"
	"github.com/sarchlab/mipsim/loader"
	"github.com/sarchlab/mipsim/timing/config"
	"github.com/sarchlab/mipsim/timing/core"
	"github.com/sarchlab/mipsim/timing/pipeline"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// assignments collects repeated N=V flags.
type assignments map[int]emu.Word

func (a assignments) String() string {
	parts := make([]string, 0, len(a))
	for k, v := range a {
		parts = append(parts, fmt.Sprintf("%d=%d", k, v))
	}
	return strings.Join(parts, ",")
}

func (a assignments) Set(s string) error {
	key, value, ok := strings.Cut(s, "=")
	if !ok {
		return fmt.Errorf("expected N=V, got %q", s)
	}

	k, err := strconv.Atoi(strings.TrimPrefix(strings.TrimSpace(key), "$"))
	if err != nil {
		return fmt.Errorf("bad index %q: %w", key, err)
	}
	v, err := strconv.ParseInt(strings.TrimSpace(value), 10, 32)
	if err != nil {
		return fmt.Errorf("bad value %q: %w", value, err)
	}

	a[k] = emu.Word(v)
	return nil
}

type options struct {
	step       bool
	trace      bool
	demo       string
	noHazard   bool
	noForward  bool
	configPath string
	regs       assignments
	mem        assignments
	verbosity  int
	jsonOut    bool
	strict     bool
	maxCycles  uint64
}

func parseFlags(args []string, stderr io.Writer) (*options, *flag.FlagSet, error) {
	opts := &options{regs: assignments{}, mem: assignments{}}

	fs := flag.NewFlagSet("mipsim", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.BoolVar(&opts.step, "step", false, "Step interactively, printing the pipeline each cycle")
	fs.BoolVar(&opts.trace, "trace", false, "Print the pipeline after every cycle")
	fs.StringVar(&opts.demo, "demo", "", "Run a built-in demo by name, 'all', or 'list'")
	fs.BoolVar(&opts.noHazard, "no-hazard", false, "Disable load-use hazard detection")
	fs.BoolVar(&opts.noForward, "no-forward", false, "Disable forwarding")
	fs.StringVar(&opts.configPath, "config", "", "Path to configuration file (JSON or YAML)")
	fs.Var(opts.regs, "reg", "Initial register value N=V (repeatable)")
	fs.Var(opts.mem, "mem", "Initial memory word ADDR=V (repeatable)")
	fs.IntVar(&opts.verbosity, "v", 0, "Log verbosity (1: hazards, 2: stage trace)")
	fs.BoolVar(&opts.jsonOut, "json", false, "Print results as JSON")
	fs.BoolVar(&opts.strict, "strict", false, "Reject programs with unparseable lines")
	fs.Uint64Var(&opts.maxCycles, "max-cycles", 0, "Stop after this many cycles (0: config value)")
	fs.Usage = func() {
		_, _ = fmt.Fprintf(stderr, "Usage: mipsim [options] <program.s>\n")
		_, _ = fmt.Fprintf(stderr, "       mipsim -demo <name|all|list>\n")
		_, _ = fmt.Fprintf(stderr, "\nOptions:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, fs, err
	}
	return opts, fs, nil
}

func newLogger(w io.Writer, verbosity int) logr.Logger {
	return funcr.New(func(prefix, args string) {
		if prefix != "" {
			_, _ = fmt.Fprintf(w, "%s: %s\n", prefix, args)
			return
		}
		_, _ = fmt.Fprintln(w, args)
	}, funcr.Options{Verbosity: verbosity})
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	opts, fs, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	log := newLogger(stderr, opts.verbosity)

	if opts.demo != "" {
		return runDemos(opts, log, stdout, stderr)
	}

	if fs.NArg() < 1 {
		fs.Usage()
		return 1
	}

	cfg, err := buildConfig(opts)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error loading config: %v\n", err)
		return 1
	}

	var loadOpts []loader.Option
	if opts.strict {
		loadOpts = append(loadOpts, loader.WithStrict())
	}
	prog, err := loader.Load(fs.Arg(0), loadOpts...)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error loading program: %v\n", err)
		return 1
	}
	for _, d := range prog.Diagnostics {
		_, _ = fmt.Fprintf(stderr, "Warning: %v\n", d)
	}
	if slot, ok := prog.Truncated(); ok {
		_, _ = fmt.Fprintf(stderr, "Warning: program ends at slot %d; later instructions will not run\n", slot)
	}

	session, err := core.NewCore(cfg, core.WithLogger(log))
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error creating session: %v\n", err)
		return 1
	}
	session.Load(prog)

	switch {
	case opts.step:
		err = stepInteractive(session, stdin, stdout)
	case opts.trace:
		err = runTraced(session, stdout)
	default:
		err = session.Run()
	}

	if opts.jsonOut {
		if jerr := printJSON(stdout, session.Snapshot()); jerr != nil {
			_, _ = fmt.Fprintf(stderr, "Error writing JSON: %v\n", jerr)
			return 1
		}
	} else {
		printState(stdout, session.Snapshot())
	}

	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error running program: %v\n", err)
		return 1
	}
	return 0
}

func buildConfig(opts *options) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if opts.configPath != "" {
		var err error
		cfg, err = config.LoadConfig(opts.configPath)
		if err != nil {
			return nil, err
		}
	}

	if opts.noHazard {
		cfg.HazardDetection = false
	}
	if opts.noForward {
		cfg.Forwarding = false
	}
	if opts.maxCycles > 0 {
		cfg.MaxCycles = opts.maxCycles
	}
	for idx, v := range opts.regs {
		cfg.SetRegister(idx, v)
	}
	for addr, v := range opts.mem {
		cfg.SetMemory(addr, v)
	}

	return cfg, cfg.Validate()
}

func runDemos(opts *options, log logr.Logger, stdout, stderr io.Writer) int {
	if opts.demo == "list" {
		for _, b := range benchmarks.GetAll() {
			_, _ = fmt.Fprintf(stdout, "%-20s %s\n", b.Name, b.Description)
		}
		return 0
	}

	hcfg := benchmarks.DefaultConfig()
	hcfg.Output = stdout
	hcfg.Verbose = opts.verbosity > 0
	hcfg.Logger = log
	if opts.maxCycles > 0 {
		hcfg.MaxCycles = opts.maxCycles
	}
	harness := benchmarks.NewHarness(hcfg)

	if opts.demo == "all" {
		harness.AddBenchmarks(benchmarks.GetAll())
	} else {
		b, ok := benchmarks.Lookup(opts.demo)
		if !ok {
			_, _ = fmt.Fprintf(stderr, "Error: unknown demo %q (try -demo list)\n", opts.demo)
			return 1
		}
		harness.AddBenchmark(b)
	}

	results := harness.RunAll()
	if opts.jsonOut {
		if err := harness.PrintJSON(results); err != nil {
			_, _ = fmt.Fprintf(stderr, "Error writing JSON: %v\n", err)
			return 1
		}
	} else {
		harness.PrintResults(results)
	}

	if s := benchmarks.Summarize(results); s.Passed != s.TotalBenchmarks {
		return 1
	}
	return 0
}

// stepInteractive advances one cycle per input line. "r" runs to the end
// and "q" stops.
func stepInteractive(session *core.Core, stdin io.Reader, stdout io.Writer) error {
	printHeader(stdout)
	scanner := bufio.NewScanner(stdin)

	for !session.Halted() {
		_, _ = fmt.Fprint(stdout, "[enter] step, r run, q quit > ")
		if !scanner.Scan() {
			_, _ = fmt.Fprintln(stdout)
			return scanner.Err()
		}

		switch strings.TrimSpace(scanner.Text()) {
		case "q":
			return nil
		case "r":
			for !session.Halted() {
				if err := session.Step(); err != nil {
					return err
				}
				printRow(stdout, session.Snapshot())
			}
			return nil
		default:
			if err := session.Step(); err != nil {
				return err
			}
			printRow(stdout, session.Snapshot())
		}
	}

	return nil
}

func runTraced(session *core.Core, stdout io.Writer) error {
	printHeader(stdout)
	for !session.Halted() {
		if err := session.Step(); err != nil {
			return err
		}
		printRow(stdout, session.Snapshot())
	}
	return nil
}

const column = "%-12s"

func printHeader(w io.Writer) {
	_, _ = fmt.Fprintf(w, "%-6s", "Cycle")
	for _, name := range pipeline.StageNames {
		_, _ = fmt.Fprintf(w, column, name)
	}
	_, _ = fmt.Fprintln(w)
}

func printRow(w io.Writer, snap core.Snapshot) {
	_, _ = fmt.Fprintf(w, "%-6d", snap.Stats.Cycles)
	for _, label := range snap.Stages {
		if label == "" {
			label = "-"
		}
		_, _ = fmt.Fprintf(w, column, label)
	}
	_, _ = fmt.Fprintln(w)
}

func printState(w io.Writer, snap core.Snapshot) {
	_, _ = fmt.Fprintf(w, "\nCycles: %d\n", snap.Stats.Cycles)
	_, _ = fmt.Fprintf(w, "Instructions: %d\n", snap.Stats.Instructions)
	_, _ = fmt.Fprintf(w, "CPI: %.2f\n", snap.CPI)
	_, _ = fmt.Fprintf(w, "Stalls: %d\n", snap.Stats.Stalls)
	_, _ = fmt.Fprintf(w, "Flushes: %d\n", snap.Stats.Flushes)

	_, _ = fmt.Fprintln(w, "\nRegisters:")
	for i, v := range snap.Registers {
		if v != 0 {
			_, _ = fmt.Fprintf(w, "  $%-2d = %d\n", i, v)
		}
	}

	if len(snap.Memory) > 0 {
		_, _ = fmt.Fprintln(w, "\nMemory:")
		for _, cell := range snap.Memory {
			_, _ = fmt.Fprintf(w, "  [%d] = %d\n", cell.Addr, cell.Value)
		}
	}
}

func printJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
