package benchmarks

import (
	"github.com/sarchlab/mipsim/emu"
	"github.com/sarchlab/mipsim/timing/config"
)

// GetHazardTests returns the hazard test programs. Each one isolates a
// single pipeline mechanism.
func GetHazardTests() []Benchmark {
	return []Benchmark{
		forwarding(),
		loadUse(),
		complexHazards(),
		withoutHazardHandling(),
		beqControlHazard(),
		jumpControlHazard(),
	}
}

// GetDemoPrograms returns the demo programs: small complete programs with
// loops that exercise several mechanisms at once.
func GetDemoPrograms() []Benchmark {
	return []Benchmark{
		basicHazardsDemo(),
		branchLoopDemo(),
		jumpDemo(),
		counterLoopDemo(),
		complexProgramDemo(),
	}
}

// GetAll returns the hazard tests followed by the demo programs.
func GetAll() []Benchmark {
	return append(GetHazardTests(), GetDemoPrograms()...)
}

// Lookup returns the benchmark with the given name.
func Lookup(name string) (Benchmark, bool) {
	for _, b := range GetAll() {
		if b.Name == name {
			return b, true
		}
	}
	return Benchmark{}, false
}

// Names returns the names of all benchmarks.
func Names() []string {
	all := GetAll()
	names := make([]string, len(all))
	for i, b := range all {
		names[i] = b.Name
	}
	return names
}

func forwarding() Benchmark {
	return Benchmark{
		Name:        "forwarding",
		Description: "RAW hazards between ALU instructions resolved by forwarding without stalls",
		Setup: func(cfg *config.Config) {
			cfg.SetRegister(1, 10)
			cfg.SetRegister(2, 20)
		},
		Source: []string{
			"ADD $3, $1, $2",
			"SUB $4, $3, $1",
			"ADD $5, $4, $3",
			"AND $6, $5, $2",
		},
		ExpectedRegisters: map[int]emu.Word{3: 30, 4: 20, 5: 50, 6: 16},
		ExpectedStalls:    count(0),
	}
}

func loadUse() Benchmark {
	return Benchmark{
		Name:        "load_use",
		Description: "A load followed by a dependent instruction stalls one cycle",
		Setup: func(cfg *config.Config) {
			cfg.SetMemory(0, 100)
			cfg.SetMemory(4, 200)
		},
		Source: []string{
			"LW $2, 0($1)",
			"ADD $3, $2, $1",
			"LW $4, 4($1)",
			"SUB $5, $4, $2",
		},
		ExpectedRegisters: map[int]emu.Word{2: 100, 3: 100, 4: 200, 5: 100},
		ExpectedStalls:    count(2),
	}
}

func complexHazards() Benchmark {
	return Benchmark{
		Name:        "complex_hazards",
		Description: "Mixed load-use and ALU hazards, including a shift",
		Setup: func(cfg *config.Config) {
			cfg.SetRegister(1, 5)
			cfg.SetRegister(2, 10)
			cfg.SetMemory(20, 50)
		},
		Source: []string{
			"ADD $3, $1, $2",
			"ADDI $4, $1, 15",
			"LW $5, 0($4)",
			"ADD $6, $5, $3",
			"SLL $7, $6, 1",
			"SUB $8, $7, $5",
		},
		ExpectedRegisters: map[int]emu.Word{3: 15, 4: 20, 5: 50, 6: 65, 7: 130, 8: 80},
		ExpectedStalls:    count(1),
	}
}

// withoutHazardHandling records the stale result the pipeline produces
// when both mechanisms are off.
func withoutHazardHandling() Benchmark {
	return Benchmark{
		Name:        "no_hazard_handling",
		Description: "Hazard detection and forwarding disabled: SUB reads the stale $3",
		Setup: func(cfg *config.Config) {
			cfg.HazardDetection = false
			cfg.Forwarding = false
			cfg.SetRegister(1, 10)
			cfg.SetRegister(2, 20)
		},
		Source: []string{
			"ADD $3, $1, $2",
			"SUB $4, $3, $1",
		},
		ExpectedRegisters: map[int]emu.Word{3: 30, 4: -10},
		ExpectedStalls:    count(0),
	}
}

func beqControlHazard() Benchmark {
	return Benchmark{
		Name:        "beq_branch",
		Description: "A taken BEQ flushes the instruction behind it",
		Source: []string{
			"ADDI $1, $0, 5",
			"ADDI $2, $0, 5",
			"BEQ $1, $2, 1",
			"ADDI $3, $0, 100",
			"ADDI $4, $0, 200",
			"ADDI $5, $0, 999",
		},
		ExpectedRegisters: map[int]emu.Word{1: 5, 2: 5, 3: 0, 4: 200, 5: 999},
		ExpectedFlushes:   count(1),
	}
}

func jumpControlHazard() Benchmark {
	return Benchmark{
		Name:        "jump",
		Description: "J flushes the instruction behind it",
		Source: []string{
			"ADDI $1, $0, 10",
			"J 3",
			"ADDI $2, $0, 20",
			"ADDI $3, $0, 30",
			"ADDI $4, $0, 40",
		},
		ExpectedRegisters: map[int]emu.Word{1: 10, 2: 0, 3: 30, 4: 40},
		ExpectedFlushes:   count(1),
	}
}

func basicHazardsDemo() Benchmark {
	return Benchmark{
		Name:        "basic_hazards",
		Description: "Data hazards with forwarding, then a store/load pair with a load-use stall",
		Source: []string{
			"# Basic Hazards Demo",
			"# Data hazards with forwarding",
			"ADDI $1, $0, 10",
			"ADDI $2, $0, 20",
			"ADD $3, $1, $2",
			"SUB $4, $3, $1",
			"# Load-use hazard (stall)",
			"SW $3, 0($0)",
			"LW $5, 0($0)",
			"ADD $6, $5, $1",
		},
		ExpectedRegisters: map[int]emu.Word{1: 10, 2: 20, 3: 30, 4: 20, 5: 30, 6: 40},
		ExpectedMemory:    map[int]emu.Word{0: 30},
		ExpectedStalls:    count(1),
		ExpectedFlushes:   count(0),
	}
}

func branchLoopDemo() Benchmark {
	return Benchmark{
		Name:        "branch_loop",
		Description: "Counts from 0 to 5 with BEQ exit and J back-edge",
		Source: []string{
			"# Branch Loop Demo",
			"# Counts from 0 to 5",
			"ADDI $1, $0, 0",
			"ADDI $2, $0, 5",
			"# Loop start (index 2)",
			"ADDI $1, $1, 1",
			"BEQ $1, $2, 1",
			"J 2",
			"# Exit",
			"ADDI $3, $0, 999",
		},
		ExpectedRegisters: map[int]emu.Word{1: 5, 2: 5, 3: 999},
		ExpectedStalls:    count(0),
		ExpectedFlushes:   count(5),
	}
}

func jumpDemo() Benchmark {
	return Benchmark{
		Name:        "jump_test",
		Description: "Tests the J instruction",
		Source: []string{
			"# Jump Test Demo",
			"ADDI $1, $0, 10",
			"J 3",
			"ADDI $2, $0, 20",
			"ADDI $3, $0, 30",
			"ADDI $4, $0, 40",
		},
		ExpectedRegisters: map[int]emu.Word{1: 10, 2: 0, 3: 30, 4: 40},
		ExpectedFlushes:   count(1),
	}
}

func counterLoopDemo() Benchmark {
	return Benchmark{
		Name:        "counter_loop",
		Description: "Sums 5+4+3+2+1+0 with a BGEZ loop",
		Source: []string{
			"# Counter Loop Demo",
			"# Sum 5+4+3+2+1+0 = 15",
			"ADDI $1, $0, 5",
			"ADDI $2, $0, 0",
			"# Loop (index 2)",
			"ADD $2, $2, $1",
			"ADDI $1, $1, -1",
			"BGEZ $1, -3",
			"# Exit",
			"ADDI $3, $0, 100",
		},
		ExpectedRegisters: map[int]emu.Word{1: -1, 2: 15, 3: 100},
		ExpectedStalls:    count(0),
		ExpectedFlushes:   count(5),
	}
}

func complexProgramDemo() Benchmark {
	return Benchmark{
		Name:        "complex_program",
		Description: "All instruction types: a BGEZ sum loop, store, load and logic",
		Source: []string{
			"# Complex Program Demo",
			"ADDI $1, $0, 3",
			"ADDI $2, $0, 0",
			"# Sum loop (index 2-4)",
			"ADD $2, $2, $1",
			"ADDI $1, $1, -1",
			"BGEZ $1, -3",
			"# Store result",
			"SW $2, 0($0)",
			"# More operations",
			"LW $3, 0($0)",
			"ADD $4, $3, $3",
			"SLL $5, $4, 2",
			"AND $6, $5, $4",
			"OR $7, $6, $3",
		},
		ExpectedRegisters: map[int]emu.Word{1: -1, 2: 6, 3: 6, 4: 12, 5: 48, 6: 0, 7: 6},
		ExpectedMemory:    map[int]emu.Word{0: 6},
		ExpectedStalls:    count(1),
		ExpectedFlushes:   count(3),
	}
}
