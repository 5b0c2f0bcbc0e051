package emu

import (
	"errors"
	"fmt"

	"github.com/sarchlab/mipsim/insts"
)

// ErrMaxInstructions is returned when the instruction limit is reached.
var ErrMaxInstructions = errors.New("max instructions reached")

// StepResult represents the result of executing a single instruction.
type StepResult struct {
	// Halted is true once the PC leaves the program or reaches an empty slot.
	Halted bool

	// Err is set if an error occurred during execution.
	Err error
}

// Emulator executes MIPS instructions functionally, one at a time, with
// every instruction completing before the next begins. It has no hazards
// and serves as the reference result for the pipelined model.
type Emulator struct {
	regFile *RegFile
	memory  *Memory
	alu     *ALU

	program []*insts.Instruction
	pc      int

	instructionCount uint64
	maxInstructions  uint64
}

// EmulatorOption is a functional option for configuring the Emulator.
type EmulatorOption func(*Emulator)

// WithMaxInstructions sets the maximum number of instructions to execute.
// A value of 0 means no limit.
func WithMaxInstructions(max uint64) EmulatorOption {
	return func(e *Emulator) {
		e.maxInstructions = max
	}
}

// NewEmulator creates an emulator over the given register file and memory.
// Nil arguments get fresh, zeroed state.
func NewEmulator(regFile *RegFile, memory *Memory, opts ...EmulatorOption) *Emulator {
	if regFile == nil {
		regFile = NewRegFile()
	}
	if memory == nil {
		memory = NewMemory(DefaultMemoryWords)
	}

	e := &Emulator{
		regFile: regFile,
		memory:  memory,
		alu:     NewALU(),
	}
	for _, opt := range opts {
		opt(e)
	}

	return e
}

// RegFile returns the emulator's register file.
func (e *Emulator) RegFile() *RegFile {
	return e.regFile
}

// Memory returns the emulator's memory.
func (e *Emulator) Memory() *Memory {
	return e.memory
}

// PC returns the index of the next instruction.
func (e *Emulator) PC() int {
	return e.pc
}

// InstructionCount returns the number of instructions executed.
func (e *Emulator) InstructionCount() uint64 {
	return e.instructionCount
}

// LoadProgram installs the instruction store and restarts at index 0.
func (e *Emulator) LoadProgram(program []*insts.Instruction) {
	e.program = program
	e.pc = 0
	e.instructionCount = 0
}

// Step executes a single instruction.
func (e *Emulator) Step() StepResult {
	if e.pc < 0 || e.pc >= len(e.program) || e.program[e.pc] == nil {
		return StepResult{Halted: true}
	}

	if e.maxInstructions > 0 && e.instructionCount >= e.maxInstructions {
		return StepResult{Err: fmt.Errorf("%w: %d", ErrMaxInstructions, e.maxInstructions)}
	}

	inst := e.program[e.pc]
	next, err := e.execute(e.pc, inst)
	if err != nil {
		return StepResult{Err: fmt.Errorf("%d %s: %w", e.pc, inst, err)}
	}

	e.pc = next
	e.instructionCount++

	return StepResult{}
}

// Run executes instructions until the program ends or an error occurs.
func (e *Emulator) Run() error {
	for {
		result := e.Step()
		if result.Err != nil {
			return result.Err
		}
		if result.Halted {
			return nil
		}
	}
}

var emulatorALUOps = map[insts.Op]ALUOp{
	insts.OpADD:  ALUAdd,
	insts.OpSUB:  ALUSub,
	insts.OpAND:  ALUAnd,
	insts.OpOR:   ALUOr,
	insts.OpXOR:  ALUXor,
	insts.OpSLT:  ALUSlt,
	insts.OpSLL:  ALUSll,
	insts.OpSRL:  ALUSrl,
	insts.OpADDI: ALUAdd,
	insts.OpORI:  ALUOr,
}

// execute runs one instruction and returns the next PC.
func (e *Emulator) execute(pc int, inst *insts.Instruction) (int, error) {
	rs, err := e.regFile.Read(inst.Rs)
	if err != nil {
		return 0, err
	}
	rt, err := e.regFile.Read(inst.Rt)
	if err != nil {
		return 0, err
	}

	next := pc + 1

	switch inst.Op {
	case insts.OpADD, insts.OpSUB, insts.OpAND, insts.OpOR, insts.OpXOR, insts.OpSLT:
		return next, e.executeALU(inst.Op, inst.Rd, rs, rt)
	case insts.OpSLL, insts.OpSRL:
		return next, e.executeALU(inst.Op, inst.Rd, rt, inst.Shamt)
	case insts.OpADDI, insts.OpORI:
		return next, e.executeALU(inst.Op, inst.Rt, rs, inst.Imm)
	case insts.OpLW:
		value, err := e.memory.Load(rs + inst.Imm)
		if err != nil {
			return 0, err
		}
		return next, e.regFile.Write(inst.Rt, value)
	case insts.OpSW:
		return next, e.memory.Store(rs+inst.Imm, rt)
	case insts.OpBEQ:
		if rs == rt {
			next = pc + 1 + int(inst.Imm)
		}
		return next, nil
	case insts.OpBGEZ:
		if rs >= 0 {
			next = pc + 1 + int(inst.Imm)
		}
		return next, nil
	case insts.OpJ:
		return inst.Address, nil
	default:
		return 0, fmt.Errorf("%w: %v", insts.ErrUnknownOpcode, inst.Op)
	}
}

func (e *Emulator) executeALU(op insts.Op, dest int, x, y Word) error {
	result, err := e.alu.Execute(emulatorALUOps[op], x, y)
	if err != nil {
		return err
	}
	return e.regFile.Write(dest, result)
}
