// Package pipeline provides a 5-stage pipeline model for cycle-accurate timing simulation.
package pipeline

import (
	"fmt"

	"github.com/sarchlab/mipsim/emu"
	"github.com/sarchlab/mipsim/insts"
)

// FetchStage handles instruction fetch from the instruction store.
type FetchStage struct {
	program []*insts.Instruction
}

// NewFetchStage creates a new fetch stage over an instruction store.
func NewFetchStage(program []*insts.Instruction) *FetchStage {
	return &FetchStage{program: program}
}

// Fetch returns the instruction at pc. It reports false past the end of the
// program and at an empty slot; an empty slot ends the program.
func (s *FetchStage) Fetch(pc int) (*insts.Instruction, bool) {
	if pc < 0 || pc >= len(s.program) || s.program[pc] == nil {
		return nil, false
	}
	return s.program[pc], true
}

// Len returns the number of instruction slots.
func (s *FetchStage) Len() int {
	return len(s.program)
}

// DecodeStage handles control decode and register read.
type DecodeStage struct {
	regFile *emu.RegFile
}

// NewDecodeStage creates a new decode stage.
func NewDecodeStage(regFile *emu.RegFile) *DecodeStage {
	return &DecodeStage{regFile: regFile}
}

// Decode computes control signals and reads rs and rt.
func (s *DecodeStage) Decode(ifid IFIDEntry) (IDEXEntry, error) {
	inst := ifid.Inst

	ctrl, err := DecodeControl(inst.Op)
	if err != nil {
		return IDEXEntry{}, err
	}

	rsValue, err := s.regFile.Read(inst.Rs)
	if err != nil {
		return IDEXEntry{}, fmt.Errorf("read rs: %w", err)
	}

	rtValue, err := s.regFile.Read(inst.Rt)
	if err != nil {
		return IDEXEntry{}, fmt.Errorf("read rt: %w", err)
	}

	return IDEXEntry{
		PC:      ifid.PC,
		Inst:    inst,
		RsValue: rsValue,
		RtValue: rtValue,
		Rs:      inst.Rs,
		Rt:      inst.Rt,
		Rd:      inst.Rd,
		Imm:     inst.Imm,
		Ctrl:    ctrl,
	}, nil
}

// ExecuteStage handles ALU operations, address calculation and branch
// resolution.
type ExecuteStage struct {
	alu *emu.ALU
}

// NewExecuteStage creates a new execute stage.
func NewExecuteStage(alu *emu.ALU) *ExecuteStage {
	return &ExecuteStage{alu: alu}
}

// ExecuteResult holds the result of the execute stage.
type ExecuteResult struct {
	ALUResult  emu.Word
	StoreValue emu.Word
	Zero       bool
	WriteReg   int

	// Branch result.
	BranchTaken  bool
	BranchTarget int
}

// Execute performs the ALU operation using the (possibly forwarded) rs and
// rt values and resolves branches and jumps.
func (s *ExecuteStage) Execute(idex IDEXEntry, rsValue, rtValue emu.Word) (ExecuteResult, error) {
	inst := idex.Inst
	ctrl := idex.Ctrl

	aluOp, err := ArithmeticOp(inst.Op)
	if err != nil {
		return ExecuteResult{}, err
	}

	operand1 := rsValue
	operand2 := rtValue
	if ctrl.ALUSrc {
		operand2 = idex.Imm
	}

	// Shifts operate on rt by the constant shift amount.
	if inst.IsShift() {
		operand1 = rtValue
		operand2 = inst.Shamt
	}

	aluResult, err := s.alu.Execute(aluOp, operand1, operand2)
	if err != nil {
		return ExecuteResult{}, err
	}

	result := ExecuteResult{
		ALUResult:    aluResult,
		StoreValue:   rtValue,
		Zero:         s.alu.Zero(),
		WriteReg:     idex.Rt,
		BranchTarget: idex.PC + 1 + int(idex.Imm),
	}
	if ctrl.RegDst {
		result.WriteReg = idex.Rd
	}

	switch {
	case ctrl.Branch && inst.Op == insts.OpBEQ:
		result.BranchTaken = result.Zero
	case ctrl.Branch && inst.Op == insts.OpBGEZ:
		// Taken on the sign of rs, not on the ALU's slt output.
		result.BranchTaken = rsValue >= 0
	case ctrl.Jump:
		result.BranchTaken = true
		result.BranchTarget = inst.Address
	}

	return result, nil
}

// MemoryStage handles memory load/store operations.
type MemoryStage struct {
	memory *emu.Memory
}

// NewMemoryStage creates a new memory stage.
func NewMemoryStage(memory *emu.Memory) *MemoryStage {
	return &MemoryStage{memory: memory}
}

// MemoryResult holds the result of the memory stage.
type MemoryResult struct {
	MemData emu.Word
}

// Access performs memory read or write.
func (s *MemoryStage) Access(exmem EXMEMEntry) (MemoryResult, error) {
	result := MemoryResult{}

	switch {
	case exmem.Ctrl.MemRead:
		data, err := s.memory.Load(exmem.ALUResult)
		if err != nil {
			return result, err
		}
		result.MemData = data
	case exmem.Ctrl.MemWrite:
		if err := s.memory.Store(exmem.ALUResult, exmem.StoreValue); err != nil {
			return result, err
		}
	}

	return result, nil
}

// WritebackStage handles register file writeback.
type WritebackStage struct {
	regFile *emu.RegFile
}

// NewWritebackStage creates a new writeback stage.
func NewWritebackStage(regFile *emu.RegFile) *WritebackStage {
	return &WritebackStage{regFile: regFile}
}

// Writeback writes the result to the register file. It reports whether a
// register was written.
func (s *WritebackStage) Writeback(memwb MEMWBEntry) (bool, error) {
	if !memwb.Ctrl.RegWrite {
		return false, nil
	}

	if err := s.regFile.Write(memwb.WriteReg, memwb.WritebackValue()); err != nil {
		return false, err
	}

	return true, nil
}
