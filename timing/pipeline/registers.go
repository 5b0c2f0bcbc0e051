package pipeline

import (
	"github.com/sarchlab/mipsim/emu"
	"github.com/sarchlab/mipsim/insts"
)

// Latch is a single-entry pipeline register that is either empty or holds
// one entry. The zero value is empty. An occupied latch whose entry happens
// to be zero-valued is still occupied.
type Latch[T any] struct {
	entry    T
	occupied bool
}

// Occupied returns a latch holding entry.
func Occupied[T any](entry T) Latch[T] {
	return Latch[T]{entry: entry, occupied: true}
}

// Get returns the entry and whether the latch is occupied.
func (l Latch[T]) Get() (T, bool) {
	return l.entry, l.occupied
}

// IsEmpty reports whether the latch holds no entry (a bubble).
func (l Latch[T]) IsEmpty() bool {
	return !l.occupied
}

// Set places entry in the latch.
func (l *Latch[T]) Set(entry T) {
	l.entry = entry
	l.occupied = true
}

// Clear empties the latch.
func (l *Latch[T]) Clear() {
	var zero T
	l.entry = zero
	l.occupied = false
}

// IFIDEntry holds state between Fetch and Decode stages.
type IFIDEntry struct {
	// PC is the instruction index of the fetched instruction.
	PC int

	// Inst is the fetched instruction.
	Inst *insts.Instruction
}

// IDEXEntry holds state between Decode and Execute stages.
type IDEXEntry struct {
	// PC is the instruction index at decode time.
	PC int

	// Inst is the decoded instruction.
	Inst *insts.Instruction

	// Register values read from the register file.
	RsValue emu.Word
	RtValue emu.Word

	// Register numbers for hazard detection and forwarding.
	Rs int
	Rt int
	Rd int

	// Imm is the sign-extended immediate.
	Imm emu.Word

	// Ctrl holds the control signals computed at decode.
	Ctrl ControlSignals
}

// EXMEMEntry holds state between Execute and Memory stages.
type EXMEMEntry struct {
	PC   int
	Inst *insts.Instruction

	// ALU result (address for load/store, result for ALU ops).
	ALUResult emu.Word

	// Value to store for store instructions (forwarded rt).
	StoreValue emu.Word

	// Zero is the ALU zero flag after execution.
	Zero bool

	// BranchTarget is PC + 1 + Imm.
	BranchTarget int

	// WriteReg is the destination register number.
	WriteReg int

	Ctrl ControlSignals
}

// MEMWBEntry holds state between Memory and Writeback stages.
type MEMWBEntry struct {
	PC   int
	Inst *insts.Instruction

	// ALU result (for ALU instructions).
	ALUResult emu.Word

	// Data read from memory (for load instructions).
	MemData emu.Word

	// WriteReg is the destination register number.
	WriteReg int

	Ctrl ControlSignals
}

// WritebackValue returns the value the instruction commits to its
// destination register.
func (e MEMWBEntry) WritebackValue() emu.Word {
	if e.Ctrl.MemToReg {
		return e.MemData
	}
	return e.ALUResult
}

// Pipeline registers between adjacent stages.
type (
	IFIDRegister  = Latch[IFIDEntry]
	IDEXRegister  = Latch[IDEXEntry]
	EXMEMRegister = Latch[EXMEMEntry]
	MEMWBRegister = Latch[MEMWBEntry]
)
