package emu

import (
	"errors"
	"fmt"
)

// ErrUnknownOperation is returned when the ALU is given an operation
// selector outside its defined set.
var ErrUnknownOperation = errors.New("unknown ALU operation")

// ALUOp selects the operation the ALU performs.
type ALUOp uint8

// ALU operations.
const (
	ALUAdd ALUOp = iota
	ALUSub
	ALUAnd
	ALUOr
	ALUXor
	ALUSlt // Signed set-less-than
	ALUSll // Shift left logical
	ALUSrl // Shift right logical (zero fill)
)

var aluOpNames = [...]string{"add", "sub", "and", "or", "xor", "slt", "sll", "srl"}

func (op ALUOp) String() string {
	if int(op) < len(aluOpNames) {
		return aluOpNames[op]
	}
	return fmt.Sprintf("ALUOp(%d)", uint8(op))
}

// shiftMask keeps the low five bits of a shift amount.
const shiftMask = 0x1F

// ALU implements MIPS arithmetic and logic operations.
// It keeps the zero flag of its most recent result.
type ALU struct {
	result Word
	zero   bool
}

// NewALU creates a new ALU.
func NewALU() *ALU {
	return &ALU{}
}

// Execute performs op on x and y and updates the zero flag.
func (a *ALU) Execute(op ALUOp, x, y Word) (Word, error) {
	var result Word

	switch op {
	case ALUAdd:
		result = x + y
	case ALUSub:
		result = x - y
	case ALUAnd:
		result = x & y
	case ALUOr:
		result = x | y
	case ALUXor:
		result = x ^ y
	case ALUSlt:
		if x < y {
			result = 1
		}
	case ALUSll:
		result = x << (uint32(y) & shiftMask)
	case ALUSrl:
		result = Word(uint32(x) >> (uint32(y) & shiftMask))
	default:
		return 0, fmt.Errorf("%w: %v", ErrUnknownOperation, op)
	}

	a.result = result
	a.zero = result == 0

	return result, nil
}

// Zero reports whether the last result was zero.
func (a *ALU) Zero() bool {
	return a.zero
}

// Result returns the last result.
func (a *ALU) Result() Word {
	return a.result
}
