// Package emu provides the MIPS execution units: register file, word
// memory and arithmetic unit.
package emu

import (
	"errors"
	"fmt"
)

// Word is the machine word: a 32-bit two's-complement integer.
// Arithmetic on Words wraps on overflow.
type Word = int32

// NumRegisters is the number of general-purpose registers.
const NumRegisters = 32

// ErrInvalidRegister is returned for register indices outside [0, 32).
var ErrInvalidRegister = errors.New("invalid register index")

// RegFile represents the MIPS register file.
// Register 0 is hard-wired to zero: writes to it are accepted and dropped.
type RegFile struct {
	regs [NumRegisters]Word
}

// NewRegFile creates a zeroed register file.
func NewRegFile() *RegFile {
	return &RegFile{}
}

func checkReg(idx int) error {
	if idx < 0 || idx >= NumRegisters {
		return fmt.Errorf("%w: %d", ErrInvalidRegister, idx)
	}
	return nil
}

// Read reads a register value. Register 0 always reads 0.
func (r *RegFile) Read(idx int) (Word, error) {
	if err := checkReg(idx); err != nil {
		return 0, err
	}
	return r.regs[idx], nil
}

// Write writes a value to a register. Writes to register 0 are ignored.
func (r *RegFile) Write(idx int, value Word) error {
	if err := checkReg(idx); err != nil {
		return err
	}
	if idx == 0 {
		return nil
	}
	r.regs[idx] = value
	return nil
}

// Snapshot returns a copy of all register values.
func (r *RegFile) Snapshot() [NumRegisters]Word {
	return r.regs
}

// Reset clears every register.
func (r *RegFile) Reset() {
	r.regs = [NumRegisters]Word{}
}
