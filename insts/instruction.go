package insts

import (
	"errors"
	"fmt"
)

// ErrUnknownOpcode is returned when an opcode or mnemonic is outside the
// supported instruction set.
var ErrUnknownOpcode = errors.New("unknown opcode")

// Op represents a MIPS opcode.
type Op uint8

// MIPS opcodes.
const (
	OpUnknown Op = iota
	OpADD
	OpSUB
	OpAND
	OpOR
	OpXOR
	OpSLT
	OpSLL
	OpSRL
	OpADDI
	OpORI
	OpLW
	OpSW
	OpBEQ
	OpBGEZ
	OpJ

	numOps
)

var opNames = [numOps]string{
	OpUnknown: "UNKNOWN",
	OpADD:     "ADD",
	OpSUB:     "SUB",
	OpAND:     "AND",
	OpOR:      "OR",
	OpXOR:     "XOR",
	OpSLT:     "SLT",
	OpSLL:     "SLL",
	OpSRL:     "SRL",
	OpADDI:    "ADDI",
	OpORI:     "ORI",
	OpLW:      "LW",
	OpSW:      "SW",
	OpBEQ:     "BEQ",
	OpBGEZ:    "BGEZ",
	OpJ:       "J",
}

var opsByName = func() map[string]Op {
	m := make(map[string]Op, numOps)
	for op := OpADD; op < numOps; op++ {
		m[opNames[op]] = op
	}
	return m
}()

// String returns the mnemonic of the opcode.
func (o Op) String() string {
	if o >= numOps {
		return fmt.Sprintf("Op(%d)", uint8(o))
	}
	return opNames[o]
}

// Valid reports whether the opcode belongs to the supported set.
func (o Op) Valid() bool {
	return o > OpUnknown && o < numOps
}

// AllOps returns every supported opcode in declaration order.
func AllOps() []Op {
	ops := make([]Op, 0, numOps-1)
	for op := OpADD; op < numOps; op++ {
		ops = append(ops, op)
	}
	return ops
}

// ParseOp looks up an upper-case mnemonic.
func ParseOp(mnemonic string) (Op, error) {
	op, ok := opsByName[mnemonic]
	if !ok {
		return OpUnknown, fmt.Errorf("%w: %q", ErrUnknownOpcode, mnemonic)
	}
	return op, nil
}

// Format represents an instruction encoding format.
type Format uint8

// Instruction formats.
const (
	FormatUnknown Format = iota
	FormatR              // Register
	FormatI              // Immediate
	FormatJ              // Jump
)

// String returns the single-letter format tag.
func (f Format) String() string {
	switch f {
	case FormatR:
		return "R"
	case FormatI:
		return "I"
	case FormatJ:
		return "J"
	default:
		return "?"
	}
}

// Instruction represents a decoded MIPS instruction.
//
// Instructions are created once by the parser and are never modified
// afterwards. Pipeline latches share them by pointer.
type Instruction struct {
	Op     Op     // Operation code
	Format Format // Encoding format

	Rs int // First source register
	Rt int // Second source register, or destination for I-type
	Rd int // Destination register for R-type

	Imm     int32 // Sign-extended immediate or branch offset
	Shamt   int32 // Shift amount for SLL/SRL
	Address int   // Absolute instruction index for J
}

// IsLoad reports whether the instruction reads memory into a register.
func (i *Instruction) IsLoad() bool { return i.Op == OpLW }

// IsStore reports whether the instruction writes memory.
func (i *Instruction) IsStore() bool { return i.Op == OpSW }

// IsShift reports whether the instruction shifts rt by a constant amount.
func (i *Instruction) IsShift() bool { return i.Op == OpSLL || i.Op == OpSRL }

// Label returns a short tag for pipeline displays: the opcode plus the
// register or address that tells otherwise identical instructions apart.
func (i *Instruction) Label() string {
	switch i.Op {
	case OpADD, OpSUB, OpAND, OpOR, OpXOR, OpSLT, OpSLL, OpSRL:
		return fmt.Sprintf("%s $%d", i.Op, i.Rd)
	case OpADDI, OpORI, OpLW, OpSW:
		return fmt.Sprintf("%s $%d", i.Op, i.Rt)
	case OpBEQ:
		return fmt.Sprintf("BEQ $%d,$%d", i.Rs, i.Rt)
	case OpBGEZ:
		return fmt.Sprintf("BGEZ $%d", i.Rs)
	case OpJ:
		return fmt.Sprintf("J %d", i.Address)
	default:
		return i.Op.String()
	}
}

// String returns the instruction in assembly syntax.
func (i *Instruction) String() string {
	switch i.Op {
	case OpADD, OpSUB, OpAND, OpOR, OpXOR, OpSLT:
		return fmt.Sprintf("%s $%d, $%d, $%d", i.Op, i.Rd, i.Rs, i.Rt)
	case OpSLL, OpSRL:
		return fmt.Sprintf("%s $%d, $%d, %d", i.Op, i.Rd, i.Rt, i.Shamt)
	case OpADDI, OpORI:
		return fmt.Sprintf("%s $%d, $%d, %d", i.Op, i.Rt, i.Rs, i.Imm)
	case OpLW, OpSW:
		return fmt.Sprintf("%s $%d, %d($%d)", i.Op, i.Rt, i.Imm, i.Rs)
	case OpBEQ:
		return fmt.Sprintf("BEQ $%d, $%d, %d", i.Rs, i.Rt, i.Imm)
	case OpBGEZ:
		return fmt.Sprintf("BGEZ $%d, %d", i.Rs, i.Imm)
	case OpJ:
		return fmt.Sprintf("J %d", i.Address)
	default:
		return i.Op.String()
	}
}
