package pipeline

import (
	"fmt"

	"github.com/sarchlab/mipsim/emu"
	"github.com/sarchlab/mipsim/insts"
)

// ControlSignals is the control bundle the decode stage attaches to an
// instruction. It is a pure function of the opcode.
type ControlSignals struct {
	RegWrite bool // Instruction writes a register
	MemRead  bool // Load from memory
	MemWrite bool // Store to memory
	Branch   bool // Conditional branch
	ALUSrc   bool // Second ALU operand is the immediate
	RegDst   bool // Destination is rd (true) or rt (false)
	MemToReg bool // Write back memory data instead of ALU result
	Jump     bool // Unconditional jump

	// ALUOp is the first-level ALU control marker (0 add, 1 or/sub,
	// 2 R-type, 5 slt). Execution does not consult it; the ALU operation
	// comes from ArithmeticOp.
	ALUOp int
}

var controlTable = map[insts.Op]ControlSignals{
	insts.OpADD: rType,
	insts.OpSUB: rType,
	insts.OpAND: rType,
	insts.OpOR:  rType,
	insts.OpXOR: rType,
	insts.OpSLT: rType,
	insts.OpSLL: rType,
	insts.OpSRL: rType,

	insts.OpADDI: {RegWrite: true, ALUSrc: true, ALUOp: 0},
	insts.OpORI:  {RegWrite: true, ALUSrc: true, ALUOp: 1},
	insts.OpLW: {
		RegWrite: true, MemRead: true, ALUSrc: true, MemToReg: true,
		ALUOp: 0,
	},
	insts.OpSW: {MemWrite: true, ALUSrc: true, ALUOp: 0},

	insts.OpBEQ:  {Branch: true, ALUOp: 1},
	insts.OpBGEZ: {Branch: true, ALUOp: 5},

	insts.OpJ: {Jump: true},
}

var rType = ControlSignals{RegWrite: true, RegDst: true, ALUOp: 2}

// DecodeControl returns the control signals for an opcode.
func DecodeControl(op insts.Op) (ControlSignals, error) {
	ctrl, ok := controlTable[op]
	if !ok {
		return ControlSignals{}, fmt.Errorf("control: %w: %v", insts.ErrUnknownOpcode, op)
	}
	return ctrl, nil
}

var arithmeticTable = map[insts.Op]emu.ALUOp{
	insts.OpADD:  emu.ALUAdd,
	insts.OpADDI: emu.ALUAdd,
	insts.OpLW:   emu.ALUAdd,
	insts.OpSW:   emu.ALUAdd,
	insts.OpSUB:  emu.ALUSub,
	insts.OpBEQ:  emu.ALUSub,
	insts.OpAND:  emu.ALUAnd,
	insts.OpOR:   emu.ALUOr,
	insts.OpORI:  emu.ALUOr,
	insts.OpXOR:  emu.ALUXor,
	insts.OpSLT:  emu.ALUSlt,
	insts.OpBGEZ: emu.ALUSlt,
	insts.OpSLL:  emu.ALUSll,
	insts.OpSRL:  emu.ALUSrl,
}

// ArithmeticOp returns the ALU operation the execute stage performs for an
// opcode. J never reaches the ALU and maps to add.
func ArithmeticOp(op insts.Op) (emu.ALUOp, error) {
	if aluOp, ok := arithmeticTable[op]; ok {
		return aluOp, nil
	}
	if op == insts.OpJ {
		return emu.ALUAdd, nil
	}
	return 0, fmt.Errorf("alu control: %w: %v", insts.ErrUnknownOpcode, op)
}
