// Package insts provides MIPS instruction definitions and text parsing.
//
// This package turns assembly-like program text into structured instruction
// records for the pipeline. It supports a closed subset:
//   - R-type ALU: ADD, SUB, AND, OR, XOR, SLT
//   - R-type shifts: SLL, SRL
//   - I-type ALU: ADDI, ORI
//   - Memory: LW, SW
//   - Branches: BEQ, BGEZ
//   - Jump: J
//
// Usage:
//
//	parser := insts.NewParser()
//	inst, err := parser.ParseLine("LW $2, 4($1)")
//	fmt.Printf("Op: %v, Rt: %d, Rs: %d, Imm: %d\n", inst.Op, inst.Rt, inst.Rs, inst.Imm)
package insts
