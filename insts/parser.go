package insts

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ErrSyntax is returned when a line names a known mnemonic but its operands
// do not match the expected layout.
var ErrSyntax = errors.New("syntax error")

// Diagnostic records a program line the parser could not turn into an
// instruction.
type Diagnostic struct {
	// Line is the zero-based index of the line passed to ParseProgram.
	// The loader renumbers it to the 1-based source line.
	Line int
	// Text is the original line.
	Text string
	// Err describes why parsing failed.
	Err error
}

func (d Diagnostic) Error() string {
	return fmt.Sprintf("line %d: %q: %v", d.Line, d.Text, d.Err)
}

func (d Diagnostic) Unwrap() error {
	return d.Err
}

// Parser converts assembly text into instructions.
// A Parser is not safe for concurrent use.
type Parser struct {
	upper cases.Caser
}

// NewParser creates a new instruction parser.
func NewParser() *Parser {
	return &Parser{upper: cases.Upper(language.Und)}
}

// IsBlankOrComment reports whether a line carries no instruction.
func IsBlankOrComment(line string) bool {
	line = strings.TrimSpace(line)
	return line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "//")
}

// splitOperands splits on whitespace, commas and parentheses, so that
// "LW $2, 4($1)" yields [LW $2 4 $1].
func splitOperands(line string) []string {
	return strings.FieldsFunc(line, func(r rune) bool {
		return unicode.IsSpace(r) || r == ',' || r == '(' || r == ')'
	})
}

// ParseLine parses a single line. Blank and comment lines return a nil
// instruction and a nil error.
func (p *Parser) ParseLine(line string) (*Instruction, error) {
	if IsBlankOrComment(line) {
		return nil, nil
	}

	parts := splitOperands(strings.TrimSpace(line))
	op, err := ParseOp(p.upper.String(parts[0]))
	if err != nil {
		return nil, err
	}

	inst := &Instruction{Op: op}
	operands := parts[1:]

	switch op {
	// ADD $rd, $rs, $rt
	case OpADD, OpSUB, OpAND, OpOR, OpXOR, OpSLT:
		inst.Format = FormatR
		err = scan(operands, reg(&inst.Rd), reg(&inst.Rs), reg(&inst.Rt))

	// SLL $rd, $rt, shamt
	case OpSLL, OpSRL:
		inst.Format = FormatR
		err = scan(operands, reg(&inst.Rd), reg(&inst.Rt), imm(&inst.Shamt))

	// ADDI $rt, $rs, imm
	case OpADDI, OpORI:
		inst.Format = FormatI
		err = scan(operands, reg(&inst.Rt), reg(&inst.Rs), imm(&inst.Imm))

	// LW $rt, offset($rs)
	case OpLW, OpSW:
		inst.Format = FormatI
		err = scan(operands, reg(&inst.Rt), imm(&inst.Imm), reg(&inst.Rs))

	// BEQ $rs, $rt, offset
	case OpBEQ:
		inst.Format = FormatI
		err = scan(operands, reg(&inst.Rs), reg(&inst.Rt), imm(&inst.Imm))

	// BGEZ $rs, offset
	case OpBGEZ:
		inst.Format = FormatI
		err = scan(operands, reg(&inst.Rs), imm(&inst.Imm))

	// J address
	case OpJ:
		inst.Format = FormatJ
		err = scan(operands, addr(&inst.Address))
	}

	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return inst, nil
}

// ParseProgram parses one instruction slot per input line. Lines that fail
// to parse leave a nil slot and produce a Diagnostic; blank and comment
// lines leave a nil slot silently.
func (p *Parser) ParseProgram(lines []string) ([]*Instruction, []Diagnostic) {
	program := make([]*Instruction, len(lines))
	var diags []Diagnostic

	for i, line := range lines {
		inst, err := p.ParseLine(line)
		if err != nil {
			diags = append(diags, Diagnostic{Line: i, Text: line, Err: err})
			continue
		}
		program[i] = inst
	}

	return program, diags
}

type operandScanner func(tok string) error

func scan(tokens []string, scanners ...operandScanner) error {
	if len(tokens) < len(scanners) {
		return fmt.Errorf("%w: want %d operands, got %d",
			ErrSyntax, len(scanners), len(tokens))
	}

	for i, s := range scanners {
		if err := s(tokens[i]); err != nil {
			return err
		}
	}

	return nil
}

func reg(dst *int) operandScanner {
	return func(tok string) error {
		n, err := strconv.Atoi(strings.TrimPrefix(tok, "$"))
		if err != nil {
			return fmt.Errorf("%w: bad register %q", ErrSyntax, tok)
		}
		*dst = n
		return nil
	}
}

func imm(dst *int32) operandScanner {
	return func(tok string) error {
		n, err := strconv.ParseInt(tok, 10, 32)
		if err != nil {
			return fmt.Errorf("%w: bad immediate %q", ErrSyntax, tok)
		}
		*dst = int32(n)
		return nil
	}
}

func addr(dst *int) operandScanner {
	return func(tok string) error {
		n, err := strconv.Atoi(tok)
		if err != nil {
			return fmt.Errorf("%w: bad address %q", ErrSyntax, tok)
		}
		*dst = n
		return nil
	}
}
