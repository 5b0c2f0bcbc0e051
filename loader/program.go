// Package loader reads assembly program text into an instruction store.
package loader

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sarchlab/mipsim/insts"
)

// ErrUnparseable is returned in strict mode when any line fails to parse.
var ErrUnparseable = errors.New("unparseable program")

// Program represents a loaded program ready for execution.
type Program struct {
	// Path is the file the program was read from, if any.
	Path string
	// Lines holds the source lines that survived comment and blank-line
	// filtering, one per instruction slot.
	Lines []string
	// LineNumbers maps each slot to its 1-based line in the source.
	LineNumbers []int
	// Instructions is the instruction store. A slot is nil when its line
	// did not parse.
	Instructions []*insts.Instruction
	// Diagnostics lists the lines that did not parse, numbered by source
	// line.
	Diagnostics []insts.Diagnostic
}

// Option configures loading.
type Option func(*options)

type options struct {
	strict bool
}

// WithStrict makes loading fail when any line does not parse, instead of
// leaving a nil slot that ends the program early.
func WithStrict() Option {
	return func(o *options) {
		o.strict = true
	}
}

// Load reads and parses a program file.
func Load(path string, opts ...Option) (*Program, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open program file: %w", err)
	}
	defer func() { _ = f.Close() }()

	prog, err := Parse(f, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	prog.Path = path

	return prog, nil
}

// Parse reads program text from r.
func Parse(r io.Reader, opts ...Option) (*Program, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read program: %w", err)
	}

	return FromLines(lines, opts...)
}

// FromLines parses program text already split into lines. Blank and
// comment lines are dropped before parsing, so instruction indices (and
// therefore branch offsets and jump addresses) count only instructions.
func FromLines(lines []string, opts ...Option) (*Program, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	prog := &Program{}
	for i, line := range lines {
		if insts.IsBlankOrComment(line) {
			continue
		}
		prog.Lines = append(prog.Lines, strings.TrimSpace(line))
		prog.LineNumbers = append(prog.LineNumbers, i+1)
	}

	prog.Instructions, prog.Diagnostics = insts.NewParser().ParseProgram(prog.Lines)
	for i := range prog.Diagnostics {
		prog.Diagnostics[i].Line = prog.LineNumbers[prog.Diagnostics[i].Line]
	}

	if o.strict && len(prog.Diagnostics) > 0 {
		errs := make([]error, len(prog.Diagnostics))
		for i, d := range prog.Diagnostics {
			errs[i] = d
		}
		return nil, fmt.Errorf("%w: %w", ErrUnparseable, errors.Join(errs...))
	}

	return prog, nil
}

// Truncated reports the first empty slot when one exists. Fetch stops
// there, so instructions after it never run.
func (p *Program) Truncated() (slot int, truncated bool) {
	for i, inst := range p.Instructions {
		if inst == nil {
			return i, true
		}
	}
	return 0, false
}

// Len returns the number of instruction slots.
func (p *Program) Len() int {
	return len(p.Instructions)
}
