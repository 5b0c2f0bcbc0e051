// Package core provides the simulator session.
// It wraps the pipeline together with the machine state it runs on and
// drives it from an akita tick engine.
package core

import (
	"errors"
	"fmt"

	"github.com/go-logr/logr"
	"github.com/rs/xid"
	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/mipsim/emu"
	"github.com/sarchlab/mipsim/loader"
	"github.com/sarchlab/mipsim/timing/config"
	"github.com/sarchlab/mipsim/timing/pipeline"
)

// ErrCycleLimit is returned when a run reaches the configured cycle limit
// before the pipeline drains.
var ErrCycleLimit = errors.New("cycle limit reached")

// Snapshot is a point-in-time view of a session for display or export.
type Snapshot struct {
	Session   string                     `json:"session"`
	PC        int                        `json:"pc"`
	Halted    bool                       `json:"halted"`
	Stats     pipeline.Statistics        `json:"stats"`
	CPI       float64                    `json:"cpi"`
	Stages    [pipeline.NumStages]string `json:"stages"`
	Registers [emu.NumRegisters]emu.Word `json:"registers"`
	Memory    []emu.Cell                 `json:"memory"`
	Error     string                     `json:"error,omitempty"`
}

// CoreOption is a functional option for configuring the Core.
type CoreOption func(*Core)

// WithLogger sets the logger for the session and its pipeline.
func WithLogger(log logr.Logger) CoreOption {
	return func(c *Core) {
		c.log = log
	}
}

// WithFreq sets the simulated clock frequency. It only affects the
// engine's virtual time, not cycle counts.
func WithFreq(freq sim.Freq) CoreOption {
	return func(c *Core) {
		c.freq = freq
	}
}

// Core represents one simulation session: a pipeline, the register file
// and memory it owns, the loaded program and the tick engine that runs it.
type Core struct {
	*sim.TickingComponent

	// Pipeline is the underlying 5-stage pipeline.
	Pipeline *pipeline.Pipeline

	engine sim.Engine
	freq   sim.Freq

	cfg     *config.Config
	regFile *emu.RegFile
	memory  *emu.Memory
	program *loader.Program

	id  xid.ID
	log logr.Logger
	err error
}

// NewCore creates a session from a configuration. A nil configuration
// means config.DefaultConfig(). The initial register and memory values of
// the configuration are applied immediately.
func NewCore(cfg *config.Config, opts ...CoreOption) (*Core, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Core{
		engine: sim.NewSerialEngine(),
		freq:   1 * sim.GHz,
		cfg:    cfg.Clone(),
		id:     xid.New(),
		log:    logr.Discard(),
	}

	for _, opt := range opts {
		opt(c)
	}

	c.log = c.log.WithValues("session", c.id.String())
	c.TickingComponent = sim.NewTickingComponent("Core", c.engine, c.freq, c)

	c.regFile = emu.NewRegFile()
	c.memory = emu.NewMemory(c.cfg.MemoryWords)
	c.Pipeline = pipeline.NewPipeline(c.regFile, c.memory,
		pipeline.WithHazardDetection(c.cfg.HazardDetection),
		pipeline.WithForwarding(c.cfg.Forwarding),
		pipeline.WithLogger(c.log),
	)

	if err := c.cfg.Apply(c.regFile, c.memory); err != nil {
		return nil, err
	}

	return c, nil
}

// ID returns the session identifier.
func (c *Core) ID() string {
	return c.id.String()
}

// Config returns a copy of the session configuration.
func (c *Core) Config() *config.Config {
	return c.cfg.Clone()
}

// RegFile returns the register file.
func (c *Core) RegFile() *emu.RegFile {
	return c.regFile
}

// Memory returns the data memory.
func (c *Core) Memory() *emu.Memory {
	return c.memory
}

// Program returns the loaded program, or nil.
func (c *Core) Program() *loader.Program {
	return c.program
}

// Load installs a program and restarts the pipeline at instruction 0.
// Register and memory contents are left as they are.
func (c *Core) Load(prog *loader.Program) {
	c.program = prog
	c.err = nil
	c.Pipeline.LoadProgram(prog.Instructions)

	c.log.V(1).Info("program loaded", "path", prog.Path, "slots", prog.Len())
	if slot, ok := prog.Truncated(); ok {
		c.log.Info("program ends early at an empty slot", "slot", slot)
	}
}

// SetHazardDetection toggles load-use stall insertion.
func (c *Core) SetHazardDetection(enabled bool) {
	c.cfg.HazardDetection = enabled
	c.Pipeline.SetHazardDetection(enabled)
}

// SetForwarding toggles operand forwarding.
func (c *Core) SetForwarding(enabled bool) {
	c.cfg.Forwarding = enabled
	c.Pipeline.SetForwarding(enabled)
}

// Halted returns true if the pipeline has drained or stopped on an error.
func (c *Core) Halted() bool {
	return c.Pipeline.Halted()
}

// Err returns the error that stopped the most recent run, if any.
func (c *Core) Err() error {
	if c.err != nil {
		return c.err
	}
	return c.Pipeline.Err()
}

// Stats returns performance statistics for the session.
func (c *Core) Stats() pipeline.Statistics {
	return c.Pipeline.Stats()
}

// Step executes one pipeline cycle, honoring the cycle limit.
func (c *Core) Step() error {
	if c.Pipeline.Halted() {
		return nil
	}

	if limit := c.cfg.MaxCycles; limit > 0 && c.Pipeline.Stats().Cycles >= limit {
		return fmt.Errorf("%w: %d cycles", ErrCycleLimit, limit)
	}

	return c.Pipeline.Tick()
}

// Tick advances the session by one cycle when scheduled by the engine.
// It returns false to stop ticking once the pipeline halts, fails or hits
// the cycle limit.
func (c *Core) Tick() bool {
	if err := c.Step(); err != nil {
		c.err = err
		return false
	}
	return !c.Pipeline.Halted()
}

// Run executes the session on the tick engine until it stops, and returns
// the error that stopped it, if any.
func (c *Core) Run() error {
	c.err = nil
	if c.Pipeline.Halted() {
		return c.Pipeline.Err()
	}

	c.TickLater()
	if err := c.engine.Run(); err != nil {
		return fmt.Errorf("engine: %w", err)
	}

	stats := c.Pipeline.Stats()
	c.log.V(1).Info("run finished",
		"cycles", stats.Cycles, "instructions", stats.Instructions,
		"stalls", stats.Stalls, "flushes", stats.Flushes,
		"time", float64(c.engine.CurrentTime()))

	return c.err
}

// Reset rebuilds the machine state from the configuration and reloads the
// current program.
func (c *Core) Reset() error {
	c.err = nil
	c.regFile.Reset()
	c.memory.Reset()
	if err := c.cfg.Apply(c.regFile, c.memory); err != nil {
		return err
	}

	if c.program != nil {
		c.Pipeline.LoadProgram(c.program.Instructions)
	} else {
		c.Pipeline.Reset()
	}

	return nil
}

// Snapshot captures the current session state.
func (c *Core) Snapshot() Snapshot {
	stats := c.Pipeline.Stats()
	s := Snapshot{
		Session:   c.ID(),
		PC:        c.Pipeline.PC(),
		Halted:    c.Pipeline.Halted(),
		Stats:     stats,
		CPI:       stats.CPI(),
		Stages:    c.Pipeline.StageLabels(),
		Registers: c.regFile.Snapshot(),
		Memory:    c.memory.NonZero(),
	}
	if err := c.Err(); err != nil {
		s.Error = err.Error()
	}
	return s
}
