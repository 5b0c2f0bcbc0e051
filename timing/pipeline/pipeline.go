package pipeline

import (
	"fmt"

	"github.com/go-logr/logr"

	"github.com/sarchlab/mipsim/emu"
	"github.com/sarchlab/mipsim/insts"
)

// Statistics holds pipeline performance statistics.
type Statistics struct {
	// Cycles is the total number of cycles simulated.
	Cycles uint64 `json:"cycles"`
	// Instructions is the number of instructions completed (retired).
	Instructions uint64 `json:"instructions"`
	// Stalls is the number of load-use stall cycles.
	Stalls uint64 `json:"stalls"`
	// Flushes is the number of taken branches and jumps that squashed the
	// instruction in IF/ID.
	Flushes uint64 `json:"flushes"`
	// Forwards is the number of cycles in which at least one operand was
	// forwarded.
	Forwards uint64 `json:"forwards"`
}

// CPI returns the cycles per instruction.
func (s Statistics) CPI() float64 {
	if s.Instructions == 0 {
		return 0
	}
	return float64(s.Cycles) / float64(s.Instructions)
}

// Stage names, in the order StageLabels reports them.
const (
	StageIF = iota
	StageID
	StageEX
	StageMEM
	StageWB
	NumStages
)

// StageNames are the short names of the five stages.
var StageNames = [NumStages]string{"IF", "ID", "EX", "MEM", "WB"}

// PipelineOption is a functional option for configuring the Pipeline.
type PipelineOption func(*Pipeline)

// WithHazardDetection enables or disables load-use stall insertion.
func WithHazardDetection(enabled bool) PipelineOption {
	return func(p *Pipeline) {
		p.hazardDetection = enabled
	}
}

// WithForwarding enables or disables the EX/MEM and MEM/WB bypass paths.
func WithForwarding(enabled bool) PipelineOption {
	return func(p *Pipeline) {
		p.forwarding = enabled
	}
}

// WithLogger sets the logger used for hazard and stage traces.
func WithLogger(log logr.Logger) PipelineOption {
	return func(p *Pipeline) {
		p.log = log
	}
}

// Pipeline implements a 5-stage pipelined CPU model.
// Stages: Fetch (IF) -> Decode (ID) -> Execute (EX) -> Memory (MEM) -> Writeback (WB)
type Pipeline struct {
	// Pipeline registers
	ifid  IFIDRegister
	idex  IDEXRegister
	exmem EXMEMRegister
	memwb MEMWBRegister

	// lastWB is the instruction written back during the most recent cycle.
	lastWB *insts.Instruction

	// Pipeline stages
	fetchStage     *FetchStage
	decodeStage    *DecodeStage
	executeStage   *ExecuteStage
	memoryStage    *MemoryStage
	writebackStage *WritebackStage

	hazardUnit *HazardUnit

	hazardDetection bool
	forwarding      bool

	// Shared resources
	regFile *emu.RegFile
	memory  *emu.Memory

	// Program counter, as an instruction index.
	pc int

	stats Statistics

	// Execution state
	halted bool
	err    error

	log logr.Logger
}

// NewPipeline creates a new 5-stage pipeline with hazard detection and
// forwarding enabled and an empty instruction store.
func NewPipeline(regFile *emu.RegFile, memory *emu.Memory, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		fetchStage:      NewFetchStage(nil),
		decodeStage:     NewDecodeStage(regFile),
		executeStage:    NewExecuteStage(emu.NewALU()),
		memoryStage:     NewMemoryStage(memory),
		writebackStage:  NewWritebackStage(regFile),
		hazardUnit:      NewHazardUnit(),
		hazardDetection: true,
		forwarding:      true,
		regFile:         regFile,
		memory:          memory,
		log:             logr.Discard(),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// LoadProgram installs the instruction store and resets the pipeline state.
// Nil slots are allowed; fetch stops at the first one.
func (p *Pipeline) LoadProgram(program []*insts.Instruction) {
	p.fetchStage = NewFetchStage(program)
	p.Reset()
}

// ProgramLen returns the number of slots in the instruction store.
func (p *Pipeline) ProgramLen() int {
	return p.fetchStage.Len()
}

// PC returns the current program counter.
func (p *Pipeline) PC() int {
	return p.pc
}

// SetPC sets the program counter.
func (p *Pipeline) SetPC(pc int) {
	p.pc = pc
}

// SetHazardDetection toggles load-use stall insertion.
func (p *Pipeline) SetHazardDetection(enabled bool) {
	p.hazardDetection = enabled
}

// HazardDetection reports whether load-use stalls are inserted.
func (p *Pipeline) HazardDetection() bool {
	return p.hazardDetection
}

// SetForwarding toggles operand forwarding.
func (p *Pipeline) SetForwarding(enabled bool) {
	p.forwarding = enabled
}

// Forwarding reports whether operand forwarding is enabled.
func (p *Pipeline) Forwarding() bool {
	return p.forwarding
}

// GetIFID returns the IF/ID pipeline register.
func (p *Pipeline) GetIFID() *IFIDRegister {
	return &p.ifid
}

// GetIDEX returns the ID/EX pipeline register.
func (p *Pipeline) GetIDEX() *IDEXRegister {
	return &p.idex
}

// GetEXMEM returns the EX/MEM pipeline register.
func (p *Pipeline) GetEXMEM() *EXMEMRegister {
	return &p.exmem
}

// GetMEMWB returns the MEM/WB pipeline register.
func (p *Pipeline) GetMEMWB() *MEMWBRegister {
	return &p.memwb
}

// RegFile returns the register file the pipeline writes back to.
func (p *Pipeline) RegFile() *emu.RegFile {
	return p.regFile
}

// Memory returns the data memory.
func (p *Pipeline) Memory() *emu.Memory {
	return p.memory
}

// Stats returns pipeline statistics.
func (p *Pipeline) Stats() Statistics {
	return p.stats
}

// Halted returns true if the pipeline has halted.
func (p *Pipeline) Halted() bool {
	return p.halted
}

// Err returns the error that halted the pipeline, if any.
func (p *Pipeline) Err() error {
	return p.err
}

// StageLabels returns the label of the instruction occupying each stage
// after the most recent cycle, indexed by StageIF..StageWB. An empty string
// means the stage holds a bubble. The WB entry is the instruction written
// back during that cycle.
func (p *Pipeline) StageLabels() [NumStages]string {
	var labels [NumStages]string

	if e, ok := p.ifid.Get(); ok {
		labels[StageIF] = e.Inst.Label()
	}
	if e, ok := p.idex.Get(); ok {
		labels[StageID] = e.Inst.Label()
	}
	if e, ok := p.exmem.Get(); ok {
		labels[StageEX] = e.Inst.Label()
	}
	if e, ok := p.memwb.Get(); ok {
		labels[StageMEM] = e.Inst.Label()
	}
	if p.lastWB != nil {
		labels[StageWB] = p.lastWB.Label()
	}

	return labels
}

// Run executes the pipeline until it halts and returns the error that
// stopped it, if any.
func (p *Pipeline) Run() error {
	for !p.halted {
		if err := p.Tick(); err != nil {
			return err
		}
	}
	return nil
}

// RunCycles executes the pipeline for the specified number of cycles.
// Returns true if still running, false if halted.
func (p *Pipeline) RunCycles(cycles uint64) (bool, error) {
	for i := uint64(0); i < cycles && !p.halted; i++ {
		if err := p.Tick(); err != nil {
			return false, err
		}
	}
	return !p.halted, nil
}

// Tick executes one pipeline cycle.
//
// Every stage reads the pipeline registers as they were at the start of the
// cycle and produces the next value of its output register; all four are
// latched together at the end. Writeback commits to the register file
// before decode reads it, so a value retiring this cycle is visible to the
// instruction being decoded.
//
// Hazard handling:
//   - Forwarding from EX/MEM (non-load) and MEM/WB into EX
//   - Load-use stalls hold IF/ID and the PC for one cycle
//   - Taken branches and jumps resolve in EX and squash IF/ID
//
// After an error the pipeline is halted and further ticks do nothing.
func (p *Pipeline) Tick() error {
	if p.halted {
		return nil
	}

	p.stats.Cycles++

	if err := p.tick(); err != nil {
		p.halted = true
		p.err = fmt.Errorf("cycle %d: %w", p.stats.Cycles, err)
		p.log.Error(p.err, "pipeline halted")
		return p.err
	}

	if p.ifid.IsEmpty() && p.idex.IsEmpty() && p.exmem.IsEmpty() && p.memwb.IsEmpty() {
		p.halted = true
		p.log.V(1).Info("pipeline drained",
			"cycles", p.stats.Cycles, "instructions", p.stats.Instructions)
	}

	return nil
}

func (p *Pipeline) tick() error {
	// Stage 5: Writeback
	p.lastWB = nil
	if wb, ok := p.memwb.Get(); ok {
		if _, err := p.writebackStage.Writeback(wb); err != nil {
			return fmt.Errorf("WB %s: %w", wb.Inst, err)
		}
		p.lastWB = wb.Inst
		p.stats.Instructions++
	}

	// Stage 4: Memory
	var nextMEMWB MEMWBRegister
	if mem, ok := p.exmem.Get(); ok {
		memResult, err := p.memoryStage.Access(mem)
		if err != nil {
			return fmt.Errorf("MEM %s: %w", mem.Inst, err)
		}
		nextMEMWB.Set(MEMWBEntry{
			PC:        mem.PC,
			Inst:      mem.Inst,
			ALUResult: mem.ALUResult,
			MemData:   memResult.MemData,
			WriteReg:  mem.WriteReg,
			Ctrl:      mem.Ctrl,
		})
	}

	// Stage 3: Execute
	var nextEXMEM EXMEMRegister
	branchTaken := false
	branchTarget := 0
	if ex, ok := p.idex.Get(); ok {
		rsValue, rtValue := p.operands(ex)

		execResult, err := p.executeStage.Execute(ex, rsValue, rtValue)
		if err != nil {
			return fmt.Errorf("EX %s: %w", ex.Inst, err)
		}
		nextEXMEM.Set(EXMEMEntry{
			PC:           ex.PC,
			Inst:         ex.Inst,
			ALUResult:    execResult.ALUResult,
			StoreValue:   execResult.StoreValue,
			Zero:         execResult.Zero,
			BranchTarget: execResult.BranchTarget,
			WriteReg:     execResult.WriteReg,
			Ctrl:         ex.Ctrl,
		})

		branchTaken = execResult.BranchTaken
		branchTarget = execResult.BranchTarget
	}

	// Stage 2: Decode
	var nextIDEX IDEXRegister
	nextIFID := p.ifid
	loadUse := false
	if id, ok := p.ifid.Get(); ok && !branchTaken && p.hazardDetection {
		loadUse = p.hazardUnit.DetectLoadUseHazard(p.idex, id.Inst)
	}

	stall := p.hazardUnit.ComputeStalls(loadUse, branchTaken)
	switch {
	case stall.FlushIF:
		p.stats.Flushes++
		p.log.V(1).Info("control hazard flush",
			"target", branchTarget, "squashed", p.labelOf(p.ifid))
		p.pc = branchTarget
	case stall.StallIF:
		p.stats.Stalls++
		p.log.V(1).Info("load-use stall", "pc", p.pc, "held", p.labelOf(p.ifid))
	default:
		if id, ok := p.ifid.Get(); ok {
			decoded, err := p.decodeStage.Decode(id)
			if err != nil {
				return fmt.Errorf("ID %s: %w", id.Inst, err)
			}
			nextIDEX.Set(decoded)
		}
	}

	// Stage 1: Fetch
	if !stall.StallIF {
		nextIFID.Clear()
		if inst, ok := p.fetchStage.Fetch(p.pc); ok {
			nextIFID.Set(IFIDEntry{PC: p.pc, Inst: inst})
			p.pc++
		}
	}

	// Latch all pipeline registers
	p.ifid = nextIFID
	p.idex = nextIDEX
	p.exmem = nextEXMEM
	p.memwb = nextMEMWB

	if v := p.log.V(2); v.Enabled() {
		labels := p.StageLabels()
		v.Info("cycle", "n", p.stats.Cycles, "pc", p.pc,
			"IF", labels[StageIF], "ID", labels[StageID], "EX", labels[StageEX],
			"MEM", labels[StageMEM], "WB", labels[StageWB])
	}

	return nil
}

// operands returns the rs and rt values the execute stage uses for ex,
// applying forwarding from the cycle-start EX/MEM and MEM/WB registers.
func (p *Pipeline) operands(ex IDEXEntry) (emu.Word, emu.Word) {
	if !p.forwarding {
		return ex.RsValue, ex.RtValue
	}

	fwd := p.hazardUnit.DetectForwarding(p.idex, p.exmem, p.memwb)
	if fwd.Any() {
		p.stats.Forwards++
		p.log.V(1).Info("forwarding", "inst", ex.Inst.Label(),
			"rs", fwd.ForwardRs.String(), "rt", fwd.ForwardRt.String())
	}

	rs := p.hazardUnit.GetForwardedValue(fwd.ForwardRs, ex.RsValue, p.exmem, p.memwb)
	rt := p.hazardUnit.GetForwardedValue(fwd.ForwardRt, ex.RtValue, p.exmem, p.memwb)
	return rs, rt
}

func (p *Pipeline) labelOf(ifid IFIDRegister) string {
	if e, ok := ifid.Get(); ok {
		return e.Inst.Label()
	}
	return ""
}

// Reset clears the pipeline registers, program counter, statistics and
// halt state. The instruction store, register file and memory are kept.
func (p *Pipeline) Reset() {
	p.ifid.Clear()
	p.idex.Clear()
	p.exmem.Clear()
	p.memwb.Clear()
	p.lastWB = nil
	p.pc = 0
	p.stats = Statistics{}
	p.halted = false
	p.err = nil
}
