package pipeline

import (
	"github.com/sarchlab/mipsim/emu"
	"github.com/sarchlab/mipsim/insts"
)

// ForwardSource indicates where a forwarded value should come from.
type ForwardSource int

const (
	// ForwardNone means no forwarding needed - use register file value.
	ForwardNone ForwardSource = iota
	// ForwardFromEXMEM means forward the ALU result held in EX/MEM.
	ForwardFromEXMEM
	// ForwardFromMEMWB means forward the writeback value held in MEM/WB.
	ForwardFromMEMWB
)

func (f ForwardSource) String() string {
	switch f {
	case ForwardFromEXMEM:
		return "EX/MEM"
	case ForwardFromMEMWB:
		return "MEM/WB"
	default:
		return "none"
	}
}

// ForwardingResult contains forwarding decisions for both source operands.
type ForwardingResult struct {
	// ForwardRs specifies the forwarding source for the rs operand.
	ForwardRs ForwardSource
	// ForwardRt specifies the forwarding source for the rt operand.
	ForwardRt ForwardSource
}

// Any reports whether either operand is forwarded.
func (r ForwardingResult) Any() bool {
	return r.ForwardRs != ForwardNone || r.ForwardRt != ForwardNone
}

// StallResult contains stall and flush control signals.
type StallResult struct {
	// StallIF indicates the IF stage should hold IF/ID and not advance PC.
	StallIF bool
	// InsertBubbleEX indicates ID/EX should be emptied next cycle.
	InsertBubbleEX bool
	// FlushIF indicates the instruction in IF/ID was fetched down the wrong
	// path and must not be decoded.
	FlushIF bool
}

// HazardUnit detects data hazards and determines forwarding/stall signals.
//
// All methods read pipeline registers as they were at the start of the
// cycle. The MEM/WB argument is therefore the instruction retiring this
// cycle, not the one the memory stage is producing.
type HazardUnit struct{}

// NewHazardUnit creates a new hazard detection unit.
func NewHazardUnit() *HazardUnit {
	return &HazardUnit{}
}

// DetectForwarding determines if forwarding is needed for the instruction
// in ID/EX.
func (h *HazardUnit) DetectForwarding(
	idex IDEXRegister,
	exmem EXMEMRegister,
	memwb MEMWBRegister,
) ForwardingResult {
	result := ForwardingResult{
		ForwardRs: ForwardNone,
		ForwardRt: ForwardNone,
	}

	entry, ok := idex.Get()
	if !ok {
		return result
	}

	result.ForwardRs = h.detectForwardForReg(entry.Rs, exmem, memwb)
	result.ForwardRt = h.detectForwardForReg(entry.Rt, exmem, memwb)

	return result
}

// detectForwardForReg checks if a specific register needs forwarding.
func (h *HazardUnit) detectForwardForReg(
	reg int,
	exmem EXMEMRegister,
	memwb MEMWBRegister,
) ForwardSource {
	// $0 is constant, never forwarded
	if reg == 0 {
		return ForwardNone
	}

	// EX/MEM has precedence over MEM/WB (more recent value). A load in
	// EX/MEM has no data yet.
	if e, ok := exmem.Get(); ok && e.Ctrl.RegWrite && e.WriteReg == reg && !e.Ctrl.MemRead {
		return ForwardFromEXMEM
	}

	if e, ok := memwb.Get(); ok && e.Ctrl.RegWrite && e.WriteReg == reg {
		return ForwardFromMEMWB
	}

	return ForwardNone
}

// DetectLoadUseHazard detects load-use hazards where the load in ID/EX
// writes a register that the instruction being decoded reads. The rs field
// is always checked; the rt field is checked unless the next instruction
// is a store.
func (h *HazardUnit) DetectLoadUseHazard(idex IDEXRegister, next *insts.Instruction) bool {
	load, ok := idex.Get()
	if !ok || next == nil || !load.Ctrl.MemRead {
		return false
	}

	// LW writes rt
	loadRd := load.Rt
	if loadRd == 0 {
		return false
	}

	if next.Rs == loadRd {
		return true
	}

	return next.Rt == loadRd && !next.IsStore()
}

// ComputeStalls computes stall and flush signals based on hazard conditions.
// A taken branch or jump wins over a load-use stall: the instruction that
// would have stalled is on the wrong path.
func (h *HazardUnit) ComputeStalls(loadUseHazard bool, branchTaken bool) StallResult {
	if branchTaken {
		return StallResult{FlushIF: true}
	}

	if loadUseHazard {
		return StallResult{StallIF: true, InsertBubbleEX: true}
	}

	return StallResult{}
}

// GetForwardedValue returns the value to use based on forwarding decision.
func (h *HazardUnit) GetForwardedValue(
	forward ForwardSource,
	originalValue emu.Word,
	exmem EXMEMRegister,
	memwb MEMWBRegister,
) emu.Word {
	switch forward {
	case ForwardFromEXMEM:
		e, _ := exmem.Get()
		return e.ALUResult
	case ForwardFromMEMWB:
		e, _ := memwb.Get()
		return e.WritebackValue()
	default:
		return originalValue
	}
}
