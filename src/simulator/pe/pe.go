// Package pe models the processing-element datapaths at the edges of the
// control core: the output-stationary multiply-accumulate cell the array is
// built from, and the simpler weight-stationary cell kept for the alternate
// dataflow.
package pe

import (
	"github.com/Madhav-Malhotra/ml-accelerator-dataflows/src/simulator/signal"
)

// Inputs samples one tick of an output-stationary cell's control and data
// pins.
type Inputs struct {
	ResetN bool
	Ready  bool
	RW     bool
	Stream bool
	Weight uint32
	Input  uint32
	FwdIn  uint32
}

// PE is one output-stationary cell. The accumulation result stays in the
// scratch register across the whole reduction while weights and inputs
// stream through; during unload the forward register relays partials from
// the neighbor instead.
type PE struct {
	wreg    uint32
	ireg    uint32
	scratch uint32
	fwd     uint32
	out     signal.Word

	latched Inputs
}

// New constructs a cell in its reset state.
func New() *PE {
	return &PE{out: signal.UndrivenWord()}
}

// Evaluate latches this tick's pin sample. All register updates and the
// output value are applied at Commit, so neighbors sampling this cell within
// the same tick still observe the previous state.
func (p *PE) Evaluate(in Inputs) {
	p.latched = in
}

// Commit applies the latched tick.
func (p *PE) Commit() {
	in := p.latched

	if !in.ResetN {
		p.wreg = 0
		p.ireg = 0
		p.scratch = 0
		p.fwd = 0
		p.out = signal.UndrivenWord()
		return
	}

	// MAC consumes the operand registers as loaded on earlier ticks; the
	// multiplier is gated off whenever either operand is zero.
	if in.Ready && in.RW {
		if p.wreg != 0 && p.ireg != 0 {
			p.scratch += p.wreg * p.ireg
		}
	}

	// Operand registers capture on every clock edge.
	p.wreg = in.Weight
	p.ireg = in.Input

	if in.Ready && in.Stream {
		p.fwd = in.FwdIn
	}

	switch {
	case !in.Ready:
		p.out = signal.UndrivenWord()
	case in.Stream:
		p.out = signal.WordOf(p.fwd)
	case in.RW:
		// Accumulating without streaming: the result bus stays quiet.
		p.out = signal.UndrivenWord()
	default:
		p.out = signal.WordOf(p.scratch)
	}
}

// Out returns the committed output bus.
func (p *PE) Out() signal.Word {
	return p.out
}

// Scratch returns the committed accumulator, for test inspection.
func (p *PE) Scratch() uint32 {
	return p.scratch
}

// Forward returns the committed forward register, for test inspection.
func (p *PE) Forward() uint32 {
	return p.fwd
}

// OperandRegs returns the committed weight and input registers.
func (p *PE) OperandRegs() (uint32, uint32) {
	return p.wreg, p.ireg
}
