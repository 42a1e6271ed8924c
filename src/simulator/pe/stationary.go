package pe

import (
	"github.com/Madhav-Malhotra/ml-accelerator-dataflows/src/simulator/signal"
)

// StationaryInputs samples one tick of a weight-stationary cell's pins.
// RW low loads the resident weight; RW high runs one accumulate step.
type StationaryInputs struct {
	ResetN bool
	Ready  bool
	RW     bool
	Weight uint32
	Input  uint32
}

// StationaryPE is the weight-stationary cell: the weight is parked once and
// inputs stream past it, accumulating into the scratch register.
type StationaryPE struct {
	weight  uint32
	scratch uint32
	out     signal.Word

	latched StationaryInputs
}

// NewStationary constructs a cell in its reset state.
func NewStationary() *StationaryPE {
	return &StationaryPE{out: signal.UndrivenWord()}
}

// Evaluate latches this tick's pin sample.
func (p *StationaryPE) Evaluate(in StationaryInputs) {
	p.latched = in
}

// Commit applies the latched tick.
func (p *StationaryPE) Commit() {
	in := p.latched

	if !in.ResetN {
		p.weight = 0
		p.scratch = 0
		p.out = signal.UndrivenWord()
		return
	}

	if !in.Ready {
		p.out = signal.UndrivenWord()
		return
	}

	if in.RW {
		if p.weight != 0 && in.Input != 0 {
			p.scratch += p.weight * in.Input
		}
	} else {
		p.weight = in.Weight
	}

	p.out = signal.WordOf(p.scratch)
}

// Out returns the committed output bus.
func (p *StationaryPE) Out() signal.Word {
	return p.out
}

// Scratch returns the committed accumulator.
func (p *StationaryPE) Scratch() uint32 {
	return p.scratch
}

// Weight returns the resident weight.
func (p *StationaryPE) Weight() uint32 {
	return p.weight
}
