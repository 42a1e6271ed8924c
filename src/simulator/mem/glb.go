package mem

import (
	"fmt"

	"github.com/Madhav-Malhotra/ml-accelerator-dataflows/src/simulator/signal"
)

// GLB is the global buffer shared across one row of the PE grid. It carries
// the same single-port contract as a Bank; only the depth differs, so it
// wraps one.
type GLB struct {
	bank *Bank
}

// NewGLB constructs a zeroed global buffer with the given row count.
func NewGLB(numRows int) (*GLB, error) {
	bank, err := NewBank(numRows)
	if err != nil {
		return nil, fmt.Errorf("glb: %w", err)
	}
	return &GLB{bank: bank}, nil
}

// NumRows returns the buffer depth.
func (g *GLB) NumRows() int {
	return g.bank.NumRows()
}

// Evaluate computes the next output from this tick's bus sample.
func (g *GLB) Evaluate(in Inputs) {
	g.bank.Evaluate(in)
}

// Commit applies the evaluated update.
func (g *GLB) Commit() {
	g.bank.Commit()
}

// DataOut returns the committed output bus.
func (g *GLB) DataOut() signal.Word {
	return g.bank.DataOut()
}

// Peek reads a row directly for test inspection.
func (g *GLB) Peek(row int) (uint32, error) {
	return g.bank.Peek(row)
}
