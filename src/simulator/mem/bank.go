// Package mem models the addressed single-port stores surrounding the control
// core: per-column operand memory banks and per-row global buffers. Both
// follow the same bus contract: ready low parks the output in the
// not-driving state, RW high captures inbound data, RW low drives the stored
// word one tick later.
package mem

import (
	"fmt"

	"github.com/Madhav-Malhotra/ml-accelerator-dataflows/src/simulator/signal"
)

// Inputs samples one tick of the bank's bus.
type Inputs struct {
	Ready   bool
	RW      signal.Bit
	Address signal.Word
	DataIn  uint32
}

// Bank is one addressed single-port store.
type Bank struct {
	rows    []uint32
	out     signal.Word
	nextOut signal.Word
	pending func()
}

// NewBank constructs a zeroed store with the given row count.
func NewBank(numRows int) (*Bank, error) {
	if numRows <= 0 {
		return nil, fmt.Errorf("mem: row count %d must be positive", numRows)
	}
	return &Bank{
		rows:    make([]uint32, numRows),
		out:     signal.UndrivenWord(),
		nextOut: signal.UndrivenWord(),
	}, nil
}

// NumRows returns the bank depth.
func (b *Bank) NumRows() int {
	return len(b.rows)
}

// Evaluate computes the next output and any store update from this tick's
// bus sample. Reads have one tick of latency: the word addressed now appears
// on the output after Commit.
func (b *Bank) Evaluate(in Inputs) {
	b.pending = nil
	b.nextOut = signal.UndrivenWord()

	if !in.Ready {
		return
	}

	addr, addrOK := in.Address.Sample()
	if !in.RW.Driven() || !addrOK || int(addr) >= len(b.rows) {
		// Undriven direction or address: hold contents, drive nothing.
		return
	}

	if in.RW.Value() {
		// Capture inbound data into the addressed row.
		data := in.DataIn
		row := int(addr)
		b.pending = func() { b.rows[row] = data }
		return
	}

	b.nextOut = signal.WordOf(b.rows[addr])
}

// Commit applies the evaluated store update and publishes the output.
func (b *Bank) Commit() {
	if b.pending != nil {
		b.pending()
		b.pending = nil
	}
	b.out = b.nextOut
}

// DataOut returns the committed output bus, undriven unless a read completed
// on the previous tick.
func (b *Bank) DataOut() signal.Word {
	return b.out
}

// Peek reads a row directly for test inspection, bypassing the bus.
func (b *Bank) Peek(row int) (uint32, error) {
	if row < 0 || row >= len(b.rows) {
		return 0, fmt.Errorf("mem: row %d outside 0..%d", row, len(b.rows)-1)
	}
	return b.rows[row], nil
}

// Fill overwrites the entire store, for test setup.
func (b *Bank) Fill(values []uint32) {
	for i := 0; i < len(b.rows) && i < len(values); i++ {
		b.rows[i] = values[i]
	}
}
