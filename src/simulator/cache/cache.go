// Package cache models the per-core staging store that sits between the
// shared bus and a core's slice of the PE array. It holds weights,
// activations and partial sums in separate register files and is steered by
// an externally supplied state code; exactly one output drives at a time and
// everything else stays in the not-driving state.
package cache

import (
	"fmt"

	"github.com/Madhav-Malhotra/ml-accelerator-dataflows/src/simulator/signal"
)

// State codes steering the cache, supplied by the surrounding control logic.
type State int

const (
	StateLoadWeight State = iota
	StateLoadActivation
	StateSendWeight
	StateSendActivation
	StateSendBoth
	StateStorePsum
	StateSendPsum
	StateIdle
)

func (s State) String() string {
	switch s {
	case StateLoadWeight:
		return "load-weight"
	case StateLoadActivation:
		return "load-activation"
	case StateSendWeight:
		return "send-weight"
	case StateSendActivation:
		return "send-activation"
	case StateSendBoth:
		return "send-both"
	case StateStorePsum:
		return "store-psum"
	case StateSendPsum:
		return "send-psum"
	case StateIdle:
		return "idle"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Inputs samples one tick of the cache's pins. Ready low clears the register
// files and parks every output.
type Inputs struct {
	Ready      bool
	State      State
	BusIn      uint32
	GLBIn      uint32
	WeightAddr uint32
	ActAddr    uint32
}

// Cache is one core's staging store.
type Cache struct {
	weights     []uint32
	activations []uint32
	psums       []uint32

	weightOut signal.Word
	actOut    signal.Word
	busOut    signal.Word

	latched Inputs
}

// New constructs a zeroed cache with the given depth per register file.
func New(numRows int) (*Cache, error) {
	if numRows <= 0 {
		return nil, fmt.Errorf("cache: row count %d must be positive", numRows)
	}
	return &Cache{
		weights:     make([]uint32, numRows),
		activations: make([]uint32, numRows),
		psums:       make([]uint32, numRows),
		weightOut:   signal.UndrivenWord(),
		actOut:      signal.UndrivenWord(),
		busOut:      signal.UndrivenWord(),
	}, nil
}

// Evaluate latches this tick's pin sample.
func (c *Cache) Evaluate(in Inputs) {
	c.latched = in
}

// Commit applies the latched tick.
func (c *Cache) Commit() {
	in := c.latched

	c.weightOut = signal.UndrivenWord()
	c.actOut = signal.UndrivenWord()
	c.busOut = signal.UndrivenWord()

	if !in.Ready {
		for i := range c.weights {
			c.weights[i] = 0
			c.activations[i] = 0
			c.psums[i] = 0
		}
		return
	}

	wIdx := int(in.WeightAddr) % len(c.weights)
	aIdx := int(in.ActAddr) % len(c.activations)

	switch in.State {
	case StateLoadWeight:
		c.weights[wIdx] = in.BusIn
	case StateLoadActivation:
		c.activations[aIdx] = in.BusIn
	case StateSendWeight:
		c.weightOut = signal.WordOf(c.weights[wIdx])
	case StateSendActivation:
		c.actOut = signal.WordOf(c.activations[aIdx])
	case StateSendBoth:
		c.weightOut = signal.WordOf(c.weights[wIdx])
		c.actOut = signal.WordOf(c.activations[aIdx])
	case StateStorePsum:
		c.psums[wIdx] = in.GLBIn
	case StateSendPsum:
		c.busOut = signal.WordOf(c.psums[wIdx])
	case StateIdle:
		// All outputs stay parked.
	}
}

// WeightOut returns the weight port toward the PE array.
func (c *Cache) WeightOut() signal.Word {
	return c.weightOut
}

// ActivationOut returns the activation port toward the PE array.
func (c *Cache) ActivationOut() signal.Word {
	return c.actOut
}

// BusOut returns the partial-sum port back toward the shared bus.
func (c *Cache) BusOut() signal.Word {
	return c.busOut
}

// PeekWeight reads a weight row directly, for test inspection.
func (c *Cache) PeekWeight(row int) (uint32, error) {
	if row < 0 || row >= len(c.weights) {
		return 0, fmt.Errorf("cache: weight row %d outside 0..%d", row, len(c.weights)-1)
	}
	return c.weights[row], nil
}

// PeekPsum reads a partial-sum row directly, for test inspection.
func (c *Cache) PeekPsum(row int) (uint32, error) {
	if row < 0 || row >= len(c.psums) {
		return 0, fmt.Errorf("cache: psum row %d outside 0..%d", row, len(c.psums)-1)
	}
	return c.psums[row], nil
}
