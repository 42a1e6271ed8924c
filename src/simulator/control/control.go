// Package control sequences the systolic PE array through a full matrix
// multiply: loading operand memories, wavefront-staggered distribution into
// the grid, the compute window, pipeline drain, and result unload. One phase
// is active at a time and transitions happen only on tick boundaries.
package control

import (
	"fmt"

	"github.com/Madhav-Malhotra/ml-accelerator-dataflows/src/simulator/signal"
	"github.com/Madhav-Malhotra/ml-accelerator-dataflows/src/simulator/wavefront"
)

// Phase enumerates the controller FSM states.
type Phase int

const (
	PhaseReset Phase = iota
	PhaseLoad
	PhaseDistribute
	PhaseCompute
	PhaseCleanup
	PhaseUnload
)

func (p Phase) String() string {
	switch p {
	case PhaseReset:
		return "RESET"
	case PhaseLoad:
		return "LOAD"
	case PhaseDistribute:
		return "DISTRIBUTE"
	case PhaseCompute:
		return "COMPUTE"
	case PhaseCleanup:
		return "CLEANUP"
	case PhaseUnload:
		return "UNLOAD"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// MemPort is the controller's view of one memory bank or global buffer.
// Ready low means the bank must hold its output in the not-driving state;
// RW/Addr carry defined values only while the bank's transfer is active.
type MemPort struct {
	Ready bool
	RW    signal.Bit
	Addr  signal.Word
}

func resetMemPort() MemPort {
	return MemPort{Ready: false, RW: signal.UndrivenBit(), Addr: signal.UndrivenWord()}
}

// stalledMemPort keeps the bank selected but not driving: ready with RW and
// address left undriven.
func stalledMemPort() MemPort {
	return MemPort{Ready: true, RW: signal.UndrivenBit(), Addr: signal.UndrivenWord()}
}

// PEPort is the per-cell enable bundle. RW high runs the accumulate
// pipeline; Stream high latches and forwards partials instead of exposing
// the scratch register.
type PEPort struct {
	Ready  bool
	RW     bool
	Stream bool
}

// Inputs is the controller's per-tick input sample.
type Inputs struct {
	Ready        bool
	Grant        bool
	Burst        int
	ArbiterError bool
	Reset        bool
}

// Config fixes the controller geometry and timing for a run.
type Config struct {
	Side          int
	ComputeCycles int
	PipelineDepth int
}

type state struct {
	phase     Phase
	count     int
	burst     int
	req       bool
	err       bool
	weightMem []MemPort
	inputMem  []MemPort
	glb       []MemPort
	pe        []PEPort
}

// Controller is the master FSM driving memory, GLB and PE enables. All
// outputs are registered: Evaluate computes the next image, Commit publishes
// it at the tick boundary.
type Controller struct {
	cfg   Config
	table *wavefront.Table
	cur   state
	next  state
}

// New constructs a controller for the given geometry. ComputeCycles defaults
// to the reduction dimension of a square matmul (the grid side) and
// PipelineDepth to the PE multiply-accumulate depth of two stages.
func New(cfg Config) (*Controller, error) {
	table, err := wavefront.NewTable(cfg.Side)
	if err != nil {
		return nil, fmt.Errorf("control: %w", err)
	}
	if cfg.ComputeCycles <= 0 {
		cfg.ComputeCycles = cfg.Side
	}
	if cfg.PipelineDepth <= 0 {
		cfg.PipelineDepth = 2
	}

	ctl := &Controller{cfg: cfg, table: table}
	ctl.cur = ctl.resetState()
	ctl.next = ctl.resetState()
	return ctl, nil
}

func (c *Controller) resetState() state {
	side := c.cfg.Side
	st := state{
		phase:     PhaseReset,
		req:       true,
		weightMem: make([]MemPort, side),
		inputMem:  make([]MemPort, side),
		glb:       make([]MemPort, side),
		pe:        make([]PEPort, side*side),
	}
	for i := 0; i < side; i++ {
		st.weightMem[i] = resetMemPort()
		st.inputMem[i] = resetMemPort()
		st.glb[i] = resetMemPort()
	}
	return st
}

func (s state) clone() state {
	s.weightMem = append([]MemPort(nil), s.weightMem...)
	s.inputMem = append([]MemPort(nil), s.inputMem...)
	s.glb = append([]MemPort(nil), s.glb...)
	s.pe = append([]PEPort(nil), s.pe...)
	return s
}

// Evaluate computes the next register image from the committed state and this
// tick's inputs.
func (c *Controller) Evaluate(in Inputs) {
	if in.Reset {
		c.next = c.resetState()
		return
	}

	next := c.cur.clone()

	// Any arbiter fault observed outside RESET is fatal to the current
	// transaction; the controller parks with everything deasserted until
	// an external reset.
	if c.cur.err || (in.ArbiterError && c.cur.phase != PhaseReset) {
		next = c.resetState()
		next.err = true
		next.phase = c.cur.phase
		next.req = false
		c.next = next
		return
	}

	switch c.cur.phase {
	case PhaseReset:
		next = c.evaluateReset(next, in)
	case PhaseLoad:
		next = c.evaluateLoad(next, in)
	case PhaseDistribute:
		next = c.evaluateDistribute(next)
	case PhaseCompute:
		next = c.evaluateCompute(next)
	case PhaseCleanup:
		next = c.evaluateCleanup(next)
	case PhaseUnload:
		next = c.evaluateUnload(next, in)
	}

	c.next = next
}

// Commit publishes the evaluated image.
func (c *Controller) Commit() {
	c.cur = c.next
}

func (c *Controller) evaluateReset(next state, in Inputs) state {
	next = c.resetState()
	if in.Ready && in.Grant {
		// Burst capture happens on the transition tick; downstream
		// stays deasserted for one more cycle.
		next.phase = PhaseLoad
		next.burst = in.Burst
		next.count = 0
	}
	return next
}

func (c *Controller) evaluateLoad(next state, in Inputs) state {
	if !in.Grant {
		// Burst exhausted: the one extra tick the grant takes to drop
		// is the exit cycle.
		next = c.resetState()
		next.burst = c.cur.burst
		next.phase = PhaseDistribute
		next.count = 0
		return next
	}

	next.count = c.cur.count + 1
	cycle := next.count - 1
	for j := 0; j < c.cfg.Side; j++ {
		if cycle >= 0 && cycle < c.cur.burst {
			port := MemPort{
				Ready: true,
				RW:    signal.High(),
				Addr:  signal.WordOf(uint32(cycle)),
			}
			next.weightMem[j] = port
			next.inputMem[j] = port
		} else {
			next.weightMem[j] = resetMemPort()
			next.inputMem[j] = resetMemPort()
		}
		next.glb[j] = resetMemPort()
	}
	for i := range next.pe {
		next.pe[i] = PEPort{}
	}
	return next
}

func (c *Controller) evaluateDistribute(next state) state {
	side := c.cfg.Side
	cycle := c.cur.count

	// All GLBs are selected but not driven while operands flow through.
	for j := 0; j < side; j++ {
		next.glb[j] = stalledMemPort()
	}

	// Memory banks activate one at a time in descending address order:
	// bank j drives operands out while cycle-j falls inside the window.
	for j := 0; j < side; j++ {
		offset := cycle - j
		if offset >= 0 && offset < side-1 {
			port := MemPort{
				Ready: true,
				RW:    signal.Low(),
				Addr:  signal.WordOf(uint32(offset)),
			}
			next.weightMem[j] = port
			next.inputMem[j] = port
		} else {
			next.weightMem[j] = resetMemPort()
			next.inputMem[j] = resetMemPort()
		}
	}

	// Delay groups 0..cycle are enabled cumulatively and never retracted
	// within the phase.
	for idx := range next.pe {
		group, _ := c.table.GroupOfIndex(idx)
		if group <= cycle {
			next.pe[idx] = PEPort{Ready: true, RW: true, Stream: false}
		} else {
			next.pe[idx] = PEPort{}
		}
	}

	next.count = c.cur.count + 1
	if next.count >= c.table.NumGroups() {
		next.phase = PhaseCompute
		next.count = 0
	}
	return next
}

func (c *Controller) evaluateCompute(next state) state {
	for j := 0; j < c.cfg.Side; j++ {
		next.weightMem[j] = resetMemPort()
		next.inputMem[j] = resetMemPort()
		next.glb[j] = resetMemPort()
	}
	for idx := range next.pe {
		next.pe[idx] = PEPort{Ready: true, RW: true, Stream: false}
	}

	next.count = c.cur.count + 1
	if next.count >= c.cfg.ComputeCycles {
		next.phase = PhaseCleanup
		next.count = 0
	}
	return next
}

func (c *Controller) evaluateCleanup(next state) state {
	// Drain the in-flight accumulate pipeline: cells stay enabled but no
	// new products are injected.
	for idx := range next.pe {
		next.pe[idx] = PEPort{Ready: true, RW: false, Stream: false}
	}

	next.count = c.cur.count + 1
	if next.count >= c.cfg.PipelineDepth {
		next.phase = PhaseUnload
		next.count = 0
		next.req = true
	}
	return next
}

func (c *Controller) evaluateUnload(next state, in Inputs) state {
	side := c.cfg.Side

	if c.cur.burst == 0 || c.cur.count == 0 {
		if !in.Grant {
			// Waiting for the unload grant; hold the array quiet.
			for idx := range next.pe {
				next.pe[idx] = PEPort{Ready: true, RW: false, Stream: false}
			}
			for j := 0; j < side; j++ {
				next.glb[j] = resetMemPort()
			}
			next.burst = 0
			return next
		}
		if c.cur.count == 0 {
			next.burst = in.Burst
		}
	}

	if !in.Grant {
		// Unload burst complete one tick after the grant drops; the
		// transaction is over.
		next = c.resetState()
		return next
	}

	next.count = c.cur.count + 1
	cycle := next.count - 1

	// Results drain in reverse wavefront order: the far corner streams
	// first and groups join cumulatively back toward the origin.
	lastGroup := c.table.NumGroups() - 1
	for idx := range next.pe {
		group, _ := c.table.GroupOfIndex(idx)
		if group >= lastGroup-cycle {
			next.pe[idx] = PEPort{Ready: true, RW: false, Stream: true}
		} else {
			next.pe[idx] = PEPort{Ready: true, RW: false, Stream: false}
		}
	}

	for j := 0; j < side; j++ {
		if cycle >= 0 && cycle < next.burst {
			next.glb[j] = MemPort{
				Ready: true,
				RW:    signal.High(),
				Addr:  signal.WordOf(uint32(cycle)),
			}
		} else {
			next.glb[j] = resetMemPort()
		}
		next.weightMem[j] = resetMemPort()
		next.inputMem[j] = resetMemPort()
	}
	return next
}

// Phase returns the committed phase.
func (c *Controller) Phase() Phase {
	return c.cur.phase
}

// CycleInPhase returns the committed cycle counter within the phase.
func (c *Controller) CycleInPhase() int {
	return c.cur.count
}

// Burst returns the captured burst length of the active transaction.
func (c *Controller) Burst() int {
	return c.cur.burst
}

// Request returns the controller's request-pending flag.
func (c *Controller) Request() bool {
	return c.cur.req
}

// Faulted reports the sticky error latched when an arbiter violation was
// observed outside RESET. Only an external reset clears it.
func (c *Controller) Faulted() bool {
	return c.cur.err
}

// Side returns the configured grid side length.
func (c *Controller) Side() int {
	return c.cfg.Side
}

// WeightMemPort returns the committed enable bundle for weight bank j.
func (c *Controller) WeightMemPort(j int) MemPort {
	if j < 0 || j >= len(c.cur.weightMem) {
		return resetMemPort()
	}
	return c.cur.weightMem[j]
}

// InputMemPort returns the committed enable bundle for input bank j.
func (c *Controller) InputMemPort(j int) MemPort {
	if j < 0 || j >= len(c.cur.inputMem) {
		return resetMemPort()
	}
	return c.cur.inputMem[j]
}

// GLBPort returns the committed enable bundle for global buffer j.
func (c *Controller) GLBPort(j int) MemPort {
	if j < 0 || j >= len(c.cur.glb) {
		return resetMemPort()
	}
	return c.cur.glb[j]
}

// PECell returns the committed enable bundle for the flat PE index.
func (c *Controller) PECell(idx int) PEPort {
	if idx < 0 || idx >= len(c.cur.pe) {
		return PEPort{}
	}
	return c.cur.pe[idx]
}
