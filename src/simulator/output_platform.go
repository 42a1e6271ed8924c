package simulator

import (
	"fmt"
	"path/filepath"

	"github.com/Madhav-Malhotra/ml-accelerator-dataflows/src/misc"
	"github.com/Madhav-Malhotra/ml-accelerator-dataflows/src/simulator/arbiter"
	"github.com/Madhav-Malhotra/ml-accelerator-dataflows/src/simulator/control"
	"github.com/Madhav-Malhotra/ml-accelerator-dataflows/src/simulator/mem"
	"github.com/Madhav-Malhotra/ml-accelerator-dataflows/src/simulator/pe"
	"github.com/Madhav-Malhotra/ml-accelerator-dataflows/src/simulator/signal"
)

// OutputPlatform wires the output-stationary accelerator: the bus arbiter,
// the controller FSM, per-column weight and input memories, per-row global
// buffers, and the square PE grid. One discrete tick advances everything
// together: inputs are gathered from committed outputs, every component
// evaluates, then every component commits.
type OutputPlatform struct {
	params  misc.Params
	verbose int

	arb        *arbiter.Arbiter
	ctl        *control.Controller
	weightMems []*mem.Bank
	inputMems  []*mem.Bank
	glbs       []*mem.GLB
	grid       []*pe.PE

	// Per-core transaction schedule: each core runs one full
	// load/compute/unload transaction in turn.
	activeCore  int
	coresDone   int
	resetPulse  bool
	cycleCount  int64
	maxCycles   int64
	phaseCycles map[control.Phase]int64
	finished    bool

	logDirpath string
}

func (this *OutputPlatform) Init(command_line_parser *misc.CommandLineParser) {
	this.params = misc.RuntimeParams()
	this.verbose = command_line_parser.IntParameter("verbose")
	this.maxCycles = int64(command_line_parser.IntParameter("max_cycles"))
	this.logDirpath = command_line_parser.StringParameter("log_dirpath")

	var err error
	this.arb, err = arbiter.New(this.params.NumCores)
	if err != nil {
		panic(err)
	}

	this.ctl, err = control.New(control.Config{
		Side:          this.params.GridSide,
		ComputeCycles: this.params.ComputeCycles,
		PipelineDepth: this.params.PipelineDepth,
	})
	if err != nil {
		panic(err)
	}

	side := this.params.GridSide
	this.weightMems = make([]*mem.Bank, side)
	this.inputMems = make([]*mem.Bank, side)
	this.glbs = make([]*mem.GLB, side)
	for j := 0; j < side; j++ {
		if this.weightMems[j], err = mem.NewBank(this.params.MemRows); err != nil {
			panic(err)
		}
		if this.inputMems[j], err = mem.NewBank(this.params.MemRows); err != nil {
			panic(err)
		}
		if this.glbs[j], err = mem.NewGLB(this.params.GlbRows); err != nil {
			panic(err)
		}
	}

	this.grid = make([]*pe.PE, side*side)
	for i := range this.grid {
		this.grid[i] = pe.New()
	}

	this.phaseCycles = make(map[control.Phase]int64)
}

func (this *OutputPlatform) Fini() {
	this.weightMems = nil
	this.inputMems = nil
	this.glbs = nil
	this.grid = nil
}

func (this *OutputPlatform) IsFinished() bool {
	return this.finished
}

// Reset pulses the external reset line: both state machines return to their
// initial state at the next tick boundary.
func (this *OutputPlatform) Reset() {
	this.resetPulse = true
}

// requests builds the per-core request vector for this tick. The active core
// keeps its line high until the membership bitmap confirms its round
// completed; everyone else stays quiet.
func (this *OutputPlatform) requests() (signal.Bitset, arbiter.Config) {
	zero, _ := signal.NewBitset(this.params.NumCores)
	if this.activeCore >= this.params.NumCores {
		return zero, arbiter.Config{}
	}

	loaded := this.arb.Loaded().Test(this.activeCore)
	unloading := this.ctl.Phase() == control.PhaseCleanup ||
		this.ctl.Phase() == control.PhaseUnload

	var config arbiter.Config
	switch {
	case !loaded && !unloading:
		config = arbiter.Config{
			Length:     this.params.FixedBurstWrite,
			Direction:  arbiter.DirectionRead,
			LoadEnable: true,
		}
	case loaded && unloading:
		config = arbiter.Config{
			Length:       this.params.FixedBurstWrite,
			Direction:    arbiter.DirectionWrite,
			UnloadEnable: true,
		}
	default:
		// Between rounds: the line drops while the controller moves
		// through distribute/compute/cleanup, or after unload finishes.
		return zero, arbiter.Config{}
	}

	return zero.Set(this.activeCore), config
}

// operand patterns streamed into the memories during LOAD. Deterministic so
// the end-to-end test can predict every scratch register.
func weightPattern(core, bank int, addr uint32) uint32 {
	return uint32(core+1)*100 + uint32(bank+1)*10 + addr
}

func inputPattern(core, bank int, addr uint32) uint32 {
	return uint32(core+1)*3 + uint32(bank) + addr
}

func (this *OutputPlatform) Cycle() {
	if this.finished {
		return
	}

	side := this.params.GridSide
	reset := this.resetPulse
	this.resetPulse = false

	// Sample every committed output before anything evaluates.
	requests, config := this.requests()
	grantHeld := !this.arb.Grant().IsZero()
	burstLen := 0
	if active, ok := this.arb.ActiveConfig(); ok {
		burstLen = active.Length
	}

	arbIn := arbiter.Inputs{
		Requests: requests,
		Config:   config,
		GrantAck: grantHeld,
		Phase:    int(this.ctl.Phase()),
		Reset:    reset,
	}

	ctlIn := control.Inputs{
		Ready:        true,
		Grant:        grantHeld,
		Burst:        burstLen,
		ArbiterError: this.arb.Faulted(),
		Reset:        reset,
	}

	memIns := make([]mem.Inputs, side)
	inputIns := make([]mem.Inputs, side)
	glbIns := make([]mem.Inputs, side)
	for j := 0; j < side; j++ {
		wPort := this.ctl.WeightMemPort(j)
		iPort := this.ctl.InputMemPort(j)
		gPort := this.ctl.GLBPort(j)

		memIns[j] = mem.Inputs{
			Ready:   wPort.Ready,
			RW:      wPort.RW,
			Address: wPort.Addr,
		}
		inputIns[j] = mem.Inputs{
			Ready:   iPort.Ready,
			RW:      iPort.RW,
			Address: iPort.Addr,
		}
		if addr, ok := wPort.Addr.Sample(); ok && wPort.RW.IsHigh() {
			memIns[j].DataIn = weightPattern(this.activeCore, j, addr)
			inputIns[j].DataIn = inputPattern(this.activeCore, j, addr)
		}

		glbIns[j] = mem.Inputs{
			Ready:   gPort.Ready,
			RW:      gPort.RW,
			Address: gPort.Addr,
		}
		// During unload the row head's forwarded partials arrive at the
		// global buffer.
		if head := this.grid[j*side].Out(); head.Driven() {
			glbIns[j].DataIn = head.Value()
		}
	}

	peIns := make([]pe.Inputs, len(this.grid))
	for r := 0; r < side; r++ {
		for c := 0; c < side; c++ {
			idx := r*side + c
			port := this.ctl.PECell(idx)

			in := pe.Inputs{
				ResetN: !reset,
				Ready:  port.Ready,
				RW:     port.RW,
				Stream: port.Stream,
			}
			// Operand pins ride the bank buses: weights flow down
			// columns, inputs across rows. An undriven bus leaves
			// the previous operand untouched at zero effect because
			// the multiplier gates zero operands.
			if w := this.weightMems[c].DataOut(); w.Driven() {
				in.Weight = w.Value()
			}
			if a := this.inputMems[r].DataOut(); a.Driven() {
				in.Input = a.Value()
			}
			// Forward chain: partials shift toward the row head.
			if c+1 < side {
				if fwd := this.grid[r*side+c+1].Out(); fwd.Driven() {
					in.FwdIn = fwd.Value()
				}
			} else {
				in.FwdIn = this.grid[idx].Scratch()
			}
			peIns[idx] = in
		}
	}

	// Evaluate everything, then commit everything: no component observes
	// a partially updated peer within the tick.
	this.arb.Evaluate(arbIn)
	this.ctl.Evaluate(ctlIn)
	for j := 0; j < side; j++ {
		this.weightMems[j].Evaluate(memIns[j])
		this.inputMems[j].Evaluate(inputIns[j])
		this.glbs[j].Evaluate(glbIns[j])
	}
	for i, cell := range this.grid {
		cell.Evaluate(peIns[i])
	}

	this.arb.Commit()
	this.ctl.Commit()
	for j := 0; j < side; j++ {
		this.weightMems[j].Commit()
		this.inputMems[j].Commit()
		this.glbs[j].Commit()
	}
	for _, cell := range this.grid {
		cell.Commit()
	}

	this.cycleCount++
	this.phaseCycles[this.ctl.Phase()]++

	if this.verbose >= 1 {
		fmt.Printf("[cycle %d] phase=%s count=%d grant=%s loaded=%s\n",
			this.cycleCount, this.ctl.Phase(), this.ctl.CycleInPhase(),
			this.arb.Grant(), this.arb.Loaded())
	}

	this.advanceSchedule()

	if this.maxCycles > 0 && this.cycleCount >= this.maxCycles {
		this.finished = true
	}
}

// advanceSchedule moves to the next core once the controller has returned to
// RESET with the active core's unload confirmed.
func (this *OutputPlatform) advanceSchedule() {
	if this.arb.Faulted() || this.ctl.Faulted() {
		this.finished = true
		return
	}
	if this.activeCore >= this.params.NumCores {
		this.finished = true
		return
	}

	if this.ctl.Phase() == control.PhaseReset &&
		this.cycleCount > 1 &&
		!this.arb.Loaded().Test(this.activeCore) &&
		this.coresDone == this.activeCore {
		// Transaction never started or just completed; completed rounds
		// are distinguished by the unload membership flip having
		// happened, which the burst counter tracks.
		if this.arb.Stats().BurstsCompleted >= int64(2*(this.activeCore+1)) {
			this.coresDone++
			this.activeCore++
			if this.activeCore >= this.params.NumCores {
				this.finished = true
			}
		}
	}
}

// CoresCompleted returns how many cores have finished a full
// load/compute/unload transaction.
func (this *OutputPlatform) CoresCompleted() int {
	return this.coresDone
}

// Cycles returns the number of simulated ticks so far.
func (this *OutputPlatform) Cycles() int64 {
	return this.cycleCount
}

// Faulted reports whether either state machine latched a sticky error.
func (this *OutputPlatform) Faulted() bool {
	return this.arb.Faulted() || this.ctl.Faulted()
}

func (this *OutputPlatform) Dump() {
	stats := this.arb.Stats()

	lines := []string{
		fmt.Sprintf("cycles: %d", this.cycleCount),
		fmt.Sprintf("cores_completed: %d", this.coresDone),
		fmt.Sprintf("grants_issued: %d", stats.GrantsIssued),
		fmt.Sprintf("bursts_completed: %d", stats.BurstsCompleted),
		fmt.Sprintf("bus_active_ticks: %d", stats.ActiveTicks),
		fmt.Sprintf("protocol_violations: %d", stats.Violations),
	}
	for phase := control.PhaseReset; phase <= control.PhaseUnload; phase++ {
		lines = append(lines,
			fmt.Sprintf("phase_cycles_%s: %d", phase, this.phaseCycles[phase]))
	}

	dumper := new(misc.FileDumper)
	dumper.Init(filepath.Join(this.logDirpath, "output_stats.txt"))
	dumper.WriteLines(lines)

	fmt.Printf("simulated %d cycles, %d cores completed, %d bursts\n",
		this.cycleCount, this.coresDone, stats.BurstsCompleted)
}
