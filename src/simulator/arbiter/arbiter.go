// Package arbiter grants shared-memory access to requesting compute cores in
// rotating priority with burst transfers. At most one core owns the bus at a
// time; the grant vector is one-hot or all-zero on every tick.
package arbiter

import (
	"fmt"

	"github.com/Madhav-Malhotra/ml-accelerator-dataflows/src/simulator/signal"
)

// ErrorKind classifies the protocol violations the arbiter detects. Every
// violation is sticky: once raised it holds until an external reset.
type ErrorKind int

const (
	ErrNone ErrorKind = iota
	// ErrGrantWithdrawn fires when the caller stops honoring the grant
	// before the burst length is exhausted.
	ErrGrantWithdrawn
	// ErrRequestWithdrawn fires when the granted core drops its request
	// line mid-burst.
	ErrRequestWithdrawn
	// ErrLoadUnloadConflict fires when a configuration asserts both load
	// and unload enables.
	ErrLoadUnloadConflict
	// ErrPhaseConflict fires when an out-of-sequence phase signal is
	// observed while a burst is active.
	ErrPhaseConflict
)

func (k ErrorKind) String() string {
	switch k {
	case ErrNone:
		return "none"
	case ErrGrantWithdrawn:
		return "grant withdrawn mid-burst"
	case ErrRequestWithdrawn:
		return "request withdrawn mid-burst"
	case ErrLoadUnloadConflict:
		return "load and unload enables both set"
	case ErrPhaseConflict:
		return "out-of-sequence phase signal"
	default:
		return fmt.Sprintf("error(%d)", int(k))
	}
}

// Inputs is everything the arbiter samples on one tick. Requests is the raw
// per-core request vector; Config is the burst configuration presented by
// whichever core wins arbitration; GrantAck is the caller confirming the
// grant wire is still expected to hold; Phase is the controller phase signal
// used for sequence checking.
type Inputs struct {
	Requests signal.Bitset
	Config   Config
	GrantAck bool
	Phase    int
	Reset    bool
}

// Stats counts arbitration events across a run.
type Stats struct {
	GrantsIssued    int64
	BurstsCompleted int64
	ActiveTicks     int64
	Violations      int64
}

// state is the complete register image of the arbiter. Evaluate computes the
// next image from the committed one; Commit swaps them at the tick boundary,
// reproducing non-blocking register semantics.
type state struct {
	pointer  int
	transfer *Transfer
	grant    signal.Bitset
	address  signal.Word
	loaded   signal.Bitset
	errKind  ErrorKind
	phase    int
	cooldown bool
}

func (s state) clone() state {
	s.transfer = s.transfer.clone()
	return s
}

// Arbiter owns per-core request/grant state and a rotating priority pointer.
type Arbiter struct {
	numCores int
	cur      state
	next     state
	stats    Stats
}

// New constructs an arbiter for the given number of cores.
func New(numCores int) (*Arbiter, error) {
	grant, err := signal.NewBitset(numCores)
	if err != nil {
		return nil, fmt.Errorf("arbiter: %w", err)
	}

	initial := state{
		pointer: numCores - 1,
		grant:   grant,
		address: signal.UndrivenWord(),
		loaded:  grant,
	}

	return &Arbiter{
		numCores: numCores,
		cur:      initial,
		next:     initial,
	}, nil
}

// NumCores returns the configured core count.
func (a *Arbiter) NumCores() int {
	return a.numCores
}

// Evaluate computes the next register image from the committed state and this
// tick's inputs. It must be followed by exactly one Commit; the outputs do
// not change until then.
func (a *Arbiter) Evaluate(in Inputs) {
	next := a.cur.clone()

	switch {
	case in.Reset:
		next = a.resetState()
	case a.cur.errKind != ErrNone:
		// Sticky error: outputs stay cleared until external reset.
		next.grant = a.zeroGrant()
		next.address = signal.UndrivenWord()
		next.transfer = nil
	case a.cur.transfer != nil:
		next = a.evaluateBurst(next, in)
	default:
		next = a.evaluateIdle(next, in)
	}

	a.next = next
}

// Commit makes the evaluated image the committed one. Peers that sampled the
// outputs earlier in the tick never observe a partial update.
func (a *Arbiter) Commit() {
	a.cur = a.next
}

func (a *Arbiter) resetState() state {
	grant := a.zeroGrant()
	return state{
		pointer: a.numCores - 1,
		grant:   grant,
		address: signal.UndrivenWord(),
		loaded:  grant,
	}
}

func (a *Arbiter) zeroGrant() signal.Bitset {
	grant, _ := signal.NewBitset(a.numCores)
	return grant
}

func (a *Arbiter) evaluateBurst(next state, in Inputs) state {
	transfer := next.transfer

	// The phase latched at grant time may advance exactly one step while
	// the burst runs (the controller observing the grant); any other
	// movement is out of sequence.
	violation := ErrNone
	switch {
	case !in.GrantAck:
		violation = ErrGrantWithdrawn
	case !in.Requests.Test(transfer.Core):
		violation = ErrRequestWithdrawn
	case in.Phase != a.cur.phase && in.Phase != a.cur.phase+1:
		violation = ErrPhaseConflict
	}
	if violation != ErrNone {
		return a.abort(next, violation)
	}
	if in.Phase == a.cur.phase+1 {
		next.phase = in.Phase
	}

	// One active tick: the current address is driven, then the counter
	// steps. Exhaustion deasserts the grant and rotates priority.
	next.address = signal.WordOf(transfer.Address)
	a.stats.ActiveTicks++

	if transfer.advance() {
		next = a.complete(next, transfer)
	}
	return next
}

func (a *Arbiter) evaluateIdle(next state, in Inputs) state {
	next.address = signal.UndrivenWord()

	// One settle tick after a completed burst before the next round, so
	// requesters keyed off the membership bitmap can drop their lines.
	if a.cur.cooldown {
		next.cooldown = false
		next.grant = a.zeroGrant()
		return next
	}

	if in.Requests.IsZero() {
		next.grant = a.zeroGrant()
		return next
	}

	// Round-robin: scan strictly after the priority pointer, wrapping, and
	// take the first requester found.
	core := in.Requests.FirstSetFrom(a.cur.pointer + 1)
	if core < 0 {
		next.grant = a.zeroGrant()
		return next
	}

	if err := in.Config.Validate(); err != nil {
		return a.abort(next, ErrLoadUnloadConflict)
	}

	grant, err := signal.OneHot(a.numCores, core)
	if err != nil {
		return a.abort(next, ErrGrantWithdrawn)
	}

	next.grant = grant
	next.transfer = newTransfer(core, 0, in.Config)
	next.phase = in.Phase
	a.stats.GrantsIssued++
	return next
}

// complete retires an exhausted burst. The grant and address buses keep
// their values through this final active tick; the following tick's idle
// evaluation clears them, giving the L-tick contract exactly.
func (a *Arbiter) complete(next state, transfer *Transfer) state {
	if transfer.Config.LoadEnable {
		next.loaded = next.loaded.Set(transfer.Core)
	}
	if transfer.Config.UnloadEnable {
		next.loaded = next.loaded.Clear(transfer.Core)
	}

	next.transfer = nil
	next.pointer = transfer.Core % a.numCores
	next.cooldown = true
	a.stats.BurstsCompleted++
	return next
}

func (a *Arbiter) abort(next state, kind ErrorKind) state {
	next.errKind = kind
	next.transfer = nil
	next.grant = a.zeroGrant()
	next.address = signal.UndrivenWord()
	a.stats.Violations++
	return next
}

// Grant returns the committed grant vector, one-hot or all-zero.
func (a *Arbiter) Grant() signal.Bitset {
	return a.cur.grant
}

// Granted returns the index of the granted core, or -1 when no grant holds.
func (a *Arbiter) Granted() int {
	if a.cur.grant.IsZero() {
		return -1
	}
	return a.cur.grant.FirstSetFrom(0)
}

// Address returns the burst address bus. It is undriven whenever no transfer
// is actively progressing.
func (a *Arbiter) Address() signal.Word {
	return a.cur.address
}

// ActiveConfig returns the burst configuration of the in-flight transfer.
// The bool is false when no transfer is active.
func (a *Arbiter) ActiveConfig() (Config, bool) {
	if a.cur.transfer == nil {
		return Config{}, false
	}
	return a.cur.transfer.Config, true
}

// ActiveTransfer exposes the in-flight transfer for tracing. Callers must
// not mutate it.
func (a *Arbiter) ActiveTransfer() *Transfer {
	return a.cur.transfer
}

// Loaded returns the per-core membership bitmap maintained by load/unload
// completions.
func (a *Arbiter) Loaded() signal.Bitset {
	return a.cur.loaded
}

// Error returns the sticky violation kind, ErrNone when healthy.
func (a *Arbiter) Error() ErrorKind {
	return a.cur.errKind
}

// Faulted reports whether a protocol violation has been latched.
func (a *Arbiter) Faulted() bool {
	return a.cur.errKind != ErrNone
}

// Pointer returns the rotating priority pointer. Grants begin scanning one
// position past it.
func (a *Arbiter) Pointer() int {
	return a.cur.pointer
}

// Stats returns a copy of the accumulated counters.
func (a *Arbiter) Stats() Stats {
	return a.stats
}
