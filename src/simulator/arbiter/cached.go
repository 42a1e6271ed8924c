package arbiter

import (
	"fmt"

	"github.com/Madhav-Malhotra/ml-accelerator-dataflows/src/simulator/signal"
)

// CachedPhase enumerates the cached arbiter's FSM states. Unlike the plain
// arbiter, the cached flavor talks to main memory through per-core staging
// caches and replays a fixed read sequence (config, weights, activations)
// before a core is considered loaded.
type CachedPhase int

const (
	CachedReset CachedPhase = iota
	CachedIdle
	CachedLock
	CachedArbitrate
	CachedWrite
	CachedRead
)

func (p CachedPhase) String() string {
	switch p {
	case CachedReset:
		return "RESET"
	case CachedIdle:
		return "IDLE"
	case CachedLock:
		return "LOCK"
	case CachedArbitrate:
		return "ARBITRATE"
	case CachedWrite:
		return "WRITE"
	case CachedRead:
		return "READ"
	default:
		return fmt.Sprintf("state(%d)", int(p))
	}
}

// Read stages replayed for every core before it may compute.
const (
	readStageConfig = iota
	readStageWeights
	readStageActivations
	numReadStages
)

// CachedInputs is the per-tick input sample for the cached arbiter. Ready low
// acts as the external reset.
type CachedInputs struct {
	Ready    bool
	Requests signal.Bitset
}

type cachedState struct {
	phase     CachedPhase
	locked    signal.Bitset
	pointer   int
	core      int
	stage     int
	remaining int
	address   uint32
	grant     signal.Bitset
	busAddr   signal.Word
	busRW     signal.Bit
	busBurst  signal.Word
	loaded    signal.Bitset
}

// CachedArbiter arbitrates main-memory access with a lock/arbitrate pipeline
// in front of the burst engine. Requests are snapshotted in LOCK so that
// late-arriving request lines cannot steal a round already being decided.
type CachedArbiter struct {
	numCores int
	burstLen int
	cur      cachedState
	next     cachedState
}

// NewCached constructs a cached arbiter for the given core count and fixed
// burst length.
func NewCached(numCores, burstLen int) (*CachedArbiter, error) {
	if burstLen <= 0 {
		return nil, fmt.Errorf("cached arbiter: burst length %d must be positive", burstLen)
	}
	zero, err := signal.NewBitset(numCores)
	if err != nil {
		return nil, fmt.Errorf("cached arbiter: %w", err)
	}

	initial := cachedState{
		phase:    CachedReset,
		locked:   zero,
		pointer:  numCores - 1,
		grant:    zero,
		busAddr:  signal.UndrivenWord(),
		busRW:    signal.UndrivenBit(),
		busBurst: signal.UndrivenWord(),
		loaded:   zero,
	}

	return &CachedArbiter{
		numCores: numCores,
		burstLen: burstLen,
		cur:      initial,
		next:     initial,
	}, nil
}

// stageBase lays out main memory as contiguous per-core windows, one burst
// per read stage.
func (c *CachedArbiter) stageBase(core, stage int) uint32 {
	return uint32(core*numReadStages*c.burstLen + stage*c.burstLen)
}

// Evaluate computes the next FSM image; Commit publishes it.
func (c *CachedArbiter) Evaluate(in CachedInputs) {
	next := c.cur

	if !in.Ready {
		next = cachedState{
			phase:    CachedReset,
			locked:   c.zero(),
			pointer:  c.numCores - 1,
			grant:    c.zero(),
			busAddr:  signal.UndrivenWord(),
			busRW:    signal.UndrivenBit(),
			busBurst: signal.UndrivenWord(),
			loaded:   c.zero(),
		}
		c.next = next
		return
	}

	switch c.cur.phase {
	case CachedReset:
		next.phase = CachedIdle
	case CachedIdle:
		next = c.evaluateIdle(next, in)
	case CachedLock:
		// One dead tick with the grant held low while the snapshot
		// settles.
		next.grant = c.zero()
		next.phase = CachedArbitrate
	case CachedArbitrate:
		next = c.evaluateArbitrate(next)
	case CachedRead:
		next = c.evaluateTransfer(next, true)
	case CachedWrite:
		next = c.evaluateTransfer(next, false)
	}

	c.next = next
}

// Commit makes the evaluated image visible.
func (c *CachedArbiter) Commit() {
	c.cur = c.next
}

func (c *CachedArbiter) zero() signal.Bitset {
	zero, _ := signal.NewBitset(c.numCores)
	return zero
}

func (c *CachedArbiter) evaluateIdle(next cachedState, in CachedInputs) cachedState {
	next.grant = c.zero()
	next.busAddr = signal.UndrivenWord()
	next.busRW = signal.UndrivenBit()
	next.busBurst = signal.UndrivenWord()

	if !in.Requests.IsZero() {
		next.locked = in.Requests
		next.phase = CachedLock
	}
	return next
}

func (c *CachedArbiter) evaluateArbitrate(next cachedState) cachedState {
	core := c.cur.locked.FirstSetFrom(c.cur.pointer + 1)
	if core < 0 {
		next.phase = CachedIdle
		return next
	}

	grant, err := signal.OneHot(c.numCores, core)
	if err != nil {
		next.phase = CachedIdle
		return next
	}

	next.core = core
	next.grant = grant
	next.remaining = c.burstLen
	if c.cur.loaded.Test(core) {
		// Loaded cores drain results back to main memory.
		next.phase = CachedWrite
		next.stage = 0
		next.address = c.stageBase(core, 0)
	} else {
		next.phase = CachedRead
		next.stage = readStageConfig
		next.address = c.stageBase(core, readStageConfig)
	}
	return next
}

func (c *CachedArbiter) evaluateTransfer(next cachedState, read bool) cachedState {
	next.busAddr = signal.WordOf(c.cur.address)
	next.busRW = signal.BitOf(read)
	next.busBurst = signal.WordOf(uint32(c.burstLen))
	next.address = c.cur.address + 1
	next.remaining = c.cur.remaining - 1

	if next.remaining > 0 {
		return next
	}

	if read && c.cur.stage+1 < numReadStages {
		next.stage = c.cur.stage + 1
		next.remaining = c.burstLen
		next.address = c.stageBase(c.cur.core, next.stage)
		return next
	}

	// Final beat of the round: update membership and rotate priority. The
	// bus and grant keep their values through this last driven tick; the
	// following idle tick clears them.
	if read {
		next.loaded = next.loaded.Set(c.cur.core)
	} else {
		next.loaded = next.loaded.Clear(c.cur.core)
	}
	next.pointer = c.cur.core
	next.phase = CachedIdle
	return next
}

// Phase returns the committed FSM state.
func (c *CachedArbiter) Phase() CachedPhase {
	return c.cur.phase
}

// Grant returns the committed grant vector.
func (c *CachedArbiter) Grant() signal.Bitset {
	return c.cur.grant
}

// BusAddress returns the main-memory address bus, undriven outside bursts.
func (c *CachedArbiter) BusAddress() signal.Word {
	return c.cur.busAddr
}

// BusRW returns the main-memory direction bit, high for reads.
func (c *CachedArbiter) BusRW() signal.Bit {
	return c.cur.busRW
}

// BusBurst returns the advertised burst length, undriven outside bursts.
func (c *CachedArbiter) BusBurst() signal.Word {
	return c.cur.busBurst
}

// Loaded returns the per-core loaded membership bitmap.
func (c *CachedArbiter) Loaded() signal.Bitset {
	return c.cur.loaded
}
