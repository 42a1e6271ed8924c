package arbiter

import (
	"fmt"

	"github.com/rs/xid"
)

// Direction selects which way a burst moves data across the shared bus.
type Direction int

const (
	// DirectionRead pulls data from the bus into on-chip storage.
	DirectionRead Direction = iota
	// DirectionWrite pushes on-chip results back out over the bus.
	DirectionWrite
)

func (d Direction) String() string {
	switch d {
	case DirectionRead:
		return "read"
	case DirectionWrite:
		return "write"
	default:
		return fmt.Sprintf("direction(%d)", int(d))
	}
}

// Config is the burst configuration a requesting core presents alongside its
// request line. The arbiter validates it when issuing a grant and republishes
// it to the controller for the lifetime of the transfer.
type Config struct {
	Length       int
	Direction    Direction
	LoadEnable   bool
	UnloadEnable bool
}

// Validate rejects configurations the protocol forbids. Load and unload
// enables are mutually exclusive for a single transfer.
func (c Config) Validate() error {
	if c.Length <= 0 {
		return fmt.Errorf("burst length %d must be positive", c.Length)
	}
	if c.LoadEnable && c.UnloadEnable {
		return fmt.Errorf("load and unload enables both set")
	}
	return nil
}

// Transfer is one in-flight burst owned by a single granted core. It is
// created when the grant is issued and destroyed when the length counter
// reaches zero or a protocol violation aborts it.
type Transfer struct {
	ID          xid.ID
	Core        int
	BaseAddress uint32
	Address     uint32
	Remaining   int
	Config      Config
}

func newTransfer(core int, base uint32, config Config) *Transfer {
	return &Transfer{
		ID:          xid.New(),
		Core:        core,
		BaseAddress: base,
		Address:     base,
		Remaining:   config.Length,
		Config:      config,
	}
}

// clone returns a copy so the next-state image never aliases the committed
// one mid-evaluation.
func (t *Transfer) clone() *Transfer {
	if t == nil {
		return nil
	}
	copied := *t
	return &copied
}

// advance consumes one active tick: the current address is driven this tick,
// then steps forward. It returns true when the burst is exhausted.
func (t *Transfer) advance() bool {
	t.Remaining--
	t.Address++
	return t.Remaining <= 0
}

func (t *Transfer) String() string {
	if t == nil {
		return "transfer(nil)"
	}
	return fmt.Sprintf("transfer %s core=%d addr=%d remaining=%d %s",
		t.ID, t.Core, t.Address, t.Remaining, t.Config.Direction)
}
