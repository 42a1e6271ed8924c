package signal

import (
	"fmt"
	"math/bits"
)

// MaxBitsetWidth bounds request/grant vectors to a single machine word. The
// arbiter's static width is fixed at configuration time, matching the
// hardware's wired request lines.
const MaxBitsetWidth = 64

// Bitset is a fixed-width bit vector. The width is set once at construction
// and every operation masks to it, so a Bitset never grows and never
// allocates per tick.
type Bitset struct {
	width int
	bits  uint64
}

// NewBitset constructs an all-zero bit vector of the given width.
func NewBitset(width int) (Bitset, error) {
	if width < 1 || width > MaxBitsetWidth {
		return Bitset{}, fmt.Errorf("bitset width %d outside 1..%d", width, MaxBitsetWidth)
	}
	return Bitset{width: width}, nil
}

// BitsetOf constructs a bit vector of the given width with the low bits of
// value. Bits above the width are discarded.
func BitsetOf(width int, value uint64) (Bitset, error) {
	set, err := NewBitset(width)
	if err != nil {
		return Bitset{}, err
	}
	set.bits = value & set.mask()
	return set, nil
}

func (s Bitset) mask() uint64 {
	if s.width == MaxBitsetWidth {
		return ^uint64(0)
	}
	return (uint64(1) << uint(s.width)) - 1
}

// Width returns the fixed width of the vector.
func (s Bitset) Width() int {
	return s.width
}

// Uint64 returns the raw bit pattern.
func (s Bitset) Uint64() uint64 {
	return s.bits
}

// Test reports whether bit idx is set. Out-of-range indices read as zero.
func (s Bitset) Test(idx int) bool {
	if idx < 0 || idx >= s.width {
		return false
	}
	return s.bits&(uint64(1)<<uint(idx)) != 0
}

// Set returns a copy with bit idx set.
func (s Bitset) Set(idx int) Bitset {
	if idx >= 0 && idx < s.width {
		s.bits |= uint64(1) << uint(idx)
	}
	return s
}

// Clear returns a copy with bit idx cleared.
func (s Bitset) Clear(idx int) Bitset {
	if idx >= 0 && idx < s.width {
		s.bits &^= uint64(1) << uint(idx)
	}
	return s
}

// IsZero reports whether no bit is set.
func (s Bitset) IsZero() bool {
	return s.bits == 0
}

// IsOneHot reports whether exactly one bit is set.
func (s Bitset) IsOneHot() bool {
	return bits.OnesCount64(s.bits) == 1
}

// Count returns the number of set bits.
func (s Bitset) Count() int {
	return bits.OnesCount64(s.bits)
}

// FirstSetFrom scans for a set bit starting at index start, wrapping around
// the width. It returns the index of the first set bit found, or -1 when the
// vector is all zero.
func (s Bitset) FirstSetFrom(start int) int {
	if s.bits == 0 || s.width == 0 {
		return -1
	}
	start = ((start % s.width) + s.width) % s.width
	for offset := 0; offset < s.width; offset++ {
		idx := (start + offset) % s.width
		if s.Test(idx) {
			return idx
		}
	}
	return -1
}

// OneHot returns a vector of the given width with only bit idx set.
func OneHot(width, idx int) (Bitset, error) {
	set, err := NewBitset(width)
	if err != nil {
		return Bitset{}, err
	}
	if idx < 0 || idx >= width {
		return Bitset{}, fmt.Errorf("one-hot index %d outside width %d", idx, width)
	}
	return set.Set(idx), nil
}

// String formats the vector MSB first, the way request lines read in a wave
// viewer.
func (s Bitset) String() string {
	buf := make([]byte, s.width)
	for i := 0; i < s.width; i++ {
		if s.Test(s.width - 1 - i) {
			buf[i] = '1'
		} else {
			buf[i] = '0'
		}
	}
	return string(buf)
}
