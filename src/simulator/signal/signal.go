package signal

// Bit is a tri-state single-bit signal. A Bit is either driven to a logic
// level or left undriven (the high-impedance bus state). Consumers must check
// Driven before sampling; an undriven value is "do not sample", never zero.
type Bit struct {
	driven bool
	value  bool
}

// Low returns a Bit driven to logic 0.
func Low() Bit {
	return Bit{driven: true, value: false}
}

// High returns a Bit driven to logic 1.
func High() Bit {
	return Bit{driven: true, value: true}
}

// BitOf returns a Bit driven to the given level.
func BitOf(value bool) Bit {
	return Bit{driven: true, value: value}
}

// UndrivenBit returns the high-impedance bit state.
func UndrivenBit() Bit {
	return Bit{}
}

// Driven reports whether the bit carries a defined level.
func (b Bit) Driven() bool {
	return b.driven
}

// Value returns the driven level. It is only meaningful when Driven is true.
func (b Bit) Value() bool {
	return b.value
}

// IsHigh reports whether the bit is driven to logic 1.
func (b Bit) IsHigh() bool {
	return b.driven && b.value
}

// IsLow reports whether the bit is driven to logic 0.
func (b Bit) IsLow() bool {
	return b.driven && !b.value
}

// Word is a tri-state unsigned word used for address and data buses.
type Word struct {
	driven bool
	value  uint32
}

// WordOf returns a Word driven to the given value.
func WordOf(value uint32) Word {
	return Word{driven: true, value: value}
}

// UndrivenWord returns the high-impedance word state.
func UndrivenWord() Word {
	return Word{}
}

// Driven reports whether the word carries a defined value.
func (w Word) Driven() bool {
	return w.driven
}

// Value returns the driven value. It is only meaningful when Driven is true.
func (w Word) Value() uint32 {
	return w.value
}

// Sample returns the driven value together with a validity flag.
func (w Word) Sample() (uint32, bool) {
	return w.value, w.driven
}
