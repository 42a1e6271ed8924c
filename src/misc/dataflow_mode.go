package misc

// DataflowMode selects which accelerator dataflow the simulator instantiates.
// The control core is shared; the arbiter flavor and PE datapath differ.
type DataflowMode string

const (
	// DataflowModeOutput keeps accumulation results stationary per PE.
	DataflowModeOutput DataflowMode = "output"
	// DataflowModeWeight parks weights in the PEs and streams activations.
	DataflowModeWeight DataflowMode = "weight"
)

// DefaultDataflowMode returns the mode used when no explicit selection is
// made.
func DefaultDataflowMode() DataflowMode {
	return DataflowModeOutput
}

// DataflowModeFromString converts an arbitrary string into a DataflowMode.
// When the provided value is unknown the bool return will be false.
func DataflowModeFromString(value string) (DataflowMode, bool) {
	switch value {
	case string(DataflowModeOutput):
		return DataflowModeOutput, true
	case string(DataflowModeWeight):
		return DataflowModeWeight, true
	default:
		return "", false
	}
}
