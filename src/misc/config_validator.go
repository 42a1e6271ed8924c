package misc

import "fmt"

// ConfigurationError reports a parameter set the core cannot start with.
// It is fatal: detection happens once at initialization, never mid-run.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

// ConfigValidator checks the resolved parameter set before the simulator is
// built.
type ConfigValidator struct {
	params Params
}

func (this *ConfigValidator) Init(params Params) {
	this.params = params
}

func (this *ConfigValidator) Validate() error {
	p := this.params

	if p.NumCores < 1 || p.NumCores > 64 {
		return &ConfigurationError{Field: "NUM_CORES",
			Reason: fmt.Sprintf("%d outside 1..64", p.NumCores)}
	}
	if p.GridSide <= 0 {
		return &ConfigurationError{Field: "OUT_CTL_NUM_MEMS",
			Reason: fmt.Sprintf("grid side %d must be positive", p.GridSide)}
	}
	if p.NumPEs != p.GridSide*p.GridSide {
		return &ConfigurationError{Field: "OUT_CTL_NUM_PES",
			Reason: fmt.Sprintf("PE count %d inconsistent with %dx%d grid",
				p.NumPEs, p.GridSide, p.GridSide)}
	}
	if p.FixedBurstWrite <= 0 {
		return &ConfigurationError{Field: "OUT_ARB_FIXED_BURST_WRITE",
			Reason: fmt.Sprintf("burst length %d must be positive", p.FixedBurstWrite)}
	}
	if p.MemRows <= 0 || p.GlbRows <= 0 || p.CacheRows <= 0 {
		return &ConfigurationError{Field: "OUT_MEM_NUM_ROWS",
			Reason: "storage depths must be positive"}
	}
	if p.FixedBurstWrite > p.MemRows {
		return &ConfigurationError{Field: "OUT_ARB_FIXED_BURST_WRITE",
			Reason: fmt.Sprintf("burst length %d exceeds memory depth %d",
				p.FixedBurstWrite, p.MemRows)}
	}
	if p.ClockNs <= 0 {
		return &ConfigurationError{Field: "COCOTB_CLOCK_NS",
			Reason: fmt.Sprintf("clock period %d must be positive", p.ClockNs)}
	}

	return nil
}
