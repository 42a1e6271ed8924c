package simulator

import (
	"fmt"

	"github.com/Madhav-Malhotra/ml-accelerator-dataflows/src/misc"
)

type Platform interface {
	Init(command_line_parser *misc.CommandLineParser)
	Fini()
	IsFinished() bool
	Cycle()
	Dump()
}

func newPlatformForMode(mode misc.DataflowMode) Platform {
	switch mode {
	case misc.DataflowModeOutput:
		return new(OutputPlatform)
	case misc.DataflowModeWeight:
		// The weight-stationary datapath and cached arbiter exist as
		// components; the full platform wiring follows once its control
		// sequence is pinned down.
		panic("weight dataflow platform is not wired yet")
	default:
		panic(fmt.Sprintf("unsupported dataflow mode: %s", mode))
	}
}
