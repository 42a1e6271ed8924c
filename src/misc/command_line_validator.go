package misc

import (
	"errors"
	"fmt"
)

type CommandLineValidator struct {
	command_line_parser *CommandLineParser
}

func (this *CommandLineValidator) Init(command_line_parser *CommandLineParser) {
	this.command_line_parser = command_line_parser
}

func (this *CommandLineValidator) Validate() {
	if this.command_line_parser.IntParameter("verbose") < 0 {
		err := errors.New("verbose < 0")
		panic(err)
	}

	dataflow_mode := this.command_line_parser.StringParameter("dataflow_mode")
	if _, ok := DataflowModeFromString(dataflow_mode); !ok {
		err := fmt.Errorf("dataflow_mode %s is not supported", dataflow_mode)
		panic(err)
	}

	if this.command_line_parser.IntParameter("num_cores") <= 0 {
		err := errors.New("num_cores <= 0")
		panic(err)
	}

	if this.command_line_parser.IntParameter("grid_side") <= 0 {
		err := errors.New("grid_side <= 0")
		panic(err)
	}

	if this.command_line_parser.IntParameter("burst_write") <= 0 {
		err := errors.New("burst_write <= 0")
		panic(err)
	}

	if this.command_line_parser.IntParameter("compute_cycles") <= 0 {
		err := errors.New("compute_cycles <= 0")
		panic(err)
	}

	if this.command_line_parser.IntParameter("max_cycles") <= 0 {
		err := errors.New("max_cycles <= 0")
		panic(err)
	}
}
