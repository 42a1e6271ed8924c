package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Madhav-Malhotra/ml-accelerator-dataflows/src/misc"
	"github.com/Madhav-Malhotra/ml-accelerator-dataflows/src/simulator"
	"github.com/tebeka/atexit"
)

func main() {
	command_line_parser := InitCommandLineParser()
	command_line_parser.Parse(os.Args)

	if command_line_parser.IsArgSet("help") {
		fmt.Printf("%s", command_line_parser.StringifyHelpMsgs())
	} else {
		misc.ConfigureRuntime(command_line_parser)

		command_line_validator := new(misc.CommandLineValidator)
		command_line_validator.Init(command_line_parser)
		command_line_validator.Validate()

		config_validator := new(misc.ConfigValidator)
		config_validator.Init(misc.RuntimeParams())
		if err := config_validator.Validate(); err != nil {
			panic(err)
		}

		log_dirpath := command_line_parser.StringParameter("log_dirpath")
		args_filepath := filepath.Join(log_dirpath, "args.txt")
		options_filepath := filepath.Join(log_dirpath, "options.txt")

		args_file_dumper := new(misc.FileDumper)
		args_file_dumper.Init(args_filepath)
		args_file_dumper.WriteLines([]string{command_line_parser.StringifyArgs()})

		options_file_dumper := new(misc.FileDumper)
		options_file_dumper.Init(options_filepath)
		options_file_dumper.WriteLines([]string{command_line_parser.StringifyOptions()})

		simulator_ := new(simulator.Simulator)
		simulator_.Init(command_line_parser)

		// Statistics survive an early exit path as well.
		atexit.Register(simulator_.Dump)

		for !simulator_.IsFinished() {
			simulator_.Cycle()
		}

		simulator_.Fini()
		atexit.Exit(0)
	}
}

func InitCommandLineParser() *misc.CommandLineParser {
	command_line_parser := new(misc.CommandLineParser)
	command_line_parser.Init()

	// Explanation of verbose level
	// level 0: Only prints simulation output
	// level 1: level 0 + prints the control phase and bus state per tick
	command_line_parser.AddOption(misc.INT, "verbose", "0", "verbosity of the simulation")

	command_line_parser.AddOption(
		misc.STRING,
		"dataflow_mode",
		string(misc.DefaultDataflowMode()),
		"accelerator dataflow to simulate (output|weight)",
	)

	command_line_parser.AddOption(misc.INT, "num_cores", "4",
		"number of requester cores on the shared bus")
	command_line_parser.AddOption(misc.INT, "grid_side", "4",
		"side length of the square PE grid")
	command_line_parser.AddOption(misc.INT, "burst_write", "8",
		"burst length used for operand loading and result unloading")
	command_line_parser.AddOption(misc.INT, "compute_cycles", "4",
		"cycles spent in the compute window per transaction")
	command_line_parser.AddOption(misc.INT, "max_cycles", "100000",
		"hard cap on simulated cycles")

	command_line_parser.AddOption(misc.STRING, "parameters_filepath", "",
		"optional JSON parameter file overlaying the defaults")

	command_line_parser.AddOption(misc.STRING, "log_dirpath", "log",
		"path to the log directory")

	return command_line_parser
}
