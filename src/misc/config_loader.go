package misc

import (
	"encoding/json"
	"os"
	"sync"
)

// Params are the immutable per-run constants consumed by the control core.
// They mirror the accelerator's generated parameter header: the JSON keys
// match the names the hardware build flow uses.
type Params struct {
	NumCores        int `json:"NUM_CORES"`
	GridSide        int `json:"OUT_CTL_NUM_MEMS"`
	NumPEs          int `json:"OUT_CTL_NUM_PES"`
	BurstWidth      int `json:"OUT_ARB_BURST_WIDTH"`
	FixedBurstWrite int `json:"OUT_ARB_FIXED_BURST_WRITE"`
	MemRows         int `json:"OUT_MEM_NUM_ROWS"`
	GlbRows         int `json:"OUT_GLB_NUM_ROWS"`
	CacheRows       int `json:"OUT_CACHE_NUM_ROWS"`
	ClockNs         int `json:"COCOTB_CLOCK_NS"`
	ComputeCycles   int `json:"OUT_CTL_COMPUTE_CYCLES"`
	PipelineDepth   int `json:"OUT_PE_PIPELINE_DEPTH"`
}

// DefaultParams returns the geometry the hardware testbenches are built
// around: four cores on a 4x4 grid.
func DefaultParams() Params {
	return Params{
		NumCores:        4,
		GridSide:        4,
		NumPEs:          16,
		BurstWidth:      6,
		FixedBurstWrite: 8,
		MemRows:         64,
		GlbRows:         64,
		CacheRows:       64,
		ClockNs:         20,
		ComputeCycles:   4,
		PipelineDepth:   2,
	}
}


// ConfigLoader resolves run parameters from defaults, an optional JSON
// parameter file, and command-line overrides, in that order.
type ConfigLoader struct {
	params Params
}

func (this *ConfigLoader) Init() {
	this.params = DefaultParams()
}

// LoadFile overlays parameters from a JSON file. Missing keys keep their
// current values.
func (this *ConfigLoader) LoadFile(filepath string) error {
	raw, err := os.ReadFile(filepath)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, &this.params)
}

// ApplyCommandLine overlays parameters given on the command line.
func (this *ConfigLoader) ApplyCommandLine(command_line_parser *CommandLineParser) {
	this.params.NumCores = command_line_parser.IntParameter("num_cores")
	this.params.GridSide = command_line_parser.IntParameter("grid_side")
	this.params.NumPEs = this.params.GridSide * this.params.GridSide
	this.params.FixedBurstWrite = command_line_parser.IntParameter("burst_write")
	this.params.ComputeCycles = command_line_parser.IntParameter("compute_cycles")
}

// Params returns the resolved parameter set.
func (this *ConfigLoader) Params() Params {
	return this.params
}

var (
	runtimeParams     = DefaultParams()
	runtimeParamsLock sync.RWMutex
)

// SetRuntimeParams publishes the resolved parameter set for the run.
func SetRuntimeParams(params Params) {
	runtimeParamsLock.Lock()
	defer runtimeParamsLock.Unlock()

	runtimeParams = params
}

// RuntimeParams returns the parameter set resolved at startup.
func RuntimeParams() Params {
	runtimeParamsLock.RLock()
	defer runtimeParamsLock.RUnlock()

	return runtimeParams
}

// ConfigureRuntime resolves the dataflow mode and parameters from the parsed
// command line and publishes them.
func ConfigureRuntime(command_line_parser *CommandLineParser) {
	mode_value := command_line_parser.StringParameter("dataflow_mode")
	if mode, ok := DataflowModeFromString(mode_value); ok {
		SetRuntimeDataflowMode(mode)
	}

	config_loader := new(ConfigLoader)
	config_loader.Init()

	if path := command_line_parser.StringParameter("parameters_filepath"); path != "" {
		if err := config_loader.LoadFile(path); err != nil {
			panic(err)
		}
	}

	config_loader.ApplyCommandLine(command_line_parser)
	SetRuntimeParams(config_loader.Params())
}
