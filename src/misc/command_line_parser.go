package misc

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

type OptionType int

const (
	INT OptionType = iota
	STRING
)

type option struct {
	option_type   OptionType
	name          string
	default_value string
	help_msg      string
}

// CommandLineParser collects typed --name=value options with defaults and a
// generated help listing.
type CommandLineParser struct {
	options map[string]*option
	values  map[string]string
	args    []string
}

func (this *CommandLineParser) Init() {
	this.options = make(map[string]*option)
	this.values = make(map[string]string)
	this.args = make([]string, 0)
}

func (this *CommandLineParser) AddOption(
	option_type OptionType,
	name string,
	default_value string,
	help_msg string,
) {
	this.options[name] = &option{
		option_type:   option_type,
		name:          name,
		default_value: default_value,
		help_msg:      help_msg,
	}
}

func (this *CommandLineParser) Parse(args []string) {
	this.args = args

	for _, arg := range args[1:] {
		if !strings.HasPrefix(arg, "--") {
			continue
		}

		body := strings.TrimPrefix(arg, "--")
		name := body
		value := ""

		if idx := strings.Index(body, "="); idx >= 0 {
			name = body[:idx]
			value = body[idx+1:]
		}

		if _, ok := this.options[name]; ok {
			this.values[name] = value
		} else if name == "help" {
			this.values["help"] = ""
		}
	}
}

func (this *CommandLineParser) IsArgSet(name string) bool {
	_, ok := this.values[name]
	return ok
}

func (this *CommandLineParser) IntParameter(name string) int {
	opt, ok := this.options[name]
	if !ok {
		panic(fmt.Errorf("unknown option: %s", name))
	}
	if opt.option_type != INT {
		panic(fmt.Errorf("option %s is not an int", name))
	}

	raw := opt.default_value
	if value, set := this.values[name]; set && value != "" {
		raw = value
	}

	parsed, err := strconv.Atoi(raw)
	if err != nil {
		panic(fmt.Errorf("option %s: %w", name, err))
	}
	return parsed
}

func (this *CommandLineParser) StringParameter(name string) string {
	opt, ok := this.options[name]
	if !ok {
		panic(fmt.Errorf("unknown option: %s", name))
	}
	if opt.option_type != STRING {
		panic(fmt.Errorf("option %s is not a string", name))
	}

	if value, set := this.values[name]; set && value != "" {
		return value
	}
	return opt.default_value
}

func (this *CommandLineParser) StringifyHelpMsgs() string {
	names := make([]string, 0, len(this.options))
	for name := range this.options {
		names = append(names, name)
	}
	sort.Strings(names)

	var builder strings.Builder
	for _, name := range names {
		opt := this.options[name]
		builder.WriteString(fmt.Sprintf("--%s (default: %s): %s\n",
			opt.name, opt.default_value, opt.help_msg))
	}
	return builder.String()
}

func (this *CommandLineParser) StringifyArgs() string {
	return strings.Join(this.args, " ")
}

func (this *CommandLineParser) StringifyOptions() string {
	names := make([]string, 0, len(this.options))
	for name := range this.options {
		names = append(names, name)
	}
	sort.Strings(names)

	lines := make([]string, 0, len(names))
	for _, name := range names {
		opt := this.options[name]
		value := opt.default_value
		if set, ok := this.values[name]; ok && set != "" {
			value = set
		}
		lines = append(lines, fmt.Sprintf("%s=%s", name, value))
	}
	return strings.Join(lines, "\n")
}
