// Package diag collects and prints system, hardware and network properties
// of the board the experiments run on.
package diag

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"
)

// Field is one labelled value.
type Field struct {
	Name  string
	Value string
}

// Section groups fields under a heading.
type Section struct {
	Title  string
	Fields []Field
}

// Report is the full diagnostic output.
type Report struct {
	Sections []Section
}

const separator = "----------------------------------------------------"

// Lines renders the report in fixed-width text.
func (r Report) Lines() []string {
	var lines []string
	for _, s := range r.Sections {
		lines = append(lines, separator, s.Title, separator)
		for _, f := range s.Fields {
			lines = append(lines, fmt.Sprintf("%-18s:  %s", f.Name, f.Value))
		}
	}
	return lines
}

// Log prints every line through logf (e.g. log.Printf).
func (r Report) Log(logf func(format string, args ...any)) {
	for _, l := range r.Lines() {
		logf("%s", l)
	}
}

// Section returns the named section, or false.
func (r Report) Section(title string) (Section, bool) {
	for _, s := range r.Sections {
		if s.Title == title {
			return s, true
		}
	}
	return Section{}, false
}

// Value returns the first field with the given name.
func (s Section) Value(name string) (string, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// Section titles.
const (
	TitleHardware = "HARDWARE INFO"
	TitleMemory   = "MEMORY INFO"
	TitleOS       = "OPERATING SYSTEM INFO"
	TitleRuntime  = "GO RUNTIME INFO"
	TitleNetwork  = "NETWORK INFO"
	TitleCodec    = "CODEC INFO"
	TitleClock    = "CLOCK INFO"
)

var codecs = []string{"H264", "MPG2", "WVC1"}

var clocks = []struct{ label, name string }{
	{"ARM Frequency", "arm"},
	{"CORE Frequency", "core"},
	{"H264 Frequency", "h264"},
	{"ISP Frequency", "isp"},
	{"V3D Frequency", "v3d"},
	{"UART Frequency", "uart"},
	{"PWM Frequency", "pwm"},
	{"EMMC Frequency", "emmc"},
	{"Pixel Frequency", "pixel"},
	{"VEC Frequency", "vec"},
	{"HDMI Frequency", "hdmi"},
	{"DPI Frequency", "dpi"},
}

// Collect queries every property. The first failing query aborts collection.
func Collect(p Platform) (Report, error) {
	var r Report
	for _, build := range []func(Platform) (Section, error){
		hardware, memory, operatingSystem, goRuntime, network, codec, clock,
	} {
		s, err := build(p)
		if err != nil {
			return Report{}, err
		}
		r.Sections = append(r.Sections, s)
	}
	return r, nil
}

func hardware(p Platform) (Section, error) {
	cpu, err := p.CPUInfo()
	if err != nil {
		return Section{}, fmt.Errorf("cpu info: %w", err)
	}
	temp, err := vcValue(p, "measure_temp")
	if err != nil {
		return Section{}, err
	}
	volts, err := vcValue(p, "measure_volts", "core")
	if err != nil {
		return Section{}, err
	}
	revision := cpuField(cpu, "Revision")
	return Section{Title: TitleHardware, Fields: []Field{
		{"Serial Number", cpuField(cpu, "Serial")},
		{"CPU Revision", cpuField(cpu, "CPU revision")},
		{"CPU Architecture", cpuField(cpu, "CPU architecture")},
		{"CPU Part", cpuField(cpu, "CPU part")},
		{"CPU Temperature", strings.TrimSuffix(temp, "'C")},
		{"CPU Core Voltage", strings.TrimSuffix(volts, "V")},
		{"CPU Model Name", cpuField(cpu, "model name")},
		{"CPU Cores", cpuField(cpu, "cores")},
		{"Processor", cpuField(cpu, "Processor", "Model")},
		{"Hardware Revision", revision},
		{"Is Hard Float ABI", strconv.FormatBool(p.HardFloat())},
		{"Board Type", BoardType(revision)},
	}}, nil
}

func memory(p Platform) (Section, error) {
	mem, err := p.MemInfo()
	if err != nil {
		return Section{}, fmt.Errorf("memory info: %w", err)
	}
	total := mem["MemTotal"]
	free := mem["MemFree"]
	buffers := mem["Buffers"]
	cached := mem["Cached"]
	var used uint64
	if total > free+buffers+cached {
		used = total - free - buffers - cached
	}

	s := Section{Title: TitleMemory, Fields: []Field{
		{"Total Memory", strconv.FormatUint(total, 10)},
		{"Used Memory", strconv.FormatUint(used, 10)},
		{"Free Memory", strconv.FormatUint(free, 10)},
		{"Shared Memory", strconv.FormatUint(mem["Shmem"], 10)},
		{"Memory Buffers", strconv.FormatUint(buffers, 10)},
		{"Cached Memory", strconv.FormatUint(cached, 10)},
	}}
	for _, rail := range []string{"sdram_c", "sdram_i", "sdram_p"} {
		v, err := vcValue(p, "measure_volts", rail)
		if err != nil {
			return Section{}, err
		}
		s.Fields = append(s.Fields, Field{strings.ToUpper(rail) + " Voltage", strings.TrimSuffix(v, "V")})
	}
	return s, nil
}

func operatingSystem(p Platform) (Section, error) {
	u, err := p.Uname()
	if err != nil {
		return Section{}, fmt.Errorf("uname: %w", err)
	}
	out, err := p.VCGenCmd("version")
	if err != nil {
		return Section{}, fmt.Errorf("vcgencmd version: %w", err)
	}
	date, build := ParseFirmwareVersion(out)
	return Section{Title: TitleOS, Fields: []Field{
		{"OS Name", u.Sysname},
		{"OS Version", u.Release},
		{"OS Architecture", u.Machine},
		{"OS Firmware Build", build},
		{"OS Firmware Date", date},
	}}, nil
}

func goRuntime(Platform) (Section, error) {
	return Section{Title: TitleRuntime, Fields: []Field{
		{"Go Version", runtime.Version()},
		{"Go OS", runtime.GOOS},
		{"Go Architecture", runtime.GOARCH},
		{"CPUs", strconv.Itoa(runtime.NumCPU())},
		{"GOMAXPROCS", strconv.Itoa(runtime.GOMAXPROCS(0))},
	}}, nil
}

func network(p Platform) (Section, error) {
	host, err := p.Hostname()
	if err != nil {
		return Section{}, fmt.Errorf("hostname: %w", err)
	}
	s := Section{Title: TitleNetwork, Fields: []Field{{"Hostname", host}}}

	ips, err := p.IPAddresses()
	if err != nil {
		return Section{}, fmt.Errorf("ip addresses: %w", err)
	}
	var fqdns []string
	for _, ip := range ips {
		s.Fields = append(s.Fields, Field{"IP Addresses", ip})
		names, err := p.LookupFQDN(ip)
		if err != nil {
			// reverse lookups routinely fail on a LAN without PTR records
			continue
		}
		fqdns = append(fqdns, names...)
	}
	for _, n := range fqdns {
		s.Fields = append(s.Fields, Field{"FQDN", strings.TrimSuffix(n, ".")})
	}

	ns, err := p.Nameservers()
	if err != nil {
		return Section{}, fmt.Errorf("nameservers: %w", err)
	}
	for _, n := range ns {
		s.Fields = append(s.Fields, Field{"Nameserver", n})
	}
	return s, nil
}

func codec(p Platform) (Section, error) {
	s := Section{Title: TitleCodec}
	for _, c := range codecs {
		v, err := vcValue(p, "codec_enabled", c)
		if err != nil {
			return Section{}, err
		}
		s.Fields = append(s.Fields, Field{c + " Codec Enabled", strconv.FormatBool(v == "enabled")})
	}
	return s, nil
}

func clock(p Platform) (Section, error) {
	s := Section{Title: TitleClock}
	for _, c := range clocks {
		v, err := vcValue(p, "measure_clock", c.name)
		if err != nil {
			return Section{}, err
		}
		s.Fields = append(s.Fields, Field{c.label, v})
	}
	return s, nil
}

// vcValue runs vcgencmd and returns the text after '='.
func vcValue(p Platform, args ...string) (string, error) {
	out, err := p.VCGenCmd(args...)
	if err != nil {
		return "", fmt.Errorf("vcgencmd %s: %w", strings.Join(args, " "), err)
	}
	return ParseVCValue(out), nil
}

// cpuField returns the first present key, or "unknown".
func cpuField(cpu map[string]string, keys ...string) string {
	for _, k := range keys {
		if v, ok := cpu[k]; ok && v != "" {
			return v
		}
	}
	return "unknown"
}
