package diag

import (
	"errors"
	"strings"
)

// FakePlatform is a test double with canned answers.
type FakePlatform struct {
	CPU    map[string]string
	Mem    map[string]uint64
	VC     map[string]string // keyed by space-joined args
	Kernel Uname
	Host   string
	IPs    []string
	FQDNs  map[string][]string
	DNS    []string
	HardFP bool

	// Fail makes the named query return an error: "cpuinfo", "meminfo",
	// "uname", "hostname", "ips", "nameservers", or a vcgencmd arg string.
	Fail map[string]error
}

// NewFakePlatform returns a platform resembling a Raspberry Pi 3B+.
func NewFakePlatform() *FakePlatform {
	vc := map[string]string{
		"measure_temp":          "temp=48.3'C\n",
		"measure_volts core":    "volt=1.2000V\n",
		"measure_volts sdram_c": "volt=1.2500V\n",
		"measure_volts sdram_i": "volt=1.2500V\n",
		"measure_volts sdram_p": "volt=1.2250V\n",
		"version":               "Mar 17 2023 10:52:42 \nCopyright (c) 2012 Broadcom\nversion 82f3750a65fadae9a38077e3c2e217ad158c8d54 (clean) (release) (start)\n",
		"codec_enabled H264":    "H264=enabled\n",
		"codec_enabled MPG2":    "MPG2=disabled\n",
		"codec_enabled WVC1":    "WVC1=disabled\n",
	}
	for _, c := range clocks {
		vc["measure_clock "+c.name] = "frequency(1)=250000000\n"
	}
	return &FakePlatform{
		CPU: map[string]string{
			"Serial":           "00000000a1b2c3d4",
			"CPU revision":     "4",
			"CPU architecture": "7",
			"CPU part":         "0xd03",
			"model name":       "ARMv7 Processor rev 4 (v7l)",
			"cores":            "4",
			"Hardware":         "BCM2835",
			"Revision":         "a020d3",
		},
		Mem: map[string]uint64{
			"MemTotal": 1000 << 20,
			"MemFree":  400 << 20,
			"Buffers":  50 << 20,
			"Cached":   250 << 20,
			"Shmem":    10 << 20,
		},
		VC:     vc,
		Kernel: Uname{Sysname: "Linux", Release: "6.1.21-v7+", Machine: "armv7l"},
		Host:   "raspberrypi",
		IPs:    []string{"192.168.1.50"},
		FQDNs:  map[string][]string{"192.168.1.50": {"raspberrypi.lan."}},
		DNS:    []string{"192.168.1.1"},
		HardFP: true,
		Fail:   map[string]error{},
	}
}

func (f *FakePlatform) CPUInfo() (map[string]string, error) {
	return f.CPU, f.Fail["cpuinfo"]
}

func (f *FakePlatform) MemInfo() (map[string]uint64, error) {
	return f.Mem, f.Fail["meminfo"]
}

func (f *FakePlatform) VCGenCmd(args ...string) (string, error) {
	key := strings.Join(args, " ")
	if err := f.Fail[key]; err != nil {
		return "", err
	}
	out, ok := f.VC[key]
	if !ok {
		return "", errors.New("unknown vcgencmd query: " + key)
	}
	return out, nil
}

func (f *FakePlatform) Uname() (Uname, error) {
	return f.Kernel, f.Fail["uname"]
}

func (f *FakePlatform) Hostname() (string, error) {
	return f.Host, f.Fail["hostname"]
}

func (f *FakePlatform) IPAddresses() ([]string, error) {
	return f.IPs, f.Fail["ips"]
}

func (f *FakePlatform) LookupFQDN(ip string) ([]string, error) {
	names, ok := f.FQDNs[ip]
	if !ok {
		return nil, errors.New("no PTR record")
	}
	return names, nil
}

func (f *FakePlatform) Nameservers() ([]string, error) {
	return f.DNS, f.Fail["nameservers"]
}

func (f *FakePlatform) HardFloat() bool { return f.HardFP }
