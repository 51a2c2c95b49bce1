package diag

import (
	"bufio"
	"io"
	"strings"

	"github.com/prometheus/procfs"
)

// boardKeys are the cpuinfo lines describing the SoC and board rather
// than a core.
var boardKeys = map[string]bool{
	"Hardware":         true,
	"Revision":         true,
	"Serial":           true,
	"Model":            true,
	"Processor":        true,
	"CPU implementer":  true,
	"CPU architecture": true,
	"CPU variant":      true,
	"CPU part":         true,
	"CPU revision":     true,
}

// ParseBoardInfo picks the board identification lines out of
// /proc/cpuinfo. The first occurrence of each key wins.
func ParseBoardInfo(r io.Reader) (map[string]string, error) {
	out := make(map[string]string)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		k, v, ok := strings.Cut(sc.Text(), ":")
		if !ok {
			continue
		}
		k = strings.TrimSpace(k)
		if _, seen := out[k]; seen || !boardKeys[k] {
			continue
		}
		out[k] = strings.TrimSpace(v)
	}
	return out, sc.Err()
}

// MemInfoBytes flattens the fields the reporter uses into bytes.
// Fields absent from the kernel's meminfo are left out.
func MemInfoBytes(m procfs.Meminfo) map[string]uint64 {
	out := make(map[string]uint64)
	for k, v := range map[string]*uint64{
		"MemTotal":     m.MemTotal,
		"MemFree":      m.MemFree,
		"MemAvailable": m.MemAvailable,
		"Buffers":      m.Buffers,
		"Cached":       m.Cached,
		"Shmem":        m.Shmem,
		"SwapTotal":    m.SwapTotal,
		"SwapFree":     m.SwapFree,
	} {
		if v != nil {
			out[k] = *v * 1024
		}
	}
	return out
}

// ParseResolvConf returns the nameserver entries of a resolv.conf.
func ParseResolvConf(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) >= 2 && fields[0] == "nameserver" {
			out = append(out, fields[1])
		}
	}
	return out, sc.Err()
}

// ParseVCValue extracts the value from vcgencmd output such as
// "temp=48.3'C" or "frequency(48)=600000000".
func ParseVCValue(out string) string {
	out = strings.TrimSpace(out)
	if _, v, ok := strings.Cut(out, "="); ok {
		return v
	}
	return out
}

// ParseFirmwareVersion splits `vcgencmd version` output into the build date
// (first line) and the build hash.
func ParseFirmwareVersion(out string) (date, build string) {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) > 0 {
		date = strings.TrimSpace(lines[0])
	}
	for _, l := range lines {
		fields := strings.Fields(l)
		if len(fields) >= 2 && fields[0] == "version" {
			build = fields[1]
			break
		}
	}
	return date, build
}
