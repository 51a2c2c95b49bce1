package diag

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/procfs"
)

// Uname is the kernel identification.
type Uname struct {
	Sysname string
	Release string
	Version string
	Machine string
}

// Platform answers the queries the reporter makes.
type Platform interface {
	CPUInfo() (map[string]string, error)
	MemInfo() (map[string]uint64, error)
	VCGenCmd(args ...string) (string, error)
	Uname() (Uname, error)
	Hostname() (string, error)
	IPAddresses() ([]string, error)
	LookupFQDN(ip string) ([]string, error)
	Nameservers() ([]string, error)
	HardFloat() bool
}

// HostPlatform reads the running system.
type HostPlatform struct {
	// Root prefixes every file path; empty means "/".
	Root string
	// VCGenCmdPath is the firmware query tool.
	VCGenCmdPath string
	// Timeout bounds each vcgencmd call and reverse lookup.
	Timeout time.Duration
}

// NewHostPlatform returns a platform reading the live system.
func NewHostPlatform() *HostPlatform {
	return &HostPlatform{VCGenCmdPath: "vcgencmd", Timeout: 5 * time.Second}
}

func (h *HostPlatform) path(p string) string {
	if h.Root == "" {
		return p
	}
	return filepath.Join(h.Root, p)
}

func (h *HostPlatform) proc() (procfs.FS, error) {
	return procfs.NewFS(h.path(procfs.DefaultMountPoint))
}

// CPUInfo merges the per-core model from procfs with the board
// identification lines (Revision, Serial, Model) it does not model.
func (h *HostPlatform) CPUInfo() (map[string]string, error) {
	fs, err := h.proc()
	if err != nil {
		return nil, err
	}
	cpus, err := fs.CPUInfo()
	if err != nil {
		return nil, err
	}
	f, err := os.Open(h.path("/proc/cpuinfo"))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	out, err := ParseBoardInfo(f)
	if err != nil {
		return nil, err
	}
	if len(cpus) > 0 && cpus[0].ModelName != "" {
		out["model name"] = cpus[0].ModelName
	}
	out["cores"] = strconv.Itoa(len(cpus))
	return out, nil
}

// MemInfo reports /proc/meminfo sizes in bytes.
func (h *HostPlatform) MemInfo() (map[string]uint64, error) {
	fs, err := h.proc()
	if err != nil {
		return nil, err
	}
	m, err := fs.Meminfo()
	if err != nil {
		return nil, err
	}
	return MemInfoBytes(m), nil
}

func (h *HostPlatform) VCGenCmd(args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), h.Timeout)
	defer cancel()
	out, err := exec.CommandContext(ctx, h.VCGenCmdPath, args...).Output()
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func (h *HostPlatform) Uname() (Uname, error) {
	return uname()
}

func (h *HostPlatform) Hostname() (string, error) {
	return os.Hostname()
}

// IPAddresses returns the non-loopback interface addresses.
func (h *HostPlatform) IPAddresses() ([]string, error) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return nil, err
	}
	var out []string
	for _, a := range addrs {
		ipn, ok := a.(*net.IPNet)
		if !ok || ipn.IP.IsLoopback() {
			continue
		}
		out = append(out, ipn.IP.String())
	}
	return out, nil
}

func (h *HostPlatform) LookupFQDN(ip string) ([]string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), h.Timeout)
	defer cancel()
	return net.DefaultResolver.LookupAddr(ctx, ip)
}

func (h *HostPlatform) Nameservers() ([]string, error) {
	f, err := os.Open(h.path("/etc/resolv.conf"))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseResolvConf(f)
}

// HardFloat reports whether the userland uses the hard-float ARM ABI.
func (h *HostPlatform) HardFloat() bool {
	switch runtime.GOARCH {
	case "arm64":
		return true
	case "arm":
		_, err := os.Stat(h.path("/lib/arm-linux-gnueabihf"))
		return err == nil
	default:
		return false
	}
}

// String describes the platform for log lines.
func (h *HostPlatform) String() string {
	root := h.Root
	if root == "" {
		root = "/"
	}
	return fmt.Sprintf("host(root=%s, vcgencmd=%s)", root, strings.TrimSpace(h.VCGenCmdPath))
}
