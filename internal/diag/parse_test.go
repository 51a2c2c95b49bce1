package diag

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cpuinfo = `processor	: 0
model name	: ARMv7 Processor rev 4 (v7l)
BogoMIPS	: 38.40
CPU architecture: 7
CPU part	: 0xd03
CPU revision	: 4

processor	: 1
model name	: ARMv7 Processor rev 9 (v7l)

Hardware	: BCM2835
Revision	: a020d3
Serial		: 00000000a1b2c3d4
Model		: Raspberry Pi 3 Model B Plus Rev 1.3
`

const meminfo = `MemTotal:         948304 kB
MemFree:          612300 kB
MemAvailable:     780112 kB
Buffers:           20480 kB
Cached:           150000 kB
Shmem:              8192 kB
HugePages_Total:       0
`

func TestParseBoardInfo(t *testing.T) {
	m, err := ParseBoardInfo(strings.NewReader(cpuinfo))
	require.NoError(t, err)
	assert.Equal(t, "7", m["CPU architecture"])
	assert.Equal(t, "a020d3", m["Revision"])
	assert.Equal(t, "00000000a1b2c3d4", m["Serial"])
	assert.Equal(t, "Raspberry Pi 3 Model B Plus Rev 1.3", m["Model"])
	assert.NotContains(t, m, "model name", "per-core lines come from procfs")
	assert.NotContains(t, m, "BogoMIPS")
}

func writeProc(t *testing.T, root string) {
	t.Helper()
	dir := filepath.Join(root, "proc")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cpuinfo"), []byte(cpuinfo), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "meminfo"), []byte(meminfo), 0o644))
}

func TestHostPlatformCPUInfo(t *testing.T) {
	root := t.TempDir()
	writeProc(t, root)
	h := &HostPlatform{Root: root}

	m, err := h.CPUInfo()
	require.NoError(t, err)
	assert.Equal(t, "ARMv7 Processor rev 4 (v7l)", m["model name"], "first core wins")
	assert.Equal(t, "2", m["cores"])
	assert.Equal(t, "a020d3", m["Revision"])
	assert.Equal(t, "0xd03", m["CPU part"])
}

func TestHostPlatformMemInfo(t *testing.T) {
	root := t.TempDir()
	writeProc(t, root)
	h := &HostPlatform{Root: root}

	m, err := h.MemInfo()
	require.NoError(t, err)
	assert.Equal(t, uint64(948304*1024), m["MemTotal"])
	assert.Equal(t, uint64(612300*1024), m["MemFree"])
	assert.Equal(t, uint64(8192*1024), m["Shmem"])
	assert.NotContains(t, m, "SwapTotal", "absent fields are left out")
}

func TestHostPlatformMissingProc(t *testing.T) {
	h := &HostPlatform{Root: t.TempDir()}
	_, err := h.CPUInfo()
	assert.Error(t, err)
	_, err = h.MemInfo()
	assert.Error(t, err)
}

func TestParseResolvConf(t *testing.T) {
	ns, err := ParseResolvConf(strings.NewReader("# generated\nsearch lan\nnameserver 192.168.1.1\nnameserver 1.1.1.1\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"192.168.1.1", "1.1.1.1"}, ns)
}

func TestParseVCValue(t *testing.T) {
	assert.Equal(t, "48.3'C", ParseVCValue("temp=48.3'C\n"))
	assert.Equal(t, "600000000", ParseVCValue("frequency(48)=600000000"))
	assert.Equal(t, "enabled", ParseVCValue("H264=enabled"))
	assert.Equal(t, "raw", ParseVCValue(" raw "))
}

func TestParseFirmwareVersion(t *testing.T) {
	date, build := ParseFirmwareVersion("Mar 17 2023 10:52:42 \nCopyright (c) 2012 Broadcom\nversion 82f3750a (clean) (release) (start)\n")
	assert.Equal(t, "Mar 17 2023 10:52:42", date)
	assert.Equal(t, "82f3750a", build)

	date, build = ParseFirmwareVersion("")
	assert.Equal(t, "", date)
	assert.Equal(t, "", build)
}

func TestBoardType(t *testing.T) {
	cases := map[string]string{
		"a020d3":   "Model 3B+",
		"a02082":   "Model 3B",
		"c03111":   "Model 4B",
		"0xd04170": "Model 5",
		"9000c1":   "Zero W",
		"000e":     "Model B Revision 2",
		"0002":     "Model B Revision 1",
		"0008":     "Model A",
		"0010":     "Model B+",
		"0012":     "Model A+",
		"1000010":  "Model B+", // warranty bit set on an old-style code
		"garbage":  "UNKNOWN",
		"":         "UNKNOWN",
	}
	for rev, want := range cases {
		assert.Equal(t, want, BoardType(rev), rev)
	}
}
