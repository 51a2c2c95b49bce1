package diag

import (
	"strconv"
	"strings"
)

// New-style revision codes set bit 23 and carry the board type in bits 4-11.
var boardTypes = map[uint64]string{
	0x00: "Model A",
	0x01: "Model B",
	0x02: "Model A+",
	0x03: "Model B+",
	0x04: "Model 2B",
	0x06: "Compute Module 1",
	0x08: "Model 3B",
	0x09: "Zero",
	0x0a: "Compute Module 3",
	0x0c: "Zero W",
	0x0d: "Model 3B+",
	0x0e: "Model 3A+",
	0x10: "Compute Module 3+",
	0x11: "Model 4B",
	0x12: "Zero 2 W",
	0x13: "Pi 400",
	0x14: "Compute Module 4",
	0x15: "Compute Module 4S",
	0x17: "Model 5",
}

// BoardType decodes a /proc/cpuinfo Revision value.
func BoardType(revision string) string {
	rev := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(revision)), "0x")
	code, err := strconv.ParseUint(rev, 16, 32)
	if err != nil {
		return "UNKNOWN"
	}
	if code&(1<<23) == 0 {
		return oldStyleBoard(code & 0xffff)
	}
	if name, ok := boardTypes[(code>>4)&0xff]; ok {
		return name
	}
	return "UNKNOWN"
}

func oldStyleBoard(code uint64) string {
	switch {
	case code >= 0x02 && code <= 0x03:
		return "Model B Revision 1"
	case code >= 0x07 && code <= 0x09:
		return "Model A"
	case code >= 0x04 && code <= 0x0f:
		return "Model B Revision 2"
	case code == 0x10 || code == 0x13:
		return "Model B+"
	case code == 0x11 || code == 0x14:
		return "Compute Module 1"
	case code == 0x12 || code == 0x15:
		return "Model A+"
	default:
		return "UNKNOWN"
	}
}
