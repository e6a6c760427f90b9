package cgroupres

import (
	"strconv"
	"strings"
)

// ParseKeyValue parses the "key value\n" lines cgroup v1 multi-counter
// files (cpu.stat, memory.stat) use, the generalised form of the
// teacher's getCgroupParamKeyValue helper. Lines that do not have
// exactly two fields, such as blkio's "major:minor Op value" lines,
// are skipped.
func ParseKeyValue(raw string) map[string]int64 {
	out := make(map[string]int64)
	for _, line := range strings.Split(raw, "\n") {
		fields := strings.Fields(line)
		if len(fields) != 2 {
			continue
		}
		v, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			continue
		}
		out[fields[0]] = v
	}
	return out
}
