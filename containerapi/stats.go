package containerapi

// ContainerStats mirrors ContainerSpec's shape with value fields per
// counter. Each counter has an *Ok companion so the absent-stat
// convention (a kernel that doesn't export a counter) has somewhere to
// record "unset" without forcing a second round trip or a pointer
// allocation per field.
type ContainerStats struct {
	Memory     MemoryStats
	CPU        CPUStats
	Blkio      BlkioStats
	Monitoring MonitoringStats
	Filesystem FilesystemStats
}

type MemoryStats struct {
	UsageBytes       int64
	UsageBytesOk     bool
	MaxUsageBytes    int64
	MaxUsageBytesOk  bool
	SwapUsageBytes   int64
	SwapUsageBytesOk bool
	FailCount        int64
	FailCountOk      bool
}

type CPUStats struct {
	ThrottledCount     int64
	ThrottledCountOk   bool
	ThrottledTimeNanos int64
	ThrottledTimeOk    bool
}

type BlkioStats struct {
	ServiceBytes   []DeviceCounter
	ServiceOps     []DeviceCounter
}

type DeviceCounter struct {
	Major, Minor int64
	Op           string // "Read", "Write", "Sync", "Async", "Total"
	Value        int64
}

type MonitoringStats struct {
	ProbeReachable   bool
	ProbeReachableOk bool
	ProbeRTTNanos    int64
	ProbeRTTOk       bool
}

type FilesystemStats struct {
	Mounts []BindMount
}

// StatsType selects how much of ContainerStats a Stats call fills in.
type StatsType int

const (
	// Summary fills only cheaply-readable counters.
	Summary StatsType = iota
	// Full reads every exported statistic.
	Full
)

// UpdatePolicy controls how Update reconciles a spec against the
// controllers' current configuration.
type UpdatePolicy int

const (
	// Replace writes every field set in the spec. The filesystem
	// handler replaces its whole mount table; the cgroup-backed
	// handlers skip unset fields, which keep their current values and
	// are not reset to defaults.
	Replace UpdatePolicy = iota
	// Diff applies only fields explicitly set in the spec, leaving
	// others untouched.
	Diff
)
