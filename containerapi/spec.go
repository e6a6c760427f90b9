// Package containerapi defines the ContainerSpec, ContainerStats and
// EventSpec messages consumed and produced by resource handlers. Their
// schema is treated as externally owned by spec.md (the container
// name-service and its protobuf definitions); this package supplies the
// concrete Go shape those messages take inside this module, built the
// way the teacher's cgroup.Spec / Resources / CPU / Memory / BlkIO
// builder types are built.
package containerapi

// ContainerName is a '/'-separated logical container identifier,
// independent of any on-disk cgroup path. Root is "/".
type ContainerName string

// ContainerSpec carries the optional, per-resource configuration a
// Create or Update call wants applied. A nil sub-spec means "this
// resource type is not being configured by this call" under the Diff
// update policy. Under Replace a nil sub-spec is treated as an empty
// one: the filesystem handler then removes every bind mount it made,
// while the cgroup-backed handlers write nothing and their controls
// keep their current values.
type ContainerSpec struct {
	Memory     *MemorySpec
	CPU        *CPUSpec
	Cpuset     *CpusetSpec
	Blkio      *BlkioSpec
	Device     *DeviceSpec
	Monitoring *MonitoringSpec
	Filesystem *FilesystemSpec

	// Batch selects the class-folded cpu cgroup name-translation rule:
	// every batch container collapses onto a single shared "/batch"
	// cgroup instead of getting its own.
	Batch bool
}

// MemorySpec mirrors the teacher's Memory{Limit int} but generalises it
// to the full set of fields lmctfy's memory resource exposes.
type MemorySpec struct {
	LimitBytes     *int64
	SoftLimitBytes *int64
	SwapLimitBytes *int64
}

// CPUSpec generalises the teacher's CPU{Shares int}.
type CPUSpec struct {
	Shares          *int64
	PeriodMicros    *int64
	QuotaMicros     *int64
	RTPeriodMicros  *int64
	RTRuntimeMicros *int64
}

// CpusetSpec holds textual CPU/memory-node ranges, written verbatim to
// the cpuset controller the way the teacher's Cgroup.Set writes a
// value string straight to a control file.
type CpusetSpec struct {
	Cpus *string
	Mems *string
}

// BlkioSpec generalises the teacher's BlkIO{Weight int}.
type BlkioSpec struct {
	Weight      *int64
	DeviceLimit []DeviceIOLimit
}

// DeviceIOLimit bounds one block device's throughput or IOPS.
type DeviceIOLimit struct {
	Major, Minor int64
	ReadBps      *int64
	WriteBps     *int64
	ReadIOPS     *int64
	WriteIOPS    *int64
}

// DeviceSpec holds the allow/deny rule list for the devices cgroup.
type DeviceSpec struct {
	Rules []DeviceRule
}

// DeviceRule is a single devices.allow / devices.deny line.
type DeviceRule struct {
	Allow             bool
	Type              string // "a", "b", "c"
	Major, Minor      int64  // -1 means wildcard ("*")
	Access            string // subset of "rwm"
}

// MonitoringSpec is intentionally permissive: per spec.md 4.5 and 9,
// the exemplar Monitoring specialisation accepts any spec and succeeds
// without reading it. ProbeTarget is the one optional extension this
// module wires to an actual effect (see resource/monitoringres).
type MonitoringSpec struct {
	ProbeTarget string
}

// FilesystemSpec lists the bind mounts a Filesystem resource handler
// should expose inside the container's namespace.
type FilesystemSpec struct {
	BindMounts []BindMount
}

// BindMount is one source->target bind mount.
type BindMount struct {
	Source   string
	Target   string
	ReadOnly bool
}

// InitSpec is the one-shot, machine-wide configuration passed to
// InitMachine.
type InitSpec struct {
	CgroupRoot string
}
