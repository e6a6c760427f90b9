// Package cgroupfs is the concrete cgroup-filesystem driver this
// module stands in for the "controller layer" spec.md declares an
// external collaborator. It exposes get/set, enter and destroy per
// cgroup directory (notifications live in package eventfd), grounded in the teacher's internal/container/cgroup
// subsystem.go / file_handler.go split, generalised from three
// hard-coded subsystems to the full Hierarchy enumeration spec.md's
// data model names.
package cgroupfs

// Hierarchy identifies a kernel cgroup subsystem mount.
type Hierarchy string

const (
	Memory    Hierarchy = "memory"
	CPU       Hierarchy = "cpu"
	Cpuset    Hierarchy = "cpuset"
	Blkio     Hierarchy = "blkio"
	Devices   Hierarchy = "devices"
	Freezer   Hierarchy = "freezer"
	PerfEvent Hierarchy = "perf_event"
)

func (h Hierarchy) String() string { return string(h) }
