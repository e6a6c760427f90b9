package cgroupfs

import (
	"testing"

	"github.com/elispeigel/cgroupcore/kernelapi/kernelapitest"
	"github.com/elispeigel/cgroupcore/status"
)

const fakeMountinfo = `27 21 0:23 / /sys/fs/cgroup/memory rw,nosuid shared:4 - cgroup cgroup rw,memory
28 21 0:24 / /sys/fs/cgroup/cpu,cpuacct rw,nosuid shared:5 - cgroup cgroup rw,cpu,cpuacct
29 21 0:25 / /sys/fs/cgroup/cpuset rw,nosuid shared:6 - cgroup cgroup rw,cpuset
30 21 0:26 / /sys/fs/cgroup/blkio rw,nosuid shared:7 - cgroup cgroup rw,blkio
31 21 0:27 / /sys/fs/cgroup/devices rw,nosuid shared:8 - cgroup cgroup rw,devices
`

func newTestFactory(t *testing.T) (*Factory, *kernelapitest.FS) {
	t.Helper()
	api := kernelapitest.New().WithFile("/proc/self/mountinfo", fakeMountinfo)
	f, err := NewFactory(api)
	if err != nil {
		t.Fatalf("NewFactory: %v", err)
	}
	return f, api
}

func TestFactoryProbesMountedHierarchies(t *testing.T) {
	f, _ := newTestFactory(t)

	if !f.IsMounted(Memory) {
		t.Error("expected memory hierarchy to be mounted")
	}
	if !f.IsMounted(CPU) {
		t.Error("expected cpu hierarchy to be mounted")
	}
	if f.IsMounted(Freezer) {
		t.Error("expected freezer hierarchy to be reported unmounted")
	}
	if f.IsMounted(PerfEvent) {
		t.Error("expected perf_event hierarchy to be reported unmounted")
	}
}

func TestFactoryCreateThenGet(t *testing.T) {
	f, _ := newTestFactory(t)

	c, err := f.Create(Memory, "/foo")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if c.Path() != "/sys/fs/cgroup/memory/foo" {
		t.Errorf("unexpected controller path: %s", c.Path())
	}

	got, err := f.Get(Memory, "/foo")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Path() != c.Path() {
		t.Errorf("Get returned a different path: %s vs %s", got.Path(), c.Path())
	}
}

func TestFactoryCreateTwiceFailsAlreadyExists(t *testing.T) {
	f, _ := newTestFactory(t)

	if _, err := f.Create(Memory, "/foo"); err != nil {
		t.Fatalf("first Create: %v", err)
	}
	_, err := f.Create(Memory, "/foo")
	if !status.Is(err, status.AlreadyExists) {
		t.Fatalf("expected AlreadyExists, got %v", err)
	}
}

func TestFactoryGetMissingFailsNotFound(t *testing.T) {
	f, _ := newTestFactory(t)

	_, err := f.Get(Memory, "/does-not-exist")
	if !status.Is(err, status.NotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestFactoryUnmountedHierarchyFailsNotFound(t *testing.T) {
	f, _ := newTestFactory(t)

	_, err := f.Create(Freezer, "/foo")
	if !status.Is(err, status.NotFound) {
		t.Fatalf("expected NotFound for unmounted hierarchy, got %v", err)
	}
}
