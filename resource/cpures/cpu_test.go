package cpures_test

import (
	"testing"

	"github.com/elispeigel/cgroupcore/cgroupfs"
	"github.com/elispeigel/cgroupcore/containerapi"
	"github.com/elispeigel/cgroupcore/kernelapi/kernelapitest"
	"github.com/elispeigel/cgroupcore/resource/cpures"
	"github.com/elispeigel/cgroupcore/status"
)

const fakeMountinfo = `28 21 0:24 / /sys/fs/cgroup/cpu rw,nosuid shared:5 - cgroup cgroup rw,cpu
`

func newTestFactory(t *testing.T) *cpures.Factory {
	t.Helper()
	api := kernelapitest.New().
		WithFile("/proc/self/mountinfo", fakeMountinfo).
		WithDir("/sys/fs/cgroup/cpu").
		WithFile("/sys/fs/cgroup/cpu/cpu.shares", "1024")
	cgroups, err := cgroupfs.NewFactory(api)
	if err != nil {
		t.Fatalf("cgroupfs.NewFactory: %v", err)
	}
	f, err := cpures.NewFactory(cgroups)
	if err != nil {
		t.Fatalf("cpures.NewFactory: %v", err)
	}
	return f
}

func TestOrdinaryContainerGetsItsOwnCgroup(t *testing.T) {
	f := newTestFactory(t)
	h, err := f.Create("/foo", &containerapi.ContainerSpec{})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	_ = h

	got, err := f.Get("/foo")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil {
		t.Fatal("expected Get to find the container created above")
	}
}

func TestBatchContainersShareOneCgroup(t *testing.T) {
	f := newTestFactory(t)

	shares := int64(512)
	spec := &containerapi.ContainerSpec{Batch: true, CPU: &containerapi.CPUSpec{Shares: &shares}}

	if _, err := f.Create("/batch-a", spec); err != nil {
		t.Fatalf("Create batch-a: %v", err)
	}
	if _, err := f.Create("/batch-b", spec); err != nil {
		t.Fatalf("Create batch-b: %v", err)
	}

	// Get must re-derive the batch-folded path from the factory's own
	// bookkeeping, since Get receives no spec.
	a, err := f.Get("/batch-a")
	if err != nil {
		t.Fatalf("Get batch-a: %v", err)
	}
	b, err := f.Get("/batch-b")
	if err != nil {
		t.Fatalf("Get batch-b: %v", err)
	}

	var aSpec, bSpec containerapi.ContainerSpec
	if err := a.Spec(&aSpec); err != nil {
		t.Fatalf("a.Spec: %v", err)
	}
	if err := b.Spec(&bSpec); err != nil {
		t.Fatalf("b.Spec: %v", err)
	}
	if *aSpec.CPU.Shares != *bSpec.CPU.Shares {
		t.Error("expected both batch containers to read back the same shared cgroup's shares")
	}
}

func TestUpdateDiffLeavesUnsetFieldsAlone(t *testing.T) {
	f := newTestFactory(t)
	shares := int64(256)
	h, err := f.Create("/foo", &containerapi.ContainerSpec{CPU: &containerapi.CPUSpec{Shares: &shares}})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := h.Update(&containerapi.ContainerSpec{}, containerapi.Diff); err != nil {
		t.Fatalf("Update with an empty Diff spec: %v", err)
	}

	var out containerapi.ContainerSpec
	if err := h.Spec(&out); err != nil {
		t.Fatalf("Spec: %v", err)
	}
	if out.CPU.Shares == nil || *out.CPU.Shares != shares {
		t.Errorf("expected shares to remain %d after a no-op Diff update, got %v", shares, out.CPU.Shares)
	}
}

func TestEveryReadOperationRejectedAfterDestroy(t *testing.T) {
	f := newTestFactory(t)
	h, err := f.Create("/foo", &containerapi.ContainerSpec{})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := h.Destroy(); err != nil {
		t.Fatalf("Destroy: %v", err)
	}

	var out containerapi.ContainerSpec
	if err := h.Spec(&out); !status.Is(err, status.FailedPrecondition) {
		t.Errorf("expected Spec on a destroyed handler to fail FailedPrecondition, got %v", err)
	}
	var stats containerapi.ContainerStats
	if err := h.Stats(containerapi.Full, &stats); !status.Is(err, status.FailedPrecondition) {
		t.Errorf("expected Stats on a destroyed handler to fail FailedPrecondition, got %v", err)
	}
	if _, err := h.RegisterNotification(containerapi.EventSpec{}, nil); !status.Is(err, status.FailedPrecondition) {
		t.Errorf("expected RegisterNotification on a destroyed handler to fail FailedPrecondition, got %v", err)
	}
}
