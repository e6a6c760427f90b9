package blkiores_test

import (
	"testing"

	"github.com/elispeigel/cgroupcore/cgroupfs"
	"github.com/elispeigel/cgroupcore/cgroupfs/cgroupfstest"
	"github.com/elispeigel/cgroupcore/containerapi"
	"github.com/elispeigel/cgroupcore/resource"
	"github.com/elispeigel/cgroupcore/resource/blkiores"
	"github.com/elispeigel/cgroupcore/resource/cgroupres"
	"github.com/elispeigel/cgroupcore/status"
)

func newHandler(t *testing.T, files map[string]string) (*blkiores.Handler, *cgroupfstest.Controller) {
	t.Helper()
	c := cgroupfstest.New(cgroupfs.Blkio, "/sys/fs/cgroup/blkio/foo", files)
	base, err := cgroupres.NewBase("/foo", resource.Blkio, map[cgroupfs.Hierarchy]cgroupfs.Controller{
		cgroupfs.Blkio: c,
	})
	if err != nil {
		t.Fatalf("NewBase: %v", err)
	}
	return &blkiores.Handler{Base: base}, c
}

func TestUpdateAppliesWeightAndDeviceLimits(t *testing.T) {
	h, c := newHandler(t, map[string]string{"blkio.weight": "0"})
	readBps := int64(1048576)
	spec := &containerapi.ContainerSpec{Blkio: &containerapi.BlkioSpec{
		Weight: int64Ptr(500),
		DeviceLimit: []containerapi.DeviceIOLimit{
			{Major: 8, Minor: 0, ReadBps: &readBps},
		},
	}}
	if err := h.Update(spec, containerapi.Replace); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if v, _ := c.Get("blkio.weight"); v != "500" {
		t.Errorf("blkio.weight = %q, want 500", v)
	}
	if v, _ := c.Get("blkio.throttle.read_bps_device"); v != "8:0 1048576" {
		t.Errorf("read_bps_device = %q, want \"8:0 1048576\"", v)
	}
}

func TestStatsFullParsesDeviceCounters(t *testing.T) {
	h, _ := newHandler(t, map[string]string{
		"blkio.throttle.io_service_bytes": "8:0 Read 1024\n8:0 Write 2048\n8:0 Total 3072\n",
		"blkio.throttle.io_serviced":       "8:0 Read 4\n8:0 Write 6\n",
	})
	var out containerapi.ContainerStats
	if err := h.Stats(containerapi.Full, &out); err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if len(out.Blkio.ServiceBytes) != 3 {
		t.Errorf("expected 3 service-bytes counters, got %d", len(out.Blkio.ServiceBytes))
	}
	if len(out.Blkio.ServiceOps) != 2 {
		t.Errorf("expected 2 service-ops counters, got %d", len(out.Blkio.ServiceOps))
	}
}

func TestStatsSummarySkipsDeviceCounters(t *testing.T) {
	h, _ := newHandler(t, map[string]string{
		"blkio.throttle.io_service_bytes": "8:0 Read 1024\n",
	})
	var out containerapi.ContainerStats
	if err := h.Stats(containerapi.Summary, &out); err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if out.Blkio.ServiceBytes != nil {
		t.Error("expected Summary to skip per-device counters")
	}
}

func TestEveryReadOperationRejectedAfterDestroy(t *testing.T) {
	h, _ := newHandler(t, map[string]string{"blkio.weight": "0"})
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

func int64Ptr(v int64) *int64 { return &v }
