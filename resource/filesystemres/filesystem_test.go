package filesystemres_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/elispeigel/cgroupcore/containerapi"
	"github.com/elispeigel/cgroupcore/resource/filesystemres"
	"github.com/elispeigel/cgroupcore/status"
)

type fakeMounter struct {
	mu      sync.Mutex
	mounted map[string]string
}

func newFakeMounter() *fakeMounter {
	return &fakeMounter{mounted: make(map[string]string)}
}

func (m *fakeMounter) BindMount(root, source, target string, readOnly bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mounted[target] = source
	return nil
}

func (m *fakeMounter) Unmount(root, target string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.mounted[target]; !ok {
		return fmt.Errorf("not mounted: %s", target)
	}
	delete(m.mounted, target)
	return nil
}

func TestCreateMountsBindMounts(t *testing.T) {
	mounter := newFakeMounter()
	f := filesystemres.NewFactory("/var/lib/containers/foo", mounter)

	spec := &containerapi.ContainerSpec{Filesystem: &containerapi.FilesystemSpec{
		BindMounts: []containerapi.BindMount{{Source: "/host/data", Target: "/data", ReadOnly: true}},
	}}
	h, err := f.Create("/foo", spec)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	var out containerapi.ContainerStats
	if err := h.Stats(containerapi.Full, &out); err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if len(out.Filesystem.Mounts) != 1 || out.Filesystem.Mounts[0].Target != "/data" {
		t.Errorf("unexpected mounts: %+v", out.Filesystem.Mounts)
	}
}

func TestCreateTwiceFailsAlreadyExists(t *testing.T) {
	mounter := newFakeMounter()
	f := filesystemres.NewFactory("/root", mounter)
	if _, err := f.Create("/foo", &containerapi.ContainerSpec{}); err != nil {
		t.Fatalf("first Create: %v", err)
	}
	if _, err := f.Create("/foo", &containerapi.ContainerSpec{}); !status.Is(err, status.AlreadyExists) {
		t.Fatalf("expected AlreadyExists, got %v", err)
	}
}

func TestReplaceUnmountsThenRemounts(t *testing.T) {
	mounter := newFakeMounter()
	f := filesystemres.NewFactory("/root", mounter)
	h, err := f.Create("/foo", &containerapi.ContainerSpec{Filesystem: &containerapi.FilesystemSpec{
		BindMounts: []containerapi.BindMount{{Source: "/a", Target: "/x"}},
	}})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := h.Update(&containerapi.ContainerSpec{Filesystem: &containerapi.FilesystemSpec{
		BindMounts: []containerapi.BindMount{{Source: "/b", Target: "/y"}},
	}}, containerapi.Replace); err != nil {
		t.Fatalf("Update: %v", err)
	}

	var out containerapi.ContainerSpec
	if err := h.Spec(&out); err != nil {
		t.Fatalf("Spec: %v", err)
	}
	if len(out.Filesystem.BindMounts) != 1 || out.Filesystem.BindMounts[0].Target != "/y" {
		t.Errorf("expected Replace to swap the mount table, got %+v", out.Filesystem.BindMounts)
	}
}

func TestDestroyUnmountsEverythingAndConsumesHandler(t *testing.T) {
	mounter := newFakeMounter()
	f := filesystemres.NewFactory("/root", mounter)
	h, err := f.Create("/foo", &containerapi.ContainerSpec{Filesystem: &containerapi.FilesystemSpec{
		BindMounts: []containerapi.BindMount{{Source: "/a", Target: "/x"}},
	}})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := h.Destroy(); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	if len(mounter.mounted) != 0 {
		t.Errorf("expected Destroy to unmount everything, got %v", mounter.mounted)
	}
	if err := h.Enter([]int{1}); !status.Is(err, status.FailedPrecondition) {
		t.Fatalf("expected operations on a destroyed handler to fail FailedPrecondition, got %v", err)
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

func TestGetMissingContainerIsNotFound(t *testing.T) {
	f := filesystemres.NewFactory("/root", newFakeMounter())
	if _, err := f.Get("/nope"); !status.Is(err, status.NotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}
