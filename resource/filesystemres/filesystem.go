// Package filesystemres is the Filesystem resource specialisation
// (spec.md's data model names Filesystem in the closed ResourceType
// enumeration but never specialises it in the component sketch; this
// module supplements it per original_source/lmctfy's reservation of
// the resource for mount bookkeeping). Unlike every other
// specialisation, Filesystem has no backing cgroup controller -- there
// is no "filesystem" cgroup hierarchy -- so it does not embed
// cgroupres.Base: Enter is a no-op and Destroy unmounts the bind
// mounts the handler made, rather than delegating to owned
// controllers. This is a deliberate, documented exception to
// spec.md invariant 1 ("every handler owns >=1 controller"); see
// DESIGN.md.
package filesystemres

import (
	"sync"

	"github.com/elispeigel/cgroupcore/containerapi"
	"github.com/elispeigel/cgroupcore/internal/mountutil"
	"github.com/elispeigel/cgroupcore/resource"
	"github.com/elispeigel/cgroupcore/status"
)

// Factory constructs Filesystem resource handlers. It has no hierarchy
// precondition to check at construction, since it depends on no
// cgroup subsystem; it is always "supported."
type Factory struct {
	resource.BaseFactory
	root     string
	handler  mountutil.Handler

	mu     sync.Mutex
	byName map[containerapi.ContainerName]*Handler
}

// NewFactory builds a Filesystem factory rooted at root (the
// container's bind-mount namespace root).
func NewFactory(root string, handler mountutil.Handler) *Factory {
	return &Factory{
		BaseFactory: resource.BaseFactory{ResourceType: resource.Filesystem},
		root:        root,
		handler:     handler,
		byName:      make(map[containerapi.ContainerName]*Handler),
	}
}

func (f *Factory) Get(name containerapi.ContainerName) (resource.Handler, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	h, ok := f.byName[name]
	if !ok {
		return nil, status.New(status.NotFound, "no filesystem handler for %s", name)
	}
	return h, nil
}

func (f *Factory) Create(name containerapi.ContainerName, spec *containerapi.ContainerSpec) (resource.Handler, error) {
	f.mu.Lock()
	if _, exists := f.byName[name]; exists {
		f.mu.Unlock()
		return nil, status.New(status.AlreadyExists, "filesystem handler for %s already exists", name)
	}
	h := &Handler{root: f.root, handler: f.handler}
	f.byName[name] = h
	f.mu.Unlock()

	if err := h.Create(spec); err != nil {
		f.mu.Lock()
		delete(f.byName, name)
		f.mu.Unlock()
		return nil, err
	}
	return h, nil
}

// Handler is the Filesystem resource's per-container handle. It tracks
// the bind mounts it has created so Destroy can unwind them.
type Handler struct {
	mu        sync.Mutex
	root      string
	handler   mountutil.Handler
	mounts    []containerapi.BindMount
	destroyed bool
}

func (h *Handler) checkLiveLocked() error {
	if h.destroyed {
		return status.New(status.FailedPrecondition, "filesystem handler already destroyed")
	}
	return nil
}

func (h *Handler) Create(spec *containerapi.ContainerSpec) error {
	return h.Update(spec, containerapi.Replace)
}

func (h *Handler) Update(spec *containerapi.ContainerSpec, policy containerapi.UpdatePolicy) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.checkLiveLocked(); err != nil {
		return err
	}

	var fs *containerapi.FilesystemSpec
	if spec != nil {
		fs = spec.Filesystem
	}
	if fs == nil {
		if policy == containerapi.Diff {
			return nil
		}
		fs = &containerapi.FilesystemSpec{}
	}

	if policy == containerapi.Replace {
		for _, m := range h.mounts {
			if err := h.handler.Unmount(h.root, m.Target); err != nil {
				return err
			}
		}
		h.mounts = nil
	}

	for _, m := range fs.BindMounts {
		if err := h.handler.BindMount(h.root, m.Source, m.Target, m.ReadOnly); err != nil {
			return err
		}
		h.mounts = append(h.mounts, m)
	}
	return nil
}

func (h *Handler) Spec(out *containerapi.ContainerSpec) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.checkLiveLocked(); err != nil {
		return err
	}
	out.Filesystem = &containerapi.FilesystemSpec{BindMounts: append([]containerapi.BindMount(nil), h.mounts...)}
	return nil
}

func (h *Handler) Stats(statsType containerapi.StatsType, out *containerapi.ContainerStats) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.checkLiveLocked(); err != nil {
		return err
	}
	out.Filesystem = containerapi.FilesystemStats{Mounts: append([]containerapi.BindMount(nil), h.mounts...)}
	return nil
}

func (h *Handler) RegisterNotification(eventSpec containerapi.EventSpec, cb containerapi.EventCallback) (containerapi.NotificationId, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.checkLiveLocked(); err != nil {
		return 0, err
	}
	return 0, status.New(status.NotFound, "no handled event found")
}

// Enter is a no-op: there is no cgroup controller to move a tid into.
func (h *Handler) Enter(tids []int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.checkLiveLocked()
}

func (h *Handler) Destroy() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.checkLiveLocked(); err != nil {
		return err
	}
	for _, m := range h.mounts {
		if err := h.handler.Unmount(h.root, m.Target); err != nil {
			return err
		}
	}
	h.mounts = nil
	h.destroyed = true
	return nil
}
