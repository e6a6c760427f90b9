// Package memoryres is the memory resource specialisation: the
// "memory" cgroup hierarchy, generalising the teacher's
// MemorySubsystem (which only ever wrote memory.limit_in_bytes) to the
// full spec/stats/notification surface spec.md section 4.5 calls for.
package memoryres

import (
	"strings"
	"sync/atomic"

	"github.com/elispeigel/cgroupcore/cgroupfs"
	"github.com/elispeigel/cgroupcore/containerapi"
	"github.com/elispeigel/cgroupcore/eventfd"
	"github.com/elispeigel/cgroupcore/resource"
	"github.com/elispeigel/cgroupcore/resource/cgroupres"
	"github.com/elispeigel/cgroupcore/status"
)

const (
	ctlLimit     = "memory.limit_in_bytes"
	ctlSoftLimit = "memory.soft_limit_in_bytes"
	ctlSwapLimit = "memory.memsw.limit_in_bytes"
	ctlUsage     = "memory.usage_in_bytes"
	ctlMaxUsage  = "memory.max_usage_in_bytes"
	ctlSwapUsage = "memory.memsw.usage_in_bytes"
	ctlFailcnt   = "memory.failcnt"
)

// HierarchyType is the single cgroup hierarchy this resource depends
// on, checked by the factory constructor per spec.md section 4.5.
func HierarchyType() cgroupfs.Hierarchy { return cgroupfs.Memory }

// Factory constructs memory resource handlers.
type Factory struct {
	cgroupres.FactoryBase
	cgroups    *cgroupfs.Factory
	dispatcher *eventfd.Dispatcher
}

// NewFactory fails NotFound if the memory hierarchy is not mounted,
// per spec.md section 4.1's "resource must be supported on this
// kernel" precondition.
func NewFactory(cgroups *cgroupfs.Factory, dispatcher *eventfd.Dispatcher) (*Factory, error) {
	if !cgroups.IsMounted(HierarchyType()) {
		return nil, status.New(status.NotFound, "Memory resource depends on the memory cgroup hierarchy")
	}
	f := &Factory{cgroups: cgroups, dispatcher: dispatcher}
	f.FactoryBase = cgroupres.NewFactoryBase(resource.Memory, f)
	return f, nil
}

func (f *Factory) GetResourceHandler(name containerapi.ContainerName) (resource.Handler, error) {
	path := cgroupres.OneToOnePath(name)
	c, err := f.cgroups.Get(HierarchyType(), path)
	if err != nil {
		return nil, err
	}
	return f.assemble(name, c)
}

func (f *Factory) CreateResourceHandler(name containerapi.ContainerName, spec *containerapi.ContainerSpec) (resource.Handler, error) {
	path := cgroupres.OneToOnePath(name)
	c, err := f.cgroups.Create(HierarchyType(), path)
	if err != nil {
		return nil, err
	}
	return f.assemble(name, c)
}

func (f *Factory) assemble(name containerapi.ContainerName, c cgroupfs.Controller) (resource.Handler, error) {
	base, err := cgroupres.NewBase(name, resource.Memory, map[cgroupfs.Hierarchy]cgroupfs.Controller{
		HierarchyType(): c,
	})
	if err != nil {
		return nil, err
	}
	return &Handler{Base: base, dispatcher: f.dispatcher}, nil
}

// Handler is the memory resource's per-container handle.
type Handler struct {
	*cgroupres.Base
	dispatcher *eventfd.Dispatcher
}

func (h *Handler) controller() (cgroupfs.Controller, error) {
	return h.Controller(HierarchyType())
}

func (h *Handler) Create(spec *containerapi.ContainerSpec) error {
	return h.Update(spec, containerapi.Replace)
}

func (h *Handler) Update(spec *containerapi.ContainerSpec, policy containerapi.UpdatePolicy) error {
	h.Lock()
	defer h.Unlock()
	if err := h.Base.CheckLiveLocked(); err != nil {
		return err
	}
	c, err := h.controller()
	if err != nil {
		return err
	}

	var m *containerapi.MemorySpec
	if spec != nil {
		m = spec.Memory
	}
	if m == nil {
		if policy == containerapi.Diff {
			return nil
		}
		m = &containerapi.MemorySpec{}
	}

	if err := cgroupres.ApplyIfSet(c, ctlLimit, m.LimitBytes); err != nil {
		return err
	}
	if err := cgroupres.ApplyIfSet(c, ctlSoftLimit, m.SoftLimitBytes); err != nil {
		return err
	}
	if err := cgroupres.ApplyIfSet(c, ctlSwapLimit, m.SwapLimitBytes); err != nil {
		return err
	}
	return nil
}

func (h *Handler) Spec(out *containerapi.ContainerSpec) error {
	if err := h.Base.CheckLive(); err != nil {
		return err
	}
	c, err := h.controller()
	if err != nil {
		return err
	}
	m := &containerapi.MemorySpec{}
	if v, err := cgroupfs.GetStatInt(c, ctlLimit); err == nil {
		m.LimitBytes = &v
	} else if !status.Is(err, status.NotFound) {
		return err
	}
	if v, err := cgroupfs.GetStatInt(c, ctlSoftLimit); err == nil {
		m.SoftLimitBytes = &v
	} else if !status.Is(err, status.NotFound) {
		return err
	}
	if v, err := cgroupfs.GetStatInt(c, ctlSwapLimit); err == nil {
		m.SwapLimitBytes = &v
	} else if !status.Is(err, status.NotFound) {
		return err
	}
	out.Memory = m
	return nil
}

func (h *Handler) Stats(statsType containerapi.StatsType, out *containerapi.ContainerStats) error {
	if err := h.Base.CheckLive(); err != nil {
		return err
	}
	c, err := h.controller()
	if err != nil {
		return err
	}
	var s containerapi.MemoryStats
	if err := cgroupres.TryReadInt(c, ctlUsage, &s.UsageBytes, &s.UsageBytesOk); err != nil {
		return err
	}
	if statsType == containerapi.Full {
		if err := cgroupres.TryReadInt(c, ctlMaxUsage, &s.MaxUsageBytes, &s.MaxUsageBytesOk); err != nil {
			return err
		}
		if err := cgroupres.TryReadInt(c, ctlSwapUsage, &s.SwapUsageBytes, &s.SwapUsageBytesOk); err != nil {
			return err
		}
		if err := cgroupres.TryReadInt(c, ctlFailcnt, &s.FailCount, &s.FailCountOk); err != nil {
			return err
		}
	}
	out.Memory = s
	return nil
}

// RegisterNotification supports MemoryThreshold (repeatable) and OOM
// (repeatable); any other EventSpec variant is NotFound per spec.md
// section 4.3.
func (h *Handler) RegisterNotification(eventSpec containerapi.EventSpec, cb containerapi.EventCallback) (containerapi.NotificationId, error) {
	if err := h.Base.CheckLive(); err != nil {
		return 0, err
	}
	c, err := h.controller()
	if err != nil {
		return 0, err
	}

	switch {
	case eventSpec.MemoryThreshold != nil:
		threshold := eventSpec.MemoryThreshold.ThresholdBytes
		// above holds the previous poll's result, so the callback fires
		// once per upward crossing rather than on every poll above it.
		var above atomic.Bool
		id := h.dispatcher.Register(c, eventSpec, func(ctl cgroupfs.Controller) (bool, bool, error) {
			usage, err := cgroupfs.GetStatInt(ctl, ctlUsage)
			if err != nil {
				return false, false, err
			}
			now := usage >= threshold
			return now && !above.Swap(now), true, nil
		}, cb)
		return id, nil
	case eventSpec.OOM != nil:
		id := h.dispatcher.Register(c, eventSpec, func(ctl cgroupfs.Controller) (bool, bool, error) {
			raw, err := ctl.GetStat("memory.oom_control")
			if err != nil {
				return false, false, err
			}
			return strings.Contains(raw, "under_oom 1"), true, nil
		}, cb)
		return id, nil
	default:
		return 0, status.New(status.NotFound, "no handled event found")
	}
}
