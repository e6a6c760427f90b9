// Package cpusetres is the cpuset resource specialisation: pins a
// container's allowed CPUs and memory nodes. It has no statistics
// beyond Spec and no supported notifications.
package cpusetres

import (
	"github.com/elispeigel/cgroupcore/cgroupfs"
	"github.com/elispeigel/cgroupcore/containerapi"
	"github.com/elispeigel/cgroupcore/resource"
	"github.com/elispeigel/cgroupcore/resource/cgroupres"
	"github.com/elispeigel/cgroupcore/status"
)

const (
	ctlCpus = "cpuset.cpus"
	ctlMems = "cpuset.mems"
)

func HierarchyType() cgroupfs.Hierarchy { return cgroupfs.Cpuset }

type Factory struct {
	cgroupres.FactoryBase
	cgroups *cgroupfs.Factory
}

func NewFactory(cgroups *cgroupfs.Factory) (*Factory, error) {
	if !cgroups.IsMounted(HierarchyType()) {
		return nil, status.New(status.NotFound, "Cpuset resource depends on the cpuset cgroup hierarchy")
	}
	f := &Factory{cgroups: cgroups}
	f.FactoryBase = cgroupres.NewFactoryBase(resource.Cpuset, f)
	return f, nil
}

func (f *Factory) GetResourceHandler(name containerapi.ContainerName) (resource.Handler, error) {
	c, err := f.cgroups.Get(HierarchyType(), cgroupres.OneToOnePath(name))
	if err != nil {
		return nil, err
	}
	return f.assemble(name, c)
}

func (f *Factory) CreateResourceHandler(name containerapi.ContainerName, spec *containerapi.ContainerSpec) (resource.Handler, error) {
	c, err := f.cgroups.Create(HierarchyType(), cgroupres.OneToOnePath(name))
	if err != nil {
		return nil, err
	}
	return f.assemble(name, c)
}

func (f *Factory) assemble(name containerapi.ContainerName, c cgroupfs.Controller) (resource.Handler, error) {
	base, err := cgroupres.NewBase(name, resource.Cpuset, map[cgroupfs.Hierarchy]cgroupfs.Controller{
		HierarchyType(): c,
	})
	if err != nil {
		return nil, err
	}
	return &Handler{Base: base}, nil
}

type Handler struct {
	*cgroupres.Base
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

	var cs *containerapi.CpusetSpec
	if spec != nil {
		cs = spec.Cpuset
	}
	if cs == nil {
		if policy == containerapi.Diff {
			return nil
		}
		cs = &containerapi.CpusetSpec{}
	}

	if err := cgroupres.ApplyIfSetString(c, ctlCpus, cs.Cpus); err != nil {
		return err
	}
	if err := cgroupres.ApplyIfSetString(c, ctlMems, cs.Mems); err != nil {
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
	cs := &containerapi.CpusetSpec{}
	if err := cgroupres.TryReadString(c, ctlCpus, &cs.Cpus); err != nil {
		return err
	}
	if err := cgroupres.TryReadString(c, ctlMems, &cs.Mems); err != nil {
		return err
	}
	out.Cpuset = cs
	return nil
}

func (h *Handler) Stats(statsType containerapi.StatsType, out *containerapi.ContainerStats) error {
	return h.Base.CheckLive()
}

func (h *Handler) RegisterNotification(eventSpec containerapi.EventSpec, cb containerapi.EventCallback) (containerapi.NotificationId, error) {
	if err := h.Base.CheckLive(); err != nil {
		return 0, err
	}
	return 0, status.New(status.NotFound, "no handled event found")
}
