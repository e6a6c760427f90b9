// Package deviceres is the devices resource specialisation
// (spec.md's Device resource type): an allow/deny rule list on the
// "devices" cgroup. The devices cgroup exports no statistics and
// supports no notifications, so both are no-ops here.
package deviceres

import (
	"fmt"
	"strings"

	"github.com/elispeigel/cgroupcore/cgroupfs"
	"github.com/elispeigel/cgroupcore/containerapi"
	"github.com/elispeigel/cgroupcore/resource"
	"github.com/elispeigel/cgroupcore/resource/cgroupres"
	"github.com/elispeigel/cgroupcore/status"
)

func HierarchyType() cgroupfs.Hierarchy { return cgroupfs.Devices }

type Factory struct {
	cgroupres.FactoryBase
	cgroups *cgroupfs.Factory
}

func NewFactory(cgroups *cgroupfs.Factory) (*Factory, error) {
	if !cgroups.IsMounted(HierarchyType()) {
		return nil, status.New(status.NotFound, "Device resource depends on the devices cgroup hierarchy")
	}
	f := &Factory{cgroups: cgroups}
	f.FactoryBase = cgroupres.NewFactoryBase(resource.Device, f)
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
	base, err := cgroupres.NewBase(name, resource.Device, map[cgroupfs.Hierarchy]cgroupfs.Controller{
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

	var d *containerapi.DeviceSpec
	if spec != nil {
		d = spec.Device
	}
	if d == nil {
		if policy == containerapi.Diff {
			return nil
		}
		return nil
	}

	for _, rule := range d.Rules {
		ctl := "devices.allow"
		if !rule.Allow {
			ctl = "devices.deny"
		}
		major := "*"
		if rule.Major >= 0 {
			major = fmt.Sprintf("%d", rule.Major)
		}
		minor := "*"
		if rule.Minor >= 0 {
			minor = fmt.Sprintf("%d", rule.Minor)
		}
		value := fmt.Sprintf("%s %s:%s %s", rule.Type, major, minor, rule.Access)
		if err := c.SetValue(ctl, value); err != nil {
			return err
		}
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
	raw, err := c.GetStat("devices.list")
	if err != nil {
		if status.Is(err, status.NotFound) {
			out.Device = &containerapi.DeviceSpec{}
			return nil
		}
		return err
	}
	out.Device = &containerapi.DeviceSpec{Rules: parseDeviceList(raw)}
	return nil
}

func parseDeviceList(raw string) []containerapi.DeviceRule {
	var rules []containerapi.DeviceRule
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var typ, majMin, access string
		if n, _ := fmt.Sscanf(line, "%s %s %s", &typ, &majMin, &access); n != 3 {
			continue
		}
		var major, minor int64
		if _, err := fmt.Sscanf(majMin, "%d:%d", &major, &minor); err != nil {
			major, minor = -1, -1
		}
		rules = append(rules, containerapi.DeviceRule{Allow: true, Type: typ, Major: major, Minor: minor, Access: access})
	}
	return rules
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
