// Package blkiores is the block I/O resource specialisation: the
// "blkio" cgroup hierarchy, generalising the teacher's BlkIOSubsystem
// (a single weight scalar) to per-device throughput/IOPS limits and
// the service-bytes/service-ops counters blkio exports.
package blkiores

import (
	"fmt"
	"strings"

	"github.com/elispeigel/cgroupcore/cgroupfs"
	"github.com/elispeigel/cgroupcore/containerapi"
	"github.com/elispeigel/cgroupcore/resource"
	"github.com/elispeigel/cgroupcore/resource/cgroupres"
	"github.com/elispeigel/cgroupcore/status"
)

const (
	ctlWeight        = "blkio.weight"
	ctlReadBps       = "blkio.throttle.read_bps_device"
	ctlWriteBps      = "blkio.throttle.write_bps_device"
	ctlReadIOPS      = "blkio.throttle.read_iops_device"
	ctlWriteIOPS     = "blkio.throttle.write_iops_device"
	ctlServiceBytes  = "blkio.throttle.io_service_bytes"
	ctlServiceOps    = "blkio.throttle.io_serviced"
)

func HierarchyType() cgroupfs.Hierarchy { return cgroupfs.Blkio }

type Factory struct {
	cgroupres.FactoryBase
	cgroups *cgroupfs.Factory
}

func NewFactory(cgroups *cgroupfs.Factory) (*Factory, error) {
	if !cgroups.IsMounted(HierarchyType()) {
		return nil, status.New(status.NotFound, "Blkio resource depends on the blkio cgroup hierarchy")
	}
	f := &Factory{cgroups: cgroups}
	f.FactoryBase = cgroupres.NewFactoryBase(resource.Blkio, f)
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
	base, err := cgroupres.NewBase(name, resource.Blkio, map[cgroupfs.Hierarchy]cgroupfs.Controller{
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

	var b *containerapi.BlkioSpec
	if spec != nil {
		b = spec.Blkio
	}
	if b == nil {
		if policy == containerapi.Diff {
			return nil
		}
		b = &containerapi.BlkioSpec{}
	}

	if err := cgroupres.ApplyIfSet(c, ctlWeight, b.Weight); err != nil {
		return err
	}
	for _, lim := range b.DeviceLimit {
		dev := fmt.Sprintf("%d:%d", lim.Major, lim.Minor)
		if err := applyDeviceLimit(c, ctlReadBps, dev, lim.ReadBps); err != nil {
			return err
		}
		if err := applyDeviceLimit(c, ctlWriteBps, dev, lim.WriteBps); err != nil {
			return err
		}
		if err := applyDeviceLimit(c, ctlReadIOPS, dev, lim.ReadIOPS); err != nil {
			return err
		}
		if err := applyDeviceLimit(c, ctlWriteIOPS, dev, lim.WriteIOPS); err != nil {
			return err
		}
	}
	return nil
}

func applyDeviceLimit(c cgroupfs.Controller, ctl, dev string, limit *int64) error {
	if limit == nil {
		return nil
	}
	return c.SetValue(ctl, fmt.Sprintf("%s %d", dev, *limit))
}

func (h *Handler) Spec(out *containerapi.ContainerSpec) error {
	if err := h.Base.CheckLive(); err != nil {
		return err
	}
	c, err := h.controller()
	if err != nil {
		return err
	}
	b := &containerapi.BlkioSpec{}
	if v, err := cgroupfs.GetStatInt(c, ctlWeight); err == nil {
		b.Weight = &v
	} else if !status.Is(err, status.NotFound) {
		return err
	}
	out.Blkio = b
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
	var s containerapi.BlkioStats
	if statsType == containerapi.Full {
		bytes, err := readDeviceCounters(c, ctlServiceBytes)
		if err != nil {
			return err
		}
		ops, err := readDeviceCounters(c, ctlServiceOps)
		if err != nil {
			return err
		}
		s.ServiceBytes = bytes
		s.ServiceOps = ops
	}
	out.Blkio = s
	return nil
}

// readDeviceCounters parses blkio's "major:minor Op value" line format.
// A missing control file is the absent-stat case; a malformed line is
// skipped rather than aborting the whole read, matching the teacher's
// GetStats tolerance for trailing garbage lines in cgroup files.
func readDeviceCounters(c cgroupfs.Controller, ctl string) ([]containerapi.DeviceCounter, error) {
	raw, err := c.GetStat(ctl)
	if err != nil {
		if status.Is(err, status.NotFound) {
			return nil, nil
		}
		return nil, err
	}
	var out []containerapi.DeviceCounter
	for _, line := range strings.Split(raw, "\n") {
		var major, minor int64
		var op string
		var value int64
		if n, _ := fmt.Sscanf(line, "%d:%d %s %d", &major, &minor, &op, &value); n != 4 {
			continue
		}
		out = append(out, containerapi.DeviceCounter{Major: major, Minor: minor, Op: op, Value: value})
	}
	return out, nil
}

func (h *Handler) RegisterNotification(eventSpec containerapi.EventSpec, cb containerapi.EventCallback) (containerapi.NotificationId, error) {
	if err := h.Base.CheckLive(); err != nil {
		return 0, err
	}
	return 0, status.New(status.NotFound, "no handled event found")
}
