// Package cpures is the CPU resource specialisation. It demonstrates
// both canonical name-translation rules spec.md section 4.2 names:
// ordinary containers map 1:1 onto their own cpu cgroup, while
// containers created with ContainerSpec.Batch set collapse onto a
// single shared "/batch" cgroup.
package cpures

import (
	"sync"

	"github.com/elispeigel/cgroupcore/cgroupfs"
	"github.com/elispeigel/cgroupcore/containerapi"
	"github.com/elispeigel/cgroupcore/resource"
	"github.com/elispeigel/cgroupcore/resource/cgroupres"
	"github.com/elispeigel/cgroupcore/status"
)

const (
	ctlShares      = "cpu.shares"
	ctlPeriod      = "cpu.cfs_period_us"
	ctlQuota       = "cpu.cfs_quota_us"
	ctlRTPeriod    = "cpu.rt_period_us"
	ctlRTRuntime   = "cpu.rt_runtime_us"
	ctlStat        = "cpu.stat"
)

func HierarchyType() cgroupfs.Hierarchy { return cgroupfs.CPU }

// Factory constructs CPU resource handlers. It tracks which container
// names were created under the batch-folded rule, since Get (spec.md
// section 4.1) receives no spec to re-derive the rule from -- an Open
// Question in spec.md resolved here by recording the assignment made
// at Create time (see DESIGN.md).
type Factory struct {
	cgroupres.FactoryBase
	cgroups *cgroupfs.Factory

	mu      sync.Mutex
	batched map[containerapi.ContainerName]bool
}

func NewFactory(cgroups *cgroupfs.Factory) (*Factory, error) {
	if !cgroups.IsMounted(HierarchyType()) {
		return nil, status.New(status.NotFound, "CPU resource depends on the cpu cgroup hierarchy")
	}
	f := &Factory{cgroups: cgroups, batched: make(map[containerapi.ContainerName]bool)}
	f.FactoryBase = cgroupres.NewFactoryBase(resource.CPU, f)
	return f, nil
}

func (f *Factory) pathFor(name containerapi.ContainerName) string {
	f.mu.Lock()
	batch := f.batched[name]
	f.mu.Unlock()
	if batch {
		return "/batch"
	}
	return cgroupres.OneToOnePath(name)
}

func (f *Factory) GetResourceHandler(name containerapi.ContainerName) (resource.Handler, error) {
	c, err := f.cgroups.Get(HierarchyType(), f.pathFor(name))
	if err != nil {
		return nil, err
	}
	return f.assemble(name, c)
}

func (f *Factory) CreateResourceHandler(name containerapi.ContainerName, spec *containerapi.ContainerSpec) (resource.Handler, error) {
	path := cgroupres.BatchFoldedPath(name, spec)
	batch := spec != nil && spec.Batch
	f.mu.Lock()
	f.batched[name] = batch
	f.mu.Unlock()

	var (
		c   cgroupfs.Controller
		err error
	)
	if batch {
		// The shared batch cgroup may already exist from an earlier
		// batch container; that is not AlreadyExists for this caller.
		c, err = f.cgroups.Get(HierarchyType(), path)
		if status.Is(err, status.NotFound) {
			c, err = f.cgroups.Create(HierarchyType(), path)
		}
	} else {
		c, err = f.cgroups.Create(HierarchyType(), path)
	}
	if err != nil {
		return nil, err
	}
	return f.assemble(name, c)
}

func (f *Factory) assemble(name containerapi.ContainerName, c cgroupfs.Controller) (resource.Handler, error) {
	base, err := cgroupres.NewBase(name, resource.CPU, map[cgroupfs.Hierarchy]cgroupfs.Controller{
		HierarchyType(): c,
	})
	if err != nil {
		return nil, err
	}
	return &Handler{Base: base}, nil
}

// Handler is the CPU resource's per-container handle.
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

	var cpu *containerapi.CPUSpec
	if spec != nil {
		cpu = spec.CPU
	}
	if cpu == nil {
		if policy == containerapi.Diff {
			return nil
		}
		cpu = &containerapi.CPUSpec{}
	}

	// A nil field is skipped under both policies: no write is made, so
	// the control keeps its current value (the kernel default in a
	// freshly created cgroup, or whatever an earlier Update wrote).
	// Replace does not reset it to a default.
	if err := cgroupres.ApplyIfSet(c, ctlShares, cpu.Shares); err != nil {
		return err
	}
	if err := cgroupres.ApplyIfSet(c, ctlPeriod, cpu.PeriodMicros); err != nil {
		return err
	}
	if err := cgroupres.ApplyIfSet(c, ctlQuota, cpu.QuotaMicros); err != nil {
		return err
	}
	if err := cgroupres.ApplyIfSet(c, ctlRTPeriod, cpu.RTPeriodMicros); err != nil {
		return err
	}
	if err := cgroupres.ApplyIfSet(c, ctlRTRuntime, cpu.RTRuntimeMicros); err != nil {
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
	cpu := &containerapi.CPUSpec{}
	for ctl, dst := range map[string]**int64{
		ctlShares:    &cpu.Shares,
		ctlPeriod:    &cpu.PeriodMicros,
		ctlQuota:     &cpu.QuotaMicros,
		ctlRTPeriod:  &cpu.RTPeriodMicros,
		ctlRTRuntime: &cpu.RTRuntimeMicros,
	} {
		v, err := cgroupfs.GetStatInt(c, ctl)
		if err != nil {
			if status.Is(err, status.NotFound) {
				continue
			}
			return err
		}
		*dst = &v
	}
	out.CPU = cpu
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
	var s containerapi.CPUStats
	if statsType == containerapi.Full {
		if err := readCPUStat(c, &s); err != nil {
			return err
		}
	}
	out.CPU = s
	return nil
}

// readCPUStat parses cpu.stat's key-value lines, tolerating kernels
// that export only a subset of the counters (the same absent-stat
// convention as a dedicated control file per counter, applied here to
// a multi-line one).
func readCPUStat(c cgroupfs.Controller, s *containerapi.CPUStats) error {
	raw, err := c.GetStat(ctlStat)
	if err != nil {
		if status.Is(err, status.NotFound) {
			return nil
		}
		return err
	}
	values := cgroupres.ParseKeyValue(raw)
	if v, ok := values["nr_throttled"]; ok {
		s.ThrottledCount = v
		s.ThrottledCountOk = true
	}
	if v, ok := values["throttled_time"]; ok {
		s.ThrottledTimeNanos = v
		s.ThrottledTimeOk = true
	}
	return nil
}

func (h *Handler) RegisterNotification(eventSpec containerapi.EventSpec, cb containerapi.EventCallback) (containerapi.NotificationId, error) {
	if err := h.Base.CheckLive(); err != nil {
		return 0, err
	}
	return 0, status.New(status.NotFound, "no handled event found")
}
