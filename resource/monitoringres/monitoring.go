// Package monitoringres is the exemplar degenerate specialisation
// spec.md section 4.5 describes: it owns a perf_event controller so
// the container's perf cgroup is created and destroyed in lock-step
// with the container, while Update/Stats/Spec are no-ops and
// RegisterNotification always fails NotFound.
//
// This module adds one optional, additive extension beyond the
// exemplar: when a spec names a ProbeTarget, Stats(Full) runs a
// best-effort ICMP reachability probe against it via
// github.com/prometheus-community/pro-bing, repurposed here from
// network-liveness checking to container-health checking. Absence of
// a probe target is not an error; a probe that gets no reply is
// recorded as ProbeReachable=false, and a probe that cannot run leaves
// the probe fields unset. Neither is surfaced as a Stats-level error, in
// keeping with "Stats never returns NotFound as its top-level status
// when at least one counter is readable."
package monitoringres

import (
	"time"

	"github.com/elispeigel/cgroupcore/cgroupfs"
	"github.com/elispeigel/cgroupcore/containerapi"
	"github.com/elispeigel/cgroupcore/resource"
	"github.com/elispeigel/cgroupcore/resource/cgroupres"
	"github.com/elispeigel/cgroupcore/status"
	probing "github.com/prometheus-community/pro-bing"
)

func HierarchyType() cgroupfs.Hierarchy { return cgroupfs.PerfEvent }

type Factory struct {
	cgroupres.FactoryBase
	cgroups *cgroupfs.Factory
}

func NewFactory(cgroups *cgroupfs.Factory) (*Factory, error) {
	if !cgroups.IsMounted(HierarchyType()) {
		return nil, status.New(status.NotFound, "Monitoring resource depends on the perf cgroup hierarchy")
	}
	f := &Factory{cgroups: cgroups}
	f.FactoryBase = cgroupres.NewFactoryBase(resource.Monitoring, f)
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
	base, err := cgroupres.NewBase(name, resource.Monitoring, map[cgroupfs.Hierarchy]cgroupfs.Controller{
		HierarchyType(): c,
	})
	if err != nil {
		return nil, err
	}
	return &Handler{Base: base}, nil
}

type Handler struct {
	*cgroupres.Base
	probeTarget string
}

// Create, Update and Spec all succeed as no-ops, per spec.md section
// 4.5. Open Question (spec.md section 9): whether accepting any spec
// unread is intentional or a stub is left unresolved there; this
// implementation preserves it verbatim, recording only ProbeTarget for
// Stats(Full)'s optional probe.
func (h *Handler) Create(spec *containerapi.ContainerSpec) error {
	return h.Update(spec, containerapi.Replace)
}

func (h *Handler) Update(spec *containerapi.ContainerSpec, policy containerapi.UpdatePolicy) error {
	h.Lock()
	defer h.Unlock()
	if err := h.Base.CheckLiveLocked(); err != nil {
		return err
	}
	if spec != nil && spec.Monitoring != nil {
		h.probeTarget = spec.Monitoring.ProbeTarget
	}
	return nil
}

func (h *Handler) Spec(out *containerapi.ContainerSpec) error {
	if err := h.Base.CheckLive(); err != nil {
		return err
	}
	out.Monitoring = &containerapi.MonitoringSpec{ProbeTarget: h.probeTarget}
	return nil
}

func (h *Handler) Stats(statsType containerapi.StatsType, out *containerapi.ContainerStats) error {
	if err := h.Base.CheckLive(); err != nil {
		return err
	}
	var s containerapi.MonitoringStats
	if statsType == containerapi.Full && h.probeTarget != "" {
		reachable, rtt, err := probe(h.probeTarget)
		if err == nil {
			s.ProbeReachable = reachable
			s.ProbeReachableOk = true
			s.ProbeRTTNanos = rtt
			s.ProbeRTTOk = true
		}
		// A probe failure (DNS, permissions, timeout) is not surfaced
		// as a Stats error: it behaves like an absent statistic.
	}
	out.Monitoring = s
	return nil
}

func probe(target string) (bool, int64, error) {
	pinger, err := probing.NewPinger(target)
	if err != nil {
		return false, 0, err
	}
	pinger.Count = 1
	pinger.Timeout = 2 * time.Second
	if err := pinger.Run(); err != nil {
		return false, 0, err
	}
	stats := pinger.Statistics()
	if stats.PacketsRecv == 0 {
		return false, 0, nil
	}
	return true, stats.AvgRtt.Nanoseconds(), nil
}

func (h *Handler) RegisterNotification(eventSpec containerapi.EventSpec, cb containerapi.EventCallback) (containerapi.NotificationId, error) {
	if err := h.Base.CheckLive(); err != nil {
		return 0, err
	}
	return 0, status.New(status.NotFound, "No handled event found")
}
