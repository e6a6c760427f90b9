package machine

import (
	"time"

	"github.com/elispeigel/cgroupcore/cgroupfs"
	"github.com/elispeigel/cgroupcore/eventfd"
	"github.com/elispeigel/cgroupcore/internal/mountutil"
	"github.com/elispeigel/cgroupcore/kernelapi"
	"github.com/elispeigel/cgroupcore/resource"
	"github.com/elispeigel/cgroupcore/resource/blkiores"
	"github.com/elispeigel/cgroupcore/resource/cpures"
	"github.com/elispeigel/cgroupcore/resource/cpusetres"
	"github.com/elispeigel/cgroupcore/resource/deviceres"
	"github.com/elispeigel/cgroupcore/resource/filesystemres"
	"github.com/elispeigel/cgroupcore/resource/memoryres"
	"github.com/elispeigel/cgroupcore/resource/monitoringres"
	"go.uber.org/zap"
)

// notificationPollInterval is the eventfd poll loop's cadence. Short
// enough that a memory-threshold callback fires quickly, long enough
// that polling every container's controllers doesn't dominate CPU use
// on a host running many containers.
const notificationPollInterval = 500 * time.Millisecond

// Build constructs a Registry from every resource type this module
// supports, skipping (and logging) any whose hierarchy is not mounted
// rather than failing the whole process -- a host that lacks, say,
// perf_event should still get CPU and memory management. filesystemRoot
// is the bind-mount namespace root for the Filesystem resource.
func Build(filesystemRoot string) (*Registry, *eventfd.Dispatcher, error) {
	api := kernelapi.Default{}
	cgroups, err := cgroupfs.NewFactory(api)
	if err != nil {
		return nil, nil, err
	}

	dispatcher := eventfd.NewDispatcher(notificationPollInterval)

	var factories []resource.Factory
	add := func(name string, build func() (resource.Factory, error)) {
		f, err := build()
		if err != nil {
			zap.L().Warn("resource type unavailable on this kernel", zap.String("resource", name), zap.Error(err))
			return
		}
		factories = append(factories, f)
	}

	add("memory", func() (resource.Factory, error) { return memoryres.NewFactory(cgroups, dispatcher) })
	add("cpu", func() (resource.Factory, error) { return cpures.NewFactory(cgroups) })
	add("cpuset", func() (resource.Factory, error) { return cpusetres.NewFactory(cgroups) })
	add("blkio", func() (resource.Factory, error) { return blkiores.NewFactory(cgroups) })
	add("device", func() (resource.Factory, error) { return deviceres.NewFactory(cgroups) })
	add("monitoring", func() (resource.Factory, error) { return monitoringres.NewFactory(cgroups) })

	factories = append(factories, filesystemres.NewFactory(filesystemRoot, mountutil.Default{}))

	return NewRegistry(factories...), dispatcher, nil
}
