// Package resource defines the abstract ResourceHandlerFactory /
// ResourceHandler surface spec.md section 4.1/4.3 describes, kept
// independent of any cgroup-specific detail so a non-cgroup resource
// backend could implement the same contract.
package resource

import "github.com/elispeigel/cgroupcore/containerapi"

// Type is the closed enumeration of resource kinds this core manages.
// Each has exactly one factory and one handler implementation.
type Type int

const (
	CPU Type = iota
	Memory
	Cpuset
	Blkio
	Device
	Monitoring
	Filesystem
)

func (t Type) String() string {
	switch t {
	case CPU:
		return "cpu"
	case Memory:
		return "memory"
	case Cpuset:
		return "cpuset"
	case Blkio:
		return "blkio"
	case Device:
		return "device"
	case Monitoring:
		return "monitoring"
	case Filesystem:
		return "filesystem"
	default:
		return "unknown"
	}
}

// Handler is the per-(container, resource-type) handle spec.md section
// 4.3 defines. The cgroup-backed implementations embed cgroupres.Base
// for the default Enter/Destroy behaviour and add typed Update/Stats/Spec/
// RegisterNotification logic over their owned controllers.
type Handler interface {
	// Update reconciles the handler's controllers against spec
	// according to policy. Best-effort per field: a failure midway
	// through leaves earlier fields applied.
	Update(spec *containerapi.ContainerSpec, policy containerapi.UpdatePolicy) error
	// Stats fills out with the requested level of detail, silently
	// omitting any individual counter the kernel doesn't export. Fails
	// FailedPrecondition once the handler has been destroyed, rather
	// than degrading to an empty-but-OK result.
	Stats(statsType containerapi.StatsType, out *containerapi.ContainerStats) error
	// Spec fills out with the current effective configuration as read
	// back from the controllers, not the last-written spec. Fails
	// FailedPrecondition once the handler has been destroyed.
	Spec(out *containerapi.ContainerSpec) error
	// RegisterNotification subscribes cb to the condition described by
	// eventSpec. Returns NotFound if this handler handles no matching
	// event, FailedPrecondition if the handler has been destroyed. cb is
	// owned by the call: it is released deterministically on every exit
	// path, including failure.
	RegisterNotification(eventSpec containerapi.EventSpec, cb containerapi.EventCallback) (containerapi.NotificationId, error)
	// Create applies an initial spec; semantically Update(spec, Replace).
	Create(spec *containerapi.ContainerSpec) error
	// Enter moves the given thread ids into every owned controller.
	Enter(tids []int) error
	// Destroy tears down every owned controller and consumes the
	// handler. On error the handler remains live and may be retried.
	Destroy() error
}

// Factory is the per-resource-type entry point spec.md section 4.1
// describes.
type Factory interface {
	Get(name containerapi.ContainerName) (Handler, error)
	Create(name containerapi.ContainerName, spec *containerapi.ContainerSpec) (Handler, error)
	InitMachine(spec *containerapi.InitSpec) error
	// Type reports which resource kind this factory serves.
	Type() Type
}

// BaseFactory supplies the default no-op InitMachine every concrete
// factory embeds, per spec.md 4.1 ("one-shot machine-wide setup;
// default no-op").
type BaseFactory struct {
	ResourceType Type
}

func (b BaseFactory) Type() Type { return b.ResourceType }

func (b BaseFactory) InitMachine(spec *containerapi.InitSpec) error { return nil }
