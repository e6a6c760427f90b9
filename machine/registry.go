// Package machine wires the concrete resource factories into the
// process-wide registry a container name-service would hold: one
// factory per ResourceType, built once at process init and shared for
// the process's lifetime (spec.md section 3's Factory lifecycle).
package machine

import (
	"github.com/elispeigel/cgroupcore/containerapi"
	"github.com/elispeigel/cgroupcore/resource"
	"github.com/elispeigel/cgroupcore/status"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Registry dispatches Get/Create to the factory registered for a
// ResourceType, the behaviour the external container name-service
// built atop this core performs per container resource.
type Registry struct {
	factories map[resource.Type]resource.Factory
}

// NewRegistry builds a registry from the given (non-nil) factories. A
// resource type with no registered factory surfaces as Unavailable
// when the caller later asks for it.
func NewRegistry(factories ...resource.Factory) *Registry {
	r := &Registry{factories: make(map[resource.Type]resource.Factory, len(factories))}
	for _, f := range factories {
		r.factories[f.Type()] = f
	}
	return r
}

func (r *Registry) factoryFor(t resource.Type) (resource.Factory, error) {
	f, ok := r.factories[t]
	if !ok {
		return nil, status.New(status.Unavailable, "no factory registered for resource type %s", t)
	}
	return f, nil
}

// Get dispatches to the factory for resourceType.
func (r *Registry) Get(resourceType resource.Type, name containerapi.ContainerName) (resource.Handler, error) {
	f, err := r.factoryFor(resourceType)
	if err != nil {
		return nil, err
	}
	return f.Get(name)
}

// Create dispatches to the factory for resourceType.
func (r *Registry) Create(resourceType resource.Type, name containerapi.ContainerName, spec *containerapi.ContainerSpec) (resource.Handler, error) {
	f, err := r.factoryFor(resourceType)
	if err != nil {
		return nil, err
	}
	return f.Create(name, spec)
}

// InitMachine fans the one-shot machine-wide setup call out to every
// registered factory, stamping a correlation id on the log line so
// multiple factories' InitMachine logs for the same call can be
// grepped together. The first factory failure aborts the fan-out; per
// spec.md 4.1 InitMachine defaults to a no-op, so in practice only
// factories that override it can fail here.
func (r *Registry) InitMachine(spec *containerapi.InitSpec) error {
	correlationID := uuid.New().String()
	for t, f := range r.factories {
		if err := f.InitMachine(spec); err != nil {
			zap.L().Error("InitMachine failed", zap.String("correlation_id", correlationID), zap.Stringer("resource_type", typeStringer(t)), zap.Error(err))
			return err
		}
		zap.L().Debug("InitMachine completed", zap.String("correlation_id", correlationID), zap.Stringer("resource_type", typeStringer(t)))
	}
	return nil
}

type typeStringer resource.Type

func (t typeStringer) String() string { return resource.Type(t).String() }
