package cgroupres

import (
	"github.com/elispeigel/cgroupcore/containerapi"
	"github.com/elispeigel/cgroupcore/resource"
	"go.uber.org/zap"
)

// Primitives is the pair of subclass hooks spec.md section 4.2
// requires: translate name to a hierarchy path, look up or create the
// backing controllers, and assemble a handler. Neither primitive
// applies the spec; FactoryBase.Create does that afterwards.
type Primitives interface {
	// GetResourceHandler looks up existing controllers for name and
	// assembles a handler. It must not create cgroup directories.
	GetResourceHandler(name containerapi.ContainerName) (resource.Handler, error)
	// CreateResourceHandler creates the backing cgroup directories for
	// name and assembles a handler, without yet applying spec.
	CreateResourceHandler(name containerapi.ContainerName, spec *containerapi.ContainerSpec) (resource.Handler, error)
}

// FactoryBase implements Get and Create atop a concrete type's
// Primitives, per spec.md section 4.2. Concrete factories embed
// FactoryBase and supply Primitives (almost always the factory itself).
type FactoryBase struct {
	resource.BaseFactory
	Primitives Primitives
}

// NewFactoryBase builds a FactoryBase for resourceType, delegating to
// primitives for the two subclass hooks.
func NewFactoryBase(resourceType resource.Type, primitives Primitives) FactoryBase {
	return FactoryBase{
		BaseFactory: resource.BaseFactory{ResourceType: resourceType},
		Primitives:  primitives,
	}
}

func (f FactoryBase) Get(name containerapi.ContainerName) (resource.Handler, error) {
	return f.Primitives.GetResourceHandler(name)
}

// Create is CreateResourceHandler followed by the resulting handler's
// Create(spec). On spec-application failure the partially created
// handler is destroyed before the error is returned, so no kernel
// state leaks (spec.md section 4.2 and 7).
func (f FactoryBase) Create(name containerapi.ContainerName, spec *containerapi.ContainerSpec) (resource.Handler, error) {
	h, err := f.Primitives.CreateResourceHandler(name, spec)
	if err != nil {
		return nil, err
	}
	if err := h.Create(spec); err != nil {
		if destroyErr := h.Destroy(); destroyErr != nil {
			zap.L().Warn("failed to roll back partially created handler after Create failure",
				zap.String("container", string(name)), zap.Error(destroyErr))
		}
		return nil, err
	}
	return h, nil
}
