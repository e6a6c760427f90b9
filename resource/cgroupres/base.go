// Package cgroupres is the cgroup-based specialisation of the abstract
// resource package: CgroupResourceHandlerFactory (FactoryBase) and
// CgroupResourceHandler (Base) from spec.md sections 4.2 and 4.4.
// Concrete resource types (memoryres, cpures, ...) embed Base and
// FactoryBase and add their own typed Update/Stats/Spec/
// RegisterNotification logic plus the GetResourceHandler/
// CreateResourceHandler primitives.
package cgroupres

import (
	"sync"

	"github.com/elispeigel/cgroupcore/cgroupfs"
	"github.com/elispeigel/cgroupcore/containerapi"
	"github.com/elispeigel/cgroupcore/resource"
	"github.com/elispeigel/cgroupcore/status"
	"go.uber.org/multierr"
)

// Base owns a bag of controllers keyed by hierarchy and provides the
// default Enter and Destroy spec.md 4.4 describes. Concrete handlers
// embed *Base by value through composition (NewBase returns a ready
// *Base to embed) and add their own Update/Stats/Spec/
// RegisterNotification.
type Base struct {
	mu           sync.Mutex
	name         containerapi.ContainerName
	resourceType resource.Type
	controllers  map[cgroupfs.Hierarchy]cgroupfs.Controller
	destroyed    bool
}

// NewBase assembles a Base owning the given controllers. Every handler
// must own at least one controller (invariant 1 in spec.md's data
// model); NewBase enforces this so a bug in a specialisation's
// assembly code fails loudly instead of producing an unusable handler.
func NewBase(name containerapi.ContainerName, resourceType resource.Type, controllers map[cgroupfs.Hierarchy]cgroupfs.Controller) (*Base, error) {
	if len(controllers) == 0 {
		return nil, status.New(status.Internal, "resource handler for %s (%s) would own zero controllers", name, resourceType)
	}
	return &Base{name: name, resourceType: resourceType, controllers: controllers}, nil
}

// Name returns the container name this handler was built for.
func (b *Base) Name() containerapi.ContainerName { return b.name }

// ResourceType is immutable for the lifetime of a handler (invariant
// 4).
func (b *Base) ResourceType() resource.Type { return b.resourceType }

// Controller returns the owned controller for hierarchy, or Internal
// if this handler does not own one -- a specialisation bug, not a
// runtime condition callers should expect.
func (b *Base) Controller(h cgroupfs.Hierarchy) (cgroupfs.Controller, error) {
	c, ok := b.controllers[h]
	if !ok {
		return nil, status.New(status.Internal, "handler for %s owns no %s controller", b.name, h)
	}
	return c, nil
}

// Controllers exposes the owned set for iteration by Enter/Destroy and
// by specialisations that need to range over every hierarchy they own
// (monitoring, for instance, owns exactly one).
func (b *Base) Controllers() map[cgroupfs.Hierarchy]cgroupfs.Controller {
	return b.controllers
}

func (b *Base) checkLiveLocked() error {
	if b.destroyed {
		return status.New(status.FailedPrecondition, "handler for %s has already been destroyed", b.name)
	}
	return nil
}

// Enter moves every tid into every owned controller, in arbitrary
// controller order, short-circuiting on the first error. Partial
// moves may persist; see spec.md section 7.
func (b *Base) Enter(tids []int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.checkLiveLocked(); err != nil {
		return err
	}
	for _, c := range b.controllers {
		for _, tid := range tids {
			if err := c.Enter(tid); err != nil {
				return err
			}
		}
	}
	return nil
}

// Destroy destroys every owned controller. If all succeed the handler
// is consumed (invariant 3); if any fails, every failure is
// accumulated via multierr and the handler remains live so the caller
// can retry -- ordering across controllers is unspecified per spec.md
// Design Notes.
func (b *Base) Destroy() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.checkLiveLocked(); err != nil {
		return err
	}
	var errs error
	for _, c := range b.controllers {
		if err := c.Destroy(); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	if errs != nil {
		return status.Wrap(status.Internal, errs, "destroy handler for "+string(b.name))
	}
	b.destroyed = true
	return nil
}

// Lock/Unlock let specialisations serialise their own Update logic
// through the same per-instance mutex Enter/Destroy use, per spec.md
// section 5's "concurrent mutating calls are serialised by the handler
// using per-instance mutual exclusion."
func (b *Base) Lock()   { b.mu.Lock() }
func (b *Base) Unlock() { b.mu.Unlock() }

// CheckLive reports FailedPrecondition if the handler has been
// destroyed. Specialisations call this at the top of Spec, Stats and
// RegisterNotification (and CheckLiveLocked at the top of Update) so a
// consumed handler rejects every further operation (invariant 3).
func (b *Base) CheckLive() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.checkLiveLocked()
}

// CheckLiveLocked is CheckLive for callers that already hold the
// handler's lock (e.g. Update implementations, which call Lock before
// validating liveness and would otherwise deadlock re-entering
// CheckLive's own Lock).
func (b *Base) CheckLiveLocked() error {
	return b.checkLiveLocked()
}
