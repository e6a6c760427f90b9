package machine_test

import (
	"errors"
	"testing"

	"github.com/elispeigel/cgroupcore/containerapi"
	"github.com/elispeigel/cgroupcore/machine"
	"github.com/elispeigel/cgroupcore/resource"
	"github.com/elispeigel/cgroupcore/status"
)

type fakeFactory struct {
	resource.BaseFactory
	getHandler    resource.Handler
	getErr        error
	createHandler resource.Handler
	createErr     error
	initErr       error
	initCalled    bool
}

func (f *fakeFactory) Get(name containerapi.ContainerName) (resource.Handler, error) {
	return f.getHandler, f.getErr
}

func (f *fakeFactory) Create(name containerapi.ContainerName, spec *containerapi.ContainerSpec) (resource.Handler, error) {
	return f.createHandler, f.createErr
}

func (f *fakeFactory) InitMachine(spec *containerapi.InitSpec) error {
	f.initCalled = true
	return f.initErr
}

func newFakeFactory(t resource.Type) *fakeFactory {
	return &fakeFactory{BaseFactory: resource.BaseFactory{ResourceType: t}}
}

func TestRegistryDispatchesGetByResourceType(t *testing.T) {
	mem := newFakeFactory(resource.Memory)
	cpu := newFakeFactory(resource.CPU)
	r := machine.NewRegistry(mem, cpu)

	if _, err := r.Get(resource.Memory, "/foo"); err != nil {
		t.Fatalf("Get(Memory): %v", err)
	}
	if _, err := r.Get(resource.Blkio, "/foo"); !status.Is(err, status.Unavailable) {
		t.Fatalf("expected Unavailable for an unregistered resource type, got %v", err)
	}
}

func TestRegistryDispatchesCreate(t *testing.T) {
	mem := newFakeFactory(resource.Memory)
	r := machine.NewRegistry(mem)
	if _, err := r.Create(resource.Memory, "/foo", &containerapi.ContainerSpec{}); err != nil {
		t.Fatalf("Create: %v", err)
	}
}

func TestInitMachineFansOutToEveryFactory(t *testing.T) {
	mem := newFakeFactory(resource.Memory)
	cpu := newFakeFactory(resource.CPU)
	r := machine.NewRegistry(mem, cpu)

	if err := r.InitMachine(&containerapi.InitSpec{}); err != nil {
		t.Fatalf("InitMachine: %v", err)
	}
	if !mem.initCalled || !cpu.initCalled {
		t.Error("expected InitMachine to be called on every registered factory")
	}
}

func TestInitMachineAbortsOnFirstFailure(t *testing.T) {
	mem := newFakeFactory(resource.Memory)
	mem.initErr = errors.New("kernel rejected InitMachine")
	r := machine.NewRegistry(mem)

	if err := r.InitMachine(&containerapi.InitSpec{}); err == nil {
		t.Fatal("expected InitMachine to propagate a factory's failure")
	}
}
