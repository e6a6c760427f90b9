package cgroupfs

import (
	"bufio"
	"path/filepath"
	"strings"
	"sync"

	"github.com/elispeigel/cgroupcore/kernelapi"
	"github.com/elispeigel/cgroupcore/status"
	"go.uber.org/zap"
)

// Factory is the shared, process-wide service that knows which
// subsystems are mounted, which paths this process owns, and
// constructs controllers. Exactly one Factory is built at process
// start and shared by reference with every handler it produces,
// outliving all of them (invariant 5 in spec.md's data model).
//
// Grounded in the teacher's DefaultCgroupFactory, generalised from a
// fixed three-subsystem slice to mount introspection over the full
// Hierarchy enumeration.
type Factory struct {
	api kernelapi.API

	mu         sync.RWMutex
	mountpoint map[Hierarchy]string // empty string recorded = probed-and-absent
}

// NewFactory probes /proc/self/mountinfo once at construction. A
// Factory is read-only after init per spec.md 5, so probing again
// later would only paper over a kernel reconfiguration this layer
// isn't responsible for reacting to.
func NewFactory(api kernelapi.API) (*Factory, error) {
	f := &Factory{api: api, mountpoint: make(map[Hierarchy]string)}
	if err := f.probeMounts(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *Factory) probeMounts() error {
	data, err := f.api.ReadFile("/proc/self/mountinfo")
	if err != nil {
		return status.Wrap(status.Internal, err, "read mountinfo")
	}

	known := map[string]Hierarchy{
		"memory": Memory, "cpu": CPU, "cpuset": Cpuset, "blkio": Blkio,
		"devices": Devices, "freezer": Freezer, "perf_event": PerfEvent,
	}

	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	for scanner.Scan() {
		fields := strings.Split(scanner.Text(), " ")
		if len(fields) < 5 {
			continue
		}
		options := strings.Split(fields[len(fields)-1], ",")
		// mountinfo's super-options column is the last " - " section's
		// third field; cheaply re-derive it by scanning for " - " and
		// taking the following fields, matching the teacher's simpler
		// (and, for this corpus's kernels, sufficient) field[3] lookup
		// when present.
		if sepIdx := indexOf(fields, "-"); sepIdx >= 0 && sepIdx+3 < len(fields) {
			options = strings.Split(fields[sepIdx+3], ",")
		}
		mountPoint := fields[4]
		for _, opt := range options {
			if h, ok := known[opt]; ok {
				f.mountpoint[h] = mountPoint
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return status.Wrap(status.Internal, err, "scan mountinfo")
	}
	return nil
}

func indexOf(fields []string, needle string) int {
	for i, v := range fields {
		if v == needle {
			return i
		}
	}
	return -1
}

// IsMounted reports whether hierarchy is mounted for this process.
func (f *Factory) IsMounted(h Hierarchy) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	mp, ok := f.mountpoint[h]
	return ok && mp != ""
}

// OwnsCgroup reports whether this process owns (can write to) the
// given hierarchy's mount. In a single-process, non-namespaced
// deployment this collapses to IsMounted; kept as a distinct method so
// a future multi-tenant host can refine ownership without changing
// call sites, per spec.md's downstream API shape.
func (f *Factory) OwnsCgroup(h Hierarchy) bool {
	return f.IsMounted(h)
}

func (f *Factory) mountPoint(h Hierarchy) (string, error) {
	f.mu.RLock()
	mp, ok := f.mountpoint[h]
	f.mu.RUnlock()
	if !ok || mp == "" {
		return "", status.New(status.NotFound, "%s cgroup hierarchy is not mounted", h)
	}
	return mp, nil
}

// Get looks up an existing controller for name on hierarchy. It does
// not create the cgroup directory.
func (f *Factory) Get(h Hierarchy, name string) (Controller, error) {
	mp, err := f.mountPoint(h)
	if err != nil {
		return nil, err
	}
	path := filepath.Join(mp, name)
	c := newController(h, path, f.api)
	if !c.Exists() {
		return nil, status.New(status.NotFound, "cgroup %s does not exist on %s", name, h)
	}
	return c, nil
}

// Create creates the cgroup directory for name on hierarchy and
// returns the new controller.
func (f *Factory) Create(h Hierarchy, name string) (Controller, error) {
	mp, err := f.mountPoint(h)
	if err != nil {
		return nil, err
	}
	path := filepath.Join(mp, name)
	c := newController(h, path, f.api)
	if c.Exists() {
		return nil, status.New(status.AlreadyExists, "cgroup %s already exists on %s", name, h)
	}
	if err := f.api.MkdirAll(path, 0755); err != nil {
		zap.L().Error("failed to create cgroup directory", zap.String("path", path), zap.Error(err))
		return nil, status.Wrap(status.Internal, err, "create "+path)
	}
	return c, nil
}
