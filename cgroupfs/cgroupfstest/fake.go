// Package cgroupfstest is an in-memory fake of cgroupfs.Controller for
// resource specialisation tests, so memoryres/cpures/... tests never
// depend on a real mounted cgroup hierarchy.
package cgroupfstest

import (
	"sync"

	"github.com/elispeigel/cgroupcore/cgroupfs"
	"github.com/elispeigel/cgroupcore/status"
)

// Controller is a fake cgroupfs.Controller backed by an in-memory map
// of control-file name to value. Only files present in the map are
// readable/writable; anything else is NotFound, matching a real
// cgroup directory that exports a fixed set of files per subsystem.
type Controller struct {
	hierarchy cgroupfs.Hierarchy
	path      string

	mu        sync.Mutex
	files     map[string]string
	entered   []int
	destroy   bool
	destroyErr error
	enterErr   error
}

// New builds a fake controller for hierarchy at path, seeded with
// files.
func New(hierarchy cgroupfs.Hierarchy, path string, files map[string]string) *Controller {
	c := &Controller{hierarchy: hierarchy, path: path, files: make(map[string]string)}
	for k, v := range files {
		c.files[k] = v
	}
	return c
}

func (c *Controller) Hierarchy() cgroupfs.Hierarchy { return c.hierarchy }

func (c *Controller) Path() string { return c.path }

func (c *Controller) GetStat(name string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.files[name]
	if !ok {
		return "", status.New(status.NotFound, "%s not exported by fake %s cgroup %s", name, c.hierarchy, c.path)
	}
	return v, nil
}

// SetValue writes name unconditionally, creating the entry if absent
// (unlike a real cgroup file, which only exists for controls the
// kernel exports). It never reports NotFound, even for a name removed
// with DeleteFile.
func (c *Controller) SetValue(name string, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.files[name] = value
	return nil
}

func (c *Controller) Enter(tid int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.enterErr != nil {
		return c.enterErr
	}
	c.entered = append(c.entered, tid)
	return nil
}

func (c *Controller) Destroy() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyErr != nil {
		return c.destroyErr
	}
	c.destroy = true
	return nil
}

// SetDestroyErr makes every future Destroy call return err instead of
// succeeding, for testing Base.Destroy's multierr aggregation.
func (c *Controller) SetDestroyErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.destroyErr = err
}

// SetEnterErr makes every future Enter call return err, for testing
// Base.Enter's short-circuit-on-first-error behaviour.
func (c *Controller) SetEnterErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enterErr = err
}

func (c *Controller) Exists() bool { return true }

// Get reads back a seeded or written value directly, for assertions.
func (c *Controller) Get(name string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.files[name]
	return v, ok
}

// Entered returns every tid passed to Enter, in call order.
func (c *Controller) Entered() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]int(nil), c.entered...)
}

// Destroyed reports whether Destroy has been called.
func (c *Controller) Destroyed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.destroy
}

// DeleteFile removes name so a subsequent GetStat reports NotFound,
// simulating a kernel that doesn't export that control. A later
// SetValue recreates the entry.
func (c *Controller) DeleteFile(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.files, name)
}
