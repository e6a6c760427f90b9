package cgroupfs

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/elispeigel/cgroupcore/kernelapi"
	"github.com/elispeigel/cgroupcore/status"
)

// Controller is the capability set spec.md's data model gives
// CgroupController: a handle to one subsystem's cgroup directory.
// Concrete resource specialisations build typed reads on top of
// GetStat/SetValue (e.g. memoryres reads "memory.usage_in_bytes"
// through GetStatInt).
type Controller interface {
	Hierarchy() Hierarchy
	Path() string
	GetStat(name string) (string, error)
	SetValue(name string, value string) error
	Enter(tid int) error
	Destroy() error
	Exists() bool
}

// fsController is the one Controller implementation this module
// ships: a real cgroup v1 directory accessed through kernelapi.API,
// the same seam the teacher's DefaultFileHandler gives CgroupFactory.
type fsController struct {
	hierarchy Hierarchy
	path      string
	api       kernelapi.API
}

func newController(hierarchy Hierarchy, path string, api kernelapi.API) *fsController {
	return &fsController{hierarchy: hierarchy, path: path, api: api}
}

func (c *fsController) Hierarchy() Hierarchy { return c.hierarchy }

func (c *fsController) Path() string { return c.path }

func (c *fsController) GetStat(name string) (string, error) {
	data, err := c.api.ReadFile(c.path + "/" + name)
	if err != nil {
		if isNotExist(err) {
			return "", status.New(status.NotFound, "%s not exported by %s cgroup %s", name, c.hierarchy, c.path)
		}
		return "", status.Wrap(status.Internal, err, "read "+name)
	}
	return strings.TrimSpace(string(data)), nil
}

// GetStatInt reads and parses an integer-valued control file. It is a
// package-level helper (not a Controller method) so every resource
// specialisation shares the same parse-error wrapping regardless of
// which Controller implementation is behind the interface.
func GetStatInt(c Controller, name string) (int64, error) {
	v, err := c.GetStat(name)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, status.Wrap(status.Internal, err, "parse "+name)
	}
	return n, nil
}

func (c *fsController) SetValue(name string, value string) error {
	if err := c.api.WriteFile(c.path+"/"+name, value); err != nil {
		if isNotExist(err) {
			return status.New(status.NotFound, "%s not exported by %s cgroup %s", name, c.hierarchy, c.path)
		}
		return status.Wrap(status.Internal, err, "write "+name)
	}
	return nil
}

func (c *fsController) Enter(tid int) error {
	if !c.api.TIDExists(tid) {
		return status.New(status.InvalidArgument, "tid %d does not exist", tid)
	}
	if err := c.api.WriteFile(c.path+"/cgroup.procs", strconv.Itoa(tid)); err != nil {
		return status.Wrap(status.Internal, err, "enter "+c.path)
	}
	return nil
}

func (c *fsController) Destroy() error {
	if err := c.api.RemoveAll(c.path); err != nil {
		return status.Wrap(status.Internal, err, "destroy "+c.path)
	}
	return nil
}

func (c *fsController) Exists() bool {
	_, err := c.api.Stat(c.path)
	return err == nil
}

func isNotExist(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}
