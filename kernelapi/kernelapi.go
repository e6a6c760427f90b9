// Package kernelapi wraps the subset of syscalls the cgroup controller
// layer needs, in the manner of the teacher's cgroup.FileHandler /
// DefaultFileHandler seam: a narrow interface that production code
// satisfies with the real os/syscall package and tests satisfy with an
// in-memory fake, so nothing in resource/cgroupres ever imports "os"
// directly.
package kernelapi

import (
	"os"

	"golang.org/x/sys/unix"
)

// API is the process-level kernel-call wrapper every controller is
// built on. It is read-only shared state: never owned by a handler or
// factory, always injected by reference.
type API interface {
	ReadFile(path string) ([]byte, error)
	WriteFile(path string, value string) error
	MkdirAll(path string, perm os.FileMode) error
	RemoveAll(path string) error
	Stat(path string) (os.FileInfo, error)
	// TIDExists reports whether a thread id is live, used to give
	// Enter a precise InvalidArgument instead of relying on the
	// kernel's own write(2) failure message.
	TIDExists(tid int) bool
	// IsCgroupMount reports whether path is the mountpoint of a
	// cgroup (v1) filesystem. cgroupfs.Factory does not call it: its
	// mount detection reads /proc/self/mountinfo only.
	IsCgroupMount(path string) bool
}

// Default is the production API backed by the real filesystem.
type Default struct{}

func (Default) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

func (Default) WriteFile(path string, value string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(value)
	return err
}

func (Default) MkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}

func (Default) RemoveAll(path string) error {
	return os.RemoveAll(path)
}

func (Default) Stat(path string) (os.FileInfo, error) {
	return os.Stat(path)
}

func (Default) TIDExists(tid int) bool {
	// Signal 0 performs no-op error checking: nil or EPERM means the
	// thread/process exists; any other error (ESRCH in particular)
	// is reported as not existing.
	err := unix.Kill(tid, 0)
	return err == nil || err == unix.EPERM
}

const cgroupSuperMagic = 0x27e0eb

func (Default) IsCgroupMount(path string) bool {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return false
	}
	return int64(st.Type) == cgroupSuperMagic
}
