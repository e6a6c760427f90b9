// Package mountutil wraps the bind-mount syscalls the Filesystem
// resource specialisation needs, grounded in the teacher's
// internal/container/filesystem package (Filesystem.Mount/Unmount)
// generalised from a single Mount struct to an explicit
// bind-mount/unmount pair with a read-only flag.
package mountutil

import (
	"path/filepath"
	"syscall"

	"go.uber.org/zap"
)

// Handler performs the bind mounts a Filesystem resource handler
// tracks. It is the seam tests substitute a fake for, in the manner of
// the teacher's FileHandler interface.
type Handler interface {
	BindMount(root, source, target string, readOnly bool) error
	Unmount(root, target string) error
}

// Default is the production Handler backed by the real mount(2)/
// umount(2) syscalls.
type Default struct{}

func (Default) BindMount(root, source, target string, readOnly bool) error {
	dst := filepath.Join(root, target)
	flags := uintptr(syscall.MS_BIND)
	if err := syscall.Mount(source, dst, "", flags, ""); err != nil {
		zap.L().Error("failed to bind mount", zap.String("source", source), zap.String("target", dst), zap.Error(err))
		return err
	}
	if readOnly {
		remountFlags := uintptr(syscall.MS_BIND | syscall.MS_REMOUNT | syscall.MS_RDONLY)
		if err := syscall.Mount(source, dst, "", remountFlags, ""); err != nil {
			zap.L().Error("failed to remount bind mount read-only", zap.String("target", dst), zap.Error(err))
			return err
		}
	}
	return nil
}

func (Default) Unmount(root, target string) error {
	dst := filepath.Join(root, target)
	if err := syscall.Unmount(dst, 0); err != nil {
		zap.L().Error("failed to unmount", zap.String("target", dst), zap.Error(err))
		return err
	}
	return nil
}
