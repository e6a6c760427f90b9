package kernelapi_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/elispeigel/cgroupcore/kernelapi"
)

func TestDefaultReadWriteRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "memory.limit_in_bytes")
	if err := os.WriteFile(path, []byte("0"), 0644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	api := kernelapi.Default{}
	if err := api.WriteFile(path, "1048576"); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	got, err := api.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != "1048576" {
		t.Errorf("got %q, want 1048576", got)
	}
}

func TestDefaultMkdirAllAndRemoveAll(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "a", "b", "c")
	api := kernelapi.Default{}
	if err := api.MkdirAll(target, 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if _, err := api.Stat(target); err != nil {
		t.Fatalf("Stat after MkdirAll: %v", err)
	}
	if err := api.RemoveAll(filepath.Join(dir, "a")); err != nil {
		t.Fatalf("RemoveAll: %v", err)
	}
	if _, err := api.Stat(target); err == nil {
		t.Error("expected Stat to fail after RemoveAll")
	}
}

func TestDefaultTIDExistsForCurrentProcess(t *testing.T) {
	api := kernelapi.Default{}
	if !api.TIDExists(os.Getpid()) {
		t.Error("expected the current process's pid to be reported live")
	}
}

func TestDefaultTIDExistsFalseForImplausiblePID(t *testing.T) {
	api := kernelapi.Default{}
	if api.TIDExists(1 << 30) {
		t.Error("expected an implausibly large pid to be reported dead")
	}
}
