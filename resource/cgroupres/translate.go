package cgroupres

import "github.com/elispeigel/cgroupcore/containerapi"

// OneToOnePath is the canonical 1:1 name-translation rule from
// spec.md section 4.2: "/foo/bar" maps to "/foo/bar" on the subsystem.
func OneToOnePath(name containerapi.ContainerName) string {
	if name == "" || name == "/" {
		return "/"
	}
	return string(name)
}

// BatchFoldedPath is the other canonical rule spec.md section 4.2
// names: every container whose spec sets Batch collapses onto a
// single shared "/batch" cgroup rather than getting its own. When
// spec is nil or Batch is false it falls back to OneToOnePath, so a
// factory can apply this rule unconditionally and let the spec decide.
func BatchFoldedPath(name containerapi.ContainerName, spec *containerapi.ContainerSpec) string {
	if spec != nil && spec.Batch {
		return "/batch"
	}
	return OneToOnePath(name)
}
