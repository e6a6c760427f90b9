package cgroupres

import (
	"strconv"

	"github.com/elispeigel/cgroupcore/cgroupfs"
	"github.com/elispeigel/cgroupcore/status"
)

// TryReadInt implements the "absent statistic is not an error"
// convention from spec.md section 4.4: it reads an integer control
// file and reports ok=false (with a nil error) when the kernel doesn't
// export it, and returns any other error unchanged for the caller to
// abort on. This is spec.md Design Notes' try_set helper, specialised
// to the read side that Stats uses.
func TryReadInt(c cgroupfs.Controller, name string, out *int64, ok *bool) error {
	v, err := cgroupfs.GetStatInt(c, name)
	if err != nil {
		if status.Is(err, status.NotFound) {
			*ok = false
			return nil
		}
		return err
	}
	*out = v
	*ok = true
	return nil
}

// TryReadString is TryReadInt's textual counterpart, used for specs
// like cpuset.cpus that are read back verbatim. dst is set to a freshly
// allocated string only when the control file is present, preserving
// the nil-means-unset convention ContainerSpec's optional fields use.
func TryReadString(c cgroupfs.Controller, name string, dst **string) error {
	v, err := c.GetStat(name)
	if err != nil {
		if status.Is(err, status.NotFound) {
			return nil
		}
		return err
	}
	*dst = &v
	return nil
}

// ApplyIfSet writes value to the named control file if value is
// non-nil. Unlike the read-side Try helpers, a NotFound here is a real
// error: spec.md's absent-stat tolerance is documented for Stats reads
// only, never for Update writes.
func ApplyIfSet(c cgroupfs.Controller, name string, value *int64) error {
	if value == nil {
		return nil
	}
	return c.SetValue(name, strconv.FormatInt(*value, 10))
}

// ApplyIfSetString is ApplyIfSet's textual counterpart.
func ApplyIfSetString(c cgroupfs.Controller, name string, value *string) error {
	if value == nil {
		return nil
	}
	return c.SetValue(name, *value)
}
