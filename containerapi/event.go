package containerapi

// EventSpec is a closed variant describing the condition a caller wants
// to be notified about. Exactly one field is non-nil.
type EventSpec struct {
	MemoryThreshold *MemoryThresholdEvent
	OOM             *OOMEvent
	MemoryPressure  *MemoryPressureEvent
}

// MemoryThresholdEvent fires (repeatably) each time memory usage
// crosses ThresholdBytes.
type MemoryThresholdEvent struct {
	ThresholdBytes int64
}

// OOMEvent fires (repeatably) on every poll in which the container's
// memory.oom_control reports the cgroup under OOM ("under_oom 1").
type OOMEvent struct{}

// MemoryPressureEvent names a memory pressure level ("low", "medium",
// "critical"). No handler in this module registers it: the memory
// handler's RegisterNotification returns NotFound for it.
type MemoryPressureEvent struct {
	Level string
}

// NotificationId is an opaque, process-unique handle returned by
// RegisterNotification; it is used to cancel the subscription.
type NotificationId uint64

// EventCallback is invoked when the subscribed condition is observed.
// The handler takes ownership of the callback: it is released
// deterministically whether or not registration succeeds.
type EventCallback func(EventSpec)
