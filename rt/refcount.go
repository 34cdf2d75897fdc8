// Package rt carries the runtime object model the command-buffer layer
// records against: contexts, devices, queues, streams, events, kernels and
// buffer memory objects, plus the two-tier reference counting shared by all
// of them and the kernel launch-shape resolver.
package rt

import "sync/atomic"

// RefCount is a two-tier reference count. The external count tracks
// caller-visible handle ownership; the internal count tracks structural
// references held by the system itself (a command's hold on its parent
// buffer, a buffer's hold on its context). An object is destroyed only when
// its internal count reaches zero; the external count reaching zero is what
// triggers the release of structural references.
type RefCount struct {
	external atomic.Int32
	internal atomic.Int32
}

// Init sets both counters to one, the state of a freshly created handle.
func (rc *RefCount) Init() {
	rc.external.Store(1)
	rc.internal.Store(1)
}

// IncExternal increments the external count and returns the new value.
func (rc *RefCount) IncExternal() int32 { return rc.external.Add(1) }

// DecExternal decrements the external count and returns the new value.
func (rc *RefCount) DecExternal() int32 { return rc.external.Add(-1) }

// IncInternal increments the internal count and returns the new value.
func (rc *RefCount) IncInternal() int32 { return rc.internal.Add(1) }

// DecInternal decrements the internal count and returns the new value.
func (rc *RefCount) DecInternal() int32 { return rc.internal.Add(-1) }

// External returns the current external count.
func (rc *RefCount) External() int32 { return rc.external.Load() }

// Internal returns the current internal count.
func (rc *RefCount) Internal() int32 { return rc.internal.Load() }

// Retain increments both counters, the protocol for a caller taking an
// additional visible handle.
func (rc *RefCount) Retain() {
	rc.external.Add(1)
	rc.internal.Add(1)
}
