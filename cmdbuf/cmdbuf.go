// Package cmdbuf implements command buffers: builders that record kernel
// launches, memory copies and fills into a deferred dependency-ordered
// graph, finalize the graph into an executable form, launch it on a device
// stream, and — for buffers created updatable — rewrite recorded kernel
// launch parameters in place without rebuilding the graph.
//
// A CommandBuffer and its Commands are not internally synchronized; callers
// serialize access to one buffer. Enqueues of distinct buffers may run
// concurrently.
package cmdbuf

import (
	"fmt"

	"github.com/notargets/cmdgraph/graph"
	"github.com/notargets/cmdgraph/rt"
)

// SyncPoint identifies one previously appended operation within one command
// buffer. Values are buffer-scoped and monotonically assigned; they are not
// globally unique.
type SyncPoint uint32

// Desc controls command buffer creation.
type Desc struct {
	// IsUpdatable permits post-finalization mutation of recorded kernel
	// launches through UpdateKernelLaunch. Fixed at creation.
	IsUpdatable bool
}

// CommandBuffer records device operations into a dependency graph owned by
// the context's engine.
type CommandBuffer struct {
	Context     *rt.Context
	Device      *rt.Device
	IsUpdatable bool

	graph graph.Graph
	exec  graph.Exec

	syncPoints    map[SyncPoint]graph.Node
	nextSyncPoint SyncPoint

	commands []*Command

	rc rt.RefCount
}

// Create makes an empty command buffer on the given context and device. A
// nil desc means a non-updatable buffer.
func Create(ctx *rt.Context, dev *rt.Device, desc *Desc) (*CommandBuffer, error) {
	updatable := desc != nil && desc.IsUpdatable

	g, err := ctx.Engine.NewGraph()
	if err != nil {
		return nil, fmt.Errorf("%w: creating graph: %v", ErrOutOfResources, err)
	}

	cb := &CommandBuffer{
		Context:     ctx,
		Device:      dev,
		IsUpdatable: updatable,
		graph:       g,
		syncPoints:  make(map[SyncPoint]graph.Node),
	}
	cb.rc.Init()
	ctx.Retain()
	dev.Retain()
	return cb, nil
}

// Retain takes an additional caller-visible handle on the buffer.
func (cb *CommandBuffer) Retain() { cb.rc.Retain() }

// Release drops one caller-visible handle. When the external count reaches
// zero the buffer releases its structural hold on every still-live command;
// the buffer itself is destroyed once its internal count drains, which may
// be deferred until retained command handles are released.
func (cb *CommandBuffer) Release() {
	if cb.rc.DecExternal() == 0 {
		live := make([]*Command, len(cb.commands))
		copy(live, cb.commands)
		for _, c := range live {
			c.releaseInternal()
		}
	}
	cb.releaseInternal()
}

func (cb *CommandBuffer) releaseInternal() {
	if cb.rc.DecInternal() != 0 {
		return
	}
	cb.destroy()
}

func (cb *CommandBuffer) destroy() {
	cb.Context.Release()
	cb.Device.Release()
	cb.graph.Destroy()
	if cb.exec != nil {
		cb.exec.Destroy()
		cb.exec = nil
	}
	cb.syncPoints = nil
	cb.commands = nil
}

// RefCount returns the external reference count.
func (cb *CommandBuffer) RefCount() int32 { return cb.rc.External() }

// InternalRefCount returns the internal (structural) reference count.
func (cb *CommandBuffer) InternalRefCount() int32 { return cb.rc.Internal() }

// NumCommands returns the number of live kernel-launch commands.
func (cb *CommandBuffer) NumCommands() int { return len(cb.commands) }

// Finalized reports whether Finalize has succeeded.
func (cb *CommandBuffer) Finalized() bool { return cb.exec != nil }

// Graph exposes the recorded dependency graph for inspection.
func (cb *CommandBuffer) Graph() graph.Graph { return cb.graph }

// Finalize compiles the recorded graph into an executable form. It must be
// called exactly once, before Enqueue or UpdateKernelLaunch. On compilation
// failure the graph stays in its pre-compiled state and the buffer remains
// valid and destructible.
func (cb *CommandBuffer) Finalize() error {
	if cb.exec != nil {
		return fmt.Errorf("%w: command buffer already finalized", ErrInvalidOperation)
	}
	exec, err := cb.graph.Instantiate()
	if err != nil {
		return fmt.Errorf("%w: graph instantiation failed: %v", ErrUnknown, err)
	}
	cb.exec = exec
	return nil
}

// LookupSyncPoint resolves a sync point to its graph node. Unknown sync
// points fail with ErrInvalidValue.
func (cb *CommandBuffer) LookupSyncPoint(sp SyncPoint) (graph.Node, error) {
	n, ok := cb.syncPoints[sp]
	if !ok {
		return nil, fmt.Errorf("%w: unknown sync point %d", ErrInvalidValue, sp)
	}
	return n, nil
}

// nodesFromSyncPoints resolves a wait list into the predecessor nodes for a
// new node. Any unknown sync point fails the whole call before any node is
// added. An empty wait list yields no predecessors: a graph root.
func (cb *CommandBuffer) nodesFromSyncPoints(waitList []SyncPoint) ([]graph.Node, error) {
	deps := make([]graph.Node, 0, len(waitList))
	for _, sp := range waitList {
		n, err := cb.LookupSyncPoint(sp)
		if err != nil {
			return nil, err
		}
		deps = append(deps, n)
	}
	return deps, nil
}

// addSyncPoint registers a node under a fresh sync point. Multiple sync
// points may end up naming nodes that later operations share as
// predecessors; the table holds the node handle for the graph's lifetime.
func (cb *CommandBuffer) addSyncPoint(n graph.Node) SyncPoint {
	sp := cb.nextSyncPoint
	cb.nextSyncPoint++
	cb.syncPoints[sp] = n
	return sp
}

// removeCommand drops a destroyed command from the live list.
func (cb *CommandBuffer) removeCommand(c *Command) {
	for i, have := range cb.commands {
		if have == c {
			cb.commands = append(cb.commands[:i], cb.commands[i+1:]...)
			return
		}
	}
}
