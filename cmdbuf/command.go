package cmdbuf

import (
	"github.com/notargets/cmdgraph/graph"
	"github.com/notargets/cmdgraph/rt"
)

// Command is a recorded kernel launch. It owns the graph node the launch
// was recorded as and keeps its parent buffer alive through the buffer's
// internal reference count: the node lives inside the buffer's graph, so
// the buffer cannot be destroyed while any command still references it.
type Command struct {
	CommandBuffer *CommandBuffer
	Kernel        *rt.Kernel

	node   graph.Node
	params graph.KernelNodeParams

	WorkDim          int
	GlobalWorkOffset [3]uint64
	GlobalWorkSize   [3]uint64
	LocalWorkSize    [3]uint64

	rc rt.RefCount
}

// newCommand records the structural hold on the parent buffer. Work arrays
// are zero-padded beyond the active dimensionality; a nil localSize leaves
// the stored local size all-zero, meaning "let the resolver infer".
func newCommand(cb *CommandBuffer, k *rt.Kernel, node graph.Node,
	params graph.KernelNodeParams, workDim int,
	globalOffset, globalSize, localSize []uint64) *Command {

	c := &Command{
		CommandBuffer: cb,
		Kernel:        k,
		node:          node,
		params:        params,
		WorkDim:       workDim,
	}
	c.rc.Init()
	cb.rc.IncInternal()

	copyWorkArray(&c.GlobalWorkOffset, globalOffset, workDim)
	copyWorkArray(&c.GlobalWorkSize, globalSize, workDim)
	if localSize != nil {
		copyWorkArray(&c.LocalWorkSize, localSize, workDim)
	}
	return c
}

func copyWorkArray(dst *[3]uint64, src []uint64, workDim int) {
	*dst = [3]uint64{}
	if src == nil {
		return
	}
	for dim := 0; dim < workDim && dim < len(src); dim++ {
		dst[dim] = src[dim]
	}
}

// Retain takes an additional caller-visible handle on the command.
func (c *Command) Retain() {
	c.rc.Retain()
}

// Release drops one caller-visible handle. The command is destroyed when
// its internal count drains, which unconditionally releases its hold on the
// parent buffer's internal count and may trigger the buffer's destruction.
func (c *Command) Release() {
	c.rc.DecExternal()
	c.releaseInternal()
}

func (c *Command) releaseInternal() {
	if c.rc.DecInternal() != 0 {
		return
	}
	cb := c.CommandBuffer
	cb.removeCommand(c)
	cb.releaseInternal()
}

// RefCount returns the external reference count.
func (c *Command) RefCount() int32 { return c.rc.External() }

// Node returns the graph node the launch was recorded as.
func (c *Command) Node() graph.Node { return c.node }

// localSizeProvided reports whether any stored local-size component is
// non-zero. All-zero means the resolver infers a size.
func (c *Command) localSizeProvided() bool {
	return c.LocalWorkSize[0] != 0 || c.LocalWorkSize[1] != 0 || c.LocalWorkSize[2] != 0
}

func (c *Command) setGlobalOffset(vals []uint64) {
	copyWorkArray(&c.GlobalWorkOffset, vals, c.WorkDim)
}

func (c *Command) setGlobalSize(vals []uint64) {
	copyWorkArray(&c.GlobalWorkSize, vals, c.WorkDim)
}

func (c *Command) setLocalSize(vals []uint64) {
	copyWorkArray(&c.LocalWorkSize, vals, c.WorkDim)
}
