package cmdbuf

import (
	"fmt"
	"unsafe"

	"github.com/notargets/cmdgraph/graph"
	"github.com/notargets/cmdgraph/rt"
)

// PointerArg rebinds a raw pointer argument by index.
type PointerArg struct {
	Index int
	Value unsafe.Pointer
}

// MemObjArg rebinds a memory-object argument by index. A nil Object clears
// the argument to a null reference.
type MemObjArg struct {
	Index  int
	Object *rt.Buffer
}

// ValueArg rebinds a by-value argument by index; the byte width is the
// length of Value.
type ValueArg struct {
	Index int
	Value []byte
}

// UpdateKernelLaunchDesc is a sparse set of changes to a recorded kernel
// launch. Nil slices and a zero WorkDim keep the recorded state.
type UpdateKernelLaunchDesc struct {
	PointerArgs []PointerArg
	MemObjArgs  []MemObjArg
	ValueArgs   []ValueArg

	WorkDim          int
	GlobalWorkOffset []uint64
	GlobalWorkSize   []uint64
	LocalWorkSize    []uint64
}

// UpdateKernelLaunch applies a sparse update to this recorded launch and
// pushes the new parameters into the already-compiled executable graph in
// place. Graph structure is untouched; only the node's parameters change.
//
// The argument batches are best-effort, not transactional: each list is
// applied in order and the first failure aborts the remaining updates in
// that call without rolling back those already applied.
func (c *Command) UpdateKernelLaunch(desc *UpdateKernelLaunchDesc) error {
	if desc == nil {
		return fmt.Errorf("%w: nil update descriptor", ErrInvalidValue)
	}
	cb := c.CommandBuffer
	if cb.exec == nil {
		return fmt.Errorf("%w: update before finalize", ErrInvalidOperation)
	}
	if !cb.IsUpdatable {
		return fmt.Errorf("%w: command buffer was not created updatable", ErrInvalidOperation)
	}

	k := c.Kernel

	for _, a := range desc.PointerArgs {
		if err := k.SetArgPointer(a.Index, a.Value); err != nil {
			return fmt.Errorf("%w: pointer arg %d: %v", ErrInvalidValue, a.Index, err)
		}
	}
	for _, a := range desc.MemObjArgs {
		var mem graph.Memory
		if a.Object != nil {
			mem = a.Object.Mem()
		}
		if err := k.SetArgMem(a.Index, mem); err != nil {
			return fmt.Errorf("%w: memobj arg %d: %v", ErrInvalidValue, a.Index, err)
		}
	}
	for _, a := range desc.ValueArgs {
		if len(a.Value) == 0 {
			return fmt.Errorf("%w: value arg %d has no bytes", ErrInvalidValue, a.Index)
		}
		if err := k.SetArg(a.Index, a.Value); err != nil {
			return fmt.Errorf("%w: value arg %d: %v", ErrInvalidValue, a.Index, err)
		}
	}

	if desc.WorkDim != 0 {
		if desc.WorkDim < 1 || desc.WorkDim > 3 {
			return fmt.Errorf("%w: workDim %d not in [1,3]",
				ErrInvalidWorkDimension, desc.WorkDim)
		}
		c.WorkDim = desc.WorkDim
	}
	if desc.GlobalWorkOffset != nil {
		c.setGlobalOffset(desc.GlobalWorkOffset)
	}
	if desc.GlobalWorkSize != nil {
		c.setGlobalSize(desc.GlobalWorkSize)
	}
	if desc.LocalWorkSize != nil {
		c.setLocalSize(desc.LocalWorkSize)
	}

	// A never-provided local size goes to the resolver as nil so it can
	// infer one; a stored or newly supplied size is used verbatim.
	var localSize []uint64
	if c.localSizeProvided() {
		localSize = c.LocalWorkSize[:]
	}

	threadsPerBlock, blocksPerGrid, err := rt.SetKernelParams(
		cb.Device, c.WorkDim, c.GlobalWorkOffset[:], c.GlobalWorkSize[:], localSize, k)
	if err != nil {
		return err
	}

	c.params = graph.KernelNodeParams{
		Func:      k.Func(),
		GridDim:   blocksPerGrid,
		BlockDim:  threadsPerBlock,
		SharedMem: k.SharedMem(),
		Args:      k.ArgPointers(),
	}
	if err := cb.exec.SetKernelNodeParams(c.node, &c.params); err != nil {
		return fmt.Errorf("%w: setting node params: %v", ErrUnknown, err)
	}
	return nil
}
