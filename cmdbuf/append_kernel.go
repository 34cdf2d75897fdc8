package cmdbuf

import (
	"fmt"

	"github.com/notargets/cmdgraph/graph"
	"github.com/notargets/cmdgraph/rt"
)

// AppendKernelLaunch records a kernel launch. globalSize must have at least
// workDim entries; globalOffset and localSize may be nil. The returned
// Command handle permits later in-place parameter updates on updatable
// buffers.
//
// A zero global work size in the first dimension records a no-op barrier
// node instead of a kernel node: supplied dependencies are still honored,
// so downstream ordering is preserved, but no Command is produced.
func (cb *CommandBuffer) AppendKernelLaunch(k *rt.Kernel, workDim int,
	globalOffset, globalSize, localSize []uint64,
	waitList []SyncPoint) (SyncPoint, *Command, error) {

	if k == nil {
		return 0, nil, fmt.Errorf("%w: nil kernel", ErrInvalidValue)
	}
	if k.Context != cb.Context {
		return 0, nil, fmt.Errorf("%w: kernel %q belongs to a different context",
			ErrInvalidKernel, k.Name)
	}
	if workDim < 1 || workDim > 3 {
		return 0, nil, fmt.Errorf("%w: workDim %d not in [1,3]",
			ErrInvalidWorkDimension, workDim)
	}
	if len(globalSize) < workDim {
		return 0, nil, fmt.Errorf("%w: globalSize has %d entries for workDim %d",
			ErrInvalidValue, len(globalSize), workDim)
	}
	if localSize != nil && len(localSize) < workDim {
		return 0, nil, fmt.Errorf("%w: localSize has %d entries for workDim %d",
			ErrInvalidValue, len(localSize), workDim)
	}

	deps, err := cb.nodesFromSyncPoints(waitList)
	if err != nil {
		return 0, nil, err
	}

	if globalSize[0] == 0 {
		node, err := cb.graph.AddEmptyNode(deps)
		if err != nil {
			return 0, nil, fmt.Errorf("%w: adding empty node: %v", ErrUnknown, err)
		}
		return cb.addSyncPoint(node), nil, nil
	}

	threadsPerBlock, blocksPerGrid, err := rt.SetKernelParams(
		cb.Device, workDim, globalOffset, globalSize, localSize, k)
	if err != nil {
		return 0, nil, err
	}

	params := graph.KernelNodeParams{
		Func:      k.Func(),
		GridDim:   blocksPerGrid,
		BlockDim:  threadsPerBlock,
		SharedMem: k.SharedMem(),
		Args:      k.ArgPointers(),
	}

	node, err := cb.graph.AddKernelNode(deps, &params)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: adding kernel node: %v", ErrUnknown, err)
	}
	if k.SharedMem() != 0 {
		k.ClearSharedMem()
	}

	sp := cb.addSyncPoint(node)
	cmd := newCommand(cb, k, node, params, workDim, globalOffset, globalSize, localSize)
	cb.commands = append(cb.commands, cmd)
	return sp, cmd, nil
}
