package rt

import (
	"errors"
	"fmt"

	"github.com/notargets/cmdgraph/graph"
)

// ErrInvalidWorkGroupSize is returned when an explicit local work size is
// inconsistent with the global work size or exceeds device limits.
var ErrInvalidWorkGroupSize = errors.New("rt: invalid work group size")

// SetKernelParams resolves a work-size description into the block and grid
// shape of one kernel launch. An explicit localSize is validated against
// device limits and must divide the global size in every active dimension.
// With no localSize the block width defaults to one warp along the first
// dimension, shrunk to the largest divisor of the global size.
func SetKernelParams(dev *Device, workDim int,
	globalOffset, globalSize, localSize []uint64,
	k *Kernel) (threadsPerBlock, blocksPerGrid graph.Dim3, err error) {

	_ = globalOffset // carried with the command, consumed by the kernel itself

	limits := dev.Limits()
	threadsPerBlock = graph.Dim3{X: limits.WarpSize, Y: 1, Z: 1}
	blocksPerGrid = graph.Dim3{X: 1, Y: 1, Z: 1}

	maxBlock := [3]uint32{limits.MaxBlockDim.X, limits.MaxBlockDim.Y, limits.MaxBlockDim.Z}

	if localSize != nil {
		var product uint64 = 1
		tpb := [3]uint32{1, 1, 1}
		for dim := 0; dim < workDim; dim++ {
			ls := localSize[dim]
			if ls == 0 || ls > uint64(maxBlock[dim]) {
				return threadsPerBlock, blocksPerGrid,
					fmt.Errorf("%w: local size %d in dimension %d exceeds device limit %d",
						ErrInvalidWorkGroupSize, ls, dim, maxBlock[dim])
			}
			if globalSize[dim]%ls != 0 {
				return threadsPerBlock, blocksPerGrid,
					fmt.Errorf("%w: global size %d not divisible by local size %d in dimension %d",
						ErrInvalidWorkGroupSize, globalSize[dim], ls, dim)
			}
			product *= ls
			tpb[dim] = uint32(ls)
		}
		if product > uint64(limits.MaxThreadsPerBlock) {
			return threadsPerBlock, blocksPerGrid,
				fmt.Errorf("%w: %d threads per block exceeds device limit %d",
					ErrInvalidWorkGroupSize, product, limits.MaxThreadsPerBlock)
		}
		threadsPerBlock = graph.Dim3{X: tpb[0], Y: tpb[1], Z: tpb[2]}
	} else {
		// Guess a block width: at most one warp, shrunk until it divides the
		// global size.
		guess := uint64(limits.WarpSize)
		if guess > globalSize[0] {
			guess = globalSize[0]
		}
		for guess > 1 && globalSize[0]%guess != 0 {
			guess--
		}
		threadsPerBlock = graph.Dim3{X: uint32(guess), Y: 1, Z: 1}
	}

	gws := [3]uint64{1, 1, 1}
	for dim := 0; dim < workDim; dim++ {
		gws[dim] = globalSize[dim]
	}
	tpb := [3]uint32{threadsPerBlock.X, threadsPerBlock.Y, threadsPerBlock.Z}
	var bpg [3]uint32
	for dim := 0; dim < 3; dim++ {
		bpg[dim] = uint32((gws[dim] + uint64(tpb[dim]) - 1) / uint64(tpb[dim]))
		if bpg[dim] == 0 {
			bpg[dim] = 1
		}
	}
	blocksPerGrid = graph.Dim3{X: bpg[0], Y: bpg[1], Z: bpg[2]}
	return threadsPerBlock, blocksPerGrid, nil
}
