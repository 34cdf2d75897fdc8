package hostgraph

import (
	"runtime"
	"sync"
	"unsafe"

	"github.com/notargets/cmdgraph/graph"
)

// Kernel is the hostgraph kernel function type: invoked once per work item
// over the full grid. Args holds one pointer per kernel argument; the
// function casts each pointer to its declared type, exactly as a device
// kernel reads its parameter buffer.
type Kernel func(t Thread, args []unsafe.Pointer)

// Thread identifies one work item within a launch.
type Thread struct {
	GridDim   graph.Dim3
	BlockDim  graph.Dim3
	BlockIdx  graph.Dim3
	ThreadIdx graph.Dim3
}

// GlobalX returns the flattened global index along X.
func (t Thread) GlobalX() uint64 {
	return uint64(t.BlockIdx.X)*uint64(t.BlockDim.X) + uint64(t.ThreadIdx.X)
}

// GlobalY returns the flattened global index along Y.
func (t Thread) GlobalY() uint64 {
	return uint64(t.BlockIdx.Y)*uint64(t.BlockDim.Y) + uint64(t.ThreadIdx.Y)
}

// GlobalZ returns the flattened global index along Z.
func (t Thread) GlobalZ() uint64 {
	return uint64(t.BlockIdx.Z)*uint64(t.BlockDim.Z) + uint64(t.ThreadIdx.Z)
}

// runKernel executes a kernel node over its grid. Blocks are distributed
// across workers; threads within a block run sequentially, so block-local
// ordering is deterministic.
func runKernel(p *graph.KernelNodeParams) {
	fn := p.Func.(Kernel)

	numBlocks := int(p.GridDim.Size())
	if numBlocks == 0 {
		return
	}

	numWorkers := runtime.NumCPU()
	if numBlocks < numWorkers {
		numWorkers = numBlocks
	}
	blocksPerWorker := (numBlocks + numWorkers - 1) / numWorkers

	var wg sync.WaitGroup
	wg.Add(numWorkers)
	for w := 0; w < numWorkers; w++ {
		go func(start int) {
			defer wg.Done()
			end := start + blocksPerWorker
			if end > numBlocks {
				end = numBlocks
			}
			for b := start; b < end; b++ {
				runBlock(fn, p, b)
			}
		}(w * blocksPerWorker)
	}
	wg.Wait()
}

func runBlock(fn Kernel, p *graph.KernelNodeParams, flat int) {
	grid := p.GridDim
	block := p.BlockDim

	bx := uint32(flat) % grid.X
	by := (uint32(flat) / grid.X) % grid.Y
	bz := uint32(flat) / (grid.X * grid.Y)

	t := Thread{
		GridDim:  grid,
		BlockDim: block,
		BlockIdx: graph.Dim3{X: bx, Y: by, Z: bz},
	}
	for tz := uint32(0); tz < block.Z; tz++ {
		for ty := uint32(0); ty < block.Y; ty++ {
			for tx := uint32(0); tx < block.X; tx++ {
				t.ThreadIdx = graph.Dim3{X: tx, Y: ty, Z: tz}
				fn(t, p.Args)
			}
		}
	}
}
