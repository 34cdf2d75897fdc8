package hostgraph

import (
	"encoding/binary"
	"log/slog"
	"unsafe"

	"github.com/notargets/cmdgraph/graph"
)

// Exec is a compiled host graph. Nodes execute in the snapshotted
// topological order; kernel parameters live in a per-Exec copy so
// SetKernelNodeParams never disturbs the source graph.
type Exec struct {
	eng     *Engine
	order   []*node
	kparams map[*node]*graph.KernelNodeParams
}

// Launch submits execution of the whole graph onto the stream and returns
// immediately. Completion is observed through stream synchronization or a
// marker submitted after the launch.
func (x *Exec) Launch(s graph.Stream) error {
	if x.eng.logger != nil {
		x.eng.logger.Debug("hostgraph: launching graph",
			slog.Int("nodes", len(x.order)))
	}
	s.Submit(func() {
		for _, n := range x.order {
			x.execute(n)
		}
	})
	return nil
}

// SetKernelNodeParams overwrites the launch parameters of one kernel node
// in place. Graph structure is untouched.
func (x *Exec) SetKernelNodeParams(gn graph.Node, p *graph.KernelNodeParams) error {
	n, ok := gn.(*node)
	if !ok {
		return graph.ErrUnknownNode
	}
	stored, ok := x.kparams[n]
	if !ok {
		if n.kind != graph.KindKernel {
			return graph.ErrNotKernelNode
		}
		return graph.ErrUnknownNode
	}
	*stored = *p
	stored.Args = append([]unsafe.Pointer(nil), p.Args...)
	return nil
}

// Destroy releases the compiled graph.
func (x *Exec) Destroy() {
	x.order = nil
	x.kparams = nil
}

func (x *Exec) execute(n *node) {
	switch n.kind {
	case graph.KindEmpty:
		// Barrier only; ordering comes from the snapshot order.
	case graph.KindKernel:
		runKernel(x.kparams[n])
	case graph.KindMemcpy:
		p := &n.memcpy
		dst := resolve(p.Dst)
		src := resolve(p.Src)
		copy(unsafe.Slice((*byte)(dst), p.Bytes), unsafe.Slice((*byte)(src), p.Bytes))
	case graph.KindMemcpy3D:
		executeRect(&n.rect)
	case graph.KindMemset:
		executeMemset(&n.memset)
	}
}

func executeMemset(p *graph.MemsetNodeParams) {
	var value [4]byte
	binary.LittleEndian.PutUint32(value[:], p.Value)

	base := resolve(p.Dst)
	es := uint64(p.ElementSize)
	for row := uint64(0); row < p.Height; row++ {
		rowPtr := unsafe.Add(base, row*p.Pitch)
		for col := uint64(0); col < p.Width; col++ {
			dst := unsafe.Slice((*byte)(unsafe.Add(rowPtr, col*es)), es)
			copy(dst, value[:es])
		}
	}
}

func executeRect(p *graph.Memcpy3DParams) {
	srcRow, srcSlice, dstRow, dstSlice := p.RowPitches()
	srcBase := resolve(p.Src)
	dstBase := resolve(p.Dst)

	for z := uint64(0); z < p.Region.Depth; z++ {
		for y := uint64(0); y < p.Region.Height; y++ {
			srcOff := p.SrcOrigin.X +
				srcRow*(p.SrcOrigin.Y+y) +
				srcSlice*(p.SrcOrigin.Z+z)
			dstOff := p.DstOrigin.X +
				dstRow*(p.DstOrigin.Y+y) +
				dstSlice*(p.DstOrigin.Z+z)
			src := unsafe.Slice((*byte)(unsafe.Add(srcBase, srcOff)), p.Region.Width)
			dst := unsafe.Slice((*byte)(unsafe.Add(dstBase, dstOff)), p.Region.Width)
			copy(dst, src)
		}
	}
}
