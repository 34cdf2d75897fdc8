package occagraph

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"unsafe"

	"github.com/notargets/cmdgraph/graph"
)

// node is one recorded operation. Dependencies always point at previously
// added nodes, so insertion order is a topological order of the edges.
type node struct {
	owner *Graph
	kind  graph.NodeKind
	deps  []*node
	id    int

	kernel graph.KernelNodeParams
	memcpy graph.MemcpyNodeParams
	rect   graph.Memcpy3DParams
	memset graph.MemsetNodeParams
}

func (n *node) Kind() graph.NodeKind { return n.kind }

// Graph accumulates nodes for later instantiation.
type Graph struct {
	eng   *Engine
	nodes []*node
}

func (g *Graph) adoptDeps(deps []graph.Node) ([]*node, error) {
	out := make([]*node, 0, len(deps))
	for _, d := range deps {
		on, ok := d.(*node)
		if !ok || on.owner != g {
			return nil, graph.ErrUnknownNode
		}
		out = append(out, on)
	}
	return out, nil
}

func (g *Graph) add(kind graph.NodeKind, deps []graph.Node) (*node, error) {
	od, err := g.adoptDeps(deps)
	if err != nil {
		return nil, err
	}
	n := &node{owner: g, kind: kind, deps: od, id: len(g.nodes)}
	g.nodes = append(g.nodes, n)
	return n, nil
}

// AddEmptyNode records a no-op barrier node.
func (g *Graph) AddEmptyNode(deps []graph.Node) (graph.Node, error) {
	return g.add(graph.KindEmpty, deps)
}

// AddKernelNode records a kernel launch.
func (g *Graph) AddKernelNode(deps []graph.Node, p *graph.KernelNodeParams) (graph.Node, error) {
	if _, ok := p.Func.(*Function); !ok {
		return nil, fmt.Errorf("occagraph: kernel node function must be an occagraph.Function, got %T", p.Func)
	}
	n, err := g.add(graph.KindKernel, deps)
	if err != nil {
		return nil, err
	}
	n.kernel = *p
	n.kernel.Args = append([]unsafe.Pointer(nil), p.Args...)
	return n, nil
}

// AddMemcpyNode records a linear copy.
func (g *Graph) AddMemcpyNode(deps []graph.Node, p *graph.MemcpyNodeParams) (graph.Node, error) {
	n, err := g.add(graph.KindMemcpy, deps)
	if err != nil {
		return nil, err
	}
	n.memcpy = *p
	return n, nil
}

// AddMemcpy3DNode records a rectangular copy.
func (g *Graph) AddMemcpy3DNode(deps []graph.Node, p *graph.Memcpy3DParams) (graph.Node, error) {
	n, err := g.add(graph.KindMemcpy3D, deps)
	if err != nil {
		return nil, err
	}
	n.rect = *p
	return n, nil
}

// AddMemsetNode records a strided fill.
func (g *Graph) AddMemsetNode(deps []graph.Node, p *graph.MemsetNodeParams) (graph.Node, error) {
	n, err := g.add(graph.KindMemset, deps)
	if err != nil {
		return nil, err
	}
	n.memset = *p
	return n, nil
}

// Instantiate snapshots the graph into a launch-ready Exec. Kernel node
// parameters are copied so in-place updates on the Exec leave the source
// graph untouched.
func (g *Graph) Instantiate() (graph.Exec, error) {
	order := make([]*node, len(g.nodes))
	copy(order, g.nodes)

	kparams := make(map[*node]*graph.KernelNodeParams)
	for _, n := range order {
		if n.kind == graph.KindKernel {
			p := n.kernel
			p.Args = append([]unsafe.Pointer(nil), n.kernel.Args...)
			kparams[n] = &p
		}
	}
	if g.eng.logger != nil {
		g.eng.logger.Debug("occagraph: instantiated graph",
			slog.Int("nodes", len(order)))
	}
	return &Exec{eng: g.eng, order: order, kparams: kparams}, nil
}

// Destroy releases the graph. Exec objects built from it stay valid.
func (g *Graph) Destroy() { g.nodes = nil }

// Exec is a compiled graph executed node by node on an in-order stream.
type Exec struct {
	eng     *Engine
	order   []*node
	kparams map[*node]*graph.KernelNodeParams
}

// Launch submits execution of the whole graph onto the stream and returns
// immediately. Execution errors surface at stream synchronization.
func (x *Exec) Launch(s graph.Stream) error {
	os, ok := s.(*Stream)
	if !ok {
		return fmt.Errorf("occagraph: launch requires an occagraph stream, got %T", s)
	}
	if x.eng.logger != nil {
		x.eng.logger.Debug("occagraph: launching graph",
			slog.Int("nodes", len(x.order)))
	}
	os.submitErr(func() error {
		for _, n := range x.order {
			if err := x.execute(n); err != nil {
				return err
			}
		}
		x.eng.device.occa.Finish()
		return nil
	})
	return nil
}

// SetKernelNodeParams overwrites the launch parameters of one kernel node
// in place.
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

func (x *Exec) execute(n *node) error {
	switch n.kind {
	case graph.KindEmpty:
		return nil
	case graph.KindKernel:
		p := x.kparams[n]
		return p.Func.(*Function).run(p.Args)
	case graph.KindMemcpy:
		return transfer(n.memcpy.Dst, n.memcpy.Src, n.memcpy.Bytes)
	case graph.KindMemcpy3D:
		return executeRect(&n.rect)
	case graph.KindMemset:
		return executeMemset(&n.memset)
	default:
		return fmt.Errorf("occagraph: unknown node kind %d", n.kind)
	}
}

// transfer moves bytes between two locations, staging through the host for
// device-to-device copies since OCCA exposes only host-side copy entry
// points.
func transfer(dst, src graph.Location, bytes uint64) error {
	if bytes == 0 {
		return nil
	}
	switch {
	case dst.Mem != nil && src.Mem != nil:
		tmp := make([]byte, bytes)
		if err := src.Mem.CopyToHost(unsafe.Pointer(&tmp[0]), bytes, src.Offset); err != nil {
			return err
		}
		return dst.Mem.CopyFromHost(unsafe.Pointer(&tmp[0]), bytes, dst.Offset)
	case dst.Mem != nil:
		return dst.Mem.CopyFromHost(src.Host, bytes, dst.Offset)
	case src.Mem != nil:
		return src.Mem.CopyToHost(dst.Host, bytes, src.Offset)
	default:
		copy(unsafe.Slice((*byte)(dst.Host), bytes), unsafe.Slice((*byte)(src.Host), bytes))
		return nil
	}
}

func executeMemset(p *graph.MemsetNodeParams) error {
	var value [4]byte
	binary.LittleEndian.PutUint32(value[:], p.Value)
	es := uint64(p.ElementSize)

	rowBytes := es * p.Width
	row := make([]byte, rowBytes)
	for col := uint64(0); col < p.Width; col++ {
		copy(row[col*es:(col+1)*es], value[:es])
	}

	// Contiguous rows collapse into one staged transfer.
	if p.Pitch == rowBytes && p.Height > 0 {
		all := make([]byte, rowBytes*p.Height)
		for r := uint64(0); r < p.Height; r++ {
			copy(all[r*rowBytes:], row)
		}
		return transfer(p.Dst, graph.Location{Host: unsafe.Pointer(&all[0])}, uint64(len(all)))
	}

	for r := uint64(0); r < p.Height; r++ {
		dst := p.Dst.OffsetBy(r * p.Pitch)
		if err := transfer(dst, graph.Location{Host: unsafe.Pointer(&row[0])}, rowBytes); err != nil {
			return err
		}
	}
	return nil
}

func executeRect(p *graph.Memcpy3DParams) error {
	srcRow, srcSlice, dstRow, dstSlice := p.RowPitches()
	for z := uint64(0); z < p.Region.Depth; z++ {
		for y := uint64(0); y < p.Region.Height; y++ {
			srcOff := p.SrcOrigin.X + srcRow*(p.SrcOrigin.Y+y) + srcSlice*(p.SrcOrigin.Z+z)
			dstOff := p.DstOrigin.X + dstRow*(p.DstOrigin.Y+y) + dstSlice*(p.DstOrigin.Z+z)
			if err := transfer(p.Dst.OffsetBy(dstOff), p.Src.OffsetBy(srcOff), p.Region.Width); err != nil {
				return err
			}
		}
	}
	return nil
}
