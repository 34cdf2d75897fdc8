package hostgraph

import (
	"fmt"
	"log/slog"
	"unsafe"

	"github.com/notargets/cmdgraph/graph"
)

// node is one recorded operation. Dependencies always point at previously
// added nodes, so the insertion order of a Graph is already a topological
// order of its edges.
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
		hn, ok := d.(*node)
		if !ok || hn.owner != g {
			return nil, graph.ErrUnknownNode
		}
		out = append(out, hn)
	}
	return out, nil
}

func (g *Graph) add(kind graph.NodeKind, deps []graph.Node) (*node, error) {
	hd, err := g.adoptDeps(deps)
	if err != nil {
		return nil, err
	}
	n := &node{owner: g, kind: kind, deps: hd, id: len(g.nodes)}
	g.nodes = append(g.nodes, n)
	return n, nil
}

// AddEmptyNode records a no-op barrier node.
func (g *Graph) AddEmptyNode(deps []graph.Node) (graph.Node, error) {
	return g.add(graph.KindEmpty, deps)
}

// AddKernelNode records a kernel launch.
func (g *Graph) AddKernelNode(deps []graph.Node, p *graph.KernelNodeParams) (graph.Node, error) {
	if _, ok := p.Func.(Kernel); !ok {
		return nil, fmt.Errorf("hostgraph: kernel node function must be a hostgraph.Kernel, got %T", p.Func)
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
// parameters are copied so that in-place updates on the Exec leave the
// source graph untouched.
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
		g.eng.logger.Debug("hostgraph: instantiated graph",
			slog.Int("nodes", len(order)))
	}
	return &Exec{eng: g.eng, order: order, kparams: kparams}, nil
}

// Destroy releases the graph. Exec objects built from it stay valid.
func (g *Graph) Destroy() {
	g.nodes = nil
}

// NodeCount reports the number of recorded nodes. Test helper.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// Roots returns the nodes with no predecessors. Test helper.
func (g *Graph) Roots() []graph.Node {
	var roots []graph.Node
	for _, n := range g.nodes {
		if len(n.deps) == 0 {
			roots = append(roots, n)
		}
	}
	return roots
}

// Predecessors returns the dependency list of a node. Test helper.
func (g *Graph) Predecessors(gn graph.Node) []graph.Node {
	n, ok := gn.(*node)
	if !ok || n.owner != g {
		return nil
	}
	out := make([]graph.Node, len(n.deps))
	for i, d := range n.deps {
		out[i] = d
	}
	return out
}

// NodeKindOf reports the kind of a node. Test helper.
func (g *Graph) NodeKindOf(gn graph.Node) (graph.NodeKind, bool) {
	n, ok := gn.(*node)
	if !ok || n.owner != g {
		return 0, false
	}
	return n.kind, true
}
