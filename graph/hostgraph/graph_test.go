package hostgraph

import (
	"bytes"
	"errors"
	"testing"
	"unsafe"

	"github.com/notargets/cmdgraph/graph"
)

func testGraph(t *testing.T) (*Engine, *Graph) {
	t.Helper()
	eng := New(Config{})
	g, err := eng.NewGraph()
	if err != nil {
		t.Fatalf("NewGraph failed: %v", err)
	}
	return eng, g.(*Graph)
}

func launch(t *testing.T, eng *Engine, g *Graph) {
	t.Helper()
	exec, err := g.Instantiate()
	if err != nil {
		t.Fatalf("Instantiate failed: %v", err)
	}
	defer exec.Destroy()

	s, _ := eng.device.NewStream()
	defer s.Free()
	if err := exec.Launch(s); err != nil {
		t.Fatalf("Launch failed: %v", err)
	}
	if err := s.Synchronize(); err != nil {
		t.Fatalf("Synchronize failed: %v", err)
	}
}

// TestGraphDependencyValidation tests that foreign and cross-graph nodes
// are rejected
func TestGraphDependencyValidation(t *testing.T) {
	_, g1 := testGraph(t)
	_, g2 := testGraph(t)

	n1, err := g1.AddEmptyNode(nil)
	if err != nil {
		t.Fatalf("AddEmptyNode failed: %v", err)
	}

	_, err = g2.AddEmptyNode([]graph.Node{n1})
	if !errors.Is(err, graph.ErrUnknownNode) {
		t.Errorf("Cross-graph dependency should fail with ErrUnknownNode, got %v", err)
	}

	// Same graph: fine.
	if _, err := g1.AddEmptyNode([]graph.Node{n1}); err != nil {
		t.Errorf("Same-graph dependency failed: %v", err)
	}
}

// TestGraphStructureHelpers tests root and predecessor reporting
func TestGraphStructureHelpers(t *testing.T) {
	_, g := testGraph(t)

	a, _ := g.AddEmptyNode(nil)
	b, _ := g.AddEmptyNode(nil)
	c, _ := g.AddEmptyNode([]graph.Node{a, b})

	if g.NodeCount() != 3 {
		t.Errorf("NodeCount = %d, expected 3", g.NodeCount())
	}
	if roots := g.Roots(); len(roots) != 2 {
		t.Errorf("Expected 2 roots, got %d", len(roots))
	}
	preds := g.Predecessors(c)
	if len(preds) != 2 || preds[0] != a || preds[1] != b {
		t.Errorf("Predecessors(c) = %v, expected [a b]", preds)
	}
	if kind, ok := g.NodeKindOf(c); !ok || kind != graph.KindEmpty {
		t.Errorf("NodeKindOf(c) = %v/%v, expected KindEmpty", kind, ok)
	}
}

// TestMemcpyExecution tests host<->device linear copies through a graph
func TestMemcpyExecution(t *testing.T) {
	eng, g := testGraph(t)

	mem, _ := eng.device.AllocMem(16)
	src := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	dst := make([]byte, 8)

	up, err := g.AddMemcpyNode(nil, &graph.MemcpyNodeParams{
		Dst:   graph.Location{Mem: mem, Offset: 4},
		Src:   graph.Location{Host: unsafe.Pointer(&src[0])},
		Bytes: 8,
	})
	if err != nil {
		t.Fatalf("AddMemcpyNode failed: %v", err)
	}
	if _, err := g.AddMemcpyNode([]graph.Node{up}, &graph.MemcpyNodeParams{
		Dst:   graph.Location{Host: unsafe.Pointer(&dst[0])},
		Src:   graph.Location{Mem: mem, Offset: 4},
		Bytes: 8,
	}); err != nil {
		t.Fatalf("AddMemcpyNode failed: %v", err)
	}

	launch(t, eng, g)

	if !bytes.Equal(src, dst) {
		t.Errorf("Round trip = %v, expected %v", dst, src)
	}
}

// TestMemsetExecution tests strided fills
func TestMemsetExecution(t *testing.T) {
	eng, g := testGraph(t)

	t.Run("Contiguous4Byte", func(t *testing.T) {
		mem, _ := eng.device.AllocMem(16)
		_, err := g.AddMemsetNode(nil, &graph.MemsetNodeParams{
			Dst:         graph.Location{Mem: mem},
			Value:       0x04030201,
			ElementSize: 4,
			Width:       1,
			Height:      4,
			Pitch:       4,
		})
		if err != nil {
			t.Fatalf("AddMemsetNode failed: %v", err)
		}
		launch(t, eng, g)

		expected := bytes.Repeat([]byte{1, 2, 3, 4}, 4)
		if !bytes.Equal(mem.(*Mem).Bytes(), expected) {
			t.Errorf("Fill = %v, expected %v", mem.(*Mem).Bytes(), expected)
		}
	})

	t.Run("Strided1Byte", func(t *testing.T) {
		eng, g := testGraph(t)
		mem, _ := eng.device.AllocMem(8)
		// One byte every 4, starting at offset 2.
		_, err := g.AddMemsetNode(nil, &graph.MemsetNodeParams{
			Dst:         graph.Location{Mem: mem, Offset: 2},
			Value:       0xAA,
			ElementSize: 1,
			Width:       1,
			Height:      2,
			Pitch:       4,
		})
		if err != nil {
			t.Fatalf("AddMemsetNode failed: %v", err)
		}
		launch(t, eng, g)

		expected := []byte{0, 0, 0xAA, 0, 0, 0, 0xAA, 0}
		if !bytes.Equal(mem.(*Mem).Bytes(), expected) {
			t.Errorf("Fill = %v, expected %v", mem.(*Mem).Bytes(), expected)
		}
	})
}

// TestMemcpy3DExecution tests a 2D sub-rectangle copy with pitches
func TestMemcpy3DExecution(t *testing.T) {
	eng, g := testGraph(t)

	// Source: 4x4 byte matrix, rows 0..3 = i*16+j.
	src := make([]byte, 16)
	for i := range src {
		src[i] = byte(i)
	}
	dst := make([]byte, 16)

	// Copy the 2x2 block at origin (1,1) into dst at origin (0,0).
	_, err := g.AddMemcpy3DNode(nil, &graph.Memcpy3DParams{
		Dst:         graph.Location{Host: unsafe.Pointer(&dst[0])},
		Src:         graph.Location{Host: unsafe.Pointer(&src[0])},
		SrcOrigin:   graph.Offset3D{X: 1, Y: 1},
		Region:      graph.Extent3D{Width: 2, Height: 2, Depth: 1},
		SrcRowPitch: 4,
		DstRowPitch: 4,
	})
	if err != nil {
		t.Fatalf("AddMemcpy3DNode failed: %v", err)
	}
	launch(t, eng, g)

	if dst[0] != 5 || dst[1] != 6 || dst[4] != 9 || dst[5] != 10 {
		t.Errorf("Rect copy produced %v", dst[:8])
	}
}

// TestKernelExecution tests a kernel node over a multi-block grid
func TestKernelExecution(t *testing.T) {
	eng, g := testGraph(t)

	const n = 1000
	data := make([]float64, n)
	base := unsafe.Pointer(&data[0])
	count := uint64(n)

	fn := Kernel(func(t Thread, args []unsafe.Pointer) {
		p := *(*unsafe.Pointer)(args[0])
		n := *(*uint64)(args[1])
		i := t.GlobalX()
		if i >= n {
			return
		}
		*(*float64)(unsafe.Add(p, i*8)) = float64(i) * 2
	})

	_, err := g.AddKernelNode(nil, &graph.KernelNodeParams{
		Func:     fn,
		GridDim:  graph.Dim3{X: 8, Y: 1, Z: 1},
		BlockDim: graph.Dim3{X: 125, Y: 1, Z: 1},
		Args: []unsafe.Pointer{
			unsafe.Pointer(&base),
			unsafe.Pointer(&count),
		},
	})
	if err != nil {
		t.Fatalf("AddKernelNode failed: %v", err)
	}
	launch(t, eng, g)

	for i := 0; i < n; i++ {
		if data[i] != float64(i)*2 {
			t.Fatalf("data[%d] = %v, expected %v", i, data[i], float64(i)*2)
		}
	}
}

// TestAddKernelNodeRejectsForeignFunc tests the function-type check
func TestAddKernelNodeRejectsForeignFunc(t *testing.T) {
	_, g := testGraph(t)

	_, err := g.AddKernelNode(nil, &graph.KernelNodeParams{Func: "not a kernel"})
	if err == nil {
		t.Error("Expected error for a non-hostgraph kernel function")
	}
}

// TestExecSetKernelNodeParams tests in-place parameter replacement and its
// error cases
func TestExecSetKernelNodeParams(t *testing.T) {
	eng, g := testGraph(t)

	var hits int32
	fn := Kernel(func(t Thread, args []unsafe.Pointer) {
		hits++
	})

	kn, err := g.AddKernelNode(nil, &graph.KernelNodeParams{
		Func:     fn,
		GridDim:  graph.Dim3{X: 1, Y: 1, Z: 1},
		BlockDim: graph.Dim3{X: 1, Y: 1, Z: 1},
	})
	if err != nil {
		t.Fatalf("AddKernelNode failed: %v", err)
	}
	en, _ := g.AddEmptyNode(nil)

	exec, err := g.Instantiate()
	if err != nil {
		t.Fatalf("Instantiate failed: %v", err)
	}
	defer exec.Destroy()

	// Widen the block; the graph's own copy must stay untouched.
	if err := exec.SetKernelNodeParams(kn, &graph.KernelNodeParams{
		Func:     fn,
		GridDim:  graph.Dim3{X: 1, Y: 1, Z: 1},
		BlockDim: graph.Dim3{X: 4, Y: 1, Z: 1},
	}); err != nil {
		t.Fatalf("SetKernelNodeParams failed: %v", err)
	}
	if g.nodes[0].kernel.BlockDim.X != 1 {
		t.Error("Updating the exec changed the source graph")
	}

	s, _ := eng.device.NewStream()
	defer s.Free()
	if err := exec.Launch(s); err != nil {
		t.Fatalf("Launch failed: %v", err)
	}
	if err := s.Synchronize(); err != nil {
		t.Fatalf("Synchronize failed: %v", err)
	}
	if hits != 4 {
		t.Errorf("Kernel ran %d times, expected 4 after the update", hits)
	}

	if err := exec.SetKernelNodeParams(en, &graph.KernelNodeParams{}); !errors.Is(err, graph.ErrNotKernelNode) {
		t.Errorf("Expected ErrNotKernelNode for an empty node, got %v", err)
	}
}
