// Package hostgraph is a pure-host graph engine. It executes recorded graphs
// on CPU memory, one stream per goroutine, and exists so the command-buffer
// layer can be exercised without any device runtime installed. Kernel nodes
// run Go functions over the full grid/block iteration space.
package hostgraph

import (
	"fmt"
	"log/slog"
	"unsafe"

	"github.com/notargets/cmdgraph/graph"
)

func init() {
	graph.Register(graph.EngineHost, func() (graph.Engine, error) {
		return New(Config{}), nil
	})
}

// Config controls engine construction.
type Config struct {
	// Logger receives debug-level tracing of graph instantiation and
	// launches. Nil disables tracing.
	Logger *slog.Logger
}

// Engine is the host implementation of graph.Engine.
type Engine struct {
	logger *slog.Logger
	device *Device
}

// New creates a host engine.
func New(cfg Config) *Engine {
	eng := &Engine{logger: cfg.Logger}
	eng.device = &Device{eng: eng}
	return eng
}

// Name returns the engine identifier.
func (e *Engine) Name() string { return graph.EngineHost }

// Device returns the single host execution target.
func (e *Engine) Device(ordinal int) (graph.Device, error) {
	if ordinal != 0 {
		return nil, fmt.Errorf("hostgraph: no device with ordinal %d", ordinal)
	}
	return e.device, nil
}

// NewGraph creates an empty dependency graph.
func (e *Engine) NewGraph() (graph.Graph, error) {
	return &Graph{eng: e}, nil
}

// Device is the host CPU presented as an execution target.
type Device struct {
	eng *Engine
}

// Name returns the device name.
func (d *Device) Name() string { return "host" }

// Limits reports launch-shape limits. The warp size governs the default
// block width chosen for kernel launches with no explicit local size.
func (d *Device) Limits() graph.Limits {
	return graph.Limits{
		WarpSize:           32,
		MaxThreadsPerBlock: 1024,
		MaxBlockDim:        graph.Dim3{X: 1024, Y: 1024, Z: 64},
		MaxGridDim:         graph.Dim3{X: 1 << 30, Y: 65535, Z: 65535},
	}
}

// AllocMem allocates host-backed device memory.
func (d *Device) AllocMem(bytes uint64) (graph.Memory, error) {
	return &Mem{buf: make([]byte, bytes)}, nil
}

// NewStream creates an in-order execution lane backed by one goroutine.
func (d *Device) NewStream() (graph.Stream, error) {
	return newStream(), nil
}

// Free releases the device. Host devices hold no resources.
func (d *Device) Free() {}

// Mem is a host-backed allocation.
type Mem struct {
	buf []byte
}

// Size returns the allocation size in bytes.
func (m *Mem) Size() uint64 { return uint64(len(m.buf)) }

// Ptr returns the raw base pointer of the allocation.
func (m *Mem) Ptr() unsafe.Pointer {
	return unsafe.Pointer(unsafe.SliceData(m.buf))
}

// Bytes exposes the backing storage. Test helper.
func (m *Mem) Bytes() []byte { return m.buf }

// KernelArgPointer returns the raw base pointer; host kernels take device
// memory arguments as plain pointers.
func (m *Mem) KernelArgPointer() unsafe.Pointer { return m.Ptr() }

// CopyFromHost copies bytes from a host pointer into the allocation.
func (m *Mem) CopyFromHost(src unsafe.Pointer, bytes, offset uint64) error {
	if offset+bytes > uint64(len(m.buf)) {
		return fmt.Errorf("hostgraph: copy of %d bytes at offset %d exceeds allocation of %d",
			bytes, offset, len(m.buf))
	}
	copy(m.buf[offset:offset+bytes], unsafe.Slice((*byte)(src), bytes))
	return nil
}

// CopyToHost copies bytes from the allocation to a host pointer.
func (m *Mem) CopyToHost(dst unsafe.Pointer, bytes, offset uint64) error {
	if offset+bytes > uint64(len(m.buf)) {
		return fmt.Errorf("hostgraph: copy of %d bytes at offset %d exceeds allocation of %d",
			bytes, offset, len(m.buf))
	}
	copy(unsafe.Slice((*byte)(dst), bytes), m.buf[offset:offset+bytes])
	return nil
}

// Free releases the allocation.
func (m *Mem) Free() { m.buf = nil }

// resolve turns a Location into a raw pointer into host memory.
func resolve(l graph.Location) unsafe.Pointer {
	if l.Mem != nil {
		hm := l.Mem.(*Mem)
		return unsafe.Add(hm.Ptr(), l.Offset)
	}
	return l.Host
}
