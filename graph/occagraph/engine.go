// Package occagraph is a graph engine backed by OCCA devices through
// gocca. OCCA has no native graph API, so the engine executes instantiated
// graphs itself, walking nodes in dependency order on an in-order stream
// and dispatching each node through the OCCA device. Kernel launch shape is
// embedded in OCCA kernel source; the block/grid dimensions recorded in the
// node parameters are carried for bookkeeping and update plumbing.
package occagraph

import (
	"fmt"
	"log/slog"
	"sync"
	"unsafe"

	"github.com/notargets/cmdgraph/graph"
	"github.com/notargets/gocca"
)

func init() {
	graph.Register(graph.EngineOCCA, func() (graph.Engine, error) {
		return New(Config{})
	})
}

// DefaultDeviceProps is the property list tried in order when Config names
// none, preferring parallel backends and falling back to Serial.
var DefaultDeviceProps = []string{
	`{"mode": "CUDA", "device_id": 0}`,
	`{"mode": "HIP", "device_id": 0}`,
	`{"mode": "OpenMP"}`,
	`{"mode": "Serial"}`,
}

// Config controls engine construction.
type Config struct {
	// DeviceProps are OCCA device property JSON strings tried in order.
	// Empty means DefaultDeviceProps.
	DeviceProps []string

	// Logger receives debug-level tracing. Nil disables tracing.
	Logger *slog.Logger
}

// Engine is the OCCA implementation of graph.Engine.
type Engine struct {
	logger *slog.Logger
	device *Device
}

// New creates an OCCA engine, probing the configured device properties in
// order. Failure of every candidate is an error so registry fallback can
// move on to the host engine.
func New(cfg Config) (*Engine, error) {
	props := cfg.DeviceProps
	if len(props) == 0 {
		props = DefaultDeviceProps
	}

	var dev *gocca.OCCADevice
	var err error
	for _, p := range props {
		dev, err = gocca.NewDevice(p)
		if err == nil {
			break
		}
	}
	if dev == nil {
		return nil, fmt.Errorf("occagraph: no OCCA device available: %w", err)
	}

	eng := &Engine{logger: cfg.Logger}
	eng.device = &Device{eng: eng, occa: dev}
	if cfg.Logger != nil {
		cfg.Logger.Debug("occagraph: created device", slog.String("mode", dev.Mode()))
	}
	return eng, nil
}

// Name returns the engine identifier.
func (e *Engine) Name() string { return graph.EngineOCCA }

// Device returns the OCCA execution target.
func (e *Engine) Device(ordinal int) (graph.Device, error) {
	if ordinal != 0 {
		return nil, fmt.Errorf("occagraph: no device with ordinal %d", ordinal)
	}
	return e.device, nil
}

// NewGraph creates an empty dependency graph.
func (e *Engine) NewGraph() (graph.Graph, error) {
	return &Graph{eng: e}, nil
}

// Device wraps one OCCA device.
type Device struct {
	eng  *Engine
	occa *gocca.OCCADevice
}

// Name returns the OCCA mode string.
func (d *Device) Name() string { return d.occa.Mode() }

// OCCA exposes the underlying gocca device.
func (d *Device) OCCA() *gocca.OCCADevice { return d.occa }

// Limits reports launch-shape limits. HIP wavefronts are 64 wide; every
// other OCCA mode is treated as warp 32.
func (d *Device) Limits() graph.Limits {
	warp := uint32(32)
	if d.occa.Mode() == "HIP" {
		warp = 64
	}
	return graph.Limits{
		WarpSize:           warp,
		MaxThreadsPerBlock: 1024,
		MaxBlockDim:        graph.Dim3{X: 1024, Y: 1024, Z: 64},
		MaxGridDim:         graph.Dim3{X: 1 << 30, Y: 65535, Z: 65535},
	}
}

// AllocMem allocates device memory.
func (d *Device) AllocMem(bytes uint64) (graph.Memory, error) {
	mem := d.occa.Malloc(int64(bytes), nil, nil)
	if mem == nil {
		return nil, fmt.Errorf("occagraph: allocating %d bytes failed", bytes)
	}
	return &Mem{occa: mem, size: bytes}, nil
}

// NewStream creates an in-order execution lane.
func (d *Device) NewStream() (graph.Stream, error) {
	return newStream(), nil
}

// Free releases the OCCA device.
func (d *Device) Free() { d.occa.Free() }

// BuildKernelFromString compiles an OCCA kernel, applying the -O3
// workaround OpenMP needs to match the default flags of other modes.
func (d *Device) BuildKernelFromString(source, name string) (*gocca.OCCAKernel, error) {
	if d.occa.Mode() == "OpenMP" {
		props := gocca.JsonParse(`{"compiler_flags": "-O3"}`)
		defer props.Free()
		return d.occa.BuildKernelFromString(source, name, props)
	}
	return d.occa.BuildKernelFromString(source, name, nil)
}

// Mem wraps one OCCA allocation.
type Mem struct {
	occa *gocca.OCCAMemory
	size uint64
}

// Size returns the allocation size in bytes.
func (m *Mem) Size() uint64 { return m.size }

// OCCA exposes the underlying gocca memory.
func (m *Mem) OCCA() *gocca.OCCAMemory { return m.occa }

// CopyFromHost copies bytes from a host pointer into the allocation.
func (m *Mem) CopyFromHost(src unsafe.Pointer, bytes, offset uint64) error {
	if offset+bytes > m.size {
		return fmt.Errorf("occagraph: copy of %d bytes at offset %d exceeds allocation of %d",
			bytes, offset, m.size)
	}
	m.occa.CopyFromWithOffset(src, int64(bytes), int64(offset))
	return nil
}

// CopyToHost copies bytes from the allocation to a host pointer.
func (m *Mem) CopyToHost(dst unsafe.Pointer, bytes, offset uint64) error {
	if offset+bytes > m.size {
		return fmt.Errorf("occagraph: copy of %d bytes at offset %d exceeds allocation of %d",
			bytes, offset, m.size)
	}
	m.occa.CopyToWithOffset(dst, int64(bytes), int64(offset))
	return nil
}

// KernelArgPointer returns a handle Function marshaling recognizes at
// launch time: the address of this Mem wrapper, not a raw device pointer.
func (m *Mem) KernelArgPointer() unsafe.Pointer {
	return unsafe.Pointer(m)
}

// Free releases the allocation.
func (m *Mem) Free() { m.occa.Free() }

// Stream is an in-order execution lane drained by a single goroutine.
// Execution errors surface at Synchronize, mirroring how device errors are
// observed on real stream APIs.
type Stream struct {
	work chan func() error
	done chan struct{}

	mu       sync.Mutex
	firstErr error
}

func newStream() *Stream {
	s := &Stream{
		work: make(chan func() error, 64),
		done: make(chan struct{}),
	}
	go s.drain()
	return s
}

func (s *Stream) drain() {
	defer close(s.done)
	for fn := range s.work {
		if err := fn(); err != nil {
			s.mu.Lock()
			if s.firstErr == nil {
				s.firstErr = err
			}
			s.mu.Unlock()
		}
	}
}

// Submit queues a function for in-order execution.
func (s *Stream) Submit(fn func()) {
	s.work <- func() error { fn(); return nil }
}

func (s *Stream) submitErr(fn func() error) {
	s.work <- fn
}

// Synchronize blocks until everything submitted so far has run and returns
// the first execution error recorded since the previous Synchronize.
func (s *Stream) Synchronize() error {
	marker := make(chan struct{})
	s.Submit(func() { close(marker) })
	<-marker

	s.mu.Lock()
	err := s.firstErr
	s.firstErr = nil
	s.mu.Unlock()
	return err
}

// Free shuts the stream down after draining pending work.
func (s *Stream) Free() {
	close(s.work)
	<-s.done
}
