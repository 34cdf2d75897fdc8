// Package graph defines the contract between the command-buffer layer and a
// device graph engine. An Engine owns devices, streams and memory; a Graph
// accumulates nodes and edges; Instantiate compiles the graph into an Exec
// that can be launched on a stream. The command-buffer core never talks to a
// device API directly, only through these interfaces, so a pure-host engine
// (hostgraph) and an OCCA-backed engine (occagraph) are interchangeable.
package graph

import (
	"errors"
	"unsafe"
)

// Common engine errors.
var (
	// ErrEngineNotAvailable is returned when a requested engine is not registered.
	ErrEngineNotAvailable = errors.New("graph: engine not available")

	// ErrUnknownNode is returned when an Exec is asked about a node that does
	// not belong to its graph.
	ErrUnknownNode = errors.New("graph: unknown node")

	// ErrNotKernelNode is returned when kernel node parameters are applied to
	// a node of a different kind.
	ErrNotKernelNode = errors.New("graph: not a kernel node")
)

// Node is an opaque handle to one unit of recorded work. Nodes are created
// and owned by the Graph that added them; callers only pass them back as
// dependency edges or as SetKernelNodeParams targets.
type Node interface {
	Kind() NodeKind
}

// NodeKind discriminates the recorded operation behind a Node.
type NodeKind int

const (
	KindEmpty NodeKind = iota
	KindKernel
	KindMemcpy
	KindMemcpy3D
	KindMemset
)

// Memory is a device allocation owned by an engine. Offsets passed to the
// copy helpers are in bytes from the start of the allocation.
type Memory interface {
	Size() uint64
	CopyFromHost(src unsafe.Pointer, bytes, offset uint64) error
	CopyToHost(dst unsafe.Pointer, bytes, offset uint64) error

	// KernelArgPointer returns the pointer value a kernel argument slot
	// should hold to reference this allocation. Engines whose kernels take
	// raw device pointers return the base address; engines that marshal
	// arguments return a handle they can recognize at launch time.
	KernelArgPointer() unsafe.Pointer

	Free()
}

// Stream is an in-order execution lane on a device. Submitted functions run
// one at a time in submission order; Synchronize blocks the host until every
// function submitted so far has finished.
type Stream interface {
	Submit(fn func())
	Synchronize() error
	Free()
}

// Device is one execution target owned by an engine.
type Device interface {
	Name() string
	Limits() Limits
	AllocMem(bytes uint64) (Memory, error)
	NewStream() (Stream, error)
	Free()
}

// Limits carries the device properties the kernel parameter resolver needs.
type Limits struct {
	WarpSize           uint32
	MaxThreadsPerBlock uint32
	MaxBlockDim        Dim3
	MaxGridDim         Dim3
}

// Graph is a mutable dependency graph of device operations. Add calls record
// one node with the given predecessors; edge storage is internal to the
// engine. A Graph remains valid after Instantiate, and Destroy releases it
// independently of any Exec built from it.
type Graph interface {
	AddEmptyNode(deps []Node) (Node, error)
	AddKernelNode(deps []Node, p *KernelNodeParams) (Node, error)
	AddMemcpyNode(deps []Node, p *MemcpyNodeParams) (Node, error)
	AddMemcpy3DNode(deps []Node, p *Memcpy3DParams) (Node, error)
	AddMemsetNode(deps []Node, p *MemsetNodeParams) (Node, error)

	// Instantiate compiles the recorded nodes into a launch-ready Exec.
	Instantiate() (Exec, error)

	Destroy()
}

// Exec is a compiled, launch-ready graph. Structure is frozen; the only
// sanctioned mutation is SetKernelNodeParams, which overwrites the launch
// parameters of one kernel node in place.
type Exec interface {
	// Launch submits the whole graph for execution on the given stream and
	// returns without waiting for device completion.
	Launch(s Stream) error

	// SetKernelNodeParams replaces the launch parameters of a kernel node
	// that was recorded in the source graph.
	SetKernelNodeParams(n Node, p *KernelNodeParams) error

	Destroy()
}

// Engine is a device graph backend.
type Engine interface {
	// Name returns the engine identifier (e.g. "host", "occa").
	Name() string

	// Device returns the execution target with the given ordinal.
	Device(ordinal int) (Device, error)

	// NewGraph creates an empty dependency graph.
	NewGraph() (Graph, error)
}
