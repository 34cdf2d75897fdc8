package graph

import "unsafe"

// Dim3 is a three-component extent, used for grid and block shapes.
type Dim3 struct {
	X, Y, Z uint32
}

// Size returns the total element count of the extent.
func (d Dim3) Size() uint64 {
	return uint64(d.X) * uint64(d.Y) * uint64(d.Z)
}

// Location addresses one end of a transfer. Either Mem is non-nil and Offset
// is a byte offset into that allocation, or Mem is nil and Host is a raw
// host pointer.
type Location struct {
	Mem    Memory
	Offset uint64
	Host   unsafe.Pointer
}

// OffsetBy returns the location advanced by the given byte count.
func (l Location) OffsetBy(bytes uint64) Location {
	if l.Mem != nil {
		l.Offset += bytes
		return l
	}
	l.Host = unsafe.Add(l.Host, bytes)
	return l
}

// Offset3D is an element offset into a three dimensional region.
type Offset3D struct {
	X, Y, Z uint64
}

// Extent3D is the shape of a three dimensional region in bytes along X and
// rows/slices along Y and Z.
type Extent3D struct {
	Width, Height, Depth uint64
}

// KernelNodeParams describes one kernel launch. Args holds one pointer per
// kernel argument, each pointing into the argument storage of the kernel
// that will be launched; the engine reads the pointed-at bytes at execution
// time, so overwriting the storage and re-applying the params updates the
// launch without touching graph structure.
type KernelNodeParams struct {
	Func      Function
	GridDim   Dim3
	BlockDim  Dim3
	SharedMem uint32
	Args      []unsafe.Pointer
}

// Function is an engine-specific kernel handle. hostgraph uses a Go function
// executed per work item; occagraph wraps a compiled OCCA kernel.
type Function any

// MemcpyNodeParams describes a linear copy of Bytes bytes.
type MemcpyNodeParams struct {
	Dst   Location
	Src   Location
	Bytes uint64
}

// Memcpy3DParams describes a rectangular copy. Pitches are in bytes; a zero
// row pitch defaults to the region width and a zero slice pitch to
// rowPitch*height, matching tightly packed layouts.
type Memcpy3DParams struct {
	Dst           Location
	Src           Location
	DstOrigin     Offset3D
	SrcOrigin     Offset3D
	Region        Extent3D
	DstRowPitch   uint64
	DstSlicePitch uint64
	SrcRowPitch   uint64
	SrcSlicePitch uint64
}

// MemsetNodeParams describes a strided fill: Height rows of Width elements,
// ElementSize bytes each, rows separated by Pitch bytes, every element set
// to the low ElementSize bytes of Value.
type MemsetNodeParams struct {
	Dst         Location
	Value       uint32
	ElementSize uint32
	Width       uint64
	Height      uint64
	Pitch       uint64
}

// RowPitches resolves the pitch defaults for a rectangular copy.
func (p *Memcpy3DParams) RowPitches() (srcRow, srcSlice, dstRow, dstSlice uint64) {
	srcRow, srcSlice = p.SrcRowPitch, p.SrcSlicePitch
	dstRow, dstSlice = p.DstRowPitch, p.DstSlicePitch
	if srcRow == 0 {
		srcRow = p.Region.Width
	}
	if srcSlice == 0 {
		srcSlice = srcRow * p.Region.Height
	}
	if dstRow == 0 {
		dstRow = p.Region.Width
	}
	if dstSlice == 0 {
		dstSlice = dstRow * p.Region.Height
	}
	return
}
