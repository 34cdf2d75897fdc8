package cmdbuf

import (
	"fmt"
	"unsafe"

	"github.com/notargets/cmdgraph/graph"
	"github.com/notargets/cmdgraph/rt"
)

// appendMemcpyNode is the shared tail of every linear copy append: resolve
// dependencies, add one node, register one sync point.
func (cb *CommandBuffer) appendMemcpyNode(dst, src graph.Location, bytes uint64,
	waitList []SyncPoint) (SyncPoint, error) {

	deps, err := cb.nodesFromSyncPoints(waitList)
	if err != nil {
		return 0, err
	}
	node, err := cb.graph.AddMemcpyNode(deps, &graph.MemcpyNodeParams{
		Dst:   dst,
		Src:   src,
		Bytes: bytes,
	})
	if err != nil {
		return 0, fmt.Errorf("%w: adding memcpy node: %v", ErrUnknown, err)
	}
	return cb.addSyncPoint(node), nil
}

// AppendMemcpy records a linear copy between raw pointers, in any
// host/device direction the engine's pointers admit.
func (cb *CommandBuffer) AppendMemcpy(dst, src unsafe.Pointer, bytes uint64,
	waitList []SyncPoint) (SyncPoint, error) {

	if dst == nil || src == nil {
		return 0, fmt.Errorf("%w: nil memcpy pointer", ErrInvalidValue)
	}
	return cb.appendMemcpyNode(
		graph.Location{Host: dst}, graph.Location{Host: src}, bytes, waitList)
}

// checkBufferBounds enforces offset+size within the buffer extent.
func checkBufferBounds(what string, b *rt.Buffer, offset, size uint64) error {
	if offset+size > b.Size() {
		return fmt.Errorf("%w: %s access of %d bytes at offset %d exceeds extent %d",
			ErrInvalidSize, what, size, offset, b.Size())
	}
	return nil
}

// AppendBufferCopy records a device-to-device copy between buffer regions.
func (cb *CommandBuffer) AppendBufferCopy(src, dst *rt.Buffer,
	srcOffset, dstOffset, bytes uint64, waitList []SyncPoint) (SyncPoint, error) {

	if err := checkBufferBounds("destination", dst, dstOffset, bytes); err != nil {
		return 0, err
	}
	if err := checkBufferBounds("source", src, srcOffset, bytes); err != nil {
		return 0, err
	}
	return cb.appendMemcpyNode(
		dst.Location(dstOffset), src.Location(srcOffset), bytes, waitList)
}

// AppendBufferWrite records a host-to-device copy into a buffer region.
func (cb *CommandBuffer) AppendBufferWrite(dst *rt.Buffer, offset, bytes uint64,
	src unsafe.Pointer, waitList []SyncPoint) (SyncPoint, error) {

	if src == nil {
		return 0, fmt.Errorf("%w: nil source pointer", ErrInvalidValue)
	}
	if err := checkBufferBounds("destination", dst, offset, bytes); err != nil {
		return 0, err
	}
	return cb.appendMemcpyNode(
		dst.Location(offset), graph.Location{Host: src}, bytes, waitList)
}

// AppendBufferRead records a device-to-host copy out of a buffer region.
func (cb *CommandBuffer) AppendBufferRead(src *rt.Buffer, offset, bytes uint64,
	dst unsafe.Pointer, waitList []SyncPoint) (SyncPoint, error) {

	if dst == nil {
		return 0, fmt.Errorf("%w: nil destination pointer", ErrInvalidValue)
	}
	if err := checkBufferBounds("source", src, offset, bytes); err != nil {
		return 0, err
	}
	return cb.appendMemcpyNode(
		graph.Location{Host: dst}, src.Location(offset), bytes, waitList)
}

// appendRectNode is the shared tail of the rectangular copy appends.
func (cb *CommandBuffer) appendRectNode(p *graph.Memcpy3DParams,
	waitList []SyncPoint) (SyncPoint, error) {

	deps, err := cb.nodesFromSyncPoints(waitList)
	if err != nil {
		return 0, err
	}
	node, err := cb.graph.AddMemcpy3DNode(deps, p)
	if err != nil {
		return 0, fmt.Errorf("%w: adding rect copy node: %v", ErrUnknown, err)
	}
	return cb.addSyncPoint(node), nil
}

// AppendBufferCopyRect records a rectangular device-to-device copy.
func (cb *CommandBuffer) AppendBufferCopyRect(src, dst *rt.Buffer,
	srcOrigin, dstOrigin graph.Offset3D, region graph.Extent3D,
	srcRowPitch, srcSlicePitch, dstRowPitch, dstSlicePitch uint64,
	waitList []SyncPoint) (SyncPoint, error) {

	return cb.appendRectNode(&graph.Memcpy3DParams{
		Dst:           dst.Location(0),
		Src:           src.Location(0),
		DstOrigin:     dstOrigin,
		SrcOrigin:     srcOrigin,
		Region:        region,
		DstRowPitch:   dstRowPitch,
		DstSlicePitch: dstSlicePitch,
		SrcRowPitch:   srcRowPitch,
		SrcSlicePitch: srcSlicePitch,
	}, waitList)
}

// AppendBufferWriteRect records a rectangular host-to-device copy.
func (cb *CommandBuffer) AppendBufferWriteRect(dst *rt.Buffer,
	bufferOrigin, hostOrigin graph.Offset3D, region graph.Extent3D,
	bufferRowPitch, bufferSlicePitch, hostRowPitch, hostSlicePitch uint64,
	src unsafe.Pointer, waitList []SyncPoint) (SyncPoint, error) {

	if src == nil {
		return 0, fmt.Errorf("%w: nil source pointer", ErrInvalidValue)
	}
	return cb.appendRectNode(&graph.Memcpy3DParams{
		Dst:           dst.Location(0),
		Src:           graph.Location{Host: src},
		DstOrigin:     bufferOrigin,
		SrcOrigin:     hostOrigin,
		Region:        region,
		DstRowPitch:   bufferRowPitch,
		DstSlicePitch: bufferSlicePitch,
		SrcRowPitch:   hostRowPitch,
		SrcSlicePitch: hostSlicePitch,
	}, waitList)
}

// AppendBufferReadRect records a rectangular device-to-host copy.
func (cb *CommandBuffer) AppendBufferReadRect(src *rt.Buffer,
	bufferOrigin, hostOrigin graph.Offset3D, region graph.Extent3D,
	bufferRowPitch, bufferSlicePitch, hostRowPitch, hostSlicePitch uint64,
	dst unsafe.Pointer, waitList []SyncPoint) (SyncPoint, error) {

	if dst == nil {
		return 0, fmt.Errorf("%w: nil destination pointer", ErrInvalidValue)
	}
	return cb.appendRectNode(&graph.Memcpy3DParams{
		Dst:           graph.Location{Host: dst},
		Src:           src.Location(0),
		DstOrigin:     hostOrigin,
		SrcOrigin:     bufferOrigin,
		Region:        region,
		DstRowPitch:   hostRowPitch,
		DstSlicePitch: hostSlicePitch,
		SrcRowPitch:   bufferRowPitch,
		SrcSlicePitch: bufferSlicePitch,
	}, waitList)
}
