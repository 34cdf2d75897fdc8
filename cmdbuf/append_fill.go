package cmdbuf

import (
	"encoding/binary"
	"fmt"
	"unsafe"

	"github.com/notargets/cmdgraph/graph"
	"github.com/notargets/cmdgraph/rt"
)

// patternValue decodes a 1, 2 or 4 byte pattern into a fill value,
// little-endian.
func patternValue(pattern []byte) uint32 {
	switch len(pattern) {
	case 1:
		return uint32(pattern[0])
	case 2:
		return uint32(binary.LittleEndian.Uint16(pattern))
	default:
		return binary.LittleEndian.Uint32(pattern)
	}
}

func isPow2(n uint64) bool { return n > 0 && n&(n-1) == 0 }

// appendFillNodes writes size bytes at dst, repeating the pattern. Patterns
// of 1, 2 or 4 bytes map onto a single native fill node. Wider patterns
// exceed what a fill node can express, so they decompose into byte-wide
// steps: one 4-byte node covering the leading 4 bytes of every repeated
// pattern instance, then one strided 1-byte node per remaining pattern
// byte, each chained onto the previous node. The returned sync point names
// the last node of the chain; intermediate nodes stay live inside the graph
// as its structural dependencies. This trades node count for correctness.
func (cb *CommandBuffer) appendFillNodes(dst graph.Location, pattern []byte,
	size uint64, waitList []SyncPoint) (SyncPoint, error) {

	deps, err := cb.nodesFromSyncPoints(waitList)
	if err != nil {
		return 0, err
	}

	patternSize := uint64(len(pattern))
	if patternSize <= 4 {
		node, err := cb.graph.AddMemsetNode(deps, &graph.MemsetNodeParams{
			Dst:         dst,
			Value:       patternValue(pattern),
			ElementSize: uint32(patternSize),
			Width:       1,
			Height:      size / patternSize,
			Pitch:       patternSize,
		})
		if err != nil {
			return 0, fmt.Errorf("%w: adding fill node: %v", ErrUnknown, err)
		}
		return cb.addSyncPoint(node), nil
	}

	// First step: a 4-byte-wide node writing the leading 4 pattern bytes
	// across the whole region. Bytes 4..patternSize of each instance are
	// fixed up by the strided steps that follow.
	first, err := cb.graph.AddMemsetNode(deps, &graph.MemsetNodeParams{
		Dst:         dst,
		Value:       binary.LittleEndian.Uint32(pattern[:4]),
		ElementSize: 4,
		Width:       1,
		Height:      size / 4,
		Pitch:       4,
	})
	if err != nil {
		return 0, fmt.Errorf("%w: adding fill node: %v", ErrUnknown, err)
	}
	sp := cb.addSyncPoint(first)
	deps = []graph.Node{first}

	// Walk the pattern in 1-byte steps from byte 4 up, one strided node per
	// byte, each depending on the previous step's node.
	for step := uint64(4); step < patternSize; step++ {
		node, err := cb.graph.AddMemsetNode(deps, &graph.MemsetNodeParams{
			Dst:         dst.OffsetBy(step),
			Value:       uint32(pattern[step]),
			ElementSize: 1,
			Width:       1,
			Height:      size / patternSize,
			Pitch:       patternSize,
		})
		if err != nil {
			return 0, fmt.Errorf("%w: adding fill node: %v", ErrUnknown, err)
		}
		sp = cb.addSyncPoint(node)
		deps = []graph.Node{node}
	}
	return sp, nil
}

// AppendBufferFill records a fill of a buffer region with a repeating
// pattern. The pattern must be a positive power of two in size, and at
// least one of offset and size must be a multiple of the pattern size.
func (cb *CommandBuffer) AppendBufferFill(dst *rt.Buffer, pattern []byte,
	offset, size uint64, waitList []SyncPoint) (SyncPoint, error) {

	patternSize := uint64(len(pattern))
	if !isPow2(patternSize) {
		return 0, fmt.Errorf("%w: pattern size %d is not a positive power of two",
			ErrInvalidSize, patternSize)
	}
	if offset%patternSize != 0 && size%patternSize != 0 {
		return 0, fmt.Errorf("%w: neither offset %d nor size %d is a multiple of pattern size %d",
			ErrInvalidSize, offset, size, patternSize)
	}
	return cb.appendFillNodes(dst.Location(offset), pattern, size, waitList)
}

// AppendMemFill records a fill of unmanaged memory with a repeating
// pattern. The pattern must be a positive power of two in size.
func (cb *CommandBuffer) AppendMemFill(dst unsafe.Pointer, pattern []byte,
	size uint64, waitList []SyncPoint) (SyncPoint, error) {

	if dst == nil {
		return 0, fmt.Errorf("%w: nil destination pointer", ErrInvalidValue)
	}
	if !isPow2(uint64(len(pattern))) {
		return 0, fmt.Errorf("%w: pattern size %d is not a positive power of two",
			ErrInvalidSize, len(pattern))
	}
	return cb.appendFillNodes(graph.Location{Host: dst}, pattern, size, waitList)
}
