package rt

import (
	"fmt"
	"unsafe"

	"github.com/notargets/cmdgraph/graph"
)

// Buffer is a memory object: a device allocation addressed by byte offset.
// The command-buffer layer consumes only its size and offset-resolved
// locations; everything else is convenience for hosts and tests.
type Buffer struct {
	mem  graph.Memory
	size uint64

	rc RefCount
}

// NewBuffer allocates a buffer of the given byte size on the device.
func NewBuffer(dev *Device, bytes uint64) (*Buffer, error) {
	mem, err := dev.G.AllocMem(bytes)
	if err != nil {
		return nil, fmt.Errorf("rt: allocating %d byte buffer: %w", bytes, err)
	}
	b := &Buffer{mem: mem, size: bytes}
	b.rc.Init()
	return b, nil
}

// Retain takes an additional handle on the buffer.
func (b *Buffer) Retain() { b.rc.Retain() }

// Release drops one handle, freeing the allocation when the last structural
// reference goes away.
func (b *Buffer) Release() {
	b.rc.DecExternal()
	if b.rc.DecInternal() == 0 {
		b.mem.Free()
		b.mem = nil
	}
}

// Size returns the buffer extent in bytes.
func (b *Buffer) Size() uint64 { return b.size }

// Mem returns the underlying engine allocation.
func (b *Buffer) Mem() graph.Memory { return b.mem }

// Location resolves a byte offset into a transfer location.
func (b *Buffer) Location(offset uint64) graph.Location {
	return graph.Location{Mem: b.mem, Offset: offset}
}

// Write copies bytes from host memory into the buffer.
func (b *Buffer) Write(src unsafe.Pointer, bytes, offset uint64) error {
	return b.mem.CopyFromHost(src, bytes, offset)
}

// Read copies bytes from the buffer to host memory.
func (b *Buffer) Read(dst unsafe.Pointer, bytes, offset uint64) error {
	return b.mem.CopyToHost(dst, bytes, offset)
}

// WriteBytes copies a byte slice into the buffer. Test helper.
func (b *Buffer) WriteBytes(src []byte, offset uint64) error {
	if len(src) == 0 {
		return nil
	}
	return b.Write(unsafe.Pointer(&src[0]), uint64(len(src)), offset)
}

// ReadBytes copies bytes out of the buffer. Test helper.
func (b *Buffer) ReadBytes(bytes, offset uint64) ([]byte, error) {
	out := make([]byte, bytes)
	if bytes == 0 {
		return out, nil
	}
	if err := b.Read(unsafe.Pointer(&out[0]), bytes, offset); err != nil {
		return nil, err
	}
	return out, nil
}
