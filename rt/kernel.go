package rt

import (
	"fmt"
	"unsafe"

	"github.com/notargets/cmdgraph/graph"
)

// Kernel is a launchable kernel handle: an engine function plus an
// argument-binding table. Argument storage is stable across same-size
// rewrites, so pointers handed to the graph engine keep observing the
// latest bound values.
type Kernel struct {
	Name    string
	Context *Context

	fn        graph.Function
	args      []argSlot
	sharedMem uint32

	rc RefCount
}

// argSlot holds the bound bytes of one kernel argument. keep pins the
// pointee of a pointer-valued argument for the garbage collector, since the
// byte image alone would hide it.
type argSlot struct {
	data []byte
	keep unsafe.Pointer
	set  bool
}

// NewKernel creates a kernel handle over an engine function.
func NewKernel(ctx *Context, name string, fn graph.Function) *Kernel {
	k := &Kernel{Name: name, Context: ctx, fn: fn}
	k.rc.Init()
	return k
}

// Retain takes an additional handle on the kernel.
func (k *Kernel) Retain() { k.rc.Retain() }

// Release drops one handle.
func (k *Kernel) Release() {
	k.rc.DecExternal()
	k.rc.DecInternal()
}

// Func returns the engine function handle.
func (k *Kernel) Func() graph.Function { return k.fn }

// NumArgs returns the highest bound argument index plus one.
func (k *Kernel) NumArgs() int { return len(k.args) }

func (k *Kernel) grow(index int) error {
	if index < 0 {
		return fmt.Errorf("rt: negative kernel argument index %d", index)
	}
	for len(k.args) <= index {
		k.args = append(k.args, argSlot{})
	}
	return nil
}

// SetArg binds value bytes to the argument at index. When the slot already
// holds the same number of bytes the storage is rewritten in place, keeping
// previously captured argument pointers valid.
func (k *Kernel) SetArg(index int, value []byte) error {
	if err := k.grow(index); err != nil {
		return err
	}
	slot := &k.args[index]
	if len(slot.data) == len(value) && slot.data != nil {
		copy(slot.data, value)
	} else {
		slot.data = append([]byte(nil), value...)
	}
	slot.keep = nil
	slot.set = true
	return nil
}

// SetArgPointer binds a pointer-valued argument. A nil pointer clears the
// argument to a null reference.
func (k *Kernel) SetArgPointer(index int, p unsafe.Pointer) error {
	if err := k.grow(index); err != nil {
		return err
	}
	slot := &k.args[index]
	if len(slot.data) != int(unsafe.Sizeof(p)) {
		slot.data = make([]byte, unsafe.Sizeof(p))
	}
	*(*unsafe.Pointer)(unsafe.Pointer(&slot.data[0])) = p
	slot.keep = p
	slot.set = true
	return nil
}

// SetArgMem binds a device allocation as a pointer-valued argument.
func (k *Kernel) SetArgMem(index int, m graph.Memory) error {
	if m == nil {
		return k.SetArgPointer(index, nil)
	}
	return k.SetArgPointer(index, m.KernelArgPointer())
}

// Arg returns the bytes currently bound at index. Nil when unset.
func (k *Kernel) Arg(index int) []byte {
	if index < 0 || index >= len(k.args) || !k.args[index].set {
		return nil
	}
	return k.args[index].data
}

// ArgPointers snapshots one pointer per argument slot, each pointing at the
// slot's storage. This is the kernelParams-style table the graph engine
// dereferences at execution time.
func (k *Kernel) ArgPointers() []unsafe.Pointer {
	out := make([]unsafe.Pointer, len(k.args))
	for i := range k.args {
		if len(k.args[i].data) > 0 {
			out[i] = unsafe.Pointer(&k.args[i].data[0])
		}
	}
	return out
}

// SetSharedMem sets the dynamic shared memory size for the next recorded
// launch of this kernel.
func (k *Kernel) SetSharedMem(bytes uint32) { k.sharedMem = bytes }

// SharedMem returns the pending dynamic shared memory size.
func (k *Kernel) SharedMem() uint32 { return k.sharedMem }

// ClearSharedMem resets the pending dynamic shared memory size. Called
// after the size has been consumed by a recorded launch.
func (k *Kernel) ClearSharedMem() { k.sharedMem = 0 }
