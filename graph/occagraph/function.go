package occagraph

import (
	"fmt"
	"unsafe"

	"github.com/notargets/gocca"
)

// ArgType declares how one kernel argument slot is marshaled from its byte
// image into a gocca launch argument.
type ArgType int

const (
	ArgMem ArgType = iota
	ArgInt32
	ArgInt64
	ArgFloat32
	ArgFloat64
)

// Function is the occagraph kernel handle: a compiled OCCA kernel plus the
// argument signature needed to turn kernelParams-style pointers back into
// typed RunWithArgs values.
type Function struct {
	Kernel   *gocca.OCCAKernel
	ArgTypes []ArgType
}

// NewFunction wraps a compiled OCCA kernel with its argument signature.
func NewFunction(k *gocca.OCCAKernel, argTypes ...ArgType) *Function {
	return &Function{Kernel: k, ArgTypes: argTypes}
}

// marshal converts argument-slot pointers into gocca launch arguments.
func (f *Function) marshal(args []unsafe.Pointer) ([]interface{}, error) {
	if len(args) < len(f.ArgTypes) {
		return nil, fmt.Errorf("occagraph: kernel expects %d args, got %d",
			len(f.ArgTypes), len(args))
	}
	out := make([]interface{}, 0, len(f.ArgTypes))
	for i, t := range f.ArgTypes {
		p := args[i]
		if p == nil {
			return nil, fmt.Errorf("occagraph: kernel arg %d is unset", i)
		}
		switch t {
		case ArgMem:
			handle := *(*unsafe.Pointer)(p)
			if handle == nil {
				return nil, fmt.Errorf("occagraph: kernel arg %d is a null memory object", i)
			}
			out = append(out, (*Mem)(handle).occa)
		case ArgInt32:
			out = append(out, *(*int32)(p))
		case ArgInt64:
			out = append(out, *(*int64)(p))
		case ArgFloat32:
			out = append(out, *(*float32)(p))
		case ArgFloat64:
			out = append(out, *(*float64)(p))
		default:
			return nil, fmt.Errorf("occagraph: unknown arg type %d for arg %d", t, i)
		}
	}
	return out, nil
}

// run launches the kernel with the marshaled arguments.
func (f *Function) run(args []unsafe.Pointer) error {
	launchArgs, err := f.marshal(args)
	if err != nil {
		return err
	}
	if err := f.Kernel.RunWithArgs(launchArgs...); err != nil {
		return fmt.Errorf("occagraph: kernel launch failed: %w", err)
	}
	return nil
}
