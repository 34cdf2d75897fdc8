package cmdbuf

import (
	"errors"

	"github.com/notargets/cmdgraph/rt"
)

// Error taxonomy. Every failure returned by this package wraps exactly one
// of these sentinels, so callers branch with errors.Is.
var (
	// ErrInvalidValue covers malformed inputs and unknown sync points.
	ErrInvalidValue = errors.New("cmdbuf: invalid value")

	// ErrInvalidSize covers out-of-bounds copies and bad fill patterns.
	ErrInvalidSize = errors.New("cmdbuf: invalid size")

	// ErrInvalidKernel is returned when a kernel belongs to a different
	// context than the command buffer.
	ErrInvalidKernel = errors.New("cmdbuf: invalid kernel")

	// ErrInvalidWorkDimension is returned for work dimensionality outside
	// [1,3].
	ErrInvalidWorkDimension = errors.New("cmdbuf: invalid work dimension")

	// ErrInvalidOperation is returned for calls against a buffer in the
	// wrong state: enqueue or update before finalize, double finalize,
	// update of a non-updatable buffer.
	ErrInvalidOperation = errors.New("cmdbuf: invalid operation")

	// ErrOutOfResources is returned when the engine cannot provide a
	// requested resource.
	ErrOutOfResources = errors.New("cmdbuf: out of resources")

	// ErrUnknown wraps native engine failures with no finer classification.
	// A buffer that produced one may hold a half-built graph and should be
	// discarded.
	ErrUnknown = errors.New("cmdbuf: unknown error")

	// ErrInvalidWorkGroupSize is the resolver's error, re-exported so
	// callers need only this package.
	ErrInvalidWorkGroupSize = rt.ErrInvalidWorkGroupSize
)

// Warning is success with a caveat: the operation took effect (a node was
// recorded, ordering is preserved) but some part of the request was dropped.
// It is returned through the error result so it cannot be missed, and is
// distinguished from hard failure with IsWarning.
type Warning struct {
	Message string
}

func (w *Warning) Error() string { return w.Message }

// IsWarning reports whether err is a non-fatal advisory. Callers must treat
// a warning as success-with-caveat: the returned sync point is valid.
func IsWarning(err error) bool {
	var w *Warning
	return errors.As(err, &w)
}
