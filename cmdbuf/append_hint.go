package cmdbuf

import (
	"fmt"
	"unsafe"
)

// MigrationFlags qualifies an AppendMemPrefetch request.
type MigrationFlags uint32

const (
	MigrateDefault MigrationFlags = iota
	MigrateToDevice
	MigrateToHost
)

// MemAdvice qualifies an AppendMemAdvise request.
type MemAdvice uint32

const (
	AdviceDefault MemAdvice = iota
	AdviceReadMostly
	AdvicePreferredLocation
	AdviceAccessedBy
)

// appendHintNode records a barrier in place of an unsupported hint so the
// dependency chain stays intact, and reports the drop through the warning
// channel.
func (cb *CommandBuffer) appendHintNode(waitList []SyncPoint, msg string) (SyncPoint, error) {
	deps, err := cb.nodesFromSyncPoints(waitList)
	if err != nil {
		return 0, err
	}
	node, err := cb.graph.AddEmptyNode(deps)
	if err != nil {
		return 0, fmt.Errorf("%w: adding empty node: %v", ErrUnknown, err)
	}
	return cb.addSyncPoint(node), &Warning{Message: msg}
}

// AppendMemPrefetch records a prefetch hint. Graph engines do not support
// prefetch nodes, so an empty node enforcing the dependencies is recorded
// instead; the returned sync point is valid, and the accompanying Warning
// (see IsWarning) tells the caller the hint itself was dropped.
func (cb *CommandBuffer) AppendMemPrefetch(mem unsafe.Pointer, bytes uint64,
	flags MigrationFlags, waitList []SyncPoint) (SyncPoint, error) {

	return cb.appendHintNode(waitList,
		"prefetch hint ignored and replaced with empty node: prefetch is not supported by the graph engine")
}

// AppendMemAdvise records a memory-advice hint. As with AppendMemPrefetch
// the hint is dropped, an empty node preserves ordering, and a Warning is
// returned alongside a valid sync point.
func (cb *CommandBuffer) AppendMemAdvise(mem unsafe.Pointer, bytes uint64,
	advice MemAdvice, waitList []SyncPoint) (SyncPoint, error) {

	return cb.appendHintNode(waitList,
		"memory advice ignored and replaced with empty node: advice is not supported by the graph engine")
}
