package rt

import (
	"fmt"
	"sync/atomic"

	"github.com/notargets/cmdgraph/graph"
)

// Queue is a set of compute streams on one device. Work lands on streams in
// round-robin order, so independent enqueues may overlap while each stream
// stays in-order.
type Queue struct {
	Device *Device

	streams []graph.Stream
	next    atomic.Uint32
}

// NewQueue creates a queue with the given number of compute streams.
func NewQueue(dev *Device, numStreams int) (*Queue, error) {
	if numStreams < 1 {
		numStreams = 1
	}
	q := &Queue{Device: dev}
	for i := 0; i < numStreams; i++ {
		s, err := dev.G.NewStream()
		if err != nil {
			q.Free()
			return nil, fmt.Errorf("rt: creating stream %d: %w", i, err)
		}
		q.streams = append(q.streams, s)
	}
	return q, nil
}

// NextComputeStream returns the stream the next submission should use.
func (q *Queue) NextComputeStream() graph.Stream {
	n := q.next.Add(1) - 1
	return q.streams[int(n)%len(q.streams)]
}

// Synchronize blocks until all streams have drained.
func (q *Queue) Synchronize() error {
	for i, s := range q.streams {
		if err := s.Synchronize(); err != nil {
			return fmt.Errorf("rt: synchronizing stream %d: %w", i, err)
		}
	}
	return nil
}

// Free shuts down all streams after draining them.
func (q *Queue) Free() {
	for _, s := range q.streams {
		s.Free()
	}
	q.streams = nil
}
