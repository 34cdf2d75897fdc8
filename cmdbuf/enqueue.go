package cmdbuf

import (
	"fmt"

	"github.com/notargets/cmdgraph/rt"
)

// Enqueue launches the finalized graph on the queue's next compute stream
// and returns a completion event without blocking the host. The stream
// first waits for every supplied event, so cross-stream ordering is
// expressed the same way as recorded dependencies. Nil entries in the wait
// list are skipped. Once submitted, the launch runs to completion; there is
// no cancellation.
func (cb *CommandBuffer) Enqueue(q *rt.Queue, waitEvents []*rt.Event) (*rt.Event, error) {
	if cb.exec == nil {
		return nil, fmt.Errorf("%w: enqueue before finalize", ErrInvalidOperation)
	}

	waits := make([]*rt.Event, 0, len(waitEvents))
	for _, ev := range waitEvents {
		if ev != nil {
			waits = append(waits, ev)
		}
	}

	stream := q.NextComputeStream()

	// The gate must precede the graph on the stream, but a failed launch
	// must not leave it blocking; the abort channel releases it.
	abort := make(chan struct{})
	if len(waits) > 0 {
		stream.Submit(func() {
			for _, ev := range waits {
				select {
				case <-ev.Done():
				case <-abort:
					return
				}
			}
		})
	}

	if err := cb.exec.Launch(stream); err != nil {
		close(abort)
		return nil, fmt.Errorf("%w: graph launch failed: %v", ErrUnknown, err)
	}

	done := rt.NewEvent()
	stream.Submit(func() { done.Complete(nil) })
	return done, nil
}
