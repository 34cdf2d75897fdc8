package rt

import "sync"

// Event is a completion handle for one asynchronous submission. It is
// created unsignaled and completed exactly once by the producer; waiters
// observe completion through Done or Wait rather than by blocking the
// producing stream.
type Event struct {
	done chan struct{}
	once sync.Once
	err  error
}

// NewEvent creates an unsignaled event.
func NewEvent() *Event {
	return &Event{done: make(chan struct{})}
}

// Complete signals the event, recording an execution error if any.
// Subsequent calls are ignored.
func (e *Event) Complete(err error) {
	e.once.Do(func() {
		e.err = err
		close(e.done)
	})
}

// Done returns a channel closed when the event has completed.
func (e *Event) Done() <-chan struct{} { return e.done }

// Wait blocks until the event completes and returns its execution error.
func (e *Event) Wait() error {
	<-e.done
	return e.err
}

// Completed reports without blocking whether the event has signaled.
func (e *Event) Completed() bool {
	select {
	case <-e.done:
		return true
	default:
		return false
	}
}
