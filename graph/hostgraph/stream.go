package hostgraph

// Stream is an in-order execution lane. Work is drained by a single
// goroutine so submission order is execution order.
type Stream struct {
	work chan func()
	done chan struct{}
}

func newStream() *Stream {
	s := &Stream{
		work: make(chan func(), 64),
		done: make(chan struct{}),
	}
	go s.drain()
	return s
}

func (s *Stream) drain() {
	defer close(s.done)
	for fn := range s.work {
		fn()
	}
}

// Submit queues a function for in-order execution.
func (s *Stream) Submit(fn func()) {
	s.work <- fn
}

// Synchronize blocks until everything submitted so far has run.
func (s *Stream) Synchronize() error {
	marker := make(chan struct{})
	s.Submit(func() { close(marker) })
	<-marker
	return nil
}

// Free shuts the stream down after draining pending work.
func (s *Stream) Free() {
	close(s.work)
	<-s.done
}
