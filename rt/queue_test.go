package rt

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

// TestQueueRoundRobin tests that submissions rotate across the streams
func TestQueueRoundRobin(t *testing.T) {
	dev := testDevice(t)

	q, err := NewQueue(dev, 3)
	if err != nil {
		t.Fatalf("NewQueue failed: %v", err)
	}
	defer q.Free()

	first := q.NextComputeStream()
	second := q.NextComputeStream()
	third := q.NextComputeStream()
	wrapped := q.NextComputeStream()

	if first == second || second == third || first == third {
		t.Error("Consecutive streams should differ with 3 streams configured")
	}
	if wrapped != first {
		t.Error("Fourth selection should wrap back to the first stream")
	}
}

// TestQueueMinimumStreams tests that a non-positive stream count is clamped
func TestQueueMinimumStreams(t *testing.T) {
	dev := testDevice(t)

	q, err := NewQueue(dev, 0)
	if err != nil {
		t.Fatalf("NewQueue failed: %v", err)
	}
	defer q.Free()

	if a, b := q.NextComputeStream(), q.NextComputeStream(); a != b {
		t.Error("Clamped queue should reuse its single stream")
	}
}

// TestQueueSynchronize tests that Synchronize waits for submitted work
func TestQueueSynchronize(t *testing.T) {
	dev := testDevice(t)

	q, err := NewQueue(dev, 2)
	if err != nil {
		t.Fatalf("NewQueue failed: %v", err)
	}
	defer q.Free()

	var completed atomic.Int32
	for i := 0; i < 10; i++ {
		q.NextComputeStream().Submit(func() {
			time.Sleep(time.Millisecond)
			completed.Add(1)
		})
	}
	if err := q.Synchronize(); err != nil {
		t.Fatalf("Synchronize failed: %v", err)
	}
	if completed.Load() != 10 {
		t.Errorf("Expected 10 completed submissions, got %d", completed.Load())
	}
}

// TestEventLifecycle tests completion signaling and idempotence
func TestEventLifecycle(t *testing.T) {
	ev := NewEvent()

	if ev.Completed() {
		t.Error("Fresh event should be unsignaled")
	}

	wantErr := errors.New("boom")
	ev.Complete(wantErr)
	ev.Complete(nil) // ignored: completion is one-shot

	if !ev.Completed() {
		t.Error("Event should report completion")
	}
	if err := ev.Wait(); err != wantErr {
		t.Errorf("Wait returned %v, expected the first recorded error", err)
	}

	select {
	case <-ev.Done():
	default:
		t.Error("Done channel should be closed after completion")
	}
}
