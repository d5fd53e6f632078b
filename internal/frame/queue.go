package frame

import (
	"sync/atomic"
	"time"
)

// Queue is a bounded FIFO of frames shared between receiver goroutines
// and the single pipeline consumer. Pushes never block: when the queue
// is full the newest frame is discarded so the receive loops keep
// draining their transports.
type Queue struct {
	ch       chan *Frame
	accepted atomic.Uint64
	dropped  atomic.Uint64
}

// NewQueue returns a queue with a fixed capacity.
func NewQueue(capacity int) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue{ch: make(chan *Frame, capacity)}
}

// TryPush enqueues f without blocking. Returns false if the queue was
// full and the frame was dropped.
func (q *Queue) TryPush(f *Frame) bool {
	select {
	case q.ch <- f:
		q.accepted.Add(1)
		return true
	default:
		q.dropped.Add(1)
		return false
	}
}

// Pop dequeues the next frame, waiting up to timeout. Returns false on
// timeout so the consumer can poll its stop signal.
func (q *Queue) Pop(timeout time.Duration) (*Frame, bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case f := <-q.ch:
		return f, true
	case <-timer.C:
		return nil, false
	}
}

// Len returns the number of queued frames.
func (q *Queue) Len() int { return len(q.ch) }

// Accepted returns the number of frames enqueued since construction.
func (q *Queue) Accepted() uint64 { return q.accepted.Load() }

// Dropped returns the number of frames discarded because the queue was full.
func (q *Queue) Dropped() uint64 { return q.dropped.Load() }
