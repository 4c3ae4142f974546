package protocol

import "sync"

// Queue is the outbound byte queue shared between an external producer
// and the Transmitter. It is held for the minimum window needed to test
// emptiness or pop a single byte — the mutex is re-acquired per byte in
// Transmitter.SendNext rather than held across the whole frame build, per
// the protocol's resource-model requirement.
type Queue struct {
	mu   sync.Mutex
	data []byte
}

// NewQueue returns an empty outbound queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Push appends bytes to the back of the queue. Called by the external
// producer; the caller is responsible for raising OUTPUT_AVAILABLE on
// the EventBus after a push into a previously-empty queue.
func (q *Queue) Push(data []byte) {
	if len(data) == 0 {
		return
	}
	q.mu.Lock()
	q.data = append(q.data, data...)
	q.mu.Unlock()
}

// Empty reports whether the queue currently holds no bytes.
func (q *Queue) Empty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.data) == 0
}

// PopByte removes and returns the front byte, or ok=false if the queue
// is empty.
func (q *Queue) PopByte() (b byte, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.data) == 0 {
		return 0, false
	}
	b = q.data[0]
	q.data = q.data[1:]
	return b, true
}

// Len returns the number of bytes currently queued.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.data)
}
