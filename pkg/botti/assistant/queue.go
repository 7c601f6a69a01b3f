package assistant

import (
	"sync"

	"github.com/bottihq/botti/pkg/botti/gateway"
)

// eventQueue is an unbounded FIFO between the gateway's event stream and
// the single pipeline worker. Enqueue never blocks, preserving the
// transport's delivery order even when processing stalls.
type eventQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []*gateway.Event
	closed bool
}

func newEventQueue() *eventQueue {
	q := &eventQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push appends an event. No-op after Close.
func (q *eventQueue) Push(evt *gateway.Event) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.items = append(q.items, evt)
	q.cond.Signal()
}

// Pop blocks until an event is available or the queue is closed. The
// second return is false once the queue is closed and drained.
func (q *eventQueue) Pop() (*gateway.Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.items) == 0 {
		return nil, false
	}
	evt := q.items[0]
	q.items = q.items[1:]
	return evt, true
}

// Len returns the number of queued events.
func (q *eventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close wakes the consumer; queued events can still be drained.
func (q *eventQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.cond.Broadcast()
}
