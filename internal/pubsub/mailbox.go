package pubsub

import (
	"context"
	"sync"

	"github.com/ef-ds/deque"
)

// mailbox is an unbounded FIFO of events for a single reader.
// Any number of goroutines may push.
type mailbox[T any] struct {
	mu     sync.Mutex
	items  deque.Deque
	closed bool

	ready chan struct{} // one-slot wake-up for the reader
	done  chan struct{} // closed together with the close marker
}

func newMailbox[T any]() *mailbox[T] {
	return &mailbox[T]{
		ready: make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
}

// push appends ev. It reports false if the close marker is already queued,
// in which case ev is discarded.
func (m *mailbox[T]) push(ev Event[T]) bool {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return false
	}
	m.items.PushBack(ev)
	m.mu.Unlock()

	select {
	case m.ready <- struct{}{}:
	default:
	}
	return true
}

// pushClose queues the close marker. Calls after the first are no-ops.
func (m *mailbox[T]) pushClose() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	close(m.done)
}

// pop returns the next pending item. ended is true once the queue is
// drained and the close marker has been reached.
func (m *mailbox[T]) pop() (ev Event[T], ok, ended bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, found := m.items.PopFront(); found {
		return v.(Event[T]), true, false
	}
	return ev, false, m.closed
}

// receive blocks until an event is available, the close marker is reached
// (ErrEndOfStream) or ctx is done.
func (m *mailbox[T]) receive(ctx context.Context) (Event[T], error) {
	for {
		ev, ok, ended := m.pop()
		if ok {
			return ev, nil
		}
		if ended {
			return ev, ErrEndOfStream
		}

		select {
		case <-m.ready:
		case <-m.done:
		case <-ctx.Done():
			return ev, ctx.Err()
		}
	}
}

// pending is the number of queued events.
func (m *mailbox[T]) pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.items.Len()
}
