package pubsub

import (
	"context"
	"iter"

	"github.com/google/uuid"
)

// Subscription is the handle returned by Subscribe. It is read by a single
// goroutine; Unsubscribe may be called from any goroutine.
type Subscription[T any] struct {
	id          uuid.UUID
	channel     string
	box         *mailbox[T]
	broadcaster *Broadcaster[T]

	released bool // guarded by broadcaster.mu
}

// ID uniquely identifies the subscription.
func (s *Subscription[T]) ID() uuid.UUID { return s.id }

// Channel is the channel the subscription listens on.
func (s *Subscription[T]) Channel() string { return s.channel }

// Done is closed once the subscription has ended. Events queued before
// that are still returned by Next.
func (s *Subscription[T]) Done() <-chan struct{} { return s.box.done }

// Pending reports how many delivered events have not been read yet.
func (s *Subscription[T]) Pending() int { return s.box.pending() }

// Next blocks until the next event arrives. It returns ErrEndOfStream once
// the subscription has ended and every queued event has been read, and
// keeps returning it on later calls. If ctx is done first, Next returns
// ctx.Err() and the subscription stays active.
func (s *Subscription[T]) Next(ctx context.Context) (Event[T], error) {
	return s.box.receive(ctx)
}

// Receive is Next without cancellation. ok is false at end of stream.
func (s *Subscription[T]) Receive() (ev Event[T], ok bool) {
	ev, err := s.box.receive(context.Background())
	return ev, err == nil
}

// All yields events until end of stream or until ctx is done. The sequence
// cannot be restarted: events consumed by one iteration are gone.
func (s *Subscription[T]) All(ctx context.Context) iter.Seq[Event[T]] {
	return func(yield func(Event[T]) bool) {
		for {
			ev, err := s.box.receive(ctx)
			if err != nil {
				return
			}
			if !yield(ev) {
				return
			}
		}
	}
}

// Unsubscribe releases the subscription; see Broadcaster.Unsubscribe.
func (s *Subscription[T]) Unsubscribe() error {
	return s.broadcaster.Unsubscribe(s)
}
