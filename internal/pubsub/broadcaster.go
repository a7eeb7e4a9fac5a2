package pubsub

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"
)

// Observer receives lifecycle notifications from a Broadcaster.
// Implementations must not block and must not call back into the broadcaster.
type Observer interface {
	Subscribed(channel string)
	Unsubscribed(channel string)
	Published(channel string, delivered int)
}

type nopObserver struct{}

func (nopObserver) Subscribed(string)     {}
func (nopObserver) Unsubscribed(string)   {}
func (nopObserver) Published(string, int) {}

// Option configures a Broadcaster.
type Option func(*options)

type options struct {
	observer Observer
}

// WithObserver installs an Observer. A nil observer is ignored.
func WithObserver(o Observer) Option {
	return func(opts *options) {
		if o != nil {
			opts.observer = o
		}
	}
}

// Broadcaster fans published payloads out to every subscriber of a channel.
// The zero value is not usable; create one with New.
type Broadcaster[T any] struct {
	mu       sync.RWMutex
	channels map[string]map[*mailbox[T]]struct{}
	closed   bool
	observer Observer
}

// New creates an empty Broadcaster.
func New[T any](opts ...Option) *Broadcaster[T] {
	o := options{observer: nopObserver{}}
	for _, opt := range opts {
		opt(&o)
	}
	return &Broadcaster[T]{
		channels: make(map[string]map[*mailbox[T]]struct{}),
		observer: o.observer,
	}
}

// Subscribe registers a fresh mailbox under channel. The subscription sees
// only events published after Subscribe returns.
//
// Every Subscription must be released with Unsubscribe exactly once; With
// does this automatically.
func (b *Broadcaster[T]) Subscribe(channel string) *Subscription[T] {
	sub := &Subscription[T]{
		id:          uuid.New(),
		channel:     channel,
		box:         newMailbox[T](),
		broadcaster: b,
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		sub.box.pushClose()
		return sub
	}
	set, ok := b.channels[channel]
	if !ok {
		set = make(map[*mailbox[T]]struct{})
		b.channels[channel] = set
	}
	set[sub.box] = struct{}{}
	b.mu.Unlock()

	b.observer.Subscribed(channel)
	slog.Debug("subscribed", "channel", channel, "subscription_id", sub.id)
	return sub
}

// Unsubscribe removes sub from its channel and ends its stream. A reader
// blocked in Next or Receive wakes up with end of stream.
//
// Calling Unsubscribe again on the same handle, or passing a handle from a
// different broadcaster, returns an error wrapping ErrNotSubscribed.
func (b *Broadcaster[T]) Unsubscribe(sub *Subscription[T]) error {
	if b == nil || sub == nil || sub.broadcaster != b {
		return fmt.Errorf("unsubscribe: %w", ErrNotSubscribed)
	}

	b.mu.Lock()
	if sub.released {
		b.mu.Unlock()
		return fmt.Errorf("unsubscribe %s: %w", sub.id, ErrNotSubscribed)
	}
	sub.released = true

	registered := false
	if set, ok := b.channels[sub.channel]; ok {
		if _, ok := set[sub.box]; ok {
			registered = true
			delete(set, sub.box)
			if len(set) == 0 {
				delete(b.channels, sub.channel)
			}
		}
	}
	b.mu.Unlock()

	// No publisher can reach the mailbox any more: publish holds the read
	// lock for as long as it pushes.
	sub.box.pushClose()

	if registered {
		b.observer.Unsubscribed(sub.channel)
	}
	slog.Debug("unsubscribed", "channel", sub.channel, "subscription_id", sub.id)
	return nil
}

// With subscribes to channel, runs fn and unsubscribes when fn returns or
// panics. fn must not unsubscribe the handle itself.
func (b *Broadcaster[T]) With(channel string, fn func(*Subscription[T]) error) (err error) {
	sub := b.Subscribe(channel)
	defer func() {
		if uerr := b.Unsubscribe(sub); uerr != nil && err == nil {
			err = uerr
		}
	}()
	return fn(sub)
}

// Publish delivers payload to every current subscriber of channel and
// returns how many subscribers it reached. Publishing to a channel without
// subscribers drops the payload.
func (b *Broadcaster[T]) Publish(channel string, payload T) int {
	ev := Event[T]{Channel: channel, Payload: payload}

	b.mu.RLock()
	delivered := 0
	for box := range b.channels[channel] {
		if box.push(ev) {
			delivered++
		}
	}
	b.mu.RUnlock()

	b.observer.Published(channel, delivered)
	return delivered
}

// Close ends every live subscription and empties the registry. After Close,
// Subscribe returns subscriptions that are already ended and Publish drops
// everything. Handles ended by Close still need their single Unsubscribe.
func (b *Broadcaster[T]) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	channels := b.channels
	b.channels = make(map[string]map[*mailbox[T]]struct{})
	b.mu.Unlock()

	for channel, set := range channels {
		for box := range set {
			box.pushClose()
			b.observer.Unsubscribed(channel)
		}
	}
	slog.Debug("broadcaster closed", "channels", len(channels))
}

// Channels returns the names of channels that currently have subscribers,
// sorted.
func (b *Broadcaster[T]) Channels() []string {
	b.mu.RLock()
	names := make([]string, 0, len(b.channels))
	for name := range b.channels {
		names = append(names, name)
	}
	b.mu.RUnlock()

	slices.Sort(names)
	return names
}

// Subscribers returns the number of live subscriptions on channel.
func (b *Broadcaster[T]) Subscribers(channel string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.channels[channel])
}
