// Package pubsub implements in-process publish/subscribe fan-out.
//
// A Broadcaster keeps a registry of channel names to subscriber mailboxes.
// Publish copies an Event into every mailbox registered for its channel at
// the time of the call. Each Subscription drains its own unbounded mailbox
// until it is unsubscribed, at which point the reader observes end of stream.
package pubsub

// Event is one published payload together with the channel it was sent on.
type Event[T any] struct {
	Channel string
	Payload T
}
