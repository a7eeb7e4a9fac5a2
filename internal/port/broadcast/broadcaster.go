// Package broadcast defines the port between services and the in-process
// fan-out broker.
package broadcast

import "github.com/Strob0t/fanout/internal/pubsub"

// Publisher sends payloads to every current subscriber of a channel.
type Publisher[T any] interface {
	// Publish returns the number of subscribers reached.
	Publish(channel string, payload T) int
}

// Broker is the full subscribe/publish surface used by services.
// *pubsub.Broadcaster satisfies it.
type Broker[T any] interface {
	Publisher[T]
	Subscribe(channel string) *pubsub.Subscription[T]
	Unsubscribe(sub *pubsub.Subscription[T]) error
	With(channel string, fn func(*pubsub.Subscription[T]) error) error
	Channels() []string
	Subscribers(channel string) int
	Close()
}

var (
	_ Broker[string] = (*pubsub.Broadcaster[string])(nil)
	_ Broker[[]byte] = (*pubsub.Broadcaster[[]byte])(nil)
)
