package pubsub

import "errors"

// ErrEndOfStream is returned by Next once a subscription has ended.
// It marks graceful completion, not a failure.
var ErrEndOfStream = errors.New("pubsub: end of stream")

// ErrNotSubscribed is returned when a handle is unsubscribed twice or
// was not issued by the broadcaster it is handed to.
var ErrNotSubscribed = errors.New("pubsub: subscription is not active")
