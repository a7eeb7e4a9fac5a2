// Package message defines the payload relayed on fanout channels.
package message

import (
	"encoding/json"
	"time"
)

// Message is a single published payload. Data is opaque JSON supplied by
// the publisher and is never inspected by the relay.
type Message struct {
	ID          string          `json:"id"`
	Channel     string          `json:"channel"`
	Data        json.RawMessage `json:"data"`
	RequestID   string          `json:"request_id,omitempty"`
	PublishedAt time.Time       `json:"published_at"`
}

// PublishRequest is the body accepted by the publish endpoint.
type PublishRequest struct {
	Data json.RawMessage `json:"data"`
}

// PublishResult reports the outcome of a publish.
type PublishResult struct {
	ID        string `json:"id"`
	Channel   string `json:"channel"`
	Delivered int    `json:"delivered"`
}

// ChannelInfo describes an active channel.
type ChannelInfo struct {
	Name        string `json:"name"`
	Subscribers int    `json:"subscribers"`
}
