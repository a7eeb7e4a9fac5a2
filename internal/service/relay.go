// Package service contains application services.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	cfotel "github.com/Strob0t/fanout/internal/adapter/otel"
	"github.com/Strob0t/fanout/internal/domain"
	"github.com/Strob0t/fanout/internal/domain/message"
	"github.com/Strob0t/fanout/internal/logger"
	"github.com/Strob0t/fanout/internal/port/broadcast"
	"github.com/Strob0t/fanout/internal/pubsub"
)

// RelayService publishes opaque JSON messages on named channels and lets
// callers stream them.
type RelayService struct {
	broker broadcast.Broker[message.Message]
	now    func() time.Time
}

// NewRelayService creates a RelayService on top of the given broker.
func NewRelayService(broker broadcast.Broker[message.Message]) *RelayService {
	return &RelayService{broker: broker, now: time.Now}
}

// Publish wraps data in a Message and fans it out to the channel's current
// subscribers. data must be valid JSON.
func (s *RelayService) Publish(ctx context.Context, channel string, data json.RawMessage) (message.PublishResult, error) {
	if len(data) == 0 {
		return message.PublishResult{}, fmt.Errorf("%w: data is required", domain.ErrValidation)
	}
	if !json.Valid(data) {
		return message.PublishResult{}, fmt.Errorf("%w: data must be valid JSON", domain.ErrValidation)
	}

	msg := message.Message{
		ID:          uuid.NewString(),
		Channel:     channel,
		Data:        data,
		RequestID:   logger.RequestID(ctx),
		PublishedAt: s.now().UTC(),
	}

	_, span := cfotel.StartPublishSpan(ctx, channel, msg.ID)
	delivered := s.broker.Publish(channel, msg)
	span.SetAttributes(attribute.Int("delivered", delivered))
	span.End()

	logger.FromContext(ctx).Debug("message published",
		"channel", channel,
		"message_id", msg.ID,
		"delivered", delivered,
	)

	return message.PublishResult{ID: msg.ID, Channel: channel, Delivered: delivered}, nil
}

// Subscribe opens a raw subscription on channel. The caller owns it and
// must release it with Unsubscribe exactly once; prefer Stream when a
// callback fits.
func (s *RelayService) Subscribe(channel string) *pubsub.Subscription[message.Message] {
	return s.broker.Subscribe(channel)
}

// Stream subscribes to channel and calls fn for every message until the
// subscription ends, ctx is done, or fn returns an error. The subscription
// is always released before Stream returns. A nil return means the stream
// ended or ctx was cancelled.
func (s *RelayService) Stream(ctx context.Context, channel string, fn func(message.Message) error) error {
	return streamChannel(ctx, s.broker, channel, func(ev pubsub.Event[message.Message]) error {
		return fn(ev.Payload)
	})
}

// Channels lists active channels with their subscriber counts.
func (s *RelayService) Channels() []message.ChannelInfo {
	names := s.broker.Channels()
	out := make([]message.ChannelInfo, 0, len(names))
	for _, name := range names {
		n := s.broker.Subscribers(name)
		if n == 0 {
			continue // emptied since Channels was taken
		}
		out = append(out, message.ChannelInfo{Name: name, Subscribers: n})
	}
	return out
}

// Subscribers returns the live subscription count for channel.
func (s *RelayService) Subscribers(channel string) int {
	return s.broker.Subscribers(channel)
}

// Close ends every open stream.
func (s *RelayService) Close() {
	s.broker.Close()
	slog.Info("relay closed")
}

// streamChannel drives one scoped subscription: it hands each event to fn
// until end of stream, context cancellation or an fn error.
func streamChannel[T any](ctx context.Context, broker broadcast.Broker[T], channel string, fn func(pubsub.Event[T]) error) error {
	return broker.With(channel, func(sub *pubsub.Subscription[T]) error {
		log := logger.FromContext(ctx).With("channel", channel, "subscription_id", sub.ID().String())
		log.Info("stream opened")
		defer log.Info("stream closed")

		for {
			ev, err := sub.Next(ctx)
			switch {
			case err == nil:
			case errors.Is(err, pubsub.ErrEndOfStream), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
				return nil
			default:
				return err
			}
			if err := fn(ev); err != nil {
				return err
			}
		}
	})
}
