package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "fanout"

// Metrics holds all fanout metric instruments. It implements pubsub.Observer
// so a broadcaster can report into it directly.
type Metrics struct {
	ActiveSubscriptions metric.Int64UpDownCounter
	PublishCalls        metric.Int64Counter
	Delivered           metric.Int64Counter
	Dropped             metric.Int64Counter
}

// NewMetrics creates all metric instruments on the global meter provider.
func NewMetrics() (*Metrics, error) {
	return NewMetricsWithMeter(otel.Meter(meterName))
}

// NewMetricsWithMeter creates all metric instruments on the given meter.
func NewMetricsWithMeter(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	m.ActiveSubscriptions, err = meter.Int64UpDownCounter("fanout.subscriptions.active",
		metric.WithDescription("Number of live subscriptions"))
	if err != nil {
		return nil, err
	}

	m.PublishCalls, err = meter.Int64Counter("fanout.messages.published",
		metric.WithDescription("Number of publish calls"))
	if err != nil {
		return nil, err
	}

	m.Delivered, err = meter.Int64Counter("fanout.messages.delivered",
		metric.WithDescription("Number of event copies pushed into subscriber mailboxes"))
	if err != nil {
		return nil, err
	}

	m.Dropped, err = meter.Int64Counter("fanout.messages.dropped",
		metric.WithDescription("Number of publishes that reached no subscriber"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

func channelAttr(channel string) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("channel", channel))
}

// Subscribed implements pubsub.Observer.
func (m *Metrics) Subscribed(channel string) {
	m.ActiveSubscriptions.Add(context.Background(), 1, channelAttr(channel))
}

// Unsubscribed implements pubsub.Observer.
func (m *Metrics) Unsubscribed(channel string) {
	m.ActiveSubscriptions.Add(context.Background(), -1, channelAttr(channel))
}

// Published implements pubsub.Observer.
func (m *Metrics) Published(channel string, delivered int) {
	ctx := context.Background()
	attrs := channelAttr(channel)
	m.PublishCalls.Add(ctx, 1, attrs)
	if delivered == 0 {
		m.Dropped.Add(ctx, 1, attrs)
		return
	}
	m.Delivered.Add(ctx, int64(delivered), attrs)
}
