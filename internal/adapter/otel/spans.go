package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "fanout"

// StartPublishSpan starts a span for a publish on channel.
func StartPublishSpan(ctx context.Context, channel, messageID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "publish",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("channel", channel),
			attribute.String("message.id", messageID),
		),
	)
}

// StartStreamSpan starts a span covering the lifetime of one subscriber stream.
func StartStreamSpan(ctx context.Context, channel, transport string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "stream",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("channel", channel),
			attribute.String("stream.transport", transport),
		),
	)
}
