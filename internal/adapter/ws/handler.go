// Package ws implements the WebSocket adapter that streams channel
// subscriptions to clients.
package ws

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"

	cfotel "github.com/Strob0t/fanout/internal/adapter/otel"
	"github.com/Strob0t/fanout/internal/domain/message"
	"github.com/Strob0t/fanout/internal/service"
)

const defaultWriteTimeout = 10 * time.Second

// sendFunc writes one event frame to the client.
type sendFunc func(eventType string, payload any) error

// Handler upgrades requests to WebSocket connections, each bound to one
// scoped subscription. Clients only receive; anything they send is
// discarded.
type Handler struct {
	relay        *service.RelayService
	chat         *service.ChatService
	origins      []string
	writeTimeout time.Duration
}

// NewHandler creates a Handler. origins are the allowed Origin values, with
// or without scheme; "*" or an empty list accepts any origin.
func NewHandler(relay *service.RelayService, chat *service.ChatService, origins ...string) *Handler {
	patterns := make([]string, 0, len(origins))
	for _, o := range origins {
		o = strings.TrimPrefix(strings.TrimPrefix(o, "https://"), "http://")
		if o != "" {
			patterns = append(patterns, o)
		}
	}
	return &Handler{relay: relay, chat: chat, origins: patterns, writeTimeout: defaultWriteTimeout}
}

// ServeChannel streams every message published on {channel}.
func (h *Handler) ServeChannel(w http.ResponseWriter, r *http.Request) {
	channel := chi.URLParam(r, "channel")
	h.serve(w, r, channel, func(ctx context.Context, send sendFunc) error {
		return h.relay.Stream(ctx, channel, func(m message.Message) error {
			return send(EventMessage, m)
		})
	})
}

// ServeChat streams the names of users joining the chat room.
func (h *Handler) ServeChat(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.chat.Room(), func(ctx context.Context, send sendFunc) error {
		return h.chat.Joins(ctx, func(username string) error {
			return send(EventJoin, JoinEvent{Username: username})
		})
	})
}

func (h *Handler) serve(w http.ResponseWriter, r *http.Request, channel string, run func(context.Context, sendFunc) error) {
	opts := &websocket.AcceptOptions{}
	if len(h.origins) == 0 || (len(h.origins) == 1 && h.origins[0] == "*") {
		opts.InsecureSkipVerify = true // CORS handled by middleware
	} else {
		opts.OriginPatterns = h.origins
	}

	c, err := websocket.Accept(w, r, opts)
	if err != nil {
		slog.Error("websocket accept failed", "error", err)
		return
	}
	defer c.CloseNow()

	// CloseRead consumes pings and cancels ctx once the client goes away.
	ctx := c.CloseRead(r.Context())
	ctx, span := cfotel.StartStreamSpan(ctx, channel, "websocket")
	defer span.End()

	slog.Info("websocket connected", "remote", r.RemoteAddr, "channel", channel)

	err = run(ctx, func(eventType string, payload any) error {
		frame, err := encode(eventType, payload)
		if err != nil {
			return err
		}
		wctx, cancel := context.WithTimeout(ctx, h.writeTimeout)
		defer cancel()
		return c.Write(wctx, websocket.MessageText, frame)
	})

	switch {
	case ctx.Err() != nil:
		slog.Info("websocket disconnected", "channel", channel)
	case err != nil:
		span.RecordError(err)
		slog.Debug("websocket stream failed", "channel", channel, "error", err)
		_ = c.Close(websocket.StatusInternalError, "stream failed")
	default:
		// End of stream: the broadcaster was closed.
		_ = c.Close(websocket.StatusNormalClosure, "stream ended")
	}
}
