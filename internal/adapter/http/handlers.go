package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	cfotel "github.com/Strob0t/fanout/internal/adapter/otel"
	"github.com/Strob0t/fanout/internal/domain/message"
	"github.com/Strob0t/fanout/internal/logger"
	"github.com/Strob0t/fanout/internal/service"
)

// Handlers holds the HTTP handler dependencies.
type Handlers struct {
	Relay *service.RelayService
	Chat  *service.ChatService

	// KeepAlive is the SSE keep-alive interval. Zero disables keep-alives.
	KeepAlive time.Duration
}

// ---------------------------------------------------------------------------
// Relay
// ---------------------------------------------------------------------------

// ListChannels handles GET /api/v1/channels.
func (h *Handlers) ListChannels(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.Relay.Channels())
}

// PublishMessage handles POST /api/v1/channels/{channel}/messages.
func (h *Handlers) PublishMessage(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[message.PublishRequest](w, r)
	if !ok {
		return
	}

	res, err := h.Relay.Publish(r.Context(), urlParam(r, "channel"), req.Data)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, res)
}

// StreamChannel handles GET /api/v1/channels/{channel}/stream as an SSE feed.
func (h *Handlers) StreamChannel(w http.ResponseWriter, r *http.Request) {
	channel := urlParam(r, "channel")
	h.serveSSE(w, r, channel, func(ctx context.Context, sse *sseWriter) error {
		return h.Relay.Stream(ctx, channel, func(m message.Message) error {
			return sse.event(m.ID, "message", m)
		})
	})
}

// ---------------------------------------------------------------------------
// Chat
// ---------------------------------------------------------------------------

type chatUserRequest struct {
	Username string `json:"username"`
}

type joinEvent struct {
	Username string `json:"username"`
}

// JoinChat handles POST /api/v1/chat/join.
func (h *Handlers) JoinChat(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[chatUserRequest](w, r)
	if !ok {
		return
	}
	joined, err := h.Chat.Join(r.Context(), req.Username)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"joined": joined})
}

// LeaveChat handles POST /api/v1/chat/leave.
func (h *Handlers) LeaveChat(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[chatUserRequest](w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"left": h.Chat.Leave(req.Username)})
}

// ListChatUsers handles GET /api/v1/chat/users.
func (h *Handlers) ListChatUsers(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"room":  h.Chat.Room(),
		"users": h.Chat.ActiveUsers(),
	})
}

// StreamChat handles GET /api/v1/chat/stream, an SSE feed of joining users.
func (h *Handlers) StreamChat(w http.ResponseWriter, r *http.Request) {
	h.serveSSE(w, r, h.Chat.Room(), func(ctx context.Context, sse *sseWriter) error {
		return h.Chat.Joins(ctx, func(username string) error {
			return sse.event("", "join", joinEvent{Username: username})
		})
	})
}

// serveSSE opens an event stream and runs fn until it returns. The
// keep-alive goroutine is stopped before serveSSE returns.
func (h *Handlers) serveSSE(w http.ResponseWriter, r *http.Request, channel string, fn func(context.Context, *sseWriter) error) {
	sse, err := startSSE(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	ctx, span := cfotel.StartStreamSpan(r.Context(), channel, "sse")
	defer span.End()

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		sse.keepAlive(h.KeepAlive, stop)
	}()
	defer func() {
		close(stop)
		wg.Wait()
	}()

	if err := fn(ctx, sse); err != nil {
		span.RecordError(err)
		logger.FromContext(ctx).Debug("sse stream aborted", "channel", channel, "error", err)
	}
}
