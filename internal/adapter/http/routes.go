package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/Strob0t/fanout/internal/adapter/ws"
	"github.com/Strob0t/fanout/internal/middleware"
	"github.com/Strob0t/fanout/internal/port/cache"
)

// RouteOptions carries the shared middleware for MountRoutes. Nil fields
// disable the corresponding middleware.
type RouteOptions struct {
	RateLimiter    *middleware.RateLimiter
	Idempotency    cache.Cache
	IdempotencyTTL time.Duration
	Streams        *StreamPool
	RequestTimeout time.Duration
}

// MountRoutes registers all API routes on the given chi router. Stream
// routes are kept out of the request timeout group since they stay open
// until the client leaves or the server shuts down.
func MountRoutes(r chi.Router, h *Handlers, wsh *ws.Handler, opts RouteOptions) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if opts.RequestTimeout > 0 {
				r.Use(chimw.Timeout(opts.RequestTimeout))
			}

			// Version
			r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"version":"0.1.0"}`))
			})
			r.Get("/hello", func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, http.StatusOK, map[string]string{"message": "Hello World"})
			})

			r.Get("/channels", h.ListChannels)
			r.Get("/chat/users", h.ListChatUsers)

			// Publishing endpoints share the rate limit and idempotency cache.
			r.Group(func(r chi.Router) {
				if opts.RateLimiter != nil {
					r.Use(opts.RateLimiter.Handler)
				}
				if opts.Idempotency != nil {
					r.Use(middleware.Idempotency(opts.Idempotency, opts.IdempotencyTTL))
				}
				r.Post("/channels/{channel}/messages", h.PublishMessage)
				r.Post("/chat/join", h.JoinChat)
				r.Post("/chat/leave", h.LeaveChat)
			})
		})

		// Long-lived streams
		r.Group(func(r chi.Router) {
			r.Use(opts.Streams.Limit)
			r.Get("/channels/{channel}/stream", h.StreamChannel)
			r.Get("/chat/stream", h.StreamChat)
			if wsh != nil {
				r.Get("/ws/channels/{channel}", wsh.ServeChannel)
				r.Get("/ws/chat", wsh.ServeChat)
			}
		})
	})
}
