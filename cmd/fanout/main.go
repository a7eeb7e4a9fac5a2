package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	cfhttp "github.com/Strob0t/fanout/internal/adapter/http"
	cfotel "github.com/Strob0t/fanout/internal/adapter/otel"
	"github.com/Strob0t/fanout/internal/adapter/ristretto"
	"github.com/Strob0t/fanout/internal/adapter/ws"
	"github.com/Strob0t/fanout/internal/config"
	"github.com/Strob0t/fanout/internal/domain/message"
	"github.com/Strob0t/fanout/internal/logger"
	"github.com/Strob0t/fanout/internal/middleware"
	"github.com/Strob0t/fanout/internal/pubsub"
	"github.com/Strob0t/fanout/internal/service"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags, err := config.ParseFlags(args)
	if err != nil {
		return fmt.Errorf("flags: %w", err)
	}
	cfg, cfgPath, err := config.LoadWithCLI(flags)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, closeLog := logger.New(cfg.Logging)
	defer closeLog.Close()
	slog.SetDefault(log)

	slog.Info("config loaded",
		"file", cfgPath,
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"max_streams", cfg.Server.MaxStreams,
		"chat_room", cfg.Chat.Room,
		"otel", cfg.OTEL.Enabled,
	)

	ctx := context.Background()

	// --- Telemetry ---
	shutdownOTEL, err := cfotel.Setup(ctx, cfg.OTEL)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTEL(sctx); err != nil {
			slog.Warn("otel shutdown failed", "error", err)
		}
	}()

	metrics, err := cfotel.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	// --- Infrastructure ---
	idemCache, err := ristretto.New(cfg.Idempotency.CacheSizeMB)
	if err != nil {
		return fmt.Errorf("idempotency cache: %w", err)
	}
	defer idemCache.Close()

	limiter := middleware.NewRateLimiter(cfg.Rate.RequestsPerSecond, cfg.Rate.Burst)
	stopCleanup := limiter.StartCleanup(cfg.Rate.CleanupInterval, cfg.Rate.MaxIdleTime)
	defer stopCleanup()

	// --- Services ---
	relay := service.NewRelayService(pubsub.New[message.Message](pubsub.WithObserver(metrics)))
	chat := service.NewChatService(cfg.Chat.Room, pubsub.New[string](pubsub.WithObserver(metrics)))

	// --- HTTP ---
	handlers := &cfhttp.Handlers{
		Relay:     relay,
		Chat:      chat,
		KeepAlive: cfhttp.DefaultSSEKeepAlive,
	}
	streams := cfhttp.NewStreamPool(cfg.Server.MaxStreams)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(cfotel.HTTPMiddleware(cfg.OTEL.ServiceName))
	r.Use(cfhttp.CORS(cfg.Server.CORSOrigin))
	r.Use(cfhttp.Logger)
	r.Use(chimw.Recoverer)

	r.Get("/health", healthHandler(relay, chat, streams))

	cfhttp.MountRoutes(r, handlers, ws.NewHandler(relay, chat, cfg.Server.CORSOrigin), cfhttp.RouteOptions{
		RateLimiter:    limiter,
		Idempotency:    idemCache,
		IdempotencyTTL: cfg.Idempotency.TTL,
		Streams:        streams,
		RequestTimeout: cfg.Server.RequestTimeout,
	})

	addr := ":" + cfg.Server.Port
	// No WriteTimeout: event streams stay open indefinitely and the
	// request timeout covers everything else.
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(done)

	select {
	case sig := <-done:
		slog.Info("shutting down", "signal", sig.String())
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server: %w", err)
		}
	}

	// Ending every subscription first lets stream handlers return, so
	// Shutdown does not wait on them.
	relay.Close()
	chat.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

// healthHandler returns an http.HandlerFunc that reports service health.
func healthHandler(relay *service.RelayService, chat *service.ChatService, streams *cfhttp.StreamPool) http.HandlerFunc {
	type healthStatus struct {
		Status        string `json:"status"`
		Channels      int    `json:"channels"`
		ChatListeners int    `json:"chat_listeners"`
		Streams       int    `json:"streams"`
		MaxStreams    int    `json:"max_streams"`
	}

	return func(w http.ResponseWriter, _ *http.Request) {
		status := healthStatus{
			Status:        "ok",
			Channels:      len(relay.Channels()),
			ChatListeners: chat.Listeners(),
			Streams:       streams.Active(),
			MaxStreams:    streams.Cap(),
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(status)
	}
}
