// Package config provides hierarchical configuration loading for fanout.
// Precedence: defaults < YAML file < environment variables < CLI flags.
package config

import "time"

// Config holds all runtime configuration for the fanout service.
type Config struct {
	Server      Server      `yaml:"server"`
	Logging     Logging     `yaml:"logging"`
	Rate        Rate        `yaml:"rate"`
	Idempotency Idempotency `yaml:"idempotency"`
	OTEL        OTEL        `yaml:"otel"`
	Chat        Chat        `yaml:"chat"`
}

// Server holds HTTP server configuration.
type Server struct {
	Port            string        `yaml:"port"`
	CORSOrigin      string        `yaml:"cors_origin"`
	MaxStreams      int           `yaml:"max_streams"`      // Concurrent SSE + WebSocket streams (default: 1024)
	RequestTimeout  time.Duration `yaml:"request_timeout"`  // Non-streaming routes only (default: 30s)
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"` // Graceful shutdown budget (default: 10s)
}

// Logging holds structured logging configuration.
type Logging struct {
	Level   string `yaml:"level"`
	Service string `yaml:"service"`
	Async   bool   `yaml:"async"`
}

// Rate holds the publish rate limiter configuration.
type Rate struct {
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
	CleanupInterval   time.Duration `yaml:"cleanup_interval"`
	MaxIdleTime       time.Duration `yaml:"max_idle_time"`
}

// Idempotency holds the replay cache used for Idempotency-Key deduplication.
type Idempotency struct {
	CacheSizeMB int64         `yaml:"cache_size_mb"`
	TTL         time.Duration `yaml:"ttl"`
}

// OTEL holds OpenTelemetry export configuration.
type OTEL struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint"` // OTLP gRPC collector, host:port
	Insecure    bool   `yaml:"insecure"`
	ServiceName string `yaml:"service_name"`
}

// Chat holds configuration of the chat room demo.
type Chat struct {
	Room string `yaml:"room"`
}

// Defaults returns a Config with sensible default values for local development.
func Defaults() Config {
	return Config{
		Server: Server{
			Port:            "8000",
			CORSOrigin:      "http://localhost:3000",
			MaxStreams:      1024,
			RequestTimeout:  30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Logging: Logging{
			Level:   "info",
			Service: "fanout",
		},
		Rate: Rate{
			RequestsPerSecond: 50,
			Burst:             200,
			CleanupInterval:   5 * time.Minute,
			MaxIdleTime:       10 * time.Minute,
		},
		Idempotency: Idempotency{
			CacheSizeMB: 32,
			TTL:         24 * time.Hour,
		},
		OTEL: OTEL{
			Enabled:     false,
			Endpoint:    "localhost:4317",
			Insecure:    true,
			ServiceName: "fanout",
		},
		Chat: Chat{
			Room: "chatroom",
		},
	}
}
