package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Server.Port != "8000" {
		t.Errorf("expected port 8000, got %s", cfg.Server.Port)
	}
	if cfg.Server.MaxStreams != 1024 {
		t.Errorf("expected max_streams 1024, got %d", cfg.Server.MaxStreams)
	}
	if cfg.Chat.Room != "chatroom" {
		t.Errorf("expected chat room chatroom, got %s", cfg.Chat.Room)
	}
	if cfg.Idempotency.TTL != 24*time.Hour {
		t.Errorf("expected idempotency ttl 24h, got %v", cfg.Idempotency.TTL)
	}
}

func TestLoadYAMLOverride(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "test.yaml")

	content := `
server:
  port: "9090"
  cors_origin: "http://example.com"
  max_streams: 16
logging:
  level: "debug"
chat:
  room: "lobby"
`
	if err := os.WriteFile(yamlPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := Defaults()
	if err := loadYAML(&cfg, yamlPath); err != nil {
		t.Fatal(err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.Server.Port)
	}
	if cfg.Server.CORSOrigin != "http://example.com" {
		t.Errorf("expected cors http://example.com, got %s", cfg.Server.CORSOrigin)
	}
	if cfg.Server.MaxStreams != 16 {
		t.Errorf("expected max_streams 16, got %d", cfg.Server.MaxStreams)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level debug, got %s", cfg.Logging.Level)
	}
	if cfg.Chat.Room != "lobby" {
		t.Errorf("expected room lobby, got %s", cfg.Chat.Room)
	}
	// Unchanged fields keep defaults
	if cfg.Rate.Burst != 200 {
		t.Errorf("expected default burst, got %d", cfg.Rate.Burst)
	}
}

func TestLoadYAMLMissing(t *testing.T) {
	cfg := Defaults()
	err := loadYAML(&cfg, "/nonexistent/path.yaml")
	if err != nil {
		t.Errorf("missing YAML should not error, got %v", err)
	}
}

func TestLoadYAMLInvalid(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(yamlPath, []byte("server: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := Defaults()
	if err := loadYAML(&cfg, yamlPath); err == nil {
		t.Fatal("expected parse error, got nil")
	}
}

func TestEnvOverride(t *testing.T) {
	cfg := Defaults()

	t.Setenv("FANOUT_PORT", "7070")
	t.Setenv("FANOUT_MAX_STREAMS", "5")
	t.Setenv("FANOUT_LOG_LEVEL", "warn")
	t.Setenv("FANOUT_LOG_ASYNC", "true")
	t.Setenv("FANOUT_RATE_RPS", "2.5")
	t.Setenv("FANOUT_IDEMPOTENCY_TTL", "1m")
	t.Setenv("FANOUT_IDEMPOTENCY_CACHE_MB", "64")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4317")

	loadEnv(&cfg)

	if cfg.Server.Port != "7070" {
		t.Errorf("expected port 7070, got %s", cfg.Server.Port)
	}
	if cfg.Server.MaxStreams != 5 {
		t.Errorf("expected max_streams 5, got %d", cfg.Server.MaxStreams)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("expected log level warn, got %s", cfg.Logging.Level)
	}
	if !cfg.Logging.Async {
		t.Error("expected async logging")
	}
	if cfg.Rate.RequestsPerSecond != 2.5 {
		t.Errorf("expected rps 2.5, got %v", cfg.Rate.RequestsPerSecond)
	}
	if cfg.Idempotency.TTL != time.Minute {
		t.Errorf("expected ttl 1m, got %v", cfg.Idempotency.TTL)
	}
	if cfg.Idempotency.CacheSizeMB != 64 {
		t.Errorf("expected cache 64MB, got %d", cfg.Idempotency.CacheSizeMB)
	}
	if cfg.OTEL.Endpoint != "collector:4317" {
		t.Errorf("expected collector:4317, got %s", cfg.OTEL.Endpoint)
	}
}

func TestEnvOverrideIgnoresMalformed(t *testing.T) {
	cfg := Defaults()

	t.Setenv("FANOUT_MAX_STREAMS", "lots")
	t.Setenv("FANOUT_SHUTDOWN_TIMEOUT", "soon")

	loadEnv(&cfg)

	if cfg.Server.MaxStreams != 1024 {
		t.Errorf("malformed int should be ignored, got %d", cfg.Server.MaxStreams)
	}
	if cfg.Server.ShutdownTimeout != 10*time.Second {
		t.Errorf("malformed duration should be ignored, got %v", cfg.Server.ShutdownTimeout)
	}
}

func TestValidateRequired(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		errMsg string
	}{
		{
			name:   "empty port",
			modify: func(c *Config) { c.Server.Port = "" },
			errMsg: "server.port is required",
		},
		{
			name:   "zero max_streams",
			modify: func(c *Config) { c.Server.MaxStreams = 0 },
			errMsg: "server.max_streams must be >= 1",
		},
		{
			name:   "zero rate",
			modify: func(c *Config) { c.Rate.RequestsPerSecond = 0 },
			errMsg: "rate.requests_per_second must be > 0",
		},
		{
			name:   "zero rate burst",
			modify: func(c *Config) { c.Rate.Burst = 0 },
			errMsg: "rate.burst must be >= 1",
		},
		{
			name:   "zero cleanup interval",
			modify: func(c *Config) { c.Rate.CleanupInterval = 0 },
			errMsg: "rate.cleanup_interval must be > 0",
		},
		{
			name:   "negative cleanup interval",
			modify: func(c *Config) { c.Rate.CleanupInterval = -time.Second },
			errMsg: "rate.cleanup_interval must be > 0",
		},
		{
			name:   "zero max idle time",
			modify: func(c *Config) { c.Rate.MaxIdleTime = 0 },
			errMsg: "rate.max_idle_time must be > 0",
		},
		{
			name:   "zero cache size",
			modify: func(c *Config) { c.Idempotency.CacheSizeMB = 0 },
			errMsg: "idempotency.cache_size_mb must be >= 1",
		},
		{
			name: "otel without endpoint",
			modify: func(c *Config) {
				c.OTEL.Enabled = true
				c.OTEL.Endpoint = ""
			},
			errMsg: "otel.endpoint is required when otel is enabled",
		},
		{
			name:   "empty chat room",
			modify: func(c *Config) { c.Chat.Room = "" },
			errMsg: "chat.room is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.modify(&cfg)
			err := validate(&cfg)
			if err == nil {
				t.Fatalf("expected error %q, got nil", tt.errMsg)
			}
			if err.Error() != tt.errMsg {
				t.Errorf("expected %q, got %q", tt.errMsg, err.Error())
			}
		})
	}
}

func TestValidateDefaults(t *testing.T) {
	cfg := Defaults()
	if err := validate(&cfg); err != nil {
		t.Errorf("defaults should validate, got %v", err)
	}
}

func TestLoadFrom_FullHierarchy(t *testing.T) {
	// YAML sets port=9090, env overrides to 7070. Env must win.
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "cfg.yaml")
	if err := os.WriteFile(yamlPath, []byte(`
server:
  port: "9090"
logging:
  level: "debug"
`), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("FANOUT_PORT", "7070")

	cfg, err := LoadFrom(yamlPath)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	if cfg.Server.Port != "7070" {
		t.Errorf("env should override YAML: got port %q, want 7070", cfg.Server.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("YAML should override defaults: got level %q, want debug", cfg.Logging.Level)
	}
}

func TestLoadFrom_InvalidConfig(t *testing.T) {
	t.Setenv("FANOUT_MAX_STREAMS", "0")

	if _, err := LoadFrom("/nonexistent/fanout.yaml"); err == nil {
		t.Fatal("expected validation error, got nil")
	}
}

func TestLoadFrom_ZeroCleanupIntervalRejected(t *testing.T) {
	t.Setenv("FANOUT_RATE_CLEANUP_INTERVAL", "0s")

	_, err := LoadFrom("/nonexistent/fanout.yaml")
	if err == nil {
		t.Fatal("expected validation error for zero cleanup interval, got nil")
	}
	if !strings.Contains(err.Error(), "rate.cleanup_interval") {
		t.Errorf("expected cleanup_interval error, got %v", err)
	}
}

func TestParseFlags(t *testing.T) {
	flags, err := ParseFlags([]string{"--port", "9090", "--log-level", "debug"})
	if err != nil {
		t.Fatal(err)
	}

	if flags.Port == nil || *flags.Port != "9090" {
		t.Errorf("expected port 9090, got %v", flags.Port)
	}
	if flags.LogLevel == nil || *flags.LogLevel != "debug" {
		t.Errorf("expected log-level debug, got %v", flags.LogLevel)
	}
	// Unset flags remain nil
	if flags.ConfigPath != nil {
		t.Errorf("expected nil ConfigPath, got %v", *flags.ConfigPath)
	}
	if flags.ChatRoom != nil {
		t.Errorf("expected nil ChatRoom, got %v", *flags.ChatRoom)
	}
}

func TestParseFlagsShorthand(t *testing.T) {
	flags, err := ParseFlags([]string{"-p", "7070", "-c", "custom.yaml"})
	if err != nil {
		t.Fatal(err)
	}

	if flags.Port == nil || *flags.Port != "7070" {
		t.Errorf("expected port 7070, got %v", flags.Port)
	}
	if flags.ConfigPath == nil || *flags.ConfigPath != "custom.yaml" {
		t.Errorf("expected config custom.yaml, got %v", flags.ConfigPath)
	}
}

func TestParseFlagsInvalid(t *testing.T) {
	_, err := ParseFlags([]string{"--unknown-flag"})
	if err == nil {
		t.Error("expected error for unknown flag, got nil")
	}
}

func TestCLIOverridesEnv(t *testing.T) {
	// CLI flags must win over ENV.
	t.Setenv("FANOUT_PORT", "7070")
	t.Setenv("FANOUT_CHAT_ROOM", "env-room")

	flags, err := ParseFlags([]string{"--port", "3333", "--chat-room", "cli-room", "-c", "/nonexistent.yaml"})
	if err != nil {
		t.Fatal(err)
	}

	cfg, path, err := LoadWithCLI(flags)
	if err != nil {
		t.Fatal(err)
	}

	if path != "/nonexistent.yaml" {
		t.Errorf("expected resolved path /nonexistent.yaml, got %s", path)
	}
	if cfg.Server.Port != "3333" {
		t.Errorf("expected CLI port 3333 to override ENV 7070, got %s", cfg.Server.Port)
	}
	if cfg.Chat.Room != "cli-room" {
		t.Errorf("expected CLI room to override ENV, got %s", cfg.Chat.Room)
	}
}

func TestApplyCLINilFlags(t *testing.T) {
	cfg := Defaults()
	original := cfg

	// All-nil flags should change nothing.
	applyCLI(&cfg, CLIFlags{})

	if cfg != original {
		t.Errorf("config changed: %+v", cfg)
	}
}
