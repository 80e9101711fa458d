package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server  ServerConfig
	Gateway GatewayConfig
	Stats   StatsConfig
	Log     LogConfig
	Trace   TraceConfig
}

type ServerConfig struct {
	Host           string
	Port           int
	MetricsEnabled bool
}

// Addr returns host:port for net.Listen.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type GatewayConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

type StatsConfig struct {
	StrictCounters bool
}

// TraceConfig selects the span exporter: "none", "stdout" or "otlp".
type TraceConfig struct {
	Exporter     string
	OTLPEndpoint string
	OTLPInsecure bool
}

type LogConfig struct {
	Level string
}

// SlogLevel parses Level, defaulting to info.
func (l LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(strings.TrimSpace(l.Level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Host:           "127.0.0.1",
			Port:           5000,
			MetricsEnabled: true,
		},
		Gateway: GatewayConfig{
			BaseURL: "https://api.openai.com/v1",
			Model:   "gpt-4o-mini",
			Timeout: 30 * time.Second,
		},
		Log: LogConfig{
			Level: "info",
		},
		Trace: TraceConfig{
			Exporter: "none",
		},
	}
}

// Load reads configuration from the JSON config file, a .env file in the
// working directory, environment variables and the secrets file.
//
// The config file lives at $XDG_CONFIG_HOME/taskchat/config.json. Values from
// .env never override variables already set in the process environment.
// Environment variables (TASKCHAT_*, OPENAI_API_KEY) override file values.
// The API key falls back to $XDG_DATA_HOME/taskchat/secrets.json.
//
// A missing API key is not an error: the server starts and chat requests
// fail until one is configured.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("loading .env: %w", err)
	}
	return loadWith(newPlatformBackend(), defaultSecretsFile())
}

func loadWith(b ConfigBackend, kc keychain) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if strings.TrimSpace(cfg.Gateway.APIKey) == "" {
		if key, err := kc.Get(secretService, apiKeyAccount); err == nil && key != "" {
			cfg.Gateway.APIKey = key
		}
	}

	if cfg.Gateway.Timeout <= 0 {
		return Config{}, fmt.Errorf("invalid gateway.timeout %s: must be positive", cfg.Gateway.Timeout)
	}
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return Config{}, fmt.Errorf("invalid server.port %d", cfg.Server.Port)
	}
	switch cfg.Trace.Exporter {
	case "none", "stdout":
	case "otlp":
		if strings.TrimSpace(cfg.Trace.OTLPEndpoint) == "" {
			return Config{}, fmt.Errorf("trace.exporter otlp requires trace.otlp_endpoint")
		}
	default:
		return Config{}, fmt.Errorf("invalid trace.exporter %q: want none, stdout or otlp", cfg.Trace.Exporter)
	}

	return cfg, nil
}
