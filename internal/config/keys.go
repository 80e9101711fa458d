package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kBool
	kDuration
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.host", typ: kString, env: "TASKCHAT_SERVER_HOST",
		apply:   func(cfg *Config, v any) { cfg.Server.Host = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.Host },
	},
	{
		key: "server.port", typ: kInt, env: "TASKCHAT_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "server.metrics_enabled", typ: kBool, env: "TASKCHAT_SERVER_METRICS_ENABLED",
		apply:   func(cfg *Config, v any) { cfg.Server.MetricsEnabled = v.(bool) },
		extract: func(cfg Config) any { return cfg.Server.MetricsEnabled },
	},
	{
		key: "gateway.api_key", typ: kString, env: "OPENAI_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Gateway.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Gateway.APIKey },
	},
	{
		key: "gateway.base_url", typ: kString, env: "TASKCHAT_GATEWAY_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Gateway.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Gateway.BaseURL },
	},
	{
		key: "gateway.model", typ: kString, env: "TASKCHAT_GATEWAY_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Gateway.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.Gateway.Model },
	},
	{
		key: "gateway.timeout", typ: kDuration, env: "TASKCHAT_GATEWAY_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.Gateway.Timeout = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Gateway.Timeout },
	},
	{
		key: "stats.strict_counters", typ: kBool, env: "TASKCHAT_STATS_STRICT_COUNTERS",
		apply:   func(cfg *Config, v any) { cfg.Stats.StrictCounters = v.(bool) },
		extract: func(cfg Config) any { return cfg.Stats.StrictCounters },
	},
	{
		key: "log.level", typ: kString, env: "TASKCHAT_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
	{
		key: "trace.exporter", typ: kString, env: "TASKCHAT_TRACE_EXPORTER",
		apply:   func(cfg *Config, v any) { cfg.Trace.Exporter = v.(string) },
		extract: func(cfg Config) any { return cfg.Trace.Exporter },
	},
	{
		key: "trace.otlp_endpoint", typ: kString, env: "TASKCHAT_TRACE_OTLP_ENDPOINT",
		apply:   func(cfg *Config, v any) { cfg.Trace.OTLPEndpoint = v.(string) },
		extract: func(cfg Config) any { return cfg.Trace.OTLPEndpoint },
	},
	{
		key: "trace.otlp_insecure", typ: kBool, env: "TASKCHAT_TRACE_OTLP_INSECURE",
		apply:   func(cfg *Config, v any) { cfg.Trace.OTLPInsecure = v.(bool) },
		extract: func(cfg Config) any { return cfg.Trace.OTLPInsecure },
	},
}

func lookupSpec(key string) (keySpec, bool) {
	for _, s := range specs {
		if s.key == key {
			return s, true
		}
	}
	return keySpec{}, false
}

// parseValue converts a raw string into the Go type of s.
func parseValue(s keySpec, raw string) (any, error) {
	switch s.typ {
	case kInt:
		return strconv.Atoi(raw)
	case kBool:
		return strconv.ParseBool(raw)
	case kDuration:
		return time.ParseDuration(raw)
	default:
		return raw, nil
	}
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		if s.typ == kInt {
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
			continue
		}

		v, ok, err := b.GetString(s.key)
		if err != nil {
			return fmt.Errorf("reading %s: %w", s.key, err)
		}
		if !ok || (s.typ != kString && v == "") {
			continue
		}
		pv, err := parseValue(s, v)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[WARN] could not parse config key %s=%q: %v. Using default value.\n", s.key, v, err)
			continue
		}
		s.apply(cfg, pv)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		v, err := parseValue(s, raw)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[WARN] could not parse env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			continue
		}
		s.apply(cfg, v)
	}
}
