// Package config provides configuration types for mastobridge, the
// Mastodon-API-to-AT-Protocol gateway.
//
// Configuration is environment-first (spec.md §6.5): every field can be set
// via a MASTOBRIDGE_-prefixed environment variable, with an optional YAML
// file for local development. This mirrors the teacher's nested-struct +
// mapstructure/validate approach, trimmed to the gateway's actual surface:
// listener, cache backend, upstream PDS, rate limits, tracing/metrics, and
// log level.
package config

import "strconv"

// Config is the top-level configuration for mastobridge.
type Config struct {
	// Server configures the HTTP listener.
	Server ServerConfig `yaml:"server" mapstructure:"server"`

	// Cache configures the shared cache/session store (spec.md §6.3).
	Cache CacheConfig `yaml:"cache" mapstructure:"cache"`

	// Upstream configures the AT Protocol PDS the gateway authenticates
	// and proxies writes/reads against.
	Upstream UpstreamConfig `yaml:"upstream" mapstructure:"upstream"`

	// RateLimit configures the token-bucket limiter (spec.md §4.7).
	RateLimit RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`

	// Observability configures tracing and metrics export.
	Observability ObservabilityConfig `yaml:"observability" mapstructure:"observability"`

	// DevMode forces the "debug" log level; it changes nothing else.
	DevMode bool `yaml:"dev_mode" mapstructure:"dev_mode"`
}

// ServerConfig configures the HTTP server listener.
type ServerConfig struct {
	// Host is the interface to bind. Defaults to "0.0.0.0".
	Host string `yaml:"host" mapstructure:"host" validate:"omitempty,ip|hostname"`

	// Port is the TCP port to listen on. Defaults to 8080.
	Port int `yaml:"port" mapstructure:"port" validate:"omitempty,min=1,max=65535"`

	// LogLevel sets the minimum log level: debug, info, warn, error.
	// Defaults to "info"; --dev / DevMode forces "debug".
	LogLevel string `yaml:"log_level" mapstructure:"log_level" validate:"omitempty,oneof=debug info warn warning error"`

	// ShutdownTimeout bounds graceful shutdown (e.g. "10s").
	ShutdownTimeout string `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

// Addr returns the listener address in host:port form.
func (s ServerConfig) Addr() string {
	return s.Host + ":" + strconv.Itoa(s.Port)
}

// CacheConfig selects and configures the cache.Store backend (spec.md §6.3).
// Exactly one backend is active at runtime, selected by Backend.
type CacheConfig struct {
	// Backend selects the Store implementation: "memory", "redis", or
	// "sqlite". Defaults to "memory".
	Backend string `yaml:"backend" mapstructure:"backend" validate:"omitempty,oneof=memory redis sqlite"`

	// RedisAddr is the host:port of the Redis server (backend=redis).
	RedisAddr string `yaml:"redis_addr" mapstructure:"redis_addr"`

	// RedisPassword authenticates to Redis (backend=redis). Optional.
	RedisPassword string `yaml:"redis_password" mapstructure:"redis_password"`

	// RedisDB selects the Redis logical database (backend=redis).
	RedisDB int `yaml:"redis_db" mapstructure:"redis_db"`

	// SQLitePath is the database file path (backend=sqlite).
	SQLitePath string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
}

// UpstreamConfig configures the AT Protocol PDS host used for new sessions
// (spec.md §6.4, §6.5). Individual authenticated clients may still talk to
// a different PDS named by their own session, but this is the host used to
// mint new sessions (password grant, authorization code exchange).
type UpstreamConfig struct {
	// PDSHost is the base URL of the AT Protocol PDS, e.g.
	// "https://bsky.social".
	PDSHost string `yaml:"pds_host" mapstructure:"pds_host" validate:"omitempty,url"`

	// Timeout bounds each upstream HTTP call (e.g. "30s").
	Timeout string `yaml:"timeout" mapstructure:"timeout"`
}

// RateLimitConfig configures the token-bucket rate limiter (spec.md §4.7).
type RateLimitConfig struct {
	// Enabled turns rate limiting on or off. Defaults to true.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`

	// UnauthenticatedCapacity is the bucket capacity for unauthenticated
	// requests, keyed by client IP. Defaults to 300.
	UnauthenticatedCapacity int `yaml:"unauthenticated_capacity" mapstructure:"unauthenticated_capacity" validate:"omitempty,min=1"`

	// AuthenticatedCapacity is the bucket capacity for authenticated
	// requests, keyed by user DID. Defaults to 1000.
	AuthenticatedCapacity int `yaml:"authenticated_capacity" mapstructure:"authenticated_capacity" validate:"omitempty,min=1"`

	// WindowSeconds is loaded and validated but not read by the server:
	// the limiter always refills over ratelimit.Window (5 minutes).
	WindowSeconds int `yaml:"window_seconds" mapstructure:"window_seconds" validate:"omitempty,min=1"`
}

// ObservabilityConfig holds tracing and metrics settings. They are loaded
// from the file and environment, but the serve command does not read them:
// the metrics middleware and the /metrics endpoint are always on, /metrics
// is always the path, and the server's tracer is a no-op that exports
// nothing.
type ObservabilityConfig struct {
	// TracingEnabled is the tracing on/off setting (not read by serve).
	TracingEnabled bool `yaml:"tracing_enabled" mapstructure:"tracing_enabled"`

	// MetricsEnabled is the metrics on/off setting (not read by serve).
	MetricsEnabled bool `yaml:"metrics_enabled" mapstructure:"metrics_enabled"`

	// CollectorEndpoint is a trace collector address, e.g.
	// "localhost:4317" (not read by serve).
	CollectorEndpoint string `yaml:"collector_endpoint" mapstructure:"collector_endpoint"`

	// MetricsPath is a metrics path setting (not read by serve; the
	// Prometheus handler is mounted on "/metrics").
	MetricsPath string `yaml:"metrics_path" mapstructure:"metrics_path"`
}

// SetDefaults applies spec.md §6.5's defaults to unset fields.
func (c *Config) SetDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.DevMode {
		c.Server.LogLevel = "debug"
	}
	if c.Server.ShutdownTimeout == "" {
		c.Server.ShutdownTimeout = "10s"
	}

	if c.Cache.Backend == "" {
		c.Cache.Backend = "memory"
	}
	if c.Cache.RedisAddr == "" {
		c.Cache.RedisAddr = "localhost:6379"
	}
	if c.Cache.SQLitePath == "" {
		c.Cache.SQLitePath = "mastobridge.db"
	}

	if c.Upstream.PDSHost == "" {
		c.Upstream.PDSHost = "https://bsky.social"
	}
	if c.Upstream.Timeout == "" {
		c.Upstream.Timeout = "30s"
	}

	if c.RateLimit.UnauthenticatedCapacity == 0 {
		c.RateLimit.UnauthenticatedCapacity = 300
	}
	if c.RateLimit.AuthenticatedCapacity == 0 {
		c.RateLimit.AuthenticatedCapacity = 1000
	}
	if c.RateLimit.WindowSeconds == 0 {
		c.RateLimit.WindowSeconds = 300
	}

	if c.Observability.MetricsPath == "" {
		c.Observability.MetricsPath = "/metrics"
	}
}

