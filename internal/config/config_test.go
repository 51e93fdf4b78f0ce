package config

import "testing"

func TestSetDefaults(t *testing.T) {
	t.Parallel()

	var cfg Config
	cfg.SetDefaults()

	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Host = %q, want 0.0.0.0", cfg.Server.Host)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Server.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.Server.LogLevel)
	}
	if cfg.Cache.Backend != "memory" {
		t.Errorf("Cache.Backend = %q, want memory", cfg.Cache.Backend)
	}
	if cfg.Upstream.PDSHost != "https://bsky.social" {
		t.Errorf("Upstream.PDSHost = %q, want https://bsky.social", cfg.Upstream.PDSHost)
	}
	if cfg.RateLimit.UnauthenticatedCapacity != 300 {
		t.Errorf("UnauthenticatedCapacity = %d, want 300", cfg.RateLimit.UnauthenticatedCapacity)
	}
	if cfg.RateLimit.AuthenticatedCapacity != 1000 {
		t.Errorf("AuthenticatedCapacity = %d, want 1000", cfg.RateLimit.AuthenticatedCapacity)
	}
	if cfg.RateLimit.WindowSeconds != 300 {
		t.Errorf("WindowSeconds = %d, want 300", cfg.RateLimit.WindowSeconds)
	}
}

func TestSetDefaultsDevModeForcesDebugLogging(t *testing.T) {
	t.Parallel()

	cfg := Config{DevMode: true}
	cfg.SetDefaults()

	if cfg.Server.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug under dev mode", cfg.Server.LogLevel)
	}
}

func TestSetDefaultsPreservesExistingValues(t *testing.T) {
	t.Parallel()

	cfg := Config{
		Server:   ServerConfig{Host: "127.0.0.1", Port: 9090},
		Upstream: UpstreamConfig{PDSHost: "https://example.pds"},
	}
	cfg.SetDefaults()

	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Host was overwritten: got %q", cfg.Server.Host)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Port was overwritten: got %d", cfg.Server.Port)
	}
	if cfg.Upstream.PDSHost != "https://example.pds" {
		t.Errorf("PDSHost was overwritten: got %q", cfg.Upstream.PDSHost)
	}
}

func TestServerConfigAddr(t *testing.T) {
	t.Parallel()

	s := ServerConfig{Host: "0.0.0.0", Port: 8080}
	if got := s.Addr(); got != "0.0.0.0:8080" {
		t.Errorf("Addr() = %q, want 0.0.0.0:8080", got)
	}
}
