package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/mastobridge/mastobridge/internal/cache"
	"github.com/mastobridge/mastobridge/internal/config"
	"github.com/mastobridge/mastobridge/internal/httpapi"
	"github.com/mastobridge/mastobridge/internal/idmap"
	"github.com/mastobridge/mastobridge/internal/oauth"
	"github.com/mastobridge/mastobridge/internal/ratelimit"
)

var devMode bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gateway server",
	Long: `Start the mastobridge HTTP server.

Reads mastobridge.yaml (if present) and MASTOBRIDGE_-prefixed environment
variables, wires the cache backend, rate limiter, OAuth service and
ID mapper, and serves the Mastodon-compatible HTTP API until interrupted.

Examples:
  mastobridge serve
  mastobridge --config /etc/mastobridge/mastobridge.yaml serve`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&devMode, "dev", false, "Enable development mode (verbose logging)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if devMode {
		cfg.DevMode = true
		cfg.Server.LogLevel = "debug"
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Server.LogLevel),
	}))
	if configFile := config.ConfigFileUsed(); configFile != "" {
		logger.Info("loaded config", "file", configFile)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := newCacheStore(cfg.Cache, logger)
	if err != nil {
		return fmt.Errorf("failed to construct cache store: %w", err)
	}
	defer closeStore()

	upstreamTimeout, err := time.ParseDuration(cfg.Upstream.Timeout)
	if err != nil {
		upstreamTimeout = 30 * time.Second
		logger.Warn("invalid upstream.timeout, using default", "value", cfg.Upstream.Timeout, "default", upstreamTimeout)
	}

	mapper := idmap.New(store)
	oauthSvc := oauth.New(store, cfg.Upstream.PDSHost)
	limiter := ratelimit.New(store)
	registry := prometheus.NewRegistry()

	server := httpapi.NewServer(oauthSvc, mapper, limiter, store, registry, logger,
		httpapi.WithUpstreamTimeout(upstreamTimeout),
		httpapi.WithRateLimitCapacities(cfg.RateLimit.UnauthenticatedCapacity, cfg.RateLimit.AuthenticatedCapacity),
		httpapi.WithRateLimitEnabled(cfg.RateLimit.Enabled),
		httpapi.WithInstanceDomain(cfg.Server.Host),
	)

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting mastobridge", "addr", cfg.Server.Addr(), "upstream", cfg.Upstream.PDSHost, "cache_backend", cfg.Cache.Backend)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownTimeout, err := time.ParseDuration(cfg.Server.ShutdownTimeout)
	if err != nil {
		shutdownTimeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("error during HTTP server shutdown", "error", err)
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("error during gateway shutdown", "error", err)
	}

	logger.Info("mastobridge stopped")
	return nil
}

// newCacheStore constructs the cache.Store backend selected by cfg, along
// with a close function that releases its resources (a no-op for the
// in-memory backend, which owns nothing worth closing).
func newCacheStore(cfg config.CacheConfig, logger *slog.Logger) (cache.Store, func(), error) {
	switch cfg.Backend {
	case "redis":
		store := cache.NewRedisStoreFromAddr(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		logger.Info("cache backend", "type", "redis", "addr", cfg.RedisAddr, "db", cfg.RedisDB)
		return store, closerFunc(store, logger), nil
	case "sqlite":
		store, err := cache.NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite store: %w", err)
		}
		logger.Info("cache backend", "type", "sqlite", "path", cfg.SQLitePath)
		return store, closerFunc(store, logger), nil
	default:
		store := cache.NewMemoryStore()
		cleanupCtx, cancel := context.WithCancel(context.Background())
		store.StartCleanup(cleanupCtx)
		logger.Info("cache backend", "type", "memory")
		return store, func() { cancel(); store.Stop() }, nil
	}
}

func closerFunc(store cache.Store, logger *slog.Logger) func() {
	closer, ok := store.(io.Closer)
	if !ok {
		return func() {}
	}
	return func() {
		if err := closer.Close(); err != nil {
			logger.Warn("error closing cache store", "error", err)
		}
	}
}

func parseLogLevel(level string) slog.Level {
	switch level {
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
