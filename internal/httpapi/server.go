package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/trace"

	"github.com/mastobridge/mastobridge/internal/cache"
	"github.com/mastobridge/mastobridge/internal/idmap"
	"github.com/mastobridge/mastobridge/internal/mastodon"
	"github.com/mastobridge/mastobridge/internal/oauth"
	"github.com/mastobridge/mastobridge/internal/ratelimit"
)

// keyFollowRecord namespaces the cache entries this package uses to
// remember the AT Protocol follow-record URI created by a follow, so a
// later unfollow (which the Mastodon API addresses by target account id,
// not by record URI) can delete the right record.
const keyFollowRecord = "follow_record:"

func followRecordKey(viewerDID, targetDID string) string {
	return keyFollowRecord + viewerDID + ":" + targetDID
}

// AppHandler is a handler that reports failure by returning an error
// instead of writing one, per spec.md §7: "Handlers do not serialize
// errors themselves." register is the only place that translates a
// returned error into the wire body.
type AppHandler func(w http.ResponseWriter, r *http.Request) error

// Server holds the gateway's wired dependencies and implements spec.md
// §6.1's full Mastodon-shaped HTTP surface atop internal/atproto,
// internal/oauth, internal/mastodon, internal/idmap, and
// internal/ratelimit.
type Server struct {
	oauth      *oauth.Service
	mapper     *idmap.Mapper
	translator *mastodon.Translator
	limiter    *ratelimit.Limiter
	store      cache.Store

	registry *prometheus.Registry
	metrics  *Metrics
	logger   *slog.Logger
	tracer   trace.Tracer

	upstreamTimeout         time.Duration
	unauthenticatedCapacity int
	authenticatedCapacity   int
	rateLimitEnabled        bool

	instanceDomain string
	publicFeedURI  string
}

// Option configures a Server at construction time.
type Option func(*Server)

func WithUpstreamTimeout(d time.Duration) Option {
	return func(s *Server) { s.upstreamTimeout = d }
}

func WithRateLimitCapacities(unauth, auth int) Option {
	return func(s *Server) { s.unauthenticatedCapacity, s.authenticatedCapacity = unauth, auth }
}

func WithRateLimitEnabled(enabled bool) Option {
	return func(s *Server) { s.rateLimitEnabled = enabled }
}

func WithInstanceDomain(domain string) Option {
	return func(s *Server) { s.instanceDomain = domain }
}

func WithPublicFeedURI(uri string) Option {
	return func(s *Server) { s.publicFeedURI = uri }
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Server) { s.tracer = tracer }
}

// NewServer wires the gateway's handlers atop the given oauth, idmap, and
// rate-limit services, all backed by a shared internal/cache.Store (spec.md
// §6.3), plus a Prometheus gatherer that both registers the gateway's own
// metrics and serves /metrics, so the two never drift onto different
// registries.
func NewServer(oauthSvc *oauth.Service, mapper *idmap.Mapper, limiter *ratelimit.Limiter, store cache.Store, reg *prometheus.Registry, logger *slog.Logger, opts ...Option) *Server {
	s := &Server{
		oauth:                   oauthSvc,
		mapper:                  mapper,
		translator:              mastodon.NewTranslator(mapper),
		limiter:                 limiter,
		store:                   store,
		registry:                reg,
		metrics:                 NewMetrics(reg),
		logger:                  logger,
		tracer:                  trace.NewNoopTracerProvider().Tracer("mastobridge/httpapi"),
		upstreamTimeout:         30 * time.Second,
		unauthenticatedCapacity: ratelimit.UnauthenticatedCapacity,
		authenticatedCapacity:   ratelimit.AuthenticatedCapacity,
		rateLimitEnabled:        true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// register adapts an AppHandler into an http.HandlerFunc, rendering any
// returned error through writeError — the sole point where a handler's
// failure becomes a wire response, per spec.md §7.
func (s *Server) register(h AppHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h(w, r); err != nil {
			writeError(w, err)
		}
	}
}

// Router builds the full route tree with spec.md §4.7's strict middleware
// order: error normalizer (outermost) → rate limiter → tracer → metrics →
// logger → handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(errorNormalizerMiddleware(s.logger))
	if s.rateLimitEnabled {
		r.Use(s.rateLimiterMiddleware)
	}
	r.Use(s.tracerMiddleware)
	r.Use(s.metricsMiddleware)
	r.Use(s.loggerMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{Registry: s.registry}))

	s.mountOAuth(r)
	s.mountInstance(r)
	s.mountAccounts(r)
	s.mountStatuses(r)
	s.mountTimelines(r)
	s.mountNotifications(r)
	s.mountMedia(r)
	s.mountSearch(r)
	s.mountLists(r)

	return r
}

// Shutdown is a passthrough hook for future connection-draining logic;
// cmd/mastobridge/cmd/serve.go calls it during graceful shutdown alongside
// http.Server.Shutdown.
func (s *Server) Shutdown(ctx context.Context) error {
	return nil
}
