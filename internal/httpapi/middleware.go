package httpapi

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/mastobridge/mastobridge/internal/apperror"
	"github.com/mastobridge/mastobridge/internal/ctxkey"
	"github.com/mastobridge/mastobridge/internal/ratelimit"
)

// statusRecorder wraps http.ResponseWriter to capture the status code for
// the metrics and logger middlewares, as the teacher's metrics_middleware.go
// does.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// errorNormalizerMiddleware is the outermost layer of spec.md §4.7's chain.
// Ordinary handler errors are rendered by writeError at the AppHandler
// boundary (see server.go); this middleware exists to catch anything that
// slips past that boundary as a panic, so the server never serves a raw
// stack trace to a client.
func errorNormalizerMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered", "error", rec, "stack", string(debug.Stack()))
					writeError(w, apperror.Internal(nil))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// rateLimiterMiddleware implements spec.md §4.7 step 2. A bearer token, if
// present and valid, puts the request in the authenticated scope keyed by
// DID (capacity authCap); otherwise the request is scoped by client IP
// (capacity unauthCap). A successful validation here is cached into the
// request context under authContextKey so requireAuth does not revalidate.
func (s *Server) rateLimiterMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		scope, id, capacity, ctx := s.rateLimitIdentity(r)

		decision, err := s.limiter.Check(ctx, scope, ratelimit.HashKey(id), capacity)
		if err != nil {
			writeError(w, apperror.Internal(err))
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		w.Header().Set("X-RateLimit-Reset", decision.ResetAt.UTC().Format(time.RFC3339))

		if !decision.Allowed {
			retryAfter := time.Until(decision.ResetAt)
			writeError(w, apperror.RateLimited(retryAfter))
			return
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// rateLimitIdentity resolves the scope/id/capacity triple for the current
// request and, when a bearer token validates, returns a context carrying the
// resolved authContext for reuse by requireAuth.
func (s *Server) rateLimitIdentity(r *http.Request) (scope, id string, capacity int, ctx context.Context) {
	ctx = r.Context()

	if bearer := bearerToken(r); bearer != "" {
		if token, err := s.oauth.ValidateToken(ctx, bearer); err == nil {
			a := authContext{token: token, upstream: s.upstreamFor(token)}
			return "authenticated", token.Session.DID, s.authenticatedCapacity, withAuth(ctx, a)
		}
	}

	return "unauthenticated", extractRealIP(r), s.unauthenticatedCapacity, ctx
}

func extractRealIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if ip := strings.TrimSpace(strings.Split(xff, ",")[0]); ip != "" {
			return ip
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// tracerMiddleware implements spec.md §4.7 step 3: opens a span per request
// with http.method/http.target/http.status_code attributes, propagating
// W3C TraceContext both inbound and outbound.
func (s *Server) tracerMiddleware(next http.Handler) http.Handler {
	propagator := otel.GetTextMapPropagator()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))

		ctx, span := s.tracer.Start(ctx, r.Method+" "+r.URL.Path,
			trace.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.target", r.URL.Path),
			),
		)
		defer span.End()

		propagator.Inject(ctx, propagation.HeaderCarrier(w.Header()))

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r.WithContext(ctx))
		duration := time.Since(start)

		span.SetAttributes(
			attribute.Int("http.status_code", rec.status),
			attribute.Int64("http.duration_ms", duration.Milliseconds()),
		)
		if rec.status >= 500 {
			span.SetStatus(codes.Error, http.StatusText(rec.status))
		}
	})
}

// metricsMiddleware implements spec.md §4.7 step 4.
func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.metrics.ActiveRequests.Inc()
		defer s.metrics.ActiveRequests.Dec()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		duration := time.Since(start)

		route := routePattern(r)
		status := strconv.Itoa(rec.status)
		s.metrics.RequestsTotal.WithLabelValues(r.Method, route, status).Inc()
		s.metrics.RequestDuration.WithLabelValues(r.Method, route).Observe(duration.Seconds())
		if rec.status < 200 || rec.status >= 300 {
			s.metrics.ErrorsTotal.WithLabelValues(r.Method, route).Inc()
		}
	})
}

// loggerMiddleware implements spec.md §4.7 step 5: one structured line per
// request-response, correlated to the current span via trace_id/span_id.
func (s *Server) loggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		span := trace.SpanFromContext(r.Context())
		logger := s.logger.With(
			"trace_id", span.SpanContext().TraceID().String(),
			"span_id", span.SpanContext().SpanID().String(),
		)
		ctx := context.WithValue(r.Context(), ctxkey.LoggerKey{}, logger)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r.WithContext(ctx))
		duration := time.Since(start)

		fields := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", duration.Milliseconds(),
		}
		if rec.status >= 500 {
			logger.Error("request completed", fields...)
		} else if rec.status >= 400 {
			logger.Warn("request completed", fields...)
		} else {
			logger.Info("request completed", fields...)
		}
	})
}

func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
		return rc.RoutePattern()
	}
	return r.URL.Path
}
