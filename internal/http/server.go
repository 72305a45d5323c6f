package http

import (
	"context"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"rendiconto/internal/cache"
	"rendiconto/internal/core"
	applog "rendiconto/internal/log"
	"rendiconto/internal/services"
)

const (
	requestIDHeader = "X-Request-ID"
	checkCacheSize  = 24
	checkCacheTTL   = 2 * time.Minute
)

// ReportRunner is the report service as seen by the HTTP layer.
type ReportRunner interface {
	Period(ref *time.Time) core.ReportingPeriod
	Check(ctx context.Context, period core.ReportingPeriod) (services.CheckResult, error)
	Send(ctx context.Context, period core.ReportingPeriod) (services.SendResult, error)
}

// Options tunes a Server. Zero values pick the defaults.
type Options struct {
	SiteCode   string
	Logger     *applog.Logger
	RateLimit  int
	RateWindow time.Duration

	// CheckTTL is how long a check result is served from memory.
	CheckTTL time.Duration
}

type Server struct {
	http.Server
	svc         ReportRunner
	siteCode    string
	logger      *applog.Logger
	rateLimiter *rateLimiter
	metrics     *securityMetrics
	sends       singleflight.Group
	checks      *cache.LRUCache[services.CheckResult]
	caches      *cache.Manager
	started     time.Time
	draining    atomic.Bool
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, svc ReportRunner, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.Default(applog.ComponentHTTP)
	}

	ttl := opts.CheckTTL
	if ttl <= 0 {
		ttl = checkCacheTTL
	}

	s := &Server{
		svc:         svc,
		siteCode:    opts.SiteCode,
		logger:      logger,
		rateLimiter: newRateLimiter(opts.RateLimit, opts.RateWindow),
		metrics:     &securityMetrics{},
		checks:      cache.NewLRUCache[services.CheckResult](checkCacheSize, ttl),
		caches:      cache.NewManager(),
		started:     time.Now(),
	}
	s.caches.Register(s.checks)
	s.caches.StartCleanup(5 * time.Minute)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /api/period", s.requireSiteCode(s.handlePeriod))
	mux.Handle("GET /api/check", s.requireSiteCode(s.handleCheck))
	mux.Handle("POST /api/report", s.requireSiteCode(s.handleReport))

	var handler http.Handler = s.withSecurityHeaders(mux)
	handler = applog.RequestIDMiddleware(logger, func(r *http.Request) string {
		return r.Header.Get(requestIDHeader)
	})(handler)
	handler = withRequestID(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Shutdown marks the server not ready, stops background work and drains
// in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.draining.Store(true)
	s.rateLimiter.stop()
	s.caches.Stop()
	return s.Server.Shutdown(ctx)
}

// withRequestID makes sure every request carries an id, echoing it back.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" || len(id) > 64 {
			id = generateRequestID()
			r = r.Clone(r.Context())
			r.Header.Set(requestIDHeader, id)
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

// withSecurityHeaders adds security headers, rate limiting and request logging.
func (s *Server) withSecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := r.Context()
		clientIP := extractClientIP(r)

		if detectSuspiciousRequest(r, s.metrics) {
			applog.FromContext(ctx).WithComponent(applog.ComponentSecurity).WarnContext(ctx, "Suspicious request",
				applog.FieldClientIP, clientIP,
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path)
		}

		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Cache-Control", "no-store")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		if r.Method == http.MethodPost && !s.rateLimiter.allow(clientIP, s.metrics) {
			applog.FromContext(ctx).WithComponent(applog.ComponentRateLimit).WarnContext(ctx, "Rate limit exceeded",
				applog.FieldClientIP, clientIP,
				applog.FieldPath, r.URL.Path)
			rw.Header().Set("Retry-After", strconv.Itoa(int(s.rateLimiter.window.Seconds())))
			writeError(rw, http.StatusTooManyRequests, "rate limit exceeded, try again later")
		} else {
			next.ServeHTTP(rw, r)
		}

		applog.LogHTTPEnd(ctx, r, rw.statusCode, time.Since(start).Milliseconds(), clientIP)
	})
}

// requireSiteCode rejects requests without the configured bearer site code.
func (s *Server) requireSiteCode(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok || !validSiteCode(token, s.siteCode) {
			atomic.AddInt64(&s.metrics.unauthorized, 1)
			ctx := r.Context()
			applog.FromContext(ctx).WithComponent(applog.ComponentSecurity).WarnContext(ctx, "Unauthorized request",
				applog.FieldPath, r.URL.Path,
				"has_token", ok)
			w.Header().Set("WWW-Authenticate", `Bearer realm="rendiconto"`)
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r)
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
