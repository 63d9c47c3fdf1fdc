// Package http exposes the tracker engine as a JSON API.
package http

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"drivertrack/internal/cache"
	"drivertrack/internal/kv"
	"drivertrack/internal/log"
	"drivertrack/internal/middleware/ratelimit"
	"drivertrack/internal/middleware/security"
	"drivertrack/internal/middleware/trace"
	"drivertrack/internal/services"
	"drivertrack/internal/tracker"
)

const (
	reportCacheSize    = 32
	cacheCleanupPeriod = 10 * time.Minute
	readyTimeout       = 2 * time.Second
)

// Options tune a Server. Zero values pick the defaults.
type Options struct {
	Logger             *log.Logger
	RateLimitPerMinute int
	ReportCacheTTL     time.Duration
	// Pinger backs /readyz. When nil the back end is probed if it implements
	// kv.Pinger, otherwise readiness is always reported.
	Pinger kv.Pinger
}

type Server struct {
	http.Server
	service *services.TrackerService
	engine  *tracker.Engine
	logger  *log.Logger
	metrics *Metrics
	pinger  kv.Pinger

	limiter      *ratelimit.Limiter
	reports      *cache.LRUCache[int, tracker.YearReport]
	cacheManager *cache.Manager

	// reportGen counts invalidations per year. A report computed across an
	// invalidation is not cached.
	genMu     sync.Mutex
	reportGen map[int]uint64

	shutdownOnce sync.Once
}

// NewServer configures routes, returning a ready-to-run http.Server.
func NewServer(addr string, svc *services.TrackerService, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Wrap(nil, log.ComponentHTTP)
	}
	ttl := opts.ReportCacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	s := &Server{
		service: svc,
		engine:  svc.Engine(),
		logger:  logger.WithComponent(log.ComponentHTTP),
		metrics: newMetrics(),
		pinger:  opts.Pinger,
		limiter: ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		reports: cache.NewLRUCache[int, tracker.YearReport](reportCacheSize, ttl),

		reportGen: map[int]uint64{},
	}
	if s.pinger == nil {
		if p, ok := s.engine.Backend().(kv.Pinger); ok {
			s.pinger = p
		}
	}

	s.cacheManager = cache.NewManager(logger)
	s.cacheManager.Register(s.reports)
	s.cacheManager.StartCleanup(cacheCleanupPeriod)

	// Any write, persisted or not, may change the year's report.
	svc.OnChange(func(year, _ int) { s.invalidateReport(year) })

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	ips := security.NewIPExtractor()
	tracer := trace.NewMiddleware(ips.ClientIP, s.logger, trace.WithIncomingIDs())
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())

	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(tracer.Middleware)
	r.Use(headers.Middleware)
	r.Use(s.countRequests)
	r.Use(s.limiter.Middleware(ips.ClientIP, s.onRateLimited, http.MethodPatch))

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/calendar/{year}/{month}", s.handleCalendar)
		r.Get("/calendar/{year}/{month}/days/{day}", s.handleDayName)

		r.Get("/store", s.handleStore)

		r.Route("/months/{year}/{month}", func(r chi.Router) {
			r.Get("/", s.handleMonth)
			r.Get("/summary", s.handleMonthSummary)
			r.Patch("/expenses", s.handleSetMonthlyExpenses)
			r.Patch("/days/{day}", s.handleSetDay)
			r.Get("/weeks/{week}", s.handleWeek)
			r.Patch("/weeks/{week}", s.handleSetWeek)
		})

		r.Get("/years/{year}/report", s.handleYearReport)
		r.Get("/years/{year}/report.xlsx", s.handleYearReportXLSX)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
	})
	return r
}

// countRequests records every response under its chi route pattern.
func (s *Server) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.metrics.requests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
	})
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	s.metrics.rateLimited.Inc()
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldComponent, log.ComponentRateLimit)
	writeError(w, r, http.StatusTooManyRequests, "rate limit exceeded, try again later")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()
		if err := s.pinger.Ping(ctx); err != nil {
			s.logger.WarnContext(r.Context(), "Readiness probe failed", log.FieldError, err)
			writeError(w, r, http.StatusServiceUnavailable, "store unavailable")
			return
		}
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ready"})
}

// Shutdown stops background loops and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
