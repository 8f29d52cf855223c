package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"sap2d/internal/metrics"
	"sap2d/internal/service"
)

// RouterConfig contains all dependencies needed to construct the HTTP
// router. Designed for dependency injection and testability, the same
// shape the teacher's RouterConfig takes for its game engine.
type RouterConfig struct {
	// Service owns the Broadphase and the command queue feeding it (required).
	Service *service.Service

	// WSHub broadcasts live pair updates to subscribed clients (optional; if
	// nil, /ws is not routed).
	WSHub *WebSocketHub

	// AdminAuth guards POST /admin/clear. A nil or disabled AdminAuth leaves
	// the admin route open, matching the teacher's "auth disabled" default.
	AdminAuth *AdminAuth

	// RateLimiter is an optional pre-configured rate limiter. If nil, a new
	// one is created from RateLimitConfig.
	RateLimiter *IPRateLimiter

	// RateLimitConfig configures the rate limiter when RateLimiter is nil.
	RateLimitConfig *RateLimitConfig

	// CORSOrigins overrides the default allowed CORS origins.
	CORSOrigins []string

	// DisableLogging disables the request logger middleware (useful for
	// benchmarks and quiet test output).
	DisableLogging bool
}

// NewRouter constructs the HTTP router with all middleware and routes.
//
// It opens no network listeners, which makes it safe to use in tests with
// httptest.NewServer. When cfg.RateLimiter is nil it builds one with
// NewIPRateLimiter, which starts that limiter's cleanup goroutine; no other
// goroutine is started here.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	if !cfg.DisableLogging {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)
	r.Use(metricsMiddleware)

	rateLimiter := cfg.RateLimiter
	if rateLimiter == nil {
		rateLimitCfg := DefaultRateLimitConfig
		if cfg.RateLimitConfig != nil {
			rateLimitCfg = *cfg.RateLimitConfig
		}
		rateLimiter = NewIPRateLimiter(rateLimitCfg)
	}
	r.Use(rateLimiter.Middleware)

	corsOrigins := cfg.CORSOrigins
	if corsOrigins == nil {
		corsOrigins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	h := &routerHandlers{svc: cfg.Service}

	r.Route("/proxies", func(r chi.Router) {
		r.Post("/", h.handleCreateProxy)
		r.Get("/{id}", h.handleGetProxy)
		r.Put("/{id}", h.handleUpdateProxy)
		r.Delete("/{id}", h.handleDeleteProxy)
	})

	r.Get("/pairs", h.handleGetPairs)
	r.Get("/query", h.handleQuery)
	r.Get("/stats", h.handleGetStats)
	r.Get("/snapshot.png", h.handleSnapshot)

	if cfg.WSHub != nil {
		r.Get("/ws", cfg.WSHub.HandleWebSocket)
	}

	r.Route("/admin", func(r chi.Router) {
		if cfg.AdminAuth != nil {
			r.Use(cfg.AdminAuth.Middleware)
		}
		r.Post("/clear", h.handleAdminClear)
	})

	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"service":"sap2d","endpoints":["/proxies","/pairs","/query","/stats","/snapshot.png","/ws","/admin/clear"]}`))
	})

	return r
}

// metricsMiddleware records per-request latency and status into the
// bounded-cardinality HTTP metrics (endpoint is the route pattern, never
// the raw URL, so cardinality stays bounded regardless of client input).
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		pattern := chi.RouteContext(r.Context()).RoutePattern()
		if pattern == "" {
			pattern = "unmatched"
		}
		metrics.RecordRequest(r.Method, pattern, ww.Status(), time.Since(start))
	})
}
