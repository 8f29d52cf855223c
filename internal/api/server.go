package api

import (
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"sap2d/internal/service"
)

// Server is the HTTP API server with WebSocket support. It combines the
// HTTP router with the WebSocket hub that streams live overlap-pair
// updates to subscribers.
type Server struct {
	svc         *service.Service
	router      *chi.Mux
	wsHub       *WebSocketHub
	rateLimiter *IPRateLimiter
}

// NewServer creates a new API server with default production configuration.
//
// The WebSocket hub, its broadcast loop and the service's tick loop do NOT
// start until Start() is called, and no network listener is opened here;
// the rate limiter's cleanup goroutine starts on construction.
func NewServer(svc *service.Service, adminAuth *AdminAuth) *Server {
	s := &Server{
		svc: svc,
		wsHub: NewWebSocketHub(
			500, // MaxWSConnectionsTotal default; callers needing config use NewServerWithLimits
			5,
			NewOriginChecker([]string{"*"}),
		),
	}

	s.rateLimiter = NewIPRateLimiter(DefaultRateLimitConfig)

	s.router = NewRouter(RouterConfig{
		Service:     svc,
		WSHub:       s.wsHub,
		AdminAuth:   adminAuth,
		RateLimiter: s.rateLimiter,
	})

	return s
}

// NewServerWithLimits creates an API server honoring the resource limits
// and allowed origins from config.ResourceLimits / config.ServerConfig,
// rather than NewServer's test-friendly defaults.
func NewServerWithLimits(svc *service.Service, adminAuth *AdminAuth, maxWSTotal, maxWSPerIP int, origins []string, rateLimitCfg RateLimitConfig) *Server {
	s := &Server{
		svc:   svc,
		wsHub: NewWebSocketHub(maxWSTotal, maxWSPerIP, NewOriginChecker(origins)),
	}

	s.rateLimiter = NewIPRateLimiter(rateLimitCfg)

	s.router = NewRouter(RouterConfig{
		Service:         svc,
		WSHub:           s.wsHub,
		AdminAuth:       adminAuth,
		RateLimiter:     s.rateLimiter,
		RateLimitConfig: &rateLimitCfg,
		CORSOrigins:     origins,
	})

	return s
}

// Start begins the HTTP server AND starts background workers: the
// WebSocket hub's event loop, its broadcast loop, and the service's tick
// loop that drains the command queue into the Broadphase. Call this method
// only once; to stop, signal the process and call Stop.
func (s *Server) Start(addr string) error {
	go s.wsHub.Run()
	s.wsHub.StartBroadcastLoop(s.svc, 100*time.Millisecond)
	s.svc.Start()

	log.Printf("sap2d API server starting on %s", addr)
	return http.ListenAndServe(addr, s.router)
}

// Router returns the HTTP handler for use with httptest.
//
//	server := api.NewServer(svc, nil)
//	ts := httptest.NewServer(server.Router())
//	defer ts.Close()
func (s *Server) Router() http.Handler {
	return s.router
}

// Stop performs graceful shutdown of background workers.
func (s *Server) Stop() {
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
	s.svc.Stop()
}
