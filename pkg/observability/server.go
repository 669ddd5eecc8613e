package observability

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Health probes may hit Redis, so /health is limited to this many requests
// per second.
const (
	healthRateLimit = 10
	healthBurst     = 20
)

// Server exposes /metrics and /health while a benchmark is running.
type Server struct {
	httpServer *http.Server
	addr       string
}

// NewServer creates a new observability server listening on addr (host:port).
func NewServer(addr string, metrics *Metrics, checks ...HealthCheck) *Server {
	mux := http.NewServeMux()
	mux.Handle("/health", RateLimit(rate.NewLimiter(healthRateLimit, healthBurst), HealthHandler(checks...)))
	mux.Handle("/metrics", metrics.Handler())

	return &Server{
		addr: addr,
		httpServer: &http.Server{
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
	}
}

// Start serves until Shutdown is called. It returns nil after a clean shutdown.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve serves on an existing listener.
func (s *Server) Serve(ln net.Listener) error {
	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// RateLimit rejects requests with 429 once limiter has no tokens left.
func RateLimit(limiter *rate.Limiter, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			w.Header().Set("Retry-After", "1")
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
