// Package web provides the HTTP surface for driving bulk operations.
package web

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/JonMunkholm/bulkedit/internal/core"
	"github.com/JonMunkholm/bulkedit/internal/notes"
	mw "github.com/JonMunkholm/bulkedit/internal/web/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the HTTP server for the bulk-edit API.
type Server struct {
	service      *core.Service
	consolidator *notes.Processor
	errorStore   core.ErrorStore
	router       *chi.Mux
	server       *http.Server
}

// ServerOptions tunes the HTTP surface.
type ServerOptions struct {
	// RemoteBaseURL is stamped into every request's tenant context.
	RemoteBaseURL string

	// RateLimit is requests per minute per client IP. Zero disables
	// rate limiting.
	RateLimit int
}

// NewServer creates a new Server instance.
func NewServer(service *core.Service, consolidator *notes.Processor, errorStore core.ErrorStore, opts ServerOptions) *Server {
	s := &Server{
		service:      service,
		consolidator: consolidator,
		errorStore:   errorStore,
		router:       chi.NewRouter(),
	}
	s.setupMiddleware(opts)
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware(opts ServerOptions) {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(mw.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Use(securityHeaders)

	if opts.RateLimit > 0 {
		limiter := newRateLimiter(opts.RateLimit, time.Minute)
		s.router.Use(limiter.middleware)
	}

	s.router.Use(mw.TenantContext(opts.RemoteBaseURL))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Route("/bulk-operations", func(r chi.Router) {
		r.Post("/", s.handleStart)
		r.Get("/{operationID}", s.handleGet)
		r.Post("/{operationID}/cancel", s.handleCancel)
		r.Get("/{operationID}/errors", s.handleErrors)
		r.Get("/{operationID}/errors/download", s.handleErrorsDownload)
		r.Get("/{operationID}/download", s.handleDownload)
	})

	s.router.Get("/preview/{entityType}", s.handlePreview)
}

// Start begins listening for HTTP requests.
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// rateLimiter implements a simple token bucket rate limiter per IP.
type rateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     int
	window   time.Duration
}

type visitor struct {
	tokens    int
	lastReset time.Time
}

func newRateLimiter(rate int, window time.Duration) *rateLimiter {
	rl := &rateLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate,
		window:   window,
	}
	go rl.cleanup()
	return rl
}

// cleanup removes stale visitor entries every minute.
func (rl *rateLimiter) cleanup() {
	for {
		time.Sleep(time.Minute)
		rl.mu.Lock()
		for ip, v := range rl.visitors {
			if time.Since(v.lastReset) > rl.window*2 {
				delete(rl.visitors, ip)
			}
		}
		rl.mu.Unlock()
	}
}

// allow checks if the request should be allowed and consumes a token if so.
func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, ok := rl.visitors[ip]
	if !ok || time.Since(v.lastReset) > rl.window {
		rl.visitors[ip] = &visitor{tokens: rl.rate - 1, lastReset: time.Now()}
		return true
	}
	if v.tokens <= 0 {
		return false
	}
	v.tokens--
	return true
}

func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.allow(r.RemoteAddr) {
			http.Error(w, `{"error":"rate limit exceeded","code":"RATE_LIMITED"}`, http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
