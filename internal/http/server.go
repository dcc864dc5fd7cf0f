// Package http exposes the dashboard and entity CRUD as a JSON API.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"sync"
	"time"

	"classfund/internal/cache"
	"classfund/internal/log"
	"classfund/internal/service"
	"classfund/internal/state"
)

type Server struct {
	http.Server
	svc         *service.FundService
	appState    *state.AppState
	logger      *log.Logger
	rateLimiter *rateLimiter

	// Derived dashboard responses are cached until the snapshot changes.
	summaryCache    *cache.LRUCache[summaryResponse]
	categoriesCache *cache.LRUCache[[]categoryBucket]

	stopCacheCleanup chan struct{}
	shutdownOnce     sync.Once
}

// NewServer wires routes and returns a ready-to-run server.
func NewServer(addr string, svc *service.FundService, appState *state.AppState, logger *log.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		svc:              svc,
		appState:         appState,
		logger:           logger.WithComponent(log.ComponentHTTP),
		rateLimiter:      newRateLimiter(),
		summaryCache:     cache.NewLRUCache[summaryResponse](16, 5*time.Minute),
		categoriesCache:  cache.NewLRUCache[[]categoryBucket](100, 5*time.Minute),
		stopCacheCleanup: make(chan struct{}),
	}

	go s.startCacheCleanup()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/dashboard/summary", s.secure(s.handleDashboardSummary))
	mux.HandleFunc("GET /api/dashboard/categories", s.secure(s.handleDashboardCategories))

	mux.HandleFunc("GET /api/students", s.secure(s.handleListStudents))
	mux.HandleFunc("POST /api/students", s.secure(s.handleCreateStudent))
	mux.HandleFunc("GET /api/students/{id}", s.secure(s.handleGetStudent))
	mux.HandleFunc("PATCH /api/students/{id}", s.secure(s.handleUpdateStudent))
	mux.HandleFunc("DELETE /api/students/{id}", s.secure(s.handleDeleteStudent))
	mux.HandleFunc("GET /api/students/{id}/summary", s.secure(s.handleStudentSummary))
	mux.HandleFunc("PUT /api/students/{id}/avatar", s.secure(s.handleUploadAvatar))
	mux.HandleFunc("DELETE /api/students/{id}/avatar", s.secure(s.handleDeleteAvatar))

	mux.HandleFunc("GET /api/schedules", s.secure(s.handleListSchedules))
	mux.HandleFunc("POST /api/schedules", s.secure(s.handleCreateSchedule))
	mux.HandleFunc("GET /api/schedules/{id}", s.secure(s.handleGetSchedule))
	mux.HandleFunc("PATCH /api/schedules/{id}", s.secure(s.handleUpdateSchedule))
	mux.HandleFunc("DELETE /api/schedules/{id}", s.secure(s.handleDeleteSchedule))
	mux.HandleFunc("GET /api/schedules/{id}/status", s.secure(s.handleScheduleStatus))

	mux.HandleFunc("GET /api/transactions", s.secure(s.handleListTransactions))
	mux.HandleFunc("POST /api/transactions", s.secure(s.handleCreateTransaction))
	mux.HandleFunc("GET /api/transactions/{id}", s.secure(s.handleGetTransaction))
	mux.HandleFunc("PATCH /api/transactions/{id}", s.secure(s.handleUpdateTransaction))
	mux.HandleFunc("DELETE /api/transactions/{id}", s.secure(s.handleDeleteTransaction))

	mux.HandleFunc("GET /api/categories", s.secure(s.handleListCategories))
	mux.HandleFunc("POST /api/categories", s.secure(s.handleCreateCategory))
	mux.HandleFunc("GET /api/categories/{id}", s.secure(s.handleGetCategory))
	mux.HandleFunc("PATCH /api/categories/{id}", s.secure(s.handleUpdateCategory))
	mux.HandleFunc("DELETE /api/categories/{id}", s.secure(s.handleDeleteCategory))

	return s
}

// PurgeCaches drops all cached dashboard responses. Handed to the
// service as its invalidation hook.
func (s *Server) PurgeCaches() {
	s.summaryCache.Purge()
	s.categoriesCache.Purge()
}

func (s *Server) startCacheCleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cleaned := s.summaryCache.CleanExpired() + s.categoriesCache.CleanExpired()
			if cleaned > 0 {
				s.logger.Debug("Cache cleanup completed", "entries_removed", cleaned)
			}
		case <-s.stopCacheCleanup:
			return
		}
	}
}

// Shutdown stops the cleanup goroutines and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		close(s.stopCacheCleanup)
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// secure adds request tracing, rate limiting on writes, and security
// headers around a handler.
func (s *Server) secure(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP) {
			s.logger.WarnContext(ctx, "Rate limit exceeded",
				log.FieldClientIP, clientIP,
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cache-Control", "no-store")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		s.logger.InfoContext(ctx, "Request completed",
			log.FieldRequestID, requestID,
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldStatusCode, rw.statusCode,
			log.FieldDuration, time.Since(start).Milliseconds(),
			log.FieldClientIP, clientIP)
	}
}

type requestIDKey struct{}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady reports ready only once hydration has succeeded. A failed
// hydration surfaces its error so operators can see why the API serves
// 503s.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.appState.Hydrated() {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
		return
	}
	if err := s.appState.HydrationError(); err != nil {
		writeError(w, http.StatusServiceUnavailable, "hydration failed: "+err.Error())
		return
	}
	writeError(w, http.StatusServiceUnavailable, "hydration in progress")
}

// Simple in-memory rate limiter keyed by client IP.
type rateLimiter struct {
	mu           sync.Mutex
	clients      map[string]*clientInfo
	stopCleanup  chan struct{}
	shutdownOnce sync.Once
}

type clientInfo struct {
	lastRequest time.Time
	requests    int
}

func newRateLimiter() *rateLimiter {
	rl := &rateLimiter{
		clients:     make(map[string]*clientInfo),
		stopCleanup: make(chan struct{}),
	}
	go rl.startCleanup()
	return rl
}

func (rl *rateLimiter) startCleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanupStaleEntries()
		case <-rl.stopCleanup:
			return
		}
	}
}

func (rl *rateLimiter) cleanupStaleEntries() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-10 * time.Minute)
	for ip, client := range rl.clients {
		if client.lastRequest.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

func (rl *rateLimiter) stop() {
	rl.shutdownOnce.Do(func() {
		close(rl.stopCleanup)
	})
}

func (rl *rateLimiter) allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	client, exists := rl.clients[clientIP]
	if !exists {
		rl.clients[clientIP] = &clientInfo{lastRequest: now, requests: 1}
		return true
	}

	if now.Sub(client.lastRequest) > time.Minute {
		client.requests = 1
		client.lastRequest = now
		return true
	}

	// Up to 60 write requests per minute per client.
	client.requests++
	client.lastRequest = now
	return client.requests <= 60
}
