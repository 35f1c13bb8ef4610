// Package http exposes the JSON API: auth, expenses, budgets, goals,
// recurring templates, notifications, OCR intake, insights and export.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"spendwise/internal/cache"
	"spendwise/internal/core"
	"spendwise/internal/insights"
	"spendwise/internal/receipt"
	"spendwise/internal/services"
	"spendwise/internal/storage"
	"spendwise/internal/vision"
)

// Server wires the API handlers to their collaborators. The embedded
// http.Server carries the listener config.
type Server struct {
	http.Server

	storage    *storage.SQLiteRepository
	expenses   *services.ExpenseService
	recognizer vision.TextRecognizer
	extractor  Extractor
	insights   insights.Generator
	sessionTTL time.Duration

	rateLimiter *rateLimiter

	// Month summaries are the hot read path; cached briefly per
	// user+month, invalidated on writes.
	summaryCache *cache.LRUCache[core.MonthSummary]
	cacheManager *cache.Manager

	shutdownOnce sync.Once
}

// Extractor is the receipt-text parser the OCR endpoint feeds.
type Extractor interface {
	Extract(text string) (*receipt.ExtractedExpense, error)
}

// Options collects the server's collaborators. Recognizer and Insights
// may be nil; the matching endpoints then degrade with clear errors.
type Options struct {
	Addr       string
	Storage    *storage.SQLiteRepository
	Expenses   *services.ExpenseService
	Recognizer vision.TextRecognizer
	Extractor  Extractor
	Insights   insights.Generator
	SessionTTL time.Duration
}

func NewServer(opts Options) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:         opts.Addr,
			Handler:      mux,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		storage:      opts.Storage,
		expenses:     opts.Expenses,
		recognizer:   opts.Recognizer,
		extractor:    opts.Extractor,
		insights:     opts.Insights,
		sessionTTL:   opts.SessionTTL,
		rateLimiter:  newRateLimiter(),
		summaryCache: cache.NewLRUCache[core.MonthSummary](200, 5*time.Minute),
		cacheManager: cache.NewManager(),
	}

	s.cacheManager.Register(s.summaryCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("POST /api/auth/register", s.withCommon(s.handleRegister))
	mux.HandleFunc("POST /api/auth/login", s.withCommon(s.handleLogin))
	mux.HandleFunc("POST /api/auth/logout", s.withCommon(s.requireUser(s.handleLogout)))

	mux.HandleFunc("GET /api/expenses", s.withCommon(s.requireUser(s.handleListExpenses)))
	mux.HandleFunc("POST /api/expenses", s.withCommon(s.requireUser(s.handleCreateExpense)))
	mux.HandleFunc("DELETE /api/expenses/{id}", s.withCommon(s.requireUser(s.handleDeleteExpense)))
	mux.HandleFunc("GET /api/expenses/summary", s.withCommon(s.requireUser(s.handleSummary)))

	mux.HandleFunc("GET /api/budget", s.withCommon(s.requireUser(s.handleGetBudget)))
	mux.HandleFunc("PUT /api/budget", s.withCommon(s.requireUser(s.handleUpdateBudget)))

	mux.HandleFunc("GET /api/goals", s.withCommon(s.requireUser(s.handleListGoals)))
	mux.HandleFunc("POST /api/goals", s.withCommon(s.requireUser(s.handleCreateGoal)))
	mux.HandleFunc("PUT /api/goals/{id}", s.withCommon(s.requireUser(s.handleUpdateGoal)))
	mux.HandleFunc("DELETE /api/goals/{id}", s.withCommon(s.requireUser(s.handleDeleteGoal)))

	mux.HandleFunc("GET /api/recurring", s.withCommon(s.requireUser(s.handleListRecurring)))
	mux.HandleFunc("POST /api/recurring", s.withCommon(s.requireUser(s.handleCreateRecurring)))
	mux.HandleFunc("PUT /api/recurring/{id}", s.withCommon(s.requireUser(s.handleUpdateRecurring)))
	mux.HandleFunc("DELETE /api/recurring/{id}", s.withCommon(s.requireUser(s.handleDeleteRecurring)))

	mux.HandleFunc("GET /api/notifications", s.withCommon(s.requireUser(s.handleListNotifications)))
	mux.HandleFunc("POST /api/notifications/read", s.withCommon(s.requireUser(s.handleMarkNotificationsRead)))

	mux.HandleFunc("GET /api/profile", s.withCommon(s.requireUser(s.handleGetProfile)))
	mux.HandleFunc("PUT /api/profile", s.withCommon(s.requireUser(s.handleUpdateProfile)))

	mux.HandleFunc("POST /api/ocr", s.withCommon(s.requireUser(s.handleOCR)))
	mux.HandleFunc("POST /api/insights", s.withCommon(s.requireUser(s.handleInsights)))
	mux.HandleFunc("GET /api/export", s.withCommon(s.requireUser(s.handleExport)))

	return s
}

// Shutdown stops background goroutines before closing the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// withCommon wraps a handler with request logging, rate limiting on
// writes, and security headers.
func (s *Server) withCommon(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := extractClientIP(r)
		requestID := generateRequestID()

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP)

		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded",
				"client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Content-Security-Policy", "default-src 'none'")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", clientIP)
	}
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.storage.Ping(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
