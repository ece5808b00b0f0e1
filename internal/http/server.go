// Package http exposes the JSON API over transactions, recurrence rules,
// reports, and categories.
package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"tally/internal/backend"
	"tally/internal/cache"
	"tally/internal/core"
	"tally/internal/services"
)

type ctxKey string

const requestIDKey ctxKey = "request_id"

const reportCacheTTL = 5 * time.Minute

// Server wires the HTTP handlers to the storage backend and services.
type Server struct {
	http.Server

	backend      backend.Backend
	transactions *services.TransactionService
	recurring    *services.RecurringService

	rateLimiter *rateLimiter
	metrics     *securityMetrics

	monthlyCache  *cache.LRUCache[core.MonthlyReport]
	categoryCache *cache.LRUCache[[]core.CategoryTotal]
	weekdayCache  *cache.LRUCache[[]core.WeekdayTotal]
	cacheManager  *cache.Manager

	shutdownOnce sync.Once
}

func NewServer(addr string, b backend.Backend, transactions *services.TransactionService, recurring *services.RecurringService) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		backend:       b,
		transactions:  transactions,
		recurring:     recurring,
		rateLimiter:   newRateLimiter(),
		metrics:       &securityMetrics{},
		monthlyCache:  cache.NewLRUCache[core.MonthlyReport](100, reportCacheTTL),
		categoryCache: cache.NewLRUCache[[]core.CategoryTotal](100, reportCacheTTL),
		weekdayCache:  cache.NewLRUCache[[]core.WeekdayTotal](100, reportCacheTTL),
		cacheManager:  cache.NewManager(),
	}

	s.cacheManager.Register(s.monthlyCache)
	s.cacheManager.Register(s.categoryCache)
	s.cacheManager.Register(s.weekdayCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)

	mux.HandleFunc("/transactions", s.withSecurityHeaders(s.handleTransactions))
	mux.HandleFunc("/transactions/export", s.withSecurityHeaders(s.handleExportCSV))
	mux.HandleFunc("/transactions/import", s.withSecurityHeaders(s.handleImportCSV))
	mux.HandleFunc("/transactions/", s.withSecurityHeaders(s.handleTransactionByID))
	mux.HandleFunc("/rules", s.withSecurityHeaders(s.handleRules))
	mux.HandleFunc("/rules/", s.withSecurityHeaders(s.handleRuleByID))
	mux.HandleFunc("/reports/monthly", s.withSecurityHeaders(s.handleMonthlyReport))
	mux.HandleFunc("/reports/categories", s.withSecurityHeaders(s.handleCategoryReport))
	mux.HandleFunc("/reports/weekdays", s.withSecurityHeaders(s.handleWeekdayReport))
	mux.HandleFunc("/categories", s.withSecurityHeaders(s.handleCategories))

	return s
}

// withSecurityHeaders logs each request, applies rate limiting to
// mutating methods, and sets defensive response headers.
func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
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
			"client_ip", clientIP,
			"user_agent", r.UserAgent())

		if detectSuspiciousRequest(r, s.metrics) {
			slog.WarnContext(ctx, "Suspicious request detected",
				"request_id", requestID,
				"method", r.Method,
				"url", r.URL.String(),
				"client_ip", clientIP,
				"user_agent", r.UserAgent())
		}

		if isMutating(r.Method) && !s.rateLimiter.allow(clientIP, s.metrics) {
			slog.WarnContext(ctx, "Rate limit exceeded",
				"request_id", requestID,
				"client_ip", clientIP)
			w.Header().Set("Retry-After", "60")
			respondJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded"})
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(wrapped, r)

		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", wrapped.statusCode,
			"duration_ms", time.Since(start).Milliseconds())
	}
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodDelete:
		return true
	}
	return false
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "ok")
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.backend.Ping(ctx); err != nil {
		slog.ErrorContext(ctx, "Readiness check failed", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, "not ready")
		return
	}

	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "ready")
}

func reportCacheKey(year, month int) string {
	return fmt.Sprintf("%d-%d", year, month)
}

// invalidateReports drops cached reports for the months the given dates
// fall in.
func (s *Server) invalidateReports(dates ...core.Date) {
	for _, d := range dates {
		key := reportCacheKey(d.Year(), d.Month())
		s.monthlyCache.Delete(key)
		s.categoryCache.Delete(key)
		s.weekdayCache.Delete(key)
	}
}

// invalidateAllReports clears every cached report. Used after bulk
// writes that may span many months.
func (s *Server) invalidateAllReports() {
	s.monthlyCache.Clear()
	s.categoryCache.Clear()
	s.weekdayCache.Clear()
}

// Shutdown stops background maintenance and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
