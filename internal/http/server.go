package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"chitbook/internal/cache"
	"chitbook/internal/core"
	"chitbook/internal/services"
)

type Server struct {
	http.Server
	loans       *services.LoanService
	funds       *services.ChitFundService
	reports     *services.ReportService
	rateLimiter *rateLimiter

	// Aggregated metrics per window, invalidated on any mutation.
	metricsCache *cache.LRUCache[core.FinancialMetrics]
	cacheManager *cache.Manager

	shutdownOnce sync.Once
}

// NewServer configures routes and caches, returning a ready-to-run server.
func NewServer(addr string, loans *services.LoanService, funds *services.ChitFundService, reports *services.ReportService) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		loans:        loans,
		funds:        funds,
		reports:      reports,
		rateLimiter:  newRateLimiter(),
		metricsCache: cache.NewLRUCache[core.FinancialMetrics](100, 5*time.Minute),
		cacheManager: cache.NewManager(),
	}

	s.cacheManager.Register(s.metricsCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("POST /loans", s.withRequestContext(s.handleCreateLoan))
	mux.HandleFunc("GET /loans", s.withRequestContext(s.handleListLoans))
	mux.HandleFunc("GET /loans/{id}", s.withRequestContext(s.handleGetLoan))
	mux.HandleFunc("GET /loans/{id}/repayments", s.withRequestContext(s.handleListRepayments))
	mux.HandleFunc("POST /loans/{id}/repayments", s.withRequestContext(s.handleRecordRepayment))
	mux.HandleFunc("DELETE /repayments/{id}", s.withRequestContext(s.handleDeleteRepayment))

	mux.HandleFunc("POST /chitfunds", s.withRequestContext(s.handleCreateChitFund))
	mux.HandleFunc("GET /chitfunds", s.withRequestContext(s.handleListChitFunds))
	mux.HandleFunc("GET /chitfunds/{id}", s.withRequestContext(s.handleGetChitFund))
	mux.HandleFunc("GET /chitfunds/{id}/contributions", s.withRequestContext(s.handleListContributions))
	mux.HandleFunc("POST /chitfunds/{id}/contributions", s.withRequestContext(s.handleRecordContribution))
	mux.HandleFunc("GET /chitfunds/{id}/auctions", s.withRequestContext(s.handleListAuctions))
	mux.HandleFunc("POST /chitfunds/{id}/auctions", s.withRequestContext(s.handleRecordAuction))
	mux.HandleFunc("GET /chitfunds/{id}/profit", s.withRequestContext(s.handleChitFundProfit))

	mux.HandleFunc("GET /dashboard/metrics", s.withRequestContext(s.handleDashboardMetrics))
	mux.HandleFunc("POST /reports", s.withRequestContext(s.handleRequestReport))

	return s
}

// withRequestContext adds rate limiting, a request ID, and request logging.
func (s *Server) withRequestContext(next http.HandlerFunc) http.HandlerFunc {
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
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		r = r.WithContext(ctx)

		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded",
				"client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")

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

// invalidateMetrics drops every cached window after a mutation.
func (s *Server) invalidateMetrics() {
	s.metricsCache.Clear()
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
