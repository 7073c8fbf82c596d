package http

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"anggaran/internal/auth"
	"anggaran/internal/cache"
	"anggaran/internal/core"
	"anggaran/internal/export"
	"anggaran/internal/importer"
	"anggaran/internal/log"
	"anggaran/internal/middleware/ratelimit"
	"anggaran/internal/middleware/security"
	"anggaran/internal/middleware/trace"
	"anggaran/internal/services"
	"anggaran/internal/storage"
)

// Budget is the service surface the API drives.
// *services.BudgetService implements it.
type Budget interface {
	List(ctx context.Context, sel core.FilterSelection) ([]storage.StoredItem, error)
	Get(ctx context.Context, id string) (storage.StoredItem, error)
	Create(ctx context.Context, role core.Role, fields core.ItemFields) (storage.StoredItem, error)
	Edit(ctx context.Context, id string, role core.Role, fields core.ItemFields) (storage.StoredItem, error)
	Approve(ctx context.Context, id string, role core.Role) (storage.StoredItem, error)
	Reject(ctx context.Context, id string, role core.Role) (storage.StoredItem, error)
	Delete(ctx context.Context, id string, role core.Role) (storage.StoredItem, error)
	Summary(ctx context.Context, dim core.Dimension, sel core.FilterSelection) (services.SummaryReport, error)
	GetRPD(ctx context.Context, id string) (core.RPDItem, error)
	UpdateRPD(ctx context.Context, id string, months map[time.Month]int64) (core.RPDItem, error)
	Import(ctx context.Context, role core.Role, grid importer.Grid, scope core.FilterSelection) (services.ImportReport, error)
	ExportTables(ctx context.Context) ([]export.Table, error)
	Ping(ctx context.Context) error
}

var _ Budget = (*services.BudgetService)(nil)

type Deps struct {
	Budget   Budget
	Accounts auth.Authenticator
	Tokens   *auth.TokenIssuer
	Logger   *log.Logger

	// CacheStats reports the summary cache on /metrics. Optional.
	CacheStats func() cache.Stats

	// RequestsPerMinute bounds mutating requests per client. Zero uses the limiter default.
	RequestsPerMinute int
	TrustedProxies    []string
}

// Server wraps http.Server with the API routes and middleware.
type Server struct {
	http.Server

	budget   Budget
	accounts auth.Authenticator
	tokens   *auth.TokenIssuer
	logger   *log.Logger

	rateLimiter *ratelimit.Limiter
	tracer      *trace.Middleware
	ips         *security.IPResolver
	cacheStats  func() cache.Stats
	started     time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, deps Deps) (*Server, error) {
	ips, err := security.NewIPResolver(deps.TrustedProxies...)
	if err != nil {
		return nil, err
	}
	logger := deps.Logger
	if logger == nil {
		logger = log.Discard()
	}

	s := &Server{
		budget:      deps.Budget,
		accounts:    deps.Accounts,
		tokens:      deps.Tokens,
		logger:      logger.WithComponent(log.ComponentHTTP),
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: deps.RequestsPerMinute}),
		ips:         ips,
		cacheStats:  deps.CacheStats,
		started:     time.Now(),
	}
	s.tracer = trace.NewMiddleware(logger, ips.ClientIP)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)
	mux.HandleFunc("POST /api/login", s.handleLogin)

	mux.Handle("GET /api/items", s.authed(s.handleListItems))
	mux.Handle("POST /api/items", s.authed(s.handleCreateItem))
	mux.Handle("GET /api/items/{id}", s.authed(s.handleGetItem))
	mux.Handle("PATCH /api/items/{id}", s.authed(s.handleEditItem))
	mux.Handle("DELETE /api/items/{id}", s.authed(s.handleDeleteItem))
	mux.Handle("POST /api/items/{id}/approve", s.authed(s.handleApproveItem))
	mux.Handle("POST /api/items/{id}/reject", s.authed(s.handleRejectItem))
	mux.Handle("GET /api/summary", s.authed(s.handleSummary))
	mux.Handle("GET /api/rpd/{id}", s.authed(s.handleGetRPD))
	mux.Handle("PUT /api/rpd/{id}", s.authed(s.handleUpdateRPD))
	mux.Handle("POST /api/import", s.authed(s.handleImport))
	mux.Handle("GET /api/export", s.authed(s.handleExport))

	limited := s.rateLimiter.Middleware(ips.ClientIP, func(w http.ResponseWriter, r *http.Request) {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
			log.FieldClientIP, ips.ClientIP(r), log.FieldMethod, r.Method, log.FieldPath, r.URL.Path)
		ErrorResponse(http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.").Write(w)
	}, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.tracer.Middleware(security.Headers(limited(mux))),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

// Shutdown stops the limiter cleanup and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.budget.Ping(ctx); err != nil {
		s.logger.WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
		http.Error(w, "storage unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// handleMetrics writes request, limiter and cache counters in the
// Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	traceMetrics := s.tracer.GetMetrics()
	limitMetrics := s.rateLimiter.GetMetrics()

	fmt.Fprintf(w, "# HELP http_requests_total Total number of HTTP requests\n")
	fmt.Fprintf(w, "# TYPE http_requests_total counter\n")
	fmt.Fprintf(w, "http_requests_total %d\n\n", traceMetrics.TotalRequests)

	fmt.Fprintf(w, "# HELP rate_limit_hits_total Requests rejected by the rate limiter\n")
	fmt.Fprintf(w, "# TYPE rate_limit_hits_total counter\n")
	fmt.Fprintf(w, "rate_limit_hits_total %d\n\n", limitMetrics.LimitedRequests)

	fmt.Fprintf(w, "# HELP rate_limit_clients Clients tracked by the rate limiter\n")
	fmt.Fprintf(w, "# TYPE rate_limit_clients gauge\n")
	fmt.Fprintf(w, "rate_limit_clients %d\n\n", limitMetrics.ClientCount)

	if s.cacheStats != nil {
		st := s.cacheStats()
		fmt.Fprintf(w, "# HELP summary_cache_hits_total Summary cache hits\n")
		fmt.Fprintf(w, "# TYPE summary_cache_hits_total counter\n")
		fmt.Fprintf(w, "summary_cache_hits_total %d\n\n", st.Hits)
		fmt.Fprintf(w, "# HELP summary_cache_misses_total Summary cache misses\n")
		fmt.Fprintf(w, "# TYPE summary_cache_misses_total counter\n")
		fmt.Fprintf(w, "summary_cache_misses_total %d\n\n", st.Misses)
		fmt.Fprintf(w, "# HELP summary_cache_entries Summary cache entries\n")
		fmt.Fprintf(w, "# TYPE summary_cache_entries gauge\n")
		fmt.Fprintf(w, "summary_cache_entries %d\n\n", st.Size)
	}

	fmt.Fprintf(w, "# HELP uptime_seconds Time since the server was configured\n")
	fmt.Fprintf(w, "# TYPE uptime_seconds gauge\n")
	fmt.Fprintf(w, "uptime_seconds %.0f\n", time.Since(s.started).Seconds())
}
