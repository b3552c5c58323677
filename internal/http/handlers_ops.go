package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

const readyTimeout = 5 * time.Second

// appMetrics counts application events for /metrics.
type appMetrics struct {
	uptime          time.Time
	refreshes       int64
	refreshFailures int64
	loadFailures    int64
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    "ok",
		"timestamp": s.now().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.uptime).Round(time.Second).String(),
	})
}

// handleReady checks that templates are parsed and the data source answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]interface{})

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if years, err := s.data.Years(ctx); err != nil {
		checks["data_source"] = fmt.Sprintf("failed: %v", err)
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["data_source"] = map[string]interface{}{"status": "ok", "years": len(years)}
	}

	stats := s.data.InvoiceCacheStats()
	checks["cache"] = map[string]interface{}{
		"invoice_years": stats.Size,
		"status":        "ok",
	}
	if last := s.data.LastRefresh(); !last.IsZero() {
		checks["last_refresh"] = last.Format(time.RFC3339)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    status,
		"timestamp": s.now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	traceMetrics := s.traceMiddleware.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	securityMetrics := s.securityDetector.GetMetrics()
	cacheStats := s.data.InvoiceCacheStats()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	write := func(name, kind, help string, value any) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %v\n\n", name, help, name, kind, name, value)
	}
	write("http_requests_total", "counter", "Total number of HTTP requests", traceMetrics.TotalRequests)
	write("http_client_errors_total", "counter", "Responses with a 4xx status", traceMetrics.ClientErrors)
	write("http_server_errors_total", "counter", "Responses with a 5xx status", traceMetrics.ServerErrors)
	write("http_response_time_avg_microseconds", "gauge", "Average response time", traceMetrics.AverageResponseTime)
	write("refresh_requests_total", "counter", "Refresh actions received", atomic.LoadInt64(&s.appMetrics.refreshes))
	write("refresh_failures_total", "counter", "Refresh actions that failed", atomic.LoadInt64(&s.appMetrics.refreshFailures))
	write("data_load_failures_total", "counter", "Views rendered in the empty state after a load failure", atomic.LoadInt64(&s.appMetrics.loadFailures))
	write("invoice_cache_hits_total", "counter", "Invoice cache hits", cacheStats.Hits)
	write("invoice_cache_misses_total", "counter", "Invoice cache misses", cacheStats.Misses)
	write("invoice_cache_evictions_total", "counter", "Invoice cache evictions", cacheStats.Evictions)
	write("invoice_cache_entries", "gauge", "Invoice years held in cache", cacheStats.Size)
	write("rate_limit_hits_total", "counter", "Total rate limit hits", rateLimitMetrics.TotalHits)
	write("active_rate_limit_clients", "gauge", "Currently tracked rate limit clients", rateLimitMetrics.ClientCount)
	write("suspicious_requests_total", "counter", "Total suspicious requests detected", securityMetrics.SuspiciousRequests)
	write("uptime_seconds", "gauge", "Application uptime in seconds", int64(time.Since(s.appMetrics.uptime).Seconds()))
}
