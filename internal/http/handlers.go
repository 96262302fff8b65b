package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady checks the database and reports cache and limiter state.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status, code := "ready", http.StatusOK
	checks := map[string]any{"templates": "ok"}

	switch {
	case s.ready == nil:
		checks["database"] = "not_configured"
	default:
		if err := s.ready(ctx); err != nil {
			checks["database"] = fmt.Sprintf("failed: %v", err)
			status, code = "not_ready", http.StatusServiceUnavailable
		} else {
			checks["database"] = "ok"
		}
	}

	checks["games"] = map[string]any{"active": s.games.ActiveGames()}
	checks["rate_limiter"] = map[string]any{"active_clients": s.limiter.ActiveClients()}
	if s.caches != nil {
		sizes := map[string]int{}
		for name, st := range s.caches.Stats() {
			sizes[name] = st.Size
		}
		checks["cache_entries"] = sizes
	}

	writeJSON(w, code, map[string]any{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics writes counters in the Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	traceMetrics := s.tracer.GetMetrics()
	limitMetrics := s.limiter.GetMetrics()
	securityMetrics := s.detector.GetMetrics()

	metric := func(name, kind, help string, value any) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %v\n\n", name, help, name, kind, name, value)
	}

	metric("http_requests_total", "counter", "Total number of HTTP requests", traceMetrics.TotalRequests)
	fmt.Fprintf(w, "# HELP http_errors_total HTTP responses with an error status\n# TYPE http_errors_total counter\n")
	fmt.Fprintf(w, "http_errors_total{class=\"4xx\"} %d\n", traceMetrics.ClientErrors)
	fmt.Fprintf(w, "http_errors_total{class=\"5xx\"} %d\n\n", traceMetrics.ServerErrors)
	metric("http_request_duration_avg_seconds", "gauge", "Mean request duration", traceMetrics.AverageLatency().Seconds())
	metric("games_active", "gauge", "Games currently held in memory", s.games.ActiveGames())
	metric("rate_limit_hits_total", "counter", "Requests rejected by the rate limiter", limitMetrics.TotalHits)
	metric("rate_limit_clients", "gauge", "Clients tracked by the rate limiter", limitMetrics.ClientCount)
	metric("suspicious_requests_total", "counter", "Requests flagged as suspicious", securityMetrics.SuspiciousRequests)
	metric("uptime_seconds", "gauge", "Application uptime in seconds", fmt.Sprintf("%.0f", time.Since(s.started).Seconds()))

	if s.caches == nil {
		return
	}
	stats := s.caches.Stats()
	fmt.Fprintf(w, "# HELP cache_requests_total Cache lookups by result\n# TYPE cache_requests_total counter\n")
	for _, name := range s.caches.Names() {
		st, ok := stats[name]
		if !ok {
			continue
		}
		fmt.Fprintf(w, "cache_requests_total{cache=%q,result=\"hit\"} %d\n", name, st.Hits)
		fmt.Fprintf(w, "cache_requests_total{cache=%q,result=\"miss\"} %d\n", name, st.Misses)
	}
	fmt.Fprintf(w, "\n# HELP cache_entries Entries currently cached\n# TYPE cache_entries gauge\n")
	for _, name := range s.caches.Names() {
		if st, ok := stats[name]; ok {
			fmt.Fprintf(w, "cache_entries{cache=%q} %d\n", name, st.Size)
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
