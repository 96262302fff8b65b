// Package trace gives every request an id and logs its start and end.
package trace

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"woordjes/internal/log"
)

type requestIDKey struct{}

// Metrics are totals since start.
type Metrics struct {
	TotalRequests  int64
	ServerErrors   int64
	ClientErrors   int64
	TotalLatencyUs int64
}

func (m Metrics) AverageLatency() time.Duration {
	if m.TotalRequests == 0 {
		return 0
	}
	return time.Duration(m.TotalLatencyUs/m.TotalRequests) * time.Microsecond
}

type Middleware struct {
	clientIP func(*http.Request) string
	logger   *log.StructuredLogger

	requests, serverErrs, clientErrs, latencyUs atomic.Int64
}

// NewMiddleware logs through logger under the trace component. clientIP
// may be nil.
func NewMiddleware(logger *log.Logger, clientIP func(*http.Request) string) *Middleware {
	if clientIP == nil {
		clientIP = func(*http.Request) string { return "" }
	}
	return &Middleware{
		clientIP: clientIP,
		logger:   log.NewStructuredLogger(logger.WithComponent(log.ComponentTrace)),
	}
}

// Middleware reuses the id chi's RequestID assigned, or mints one, and
// echoes it in X-Request-ID.
func (m *Middleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ip := m.clientIP(r)

		id := chimw.GetReqID(r.Context())
		if id == "" {
			id = NewRequestID()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, id)
		r = r.WithContext(ctx)
		w.Header().Set("X-Request-ID", id)

		m.logger.LogHTTPStart(ctx, r, ip)

		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)
		m.observe(status, elapsed)
		m.logger.LogHTTPEnd(ctx, r, status, elapsed.Milliseconds(), ip)
	})
}

func (m *Middleware) observe(status int, elapsed time.Duration) {
	m.requests.Add(1)
	m.latencyUs.Add(elapsed.Microseconds())
	switch {
	case status >= 500:
		m.serverErrs.Add(1)
	case status >= 400:
		m.clientErrs.Add(1)
	}
}

// NewRequestID returns a random id prefixed with req_.
func NewRequestID() string {
	return "req_" + uuid.NewString()
}

// GetRequestID returns the id set by Middleware, falling back to chi's.
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return chimw.GetReqID(ctx)
}

func (m *Middleware) GetMetrics() Metrics {
	return Metrics{
		TotalRequests:  m.requests.Load(),
		ServerErrors:   m.serverErrs.Load(),
		ClientErrors:   m.clientErrs.Load(),
		TotalLatencyUs: m.latencyUs.Load(),
	}
}
