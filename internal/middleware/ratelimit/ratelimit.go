// Package ratelimit throttles form submissions per client address.
package ratelimit

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"woordjes/internal/cache"
)

const (
	window = time.Minute
	// Clients idle this long are forgotten.
	idleTTL = 10 * time.Minute
)

type Config struct {
	RequestsPerMinute int
	// MaxClients bounds memory; the least recently seen client is dropped.
	MaxClients int
	// Methods limits which methods are counted. Empty counts everything.
	Methods []string
	Clock   func() time.Time
}

// DefaultConfig counts form submissions only; page views are free.
func DefaultConfig() Config {
	return Config{
		RequestsPerMinute: 60,
		MaxClients:        10000,
		Methods:           []string{http.MethodPost},
	}
}

// Limiter allows RequestsPerMinute per client in fixed one-minute windows.
type Limiter struct {
	mu      sync.Mutex
	perMin  int
	methods map[string]bool
	now     func() time.Time
	clients *cache.LRUCache[*bucket]
	hits    atomic.Int64
}

type bucket struct {
	opened time.Time
	count  int
}

func NewLimiter(cfg Config) *Limiter {
	def := DefaultConfig()
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = def.RequestsPerMinute
	}
	if cfg.MaxClients <= 0 {
		cfg.MaxClients = def.MaxClients
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	methods := make(map[string]bool, len(cfg.Methods))
	for _, m := range cfg.Methods {
		methods[m] = true
	}
	return &Limiter{
		perMin:  cfg.RequestsPerMinute,
		methods: methods,
		now:     cfg.Clock,
		clients: cache.NewLRUCache[*bucket](cfg.MaxClients, idleTTL, cache.Sliding(), cache.WithClock(cfg.Clock)),
	}
}

// Cache exposes the per-client windows so a cache.Manager can expire idle
// clients.
func (l *Limiter) Cache() cache.Reporter {
	return l.clients
}

// Allow counts one request from client and reports whether it still fits
// in the client's current window.
func (l *Limiter) Allow(client string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.clients.Get(client)
	if !ok || now.Sub(b.opened) >= window {
		l.clients.Set(client, &bucket{opened: now, count: 1})
		return true
	}
	b.count++
	if b.count > l.perMin {
		l.hits.Add(1)
		return false
	}
	return true
}

// RetryAfter is how long client must wait for its window to reset.
func (l *Limiter) RetryAfter(client string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.clients.Get(client)
	if !ok {
		return 0
	}
	return max(window-l.now().Sub(b.opened), 0)
}

func (l *Limiter) ActiveClients() int {
	return l.clients.Size()
}

type Metrics struct {
	TotalHits   int64
	ClientCount int64
}

func (l *Limiter) GetMetrics() Metrics {
	return Metrics{TotalHits: l.hits.Load(), ClientCount: int64(l.ActiveClients())}
}

func (l *Limiter) counts(method string) bool {
	return len(l.methods) == 0 || l.methods[method]
}

// Middleware rejects counted requests over the limit with a Retry-After
// header. onLimit writes the body; nil gives a plain 429.
func (l *Limiter) Middleware(clientIP func(*http.Request) string, onLimit http.HandlerFunc) func(http.Handler) http.Handler {
	if onLimit == nil {
		onLimit = func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
		}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.counts(r.Method) {
				next.ServeHTTP(w, r)
				return
			}
			ip := clientIP(r)
			if l.Allow(ip) {
				next.ServeHTTP(w, r)
				return
			}
			secs := max(int(math.Ceil(l.RetryAfter(ip).Seconds())), 1)
			w.Header().Set("Retry-After", strconv.Itoa(secs))
			onLimit(w, r)
		})
	}
}
