// Package cache provides the in-process LRU+TTL cache used for in-flight
// games and leaderboard results, and a Manager that expires registered
// caches in the background.
package cache

import (
	"sort"
	"sync"
	"time"

	"woordjes/internal/log"
)

// Cleaner is anything the Manager can expire.
type Cleaner interface {
	CleanExpired() int
}

// Reporter is a Cleaner that also reports usage.
type Reporter interface {
	Cleaner
	Stats() Stats
}

// Manager expires registered caches on an interval.
type Manager struct {
	mu     sync.Mutex
	caches map[string]Cleaner
	logger *log.Logger

	stop     chan struct{}
	done     chan struct{}
	start    sync.Once
	stopOnce sync.Once
}

// NewManager creates a manager. logger may be nil.
func NewManager(logger *log.Logger) *Manager {
	return &Manager{
		caches: make(map[string]Cleaner),
		logger: logger,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Register adds c under name, replacing any cache of the same name.
func (m *Manager) Register(name string, c Cleaner) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.caches[name] = c
}

// StartCleanup runs CleanNow every interval until Stop. Later calls are
// no-ops.
func (m *Manager) StartCleanup(interval time.Duration) {
	m.start.Do(func() { go m.loop(interval) })
}

// CleanNow runs one pass over every cache and returns the entries dropped.
func (m *Manager) CleanNow() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, c := range m.caches {
		total += c.CleanExpired()
	}
	return total
}

// Stats returns usage for every registered Reporter, keyed by name.
func (m *Manager) Stats() map[string]Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]Stats, len(m.caches))
	for name, c := range m.caches {
		if r, ok := c.(Reporter); ok {
			out[name] = r.Stats()
		}
	}
	return out
}

// Names lists registered caches in order.
func (m *Manager) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.caches))
	for name := range m.caches {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (m *Manager) loop(interval time.Duration) {
	defer close(m.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := m.CleanNow(); n > 0 && m.logger != nil {
				m.logger.Debug("Expired cache entries removed", "count", n)
			}
		case <-m.stop:
			return
		}
	}
}

// Stop ends the cleanup loop and waits for it. Safe to call more than once
// and without StartCleanup.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stop)
		started := true
		m.start.Do(func() { started = false })
		if started {
			<-m.done
		}
	})
}
