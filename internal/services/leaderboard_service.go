package services

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"woordjes/internal/cache"
	"woordjes/internal/core"
	"woordjes/internal/log"
)

const (
	leaderboardCacheTTL  = 30 * time.Second
	leaderboardCacheSize = 64
)

// LeaderboardService ranks players over a period. Results are cached
// briefly and dropped whenever a game finishes.
type LeaderboardService struct {
	scores SessionScoreSource
	cache  *cache.LRUCache[[]core.LeaderboardEntry]
	logger *log.Logger
	now    func() time.Time
}

func NewLeaderboardService(scores SessionScoreSource, logger *log.Logger) *LeaderboardService {
	return &LeaderboardService{
		scores: scores,
		cache:  cache.NewLRUCache[[]core.LeaderboardEntry](leaderboardCacheSize, leaderboardCacheTTL),
		logger: componentLogger(logger, log.ComponentLeaderboard),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Cache exposes the result cache for periodic expiry.
func (s *LeaderboardService) Cache() cache.Reporter { return s.cache }

// Top returns up to limit ranked players for period. limit <= 0 uses
// core.LeaderboardSize.
func (s *LeaderboardService) Top(ctx context.Context, period core.Period, metric core.Metric, limit int) ([]core.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = core.LeaderboardSize
	}
	key := fmt.Sprintf("%s:%s:%d", period, metric, limit)
	if entries, ok := s.cache.Get(key); ok {
		return entries, nil
	}

	now := s.now()
	rows, err := s.scores.SessionScoresSince(ctx, period.Since(now), now.Add(time.Second))
	if err != nil {
		return nil, newError(err, http.StatusInternalServerError, "Could not load the leaderboard")
	}

	entries := core.RankSessions(rows, metric, limit)
	s.cache.Set(key, entries)
	s.logger.DebugContext(ctx, "Leaderboard computed",
		"period", string(period),
		"metric", string(metric),
		"sessions", len(rows),
		"entries", len(entries))
	return entries, nil
}

// Invalidate drops every cached leaderboard.
func (s *LeaderboardService) Invalidate() {
	s.cache.Clear()
}
