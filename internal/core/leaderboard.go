package core

import (
	"errors"
	"sort"
	"strings"
	"time"
)

const (
	MetricTotal Metric = "total"
	MetricBest  Metric = "best"

	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodAll   Period = "all"
)

// LeaderboardSize is the number of rows shown on leaderboard screens.
const LeaderboardSize = 10

type (
	// Metric selects how a player's sessions collapse into one value.
	Metric string

	// Period is the time window a leaderboard covers.
	Period string

	// SessionScore is the slice of a session a leaderboard needs.
	SessionScore struct {
		UserID   string
		Username string
		Score    int
	}

	LeaderboardEntry struct {
		Rank     int
		UserID   string
		Username string
		Value    int
		Games    int
	}
)

var ErrInvalidPeriod = errors.New("invalid leaderboard period")

func ParseMetric(s string) Metric {
	if Metric(strings.ToLower(strings.TrimSpace(s))) == MetricBest {
		return MetricBest
	}
	return MetricTotal
}

func ParsePeriod(s string) (Period, error) {
	switch p := Period(strings.ToLower(strings.TrimSpace(s))); p {
	case PeriodWeek, PeriodMonth, PeriodAll:
		return p, nil
	case "":
		return PeriodWeek, nil
	}
	return "", ErrInvalidPeriod
}

// Since returns the inclusive lower bound of the period containing now.
// The all-time period starts at the zero time.
func (p Period) Since(now time.Time) time.Time {
	switch p {
	case PeriodWeek:
		return WeekStart(now)
	case PeriodMonth:
		return MonthStart(now)
	default:
		return time.Time{}
	}
}

// RankSessions groups sessions by player, collapses scores with metric and
// returns at most limit entries ordered by value, then username. Players
// with equal values share a rank (dense ranking). limit <= 0 keeps all.
func RankSessions(rows []SessionScore, metric Metric, limit int) []LeaderboardEntry {
	byUser := make(map[string]*LeaderboardEntry)
	order := make([]string, 0)

	for _, r := range rows {
		e, ok := byUser[r.UserID]
		if !ok {
			e = &LeaderboardEntry{UserID: r.UserID, Username: r.Username, Value: r.Score}
			byUser[r.UserID] = e
			order = append(order, r.UserID)
			e.Games = 1
			continue
		}
		e.Games++
		switch metric {
		case MetricBest:
			if r.Score > e.Value {
				e.Value = r.Score
			}
		default:
			e.Value += r.Score
		}
	}

	entries := make([]LeaderboardEntry, 0, len(order))
	for _, id := range order {
		entries = append(entries, *byUser[id])
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Value != entries[j].Value {
			return entries[i].Value > entries[j].Value
		}
		return strings.ToLower(entries[i].Username) < strings.ToLower(entries[j].Username)
	})

	rank := 0
	for i := range entries {
		if i == 0 || entries[i].Value != entries[i-1].Value {
			rank++
		}
		entries[i].Rank = rank
	}

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}
