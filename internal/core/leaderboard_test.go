package core

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRankSessions_Total(t *testing.T) {
	rows := []SessionScore{
		{UserID: "a", Username: "anna", Score: 50},
		{UserID: "b", Username: "bram", Score: 80},
		{UserID: "a", Username: "anna", Score: 40},
		{UserID: "c", Username: "cees", Score: 90},
	}

	got := RankSessions(rows, MetricTotal, 10)
	require.Len(t, got, 3)

	assert.Equal(t, LeaderboardEntry{Rank: 1, UserID: "a", Username: "anna", Value: 90, Games: 2}, got[0])
	assert.Equal(t, LeaderboardEntry{Rank: 1, UserID: "c", Username: "cees", Value: 90, Games: 1}, got[1])
	assert.Equal(t, LeaderboardEntry{Rank: 2, UserID: "b", Username: "bram", Value: 80, Games: 1}, got[2])
}

func TestRankSessions_Best(t *testing.T) {
	rows := []SessionScore{
		{UserID: "a", Username: "anna", Score: 50},
		{UserID: "a", Username: "anna", Score: 70},
		{UserID: "b", Username: "bram", Score: 60},
	}

	got := RankSessions(rows, MetricBest, 10)
	require.Len(t, got, 2)
	assert.Equal(t, "anna", got[0].Username)
	assert.Equal(t, 70, got[0].Value)
	assert.Equal(t, 2, got[0].Games)
	assert.Equal(t, 60, got[1].Value)
}

func TestRankSessions_Limit(t *testing.T) {
	var rows []SessionScore
	for i := 0; i < 25; i++ {
		rows = append(rows, SessionScore{UserID: fmt.Sprint(i), Username: fmt.Sprintf("user%02d", i), Score: i})
	}

	got := RankSessions(rows, MetricTotal, LeaderboardSize)
	require.Len(t, got, LeaderboardSize)
	assert.Equal(t, 24, got[0].Value)
	assert.Equal(t, 15, got[9].Value)

	assert.Len(t, RankSessions(rows, MetricTotal, 0), 25)
	assert.Empty(t, RankSessions(nil, MetricTotal, 10))
}

func TestParsePeriod(t *testing.T) {
	p, err := ParsePeriod("")
	require.NoError(t, err)
	assert.Equal(t, PeriodWeek, p)

	p, err = ParsePeriod("ALL")
	require.NoError(t, err)
	assert.Equal(t, PeriodAll, p)
	assert.True(t, p.Since(time.Now()).IsZero())

	_, err = ParsePeriod("year")
	assert.ErrorIs(t, err, ErrInvalidPeriod)

	assert.Equal(t, MetricBest, ParseMetric("best"))
	assert.Equal(t, MetricTotal, ParseMetric("whatever"))
}

func TestPeriods(t *testing.T) {
	// Wednesday 2025-03-12 15:04 UTC
	now := time.Date(2025, 3, 12, 15, 4, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), WeekStart(now))
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), MonthStart(now))

	sunday := time.Date(2025, 3, 16, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), WeekStart(sunday))

	assert.Equal(t, time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC), PreviousPeriod(Weekly, now))
	assert.Equal(t, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), PreviousPeriod(Monthly, now))

	start, end := PeriodBounds(Monthly, time.Date(2025, 2, 14, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), end)
}

func TestAwardMedals(t *testing.T) {
	period := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	entries := []LeaderboardEntry{
		{Rank: 1, UserID: "a", Value: 300},
		{Rank: 2, UserID: "b", Value: 200},
		{Rank: 3, UserID: "c", Value: 100},
		{Rank: 4, UserID: "d", Value: 50},
	}

	medals := AwardMedals(Weekly, period, entries)
	require.Len(t, medals, 3)
	assert.Equal(t, Gold, medals[0].Type)
	assert.Equal(t, "a", medals[0].UserID)
	assert.Equal(t, Silver, medals[1].Type)
	assert.Equal(t, Bronze, medals[2].Type)
	assert.Equal(t, period, medals[2].PeriodStart)

	zeroes := []LeaderboardEntry{{UserID: "a", Value: 10}, {UserID: "b", Value: 0}}
	assert.Len(t, AwardMedals(Monthly, period, zeroes), 1)

	counts := CountMedals(medals)
	assert.Equal(t, MedalCounts{Gold: 1, Silver: 1, Bronze: 1}, counts)
	assert.Equal(t, 3, counts.Total())
}
