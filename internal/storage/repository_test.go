package storage

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"woordjes/internal/core"
	"woordjes/internal/log"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	logger := log.New(log.Config{Output: io.Discard})
	repo, err := Open(context.Background(), Options{
		Dialect:    DialectSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "woordjes.db"),
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func mustProfile(t *testing.T, repo *Repository, username string) core.Profile {
	t.Helper()
	p, err := repo.CreateProfile(context.Background(), core.Profile{
		ID:           uuid.NewString(),
		Email:        username + "@example.nl",
		Username:     username,
		PasswordHash: "hash",
	})
	require.NoError(t, err)
	return p
}

func mustWord(t *testing.T, repo *Repository, english, dutch, category string, difficulty int) core.Word {
	t.Helper()
	w, err := repo.InsertWord(context.Background(), core.Word{
		English: english, Dutch: dutch, Category: category, Difficulty: difficulty,
	})
	require.NoError(t, err)
	return w
}

func TestOpen_MigratesTwice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "twice.db")
	logger := log.New(log.Config{Output: io.Discard})

	for i := 0; i < 2; i++ {
		repo, err := Open(context.Background(), Options{Dialect: DialectSQLite, SQLitePath: path}, logger)
		require.NoError(t, err)
		require.NoError(t, repo.Ping(context.Background()))
		assert.Equal(t, SchemaVersion{Version: 2}, repo.Schema())
		assert.Equal(t, "2", repo.Schema().String())
		require.NoError(t, repo.Close())
	}
}

func TestProfiles(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	anna := mustProfile(t, repo, "anna")

	got, err := repo.GetProfileByEmail(ctx, "  ANNA@example.nl ")
	require.NoError(t, err)
	assert.Equal(t, anna.ID, got.ID)
	assert.Equal(t, "anna", got.Username)
	assert.False(t, got.CreatedAt.IsZero())

	_, err = repo.CreateProfile(ctx, core.Profile{ID: uuid.NewString(), Email: "anna@example.nl", Username: "other", PasswordHash: "x"})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = repo.CreateProfile(ctx, core.Profile{ID: uuid.NewString(), Email: "a2@example.nl", Username: "ANNA", PasswordHash: "x"})
	assert.ErrorIs(t, err, ErrConflict, "usernames are unique regardless of case")

	require.NoError(t, repo.UpdateUsername(ctx, anna.ID, "anna_b"))
	got, err = repo.GetProfile(ctx, anna.ID)
	require.NoError(t, err)
	assert.Equal(t, "anna_b", got.Username)

	assert.ErrorIs(t, repo.UpdateUsername(ctx, uuid.NewString(), "ghost"), ErrNotFound)

	_, err = repo.GetProfile(ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWords(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	fiets := mustWord(t, repo, "bicycle", "de fiets", "transport", 1)
	mustWord(t, repo, "train", "de trein", "transport", 2)
	mustWord(t, repo, "apple", "de appel", "food", 1)

	_, err := repo.InsertWord(ctx, core.Word{English: "bicycle", Dutch: "de fiets", Category: "x", Difficulty: 1})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = repo.InsertWord(ctx, core.Word{English: "bad", Dutch: "slecht", Category: "x", Difficulty: 7})
	assert.ErrorIs(t, err, core.ErrInvalidDifficulty)

	updated, created, err := repo.UpsertWord(ctx, core.Word{
		English: "bicycle", Dutch: "de fiets", Category: "transport", Difficulty: 2, ExampleDutch: "Ik fiets naar huis.",
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, fiets.ID, updated.ID)

	got, err := repo.GetWord(ctx, fiets.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Difficulty)
	assert.Equal(t, "Ik fiets naar huis.", got.ExampleDutch)

	_, created, err = repo.UpsertWord(ctx, core.Word{English: "pear", Dutch: "de peer", Category: "food", Difficulty: 1})
	require.NoError(t, err)
	assert.True(t, created)

	n, err := repo.CountWords(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	cats, err := repo.ListCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"food", "transport"}, cats)

	food, err := repo.ListWords(ctx, WordFilter{Category: "food"})
	require.NoError(t, err)
	require.Len(t, food, 2)
	assert.Equal(t, "apple", food[0].English)

	easy, err := repo.ListWords(ctx, WordFilter{MaxDifficulty: 1})
	require.NoError(t, err)
	assert.Len(t, easy, 2)

	page, err := repo.ListWords(ctx, WordFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "pear", page[0].English)

	_, err = repo.GetWord(ctx, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRecordAnswerAndProgress(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	anna := mustProfile(t, repo, "anna")
	fiets := mustWord(t, repo, "bicycle", "de fiets", "transport", 1)
	trein := mustWord(t, repo, "train", "de trein", "transport", 1)
	mustWord(t, repo, "apple", "de appel", "food", 1)

	_, err := repo.GetProgress(ctx, anna.ID, fiets.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	at := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	var p core.Progress
	for i := 0; i < core.MasteryThreshold; i++ {
		p, err = repo.RecordAnswer(ctx, anna.ID, fiets.ID, true, at)
		require.NoError(t, err)
	}
	assert.True(t, p.Mastered)

	p, err = repo.RecordAnswer(ctx, anna.ID, fiets.ID, false, at.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, p.Mastered)

	stored, err := repo.GetProgress(ctx, anna.ID, fiets.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, stored.CorrectCount)
	assert.Equal(t, 1, stored.IncorrectCount)
	assert.True(t, stored.Mastered)
	assert.True(t, stored.LastPracticedAt.Equal(at.Add(time.Hour)))

	_, err = repo.RecordAnswer(ctx, anna.ID, trein.ID, false, at)
	require.NoError(t, err)

	mastered, err := repo.CountMastered(ctx, anna.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, mastered)

	all, err := repo.ListProgress(ctx, anna.ID)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, 1, all[trein.ID].IncorrectCount)

	stats, err := repo.CategoryStats(ctx, anna.ID)
	require.NoError(t, err)
	assert.Equal(t, []core.CategoryStat{
		{Category: "food", Total: 1, Mastered: 0, Practice: 0},
		{Category: "transport", Total: 2, Mastered: 1, Practice: 2},
	}, stats)

	_, err = repo.RecordAnswer(ctx, anna.ID, 9999, true, at)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRecordAnswer_ConcurrentAnswersAllCount(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	anna := mustProfile(t, repo, "anna")
	fiets := mustWord(t, repo, "bicycle", "de fiets", "transport", 1)
	at := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	const right, wrong = 12, 5
	var g errgroup.Group
	for i := 0; i < right+wrong; i++ {
		correct := i < right
		g.Go(func() error {
			_, err := repo.RecordAnswer(ctx, anna.ID, fiets.ID, correct, at)
			return err
		})
	}
	require.NoError(t, g.Wait())

	p, err := repo.GetProgress(ctx, anna.ID, fiets.ID)
	require.NoError(t, err)
	assert.Equal(t, right, p.CorrectCount)
	assert.Equal(t, wrong, p.IncorrectCount)
	assert.True(t, p.Mastered)
}

func TestRecordAnswer_ReturnsStoredRow(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	anna := mustProfile(t, repo, "anna")
	fiets := mustWord(t, repo, "bicycle", "de fiets", "transport", 1)
	at := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		correct       bool
		wantCorrect   int
		wantIncorrect int
	}{
		{true, 1, 0},
		{false, 1, 1},
		{true, 2, 1},
	}
	for i, tt := range tests {
		p, err := repo.RecordAnswer(ctx, anna.ID, fiets.ID, tt.correct, at.Add(time.Duration(i)*time.Minute))
		require.NoError(t, err)
		assert.Equal(t, tt.wantCorrect, p.CorrectCount)
		assert.Equal(t, tt.wantIncorrect, p.IncorrectCount)
		assert.False(t, p.Mastered)
		assert.True(t, p.LastPracticedAt.Equal(at.Add(time.Duration(i)*time.Minute)))
	}
}

func TestPickWords_UnmasteredFirst(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	anna := mustProfile(t, repo, "anna")
	known := mustWord(t, repo, "bicycle", "de fiets", "transport", 1)
	mustWord(t, repo, "train", "de trein", "transport", 1)
	mustWord(t, repo, "car", "de auto", "transport", 1)
	mustWord(t, repo, "airplane", "het vliegtuig", "transport", 3)
	mustWord(t, repo, "apple", "de appel", "food", 1)

	for i := 0; i < core.MasteryThreshold; i++ {
		_, err := repo.RecordAnswer(ctx, anna.ID, known.ID, true, time.Now())
		require.NoError(t, err)
	}

	for i := 0; i < 5; i++ {
		picked, err := repo.PickWords(ctx, anna.ID, 1, "transport", 2)
		require.NoError(t, err)
		require.Len(t, picked, 2)
		for _, w := range picked {
			assert.NotEqual(t, known.ID, w.ID)
			assert.Equal(t, "transport", w.Category)
			assert.Equal(t, 1, w.Difficulty)
		}
	}

	picked, err := repo.PickWords(ctx, anna.ID, 1, "transport", 10)
	require.NoError(t, err)
	require.Len(t, picked, 3)
	assert.Equal(t, known.ID, picked[2].ID, "mastered words come last")

	picked, err = repo.PickWords(ctx, anna.ID, 3, "", 10)
	require.NoError(t, err)
	assert.Len(t, picked, 5)
}

func TestSessionsAndScores(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	anna := mustProfile(t, repo, "anna")
	bram := mustProfile(t, repo, "bram")

	monday := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	mk := func(user string, score int, at time.Time) core.Session {
		s, err := repo.CreateSession(ctx, core.Session{
			UserID: user, Score: score, Level: core.Beginner, CorrectCount: 5, TotalCount: 10, CreatedAt: at,
		})
		require.NoError(t, err)
		return s
	}

	mk(anna.ID, 40, monday.Add(-time.Minute)) // previous week
	first := mk(anna.ID, 50, monday)
	mk(bram.ID, 70, monday.Add(48*time.Hour))
	mk(anna.ID, 30, monday.Add(72*time.Hour))
	mk(bram.ID, 99, monday.AddDate(0, 0, 7)) // next week

	got, err := repo.GetSession(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, got.Score)
	assert.Equal(t, core.Beginner, got.Level)
	assert.True(t, got.CreatedAt.Equal(monday))

	rows, err := repo.SessionScoresSince(ctx, monday, monday.AddDate(0, 0, 7))
	require.NoError(t, err)
	require.Len(t, rows, 3)

	board := core.RankSessions(rows, core.MetricTotal, core.LeaderboardSize)
	require.Len(t, board, 2)
	assert.Equal(t, "anna", board[0].Username)
	assert.Equal(t, 80, board[0].Value)
	assert.Equal(t, 70, board[1].Value)

	recent, err := repo.RecentSessions(ctx, anna.ID, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, 30, recent[0].Score)
	assert.Equal(t, 50, recent[1].Score)

	_, err = repo.GetSession(ctx, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMedals(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	anna := mustProfile(t, repo, "anna")
	bram := mustProfile(t, repo, "bram")
	week1 := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	week2 := week1.AddDate(0, 0, 7)

	podium := core.AwardMedals(core.Weekly, week1, []core.LeaderboardEntry{
		{UserID: anna.ID, Value: 100},
		{UserID: bram.ID, Value: 60},
	})
	n, err := repo.InsertMedals(ctx, core.Weekly, podium)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = repo.InsertMedals(ctx, core.Weekly, podium)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "awarding the same period twice stores nothing")

	_, err = repo.InsertMedals(ctx, core.Weekly, core.AwardMedals(core.Weekly, week2, []core.LeaderboardEntry{
		{UserID: bram.ID, Value: 80},
	}))
	require.NoError(t, err)

	_, err = repo.InsertMedals(ctx, core.Monthly, core.AwardMedals(core.Monthly, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), []core.LeaderboardEntry{
		{UserID: bram.ID, Value: 140},
		{UserID: anna.ID, Value: 100},
	}))
	require.NoError(t, err)

	bramMedals, err := repo.ListMedals(ctx, bram.ID)
	require.NoError(t, err)
	require.Len(t, bramMedals, 3)
	assert.True(t, bramMedals[0].PeriodStart.Equal(week2))
	assert.Equal(t, core.Gold, bramMedals[0].Type)
	assert.Equal(t, "bram", bramMedals[0].Username)

	counts, err := repo.MedalCounts(ctx, bram.ID)
	require.NoError(t, err)
	assert.Equal(t, core.MedalCounts{Gold: 2, Silver: 1}, counts)

	recent, err := repo.RecentMedals(ctx, core.Weekly, 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, bram.ID, recent[0].UserID)
	assert.Equal(t, core.Weekly, recent[0].Kind)

	recent, err = repo.RecentMedals(ctx, core.Weekly, 5)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, core.Gold, recent[1].Type)
	assert.Equal(t, core.Silver, recent[2].Type)

	_, err = repo.InsertMedals(ctx, core.MedalKind("yearly"), podium)
	assert.ErrorIs(t, err, core.ErrInvalidMedalKind)
}

func TestWordIssues(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	anna := mustProfile(t, repo, "anna")
	fiets := mustWord(t, repo, "bicycle", "de fiets", "transport", 1)

	issue, err := repo.CreateWordIssue(ctx, core.WordIssue{WordID: fiets.ID, UserID: anna.ID, Description: "  missing 'rijwiel'  "})
	require.NoError(t, err)
	assert.Equal(t, core.IssueOpen, issue.Status)
	assert.Equal(t, "missing 'rijwiel'", issue.Description)

	_, err = repo.CreateWordIssue(ctx, core.WordIssue{WordID: 9999, UserID: anna.ID, Description: "ghost"})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = repo.CreateWordIssue(ctx, core.WordIssue{WordID: fiets.ID, UserID: anna.ID, Description: " "})
	assert.ErrorIs(t, err, core.ErrEmptyIssue)

	open, err := repo.ListWordIssues(ctx, core.IssueOpen)
	require.NoError(t, err)
	require.Len(t, open, 1)

	require.NoError(t, repo.ResolveWordIssue(ctx, issue.ID))
	assert.ErrorIs(t, repo.ResolveWordIssue(ctx, 9999), ErrNotFound)

	open, err = repo.ListWordIssues(ctx, core.IssueOpen)
	require.NoError(t, err)
	assert.Empty(t, open)

	all, err := repo.ListWordIssues(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, core.IssueResolved, all[0].Status)
}
