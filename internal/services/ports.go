package services

import (
	"context"
	"time"

	"woordjes/internal/core"
	"woordjes/internal/storage"
)

type ProfileStore interface {
	CreateProfile(ctx context.Context, p core.Profile) (core.Profile, error)
	GetProfile(ctx context.Context, id string) (core.Profile, error)
	GetProfileByEmail(ctx context.Context, email string) (core.Profile, error)
	UpdateUsername(ctx context.Context, id, username string) error
}

type WordPicker interface {
	PickWords(ctx context.Context, userID string, maxDifficulty int, category string, limit int) ([]core.Word, error)
}

type AnswerRecorder interface {
	RecordAnswer(ctx context.Context, userID string, wordID int64, correct bool, at time.Time) (core.Progress, error)
}

type SessionSaver interface {
	CreateSession(ctx context.Context, s core.Session) (core.Session, error)
}

type SessionScoreSource interface {
	SessionScoresSince(ctx context.Context, from, to time.Time) ([]core.SessionScore, error)
}

type ProgressStore interface {
	CountMastered(ctx context.Context, userID string) (int, error)
	CountWords(ctx context.Context) (int, error)
	CategoryStats(ctx context.Context, userID string) ([]core.CategoryStat, error)
	RecentSessions(ctx context.Context, userID string, n int) ([]core.Session, error)
	MedalCounts(ctx context.Context, userID string) (core.MedalCounts, error)
	ListWords(ctx context.Context, f storage.WordFilter) ([]core.Word, error)
	ListCategories(ctx context.Context) ([]string, error)
	ListProgress(ctx context.Context, userID string) (map[int64]core.Progress, error)
}

type MedalStore interface {
	InsertMedals(ctx context.Context, kind core.MedalKind, medals []core.Medal) (int, error)
	ListMedals(ctx context.Context, userID string) ([]core.Medal, error)
	RecentMedals(ctx context.Context, kind core.MedalKind, periods int) ([]core.Medal, error)
}

type IssueStore interface {
	CreateWordIssue(ctx context.Context, issue core.WordIssue) (core.WordIssue, error)
	ListWordIssues(ctx context.Context, status core.IssueStatus) ([]core.WordIssue, error)
	ResolveWordIssue(ctx context.Context, id int64) error
}

// EventPublisher announces results to other processes. Implementations
// may be nil, in which case nothing is published.
type EventPublisher interface {
	PublishSessionCompleted(ctx context.Context, sessionID int64, userID string, score int) error
	PublishMedalAwarded(ctx context.Context, kind string, periodStart time.Time, count int) error
}

var (
	_ ProfileStore       = (*storage.Repository)(nil)
	_ WordPicker         = (*storage.Repository)(nil)
	_ AnswerRecorder     = (*storage.Repository)(nil)
	_ SessionSaver       = (*storage.Repository)(nil)
	_ SessionScoreSource = (*storage.Repository)(nil)
	_ ProgressStore      = (*storage.Repository)(nil)
	_ MedalStore         = (*storage.Repository)(nil)
	_ IssueStore         = (*storage.Repository)(nil)
)
