package storage

import (
	"context"
	"fmt"
	"time"

	"woordjes/internal/core"
)

type sessionRow struct {
	ID           int64     `db:"id"`
	UserID       string    `db:"user_id"`
	Score        int       `db:"score"`
	Level        string    `db:"level"`
	CorrectCount int       `db:"correct_count"`
	TotalCount   int       `db:"total_count"`
	CreatedAt    time.Time `db:"created_at"`
}

func (s sessionRow) toCore() core.Session {
	return core.Session{
		ID:           s.ID,
		UserID:       s.UserID,
		Score:        s.Score,
		Level:        core.PlayLevel(s.Level),
		CorrectCount: s.CorrectCount,
		TotalCount:   s.TotalCount,
		CreatedAt:    s.CreatedAt.UTC(),
	}
}

const sessionColumns = `id, user_id, score, level, correct_count, total_count, created_at`

func (r *Repository) CreateSession(ctx context.Context, s core.Session) (core.Session, error) {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = r.now()
	}
	s.CreatedAt = ts(s.CreatedAt)

	err := r.db.QueryRowxContext(ctx, r.q(`
		INSERT INTO sessions (user_id, score, level, correct_count, total_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id`),
		s.UserID, s.Score, string(s.Level), s.CorrectCount, s.TotalCount, s.CreatedAt,
	).Scan(&s.ID)
	if err != nil {
		return core.Session{}, fmt.Errorf("create session: %w", mapErr(err))
	}

	r.logger.InfoContext(ctx, "Session saved",
		"session_id", s.ID,
		"user_id", s.UserID,
		"score", s.Score,
		"level", string(s.Level))
	return s, nil
}

func (r *Repository) GetSession(ctx context.Context, id int64) (core.Session, error) {
	var row sessionRow
	err := r.db.GetContext(ctx, &row, r.q(`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`), id)
	if err != nil {
		return core.Session{}, fmt.Errorf("get session %d: %w", id, mapErr(err))
	}
	return row.toCore(), nil
}

// RecentSessions returns a player's latest n sessions, newest first.
func (r *Repository) RecentSessions(ctx context.Context, userID string, n int) ([]core.Session, error) {
	var rows []sessionRow
	err := r.db.SelectContext(ctx, &rows, r.q(`
		SELECT `+sessionColumns+` FROM sessions
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`), userID, n)
	if err != nil {
		return nil, fmt.Errorf("recent sessions: %w", err)
	}

	out := make([]core.Session, len(rows))
	for i, row := range rows {
		out[i] = row.toCore()
	}
	return out, nil
}

// SessionScoresSince returns one row per session created in [from, to),
// joined with the player's current username.
func (r *Repository) SessionScoresSince(ctx context.Context, from, to time.Time) ([]core.SessionScore, error) {
	var rows []struct {
		UserID   string `db:"user_id"`
		Username string `db:"username"`
		Score    int    `db:"score"`
	}
	err := r.db.SelectContext(ctx, &rows, r.q(`
		SELECT s.user_id AS user_id, p.username AS username, s.score AS score
		FROM sessions s
		JOIN profiles p ON p.id = s.user_id
		WHERE s.created_at >= ? AND s.created_at < ?
		ORDER BY s.id`), ts(from), ts(to))
	if err != nil {
		return nil, fmt.Errorf("session scores: %w", err)
	}

	out := make([]core.SessionScore, len(rows))
	for i, row := range rows {
		out[i] = core.SessionScore{UserID: row.UserID, Username: row.Username, Score: row.Score}
	}
	return out, nil
}
