package storage

import (
	"context"
	"fmt"
	"time"

	"woordjes/internal/core"
)

type progressRow struct {
	UserID          string    `db:"user_id"`
	WordID          int64     `db:"word_id"`
	CorrectCount    int       `db:"correct_count"`
	IncorrectCount  int       `db:"incorrect_count"`
	Mastered        bool      `db:"mastered"`
	LastPracticedAt time.Time `db:"last_practiced_at"`
}

func (p progressRow) toCore() core.Progress {
	return core.Progress{
		UserID:          p.UserID,
		WordID:          p.WordID,
		CorrectCount:    p.CorrectCount,
		IncorrectCount:  p.IncorrectCount,
		Mastered:        p.Mastered,
		LastPracticedAt: p.LastPracticedAt.UTC(),
	}
}

const progressColumns = `user_id, word_id, correct_count, incorrect_count, mastered, last_practiced_at`

// GetProgress returns ErrNotFound for words the player never answered.
func (r *Repository) GetProgress(ctx context.Context, userID string, wordID int64) (core.Progress, error) {
	var row progressRow
	err := r.db.GetContext(ctx, &row, r.q(`SELECT `+progressColumns+` FROM user_progress WHERE user_id = ? AND word_id = ?`), userID, wordID)
	if err != nil {
		return core.Progress{}, fmt.Errorf("get progress: %w", mapErr(err))
	}
	return row.toCore(), nil
}

// RecordAnswer applies one answer to the player's progress on a word and
// returns the updated row. The counters are incremented inside the upsert so
// concurrent answers for the same word never overwrite each other; the row
// stays locked until commit, so the re-read sees this answer's result.
func (r *Repository) RecordAnswer(ctx context.Context, userID string, wordID int64, correct bool, at time.Time) (core.Progress, error) {
	inc := core.Progress{UserID: userID, WordID: wordID}
	inc.Record(correct, ts(at))

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return core.Progress{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, tx.Rebind(`
		INSERT INTO user_progress (`+progressColumns+`)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, word_id) DO UPDATE SET
			correct_count = user_progress.correct_count + excluded.correct_count,
			incorrect_count = user_progress.incorrect_count + excluded.incorrect_count,
			mastered = user_progress.mastered OR user_progress.correct_count + excluded.correct_count >= ?,
			last_practiced_at = excluded.last_practiced_at`),
		inc.UserID, inc.WordID, inc.CorrectCount, inc.IncorrectCount, inc.Mastered, inc.LastPracticedAt,
		core.MasteryThreshold)
	if err != nil {
		return core.Progress{}, fmt.Errorf("save progress: %w", mapErr(err))
	}

	var row progressRow
	err = tx.GetContext(ctx, &row, tx.Rebind(`SELECT `+progressColumns+` FROM user_progress WHERE user_id = ? AND word_id = ?`), userID, wordID)
	if err != nil {
		return core.Progress{}, fmt.Errorf("load progress: %w", mapErr(err))
	}

	if err := tx.Commit(); err != nil {
		return core.Progress{}, fmt.Errorf("commit progress: %w", err)
	}
	return row.toCore(), nil
}

// ListProgress returns every progress row of a player keyed by word id.
func (r *Repository) ListProgress(ctx context.Context, userID string) (map[int64]core.Progress, error) {
	var rows []progressRow
	if err := r.db.SelectContext(ctx, &rows, r.q(`SELECT `+progressColumns+` FROM user_progress WHERE user_id = ?`), userID); err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	out := make(map[int64]core.Progress, len(rows))
	for _, row := range rows {
		out[row.WordID] = row.toCore()
	}
	return out, nil
}

func (r *Repository) CountMastered(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, r.q(`SELECT COUNT(*) FROM user_progress WHERE user_id = ? AND mastered = ?`), userID, true)
	if err != nil {
		return 0, fmt.Errorf("count mastered: %w", err)
	}
	return n, nil
}

// CategoryStats summarises mastered and practised words per category for a
// player, including categories they never touched.
func (r *Repository) CategoryStats(ctx context.Context, userID string) ([]core.CategoryStat, error) {
	var rows []struct {
		Category string `db:"category"`
		Total    int    `db:"total"`
		Mastered int    `db:"mastered"`
		Practice int    `db:"practice"`
	}
	err := r.db.SelectContext(ctx, &rows, r.q(`
		SELECT w.category AS category,
		       COUNT(*) AS total,
		       COALESCE(SUM(CASE WHEN p.mastered THEN 1 ELSE 0 END), 0) AS mastered,
		       COUNT(p.word_id) AS practice
		FROM words w
		LEFT JOIN user_progress p ON p.word_id = w.id AND p.user_id = ?
		GROUP BY w.category
		ORDER BY w.category`), userID)
	if err != nil {
		return nil, fmt.Errorf("category stats: %w", err)
	}

	out := make([]core.CategoryStat, len(rows))
	for i, row := range rows {
		out[i] = core.CategoryStat{Category: row.Category, Total: row.Total, Mastered: row.Mastered, Practice: row.Practice}
	}
	return out, nil
}
