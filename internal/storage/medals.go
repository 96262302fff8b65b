package storage

import (
	"context"
	"fmt"
	"sort"
	"time"

	"woordjes/internal/core"
)

type medalRow struct {
	UserID      string    `db:"user_id"`
	Username    string    `db:"username"`
	Type        string    `db:"medal_type"`
	PeriodStart time.Time `db:"period_start"`
	Score       int       `db:"score"`
}

func (m medalRow) toCore() core.Medal {
	return core.Medal{
		UserID:      m.UserID,
		Username:    m.Username,
		Type:        core.MedalType(m.Type),
		PeriodStart: m.PeriodStart.UTC(),
		Score:       m.Score,
	}
}

func medalTable(kind core.MedalKind) (string, error) {
	switch kind {
	case core.Weekly:
		return "weekly_medals", nil
	case core.Monthly:
		return "monthly_medals", nil
	}
	return "", core.ErrInvalidMedalKind
}

const medalOrder = `CASE m.medal_type WHEN 'gold' THEN 1 WHEN 'silver' THEN 2 ELSE 3 END`

// InsertMedals stores a period's podium. Medals already present for the
// same period and type are left untouched, so re-running an award is safe.
// It returns how many medals were newly stored.
func (r *Repository) InsertMedals(ctx context.Context, kind core.MedalKind, medals []core.Medal) (int, error) {
	table, err := medalTable(kind)
	if err != nil {
		return 0, err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	inserted := 0
	now := ts(r.now())
	for _, m := range medals {
		res, err := tx.ExecContext(ctx, tx.Rebind(`
			INSERT INTO `+table+` (user_id, period_start, medal_type, score, created_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (period_start, medal_type) DO NOTHING`),
			m.UserID, ts(m.PeriodStart), string(m.Type), m.Score, now)
		if err != nil {
			return 0, fmt.Errorf("insert %s medal: %w", m.Type, mapErr(err))
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit medals: %w", err)
	}
	return inserted, nil
}

// ListMedals returns every medal a player holds, newest period first.
func (r *Repository) ListMedals(ctx context.Context, userID string) ([]core.Medal, error) {
	var out []core.Medal
	for _, kind := range []core.MedalKind{core.Weekly, core.Monthly} {
		table, _ := medalTable(kind)
		var rows []medalRow
		err := r.db.SelectContext(ctx, &rows, r.q(`
			SELECT m.user_id AS user_id, p.username AS username, m.medal_type AS medal_type,
			       m.period_start AS period_start, m.score AS score
			FROM `+table+` m JOIN profiles p ON p.id = m.user_id
			WHERE m.user_id = ?`), userID)
		if err != nil {
			return nil, fmt.Errorf("list %s medals: %w", kind, err)
		}
		out = append(out, medalsToCore(kind, rows)...)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].PeriodStart.Equal(out[j].PeriodStart) {
			return out[i].PeriodStart.After(out[j].PeriodStart)
		}
		return out[i].Kind == core.Weekly && out[j].Kind == core.Monthly
	})
	return out, nil
}

func (r *Repository) MedalCounts(ctx context.Context, userID string) (core.MedalCounts, error) {
	medals, err := r.ListMedals(ctx, userID)
	if err != nil {
		return core.MedalCounts{}, err
	}
	return core.CountMedals(medals), nil
}

// RecentMedals returns the podiums of the latest periods of a kind, newest
// first, gold before silver before bronze.
func (r *Repository) RecentMedals(ctx context.Context, kind core.MedalKind, periods int) ([]core.Medal, error) {
	table, err := medalTable(kind)
	if err != nil {
		return nil, err
	}

	var rows []medalRow
	err = r.db.SelectContext(ctx, &rows, r.q(`
		SELECT m.user_id AS user_id, p.username AS username, m.medal_type AS medal_type,
		       m.period_start AS period_start, m.score AS score
		FROM `+table+` m JOIN profiles p ON p.id = m.user_id
		WHERE m.period_start IN (
			SELECT DISTINCT period_start FROM `+table+` ORDER BY period_start DESC LIMIT ?
		)
		ORDER BY m.period_start DESC, `+medalOrder), periods)
	if err != nil {
		return nil, fmt.Errorf("recent %s medals: %w", kind, err)
	}
	return medalsToCore(kind, rows), nil
}

func medalsToCore(kind core.MedalKind, rows []medalRow) []core.Medal {
	out := make([]core.Medal, len(rows))
	for i, row := range rows {
		out[i] = row.toCore()
		out[i].Kind = kind
	}
	return out
}
