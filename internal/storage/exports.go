package storage

import (
	"context"
	"fmt"
	"time"

	"woordjes/internal/core"
)

// SessionExport is a session joined with its player's username, as the
// export worker needs it.
type SessionExport struct {
	core.Session
	Username string
	Exported bool
}

type sessionExportRow struct {
	sessionRow
	Username string `db:"username"`
	Exported bool   `db:"exported"`
}

func (r sessionExportRow) toExport() SessionExport {
	return SessionExport{Session: r.toCore(), Username: r.Username, Exported: r.Exported}
}

const sessionExportSelect = `
	SELECT s.id AS id, s.user_id AS user_id, s.score AS score, s.level AS level,
	       s.correct_count AS correct_count, s.total_count AS total_count,
	       s.created_at AS created_at, p.username AS username,
	       CASE WHEN s.exported_at IS NULL THEN 0 ELSE 1 END AS exported
	FROM sessions s
	JOIN profiles p ON p.id = s.user_id`

func (r *Repository) SessionForExport(ctx context.Context, id int64) (SessionExport, error) {
	var row sessionExportRow
	if err := r.db.GetContext(ctx, &row, r.q(sessionExportSelect+` WHERE s.id = ?`), id); err != nil {
		return SessionExport{}, fmt.Errorf("session %d for export: %w", id, mapErr(err))
	}
	return row.toExport(), nil
}

// PendingExports returns up to limit sessions never exported, oldest first.
func (r *Repository) PendingExports(ctx context.Context, limit int) ([]SessionExport, error) {
	var rows []sessionExportRow
	err := r.db.SelectContext(ctx, &rows, r.q(sessionExportSelect+`
		WHERE s.exported_at IS NULL
		ORDER BY s.id
		LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("pending exports: %w", err)
	}

	out := make([]SessionExport, len(rows))
	for i, row := range rows {
		out[i] = row.toExport()
	}
	return out, nil
}

func (r *Repository) MarkSessionExported(ctx context.Context, id int64, at time.Time) error {
	res, err := r.db.ExecContext(ctx, r.q(`UPDATE sessions SET exported_at = ? WHERE id = ?`), ts(at), id)
	if err != nil {
		return fmt.Errorf("mark session %d exported: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("mark session %d exported: %w", id, ErrNotFound)
	}
	return nil
}
