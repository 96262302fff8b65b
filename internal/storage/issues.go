package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"woordjes/internal/core"
)

type issueRow struct {
	ID          int64     `db:"id"`
	WordID      int64     `db:"word_id"`
	UserID      string    `db:"user_id"`
	Description string    `db:"description"`
	Status      string    `db:"status"`
	CreatedAt   time.Time `db:"created_at"`
}

// CreateWordIssue stores a report against a word. Unknown words or users
// return ErrNotFound.
func (r *Repository) CreateWordIssue(ctx context.Context, issue core.WordIssue) (core.WordIssue, error) {
	if err := issue.Validate(); err != nil {
		return core.WordIssue{}, err
	}
	issue.Description = strings.TrimSpace(issue.Description)
	issue.Status = core.IssueOpen
	if issue.CreatedAt.IsZero() {
		issue.CreatedAt = r.now()
	}
	issue.CreatedAt = ts(issue.CreatedAt)

	err := r.db.QueryRowxContext(ctx, r.q(`
		INSERT INTO word_issues (word_id, user_id, description, status, created_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id`),
		issue.WordID, issue.UserID, issue.Description, string(issue.Status), issue.CreatedAt,
	).Scan(&issue.ID)
	if err != nil {
		return core.WordIssue{}, fmt.Errorf("create word issue: %w", mapErr(err))
	}

	r.logger.InfoContext(ctx, "Word issue reported", "issue_id", issue.ID, "word_id", issue.WordID, "user_id", issue.UserID)
	return issue, nil
}

// ListWordIssues returns issues with the given status, oldest first. An
// empty status lists everything.
func (r *Repository) ListWordIssues(ctx context.Context, status core.IssueStatus) ([]core.WordIssue, error) {
	query := `SELECT id, word_id, user_id, description, status, created_at FROM word_issues`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at, id`

	var rows []issueRow
	if err := r.db.SelectContext(ctx, &rows, r.q(query), args...); err != nil {
		return nil, fmt.Errorf("list word issues: %w", err)
	}

	out := make([]core.WordIssue, len(rows))
	for i, row := range rows {
		out[i] = core.WordIssue{
			ID:          row.ID,
			WordID:      row.WordID,
			UserID:      row.UserID,
			Description: row.Description,
			Status:      core.IssueStatus(row.Status),
			CreatedAt:   row.CreatedAt.UTC(),
		}
	}
	return out, nil
}

func (r *Repository) ResolveWordIssue(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, r.q(`UPDATE word_issues SET status = ? WHERE id = ?`), string(core.IssueResolved), id)
	if err != nil {
		return fmt.Errorf("resolve word issue %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("resolve word issue %d: %w", id, ErrNotFound)
	}
	return nil
}
