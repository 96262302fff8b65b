package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"woordjes/internal/core"
)

type profileRow struct {
	ID           string    `db:"id"`
	Email        string    `db:"email"`
	Username     string    `db:"username"`
	PasswordHash string    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
}

func (p profileRow) toCore() core.Profile {
	return core.Profile{
		ID:           p.ID,
		Email:        p.Email,
		Username:     p.Username,
		PasswordHash: p.PasswordHash,
		CreatedAt:    p.CreatedAt.UTC(),
	}
}

const profileColumns = `id, email, username, password_hash, created_at`

// CreateProfile stores a new profile. Email is stored lower-cased.
// Duplicate emails or usernames return ErrConflict.
func (r *Repository) CreateProfile(ctx context.Context, p core.Profile) (core.Profile, error) {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = r.now()
	}
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))
	p.CreatedAt = ts(p.CreatedAt)

	_, err := r.db.ExecContext(ctx, r.q(`INSERT INTO profiles (`+profileColumns+`) VALUES (?, ?, ?, ?, ?)`),
		p.ID, p.Email, p.Username, p.PasswordHash, p.CreatedAt)
	if err != nil {
		return core.Profile{}, fmt.Errorf("create profile: %w", mapErr(err))
	}

	r.logger.InfoContext(ctx, "Profile created", "user_id", p.ID, "username", p.Username)
	return p, nil
}

func (r *Repository) GetProfile(ctx context.Context, id string) (core.Profile, error) {
	var row profileRow
	err := r.db.GetContext(ctx, &row, r.q(`SELECT `+profileColumns+` FROM profiles WHERE id = ?`), id)
	if err != nil {
		return core.Profile{}, fmt.Errorf("get profile %s: %w", id, mapErr(err))
	}
	return row.toCore(), nil
}

func (r *Repository) GetProfileByEmail(ctx context.Context, email string) (core.Profile, error) {
	var row profileRow
	err := r.db.GetContext(ctx, &row, r.q(`SELECT `+profileColumns+` FROM profiles WHERE email = ?`),
		strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return core.Profile{}, fmt.Errorf("get profile by email: %w", mapErr(err))
	}
	return row.toCore(), nil
}

// UpdateUsername renames a profile; a taken name returns ErrConflict.
func (r *Repository) UpdateUsername(ctx context.Context, id, username string) error {
	res, err := r.db.ExecContext(ctx, r.q(`UPDATE profiles SET username = ? WHERE id = ?`), username, id)
	if err != nil {
		return fmt.Errorf("update username: %w", mapErr(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update username: %w", ErrNotFound)
	}
	return nil
}
