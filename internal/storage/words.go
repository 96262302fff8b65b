package storage

import (
	"context"
	"fmt"
	"strings"

	"woordjes/internal/core"
)

type wordRow struct {
	ID             int64  `db:"id"`
	English        string `db:"english"`
	Dutch          string `db:"dutch"`
	Category       string `db:"category"`
	Difficulty     int    `db:"difficulty"`
	ExampleEnglish string `db:"example_english"`
	ExampleDutch   string `db:"example_dutch"`
}

func (w wordRow) toCore() core.Word {
	return core.Word{
		ID:             w.ID,
		English:        w.English,
		Dutch:          w.Dutch,
		Category:       w.Category,
		Difficulty:     w.Difficulty,
		ExampleEnglish: w.ExampleEnglish,
		ExampleDutch:   w.ExampleDutch,
	}
}

func wordsToCore(rows []wordRow) []core.Word {
	out := make([]core.Word, len(rows))
	for i, w := range rows {
		out[i] = w.toCore()
	}
	return out
}

const wordColumns = `w.id, w.english, w.dutch, w.category, w.difficulty, w.example_english, w.example_dutch`

// WordFilter narrows ListWords. Zero values do not filter.
type WordFilter struct {
	Category      string
	MaxDifficulty int
	Limit         int
	Offset        int
}

// InsertWord stores a new word; an existing english/dutch pair is ErrConflict.
func (r *Repository) InsertWord(ctx context.Context, w core.Word) (core.Word, error) {
	if err := w.Validate(); err != nil {
		return core.Word{}, err
	}
	err := r.db.QueryRowxContext(ctx, r.q(`
		INSERT INTO words (english, dutch, category, difficulty, example_english, example_dutch, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id`),
		w.English, w.Dutch, w.Category, w.Difficulty, w.ExampleEnglish, w.ExampleDutch, ts(r.now()),
	).Scan(&w.ID)
	if err != nil {
		return core.Word{}, fmt.Errorf("insert word: %w", mapErr(err))
	}
	return w, nil
}

// UpsertWord inserts or, for a known english/dutch pair, refreshes the
// category, difficulty and examples. created reports a fresh insert.
func (r *Repository) UpsertWord(ctx context.Context, w core.Word) (stored core.Word, created bool, err error) {
	if err := w.Validate(); err != nil {
		return core.Word{}, false, err
	}

	var existing int64
	err = r.db.GetContext(ctx, &existing, r.q(`SELECT id FROM words WHERE english = ? AND dutch = ?`), w.English, w.Dutch)
	switch mapErr(err) {
	case nil:
		w.ID = existing
		_, err = r.db.ExecContext(ctx, r.q(`
			UPDATE words SET category = ?, difficulty = ?, example_english = ?, example_dutch = ?
			WHERE id = ?`),
			w.Category, w.Difficulty, w.ExampleEnglish, w.ExampleDutch, existing)
		if err != nil {
			return core.Word{}, false, fmt.Errorf("update word %d: %w", existing, mapErr(err))
		}
		return w, false, nil
	case ErrNotFound:
		stored, err = r.InsertWord(ctx, w)
		return stored, err == nil, err
	default:
		return core.Word{}, false, fmt.Errorf("lookup word: %w", mapErr(err))
	}
}

func (r *Repository) GetWord(ctx context.Context, id int64) (core.Word, error) {
	var row wordRow
	err := r.db.GetContext(ctx, &row, r.q(`SELECT `+wordColumns+` FROM words w WHERE w.id = ?`), id)
	if err != nil {
		return core.Word{}, fmt.Errorf("get word %d: %w", id, mapErr(err))
	}
	return row.toCore(), nil
}

// ListWords returns words ordered by category, then english.
func (r *Repository) ListWords(ctx context.Context, f WordFilter) ([]core.Word, error) {
	var (
		where []string
		args  []any
	)
	if f.Category != "" {
		where = append(where, "w.category = ?")
		args = append(args, f.Category)
	}
	if f.MaxDifficulty > 0 {
		where = append(where, "w.difficulty <= ?")
		args = append(args, f.MaxDifficulty)
	}

	query := `SELECT ` + wordColumns + ` FROM words w`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY w.category, w.english"
	if f.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, f.Limit, f.Offset)
	}

	var rows []wordRow
	if err := r.db.SelectContext(ctx, &rows, r.q(query), args...); err != nil {
		return nil, fmt.Errorf("list words: %w", err)
	}
	return wordsToCore(rows), nil
}

func (r *Repository) ListCategories(ctx context.Context) ([]string, error) {
	var cats []string
	if err := r.db.SelectContext(ctx, &cats, `SELECT DISTINCT category FROM words ORDER BY category`); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return cats, nil
}

func (r *Repository) CountWords(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM words`); err != nil {
		return 0, fmt.Errorf("count words: %w", err)
	}
	return n, nil
}

// PickWords draws up to limit words at or below maxDifficulty for a game.
// Words the player has not mastered come first; order is random within
// each group. An empty category means every category.
func (r *Repository) PickWords(ctx context.Context, userID string, maxDifficulty int, category string, limit int) ([]core.Word, error) {
	query := `
		SELECT ` + wordColumns + `
		FROM words w
		LEFT JOIN user_progress p ON p.word_id = w.id AND p.user_id = ?
		WHERE w.difficulty <= ?`
	args := []any{userID, maxDifficulty}
	if category != "" {
		query += ` AND w.category = ?`
		args = append(args, category)
	}
	query += `
		ORDER BY CASE WHEN p.mastered THEN 1 ELSE 0 END, RANDOM()
		LIMIT ?`
	args = append(args, limit)

	var rows []wordRow
	if err := r.db.SelectContext(ctx, &rows, r.q(query), args...); err != nil {
		return nil, fmt.Errorf("pick words: %w", err)
	}
	return wordsToCore(rows), nil
}
