// Package game runs flashcard rounds. Games live only in memory, in an LRU
// cache whose TTL is refreshed on every answer.
package game

import (
	"errors"
	"sync"
	"time"

	"woordjes/internal/core"
)

var (
	ErrGameNotFound = errors.New("game not found or expired")
	ErrNotYourGame  = errors.New("game belongs to another player")
	ErrGameFinished = errors.New("game already finished")
	ErrNoWords      = errors.New("no words available for this level")
)

// Card is one flashcard and what happened to it.
type Card struct {
	Word     core.Word
	Answered bool
	Skipped  bool
	Correct  bool
	Given    string
	Points   int
}

// Game is a single play-through.
type Game struct {
	mu sync.Mutex

	ID        string
	UserID    string
	Level     core.PlayLevel
	Category  string
	Cards     []Card
	StartedAt time.Time

	index      int
	score      int
	streak     int
	bestStreak int
	correct    int
}

// Outcome reports the result of one answer or skip.
type Outcome struct {
	Word     core.Word
	Correct  bool
	Expected string
	Points   int
	Streak   int
	Score    int
	Finished bool
}

// Summary describes a finished (or abandoned) game.
type Summary struct {
	GameID     string
	Level      core.PlayLevel
	Score      int
	Correct    int
	Total      int
	Accuracy   int
	BestStreak int
}

// View is a consistent snapshot used for rendering.
type View struct {
	ID       string
	Level    core.PlayLevel
	Category string
	Current  core.Word
	Position int // 1-based
	Total    int
	Score    int
	Streak   int
	Finished bool
}

func (g *Game) View() View {
	g.mu.Lock()
	defer g.mu.Unlock()

	v := View{
		ID:       g.ID,
		Level:    g.Level,
		Category: g.Category,
		Position: g.index + 1,
		Total:    len(g.Cards),
		Score:    g.score,
		Streak:   g.streak,
		Finished: g.finished(),
	}
	if !v.Finished {
		v.Current = g.Cards[g.index].Word
	} else {
		v.Position = len(g.Cards)
	}
	return v
}

func (g *Game) Finished() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.finished()
}

func (g *Game) finished() bool { return g.index >= len(g.Cards) }

func (g *Game) Summary() Summary {
	g.mu.Lock()
	defer g.mu.Unlock()

	answered := g.index
	return Summary{
		GameID:     g.ID,
		Level:      g.Level,
		Score:      g.score,
		Correct:    g.correct,
		Total:      answered,
		Accuracy:   core.Percent(g.correct, answered),
		BestStreak: g.bestStreak,
	}
}

// Session converts a game into the record persisted for leaderboards.
func (g *Game) Session(at time.Time) core.Session {
	s := g.Summary()
	return core.Session{
		UserID:       g.UserID,
		Score:        s.Score,
		Level:        g.Level,
		CorrectCount: s.Correct,
		TotalCount:   s.Total,
		CreatedAt:    at,
	}
}

// play applies an answer (or a skip when skip is set) to the current card.
func (g *Game) play(input string, skip bool) (Outcome, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.finished() {
		return Outcome{}, ErrGameFinished
	}

	card := &g.Cards[g.index]
	card.Answered = true
	card.Skipped = skip
	card.Given = input
	card.Correct = !skip && core.CheckAnswer(input, card.Word.Dutch)

	if card.Correct {
		g.streak++
		if g.streak > g.bestStreak {
			g.bestStreak = g.streak
		}
		g.correct++
		card.Points = core.Points(card.Word.Difficulty, g.streak)
		g.score += card.Points
	} else {
		g.streak = 0
	}
	g.index++

	return Outcome{
		Word:     card.Word,
		Correct:  card.Correct,
		Expected: core.CanonicalAnswer(card.Word.Dutch),
		Points:   card.Points,
		Streak:   g.streak,
		Score:    g.score,
		Finished: g.finished(),
	}, nil
}
