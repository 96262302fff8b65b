package game

import (
	"time"

	"github.com/google/uuid"

	"woordjes/internal/cache"
	"woordjes/internal/core"
)

// DefaultCapacity bounds the number of games kept in memory.
const DefaultCapacity = 1000

// Engine owns every in-flight game.
type Engine struct {
	games *cache.LRUCache[*Game]
	now   func() time.Time
}

func NewEngine(capacity int, ttl time.Duration) *Engine {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Engine{
		games: cache.NewLRUCache[*Game](capacity, ttl, cache.Sliding()),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Cache exposes the game store so a cache.Manager can expire it. Games
// expire after sitting idle for the TTL.
func (e *Engine) Cache() cache.Reporter { return e.games }

// Active returns the number of games held in memory.
func (e *Engine) Active() int { return e.games.Size() }

// Start creates a game over words, in the order given.
func (e *Engine) Start(userID string, level core.PlayLevel, category string, words []core.Word) (*Game, error) {
	if len(words) == 0 {
		return nil, ErrNoWords
	}
	cards := make([]Card, len(words))
	for i, w := range words {
		cards[i] = Card{Word: w}
	}

	g := &Game{
		ID:        uuid.NewString(),
		UserID:    userID,
		Level:     level,
		Category:  category,
		Cards:     cards,
		StartedAt: e.now(),
	}
	e.games.Set(g.ID, g)
	return g, nil
}

// Get returns the caller's game.
func (e *Engine) Get(gameID, userID string) (*Game, error) {
	g, ok := e.games.Get(gameID)
	if !ok {
		return nil, ErrGameNotFound
	}
	if g.UserID != userID {
		return nil, ErrNotYourGame
	}
	return g, nil
}

// Answer checks input against the current card and advances the game.
func (e *Engine) Answer(gameID, userID, input string) (*Game, Outcome, error) {
	return e.play(gameID, userID, input, false)
}

// Skip reveals the current card; it counts as a wrong answer worth nothing.
func (e *Engine) Skip(gameID, userID string) (*Game, Outcome, error) {
	return e.play(gameID, userID, "", true)
}

func (e *Engine) play(gameID, userID, input string, skip bool) (*Game, Outcome, error) {
	g, err := e.Get(gameID, userID)
	if err != nil {
		return nil, Outcome{}, err
	}
	out, err := g.play(input, skip)
	if err != nil {
		return g, Outcome{}, err
	}
	return g, out, nil
}

// Discard drops a game, e.g. once its session has been saved and shown.
func (e *Engine) Discard(gameID string) {
	e.games.Delete(gameID)
}
