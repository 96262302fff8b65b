package services

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"woordjes/internal/core"
	"woordjes/internal/game"
	"woordjes/internal/log"
)

// DefaultRoundSize is the number of cards dealt when none is configured.
const DefaultRoundSize = 10

// GameDeps wires a GameService. Events and Leaderboard may be nil.
type GameDeps struct {
	Engine      *game.Engine
	Words       WordPicker
	Progress    AnswerRecorder
	Sessions    SessionSaver
	Events      EventPublisher
	Leaderboard *LeaderboardService
	RoundSize   int
	Logger      *log.Logger
}

type GameService struct {
	engine      *game.Engine
	words       WordPicker
	progress    AnswerRecorder
	sessions    SessionSaver
	events      EventPublisher
	leaderboard *LeaderboardService
	roundSize   int
	logger      *log.Logger
	sessionLog  *log.StructuredLogger
	now         func() time.Time
}

func NewGameService(d GameDeps) *GameService {
	if d.RoundSize <= 0 {
		d.RoundSize = DefaultRoundSize
	}
	logger := componentLogger(d.Logger, log.ComponentGame)
	return &GameService{
		engine:      d.Engine,
		words:       d.Words,
		progress:    d.Progress,
		sessions:    d.Sessions,
		events:      d.Events,
		leaderboard: d.Leaderboard,
		roundSize:   d.RoundSize,
		logger:      logger,
		sessionLog:  log.NewStructuredLogger(logger),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Turn is the result of one answer or skip. Session and Summary are set
// once the game is over.
type Turn struct {
	Game    *game.Game
	Outcome game.Outcome
	Summary *game.Summary
	Session *core.Session
	// Notice is a non-fatal problem worth showing to the player.
	Notice string
}

func (s *GameService) StartGame(ctx context.Context, userID string, level core.PlayLevel, category string) (*game.Game, error) {
	words, err := s.words.PickWords(ctx, userID, level.MaxDifficulty(), category, s.roundSize)
	if err != nil {
		return nil, newError(err, http.StatusInternalServerError, "Could not load words")
	}

	g, err := s.engine.Start(userID, level, category, words)
	if errors.Is(err, game.ErrNoWords) {
		return nil, newError(err, http.StatusNotFound, "No words available for this level")
	}
	if err != nil {
		return nil, newError(err, http.StatusInternalServerError, "Could not start a game")
	}

	s.logger.InfoContext(ctx, "Game started",
		log.FieldGameID, g.ID,
		log.FieldUserID, userID,
		log.FieldLevel, string(level),
		log.FieldCategory, category,
		"cards", len(g.Cards))
	return g, nil
}

// ActiveGames is the number of games held in memory.
func (s *GameService) ActiveGames() int { return s.engine.Active() }

// Current returns the player's in-flight game.
func (s *GameService) Current(userID, gameID string) (*game.Game, error) {
	g, err := s.engine.Get(gameID, userID)
	if err != nil {
		return nil, gameError(err)
	}
	return g, nil
}

func (s *GameService) SubmitAnswer(ctx context.Context, userID, gameID, input string) (Turn, error) {
	if strings.TrimSpace(input) == "" {
		return Turn{}, newError(core.ErrEmptyAnswer, http.StatusBadRequest, "Type an answer or skip the card")
	}
	g, out, err := s.engine.Answer(gameID, userID, input)
	if err != nil {
		return Turn{}, gameError(err)
	}
	return s.afterPlay(ctx, g, out), nil
}

// Skip reveals the current card and records it as a miss.
func (s *GameService) Skip(ctx context.Context, userID, gameID string) (Turn, error) {
	g, out, err := s.engine.Skip(gameID, userID)
	if err != nil {
		return Turn{}, gameError(err)
	}
	return s.afterPlay(ctx, g, out), nil
}

// Abandon drops an unfinished game without saving it.
func (s *GameService) Abandon(ctx context.Context, userID, gameID string) error {
	if _, err := s.engine.Get(gameID, userID); err != nil {
		return gameError(err)
	}
	s.engine.Discard(gameID)
	s.logger.InfoContext(ctx, "Game abandoned", log.FieldGameID, gameID, log.FieldUserID, userID)
	return nil
}

// addNotice keeps earlier notices so one failure never hides another.
func (t *Turn) addNotice(msg string) {
	if t.Notice != "" {
		t.Notice += ". "
	}
	t.Notice += msg
}

func (s *GameService) afterPlay(ctx context.Context, g *game.Game, out game.Outcome) Turn {
	turn := Turn{Game: g, Outcome: out}

	if _, err := s.progress.RecordAnswer(ctx, g.UserID, out.Word.ID, out.Correct, s.now()); err != nil {
		s.logger.ErrorContext(ctx, "Failed to record progress",
			log.FieldError, err,
			log.FieldUserID, g.UserID,
			log.FieldWordID, out.Word.ID)
		turn.addNotice("Your progress for this word could not be saved")
	}

	if !out.Finished {
		return turn
	}

	summary := g.Summary()
	turn.Summary = &summary

	session, err := s.finish(ctx, g)
	if err != nil {
		turn.addNotice("Your score could not be saved")
		return turn
	}
	turn.Session = &session
	return turn
}

// finish persists a finished game, announces it and forgets it.
func (s *GameService) finish(ctx context.Context, g *game.Game) (core.Session, error) {
	defer s.engine.Discard(g.ID)

	session, err := s.sessions.CreateSession(ctx, g.Session(s.now()))
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to save session",
			log.FieldError, err,
			log.FieldGameID, g.ID,
			log.FieldUserID, g.UserID)
		return core.Session{}, err
	}

	s.sessionLog.LogSessionSaved(ctx, session.UserID, session.ID, string(session.Level),
		session.Score, session.Accuracy())

	if s.leaderboard != nil {
		s.leaderboard.Invalidate()
	}

	if s.events != nil {
		if err := s.events.PublishSessionCompleted(ctx, session.ID, session.UserID, session.Score); err != nil {
			// The session is stored; the export can be replayed from the database.
			s.logger.WarnContext(ctx, "Failed to publish session completed",
				log.FieldError, err,
				log.FieldSessionID, session.ID)
		}
	}
	return session, nil
}

func gameError(err error) error {
	switch {
	case errors.Is(err, game.ErrGameNotFound):
		return newError(err, http.StatusNotFound, "This game has expired, start a new one")
	case errors.Is(err, game.ErrNotYourGame):
		return newError(err, http.StatusForbidden, "This game belongs to another player")
	case errors.Is(err, game.ErrGameFinished):
		return newError(err, http.StatusConflict, "This game is already finished")
	}
	return newError(err, http.StatusInternalServerError, "Something went wrong with this game")
}
