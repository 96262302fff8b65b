package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"woordjes/internal/core"
	"woordjes/internal/game"
	"woordjes/internal/log"
	"woordjes/internal/services"
)

type chooserData struct {
	Levels     []core.PlayLevel
	Categories []string
}

func (s *Server) handlePlayChooser(w http.ResponseWriter, r *http.Request) {
	cats, err := s.progress.Categories(r.Context())
	if err != nil {
		// still playable without a category filter
		requestLogger(r).WarnContext(r.Context(), "Category list unavailable", log.FieldError, err)
	}
	s.render(w, r, http.StatusOK, "play.html", s.newPage(r, "Play", "play", chooserData{
		Levels:     core.PlayLevels,
		Categories: cats,
	}))
}

func (s *Server) handleStartGame(w http.ResponseWriter, r *http.Request) {
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Send(w)
		return
	}
	params, err := ParseGameParams(r.PostForm)
	if err != nil {
		ErrorReply(http.StatusBadRequest, "Pick a level to play").Send(w)
		return
	}

	g, err := s.games.StartGame(r.Context(), principal(r).UserID, params.Level, params.Category)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	redirect(w, r, "/play/"+g.ID)
}

func (s *Server) handleGame(w http.ResponseWriter, r *http.Request) {
	g, err := s.games.Current(principal(r).UserID, chi.URLParam(r, "gameID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "game.html", s.newPage(r, "Play", "play", g.View()))
}

// turnData feeds the turn fragment: feedback on the card just played, then
// either the next card or the summary.
type turnData struct {
	Outcome game.Outcome
	Next    game.View
	Summary *game.Summary
	Saved   bool
	Notice  string
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Send(w)
		return
	}
	turn, err := s.games.SubmitAnswer(r.Context(), principal(r).UserID, chi.URLParam(r, "gameID"), r.PostForm.Get("answer"))
	s.writeTurn(w, r, turn, err)
}

func (s *Server) handleSkip(w http.ResponseWriter, r *http.Request) {
	turn, err := s.games.Skip(r.Context(), principal(r).UserID, chi.URLParam(r, "gameID"))
	s.writeTurn(w, r, turn, err)
}

func (s *Server) writeTurn(w http.ResponseWriter, r *http.Request, turn services.Turn, err error) {
	if err != nil {
		if services.StatusOf(err) >= http.StatusInternalServerError {
			requestLogger(r).ErrorContext(r.Context(), "Turn failed", log.FieldError, err)
		}
		ServiceErrorReply(err).Send(w)
		return
	}

	data := turnData{
		Outcome: turn.Outcome,
		Next:    turn.Game.View(),
		Summary: turn.Summary,
		Saved:   turn.Session != nil,
		Notice:  turn.Notice,
	}

	b := NewReply().AnswerChecked(turn.Outcome.Correct, turn.Outcome.Streak)
	if turn.Summary != nil {
		b.GameFinished(turn.Summary.Score)
	}
	if turn.Notice != "" {
		b.Toast(ToastWarning, turn.Notice)
	}
	s.fragment(w, r, b, "turn", data)
}

func (s *Server) handleAbandon(w http.ResponseWriter, r *http.Request) {
	if err := s.games.Abandon(r.Context(), principal(r).UserID, chi.URLParam(r, "gameID")); err != nil {
		s.fail(w, r, err)
		return
	}
	redirect(w, r, "/home")
}
