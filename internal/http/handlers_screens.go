package http

import (
	"net/http"
	"strings"

	"woordjes/internal/core"
	"woordjes/internal/log"
	"woordjes/internal/services"
)

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	ov, err := s.progress.Overview(r.Context(), principal(r).UserID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "home.html", s.newPage(r, "Home", "home", ov))
}

type leaderboardData struct {
	Params  LeaderboardParams
	Entries []core.LeaderboardEntry
	Me      string
	Periods []core.Period
	Metrics []core.Metric
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	params := ParseLeaderboardParams(r.URL.Query())
	entries, err := s.leaderboard.Top(r.Context(), params.Period, params.Metric, core.LeaderboardSize)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	data := leaderboardData{
		Params:  params,
		Entries: entries,
		Me:      principal(r).UserID,
		Periods: []core.Period{core.PeriodWeek, core.PeriodMonth, core.PeriodAll},
		Metrics: []core.Metric{core.MetricTotal, core.MetricBest},
	}
	if isHTMX(r) && r.Header.Get("HX-Target") == "leaderboard-table" {
		s.fragment(w, r, NewReply(), "leaderboard_table", data)
		return
	}
	s.render(w, r, http.StatusOK, "leaderboard.html", s.newPage(r, "Leaderboard", "leaderboard", data))
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	ov, err := s.progress.Overview(r.Context(), principal(r).UserID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "progress.html", s.newPage(r, "Progress", "progress", ov))
}

func (s *Server) handleMedals(w http.ResponseWriter, r *http.Request) {
	view, err := s.medals.Overview(r.Context(), principal(r).UserID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "medals.html", s.newPage(r, "Medals", "medals", view))
}

func (s *Server) handleWords(w http.ResponseWriter, r *http.Request) {
	category := strings.ToLower(sanitizeInput(r.URL.Query().Get("category")))
	list, err := s.progress.Words(r.Context(), principal(r).UserID, category)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "words.html", s.newPage(r, "Words", "words", list))
}

func (s *Server) handleReportIssue(w http.ResponseWriter, r *http.Request) {
	wordID, ok := URLInt64(r, "wordID")
	if !ok {
		ErrorReply(http.StatusNotFound, "Unknown word").Send(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Send(w)
		return
	}

	issue, err := s.issues.Report(r.Context(), principal(r).UserID, wordID, formValue(r.PostForm, "description"))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	requestLogger(r).InfoContext(r.Context(), "Issue reported via UI", log.FieldWordID, wordID, "issue_id", issue.ID)
	NewReply().
		Toast(ToastSuccess, "Thanks, we will take a look").
		ResetForm().
		HTML(`<p class="success">Reported, thank you!</p>`).
		Send(w)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := s.accounts.Profile(r.Context(), principal(r).UserID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "profile.html", s.newPage(r, "Profile", "profile", profile))
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Send(w)
		return
	}
	userID := principal(r).UserID

	signed, err := s.accounts.UpdateUsername(r.Context(), userID, formValue(r.PostForm, "username"))
	if err != nil {
		profile, perr := s.accounts.Profile(r.Context(), userID)
		if perr != nil {
			s.fail(w, r, err)
			return
		}
		p := s.newPage(r, "Profile", "profile", profile)
		p.Error = services.MessageOf(err)
		s.render(w, r, services.StatusOf(err), "profile.html", p)
		return
	}

	// The token carries the username, so it is reissued.
	s.cookies.Set(w, signed.Token, s.tokens.TTL())
	p := s.newPage(r, "Profile", "profile", signed.Profile)
	p.User.Username = signed.Profile.Username
	p.Flash = "Username updated"
	s.render(w, r, http.StatusOK, "profile.html", p)
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "settings.html", s.newPage(r, "Settings", "settings", nil))
}
