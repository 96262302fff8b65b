// This file holds the helpers that turn form and query values into domain
// values, with defaults for anything missing.

package http

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"woordjes/internal/core"
)

// LeaderboardParams selects one leaderboard view.
type LeaderboardParams struct {
	Period core.Period
	Metric core.Metric
}

// ParseLeaderboardParams reads period and metric from the query string.
// Unknown periods fall back to the current week.
func ParseLeaderboardParams(query url.Values) LeaderboardParams {
	period, err := core.ParsePeriod(query.Get("period"))
	if err != nil {
		period = core.PeriodWeek
	}
	return LeaderboardParams{Period: period, Metric: core.ParseMetric(query.Get("metric"))}
}

// GameParams is the level/category chooser form.
type GameParams struct {
	Level    core.PlayLevel
	Category string
}

func ParseGameParams(form url.Values) (GameParams, error) {
	level, err := core.ParsePlayLevel(formValue(form, "level"))
	if err != nil {
		return GameParams{}, err
	}
	return GameParams{
		Level:    level,
		Category: strings.ToLower(formValue(form, "category")),
	}, nil
}

// CredentialsParams covers both the login and the signup forms.
type CredentialsParams struct {
	Email    string
	Username string
	Password string
}

func ParseCredentials(form url.Values) CredentialsParams {
	return CredentialsParams{
		Email:    formValue(form, "email"),
		Username: formValue(form, "username"),
		// passwords are taken verbatim
		Password: form.Get("password"),
	}
}

// URLInt64 reads a numeric chi route parameter.
func URLInt64(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// ParseFormOrFail parses the request form and returns an error response on
// failure. Returns nil on success.
func ParseFormOrFail(r *http.Request) *Reply {
	if err := r.ParseForm(); err != nil {
		return ErrorReply(http.StatusBadRequest, "Invalid request")
	}
	return nil
}

func formValue(form url.Values, key string) string {
	return sanitizeInput(form.Get(key))
}
