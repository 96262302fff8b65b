package http

import (
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"woordjes/internal/auth"
	"woordjes/internal/core"
	"woordjes/internal/log"
)

// sanitizeInput removes control characters except tab and newlines, and
// trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// redirect navigates htmx requests with HX-Redirect and everything else
// with a 303.
func redirect(w http.ResponseWriter, r *http.Request, url string) {
	if isHTMX(r) {
		NewReply().Redirect(url).Send(w)
		return
	}
	http.Redirect(w, r, url, http.StatusSeeOther)
}

// requestLogger carries the request id and, once signed in, the player.
func requestLogger(r *http.Request) *log.Logger {
	return log.FromContext(r.Context())
}

// principal is only called behind auth.Require.
func principal(r *http.Request) auth.Principal {
	p, _ := auth.FromContext(r.Context())
	return p
}

var titleCaser = cases.Title(language.English)

var medalIcons = map[core.MedalType]string{
	core.Gold:   "🥇",
	core.Silver: "🥈",
	core.Bronze: "🥉",
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"title": func(s any) string { return titleCaser.String(fmt.Sprint(s)) },
		"medal": func(t core.MedalType) string { return medalIcons[t] },
		"day":   func(t time.Time) string { return t.Format("2 Jan 2006") },
		"week": func(t time.Time) string {
			y, w := t.ISOWeek()
			return fmt.Sprintf("week %d, %d", w, y)
		},
		"month":   func(t time.Time) string { return t.Format("January 2006") },
		"percent": core.Percent,
		"add":     func(a, b int) int { return a + b },
	}
}
