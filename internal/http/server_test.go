package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"woordjes/internal/auth"
	"woordjes/internal/cache"
	"woordjes/internal/core"
	"woordjes/internal/game"
	"woordjes/internal/log"
	"woordjes/internal/middleware/ratelimit"
	"woordjes/internal/services"
	"woordjes/internal/storage"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

type testEnv struct {
	srv  *Server
	repo *storage.Repository
}

func newTestEnv(t *testing.T, limit ratelimit.Config) *testEnv {
	t.Helper()
	ctx := context.Background()
	logger := log.New(log.Config{Output: io.Discard})

	repo, err := storage.Open(ctx, storage.Options{
		Dialect:    storage.DialectSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "woordjes.db"),
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	tokens := auth.NewTokenIssuer(testSecret, time.Hour)
	leaderboard := services.NewLeaderboardService(repo, logger)
	engine := game.NewEngine(0, time.Hour)
	caches := cache.NewManager(logger)
	caches.Register("games", engine.Cache())
	caches.Register("leaderboard", leaderboard.Cache())

	srv, err := NewServer(":0", Deps{
		Accounts: services.NewAccountService(repo, tokens, logger),
		Games: services.NewGameService(services.GameDeps{
			Engine:      engine,
			Words:       repo,
			Progress:    repo,
			Sessions:    repo,
			Leaderboard: leaderboard,
			RoundSize:   5,
			Logger:      logger,
		}),
		Leaderboard: leaderboard,
		Progress:    services.NewProgressService(repo, logger),
		Medals:      services.NewMedalService(repo, repo, nil, logger),
		Issues:      services.NewIssueService(repo, logger),
		Tokens:      tokens,
		Ready:       repo.Ping,
		Caches:      caches,
		RateLimit:   limit,
		Logger:      logger,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	return &testEnv{srv: srv, repo: repo}
}

func (e *testEnv) do(t *testing.T, method, target string, form url.Values, cookie *http.Cookie, htmx bool) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	if htmx {
		req.Header.Set("HX-Request", "true")
	}
	rr := httptest.NewRecorder()
	e.srv.Handler.ServeHTTP(rr, req)
	return rr
}

func sessionCookie(t *testing.T, rr *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rr.Result().Cookies() {
		if c.Name == auth.CookieName && c.Value != "" {
			return c
		}
	}
	t.Fatalf("no session cookie in response (status %d)", rr.Code)
	return nil
}

func (e *testEnv) signUp(t *testing.T, username string) *http.Cookie {
	t.Helper()
	rr := e.do(t, http.MethodPost, "/signup", url.Values{
		"email":    {username + "@example.nl"},
		"username": {username},
		"password": {"geheim123"},
	}, nil, false)
	require.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/home", rr.Header().Get("Location"))
	return sessionCookie(t, rr)
}

func (e *testEnv) seedWord(t *testing.T, english, dutch string, difficulty int) core.Word {
	t.Helper()
	w, err := e.repo.InsertWord(context.Background(), core.Word{
		English: english, Dutch: dutch, Category: "food", Difficulty: difficulty,
	})
	require.NoError(t, err)
	return w
}

func TestOpsEndpoints(t *testing.T) {
	env := newTestEnv(t, ratelimit.Config{})

	rr := env.do(t, http.MethodGet, "/healthz", nil, nil, false)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"status":"ok"`)

	rr = env.do(t, http.MethodGet, "/readyz", nil, nil, false)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"database":"ok"`)

	rr = env.do(t, http.MethodGet, "/metrics", nil, nil, false)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "http_requests_total ")
	assert.Contains(t, rr.Body.String(), "games_active 0")
	for _, name := range []string{"games", "leaderboard", "ratelimit"} {
		assert.Contains(t, rr.Body.String(), `cache_entries{cache="`+name+`"}`)
	}
	assert.Contains(t, rr.Body.String(), `cache_requests_total{cache="games",result="hit"} 0`)
}

func TestStaticAndSecurityHeaders(t *testing.T) {
	env := newTestEnv(t, ratelimit.Config{})

	rr := env.do(t, http.MethodGet, "/static/app.css", nil, nil, false)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "public, max-age=3600", rr.Header().Get("Cache-Control"))
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))

	rr = env.do(t, http.MethodGet, "/nope", nil, nil, false)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), "This page does not exist")
}

func TestAnonymousRedirects(t *testing.T) {
	env := newTestEnv(t, ratelimit.Config{})

	rr := env.do(t, http.MethodGet, "/", nil, nil, false)
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/login", rr.Header().Get("Location"))

	rr = env.do(t, http.MethodGet, "/home", nil, nil, false)
	assert.Equal(t, http.StatusSeeOther, rr.Code)

	rr = env.do(t, http.MethodGet, "/leaderboard", nil, nil, true)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "/login", rr.Header().Get("HX-Redirect"))

	rr = env.do(t, http.MethodGet, "/login", nil, nil, false)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Log in")
}

func TestSignUpAndLogin(t *testing.T) {
	env := newTestEnv(t, ratelimit.Config{})
	cookie := env.signUp(t, "anna")

	rr := env.do(t, http.MethodGet, "/home", nil, cookie, false)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Welkom terug, anna!")
	assert.Contains(t, rr.Body.String(), "Beginner")

	rr = env.do(t, http.MethodGet, "/login", nil, cookie, false)
	assert.Equal(t, http.StatusSeeOther, rr.Code, "signed-in players skip the login form")

	rr = env.do(t, http.MethodPost, "/signup", url.Values{
		"email": {"other@example.nl"}, "username": {"ANNA"}, "password": {"geheim123"},
	}, nil, false)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = env.do(t, http.MethodPost, "/signup", url.Values{
		"email": {"bad"}, "username": {"bob"}, "password": {"geheim123"},
	}, nil, false)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "valid email")

	rr = env.do(t, http.MethodPost, "/login", url.Values{"email": {"anna@example.nl"}, "password": {"wrong-pass"}}, nil, false)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Contains(t, rr.Body.String(), "Invalid email or password")

	rr = env.do(t, http.MethodPost, "/login", url.Values{"email": {"ANNA@example.nl"}, "password": {"geheim123"}}, nil, true)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "/home", rr.Header().Get("HX-Redirect"))
	sessionCookie(t, rr)

	rr = env.do(t, http.MethodPost, "/logout", nil, cookie, false)
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	for _, c := range rr.Result().Cookies() {
		if c.Name == auth.CookieName {
			assert.Equal(t, -1, c.MaxAge)
		}
	}
}

func TestPlayFullGame(t *testing.T) {
	env := newTestEnv(t, ratelimit.Config{})
	cookie := env.signUp(t, "anna")
	answers := map[string]string{"bicycle": "de fiets", "cheese": "kaas"}
	env.seedWord(t, "bicycle", "de fiets", 1)
	env.seedWord(t, "cheese", "de kaas", 1)
	env.seedWord(t, "nevertheless", "desalniettemin", 3)

	rr := env.do(t, http.MethodGet, "/play", nil, cookie, false)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `value="food"`)

	rr = env.do(t, http.MethodPost, "/play", url.Values{"level": {"wizard"}}, cookie, true)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = env.do(t, http.MethodPost, "/play", url.Values{"level": {"beginner"}}, cookie, true)
	require.Equal(t, http.StatusOK, rr.Code)
	gameURL := rr.Header().Get("HX-Redirect")
	require.True(t, strings.HasPrefix(gameURL, "/play/"), gameURL)

	rr = env.do(t, http.MethodPost, gameURL+"/answer", url.Values{"answer": {"  "}}, cookie, true)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	for i := 0; i < 2; i++ {
		page := env.do(t, http.MethodGet, gameURL, nil, cookie, false)
		require.Equal(t, http.StatusOK, page.Code)
		assert.NotContains(t, page.Body.String(), "nevertheless", "advanced words stay out of beginner games")

		var answer string
		for english, dutch := range answers {
			if strings.Contains(page.Body.String(), english) {
				answer = dutch
			}
		}
		require.NotEmpty(t, answer)

		rr = env.do(t, http.MethodPost, gameURL+"/answer", url.Values{"answer": {answer}}, cookie, true)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), "Goed zo!")
		assert.Contains(t, rr.Header().Get("HX-Trigger"), `"correct":true`)
	}

	assert.Contains(t, rr.Body.String(), "Game over")
	assert.Contains(t, rr.Body.String(), "20 points")
	assert.Contains(t, rr.Header().Get("HX-Trigger"), "game:finished")

	rr = env.do(t, http.MethodGet, gameURL, nil, cookie, false)
	assert.Equal(t, http.StatusNotFound, rr.Code, "finished games are discarded")

	rr = env.do(t, http.MethodGet, "/leaderboard?period=week", nil, cookie, false)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "anna")
	assert.Contains(t, rr.Body.String(), `class="me"`)

	rr = env.do(t, http.MethodGet, "/progress", nil, cookie, false)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "<strong>20</strong> points")
}

func TestSkipAndAbandon(t *testing.T) {
	env := newTestEnv(t, ratelimit.Config{})
	anna := env.signUp(t, "anna")
	bob := env.signUp(t, "bob")
	env.seedWord(t, "bicycle", "de fiets", 1)
	env.seedWord(t, "cheese", "de kaas", 1)

	rr := env.do(t, http.MethodPost, "/play", url.Values{"level": {"beginner"}}, anna, false)
	require.Equal(t, http.StatusSeeOther, rr.Code)
	gameURL := rr.Header().Get("Location")

	rr = env.do(t, http.MethodPost, gameURL+"/skip", nil, bob, true)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = env.do(t, http.MethodPost, gameURL+"/skip", nil, anna, true)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Helaas.")
	assert.Contains(t, rr.Header().Get("HX-Trigger"), `"correct":false`)
	assert.Contains(t, rr.Body.String(), "Card 2 / 2")

	rr = env.do(t, http.MethodPost, gameURL+"/abandon", nil, anna, false)
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/home", rr.Header().Get("Location"))

	rr = env.do(t, http.MethodGet, gameURL, nil, anna, false)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), "This game has expired")
}

func TestWordsAndIssues(t *testing.T) {
	env := newTestEnv(t, ratelimit.Config{})
	cookie := env.signUp(t, "anna")
	fiets := env.seedWord(t, "bicycle", "de fiets", 1)

	rr := env.do(t, http.MethodGet, "/words?category=FOOD", nil, cookie, false)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "de fiets")

	target := "/words/" + strconv.FormatInt(fiets.ID, 10) + "/issues"
	rr = env.do(t, http.MethodPost, target, url.Values{"description": {"article is wrong"}}, cookie, true)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Reported")
	assert.Contains(t, rr.Header().Get("HX-Trigger"), "form:reset")

	issues, err := env.repo.ListWordIssues(context.Background(), core.IssueOpen)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, fiets.ID, issues[0].WordID)

	rr = env.do(t, http.MethodPost, "/words/9999/issues", url.Values{"description": {"ghost"}}, cookie, true)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = env.do(t, http.MethodPost, "/words/abc/issues", url.Values{"description": {"ghost"}}, cookie, true)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = env.do(t, http.MethodPost, target, url.Values{"description": {"  "}}, cookie, true)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestProfileMedalsAndSettings(t *testing.T) {
	env := newTestEnv(t, ratelimit.Config{})
	cookie := env.signUp(t, "anna")
	env.signUp(t, "bob")

	rr := env.do(t, http.MethodGet, "/profile", nil, cookie, false)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "anna@example.nl")

	rr = env.do(t, http.MethodPost, "/profile", url.Values{"username": {"Bob"}}, cookie, false)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = env.do(t, http.MethodPost, "/profile", url.Values{"username": {"anneke"}}, cookie, false)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Username updated")
	fresh := sessionCookie(t, rr)

	rr = env.do(t, http.MethodGet, "/home", nil, fresh, false)
	assert.Contains(t, rr.Body.String(), "Welkom terug, anneke!")

	rr = env.do(t, http.MethodGet, "/medals", nil, fresh, false)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "No medals yet")

	rr = env.do(t, http.MethodGet, "/settings", nil, fresh, false)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `id="sound-enabled"`)
}

func TestRateLimitedPosts(t *testing.T) {
	env := newTestEnv(t, ratelimit.Config{RequestsPerMinute: 1, Methods: []string{http.MethodPost}})

	form := url.Values{"email": {"anna@example.nl"}, "password": {"geheim123"}}
	rr := env.do(t, http.MethodPost, "/login", form, nil, false)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = env.do(t, http.MethodPost, "/login", form, nil, false)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))

	rr = env.do(t, http.MethodGet, "/login", nil, nil, false)
	assert.Equal(t, http.StatusOK, rr.Code, "page views are not limited")
}

func TestRateLimit_ForwardedForFromPeer(t *testing.T) {
	tests := []struct {
		name         string
		remoteAddr   string
		wantRejected int
	}{
		{name: "untrusted peer cannot rotate its address", remoteAddr: "203.0.113.7:5555", wantRejected: 8},
		{name: "private proxy forwards distinct clients", remoteAddr: "10.0.0.2:5555", wantRejected: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, ratelimit.Config{RequestsPerMinute: 2, Methods: []string{http.MethodPost}})
			form := url.Values{"email": {"anna@example.nl"}, "password": {"geheim123"}}

			rejected := 0
			for i := 0; i < 10; i++ {
				req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
				req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
				req.Header.Set("X-Forwarded-For", fmt.Sprintf("198.51.100.%d", i+1))
				req.RemoteAddr = tt.remoteAddr
				rr := httptest.NewRecorder()
				env.srv.Handler.ServeHTTP(rr, req)
				if rr.Code == http.StatusTooManyRequests {
					rejected++
				}
			}
			assert.Equal(t, tt.wantRejected, rejected)
		})
	}
}
