package http

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"woordjes/internal/auth"
	"woordjes/internal/cache"
	"woordjes/internal/log"
	"woordjes/internal/middleware/ratelimit"
	"woordjes/internal/middleware/security"
	"woordjes/internal/middleware/trace"
	"woordjes/internal/services"
	appweb "woordjes/web"
)

// Deps are the collaborators a Server needs. Ready and Caches may be nil.
type Deps struct {
	Accounts    *services.AccountService
	Games       *services.GameService
	Leaderboard *services.LeaderboardService
	Progress    *services.ProgressService
	Medals      *services.MedalService
	Issues      *services.IssueService

	Tokens  *auth.TokenIssuer
	Cookies auth.Cookies

	// Ready reports whether backing stores are reachable.
	Ready     func(context.Context) error
	Caches    *cache.Manager
	RateLimit ratelimit.Config
	Logger    *log.Logger

	// TrustedProxies may set X-Forwarded-For in addition to private networks.
	TrustedProxies []string
}

type Server struct {
	http.Server
	templates *template.Template

	accounts    *services.AccountService
	games       *services.GameService
	leaderboard *services.LeaderboardService
	progress    *services.ProgressService
	medals      *services.MedalService
	issues      *services.IssueService

	tokens  *auth.TokenIssuer
	cookies auth.Cookies
	ready   func(context.Context) error
	caches  *cache.Manager

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware
	logger   *log.Logger
	started  time.Time

	shutdownOnce sync.Once
}

// NewServer parses the embedded templates and mounts every route.
func NewServer(addr string, d Deps) (*Server, error) {
	logger := d.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	t, err := template.New("woordjes").Funcs(templateFuncs()).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	limitCfg := d.RateLimit
	if limitCfg.RequestsPerMinute <= 0 {
		limitCfg = ratelimit.DefaultConfig()
	}

	detector, err := security.NewDetector(d.TrustedProxies...)
	if err != nil {
		return nil, err
	}
	limiter := ratelimit.NewLimiter(limitCfg)
	if d.Caches != nil {
		d.Caches.Register("ratelimit", limiter.Cache())
	}

	s := &Server{
		templates:   t,
		accounts:    d.Accounts,
		games:       d.Games,
		leaderboard: d.Leaderboard,
		progress:    d.Progress,
		medals:      d.Medals,
		issues:      d.Issues,
		tokens:      d.Tokens,
		cookies:     d.Cookies,
		ready:       d.Ready,
		caches:      d.Caches,
		limiter:     limiter,
		detector:    detector,
		tracer:      trace.NewMiddleware(logger, detector.ClientIP),
		logger:      logger,
		started:     time.Now(),
	}

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 16,
	}
	return s, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(s.tracer.Middleware)
	r.Use(log.Middleware(s.logger))
	r.Use(log.RequestIDMiddleware(func(r *http.Request) string { return trace.GetRequestID(r.Context()) }))
	r.Use(chimw.Recoverer)
	r.Use(security.DefaultHeaders().Middleware)
	r.Use(s.detector.Middleware(s.logger))
	r.Use(s.limiter.Middleware(s.detector.ClientIP, s.onRateLimited))
	r.Use(auth.Middleware(s.tokens, s.cookies, s.logger))
	r.Use(log.UserMiddleware(func(r *http.Request) string {
		p, _ := auth.FromContext(r.Context())
		return p.UserID
	}))

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		r.Handle("/static/*", security.CacheFor(3600)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", s.handleMetrics)

	r.Get("/", s.handleRoot)
	r.Get("/login", s.handleLoginPage)
	r.Post("/login", s.handleLogin)
	r.Get("/signup", s.handleSignupPage)
	r.Post("/signup", s.handleSignup)
	r.Post("/logout", s.handleLogout)

	r.Group(func(r chi.Router) {
		r.Use(auth.Require)

		r.Get("/home", s.handleHome)

		r.Route("/play", func(r chi.Router) {
			r.Get("/", s.handlePlayChooser)
			r.Post("/", s.handleStartGame)
			r.Get("/{gameID}", s.handleGame)
			r.Post("/{gameID}/answer", s.handleAnswer)
			r.Post("/{gameID}/skip", s.handleSkip)
			r.Post("/{gameID}/abandon", s.handleAbandon)
		})

		r.Get("/leaderboard", s.handleLeaderboard)
		r.Get("/progress", s.handleProgress)
		r.Get("/medals", s.handleMedals)
		r.Get("/words", s.handleWords)
		r.Post("/words/{wordID}/issues", s.handleReportIssue)
		r.Get("/profile", s.handleProfile)
		r.Post("/profile", s.handleUpdateProfile)
		r.Get("/settings", s.handleSettings)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.renderMessage(w, r, http.StatusNotFound, "This page does not exist")
	})
	return r
}

// Shutdown drains the HTTP server. Later calls are no-ops.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	requestLogger(r).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	ErrorReply(http.StatusTooManyRequests, "Too many requests, slow down a little").Send(w)
}

// page is what every full-page template receives.
type page struct {
	Title  string
	Active string
	User   *auth.Principal
	Flash  string
	Error  string
	Data   any
}

func (s *Server) newPage(r *http.Request, title, active string, data any) page {
	p := page{Title: title, Active: active, Data: data}
	if who, ok := auth.FromContext(r.Context()); ok {
		p.User = &who
	}
	return p
}

func (s *Server) execute(name string, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// render writes a full page. Templates are executed into a buffer first so
// a failure never leaves half a page behind.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, p page) {
	body, err := s.execute(name, p)
	if err != nil {
		requestLogger(r).ErrorContext(r.Context(), "Template execution failed",
			log.FieldError, err,
			log.FieldOperation, log.OpRender,
			"template", name)
		http.Error(w, "Something went wrong, please try again", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// fragment renders a partial template into b.
func (s *Server) fragment(w http.ResponseWriter, r *http.Request, b *Reply, name string, data any) {
	body, err := s.execute(name, data)
	if err != nil {
		requestLogger(r).ErrorContext(r.Context(), "Template execution failed",
			log.FieldError, err,
			log.FieldOperation, log.OpRender,
			"template", name)
		ErrorReply(http.StatusInternalServerError, "Something went wrong, please try again").Send(w)
		return
	}
	b.HTML(string(body)).Send(w)
}

// renderMessage shows a standalone message page, or an error fragment for
// htmx requests.
func (s *Server) renderMessage(w http.ResponseWriter, r *http.Request, status int, msg string) {
	if isHTMX(r) {
		ErrorReply(status, msg).Send(w)
		return
	}
	p := s.newPage(r, "Oops", "", nil)
	p.Error = msg
	s.render(w, r, status, "message.html", p)
}

// fail reports a services error. 5xx causes are logged here; anything
// else is the player's doing.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := services.StatusOf(err)
	if status >= http.StatusInternalServerError {
		requestLogger(r).ErrorContext(r.Context(), "Request failed",
			log.FieldError, err,
			log.FieldPath, r.URL.Path)
	}
	if isHTMX(r) {
		ServiceErrorReply(err).Send(w)
		return
	}
	s.renderMessage(w, r, status, services.MessageOf(err))
}
