package http

import (
	"net/http"

	"woordjes/internal/auth"
	"woordjes/internal/log"
	"woordjes/internal/services"
)

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.FromContext(r.Context()); ok {
		http.Redirect(w, r, "/home", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.FromContext(r.Context()); ok {
		http.Redirect(w, r, "/home", http.StatusSeeOther)
		return
	}
	s.render(w, r, http.StatusOK, "login.html", s.newPage(r, "Log in", "login", CredentialsParams{}))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Send(w)
		return
	}
	creds := ParseCredentials(r.PostForm)

	signed, err := s.accounts.SignIn(r.Context(), creds.Email, creds.Password)
	if err != nil {
		p := s.newPage(r, "Log in", "login", CredentialsParams{Email: creds.Email})
		p.Error = services.MessageOf(err)
		s.render(w, r, services.StatusOf(err), "login.html", p)
		return
	}

	s.cookies.Set(w, signed.Token, s.tokens.TTL())
	redirect(w, r, "/home")
}

func (s *Server) handleSignupPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.FromContext(r.Context()); ok {
		http.Redirect(w, r, "/home", http.StatusSeeOther)
		return
	}
	s.render(w, r, http.StatusOK, "signup.html", s.newPage(r, "Sign up", "signup", CredentialsParams{}))
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Send(w)
		return
	}
	creds := ParseCredentials(r.PostForm)

	signed, err := s.accounts.SignUp(r.Context(), creds.Email, creds.Username, creds.Password)
	if err != nil {
		p := s.newPage(r, "Sign up", "signup", CredentialsParams{Email: creds.Email, Username: creds.Username})
		p.Error = services.MessageOf(err)
		s.render(w, r, services.StatusOf(err), "signup.html", p)
		return
	}

	requestLogger(r).InfoContext(r.Context(), "Player signed up", log.FieldUserID, signed.Profile.ID)
	s.cookies.Set(w, signed.Token, s.tokens.TTL())
	redirect(w, r, "/home")
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.cookies.Clear(w)
	redirect(w, r, "/login")
}
