package services

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"woordjes/internal/auth"
	"woordjes/internal/core"
	"woordjes/internal/log"
	"woordjes/internal/storage"
)

// SignedIn is a profile together with a fresh session token.
type SignedIn struct {
	Profile core.Profile
	Token   string
}

type AccountService struct {
	profiles ProfileStore
	tokens   *auth.TokenIssuer
	logger   *log.Logger
}

func NewAccountService(profiles ProfileStore, tokens *auth.TokenIssuer, logger *log.Logger) *AccountService {
	return &AccountService{
		profiles: profiles,
		tokens:   tokens,
		logger:   componentLogger(logger, log.ComponentAuth),
	}
}

func (s *AccountService) SignUp(ctx context.Context, email, username, password string) (SignedIn, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	username = strings.TrimSpace(username)

	if err := core.ValidateEmail(email); err != nil {
		return SignedIn{}, newError(err, http.StatusBadRequest, "Please enter a valid email address")
	}
	if err := core.ValidateUsername(username); err != nil {
		return SignedIn{}, newError(err, http.StatusBadRequest, "Username must be 3-30 letters, digits, '_', '.' or '-'")
	}
	if err := core.ValidatePassword(password); err != nil {
		return SignedIn{}, newError(err, http.StatusBadRequest, "Password must be at least 8 characters")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return SignedIn{}, newError(err, http.StatusInternalServerError, "Could not create your account")
	}

	p, err := s.profiles.CreateProfile(ctx, core.Profile{
		ID:           uuid.NewString(),
		Email:        email,
		Username:     username,
		PasswordHash: hash,
	})
	if errors.Is(err, storage.ErrConflict) {
		return SignedIn{}, newError(err, http.StatusConflict, "That email or username is already taken")
	}
	if err != nil {
		return SignedIn{}, newError(err, http.StatusInternalServerError, "Could not create your account")
	}

	s.logger.InfoContext(ctx, "Player signed up", log.FieldUserID, p.ID)
	return s.issue(p)
}

func (s *AccountService) SignIn(ctx context.Context, email, password string) (SignedIn, error) {
	p, err := s.profiles.GetProfileByEmail(ctx, email)
	if errors.Is(err, storage.ErrNotFound) {
		return SignedIn{}, newError(auth.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid email or password")
	}
	if err != nil {
		return SignedIn{}, newError(err, http.StatusInternalServerError, "Could not sign you in")
	}
	if err := auth.CheckPassword(p.PasswordHash, password); err != nil {
		s.logger.WarnContext(ctx, "Failed sign-in", log.FieldUserID, p.ID)
		return SignedIn{}, newError(err, http.StatusUnauthorized, "Invalid email or password")
	}
	return s.issue(p)
}

func (s *AccountService) Profile(ctx context.Context, userID string) (core.Profile, error) {
	p, err := s.profiles.GetProfile(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return core.Profile{}, newError(err, http.StatusNotFound, "Profile not found")
	}
	if err != nil {
		return core.Profile{}, newError(err, http.StatusInternalServerError, "Could not load your profile")
	}
	return p, nil
}

// UpdateUsername renames the player and re-issues their token, which
// carries the username.
func (s *AccountService) UpdateUsername(ctx context.Context, userID, username string) (SignedIn, error) {
	username = strings.TrimSpace(username)
	if err := core.ValidateUsername(username); err != nil {
		return SignedIn{}, newError(err, http.StatusBadRequest, "Username must be 3-30 letters, digits, '_', '.' or '-'")
	}

	err := s.profiles.UpdateUsername(ctx, userID, username)
	switch {
	case errors.Is(err, storage.ErrConflict):
		return SignedIn{}, newError(err, http.StatusConflict, "That username is already taken")
	case errors.Is(err, storage.ErrNotFound):
		return SignedIn{}, newError(err, http.StatusNotFound, "Profile not found")
	case err != nil:
		return SignedIn{}, newError(err, http.StatusInternalServerError, "Could not update your username")
	}

	p, err := s.Profile(ctx, userID)
	if err != nil {
		return SignedIn{}, err
	}
	s.logger.InfoContext(ctx, "Username updated", log.FieldUserID, userID)
	return s.issue(p)
}

func (s *AccountService) issue(p core.Profile) (SignedIn, error) {
	token, err := s.tokens.Issue(auth.Principal{UserID: p.ID, Username: p.Username})
	if err != nil {
		return SignedIn{}, newError(err, http.StatusInternalServerError, "Could not sign you in")
	}
	return SignedIn{Profile: p, Token: token}, nil
}

func componentLogger(l *log.Logger, component string) *log.Logger {
	if l == nil {
		l = log.New(log.DefaultConfig())
	}
	return l.WithComponent(component)
}
