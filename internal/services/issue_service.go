package services

import (
	"context"
	"errors"
	"net/http"

	"woordjes/internal/core"
	"woordjes/internal/log"
	"woordjes/internal/storage"
)

type IssueService struct {
	issues IssueStore
	logger *log.Logger
}

func NewIssueService(issues IssueStore, logger *log.Logger) *IssueService {
	return &IssueService{issues: issues, logger: componentLogger(logger, log.ComponentApp)}
}

// Report files a problem with a word on behalf of a player.
func (s *IssueService) Report(ctx context.Context, userID string, wordID int64, description string) (core.WordIssue, error) {
	issue, err := s.issues.CreateWordIssue(ctx, core.WordIssue{WordID: wordID, UserID: userID, Description: description})
	switch {
	case errors.Is(err, core.ErrEmptyIssue):
		return core.WordIssue{}, newError(err, http.StatusBadRequest, "Please describe the problem")
	case errors.Is(err, core.ErrIssueTooLong):
		return core.WordIssue{}, newError(err, http.StatusBadRequest, "Please keep the description under 500 characters")
	case errors.Is(err, storage.ErrNotFound):
		return core.WordIssue{}, newError(err, http.StatusNotFound, "That word no longer exists")
	case err != nil:
		return core.WordIssue{}, newError(err, http.StatusInternalServerError, "Could not save your report")
	}
	return issue, nil
}

// List returns issues with status; an empty status lists all.
func (s *IssueService) List(ctx context.Context, status core.IssueStatus) ([]core.WordIssue, error) {
	issues, err := s.issues.ListWordIssues(ctx, status)
	if err != nil {
		return nil, newError(err, http.StatusInternalServerError, "Could not load issues")
	}
	return issues, nil
}

func (s *IssueService) Resolve(ctx context.Context, id int64) error {
	err := s.issues.ResolveWordIssue(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return newError(err, http.StatusNotFound, "Issue %d not found", id)
	}
	if err != nil {
		return newError(err, http.StatusInternalServerError, "Could not resolve issue %d", id)
	}
	s.logger.InfoContext(ctx, "Word issue resolved", "issue_id", id)
	return nil
}
